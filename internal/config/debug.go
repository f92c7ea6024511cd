package config

import "os"

func IsDebug() bool {
	return os.Getenv("IVORY_DEBUG") == "1"
}
