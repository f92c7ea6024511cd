package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	"github.com/sandevgo/ivorybot/internal/core"
	"github.com/sandevgo/ivorybot/pkg/log"
)

// TranscriptsRepo is the audit trail: every message that enters or leaves
// the conversation buffer and every tool invocation lands here. The live
// buffer never reads from it; it exists for inspection after the fact.
type TranscriptsRepo struct {
	db *sql.DB
}

func NewTranscriptsRepo(db *sql.DB) *TranscriptsRepo {
	return &TranscriptsRepo{db: db}
}

func (r *TranscriptsRepo) AddMessage(ctx context.Context, sessionID string, msg core.Message) error {
	isSummary := 0
	if msg.IsSummary() {
		isSummary = 1
	}

	query := `INSERT INTO transcripts (session_id, role, content, tokens, is_summary) VALUES (?, ?, ?, ?, ?)`
	if _, err := r.db.ExecContext(ctx, query, sessionID, msg.Role, msg.Content, msg.Tokens, isSummary); err != nil {
		return fmt.Errorf("failed to insert transcript message: %w", err)
	}
	return nil
}

func (r *TranscriptsRepo) AddToolEvent(ctx context.Context, sessionID string, call core.ToolCall, res core.ToolResult) error {
	params, err := json.Marshal(call.Params)
	if err != nil {
		params = []byte("{}")
	}

	success := 0
	if res.Success {
		success = 1
	}

	query := `INSERT INTO tool_events (session_id, tool, params, success, kind, error) VALUES (?, ?, ?, ?, ?, ?)`
	if _, err := r.db.ExecContext(ctx, query, sessionID, call.Name, string(params), success, string(res.Kind), res.Err); err != nil {
		return fmt.Errorf("failed to insert tool event: %w", err)
	}
	return nil
}

func (r *TranscriptsRepo) GetMessages(ctx context.Context, sessionID string, limit int) ([]core.Message, error) {
	query := `SELECT role, content, tokens, is_summary FROM transcripts WHERE session_id = ? ORDER BY id DESC LIMIT ?`

	rows, err := r.db.QueryContext(ctx, query, sessionID, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query transcripts: %w", err)
	}
	defer rows.Close()

	var messages []core.Message
	for rows.Next() {
		var msg core.Message
		var isSummary int
		if err := rows.Scan(&msg.Role, &msg.Content, &msg.Tokens, &isSummary); err != nil {
			return nil, fmt.Errorf("failed to scan transcript row: %w", err)
		}
		if isSummary == 1 {
			msg.Summary = &core.SummaryInfo{}
		}
		messages = append(messages, msg)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	// Rows came back newest first; callers expect chronological order.
	for i, j := 0, len(messages)-1; i < j; i, j = i+1, j-1 {
		messages[i], messages[j] = messages[j], messages[i]
	}

	log.FromCtx(ctx).Debug().Int("count", len(messages)).Msg("loaded transcript messages")
	return messages, nil
}

// ToolEventStats aggregates the audit trail per tool for a session.
func (r *TranscriptsRepo) ToolEventStats(ctx context.Context, sessionID string) (map[string]int, error) {
	query := `SELECT tool, COUNT(*) FROM tool_events WHERE session_id = ? GROUP BY tool`

	rows, err := r.db.QueryContext(ctx, query, sessionID)
	if err != nil {
		return nil, fmt.Errorf("failed to query tool events: %w", err)
	}
	defer rows.Close()

	stats := make(map[string]int)
	for rows.Next() {
		var tool string
		var count int
		if err := rows.Scan(&tool, &count); err != nil {
			return nil, fmt.Errorf("failed to scan tool event row: %w", err)
		}
		stats[tool] = count
	}
	return stats, rows.Err()
}
