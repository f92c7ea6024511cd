package agent

import (
	"context"
	"strings"
	"testing"

	"github.com/sandevgo/ivorybot/internal/budget"
	"github.com/sandevgo/ivorybot/internal/core"
)

func newTestConversation(t *testing.T, maxTokens int) *Conversation {
	t.Helper()
	counter, err := budget.NewCounter()
	if err != nil {
		t.Fatal(err)
	}
	return NewConversation(budget.NewManager(counter, maxTokens, 0.8, 2, fixedSummarizer{}))
}

func TestConversation_AppendStampsTokens(t *testing.T) {
	conv := newTestConversation(t, 1000)

	msg := conv.Append(core.Message{Role: core.RoleUser, Content: "hello world"})
	if msg.Tokens <= 0 {
		t.Errorf("tokens = %d", msg.Tokens)
	}

	// Total equals the sum of the stamps.
	conv.Append(core.Message{Role: core.RoleAssistant, Content: "hi"})
	sum := 0
	for _, m := range conv.Messages() {
		sum += m.Tokens
	}
	if conv.Tokens() != sum {
		t.Errorf("total = %d, stamp sum = %d", conv.Tokens(), sum)
	}
}

func TestConversation_MessagesReturnsCopy(t *testing.T) {
	conv := newTestConversation(t, 1000)
	conv.Append(core.Message{Role: core.RoleUser, Content: "original"})

	snapshot := conv.Messages()
	snapshot[0].Content = "mutated"

	if conv.Messages()[0].Content != "original" {
		t.Error("external mutation reached the buffer")
	}
}

func TestConversation_CompactIfNeeded(t *testing.T) {
	conv := newTestConversation(t, 120)
	for i := 0; i < 8; i++ {
		conv.Append(core.Message{Role: core.RoleUser, Content: strings.Repeat("filler words here ", 3)})
	}
	before, _ := conv.Stats()

	replaced, err := conv.CompactIfNeeded(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if replaced == 0 {
		t.Fatal("no compaction happened")
	}

	after, summaries := conv.Stats()
	if after >= before || summaries == 0 {
		t.Errorf("stats after compaction: messages=%d summaries=%d", after, summaries)
	}
}

func TestConversation_ForceCompactBelowThreshold(t *testing.T) {
	conv := newTestConversation(t, 100000)
	conv.Append(core.Message{Role: core.RoleUser, Content: "a"})
	conv.Append(core.Message{Role: core.RoleAssistant, Content: "b"})
	conv.Append(core.Message{Role: core.RoleUser, Content: "c"})

	replaced, err := conv.ForceCompact(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if replaced != 2 {
		t.Errorf("replaced = %d, want 2", replaced)
	}

	msgs := conv.Messages()
	if len(msgs) != 2 || !msgs[0].IsSummary() || msgs[1].Content != "c" {
		t.Errorf("buffer = %+v", msgs)
	}
}
