package agent

import (
	"context"
	"sync"

	"github.com/sandevgo/ivorybot/internal/budget"
	"github.com/sandevgo/ivorybot/internal/core"
)

// Conversation is the in-memory message buffer for one session. Every
// append stamps the message with its token estimate; the running total is
// always the sum of the stamps, so budget checks never re-tokenize the
// whole history.
type Conversation struct {
	mu   sync.Mutex
	msgs []core.Message
	mgr  *budget.Manager
}

func NewConversation(mgr *budget.Manager) *Conversation {
	return &Conversation{mgr: mgr}
}

// Append annotates and stores the message, returning the annotated copy.
func (c *Conversation) Append(msg core.Message) core.Message {
	c.mgr.Annotate(&msg)

	c.mu.Lock()
	defer c.mu.Unlock()
	c.msgs = append(c.msgs, msg)
	return msg
}

// Messages returns a copy of the buffer.
func (c *Conversation) Messages() []core.Message {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]core.Message(nil), c.msgs...)
}

func (c *Conversation) Reset() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.msgs = nil
}

func (c *Conversation) Tokens() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.mgr.Total(c.msgs)
}

// Stats reports message and summary counts.
func (c *Conversation) Stats() (messages, summaries int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, m := range c.msgs {
		if m.IsSummary() {
			summaries++
		}
	}
	return len(c.msgs), summaries
}

// CompactIfNeeded condenses old messages when usage crosses the threshold.
// Best effort: the error is reported but the buffer stays usable either way.
func (c *Conversation) CompactIfNeeded(ctx context.Context) (int, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	msgs, replaced, err := c.mgr.CompactUntilFit(ctx, c.msgs)
	c.msgs = msgs
	return replaced, err
}

// ForceCompact runs one compaction round regardless of the threshold.
func (c *Conversation) ForceCompact(ctx context.Context) (int, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	msgs, info, err := c.mgr.CompactOnce(ctx, c.msgs)
	if err != nil {
		return 0, err
	}
	c.msgs = msgs
	if info == nil {
		return 0, nil
	}
	return info.ReplacedCount, nil
}

func (c *Conversation) MaxTokens() int { return c.mgr.MaxTokens() }
