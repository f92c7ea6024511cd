package budget

import (
	"context"
	"fmt"
	"strings"

	"github.com/pkoukk/tiktoken-go"

	"github.com/sandevgo/ivorybot/internal/core"
	"github.com/sandevgo/ivorybot/pkg/log"
)

// messageOverhead approximates the per-message framing tokens the chat
// format adds on top of the content itself.
const messageOverhead = 4

const summaryPrefix = "[SUMMARY OF PREVIOUS CONVERSATION: "
const summarySuffix = "]"

// Counter estimates token usage with the cl100k_base encoding. Providers
// disagree on exact tokenization; an estimate within a few percent is good
// enough for budget decisions.
type Counter struct {
	enc *tiktoken.Tiktoken
}

func NewCounter() (*Counter, error) {
	enc, err := tiktoken.GetEncoding("cl100k_base")
	if err != nil {
		return nil, fmt.Errorf("failed to load token encoding: %w", err)
	}
	return &Counter{enc: enc}, nil
}

func (c *Counter) Count(text string) int {
	return len(c.enc.Encode(text, nil, nil))
}

func (c *Counter) CountMessage(m core.Message) int {
	return messageOverhead + c.Count(m.Content)
}

// Summarizer condenses a run of messages into one short paragraph. The LLM
// provider implements this; tests use a stub.
type Summarizer interface {
	Summarize(ctx context.Context, msgs []core.Message) (string, error)
}

// Manager watches a conversation against its token ceiling and condenses
// the oldest messages into summary markers when usage crosses the
// threshold. Compaction is best effort: a summarization failure leaves the
// buffer untouched.
type Manager struct {
	counter    *Counter
	maxTokens  int
	threshold  float64
	batch      int
	summarizer Summarizer
}

func NewManager(counter *Counter, maxTokens int, threshold float64, batch int, summarizer Summarizer) *Manager {
	if threshold <= 0 || threshold > 1 {
		threshold = 0.8
	}
	if batch < 2 {
		batch = 2
	}
	return &Manager{
		counter:    counter,
		maxTokens:  maxTokens,
		threshold:  threshold,
		batch:      batch,
		summarizer: summarizer,
	}
}

func (m *Manager) MaxTokens() int { return m.maxTokens }

// Annotate stamps the message with its token estimate.
func (m *Manager) Annotate(msg *core.Message) {
	msg.Tokens = m.counter.CountMessage(*msg)
}

func (m *Manager) Total(msgs []core.Message) int {
	total := 0
	for _, msg := range msgs {
		if msg.Tokens > 0 {
			total += msg.Tokens
		} else {
			total += m.counter.CountMessage(msg)
		}
	}
	return total
}

func (m *Manager) NeedsCompaction(msgs []core.Message) bool {
	return float64(m.Total(msgs)) >= m.threshold*float64(m.maxTokens)
}

// CompactUntilFit repeatedly condenses the oldest messages until usage
// drops below the threshold or no further compaction is possible. It
// returns the (possibly unchanged) buffer and how many messages were
// replaced in total.
func (m *Manager) CompactUntilFit(ctx context.Context, msgs []core.Message) ([]core.Message, int, error) {
	logger := log.FromCtx(ctx)
	replaced := 0

	for m.NeedsCompaction(msgs) {
		next, info, err := m.CompactOnce(ctx, msgs)
		if err != nil {
			return msgs, replaced, err
		}
		if info == nil {
			// Nothing left to condense.
			break
		}
		logger.Info().
			Int("replaced_messages", info.ReplacedCount).
			Int("replaced_tokens", info.ReplacedTokens).
			Msg("conversation compacted")
		msgs = next
		replaced += info.ReplacedCount
	}

	return msgs, replaced, nil
}

// CompactOnce condenses the oldest contiguous run of non-summary messages
// into a single summary message. The most recent message is never part of
// the run. A nil SummaryInfo with nil error means there was nothing
// eligible.
func (m *Manager) CompactOnce(ctx context.Context, msgs []core.Message) ([]core.Message, *core.SummaryInfo, error) {
	start, end := m.eligibleRun(msgs)
	if start < 0 {
		return msgs, nil, nil
	}

	run := msgs[start:end]
	summary, err := m.summarizer.Summarize(ctx, run)
	if err != nil {
		return msgs, nil, fmt.Errorf("summarization failed: %w", err)
	}

	replacedTokens := m.Total(run)
	summaryMsg := core.Message{
		Role:    core.RoleAssistant,
		Content: summaryPrefix + strings.TrimSpace(summary) + summarySuffix,
		Summary: &core.SummaryInfo{
			ReplacedCount:  len(run),
			ReplacedTokens: replacedTokens,
		},
	}
	m.Annotate(&summaryMsg)

	out := make([]core.Message, 0, len(msgs)-len(run)+1)
	out = append(out, msgs[:start]...)
	out = append(out, summaryMsg)
	out = append(out, msgs[end:]...)
	return out, summaryMsg.Summary, nil
}

// eligibleRun finds the oldest contiguous stretch of non-summary messages,
// capped at the batch size and always stopping short of the most recent
// message. Returns start < 0 when no run of at least two messages exists.
func (m *Manager) eligibleRun(msgs []core.Message) (start, end int) {
	limit := len(msgs) - 1
	if limit < 2 {
		return -1, -1
	}

	start, end = -1, -1
	for i := 0; i < limit; i++ {
		if msgs[i].IsSummary() {
			if start >= 0 {
				break
			}
			continue
		}
		if start < 0 {
			start = i
		}
		end = i + 1
		if end-start >= m.batch {
			break
		}
	}

	if start < 0 || end-start < 2 {
		return -1, -1
	}
	return start, end
}

// IsSummaryContent reports whether text is a condensed-history marker.
func IsSummaryContent(text string) bool {
	return strings.HasPrefix(text, summaryPrefix)
}
