package worker

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync"

	"github.com/google/uuid"
	"github.com/mokiat/gog"
	"github.com/samber/lo"
	"github.com/tessellate-ai/memring/config"
	"github.com/tessellate-ai/memring/errors"
	"github.com/tessellate-ai/memring/event"
	"github.com/tessellate-ai/memring/forge"
	"github.com/tessellate-ai/memring/memory"
)

// Generator produces the condensed text of a summary.
type Generator interface {
	Generate(ctx context.Context, prompt string) (string, error)
}

type bufferKey struct {
	session uuid.UUID
	topic   string
}

// Summarizer condenses windows of in-session messages into a single
// summary-kind item. It buffers per (session, topic) and fires on buffer
// size, accumulated high-importance items, or a TokensExceeded event. The
// summary's metadata names the source ids it condenses so retrieval can
// suppress the originals.
type Summarizer struct {
	rings  *memory.MultiRing
	gen    Generator
	conf   *config.MemoryConfig
	logger *slog.Logger

	mu      sync.Mutex
	buffers map[bufferKey][]*memory.MemoryItem
}

func NewSummarizer(rings *memory.MultiRing, gen Generator, conf *config.MemoryConfig, logger *slog.Logger) *Summarizer {
	return &Summarizer{
		rings:   rings,
		gen:     gen,
		conf:    conf,
		logger:  logger,
		buffers: make(map[bufferKey][]*memory.MemoryItem),
	}
}

func (w *Summarizer) Name() string { return "summarizer" }

func (w *Summarizer) InterestedIn(ev event.Event) bool {
	switch e := ev.(type) {
	case event.MemoryWritten:
		return memory.Ring(e.Ring) == memory.RingInSession && memory.Kind(e.Kind) == memory.KindMessage
	case event.TokensExceeded:
		return true
	}
	return false
}

func (w *Summarizer) Run(ctx context.Context, ev event.Event) error {
	switch e := ev.(type) {
	case event.MemoryWritten:
		return w.onWritten(ctx, e)
	case event.TokensExceeded:
		return w.onTokensExceeded(ctx, e)
	}
	return nil
}

func (w *Summarizer) onWritten(ctx context.Context, e event.MemoryWritten) error {
	rs, err := w.rings.Ring(memory.RingInSession)
	if err != nil {
		return err
	}

	item, err := rs.Get(ctx, e.ItemID)
	if errors.Is(err, errors.ErrNotFound) {
		return nil
	} else if err != nil {
		return err
	}
	if item.SessionID == nil {
		return nil
	}

	key := bufferKey{session: *item.SessionID, topic: topicOf(item)}

	w.mu.Lock()
	// The same write event may be delivered more than once; the buffer keeps
	// one entry per item so re-runs stay idempotent.
	if lo.ContainsBy(w.buffers[key], func(b *memory.MemoryItem) bool { return b.ID == item.ID }) {
		w.mu.Unlock()
		return nil
	}
	w.buffers[key] = append(w.buffers[key], item)
	buffer := w.buffers[key]

	important := lo.CountBy(buffer, func(b *memory.MemoryItem) bool {
		return b.Importance >= w.conf.PromotionImportance
	})
	trigger := len(buffer) >= w.conf.SummaryBufferLimit || important >= w.conf.SummaryImportantCount
	if trigger {
		delete(w.buffers, key)
	}
	w.mu.Unlock()

	if !trigger {
		return nil
	}
	return w.condense(ctx, key.session, key.topic, buffer)
}

// onTokensExceeded condenses the session's recent in-session window so the
// next turn assembles a cheaper context.
func (w *Summarizer) onTokensExceeded(ctx context.Context, e event.TokensExceeded) error {
	rs, err := w.rings.Ring(memory.RingInSession)
	if err != nil {
		return err
	}

	sessionID := e.SessionID
	items, err := rs.Query(ctx, memory.Filter{
		SessionID: &sessionID,
		Kinds:     []memory.Kind{memory.KindMessage},
	}, w.conf.SummaryBufferLimit)
	if err != nil {
		return err
	}
	if len(items) < 2 {
		return nil
	}

	// Query returns newest first; condense in chronological order.
	lo.Reverse(items)
	return w.condense(ctx, sessionID, "session window", items)
}

func (w *Summarizer) condense(ctx context.Context, sessionID uuid.UUID, topic string, items []*memory.MemoryItem) error {
	if len(items) == 0 {
		return nil
	}

	text, err := w.gen.Generate(ctx, buildPrompt(topic, items))
	if err != nil {
		return errors.Wrapf(err, "failed to generate summary for session %s", sessionID)
	}

	sourceIDs := lo.Map(items, func(b *memory.MemoryItem, _ int) string {
		return b.ID.String()
	})

	summary := &memory.MemoryItem{
		ID:        uuid.New(),
		SessionID: &sessionID,
		Kind:      memory.KindSummary,
		Content:   strings.TrimSpace(text),
		Importance: lo.MaxBy(items, func(a, b *memory.MemoryItem) bool {
			return a.Importance > b.Importance
		}).Importance,
		Metadata: gog.Merge(
			map[string]any{
				"topic":        topic,
				"source_range": fmt.Sprintf("%s..%s", items[0].ID, items[len(items)-1].ID),
			},
			map[string]any{forge.SummarizesKey: sourceIDs},
		),
	}

	if _, err := w.rings.Write(ctx, summary, nil); err != nil {
		return err
	}

	w.logger.Info("condensed message window into summary",
		slog.String("session", sessionID.String()),
		slog.String("topic", topic),
		slog.Int("sources", len(items)))
	return nil
}

func buildPrompt(topic string, items []*memory.MemoryItem) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "Summarize this conversation about %s in at most 150 words. Focus on key facts, decisions, preferences and actionable outcomes.\n\nConversation:\n", topic)
	for _, item := range items {
		role := "assistant"
		if v, ok := item.Metadata["role"].(string); ok {
			role = v
		}
		fmt.Fprintf(&sb, "%s: %s\n", role, item.Content)
	}
	sb.WriteString("\nSummary:")
	return sb.String()
}

func topicOf(item *memory.MemoryItem) string {
	if v, ok := item.Metadata["topic"].(string); ok && v != "" {
		return v
	}
	return "general"
}
