package memory

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/oklog/ulid/v2"

	"github.com/rcliao/memori-store/internal/model"
	"github.com/rcliao/memori-store/internal/store"
)

// StoreChatInteraction upserts a chat interaction by chat_id and returns the
// id. An empty chat_id is generated; a zero timestamp becomes now.
func (e *Engine) StoreChatInteraction(ctx context.Context, c model.ChatInteraction) (string, error) {
	ctx, cancel := e.opContext(ctx)
	defer cancel()

	b, err := e.backend(ctx)
	if err != nil {
		return "", err
	}
	return e.storeChat(ctx, b, c)
}

func (e *Engine) storeChat(ctx context.Context, b store.Backend, c model.ChatInteraction) (string, error) {
	if err := model.ValidateChat(&c); err != nil {
		return "", writeErr("store", model.KindChat, c.ChatID, err)
	}
	if c.ChatID == "" {
		c.ChatID = uuid.NewString()
	}
	c.Timestamp = store.NormalizeTime(c.Timestamp, e.now())

	if err := b.UpsertChat(ctx, &c); err != nil {
		return "", writeErr("store", model.KindChat, c.ChatID, err)
	}
	e.logger.Debug("stored chat interaction", "chat_id", c.ChatID, "namespace", c.Namespace)
	return c.ChatID, nil
}

// GetChatHistory returns chats newest first. An empty sessionID returns
// every session in the namespace.
func (e *Engine) GetChatHistory(ctx context.Context, ns, sessionID string, limit int) ([]model.ChatInteraction, error) {
	ctx, cancel := e.opContext(ctx)
	defer cancel()

	b, err := e.backend(ctx)
	if err != nil {
		return nil, err
	}
	chats, err := b.ChatHistory(ctx, ns, sessionID, limit)
	if err != nil {
		return nil, classify(fmt.Errorf("chat history: %w", err))
	}
	return chats, nil
}

// StoreShortTermMemory inserts a short-term memory and returns its id.
func (e *Engine) StoreShortTermMemory(ctx context.Context, m model.ShortTermMemory) (string, error) {
	ctx, cancel := e.opContext(ctx)
	defer cancel()

	b, err := e.backend(ctx)
	if err != nil {
		return "", err
	}
	return e.storeShortTerm(ctx, b, m)
}

func (e *Engine) storeShortTerm(ctx context.Context, b store.Backend, m model.ShortTermMemory) (string, error) {
	if err := e.prepareMemory(&m.Memory); err != nil {
		return "", writeErr("store", model.KindShortTerm, m.MemoryID, err)
	}
	m.ExpiresAt = store.NormalizeTimePtr(m.ExpiresAt)

	if err := b.InsertShortTerm(ctx, &m); err != nil {
		return "", writeErr("store", model.KindShortTerm, m.MemoryID, err)
	}
	e.logger.Debug("stored short-term memory", "memory_id", m.MemoryID, "namespace", m.Namespace)
	return m.MemoryID, nil
}

// StoreLongTermMemory inserts a long-term memory and returns its id.
// Missing derived scores default to model.NeutralScore and access
// tracking starts from zero.
func (e *Engine) StoreLongTermMemory(ctx context.Context, m model.LongTermMemory) (string, error) {
	ctx, cancel := e.opContext(ctx)
	defer cancel()

	b, err := e.backend(ctx)
	if err != nil {
		return "", err
	}
	return e.storeLongTerm(ctx, b, m)
}

func (e *Engine) storeLongTerm(ctx context.Context, b store.Backend, m model.LongTermMemory) (string, error) {
	if err := e.prepareMemory(&m.Memory); err != nil {
		return "", writeErr("store", model.KindLongTerm, m.MemoryID, err)
	}
	for _, s := range []**float64{&m.NoveltyScore, &m.RelevanceScore, &m.ActionabilityScore} {
		if *s == nil {
			v := model.NeutralScore
			*s = &v
		}
	}
	m.AccessCount = 0
	m.LastAccessedAt = nil
	m.ExtractionTimestamp = store.NormalizeTimePtr(m.ExtractionTimestamp)
	if m.ExtractionTimestamp == nil {
		ts := m.CreatedAt
		m.ExtractionTimestamp = &ts
	}
	if err := model.ValidateLongTerm(&m); err != nil {
		return "", writeErr("store", model.KindLongTerm, m.MemoryID, err)
	}

	if err := b.InsertLongTerm(ctx, &m); err != nil {
		return "", writeErr("store", model.KindLongTerm, m.MemoryID, err)
	}
	e.logger.Debug("stored long-term memory", "memory_id", m.MemoryID, "namespace", m.Namespace)
	return m.MemoryID, nil
}

// prepareMemory validates the shared fields and fills the id and
// creation time.
func (e *Engine) prepareMemory(m *model.Memory) error {
	if err := model.ValidateMemory(m); err != nil {
		return err
	}
	if m.MemoryID == "" {
		m.MemoryID = ulid.Make().String()
	}
	m.CreatedAt = store.NormalizeTime(m.CreatedAt, e.now())
	return nil
}

// BatchFailure is one record a batch could not store.
type BatchFailure struct {
	Index int
	Err   error
}

// BatchResult reports how much of a batch was persisted.
type BatchResult struct {
	Stored   int
	IDs      []string
	Failures []BatchFailure
}

// BatchStore stores records of one kind, continuing past records that fail.
// Each record must be a model.ChatInteraction, model.ShortTermMemory or
// model.LongTermMemory (or a pointer to one) matching kind. The error is
// non-nil only when nothing could be attempted.
func (e *Engine) BatchStore(ctx context.Context, kind model.Kind, records []any) (BatchResult, error) {
	var res BatchResult
	if !model.ValidKinds[kind] {
		return res, fmt.Errorf("%w: %q", model.ErrInvalidKind, kind)
	}

	ctx, cancel := e.opContext(ctx)
	defer cancel()

	b, err := e.backend(ctx)
	if err != nil {
		return res, err
	}

	for i, rec := range records {
		id, err := e.storeRecord(ctx, b, kind, rec)
		if err != nil {
			res.Failures = append(res.Failures, BatchFailure{Index: i, Err: err})
			continue
		}
		res.Stored++
		res.IDs = append(res.IDs, id)
	}

	if len(res.Failures) > 0 {
		e.logger.Warn("batch store partially failed",
			"kind", kind, "stored", res.Stored, "failed", len(res.Failures))
	}
	return res, nil
}

func (e *Engine) storeRecord(ctx context.Context, b store.Backend, kind model.Kind, rec any) (string, error) {
	switch r := rec.(type) {
	case model.ChatInteraction:
		if kind == model.KindChat {
			return e.storeChat(ctx, b, r)
		}
	case *model.ChatInteraction:
		if kind == model.KindChat && r != nil {
			return e.storeChat(ctx, b, *r)
		}
	case model.ShortTermMemory:
		if kind == model.KindShortTerm {
			return e.storeShortTerm(ctx, b, r)
		}
	case *model.ShortTermMemory:
		if kind == model.KindShortTerm && r != nil {
			return e.storeShortTerm(ctx, b, *r)
		}
	case model.LongTermMemory:
		if kind == model.KindLongTerm {
			return e.storeLongTerm(ctx, b, r)
		}
	case *model.LongTermMemory:
		if kind == model.KindLongTerm && r != nil {
			return e.storeLongTerm(ctx, b, *r)
		}
	}
	return "", writeErr("store", kind, "", fmt.Errorf("%w: unexpected record %T", model.ErrInvalidMemory, rec))
}

// GetLongTermMemory returns ErrNotFound when id is not in the namespace.
func (e *Engine) GetLongTermMemory(ctx context.Context, ns, id string) (*model.LongTermMemory, error) {
	ctx, cancel := e.opContext(ctx)
	defer cancel()

	b, err := e.backend(ctx)
	if err != nil {
		return nil, err
	}
	m, err := b.GetLongTerm(ctx, ns, id)
	if err != nil {
		return nil, classify(err)
	}
	return m, nil
}

// UpdateLongTermMemory applies patch to a long-term memory. It reports
// false, without error, when id is not in the namespace.
func (e *Engine) UpdateLongTermMemory(ctx context.Context, ns, id string, patch model.LongTermPatch) (bool, error) {
	if err := validatePatch(patch); err != nil {
		return false, writeErr("update", model.KindLongTerm, id, err)
	}

	ctx, cancel := e.opContext(ctx)
	defer cancel()

	b, err := e.backend(ctx)
	if err != nil {
		return false, err
	}
	ok, err := b.UpdateLongTerm(ctx, ns, id, patch)
	if err != nil {
		return false, writeErr("update", model.KindLongTerm, id, err)
	}
	return ok, nil
}

func validatePatch(p model.LongTermPatch) error {
	if p.SearchableContent != nil && strings.TrimSpace(*p.SearchableContent) == "" {
		return fmt.Errorf("%w: %w", model.ErrInvalidMemory, model.ErrEmptyContent)
	}
	for name, s := range map[string]*float64{
		"importance_score":    p.ImportanceScore,
		"confidence_score":    p.ConfidenceScore,
		"novelty_score":       p.NoveltyScore,
		"relevance_score":     p.RelevanceScore,
		"actionability_score": p.ActionabilityScore,
	} {
		if s == nil {
			continue
		}
		if err := model.ValidateScore(name, *s); err != nil {
			return fmt.Errorf("%w: %w", model.ErrInvalidMemory, err)
		}
	}
	return nil
}

// Clear deletes every record of kind in the namespace, or of every kind
// when kind is empty. It returns the number of records removed.
func (e *Engine) Clear(ctx context.Context, ns string, kind model.Kind) (int, error) {
	kinds := []model.Kind{model.KindChat, model.KindShortTerm, model.KindLongTerm}
	if kind != "" {
		if !model.ValidKinds[kind] {
			return 0, fmt.Errorf("%w: %q", model.ErrInvalidKind, kind)
		}
		kinds = []model.Kind{kind}
	}

	ctx, cancel := e.opContext(ctx)
	defer cancel()

	b, err := e.backend(ctx)
	if err != nil {
		return 0, err
	}

	total := 0
	for _, k := range kinds {
		n, err := b.Delete(ctx, ns, k)
		if err != nil {
			return total, writeErr("clear", k, ns, err)
		}
		total += n
	}
	e.logger.Info("cleared memories", "namespace", ns, "kind", kind, "deleted", total)
	return total, nil
}

// CleanupExpired deletes short-term memories whose expiry has passed.
func (e *Engine) CleanupExpired(ctx context.Context, ns string) (int, error) {
	ctx, cancel := e.opContext(ctx)
	defer cancel()

	b, err := e.backend(ctx)
	if err != nil {
		return 0, err
	}
	n, err := b.DeleteExpired(ctx, ns, e.now())
	if err != nil {
		return 0, writeErr("cleanup", model.KindShortTerm, ns, err)
	}
	if n > 0 {
		e.logger.Info("removed expired short-term memories", "namespace", ns, "deleted", n)
	}
	return n, nil
}
