package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/rcliao/memori-store/internal/model"
	"github.com/rcliao/memori-store/internal/store"
)

const chatColumns = `chat_id, user_input, ai_output, model, session_id, namespace, timestamp, tokens_used, metadata`

const shortTermColumns = `m.memory_id, m.chat_id, m.namespace, m.category_primary, m.importance_score,
	m.searchable_content, m.summary, m.is_permanent_context, m.created_at, m.expires_at`

const longTermColumns = `m.memory_id, m.chat_id, m.namespace, m.category_primary, m.importance_score,
	m.searchable_content, m.summary, m.is_permanent_context, m.created_at,
	m.classification, m.memory_importance, m.topic, m.entities, m.keywords, m.confidence_score,
	m.classification_reason, m.extraction_timestamp, m.is_user_context, m.is_preference,
	m.is_skill_knowledge, m.is_current_project, m.promotion_eligible, m.duplicate_of,
	m.supersedes, m.related_memories, m.processed_for_duplicates, m.conscious_processed,
	m.novelty_score, m.relevance_score, m.actionability_score, m.access_count, m.last_accessed_at`

type scanner interface {
	Scan(dest ...interface{}) error
}

func (s *Store) UpsertChat(ctx context.Context, c *model.ChatInteraction) error {
	meta, err := store.EncodeJSON(c.Metadata)
	if err != nil {
		return fmt.Errorf("encode metadata: %w", err)
	}
	_, err = s.db.ExecContext(ctx,
		`INSERT INTO chat_history (`+chatColumns+`)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
		 ON CONFLICT(chat_id) DO UPDATE SET
			user_input = excluded.user_input,
			ai_output = excluded.ai_output,
			model = excluded.model,
			session_id = excluded.session_id,
			namespace = excluded.namespace,
			timestamp = excluded.timestamp,
			tokens_used = excluded.tokens_used,
			metadata = excluded.metadata`,
		c.ChatID, c.UserInput, c.AIOutput, c.Model, c.SessionID, c.Namespace,
		store.FormatTime(c.Timestamp), c.TokensUsed, meta)
	if err != nil {
		return fmt.Errorf("upsert chat: %w", err)
	}
	return nil
}

func (s *Store) ChatHistory(ctx context.Context, ns, sessionID string, limit int) ([]model.ChatInteraction, error) {
	if limit <= 0 {
		limit = 10
	}
	where := []string{"namespace = ?"}
	args := []interface{}{ns}
	if sessionID != "" {
		where = append(where, "session_id = ?")
		args = append(args, sessionID)
	}
	args = append(args, limit)

	rows, err := s.db.QueryContext(ctx,
		`SELECT `+chatColumns+` FROM chat_history
		 WHERE `+strings.Join(where, " AND ")+`
		 ORDER BY timestamp DESC LIMIT ?`, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var chats []model.ChatInteraction
	for rows.Next() {
		var c model.ChatInteraction
		var ts string
		var meta sql.NullString
		if err := rows.Scan(&c.ChatID, &c.UserInput, &c.AIOutput, &c.Model, &c.SessionID,
			&c.Namespace, &ts, &c.TokensUsed, &meta); err != nil {
			return nil, err
		}
		c.Timestamp, _ = store.ParseTime(ts)
		store.DecodeJSON(meta, &c.Metadata)
		chats = append(chats, c)
	}
	return chats, rows.Err()
}

func (s *Store) InsertShortTerm(ctx context.Context, m *model.ShortTermMemory) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO short_term_memory (memory_id, chat_id, namespace, category_primary, importance_score,
			searchable_content, summary, is_permanent_context, created_at, expires_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		m.MemoryID, nullString(m.ChatID), m.Namespace, m.CategoryPrimary, m.ImportanceScore,
		m.SearchableContent, m.Summary, boolInt(m.IsPermanentContext),
		store.FormatTime(m.CreatedAt), store.FormatTimePtr(m.ExpiresAt))
	if err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("%w: memory_id %s", store.ErrDuplicateKey, m.MemoryID)
		}
		return fmt.Errorf("insert short-term memory: %w", err)
	}
	return nil
}

func (s *Store) InsertLongTerm(ctx context.Context, m *model.LongTermMemory) error {
	args, err := longTermArgs(m)
	if err != nil {
		return err
	}
	_, err = s.db.ExecContext(ctx,
		`INSERT INTO long_term_memory (memory_id, chat_id, namespace, category_primary, importance_score,
			searchable_content, summary, is_permanent_context, created_at,
			classification, memory_importance, topic, entities, keywords, confidence_score,
			classification_reason, extraction_timestamp, is_user_context, is_preference,
			is_skill_knowledge, is_current_project, promotion_eligible, duplicate_of,
			supersedes, related_memories, processed_for_duplicates, conscious_processed,
			novelty_score, relevance_score, actionability_score, access_count, last_accessed_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		args...)
	if err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("%w: memory_id %s", store.ErrDuplicateKey, m.MemoryID)
		}
		return fmt.Errorf("insert long-term memory: %w", err)
	}
	return nil
}

// longTermArgs returns column values in longTermColumns order.
func longTermArgs(m *model.LongTermMemory) ([]interface{}, error) {
	entities, err := store.EncodeJSON(m.Entities)
	if err != nil {
		return nil, fmt.Errorf("encode entities: %w", err)
	}
	keywords, err := store.EncodeJSON(m.Keywords)
	if err != nil {
		return nil, fmt.Errorf("encode keywords: %w", err)
	}
	supersedes, err := store.EncodeJSON(m.Supersedes)
	if err != nil {
		return nil, fmt.Errorf("encode supersedes: %w", err)
	}
	related, err := store.EncodeJSON(m.RelatedMemories)
	if err != nil {
		return nil, fmt.Errorf("encode related_memories: %w", err)
	}
	return []interface{}{
		m.MemoryID, nullString(m.ChatID), m.Namespace, m.CategoryPrimary, m.ImportanceScore,
		m.SearchableContent, m.Summary, boolInt(m.IsPermanentContext), store.FormatTime(m.CreatedAt),
		m.Classification, m.MemoryImportance, m.Topic, entities, keywords, m.ConfidenceScore,
		m.ClassificationReason, store.FormatTimePtr(m.ExtractionTimestamp),
		boolInt(m.IsUserContext), boolInt(m.IsPreference),
		boolInt(m.IsSkillKnowledge), boolInt(m.IsCurrentProject),
		boolInt(m.PromotionEligible), nullString(m.DuplicateOf),
		supersedes, related, boolInt(m.ProcessedForDuplicates), boolInt(m.ConsciousProcessed),
		scoreOr(m.NoveltyScore), scoreOr(m.RelevanceScore), scoreOr(m.ActionabilityScore),
		m.AccessCount, store.FormatTimePtr(m.LastAccessedAt),
	}, nil
}

func (s *Store) GetLongTerm(ctx context.Context, ns, id string) (*model.LongTermMemory, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT `+longTermColumns+` FROM long_term_memory m WHERE m.namespace = ? AND m.memory_id = ?`,
		ns, id)
	m, err := scanLongTerm(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: %s/%s", store.ErrNotFound, ns, id)
	}
	if err != nil {
		return nil, err
	}
	return &m, nil
}

func (s *Store) UpdateLongTerm(ctx context.Context, ns, id string, patch model.LongTermPatch) (bool, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return false, err
	}
	defer tx.Rollback()

	row := tx.QueryRowContext(ctx,
		`SELECT `+longTermColumns+` FROM long_term_memory m WHERE m.namespace = ? AND m.memory_id = ?`,
		ns, id)
	m, err := scanLongTerm(row)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, err
	}

	patch.Apply(&m)
	args, err := longTermArgs(&m)
	if err != nil {
		return false, err
	}
	// Drop memory_id; it keys the WHERE clause instead.
	args = append(args[1:], ns, id)

	_, err = tx.ExecContext(ctx,
		`UPDATE long_term_memory SET chat_id = ?, namespace = ?, category_primary = ?, importance_score = ?,
			searchable_content = ?, summary = ?, is_permanent_context = ?, created_at = ?,
			classification = ?, memory_importance = ?, topic = ?, entities = ?, keywords = ?, confidence_score = ?,
			classification_reason = ?, extraction_timestamp = ?, is_user_context = ?, is_preference = ?,
			is_skill_knowledge = ?, is_current_project = ?, promotion_eligible = ?, duplicate_of = ?,
			supersedes = ?, related_memories = ?, processed_for_duplicates = ?, conscious_processed = ?,
			novelty_score = ?, relevance_score = ?, actionability_score = ?, access_count = ?, last_accessed_at = ?
		 WHERE namespace = ? AND memory_id = ?`, args...)
	if err != nil {
		return false, fmt.Errorf("update long-term memory: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return false, err
	}
	return true, nil
}

func (s *Store) TouchLongTerm(ctx context.Context, ns string, ids []string, at time.Time) error {
	if len(ids) == 0 {
		return nil
	}
	args := []interface{}{store.FormatTime(at), ns}
	for _, id := range ids {
		args = append(args, id)
	}
	_, err := s.db.ExecContext(ctx,
		`UPDATE long_term_memory SET access_count = access_count + 1, last_accessed_at = ?
		 WHERE namespace = ? AND memory_id IN (`+placeholders(len(ids))+`)`, args...)
	return err
}

func (s *Store) Delete(ctx context.Context, ns string, kind model.Kind) (int, error) {
	table, err := tableFor(kind)
	if err != nil {
		return 0, err
	}
	res, err := s.db.ExecContext(ctx, `DELETE FROM `+table+` WHERE namespace = ?`, ns)
	if err != nil {
		return 0, fmt.Errorf("delete %s: %w", kind, err)
	}
	n, _ := res.RowsAffected()
	return int(n), nil
}

func (s *Store) DeleteExpired(ctx context.Context, ns string, now time.Time) (int, error) {
	res, err := s.db.ExecContext(ctx,
		`DELETE FROM short_term_memory
		 WHERE namespace = ? AND expires_at IS NOT NULL AND expires_at <= ?`,
		ns, store.FormatTime(now))
	if err != nil {
		return 0, fmt.Errorf("delete expired: %w", err)
	}
	n, _ := res.RowsAffected()
	return int(n), nil
}

func scanShortTerm(row scanner, extra ...interface{}) (model.ShortTermMemory, error) {
	var m model.ShortTermMemory
	var chatID, expiresAt sql.NullString
	var createdAt string
	var permanent int

	dest := []interface{}{
		&m.MemoryID, &chatID, &m.Namespace, &m.CategoryPrimary, &m.ImportanceScore,
		&m.SearchableContent, &m.Summary, &permanent, &createdAt, &expiresAt,
	}
	if err := row.Scan(append(dest, extra...)...); err != nil {
		return m, err
	}

	m.ChatID = chatID.String
	m.IsPermanentContext = permanent != 0
	m.CreatedAt, _ = store.ParseTime(createdAt)
	m.ExpiresAt = store.ParseNullTime(expiresAt)
	return m, nil
}

func scanLongTerm(row scanner, extra ...interface{}) (model.LongTermMemory, error) {
	var m model.LongTermMemory
	var chatID, entities, keywords, extractedAt, duplicateOf, supersedes, related, lastAccessed sql.NullString
	var createdAt string
	var permanent, userCtx, pref, skill, project, promo, dupProcessed, conscious int
	var novelty, relevance, actionability float64

	dest := []interface{}{
		&m.MemoryID, &chatID, &m.Namespace, &m.CategoryPrimary, &m.ImportanceScore,
		&m.SearchableContent, &m.Summary, &permanent, &createdAt,
		&m.Classification, &m.MemoryImportance, &m.Topic, &entities, &keywords, &m.ConfidenceScore,
		&m.ClassificationReason, &extractedAt, &userCtx, &pref,
		&skill, &project, &promo, &duplicateOf,
		&supersedes, &related, &dupProcessed, &conscious,
		&novelty, &relevance, &actionability, &m.AccessCount, &lastAccessed,
	}
	if err := row.Scan(append(dest, extra...)...); err != nil {
		return m, err
	}

	m.ChatID = chatID.String
	m.IsPermanentContext = permanent != 0
	m.CreatedAt, _ = store.ParseTime(createdAt)
	store.DecodeJSON(entities, &m.Entities)
	store.DecodeJSON(keywords, &m.Keywords)
	m.ExtractionTimestamp = store.ParseNullTime(extractedAt)
	m.IsUserContext = userCtx != 0
	m.IsPreference = pref != 0
	m.IsSkillKnowledge = skill != 0
	m.IsCurrentProject = project != 0
	m.PromotionEligible = promo != 0
	m.DuplicateOf = duplicateOf.String
	store.DecodeJSON(supersedes, &m.Supersedes)
	store.DecodeJSON(related, &m.RelatedMemories)
	m.ProcessedForDuplicates = dupProcessed != 0
	m.ConsciousProcessed = conscious != 0
	m.NoveltyScore = &novelty
	m.RelevanceScore = &relevance
	m.ActionabilityScore = &actionability
	m.LastAccessedAt = store.ParseNullTime(lastAccessed)
	return m, nil
}

func nullString(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

func scoreOr(v *float64) float64 {
	if v == nil {
		return model.NeutralScore
	}
	return *v
}

func placeholders(n int) string {
	if n <= 0 {
		return ""
	}
	return strings.Repeat("?, ", n-1) + "?"
}
