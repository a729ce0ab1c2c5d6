// Package model defines the core memory data types.
package model

import "time"

// Kind identifies which collection a record lives in.
type Kind string

const (
	KindChat      Kind = "chat_history"
	KindShortTerm Kind = "short_term"
	KindLongTerm  Kind = "long_term"
)

// MemoryKinds are the kinds that hold memories (as opposed to chat history).
var MemoryKinds = []Kind{KindShortTerm, KindLongTerm}

// ValidKinds are the allowed record kinds.
var ValidKinds = map[Kind]bool{
	KindChat:      true,
	KindShortTerm: true,
	KindLongTerm:  true,
}

// Memory holds the fields shared by short-term and long-term memories.
type Memory struct {
	MemoryID           string    `json:"memory_id"`
	ChatID             string    `json:"chat_id,omitempty"`
	Namespace          string    `json:"namespace"`
	CategoryPrimary    string    `json:"category_primary"`
	ImportanceScore    float64   `json:"importance_score"`
	SearchableContent  string    `json:"searchable_content"`
	Summary            string    `json:"summary"`
	IsPermanentContext bool      `json:"is_permanent_context"`
	CreatedAt          time.Time `json:"created_at"`
}

// ShortTermMemory is working/session context with an optional expiry.
type ShortTermMemory struct {
	Memory
	ExpiresAt *time.Time `json:"expires_at,omitempty"`
}

// Expired reports whether the memory has an expiry at or before now.
func (m *ShortTermMemory) Expired(now time.Time) bool {
	return m.ExpiresAt != nil && !m.ExpiresAt.After(now)
}

// LongTermMemory is durable knowledge. It never expires.
type LongTermMemory struct {
	Memory

	Classification       string     `json:"classification,omitempty"`
	MemoryImportance     string     `json:"memory_importance,omitempty"`
	Topic                string     `json:"topic,omitempty"`
	Entities             []string   `json:"entities,omitempty"`
	Keywords             []string   `json:"keywords,omitempty"`
	ConfidenceScore      float64    `json:"confidence_score"`
	ClassificationReason string     `json:"classification_reason,omitempty"`
	ExtractionTimestamp  *time.Time `json:"extraction_timestamp,omitempty"`

	IsUserContext    bool `json:"is_user_context"`
	IsPreference     bool `json:"is_preference"`
	IsSkillKnowledge bool `json:"is_skill_knowledge"`
	IsCurrentProject bool `json:"is_current_project"`

	PromotionEligible bool     `json:"promotion_eligible"`
	DuplicateOf       string   `json:"duplicate_of,omitempty"`
	Supersedes        []string `json:"supersedes,omitempty"`
	RelatedMemories   []string `json:"related_memories,omitempty"`

	ProcessedForDuplicates bool `json:"processed_for_duplicates"`
	ConsciousProcessed     bool `json:"conscious_processed"`

	// Derived scores. Nil on input means "use the neutral default".
	NoveltyScore       *float64 `json:"novelty_score,omitempty"`
	RelevanceScore     *float64 `json:"relevance_score,omitempty"`
	ActionabilityScore *float64 `json:"actionability_score,omitempty"`

	AccessCount    int        `json:"access_count"`
	LastAccessedAt *time.Time `json:"last_accessed_at,omitempty"`
}

// NeutralScore is the default for derived scores the caller did not supply.
const NeutralScore = 0.5

// LongTermPatch is a partial update of a long-term memory.
// Nil fields are left untouched.
type LongTermPatch struct {
	CategoryPrimary        *string   `json:"category_primary,omitempty"`
	ImportanceScore        *float64  `json:"importance_score,omitempty"`
	SearchableContent      *string   `json:"searchable_content,omitempty"`
	Summary                *string   `json:"summary,omitempty"`
	IsPermanentContext     *bool     `json:"is_permanent_context,omitempty"`
	Classification         *string   `json:"classification,omitempty"`
	Topic                  *string   `json:"topic,omitempty"`
	Entities               *[]string `json:"entities,omitempty"`
	Keywords               *[]string `json:"keywords,omitempty"`
	ConfidenceScore        *float64  `json:"confidence_score,omitempty"`
	PromotionEligible      *bool     `json:"promotion_eligible,omitempty"`
	DuplicateOf            *string   `json:"duplicate_of,omitempty"`
	Supersedes             *[]string `json:"supersedes,omitempty"`
	RelatedMemories        *[]string `json:"related_memories,omitempty"`
	ProcessedForDuplicates *bool     `json:"processed_for_duplicates,omitempty"`
	ConsciousProcessed     *bool     `json:"conscious_processed,omitempty"`
	NoveltyScore           *float64  `json:"novelty_score,omitempty"`
	RelevanceScore         *float64  `json:"relevance_score,omitempty"`
	ActionabilityScore     *float64  `json:"actionability_score,omitempty"`
}

// Empty reports whether the patch changes nothing.
func (p LongTermPatch) Empty() bool {
	return p == LongTermPatch{}
}

// Apply merges the patch into m.
func (p LongTermPatch) Apply(m *LongTermMemory) {
	if p.CategoryPrimary != nil {
		m.CategoryPrimary = *p.CategoryPrimary
	}
	if p.ImportanceScore != nil {
		m.ImportanceScore = *p.ImportanceScore
	}
	if p.SearchableContent != nil {
		m.SearchableContent = *p.SearchableContent
	}
	if p.Summary != nil {
		m.Summary = *p.Summary
	}
	if p.IsPermanentContext != nil {
		m.IsPermanentContext = *p.IsPermanentContext
	}
	if p.Classification != nil {
		m.Classification = *p.Classification
	}
	if p.Topic != nil {
		m.Topic = *p.Topic
	}
	if p.Entities != nil {
		m.Entities = *p.Entities
	}
	if p.Keywords != nil {
		m.Keywords = *p.Keywords
	}
	if p.ConfidenceScore != nil {
		m.ConfidenceScore = *p.ConfidenceScore
	}
	if p.PromotionEligible != nil {
		m.PromotionEligible = *p.PromotionEligible
	}
	if p.DuplicateOf != nil {
		m.DuplicateOf = *p.DuplicateOf
	}
	if p.Supersedes != nil {
		m.Supersedes = *p.Supersedes
	}
	if p.RelatedMemories != nil {
		m.RelatedMemories = *p.RelatedMemories
	}
	if p.ProcessedForDuplicates != nil {
		m.ProcessedForDuplicates = *p.ProcessedForDuplicates
	}
	if p.ConsciousProcessed != nil {
		m.ConsciousProcessed = *p.ConsciousProcessed
	}
	if p.NoveltyScore != nil {
		m.NoveltyScore = p.NoveltyScore
	}
	if p.RelevanceScore != nil {
		m.RelevanceScore = p.RelevanceScore
	}
	if p.ActionabilityScore != nil {
		m.ActionabilityScore = p.ActionabilityScore
	}
}
