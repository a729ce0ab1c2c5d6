package model

import (
	"fmt"
	"math"
	"strings"
)

// ValidateChat validates a ChatInteraction.
//
// Validation rules:
//   - Namespace must not be empty
//   - TokensUsed must not be negative
//
// ChatID may be empty; the engine generates one.
func ValidateChat(c *ChatInteraction) error {
	if c == nil {
		return fmt.Errorf("%w: interaction is nil", ErrInvalidChat)
	}
	if strings.TrimSpace(c.Namespace) == "" {
		return fmt.Errorf("%w: %w", ErrInvalidChat, ErrEmptyNamespace)
	}
	if c.TokensUsed < 0 {
		return fmt.Errorf("%w: tokens_used %d is negative", ErrInvalidChat, c.TokensUsed)
	}
	return nil
}

// ValidateMemory validates the fields shared by both memory kinds.
//
// Validation rules:
//   - Namespace must not be empty
//   - SearchableContent must not be blank
//   - ImportanceScore must be within [0, 1]
func ValidateMemory(m *Memory) error {
	if m == nil {
		return fmt.Errorf("%w: memory is nil", ErrInvalidMemory)
	}
	if strings.TrimSpace(m.Namespace) == "" {
		return fmt.Errorf("%w: %w", ErrInvalidMemory, ErrEmptyNamespace)
	}
	if strings.TrimSpace(m.SearchableContent) == "" {
		return fmt.Errorf("%w: %w", ErrInvalidMemory, ErrEmptyContent)
	}
	if err := ValidateScore("importance_score", m.ImportanceScore); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidMemory, err)
	}
	return nil
}

// ValidateLongTerm validates a long-term memory, including its derived scores.
func ValidateLongTerm(m *LongTermMemory) error {
	if m == nil {
		return fmt.Errorf("%w: memory is nil", ErrInvalidMemory)
	}
	if err := ValidateMemory(&m.Memory); err != nil {
		return err
	}
	if err := ValidateScore("confidence_score", m.ConfidenceScore); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidMemory, err)
	}
	for name, s := range map[string]*float64{
		"novelty_score":       m.NoveltyScore,
		"relevance_score":     m.RelevanceScore,
		"actionability_score": m.ActionabilityScore,
	} {
		if s == nil {
			continue
		}
		if err := ValidateScore(name, *s); err != nil {
			return fmt.Errorf("%w: %w", ErrInvalidMemory, err)
		}
	}
	return nil
}

// ValidateScore checks that a score lies within [0, 1].
func ValidateScore(name string, v float64) error {
	if math.IsNaN(v) || v < 0 || v > 1 {
		return fmt.Errorf("%w: %s=%v", ErrScoreOutOfRange, name, v)
	}
	return nil
}

// ParseKind parses a kind name. The empty string is not a kind.
func ParseKind(s string) (Kind, error) {
	k := Kind(s)
	if !ValidKinds[k] {
		return "", fmt.Errorf("%w: %q (valid: chat_history, short_term, long_term)", ErrInvalidKind, s)
	}
	return k, nil
}
