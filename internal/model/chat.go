package model

import "time"

// ChatInteraction is one conversational exchange.
type ChatInteraction struct {
	ChatID     string         `json:"chat_id"`
	UserInput  string         `json:"user_input"`
	AIOutput   string         `json:"ai_output"`
	Model      string         `json:"model"`
	SessionID  string         `json:"session_id"`
	Namespace  string         `json:"namespace"`
	Timestamp  time.Time      `json:"timestamp"`
	TokensUsed int            `json:"tokens_used"`
	Metadata   map[string]any `json:"metadata,omitempty"`
}
