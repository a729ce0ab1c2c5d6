package model

import "errors"

// Domain validation errors
var (
	// ErrInvalidChat indicates a ChatInteraction failed validation.
	ErrInvalidChat = errors.New("invalid chat interaction")

	// ErrInvalidMemory indicates a memory record failed validation.
	ErrInvalidMemory = errors.New("invalid memory")

	// ErrEmptyNamespace indicates the namespace is empty.
	ErrEmptyNamespace = errors.New("namespace cannot be empty")

	// ErrEmptyContent indicates the searchable content is empty.
	ErrEmptyContent = errors.New("searchable content cannot be empty")

	// ErrScoreOutOfRange indicates a score outside [0, 1].
	ErrScoreOutOfRange = errors.New("score must be between 0 and 1")

	// ErrInvalidKind indicates an unknown record kind.
	ErrInvalidKind = errors.New("invalid record kind")
)
