package dto

import (
	"github.com/google/uuid"

	ierr "github.com/mietevo/mietevo-backend/internal/errors"
)

// ChatRequest is one user question for the streaming assistant.
type ChatRequest struct {
	Message   string `json:"message" validate:"required"`
	SessionID string `json:"sessionId"`
}

func (r *ChatRequest) Validate() error {
	if r.Message == "" {
		return ierr.NewError("message is required").
			WithHint("provide a non-empty message").
			Mark(ierr.ErrValidation)
	}
	return nil
}

// EnsureSessionID echoes the caller's session id or generates one so every
// stream event can carry it.
func (r *ChatRequest) EnsureSessionID() string {
	if r.SessionID == "" {
		r.SessionID = uuid.NewString()
	}
	return r.SessionID
}

// ChatEvent is one SSE payload. Exactly one of Content and Error is set
// depending on Type.
type ChatEvent struct {
	Type      string `json:"type"`
	Content   string `json:"content,omitempty"`
	Error     string `json:"error,omitempty"`
	SessionID string `json:"sessionId"`
}

const (
	ChatEventChunk    = "chunk"
	ChatEventComplete = "complete"
	ChatEventError    = "error"
)
