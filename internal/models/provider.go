package models

import (
	"time"

	"github.com/google/uuid"
)

// ProviderCredential holds an AI provider's API key, sealed at rest with
// AES-GCM. The plaintext key only exists in memory while building the LLM
// gateway.
type ProviderCredential struct {
	ID           uuid.UUID `json:"id" db:"id"`
	Provider     string    `json:"provider" db:"provider"` // openai, anthropic
	Label        string    `json:"label" db:"label"`
	SealedKey    []byte    `json:"-" db:"sealed_key"`
	DefaultModel string    `json:"default_model,omitempty" db:"default_model"`
	Active       bool      `json:"active" db:"active"`
	CreatedAt    time.Time `json:"created_at" db:"created_at"`
	UpdatedAt    time.Time `json:"updated_at" db:"updated_at"`
}
