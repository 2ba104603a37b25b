package models

import "time"

// Well-known platform setting keys. Values are stored as JSON so numeric
// and string settings share one table.
const (
	SettingChunkSize          = "retrieval.chunk_size"
	SettingTopK               = "retrieval.top_k"
	SettingRelevanceThreshold = "retrieval.relevance_threshold"
	SettingChatModel          = "chat.default_model"
	SettingChatProvider       = "chat.default_provider"
	SettingEmbeddingModel     = "embedding.model"
)

type Setting struct {
	Key       string    `json:"key" db:"key"`
	Value     string    `json:"value" db:"value"` // JSON-encoded
	UpdatedBy string    `json:"updated_by,omitempty" db:"updated_by"`
	UpdatedAt time.Time `json:"updated_at" db:"updated_at"`
}

// ActivityEntry records an admin-visible action (uploads, deletions,
// settings changes).
type ActivityEntry struct {
	ID        int64     `json:"id" db:"id"`
	UserID    string    `json:"user_id,omitempty" db:"user_id"`
	Action    string    `json:"action" db:"action"`
	Target    string    `json:"target,omitempty" db:"target"`
	Detail    string    `json:"detail,omitempty" db:"detail"`
	CreatedAt time.Time `json:"created_at" db:"created_at"`
}
