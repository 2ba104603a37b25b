package auth

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/vkoval/docuchat/internal/models"
	"github.com/vkoval/docuchat/internal/project"
)

type APIKeyMiddleware struct {
	db             *pgxpool.Pool
	headerName     string
	projectService *project.Service
}

func NewAPIKeyMiddleware(db *pgxpool.Pool, headerName string, ps *project.Service) *APIKeyMiddleware {
	return &APIKeyMiddleware{
		db:             db,
		headerName:     headerName,
		projectService: ps,
	}
}

// Authenticate resolves a request carrying an API key header. Requests
// without the header fall through to JWT auth.
func (m *APIKeyMiddleware) Authenticate(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		key := r.Header.Get(m.headerName)
		if key == "" {
			next.ServeHTTP(w, r)
			return
		}

		hash := HashAPIKey(key)

		var ak models.APIKey
		err := m.db.QueryRow(r.Context(),
			`SELECT id, user_id, key_hash, name, expires_at, created_at
			 FROM api_keys WHERE key_hash = $1`, hash,
		).Scan(&ak.ID, &ak.UserID, &ak.KeyHash, &ak.Name, &ak.ExpiresAt, &ak.CreatedAt)
		if err != nil {
			writeError(w, http.StatusUnauthorized, "invalid API key")
			return
		}

		if ak.ExpiresAt != nil && ak.ExpiresAt.Before(time.Now()) {
			writeError(w, http.StatusUnauthorized, "API key expired")
			return
		}

		user, err := m.projectService.GetUserByID(r.Context(), ak.UserID)
		if err != nil || !user.Active {
			writeError(w, http.StatusUnauthorized, "API key owner unavailable")
			return
		}

		go m.touchLastUsed(ak.ID)

		ctx := project.WithUser(r.Context(), user)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func (m *APIKeyMiddleware) touchLastUsed(id uuid.UUID) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if _, err := m.db.Exec(ctx, `UPDATE api_keys SET last_used_at = now() WHERE id = $1`, id); err != nil {
		slog.Debug("failed to update api key last_used_at", "error", err)
	}
}

func HashAPIKey(key string) string {
	h := sha256.Sum256([]byte(key))
	return hex.EncodeToString(h[:])
}

func GenerateAPIKeyPrefix() string {
	return fmt.Sprintf("dch_%d", time.Now().UnixNano())
}
