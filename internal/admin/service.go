// Package admin is the control plane: users, AI provider credentials, and
// platform settings.
package admin

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/vkoval/docuchat/internal/cache"
	"github.com/vkoval/docuchat/internal/llm"
	"github.com/vkoval/docuchat/internal/models"
	"github.com/vkoval/docuchat/internal/retrieval"
	"github.com/vkoval/docuchat/pkg/chunker"
)

const (
	settingsCacheKey = "platform:settings"
	settingsCacheTTL = 5 * time.Minute
)

type Service struct {
	db     *pgxpool.Pool
	sealer *Sealer
	cache  *cache.Cache
}

func NewService(db *pgxpool.Pool, sealer *Sealer, c *cache.Cache) *Service {
	return &Service{db: db, sealer: sealer, cache: c}
}

// --- users ---

func (s *Service) CreateUser(ctx context.Context, email, fullName, role string) (*models.User, error) {
	if role != models.RoleAdmin && role != models.RoleMember {
		return nil, fmt.Errorf("unknown role %q", role)
	}

	var u models.User
	err := s.db.QueryRow(ctx,
		`INSERT INTO users (email, full_name, role, active) VALUES ($1, $2, $3, true)
		 RETURNING id, email, full_name, role, active, created_at`,
		email, fullName, role,
	).Scan(&u.ID, &u.Email, &u.FullName, &u.Role, &u.Active, &u.CreatedAt)
	if err != nil {
		return nil, fmt.Errorf("create user: %w", err)
	}
	return &u, nil
}

func (s *Service) ListUsers(ctx context.Context, limit, offset int) ([]models.User, error) {
	rows, err := s.db.Query(ctx,
		`SELECT id, email, full_name, role, active, created_at
		 FROM users ORDER BY created_at DESC LIMIT $1 OFFSET $2`,
		limit, offset,
	)
	if err != nil {
		return nil, fmt.Errorf("list users: %w", err)
	}
	defer rows.Close()

	var users []models.User
	for rows.Next() {
		var u models.User
		if err := rows.Scan(&u.ID, &u.Email, &u.FullName, &u.Role, &u.Active, &u.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan user: %w", err)
		}
		users = append(users, u)
	}
	return users, rows.Err()
}

func (s *Service) SetUserRole(ctx context.Context, id uuid.UUID, role string) error {
	if role != models.RoleAdmin && role != models.RoleMember {
		return fmt.Errorf("unknown role %q", role)
	}
	_, err := s.db.Exec(ctx, `UPDATE users SET role = $1 WHERE id = $2`, role, id)
	if err != nil {
		return fmt.Errorf("set user role: %w", err)
	}
	return nil
}

func (s *Service) SetUserActive(ctx context.Context, id uuid.UUID, active bool) error {
	_, err := s.db.Exec(ctx, `UPDATE users SET active = $1 WHERE id = $2`, active, id)
	if err != nil {
		return fmt.Errorf("set user active: %w", err)
	}
	return nil
}

// --- provider credentials ---

func (s *Service) UpsertCredential(ctx context.Context, provider, label, apiKey, defaultModel string) (*models.ProviderCredential, error) {
	if provider != "openai" && provider != "anthropic" {
		return nil, fmt.Errorf("unknown provider %q", provider)
	}

	sealed, err := s.sealer.Seal(apiKey)
	if err != nil {
		return nil, fmt.Errorf("seal credential: %w", err)
	}

	var c models.ProviderCredential
	err = s.db.QueryRow(ctx,
		`INSERT INTO provider_credentials (provider, label, sealed_key, default_model, active)
		 VALUES ($1, $2, $3, $4, true)
		 ON CONFLICT (provider) DO UPDATE
		   SET label = $2, sealed_key = $3, default_model = $4, active = true, updated_at = now()
		 RETURNING id, provider, label, default_model, active, created_at, updated_at`,
		provider, label, sealed, defaultModel,
	).Scan(&c.ID, &c.Provider, &c.Label, &c.DefaultModel, &c.Active, &c.CreatedAt, &c.UpdatedAt)
	if err != nil {
		return nil, fmt.Errorf("upsert credential: %w", err)
	}
	return &c, nil
}

// ListCredentials never returns sealed key material.
func (s *Service) ListCredentials(ctx context.Context) ([]models.ProviderCredential, error) {
	rows, err := s.db.Query(ctx,
		`SELECT id, provider, label, default_model, active, created_at, updated_at
		 FROM provider_credentials ORDER BY provider`,
	)
	if err != nil {
		return nil, fmt.Errorf("list credentials: %w", err)
	}
	defer rows.Close()

	var creds []models.ProviderCredential
	for rows.Next() {
		var c models.ProviderCredential
		if err := rows.Scan(&c.ID, &c.Provider, &c.Label, &c.DefaultModel, &c.Active, &c.CreatedAt, &c.UpdatedAt); err != nil {
			return nil, fmt.Errorf("scan credential: %w", err)
		}
		creds = append(creds, c)
	}
	return creds, rows.Err()
}

func (s *Service) DeactivateCredential(ctx context.Context, provider string) error {
	_, err := s.db.Exec(ctx,
		`UPDATE provider_credentials SET active = false, updated_at = now() WHERE provider = $1`,
		provider,
	)
	if err != nil {
		return fmt.Errorf("deactivate credential: %w", err)
	}
	return nil
}

// GatewayOptions unseals the active credentials and assembles everything
// the LLM gateway needs, falling back to the env-provided defaults when a
// provider has no stored credential.
func (s *Service) GatewayOptions(ctx context.Context, fallback llm.GatewayOptions) (llm.GatewayOptions, error) {
	rows, err := s.db.Query(ctx,
		`SELECT provider, sealed_key FROM provider_credentials WHERE active = true`,
	)
	if err != nil {
		return fallback, fmt.Errorf("load credentials: %w", err)
	}
	defer rows.Close()

	opts := fallback
	for rows.Next() {
		var (
			provider string
			sealed   []byte
		)
		if err := rows.Scan(&provider, &sealed); err != nil {
			return fallback, fmt.Errorf("scan credential: %w", err)
		}

		key, err := s.sealer.Open(sealed)
		if err != nil {
			slog.Error("stored credential cannot be unsealed, skipping", "provider", provider, "error", err)
			continue
		}

		switch provider {
		case "openai":
			opts.OpenAIKey = key
		case "anthropic":
			opts.AnthropicKey = key
		}
	}
	return opts, rows.Err()
}

// --- platform settings ---

// Settings returns all platform settings, cached in redis.
func (s *Service) Settings(ctx context.Context) (map[string]string, error) {
	settings := make(map[string]string)
	if s.cache != nil {
		if err := s.cache.Get(ctx, settingsCacheKey, &settings); err == nil {
			return settings, nil
		}
	}

	rows, err := s.db.Query(ctx, `SELECT key, value FROM platform_settings`)
	if err != nil {
		return nil, fmt.Errorf("load settings: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var k, v string
		if err := rows.Scan(&k, &v); err != nil {
			return nil, fmt.Errorf("scan setting: %w", err)
		}
		settings[k] = v
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	if s.cache != nil {
		if err := s.cache.Set(ctx, settingsCacheKey, settings, settingsCacheTTL); err != nil {
			slog.Debug("settings cache write failed", "error", err)
		}
	}
	return settings, nil
}

func (s *Service) SetSetting(ctx context.Context, key, value, updatedBy string) error {
	if _, err := json.Marshal(value); err != nil {
		return fmt.Errorf("invalid setting value: %w", err)
	}

	_, err := s.db.Exec(ctx,
		`INSERT INTO platform_settings (key, value, updated_by)
		 VALUES ($1, $2, $3)
		 ON CONFLICT (key) DO UPDATE SET value = $2, updated_by = $3, updated_at = now()`,
		key, value, updatedBy,
	)
	if err != nil {
		return fmt.Errorf("set setting: %w", err)
	}

	if s.cache != nil {
		if err := s.cache.Delete(ctx, settingsCacheKey); err != nil {
			slog.Debug("settings cache invalidation failed", "error", err)
		}
	}
	return nil
}

// RetrievalOptions maps stored settings onto chunking and ranking options,
// keeping the built-in defaults for anything unset or malformed.
func (s *Service) RetrievalOptions(ctx context.Context) (chunker.Options, retrieval.RankOptions) {
	chunkOpts := chunker.DefaultOptions()
	rankOpts := retrieval.DefaultRankOptions()

	settings, err := s.Settings(ctx)
	if err != nil {
		slog.Warn("loading retrieval settings failed, using defaults", "error", err)
		return chunkOpts, rankOpts
	}

	if v, ok := settings[models.SettingChunkSize]; ok {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			chunkOpts.ChunkSize = n
		}
	}
	if v, ok := settings[models.SettingTopK]; ok {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			rankOpts.TopK = n
		}
	}
	if v, ok := settings[models.SettingRelevanceThreshold]; ok {
		if f, err := strconv.ParseFloat(v, 64); err == nil && f >= 0 && f < 1 {
			rankOpts.Threshold = retrieval.Threshold(f)
		}
	}
	return chunkOpts, rankOpts
}

// --- activity log ---

func (s *Service) LogActivity(ctx context.Context, userID, action, target, detail string) {
	_, err := s.db.Exec(ctx,
		`INSERT INTO activity_log (user_id, action, target, detail) VALUES ($1, $2, $3, $4)`,
		userID, action, target, detail,
	)
	if err != nil {
		slog.Error("failed to record activity", "action", action, "error", err)
	}
}

func (s *Service) ListActivity(ctx context.Context, limit, offset int) ([]models.ActivityEntry, error) {
	rows, err := s.db.Query(ctx,
		`SELECT id, user_id, action, target, detail, created_at
		 FROM activity_log ORDER BY created_at DESC LIMIT $1 OFFSET $2`,
		limit, offset,
	)
	if err != nil {
		return nil, fmt.Errorf("list activity: %w", err)
	}
	defer rows.Close()

	var entries []models.ActivityEntry
	for rows.Next() {
		var e models.ActivityEntry
		if err := rows.Scan(&e.ID, &e.UserID, &e.Action, &e.Target, &e.Detail, &e.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan activity: %w", err)
		}
		entries = append(entries, e)
	}
	return entries, rows.Err()
}
