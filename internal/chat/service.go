// Package chat runs project-scoped conversations, grounding each answer in
// chunks retrieved from the project's documents.
package chat

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/vkoval/docuchat/internal/llm"
	"github.com/vkoval/docuchat/internal/models"
	"github.com/vkoval/docuchat/internal/retrieval"
	"github.com/vkoval/docuchat/pkg/chunker"
)

const historyLimit = 20

// SettingsSource supplies the tunable retrieval and model defaults.
// Implemented by the admin service.
type SettingsSource interface {
	RetrievalOptions(ctx context.Context) (chunker.Options, retrieval.RankOptions)
	Settings(ctx context.Context) (map[string]string, error)
}

type Service struct {
	db        *pgxpool.Pool
	retriever *retrieval.Retriever
	gateway   llm.Gateway
	settings  SettingsSource
}

func NewService(db *pgxpool.Pool, r *retrieval.Retriever, gw llm.Gateway, settings SettingsSource) *Service {
	return &Service{db: db, retriever: r, gateway: gw, settings: settings}
}

// --- conversations ---

func (s *Service) CreateConversation(ctx context.Context, projectID, userID uuid.UUID, title string) (*models.Conversation, error) {
	if title == "" {
		title = "New conversation"
	}

	var c models.Conversation
	err := s.db.QueryRow(ctx,
		`INSERT INTO conversations (project_id, user_id, title) VALUES ($1, $2, $3)
		 RETURNING id, project_id, user_id, title, created_at, updated_at`,
		projectID, userID, title,
	).Scan(&c.ID, &c.ProjectID, &c.UserID, &c.Title, &c.CreatedAt, &c.UpdatedAt)
	if err != nil {
		return nil, fmt.Errorf("create conversation: %w", err)
	}
	return &c, nil
}

func (s *Service) ListConversations(ctx context.Context, projectID uuid.UUID, limit, offset int) ([]models.Conversation, error) {
	rows, err := s.db.Query(ctx,
		`SELECT id, project_id, user_id, title, created_at, updated_at
		 FROM conversations WHERE project_id = $1 ORDER BY updated_at DESC LIMIT $2 OFFSET $3`,
		projectID, limit, offset,
	)
	if err != nil {
		return nil, fmt.Errorf("list conversations: %w", err)
	}
	defer rows.Close()

	var convs []models.Conversation
	for rows.Next() {
		var c models.Conversation
		if err := rows.Scan(&c.ID, &c.ProjectID, &c.UserID, &c.Title, &c.CreatedAt, &c.UpdatedAt); err != nil {
			return nil, fmt.Errorf("scan conversation: %w", err)
		}
		convs = append(convs, c)
	}
	return convs, rows.Err()
}

func (s *Service) Messages(ctx context.Context, conversationID uuid.UUID) ([]models.Message, error) {
	rows, err := s.db.Query(ctx,
		`SELECT id, conversation_id, role, content, created_at
		 FROM messages WHERE conversation_id = $1 ORDER BY created_at`,
		conversationID,
	)
	if err != nil {
		return nil, fmt.Errorf("load messages: %w", err)
	}
	defer rows.Close()

	var msgs []models.Message
	for rows.Next() {
		var m models.Message
		if err := rows.Scan(&m.ID, &m.ConversationID, &m.Role, &m.Content, &m.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan message: %w", err)
		}
		msgs = append(msgs, m)
	}
	return msgs, rows.Err()
}

func (s *Service) DeleteConversation(ctx context.Context, projectID, id uuid.UUID) error {
	_, err := s.db.Exec(ctx,
		`DELETE FROM conversations WHERE id = $1 AND project_id = $2`, id, projectID)
	if err != nil {
		return fmt.Errorf("delete conversation: %w", err)
	}
	return nil
}

// --- chat ---

type AskRequest struct {
	ConversationID uuid.UUID `json:"conversation_id"`
	Message        string    `json:"message"`
	Provider       string    `json:"provider,omitempty"`
	Model          string    `json:"model,omitempty"`
}

type AskResponse struct {
	Answer  string             `json:"answer"`
	Sources []retrieval.Result `json:"sources"`
	Model   string             `json:"model"`
	Tokens  int                `json:"tokens"`
}

// Ask answers the user's message with retrieved document context and
// persists both sides of the exchange.
func (s *Service) Ask(ctx context.Context, projectID uuid.UUID, req AskRequest) (*AskResponse, error) {
	sources, chatReq, err := s.prepare(ctx, projectID, req)
	if err != nil {
		return nil, err
	}

	resp, err := s.gateway.Chat(ctx, *chatReq)
	if err != nil {
		return nil, fmt.Errorf("chat completion: %w", err)
	}

	s.persistExchange(ctx, req.ConversationID, req.Message, resp.Content)

	return &AskResponse{
		Answer:  resp.Content,
		Sources: sources,
		Model:   resp.Model,
		Tokens:  resp.TotalTokens,
	}, nil
}

// StreamEvent is one unit of a streamed answer relay.
type StreamEvent struct {
	Content string             `json:"content,omitempty"`
	Done    bool               `json:"done"`
	Sources []retrieval.Result `json:"sources,omitempty"`
	Err     error              `json:"-"`
}

// AskStream relays the completion chunk by chunk. The full assistant
// message is persisted once the stream finishes; the final event carries
// the retrieval sources.
func (s *Service) AskStream(ctx context.Context, projectID uuid.UUID, req AskRequest) (<-chan StreamEvent, error) {
	sources, chatReq, err := s.prepare(ctx, projectID, req)
	if err != nil {
		return nil, err
	}

	upstream, err := s.gateway.ChatStream(ctx, *chatReq)
	if err != nil {
		return nil, fmt.Errorf("chat stream: %w", err)
	}

	out := make(chan StreamEvent)
	go func() {
		defer close(out)

		var answer strings.Builder
		for chunk := range upstream {
			if chunk.Error != nil {
				out <- StreamEvent{Err: chunk.Error, Done: true}
				return
			}
			if chunk.Content != "" {
				answer.WriteString(chunk.Content)
				select {
				case out <- StreamEvent{Content: chunk.Content}:
				case <-ctx.Done():
					return
				}
			}
			if chunk.Done {
				break
			}
		}

		s.persistExchange(context.WithoutCancel(ctx), req.ConversationID, req.Message, answer.String())
		out <- StreamEvent{Done: true, Sources: sources}
	}()

	return out, nil
}

// prepare retrieves context, assembles the prompt, and resolves model
// defaults. Retrieval failure is non-fatal: the chat proceeds without
// document context rather than blocking the conversation.
func (s *Service) prepare(ctx context.Context, projectID uuid.UUID, req AskRequest) ([]retrieval.Result, *llm.ChatRequest, error) {
	if strings.TrimSpace(req.Message) == "" {
		return nil, nil, fmt.Errorf("message is required")
	}

	_, rankOpts := s.settings.RetrievalOptions(ctx)

	sources, err := s.retriever.Search(ctx, projectID, req.Message, rankOpts)
	if err != nil {
		slog.Warn("context retrieval failed, answering without document context",
			"project_id", projectID, "error", err)
		sources = nil
	}

	history, err := s.history(ctx, req.ConversationID)
	if err != nil {
		return nil, nil, err
	}

	messages := assemblePrompt(sources, history, req.Message)

	provider, model := req.Provider, req.Model
	if provider == "" || model == "" {
		settings, err := s.settings.Settings(ctx)
		if err == nil {
			if provider == "" {
				provider = settings[models.SettingChatProvider]
			}
			if model == "" {
				model = settings[models.SettingChatModel]
			}
		}
	}

	chatReq := &llm.ChatRequest{
		Provider: provider,
		Model:    model,
		Messages: messages,
	}
	return sources, chatReq, nil
}

func (s *Service) history(ctx context.Context, conversationID uuid.UUID) ([]models.Message, error) {
	rows, err := s.db.Query(ctx,
		`SELECT id, conversation_id, role, content, created_at FROM (
			SELECT id, conversation_id, role, content, created_at
			FROM messages WHERE conversation_id = $1 ORDER BY created_at DESC LIMIT $2
		 ) recent ORDER BY created_at`,
		conversationID, historyLimit,
	)
	if err != nil {
		return nil, fmt.Errorf("load history: %w", err)
	}
	defer rows.Close()

	var msgs []models.Message
	for rows.Next() {
		var m models.Message
		if err := rows.Scan(&m.ID, &m.ConversationID, &m.Role, &m.Content, &m.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan message: %w", err)
		}
		msgs = append(msgs, m)
	}
	return msgs, rows.Err()
}

func (s *Service) persistExchange(ctx context.Context, conversationID uuid.UUID, question, answer string) {
	tx, err := s.db.Begin(ctx)
	if err != nil {
		slog.Error("failed to persist chat exchange", "conversation_id", conversationID, "error", err)
		return
	}
	defer tx.Rollback(ctx)

	for _, m := range []struct{ role, content string }{
		{models.MessageRoleUser, question},
		{models.MessageRoleAssistant, answer},
	} {
		if _, err := tx.Exec(ctx,
			`INSERT INTO messages (conversation_id, role, content) VALUES ($1, $2, $3)`,
			conversationID, m.role, m.content,
		); err != nil {
			slog.Error("failed to persist chat message", "conversation_id", conversationID, "error", err)
			return
		}
	}

	if _, err := tx.Exec(ctx,
		`UPDATE conversations SET updated_at = now() WHERE id = $1`, conversationID,
	); err != nil {
		slog.Error("failed to touch conversation", "conversation_id", conversationID, "error", err)
		return
	}

	if err := tx.Commit(ctx); err != nil {
		slog.Error("failed to commit chat exchange", "conversation_id", conversationID, "error", err)
	}
}

// assemblePrompt builds the message list: a system prompt carrying the
// retrieved excerpts, then recent history, then the new user message.
func assemblePrompt(sources []retrieval.Result, history []models.Message, question string) []llm.Message {
	var sb strings.Builder
	sb.WriteString("You are a project assistant. Answer using the project's documents where relevant.")
	if len(sources) > 0 {
		sb.WriteString("\n\nRelevant document excerpts:\n")
		for i, src := range sources {
			fmt.Fprintf(&sb, "\n[%d] %s\n%s\n", i+1, src.Title, src.Text)
		}
		sb.WriteString("\nCite excerpts by number when you use them.")
	}

	messages := []llm.Message{{Role: "system", Content: sb.String()}}
	for _, m := range history {
		messages = append(messages, llm.Message{Role: m.Role, Content: m.Content})
	}
	return append(messages, llm.Message{Role: "user", Content: question})
}
