// Package api wires the services into the HTTP surface.
package api

import (
	"context"
	"fmt"
	"net/http"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"

	"github.com/vkoval/docuchat/internal/admin"
	"github.com/vkoval/docuchat/internal/api/handlers"
	"github.com/vkoval/docuchat/internal/api/middleware"
	"github.com/vkoval/docuchat/internal/auth"
	"github.com/vkoval/docuchat/internal/cache"
	"github.com/vkoval/docuchat/internal/chat"
	"github.com/vkoval/docuchat/internal/config"
	"github.com/vkoval/docuchat/internal/docstore"
	"github.com/vkoval/docuchat/internal/document"
	"github.com/vkoval/docuchat/internal/embedding"
	"github.com/vkoval/docuchat/internal/llm"
	"github.com/vkoval/docuchat/internal/models"
	"github.com/vkoval/docuchat/internal/project"
	"github.com/vkoval/docuchat/internal/queue"
	"github.com/vkoval/docuchat/internal/retrieval"
)

type Router struct {
	mux    *chi.Mux
	db     *pgxpool.Pool
	redis  *redis.Client
	cfg    *config.Config
	ps     *project.Service
	jwt    *auth.JWTMiddleware
	apikey *auth.APIKeyMiddleware

	adminSvc *admin.Service
	docSvc   *document.Service
	chatSvc  *chat.Service
	retr     *retrieval.Retriever
}

// NewRouter builds the service graph. Provider credentials stored by an
// admin take precedence over the environment keys when the gateway is
// constructed.
func NewRouter(ctx context.Context, db *pgxpool.Pool, rdb *redis.Client, cfg *config.Config) (*Router, error) {
	ps := project.NewService(db)

	sealer, err := admin.NewSealer(cfg.Auth.CredentialSecret)
	if err != nil {
		return nil, fmt.Errorf("init credential sealer: %w", err)
	}
	adminSvc := admin.NewService(db, sealer, cache.NewCache(rdb))

	envOpts := llm.GatewayOptions{
		OpenAIKey:        cfg.LLM.OpenAIKey,
		AnthropicKey:     cfg.LLM.AnthropicKey,
		DefaultProvider:  cfg.LLM.DefaultProvider,
		FallbackProvider: cfg.LLM.FallbackProvider,
		EmbeddingModel:   cfg.LLM.EmbeddingModel,
		MaxRetries:       cfg.LLM.MaxRetries,
	}
	gwOpts, err := adminSvc.GatewayOptions(ctx, envOpts)
	if err != nil {
		return nil, fmt.Errorf("load provider credentials: %w", err)
	}
	gw := llm.NewGateway(gwOpts)

	store := docstore.NewStore(db)
	embedSvc := embedding.NewService(
		embedding.NewGatewayClient(gw, gwOpts.EmbeddingModel),
		embedding.WithConcurrency(cfg.Retrieval.EmbedConcurrency),
	)

	chunkOpts, _ := adminSvc.RetrievalOptions(ctx)
	docSvc := document.NewService(store, embedSvc, queue.NewClient(cfg.Redis), chunkOpts)

	retr := retrieval.NewRetriever(store, embedSvc)
	chatSvc := chat.NewService(db, retr, gw, adminSvc)

	return &Router{
		mux:      chi.NewRouter(),
		db:       db,
		redis:    rdb,
		cfg:      cfg,
		ps:       ps,
		jwt:      auth.NewJWTMiddleware(cfg.Auth.JWTSecret, ps),
		apikey:   auth.NewAPIKeyMiddleware(db, cfg.Auth.APIKeyHeader, ps),
		adminSvc: adminSvc,
		docSvc:   docSvc,
		chatSvc:  chatSvc,
		retr:     retr,
	}, nil
}

func (rt *Router) Setup() http.Handler {
	r := rt.mux

	r.Use(chimiddleware.RequestID)
	r.Use(chimiddleware.RealIP)
	r.Use(middleware.Logging)
	r.Use(chimiddleware.Recoverer)
	r.Use(middleware.CORS([]string{"*"}, rt.cfg.Auth.APIKeyHeader))

	rl := middleware.NewRateLimiter(100, 200, rt.cfg.Auth.APIKeyHeader)
	r.Use(rl.Limit)

	health := handlers.NewHealthHandler(rt.db, rt.redis)
	r.Get("/healthz", health.Healthz)
	r.Get("/readyz", health.Readyz)

	projH := handlers.NewProjectHandler(rt.ps, rt.docSvc)
	docH := handlers.NewDocumentHandler(rt.docSvc)
	searchH := handlers.NewSearchHandler(rt.retr, rt.adminSvc)
	chatH := handlers.NewChatHandler(rt.chatSvc)
	adminH := handlers.NewAdminHandler(rt.adminSvc)

	r.Route("/api/v1", func(r chi.Router) {
		// API key first, then JWT for whoever is still anonymous.
		r.Use(rt.apikey.Authenticate)
		r.Use(rt.jwt.Authenticate)

		r.Route("/projects", func(r chi.Router) {
			r.Get("/", projH.List)
			r.With(auth.RequireRole(models.RoleAdmin)).Post("/", projH.Create)

			r.Route("/{projectID}", func(r chi.Router) {
				r.Use(projH.Ctx)

				r.Get("/", projH.Get)
				r.With(auth.RequireRole(models.RoleAdmin)).Patch("/", projH.Update)
				r.With(auth.RequireRole(models.RoleAdmin)).Delete("/", projH.Delete)

				r.Route("/documents", func(r chi.Router) {
					r.Post("/", docH.UploadText)
					r.Post("/file", docH.UploadFile)
					r.Post("/url", docH.UploadURL)
					r.Get("/", docH.List)
					r.Get("/{id}", docH.Get)
					r.Get("/{id}/status", docH.Status)
					r.Delete("/{id}", docH.Delete)
				})

				r.Post("/search", searchH.Search)

				r.Route("/conversations", func(r chi.Router) {
					r.Post("/", chatH.CreateConversation)
					r.Get("/", chatH.ListConversations)
					r.Get("/{id}/messages", chatH.Messages)
					r.Post("/{id}/messages", chatH.Ask)
					r.Post("/{id}/messages/stream", chatH.AskStream)
					r.Delete("/{id}", chatH.DeleteConversation)
				})
			})
		})

		r.Route("/admin", func(r chi.Router) {
			r.Use(auth.RequireRole(models.RoleAdmin))

			r.Post("/users", adminH.CreateUser)
			r.Get("/users", adminH.ListUsers)
			r.Patch("/users/{id}", adminH.UpdateUser)

			r.Post("/providers", adminH.UpsertCredential)
			r.Get("/providers", adminH.ListCredentials)
			r.Delete("/providers/{provider}", adminH.DeactivateCredential)

			r.Get("/settings", adminH.GetSettings)
			r.Put("/settings", adminH.SetSettings)

			r.Get("/activity", adminH.ListActivity)
		})
	})

	return r
}
