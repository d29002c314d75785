package handler

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/hitoshi/passerelle/internal/middleware"
)

// RouterDeps はNewRouterに必要な依存関係をまとめた構造体。
type RouterDeps struct {
	FeedService       FeedServiceInterface
	RateLimiter       *middleware.RateLimiter
	CORSAllowedOrigin string
	Logger            *slog.Logger
	// MetricsHandler は/metricsに公開するハンドラー。nilなら公開しない。
	MetricsHandler http.Handler
}

// NewRouter は全APIエンドポイントのルーティングとミドルウェアチェーンを構成したchi.Routerを返す。
//
// ミドルウェアスタックの実行順序:
//
//	Recovery → SecurityHeaders → CORS → Logging → Session → RateLimit(General)
//
// /healthと/metricsはセッション不要のためチェーンの外に配置する。
func NewRouter(deps *RouterDeps) http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.NewRecoveryMiddleware(deps.Logger))
	r.Use(middleware.NewSecurityHeadersMiddleware())
	r.Use(middleware.NewCORSMiddleware(deps.CORSAllowedOrigin))
	r.Use(middleware.NewLoggingMiddleware(deps.Logger))

	feedHandler := NewFeedHandler(deps.FeedService, deps.Logger)

	// --- 認証不要のルート ---

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})

	if deps.MetricsHandler != nil {
		r.Handle("/metrics", deps.MetricsHandler)
	}

	// --- 認証が必要なルート ---
	// ミドルウェアスタック: Session → RateLimit(General)
	r.Group(func(r chi.Router) {
		r.Use(middleware.NewSessionMiddleware())
		r.Use(deps.RateLimiter.GeneralMiddleware())

		r.Get("/api/feed", feedHandler.GetFeed)

		r.Route("/api/messages", func(r chi.Router) {
			// 書き込み操作には専用レート制限を追加
			r.With(deps.RateLimiter.WriteMiddleware()).Post("/", feedHandler.PostMessage)

			r.Route("/{id}", func(r chi.Router) {
				r.Get("/thread", feedHandler.GetThread)
				r.With(deps.RateLimiter.WriteMiddleware()).Post("/replies", feedHandler.PostReply)
				r.With(deps.RateLimiter.WriteMiddleware()).Delete("/", feedHandler.DeleteMessage)
			})
		})

		r.Get("/api/subscriptions", feedHandler.GetSubscriptions)
	})

	return r
}
