// Package app はアプリケーションの起動と依存関係のワイヤリングを行う。
package app

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"golang.org/x/time/rate"

	"github.com/hitoshi/passerelle/internal/cache"
	"github.com/hitoshi/passerelle/internal/config"
	"github.com/hitoshi/passerelle/internal/feed"
	"github.com/hitoshi/passerelle/internal/handler"
	"github.com/hitoshi/passerelle/internal/logger"
	"github.com/hitoshi/passerelle/internal/metrics"
	"github.com/hitoshi/passerelle/internal/middleware"
	"github.com/hitoshi/passerelle/internal/notify"
	"github.com/hitoshi/passerelle/internal/security"
	"github.com/hitoshi/passerelle/internal/store"
	"github.com/hitoshi/passerelle/internal/subscription"
)

// Init はアプリケーションの初期化を行う。
// 環境変数からConfigを読み込み、JSON構造化ログをセットアップする。
// writerが指定された場合はログ出力先としてそのwriterを使用する。
func Init(w io.Writer) (*config.Config, error) {
	// ログレベルは設定読み込み前でも参照できるよう環境変数から直接取る
	level := logger.ParseLevel(os.Getenv("LOG_LEVEL"))
	logger.SetupDefault(w, level)

	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}

	return cfg, nil
}

// Run はアプリケーションのメインエントリーポイント。
// コマンドライン引数からサブコマンドを解析し、対応するモードで起動する。
// argsにはos.Args[1:]を渡す。
func Run(w io.Writer, args []string) error {
	cmd := ParseCommand(args)

	// healthcheck は軽量サブコマンドのため、フル初期化をスキップする
	if cmd == CommandHealthcheck {
		port := os.Getenv("SERVER_PORT")
		if port == "" {
			port = "8080"
		}
		return runHealthcheck(port)
	}

	cfg, err := Init(w)
	if err != nil {
		return fmt.Errorf("initialization failed: %w", err)
	}

	slog.Info("starting application",
		slog.String("command", string(cmd)),
		slog.String("port", cfg.ServerPort),
	)

	return runServe(cfg)
}

// runServe はAPIサーバーモードで起動する。
// ストアのベースURLを検証し、全依存関係をワイヤリングし、HTTPサーバーを起動する。
// SIGINTまたはSIGTERMシグナルを受信するとグレースフルシャットダウンを行う。
func runServe(cfg *config.Config) error {
	// 1. ストアURLの検証と安全なHTTPクライアントの生成
	ssrfGuard := security.NewSSRFGuard()
	if err := ssrfGuard.ValidateBaseURL(cfg.StoreBaseURL); err != nil {
		return fmt.Errorf("store base URL rejected: %w", err)
	}

	slog.Info("store base URL validated")

	// 2. メトリクスの初期化
	registry := prometheus.NewRegistry()
	collector := metrics.NewCollector(registry)

	// 3. ストアアダプタとキャッシュの初期化
	storeClient := store.NewClient(
		ssrfGuard.NewSafeClient(cfg.FetchTimeout),
		slog.Default(), collector,
		store.ClientConfig{
			BaseURL:     cfg.StoreBaseURL,
			MaxBodySize: cfg.FetchMaxSize,
			RateLimit:   cfg.StoreRateLimit,
		},
	)
	queryCache := cache.New(storeClient, slog.Default(), collector, cfg.StaleAfter)

	// 4. ドメインサービスの初期化
	subService := subscription.NewService(storeClient, slog.Default())
	publisher := notify.NewPublisher(notify.NewLogNotifier(slog.Default()))
	feedService := feed.NewService(
		storeClient, queryCache, subService,
		security.NewContentSanitizer(), publisher, slog.Default(),
	)

	// 5. ルーターの構築
	rateLimiterCfg := middleware.DefaultRateLimiterConfig()
	if cfg.RateLimitGeneral > 0 {
		// configのRateLimitGeneralはreq/min単位なのでreq/secに変換する
		rateLimiterCfg.GeneralRate = rate.Limit(float64(cfg.RateLimitGeneral) / 60.0)
		rateLimiterCfg.GeneralBurst = cfg.RateLimitGeneral
	}
	rateLimiter := middleware.NewRateLimiter(rateLimiterCfg, slog.Default())
	defer rateLimiter.Stop()

	router := handler.NewRouter(&handler.RouterDeps{
		FeedService:       feedService,
		RateLimiter:       rateLimiter,
		CORSAllowedOrigin: cfg.CORSAllowedOrigin,
		Logger:            slog.Default(),
		MetricsHandler:    metrics.Handler(registry),
	})

	// 6. HTTPサーバーの起動
	server := &http.Server{
		Addr:         ":" + cfg.ServerPort,
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// グレースフルシャットダウンのためのシグナルハンドリング
	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		slog.Info("API server starting",
			slog.String("addr", server.Addr),
		)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			slog.Error("server listen error", slog.String("error", err.Error()))
		}
	}()

	<-stop
	slog.Info("shutting down API server...")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		return fmt.Errorf("server shutdown failed: %w", err)
	}

	slog.Info("API server stopped gracefully")
	return nil
}

// runHealthcheck はヘルスチェックを実行する。
// distroless環境でのDockerヘルスチェック用サブコマンド。
// /health エンドポイントにHTTPリクエストを送り、結果を返す。
func runHealthcheck(port string) error {
	url := fmt.Sprintf("http://localhost:%s/health", port)
	client := &http.Client{Timeout: 5 * time.Second}

	resp, err := client.Get(url)
	if err != nil {
		return fmt.Errorf("health check failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("health check returned status %d", resp.StatusCode)
	}

	return nil
}
