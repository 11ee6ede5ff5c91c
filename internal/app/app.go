// Package app は設定の読み込み、依存関係のワイヤリング、サブコマンドの実行を行う。
package app

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http"
	"net/url"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"

	"github.com/hitoshi/duniaauth/internal/account"
	"github.com/hitoshi/duniaauth/internal/auth"
	"github.com/hitoshi/duniaauth/internal/config"
	"github.com/hitoshi/duniaauth/internal/database"
	"github.com/hitoshi/duniaauth/internal/handler"
	"github.com/hitoshi/duniaauth/internal/logger"
	"github.com/hitoshi/duniaauth/internal/metrics"
	"github.com/hitoshi/duniaauth/internal/repository"
	"github.com/hitoshi/duniaauth/internal/security"
	"github.com/hitoshi/duniaauth/internal/session"
	"github.com/hitoshi/duniaauth/internal/token"
)

const (
	defaultServerPort = "8787"
	dbPingTimeout     = 5 * time.Second
	shutdownTimeout   = 30 * time.Second
)

// Init はアプリケーションの初期化を行う。
// 環境変数からConfigを読み込み、LOG_LEVELに従ってJSON構造化ログをセットアップする。
// writerが指定された場合はログ出力先としてそのwriterを使用する。
func Init(w io.Writer) (*config.Config, error) {
	// 1. ログの初期化（設定読み込み前にログを使えるようにする）
	logger.SetupDefault(w, slog.LevelInfo)

	// 2. 環境変数から設定を読み込む
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}

	// 3. 設定されたログレベルで再初期化
	logger.SetupDefault(w, logger.ParseLevel(cfg.LogLevel))

	return cfg, nil
}

// Run はアプリケーションのメインエントリーポイント。
// コマンドライン引数からサブコマンドを解析し、対応するモードで起動する。
// argsにはos.Args[1:]を渡す。
func Run(w io.Writer, args []string) error {
	cmd := ParseCommand(args)

	// healthcheck は軽量サブコマンドのため、フル初期化をスキップする
	if cmd == CommandHealthcheck {
		config.LoadEnvFile()
		port := os.Getenv("SERVER_PORT")
		if port == "" {
			port = defaultServerPort
		}
		return runHealthcheck(fmt.Sprintf("http://localhost:%s/health", port))
	}

	cfg, err := Init(w)
	if err != nil {
		return fmt.Errorf("initialization failed: %w", err)
	}

	slog.Info("starting application",
		slog.String("command", string(cmd)),
		slog.String("port", cfg.ServerPort),
		slog.String("storage_driver", cfg.StorageDriver),
	)

	switch cmd {
	case CommandMigrate:
		return runMigrate(cfg)
	default:
		ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()
		return runServe(ctx, cfg)
	}
}

// storage はアカウントストアと疎通確認先の組。
type storage struct {
	accounts repository.AccountRepository
	health   repository.HealthChecker
	close    func() error
}

// openStorage はSTORAGE_DRIVERに応じてストレージを開く。
// postgresの場合は接続プールを1つだけ開き、未適用のマイグレーションを適用する。
func openStorage(ctx context.Context, cfg *config.Config) (*storage, error) {
	if cfg.StorageDriver == config.StorageDriverMemory {
		slog.Warn("using in-memory storage; accounts are lost on restart")
		repo := repository.NewMemoryAccountRepo()
		return &storage{accounts: repo, health: repo, close: func() error { return nil }}, nil
	}

	version, err := database.RunMigrations(cfg.DatabaseURL)
	if err != nil {
		return nil, fmt.Errorf("migration failed: %w", err)
	}
	slog.Info("database schema is up to date", slog.Uint64("version", uint64(version)))

	db, err := database.Open(cfg.DatabaseURL)
	if err != nil {
		return nil, err
	}
	if err := database.Ping(ctx, db, dbPingTimeout); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	slog.Info("database connection established")

	return &storage{
		accounts: repository.NewPostgresAccountRepo(db),
		health:   db,
		close:    db.Close,
	}, nil
}

// newRouter は全依存関係をワイヤリングしたHTTPハンドラーを返す。
func newRouter(cfg *config.Config, store *storage, registry *prometheus.Registry) (http.Handler, error) {
	collector := metrics.NewCollector(registry)

	if cfg.JWTSecret == "" {
		slog.Warn("JWT_SECRET is not set; token operations will respond with 500")
	}
	if cfg.CORSAllowedOrigin == "" {
		slog.Warn("CORS_ALLOWED_ORIGIN is not set; any origin is allowed with credentials")
	}

	transport := session.NewTransport(session.Config{
		MaxAge:            cfg.SessionMaxAge,
		Domain:            cfg.CookieDomain,
		TrustProxyHeaders: cfg.TrustProxyHeaders,
	})
	codec := token.NewCodec()
	sanitizer := security.NewProfileSanitizer()
	hasher := security.NewPasswordHasher(cfg.PasswordIterations)

	authService, err := auth.NewService(
		store.accounts, hasher, codec, sanitizer, collector,
		auth.ServiceConfig{Secret: cfg.JWTSecret, TokenTTL: transport.MaxAge()},
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create auth service: %w", err)
	}

	return handler.NewRouter(&handler.RouterDeps{
		Logger:            slog.Default(),
		CORSAllowedOrigin: cfg.CORSAllowedOrigin,
		Metrics:           collector,

		Transport:     transport,
		Authenticator: auth.NewAuthenticator(cfg.JWTSecret, codec, collector),
		AuthService:   authService,

		AccountService: account.NewService(store.accounts, sanitizer),

		HealthChecker:  store.health,
		MetricsHandler: metrics.Handler(registry),
	}), nil
}

func newRegistry() *prometheus.Registry {
	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return registry
}

// runServe はAPIサーバーモードで起動する。
// ストレージを開き、全依存関係をワイヤリングし、HTTPサーバーを起動する。
// ctxがキャンセルされるとグレースフルシャットダウンを行う。
func runServe(ctx context.Context, cfg *config.Config) error {
	store, err := openStorage(ctx, cfg)
	if err != nil {
		return err
	}
	defer store.close()

	router, err := newRouter(cfg, store, newRegistry())
	if err != nil {
		return err
	}

	listener, err := net.Listen("tcp", ":"+cfg.ServerPort)
	if err != nil {
		return fmt.Errorf("failed to listen: %w", err)
	}

	return serve(ctx, listener, router)
}

// serve はlistenerでHTTPサーバーを起動し、ctxのキャンセルまでブロックする。
func serve(ctx context.Context, listener net.Listener, router http.Handler) error {
	server := &http.Server{
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		slog.Info("API server starting", slog.String("addr", listener.Addr().String()))
		if err := server.Serve(listener); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("server listen error: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	slog.Info("shutting down API server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server shutdown failed: %w", err)
	}
	<-errCh

	slog.Info("API server stopped gracefully")
	return nil
}

// runMigrate はデータベースマイグレーションを実行する。
// すべての未適用マイグレーションを順番に適用する。
func runMigrate(cfg *config.Config) error {
	if cfg.StorageDriver != config.StorageDriverPostgres {
		return fmt.Errorf("migrate requires STORAGE_DRIVER=%s", config.StorageDriverPostgres)
	}

	slog.Info("running database migrations",
		slog.String("database_url", maskDatabaseURL(cfg.DatabaseURL)),
	)

	version, err := database.RunMigrations(cfg.DatabaseURL)
	if err != nil {
		return fmt.Errorf("migration failed: %w", err)
	}

	slog.Info("database migrations completed successfully", slog.Uint64("version", uint64(version)))
	return nil
}

// runHealthcheck はヘルスチェックを実行する。
// distroless環境でのDockerヘルスチェック用サブコマンド。
// /health エンドポイントにHTTPリクエストを送り、結果を返す。
func runHealthcheck(healthURL string) error {
	client := &http.Client{Timeout: 5 * time.Second}

	resp, err := client.Get(healthURL)
	if err != nil {
		return fmt.Errorf("health check failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("health check returned status %d", resp.StatusCode)
	}

	return nil
}

// maskDatabaseURL はデータベースURLのパスワードをマスクする。
func maskDatabaseURL(databaseURL string) string {
	u, err := url.Parse(databaseURL)
	if err != nil || u.Host == "" {
		return "***"
	}
	return u.Redacted()
}

var _ repository.HealthChecker = (*sql.DB)(nil)
