package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/glebarez/sqlite"
	"github.com/joho/godotenv"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"github.com/shouni/streetview-scene-kit/pkg/config"
	"github.com/shouni/streetview-scene-kit/pkg/credentials"
	"github.com/shouni/streetview-scene-kit/pkg/describe"
	"github.com/shouni/streetview-scene-kit/pkg/pipeline"
	"github.com/shouni/streetview-scene-kit/pkg/quota"
	"github.com/shouni/streetview-scene-kit/pkg/synthesize"
	"github.com/shouni/streetview-scene-kit/pkg/vertexapi"
	"github.com/shouni/streetview-scene-kit/pkg/webapi"
)

const panoramaFetchTimeout = 15 * time.Second

func main() {
	// .env はローカル開発用。無ければ環境変数のみで動きます。
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		slog.Error("設定の読み込みに失敗しました", "error", err)
		os.Exit(1)
	}

	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: logLevel(cfg.LogLevel)}))
	slog.SetDefault(logger)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, logger); err != nil {
		logger.Error("サーバが異常終了しました", "error", err)
		os.Exit(1)
	}
	logger.Info("サーバを停止しました")
}

func run(ctx context.Context, cfg config.Config, logger *slog.Logger) error {
	if cfg.Project == "" {
		return errors.New("SCENEKIT_PROJECT は必須です")
	}
	if cfg.JWTSecret == "" {
		return errors.New("SCENEKIT_JWT_SECRET は必須です")
	}

	db, err := gorm.Open(sqlite.Open(cfg.DatabasePath), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	if err != nil {
		return err
	}

	store, err := quota.NewGormStore(db)
	if err != nil {
		return err
	}
	if err := store.Migrate(ctx); err != nil {
		return err
	}
	limiter, err := quota.NewLimiter(store, time.Duration(cfg.CooldownMinutes)*time.Minute)
	if err != nil {
		return err
	}

	resolver, err := credentials.DefaultResolver(logger)
	if err != nil {
		return err
	}

	vertex, err := vertexapi.NewClient(&http.Client{}, cfg.Project, cfg.Location)
	if err != nil {
		return err
	}

	fetcher, err := describe.NewFetcher(newFetchClient(panoramaFetchTimeout), nil, cfg.MapsAPIKey, cfg.PanoramaSource)
	if err != nil {
		return err
	}
	describer, err := describe.NewStage(fetcher, vertex, cfg.DescribeModel, logger)
	if err != nil {
		return err
	}
	synthesizer, err := synthesize.NewStage(vertex, cfg.SynthesizeModel, logger)
	if err != nil {
		return err
	}

	orchestrator, err := pipeline.NewOrchestrator(limiter, resolver, describer, synthesizer, logger)
	if err != nil {
		return err
	}

	gin.SetMode(gin.ReleaseMode)
	handler, err := webapi.NewHandler(orchestrator, logger)
	if err != nil {
		return err
	}
	router, err := webapi.NewRouter(handler, []byte(cfg.JWTSecret))
	if err != nil {
		return err
	}

	server := &http.Server{
		Addr:              cfg.ListenAddr,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("サーバを起動します", "addr", cfg.ListenAddr)
		errCh <- server.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return server.Shutdown(shutdownCtx)
}

func logLevel(level string) slog.Leveler {
	var lvl slog.Level

	switch strings.ToLower(level) {
	case "debug":
		lvl = slog.LevelDebug
	case "warn":
		lvl = slog.LevelWarn
	case "error":
		lvl = slog.LevelError
	default:
		lvl = slog.LevelInfo
	}

	lv := new(slog.LevelVar)
	lv.Set(lvl)
	return lv
}
