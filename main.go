package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/robfig/cron/v3"

	"github.com/fleet-health/backend/internal/config"
	"github.com/fleet-health/backend/internal/db"
	"github.com/fleet-health/backend/internal/handler"
	"github.com/fleet-health/backend/internal/metrics"
	"github.com/fleet-health/backend/internal/service"
)

func main() {
	// .env가 있으면 로드 (로컬 개발용, 없어도 무시)
	_ = godotenv.Load()

	cfg := config.Load()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// PostgreSQL 연결 및 스키마 준비
	pool, err := db.NewPostgresPool(ctx, cfg.Postgres)
	if err != nil {
		log.Fatalf("Failed to connect to postgres: %v", err)
	}
	defer pool.Close()

	database := &db.Postgres{Pool: pool}
	if err := database.EnsureSchema(ctx); err != nil {
		log.Fatalf("Failed to ensure schema: %v", err)
	}

	// 메트릭 레지스트리 (전역 카운터 대신 주입형 싱크)
	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	sink := metrics.NewSink(registry)

	// 서비스 레이어 구성
	builder := service.NewHistoryBuilder(database, database, sink)
	historyService := service.NewHistoryService(database, database, database)
	slaService := service.NewSlaService(database, database, database, sink)
	windowService := service.NewWindowService(database)
	retentionService := service.NewRetentionService(database, cfg.Jobs.RetentionDays, sink)
	snapshotService := service.NewSnapshotService(slaService, database, database, database)
	authService := service.NewAuthService(cfg.Auth.JWTSecret)
	if authService == nil {
		log.Printf("JWT_SECRET not set - deployment window mutations are unprotected")
	}

	// 핸들러 레이어 구성
	observationHandler := handler.NewObservationHandler(builder, historyService)
	historyHandler := handler.NewHistoryHandler(historyService, cfg.History.DefaultWindowDays)
	slaHandler := handler.NewSlaHandler(slaService, snapshotService, cfg.History.DefaultWindowDays)
	windowHandler := handler.NewWindowHandler(windowService, cfg.History.DefaultWindowDays)

	router := gin.Default()
	if cfg.Server.AllowedOrigins != "" {
		router.Use(handler.CORSMiddleware(strings.Split(cfg.Server.AllowedOrigins, ",")))
	}

	router.GET("/", handler.Root)
	router.GET("/ping", handler.Ping)
	router.GET("/metrics", gin.WrapH(promhttp.HandlerFor(registry, promhttp.HandlerOpts{})))

	api := router.Group("/api")
	{
		api.POST("/observations", observationHandler.Ingest)
		api.GET("/environments/:env/states", observationHandler.CurrentStates)
		api.GET("/environments/:env/history", historyHandler.History)
		api.GET("/environments/:env/sla", slaHandler.Sla)
		api.GET("/environments/:env/sla-snapshots", slaHandler.Snapshots)
		api.GET("/environments/:env/deployment-windows", windowHandler.List)
		api.GET("/deployment-windows/:id", windowHandler.Get)

		mutations := api.Group("/deployment-windows")
		mutations.Use(handler.AuthMiddleware(authService))
		{
			mutations.POST("", windowHandler.Create)
			mutations.PUT("/:id", windowHandler.Update)
			mutations.DELETE("/:id", windowHandler.Delete)
		}
	}

	// 백그라운드 잡 스케줄링 (SLA 스냅샷, 보존 정책)
	scheduler := cron.New()
	if _, err := scheduler.AddFunc(cfg.Jobs.SnapshotCron, func() {
		if err := snapshotService.RunOnce(ctx); err != nil {
			log.Printf("[SlaSnapshot] Job failed: %v", err)
		}
	}); err != nil {
		log.Fatalf("Invalid SLA_SNAPSHOT_CRON: %v", err)
	}
	if _, err := scheduler.AddFunc(cfg.Jobs.RetentionCron, func() {
		if err := retentionService.RunOnce(ctx); err != nil {
			log.Printf("[Retention] Job failed: %v", err)
		}
	}); err != nil {
		log.Fatalf("Invalid RETENTION_CRON: %v", err)
	}
	scheduler.Start()
	defer scheduler.Stop()

	server := &http.Server{
		Addr:    ":" + cfg.Server.Port,
		Handler: router,
	}

	go func() {
		log.Printf("Listening on %s", server.Addr)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("Server error: %v", err)
		}
	}()

	<-ctx.Done()
	log.Printf("Shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Printf("Shutdown error: %v", err)
	}
}
