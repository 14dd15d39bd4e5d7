package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	_ "go.uber.org/automaxprocs"

	"go.uber.org/zap"

	"franchise-crm/internal/bootstrap"
	"franchise-crm/internal/core/mailer"
	"franchise-crm/internal/core/server"
	"franchise-crm/internal/repo"
	"franchise-crm/internal/service"
	"franchise-crm/internal/transport/http/router"
)

func main() {
	cfg := bootstrap.MustConfig()
	log, cleanup := bootstrap.Logger(cfg, "crm-api")
	defer cleanup()

	// 数据库（失败会直接 Fatal）
	db := bootstrap.MustOpenDB(cfg, log)

	// 可选：redis 角色缓存、rabbitmq 事件
	rc := bootstrap.Cache(cfg, log)
	if rc != nil {
		defer rc.Close()
	}
	rmq := bootstrap.RabbitMQ(cfg, log)
	if rmq != nil {
		defer rmq.Close()
	}

	jwter := bootstrap.JWT(cfg)
	prov := bootstrap.NewProvisioning(cfg, db, rc, bootstrap.Publisher(rmq), log)

	// 仓储 + 服务
	leadRepo, historyRepo := repo.NewLeadRepo(db), repo.NewHistoryRepo(db)
	taskRepo, commRepo, settingsRepo := repo.NewTaskRepo(db), repo.NewCommunicationRepo(db), repo.NewSettingsRepo(db)

	leads := service.NewLeadService(leadRepo, historyRepo, taskRepo, commRepo, log)
	deps := router.Deps{
		DB:           db,
		JWT:          jwter,
		Access:       prov.Access,
		Auth:         service.NewAuthService(prov.Identity, prov.Access, jwter, log),
		Provisioner:  prov.Provisioner,
		Profiles:     prov.Profiles,
		Leads:        leads,
		Pipeline:     service.NewPipelineService(leads, historyRepo, prov.Events, log),
		Tasks:        service.NewTaskService(taskRepo, leads, log),
		Comms:        service.NewCommunicationService(commRepo, leads, settingsRepo, mailer.GomailSender{}, log),
		Dashboard:    service.NewDashboardService(leads),
		Import:       service.NewImportService(leads, log),
		Settings:     service.NewSettingsService(settingsRepo),
		AllowOrigins: cfg.App.HTTP.AllowOrigins,
	}
	r := router.NewAPIEngine(log, deps)

	// HTTP Server
	h := cfg.App.HTTP
	addr := server.Addr(h.Host, h.Port)
	srv := server.BuildServer(
		addr, r,
		time.Duration(h.ReadTimeoutSec)*time.Second,
		time.Duration(h.WriteTimeoutSec)*time.Second,
		time.Duration(h.IdleTimeoutSec)*time.Second,
	)

	baseURL := server.HumanURL(h.Host, h.Port)
	log.Info("crm api starting",
		zap.String("addr", addr),
		zap.String("open", baseURL),
		zap.String("health", baseURL+"/health"),
		zap.String("api_v1", baseURL+"/api/v1"),
		zap.String("identity", cfg.Identity.Driver),
		zap.Bool("role_cache", rc != nil),
		zap.Bool("events", rmq != nil),
	)

	// 异步启动
	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal("crm api start FAILED", zap.Error(err))
		}
	}()
	log.Info("crm api started SUCCESS")

	// 优雅关闭
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	_ = srv.Shutdown(ctx)
	log.Info("crm api stopped gracefully")
}
