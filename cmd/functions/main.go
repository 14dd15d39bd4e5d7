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
	"franchise-crm/internal/core/mq"
	"franchise-crm/internal/core/server"
	"franchise-crm/internal/transport/http/router"
)

func main() {
	cfg := bootstrap.MustFunctionsConfig()
	log, cleanup := bootstrap.Logger(cfg, "crm-functions")
	defer cleanup()

	db := bootstrap.MustOpenDB(cfg, log)
	rc := bootstrap.Cache(cfg, log)
	if rc != nil {
		defer rc.Close()
	}
	rmq := bootstrap.RabbitMQ(cfg, log)
	if rmq != nil {
		defer rmq.Close()
	}

	prov := bootstrap.NewProvisioning(cfg, db, rc, bootstrap.Publisher(rmq), log)
	r := router.NewFunctionsEngine(log, router.FunctionDeps{
		Provisioner: prov.Provisioner,
		JWT:         bootstrap.JWT(cfg),
		Access:      prov.Access,
		ServiceKey:  cfg.Backend.ServiceKey,
	})

	h := cfg.App.Functions
	addr := server.Addr(h.Host, h.Port)
	srv := server.BuildServer(
		addr, r,
		time.Duration(h.ReadTimeoutSec)*time.Second,
		time.Duration(h.WriteTimeoutSec)*time.Second,
		time.Duration(h.IdleTimeoutSec)*time.Second,
	)

	baseURL := server.HumanURL(h.Host, h.Port)
	log.Info("crm functions starting",
		zap.String("addr", addr),
		zap.String("health", baseURL+"/health"),
		zap.String("functions_v1", baseURL+"/functions/v1"),
	)

	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal("crm functions start FAILED", zap.Error(err))
		}
	}()
	log.Info("crm functions started SUCCESS")

	// 事件审计：把用户/阶段事件写进日志
	ctx, stop := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		defer close(done)
		if rmq == nil {
			return
		}
		audit := log.Named("audit")
		err := rmq.Consume(ctx, log, func(_ context.Context, e mq.Envelope) error {
			audit.Info("event",
				zap.String("type", e.Type),
				zap.Time("occurred_at", e.OccurredAt),
				zap.ByteString("payload", e.Payload),
			)
			return nil
		})
		if err != nil {
			log.Error("event consumer stopped", zap.Error(err))
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	stop()
	<-done

	sctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	_ = srv.Shutdown(sctx)
	log.Info("crm functions stopped gracefully")
}
