// Package bootstrap 进程启动时的公共装配：配置、日志、数据库、身份存储、事件
package bootstrap

import (
	"context"
	"os"
	"time"

	"github.com/joho/godotenv"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"franchise-crm/internal/core/auth"
	"franchise-crm/internal/core/cache"
	"franchise-crm/internal/core/config"
	"franchise-crm/internal/core/database"
	"franchise-crm/internal/core/logger"
	"franchise-crm/internal/core/mq"
	"franchise-crm/internal/identity"
	"franchise-crm/internal/repo"
	"franchise-crm/internal/service"
)

// MustConfig 读取 .env 与配置文件，必填项缺失直接退出
func MustConfig() *config.Config {
	return mustConfig((*config.Config).Validate)
}

// MustFunctionsConfig 函数服务启动用，缺 service key 直接退出
func MustFunctionsConfig() *config.Config {
	return mustConfig((*config.Config).ValidateFunctions)
}

func mustConfig(validate func(*config.Config) error) *config.Config {
	_ = godotenv.Load()
	cfg := config.Load(os.Getenv("CONFIG_PATH"))
	if err := validate(cfg); err != nil {
		zap.NewExample().Fatal("invalid config", zap.Error(err))
	}
	return cfg
}

// Logger 同时接管标准库 log 的输出
func Logger(cfg *config.Config, service string) (*zap.Logger, func()) {
	r := cfg.Log.Rotate
	l, flush := logger.New(logger.Options{
		Level:   cfg.Log.Level,
		JSON:    cfg.Log.JSON,
		Service: service,
		Rotate: logger.FileRotate{
			Enable:     r.Enable,
			Filename:   r.Filename,
			MaxSizeMB:  r.MaxSizeMB,
			MaxBackups: r.MaxBackups,
			MaxAgeDays: r.MaxAgeDays,
			Compress:   r.Compress,
		},
	})
	undo := logger.RedirectStdLog(l)
	return l, func() {
		undo()
		flush()
	}
}

func MustOpenDB(cfg *config.Config, l *zap.Logger) *gorm.DB {
	db, err := database.NewGorm(database.Opts{
		Driver:             cfg.DB.Driver,
		DSN:                cfg.DB.DSN,
		Username:           cfg.DB.Username,
		Password:           cfg.DB.Password,
		MaxOpenConns:       cfg.DB.MaxOpenConns,
		MaxIdleConns:       cfg.DB.MaxIdleConns,
		ConnMaxLifetimeMin: cfg.DB.ConnMaxLifetimeMin,
		LogLevel:           cfg.DB.LogLevel,
	})
	if err != nil {
		l.Fatal("db open", zap.Error(err))
	}
	l.Info("database connected", zap.String("driver", cfg.DB.Driver))

	if cfg.DB.AutoMigrate {
		var extra []any
		if cfg.Identity.Driver != "gotrue" {
			extra = append(extra, &identity.AccountModel{})
		}
		if err := database.Migrate(db, extra...); err != nil {
			l.Fatal("automigrate failed", zap.Error(err))
		}
		l.Info("automigrate done")
	}
	return db
}

// IdentityStore 按 identity.driver 选择驱动
func IdentityStore(cfg *config.Config, db *gorm.DB) identity.Store {
	if cfg.Identity.Driver == "gotrue" {
		return identity.NewGoTrueStore(cfg.Backend.URL, cfg.Backend.ServiceKey)
	}
	return identity.NewLocalStore(db)
}

func JWT(cfg *config.Config) *auth.JWTer {
	return &auth.JWTer{
		Secret: []byte(cfg.JWT.Secret),
		Issuer: cfg.JWT.Issuer,
		TTL:    time.Duration(cfg.JWT.AccessTokenTTLMin) * time.Minute,
	}
}

// Cache redis 连不上时返回 nil，角色直接查库
func Cache(cfg *config.Config, l *zap.Logger) *cache.Cache {
	if cfg.Redis.Addr == "" {
		return nil
	}
	c := cache.New(cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB)
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if err := c.Ping(ctx); err != nil {
		l.Warn("redis unavailable, role cache disabled", zap.String("addr", cfg.Redis.Addr), zap.Error(err))
		_ = c.Close()
		return nil
	}
	return c
}

// RabbitMQ url 为空或连接失败时返回 nil
func RabbitMQ(cfg *config.Config, l *zap.Logger) *mq.RabbitMQ {
	if cfg.RabbitMQ.URL == "" {
		return nil
	}
	r, err := mq.Dial(cfg.RabbitMQ.URL, cfg.RabbitMQ.Exchange, cfg.RabbitMQ.Queue)
	if err != nil {
		l.Warn("rabbitmq unavailable, events disabled", zap.Error(err))
		return nil
	}
	return r
}

func Publisher(r *mq.RabbitMQ) mq.Publisher {
	if r == nil {
		return mq.Nop{}
	}
	return r
}

// Provisioning 两个进程共用的用户开通装配
type Provisioning struct {
	Identity    identity.Store
	Profiles    *repo.ProfileRepo
	Access      *service.AccessResolver
	Events      *service.EventPublisher
	Provisioner *service.Provisioner
}

func NewProvisioning(cfg *config.Config, db *gorm.DB, c *cache.Cache, pub mq.Publisher, l *zap.Logger) *Provisioning {
	p := &Provisioning{
		Identity: IdentityStore(cfg, db),
		Profiles: repo.NewProfileRepo(db),
		Events:   service.NewEventPublisher(pub, l),
	}
	p.Access = service.NewAccessResolver(p.Profiles, c, time.Duration(cfg.Cache.RoleTTLSec)*time.Second, l)
	p.Provisioner = service.NewProvisioner(p.Identity, p.Profiles, p.Events, p.Access, service.ProvisionerOptions{
		MinPasswordLen:  cfg.Provisioning.MinPasswordLen,
		RollbackTimeout: time.Duration(cfg.Provisioning.RollbackTimeoutSec) * time.Second,
	}, l)
	return p
}
