package config

import (
	"errors"
	"fmt"
	"log"
	"os"
	"strings"

	"github.com/spf13/viper"
)

type HTTP struct {
	Host            string `mapstructure:"host"`
	Port            int    `mapstructure:"port"`
	ReadTimeoutSec  int    `mapstructure:"read_timeout_sec"`
	WriteTimeoutSec int    `mapstructure:"write_timeout_sec"`
	IdleTimeoutSec  int    `mapstructure:"idle_timeout_sec"`

	// AllowOrigins 为空时 cors 放开全部来源
	AllowOrigins []string `mapstructure:"allow_origins"`
}

type App struct {
	Name      string
	Env       string
	HTTP      HTTP
	Functions HTTP // 用户开通函数服务
}

type Log struct {
	Level  string
	JSON   bool
	Rotate LogRotate
}

type LogRotate struct {
	Enable     bool   `mapstructure:"enable"`
	Filename   string `mapstructure:"filename"`
	MaxSizeMB  int    `mapstructure:"max_size_mb"`
	MaxBackups int    `mapstructure:"max_backups"`
	MaxAgeDays int    `mapstructure:"max_age_days"`
	Compress   bool   `mapstructure:"compress"`
}

type JWT struct {
	Secret            string `mapstructure:"secret"`
	Issuer            string `mapstructure:"issuer"`
	AccessTokenTTLMin int    `mapstructure:"access_token_ttl_min"`
}

type Redis struct {
	Addr     string `mapstructure:"addr"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
}

type DB struct {
	Driver             string `mapstructure:"driver"`
	DSN                string `mapstructure:"dsn"`
	Username           string `mapstructure:"username"`
	Password           string `mapstructure:"password"`
	MaxOpenConns       int    `mapstructure:"max_open_conns"`
	MaxIdleConns       int    `mapstructure:"max_idle_conns"`
	ConnMaxLifetimeMin int    `mapstructure:"conn_max_lifetime_min"`
	AutoMigrate        bool   `mapstructure:"auto_migrate"`
	LogLevel           string `mapstructure:"log_level"`
}

// Backend 托管的身份服务（GoTrue 兼容）
type Backend struct {
	URL        string `mapstructure:"url"`
	ServiceKey string `mapstructure:"service_key"`
}

type Identity struct {
	Driver string `mapstructure:"driver"` // local | gotrue
}

type RabbitMQ struct {
	URL      string `mapstructure:"url"`
	Exchange string `mapstructure:"exchange"`
	Queue    string `mapstructure:"queue"`
}

type Provisioning struct {
	MinPasswordLen     int `mapstructure:"min_password_len"`
	RollbackTimeoutSec int `mapstructure:"rollback_timeout_sec"`
}

type Cache struct {
	RoleTTLSec int `mapstructure:"role_ttl_sec"`
}

type Config struct {
	App          App
	Log          Log
	JWT          JWT
	DB           DB
	Redis        Redis        `mapstructure:"redis"`
	Backend      Backend      `mapstructure:"backend"`
	Identity     Identity     `mapstructure:"identity"`
	RabbitMQ     RabbitMQ     `mapstructure:"rabbitmq"`
	Provisioning Provisioning `mapstructure:"provisioning"`
	Cache        Cache        `mapstructure:"cache"`
}

func Load(path string) *Config {
	c, err := Read(path)
	if err != nil {
		log.Fatalf("%v", err)
	}
	return c
}

// Read 读取 yaml 并叠加 APP_ 前缀环境变量
func Read(path string) (*Config, error) {
	v := viper.New()
	if path == "" {
		path = os.Getenv("CONFIG_PATH")
		if path == "" {
			path = "./configs/config.local.yaml"
		}
	}
	v.SetConfigFile(path)
	v.SetConfigType("yaml")
	v.SetEnvPrefix("APP")
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}
	var c Config
	if err := v.Unmarshal(&c); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}
	return &c, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("app.http.port", 8080)
	v.SetDefault("app.functions.port", 8081)
	v.SetDefault("identity.driver", "local")
	v.SetDefault("provisioning.min_password_len", 8)
	v.SetDefault("provisioning.rollback_timeout_sec", 5)
	v.SetDefault("cache.role_ttl_sec", 60)
	v.SetDefault("rabbitmq.exchange", "ex.crm")
	v.SetDefault("rabbitmq.queue", "q.crm.events")
	v.SetDefault("jwt.access_token_ttl_min", 120)
	// AutomaticEnv 只覆盖已知 key，必填项也要登记
	v.SetDefault("backend.url", "")
	v.SetDefault("backend.service_key", "")
	v.SetDefault("jwt.secret", "")
}

var ErrMissing = errors.New("missing required config")

// Validate 启动前检查必填项
func (c *Config) Validate() error {
	var missing []string
	if strings.TrimSpace(c.JWT.Secret) == "" {
		missing = append(missing, "jwt.secret")
	}
	switch c.Identity.Driver {
	case "gotrue":
		if strings.TrimSpace(c.Backend.URL) == "" {
			missing = append(missing, "backend.url")
		}
		if strings.TrimSpace(c.Backend.ServiceKey) == "" {
			missing = append(missing, "backend.service_key")
		}
	case "local", "":
	default:
		return fmt.Errorf("unknown identity.driver %q", c.Identity.Driver)
	}
	if len(missing) > 0 {
		return fmt.Errorf("%w: %s", ErrMissing, strings.Join(missing, ", "))
	}
	return nil
}

// ValidateFunctions 函数服务额外要求：service key 总是必填，gotrue 驱动还需要 backend.url
func (c *Config) ValidateFunctions() error {
	if err := c.Validate(); err != nil {
		return err
	}
	var missing []string
	if c.Identity.Driver == "gotrue" && strings.TrimSpace(c.Backend.URL) == "" {
		missing = append(missing, "backend.url")
	}
	if strings.TrimSpace(c.Backend.ServiceKey) == "" {
		missing = append(missing, "backend.service_key")
	}
	if len(missing) > 0 {
		return fmt.Errorf("%w: %s", ErrMissing, strings.Join(missing, ", "))
	}
	return nil
}
