package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// ==================== 配置结构 ====================

// Config 应用配置
type Config struct {
	Server   ServerConfig   `mapstructure:"server"`
	Log      LogConfig      `mapstructure:"log"`
	Database DatabaseConfig `mapstructure:"database"`
	State    StateConfig    `mapstructure:"state"`
	Redis    RedisConfig    `mapstructure:"redis"`
	AI       AIConfig       `mapstructure:"ai"`
	Checkout CheckoutConfig `mapstructure:"checkout"`
	Locale   LocaleConfig   `mapstructure:"locale"`
	Toast    ToastConfig    `mapstructure:"toast"`
	Admin    AdminConfig    `mapstructure:"admin"`
	JWT      JWTConfig      `mapstructure:"jwt"`
	Storage  StorageConfig  `mapstructure:"storage"`
	Tasks    TasksConfig    `mapstructure:"tasks"`
	Limit    LimitConfig    `mapstructure:"ratelimit"`
}

type ServerConfig struct {
	Port            string        `mapstructure:"port"`
	Mode            string        `mapstructure:"mode"` // debug | release | test
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`
	AllowOrigins    []string      `mapstructure:"allow_origins"`
}

type LogConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

type DatabaseConfig struct {
	Driver string `mapstructure:"driver"` // sqlite | postgres
	DSN    string `mapstructure:"dsn"`
}

// StateConfig 购物状态持久化后端
type StateConfig struct {
	Backend string        `mapstructure:"backend"` // database | redis
	TTL     time.Duration `mapstructure:"ttl"`     // 仅 redis 生效，0 表示不过期
}

type RedisConfig struct {
	Addr     string `mapstructure:"addr"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
}

type AIConfig struct {
	APIKey    string        `mapstructure:"api_key"`
	Model     string        `mapstructure:"model"`
	Transport string        `mapstructure:"transport"` // sdk | rest
	BaseURL   string        `mapstructure:"base_url"`
	Timeout   time.Duration `mapstructure:"timeout"`
}

type CheckoutConfig struct {
	Delay time.Duration `mapstructure:"delay"`
}

type LocaleConfig struct {
	ExchangeRate float64 `mapstructure:"exchange_rate"`
}

type ToastConfig struct {
	TTL time.Duration `mapstructure:"ttl"`
}

type AdminConfig struct {
	Username     string `mapstructure:"username"`
	PasswordHash string `mapstructure:"password_hash"`
}

type JWTConfig struct {
	Secret string        `mapstructure:"secret"`
	TTL    time.Duration `mapstructure:"ttl"`
	Issuer string        `mapstructure:"issuer"`
}

type StorageConfig struct {
	Provider  string `mapstructure:"provider"` // local | s3
	LocalDir  string `mapstructure:"local_dir"`
	BaseURL   string `mapstructure:"base_url"`
	Bucket    string `mapstructure:"bucket"`
	Region    string `mapstructure:"region"`
	AccessKey string `mapstructure:"access_key"`
	SecretKey string `mapstructure:"secret_key"`
	Endpoint  string `mapstructure:"endpoint"`
	CDNDomain string `mapstructure:"cdn_domain"`
	BasePath  string `mapstructure:"base_path"`
}

// LimitConfig 冷却间隔，0 表示不限流
type LimitConfig struct {
	ChatInterval  time.Duration `mapstructure:"chat_interval"`
	LoginInterval time.Duration `mapstructure:"login_interval"`
}

type TasksConfig struct {
	CouponEnabled       bool   `mapstructure:"coupon_enabled"`
	CouponSweepCron     string `mapstructure:"coupon_sweep_cron"`
	LogRetentionEnabled bool   `mapstructure:"log_retention_enabled"`
	LogRetentionCron    string `mapstructure:"log_retention_cron"`
	LogRetentionDays    int    `mapstructure:"log_retention_days"`

	SessionSweepEnabled bool          `mapstructure:"session_sweep_enabled"`
	SessionSweepCron    string        `mapstructure:"session_sweep_cron"`
	SessionIdleTTL      time.Duration `mapstructure:"session_idle_ttl"`
}

// ==================== 加载 ====================

// SetDefaults 注册全部默认值
func SetDefaults(v *viper.Viper) {
	v.SetDefault("server.port", "8080")
	v.SetDefault("server.mode", "release")
	v.SetDefault("server.shutdown_timeout", 30*time.Second)
	v.SetDefault("server.allow_origins", []string{"*"})

	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")

	v.SetDefault("database.driver", "sqlite")
	v.SetDefault("database.dsn", "lumina.db")

	v.SetDefault("state.backend", "database")
	v.SetDefault("state.ttl", 30*24*time.Hour)

	v.SetDefault("redis.addr", "localhost:6379")
	v.SetDefault("redis.db", 0)

	v.SetDefault("ai.model", "gemini-3-flash-preview")
	v.SetDefault("ai.transport", "sdk")
	v.SetDefault("ai.base_url", "https://generativelanguage.googleapis.com")
	v.SetDefault("ai.timeout", 60*time.Second)

	v.SetDefault("checkout.delay", 2*time.Second)
	v.SetDefault("locale.exchange_rate", 50.0)
	v.SetDefault("toast.ttl", 3*time.Second)

	v.SetDefault("admin.username", "admin")
	v.SetDefault("jwt.ttl", 2*time.Hour)
	v.SetDefault("jwt.issuer", "lumina-shop")

	v.SetDefault("storage.provider", "local")
	v.SetDefault("storage.local_dir", "./uploads")
	v.SetDefault("storage.base_url", "http://localhost:8080/uploads")
	v.SetDefault("storage.base_path", "lumina")

	v.SetDefault("ratelimit.chat_interval", time.Second)
	v.SetDefault("ratelimit.login_interval", 3*time.Second)

	// 秒级 cron: 每小时整点
	v.SetDefault("tasks.coupon_sweep_cron", "0 0 * * * *")
	v.SetDefault("tasks.coupon_enabled", true)
	v.SetDefault("tasks.log_retention_enabled", true)
	v.SetDefault("tasks.session_sweep_enabled", true)
	v.SetDefault("tasks.session_sweep_cron", "0 */10 * * * *")
	v.SetDefault("tasks.session_idle_ttl", 2*time.Hour)
	v.SetDefault("tasks.log_retention_cron", "0 30 3 * * *")
	v.SetDefault("tasks.log_retention_days", 30)
}

// Load 读取配置文件与环境变量
// 查找顺序: 显式路径 > ./config.yaml > ./config/config.yaml；环境变量 LUMINA_SERVER_PORT 覆盖 server.port
func Load(path string) (*Config, error) {
	v := viper.New()
	SetDefaults(v)

	v.SetEnvPrefix("LUMINA")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// 兼容通用的 GEMINI_API_KEY
	if err := v.BindEnv("ai.api_key", "LUMINA_AI_API_KEY", "GEMINI_API_KEY"); err != nil {
		return nil, err
	}

	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath("./config")
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) || path != "" {
			return nil, fmt.Errorf("读取配置文件失败: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("解析配置失败: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate 校验枚举类配置
func (c *Config) Validate() error {
	switch c.Database.Driver {
	case "sqlite", "postgres":
	default:
		return fmt.Errorf("不支持的数据库驱动: %s", c.Database.Driver)
	}
	switch c.State.Backend {
	case "database", "redis":
	default:
		return fmt.Errorf("不支持的状态存储后端: %s", c.State.Backend)
	}
	switch c.AI.Transport {
	case "sdk", "rest":
	default:
		return fmt.Errorf("不支持的 AI 传输方式: %s", c.AI.Transport)
	}
	if c.Locale.ExchangeRate <= 0 {
		return fmt.Errorf("汇率必须为正数: %v", c.Locale.ExchangeRate)
	}
	return nil
}
