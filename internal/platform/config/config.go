package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Config 结构体定义了应用程序的所有配置项
// 它与 config.yaml 文件的结构完全对应
type Config struct {
	Server   ServerConfig   `mapstructure:"server"`
	Database DatabaseConfig `mapstructure:"database"`
	Upstream UpstreamConfig `mapstructure:"upstream"`
	Refresh  RefreshConfig  `mapstructure:"refresh"`
	Summary  SummaryConfig  `mapstructure:"summary"`
	Log      LogConfig      `mapstructure:"log"`
}

// ServerConfig 定义了服务器相关的配置
type ServerConfig struct {
	Mode             string          `mapstructure:"mode"`
	Address          string          `mapstructure:"address"`
	Port             int             `mapstructure:"port"`
	Cors             CorsConfig      `mapstructure:"cors"`
	RefreshRateLimit RateLimitConfig `mapstructure:"refreshRateLimit"`
	// TrustedProxies 是允许设置 X-Forwarded-For 的反向代理地址或网段，为空表示直接使用连接的对端地址
	TrustedProxies   []string        `mapstructure:"trustedProxies"`
}

// CorsConfig 定义了CORS相关的配置
type CorsConfig struct {
	AllowedOrigins []string `mapstructure:"allowedOrigins"`
}

// RateLimitConfig 限制每个客户端触发刷新的频率，Burst 为 0 时关闭限流
type RateLimitConfig struct {
	PerMinute int `mapstructure:"perMinute"`
	Burst     int `mapstructure:"burst"`
}

// DatabaseConfig 定义了数据库和缓存相关的配置
type DatabaseConfig struct {
	// URL 以 postgres:// 开头时使用PostgreSQL，否则视为SQLite文件路径
	URL          string      `mapstructure:"url"`
	MaxOpenConns int         `mapstructure:"maxOpenConns"`
	Redis        RedisConfig `mapstructure:"redis"`
}

// RedisConfig 定义了Redis的配置，Address 为空表示不启用缓存
type RedisConfig struct {
	Address  string `mapstructure:"address"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
}

// UpstreamConfig 定义了两个外部数据源
type UpstreamConfig struct {
	CountriesURL string        `mapstructure:"countriesURL"`
	RatesURL     string        `mapstructure:"ratesURL"`
	Timeout      time.Duration `mapstructure:"timeout"`
}

// RefreshConfig 定义了定时刷新，Schedule 为标准cron表达式，为空则只能手动刷新
type RefreshConfig struct {
	Schedule string `mapstructure:"schedule"`
}

// SummaryConfig 定义了摘要图片的输出位置
type SummaryConfig struct {
	Path string `mapstructure:"path"`
}

type LogConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

// ListenAddr 返回 http.Server 使用的监听地址
func (s ServerConfig) ListenAddr() string {
	return fmt.Sprintf("%s:%d", s.Address, s.Port)
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.mode", "release")
	v.SetDefault("server.address", "")
	v.SetDefault("server.port", 8000)
	v.SetDefault("server.cors.allowedOrigins", []string{"*"})
	v.SetDefault("server.refreshRateLimit.perMinute", 6)
	v.SetDefault("server.refreshRateLimit.burst", 2)
	v.SetDefault("server.trustedProxies", []string{})

	v.SetDefault("database.url", "countries.db")
	v.SetDefault("database.maxOpenConns", 10)
	v.SetDefault("database.redis.address", "")
	v.SetDefault("database.redis.password", "")
	v.SetDefault("database.redis.db", 0)

	v.SetDefault("upstream.countriesURL", "https://restcountries.com/v2/all?fields=name,capital,region,population,flag,currencies")
	v.SetDefault("upstream.ratesURL", "https://open.er-api.com/v6/latest/USD")
	v.SetDefault("upstream.timeout", 30*time.Second)

	v.SetDefault("refresh.schedule", "")
	v.SetDefault("summary.path", "cache/summary.png")

	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "console")
}

// LoadConfig 函数负责查找、加载和解析配置文件
// 配置文件是可选的：没有 config.yaml 时完全依赖默认值和环境变量
func LoadConfig() (*Config, error) {
	// .env 不存在不是错误
	_ = godotenv.Load()

	v := viper.New()

	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath("./config")
	v.AddConfigPath(".")

	// 允许通过环境变量覆盖配置，例如 DATABASE_URL、SERVER_PORT
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	// 兼容常见的部署平台直接注入的 PORT
	if err := v.BindEnv("server.port", "SERVER_PORT", "PORT"); err != nil {
		return nil, err
	}
	if err := v.BindEnv("database.url", "DATABASE_URL"); err != nil {
		return nil, err
	}

	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("无法读取配置文件: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("无法解析配置: %w", err)
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) validate() error {
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("无效的端口: %d", c.Server.Port)
	}
	if c.Database.URL == "" {
		return errors.New("database.url 不能为空")
	}
	if c.Upstream.CountriesURL == "" || c.Upstream.RatesURL == "" {
		return errors.New("必须配置两个外部数据源地址")
	}
	if c.Upstream.Timeout <= 0 {
		return fmt.Errorf("无效的上游超时: %v", c.Upstream.Timeout)
	}
	if c.Summary.Path == "" {
		return errors.New("summary.path 不能为空")
	}
	return nil
}
