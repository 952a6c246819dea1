package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config 应用全局配置结构体
type Config struct {
	Server    ServerConfig    `mapstructure:"server"`
	Database  DatabaseConfig  `mapstructure:"db"`
	Redis     RedisConfig     `mapstructure:"redis"`
	Log       LogConfig       `mapstructure:"log"`
	Schedule  ScheduleConfig  `mapstructure:"schedule"`
	Cache     CacheConfig     `mapstructure:"cache"`
	Job       JobConfig       `mapstructure:"job"`
	RateLimit RateLimitConfig `mapstructure:"rate_limit"`
}

// ServerConfig HTTP 服务器配置
type ServerConfig struct {
	Port         int        `mapstructure:"port"`
	BaseURL      string     `mapstructure:"base_url"`
	MaxBodyBytes int64      `mapstructure:"max_body_bytes"`
	CORS         CORSConfig `mapstructure:"cors"`
}

// CORSConfig 跨域配置
type CORSConfig struct {
	AllowOrigins []string `mapstructure:"allow_origins"`
}

// DatabaseConfig PostgreSQL 数据库配置
type DatabaseConfig struct {
	Host            string `mapstructure:"host"`
	Port            int    `mapstructure:"port"`
	Name            string `mapstructure:"name"`
	User            string `mapstructure:"user"`
	Password        string `mapstructure:"password"`
	SSLMode         string `mapstructure:"sslmode"`
	Timezone        string `mapstructure:"timezone"`
	MaxOpenConns    int    `mapstructure:"max_open_conns"`
	MaxIdleConns    int    `mapstructure:"max_idle_conns"`
	ConnMaxLifetime int    `mapstructure:"conn_max_lifetime"`  // 分钟
	ConnMaxIdleTime int    `mapstructure:"conn_max_idle_time"` // 分钟
}

// DSN 生成 PostgreSQL 连接字符串
func (c *DatabaseConfig) DSN() string {
	return fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s TimeZone=%s",
		c.Host, c.Port, c.User, c.Password, c.Name, c.SSLMode, c.Timezone,
	)
}

// RedisConfig Redis 配置
type RedisConfig struct {
	Addr     string `mapstructure:"addr"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
}

// LogConfig 日志配置
type LogConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

// ScheduleConfig 日程计算配置
type ScheduleConfig struct {
	// Timezone 所有「某一天」的判定都在这个固定时区下进行
	Timezone        string `mapstructure:"timezone"`
	QuestCap        int    `mapstructure:"quest_cap"`
	PreviewCap      int    `mapstructure:"preview_cap"`
	DuplicatePolicy string `mapstructure:"duplicate_policy"` // count_each | dedupe_date | dedupe_slot
}

// CacheConfig 缓存配置
type CacheConfig struct {
	AchievementTTL time.Duration `mapstructure:"achievement_ttl"`
}

// JobConfig 定时任务配置
type JobConfig struct {
	SnapshotEnabled bool   `mapstructure:"snapshot_enabled"`
	SnapshotCron    string `mapstructure:"snapshot_cron"`
}

// RateLimitConfig 接口限流配置
type RateLimitConfig struct {
	Enabled bool          `mapstructure:"enabled"`
	Limit   int           `mapstructure:"limit"`
	Window  time.Duration `mapstructure:"window"`
}

var duplicatePolicies = map[string]bool{"count_each": true, "dedupe_date": true, "dedupe_slot": true}

// Load 从配置文件与环境变量加载配置
// 优先级：环境变量 > 配置文件 > 默认值
func Load(path string) (*Config, error) {
	v := viper.New()

	// ── 默认值 ──
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.base_url", "http://localhost:8080")
	v.SetDefault("server.max_body_bytes", 2<<20)
	v.SetDefault("server.cors.allow_origins", []string{"http://localhost:5173"})

	v.SetDefault("db.host", "localhost")
	v.SetDefault("db.port", 5432)
	v.SetDefault("db.name", "doany")
	v.SetDefault("db.user", "postgres")
	v.SetDefault("db.password", "")
	v.SetDefault("db.sslmode", "disable")
	v.SetDefault("db.timezone", "Asia/Shanghai")
	v.SetDefault("db.max_open_conns", 25)
	v.SetDefault("db.max_idle_conns", 10)
	v.SetDefault("db.conn_max_lifetime", 60)
	v.SetDefault("db.conn_max_idle_time", 30)

	v.SetDefault("redis.addr", "localhost:6379")
	v.SetDefault("redis.password", "")
	v.SetDefault("redis.db", 0)

	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")

	v.SetDefault("schedule.timezone", "Asia/Shanghai")
	v.SetDefault("schedule.quest_cap", 100)
	v.SetDefault("schedule.preview_cap", 100)
	v.SetDefault("schedule.duplicate_policy", "count_each")

	v.SetDefault("cache.achievement_ttl", "10m")

	v.SetDefault("job.snapshot_enabled", false)
	v.SetDefault("job.snapshot_cron", "5 0 * * *")

	v.SetDefault("rate_limit.enabled", true)
	v.SetDefault("rate_limit.limit", 120)
	v.SetDefault("rate_limit.window", "1m")

	// ── 配置文件 ──
	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath("./config")
		v.AddConfigPath(".")
	}

	// ── 环境变量 ──
	v.SetEnvPrefix("DOANY")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("读取配置文件失败: %w", err)
		}
		// 配置文件不存在时仅依赖默认值和环境变量
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

// Validate 校验关键配置项
func (c *Config) Validate() error {
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("配置校验失败: server.port 必须在 1-65535 之间")
	}
	if _, err := time.LoadLocation(c.Schedule.Timezone); err != nil || c.Schedule.Timezone == "" {
		return fmt.Errorf("配置校验失败: schedule.timezone 无效: %q", c.Schedule.Timezone)
	}
	if c.Schedule.QuestCap <= 0 {
		return fmt.Errorf("配置校验失败: schedule.quest_cap 必须大于 0")
	}
	if c.Schedule.PreviewCap <= 0 {
		return fmt.Errorf("配置校验失败: schedule.preview_cap 必须大于 0")
	}
	if !duplicatePolicies[c.Schedule.DuplicatePolicy] {
		return fmt.Errorf("配置校验失败: schedule.duplicate_policy 无效: %q", c.Schedule.DuplicatePolicy)
	}
	if c.RateLimit.Enabled && (c.RateLimit.Limit <= 0 || c.RateLimit.Window <= 0) {
		return fmt.Errorf("配置校验失败: rate_limit.limit 与 rate_limit.window 必须大于 0")
	}
	return nil
}
