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
	Auth      AuthConfig      `mapstructure:"auth"`
	Log       LogConfig       `mapstructure:"log"`
	Catalog   CatalogConfig   `mapstructure:"catalog"`
	Scheduler SchedulerConfig `mapstructure:"scheduler"`
	Export    ExportConfig    `mapstructure:"export"`
}

// ServerConfig HTTP 服务器配置
type ServerConfig struct {
	Port         int             `mapstructure:"port"`
	BodyLimit    int64           `mapstructure:"body_limit"` // 字节
	CORS         CORSConfig      `mapstructure:"cors"`
	RateLimit    RateLimitConfig `mapstructure:"rate_limit"`
	ReadTimeout  time.Duration   `mapstructure:"read_timeout"`
	WriteTimeout time.Duration   `mapstructure:"write_timeout"`
}

// CORSConfig 跨域配置
type CORSConfig struct {
	AllowOrigins []string `mapstructure:"allow_origins"`
}

// RateLimitConfig 写接口限流配置
type RateLimitConfig struct {
	Limit  int           `mapstructure:"limit"`
	Window time.Duration `mapstructure:"window"`
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
	ConnMaxLifetime int    `mapstructure:"conn_max_lifetime"`  // 连接最大生命周期（分钟）
	ConnMaxIdleTime int    `mapstructure:"conn_max_idle_time"` // 空闲连接最大存活时间（分钟）
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

// AuthConfig JWT 认证配置
type AuthConfig struct {
	JWTSecret      string        `mapstructure:"jwt_secret"`
	Issuer         string        `mapstructure:"issuer"`
	AccessTokenTTL time.Duration `mapstructure:"access_token_ttl"`
}

// LogConfig 日志配置
type LogConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

// CatalogConfig 课程目录（수강편람 Excel）抓取配置
type CatalogConfig struct {
	BaseURL      string        `mapstructure:"base_url"`
	ExcelPath    string        `mapstructure:"excel_path"`
	Referer      string        `mapstructure:"referer"`
	UserAgent    string        `mapstructure:"user_agent"`
	Timeout      time.Duration `mapstructure:"timeout"`
	MaxBodyBytes int64         `mapstructure:"max_body_bytes"`
	// StalePolicy 本次抓取中消失的课程如何处理：retain | deactivate
	StalePolicy string `mapstructure:"stale_policy"`
}

// SchedulerConfig 定时刷新配置
type SchedulerConfig struct {
	Enabled      bool          `mapstructure:"enabled"`
	Spec         string        `mapstructure:"spec"`
	RunOnStartup bool          `mapstructure:"run_on_startup"`
	Year         int           `mapstructure:"year"` // 0 表示取运行时的当前年份
	Semesters    []string      `mapstructure:"semesters"`
	RunTimeout   time.Duration `mapstructure:"run_timeout"`
	LockTTL      time.Duration `mapstructure:"lock_ttl"`
}

// ExportConfig 时间表导出配置
type ExportConfig struct {
	Timezone string `mapstructure:"timezone"`
	// SemesterStarts 学期开课日（MM-DD），键为学期名小写
	SemesterStarts map[string]string `mapstructure:"semester_starts"`
	// SemesterWeeks 学期周数，键为学期名小写
	SemesterWeeks map[string]int `mapstructure:"semester_weeks"`
}

// Stale policy 取值
const (
	StalePolicyRetain     = "retain"
	StalePolicyDeactivate = "deactivate"
)

// Load 从配置文件与环境变量加载配置
// 优先级：环境变量 > 配置文件 > 默认值
func Load(path string) (*Config, error) {
	v := viper.New()

	// ── 默认值 ──
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.body_limit", 1<<20)
	v.SetDefault("server.cors.allow_origins", []string{"http://localhost:5173"})
	v.SetDefault("server.rate_limit.limit", 60)
	v.SetDefault("server.rate_limit.window", "1m")
	v.SetDefault("server.read_timeout", "15s")
	v.SetDefault("server.write_timeout", "30s")

	v.SetDefault("db.host", "localhost")
	v.SetDefault("db.port", 5432)
	v.SetDefault("db.name", "sugang")
	v.SetDefault("db.user", "postgres")
	v.SetDefault("db.password", "")
	v.SetDefault("db.sslmode", "disable")
	v.SetDefault("db.timezone", "Asia/Seoul")
	v.SetDefault("db.max_open_conns", 25)
	v.SetDefault("db.max_idle_conns", 10)
	v.SetDefault("db.conn_max_lifetime", 60)
	v.SetDefault("db.conn_max_idle_time", 30)

	v.SetDefault("redis.addr", "localhost:6379")
	v.SetDefault("redis.password", "")
	v.SetDefault("redis.db", 0)

	v.SetDefault("auth.issuer", "sugang-timetable")
	v.SetDefault("auth.access_token_ttl", "1h")

	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")

	v.SetDefault("catalog.base_url", "https://sugang.snu.ac.kr")
	v.SetDefault("catalog.excel_path", "/sugang/cc/cc100InterfaceExcel.action")
	v.SetDefault("catalog.referer", "https://sugang.snu.ac.kr/sugang/cc/cc100InterfaceSrch.action")
	v.SetDefault("catalog.user_agent", "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/141.0.0.0 Safari/537.36")
	v.SetDefault("catalog.timeout", "2m")
	v.SetDefault("catalog.max_body_bytes", 64<<20)
	v.SetDefault("catalog.stale_policy", StalePolicyDeactivate)

	v.SetDefault("scheduler.enabled", true)
	v.SetDefault("scheduler.spec", "@every 1h")
	v.SetDefault("scheduler.run_on_startup", true)
	v.SetDefault("scheduler.year", 0)
	v.SetDefault("scheduler.semesters", []string{"SPRING", "SUMMER", "AUTUMN", "WINTER"})
	v.SetDefault("scheduler.run_timeout", "20m")
	v.SetDefault("scheduler.lock_ttl", "25m")

	v.SetDefault("export.timezone", "Asia/Seoul")
	v.SetDefault("export.semester_starts", map[string]string{
		"spring": "03-02",
		"summer": "06-23",
		"autumn": "09-01",
		"winter": "12-22",
	})
	v.SetDefault("export.semester_weeks", map[string]int{
		"spring": 16,
		"summer": 6,
		"autumn": 16,
		"winter": 6,
	})

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
	v.SetEnvPrefix("SUGANG")
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

	// ── 关键配置校验 ──
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// Validate 校验关键配置项
func (c *Config) Validate() error {
	if c.Auth.JWTSecret == "" {
		return fmt.Errorf("配置校验失败: auth.jwt_secret 不能为空")
	}
	if len(c.Auth.JWTSecret) < 16 {
		return fmt.Errorf("配置校验失败: auth.jwt_secret 长度不能少于 16 字符")
	}
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("配置校验失败: server.port 必须在 1-65535 之间")
	}
	if c.Catalog.BaseURL == "" || c.Catalog.ExcelPath == "" {
		return fmt.Errorf("配置校验失败: catalog.base_url 与 catalog.excel_path 不能为空")
	}
	switch c.Catalog.StalePolicy {
	case StalePolicyRetain, StalePolicyDeactivate:
	default:
		return fmt.Errorf("配置校验失败: catalog.stale_policy 只能为 retain 或 deactivate，实际 %q", c.Catalog.StalePolicy)
	}
	if c.Scheduler.Enabled && len(c.Scheduler.Semesters) == 0 {
		return fmt.Errorf("配置校验失败: scheduler.semesters 不能为空")
	}
	if c.Scheduler.LockTTL > 0 && c.Scheduler.LockTTL < c.Scheduler.RunTimeout {
		return fmt.Errorf("配置校验失败: scheduler.lock_ttl (%s) 不能短于 scheduler.run_timeout (%s)",
			c.Scheduler.LockTTL, c.Scheduler.RunTimeout)
	}
	return nil
}
