package config

import (
	"encoding/json"
	"fmt"
	"os"
	"sync"

	"github.com/sirupsen/logrus"
)

// Config 应用配置
type Config struct {
	Server    ServerConfig    `json:"server"`
	Database  DatabaseConfig  `json:"database"`
	Consul    ConsulConfig    `json:"consul"`
	Jaeger    JaegerConfig    `json:"jaeger"`
	Log       LogConfig       `json:"log"`
	Auth      AuthConfig      `json:"auth"`
	SMTP      SMTPConfig      `json:"smtp"`
	Upload    UploadConfig    `json:"upload"`
	RateLimit RateLimitConfig `json:"rate_limit"`
}

// ServerConfig 服务配置
type ServerConfig struct {
	Name     string `json:"name"`      // 服务名称
	Host     string `json:"host"`      // 服务地址
	HTTPPort int    `json:"http_port"` // HTTP端口
}

// DatabaseConfig 数据库配置
type DatabaseConfig struct {
	Driver   string `json:"driver"`   // 数据库驱动
	Host     string `json:"host"`     // 数据库地址
	Port     int    `json:"port"`     // 数据库端口
	User     string `json:"user"`     // 用户名
	Password string `json:"password"` // 密码
	Database string `json:"database"` // 数据库名
	MaxIdle  int    `json:"max_idle"` // 最大空闲连接
	MaxOpen  int    `json:"max_open"` // 最大打开连接
}

// ConsulConfig Consul配置
type ConsulConfig struct {
	Host string `json:"host"`
	Port int    `json:"port"`
}

// JaegerConfig Jaeger配置
type JaegerConfig struct {
	Endpoint string  `json:"endpoint"`
	Sampler  float64 `json:"sampler"` // 采样率 0.0-1.0
}

// LogConfig 日志配置
type LogConfig struct {
	Level  string `json:"level"`  // debug, info, warn, error
	Format string `json:"format"` // json, text
	Output string `json:"output"` // stdout, file
	Path   string `json:"path"`   // 日志文件路径
}

// AuthConfig 鉴权配置
type AuthConfig struct {
	Enabled        bool     `json:"enabled"`          // 是否开启 JWT 鉴权
	JWTSecret      string   `json:"jwt_secret"`       // HS256 密钥
	Issuer         string   `json:"issuer"`           // iss
	Audience       string   `json:"audience"`         // aud
	TokenTTLHours  int      `json:"token_ttl_hours"`  // access token 有效期（小时）
	PublicPaths    []string `json:"public_paths"`     // 免鉴权路径前缀
	SetupSecretKey string   `json:"setup_secret_key"` // 初始化 super-admin 的一次性口令
}

// SMTPConfig 邮件网关配置（Host 为空则降级为日志输出）
type SMTPConfig struct {
	Host     string `json:"host"`
	Port     int    `json:"port"`
	User     string `json:"user"`
	Password string `json:"password"`
	From     string `json:"from"`
}

// UploadConfig 申请材料上传配置
type UploadConfig struct {
	Dir string `json:"dir"` // 文件落盘根目录
}

// RateLimitConfig 入口限流配置
type RateLimitConfig struct {
	Enabled       bool   `json:"enabled"`
	Strategy      string `json:"strategy"`       // token_bucket 或 sliding_window
	Capacity      int64  `json:"capacity"`       // 桶容量 / 窗口内最大请求数
	RefillRate    int64  `json:"refill_rate"`    // 每秒补充令牌数（令牌桶）
	WindowSeconds int    `json:"window_seconds"` // 窗口长度（滑动窗口）
}

var (
	globalConfig *Config
	configOnce   sync.Once
)

// LoadConfig 加载配置
func LoadConfig(configPath string) (*Config, error) {
	var err error
	configOnce.Do(func() {
		globalConfig = &Config{}
		// 如果配置文件不存在，使用默认配置
		if _, err = os.Stat(configPath); os.IsNotExist(err) {
			logrus.Warnf("Config file not found: %s, using default config", configPath)
			globalConfig = defaultConfig()
			err = nil
			return
		}

		data, readErr := os.ReadFile(configPath)
		if readErr != nil {
			err = fmt.Errorf("failed to read config file: %w", readErr)
			return
		}

		if unmarshalErr := json.Unmarshal(data, globalConfig); unmarshalErr != nil {
			err = fmt.Errorf("failed to parse config file: %w", unmarshalErr)
			return
		}
	})

	if err != nil {
		return nil, err
	}

	return globalConfig, nil
}

// GetConfig 获取全局配置
func GetConfig() *Config {
	if globalConfig == nil {
		return defaultConfig()
	}
	return globalConfig
}

// defaultConfig 默认配置（开发环境）
func defaultConfig() *Config {
	return &Config{
		Server: ServerConfig{
			Name:     "ax-server",
			Host:     "0.0.0.0",
			HTTPPort: 8080,
		},
		Database: DatabaseConfig{
			Driver:   "mysql",
			Host:     "localhost",
			Port:     3306,
			User:     "root",
			Password: "root",
			Database: "ax_server",
			MaxIdle:  10,
			MaxOpen:  100,
		},
		Consul: ConsulConfig{
			Host: "localhost",
			Port: 8500,
		},
		Jaeger: JaegerConfig{
			Endpoint: "http://localhost:14268/api/traces",
			Sampler:  1.0,
		},
		Log: LogConfig{
			Level:  "debug",
			Format: "text",
			Output: "stdout",
			Path:   "logs/app.log",
		},
		Auth: AuthConfig{
			Enabled:       true,
			JWTSecret:     "dev-secret-change-me",
			Issuer:        "ax-server",
			Audience:      "ax-server",
			TokenTTLHours: 24,
			PublicPaths: []string{
				"/healthz",
				"/auth/admin/login",
				"/auth/driver/login",
				"/auth/password/forgot",
				"/auth/password/reset",
				"/auth/setup",
				"/drivers/apply",
			},
		},
		Upload: UploadConfig{
			Dir: "uploads",
		},
		RateLimit: RateLimitConfig{
			Enabled:       true,
			Strategy:      "token_bucket",
			Capacity:      200,
			RefillRate:    100,
			WindowSeconds: 1,
		},
	}
}
