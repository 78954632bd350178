package config

import (
	"encoding/json"
	"log"
	"os"
	"strings"
)

type Config struct {
	Server   ServerConfig   `json:"server"`
	Database DatabaseConfig `json:"database"`
	Redis    RedisConfig    `json:"redis"`
	Kafka    KafkaConfig    `json:"kafka"`
	Auth     AuthConfig     `json:"auth"`
	World    WorldConfig    `json:"world"`
	Chat     ChatConfig     `json:"chat"`
}

type ServerConfig struct {
	Addr           string   `json:"addr"`
	AllowedOrigins []string `json:"allowed_origins"`
}

type DatabaseConfig struct {
	DSN string `json:"dsn"`
}

// RedisConfig 用于配置 Redis 连接
type RedisConfig struct {
	Enabled  bool   `json:"enabled"`
	Addr     string `json:"addr"`
	Password string `json:"password"` // 密码，没有则留空
	DB       int    `json:"db"`       // 数据库编号
	PoolSize int    `json:"pool_size"`
}

type KafkaConfig struct {
	Enabled   bool     `json:"enabled"`
	Brokers   []string `json:"brokers"`
	Topic     string   `json:"topic"`    // 房间事件 topic
	GroupID   string   `json:"group_id"` // 消费者组
	Username  string   `json:"username"`
	Password  string   `json:"password"`
	SCRAMMech string   `json:"scram_mechanism"` // SCRAM-SHA-256 / SCRAM-SHA-512，空则 PLAIN
	UseTLS    bool     `json:"use_tls"`
	CertFile  string   `json:"cert_file"`
	KeyFile   string   `json:"key_file"`
	CAFile    string   `json:"ca_file"`
}

type AuthConfig struct {
	JWTSecret     string `json:"jwt_secret"`
	TokenExpiry   int    `json:"token_expiry"`   // in hours
	RefreshExpiry int    `json:"refresh_expiry"` // in hours
}

// WorldConfig 世界边界，移动坐标会被收敛到 [padding, 尺寸-padding]
type WorldConfig struct {
	Width   float64 `json:"width"`
	Height  float64 `json:"height"`
	Padding float64 `json:"padding"`
}

type ChatConfig struct {
	RoomTTLHours    int `json:"room_ttl_hours"`     // 房间/消息过期时间
	HistoryLimit    int `json:"history_limit"`      // 加入时返回的历史消息条数
	SearchLimit     int `json:"search_limit"`       // 搜索结果上限
	MessageRate     int `json:"message_rate"`       // 每窗口允许的消息数，0 表示不限流
	RateWindowSecs  int `json:"rate_window_secs"`   // 限流窗口（秒）
	CleanupInterval int `json:"cleanup_interval_m"` // 过期清理周期（分钟）
}

func LoadConfig() (config Config, err error) {
	path := os.Getenv("OASIS_CONFIG")
	if path == "" {
		path = "config/config.json"
	}
	file, err := os.Open(path)
	if err != nil {
		return config, err
	}
	defer func(file *os.File) {
		closeErr := file.Close()
		if closeErr != nil {
			log.Printf("Error closing config file: %v", closeErr)
		}
	}(file)
	decoder := json.NewDecoder(file)
	err = decoder.Decode(&config)
	if err != nil {
		return config, err
	}
	config.applyEnv()
	config.ApplyDefaults()
	return config, nil
}

// applyEnv 环境变量覆盖敏感配置（配合 .env）
func (c *Config) applyEnv() {
	if v := os.Getenv("OASIS_DB_DSN"); v != "" {
		c.Database.DSN = v
	}
	if v := os.Getenv("OASIS_JWT_SECRET"); v != "" {
		c.Auth.JWTSecret = v
	}
	if v := os.Getenv("OASIS_REDIS_ADDR"); v != "" {
		c.Redis.Addr = v
		c.Redis.Enabled = true
	}
	if v := os.Getenv("OASIS_REDIS_PASSWORD"); v != "" {
		c.Redis.Password = v
	}
	if v := os.Getenv("OASIS_KAFKA_BROKERS"); v != "" {
		c.Kafka.Brokers = strings.Split(v, ",")
		c.Kafka.Enabled = true
	}
}

func (c *Config) ApplyDefaults() {
	if c.Server.Addr == "" {
		c.Server.Addr = ":8080"
	}
	if c.Auth.TokenExpiry == 0 {
		c.Auth.TokenExpiry = 24
	}
	if c.Auth.RefreshExpiry == 0 {
		c.Auth.RefreshExpiry = 24 * 7
	}
	if c.World.Width == 0 {
		c.World.Width = 800
	}
	if c.World.Height == 0 {
		c.World.Height = 600
	}
	if c.World.Padding == 0 {
		c.World.Padding = 16
	}
	if c.Chat.RoomTTLHours == 0 {
		c.Chat.RoomTTLHours = 8
	}
	if c.Chat.HistoryLimit == 0 {
		c.Chat.HistoryLimit = 50
	}
	if c.Chat.SearchLimit == 0 {
		c.Chat.SearchLimit = 50
	}
	if c.Chat.RateWindowSecs == 0 {
		c.Chat.RateWindowSecs = 10
	}
	if c.Chat.CleanupInterval == 0 {
		c.Chat.CleanupInterval = 10
	}
	if c.Redis.PoolSize == 0 {
		c.Redis.PoolSize = 10
	}
	if c.Kafka.Topic == "" {
		c.Kafka.Topic = "oasis.room-events"
	}
	if c.Kafka.GroupID == "" {
		c.Kafka.GroupID = "oasis-server"
	}
}
