package configs

import (
	"github.com/spf13/viper"
)

// MQType 消息队列类型.
type MQType string

const (
	MQTypeNATS    MQType = "nats"
	MQTypeRedis   MQType = "redis"   // Redis Pub/Sub
	MQTypeChannel MQType = "channel" // 进程内 gochannel，用于开发与测试

	DefaultMQURL           = "localhost:4222"
	DefaultMQClientID      = "snapvault-app" // 默认客户端ID
	DefaultMQMaxReconnects = 5               // 默认最大重连次数
	DefaultMQReconnectWait = 5               // 默认重连等待时间（秒）
	DefaultMQRedisAddr     = "localhost:6379"
)

// MQConfig 消息队列配置.
type MQConfig struct {
	Enabled          bool          `mapstructure:"enabled"`
	Type             MQType        `mapstructure:"type"              rule:"oneof=nats redis channel"`
	URL              string        `mapstructure:"url"`
	User             string        `mapstructure:"user"`
	Password         string        `mapstructure:"password"`
	ClientID         string        `mapstructure:"client_id"`
	MaxReconnects    int           `mapstructure:"max_reconnects"    rule:"min=0,max=100"`
	ReconnectWait    int           `mapstructure:"reconnect_wait"    rule:"min=1,max=300"`
	JetStreamEnabled bool          `mapstructure:"jetstream_enabled"`
	Redis            RedisMQConfig `mapstructure:"redis"`
}

// RedisMQConfig Redis Pub/Sub 后端的连接配置.
type RedisMQConfig struct {
	Addr     string `mapstructure:"addr"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"       rule:"min=0,max=15"`
}

// GetMQType 返回消息队列类型.
func (c *MQConfig) GetMQType() MQType {
	return c.Type
}

// setDefaults 设置消息队列配置的默认值.
func (c *MQConfig) setDefaults(v *viper.Viper) {
	v.SetDefault("mq.enabled", false)
	v.SetDefault("mq.type", MQTypeChannel)
	v.SetDefault("mq.url", DefaultMQURL)
	v.SetDefault("mq.user", "")
	v.SetDefault("mq.password", "")
	v.SetDefault("mq.client_id", DefaultMQClientID)
	v.SetDefault("mq.max_reconnects", DefaultMQMaxReconnects)
	v.SetDefault("mq.reconnect_wait", DefaultMQReconnectWait)
	v.SetDefault("mq.jetstream_enabled", false)
	v.SetDefault("mq.redis.addr", DefaultMQRedisAddr)
	v.SetDefault("mq.redis.password", "")
	v.SetDefault("mq.redis.db", 0)
}
