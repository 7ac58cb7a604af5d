package configs

import (
	"time"

	"github.com/spf13/viper"
)

const (
	// DefaultShareTTL 分享的固定存活时间，文件与文本一致.
	DefaultShareTTL = 5 * time.Minute
	// DefaultShareGrace 首次成功读取后延迟删除的宽限时间.
	DefaultShareGrace = 3 * time.Second
	// DefaultOTPMaxAttempts 取件码分配时的最大重试次数.
	DefaultOTPMaxAttempts = 10
	// DefaultSweepCron 过期清扫任务的 cron 表达式（每分钟）.
	DefaultSweepCron = "* * * * *"
	// DefaultMaxFileSize 单个文件的最大字节数 (100MB).
	DefaultMaxFileSize = 100 * 1024 * 1024
	// DefaultMaxTextSize 文本分享的最大字节数 (64KB).
	DefaultMaxTextSize = 64 * 1024
)

// ShareConfig 分享生命周期策略配置.
// TTL 固定作用于两种分享类型；未被读取的文本分享同样按 TTL 过期.
type ShareConfig struct {
	TTL            time.Duration `mapstructure:"ttl"              rule:"min=1s"`
	Grace          time.Duration `mapstructure:"grace"            rule:"min=0"`
	OTPMaxAttempts int           `mapstructure:"otp_max_attempts" rule:"min=1,max=100"`
	SweepEnabled   bool          `mapstructure:"sweep_enabled"`
	SweepCron      string        `mapstructure:"sweep_cron"`
	MaxFileSize    int64         `mapstructure:"max_file_size"    rule:"min=1"`
	MaxTextSize    int           `mapstructure:"max_text_size"    rule:"min=1"`
}

// setDefaults 设置分享策略配置的默认值.
func (c *ShareConfig) setDefaults(v *viper.Viper) {
	v.SetDefault("share.ttl", DefaultShareTTL)
	v.SetDefault("share.grace", DefaultShareGrace)
	v.SetDefault("share.otp_max_attempts", DefaultOTPMaxAttempts)
	v.SetDefault("share.sweep_enabled", true)
	v.SetDefault("share.sweep_cron", DefaultSweepCron)
	v.SetDefault("share.max_file_size", DefaultMaxFileSize)
	v.SetDefault("share.max_text_size", DefaultMaxTextSize)
}
