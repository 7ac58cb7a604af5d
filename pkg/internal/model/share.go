// Package model 定义分享记录的数据库模型.
package model

import (
	"fmt"
	"time"
)

// FileShare 文件分享记录：以 DB 为真源，对象本体存于 S3.
// 取件码在活跃记录中唯一；过期记录删除后取件码可复用.
type FileShare struct {
	ID string `gorm:"primaryKey;size:26" json:"id"`
	// OTP 四位数字取件码
	OTP string `gorm:"size:8;uniqueIndex" json:"otp"`
	// ObjectKey 对象键（S3 key），格式为 {otp}/{original_name}
	ObjectKey    string    `gorm:"size:1024"      json:"object_key"`
	OriginalName string    `gorm:"size:512"       json:"original_name"`
	ContentType  string    `gorm:"size:255"       json:"content_type"`
	Size         int64     `json:"size"`
	ExpiresAt    time.Time `gorm:"index"          json:"expires_at"`
	CreatedAt    time.Time `json:"created_at"`
}

// TextShare 文本分享记录，内容直接落库.
type TextShare struct {
	// ID 形如 {otp}-{unix_ms}，保留创建时刻信息
	ID  string `gorm:"primaryKey;size:32" json:"id"`
	OTP string `gorm:"size:8;uniqueIndex" json:"otp"`
	// Content 分享文本内容
	Content string `gorm:"type:text" json:"content"`
	// Consumed 已被取走，等待宽限期删除
	Consumed  bool      `json:"consumed"`
	ExpiresAt time.Time `gorm:"index" json:"expires_at"`
	CreatedAt time.Time `json:"created_at"`
}

// Expired 判断记录在 now 时刻是否已过期. 两侧统一用 UTC 比较.
func (s *FileShare) Expired(now time.Time) bool {
	return !now.UTC().Before(s.ExpiresAt.UTC())
}

// Expired 判断记录在 now 时刻是否已过期.
func (s *TextShare) Expired(now time.Time) bool {
	return !now.UTC().Before(s.ExpiresAt.UTC())
}

// RemainingTTL 返回剩余有效时长，已过期返回 0.
func (s *FileShare) RemainingTTL(now time.Time) time.Duration {
	d := s.ExpiresAt.UTC().Sub(now.UTC())
	if d < 0 {
		return 0
	}

	return d
}

// NewTextShareID 生成文本分享主键：{otp}-{unix_ms}.
func NewTextShareID(otp string, at time.Time) string {
	return fmt.Sprintf("%s-%d", otp, at.UnixMilli())
}
