package queue

import "time"

// EventHeader 定义所有事件的通用头部元数据.
// 建议在发布消息时填充 TraceID、OccurredAt、Producer 等，便于追踪链路与审计.
type EventHeader struct {
	// Topic 冗余记录消息主题，便于离线处理或转储后定位来源主题.
	Topic string `json:"topic"`
	// TraceID 分布式追踪/关联 ID，可来自中间件或业务生成.
	TraceID string `json:"trace_id,omitempty"`
	// Producer 生产者服务名或节点标识.
	Producer string `json:"producer,omitempty"`
	// OccurredAt 事件发生时间（UTC，RFC3339）.
	OccurredAt time.Time `json:"occurred_at"`
	// Version 事件负载版本，便于向后兼容演进.
	Version string `json:"version,omitempty"`
}

// Message 是统一的消息封装，Header + Payload.
// T 即不同主题对应的负载结构体.
type Message[T any] struct {
	Header  EventHeader `json:"header"`
	Payload T           `json:"payload"`
}

// ShareKind 分享内容类型.
type ShareKind string

const (
	ShareKindFile ShareKind = "file"
	ShareKindText ShareKind = "text"
)

// DeleteTrigger 删除触发来源.
type DeleteTrigger string

const (
	DeleteTriggerTTL    DeleteTrigger = "ttl"    // 有效期到期
	DeleteTriggerGrace  DeleteTrigger = "grace"  // 取件后宽限期
	DeleteTriggerSweep  DeleteTrigger = "sweep"  // 后台清扫任务
	DeleteTriggerManual DeleteTrigger = "manual" // API 手动删除
)

// -------------------------- 分享记录生命周期 --------------------------

// ShareCreatedPayload 分享创建完成.
type ShareCreatedPayload struct {
	OTP       string    `json:"otp"`
	Kind      ShareKind `json:"kind"`
	ObjectKey string    `json:"object_key,omitempty"` // 仅文件分享
	Size      int64     `json:"size,omitempty"`
	ExpiresAt time.Time `json:"expires_at"`
}

// ShareRetrievedPayload 取件码兑换成功.
type ShareRetrievedPayload struct {
	OTP  string    `json:"otp"`
	Kind ShareKind `json:"kind"`
}

// ShareDeletedPayload 分享被删除.
type ShareDeletedPayload struct {
	OTP     string        `json:"otp"`
	Kind    ShareKind     `json:"kind"`
	Trigger DeleteTrigger `json:"trigger"`
}

// ShareExpiredPayload 分享超过有效期.
type ShareExpiredPayload struct {
	OTP       string    `json:"otp"`
	Kind      ShareKind `json:"kind"`
	ExpiresAt time.Time `json:"expires_at"`
}

// -------------------------- 对象存储领域 --------------------------

// BlobDeleteFailedPayload 对象删除失败，元数据保留待重试.
type BlobDeleteFailedPayload struct {
	OTP       string `json:"otp"`
	ObjectKey string `json:"object_key"`
	Error     string `json:"error"`
}
