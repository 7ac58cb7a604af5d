// Package types 定义 API 请求与响应结构.
package types

import "time"

// CreateTextShareRequest 创建文本分享请求体.
type CreateTextShareRequest struct {
	// Content 待分享的文本内容
	Content string `json:"content" rule:"required"`
}

// CreateShareResponse 创建分享的响应体，文件与文本共用.
type CreateShareResponse struct {
	// OTP 四位数字取件码
	OTP string `json:"otp"`
	// Kind 分享类型：file 或 text
	Kind string `json:"kind"`
	// ExpiresAt 过期时间（UTC）
	ExpiresAt time.Time `json:"expires_at"`
	// CreatedAt 创建时间（UTC）
	CreatedAt time.Time `json:"created_at"`
}

// FileShareView 文件分享的取件视图.
type FileShareView struct {
	// OriginalName 上传时的原始文件名
	OriginalName string `json:"original_name"`
	// ContentType 文件 MIME 类型
	ContentType string `json:"content_type"`
	// Size 文件大小（字节）
	Size int64 `json:"size"`
}

// RetrieveShareResponse 取件响应体. File 与 Text 二选一.
type RetrieveShareResponse struct {
	// OTP 取件码回显
	OTP string `json:"otp"`
	// Kind 分享类型：file 或 text
	Kind string `json:"kind"`
	// ExpiresAt 过期时间（UTC）
	ExpiresAt time.Time `json:"expires_at"`
	// File 文件分享的元数据（Kind 为 file 时存在）
	File *FileShareView `json:"file,omitempty"`
	// Text 文本内容（Kind 为 text 时存在）
	Text string `json:"text,omitempty"`
}

// DownloadShareRequest 文件下载授权请求体.
type DownloadShareRequest struct {
	// Path 对象路径，形如 {otp}/{文件名}
	Path string `json:"path" rule:"required"`
	// OTP 四位数字取件码
	OTP string `json:"otp" rule:"required,otp"`
}

// DownloadShareResponse 文件下载授权响应体.
type DownloadShareResponse struct {
	// URL 预签名下载地址
	URL string `json:"url"`
	// ExpiresIn 地址有效时长（秒）
	ExpiresIn int `json:"expires_in"`
	// OriginalName 上传时的原始文件名
	OriginalName string `json:"original_name"`
}
