package service

import (
	"errors"
	"fmt"

	"github.com/yeisme/snapvault/pkg/internal/otp"
)

var (
	// ErrNotFound 取件码没有对应的活跃记录.
	ErrNotFound = errors.New("share not found")
	// ErrExpired 记录存在但已超过有效期.
	ErrExpired = errors.New("share expired")
	// ErrInvalidOTP 取件码格式非法（非四位数字）.
	ErrInvalidOTP = errors.New("invalid otp")
	// ErrTooLarge 内容超过配置的大小上限.
	ErrTooLarge = errors.New("content too large")
	// ErrAllocationExhausted 取件码分配重试耗尽，服务暂时不可用.
	ErrAllocationExhausted = otp.ErrAllocationExhausted
)

// StorageError 对象存储操作失败.
type StorageError struct {
	Op  string // put / presign / remove
	Key string
	Err error
}

func (e *StorageError) Error() string {
	return fmt.Sprintf("storage %s %s: %v", e.Op, e.Key, e.Err)
}

func (e *StorageError) Unwrap() error { return e.Err }

// MetadataError 元数据（数据库）操作失败.
type MetadataError struct {
	Op  string // create / query / delete
	Err error
}

func (e *MetadataError) Error() string {
	return fmt.Sprintf("metadata %s: %v", e.Op, e.Err)
}

func (e *MetadataError) Unwrap() error { return e.Err }

// PartialCleanupError 对象删除失败导致清理不彻底，元数据已删而对象成为孤儿，
// 具体对象键随 blob 删除失败事件上报.
type PartialCleanupError struct {
	OTP       string
	ObjectKey string
	Err       error
}

func (e *PartialCleanupError) Error() string {
	return fmt.Sprintf("partial cleanup for otp %s (object %s): %v", e.OTP, e.ObjectKey, e.Err)
}

func (e *PartialCleanupError) Unwrap() error { return e.Err }
