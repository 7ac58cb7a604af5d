// Package otp 负责取件码的生成与分配.
//
// 取件码为四位数字（0000-9999），空间仅一万个，碰撞不可忽略.
// Allocator 在生成后通过探针确认取件码未被活跃记录占用，冲突则重试，
// 重试耗尽返回 ErrAllocationExhausted，调用方应映射为服务暂时不可用.
package otp

import (
	"context"
	"crypto/rand"
	"errors"
	"fmt"
	"math/big"
)

// CodeLength 取件码位数.
const CodeLength = 4

// codeSpace 取件码空间大小.
var codeSpace = big.NewInt(10000)

// ErrAllocationExhausted 在重试次数内未能分配到空闲取件码.
var ErrAllocationExhausted = errors.New("otp allocation exhausted")

// InUseFunc 探测取件码是否已被活跃记录占用.
type InUseFunc func(ctx context.Context, code string) (bool, error)

// Allocator 取件码分配器.
type Allocator struct {
	inUse       InUseFunc
	maxAttempts int
}

// NewAllocator 创建分配器. maxAttempts 必须大于 0.
func NewAllocator(inUse InUseFunc, maxAttempts int) *Allocator {
	if maxAttempts <= 0 {
		maxAttempts = 1
	}

	return &Allocator{inUse: inUse, maxAttempts: maxAttempts}
}

// Generate 用加密随机源生成一个四位数字取件码，不做占用检查.
func Generate() (string, error) {
	n, err := rand.Int(rand.Reader, codeSpace)
	if err != nil {
		return "", fmt.Errorf("generate otp: %w", err)
	}

	return fmt.Sprintf("%04d", n.Int64()), nil
}

// Allocate 分配一个未被占用的取件码.
// 返回 (code, attempts, err)，attempts 为实际尝试次数，供指标上报.
func (a *Allocator) Allocate(ctx context.Context) (string, int, error) {
	for attempt := 1; attempt <= a.maxAttempts; attempt++ {
		if err := ctx.Err(); err != nil {
			return "", attempt - 1, err
		}

		code, err := Generate()
		if err != nil {
			return "", attempt, err
		}

		taken, err := a.inUse(ctx, code)
		if err != nil {
			return "", attempt, fmt.Errorf("probe otp %s: %w", code, err)
		}

		if !taken {
			return code, attempt, nil
		}
	}

	return "", a.maxAttempts, ErrAllocationExhausted
}
