package otp_test

import (
	"context"
	"errors"
	"regexp"
	"testing"

	"github.com/yeisme/snapvault/pkg/internal/otp"
)

var codePattern = regexp.MustCompile(`^[0-9]{4}$`)

// TestGenerate 验证取件码始终为四位数字，包括前导零.
func TestGenerate(t *testing.T) {
	for range 200 {
		code, err := otp.Generate()
		if err != nil {
			t.Fatalf("Generate failed: %v", err)
		}

		if !codePattern.MatchString(code) {
			t.Fatalf("code %q is not a 4-digit string", code)
		}
	}
}

// TestAllocateFirstTry 验证无冲突时一次分配成功.
func TestAllocateFirstTry(t *testing.T) {
	alloc := otp.NewAllocator(func(ctx context.Context, code string) (bool, error) {
		return false, nil
	}, 10)

	code, attempts, err := alloc.Allocate(context.Background())
	if err != nil {
		t.Fatalf("Allocate failed: %v", err)
	}

	if attempts != 1 {
		t.Errorf("attempts = %d, want 1", attempts)
	}

	if !codePattern.MatchString(code) {
		t.Errorf("code %q is not a 4-digit string", code)
	}
}

// TestAllocateRetriesOnCollision 验证冲突后重试并返回实际尝试次数.
func TestAllocateRetriesOnCollision(t *testing.T) {
	calls := 0
	alloc := otp.NewAllocator(func(ctx context.Context, code string) (bool, error) {
		calls++
		return calls < 3, nil // 前两次命中占用
	}, 10)

	_, attempts, err := alloc.Allocate(context.Background())
	if err != nil {
		t.Fatalf("Allocate failed: %v", err)
	}

	if attempts != 3 {
		t.Errorf("attempts = %d, want 3", attempts)
	}
}

// TestAllocateExhausted 验证重试耗尽返回 ErrAllocationExhausted.
func TestAllocateExhausted(t *testing.T) {
	alloc := otp.NewAllocator(func(ctx context.Context, code string) (bool, error) {
		return true, nil // 全部占用
	}, 5)

	_, attempts, err := alloc.Allocate(context.Background())
	if !errors.Is(err, otp.ErrAllocationExhausted) {
		t.Fatalf("err = %v, want ErrAllocationExhausted", err)
	}

	if attempts != 5 {
		t.Errorf("attempts = %d, want 5", attempts)
	}
}

// TestAllocateProbeError 验证探针错误直接透传.
func TestAllocateProbeError(t *testing.T) {
	probeErr := errors.New("db down")
	alloc := otp.NewAllocator(func(ctx context.Context, code string) (bool, error) {
		return false, probeErr
	}, 10)

	_, _, err := alloc.Allocate(context.Background())
	if !errors.Is(err, probeErr) {
		t.Fatalf("err = %v, want wrapped probe error", err)
	}
}

// TestAllocateContextCanceled 验证取消的上下文立即返回.
func TestAllocateContextCanceled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	alloc := otp.NewAllocator(func(ctx context.Context, code string) (bool, error) {
		t.Fatal("probe should not be called after cancellation")
		return false, nil
	}, 10)

	_, _, err := alloc.Allocate(ctx)
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("err = %v, want context.Canceled", err)
	}
}
