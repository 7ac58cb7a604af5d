package model_test

import (
	"testing"
	"time"

	"github.com/yeisme/snapvault/pkg/internal/model"
)

// TestFileShareExpired 验证过期判断以 UTC 比较，不受时区影响.
func TestFileShareExpired(t *testing.T) {
	base := time.Date(2025, 1, 2, 3, 4, 5, 0, time.UTC)
	share := &model.FileShare{ExpiresAt: base}

	if share.Expired(base.Add(-time.Second)) {
		t.Error("share should not be expired before deadline")
	}

	if !share.Expired(base) {
		t.Error("share should be expired exactly at deadline")
	}

	if !share.Expired(base.Add(time.Second)) {
		t.Error("share should be expired after deadline")
	}

	// 东八区表示的同一时刻
	cst := time.FixedZone("CST", 8*3600)
	if share.Expired(base.Add(-time.Second).In(cst)) {
		t.Error("expiry must not depend on the caller's time zone")
	}
}

// TestFileShareRemainingTTL 验证剩余时长计算.
func TestFileShareRemainingTTL(t *testing.T) {
	base := time.Date(2025, 1, 2, 3, 4, 5, 0, time.UTC)
	share := &model.FileShare{ExpiresAt: base.Add(5 * time.Minute)}

	if got := share.RemainingTTL(base); got != 5*time.Minute {
		t.Errorf("RemainingTTL = %v, want 5m", got)
	}

	if got := share.RemainingTTL(base.Add(10 * time.Minute)); got != 0 {
		t.Errorf("RemainingTTL after expiry = %v, want 0", got)
	}
}

// TestNewTextShareID 验证文本分享主键格式.
func TestNewTextShareID(t *testing.T) {
	at := time.UnixMilli(1735790645123).UTC()

	got := model.NewTextShareID("4321", at)
	want := "4321-1735790645123"

	if got != want {
		t.Errorf("NewTextShareID = %q, want %q", got, want)
	}
}
