package mq_test

import (
	"slices"
	"testing"

	"github.com/yeisme/snapvault/pkg/configs"
	"github.com/yeisme/snapvault/pkg/internal/storage/mq"
)

// TestRegisteredBackends 三种后端在包加载时都完成注册.
func TestRegisteredBackends(t *testing.T) {
	got := mq.GetRegisteredMQTypes()

	for _, want := range []configs.MQType{configs.MQTypeNATS, configs.MQTypeRedis, configs.MQTypeChannel} {
		if !slices.Contains(got, want) {
			t.Errorf("backend %q not registered, got %v", want, got)
		}
	}
}
