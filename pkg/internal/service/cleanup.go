package service

import (
	"sync"
	"time"
)

// Cleaner 管理每个取件码的删除定时器.
//
// 每个活跃记录最多持有一个定时器：创建时按 TTL 武装，取件后按宽限期重新武装
// （宽限期必然早于或等于原 TTL 截止点，直接替换即可）. 删除操作是幂等的，
// 定时器触发与清扫任务竞争同一条记录也不会产生错误.
type Cleaner struct {
	mu      sync.Mutex
	timers  map[string]*time.Timer
	stopped bool
}

// NewCleaner 创建 Cleaner.
func NewCleaner() *Cleaner {
	return &Cleaner{timers: make(map[string]*time.Timer)}
}

// Arm 在 d 之后对取件码执行 fn，替换已有定时器.
func (c *Cleaner) Arm(otp string, d time.Duration, fn func()) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.stopped {
		return
	}

	if t, ok := c.timers[otp]; ok {
		t.Stop()
	}

	c.timers[otp] = time.AfterFunc(d, func() {
		c.mu.Lock()
		delete(c.timers, otp)
		c.mu.Unlock()

		fn()
	})
}

// Disarm 取消取件码的定时器（记录被手动删除时调用）.
func (c *Cleaner) Disarm(otp string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if t, ok := c.timers[otp]; ok {
		t.Stop()
		delete(c.timers, otp)
	}
}

// Active 返回当前武装的定时器数量.
func (c *Cleaner) Active() int {
	c.mu.Lock()
	defer c.mu.Unlock()

	return len(c.timers)
}

// Stop 取消所有定时器，之后的 Arm 调用被忽略.
// 进程重启后定时器丢失，由清扫任务兜底删除过期记录.
func (c *Cleaner) Stop() {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.stopped = true

	for otp, t := range c.timers {
		t.Stop()
		delete(c.timers, otp)
	}
}
