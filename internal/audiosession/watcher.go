package audiosession

import (
	"context"
	"sync"
	"time"

	"github.com/cenkalti/backoff/v4"
	"go.uber.org/zap"
	"k8s.io/apimachinery/pkg/util/wait"

	"github.com/lk2023060901/mixdeck-go/pkg/log"
	"github.com/lk2023060901/mixdeck-go/pkg/metrics"
)

const DefaultWatchInterval = time.Second

// DeviceChange 描述一次默认设备切换，Sessions 为切换后重新枚举的结果，枚举失败时为空。
type DeviceChange struct {
	DeviceID string
	Sessions []AudioSession
}

// DeviceChangeHandler 在检测到默认设备切换后被调用。
type DeviceChangeHandler func(ctx context.Context, change DeviceChange)

// Watcher 定期轮询默认设备是否切换。检测失败时按指数退避推迟下一次检测。
type Watcher struct {
	m        *Manager
	interval time.Duration

	mu       sync.RWMutex
	handlers []DeviceChangeHandler
}

func NewWatcher(m *Manager, interval time.Duration) *Watcher {
	if interval <= 0 {
		interval = DefaultWatchInterval
	}
	return &Watcher{m: m, interval: interval}
}

// OnChange 注册切换回调，回调按注册顺序在轮询协程中执行。
func (w *Watcher) OnChange(h DeviceChangeHandler) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.handlers = append(w.handlers, h)
}

// Poll 执行一次检测，发生切换时重新枚举会话并调用全部回调。
func (w *Watcher) Poll(ctx context.Context) (bool, error) {
	changed, err := w.m.CheckDeviceChanged(ctx)
	if err != nil || !changed {
		return false, err
	}
	metrics.AudioDeviceChanges.Inc()

	change := DeviceChange{DeviceID: w.m.Stats().DeviceID}
	sessions, err := w.m.EnumerateSessions(ctx)
	if err != nil {
		log.Ctx(ctx).Warn("failed to refresh sessions after device change", zap.Error(err))
	} else {
		change.Sessions = sessions
	}

	w.mu.RLock()
	handlers := append([]DeviceChangeHandler(nil), w.handlers...)
	w.mu.RUnlock()
	for _, h := range handlers {
		h(ctx, change)
	}
	return true, nil
}

// Run 阻塞轮询直到 ctx 结束。
func (w *Watcher) Run(ctx context.Context) {
	bo := backoff.NewExponentialBackOff()
	bo.InitialInterval = w.interval
	bo.MaxInterval = 30 * w.interval
	bo.MaxElapsedTime = 0

	logger := log.Ctx(ctx).With(log.FieldComponent("device-watcher")).WithRateGroup("audiosession.watcher", 1, 10)
	var retryAt time.Time
	wait.UntilWithContext(ctx, func(ctx context.Context) {
		if time.Now().Before(retryAt) {
			return
		}
		if _, err := w.Poll(ctx); err != nil {
			delay := bo.NextBackOff()
			retryAt = time.Now().Add(delay)
			logger.RatedWarn(1, "device check failed, backing off", zap.Duration("delay", delay), zap.Error(err))
			return
		}
		bo.Reset()
		retryAt = time.Time{}
	}, w.interval)
	logger.Info("device watcher stopped")
}
