// Package audiosession 跟踪并控制各应用的音频会话（音量/静音），
// 维护与系统混音器同步的有界会话缓存，并检测默认播放设备的切换。
//
// Manager 的所有公开操作共用一把互斥锁，并在整个操作期间持有，
// 因此并发调用被严格串行化，任何调用都不会观察到更新到一半的缓存。
// 底层混音器调用都是阻塞且不可取消的，UI 线程应通过 Async 间接调用。
package audiosession

import (
	"context"
	"fmt"
	"sync"
	"time"

	"go.opentelemetry.io/otel/codes"
	"go.uber.org/atomic"
	"go.uber.org/zap"

	"github.com/lk2023060901/mixdeck-go/internal/mixer"
	"github.com/lk2023060901/mixdeck-go/pkg/log"
	"github.com/lk2023060901/mixdeck-go/pkg/metrics"
	"github.com/lk2023060901/mixdeck-go/pkg/util/merr"
)

const (
	opInitialize   = "initialize"
	opEnumerate    = "enumerate"
	opSessionVol   = "set_session_volume"
	opSessionMute  = "set_session_mute"
	opGetSysVolume = "get_system_volume"
	opSetSysVolume = "set_system_volume"
	opGetSysMute   = "get_system_mute"
	opSetSysMute   = "set_system_mute"
	opCheckDevice  = "check_device_changed"
	opDefaultDev   = "default_device"
	opCleanup      = "cleanup"
	opClose        = "close"
)

type counters struct {
	enumerations    atomic.Int64
	sessionCommands atomic.Int64
	endpointCalls   atomic.Int64
	deviceChecks    atomic.Int64
}

func (c *counters) reset() {
	c.enumerations.Store(0)
	c.sessionCommands.Store(0)
	c.endpointCalls.Store(0)
	c.deviceChecks.Store(0)
}

// Manager 是音频会话子系统的上下文对象，启动时创建一次并注入到各调用方。
type Manager struct {
	log.Binder

	mu          sync.Mutex
	backend     mixer.Backend
	apartment   *apartment
	resolver    ProcessResolver
	cache       *sessionCache
	deviceID    string
	initialized bool
	closed      bool

	counters counters
}

// NewManager 创建 Manager。创建本身不触碰混音器，需要调用 Initialize。
func NewManager(backend mixer.Backend, opts ...Option) *Manager {
	o := defaultOptions()
	for _, opt := range opts {
		opt(o)
	}

	m := &Manager{
		backend:   backend,
		apartment: newApartment(),
		resolver:  o.resolver,
		cache:     newSessionCache(o.cacheCapacity),
	}
	logger := o.logger
	if logger == nil {
		logger = log.With(log.FieldComponent(component), zap.String("backend", backend.Name()))
	}
	m.SetLogger(logger.WithRateGroup("audiosession.skip", 1, 30))
	return m
}

// begin 获取 Manager 锁并开启 span，返回的 done 负责记录指标并释放锁。
func (m *Manager) begin(ctx context.Context, op string) (context.Context, func(err error)) {
	ctx, span := log.StartSpan(ctx, component, op)
	start := time.Now()
	m.mu.Lock()
	metrics.LockCosts.WithLabelValues(component, op).Set(float64(time.Since(start).Milliseconds()))

	return ctx, func(err error) {
		status := metrics.SuccessLabel
		if err != nil {
			status = metrics.FailLabel
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
		}
		metrics.AudioSessionOperations.WithLabelValues(op, status).Inc()
		metrics.AudioSessionOperationLatency.WithLabelValues(op).Observe(float64(time.Since(start).Milliseconds()))
		metrics.AudioSessionCacheEntries.Set(float64(m.cache.Len()))
		m.mu.Unlock()
		span.End()
	}
}

// ready 在 Manager 不可用时返回对应错误，调用方需持有锁。
func (m *Manager) ready() error {
	if m.closed {
		return merr.WrapErrServiceClosed(component)
	}
	if !m.initialized {
		return merr.WrapErrServiceNotReady(component)
	}
	return nil
}

// Initialize 在套间线程上初始化混音子系统并记录当前默认设备。
// 重复调用是幂等的，只会重新记录默认设备；找不到默认设备不视为失败。
func (m *Manager) Initialize(ctx context.Context) (status string, err error) {
	ctx, done := m.begin(ctx, opInitialize)
	defer func() { done(err) }()

	if m.closed {
		return "", merr.WrapErrServiceClosed(component)
	}
	if !m.initialized {
		if err := m.apartment.run(m.backend.Init); err != nil {
			return "", merr.WrapErrServiceUnavailable(err.Error(), "initialize "+m.backend.Name())
		}
		m.initialized = true
	}

	id, err := m.defaultDeviceID()
	if err != nil {
		log.Ctx(ctx).Warn("no default render device at initialize", zap.Error(err))
		id = ""
	}
	m.deviceID = id
	log.Ctx(ctx).Info("audio session manager initialized",
		zap.String("backend", m.backend.Name()),
		log.FieldDeviceID(id))
	return fmt.Sprintf("audio subsystem initialized (backend=%s)", m.backend.Name()), nil
}

// Cleanup 清空并收缩缓存，重置调用计数与记录的设备，可重复调用，从不失败。
func (m *Manager) Cleanup(ctx context.Context) string {
	ctx, done := m.begin(ctx, opCleanup)
	defer done(nil)

	m.cleanup()
	log.Ctx(ctx).Debug("audio session manager cleaned up")
	return "audio subsystem cleaned up"
}

func (m *Manager) cleanup() {
	m.cache.Reset()
	m.counters.reset()
	m.deviceID = ""
}

// Close 执行 Cleanup，在套间线程上反初始化混音子系统并释放套间线程。
// 只有第一次调用生效，之后所有操作都返回 merr.ErrServiceClosed。
func (m *Manager) Close(ctx context.Context) {
	ctx, done := m.begin(ctx, opClose)
	defer done(nil)

	if m.closed {
		return
	}
	m.cleanup()
	if m.initialized {
		if err := m.apartment.run(func() error {
			m.backend.Uninit()
			return nil
		}); err != nil {
			log.Ctx(ctx).Warn("failed to uninitialize audio backend", zap.Error(err))
		}
		m.initialized = false
	}
	m.apartment.release()
	m.closed = true
	log.Ctx(ctx).Info("audio session manager closed")
}

// Session 返回缓存中指定会话的拷贝，并刷新其最近使用时间。
func (m *Manager) Session(id string) (AudioSession, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.cache.Get(id)
}

// Sessions 返回缓存快照，按最近使用时间从旧到新排列。
func (m *Manager) Sessions() []AudioSession {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.cache.Snapshot()
}

func (m *Manager) Stats() Stats {
	m.mu.Lock()
	defer m.mu.Unlock()
	return Stats{
		Enumerations:    m.counters.enumerations.Load(),
		SessionCommands: m.counters.sessionCommands.Load(),
		EndpointCalls:   m.counters.endpointCalls.Load(),
		DeviceChecks:    m.counters.deviceChecks.Load(),
		CachedSessions:  m.cache.Len(),
		DeviceID:        m.deviceID,
		Initialized:     m.initialized,
	}
}
