package audiosession

import (
	"context"
	"fmt"
	"iter"

	"github.com/samber/lo"
	"go.uber.org/zap"

	"github.com/lk2023060901/mixdeck-go/internal/mixer"
	"github.com/lk2023060901/mixdeck-go/pkg/log"
	"github.com/lk2023060901/mixdeck-go/pkg/metrics"
	"github.com/lk2023060901/mixdeck-go/pkg/util/merr"
	"github.com/lk2023060901/mixdeck-go/pkg/util/typeutil"
)

// probe 是对一个设备或会话的探测结果。skip 非空表示该项不可用，err 为原因。
type probe struct {
	deviceID string
	index    int
	control  mixer.SessionControl
	pid      uint32
	volume   mixer.VolumeControl

	skip string
	err  error
}

func (p probe) skipped() bool {
	return p.skip != ""
}

// withDevices 在套间线程上创建枚举器并列出全部活动播放设备。
// 本次调用获取的所有混音器对象都登记在 scope 中，fn 返回后统一释放。
func (m *Manager) withDevices(fn func(scope *mixer.Scope, devices []mixer.Device) error) error {
	return m.apartment.run(func() error {
		scope := mixer.NewScope()
		defer scope.Close()

		enum, err := m.backend.NewEnumerator()
		if err != nil {
			return merr.WrapErrEnumeratorUnavailable(err)
		}
		scope.Add(enum)

		devices, err := enum.ActiveRenderDevices()
		if err != nil {
			return merr.WrapErrEnumeratorUnavailable(err)
		}
		return fn(scope, mixer.KeepAll(scope, devices))
	})
}

// probes 惰性地遍历所有设备上的所有会话。
// 无法激活的设备、系统会话以及没有音量接口的会话都以 skip 结果产出，而不是中断遍历。
func (m *Manager) probes(scope *mixer.Scope, devices []mixer.Device) iter.Seq[probe] {
	return func(yield func(probe) bool) {
		for _, dev := range devices {
			deviceID, _ := dev.ID()
			sessions, err := dev.Sessions()
			if err != nil {
				if !yield(probe{deviceID: deviceID, skip: metrics.SkipReasonDevice, err: err}) {
					return
				}
				continue
			}
			mixer.KeepAll(scope, sessions)
			for i, sc := range sessions {
				if !yield(probeSession(scope, deviceID, i, sc)) {
					return
				}
			}
		}
	}
}

func probeSession(scope *mixer.Scope, deviceID string, index int, sc mixer.SessionControl) probe {
	p := probe{deviceID: deviceID, index: index, control: sc}
	pid, err := sc.ProcessID()
	if err != nil {
		p.skip, p.err = metrics.SkipReasonSessionQuery, err
		return p
	}
	p.pid = pid
	if pid == 0 {
		p.skip = metrics.SkipReasonSystem
		return p
	}
	vol, err := sc.SimpleVolume()
	if err != nil {
		p.skip, p.err = metrics.SkipReasonVolume, err
		return p
	}
	p.volume = mixer.Keep(scope, vol)
	return p
}

// describe 将探测结果转换为会话快照。
// 实例标识或显示名获取失败时使用确定的占位值；音量或静音读取失败时分别按 1.0 与未静音处理。
//
// 占位标识 session_{index} 中的 index 是会话在所属设备内的序号，
// 不同设备上的占位标识可能相同，此时缓存中只保留遍历顺序上最后一个。
func (m *Manager) describe(p probe) AudioSession {
	id, err := p.control.InstanceID()
	if err != nil || id == "" {
		id = fmt.Sprintf("session_%d", p.index)
	}
	name, err := p.control.DisplayName()
	if err != nil || name == "" {
		name = fallbackProcessName(p.pid)
	}
	volume, err := p.volume.Volume()
	if err != nil {
		volume = 1
	}
	muted, _ := p.volume.Mute()

	return AudioSession{
		SessionID:   id,
		DisplayName: name,
		ProcessID:   p.pid,
		ProcessName: m.resolver.Resolve(p.pid),
		Volume:      typeutil.Clamp(volume, 0, 1),
		IsMuted:     muted,
		DeviceID:    p.deviceID,
	}
}

func (m *Manager) logSkip(p probe) {
	metrics.AudioSessionSkipped.WithLabelValues(p.skip).Inc()
	if p.skip == metrics.SkipReasonSystem {
		return
	}
	m.Logger().RatedDebug(1, "skip unavailable audio item",
		zap.String("reason", p.skip),
		log.FieldDeviceID(p.deviceID),
		zap.Int("index", p.index),
		zap.Error(p.err))
}

// EnumerateSessions 遍历所有活动播放设备上的会话，用结果刷新缓存并返回本次观察到的会话。
//
// 只有创建设备枚举器失败会导致调用失败；单个设备或会话的失败会被跳过。
// 返回列表的顺序不保证稳定。
func (m *Manager) EnumerateSessions(ctx context.Context) (sessions []AudioSession, err error) {
	ctx, done := m.begin(ctx, opEnumerate)
	defer func() { done(err) }()

	if err := m.ready(); err != nil {
		return nil, err
	}
	m.counters.enumerations.Inc()

	sessions, err = m.enumerate()
	if err != nil {
		log.Ctx(ctx).Warn("failed to enumerate audio sessions", zap.Error(err))
		return nil, err
	}
	log.Ctx(ctx).Debug("enumerated audio sessions",
		zap.Int("sessions", len(sessions)),
		zap.Int("cached", m.cache.Len()))
	return sessions, nil
}

func (m *Manager) enumerate() ([]AudioSession, error) {
	var sessions []AudioSession
	err := m.withDevices(func(scope *mixer.Scope, devices []mixer.Device) error {
		for p := range m.probes(scope, devices) {
			if p.skipped() {
				m.logSkip(p)
				continue
			}
			sessions = append(sessions, m.describe(p))
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	live := typeutil.NewSet(lo.Map(sessions, func(s AudioSession, _ int) string { return s.SessionID })...)
	evicted := m.cache.Retain(live)
	pruned := 0
	for _, s := range sessions {
		pruned += m.cache.Upsert(s)
	}
	pruned += m.cache.Prune()

	metrics.AudioSessionEnumerated.Set(float64(len(sessions)))
	metrics.AudioSessionCacheEvictions.WithLabelValues(metrics.EvictReasonAbsent).Add(float64(evicted))
	metrics.AudioSessionCacheEvictions.WithLabelValues(metrics.EvictReasonPrune).Add(float64(pruned))
	return sessions, nil
}
