package audiosession

import (
	"context"

	"go.uber.org/zap"

	"github.com/lk2023060901/mixdeck-go/internal/mixer"
	"github.com/lk2023060901/mixdeck-go/pkg/log"
	"github.com/lk2023060901/mixdeck-go/pkg/metrics"
	"github.com/lk2023060901/mixdeck-go/pkg/util/merr"
	"github.com/lk2023060901/mixdeck-go/pkg/util/typeutil"
)

// SetSessionVolume 将音量（截断到 [0,1]）应用到与该会话同进程的所有活动会话上，
// 包括其他设备上的会话，并更新该会话的缓存条目。
//
// 会话不在缓存中时返回 merr.ErrSessionNotFound 且缓存不变；
// 没有任何活动会话应用成功时返回 merr.ErrSessionNoLiveMatch。
// 部分会话失败时仍视为成功。
func (m *Manager) SetSessionVolume(ctx context.Context, sessionID string, volume float32) (err error) {
	ctx, done := m.begin(ctx, opSessionVol)
	defer func() { done(err) }()

	volume = typeutil.Clamp(volume, 0, 1)
	return m.fanOut(ctx, opSessionVol, sessionID,
		func(v mixer.VolumeControl) error { return v.SetVolume(volume) },
		func(s *AudioSession) { s.Volume = volume },
	)
}

// SetSessionMute 与 SetSessionVolume 相同，作用于静音状态。
func (m *Manager) SetSessionMute(ctx context.Context, sessionID string, muted bool) (err error) {
	ctx, done := m.begin(ctx, opSessionMute)
	defer func() { done(err) }()

	return m.fanOut(ctx, opSessionMute, sessionID,
		func(v mixer.VolumeControl) error { return v.SetMute(muted) },
		func(s *AudioSession) { s.IsMuted = muted },
	)
}

func (m *Manager) fanOut(
	ctx context.Context,
	op string,
	sessionID string,
	apply func(mixer.VolumeControl) error,
	update func(*AudioSession),
) error {
	if err := m.ready(); err != nil {
		return err
	}
	m.counters.sessionCommands.Inc()

	target, ok := m.cache.Get(sessionID)
	if !ok {
		return merr.WrapErrSessionNotFound(sessionID, op)
	}

	logger := log.Ctx(ctx).With(log.FieldSessionID(sessionID), log.FieldProcessID(target.ProcessID))
	applied, failed := 0, 0
	err := m.withDevices(func(scope *mixer.Scope, devices []mixer.Device) error {
		for p := range m.probes(scope, devices) {
			if p.skipped() || p.pid != target.ProcessID {
				continue
			}
			if err := apply(p.volume); err != nil {
				failed++
				metrics.AudioSessionFanOut.WithLabelValues(op, metrics.FailLabel).Inc()
				logger.Debug("failed to apply to sibling session",
					log.FieldDeviceID(p.deviceID), zap.Int("index", p.index), zap.Error(err))
				continue
			}
			applied++
			metrics.AudioSessionFanOut.WithLabelValues(op, metrics.SuccessLabel).Inc()
		}
		return nil
	})
	if err != nil {
		return err
	}

	if applied == 0 {
		return merr.WrapErrSessionNoLiveMatch(target.ProcessID, op)
	}
	m.cache.Update(sessionID, update)
	if failed > 0 {
		logger.Warn("partially applied to process sessions",
			zap.String("op", op), zap.Int("applied", applied), zap.Int("failed", failed))
	} else {
		logger.Debug("applied to process sessions", zap.String("op", op), zap.Int("applied", applied))
	}
	return nil
}
