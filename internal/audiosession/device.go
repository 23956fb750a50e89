package audiosession

import (
	"context"

	"go.uber.org/zap"

	"github.com/lk2023060901/mixdeck-go/internal/mixer"
	"github.com/lk2023060901/mixdeck-go/pkg/log"
	"github.com/lk2023060901/mixdeck-go/pkg/util/merr"
)

// defaultDeviceID 在套间线程上解析当前默认播放设备的标识。
func (m *Manager) defaultDeviceID() (string, error) {
	return call(m.apartment, func() (string, error) {
		scope := mixer.NewScope()
		defer scope.Close()

		enum, err := m.backend.NewEnumerator()
		if err != nil {
			return "", merr.WrapErrEnumeratorUnavailable(err)
		}
		scope.Add(enum)

		dev, err := enum.DefaultRenderDevice()
		if err != nil {
			return "", merr.WrapErrDeviceNotFound(err)
		}
		scope.Add(dev)

		id, err := dev.ID()
		if err != nil {
			return "", merr.WrapErrDeviceUnavailable("default", err)
		}
		return id, nil
	})
}

// DefaultDeviceID 返回当前默认播放设备的标识，不修改记录的设备。
func (m *Manager) DefaultDeviceID(ctx context.Context) (id string, err error) {
	_, done := m.begin(ctx, opDefaultDev)
	defer func() { done(err) }()

	if err := m.ready(); err != nil {
		return "", err
	}
	return m.defaultDeviceID()
}

// CheckDeviceChanged 比较当前默认设备与记录的设备，不同则更新记录并返回 true。
// 设备标识只在进程生命周期内按字符串比较。
func (m *Manager) CheckDeviceChanged(ctx context.Context) (changed bool, err error) {
	ctx, done := m.begin(ctx, opCheckDevice)
	defer func() { done(err) }()

	if err := m.ready(); err != nil {
		return false, err
	}
	m.counters.deviceChecks.Inc()

	id, err := m.defaultDeviceID()
	if err != nil {
		return false, err
	}
	if id == m.deviceID {
		return false, nil
	}
	log.Ctx(ctx).Info("default render device changed",
		zap.String("from", m.deviceID), zap.String("to", id))
	m.deviceID = id
	return true, nil
}
