package audiosession

import (
	"context"

	"github.com/lk2023060901/mixdeck-go/internal/mixer"
	"github.com/lk2023060901/mixdeck-go/pkg/util/merr"
	"github.com/lk2023060901/mixdeck-go/pkg/util/typeutil"
)

// withEndpoint 每次调用都重新解析默认设备及其主音量接口。
func (m *Manager) withEndpoint(op string, fn func(mixer.VolumeControl) error) error {
	if err := m.ready(); err != nil {
		return err
	}
	m.counters.endpointCalls.Inc()

	return m.apartment.run(func() error {
		scope := mixer.NewScope()
		defer scope.Close()

		enum, err := m.backend.NewEnumerator()
		if err != nil {
			return merr.WrapErrEndpointUnavailable(err, op, "create enumerator")
		}
		scope.Add(enum)

		dev, err := enum.DefaultRenderDevice()
		if err != nil {
			return merr.WrapErrEndpointUnavailable(err, op, "resolve default device")
		}
		scope.Add(dev)

		ev, err := dev.EndpointVolume()
		if err != nil {
			return merr.WrapErrEndpointUnavailable(err, op, "activate endpoint volume")
		}
		scope.Add(ev)

		if err := fn(ev); err != nil {
			return merr.WrapErrEndpointUnavailable(err, op)
		}
		return nil
	})
}

// SystemVolume 返回默认设备的主音量。
func (m *Manager) SystemVolume(ctx context.Context) (volume float32, err error) {
	_, done := m.begin(ctx, opGetSysVolume)
	defer func() { done(err) }()

	err = m.withEndpoint(opGetSysVolume, func(v mixer.VolumeControl) error {
		var err error
		volume, err = v.Volume()
		return err
	})
	return typeutil.Clamp(volume, 0, 1), err
}

// SetSystemVolume 设置默认设备的主音量，超出 [0,1] 的值会被截断。
func (m *Manager) SetSystemVolume(ctx context.Context, volume float32) (err error) {
	_, done := m.begin(ctx, opSetSysVolume)
	defer func() { done(err) }()

	volume = typeutil.Clamp(volume, 0, 1)
	return m.withEndpoint(opSetSysVolume, func(v mixer.VolumeControl) error {
		return v.SetVolume(volume)
	})
}

func (m *Manager) SystemMute(ctx context.Context) (muted bool, err error) {
	_, done := m.begin(ctx, opGetSysMute)
	defer func() { done(err) }()

	err = m.withEndpoint(opGetSysMute, func(v mixer.VolumeControl) error {
		var err error
		muted, err = v.Mute()
		return err
	})
	return muted, err
}

func (m *Manager) SetSystemMute(ctx context.Context, muted bool) (err error) {
	_, done := m.begin(ctx, opSetSysMute)
	defer func() { done(err) }()

	return m.withEndpoint(opSetSysMute, func(v mixer.VolumeControl) error {
		return v.SetMute(muted)
	})
}
