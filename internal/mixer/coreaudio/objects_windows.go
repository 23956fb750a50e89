//go:build windows

package coreaudio

import (
	"unsafe"

	"github.com/cockroachdb/errors"
	"github.com/moutend/go-wca/pkg/wca"

	"github.com/lk2023060901/mixdeck-go/internal/mixer"
)

type enumerator struct {
	mmde *wca.IMMDeviceEnumerator
}

func (e *enumerator) Release() {
	e.mmde.Release()
}

// ActiveRenderDevices 返回所有活动播放设备。
// 单个设备获取失败时返回一个不可用占位对象，由调用方决定是否跳过。
func (e *enumerator) ActiveRenderDevices() ([]mixer.Device, error) {
	var dc *wca.IMMDeviceCollection
	if err := e.mmde.EnumAudioEndpoints(wca.ERender, wca.DEVICE_STATE_ACTIVE, &dc); err != nil {
		return nil, errors.Wrap(err, "EnumAudioEndpoints")
	}
	defer dc.Release()

	var count uint32
	if err := dc.GetCount(&count); err != nil {
		return nil, errors.Wrap(err, "IMMDeviceCollection.GetCount")
	}

	devices := make([]mixer.Device, 0, count)
	for i := uint32(0); i < count; i++ {
		var mmd *wca.IMMDevice
		if err := dc.Item(i, &mmd); err != nil {
			devices = append(devices, mixer.UnavailableDevice(errors.Wrapf(err, "IMMDeviceCollection.Item(%d)", i)))
			continue
		}
		devices = append(devices, &device{mmd: mmd})
	}
	return devices, nil
}

func (e *enumerator) DefaultRenderDevice() (mixer.Device, error) {
	var mmd *wca.IMMDevice
	if err := e.mmde.GetDefaultAudioEndpoint(wca.ERender, wca.EConsole, &mmd); err != nil {
		return nil, errors.Wrap(err, "GetDefaultAudioEndpoint")
	}
	return &device{mmd: mmd}, nil
}

type device struct {
	mmd  *wca.IMMDevice
	asm2 *wca.IAudioSessionManager2
}

func (d *device) Release() {
	if d.asm2 != nil {
		d.asm2.Release()
		d.asm2 = nil
	}
	d.mmd.Release()
}

func (d *device) ID() (string, error) {
	var id string
	if err := d.mmd.GetId(&id); err != nil {
		return "", errors.Wrap(err, "IMMDevice.GetId")
	}
	return id, nil
}

func (d *device) Sessions() ([]mixer.SessionControl, error) {
	if d.asm2 == nil {
		var asm2 *wca.IAudioSessionManager2
		if err := d.mmd.Activate(wca.IID_IAudioSessionManager2, wca.CLSCTX_ALL, nil, &asm2); err != nil {
			return nil, errors.Wrap(err, "activate IAudioSessionManager2")
		}
		d.asm2 = asm2
	}

	var ase *wca.IAudioSessionEnumerator
	if err := d.asm2.GetSessionEnumerator(&ase); err != nil {
		return nil, errors.Wrap(err, "GetSessionEnumerator")
	}
	defer ase.Release()

	var count int
	if err := ase.GetCount(&count); err != nil {
		return nil, errors.Wrap(err, "IAudioSessionEnumerator.GetCount")
	}

	sessions := make([]mixer.SessionControl, 0, count)
	for i := 0; i < count; i++ {
		var asc *wca.IAudioSessionControl
		if err := ase.GetSession(i, &asc); err != nil {
			sessions = append(sessions, mixer.UnavailableSession(errors.Wrapf(err, "GetSession(%d)", i)))
			continue
		}
		dispatch, err := asc.QueryInterface(wca.IID_IAudioSessionControl2)
		asc.Release()
		if err != nil {
			sessions = append(sessions, mixer.UnavailableSession(errors.Wrap(err, "query IAudioSessionControl2")))
			continue
		}
		sessions = append(sessions, &session{asc2: (*wca.IAudioSessionControl2)(unsafe.Pointer(dispatch))})
	}
	return sessions, nil
}

func (d *device) EndpointVolume() (mixer.VolumeControl, error) {
	var aev *wca.IAudioEndpointVolume
	if err := d.mmd.Activate(wca.IID_IAudioEndpointVolume, wca.CLSCTX_ALL, nil, &aev); err != nil {
		return nil, errors.Wrap(err, "activate IAudioEndpointVolume")
	}
	return &endpointVolume{aev: aev}, nil
}

type session struct {
	asc2 *wca.IAudioSessionControl2
}

func (s *session) Release() {
	s.asc2.Release()
}

func (s *session) ProcessID() (uint32, error) {
	var pid uint32
	if err := s.asc2.GetProcessId(&pid); err != nil && oleCode(err) != audclntSNoSingleProcess {
		return 0, errors.Wrap(err, "GetProcessId")
	}
	return pid, nil
}

func (s *session) InstanceID() (string, error) {
	var id string
	if err := s.asc2.GetSessionInstanceIdentifier(&id); err != nil {
		return "", errors.Wrap(err, "GetSessionInstanceIdentifier")
	}
	return id, nil
}

func (s *session) DisplayName() (string, error) {
	var name string
	if err := s.asc2.GetDisplayName(&name); err != nil {
		return "", errors.Wrap(err, "GetDisplayName")
	}
	return name, nil
}

func (s *session) SimpleVolume() (mixer.VolumeControl, error) {
	dispatch, err := s.asc2.QueryInterface(wca.IID_ISimpleAudioVolume)
	if err != nil {
		return nil, errors.Wrap(err, "query ISimpleAudioVolume")
	}
	return &sessionVolume{sav: (*wca.ISimpleAudioVolume)(unsafe.Pointer(dispatch))}, nil
}

type sessionVolume struct {
	sav *wca.ISimpleAudioVolume
}

func (v *sessionVolume) Release() { v.sav.Release() }

func (v *sessionVolume) Volume() (float32, error) {
	var level float32
	err := v.sav.GetMasterVolume(&level)
	return level, err
}

func (v *sessionVolume) SetVolume(level float32) error {
	return v.sav.SetMasterVolume(level, nil)
}

func (v *sessionVolume) Mute() (bool, error) {
	var muted bool
	err := v.sav.GetMute(&muted)
	return muted, err
}

func (v *sessionVolume) SetMute(muted bool) error {
	return v.sav.SetMute(muted, nil)
}

type endpointVolume struct {
	aev *wca.IAudioEndpointVolume
}

func (v *endpointVolume) Release() { v.aev.Release() }

func (v *endpointVolume) Volume() (float32, error) {
	var level float32
	err := v.aev.GetMasterVolumeLevelScalar(&level)
	return level, err
}

func (v *endpointVolume) SetVolume(level float32) error {
	return v.aev.SetMasterVolumeLevelScalar(level, nil)
}

func (v *endpointVolume) Mute() (bool, error) {
	var muted bool
	err := v.aev.GetMute(&muted)
	return muted, err
}

func (v *endpointVolume) SetMute(muted bool) error {
	return v.aev.SetMute(muted, nil)
}
