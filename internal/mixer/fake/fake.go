// Package fake 提供一个纯内存的混音器实现，支持按设备、按会话注入故障。
package fake

import (
	"sync"

	"github.com/cockroachdb/errors"
	"github.com/samber/lo"

	"github.com/lk2023060901/mixdeck-go/internal/mixer"
)

var (
	ErrNoDefaultDevice = errors.New("fake: no default render device")
	ErrDeviceGone      = errors.New("fake: device gone")
	ErrSessionExpired  = errors.New("fake: session expired")
)

var _ mixer.Backend = (*Mixer)(nil)

// Session 描述一个虚拟会话的状态。带 Err 后缀的字段用于注入故障。
type Session struct {
	PID         uint32
	InstanceID  string
	DisplayName string
	Volume      float32
	Muted       bool

	PIDErr      error
	InstanceErr error
	NameErr     error
	VolumeErr   error // SimpleVolume 不可用
	SetErr      error // 读写音量/静音失败
}

// Device 描述一个虚拟播放设备。
type Device struct {
	ID       string
	Volume   float32
	Muted    bool
	Inactive bool
	Sessions []*Session

	IDErr       error
	ActivateErr error
	EndpointErr error
}

// Mixer 是 mixer.Backend 的内存实现，所有方法并发安全。
type Mixer struct {
	mu        sync.Mutex
	devices   []*Device
	defaultID string

	initErr error
	enumErr error

	inits    int
	uninits  int
	acquired int
	released int
}

func New() *Mixer {
	return &Mixer{}
}

func (m *Mixer) Name() string { return "fake" }

func (m *Mixer) Init() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.initErr != nil {
		return m.initErr
	}
	m.inits++
	return nil
}

func (m *Mixer) Uninit() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.uninits++
}

func (m *Mixer) NewEnumerator() (mixer.Enumerator, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.enumErr != nil {
		return nil, m.enumErr
	}
	m.acquired++
	return &enumerator{releaser: releaser{m: m}}, nil
}

// AddDevice 添加一个设备，第一个添加的设备成为默认设备。
func (m *Mixer) AddDevice(id string, sessions ...*Session) *Device {
	m.mu.Lock()
	defer m.mu.Unlock()
	d := &Device{ID: id, Volume: 1, Sessions: sessions}
	m.devices = append(m.devices, d)
	if m.defaultID == "" {
		m.defaultID = id
	}
	return d
}

// AddSession 向已有设备添加会话。
func (m *Mixer) AddSession(deviceID string, s *Session) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if d := m.device(deviceID); d != nil {
		d.Sessions = append(d.Sessions, s)
	}
}

// RemoveSession 从所有设备上移除指定实例的会话。
func (m *Mixer) RemoveSession(instanceID string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, d := range m.devices {
		d.Sessions = lo.Reject(d.Sessions, func(s *Session, _ int) bool {
			return s.InstanceID == instanceID
		})
	}
}

// SetDefault 切换默认设备，传入空串表示没有默认设备。
func (m *Mixer) SetDefault(id string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.defaultID = id
}

func (m *Mixer) FailInit(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.initErr = err
}

func (m *Mixer) FailEnumerator(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.enumErr = err
}

// Update 在锁内修改设备与会话状态。
func (m *Mixer) Update(fn func()) {
	m.mu.Lock()
	defer m.mu.Unlock()
	fn()
}

// Session 返回指定实例会话的状态拷贝。
func (m *Mixer) Session(instanceID string) (Session, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, d := range m.devices {
		for _, s := range d.Sessions {
			if s.InstanceID == instanceID {
				return *s, true
			}
		}
	}
	return Session{}, false
}

// Endpoint 返回指定设备的主音量与静音状态。
func (m *Mixer) Endpoint(deviceID string) (float32, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if d := m.device(deviceID); d != nil {
		return d.Volume, d.Muted
	}
	return 0, false
}

func (m *Mixer) Inits() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.inits
}

func (m *Mixer) Uninits() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.uninits
}

// Outstanding 返回已获取但尚未释放的对象数量。
func (m *Mixer) Outstanding() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.acquired - m.released
}

func (m *Mixer) device(id string) *Device {
	d, _ := lo.Find(m.devices, func(d *Device) bool { return d.ID == id })
	return d
}

type releaser struct {
	m    *Mixer
	once sync.Once
}

func (r *releaser) Release() {
	r.once.Do(func() {
		r.m.mu.Lock()
		r.m.released++
		r.m.mu.Unlock()
	})
}

type enumerator struct {
	releaser
}

func (e *enumerator) ActiveRenderDevices() ([]mixer.Device, error) {
	m := e.m
	m.mu.Lock()
	defer m.mu.Unlock()
	active := lo.Filter(m.devices, func(d *Device, _ int) bool { return !d.Inactive })
	m.acquired += len(active)
	return lo.Map(active, func(d *Device, _ int) mixer.Device {
		return &device{releaser: releaser{m: m}, d: d}
	}), nil
}

func (e *enumerator) DefaultRenderDevice() (mixer.Device, error) {
	m := e.m
	m.mu.Lock()
	defer m.mu.Unlock()
	d := m.device(m.defaultID)
	if d == nil || d.Inactive {
		return nil, ErrNoDefaultDevice
	}
	m.acquired++
	return &device{releaser: releaser{m: m}, d: d}, nil
}

type device struct {
	releaser
	d *Device
}

func (d *device) ID() (string, error) {
	d.m.mu.Lock()
	defer d.m.mu.Unlock()
	if d.d.IDErr != nil {
		return "", d.d.IDErr
	}
	return d.d.ID, nil
}

func (d *device) Sessions() ([]mixer.SessionControl, error) {
	m := d.m
	m.mu.Lock()
	defer m.mu.Unlock()
	if d.d.ActivateErr != nil {
		return nil, d.d.ActivateErr
	}
	m.acquired += len(d.d.Sessions)
	return lo.Map(d.d.Sessions, func(s *Session, _ int) mixer.SessionControl {
		return &session{releaser: releaser{m: m}, s: s}
	}), nil
}

func (d *device) EndpointVolume() (mixer.VolumeControl, error) {
	m := d.m
	m.mu.Lock()
	defer m.mu.Unlock()
	if d.d.EndpointErr != nil {
		return nil, d.d.EndpointErr
	}
	m.acquired++
	return &volume{
		releaser: releaser{m: m},
		vol:      &d.d.Volume,
		muted:    &d.d.Muted,
		err:      func() error { return nil },
	}, nil
}

type session struct {
	releaser
	s *Session
}

func (s *session) ProcessID() (uint32, error) {
	s.m.mu.Lock()
	defer s.m.mu.Unlock()
	return s.s.PID, s.s.PIDErr
}

func (s *session) InstanceID() (string, error) {
	s.m.mu.Lock()
	defer s.m.mu.Unlock()
	if s.s.InstanceErr != nil {
		return "", s.s.InstanceErr
	}
	return s.s.InstanceID, nil
}

func (s *session) DisplayName() (string, error) {
	s.m.mu.Lock()
	defer s.m.mu.Unlock()
	if s.s.NameErr != nil {
		return "", s.s.NameErr
	}
	return s.s.DisplayName, nil
}

func (s *session) SimpleVolume() (mixer.VolumeControl, error) {
	m := s.m
	m.mu.Lock()
	defer m.mu.Unlock()
	if s.s.VolumeErr != nil {
		return nil, s.s.VolumeErr
	}
	m.acquired++
	state := s.s
	return &volume{
		releaser: releaser{m: m},
		vol:      &state.Volume,
		muted:    &state.Muted,
		err:      func() error { return state.SetErr },
	}, nil
}

type volume struct {
	releaser
	vol   *float32
	muted *bool
	err   func() error
}

func (v *volume) Volume() (float32, error) {
	v.m.mu.Lock()
	defer v.m.mu.Unlock()
	if err := v.err(); err != nil {
		return 0, err
	}
	return *v.vol, nil
}

func (v *volume) SetVolume(f float32) error {
	v.m.mu.Lock()
	defer v.m.mu.Unlock()
	if err := v.err(); err != nil {
		return err
	}
	*v.vol = f
	return nil
}

func (v *volume) Mute() (bool, error) {
	v.m.mu.Lock()
	defer v.m.mu.Unlock()
	if err := v.err(); err != nil {
		return false, err
	}
	return *v.muted, nil
}

func (v *volume) SetMute(b bool) error {
	v.m.mu.Lock()
	defer v.m.mu.Unlock()
	if err := v.err(); err != nil {
		return err
	}
	*v.muted = b
	return nil
}
