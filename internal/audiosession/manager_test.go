package audiosession

import (
	"context"
	"fmt"
	"sync"
	"testing"

	"github.com/cockroachdb/errors"
	"github.com/stretchr/testify/suite"

	"github.com/lk2023060901/mixdeck-go/internal/mixer/fake"
	"github.com/lk2023060901/mixdeck-go/pkg/util/merr"
)

var testProcesses = map[uint32]string{
	4242: "Discord.exe",
	100:  "firefox.exe",
}

func testResolver() ProcessResolver {
	return ProcessResolverFunc(func(pid uint32) string {
		if pid == 0 {
			return SystemProcessName
		}
		if name, ok := testProcesses[pid]; ok {
			return name
		}
		return fallbackProcessName(pid)
	})
}

type ManagerSuite struct {
	suite.Suite

	ctx   context.Context
	mixer *fake.Mixer
	m     *Manager
}

func (s *ManagerSuite) SetupTest() {
	s.ctx = context.Background()
	s.mixer = fake.New()
	s.mixer.AddDevice("dev-a",
		&fake.Session{PID: 4242, InstanceID: "a-discord", DisplayName: "Discord", Volume: 0.8},
		&fake.Session{PID: 100, InstanceID: "a-firefox", Volume: 0.5},
		&fake.Session{PID: 0, InstanceID: "a-system", DisplayName: "System Sounds", Volume: 1},
	)
	s.mixer.AddDevice("dev-b",
		&fake.Session{PID: 4242, InstanceID: "b-discord", DisplayName: "Discord", Volume: 0.6},
	)
	broken := s.mixer.AddDevice("dev-c",
		&fake.Session{PID: 7, InstanceID: "c-hidden", Volume: 1},
	)
	s.mixer.Update(func() { broken.ActivateErr = errors.New("E_ACCESSDENIED") })

	s.m = NewManager(s.mixer, WithProcessResolver(testResolver()), WithCacheCapacity(8))
	_, err := s.m.Initialize(s.ctx)
	s.Require().NoError(err)
}

func (s *ManagerSuite) TearDownTest() {
	s.m.Close(s.ctx)
	s.Equal(0, s.mixer.Outstanding(), "mixer objects leaked")
}

func (s *ManagerSuite) enumerate() []AudioSession {
	sessions, err := s.m.EnumerateSessions(s.ctx)
	s.Require().NoError(err)
	return sessions
}

func (s *ManagerSuite) TestNotInitialized() {
	m := NewManager(fake.New())
	defer m.Close(s.ctx)

	_, err := m.EnumerateSessions(s.ctx)
	s.ErrorIs(err, merr.ErrServiceNotReady)
	s.ErrorIs(m.SetSessionVolume(s.ctx, "x", 0.5), merr.ErrServiceNotReady)
	s.ErrorIs(m.SetSessionMute(s.ctx, "x", true), merr.ErrServiceNotReady)
	_, err = m.SystemVolume(s.ctx)
	s.ErrorIs(err, merr.ErrServiceNotReady)
	s.ErrorIs(m.SetSystemVolume(s.ctx, 0.5), merr.ErrServiceNotReady)
	_, err = m.SystemMute(s.ctx)
	s.ErrorIs(err, merr.ErrServiceNotReady)
	s.ErrorIs(m.SetSystemMute(s.ctx, true), merr.ErrServiceNotReady)
	_, err = m.CheckDeviceChanged(s.ctx)
	s.ErrorIs(err, merr.ErrServiceNotReady)
	_, err = m.DefaultDeviceID(s.ctx)
	s.ErrorIs(err, merr.ErrServiceNotReady)
	s.Contains(err.Error(), "not initialized")

	s.NotEmpty(m.Cleanup(s.ctx))
	s.False(m.Stats().Initialized)
}

func (s *ManagerSuite) TestInitialize() {
	stats := s.m.Stats()
	s.True(stats.Initialized)
	s.Equal("dev-a", stats.DeviceID)

	status, err := s.m.Initialize(s.ctx)
	s.NoError(err)
	s.Contains(status, "fake")
	s.Equal(1, s.mixer.Inits())
}

func (s *ManagerSuite) TestInitializeFailure() {
	fx := fake.New()
	fx.FailInit(errors.New("CO_E_NOTINITIALIZED"))
	m := NewManager(fx)
	defer m.Close(s.ctx)

	_, err := m.Initialize(s.ctx)
	s.ErrorIs(err, merr.ErrServiceUnavailable)
	s.False(m.Stats().Initialized)

	fx.FailInit(nil)
	_, err = m.Initialize(s.ctx)
	s.NoError(err)
	// 没有默认设备不影响初始化
	s.Equal("", m.Stats().DeviceID)
}

func (s *ManagerSuite) TestEnumerate() {
	sessions := s.enumerate()

	s.ElementsMatch([]string{"a-discord", "a-firefox", "b-discord"}, ids(sessions))
	for _, session := range sessions {
		s.NotZero(session.ProcessID)
		s.NotEmpty(session.ProcessName)
	}
	s.ElementsMatch(ids(sessions), ids(s.m.Sessions()))

	firefox, ok := s.m.Session("a-firefox")
	s.Require().True(ok)
	s.Equal("Process 100", firefox.DisplayName)
	s.Equal("firefox.exe", firefox.ProcessName)
	s.Equal("dev-a", firefox.DeviceID)
	s.InDelta(0.5, firefox.Volume, 1e-6)
	s.Equal(int64(1), s.m.Stats().Enumerations)
}

func (s *ManagerSuite) TestEnumerateFallbacks() {
	s.mixer.AddSession("dev-b", &fake.Session{
		PID:         31337,
		InstanceErr: errors.New("E_FAIL"),
		NameErr:     errors.New("E_FAIL"),
		Volume:      0.4,
	})
	s.mixer.AddSession("dev-b", &fake.Session{PID: 55, InstanceID: "b-novolume", VolumeErr: errors.New("E_NOINTERFACE")})
	s.mixer.AddSession("dev-b", &fake.Session{PID: 56, InstanceID: "b-nopid", PIDErr: errors.New("E_FAIL")})
	s.mixer.AddSession("dev-b", &fake.Session{PID: 57, InstanceID: "b-unreadable", SetErr: errors.New("E_FAIL")})

	sessions := s.enumerate()
	s.ElementsMatch([]string{"a-discord", "a-firefox", "b-discord", "session_1", "b-unreadable"}, ids(sessions))

	fallback, ok := s.m.Session("session_1")
	s.Require().True(ok)
	s.Equal("Process 31337", fallback.DisplayName)
	s.Equal("Process 31337", fallback.ProcessName)

	unreadable, _ := s.m.Session("b-unreadable")
	s.Equal(float32(1), unreadable.Volume)
	s.False(unreadable.IsMuted)
}

func (s *ManagerSuite) TestFallbackIDSharedAcrossDevices() {
	fx := fake.New()
	fx.AddDevice("dev-x", &fake.Session{PID: 1, InstanceErr: errors.New("E_FAIL"), Volume: 0.9})
	fx.AddDevice("dev-y", &fake.Session{PID: 2, InstanceErr: errors.New("E_FAIL"), Volume: 0.7})
	m := NewManager(fx, WithProcessResolver(testResolver()))
	defer m.Close(s.ctx)
	_, err := m.Initialize(s.ctx)
	s.Require().NoError(err)

	sessions, err := m.EnumerateSessions(s.ctx)
	s.Require().NoError(err)
	s.Equal([]string{"session_0", "session_0"}, ids(sessions))
	s.Equal(1, m.Stats().CachedSessions)

	// 缓存保留最后遍历到的设备上的会话，扇出只作用于该进程
	cached, ok := m.Session("session_0")
	s.Require().True(ok)
	s.Equal(uint32(2), cached.ProcessID)
	s.Equal("dev-y", cached.DeviceID)

	s.Require().NoError(m.SetSessionVolume(s.ctx, "session_0", 0.3))
	sessions, err = m.EnumerateSessions(s.ctx)
	s.Require().NoError(err)
	volumes := make(map[uint32]float32, len(sessions))
	for _, session := range sessions {
		volumes[session.ProcessID] = session.Volume
	}
	s.InDelta(0.9, volumes[1], 1e-6)
	s.InDelta(0.3, volumes[2], 1e-6)
	s.Zero(fx.Outstanding())
}

func (s *ManagerSuite) TestEnumeratorFailure() {
	s.enumerate()
	s.mixer.FailEnumerator(errors.New("REGDB_E_CLASSNOTREG"))

	_, err := s.m.EnumerateSessions(s.ctx)
	s.ErrorIs(err, merr.ErrEnumeratorUnavailable)
	s.Contains(err.Error(), "failed to create device enumerator")
	// 失败的枚举不改动缓存
	s.Len(s.m.Sessions(), 3)
}

func (s *ManagerSuite) TestEvictAbsentSessions() {
	s.enumerate()
	s.mixer.RemoveSession("a-firefox")

	sessions := s.enumerate()
	s.ElementsMatch([]string{"a-discord", "b-discord"}, ids(sessions))
	_, ok := s.m.Session("a-firefox")
	s.False(ok)
	s.ElementsMatch(ids(sessions), ids(s.m.Sessions()))
}

func (s *ManagerSuite) TestCacheCap() {
	fx := fake.New()
	fx.AddDevice("dev")
	for i := 0; i < 10; i++ {
		fx.AddSession("dev", &fake.Session{PID: uint32(i + 1), InstanceID: fmt.Sprintf("s-%d", i), Volume: 1})
	}
	m := NewManager(fx, WithProcessResolver(testResolver()), WithCacheCapacity(4))
	defer m.Close(s.ctx)
	_, err := m.Initialize(s.ctx)
	s.Require().NoError(err)

	sessions, err := m.EnumerateSessions(s.ctx)
	s.Require().NoError(err)
	s.Len(sessions, 10)
	s.LessOrEqual(len(m.Sessions()), 4)
	s.LessOrEqual(m.Stats().CachedSessions, 4)
}

func (s *ManagerSuite) TestSetSessionMuteFansOut() {
	s.enumerate()

	s.Require().NoError(s.m.SetSessionMute(s.ctx, "a-discord", true))

	for _, id := range []string{"a-discord", "b-discord"} {
		live, ok := s.mixer.Session(id)
		s.Require().True(ok)
		s.True(live.Muted, id)
	}
	firefox, _ := s.mixer.Session("a-firefox")
	s.False(firefox.Muted)

	cached, _ := s.m.Session("a-discord")
	s.True(cached.IsMuted)
	// 同进程的其他会话要到下一次枚举才会刷新缓存
	sibling, _ := s.m.Session("b-discord")
	s.False(sibling.IsMuted)

	s.enumerate()
	sibling, _ = s.m.Session("b-discord")
	s.True(sibling.IsMuted)
}

func (s *ManagerSuite) TestSetSessionVolumeClamps() {
	s.enumerate()

	s.Require().NoError(s.m.SetSessionVolume(s.ctx, "b-discord", 1.7))
	live, _ := s.mixer.Session("a-discord")
	s.Equal(float32(1), live.Volume)
	cached, _ := s.m.Session("b-discord")
	s.Equal(float32(1), cached.Volume)

	s.Require().NoError(s.m.SetSessionVolume(s.ctx, "b-discord", -0.3))
	live, _ = s.mixer.Session("b-discord")
	s.Equal(float32(0), live.Volume)
	cached, _ = s.m.Session("b-discord")
	s.Equal(float32(0), cached.Volume)
}

func (s *ManagerSuite) TestUnknownSession() {
	s.enumerate()
	before := s.m.Sessions()

	err := s.m.SetSessionVolume(s.ctx, "nope", 0.5)
	s.ErrorIs(err, merr.ErrSessionNotFound)
	s.NotErrorIs(err, merr.ErrSessionNoLiveMatch)
	s.ErrorIs(s.m.SetSessionMute(s.ctx, "nope", true), merr.ErrSessionNotFound)

	s.ElementsMatch(before, s.m.Sessions())
}

func (s *ManagerSuite) TestNoLiveMatch() {
	s.enumerate()
	s.mixer.RemoveSession("a-discord")
	s.mixer.RemoveSession("b-discord")

	err := s.m.SetSessionVolume(s.ctx, "a-discord", 0.1)
	s.ErrorIs(err, merr.ErrSessionNoLiveMatch)
	s.NotErrorIs(err, merr.ErrSessionNotFound)
	s.Contains(err.Error(), "no sessions found for process")

	cached, ok := s.m.Session("a-discord")
	s.True(ok)
	s.InDelta(0.8, cached.Volume, 1e-6)
}

func (s *ManagerSuite) TestPartialApplySucceeds() {
	s.enumerate()
	s.mixer.RemoveSession("b-discord")
	s.mixer.AddSession("dev-b", &fake.Session{PID: 4242, InstanceID: "b-discord", Volume: 0.6, SetErr: errors.New("AUDCLNT_E_DEVICE_INVALIDATED")})

	s.NoError(s.m.SetSessionVolume(s.ctx, "a-discord", 0.25))
	live, _ := s.mixer.Session("a-discord")
	s.InDelta(0.25, live.Volume, 1e-6)
	broken, _ := s.mixer.Session("b-discord")
	s.InDelta(0.6, broken.Volume, 1e-6)
}

func (s *ManagerSuite) TestCheckDeviceChanged() {
	changed, err := s.m.CheckDeviceChanged(s.ctx)
	s.NoError(err)
	s.False(changed)
	changed, err = s.m.CheckDeviceChanged(s.ctx)
	s.NoError(err)
	s.False(changed)

	s.mixer.SetDefault("dev-b")
	changed, err = s.m.CheckDeviceChanged(s.ctx)
	s.NoError(err)
	s.True(changed)
	s.Equal("dev-b", s.m.Stats().DeviceID)

	changed, err = s.m.CheckDeviceChanged(s.ctx)
	s.NoError(err)
	s.False(changed)

	id, err := s.m.DefaultDeviceID(s.ctx)
	s.NoError(err)
	s.Equal("dev-b", id)

	s.mixer.SetDefault("")
	_, err = s.m.CheckDeviceChanged(s.ctx)
	s.ErrorIs(err, merr.ErrDeviceNotFound)
}

func (s *ManagerSuite) TestSystemEndpoint() {
	s.Require().NoError(s.m.SetSystemVolume(s.ctx, 2))
	vol, _ := s.mixer.Endpoint("dev-a")
	s.Equal(float32(1), vol)

	s.Require().NoError(s.m.SetSystemVolume(s.ctx, 0.3))
	got, err := s.m.SystemVolume(s.ctx)
	s.NoError(err)
	s.InDelta(0.3, got, 1e-6)

	s.Require().NoError(s.m.SetSystemMute(s.ctx, true))
	muted, err := s.m.SystemMute(s.ctx)
	s.NoError(err)
	s.True(muted)

	// 每次调用都重新解析默认设备
	s.mixer.SetDefault("dev-b")
	muted, err = s.m.SystemMute(s.ctx)
	s.NoError(err)
	s.False(muted)

	s.mixer.SetDefault("")
	_, err = s.m.SystemVolume(s.ctx)
	s.ErrorIs(err, merr.ErrEndpointUnavailable)
	s.Equal(int64(7), s.m.Stats().EndpointCalls)
}

func (s *ManagerSuite) TestEndpointActivationFailure() {
	dev := s.mixer.AddDevice("dev-d")
	s.mixer.Update(func() { dev.EndpointErr = errors.New("E_NOINTERFACE") })
	s.mixer.SetDefault("dev-d")

	s.ErrorIs(s.m.SetSystemMute(s.ctx, true), merr.ErrEndpointUnavailable)
}

func (s *ManagerSuite) TestCleanupTwice() {
	s.enumerate()
	_, _ = s.m.CheckDeviceChanged(s.ctx)

	s.NotEmpty(s.m.Cleanup(s.ctx))
	s.Empty(s.m.Sessions())
	s.NotEmpty(s.m.Cleanup(s.ctx))
	s.Empty(s.m.Sessions())

	stats := s.m.Stats()
	s.Zero(stats.Enumerations)
	s.Zero(stats.DeviceChecks)
	s.Equal("", stats.DeviceID)
	// Cleanup 不撤销初始化
	s.True(stats.Initialized)
	s.enumerate()
}

func (s *ManagerSuite) TestClose() {
	s.enumerate()
	s.m.Close(s.ctx)
	s.m.Close(s.ctx)
	s.Equal(1, s.mixer.Uninits())

	_, err := s.m.EnumerateSessions(s.ctx)
	s.ErrorIs(err, merr.ErrServiceClosed)
	_, err = s.m.Initialize(s.ctx)
	s.ErrorIs(err, merr.ErrServiceClosed)
	s.Empty(s.m.Sessions())
}

func (s *ManagerSuite) TestConcurrentCallers() {
	s.enumerate()

	var wg sync.WaitGroup
	errs := make(chan error, 40)
	for i := 0; i < 10; i++ {
		wg.Add(4)
		go func() {
			defer wg.Done()
			_, err := s.m.EnumerateSessions(s.ctx)
			errs <- err
		}()
		go func(i int) {
			defer wg.Done()
			errs <- s.m.SetSessionMute(s.ctx, "a-discord", i%2 == 0)
		}(i)
		go func() {
			defer wg.Done()
			_, err := s.m.CheckDeviceChanged(s.ctx)
			errs <- err
		}()
		go func() {
			defer wg.Done()
			_, err := s.m.SystemVolume(s.ctx)
			errs <- err
		}()
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		s.NoError(err)
	}
}

func TestManager(t *testing.T) {
	suite.Run(t, new(ManagerSuite))
}
