package fake

import (
	"testing"

	"github.com/cockroachdb/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lk2023060901/mixdeck-go/internal/mixer"
)

func TestFakeMixer(t *testing.T) {
	m := New()
	m.AddDevice("dev-a", &Session{PID: 7, InstanceID: "a-1", Volume: 0.5})
	m.AddDevice("dev-b")
	m.AddSession("dev-b", &Session{PID: 7, InstanceID: "b-1", Volume: 0.2})

	require.NoError(t, m.Init())
	scope := mixer.NewScope()

	enum, err := m.NewEnumerator()
	require.NoError(t, err)
	scope.Add(enum)

	devices, err := enum.ActiveRenderDevices()
	require.NoError(t, err)
	mixer.KeepAll(scope, devices)
	assert.Len(t, devices, 2)

	sessions, err := devices[1].Sessions()
	require.NoError(t, err)
	mixer.KeepAll(scope, sessions)
	require.Len(t, sessions, 1)

	vol := mixer.Keep(scope, mustVolume(sessions[0].SimpleVolume()))
	require.NoError(t, vol.SetMute(true))

	def, err := enum.DefaultRenderDevice()
	require.NoError(t, err)
	scope.Add(def)
	id, _ := def.ID()
	assert.Equal(t, "dev-a", id)

	assert.Positive(t, m.Outstanding())
	scope.Close()
	assert.Equal(t, 0, m.Outstanding())

	s, ok := m.Session("b-1")
	require.True(t, ok)
	assert.True(t, s.Muted)
}

func TestFakeMixerFailures(t *testing.T) {
	m := New()
	boom := errors.New("boom")

	m.FailInit(boom)
	assert.ErrorIs(t, m.Init(), boom)

	m.FailEnumerator(boom)
	_, err := m.NewEnumerator()
	assert.ErrorIs(t, err, boom)
	m.FailEnumerator(nil)

	enum, err := m.NewEnumerator()
	require.NoError(t, err)
	defer enum.Release()
	_, err = enum.DefaultRenderDevice()
	assert.ErrorIs(t, err, ErrNoDefaultDevice)
}

func mustVolume(v mixer.VolumeControl, err error) mixer.VolumeControl {
	if err != nil {
		panic(err)
	}
	return v
}
