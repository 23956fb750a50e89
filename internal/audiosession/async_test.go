package audiosession

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lk2023060901/mixdeck-go/internal/mixer/fake"
	"github.com/lk2023060901/mixdeck-go/pkg/util/conc"
	"github.com/lk2023060901/mixdeck-go/pkg/util/merr"
)

func TestAsync(t *testing.T) {
	ctx := context.Background()
	fx := fake.New()
	fx.AddDevice("dev", &fake.Session{PID: 9, InstanceID: "s-9", Volume: 0.4})
	m := NewManager(fx, WithProcessResolver(testResolver()))
	defer m.Close(ctx)

	a := NewAsync(m, 2)
	defer a.Release()

	_, err := a.EnumerateSessions(ctx).Await()
	assert.ErrorIs(t, err, merr.ErrServiceNotReady)

	status, err := a.Initialize(ctx).Await()
	require.NoError(t, err)
	assert.NotEmpty(t, status)

	sessions, err := a.EnumerateSessions(ctx).Await()
	require.NoError(t, err)
	require.Len(t, sessions, 1)

	futures := []*conc.Future[string]{
		a.SetSessionVolume(ctx, "s-9", 0.9),
		a.SetSessionMute(ctx, "s-9", true),
	}
	require.NoError(t, conc.AwaitAll(futures...))
	live, _ := fx.Session("s-9")
	assert.InDelta(t, 0.9, live.Volume, 1e-6)
	assert.True(t, live.Muted)

	_, err = a.SetSystemVolume(ctx, 0.2).Await()
	require.NoError(t, err)
	vol, err := a.SystemVolume(ctx).Await()
	require.NoError(t, err)
	assert.InDelta(t, 0.2, vol, 1e-6)

	_, err = a.SetSystemMute(ctx, true).Await()
	require.NoError(t, err)
	assert.True(t, a.SystemMute(ctx).Value())
	assert.False(t, a.CheckDeviceChanged(ctx).Value())

	assert.NotEmpty(t, a.Cleanup(ctx).Value())
	assert.Empty(t, m.Sessions())
}
