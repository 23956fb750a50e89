package platform

import (
	"runtime"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lk2023060901/mixdeck-go/pkg/util/merr"
)

func TestNew(t *testing.T) {
	b, err := New("FAKE")
	require.NoError(t, err)
	assert.Equal(t, "fake", b.Name())

	_, err = New("alsa")
	assert.ErrorIs(t, err, merr.ErrParameterInvalid)

	b, err = New("")
	switch runtime.GOOS {
	case "windows":
		require.NoError(t, err)
		assert.Equal(t, WCA, b.Name())
	case "linux":
		require.NoError(t, err)
		assert.Equal(t, Pulse, b.Name())
		_, err = New(WCA)
		assert.ErrorIs(t, err, merr.ErrServiceUnavailable)
	default:
		assert.ErrorIs(t, err, merr.ErrServiceUnavailable)
	}
}
