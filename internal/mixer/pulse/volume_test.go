package pulse

import (
	"testing"

	"github.com/jfreymuth/pulse/proto"
	"github.com/stretchr/testify/assert"
)

func TestScalarConversion(t *testing.T) {
	assert.Equal(t, float32(0), toScalar(nil))
	assert.Equal(t, float32(1), toScalar(proto.ChannelVolumes{volumeNorm, volumeNorm}))
	assert.Equal(t, float32(1), toScalar(proto.ChannelVolumes{volumeNorm * 2}))
	assert.InDelta(t, 0.5, toScalar(proto.ChannelVolumes{volumeNorm / 2, volumeNorm / 2}), 1e-6)

	cv := fromScalar(0.25, 2)
	assert.Len(t, cv, 2)
	assert.Equal(t, uint32(volumeNorm/4), cv[0])
	assert.Len(t, fromScalar(1, 0), 1)
	assert.InDelta(t, 0.25, toScalar(cv), 1e-6)
}
