//go:build windows

package platform

import (
	"github.com/lk2023060901/mixdeck-go/internal/mixer"
	"github.com/lk2023060901/mixdeck-go/internal/mixer/coreaudio"
)

func newWCA() (mixer.Backend, error) {
	return coreaudio.New(), nil
}

func newPulse() (mixer.Backend, error) {
	return nil, unsupported(Pulse)
}
