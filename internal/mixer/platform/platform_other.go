//go:build !windows && !linux

package platform

import (
	"github.com/lk2023060901/mixdeck-go/internal/mixer"
)

func newWCA() (mixer.Backend, error) {
	return nil, unsupported(WCA)
}

func newPulse() (mixer.Backend, error) {
	return nil, unsupported(Pulse)
}
