// Package platform 根据名称选择混音器后端。
package platform

import (
	"runtime"
	"strings"

	"github.com/lk2023060901/mixdeck-go/internal/mixer"
	"github.com/lk2023060901/mixdeck-go/internal/mixer/fake"
	"github.com/lk2023060901/mixdeck-go/pkg/util/merr"
)

const (
	Auto  = "auto"
	WCA   = "wca"
	Pulse = "pulse"
	Fake  = "fake"
)

// New 按名称创建后端。auto（或空串）解析为当前操作系统的原生后端，
// 当前系统不支持所选后端时返回 merr.ErrServiceUnavailable。
func New(name string) (mixer.Backend, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "", Auto:
		return native()
	case WCA:
		return newWCA()
	case Pulse:
		return newPulse()
	case Fake:
		return fake.New(), nil
	default:
		return nil, merr.WrapErrParameterInvalid(strings.Join([]string{Auto, WCA, Pulse, Fake}, "|"), name, "backend")
	}
}

func native() (mixer.Backend, error) {
	switch runtime.GOOS {
	case "windows":
		return newWCA()
	case "linux":
		return newPulse()
	default:
		return nil, unsupported(Auto)
	}
}

func unsupported(name string) error {
	return merr.WrapErrServiceUnavailable("backend "+name+" is not supported on "+runtime.GOOS, "select backend")
}
