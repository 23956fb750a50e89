//go:build windows

package coreaudio

import (
	"github.com/cockroachdb/errors"
	ole "github.com/go-ole/go-ole"
	"github.com/moutend/go-wca/pkg/wca"

	"github.com/lk2023060901/mixdeck-go/internal/mixer"
)

const (
	// S_FALSE：当前线程已经初始化过 COM。
	sFalse = 0x00000001
	// AUDCLNT_S_NO_SINGLE_PROCESS：会话跨多个进程，GetProcessId 仍会返回 pid。
	audclntSNoSingleProcess = 0x0889000D
)

var _ mixer.Backend = (*Backend)(nil)

// Backend 是 Windows Core Audio 的混音器后端。
type Backend struct{}

func New() *Backend {
	return &Backend{}
}

func (b *Backend) Name() string { return "wca" }

// Init 以单线程套间模式初始化 COM，线程已初始化时返回的 S_FALSE 视为成功。
func (b *Backend) Init() error {
	if err := ole.CoInitializeEx(0, ole.COINIT_APARTMENTTHREADED); err != nil {
		if oleCode(err) == sFalse {
			return nil
		}
		return errors.Wrap(err, "CoInitializeEx")
	}
	return nil
}

func (b *Backend) Uninit() {
	ole.CoUninitialize()
}

func (b *Backend) NewEnumerator() (mixer.Enumerator, error) {
	var mmde *wca.IMMDeviceEnumerator
	if err := wca.CoCreateInstance(
		wca.CLSID_MMDeviceEnumerator,
		0,
		wca.CLSCTX_ALL,
		wca.IID_IMMDeviceEnumerator,
		&mmde,
	); err != nil {
		return nil, errors.Wrap(err, "CoCreateInstance(MMDeviceEnumerator)")
	}
	return &enumerator{mmde: mmde}, nil
}

func oleCode(err error) uintptr {
	var oleErr *ole.OleError
	if errors.As(err, &oleErr) {
		return oleErr.Code()
	}
	return 0
}
