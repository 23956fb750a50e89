// Package mixer 定义了操作系统混音器的抽象。
//
// 混音器对象（枚举器、设备、会话、音量接口）均为需要显式释放的外部资源，
// 调用方应通过 Scope 统一登记并在作用域结束时逆序释放。
// 除 Backend 之外的所有对象都只能在创建它们的线程上使用。
package mixer

// Backend 表示一个具体平台的混音器实现。
type Backend interface {
	// Name 返回后端名称，例如 "wca"、"pulse"、"fake"。
	Name() string
	// Init 在当前线程上完成混音子系统的初始化（Windows 上为 COM 套间初始化）。
	Init() error
	// Uninit 撤销 Init，每次成功的 Init 对应一次 Uninit。
	Uninit()
	// NewEnumerator 创建设备枚举器。
	NewEnumerator() (Enumerator, error)
}

// Releaser 是所有混音器对象的公共部分。
type Releaser interface {
	Release()
}

// Enumerator 枚举播放设备。
type Enumerator interface {
	Releaser
	// ActiveRenderDevices 返回所有处于活动状态的播放设备。
	ActiveRenderDevices() ([]Device, error)
	// DefaultRenderDevice 返回系统当前的默认播放设备。
	DefaultRenderDevice() (Device, error)
}

// Device 表示一个播放端点。
type Device interface {
	Releaser
	ID() (string, error)
	// Sessions 激活设备的会话管理器并返回其上的全部会话。
	Sessions() ([]SessionControl, error)
	// EndpointVolume 返回设备自身的主音量接口。
	EndpointVolume() (VolumeControl, error)
}

// SessionControl 表示设备上的一个音频会话。
type SessionControl interface {
	Releaser
	ProcessID() (uint32, error)
	InstanceID() (string, error)
	DisplayName() (string, error)
	SimpleVolume() (VolumeControl, error)
}

// VolumeControl 读写音量（[0,1] 标量）与静音状态。
type VolumeControl interface {
	Releaser
	Volume() (float32, error)
	SetVolume(v float32) error
	Mute() (bool, error)
	SetMute(muted bool) error
}
