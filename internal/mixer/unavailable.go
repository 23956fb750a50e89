package mixer

// UnavailableDevice 返回一个占位设备，它的所有查询都返回 err。
// 后端在集合中的单个设备无法获取时使用，跳过与否由调用方决定。
func UnavailableDevice(err error) Device {
	return unavailableDevice{err: err}
}

// UnavailableSession 返回一个占位会话，它的所有查询都返回 err。
func UnavailableSession(err error) SessionControl {
	return unavailableSession{err: err}
}

type unavailableDevice struct {
	err error
}

func (d unavailableDevice) Release() {}

func (d unavailableDevice) ID() (string, error) { return "", d.err }

func (d unavailableDevice) Sessions() ([]SessionControl, error) { return nil, d.err }

func (d unavailableDevice) EndpointVolume() (VolumeControl, error) { return nil, d.err }

type unavailableSession struct {
	err error
}

func (s unavailableSession) Release() {}

func (s unavailableSession) ProcessID() (uint32, error) { return 0, s.err }

func (s unavailableSession) InstanceID() (string, error) { return "", s.err }

func (s unavailableSession) DisplayName() (string, error) { return "", s.err }

func (s unavailableSession) SimpleVolume() (VolumeControl, error) { return nil, s.err }
