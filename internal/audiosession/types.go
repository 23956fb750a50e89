package audiosession

import (
	"github.com/lk2023060901/mixdeck-go/internal/json"
)

// AudioSession 是某个进程在某个播放设备上的一路音频流的快照。
// 调用方拿到的永远是值拷贝。
type AudioSession struct {
	SessionID   string  `json:"session_id"`
	DisplayName string  `json:"display_name"`
	ProcessID   uint32  `json:"process_id"`
	ProcessName string  `json:"process_name"`
	Volume      float32 `json:"volume"`
	IsMuted     bool    `json:"is_muted"`
	// DeviceID 为观察到该会话的设备，仅供展示，不参与任何匹配。
	DeviceID string `json:"device_id,omitempty"`
}

func (s AudioSession) String() string {
	b, err := json.Marshal(s)
	if err != nil {
		return s.SessionID
	}
	return string(b)
}

// Stats 是 Manager 的调用计数与状态快照，Cleanup 后归零。
type Stats struct {
	Enumerations    int64  `json:"enumerations"`
	SessionCommands int64  `json:"session_commands"`
	EndpointCalls   int64  `json:"endpoint_calls"`
	DeviceChecks    int64  `json:"device_checks"`
	CachedSessions  int    `json:"cached_sessions"`
	DeviceID        string `json:"device_id"`
	Initialized     bool   `json:"initialized"`
}
