// Package pulse 基于 PulseAudio 原生协议实现混音器后端：
// 设备对应 sink，会话对应连接在该 sink 上的 sink input。
package pulse

import (
	"github.com/jfreymuth/pulse/proto"
)

// volumeNorm 是 PulseAudio 中 100% 音量对应的原始值（PA_VOLUME_NORM）。
const volumeNorm = 0x10000

// toScalar 将各声道音量的平均值换算为 [0,1] 标量，超过 100% 的部分截断。
func toScalar(cv proto.ChannelVolumes) float32 {
	if len(cv) == 0 {
		return 0
	}
	var sum uint64
	for _, v := range cv {
		sum += uint64(v)
	}
	s := float32(sum) / float32(len(cv)) / volumeNorm
	if s > 1 {
		s = 1
	}
	return s
}

// fromScalar 生成 channels 个声道均为 v 的音量数组，至少包含一个声道。
func fromScalar(v float32, channels int) proto.ChannelVolumes {
	if channels < 1 {
		channels = 1
	}
	raw := uint32(v*volumeNorm + 0.5)
	cv := make(proto.ChannelVolumes, channels)
	for i := range cv {
		cv[i] = raw
	}
	return cv
}
