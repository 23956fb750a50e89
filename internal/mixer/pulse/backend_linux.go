//go:build linux

package pulse

import (
	"fmt"
	"net"
	"strconv"
	"sync"

	"github.com/cockroachdb/errors"
	"github.com/jfreymuth/pulse/proto"
	"github.com/samber/lo"

	"github.com/lk2023060901/mixdeck-go/internal/mixer"
)

const (
	propProcessID = "application.process.id"
	propAppName   = "application.name"
)

var (
	_ mixer.Backend = (*Backend)(nil)

	errNotConnected = errors.New("pulse: not connected")
)

// Backend 通过一个原生协议连接访问 PulseAudio（或 pipewire-pulse）服务。
// Init 与 Uninit 按引用计数管理连接。
type Backend struct {
	server string

	mu     sync.Mutex
	refs   int
	client *proto.Client
	conn   net.Conn
}

// New 创建后端，server 为空时使用默认服务地址（$PULSE_SERVER 或用户运行时目录）。
func New(server string) *Backend {
	return &Backend{server: server}
}

func (b *Backend) Name() string { return "pulse" }

func (b *Backend) Init() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.refs > 0 {
		b.refs++
		return nil
	}

	client, conn, err := proto.Connect(b.server)
	if err != nil {
		return errors.Wrap(err, "connect pulse server")
	}
	props := proto.PropList{propAppName: proto.PropListString("mixdeck")}
	if err := client.Request(&proto.SetClientName{Props: props}, &proto.SetClientNameReply{}); err != nil {
		conn.Close()
		return errors.Wrap(err, "set client name")
	}
	b.client, b.conn, b.refs = client, conn, 1
	return nil
}

func (b *Backend) Uninit() {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.refs == 0 {
		return
	}
	b.refs--
	if b.refs == 0 {
		b.conn.Close()
		b.client, b.conn = nil, nil
	}
}

func (b *Backend) NewEnumerator() (mixer.Enumerator, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.client == nil {
		return nil, errNotConnected
	}
	return &enumerator{client: b.client}, nil
}

type enumerator struct {
	client *proto.Client
}

func (e *enumerator) Release() {}

func (e *enumerator) ActiveRenderDevices() ([]mixer.Device, error) {
	var sinks proto.GetSinkInfoListReply
	if err := e.client.Request(&proto.GetSinkInfoList{}, &sinks); err != nil {
		return nil, errors.Wrap(err, "list sinks")
	}
	return lo.Map(sinks, func(s *proto.GetSinkInfoReply, _ int) mixer.Device {
		return &device{client: e.client, sink: s}
	}), nil
}

func (e *enumerator) DefaultRenderDevice() (mixer.Device, error) {
	var server proto.GetServerInfoReply
	if err := e.client.Request(&proto.GetServerInfo{}, &server); err != nil {
		return nil, errors.Wrap(err, "get server info")
	}
	if server.DefaultSinkName == "" {
		return nil, errors.New("pulse: no default sink")
	}
	var sink proto.GetSinkInfoReply
	req := &proto.GetSinkInfo{SinkIndex: proto.Undefined, SinkName: server.DefaultSinkName}
	if err := e.client.Request(req, &sink); err != nil {
		return nil, errors.Wrapf(err, "get sink %s", server.DefaultSinkName)
	}
	return &device{client: e.client, sink: &sink}, nil
}

type device struct {
	client *proto.Client
	sink   *proto.GetSinkInfoReply
}

func (d *device) Release() {}

func (d *device) ID() (string, error) {
	return d.sink.SinkName, nil
}

func (d *device) Sessions() ([]mixer.SessionControl, error) {
	var inputs proto.GetSinkInputInfoListReply
	if err := d.client.Request(&proto.GetSinkInputInfoList{}, &inputs); err != nil {
		return nil, errors.Wrap(err, "list sink inputs")
	}
	return lo.FilterMap(inputs, func(in *proto.GetSinkInputInfoReply, _ int) (mixer.SessionControl, bool) {
		return &session{client: d.client, input: in}, in.SinkIndex == d.sink.SinkIndex
	}), nil
}

func (d *device) EndpointVolume() (mixer.VolumeControl, error) {
	return &sinkVolume{client: d.client, sink: d.sink}, nil
}

type session struct {
	client *proto.Client
	input  *proto.GetSinkInputInfoReply
}

func (s *session) Release() {}

func (s *session) ProcessID() (uint32, error) {
	entry, ok := s.input.Properties[propProcessID]
	if !ok {
		return 0, errors.Newf("sink input %d has no %s", s.input.SinkInputIndex, propProcessID)
	}
	pid, err := strconv.ParseUint(entry.String(), 10, 32)
	if err != nil {
		return 0, errors.Wrap(err, "parse process id")
	}
	return uint32(pid), nil
}

func (s *session) InstanceID() (string, error) {
	return fmt.Sprintf("sink-input-%d", s.input.SinkInputIndex), nil
}

func (s *session) DisplayName() (string, error) {
	entry, ok := s.input.Properties[propAppName]
	if !ok {
		return "", errors.Newf("sink input %d has no %s", s.input.SinkInputIndex, propAppName)
	}
	return entry.String(), nil
}

func (s *session) SimpleVolume() (mixer.VolumeControl, error) {
	if len(s.input.ChannelVolumes) == 0 {
		return nil, errors.Newf("sink input %d has no volume", s.input.SinkInputIndex)
	}
	return &sinkInputVolume{client: s.client, input: s.input}, nil
}

type sinkInputVolume struct {
	client *proto.Client
	input  *proto.GetSinkInputInfoReply
}

func (v *sinkInputVolume) Release() {}

func (v *sinkInputVolume) Volume() (float32, error) {
	return toScalar(v.input.ChannelVolumes), nil
}

func (v *sinkInputVolume) SetVolume(level float32) error {
	cv := fromScalar(level, len(v.input.ChannelVolumes))
	req := &proto.SetSinkInputVolume{SinkInputIndex: v.input.SinkInputIndex, ChannelVolumes: cv}
	if err := v.client.Request(req, nil); err != nil {
		return errors.Wrap(err, "set sink input volume")
	}
	v.input.ChannelVolumes = cv
	return nil
}

func (v *sinkInputVolume) Mute() (bool, error) {
	return v.input.Muted, nil
}

func (v *sinkInputVolume) SetMute(muted bool) error {
	req := &proto.SetSinkInputMute{SinkInputIndex: v.input.SinkInputIndex, Mute: muted}
	if err := v.client.Request(req, nil); err != nil {
		return errors.Wrap(err, "set sink input mute")
	}
	v.input.Muted = muted
	return nil
}

type sinkVolume struct {
	client *proto.Client
	sink   *proto.GetSinkInfoReply
}

func (v *sinkVolume) Release() {}

func (v *sinkVolume) Volume() (float32, error) {
	return toScalar(v.sink.ChannelVolumes), nil
}

func (v *sinkVolume) SetVolume(level float32) error {
	cv := fromScalar(level, len(v.sink.ChannelVolumes))
	req := &proto.SetSinkVolume{SinkIndex: proto.Undefined, SinkName: v.sink.SinkName, ChannelVolumes: cv}
	if err := v.client.Request(req, nil); err != nil {
		return errors.Wrap(err, "set sink volume")
	}
	v.sink.ChannelVolumes = cv
	return nil
}

func (v *sinkVolume) Mute() (bool, error) {
	return v.sink.Mute, nil
}

func (v *sinkVolume) SetMute(muted bool) error {
	req := &proto.SetSinkMute{SinkIndex: proto.Undefined, SinkName: v.sink.SinkName, Mute: muted}
	if err := v.client.Request(req, nil); err != nil {
		return errors.Wrap(err, "set sink mute")
	}
	v.sink.Mute = muted
	return nil
}
