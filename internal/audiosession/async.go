package audiosession

import (
	"context"

	"github.com/lk2023060901/mixdeck-go/pkg/util/conc"
)

// Async 将 Manager 的阻塞操作提交到后台协程池，返回 Future，供 UI 线程等调用方使用。
// 操作之间的顺序仍由 Manager 的锁决定。
type Async struct {
	m *Manager

	sessions *conc.Pool[[]AudioSession]
	volumes  *conc.Pool[float32]
	flags    *conc.Pool[bool]
	results  *conc.Pool[string]
}

// NewAsync 创建 Async，size 为每类结果的 worker 数。
func NewAsync(m *Manager, size int) *Async {
	if size <= 0 {
		size = 1
	}
	return &Async{
		m:        m,
		sessions: conc.NewPool[[]AudioSession](size),
		volumes:  conc.NewPool[float32](size),
		flags:    conc.NewPool[bool](size),
		results:  conc.NewPool[string](size),
	}
}

func (a *Async) Initialize(ctx context.Context) *conc.Future[string] {
	return a.results.Submit(func() (string, error) {
		return a.m.Initialize(ctx)
	})
}

func (a *Async) EnumerateSessions(ctx context.Context) *conc.Future[[]AudioSession] {
	return a.sessions.Submit(func() ([]AudioSession, error) {
		return a.m.EnumerateSessions(ctx)
	})
}

func (a *Async) SetSessionVolume(ctx context.Context, id string, volume float32) *conc.Future[string] {
	return a.results.Submit(func() (string, error) {
		return id, a.m.SetSessionVolume(ctx, id, volume)
	})
}

func (a *Async) SetSessionMute(ctx context.Context, id string, muted bool) *conc.Future[string] {
	return a.results.Submit(func() (string, error) {
		return id, a.m.SetSessionMute(ctx, id, muted)
	})
}

func (a *Async) SystemVolume(ctx context.Context) *conc.Future[float32] {
	return a.volumes.Submit(func() (float32, error) {
		return a.m.SystemVolume(ctx)
	})
}

func (a *Async) SetSystemVolume(ctx context.Context, volume float32) *conc.Future[float32] {
	return a.volumes.Submit(func() (float32, error) {
		return volume, a.m.SetSystemVolume(ctx, volume)
	})
}

func (a *Async) SystemMute(ctx context.Context) *conc.Future[bool] {
	return a.flags.Submit(func() (bool, error) {
		return a.m.SystemMute(ctx)
	})
}

func (a *Async) SetSystemMute(ctx context.Context, muted bool) *conc.Future[bool] {
	return a.flags.Submit(func() (bool, error) {
		return muted, a.m.SetSystemMute(ctx, muted)
	})
}

func (a *Async) CheckDeviceChanged(ctx context.Context) *conc.Future[bool] {
	return a.flags.Submit(func() (bool, error) {
		return a.m.CheckDeviceChanged(ctx)
	})
}

func (a *Async) Cleanup(ctx context.Context) *conc.Future[string] {
	return a.results.Submit(func() (string, error) {
		return a.m.Cleanup(ctx), nil
	})
}

// Release 释放后台协程池，不会关闭 Manager。
func (a *Async) Release() {
	a.sessions.Release()
	a.volumes.Release()
	a.flags.Release()
	a.results.Release()
}
