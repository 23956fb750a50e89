package log

import (
	"sync"
	"sync/atomic"

	"go.uber.org/zap/zapcore"
)

// lazyWithCore 推迟 core.With 的执行，直到第一次真正写日志或派生子 core。
// 参见 https://github.com/uber-go/zap/issues/1426 。
type lazyWithCore struct {
	core   atomic.Pointer[zapcore.Core]
	once   sync.Once
	fields []zapcore.Field
}

var _ zapcore.Core = (*lazyWithCore)(nil)

// NewLazyWith 返回一个延迟附加 fields 的 Core。
func NewLazyWith(core zapcore.Core, fields []zapcore.Field) zapcore.Core {
	c := &lazyWithCore{fields: fields}
	c.core.Store(&core)
	return c
}

func (c *lazyWithCore) resolve() zapcore.Core {
	c.once.Do(func() {
		withed := (*c.core.Load()).With(c.fields)
		c.core.Store(&withed)
	})
	return *c.core.Load()
}

func (c *lazyWithCore) Enabled(level zapcore.Level) bool {
	return (*c.core.Load()).Enabled(level)
}

func (c *lazyWithCore) Sync() error {
	return c.resolve().Sync()
}

func (c *lazyWithCore) Write(entry zapcore.Entry, fields []zapcore.Field) error {
	return c.resolve().Write(entry, fields)
}

func (c *lazyWithCore) With(fields []zapcore.Field) zapcore.Core {
	return c.resolve().With(fields)
}

func (c *lazyWithCore) Check(e zapcore.Entry, ce *zapcore.CheckedEntry) *zapcore.CheckedEntry {
	return c.resolve().Check(e, ce)
}
