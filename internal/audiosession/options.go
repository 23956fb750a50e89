package audiosession

import (
	"github.com/lk2023060901/mixdeck-go/pkg/log"
)

const (
	DefaultCacheCapacity = 256

	component = "audiosession"
)

type options struct {
	cacheCapacity int
	resolver      ProcessResolver
	logger        *log.MLogger
}

func defaultOptions() *options {
	return &options{
		cacheCapacity: DefaultCacheCapacity,
		resolver:      NewProcessResolver(),
	}
}

// Option 用于配置 Manager。
type Option func(*options)

// WithCacheCapacity 设置会话缓存上限，非正数时使用默认值。
func WithCacheCapacity(n int) Option {
	return func(o *options) {
		if n > 0 {
			o.cacheCapacity = n
		}
	}
}

// WithProcessResolver 替换进程名解析器，nil 被忽略。
func WithProcessResolver(r ProcessResolver) Option {
	return func(o *options) {
		if r != nil {
			o.resolver = r
		}
	}
}

func WithLogger(l *log.MLogger) Option {
	return func(o *options) {
		o.logger = l
	}
}
