package audiosession

import (
	"fmt"
	"strings"
)

// SystemProcessName 是 pid 0（系统混音会话）对应的名称。
const SystemProcessName = "System"

// ProcessResolver 将进程号映射为可读的可执行文件名。
// Resolve 必须是全函数：任何失败都映射为确定的占位名，不返回空串。
type ProcessResolver interface {
	Resolve(pid uint32) string
}

// ProcessResolverFunc 让普通函数满足 ProcessResolver。
type ProcessResolverFunc func(pid uint32) string

func (f ProcessResolverFunc) Resolve(pid uint32) string {
	return f(pid)
}

// NewProcessResolver 返回基于操作系统进程查询的解析器。
func NewProcessResolver() ProcessResolver {
	return osResolver{}
}

type osResolver struct{}

func (osResolver) Resolve(pid uint32) string {
	if pid == 0 {
		return SystemProcessName
	}
	path, err := imagePath(pid)
	if err != nil {
		return fallbackProcessName(pid)
	}
	if name := baseName(path); name != "" {
		return name
	}
	return fallbackProcessName(pid)
}

func fallbackProcessName(pid uint32) string {
	return fmt.Sprintf("Process %d", pid)
}

// baseName 返回路径的最后一段，同时识别 '\' 与 '/' 分隔符。
func baseName(path string) string {
	path = strings.TrimRight(path, `\/`)
	return path[strings.LastIndexAny(path, `\/`)+1:]
}
