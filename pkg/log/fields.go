package log

import (
	"go.uber.org/zap"
)

const (
	FieldNameModule    = "module"
	FieldNameComponent = "component"
	FieldNameSessionID = "sessionID"
	FieldNameProcessID = "pid"
	FieldNameDeviceID  = "deviceID"
)

// FieldModule 返回一个包含模块名的 zap 字段。
func FieldModule(module string) zap.Field {
	return zap.String(FieldNameModule, module)
}

// FieldComponent 返回一个包含组件名的 zap 字段。
func FieldComponent(component string) zap.Field {
	return zap.String(FieldNameComponent, component)
}

func FieldSessionID(id string) zap.Field {
	return zap.String(FieldNameSessionID, id)
}

func FieldProcessID(pid uint32) zap.Field {
	return zap.Uint32(FieldNameProcessID, pid)
}

func FieldDeviceID(id string) zap.Field {
	return zap.String(FieldNameDeviceID, id)
}
