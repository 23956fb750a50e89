// Package json 统一项目内的 JSON 编解码入口，底层使用 sonic 的标准库兼容配置。
package json

import (
	"github.com/bytedance/sonic"
)

var api = sonic.ConfigStd

func Marshal(v any) ([]byte, error) {
	return api.Marshal(v)
}

func MarshalIndent(v any, prefix, indent string) ([]byte, error) {
	return api.MarshalIndent(v, prefix, indent)
}

func Unmarshal(data []byte, v any) error {
	return api.Unmarshal(data, v)
}

// MarshalString 与 Marshal 相同，但直接返回字符串。
func MarshalString(v any) (string, error) {
	return api.MarshalToString(v)
}
