// Package coreaudio 基于 go-ole 与 go-wca 实现 Windows Core Audio 混音器后端。
//
// 所有对象都属于调用 Init 的 COM 单线程套间，只能在该线程上使用与释放。
package coreaudio
