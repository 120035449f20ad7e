package di

import (
	"fmt"
	"reflect"
	"strings"
)

// 容器的所有失败都是同步返回给调用方的接线错误（缺少注册、环依赖等），
// 不会被吞掉，也不会终止进程。调用方修正接线后即可恢复。

// RegistrationError 注册失败。
// 当前唯一的注册失败场景是容器已被 Lock：锁定后所有注册调用永久失败。
// 锁定前对同一类型的重复注册会覆盖旧的描述符，不视为错误。
type RegistrationError struct {
	Type   reflect.Type
	Reason string
}

func (e *RegistrationError) Error() string {
	return fmt.Sprintf("di: cannot register %v: %s", e.Type, e.Reason)
}

// ResolutionError 解析失败：类型未注册，或没有任何一个候选构造函数的
// 参数全部可解析。RequestedBy 记录依赖链上一级的请求方（顶层解析为 nil）。
type ResolutionError struct {
	Type        reflect.Type
	RequestedBy reflect.Type
	Reason      string
	Err         error
}

func (e *ResolutionError) Error() string {
	msg := fmt.Sprintf("di: cannot resolve %v", e.Type)
	if e.RequestedBy != nil {
		msg += fmt.Sprintf(" (required by %v)", e.RequestedBy)
	}
	if e.Reason != "" {
		msg += ": " + e.Reason
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *ResolutionError) Unwrap() error {
	return e.Err
}

// CircularDependencyError 环依赖。Cycle 保存完整的环路径，
// 首元素与末元素是同一类型，便于诊断。
type CircularDependencyError struct {
	Cycle []reflect.Type
}

func (e *CircularDependencyError) Error() string {
	parts := make([]string, len(e.Cycle))
	for i, t := range e.Cycle {
		parts[i] = t.String()
	}
	return "di: circular dependency: " + strings.Join(parts, " -> ")
}

// ScopeError 在根容器上（无作用域）解析 Scoped 服务。
type ScopeError struct {
	Type reflect.Type
}

func (e *ScopeError) Error() string {
	return fmt.Sprintf("di: scoped service %v resolved outside a scope, use CreateScope()", e.Type)
}
