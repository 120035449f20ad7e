package di

import (
	"fmt"
	"reflect"
)

var errorType = reflect.TypeOf((*error)(nil)).Elem()

// validateConstructor 校验构造函数的签名：
// 必须是函数，至少一个返回值，第一个返回值是实例，
// 最后一个返回值允许是 error。
func validateConstructor(fn any) error {
	fnType := reflect.TypeOf(fn)
	if fnType == nil || fnType.Kind() != reflect.Func {
		return fmt.Errorf("di: constructor must be a function, got %T", fn)
	}
	if fnType.NumOut() == 0 {
		return fmt.Errorf("di: constructor %v must return at least one value", fnType)
	}
	if fnType.NumOut() > 2 {
		return fmt.Errorf("di: constructor %v returns too many values", fnType)
	}
	if fnType.NumOut() == 2 && !fnType.Out(1).Implements(errorType) {
		return fmt.Errorf("di: constructor %v second return value must be error", fnType)
	}
	return nil
}

// constructorParams 返回构造函数的参数类型，按声明顺序。
func constructorParams(fn any) []reflect.Type {
	fnType := reflect.TypeOf(fn)
	params := make([]reflect.Type, fnType.NumIn())
	for i := 0; i < fnType.NumIn(); i++ {
		params[i] = fnType.In(i)
	}
	return params
}

// pickConstructor 在候选构造函数中做确定性挑选：
// 只有参数全部可解析的候选才有资格；其中参数最多的胜出；
// 参数数相同时按声明顺序取先声明者。没有合格候选时返回 -1。
//
// 这是一个纯函数，resolvable 由调用方提供，便于单独测试。
func pickConstructor(candidates [][]reflect.Type, resolvable func(reflect.Type) bool) int {
	best := -1
	bestCount := -1
	for i, params := range candidates {
		ok := true
		for _, p := range params {
			if !resolvable(p) {
				ok = false
				break
			}
		}
		if !ok {
			continue
		}
		if len(params) > bestCount {
			best = i
			bestCount = len(params)
		}
	}
	return best
}

// invokeConstructor 调用构造函数并按返回约定取实例。
// 构造函数返回 nil 指针或 nil 接口视为失败。
func invokeConstructor(fn any, args []reflect.Value) (any, error) {
	results := reflect.ValueOf(fn).Call(args)

	if len(results) == 2 {
		if !results[1].IsNil() {
			return nil, results[1].Interface().(error)
		}
	}

	inst := results[0]
	if inst.Kind() == reflect.Ptr || inst.Kind() == reflect.Interface {
		if inst.IsNil() {
			return nil, fmt.Errorf("di: constructor %T returned nil instance", fn)
		}
	}
	return inst.Interface(), nil
}
