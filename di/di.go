// Package di 提供按类型键控的依赖注入容器：
// 三种生命周期（Singleton/Transient/Scoped）、惰性单飞构造、
// 环依赖检测与容器/作用域级的资源释放。
//
// 典型用法：启动期注册，随后 Lock，运行期只解析。
//
//	c := di.New()
//	di.RegisterSingleton[Logger](c, NewConsoleLogger)
//	di.RegisterScoped[*UnitOfWork](c, NewUnitOfWork)
//	c.Lock()
//
//	logger := di.GetRequiredService[Logger](c)
package di

import (
	"fmt"
	"reflect"
)

// TypeOf 返回类型 T 的 reflect.Type，接口类型不会被解包成具体类型。
func TypeOf[T any]() reflect.Type {
	return reflect.TypeOf((*T)(nil)).Elem()
}

// RegisterSingleton 以 T 为服务键注册单例。
func RegisterSingleton[T any](c Container, producer any, opts ...Option) error {
	return c.RegisterSingleton(TypeOf[T](), producer, opts...)
}

// RegisterTransient 以 T 为服务键注册瞬态服务。
func RegisterTransient[T any](c Container, producer any, opts ...Option) error {
	return c.RegisterTransient(TypeOf[T](), producer, opts...)
}

// RegisterScoped 以 T 为服务键注册作用域服务。
func RegisterScoped[T any](c Container, producer any, opts ...Option) error {
	return c.RegisterScoped(TypeOf[T](), producer, opts...)
}

// Resolve 从容器或作用域解析 T 的实例。
func Resolve[T any](r Resolver) (T, error) {
	var zero T
	v, err := r.Resolve(TypeOf[T]())
	if err != nil {
		return zero, err
	}
	t, ok := v.(T)
	if !ok {
		return zero, fmt.Errorf("di: resolved value is %T, expected %v", v, TypeOf[T]())
	}
	return t, nil
}

// TryResolve 解析 T 的实例，失败时返回 false 而不是错误。
func TryResolve[T any](r Resolver) (T, bool) {
	var zero T
	v, ok := r.TryResolve(TypeOf[T]())
	if !ok {
		return zero, false
	}
	t, ok := v.(T)
	if !ok {
		return zero, false
	}
	return t, true
}

// GetRequiredService 解析 T 的实例，失败时 panic。
// 用于接线已经锁定、缺失即编程错误的场景。
func GetRequiredService[T any](r Resolver) T {
	v, err := Resolve[T](r)
	if err != nil {
		panic(err)
	}
	return v
}

// IsRegistered 查询 T 是否已注册。
func IsRegistered[T any](r Resolver) bool {
	return r.IsRegistered(TypeOf[T]())
}
