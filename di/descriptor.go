package di

import (
	"fmt"
	"reflect"
)

// Lifetime 定义服务的生命周期。
type Lifetime int

const (
	// LifetimeSingleton 每个容器一个实例，首次解析时惰性创建。
	LifetimeSingleton Lifetime = iota
	// LifetimeTransient 每次解析创建新实例。
	LifetimeTransient
	// LifetimeScoped 每个作用域一个实例。
	LifetimeScoped
)

func (l Lifetime) String() string {
	switch l {
	case LifetimeSingleton:
		return "singleton"
	case LifetimeTransient:
		return "transient"
	case LifetimeScoped:
		return "scoped"
	default:
		return "unknown"
	}
}

// ServiceDescriptor 描述如何产生一个服务实例。
// 三种产生方式互斥：预构造实例、候选构造函数列表、结构体注入类型。
type ServiceDescriptor struct {
	// Type 服务键，通常是接口类型或具体指针类型。
	Type reflect.Type
	// Lifetime 生命周期。
	Lifetime Lifetime

	// Instance 预构造实例（仅 Singleton）。
	Instance any
	// Constructors 候选构造函数，按声明顺序排列。
	// 解析时由排名函数挑选参数全部可解析且参数最多的一个。
	Constructors []any
	// ImplType 结构体注入的实现类型，带 `di` 标签的字段会被注入。
	ImplType reflect.Type

	hasInstance bool
}

// Option 调整服务描述符。
type Option func(*ServiceDescriptor)

// WithConstructors 提供候选构造函数列表。
// 每个构造函数的返回约定：第一个返回值是实例，最后一个返回值可以是 error。
func WithConstructors(fns ...any) Option {
	return func(d *ServiceDescriptor) {
		d.Constructors = append(d.Constructors, fns...)
	}
}

// WithImplementation 指定结构体注入的实现类型。
func WithImplementation(typ reflect.Type) Option {
	return func(d *ServiceDescriptor) {
		d.ImplType = typ
	}
}

// newDescriptor 根据 producer 的形态组装描述符：
//   - nil            -> 以服务类型自身做结构体注入（要求具体类型）
//   - reflect.Type   -> 结构体注入的实现类型
//   - func           -> 单个构造函数
//   - 其他           -> 预构造实例（仅 Singleton）
func newDescriptor(typ reflect.Type, lifetime Lifetime, producer any, opts ...Option) (*ServiceDescriptor, error) {
	if typ == nil {
		return nil, fmt.Errorf("di: service type is nil")
	}

	d := &ServiceDescriptor{Type: typ, Lifetime: lifetime}

	switch p := producer.(type) {
	case nil:
		// 由 Option 提供，或退回到服务类型自身
	case reflect.Type:
		d.ImplType = p
	default:
		if reflect.TypeOf(producer).Kind() == reflect.Func {
			d.Constructors = []any{producer}
			break
		}
		if lifetime != LifetimeSingleton {
			return nil, fmt.Errorf("di: preconstructed instance requires singleton lifetime, got %v", lifetime)
		}
		if !reflect.TypeOf(p).AssignableTo(typ) {
			return nil, fmt.Errorf("di: instance of type %T is not assignable to %v", p, typ)
		}
		d.Instance = p
		d.hasInstance = true
	}

	for _, opt := range opts {
		opt(d)
	}

	if !d.hasInstance && len(d.Constructors) == 0 && d.ImplType == nil {
		if typ.Kind() == reflect.Interface {
			return nil, fmt.Errorf("di: interface %v requires an implementation, factory or instance", typ)
		}
		d.ImplType = typ
	}

	for _, fn := range d.Constructors {
		if err := validateConstructor(fn); err != nil {
			return nil, err
		}
	}

	return d, nil
}
