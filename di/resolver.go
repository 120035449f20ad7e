package di

import (
	"reflect"
)

var resolverType = reflect.TypeOf((*Resolver)(nil)).Elem()

// resolveContext 是一次顶层解析调用的上下文：
// 携带解析中类型栈（环检测）与当前作用域。
// 整个上下文的生命周期都在容器的构造互斥之内。
type resolveContext struct {
	container *container
	scope     *scope
	stack     []reflect.Type
}

// Resolve 实现 Resolver，供注入到工厂参数后做递归解析。
func (rc *resolveContext) Resolve(typ reflect.Type) (any, error) {
	return rc.resolve(typ, nil)
}

func (rc *resolveContext) TryResolve(typ reflect.Type) (any, bool) {
	v, err := rc.resolve(typ, nil)
	if err != nil {
		return nil, false
	}
	return v, true
}

func (rc *resolveContext) IsRegistered(typ reflect.Type) bool {
	return rc.container.IsRegistered(typ)
}

// resolve 执行解析算法：
//  1. 类型已在解析栈上 -> *CircularDependencyError，附完整环路径
//  2. 单例已物化 -> 直接返回
//  3. 压栈，挑选构造方式，递归解析参数，构造，出栈
//  4. Singleton/Scoped 实例按生命周期记入缓存
func (rc *resolveContext) resolve(typ reflect.Type, requestedBy reflect.Type) (any, error) {
	// Resolver 参数注入当前上下文自身
	if typ == resolverType {
		return rc, nil
	}

	for i, t := range rc.stack {
		if t == typ {
			cycle := append(append([]reflect.Type{}, rc.stack[i:]...), typ)
			return nil, &CircularDependencyError{Cycle: cycle}
		}
	}

	c := rc.container
	def, ok := c.descriptor(typ)
	if !ok {
		return nil, &ResolutionError{Type: typ, RequestedBy: requestedBy, Reason: "service not registered"}
	}

	switch def.Lifetime {
	case LifetimeSingleton:
		if v, ok := c.cachedSingleton(typ); ok {
			return v, nil
		}
		v, err := rc.construct(def)
		if err != nil {
			return nil, err
		}
		c.storeSingleton(typ, v)
		return v, nil

	case LifetimeTransient:
		return rc.construct(def)

	case LifetimeScoped:
		if rc.scope == nil {
			return nil, &ScopeError{Type: typ}
		}
		if v, ok := rc.scope.cached(typ); ok {
			return v, nil
		}
		v, err := rc.construct(def)
		if err != nil {
			return nil, err
		}
		rc.scope.store(typ, v)
		return v, nil
	}

	return nil, &ResolutionError{Type: typ, RequestedBy: requestedBy, Reason: "unknown lifetime"}
}

// construct 按描述符的产生方式创建实例，构造期间类型保持在栈上。
func (rc *resolveContext) construct(def *ServiceDescriptor) (any, error) {
	if def.hasInstance {
		return def.Instance, nil
	}

	rc.stack = append(rc.stack, def.Type)
	defer func() { rc.stack = rc.stack[:len(rc.stack)-1] }()

	if len(def.Constructors) > 0 {
		return rc.invokeBest(def)
	}
	return rc.constructStruct(def)
}

// invokeBest 先用排名函数在候选构造函数中挑选，再递归解析参数并调用。
// 可解析性判定只看注册表：没有任何候选的参数全部可解析时直接失败，
// 不会退回到一个仍缺依赖的次优候选。
func (rc *resolveContext) invokeBest(def *ServiceDescriptor) (any, error) {
	candidates := make([][]reflect.Type, len(def.Constructors))
	for i, fn := range def.Constructors {
		candidates[i] = constructorParams(fn)
	}

	resolvable := func(t reflect.Type) bool {
		return t == resolverType || rc.container.IsRegistered(t)
	}

	best := pickConstructor(candidates, resolvable)
	if best < 0 {
		missing := firstUnresolvable(candidates, resolvable)
		return nil, &ResolutionError{
			Type:        missing,
			RequestedBy: def.Type,
			Reason:      "no constructor with fully resolvable parameters",
		}
	}

	fn := def.Constructors[best]
	params := candidates[best]
	args := make([]reflect.Value, len(params))
	for i, p := range params {
		v, err := rc.resolve(p, def.Type)
		if err != nil {
			return nil, &ResolutionError{Type: def.Type, Reason: "dependency failed", Err: err}
		}
		args[i] = reflect.ValueOf(v)
	}

	inst, err := invokeConstructor(fn, args)
	if err != nil {
		if _, ok := err.(*CircularDependencyError); ok {
			return nil, err
		}
		return nil, &ResolutionError{Type: def.Type, Reason: "constructor failed", Err: err}
	}
	return inst, nil
}

// constructStruct 实例化 ImplType 并注入带 `di` 标签的字段。
// 标签值为 "optional" 的字段在依赖缺失时保持零值。
func (rc *resolveContext) constructStruct(def *ServiceDescriptor) (any, error) {
	implType := def.ImplType
	elemType := implType
	if elemType.Kind() == reflect.Ptr {
		elemType = elemType.Elem()
	}
	if elemType.Kind() != reflect.Struct {
		return nil, &ResolutionError{Type: def.Type, Reason: "implementation type is not a struct"}
	}

	val := reflect.New(elemType)
	structVal := val.Elem()

	for i := 0; i < elemType.NumField(); i++ {
		field := elemType.Field(i)
		tag, hasTag := field.Tag.Lookup("di")
		if !hasTag {
			continue
		}
		optional := tag == "optional" || tag == "?"

		// 未导出字段无法通过反射赋值，这是注册错误而不是 panic
		if !structVal.Field(i).CanSet() {
			return nil, &ResolutionError{
				Type:   def.Type,
				Reason: "field " + field.Name + " is unexported and cannot be injected",
			}
		}

		depVal, err := rc.resolve(field.Type, def.Type)
		if err != nil {
			if optional {
				continue
			}
			if _, ok := err.(*CircularDependencyError); ok {
				return nil, err
			}
			return nil, &ResolutionError{Type: def.Type, Reason: "field " + field.Name, Err: err}
		}
		structVal.Field(i).Set(reflect.ValueOf(depVal))
	}

	if implType.Kind() == reflect.Ptr {
		return val.Interface(), nil
	}
	return structVal.Interface(), nil
}

// firstUnresolvable 找出第一个候选里第一个不可解析的参数类型，用于报错。
func firstUnresolvable(candidates [][]reflect.Type, resolvable func(reflect.Type) bool) reflect.Type {
	for _, params := range candidates {
		for _, p := range params {
			if !resolvable(p) {
				return p
			}
		}
	}
	return nil
}
