package biz

// Result 表示阶段输出：值或错误。
type Result[T any] struct {
	Value T
	Err   error
}

// Ok 包装成功值。
func Ok[T any](v T) Result[T] {
	return Result[T]{Value: v}
}

// Fail 包装错误。
func Fail[T any](err error) Result[T] {
	return Result[T]{Err: err}
}

// From 由 (值, 错误) 构造结果。
func From[T any](v T, err error) Result[T] {
	if err != nil {
		return Fail[T](err)
	}
	return Ok(v)
}

// IsOk 是否成功。
func (r Result[T]) IsOk() bool {
	return r.Err == nil
}

// OrElseFunc 失败时调用 fn 计算替代值。
func (r Result[T]) OrElseFunc(fn func(error) T) T {
	if r.Err != nil {
		return fn(r.Err)
	}
	return r.Value
}

// Map 对成功值做转换，错误原样传递。
func Map[T, U any](r Result[T], fn func(T) (U, error)) Result[U] {
	if r.Err != nil {
		return Fail[U](r.Err)
	}
	return From(fn(r.Value))
}
