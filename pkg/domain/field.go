package domain

// Field is an authored content value that is either a literal or a function of the
// visit Context. The zero Field is unset and resolves to the zero value of T.
type Field[T any] struct {
	value   T
	compute func(*Context) T
	set     bool
}

// Literal returns a Field holding a plain value.
func Literal[T any](v T) Field[T] {
	return Field[T]{value: v, set: true}
}

// Computed returns a Field evaluated against the Context on every resolution.
func Computed[T any](fn func(*Context) T) Field[T] {
	if fn == nil {
		return Field[T]{}
	}
	return Field[T]{compute: fn, set: true}
}

// Resolve returns the literal value, or invokes the function with ctx.
func (f Field[T]) Resolve(ctx *Context) T {
	if f.compute != nil {
		return f.compute(ctx)
	}
	return f.value
}

// IsSet reports whether the field was authored.
func (f Field[T]) IsSet() bool {
	return f.set
}

// IsComputed reports whether the field depends on the Context.
func (f Field[T]) IsComputed() bool {
	return f.compute != nil
}
