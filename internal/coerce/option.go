// ABOUTME: Optional values and ordered extractor/validator rules for field coercion
// ABOUTME: A rule list is evaluated until one candidate converts and passes every check

package coerce

// Option holds a value that may be absent.
type Option[T any] struct {
	value T
	ok    bool
}

// Some wraps a present value.
func Some[T any](v T) Option[T] {
	return Option[T]{value: v, ok: true}
}

// None returns an absent value.
func None[T any]() Option[T] {
	return Option[T]{}
}

// Get returns the value and whether it is present.
func (o Option[T]) Get() (T, bool) {
	return o.value, o.ok
}

// IsSome reports whether a value is present.
func (o Option[T]) IsSome() bool {
	return o.ok
}

// Or returns the value or def when absent.
func (o Option[T]) Or(def T) T {
	if o.ok {
		return o.value
	}
	return def
}

// OrElse returns the value or a fresh default from factory when absent. The factory
// runs on every call so mutable defaults are never shared.
func (o Option[T]) OrElse(factory func() T) T {
	if o.ok {
		return o.value
	}
	return factory()
}

// Validator reports whether a converted value is acceptable.
type Validator[T any] func(T) bool

// Rule pairs an extractor with the validators its result must pass.
type Rule[T any] struct {
	Extract  func() (T, bool)
	Validate []Validator[T]
}

// Eval returns the first rule result that extracts and validates.
func Eval[T any](rules ...Rule[T]) Option[T] {
	for _, r := range rules {
		if r.Extract == nil {
			continue
		}
		v, ok := r.Extract()
		if !ok || !passes(v, r.Validate) {
			continue
		}
		return Some(v)
	}
	return None[T]()
}

// First converts raw candidates in order and returns the first that passes all
// validators.
func First[T any](candidates []string, convert func(string) (T, bool), validators ...Validator[T]) Option[T] {
	rules := make([]Rule[T], 0, len(candidates))
	for _, raw := range candidates {
		rules = append(rules, Rule[T]{
			Extract:  func() (T, bool) { return convert(raw) },
			Validate: validators,
		})
	}
	return Eval(rules...)
}

func passes[T any](v T, validators []Validator[T]) bool {
	for _, check := range validators {
		if check != nil && !check(v) {
			return false
		}
	}
	return true
}
