package filter

import (
	"fmt"
	"slices"
	"strconv"
	"strings"
)

// Predicate defines a function that returns true if the given item matches a condition.
type Predicate[T any] func(item T, filterValue string) bool

// Options holds configuration for filtering behavior.
type Options[T any] struct {
	matchers map[string]Predicate[T]
}

// Option configures filter Options.
type Option[T any] func(*Options[T]) error

func defaultOptions[T any]() Options[T] {
	return Options[T]{
		matchers: make(map[string]Predicate[T]),
	}
}

// NormalizeString can be used to normalize a string value for filtering/comparison.
// The value is made lowercase and has any leading and/or trailing whitespace removed.
func NormalizeString(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}

// NewOptions creates Options with defaults and applies given options.
func NewOptions[T any](opt ...Option[T]) (Options[T], error) {
	opts := defaultOptions[T]()

	for _, o := range opt {
		if o == nil {
			continue
		}
		if err := o(&opts); err != nil {
			return Options[T]{}, err
		}
	}
	return opts, nil
}

// Keys returns the sorted keys that have a matcher.
func (o Options[T]) Keys() []string {
	keys := make([]string, 0, len(o.matchers))
	for k := range o.matchers {
		keys = append(keys, k)
	}
	slices.Sort(keys)
	return keys
}

// Provider extracts a value of type V from an item of type T.
type Provider[T any, V any] func(T) V

// BoolValueProvider extracts a single boolean value from an item of type T.
type BoolValueProvider[T any] Provider[T, bool]

// IntValueProvider extracts a single integer value from an item of type T.
type IntValueProvider[T any] Provider[T, int]

// StringValueProvider extracts a single string value from an item of type T.
type StringValueProvider[T any] Provider[T, string]

// Equals returns a Predicate that checks if the value extracted by the provider
// exactly matches the filter value (case-insensitive, normalized).
func Equals[T any](provider StringValueProvider[T]) Predicate[T] {
	return func(item T, val string) bool {
		return NormalizeString(provider(item)) == NormalizeString(val)
	}
}

// EqualsAny returns a Predicate that checks if the value extracted by the provider
// equals any of the comma-separated filter values.
//
// Example:
//
// predicate := EqualsAny(statusProvider),
// result := predicate(srv, "unhealthy,unknown") // true if the server is unhealthy or not yet checked
func EqualsAny[T any](provider StringValueProvider[T]) Predicate[T] {
	return func(item T, val string) bool {
		actual := NormalizeString(provider(item))
		for _, v := range strings.Split(val, ",") {
			if NormalizeString(v) == actual {
				return true
			}
		}
		return false
	}
}

// EqualsBool returns a Predicate that checks if the value extracted by the provider
// matches the parsed boolean representation of the filter value.
func EqualsBool[T any](provider BoolValueProvider[T]) Predicate[T] {
	return func(item T, val string) bool {
		parsedVal, err := strconv.ParseBool(NormalizeString(val))
		if err != nil {
			return false
		}
		return provider(item) == parsedVal
	}
}

// EqualsInt returns a Predicate that checks if the value extracted by the provider
// matches the parsed integer filter value.
func EqualsInt[T any](provider IntValueProvider[T]) Predicate[T] {
	return func(item T, val string) bool {
		parsedVal, err := strconv.Atoi(NormalizeString(val))
		if err != nil {
			return false
		}
		return provider(item) == parsedVal
	}
}

// Partial returns a Predicate that checks if the value extracted by the provider
// contains the filter value as a substring (case-insensitive, normalized).
//
// Example:
//
// predicate := Partial(ipProvider),
// result := predicate(srv, "10.0.") // true if the server's IP contains "10.0."
func Partial[T any](provider StringValueProvider[T]) Predicate[T] {
	return func(item T, val string) bool {
		return strings.Contains(NormalizeString(provider(item)), NormalizeString(val))
	}
}

// WithMatchers adds or overrides matchers.
func WithMatchers[T any](m map[string]Predicate[T]) Option[T] {
	return func(o *Options[T]) error {
		for k, v := range m {
			if err := addMatcher(o, k, v); err != nil {
				return err
			}
		}
		return nil
	}
}

// WithMatcher adds or overrides a matcher.
func WithMatcher[T any](key string, value Predicate[T]) Option[T] {
	return func(o *Options[T]) error {
		return addMatcher(o, key, value)
	}
}

func addMatcher[T any](o *Options[T], key string, value Predicate[T]) error {
	k := NormalizeString(key)
	if k == "" {
		return fmt.Errorf("filter key cannot be empty")
	}
	if value == nil {
		return fmt.Errorf("filter matcher for '%s' cannot be nil", k)
	}
	o.matchers[k] = value
	return nil
}

// Validate returns an error naming the first filter key that has no matcher.
func (o Options[T]) Validate(filters map[string]string) error {
	for key := range filters {
		k := NormalizeString(key)
		if k == "" {
			continue
		}
		if _, ok := o.matchers[k]; !ok {
			return fmt.Errorf("unsupported filter '%s' (supported: %s)", k, strings.Join(o.Keys(), ", "))
		}
	}
	return nil
}

// Match applies the provided filters to an item of type T using any configured Option matchers.
// Every filter must match. Keys without a matcher are an error.
func Match[T any](item T, filters map[string]string, opts ...Option[T]) (bool, error) {
	if len(filters) == 0 {
		return true, nil
	}

	filterOpts, err := NewOptions(opts...)
	if err != nil {
		return false, err
	}

	return filterOpts.Match(item, filters)
}

// Match applies the filters to item using the configured matchers.
func (o Options[T]) Match(item T, filters map[string]string) (bool, error) {
	if err := o.Validate(filters); err != nil {
		return false, err
	}

	for key, val := range filters {
		k := NormalizeString(key)
		if k == "" {
			continue
		}
		if !o.matchers[k](item, val) {
			return false, nil
		}
	}
	return true, nil
}

// Select returns the items that match every filter, preserving order.
func Select[T any](items []T, filters map[string]string, opts ...Option[T]) ([]T, error) {
	filterOpts, err := NewOptions(opts...)
	if err != nil {
		return nil, err
	}
	if err := filterOpts.Validate(filters); err != nil {
		return nil, err
	}

	selected := make([]T, 0, len(items))
	for _, item := range items {
		ok, err := filterOpts.Match(item, filters)
		if err != nil {
			return nil, err
		}
		if ok {
			selected = append(selected, item)
		}
	}
	return selected, nil
}
