// Package stack implements a slice backed LIFO stack used for the
// input entity stack.
package stack

import "errors"

var ErrDuplicateItem = errors.New("item already exists")

// Keyer is implemented by items that can be located in a stack by key.
type Keyer interface {
	Key() string
}

type Stack[T any] struct {
	items []T
}

func New[T any]() *Stack[T] {
	return &Stack[T]{}
}

func (s *Stack[T]) Push(v T) {
	s.items = append(s.items, v)
}

// Pop removes the top n items (1 when n is omitted) and returns the
// last one removed.
func (s *Stack[T]) Pop(n ...int) (T, bool) {
	var zero T
	nn := 1
	if len(n) > 0 {
		nn = n[0]
	}
	if nn <= 0 || len(s.items) == 0 {
		return zero, false
	}

	var last T
	for len(s.items) > 0 && nn > 0 {
		last = s.items[len(s.items)-1]
		s.items[len(s.items)-1] = zero
		s.items = s.items[:len(s.items)-1]
		nn--
	}

	if c := cap(s.items); c > 20 && c > len(s.items)*2 {
		s.items = append([]T(nil), s.items...)
	}
	return last, true
}

// Peek returns the top item.
func (s *Stack[T]) Peek() (T, bool) {
	if len(s.items) == 0 {
		var zero T
		return zero, false
	}
	return s.items[len(s.items)-1], true
}

// At returns the item at depth i, where 0 is the bottom of the stack.
func (s *Stack[T]) At(i int) T {
	return s.items[i]
}

func (s *Stack[T]) Len() int {
	return len(s.items)
}

func (s *Stack[T]) Cap() int {
	return cap(s.items)
}

// Clear drops every item.
func (s *Stack[T]) Clear() {
	clear(s.items)
	s.items = s.items[:0]
}

// Any reports whether fn returns true for some item, scanning from the
// top down.
func (s *Stack[T]) Any(fn func(T) bool) bool {
	for i := len(s.items) - 1; i >= 0; i-- {
		if fn(s.items[i]) {
			return true
		}
	}
	return false
}

// PushUnique pushes v unless an item with the same key is already on
// the stack, in which case ErrDuplicateItem is returned.
func PushUnique[T Keyer](s *Stack[T], v T) error {
	key := v.Key()
	if key != "" && s.Any(func(item T) bool { return item.Key() == key }) {
		return ErrDuplicateItem
	}
	s.Push(v)
	return nil
}
