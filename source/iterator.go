package source

import (
	"errors"
	"io"
)

// Iterator is a lazy, pull based sequence. Next returns io.EOF once the
// sequence is exhausted. Any other error is final: every later call returns
// the same error.
type Iterator[T any] interface {
	Next() (T, error)
}

type sliceIterator[T any] struct {
	items []T
	pos   int
}

// FromSlice returns an Iterator over items, in order.
func FromSlice[T any](items []T) Iterator[T] {
	return &sliceIterator[T]{items: items}
}

func (it *sliceIterator[T]) Next() (T, error) {
	var zero T
	if it.pos >= len(it.items) {
		return zero, io.EOF
	}
	item := it.items[it.pos]
	it.pos++
	return item, nil
}

// Single returns an Iterator yielding exactly v.
func Single[T any](v T) Iterator[T] {
	return FromSlice([]T{v})
}

type flatMapIterator[In, Out any] struct {
	src    Iterator[In]
	expand func(In) (Iterator[Out], error)
	cur    Iterator[Out]
	err    error
}

// FlatMap expands every element of src into zero or more elements.
// expand is only called when the consumer asks for an element the
// previous expansion can no longer provide.
func FlatMap[In, Out any](src Iterator[In], expand func(In) (Iterator[Out], error)) Iterator[Out] {
	return &flatMapIterator[In, Out]{src: src, expand: expand}
}

func (it *flatMapIterator[In, Out]) Next() (Out, error) {
	var zero Out
	if it.err != nil {
		return zero, it.err
	}

	for {
		if it.cur != nil {
			v, err := it.cur.Next()
			if err == nil {
				return v, nil
			}
			if !errors.Is(err, io.EOF) {
				it.err = err
				return zero, err
			}
			it.cur = nil
		}

		in, err := it.src.Next()
		if err != nil {
			it.err = err
			return zero, err
		}

		cur, err := it.expand(in)
		if err != nil {
			it.err = err
			return zero, err
		}
		it.cur = cur
	}
}

// Map converts every element of src with fn.
func Map[In, Out any](src Iterator[In], fn func(In) (Out, error)) Iterator[Out] {
	return FlatMap(src, func(in In) (Iterator[Out], error) {
		out, err := fn(in)
		if err != nil {
			return nil, err
		}
		return Single(out), nil
	})
}

// Filter drops the elements of src keep returns false for.
func Filter[T any](src Iterator[T], keep func(T) bool) Iterator[T] {
	return FlatMap(src, func(v T) (Iterator[T], error) {
		if !keep(v) {
			return FromSlice[T](nil), nil
		}
		return Single(v), nil
	})
}

// Collect drains it. This is the eager evaluation used to surface
// validation errors before any side effect happens.
func Collect[T any](it Iterator[T]) ([]T, error) {
	var items []T
	err := ForEach(it, func(v T) error {
		items = append(items, v)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return items, nil
}

// ForEach calls fn for every element of it and stops at the first error.
func ForEach[T any](it Iterator[T], fn func(T) error) error {
	for {
		v, err := it.Next()
		if errors.Is(err, io.EOF) {
			return nil
		}
		if err != nil {
			return err
		}
		if err := fn(v); err != nil {
			return err
		}
	}
}
