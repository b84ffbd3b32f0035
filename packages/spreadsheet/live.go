package spreadsheet

// Stream is a live value: it always has a current value, and subscribers
// receive that value immediately followed by every later one.
//
// Streams are not safe for concurrent use. The Grid serialises all access
// behind its own lock.
type Stream[T any] interface {
	Get() T
	// Subscribe calls fn with the current value before returning, then on
	// every change until cancel is called.
	Subscribe(fn func(T)) (cancel func())
}

type observer[T any] struct {
	fn     func(T)
	active bool
}

// Live is a value holder with a list of observers notified synchronously on
// every Set.
type Live[T any] struct {
	value     T
	version   uint64
	observers []*observer[T]
}

// NewLive creates a Live holding v.
func NewLive[T any](v T) *Live[T] {
	return &Live[T]{value: v}
}

func (l *Live[T]) Get() T {
	return l.value
}

// Set stores v and notifies observers. A Set made by an observer while
// notification is in progress wins: the remaining observers of the older
// round are skipped, so nobody sees the older value after the newer one.
func (l *Live[T]) Set(v T) {
	l.value = v
	l.version++
	version := l.version

	observers := make([]*observer[T], len(l.observers))
	copy(observers, l.observers)
	for _, o := range observers {
		if l.version != version {
			return
		}
		if o.active {
			o.fn(v)
		}
	}
}

func (l *Live[T]) Subscribe(fn func(T)) func() {
	o := &observer[T]{fn: fn, active: true}
	l.observers = append(l.observers, o)
	fn(l.value)
	return func() {
		if !o.active {
			return
		}
		o.active = false
		for i, other := range l.observers {
			if other == o {
				l.observers = append(l.observers[:i], l.observers[i+1:]...)
				break
			}
		}
	}
}

// Observed reports whether anything is subscribed.
func (l *Live[T]) Observed() bool {
	return len(l.observers) > 0
}

// streamFunc adapts a subscribe function to a Stream. Get subscribes and
// immediately cancels, which is enough for the pure derived streams below.
type streamFunc[T any] func(fn func(T)) func()

func (s streamFunc[T]) Subscribe(fn func(T)) func() {
	return s(fn)
}

func (s streamFunc[T]) Get() T {
	var v T
	cancel := s(func(x T) { v = x })
	cancel()
	return v
}

type constStream[T any] struct{ value T }

func (c constStream[T]) Get() T { return c.value }

func (c constStream[T]) Subscribe(fn func(T)) func() {
	fn(c.value)
	return func() {}
}

// Const is a stream that never changes.
func Const[T any](v T) Stream[T] {
	return constStream[T]{value: v}
}

// Map transforms every value of src.
func Map[A, B any](src Stream[A], fn func(A) B) Stream[B] {
	return streamFunc[B](func(emit func(B)) func() {
		return src.Subscribe(func(a A) { emit(fn(a)) })
	})
}

// Combine emits fn of the latest values of a and b whenever either changes,
// once both have produced a value.
func Combine[A, B, C any](a Stream[A], b Stream[B], fn func(A, B) C) Stream[C] {
	return streamFunc[C](func(emit func(C)) func() {
		var (
			lastA        A
			lastB        B
			haveA, haveB bool
		)
		cancelA := a.Subscribe(func(v A) {
			lastA, haveA = v, true
			if haveB {
				emit(fn(lastA, lastB))
			}
		})
		cancelB := b.Subscribe(func(v B) {
			lastB, haveB = v, true
			if haveA {
				emit(fn(lastA, lastB))
			}
		})
		return func() {
			cancelA()
			cancelB()
		}
	})
}

// Switch subscribes to the stream fn returns for the latest value of src,
// dropping the subscription made for the previous value first.
func Switch[A, B any](src Stream[A], fn func(A) Stream[B]) Stream[B] {
	return streamFunc[B](func(emit func(B)) func() {
		var (
			gen    uint64
			inner  func()
			closed bool
		)
		cancelSrc := src.Subscribe(func(a A) {
			gen++
			current := gen
			if inner != nil {
				inner()
				inner = nil
			}
			next := fn(a).Subscribe(func(b B) {
				if current == gen && !closed {
					emit(b)
				}
			})
			if current != gen || closed {
				// src moved on while we were subscribing
				next()
				return
			}
			inner = next
		})
		return func() {
			closed = true
			cancelSrc()
			if inner != nil {
				inner()
				inner = nil
			}
		}
	})
}

// Distinct drops values equal to the previous one.
func Distinct[T comparable](src Stream[T]) Stream[T] {
	return streamFunc[T](func(emit func(T)) func() {
		var (
			last T
			seen bool
		)
		return src.Subscribe(func(v T) {
			if seen && v == last {
				return
			}
			last, seen = v, true
			emit(v)
		})
	})
}
