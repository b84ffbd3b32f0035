package spreadsheet

import (
	"reflect"
	"testing"
)

func collect[T any](s Stream[T]) (*[]T, func()) {
	var got []T
	cancel := s.Subscribe(func(v T) { got = append(got, v) })
	return &got, cancel
}

func TestLive(t *testing.T) {
	l := NewLive(1)
	got, cancel := collect[int](l)

	l.Set(2)
	l.Set(3)
	cancel()
	l.Set(4)

	if want := []int{1, 2, 3}; !reflect.DeepEqual(*got, want) {
		t.Errorf("observed %v, want %v", *got, want)
	}
	if l.Get() != 4 {
		t.Errorf("Get() = %d, want 4", l.Get())
	}
	if l.Observed() {
		t.Error("Observed() after cancel")
	}
}

func TestLiveNestedSetWins(t *testing.T) {
	l := NewLive(0)
	l.Subscribe(func(v int) {
		if v == 1 {
			l.Set(2)
		}
	})
	got, _ := collect[int](l)

	l.Set(1)

	// the second observer never sees 1 after 2
	if want := []int{0, 2}; !reflect.DeepEqual(*got, want) {
		t.Errorf("observed %v, want %v", *got, want)
	}
}

func TestLiveCancelDuringNotify(t *testing.T) {
	l := NewLive(0)
	var cancelSecond func()
	l.Subscribe(func(v int) {
		if v == 1 && cancelSecond != nil {
			cancelSecond()
		}
	})
	got, cancel := collect[int](l)
	cancelSecond = cancel

	l.Set(1)
	if want := []int{0}; !reflect.DeepEqual(*got, want) {
		t.Errorf("observed %v, want %v", *got, want)
	}
}

func TestConstAndMap(t *testing.T) {
	c := Const("x")
	if c.Get() != "x" {
		t.Errorf("Const.Get() = %q", c.Get())
	}

	l := NewLive(2)
	doubled := Map[int, int](l, func(v int) int { return v * 2 })
	if doubled.Get() != 4 {
		t.Errorf("Map.Get() = %d, want 4", doubled.Get())
	}
	if l.Observed() {
		t.Error("Get() on a derived stream left a subscription behind")
	}

	got, _ := collect(doubled)
	l.Set(5)
	if want := []int{4, 10}; !reflect.DeepEqual(*got, want) {
		t.Errorf("observed %v, want %v", *got, want)
	}
}

func TestCombine(t *testing.T) {
	a := NewLive(1)
	b := NewLive("b")
	combined := Combine[int, string](a, b, func(x int, y string) string {
		return y + string(rune('0'+x))
	})

	got, cancel := collect(combined)
	a.Set(2)
	b.Set("c")
	cancel()
	a.Set(3)

	if want := []string{"b1", "b2", "c2"}; !reflect.DeepEqual(*got, want) {
		t.Errorf("observed %v, want %v", *got, want)
	}
	if a.Observed() || b.Observed() {
		t.Error("cancel left subscriptions behind")
	}
}

func TestSwitch(t *testing.T) {
	first := NewLive("first")
	second := NewLive("second")
	pick := NewLive(true)

	switched := Switch[bool, string](pick, func(useFirst bool) Stream[string] {
		if useFirst {
			return first
		}
		return second
	})

	got, cancel := collect(switched)
	first.Set("first-2")
	pick.Set(false)
	first.Set("first-3") // no longer followed
	second.Set("second-2")
	cancel()
	second.Set("second-3")

	want := []string{"first", "first-2", "second", "second-2"}
	if !reflect.DeepEqual(*got, want) {
		t.Errorf("observed %v, want %v", *got, want)
	}
	if first.Observed() || second.Observed() || pick.Observed() {
		t.Error("switch left subscriptions behind")
	}
}

func TestDistinct(t *testing.T) {
	l := NewLive(1)
	got, _ := collect(Distinct[int](l))
	l.Set(1)
	l.Set(2)
	l.Set(2)
	l.Set(1)

	if want := []int{1, 2, 1}; !reflect.DeepEqual(*got, want) {
		t.Errorf("observed %v, want %v", *got, want)
	}
}
