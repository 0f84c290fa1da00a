package opt

import "testing"

func TestValue_ZeroIsAbsent(t *testing.T) {
	var v Value[int]
	if v.IsSome() {
		t.Fatal("zero Value must be absent")
	}
	if _, ok := v.Get(); ok {
		t.Error("Get on absent value must report false")
	}
	if v.Ptr() != nil {
		t.Error("Ptr on absent value must be nil")
	}
	if got := v.OrElse(7); got != 7 {
		t.Errorf("OrElse = %d, want 7", got)
	}
}

func TestValue_Some(t *testing.T) {
	v := Some("red")
	got, ok := v.Get()
	if !ok || got != "red" {
		t.Fatalf("Get = (%q, %v), want (red, true)", got, ok)
	}
	p := v.Ptr()
	*p = "blue"
	if again, _ := v.Get(); again != "red" {
		t.Error("Ptr must return a copy")
	}
}

func TestFromPtr(t *testing.T) {
	if FromPtr[int](nil).IsSome() {
		t.Error("nil pointer must map to absent")
	}
	n := 0
	if got, ok := FromPtr(&n).Get(); !ok || got != 0 {
		t.Errorf("FromPtr(&0) = (%d, %v), want (0, true)", got, ok)
	}
}
