package page

import "testing"

func seq(n int) []int {
	s := make([]int, n)
	for i := range s {
		s[i] = i
	}
	return s
}

func TestNewMeta_TotalPagesInvariant(t *testing.T) {
	for total := 0; total <= 55; total++ {
		for _, size := range []int{1, 3, 10, 20, 100} {
			m := NewMeta(2, size, total)
			want := (total + size - 1) / size
			if want < 1 {
				want = 1
			}
			if m.TotalPages != want {
				t.Fatalf("total=%d size=%d: TotalPages=%d, want %d", total, size, m.TotalPages, want)
			}
			if m.HasNext != (m.Page < m.TotalPages) {
				t.Fatalf("total=%d size=%d: HasNext mismatch", total, size)
			}
			if m.HasPrevious != (m.Page > 1) {
				t.Fatalf("total=%d size=%d: HasPrevious mismatch", total, size)
			}
		}
	}
}

func TestNewMeta_Empty(t *testing.T) {
	for _, p := range []int{1, 3} {
		m := NewMeta(p, 20, 0)
		want := Meta{Page: 1, PageSize: 20, TotalItems: 0, TotalPages: 1}
		if m != want {
			t.Errorf("page=%d: got %+v, want %+v", p, m, want)
		}
	}
}

func TestSlice_LastPartialPage(t *testing.T) {
	r := Slice(seq(25), 3, 10)
	if len(r.Items) != 5 {
		t.Fatalf("expected 5 items, got %d", len(r.Items))
	}
	if r.Items[0] != 20 || r.Items[4] != 24 {
		t.Errorf("unexpected slice %v", r.Items)
	}
	if r.Meta.TotalPages != 3 || r.Meta.HasNext || !r.Meta.HasPrevious {
		t.Errorf("unexpected meta %+v", r.Meta)
	}
}

func TestSlice_BeyondLastPage(t *testing.T) {
	r := Slice(seq(25), 7, 10)
	if len(r.Items) != 0 {
		t.Fatalf("expected empty page, got %v", r.Items)
	}
	if r.Meta.Page != 7 || r.Meta.HasNext || !r.Meta.HasPrevious {
		t.Errorf("unexpected meta %+v", r.Meta)
	}
}

func TestSlice_FirstPage(t *testing.T) {
	r := Slice(seq(25), 1, 10)
	if len(r.Items) != 10 || r.Items[0] != 0 {
		t.Fatalf("unexpected first page %v", r.Items)
	}
	if !r.Meta.HasNext || r.Meta.HasPrevious {
		t.Errorf("unexpected meta %+v", r.Meta)
	}
}

func TestSlice_Empty(t *testing.T) {
	r := Slice([]string{}, 1, 20)
	if r.Items == nil || len(r.Items) != 0 {
		t.Fatalf("expected non-nil empty slice, got %#v", r.Items)
	}
	if r.Meta.TotalPages != 1 || r.Meta.HasNext || r.Meta.HasPrevious {
		t.Errorf("unexpected meta %+v", r.Meta)
	}
}

func TestSlice_DoesNotAlias(t *testing.T) {
	src := seq(5)
	r := Slice(src, 1, 5)
	r.Items[0] = 99
	if src[0] != 0 {
		t.Error("Slice must copy items")
	}
}

func TestSlice_ExactMultiple(t *testing.T) {
	r := Slice(seq(20), 2, 10)
	if len(r.Items) != 10 || r.Meta.TotalPages != 2 || r.Meta.HasNext {
		t.Errorf("unexpected result %+v", r.Meta)
	}
}
