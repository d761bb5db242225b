package ring

import "testing"

func TestRing_PushOrder(t *testing.T) {
	r := New[int](3)

	for i := 1; i <= 3; i++ {
		r.Push(i)
		if got, ok := r.At(0); !ok || got != i {
			t.Fatalf("After push %d expected At(0)=%d, got %d (ok=%v)", i, i, got, ok)
		}
		if r.Len() != i {
			t.Errorf("Expected len %d, got %d", i, r.Len())
		}
	}

	// Newest first: 3, 2, 1
	want := []int{3, 2, 1}
	for i, w := range want {
		if got, _ := r.At(i); got != w {
			t.Errorf("At(%d): expected %d, got %d", i, w, got)
		}
	}
}

func TestRing_Eviction(t *testing.T) {
	r := New[int](3)
	for i := 1; i <= 5; i++ {
		r.Push(i)
	}

	if r.Len() != 3 {
		t.Fatalf("Expected len 3, got %d", r.Len())
	}

	got := r.Values()
	want := []int{5, 4, 3}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("Values()[%d]: expected %d, got %d", i, want[i], got[i])
		}
	}
}

func TestRing_AtBounds(t *testing.T) {
	r := New[float64](4)
	r.Push(1.5)

	for _, i := range []int{-1, 1, 4, 100} {
		if _, ok := r.At(i); ok {
			t.Errorf("At(%d) should be out of range", i)
		}
	}
	if r.Cap() != 4 {
		t.Errorf("Expected cap 4, got %d", r.Cap())
	}
}

func TestRing_Update(t *testing.T) {
	r := New[int](4)
	r.Push(10)
	r.Push(20)

	r.Update(func(v *int) { *v++ })

	if got := r.Values(); len(got) != 2 || got[0] != 21 || got[1] != 11 {
		t.Errorf("Unexpected values after update: %v", got)
	}
}

func BenchmarkRingPush(b *testing.B) {
	r := New[float64](60)

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		r.Push(float64(i % 100))
	}
}
