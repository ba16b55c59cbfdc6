package oscplot

import (
	"math"
	"reflect"
	"testing"
)

func TestFilter(t *testing.T) {
	t.Run("empty slice", func(t *testing.T) {
		var input []int = nil
		pred := func(int) bool { return true }
		got := Filter(input, pred)
		want := []int{}
		if !reflect.DeepEqual(got, want) {
			t.Fatalf("Filter(%v) = %v, want %v", input, got, want)
		}
	})

	t.Run("no matches", func(t *testing.T) {
		input := []int{1, 2, 3}
		pred := func(x int) bool { return x > 10 }
		got := Filter(input, pred)
		want := []int{}
		if !reflect.DeepEqual(got, want) {
			t.Fatalf("Filter(%v) = %v, want %v", input, got, want)
		}
	})

	t.Run("partial match", func(t *testing.T) {
		input := []string{"1.0", "", "2.0", ""}
		pred := func(s string) bool { return len(s) > 0 }
		got := Filter(input, pred)
		want := []string{"1.0", "2.0"}
		if !reflect.DeepEqual(got, want) {
			t.Fatalf("Filter(%v) = %v, want %v", input, got, want)
		}
	})
}

func TestMin(t *testing.T) {
	if got := Min(5, 3); got != 3 {
		t.Fatalf("Min(5,3) = %v, want 3", got)
	}

	if got := Min(4, 4); got != 4 {
		t.Fatalf("Min(4,4) = %v, want 4", got)
	}

	a := math.NaN()
	if got := Min(1.0, a); got != 1.0 {
		t.Fatalf("Min(1.0,NaN) = %v, want 1.0", got)
	}
}

func TestThreadUnsafeRing(t *testing.T) {
	t.Run("capacity 1 overwrite", func(t *testing.T) {
		r := NewRing[int](1)
		r.Push(1)
		r.Push(2)
		got := r.ReadAllOrdered()
		want := []int{2}
		if !reflect.DeepEqual(got, want) {
			t.Fatalf("got %v want %v", got, want)
		}
	})

	t.Run("partial fill preserves order", func(t *testing.T) {
		r := NewRing[int](3)
		r.Push(10)
		r.Push(20)
		got := r.ReadAllOrdered()
		want := []int{10, 20}
		if !reflect.DeepEqual(got, want) {
			t.Fatalf("got %v want %v", got, want)
		}
	})

	t.Run("exact capacity order", func(t *testing.T) {
		r := NewRing[int](3)
		r.Push(1)
		r.Push(2)
		r.Push(3)
		got := r.ReadAllOrdered()
		want := []int{1, 2, 3}
		if !reflect.DeepEqual(got, want) {
			t.Fatalf("got %v want %v", got, want)
		}
	})

	t.Run("overwrite keeps most recent", func(t *testing.T) {
		r := NewRing[int](3)
		for i := 1; i <= 5; i++ {
			r.Push(i)
		}
		got := r.ReadAllOrdered()
		want := []int{3, 4, 5}
		if !reflect.DeepEqual(got, want) {
			t.Fatalf("got %v want %v", got, want)
		}
	})

	t.Run("empty ring", func(t *testing.T) {
		r := NewRing[int](3)
		got := r.ReadAllOrdered()
		if len(got) != 0 {
			t.Fatalf("got %v want empty", got)
		}
	})
}
