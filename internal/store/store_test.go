package store

import "testing"

func TestPutGetDelete(t *testing.T) {
	s := New[string]()
	s.Put("a", "alpha")
	v, ok := s.Get("a")
	if !ok || v != "alpha" {
		t.Fatalf("expected alpha, got %q ok=%v", v, ok)
	}
	if !s.Delete("a") {
		t.Fatal("expected delete to report true for existing id")
	}
	if _, ok := s.Get("a"); ok {
		t.Fatal("expected item to be gone after delete")
	}
}

func TestListPreservesInsertionOrder(t *testing.T) {
	s := New[int]()
	s.Put("c", 3)
	s.Put("a", 1)
	s.Put("b", 2)
	got := s.List()
	want := []int{3, 1, 2}
	if len(got) != len(want) {
		t.Fatalf("expected %d items, got %d", len(want), len(got))
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("index %d: got %d want %d", i, got[i], want[i])
		}
	}
}

func TestDeleteUnknownID(t *testing.T) {
	s := New[int]()
	if s.Delete("missing") {
		t.Fatal("expected delete of missing id to report false")
	}
}
