package promptcache

import (
	"encoding/json"
	"testing"
	"time"
)

func TestFingerprintStableAndDiscriminating(t *testing.T) {
	a := FingerprintInput{Model: "sim-large", Messages: []json.RawMessage{json.RawMessage(`{"role":"user","content":"hi"}`)}}
	b := FingerprintInput{Model: "sim-large", Messages: []json.RawMessage{json.RawMessage(`{"role":"user","content":"hi"}`)}}
	c := FingerprintInput{Model: "sim-large", Messages: []json.RawMessage{json.RawMessage(`{"role":"user","content":"bye"}`)}}

	if Fingerprint(a) != Fingerprint(b) {
		t.Fatal("identical inputs produced different fingerprints")
	}
	if Fingerprint(a) == Fingerprint(c) {
		t.Fatal("different inputs produced the same fingerprint")
	}
}

func TestStoreBelowFloorNotCached(t *testing.T) {
	cache := New(time.Minute, 1024, 100)
	cache.Store("k1", 500)
	if _, hit := cache.Lookup("k1"); hit {
		t.Fatal("expected sub-floor prompt to not be cached")
	}
}

func TestStoreAboveFloorCached(t *testing.T) {
	cache := New(time.Minute, 1024, 100)
	cache.Store("k1", 2000)
	tokens, hit := cache.Lookup("k1")
	if !hit || tokens != 2000 {
		t.Fatalf("expected cache hit of 2000, got hit=%v tokens=%d", hit, tokens)
	}
}

func TestExpiryEvictsEntry(t *testing.T) {
	cache := New(1*time.Millisecond, 0, 100)
	cache.Store("k1", 10)
	time.Sleep(5 * time.Millisecond)
	if _, hit := cache.Lookup("k1"); hit {
		t.Fatal("expected expired entry to be evicted")
	}
}

func TestLRUCapEvictsOldest(t *testing.T) {
	cache := New(time.Minute, 0, 2)
	cache.Store("a", 10)
	cache.Store("b", 10)
	cache.Store("c", 10) // evicts "a"

	if _, hit := cache.Lookup("a"); hit {
		t.Fatal("expected oldest entry to be evicted")
	}
	if cache.Len() != 2 {
		t.Fatalf("expected 2 entries, got %d", cache.Len())
	}
}
