package radix

import "testing"

func words(n int) []string {
	base := []string{"the", "quick", "brown", "fox", "jumps", "over", "a", "lazy", "dog", "again",
		"and", "then", "ran", "far", "away", "into"}
	out := make([]string, n)
	for i := 0; i < n; i++ {
		out[i] = base[i%len(base)]
	}
	return out
}

func TestMatchPrefixLenNoInsert(t *testing.T) {
	tr := NewTree(4)
	matched, blocks := tr.MatchPrefixLen(words(16))
	if matched != 0 || blocks != 0 {
		t.Fatalf("expected no match on empty tree, got %d tokens / %d blocks", matched, blocks)
	}
}

func TestInsertThenExactMatch(t *testing.T) {
	tr := NewTree(4)
	seq := words(16)
	tr.Insert(seq)
	matched, blocks := tr.MatchPrefixLen(seq)
	if matched != 16 || blocks != 4 {
		t.Fatalf("got %d tokens / %d blocks, want 16/4", matched, blocks)
	}
}

func TestPartialBlockNotCredited(t *testing.T) {
	tr := NewTree(4)
	tr.Insert(words(16))
	matched, _ := tr.MatchPrefixLen(words(18))
	if matched != 16 {
		t.Fatalf("got %d, want 16 (trailing partial block dropped)", matched)
	}
}

func TestDivergentPrefixStopsMatch(t *testing.T) {
	tr := NewTree(4)
	tr.Insert(words(16))
	diverged := words(16)
	diverged[5] = "completely-different-token"
	matched, blocks := tr.MatchPrefixLen(diverged)
	if matched != 4 || blocks != 1 {
		t.Fatalf("got %d tokens / %d blocks, want 4/1 (only first block matches)", matched, blocks)
	}
}
