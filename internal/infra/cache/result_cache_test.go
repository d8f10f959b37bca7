package cache

import (
	"fmt"
	"strings"
	"testing"
	"time"

	"quillscribe/internal/domain/model"
)

func fakeResult(id string, size int) *model.EnhancedText {
	return &model.EnhancedText{ID: id, Enhanced: strings.Repeat("x", size)}
}

func TestFingerprintDeterministic(t *testing.T) {
	a := Fingerprint("hello world", "grammar", "gemini-pro", "0.3", "en")
	b := Fingerprint("hello world", "grammar", "gemini-pro", "0.3", "en")
	if a != b {
		t.Fatalf("identical inputs produced different fingerprints: %s vs %s", a, b)
	}
	if c := Fingerprint("hello world", "style", "gemini-pro", "0.3", "en"); c == a {
		t.Fatal("different mode produced identical fingerprint")
	}
	// Boundary shifts between fields must change the key.
	if Fingerprint("ab", "c") == Fingerprint("a", "bc") {
		t.Fatal("field boundaries are not part of the fingerprint")
	}
}

func TestGetPutRoundTrip(t *testing.T) {
	c := New("test", time.Hour, 1<<20)
	fp := Fingerprint("some text")

	if _, ok := c.Get(fp); ok {
		t.Fatal("hit on empty cache")
	}
	res := fakeResult("r1", 100)
	c.Put(fp, res)

	got, ok := c.Get(fp)
	if !ok {
		t.Fatal("miss after Put")
	}
	if got.(*model.EnhancedText).ID != "r1" {
		t.Fatalf("wrong result returned: %+v", got)
	}
}

func TestTTLExpiry(t *testing.T) {
	c := New("test", time.Minute, 1<<20)
	now := time.Unix(1000, 0)
	c.now = func() time.Time { return now }

	fp := Fingerprint("text")
	c.Put(fp, fakeResult("r1", 10))

	now = now.Add(59 * time.Second)
	if _, ok := c.Get(fp); !ok {
		t.Fatal("entry expired before TTL")
	}

	now = now.Add(2 * time.Second)
	if _, ok := c.Get(fp); ok {
		t.Fatal("expired entry treated as hit")
	}
	if c.Len() != 0 {
		t.Fatalf("expired entry not dropped, len = %d", c.Len())
	}
}

func TestCapacityEvictionByAccessCount(t *testing.T) {
	// Budget fits roughly three 100-byte results.
	c := New("test", time.Hour, 350)

	fps := make([]string, 4)
	for i := 0; i < 3; i++ {
		fps[i] = Fingerprint(fmt.Sprintf("text-%d", i))
		c.Put(fps[i], fakeResult(fmt.Sprintf("r%d", i), 100))
	}
	// Touch entries 1 and 2 so entry 0 has the lowest access count.
	c.Get(fps[1])
	c.Get(fps[2])
	c.Get(fps[2])

	fps[3] = Fingerprint("text-3")
	c.Put(fps[3], fakeResult("r3", 100))

	if _, ok := c.Get(fps[0]); ok {
		t.Fatal("least-accessed entry survived capacity eviction")
	}
	for _, fp := range fps[1:] {
		if _, ok := c.Get(fp); !ok {
			t.Fatalf("frequently accessed entry %s was evicted", fp)
		}
	}
}

func TestEvictTwoPhase(t *testing.T) {
	c := New("test", time.Minute, 250)
	now := time.Unix(2000, 0)
	c.now = func() time.Time { return now }

	old := Fingerprint("old")
	c.Put(old, fakeResult("old", 100))

	now = now.Add(2 * time.Minute)
	fresh := Fingerprint("fresh")
	c.Put(fresh, fakeResult("fresh", 100))

	c.Evict()

	// Phase 1 removes the expired entry; the fresh one is under budget and stays.
	if _, ok := c.Get(old); ok {
		t.Fatal("expired entry survived Evict")
	}
	if _, ok := c.Get(fresh); !ok {
		t.Fatal("fresh entry removed although cache was under budget")
	}
}

func TestClearAndSize(t *testing.T) {
	c := New("test", time.Hour, 1<<20)
	c.Put(Fingerprint("a"), fakeResult("a", 500))
	c.Put(Fingerprint("b"), fakeResult("b", 300))

	if c.Size() < 800 {
		t.Fatalf("Size = %d, want >= 800", c.Size())
	}
	c.Clear()
	if c.Size() != 0 || c.Len() != 0 {
		t.Fatalf("Clear left size=%d len=%d", c.Size(), c.Len())
	}
}

func TestPutReplaceSameFingerprint(t *testing.T) {
	c := New("test", time.Hour, 1<<20)
	fp := Fingerprint("text")
	c.Put(fp, fakeResult("r1", 400))
	c.Put(fp, fakeResult("r2", 100))

	got, ok := c.Get(fp)
	if !ok || got.(*model.EnhancedText).ID != "r2" {
		t.Fatalf("replacement not visible: %+v", got)
	}
	if c.Size() > 200 {
		t.Fatalf("stale size retained after replace: %d", c.Size())
	}
}
