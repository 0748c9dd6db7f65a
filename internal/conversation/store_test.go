package conversation

import (
	"fmt"
	"sync"
	"testing"
)

func entry(role Role, text string) Entry {
	return Entry{Role: role, Text: text, Time: "2024-01-01 12:00"}
}

func TestStoreAppendAndWindow(t *testing.T) {
	s := NewStore()
	s.Append("whatsapp:1", entry(RoleCustomer, "hi"), entry(RoleAssistant, "hello"))

	w := s.RecentWindow("whatsapp:1", 10)
	if len(w) != 2 {
		t.Fatalf("want 2 entries, got %d", len(w))
	}
	if w[0].Role != RoleCustomer || w[0].Text != "hi" {
		t.Fatalf("unexpected first entry: %+v", w[0])
	}
	if w[1].Role != RoleAssistant || w[1].Text != "hello" {
		t.Fatalf("unexpected second entry: %+v", w[1])
	}

	// Window is a copy; mutating it must not leak into the store.
	w[0].Text = "mutated"
	if got := s.RecentWindow("whatsapp:1", 1)[0].Text; got == "mutated" {
		t.Fatalf("internal state mutated via returned window")
	}
}

func TestStoreUnknownUserIsEmpty(t *testing.T) {
	s := NewStore()
	if w := s.RecentWindow("telegram:404", 5); len(w) != 0 {
		t.Fatalf("want empty window, got %d entries", len(w))
	}
	if n := s.Len("telegram:404"); n != 0 {
		t.Fatalf("want zero length, got %d", n)
	}
}

func TestStoreTruncationKeepsMostRecent(t *testing.T) {
	s := NewStore()
	for i := 0; i < MaxLogSize+1; i++ {
		s.Append("u", entry(RoleCustomer, fmt.Sprintf("msg-%d", i)))
	}
	if n := s.Len("u"); n != MaxLogSize {
		t.Fatalf("want %d entries, got %d", MaxLogSize, n)
	}
	w := s.RecentWindow("u", MaxLogSize)
	if w[0].Text != "msg-1" {
		t.Fatalf("oldest entry not evicted, window starts at %q", w[0].Text)
	}
	if w[len(w)-1].Text != fmt.Sprintf("msg-%d", MaxLogSize) {
		t.Fatalf("newest entry missing, window ends at %q", w[len(w)-1].Text)
	}
}

func TestStoreBatchTruncation(t *testing.T) {
	s := NewStore()
	batch := make([]Entry, MaxLogSize+10)
	for i := range batch {
		batch[i] = entry(RoleCustomer, fmt.Sprintf("b-%d", i))
	}
	s.Append("u", batch...)
	if n := s.Len("u"); n != MaxLogSize {
		t.Fatalf("oversized batch: want %d, got %d", MaxLogSize, n)
	}
	if got := s.RecentWindow("u", 1)[0].Text; got != fmt.Sprintf("b-%d", MaxLogSize+9) {
		t.Fatalf("newest batch entry lost: %q", got)
	}
}

// Pairs appended in one call must never appear torn to a concurrent reader:
// a window either holds both halves of a pair or neither.
func TestStoreNoTornPairs(t *testing.T) {
	s := NewStore()
	done := make(chan struct{})
	go func() {
		defer close(done)
		for i := 0; i < 500; i++ {
			tag := fmt.Sprintf("%d", i)
			s.Append("u", entry(RoleCustomer, tag), entry(RoleAssistant, tag))
		}
	}()
	for {
		select {
		case <-done:
			return
		default:
		}
		w := s.RecentWindow("u", 2)
		switch len(w) {
		case 0:
		case 2:
			if w[0].Role != RoleCustomer || w[1].Role != RoleAssistant || w[0].Text != w[1].Text {
				t.Fatalf("torn pair observed: %+v", w)
			}
		default:
			t.Fatalf("odd window length %d", len(w))
		}
	}
}

func TestStoreConcurrentUsers(t *testing.T) {
	s := NewStore()
	var wg sync.WaitGroup
	for u := 0; u < 8; u++ {
		wg.Add(1)
		go func(u int) {
			defer wg.Done()
			user := fmt.Sprintf("whatsapp:%d", u)
			for i := 0; i < 200; i++ {
				s.Append(user, entry(RoleCustomer, "q"), entry(RoleAssistant, "a"))
				s.RecentWindow(user, 20)
			}
		}(u)
	}
	wg.Wait()
	for u := 0; u < 8; u++ {
		if n := s.Len(fmt.Sprintf("whatsapp:%d", u)); n != MaxLogSize {
			t.Fatalf("user %d: want %d entries, got %d", u, MaxLogSize, n)
		}
	}
}

func TestStoreSnapshotRestoreRoundTrip(t *testing.T) {
	s := NewStore()
	s.Append("whatsapp:1", entry(RoleCustomer, "hi"), entry(RoleAssistant, "hello"))
	s.Append("telegram:2", entry(RoleCustomer, "foo"))

	snap := s.Snapshot()

	restored := NewStore()
	restored.Restore(snap)

	for _, user := range []string{"whatsapp:1", "telegram:2"} {
		before := s.RecentWindow(user, MaxLogSize)
		after := restored.RecentWindow(user, MaxLogSize)
		if len(before) != len(after) {
			t.Fatalf("user %s: length mismatch %d vs %d", user, len(before), len(after))
		}
		for i := range before {
			if before[i] != after[i] {
				t.Fatalf("user %s entry %d: %+v vs %+v", user, i, before[i], after[i])
			}
		}
	}

	// Snapshot is detached from the live store.
	snap["whatsapp:1"][0].Text = "mutated"
	if s.RecentWindow("whatsapp:1", 1)[0].Text == "mutated" {
		t.Fatalf("snapshot aliases live store")
	}
}

func TestStoreSnapshotDuringAppends(t *testing.T) {
	s := NewStore()
	stop := make(chan struct{})
	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		for i := 0; ; i++ {
			select {
			case <-stop:
				return
			default:
				tag := fmt.Sprintf("%d", i)
				s.Append("u", entry(RoleCustomer, tag), entry(RoleAssistant, tag))
			}
		}
	}()
	for i := 0; i < 50; i++ {
		snap := s.Snapshot()
		if entries, ok := snap["u"]; ok && len(entries)%2 != 0 {
			t.Fatalf("snapshot caught a half-written pair: %d entries", len(entries))
		}
	}
	close(stop)
	wg.Wait()
}
