package conversation

import "sync"

// MaxLogSize bounds every per-user log; oldest entries are evicted first.
const MaxLogSize = 200

type Role string

const (
	RoleCustomer  Role = "user"
	RoleAssistant Role = "assistant"
)

// Entry is a single turn of a conversation. Immutable once appended.
// The JSON shape matches the snapshot file written across restarts.
type Entry struct {
	Role Role   `json:"role"`
	Text string `json:"text"`
	Time string `json:"time"`
}

type userLog struct {
	mu      sync.Mutex
	entries []Entry
}

// Store maps a user key ("whatsapp:<id>", "telegram:<id>") to its bounded
// conversation log. Logs are created lazily on first append and live for the
// process lifetime. Each log has its own lock so unrelated users never
// serialize on each other.
type Store struct {
	mu   sync.RWMutex
	logs map[string]*userLog
}

func NewStore() *Store {
	return &Store{logs: make(map[string]*userLog)}
}

func (s *Store) log(user string) *userLog {
	s.mu.RLock()
	l := s.logs[user]
	s.mu.RUnlock()
	if l != nil {
		return l
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if l = s.logs[user]; l == nil {
		l = &userLog{}
		s.logs[user] = l
	}
	return l
}

// Append adds entries as one atomic batch and truncates the log to the most
// recent MaxLogSize entries. A concurrent reader sees either the whole batch
// or none of it.
func (s *Store) Append(user string, entries ...Entry) {
	if len(entries) == 0 {
		return
	}
	l := s.log(user)
	l.mu.Lock()
	defer l.mu.Unlock()
	l.entries = append(l.entries, entries...)
	if n := len(l.entries); n > MaxLogSize {
		kept := make([]Entry, MaxLogSize)
		copy(kept, l.entries[n-MaxLogSize:])
		l.entries = kept
	}
}

// RecentWindow returns the last n entries in chronological order, fewer if
// the log is shorter. An unknown user yields an empty window, never an error.
func (s *Store) RecentWindow(user string, n int) []Entry {
	s.mu.RLock()
	l := s.logs[user]
	s.mu.RUnlock()
	if l == nil || n <= 0 {
		return nil
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	start := len(l.entries) - n
	if start < 0 {
		start = 0
	}
	out := make([]Entry, len(l.entries)-start)
	copy(out, l.entries[start:])
	return out
}

func (s *Store) Len(user string) int {
	s.mu.RLock()
	l := s.logs[user]
	s.mu.RUnlock()
	if l == nil {
		return 0
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.entries)
}

// Snapshot returns a deep copy of every log, suitable for serialization.
// Each log is copied under its own lock, so no half-written batch can leak
// into the snapshot; appends to other users proceed while it runs.
func (s *Store) Snapshot() map[string][]Entry {
	s.mu.RLock()
	logs := make(map[string]*userLog, len(s.logs))
	for user, l := range s.logs {
		logs[user] = l
	}
	s.mu.RUnlock()

	snap := make(map[string][]Entry, len(logs))
	for user, l := range logs {
		l.mu.Lock()
		entries := make([]Entry, len(l.entries))
		copy(entries, l.entries)
		l.mu.Unlock()
		snap[user] = entries
	}
	return snap
}

// Restore replaces the store contents with a previously saved snapshot.
// Meant for startup, before the store is shared with request handlers.
// Oversized logs from older snapshots are re-truncated on load.
func (s *Store) Restore(snap map[string][]Entry) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.logs = make(map[string]*userLog, len(snap))
	for user, entries := range snap {
		if n := len(entries); n > MaxLogSize {
			entries = entries[n-MaxLogSize:]
		}
		l := &userLog{entries: make([]Entry, len(entries))}
		copy(l.entries, entries)
		s.logs[user] = l
	}
}
