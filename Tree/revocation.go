package tree

import (
	"sort"
	"sync"
)

// Entry records that the subtree under Node is revoked from Epoch on.
type Entry struct {
	Node  NodeID
	Epoch int
}

// RevocationList is an insert-only set of entries, safe for concurrent use.
type RevocationList struct {
	mu      sync.Mutex
	entries map[Entry]struct{}
}

func NewRevocationList() *RevocationList {
	return &RevocationList{entries: make(map[Entry]struct{})}
}

// Add inserts e and reports whether it was new.
func (rl *RevocationList) Add(e Entry) bool {
	rl.mu.Lock()
	defer rl.mu.Unlock()
	if _, ok := rl.entries[e]; ok {
		return false
	}
	rl.entries[e] = struct{}{}
	return true
}

func (rl *RevocationList) Len() int {
	if rl == nil {
		return 0
	}
	rl.mu.Lock()
	defer rl.mu.Unlock()
	return len(rl.entries)
}

// Entries returns a snapshot ordered by node, then epoch. A nil list is empty.
func (rl *RevocationList) Entries() []Entry {
	if rl == nil {
		return nil
	}
	rl.mu.Lock()
	out := make([]Entry, 0, len(rl.entries))
	for e := range rl.entries {
		out = append(out, e)
	}
	rl.mu.Unlock()
	sort.Slice(out, func(i, j int) bool {
		if out[i].Node != out[j].Node {
			return out[i].Node < out[j].Node
		}
		return out[i].Epoch < out[j].Epoch
	})
	return out
}
