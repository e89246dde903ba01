package thread

import (
	"sort"
	"sync"

	"github.com/bluesky-social/indigo/atproto/syntax"
)

// Immutable set of post URIs which have already been rendered somewhere (eg, as the parent of a reply), so other views can avoid showing them twice.
//
// The zero value is an empty set.
type Filter struct {
	uris map[syntax.ATURI]struct{}
}

func NewFilter(uris ...syntax.ATURI) Filter {
	f := Filter{uris: make(map[syntax.ATURI]struct{}, len(uris))}
	for _, u := range uris {
		f.uris[u] = struct{}{}
	}
	return f
}

func (f Filter) Contains(uri syntax.ATURI) bool {
	_, ok := f.uris[uri]
	return ok
}

// Add returns a set which also contains uri. If uri is already present, the receiver itself is returned.
func (f Filter) Add(uri syntax.ATURI) Filter {
	if f.Contains(uri) {
		return f
	}
	out := Filter{uris: make(map[syntax.ATURI]struct{}, len(f.uris)+1)}
	for u := range f.uris {
		out.uris[u] = struct{}{}
	}
	out.uris[uri] = struct{}{}
	return out
}

func (f Filter) Len() int {
	return len(f.uris)
}

// Sorted list of members.
func (f Filter) URIs() []syntax.ATURI {
	out := make([]syntax.ATURI, 0, len(f.uris))
	for u := range f.uris {
		out = append(out, u)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

// Shared, concurrency-safe holder for a [Filter]. Any node in any render may read or register URIs.
//
// If Limit is positive, the set is reset once it reaches that many members.
type SharedFilter struct {
	Limit int

	mu     sync.Mutex
	filter Filter
}

func NewSharedFilter(limit int) *SharedFilter {
	return &SharedFilter{Limit: limit}
}

func (s *SharedFilter) Get() Filter {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.filter
}

// Register adds uri to the set, if not already present. Returns true if the set changed.
func (s *SharedFilter) Register(uri syntax.ATURI) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.filter.Contains(uri) {
		return false
	}
	if s.Limit > 0 && s.filter.Len() >= s.Limit {
		s.filter = Filter{}
	}
	s.filter = s.filter.Add(uri)
	return true
}
