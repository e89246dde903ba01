package thread

import (
	"context"
	"sync"

	"github.com/bluesky-social/indigo/atproto/syntax"
)

// A fake in-memory [Source], for use in tests and demos. Keys are profile identifiers (DID or handle) and post AT-URIs.
type MockSource struct {
	mu       *sync.Mutex
	Profiles map[string]Profile
	Posts    map[syntax.ATURI]Post
	// errors to return instead of data
	Errors map[string]error
	// loads for these keys never complete until the context is done
	Blocked map[string]bool
	calls   map[string]int
}

var _ Source = (*MockSource)(nil)

func NewMockSource() MockSource {
	return MockSource{
		mu:       &sync.Mutex{},
		Profiles: make(map[string]Profile),
		Posts:    make(map[syntax.ATURI]Post),
		Errors:   make(map[string]error),
		Blocked:  make(map[string]bool),
		calls:    make(map[string]int),
	}
}

func (s *MockSource) InsertProfile(identifier string, p Profile) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.Profiles[identifier] = p
}

func (s *MockSource) InsertPost(p Post) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.Posts[p.URI] = p
}

func (s *MockSource) Fail(key string, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.Errors[key] = err
}

func (s *MockSource) Block(key string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.Blocked[key] = true
}

// Calls returns the number of loads issued for a key.
func (s *MockSource) Calls(key string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.calls[key]
}

func (s *MockSource) begin(ctx context.Context, key string) error {
	s.mu.Lock()
	s.calls[key]++
	blocked := s.Blocked[key]
	err := s.Errors[key]
	s.mu.Unlock()

	if blocked {
		<-ctx.Done()
		return ctx.Err()
	}
	return err
}

func (s *MockSource) LoadProfile(ctx context.Context, service, identifier string) (*Profile, error) {
	if err := s.begin(ctx, identifier); err != nil {
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.Profiles[identifier]
	if !ok {
		return nil, ErrNotFound
	}
	return &p, nil
}

func (s *MockSource) LoadPost(ctx context.Context, service string, uri syntax.ATURI, cid string) (*Post, error) {
	if err := s.begin(ctx, uri.String()); err != nil {
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.Posts[uri]
	if !ok {
		return nil, ErrNotFound
	}
	return &p, nil
}
