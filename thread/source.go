package thread

import (
	"context"
	"errors"
	"fmt"

	"github.com/bluesky-social/indigo/atproto/syntax"

	"github.com/puzpuzpuz/xsync/v3"
)

// Returned by a [Source] when the requested record or repository does not exist.
var ErrNotFound = errors.New("record not found")

// Source is the asynchronous data-loading layer the [Renderer] pulls from. Implementations are expected to honor context cancellation.
type Source interface {
	LoadProfile(ctx context.Context, service, identifier string) (*Profile, error)
	LoadPost(ctx context.Context, service string, uri syntax.ATURI, cid string) (*Post, error)
}

// Outcome of a single fetch. Done is false while the fetch is pending (or not started).
type Result[T any] struct {
	Value T
	Err   error
	Done  bool
}

func (r Result[T]) Loaded() bool {
	return r.Done && r.Err == nil
}

// Snapshot is a read-only view of the data fetched so far.
type Snapshot interface {
	Profile(service, identifier string) Result[*Profile]
	Post(service string, uri syntax.ATURI) Result[*Post]
}

type RequestKind string

const (
	RequestProfile RequestKind = "profile"
	RequestPost    RequestKind = "post"
)

// A fetch which a render still needs. For profiles, Identifier is set; for posts, URI (and optionally CID).
type Request struct {
	Kind       RequestKind
	Service    string
	Identifier string
	URI        syntax.ATURI
	CID        string
}

func (r Request) Key() string {
	switch r.Kind {
	case RequestProfile:
		return profileKey(r.Service, r.Identifier)
	default:
		return postKey(r.Service, r.URI)
	}
}

// Fetch issues the request against a source, storing the outcome in results. A failure after ctx is done is not stored: the request stays pending.
func (r Request) Fetch(ctx context.Context, src Source, results *Results) {
	switch r.Kind {
	case RequestProfile:
		p, err := src.LoadProfile(ctx, r.Service, r.Identifier)
		if err != nil && ctx.Err() != nil {
			return
		}
		results.PutProfile(r.Service, r.Identifier, p, err)
	case RequestPost:
		p, err := src.LoadPost(ctx, r.Service, r.URI, r.CID)
		if err != nil && ctx.Err() != nil {
			return
		}
		results.PutPost(r.Service, r.URI, p, err)
	default:
		panic(fmt.Sprintf("unknown request kind: %s", r.Kind))
	}
}

func profileKey(service, identifier string) string {
	return "profile|" + service + "|" + identifier
}

func postKey(service string, uri syntax.ATURI) string {
	return "post|" + service + "|" + uri.String()
}

// Results is an in-memory [Snapshot], scoped to a single render. Safe for concurrent use.
type Results struct {
	profiles *xsync.MapOf[string, Result[*Profile]]
	posts    *xsync.MapOf[string, Result[*Post]]
}

var _ Snapshot = (*Results)(nil)

func NewResults() *Results {
	return &Results{
		profiles: xsync.NewMapOf[string, Result[*Profile]](),
		posts:    xsync.NewMapOf[string, Result[*Post]](),
	}
}

func (r *Results) Profile(service, identifier string) Result[*Profile] {
	res, _ := r.profiles.Load(profileKey(service, identifier))
	return res
}

func (r *Results) Post(service string, uri syntax.ATURI) Result[*Post] {
	res, _ := r.posts.Load(postKey(service, uri))
	return res
}

func (r *Results) PutProfile(service, identifier string, p *Profile, err error) {
	r.profiles.Store(profileKey(service, identifier), Result[*Profile]{Value: p, Err: err, Done: true})
}

func (r *Results) PutPost(service string, uri syntax.ATURI, p *Post, err error) {
	r.posts.Store(postKey(service, uri), Result[*Post]{Value: p, Err: err, Done: true})
}
