package thread

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	comatproto "github.com/bluesky-social/indigo/api/atproto"
	appbsky "github.com/bluesky-social/indigo/api/bsky"
	"github.com/bluesky-social/indigo/atproto/syntax"
)

var ErrInvalidRecord = errors.New("invalid post record")

// Reference to a specific version of a record: AT-URI plus content hash (CID). The CID may be empty.
type StrongRef struct {
	URI syntax.ATURI `json:"uri"`
	CID string       `json:"cid,omitempty"`
}

type ReplyRef struct {
	Root   StrongRef `json:"root"`
	Parent StrongRef `json:"parent"`
}

// A single `app.bsky.feed.post` record, along with where it was fetched from. Immutable once loaded.
type Post struct {
	URI       syntax.ATURI
	CID       string
	Text      string
	CreatedAt string
	Facets    []Facet
	Reply     *ReplyRef
	Embed     Embed

	// Service is the endpoint the record was actually fetched from, if known. Blob URLs for the post's media point here.
	Service string
}

// Parses the JSON form of a post record (as returned in the "value" field of `com.atproto.repo.getRecord`).
func ParsePostJSON(uri syntax.ATURI, cid string, raw []byte) (*Post, error) {
	var rec appbsky.FeedPost
	if err := json.Unmarshal(raw, &rec); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidRecord, err)
	}
	return PostFromRecord(uri, cid, &rec)
}

func PostFromRecord(uri syntax.ATURI, cid string, rec *appbsky.FeedPost) (*Post, error) {
	if rec == nil {
		return nil, ErrInvalidRecord
	}
	p := Post{
		URI:       uri,
		CID:       cid,
		Text:      rec.Text,
		CreatedAt: rec.CreatedAt,
		Facets:    facetsFromRecord(rec.Facets),
		Embed:     EmbedFromRecord(rec.Embed),
	}
	if rec.Reply != nil {
		if rec.Reply.Parent == nil {
			return nil, fmt.Errorf("%w: reply without parent reference", ErrInvalidRecord)
		}
		parent, err := strongRefFromRecord(rec.Reply.Parent)
		if err != nil {
			return nil, fmt.Errorf("%w: reply parent: %w", ErrInvalidRecord, err)
		}
		reply := ReplyRef{Parent: parent, Root: parent}
		if rec.Reply.Root != nil {
			root, err := strongRefFromRecord(rec.Reply.Root)
			if err == nil {
				reply.Root = root
			}
		}
		p.Reply = &reply
	}
	return &p, nil
}

// Author returns the repository identifier (DID or handle) from the post URI.
func (p *Post) Author() string {
	return URIAuthority(p.URI)
}

// Parsed creation timestamp. Returns the zero time if the record has a malformed datetime.
func (p *Post) CreatedTime() time.Time {
	t, err := ParseTimestamp(p.CreatedAt)
	if err != nil {
		return time.Time{}
	}
	return t
}

func strongRefFromRecord(ref *comatproto.RepoStrongRef) (StrongRef, error) {
	if ref == nil {
		return StrongRef{}, fmt.Errorf("missing strong reference")
	}
	uri, err := syntax.ParseATURI(ref.Uri)
	if err != nil {
		return StrongRef{}, err
	}
	return StrongRef{URI: uri, CID: ref.Cid}, nil
}

// URIAuthority returns the authority (repo DID or handle) section of an AT-URI.
func URIAuthority(uri syntax.ATURI) string {
	auth, _, _ := splitURI(uri)
	return auth
}

// URIRecordKey returns the record key section of an AT-URI, or empty string.
func URIRecordKey(uri syntax.ATURI) string {
	_, _, rkey := splitURI(uri)
	return rkey
}

// URICollection returns the collection NSID section of an AT-URI, or empty string.
func URICollection(uri syntax.ATURI) string {
	_, coll, _ := splitURI(uri)
	return coll
}

func splitURI(uri syntax.ATURI) (authority, collection, rkey string) {
	rest := strings.TrimPrefix(uri.String(), "at://")
	parts := strings.SplitN(rest, "/", 3)
	authority = parts[0]
	if len(parts) > 1 {
		collection = parts[1]
	}
	if len(parts) > 2 {
		rkey = parts[2]
	}
	return
}
