package fetch

import (
	"bytes"
	"encoding/json"
	"fmt"

	appbsky "github.com/bluesky-social/indigo/api/bsky"
	"github.com/bluesky-social/indigo/atproto/syntax"
	"github.com/bluesky-social/threadview/thread"
)

// DecodePost parses a raw post record. The collection of the requested URI must be the post collection.
func DecodePost(uri syntax.ATURI, rec *RawRecord) (*thread.Post, error) {
	if coll := thread.URICollection(uri); coll != PostCollection {
		return nil, fmt.Errorf("%w: %s is in collection %s", ErrNotPost, uri, coll)
	}
	p, err := thread.ParsePostJSON(uri, rec.CID, rec.Value)
	if err != nil {
		return nil, err
	}
	p.Service = rec.Service
	return p, nil
}

// DecodeProfile parses repository metadata and the optional profile record.
func DecodeProfile(raw *RawProfile) (*thread.Profile, error) {
	did, err := syntax.ParseDID(raw.DID)
	if err != nil {
		return nil, fmt.Errorf("repo description had invalid DID: %w", err)
	}
	var rec *appbsky.ActorProfile
	if len(raw.Record) > 0 && !bytes.Equal(raw.Record, []byte("null")) {
		rec = &appbsky.ActorProfile{}
		if err := json.Unmarshal(raw.Record, rec); err != nil {
			return nil, fmt.Errorf("%w: profile of %s: %w", thread.ErrInvalidRecord, did, err)
		}
	}
	p := thread.ProfileFromRecord(did, raw.Handle, rec)
	p.Service = raw.Service
	return p, nil
}
