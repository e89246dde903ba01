package fetch

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/bluesky-social/indigo/atproto/identity"
	"github.com/bluesky-social/indigo/atproto/syntax"
	"github.com/bluesky-social/indigo/xrpc"
	"github.com/bluesky-social/threadview/thread"

	"golang.org/x/time/rate"
)

const (
	PostCollection    = "app.bsky.feed.post"
	ProfileCollection = "app.bsky.actor.profile"
)

var ErrNotPost = errors.New("record is not a post")

// Record as returned by `com.atproto.repo.getRecord`, plus the endpoint which served it.
type RawRecord struct {
	URI     string          `json:"uri"`
	CID     string          `json:"cid,omitempty"`
	Value   json.RawMessage `json:"value"`
	Service string          `json:"service"`
}

// Repository handle and optional profile record.
type RawProfile struct {
	DID     string          `json:"did"`
	Handle  string          `json:"handle"`
	Record  json.RawMessage `json:"record,omitempty"`
	Service string          `json:"service"`
}

// Fetcher is the raw upstream interface which [Loader] caches.
type Fetcher interface {
	GetRecord(ctx context.Context, service string, uri syntax.ATURI, cid string) (*RawRecord, error)
	GetProfile(ctx context.Context, service, identifier string) (*RawProfile, error)
}

// XRPC client for public (unauthenticated) record and profile reads.
type Client struct {
	HTTPClient *http.Client
	// If set, each repository is fetched from its own PDS (as declared in its DID document), instead of the requested service
	Directory identity.Directory
	// If set, outbound requests wait on this limiter
	Limiter   *rate.Limiter
	UserAgent string
	Logger    *slog.Logger
}

var _ Fetcher = (*Client)(nil)
var _ thread.Source = (*Client)(nil)

func NewClient() *Client {
	return &Client{
		HTTPClient: RobustHTTPClient(HTTPConfig{}),
		UserAgent:  "threadview",
		Logger:     slog.Default().With("system", "fetch"),
	}
}

func (c *Client) logger() *slog.Logger {
	if c.Logger != nil {
		return c.Logger
	}
	return slog.Default()
}

// resolves the host to use for a repository: its PDS if a directory is configured and resolution succeeds, otherwise the requested service
func (c *Client) host(ctx context.Context, service, repo string) string {
	if c.Directory == nil {
		return service
	}
	var ident *identity.Identity
	if strings.HasPrefix(repo, "did:") {
		did, err := syntax.ParseDID(repo)
		if err != nil {
			return service
		}
		ident, err = c.Directory.LookupDID(ctx, did)
		if err != nil {
			c.logger().Debug("failed to resolve DID, using default service", "did", did, "err", err)
			return service
		}
	} else {
		handle, err := syntax.ParseHandle(repo)
		if err != nil {
			return service
		}
		ident, err = c.Directory.LookupHandle(ctx, handle)
		if err != nil {
			c.logger().Debug("failed to resolve handle, using default service", "handle", handle, "err", err)
			return service
		}
	}
	if pds := ident.PDSEndpoint(); pds != "" {
		return pds
	}
	return service
}

func (c *Client) do(ctx context.Context, host, kind, method string, params map[string]any, out any) error {
	if c.Limiter != nil {
		if err := c.Limiter.Wait(ctx); err != nil {
			return err
		}
	}
	xrpcc := xrpc.Client{
		Client: c.HTTPClient,
		Host:   host,
	}
	if c.UserAgent != "" {
		ua := c.UserAgent
		xrpcc.UserAgent = &ua
	}

	start := time.Now()
	err := xrpcc.Do(ctx, xrpc.Query, "", method, params, nil, out)
	status := "ok"
	if err != nil {
		status = "error"
		if isNotFound(err) {
			status = "not_found"
		}
	}
	fetchRequests.WithLabelValues(kind, status).Inc()
	fetchDuration.WithLabelValues(kind, status).Observe(time.Since(start).Seconds())
	return err
}

func isNotFound(err error) bool {
	var xe *xrpc.XRPCError
	if errors.As(err, &xe) {
		return xe.ErrStr == "RecordNotFound" || xe.ErrStr == "RepoNotFound"
	}
	return false
}

func (c *Client) GetRecord(ctx context.Context, service string, uri syntax.ATURI, cid string) (*RawRecord, error) {
	repo := thread.URIAuthority(uri)
	coll := thread.URICollection(uri)
	rkey := thread.URIRecordKey(uri)
	if repo == "" || coll == "" || rkey == "" {
		return nil, fmt.Errorf("AT-URI does not reference a record: %s", uri)
	}
	params := map[string]any{
		"repo":       repo,
		"collection": coll,
		"rkey":       rkey,
	}
	if cid != "" {
		params["cid"] = cid
	}
	host := c.host(ctx, service, repo)

	var out struct {
		URI   string          `json:"uri"`
		CID   *string         `json:"cid"`
		Value json.RawMessage `json:"value"`
	}
	if err := c.do(ctx, host, "record", "com.atproto.repo.getRecord", params, &out); err != nil {
		if isNotFound(err) {
			return nil, fmt.Errorf("%w: %s", thread.ErrNotFound, uri)
		}
		return nil, fmt.Errorf("fetching %s: %w", uri, err)
	}
	if len(out.Value) == 0 {
		return nil, fmt.Errorf("empty record in response: %s", uri)
	}
	rec := RawRecord{
		URI:     out.URI,
		Value:   out.Value,
		Service: host,
	}
	if out.CID != nil {
		rec.CID = *out.CID
	}
	return &rec, nil
}

func (c *Client) GetProfile(ctx context.Context, service, identifier string) (*RawProfile, error) {
	host := c.host(ctx, service, identifier)

	var desc struct {
		Handle string `json:"handle"`
		DID    string `json:"did"`
	}
	err := c.do(ctx, host, "repo", "com.atproto.repo.describeRepo", map[string]any{"repo": identifier}, &desc)
	if err != nil {
		if isNotFound(err) {
			return nil, fmt.Errorf("%w: repo %s", thread.ErrNotFound, identifier)
		}
		return nil, fmt.Errorf("describing repo %s: %w", identifier, err)
	}
	prof := RawProfile{
		DID:     desc.DID,
		Handle:  desc.Handle,
		Service: host,
	}

	// accounts are not required to have a profile record
	uri := syntax.ATURI(fmt.Sprintf("at://%s/%s/self", desc.DID, ProfileCollection))
	rec, err := c.GetRecord(ctx, host, uri, "")
	if err != nil && !errors.Is(err, thread.ErrNotFound) {
		return nil, err
	}
	if rec != nil {
		prof.Record = rec.Value
	}
	return &prof, nil
}

// LoadPost fetches and decodes a post, without caching.
func (c *Client) LoadPost(ctx context.Context, service string, uri syntax.ATURI, cid string) (*thread.Post, error) {
	rec, err := c.GetRecord(ctx, service, uri, cid)
	if err != nil {
		return nil, err
	}
	return DecodePost(uri, rec)
}

// LoadProfile fetches and decodes a profile, without caching.
func (c *Client) LoadProfile(ctx context.Context, service, identifier string) (*thread.Profile, error) {
	raw, err := c.GetProfile(ctx, service, identifier)
	if err != nil {
		return nil, err
	}
	return DecodeProfile(raw)
}
