package main

import (
	"fmt"
	"net/url"
	"strings"

	"github.com/bluesky-social/indigo/atproto/syntax"
	"github.com/bluesky-social/threadview/fetch"
	"github.com/bluesky-social/threadview/thread"
)

// attempts to parse a post reference (AT-URI, or web app URL like https://bsky.app/profile/<atid>/post/<rkey>) into the account identifier and record key
func ParsePostRef(raw string) (atid, rkey string, ok bool) {
	raw = strings.TrimSpace(raw)
	raw = strings.TrimSuffix(raw, "/")
	if strings.HasPrefix(raw, "at://") {
		aturi, err := syntax.ParseATURI(raw)
		if err != nil {
			return "", "", false
		}
		if thread.URICollection(aturi) != fetch.PostCollection || thread.URIRecordKey(aturi) == "" {
			return "", "", false
		}
		return thread.URIAuthority(aturi), thread.URIRecordKey(aturi), true
	}

	u, err := url.Parse(raw)
	if err != nil || (u.Scheme != "https" && u.Scheme != "http") {
		return "", "", false
	}
	parts := strings.Split(strings.Trim(u.Path, "/"), "/")
	if len(parts) == 4 && parts[0] == "profile" && parts[2] == "post" && parts[1] != "" && parts[3] != "" {
		return parts[1], parts[3], true
	}
	return "", "", false
}

// local path where a post is rendered
func postPath(atid, rkey string) string {
	return fmt.Sprintf("/profile/%s/post/%s", url.PathEscape(atid), url.PathEscape(rkey))
}

// validates a user-supplied service host, returning the normalized origin (scheme and host only)
func ParseServiceHost(raw string, allowPrivate bool) (string, error) {
	u, err := url.Parse(strings.TrimSpace(raw))
	if err != nil {
		return "", fmt.Errorf("invalid service URL: %w", err)
	}
	if u.Host == "" {
		return "", fmt.Errorf("service URL has no host: %s", raw)
	}
	switch u.Scheme {
	case "https":
	case "http":
		if !allowPrivate {
			return "", fmt.Errorf("service must use https: %s", raw)
		}
	default:
		return "", fmt.Errorf("unsupported service URL scheme: %s", u.Scheme)
	}
	return u.Scheme + "://" + strings.ToLower(u.Host), nil
}
