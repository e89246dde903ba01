package thread

import (
	"regexp"
	"strings"

	appbsky "github.com/bluesky-social/indigo/api/bsky"
	"github.com/bluesky-social/indigo/atproto/syntax"
)

// Author metadata: repository handle plus the `app.bsky.actor.profile` record, if any.
type Profile struct {
	DID         syntax.DID `json:"did"`
	Handle      string     `json:"handle"`
	DisplayName string     `json:"displayName,omitempty"`
	Description string     `json:"description,omitempty"`
	Avatar      *BlobRef   `json:"avatar,omitempty"`

	// endpoint the profile was fetched from
	Service string `json:"-"`
}

// Builds a Profile from repo metadata and an optional profile record.
func ProfileFromRecord(did syntax.DID, handle string, rec *appbsky.ActorProfile) *Profile {
	p := Profile{
		DID:    did,
		Handle: handle,
	}
	if rec == nil {
		return &p
	}
	if rec.DisplayName != nil {
		p.DisplayName = *rec.DisplayName
	}
	if rec.Description != nil {
		p.Description = *rec.Description
	}
	p.Avatar = blobFromRecord(rec.Avatar)
	return &p
}

var handleSeparatorRegex = regexp.MustCompile(`[.:]`)

// FullHandle returns the handle qualified with the service hostname, for bare (single-label) handles on self-hosted services.
func (p *Profile) FullHandle(service string) string {
	if handleSeparatorRegex.MatchString(p.Handle) {
		return p.Handle
	}
	return p.Handle + "." + ServiceHost(service)
}

// Name to show for the author: display name if set, otherwise handle.
func (p *Profile) Name() string {
	if p.DisplayName != "" {
		return p.DisplayName
	}
	return p.Handle
}

// ServiceHost strips the scheme from a service URL.
func ServiceHost(service string) string {
	s := strings.TrimPrefix(service, "https://")
	s = strings.TrimPrefix(s, "http://")
	return strings.TrimSuffix(s, "/")
}
