package main

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestParsePostRef(t *testing.T) {
	assert := assert.New(t)

	fixtures := []struct {
		raw  string
		atid string
		rkey string
		ok   bool
	}{
		{"at://did:plc:abc123/app.bsky.feed.post/3k2a", "did:plc:abc123", "3k2a", true},
		{"at://alice.example.com/app.bsky.feed.post/3k2a/", "alice.example.com", "3k2a", true},
		{"https://bsky.app/profile/alice.example.com/post/3k2a", "alice.example.com", "3k2a", true},
		{" https://bsky.app/profile/did:plc:abc123/post/3k2a ", "did:plc:abc123", "3k2a", true},
		{"https://staging.bsky.app/profile/alice.example.com/post/3k2a?ref=x", "alice.example.com", "3k2a", true},
		{"at://did:plc:abc123/app.bsky.actor.profile/self", "", "", false},
		{"at://did:plc:abc123", "", "", false},
		{"https://bsky.app/profile/alice.example.com", "", "", false},
		{"alice.example.com", "", "", false},
		{"", "", "", false},
	}
	for _, f := range fixtures {
		atid, rkey, ok := ParsePostRef(f.raw)
		assert.Equal(f.ok, ok, f.raw)
		assert.Equal(f.atid, atid, f.raw)
		assert.Equal(f.rkey, rkey, f.raw)
	}
}

func TestParseServiceHost(t *testing.T) {
	assert := assert.New(t)

	s, err := ParseServiceHost("https://PDS.example.com/some/path", false)
	assert.NoError(err)
	assert.Equal("https://pds.example.com", s)

	_, err = ParseServiceHost("http://localhost:2583", false)
	assert.Error(err)
	s, err = ParseServiceHost("http://localhost:2583", true)
	assert.NoError(err)
	assert.Equal("http://localhost:2583", s)

	_, err = ParseServiceHost("ftp://pds.example.com", true)
	assert.Error(err)
	_, err = ParseServiceHost("pds.example.com", true)
	assert.Error(err)
}

func TestPostPath(t *testing.T) {
	assert := assert.New(t)
	assert.Equal("/profile/did:plc:abc123/post/3k2a", postPath("did:plc:abc123", "3k2a"))
}
