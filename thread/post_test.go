package thread

import (
	"testing"

	"github.com/bluesky-social/indigo/atproto/syntax"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	testBlobCID   = "bafkreibme22gw2h7y2h7tg2fhqotaqjucnbc24deqo72b6mkl2egezxhvy"
	testRecordCID = "bafyreie5737gdxlw5i64vzichcalba3z2v5n6icifvx5xytvske7mr3hpm"
)

var testURI = syntax.ATURI("at://did:plc:alice/app.bsky.feed.post/3k2a")

func TestParsePostJSONReply(t *testing.T) {
	assert := assert.New(t)
	raw := `{
		"$type": "app.bsky.feed.post",
		"text": "replying",
		"createdAt": "2024-01-01T00:00:00.000Z",
		"reply": {
			"root": {"uri": "at://did:plc:bob/app.bsky.feed.post/root", "cid": "` + testRecordCID + `"},
			"parent": {"uri": "at://did:plc:bob/app.bsky.feed.post/parent", "cid": "` + testRecordCID + `"}
		},
		"facets": [{
			"index": {"byteStart": 0, "byteEnd": 5},
			"features": [{"$type": "app.bsky.richtext.facet#link", "uri": "https://example.com"}]
		}]
	}`
	p, err := ParsePostJSON(testURI, testRecordCID, []byte(raw))
	require.NoError(t, err)
	assert.Equal("replying", p.Text)
	assert.Equal("did:plc:alice", p.Author())
	require.NotNil(t, p.Reply)
	assert.Equal(syntax.ATURI("at://did:plc:bob/app.bsky.feed.post/parent"), p.Reply.Parent.URI)
	assert.Equal(syntax.ATURI("at://did:plc:bob/app.bsky.feed.post/root"), p.Reply.Root.URI)
	assert.Equal(testRecordCID, p.Reply.Parent.CID)
	assert.Equal([]Facet{{Start: 0, End: 5, Kind: FacetLink, Value: "https://example.com"}}, p.Facets)
	assert.Nil(p.Embed)
	assert.False(p.CreatedTime().IsZero())
}

func TestParsePostJSONEmbeds(t *testing.T) {
	assert := assert.New(t)
	blob := `{"$type": "blob", "ref": {"$link": "` + testBlobCID + `"}, "mimeType": "image/jpeg", "size": 1234}`
	quote := `{"uri": "at://did:plc:bob/app.bsky.feed.post/quoted", "cid": "` + testRecordCID + `"}`

	parse := func(embed string) Embed {
		raw := `{"$type": "app.bsky.feed.post", "text": "t", "createdAt": "2024-01-01T00:00:00Z", "embed": ` + embed + `}`
		p, err := ParsePostJSON(testURI, "", []byte(raw))
		require.NoError(t, err)
		return p.Embed
	}

	e := parse(`{"$type": "app.bsky.embed.images", "images": [{"alt": "a cat", "image": ` + blob + `}]}`)
	imgs, ok := e.(*Images)
	require.True(t, ok)
	require.Len(t, imgs.Images, 1)
	assert.Equal("a cat", imgs.Images[0].Alt)
	assert.Equal(testBlobCID, imgs.Images[0].Blob.CID)
	assert.Equal("image/jpeg", imgs.Images[0].Blob.MimeType)

	e = parse(`{"$type": "app.bsky.embed.external", "external": {"uri": "https://example.com", "title": "Ex", "description": "D", "thumb": ` + blob + `}}`)
	ext, ok := e.(*External)
	require.True(t, ok)
	assert.Equal("https://example.com", ext.URI)
	assert.Equal("Ex", ext.Title)
	require.NotNil(t, ext.Thumb)
	assert.Equal(testBlobCID, ext.Thumb.CID)

	e = parse(`{"$type": "app.bsky.embed.record", "record": ` + quote + `}`)
	rec, ok := e.(*Record)
	require.True(t, ok)
	assert.Equal(syntax.ATURI("at://did:plc:bob/app.bsky.feed.post/quoted"), rec.Record.URI)
	ref, ok := QuotedRecord(e)
	assert.True(ok)
	assert.Equal(rec.Record, ref)

	e = parse(`{"$type": "app.bsky.embed.recordWithMedia", "record": {"$type": "app.bsky.embed.record", "record": ` + quote + `}, "media": {"$type": "app.bsky.embed.images", "images": [{"alt": "", "image": ` + blob + `}]}}`)
	rwm, ok := e.(*RecordWithMedia)
	require.True(t, ok)
	assert.Equal(testRecordCID, rwm.Record.CID)
	_, ok = rwm.Media.(*Images)
	assert.True(ok)
	_, ok = QuotedRecord(e)
	assert.True(ok)

	_, ok = QuotedRecord(imgs)
	assert.False(ok)
	_, ok = QuotedRecord(nil)
	assert.False(ok)
}

func TestParsePostJSONInvalid(t *testing.T) {
	assert := assert.New(t)

	_, err := ParsePostJSON(testURI, "", []byte(`not json`))
	assert.ErrorIs(err, ErrInvalidRecord)

	_, err = ParsePostJSON(testURI, "", []byte(`{"text": "t", "createdAt": "2024-01-01T00:00:00Z", "reply": {"root": {"uri": "at://did:plc:bob/app.bsky.feed.post/r", "cid": "`+testRecordCID+`"}}}`))
	assert.ErrorIs(err, ErrInvalidRecord)

	_, err = ParsePostJSON(testURI, "", []byte(`{"text": "t", "createdAt": "2024-01-01T00:00:00Z", "reply": {"root": {"uri": "bogus", "cid": "x"}, "parent": {"uri": "bogus", "cid": "x"}}}`))
	assert.ErrorIs(err, ErrInvalidRecord)
}

func TestURIParts(t *testing.T) {
	assert := assert.New(t)
	assert.Equal("did:plc:alice", URIAuthority(testURI))
	assert.Equal("app.bsky.feed.post", URICollection(testURI))
	assert.Equal("3k2a", URIRecordKey(testURI))
	assert.Equal("alice.example.com", URIAuthority("at://alice.example.com"))
	assert.Equal("", URIRecordKey("at://alice.example.com"))
}

func TestFullHandle(t *testing.T) {
	assert := assert.New(t)
	p := Profile{Handle: "alice.example.com"}
	assert.Equal("alice.example.com", p.FullHandle("https://pds.example.com"))
	p = Profile{Handle: "alice"}
	assert.Equal("alice.pds.example.com", p.FullHandle("https://pds.example.com"))
	assert.Equal("alice.localhost:2583", p.FullHandle("http://localhost:2583"))
	p = Profile{Handle: "localhost:2583"}
	assert.Equal("localhost:2583", p.FullHandle("http://localhost:2583"))
}
