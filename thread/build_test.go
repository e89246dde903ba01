package thread

import (
	"errors"
	"testing"
	"time"

	"github.com/bluesky-social/indigo/atproto/syntax"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testService = "https://pds.example.com"

var testNow = time.Date(2024, 1, 2, 0, 0, 0, 0, time.UTC)

func testBuilder() *Builder {
	return &Builder{WebApp: DefaultWebApp, Now: testNow}
}

func testPost(did, rkey, text string) *Post {
	return &Post{
		URI:       syntax.ATURI("at://" + did + "/app.bsky.feed.post/" + rkey),
		CID:       "bafyreie5737gdxlw5i64vzichcalba3z2v5n6icifvx5xytvske7mr3hpm",
		Text:      text,
		CreatedAt: "2024-01-01T00:00:00.000Z",
	}
}

func replyTo(child, parent *Post) *Post {
	ref := StrongRef{URI: parent.URI, CID: parent.CID}
	child.Reply = &ReplyRef{Root: ref, Parent: ref}
	return child
}

type stubEmbedder struct {
	accept string
}

func (e stubEmbedder) Embed(u string) (string, bool) {
	if u == e.accept {
		return `<iframe src="` + u + `"></iframe>`, true
	}
	return "", false
}

func TestBuildPlainPost(t *testing.T) {
	assert := assert.New(t)
	b := testBuilder()
	post := testPost("did:plc:alice", "3k2a", "hello world")
	params := Params{Service: testService, URI: post.URI, Post: post}
	results := NewResults()

	plan := b.Build(results, NewReplyState(), params)
	require.Len(t, plan.Requests, 1)
	assert.Equal(RequestProfile, plan.Requests[0].Kind)
	assert.Equal("did:plc:alice", plan.Requests[0].Identifier)
	// article renders even before the profile arrives
	require.NotNil(t, plan.Root.Article)
	assert.Equal("did:plc:alice", plan.Root.Article.AuthorName)
	assert.Equal("https://bsky.app/profile/did:plc:alice", plan.Root.Article.ProfileURL)

	results.PutProfile(testService, "did:plc:alice", &Profile{DID: "did:plc:alice", Handle: "alice.example.com", DisplayName: "Alice"}, nil)
	plan = b.Build(results, NewReplyState(), params)
	assert.False(plan.Pending())
	assert.Empty(plan.Seen)

	n := plan.Root
	assert.False(n.Reply)
	assert.False(n.ThreadContainer)
	assert.Nil(n.Parent)
	assert.Equal(0, n.HiddenReplies)

	a := n.Article
	require.NotNil(t, a)
	assert.Empty(a.AvatarURL)
	assert.Equal("Alice", a.AuthorName)
	assert.Equal("alice.example.com", a.AuthorHandle)
	assert.Equal("https://bsky.app/profile/alice.example.com", a.ProfileURL)
	assert.Equal("https://bsky.app/profile/did:plc:alice/post/3k2a", a.PostURL)
	assert.Equal("1 day ago", a.DateLabel)
	assert.Equal("2024-01-01T00:00:00Z", a.ISODate())
	assert.Equal([]Segment{{Text: "hello world"}}, a.Segments)
	assert.Nil(a.Images)
	assert.Nil(a.External)
	assert.Nil(a.Quote)
	assert.False(a.OpenLink)

	blocks := Flatten(n)
	require.Len(t, blocks, 1)
	assert.Equal(BlockArticle, blocks[0].Kind)
}

func TestBuildAvatarAndFullHandle(t *testing.T) {
	assert := assert.New(t)
	b := testBuilder()
	post := testPost("did:plc:bob", "3k2b", "hi")
	results := NewResults()
	results.PutProfile(testService, "did:plc:bob", &Profile{
		DID:    "did:plc:bob",
		Handle: "bob",
		Avatar: &BlobRef{CID: "bafkreiavatar"},
	}, nil)

	plan := b.Build(results, NewReplyState(), Params{Service: testService, URI: post.URI, Post: post})
	a := plan.Root.Article
	require.NotNil(t, a)
	assert.Equal("bob", a.AuthorName)
	assert.Equal("https://bsky.app/profile/bob.pds.example.com", a.ProfileURL)
	assert.Equal("https://pds.example.com/xrpc/com.atproto.sync.getBlob?did=did%3Aplc%3Abob&cid=bafkreiavatar", a.AvatarURL)
}

func TestBuildProfileError(t *testing.T) {
	assert := assert.New(t)
	b := testBuilder()
	post := testPost("did:plc:carol", "3k2c", "hi")
	results := NewResults()
	results.PutProfile(testService, "did:plc:carol", nil, errors.New("profile unavailable"))

	plan := b.Build(results, NewReplyState(), Params{Service: testService, URI: post.URI, Post: post})
	assert.False(plan.Pending())
	a := plan.Root.Article
	require.NotNil(t, a)
	assert.Equal("profile unavailable", a.ProfileError)
	assert.Equal("did:plc:carol", a.AuthorName)
	assert.Empty(a.AuthorHandle)
	assert.Equal([]Segment{{Text: "hi"}}, a.Segments)
}

func TestBuildReplyPending(t *testing.T) {
	assert := assert.New(t)
	b := testBuilder()
	parent := testPost("did:plc:alice", "p1", "parent")
	child := replyTo(testPost("did:plc:bob", "c1", "child"), parent)
	results := NewResults()

	plan := b.Build(results, NewReplyState(), Params{Service: testService, URI: child.URI, Post: child})
	var sawParent bool
	for _, r := range plan.Requests {
		if r.Kind == RequestPost && r.URI == parent.URI {
			sawParent = true
			assert.Equal(parent.CID, r.CID)
		}
	}
	assert.True(sawParent)

	n := plan.Root
	assert.True(n.Reply)
	assert.True(n.ThreadContainer)
	assert.True(n.ParentLoading)
	assert.Nil(n.Parent)

	kinds := blockKinds(Flatten(n))
	assert.Equal([]BlockKind{BlockThreadStart, BlockLoading, BlockArticle, BlockThreadEnd}, kinds)

	// once the parent is loaded, it renders above at depth+1
	results.PutPost(testService, parent.URI, parent, nil)
	plan = b.Build(results, NewReplyState(), Params{Service: testService, URI: child.URI, Post: child})
	n = plan.Root
	require.NotNil(t, n.Parent)
	assert.False(n.ParentLoading)
	assert.Equal(1, n.Parent.Depth)
	assert.False(n.Parent.ThreadContainer)
	assert.Equal([]syntax.ATURI{parent.URI}, plan.Seen)

	articles := Articles(n)
	require.Len(t, articles, 2)
	assert.Equal([]Segment{{Text: "parent"}}, articles[0].Segments)
	assert.Equal([]Segment{{Text: "child"}}, articles[1].Segments)
}

func TestBuildParentError(t *testing.T) {
	assert := assert.New(t)
	b := testBuilder()
	parent := testPost("did:plc:alice", "p1", "parent")
	child := replyTo(testPost("did:plc:bob", "c1", "child"), parent)
	results := NewResults()
	results.PutPost(testService, parent.URI, nil, ErrNotFound)

	plan := b.Build(results, NewReplyState(), Params{Service: testService, URI: child.URI, Post: child})
	n := plan.Root
	assert.Equal("record not found", n.ParentError)
	assert.False(n.ThreadContainer)
	assert.NotNil(n.Article)
	assert.Empty(plan.Seen)
	assert.Equal([]BlockKind{BlockParentError, BlockArticle}, blockKinds(Flatten(n)))
}

func TestBuildMaxDepth(t *testing.T) {
	assert := assert.New(t)
	b := testBuilder()
	b.MaxDepth = 1
	p2 := testPost("did:plc:alice", "p2", "grandparent")
	p1 := replyTo(testPost("did:plc:alice", "p1", "parent"), p2)
	child := replyTo(testPost("did:plc:bob", "c1", "child"), p1)
	results := NewResults()
	results.PutPost(testService, p1.URI, p1, nil)

	plan := b.Build(results, NewReplyState(), Params{Service: testService, URI: child.URI, Post: child})
	require.NotNil(t, plan.Root.Parent)
	assert.Equal(ErrThreadTooDeep.Error(), plan.Root.Parent.ParentError)
	for _, r := range plan.Requests {
		assert.NotEqual(p2.URI, r.URI)
	}
}

func TestEmbedDispatch(t *testing.T) {
	assert := assert.New(t)
	b := testBuilder()
	b.Embedder = stubEmbedder{accept: "https://video.example.com/v/1"}
	did := "did:plc:alice"
	quoted := testPost("did:plc:bob", "q1", "quoted")
	img := func(cid string) Image { return Image{Alt: "alt " + cid, Blob: &BlobRef{CID: cid}} }

	build := func(e Embed) *Article {
		post := testPost(did, "e1", "with embed")
		post.Embed = e
		results := NewResults()
		results.PutPost(testService, quoted.URI, quoted, nil)
		plan := b.Build(results, NewReplyState(), Params{Service: testService, URI: post.URI, Post: post})
		require.NotNil(t, plan.Root.Article)
		return plan.Root.Article
	}

	// no embed
	a := build(nil)
	assert.Nil(a.Images)
	assert.Nil(a.External)
	assert.Nil(a.Quote)

	// single image
	a = build(&Images{Images: []Image{img("bafkreione")}})
	require.NotNil(t, a.Images)
	assert.True(a.Images.Single)
	assert.Equal(BlobURL(testService, did, "bafkreione"), a.Images.Images[0].URL)
	assert.Equal(a.Images.Images[0].URL, a.Images.Images[0].PreviewURL)
	assert.Nil(a.External)
	assert.Nil(a.Quote)

	// grid
	a = build(&Images{Images: []Image{img("bafkreione"), img("bafkreitwo"), img("bafkreithree")}})
	require.NotNil(t, a.Images)
	assert.False(a.Images.Single)
	assert.Len(a.Images.Images, 3)
	assert.Equal("alt bafkreitwo", a.Images.Images[1].Alt)

	// external, manual card
	a = build(&External{URI: "https://example.com/article", Title: "Article", Description: "Words", Thumb: &BlobRef{CID: "bafkreithumb"}})
	require.NotNil(t, a.External)
	assert.Empty(a.External.Rich)
	assert.Equal("Article", a.External.Title)
	assert.Equal(BlobURL(testService, did, "bafkreithumb"), a.External.ThumbURL)
	assert.Nil(a.Images)
	assert.Nil(a.Quote)

	// external, rich provider markup
	a = build(&External{URI: "https://video.example.com/v/1", Title: "Video"})
	require.NotNil(t, a.External)
	assert.Contains(a.External.Rich, "<iframe")

	// external, declined and no thumbnail: nothing
	a = build(&External{URI: "https://example.com/bare", Title: "Bare"})
	assert.Nil(a.External)

	// external, not a web link: nothing
	a = build(&External{URI: "javascript:alert(1)", Title: "Bad", Thumb: &BlobRef{CID: "bafkreithumb"}})
	assert.Nil(a.External)

	// quoted record
	a = build(&Record{Record: StrongRef{URI: quoted.URI, CID: quoted.CID}})
	assert.Nil(a.Images)
	assert.Nil(a.External)
	require.NotNil(t, a.Quote)
	assert.True(a.Quote.Embedded)
	require.NotNil(t, a.Quote.Article)
	assert.True(a.Quote.Article.OpenLink)
	assert.Equal([]Segment{{Text: "quoted"}}, a.Quote.Article.Segments)

	// quoted record with media
	a = build(&RecordWithMedia{
		Record: StrongRef{URI: quoted.URI, CID: quoted.CID},
		Media:  &Images{Images: []Image{img("bafkreione")}},
	})
	require.NotNil(t, a.Images)
	assert.True(a.Images.Single)
	assert.Nil(a.External)
	require.NotNil(t, a.Quote)

	a = build(&RecordWithMedia{
		Record: StrongRef{URI: quoted.URI, CID: quoted.CID},
		Media:  &External{URI: "https://example.com/article", Thumb: &BlobRef{CID: "bafkreithumb"}},
	})
	assert.Nil(a.Images)
	require.NotNil(t, a.External)
	require.NotNil(t, a.Quote)
}

func TestBuildQuoteIsNotRecursive(t *testing.T) {
	assert := assert.New(t)
	b := testBuilder()
	other := testPost("did:plc:carol", "o1", "other")
	quotedParent := testPost("did:plc:carol", "qp", "quoted parent")
	quoted := replyTo(testPost("did:plc:bob", "q1", "quoted"), quotedParent)
	quoted.Embed = &Record{Record: StrongRef{URI: other.URI}}

	post := testPost("did:plc:alice", "e1", "quoting")
	post.Embed = &Record{Record: StrongRef{URI: quoted.URI, CID: quoted.CID}}
	results := NewResults()
	results.PutPost(testService, quoted.URI, quoted, nil)

	plan := b.Build(results, NewReplyState(), Params{Service: testService, URI: post.URI, Post: post})
	for _, r := range plan.Requests {
		if r.Kind == RequestPost {
			t.Errorf("unexpected post request: %s", r.URI)
		}
	}
	q := plan.Root.Article.Quote
	require.NotNil(t, q)
	assert.False(q.Reply)
	assert.False(q.ParentLoading)
	assert.Nil(q.Parent)
	assert.Nil(q.Article.Quote)
}

func TestBuildQuoteError(t *testing.T) {
	assert := assert.New(t)
	b := testBuilder()
	quoted := testPost("did:plc:bob", "q1", "quoted")
	post := testPost("did:plc:alice", "e1", "quoting")
	post.Embed = &Record{Record: StrongRef{URI: quoted.URI}}
	results := NewResults()
	results.PutPost(testService, quoted.URI, nil, ErrNotFound)

	plan := b.Build(results, NewReplyState(), Params{Service: testService, URI: post.URI, Post: post})
	a := plan.Root.Article
	assert.Nil(a.Quote)
	assert.False(a.QuoteLoading)
	assert.Equal("record not found", a.QuoteError)
}

func TestBuildQuotePending(t *testing.T) {
	assert := assert.New(t)
	b := testBuilder()
	quoted := testPost("did:plc:bob", "q1", "quoted")
	post := testPost("did:plc:alice", "e1", "quoting")
	post.Embed = &Record{Record: StrongRef{URI: quoted.URI}}

	plan := b.Build(NewResults(), NewReplyState(), Params{Service: testService, URI: post.URI, Post: post})
	a := plan.Root.Article
	assert.True(a.QuoteLoading)
	assert.Nil(a.Quote)
	assert.Empty(a.QuoteError)
	assert.True(plan.Pending())
}

func TestBuildVerbLabel(t *testing.T) {
	assert := assert.New(t)
	b := testBuilder()
	post := testPost("did:plc:alice", "3k2a", "hello")
	post.CreatedAt = "2023-12-31T00:00:00Z"

	plan := b.Build(NewResults(), NewReplyState(), Params{
		Service:  testService,
		URI:      post.URI,
		Post:     post,
		Verb:     "reposted",
		VerbedAt: testNow.Add(-2 * time.Hour),
	})
	assert.Equal("2 hours ago (reposted 2 days ago)", plan.Root.Article.DateLabel)
}

func TestBuildRichText(t *testing.T) {
	assert := assert.New(t)
	b := testBuilder()
	post := testPost("did:plc:alice", "3k2a", "hi @bob.test see example.com #go")
	post.Facets = []Facet{
		{Start: 3, End: 12, Kind: FacetMention, Value: "did:plc:bob"},
		{Start: 17, End: 28, Kind: FacetLink, Value: "https://example.com"},
		{Start: 29, End: 32, Kind: FacetTag, Value: "go"},
	}
	plan := b.Build(NewResults(), NewReplyState(), Params{Service: testService, URI: post.URI, Post: post})
	segs := plan.Root.Article.Segments
	require.Len(t, segs, 6)
	assert.Equal("@bob.test", segs[1].Text)
	assert.Equal("https://bsky.app/profile/did:plc:bob", segs[1].Href)
	assert.Equal("example.com", segs[3].Text)
	assert.Equal("https://example.com", segs[3].Href)
	assert.Equal("#go", segs[5].Text)
	assert.Equal("https://bsky.app/hashtag/go", segs[5].Href)
}

func TestSegmentHrefSchemes(t *testing.T) {
	assert := assert.New(t)
	assert.Equal("HTTPS://example.com/x", segmentHref(DefaultWebApp, Segment{Kind: FacetLink, Value: "HTTPS://example.com/x"}))
	assert.Equal("", segmentHref(DefaultWebApp, Segment{Kind: FacetLink, Value: "javascript:alert(1)"}))
	assert.Equal("", segmentHref(DefaultWebApp, Segment{Kind: FacetLink, Value: "data:text/html,hi"}))
	assert.Equal("https://bsky.app/hashtag/a%2Fb", segmentHref(DefaultWebApp, Segment{Kind: FacetTag, Value: "a/b"}))
	assert.Equal("", segmentHref(DefaultWebApp, Segment{Text: "plain"}))
}

func blockKinds(blocks []Block) []BlockKind {
	out := make([]BlockKind, len(blocks))
	for i, b := range blocks {
		out[i] = b.Kind
	}
	return out
}
