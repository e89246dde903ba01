package thread

import (
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/bluesky-social/indigo/atproto/syntax"
)

// Returned (as a parent error) when a reply chain is longer than [Builder.MaxDepth].
var ErrThreadTooDeep = errors.New("thread too deep")

// Returned (as a parent error) when a reply chain loops back on a post already shown.
var ErrReplyCycle = errors.New("reply cycle")

// Default for [Builder.MaxDepth] when built through [NewRenderer].
const DefaultMaxDepth = 50

const DefaultWebApp = "https://bsky.app"

// Inputs for rendering one post node.
type Params struct {
	// Endpoint that records and profiles are fetched from
	Service string
	URI     syntax.ATURI
	Post    *Post
	// Optional annotation like "reposted", with the time of that action
	Verb     string
	VerbedAt time.Time
	// Embedded (quoted) posts never fetch their own parent or quoted post
	Embedded bool
	// 0 is the focal post; ancestors have increasing depth
	Depth int
}

// Render descriptor for a single post node, and recursively its ancestors.
type Node struct {
	URI      syntax.ATURI `json:"uri"`
	Depth    int          `json:"depth"`
	Embedded bool         `json:"embedded,omitempty"`
	// post is a reply whose parent is followed (not embedded)
	Reply bool `json:"reply,omitempty"`

	// nil when the body is collapsed behind the "replies hidden" control
	Article *Article `json:"article,omitempty"`

	Parent        *Node  `json:"parent,omitempty"`
	ParentLoading bool   `json:"parentLoading,omitempty"`
	ParentError   string `json:"parentError,omitempty"`

	// only the focal (depth 0) reply is wrapped in a thread container
	ThreadContainer bool `json:"threadContainer,omitempty"`

	// count of collapsed intermediate ancestors, shown after this node
	HiddenReplies int `json:"hiddenReplies,omitempty"`
}

func (n *Node) Collapsed() bool {
	return n.Article == nil
}

// Label for the "replies hidden" control, or empty string if nothing is hidden.
func (n *Node) HiddenLabel() string {
	if n.HiddenReplies <= 0 {
		return ""
	}
	// NOTE: plural is keyed off depth, not the count
	if n.Depth > 3 {
		return fmt.Sprintf("%d replies hidden", n.HiddenReplies)
	}
	return fmt.Sprintf("%d reply hidden", n.HiddenReplies)
}

// Post body, as displayed.
type Article struct {
	Author       string `json:"author"`
	AvatarURL    string `json:"avatarUrl,omitempty"`
	AuthorName   string `json:"authorName"`
	AuthorHandle string `json:"authorHandle,omitempty"`
	ProfileURL   string `json:"profileUrl"`
	PostURL      string `json:"postUrl"`

	CreatedAt time.Time `json:"createdAt"`
	DateLabel string    `json:"dateLabel"`

	Segments []Segment     `json:"segments,omitempty"`
	Images   *ImagesView   `json:"images,omitempty"`
	External *ExternalView `json:"external,omitempty"`

	// quoted post, rendered embedded (never recursive beyond one level)
	Quote        *Node `json:"quote,omitempty"`
	QuoteLoading bool  `json:"quoteLoading,omitempty"`

	ProfileError string `json:"profileError,omitempty"`
	QuoteError   string `json:"quoteError,omitempty"`

	// embedded posts get an explicit link out to the web app
	OpenLink bool `json:"openLink,omitempty"`
}

func (a *Article) ISODate() string {
	if a.CreatedAt.IsZero() {
		return ""
	}
	return a.CreatedAt.UTC().Format(time.RFC3339Nano)
}

func (a *Article) LongDate() string {
	if a.CreatedAt.IsZero() {
		return ""
	}
	return a.CreatedAt.Format("Jan 2, 2006, 3:04:05 PM MST")
}

// Output of a single [Builder.Build] pass.
type Plan struct {
	Root *Node
	// fetches which are still missing from the snapshot
	Requests []Request
	// URIs of parent posts which are loaded and rendered
	Seen []syntax.ATURI
}

func (p *Plan) Pending() bool {
	return len(p.Requests) > 0
}

// Builder turns a snapshot of fetched data in to a render descriptor. Building is a pure function of the snapshot, the reply state, and the params; it never fetches.
type Builder struct {
	// Base URL of the web app, for profile and post links
	WebApp string
	// If positive, reply chains are not followed past this depth
	MaxDepth int
	Embedder Embedder
	Now      time.Time
}

type planner struct {
	b         *Builder
	snap      Snapshot
	state     *ReplyState
	plan      *Plan
	requests  map[string]bool
	// posts on the current reply chain, focal post included
	ancestors map[syntax.ATURI]bool
}

func (b *Builder) Build(snap Snapshot, state *ReplyState, p Params) *Plan {
	pl := planner{
		b:         b,
		snap:      snap,
		state:     state,
		plan:      &Plan{},
		requests:  make(map[string]bool),
		ancestors: make(map[syntax.ATURI]bool),
	}
	pl.plan.Root = pl.node(p)
	return pl.plan
}

func (pl *planner) request(r Request) {
	k := r.Key()
	if pl.requests[k] {
		return
	}
	pl.requests[k] = true
	pl.plan.Requests = append(pl.plan.Requests, r)
}

func (pl *planner) node(p Params) *Node {
	post := p.Post
	author := URIAuthority(p.URI)
	n := &Node{
		URI:      p.URI,
		Depth:    p.Depth,
		Embedded: p.Embedded,
	}

	profile := pl.snap.Profile(p.Service, author)
	if !profile.Done {
		pl.request(Request{Kind: RequestProfile, Service: p.Service, Identifier: author})
	}

	if !p.Embedded {
		pl.ancestors[p.URI] = true
		defer delete(pl.ancestors, p.URI)
	}

	followParent := !p.Embedded && post.Reply != nil
	tooDeep := followParent && pl.b.MaxDepth > 0 && p.Depth >= pl.b.MaxDepth
	cycle := followParent && pl.ancestors[post.Reply.Parent.URI]
	var parent Result[*Post]
	if followParent && !tooDeep && !cycle {
		parent = pl.snap.Post(p.Service, post.Reply.Parent.URI)
		if !parent.Done {
			pl.request(Request{Kind: RequestPost, Service: p.Service, URI: post.Reply.Parent.URI, CID: post.Reply.Parent.CID})
		}
	}

	var quote Result[*Post]
	quoteRef, hasQuote := QuotedRecord(post.Embed)
	hasQuote = hasQuote && !p.Embedded
	if hasQuote {
		quote = pl.snap.Post(p.Service, quoteRef.URI)
		if !quote.Done {
			pl.request(Request{Kind: RequestPost, Service: p.Service, URI: quoteRef.URI, CID: quoteRef.CID})
		}
	}

	parentLoaded := parent.Loaded() && parent.Value != nil
	collapsed := pl.state.Hidden() && p.Depth > 1 && parentLoaded
	if !collapsed {
		n.Article = pl.article(p, profile, quoteRef, quote, hasQuote)
	}

	switch {
	case tooDeep:
		n.ParentError = ErrThreadTooDeep.Error()
	case cycle:
		n.ParentError = ErrReplyCycle.Error()
	case followParent && parent.Done && parent.Err != nil:
		n.ParentError = parent.Err.Error()
	case followParent:
		n.Reply = true
		n.ThreadContainer = p.Depth == 0
		if parentLoaded {
			pl.plan.Seen = append(pl.plan.Seen, post.Reply.Parent.URI)
			n.Parent = pl.node(Params{
				Service: p.Service,
				URI:     post.Reply.Parent.URI,
				Post:    parent.Value,
				Depth:   p.Depth + 1,
			})
		} else {
			n.ParentLoading = true
		}
	case p.Depth > 2:
		if pl.state.Hidden() {
			n.HiddenReplies = p.Depth - 2
		}
	}
	return n
}

func (pl *planner) article(p Params, profile Result[*Profile], quoteRef StrongRef, quote Result[*Post], hasQuote bool) *Article {
	post := p.Post
	author := URIAuthority(p.URI)
	webApp := pl.b.webApp()
	blobHost := p.Service
	if post.Service != "" {
		blobHost = post.Service
	}

	a := &Article{
		Author:     author,
		AuthorName: author,
		ProfileURL: fmt.Sprintf("%s/profile/%s", webApp, author),
		PostURL:    fmt.Sprintf("%s/profile/%s/post/%s", webApp, author, URIRecordKey(p.URI)),
		CreatedAt:  post.CreatedTime(),
		OpenLink:   p.Embedded,
	}
	if a.CreatedAt.IsZero() {
		a.DateLabel = post.CreatedAt
	} else {
		a.DateLabel = DateLabel(a.CreatedAt, p.Verb, p.VerbedAt, pl.b.Now)
	}

	if profile.Loaded() && profile.Value != nil {
		prof := profile.Value
		if name := prof.Name(); name != "" {
			a.AuthorName = name
		}
		a.AuthorHandle = prof.Handle
		a.ProfileURL = fmt.Sprintf("%s/profile/%s", webApp, prof.FullHandle(p.Service))
		if prof.Avatar != nil {
			avatarHost := blobHost
			if prof.Service != "" {
				avatarHost = prof.Service
			}
			a.AvatarURL = BlobURL(avatarHost, author, prof.Avatar.CID)
		}
	} else if profile.Done && profile.Err != nil {
		a.ProfileError = profile.Err.Error()
	}

	a.Segments = Segments(post.Text, post.Facets)
	for i, seg := range a.Segments {
		a.Segments[i].Href = segmentHref(webApp, seg)
	}

	switch e := post.Embed.(type) {
	case *Images:
		a.Images = PostImages(blobHost, author, e.Images)
	case *External:
		a.External = ExternalEmbed(blobHost, author, e, pl.b.Embedder)
	case *Record:
		// only the quoted post, handled below
	case *RecordWithMedia:
		switch m := e.Media.(type) {
		case *Images:
			a.Images = PostImages(blobHost, author, m.Images)
		case *External:
			a.External = ExternalEmbed(blobHost, author, m, pl.b.Embedder)
		}
	}

	if hasQuote && !quote.Done {
		a.QuoteLoading = true
	}
	if hasQuote && quote.Done {
		if quote.Err != nil {
			a.QuoteError = quote.Err.Error()
		} else if quote.Value != nil {
			a.Quote = pl.node(Params{
				Service:  p.Service,
				URI:      quoteRef.URI,
				Post:     quote.Value,
				Embedded: true,
			})
		}
	}
	return a
}

func (b *Builder) webApp() string {
	if b.WebApp == "" {
		return DefaultWebApp
	}
	return b.WebApp
}

func isWebLink(raw string) bool {
	lower := strings.ToLower(raw)
	return strings.HasPrefix(lower, "https://") || strings.HasPrefix(lower, "http://")
}

func segmentHref(webApp string, seg Segment) string {
	switch seg.Kind {
	case FacetLink:
		// anything but a web link (eg, javascript:) renders as plain text
		if isWebLink(seg.Value) {
			return seg.Value
		}
	case FacetMention:
		return fmt.Sprintf("%s/profile/%s", webApp, seg.Value)
	case FacetTag:
		return fmt.Sprintf("%s/hashtag/%s", webApp, url.PathEscape(seg.Value))
	}
	return ""
}
