package embeds

import (
	"fmt"
	"html"
	"net/url"
)

// Registry renders rich previews for links to known media providers.
type Registry struct {
	Providers []*Provider
}

// Registry with all built-in providers.
func DefaultRegistry() *Registry {
	return NewRegistry(&YouTube, &Vimeo, &Spotify)
}

func NewRegistry(providers ...*Provider) *Registry {
	return &Registry{Providers: providers}
}

// Match finds the provider for a URL, and the iframe source to use.
func (r *Registry) Match(rawURL string) (*Provider, string, bool) {
	u, err := url.Parse(NormalizeURL(rawURL))
	if err != nil || (u.Scheme != "https" && u.Scheme != "http") {
		return nil, "", false
	}
	for _, p := range r.Providers {
		if !p.handles(u.Hostname()) {
			continue
		}
		if src, ok := p.Match(u); ok {
			return p, src, true
		}
	}
	return nil, "", false
}

// Embed returns iframe markup for the URL, or false if no provider accepts it.
func (r *Registry) Embed(rawURL string) (string, bool) {
	p, src, ok := r.Match(rawURL)
	if !ok {
		return "", false
	}
	return fmt.Sprintf(`<iframe class="embed embed-%s embed-%s" src="%s" title="%s embed" loading="lazy" allowfullscreen sandbox="allow-scripts allow-same-origin allow-presentation"></iframe>`,
		html.EscapeString(p.Name), html.EscapeString(p.Shape), html.EscapeString(src), html.EscapeString(p.Name)), true
}
