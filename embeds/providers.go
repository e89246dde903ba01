package embeds

import (
	"fmt"
	"net/url"
	"regexp"
	"strings"
)

// A Provider recognizes URLs for one site, and returns the iframe source URL for matches.
type Provider struct {
	Name  string
	Hosts []string
	// Returns the player URL, or false if the URL is not embeddable
	Match func(u *url.URL) (string, bool)
	// aspect ratio class for the iframe
	Shape string
}

func (p *Provider) handles(host string) bool {
	for _, h := range p.Hosts {
		if h == host {
			return true
		}
	}
	return false
}

var youtubeIDRegex = regexp.MustCompile(`^[A-Za-z0-9_-]{11}$`)
var vimeoIDRegex = regexp.MustCompile(`^[0-9]{1,12}$`)
var spotifyIDRegex = regexp.MustCompile(`^[A-Za-z0-9]{22}$`)

var YouTube = Provider{
	Name:  "youtube",
	Hosts: []string{"youtube.com", "m.youtube.com", "music.youtube.com", "youtu.be"},
	Shape: "video",
	Match: func(u *url.URL) (string, bool) {
		var id string
		parts := pathParts(u)
		switch {
		case u.Host == "youtu.be" && len(parts) == 1:
			id = parts[0]
		case len(parts) == 1 && parts[0] == "watch":
			id = u.Query().Get("v")
		case len(parts) == 2 && (parts[0] == "shorts" || parts[0] == "embed" || parts[0] == "live"):
			id = parts[1]
		}
		if !youtubeIDRegex.MatchString(id) {
			return "", false
		}
		return "https://www.youtube-nocookie.com/embed/" + id, true
	},
}

var Vimeo = Provider{
	Name:  "vimeo",
	Hosts: []string{"vimeo.com", "player.vimeo.com"},
	Shape: "video",
	Match: func(u *url.URL) (string, bool) {
		parts := pathParts(u)
		if len(parts) == 0 {
			return "", false
		}
		id := parts[len(parts)-1]
		if !vimeoIDRegex.MatchString(id) {
			return "", false
		}
		return "https://player.vimeo.com/video/" + id, true
	},
}

var spotifyKinds = map[string]bool{
	"track":    true,
	"album":    true,
	"playlist": true,
	"episode":  true,
	"show":     true,
	"artist":   true,
}

var Spotify = Provider{
	Name:  "spotify",
	Hosts: []string{"open.spotify.com"},
	Shape: "audio",
	Match: func(u *url.URL) (string, bool) {
		parts := pathParts(u)
		// localized links look like /intl-de/track/<id>
		if len(parts) == 3 && strings.HasPrefix(parts[0], "intl-") {
			parts = parts[1:]
		}
		if len(parts) != 2 || !spotifyKinds[parts[0]] || !spotifyIDRegex.MatchString(parts[1]) {
			return "", false
		}
		return fmt.Sprintf("https://open.spotify.com/embed/%s/%s", parts[0], parts[1]), true
	},
}

func pathParts(u *url.URL) []string {
	p := strings.Trim(u.Path, "/")
	if p == "" {
		return nil
	}
	return strings.Split(p, "/")
}
