package embeds

import (
	"net/url"

	"github.com/PuerkitoBio/purell"
)

var trackingParams = []string{
	"_ga",
	"fbclid",
	"feature",
	"gclid",
	"igshid",
	"si",
	"utm_campaign",
	"utm_content",
	"utm_id",
	"utm_medium",
	"utm_source",
	"utm_term",
}

// NormalizeURL aggressively normalizes a URL for provider matching. The result is not necessarily a working link.
func NormalizeURL(raw string) string {
	clean, err := purell.NormalizeURLString(raw, purell.FlagsUsuallySafeGreedy|purell.FlagRemoveFragment|purell.FlagRemoveDuplicateSlashes|purell.FlagRemoveWWW|purell.FlagSortQuery)
	if err != nil {
		return raw
	}

	u, err := url.Parse(clean)
	if err != nil {
		return clean
	}
	if u.RawQuery == "" {
		return clean
	}
	params := u.Query()
	for _, p := range trackingParams {
		params.Del(p)
	}
	u.RawQuery = params.Encode()
	return u.String()
}
