package thread

import (
	"sort"
	"unicode/utf8"

	appbsky "github.com/bluesky-social/indigo/api/bsky"
)

type FacetKind string

const (
	FacetLink    FacetKind = "link"
	FacetMention FacetKind = "mention"
	FacetTag     FacetKind = "tag"
)

// Rich-text annotation over a byte range of the post text. Start is inclusive, End exclusive (UTF-8 byte offsets).
type Facet struct {
	Start int
	End   int
	Kind  FacetKind
	// URL for links, DID for mentions, tag string (without '#') for tags
	Value string
}

// One run of post text. Plain text segments have an empty Kind.
type Segment struct {
	Text  string    `json:"text"`
	Kind  FacetKind `json:"kind,omitempty"`
	Value string    `json:"value,omitempty"`
	Href  string    `json:"href,omitempty"`
}

func facetsFromRecord(in []*appbsky.RichtextFacet) []Facet {
	var out []Facet
	for _, f := range in {
		if f == nil || f.Index == nil {
			continue
		}
		for _, feat := range f.Features {
			if feat == nil {
				continue
			}
			facet := Facet{Start: int(f.Index.ByteStart), End: int(f.Index.ByteEnd)}
			switch {
			case feat.RichtextFacet_Link != nil:
				facet.Kind = FacetLink
				facet.Value = feat.RichtextFacet_Link.Uri
			case feat.RichtextFacet_Mention != nil:
				facet.Kind = FacetMention
				facet.Value = feat.RichtextFacet_Mention.Did
			case feat.RichtextFacet_Tag != nil:
				facet.Kind = FacetTag
				facet.Value = feat.RichtextFacet_Tag.Tag
			default:
				continue
			}
			// first recognized feature wins
			out = append(out, facet)
			break
		}
	}
	return out
}

// Splits text in to segments according to facets. Facets which are out of bounds, overlap an earlier facet, or do not fall on UTF-8 boundaries are ignored (the text is rendered plain).
func Segments(text string, facets []Facet) []Segment {
	sorted := make([]Facet, len(facets))
	copy(sorted, facets)
	sort.SliceStable(sorted, func(i, j int) bool { return sorted[i].Start < sorted[j].Start })

	var out []Segment
	cursor := 0
	for _, f := range sorted {
		if f.Start < cursor || f.End > len(text) || f.Start >= f.End {
			continue
		}
		if !runeBoundary(text, f.Start) || !runeBoundary(text, f.End) {
			continue
		}
		if f.Start > cursor {
			out = append(out, Segment{Text: text[cursor:f.Start]})
		}
		out = append(out, Segment{Text: text[f.Start:f.End], Kind: f.Kind, Value: f.Value})
		cursor = f.End
	}
	if cursor < len(text) {
		out = append(out, Segment{Text: text[cursor:]})
	}
	return out
}

func runeBoundary(s string, i int) bool {
	if i == len(s) {
		return true
	}
	return utf8.RuneStart(s[i])
}
