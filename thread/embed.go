package thread

import (
	appbsky "github.com/bluesky-social/indigo/api/bsky"
	lexutil "github.com/bluesky-social/indigo/lex/util"
)

// Embed is one of exactly four variants: [*Images], [*External], [*Record], or [*RecordWithMedia].
//
// Unknown lexicon embed types (eg, video) are not represented, and convert to a nil Embed.
type Embed interface {
	isEmbed()
}

// Media is the media half of a [*RecordWithMedia]: either [*Images] or [*External].
type Media interface {
	isMedia()
}

type BlobRef struct {
	CID      string `json:"cid"`
	MimeType string `json:"mimeType,omitempty"`
}

type Image struct {
	Alt  string
	Blob *BlobRef
}

type Images struct {
	Images []Image
}

// Link preview card.
type External struct {
	URI         string
	Title       string
	Description string
	Thumb       *BlobRef
}

// Quoted record.
type Record struct {
	Record StrongRef
}

type RecordWithMedia struct {
	Record StrongRef
	Media  Media
}

func (*Images) isEmbed()          {}
func (*External) isEmbed()        {}
func (*Record) isEmbed()          {}
func (*RecordWithMedia) isEmbed() {}

func (*Images) isMedia()   {}
func (*External) isMedia() {}

// QuotedRecord returns the pointer to the quoted record, for the two embed variants which quote another record.
func QuotedRecord(e Embed) (StrongRef, bool) {
	switch v := e.(type) {
	case *Record:
		return v.Record, true
	case *RecordWithMedia:
		return v.Record, true
	}
	return StrongRef{}, false
}

// Converts the lexicon union type to an [Embed]. Returns nil for missing, unsupported, or malformed embeds.
func EmbedFromRecord(e *appbsky.FeedPost_Embed) Embed {
	if e == nil {
		return nil
	}
	switch {
	case e.EmbedImages != nil:
		return imagesFromRecord(e.EmbedImages)
	case e.EmbedExternal != nil:
		return externalFromRecord(e.EmbedExternal)
	case e.EmbedRecord != nil:
		ref, err := strongRefFromRecord(e.EmbedRecord.Record)
		if err != nil {
			return nil
		}
		return &Record{Record: ref}
	case e.EmbedRecordWithMedia != nil:
		rwm := e.EmbedRecordWithMedia
		if rwm.Record == nil {
			return nil
		}
		ref, err := strongRefFromRecord(rwm.Record.Record)
		if err != nil {
			return nil
		}
		out := &RecordWithMedia{Record: ref}
		if rwm.Media != nil {
			switch {
			case rwm.Media.EmbedImages != nil:
				out.Media = imagesFromRecord(rwm.Media.EmbedImages)
			case rwm.Media.EmbedExternal != nil:
				out.Media = externalFromRecord(rwm.Media.EmbedExternal)
			}
		}
		return out
	}
	return nil
}

func imagesFromRecord(e *appbsky.EmbedImages) *Images {
	out := &Images{}
	for _, img := range e.Images {
		if img == nil || img.Image == nil {
			continue
		}
		out.Images = append(out.Images, Image{
			Alt:  img.Alt,
			Blob: blobFromRecord(img.Image),
		})
	}
	return out
}

func externalFromRecord(e *appbsky.EmbedExternal) *External {
	if e.External == nil {
		return &External{}
	}
	return &External{
		URI:         e.External.Uri,
		Title:       e.External.Title,
		Description: e.External.Description,
		Thumb:       blobFromRecord(e.External.Thumb),
	}
}

func blobFromRecord(b *lexutil.LexBlob) *BlobRef {
	if b == nil {
		return nil
	}
	return &BlobRef{
		CID:      b.Ref.String(),
		MimeType: b.MimeType,
	}
}
