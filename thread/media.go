package thread

// Embedder renders rich markup (eg, a video player) for well-known URLs. It returns false to decline, in which case a plain link card is used.
type Embedder interface {
	Embed(rawURL string) (string, bool)
}

type ImageView struct {
	URL string `json:"url"`
	Alt string `json:"alt,omitempty"`
	// hover-preview URL for the tooltip
	PreviewURL string `json:"previewUrl"`
}

type ImagesView struct {
	// exactly one image is shown full width; multiple images are shown as a thumbnail grid
	Single bool        `json:"single"`
	Images []ImageView `json:"images"`
}

// Link preview. Either Rich (provider markup) is set, or the card fields are.
type ExternalView struct {
	Rich        string `json:"rich,omitempty"`
	URL         string `json:"url"`
	ThumbURL    string `json:"thumbUrl,omitempty"`
	Title       string `json:"title,omitempty"`
	Description string `json:"description,omitempty"`
}

// PostImages lays out image attachments.
func PostImages(service, did string, images []Image) *ImagesView {
	if len(images) == 0 {
		return nil
	}
	out := &ImagesView{
		Single: len(images) == 1,
		Images: make([]ImageView, 0, len(images)),
	}
	for _, img := range images {
		var u string
		if img.Blob != nil {
			u = BlobURL(service, did, img.Blob.CID)
		}
		out.Images = append(out.Images, ImageView{
			URL:        u,
			Alt:        img.Alt,
			PreviewURL: u,
		})
	}
	return out
}

// ExternalEmbed renders a link preview: rich provider markup if the embedder accepts the URL, otherwise a card built from the embed's own metadata. Returns nil if the embedder declines and there is no thumbnail, or if the link is not http(s).
func ExternalEmbed(service, did string, ext *External, embedder Embedder) *ExternalView {
	if ext == nil || !isWebLink(ext.URI) {
		return nil
	}
	if embedder != nil {
		if html, ok := embedder.Embed(ext.URI); ok {
			return &ExternalView{Rich: html, URL: ext.URI}
		}
	}
	if ext.Thumb == nil {
		return nil
	}
	return &ExternalView{
		URL:         ext.URI,
		ThumbURL:    BlobURL(service, did, ext.Thumb.CID),
		Title:       ext.Title,
		Description: ext.Description,
	}
}
