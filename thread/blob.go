package thread

import (
	"fmt"
	"net/url"
	"strings"
)

// BlobURL returns the URL to fetch a blob directly from a PDS, via `com.atproto.sync.getBlob`.
func BlobURL(service, did, cid string) string {
	return fmt.Sprintf("%s/xrpc/com.atproto.sync.getBlob?did=%s&cid=%s",
		strings.TrimSuffix(service, "/"),
		url.QueryEscape(did),
		url.QueryEscape(cid),
	)
}
