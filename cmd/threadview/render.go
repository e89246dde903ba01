package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/bluesky-social/indigo/atproto/syntax"
	"github.com/bluesky-social/threadview/fetch"
	"github.com/bluesky-social/threadview/thread"

	"github.com/urfave/cli/v2"
)

func runRender(cctx *cli.Context) error {
	ctx := cctx.Context
	slog = configLogger(cctx, os.Stderr)

	atid, rkey, ok := ParsePostRef(cctx.Args().First())
	if !ok {
		return fmt.Errorf("expected a post AT-URI or URL as argument")
	}
	renderer, err := configRenderer(cctx)
	if err != nil {
		return err
	}
	service, err := ParseServiceHost(cctx.String("service"), true)
	if err != nil {
		return err
	}

	did, err := syntax.ParseDID(atid)
	if err != nil {
		prof, err := renderer.Source.LoadProfile(ctx, service, atid)
		if err != nil {
			return fmt.Errorf("resolving %s: %w", atid, err)
		}
		did = prof.DID
	}
	uri := syntax.ATURI(fmt.Sprintf("at://%s/%s/%s", did, fetch.PostCollection, rkey))

	if timeout := cctx.Duration("render-timeout"); timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}
	post, err := renderer.Source.LoadPost(ctx, service, uri, "")
	if err != nil {
		return err
	}

	state := thread.NewReplyState()
	if cctx.Bool("show-replies") {
		state.Expand()
	}
	root := renderer.Render(ctx, thread.Params{Service: service, URI: uri, Post: post}, state, nil)

	switch cctx.String("format") {
	case "json":
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(root)
	case "text":
		return writeText(os.Stdout, thread.Flatten(root))
	default:
		return fmt.Errorf("unknown output format: %s", cctx.String("format"))
	}
}

// plain-text rendering of a flattened thread, indented by depth
func writeText(w io.Writer, blocks []thread.Block) error {
	for _, b := range blocks {
		var err error
		switch b.Kind {
		case thread.BlockParentError:
			_, err = fmt.Fprintf(w, "[error loading parent: %s]\n\n", b.Message)
		case thread.BlockLoading:
			_, err = fmt.Fprintf(w, "[loading...]\n\n")
		case thread.BlockEllipsis:
			_, err = fmt.Fprintf(w, "  ... %s\n\n", b.Message)
		case thread.BlockArticle:
			err = writeArticle(w, b.Article, "")
		}
		if err != nil {
			return err
		}
	}
	return nil
}

func writeArticle(w io.Writer, a *thread.Article, indent string) error {
	header := a.AuthorName
	if a.AuthorHandle != "" && a.AuthorHandle != a.AuthorName {
		header += " (@" + a.AuthorHandle + ")"
	}
	fmt.Fprintf(w, "%s%s · %s\n", indent, header, a.DateLabel)
	for _, line := range strings.Split(articleText(a), "\n") {
		fmt.Fprintf(w, "%s%s\n", indent, line)
	}
	if a.Images != nil {
		for _, img := range a.Images.Images {
			fmt.Fprintf(w, "%s[image: %s] %s\n", indent, img.Alt, img.URL)
		}
	}
	if a.External != nil {
		fmt.Fprintf(w, "%s[link: %s] %s\n", indent, a.External.Title, a.External.URL)
	}
	if a.QuoteError != "" {
		fmt.Fprintf(w, "%s  [error loading quoted post: %s]\n", indent, a.QuoteError)
	}
	if a.Quote != nil && a.Quote.Article != nil {
		if err := writeArticle(w, a.Quote.Article, indent+"  > "); err != nil {
			return err
		}
	}
	if indent != "" {
		return nil
	}
	_, err := fmt.Fprintln(w)
	return err
}
