package main

import (
	"fmt"
	"strings"

	"github.com/bluesky-social/threadview/thread"

	"github.com/gorilla/feeds"
	"github.com/rivo/uniseg"
)

// threadFeed builds an RSS feed of the visible thread: one item per rendered post, oldest first.
func threadFeed(page *threadPage, link string) *feeds.Feed {
	feed := &feeds.Feed{
		Title: "Thread",
		Link:  &feeds.Link{Href: link},
		Id:    page.URI.String(),
	}
	if focal := page.Focal(); focal != nil {
		feed.Title = fmt.Sprintf("Thread by %s", focal.AuthorName)
		feed.Description = truncate(articleText(focal), 200)
		feed.Author = &feeds.Author{Name: focal.AuthorName}
		feed.Created = focal.CreatedAt
	}

	for _, b := range page.Blocks {
		if b.Kind != thread.BlockArticle || b.Article == nil {
			continue
		}
		a := b.Article
		text := articleText(a)
		feed.Items = append(feed.Items, &feeds.Item{
			Id:          a.PostURL,
			Title:       fmt.Sprintf("%s: %s", a.AuthorName, truncate(text, 80)),
			Link:        &feeds.Link{Href: a.PostURL},
			Author:      &feeds.Author{Name: a.AuthorName},
			Description: text,
			Created:     a.CreatedAt,
		})
	}
	return feed
}

func articleText(a *thread.Article) string {
	var sb strings.Builder
	for _, seg := range a.Segments {
		sb.WriteString(seg.Text)
	}
	return sb.String()
}

// shortens to at most n grapheme clusters, including the ellipsis
func truncate(s string, n int) string {
	var sb strings.Builder
	count := 0
	gr := uniseg.NewGraphemes(s)
	for gr.Next() {
		if count == n-1 {
			// only truncate if there is more than one cluster left
			rest := gr.Str()
			if !gr.Next() {
				sb.WriteString(rest)
				return sb.String()
			}
			sb.WriteString("…")
			return sb.String()
		}
		sb.WriteString(gr.Str())
		count++
	}
	return s
}
