package main

import (
	"bytes"
	"testing"

	"github.com/bluesky-social/threadview/thread"

	"github.com/stretchr/testify/assert"
)

func TestWriteText(t *testing.T) {
	assert := assert.New(t)

	quoted := &thread.Article{AuthorName: "Carol", DateLabel: "1 day ago", Segments: []thread.Segment{{Text: "quoted text"}}}
	blocks := []thread.Block{
		{Kind: thread.BlockThreadStart},
		{Kind: thread.BlockParentError, Message: "record not found"},
		{Kind: thread.BlockArticle, Article: &thread.Article{
			AuthorName:   "Alice",
			AuthorHandle: "alice.example.com",
			DateLabel:    "2 hours ago",
			Segments:     []thread.Segment{{Text: "hello "}, {Text: "@bob", Kind: thread.FacetMention}},
			Quote:        &thread.Node{Embedded: true, Article: quoted},
		}},
		{Kind: thread.BlockEllipsis, Message: "1 reply hidden"},
		{Kind: thread.BlockThreadEnd},
	}
	var buf bytes.Buffer
	assert.NoError(writeText(&buf, blocks))
	out := buf.String()
	assert.Contains(out, "[error loading parent: record not found]")
	assert.Contains(out, "Alice (@alice.example.com) · 2 hours ago\nhello @bob\n")
	assert.Contains(out, "  > Carol · 1 day ago\n  > quoted text\n")
	assert.Contains(out, "... 1 reply hidden")
}

func TestTruncate(t *testing.T) {
	assert := assert.New(t)
	assert.Equal("short", truncate("short", 10))
	assert.Equal("abcd…", truncate("abcdefgh", 5))
	assert.Equal("日本…", truncate("日本語テキスト", 3))
	assert.Equal("exact", truncate("exact", 5))
	// flags are two runes each, and are never split
	assert.Equal("🇩🇪🇫🇷…", truncate("🇩🇪🇫🇷🇮🇹🇯🇵", 3))
}
