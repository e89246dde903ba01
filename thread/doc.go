/*
Package thread renders a single Bluesky post, along with its chain of reply ancestors and any quoted post, as a tree of render descriptors.

Rendering is split in two halves. [Builder.Build] is a pure function from a post, its thread position, the shared [ReplyState], and a [Snapshot] of already-fetched data, to a [Node] tree plus a list of fetches that are still missing. [Renderer] drives the loop: it issues the missing fetches against a [Source], and rebuilds as results arrive.

Embeds are a closed set of four variants ([Images], [External], [Record], [RecordWithMedia]) and are dispatched with exhaustive type switches.
*/
package thread
