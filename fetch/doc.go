/*
Package fetch is the data-loading layer behind thread rendering.

[Client] wraps the XRPC calls used to load post records and author profiles from a PDS (optionally routing each repository to its own PDS via an identity directory). [Loader] adds caching (in-process LRU, or Redis) and coalescing of concurrent identical requests, and implements [thread.Source].
*/
package fetch
