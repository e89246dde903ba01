package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/bluesky-social/indigo/atproto/syntax"
	"github.com/bluesky-social/threadview/fetch"
	"github.com/bluesky-social/threadview/thread"

	"github.com/flosch/pongo2/v6"
	"github.com/labstack/echo/v4"
)

func (srv *Server) WebHome(c echo.Context) error {
	info := pongo2.Context{
		"service": srv.config.Service,
	}
	return c.Render(http.StatusOK, "home.html", info)
}

func (srv *Server) WebQuery(c echo.Context) error {

	// parse the q query param, redirect based on that
	q := c.QueryParam("q")
	if q == "" {
		return c.Redirect(http.StatusFound, "/")
	}
	atid, rkey, ok := ParsePostRef(q)
	if !ok {
		return echo.NewHTTPError(http.StatusBadRequest, "query must be a post URL or AT-URI")
	}
	return c.Redirect(http.StatusFound, srv.withService(postPath(atid, rkey), c.QueryParam("service")))
}

// e.GET("/thread", srv.WebThreadURI)
func (srv *Server) WebThreadURI(c echo.Context) error {
	raw := c.QueryParam("uri")
	if !strings.HasPrefix(raw, "at://") {
		return echo.NewHTTPError(http.StatusBadRequest, "expected an AT-URI in the uri parameter")
	}
	atid, rkey, ok := ParsePostRef(raw)
	if !ok {
		return echo.NewHTTPError(http.StatusBadRequest, "AT-URI does not reference a post")
	}
	return c.Redirect(http.StatusFound, srv.withService(postPath(atid, rkey), c.QueryParam("service")))
}

// appends the service query param, if it was given and isn't the default
func (srv *Server) withService(path, service string) string {
	if service == "" || service == srv.config.Service {
		return path
	}
	return path + "?" + url.Values{"service": []string{service}}.Encode()
}

// Everything needed to display one thread.
type threadPage struct {
	Service  string
	URI      syntax.ATURI
	Root     *thread.Node
	Blocks   []thread.Block
	Expanded bool
}

// Focal post article, if it loaded.
func (p *threadPage) Focal() *thread.Article {
	if p.Root == nil {
		return nil
	}
	return p.Root.Article
}

func (srv *Server) serviceParam(c echo.Context) (string, error) {
	raw := c.QueryParam("service")
	if raw == "" {
		return srv.config.Service, nil
	}
	service, err := ParseServiceHost(raw, srv.config.AllowPrivateServices)
	if err != nil {
		return "", echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	return service, nil
}

// resolves the account part of the path to a DID: directly, via the identity directory, or by asking the service
func (srv *Server) resolveDID(ctx context.Context, service, raw string) (syntax.DID, error) {
	if did, err := syntax.ParseDID(raw); err == nil {
		return did, nil
	}
	handle, err := syntax.ParseHandle(raw)
	if err != nil {
		return "", echo.NewHTTPError(http.StatusBadRequest, "failed to parse handle or DID")
	}
	if srv.dir != nil {
		ident, err := srv.dir.LookupHandle(ctx, handle)
		if err == nil {
			return ident.DID, nil
		}
		slog.Debug("handle resolution failed, asking service", "handle", handle, "err", err)
	}
	prof, err := srv.renderer.Source.LoadProfile(ctx, service, handle.String())
	if err != nil {
		return "", echo.NewHTTPError(http.StatusNotFound, fmt.Sprintf("handle not found: %s", handle))
	}
	return prof.DID, nil
}

// loads the focal post and renders its thread, waiting at most the configured render timeout
func (srv *Server) loadThread(c echo.Context) (*threadPage, error) {
	ctx := c.Request().Context()

	service, err := srv.serviceParam(c)
	if err != nil {
		return nil, err
	}
	did, err := srv.resolveDID(ctx, service, c.Param("atid"))
	if err != nil {
		return nil, err
	}
	rkey, err := syntax.ParseRecordKey(c.Param("rkey"))
	if err != nil {
		return nil, echo.NewHTTPError(http.StatusBadRequest, "invalid record key")
	}
	uri := syntax.ATURI(fmt.Sprintf("at://%s/%s/%s", did, fetch.PostCollection, rkey))

	params := thread.Params{
		Service: service,
		URI:     uri,
		Verb:    c.QueryParam("verb"),
	}
	if raw := c.QueryParam("verbedAt"); raw != "" {
		t, err := thread.ParseTimestamp(raw)
		if err != nil {
			return nil, echo.NewHTTPError(http.StatusBadRequest, "could not parse verbedAt timestamp")
		}
		params.VerbedAt = t
	}

	if srv.config.RenderTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, srv.config.RenderTimeout)
		defer cancel()
	}

	post, err := srv.renderer.Source.LoadPost(ctx, service, uri, "")
	if err != nil {
		if errors.Is(err, thread.ErrNotFound) {
			return nil, echo.NewHTTPError(http.StatusNotFound, fmt.Sprintf("post not found: %s", uri))
		}
		if errors.Is(err, fetch.ErrNotPost) || errors.Is(err, thread.ErrInvalidRecord) {
			return nil, echo.NewHTTPError(http.StatusBadRequest, err.Error())
		}
		if errors.Is(err, context.DeadlineExceeded) {
			return nil, echo.NewHTTPError(http.StatusGatewayTimeout, "timed out loading post")
		}
		slog.Warn("failed to fetch post", "uri", uri, "service", service, "err", err)
		return nil, echo.NewHTTPError(http.StatusBadGateway, "failed to load post")
	}
	params.Post = post

	state := thread.NewReplyState()
	expanded := c.QueryParam("replies") == "show"
	if expanded {
		state.Expand()
	}

	start := time.Now()
	root := srv.renderer.Render(ctx, params, state, srv.filter)
	slog.Debug("rendered thread", "uri", uri, "duration", time.Since(start))

	return &threadPage{
		Service:  service,
		URI:      uri,
		Root:     root,
		Blocks:   thread.Flatten(root),
		Expanded: expanded,
	}, nil
}

var blockKinds = map[string]thread.BlockKind{
	"threadStart": thread.BlockThreadStart,
	"threadEnd":   thread.BlockThreadEnd,
	"parentError": thread.BlockParentError,
	"loading":     thread.BlockLoading,
	"article":     thread.BlockArticle,
	"ellipsis":    thread.BlockEllipsis,
}

// e.GET("/profile/:atid/post/:rkey", srv.WebPost)
func (srv *Server) WebPost(c echo.Context) error {
	page, err := srv.loadThread(c)
	if err != nil {
		return err
	}
	req := c.Request()

	// same URL, with hidden replies shown
	q := req.URL.Query()
	q.Set("replies", "show")
	expandURL := req.URL.Path + "?" + q.Encode()

	info := pongo2.Context{
		"uri":        page.URI,
		"service":    page.Service,
		"blocks":     page.Blocks,
		"kind":       blockKinds,
		"focal":      page.Focal(),
		"expanded":   page.Expanded,
		"expandURL":  expandURL,
		"jsonURL":    req.URL.Path + "/thread.json",
		"rssURL":     req.URL.Path + "/rss",
		"requestURI": fmt.Sprintf("https://%s%s", req.Host, req.URL.Path),
	}
	return c.Render(http.StatusOK, "thread.html", info)
}

// e.GET("/profile/:atid/post/:rkey/thread.json", srv.WebPostJSON)
func (srv *Server) WebPostJSON(c echo.Context) error {
	page, err := srv.loadThread(c)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, map[string]any{
		"uri":     page.URI,
		"service": page.Service,
		"thread":  page.Root,
		"blocks":  page.Blocks,
	})
}

// e.GET("/profile/:atid/post/:rkey/rss", srv.WebPostRSS)
func (srv *Server) WebPostRSS(c echo.Context) error {
	page, err := srv.loadThread(c)
	if err != nil {
		return err
	}
	req := c.Request()
	link := fmt.Sprintf("https://%s%s", req.Host, strings.TrimSuffix(req.URL.Path, "/rss"))
	rss, err := threadFeed(page, link).ToRss()
	if err != nil {
		return err
	}
	return c.Blob(http.StatusOK, "application/rss+xml; charset=utf-8", []byte(rss))
}

// e.GET("/_filter", srv.WebFilter)
func (srv *Server) WebFilter(c echo.Context) error {
	f := srv.filter.Get()
	return c.JSON(http.StatusOK, map[string]any{
		"count": f.Len(),
		"uris":  f.URIs(),
	})
}
