package main

import (
	"io"
	slogging "log/slog"
	"math"
	"strings"

	"github.com/bluesky-social/indigo/atproto/identity"
	"github.com/bluesky-social/threadview/embeds"
	"github.com/bluesky-social/threadview/fetch"
	"github.com/bluesky-social/threadview/thread"

	"github.com/urfave/cli/v2"
	"golang.org/x/time/rate"
)

// configures the package logger from the --log-level flag, and installs it as the default
func configLogger(cctx *cli.Context, writer io.Writer) *slogging.Logger {
	var level slogging.Level
	switch strings.ToLower(cctx.String("log-level")) {
	case "error":
		level = slogging.LevelError
	case "warn":
		level = slogging.LevelWarn
	case "debug":
		level = slogging.LevelDebug
	default:
		level = slogging.LevelInfo
	}
	logger := slogging.New(slogging.NewJSONHandler(writer, &slogging.HandlerOptions{
		Level: level,
	}))
	slogging.SetDefault(logger)
	return logger
}

// wires up the fetch client, cache, and thread renderer from CLI flags
func configRenderer(cctx *cli.Context) (*thread.Renderer, error) {
	client := fetch.NewClient()
	client.HTTPClient = fetch.RobustHTTPClient(fetch.HTTPConfig{
		PublicOnly: !cctx.Bool("allow-private-services"),
		Logger:     slog.With("system", "http"),
	})
	client.UserAgent = "threadview/" + version
	client.Logger = slog.With("system", "fetch")
	if limit := cctx.Float64("fetch-rate-limit"); limit > 0 {
		client.Limiter = rate.NewLimiter(rate.Limit(limit), int(math.Max(1, limit)))
	}
	if cctx.Bool("resolve-pds") {
		client.Directory = identity.DefaultDirectory()
	}

	ttl := cctx.Duration("cache-ttl")
	loader := fetch.NewLoader(client, cctx.Int("cache-size"), ttl, ttl/5)
	loader.Logger = slog.With("system", "loader")
	if redisURL := cctx.String("redis-url"); redisURL != "" {
		rc, err := fetch.NewRedisCache(cctx.Context, redisURL, cctx.Int("cache-size"), ttl)
		if err != nil {
			return nil, err
		}
		loader.Cache = rc
		slog.Info("using redis record cache")
	} else if servers := cctx.StringSlice("memcached"); len(servers) > 0 {
		loader.Cache = fetch.NewMemcacheCache(servers...)
		slog.Info("using memcached record cache", "servers", servers)
	}

	renderer := thread.NewRenderer(loader)
	renderer.WebApp = cctx.String("web-app")
	renderer.MaxDepth = cctx.Int("max-depth")
	renderer.Embedder = embeds.DefaultRegistry()
	renderer.Logger = slog.With("system", "thread")
	return renderer, nil
}
