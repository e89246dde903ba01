package main

import (
	"fmt"
	slogging "log/slog"
	"os"
	"time"

	"github.com/carlmjohnson/versioninfo"
	"github.com/urfave/cli/v2"

	_ "github.com/joho/godotenv/autoload"
	_ "go.uber.org/automaxprocs"
)

var (
	slog    = slogging.New(slogging.NewJSONHandler(os.Stdout, nil))
	version = versioninfo.Short()
)

func main() {
	if err := run(os.Args); err != nil {
		slog.Error("fatal", "err", err)
		os.Exit(-1)
	}
}

// flags shared by every command which loads threads
var sourceFlags = []cli.Flag{
	&cli.StringFlag{
		Name:    "service",
		Usage:   "default PDS (or entryway) host to fetch records from",
		Value:   "https://bsky.social",
		EnvVars: []string{"THREADVIEW_SERVICE"},
	},
	&cli.StringFlag{
		Name:    "web-app",
		Usage:   "base URL of the web app used for profile and post links",
		Value:   "https://bsky.app",
		EnvVars: []string{"THREADVIEW_WEB_APP"},
	},
	&cli.StringFlag{
		Name:    "redis-url",
		Usage:   "if set, cache records in Redis instead of in-process",
		EnvVars: []string{"THREADVIEW_REDIS_URL"},
	},
	&cli.StringSliceFlag{
		Name:    "memcached",
		Usage:   "if set, cache records in these memcached servers (host:port) instead of in-process",
		EnvVars: []string{"THREADVIEW_MEMCACHED"},
	},
	&cli.DurationFlag{
		Name:    "cache-ttl",
		Usage:   "how long fetched records and profiles are cached",
		Value:   5 * time.Minute,
		EnvVars: []string{"THREADVIEW_CACHE_TTL"},
	},
	&cli.IntFlag{
		Name:    "cache-size",
		Usage:   "capacity of the in-process record cache",
		Value:   10_000,
		EnvVars: []string{"THREADVIEW_CACHE_SIZE"},
	},
	&cli.DurationFlag{
		Name:    "render-timeout",
		Usage:   "maximum time to wait for a thread to load; anything still pending is shown as loading",
		Value:   5 * time.Second,
		EnvVars: []string{"THREADVIEW_RENDER_TIMEOUT"},
	},
	&cli.IntFlag{
		Name:    "max-depth",
		Usage:   "maximum number of reply ancestors to follow (0 for unlimited; reply cycles are always cut)",
		Value:   50,
		EnvVars: []string{"THREADVIEW_MAX_DEPTH"},
	},
	&cli.Float64Flag{
		Name:    "fetch-rate-limit",
		Usage:   "maximum upstream fetches per second (0 for unlimited)",
		Value:   50,
		EnvVars: []string{"THREADVIEW_FETCH_RATE_LIMIT"},
	},
	&cli.BoolFlag{
		Name:    "resolve-pds",
		Usage:   "resolve each account's PDS from its DID document, instead of always using the service host",
		EnvVars: []string{"THREADVIEW_RESOLVE_PDS"},
	},
	&cli.BoolFlag{
		Name:    "allow-private-services",
		Usage:   "allow fetching from private, loopback, or plain-HTTP service hosts (for local development)",
		EnvVars: []string{"THREADVIEW_ALLOW_PRIVATE_SERVICES"},
	},
	&cli.StringFlag{
		Name:    "log-level",
		Usage:   "log verbosity level (eg: warn, info, debug)",
		Value:   "info",
		EnvVars: []string{"THREADVIEW_LOG_LEVEL", "LOG_LEVEL"},
	},
}

func run(args []string) error {

	app := cli.App{
		Name:    "threadview",
		Usage:   "server-side renderer for atproto posts, with reply context and quoted posts",
		Version: version,
	}

	app.Commands = []*cli.Command{
		&cli.Command{
			Name:   "serve",
			Usage:  "run the web server",
			Action: serve,
			Flags: append([]cli.Flag{
				&cli.StringFlag{
					Name:    "bind",
					Usage:   "Specify the local IP/port to bind to",
					Value:   ":8500",
					EnvVars: []string{"THREADVIEW_BIND"},
				},
				&cli.IntFlag{
					Name:    "filter-limit",
					Usage:   "number of seen parent URIs to remember before the filter resets",
					Value:   100_000,
					EnvVars: []string{"THREADVIEW_FILTER_LIMIT"},
				},
				&cli.BoolFlag{
					Name:    "debug",
					Usage:   "Enable debug mode (templates and static files reloaded from disk)",
					EnvVars: []string{"DEBUG"},
				},
			}, sourceFlags...),
		},
		&cli.Command{
			Name:      "render",
			Usage:     "load a thread and print it to stdout",
			ArgsUsage: "<at-uri-or-url>",
			Action:    runRender,
			Flags: append([]cli.Flag{
				&cli.StringFlag{
					Name:  "format",
					Usage: "output format: text or json",
					Value: "text",
				},
				&cli.BoolFlag{
					Name:  "show-replies",
					Usage: "expand hidden intermediate replies",
				},
			}, sourceFlags...),
		},
		&cli.Command{
			Name:  "version",
			Usage: "print version",
			Action: func(cctx *cli.Context) error {
				fmt.Println(version)
				return nil
			},
		},
	}

	return app.Run(args)
}
