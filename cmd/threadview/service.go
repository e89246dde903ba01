package main

import (
	"context"
	"embed"
	"errors"
	"fmt"
	"io/fs"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/bluesky-social/indigo/atproto/identity"
	"github.com/bluesky-social/threadview/thread"

	"github.com/flosch/pongo2/v6"
	"github.com/labstack/echo-contrib/echoprometheus"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/prometheus/client_golang/prometheus"
	slogecho "github.com/samber/slog-echo"
	"github.com/urfave/cli/v2"
)

//go:embed static/*
var StaticFS embed.FS

type Server struct {
	echo     *echo.Echo
	httpd    *http.Server
	dir      identity.Directory
	renderer *thread.Renderer
	// parent posts shown by any render, so feed views can skip them
	filter *thread.SharedFilter
	config ServerConfig
}

type ServerConfig struct {
	Bind string
	// default host to fetch records from, when a request doesn't specify one
	Service              string
	AllowPrivateServices bool
	RenderTimeout        time.Duration
	FilterLimit          int
	Debug                bool
	// defaults to the global prometheus registry
	Registry *prometheus.Registry
}

func serve(cctx *cli.Context) error {
	slog = configLogger(cctx, os.Stdout)

	shutdownOTEL, err := configOTEL(cctx.Context, "threadview")
	if err != nil {
		return err
	}
	defer shutdownOTEL()

	renderer, err := configRenderer(cctx)
	if err != nil {
		return err
	}
	service, err := ParseServiceHost(cctx.String("service"), true)
	if err != nil {
		return err
	}
	srv := NewServer(renderer, identity.DefaultDirectory(), ServerConfig{
		Bind:                 cctx.String("bind"),
		Service:              service,
		AllowPrivateServices: cctx.Bool("allow-private-services"),
		RenderTimeout:        cctx.Duration("render-timeout"),
		FilterLimit:          cctx.Int("filter-limit"),
		Debug:                cctx.Bool("debug"),
	})

	// Start the server
	slog.Info("starting server", "bind", srv.config.Bind, "service", service)
	go func() {
		if err := srv.httpd.ListenAndServe(); err != nil {
			if !errors.Is(err, http.ErrServerClosed) {
				slog.Error("HTTP server shutting down unexpectedly", "err", err)
			}
		}
	}()

	// Wait for a signal to exit.
	slog.Info("registering OS exit signal handler")
	quit := make(chan struct{})
	exitSignals := make(chan os.Signal, 1)
	signal.Notify(exitSignals, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		sig := <-exitSignals
		slog.Info("received OS exit signal", "signal", sig)

		// Shut down the HTTP server
		if err := srv.Shutdown(); err != nil {
			slog.Error("HTTP server shutdown error", "err", err)
		}

		// Trigger the return that causes an exit.
		close(quit)
	}()
	<-quit
	slog.Info("graceful shutdown complete")
	return nil
}

func NewServer(renderer *thread.Renderer, dir identity.Directory, config ServerConfig) *Server {
	e := echo.New()

	// httpd
	var (
		httpTimeout        = 1 * time.Minute
		httpMaxHeaderBytes = 1 * (1024 * 1024)
	)

	srv := &Server{
		echo:     e,
		dir:      dir,
		renderer: renderer,
		filter:   thread.NewSharedFilter(config.FilterLimit),
		config:   config,
	}
	srv.httpd = &http.Server{
		Handler:        srv,
		Addr:           config.Bind,
		WriteTimeout:   httpTimeout,
		ReadTimeout:    httpTimeout,
		MaxHeaderBytes: httpMaxHeaderBytes,
	}

	var registerer prometheus.Registerer = prometheus.DefaultRegisterer
	var gatherer prometheus.Gatherer = prometheus.DefaultGatherer
	if config.Registry != nil {
		registerer = config.Registry
		gatherer = config.Registry
	}

	e.HideBanner = true
	e.Use(slogecho.New(slog))
	e.Use(middleware.Recover())
	e.Use(echoprometheus.NewMiddlewareWithConfig(echoprometheus.MiddlewareConfig{
		Subsystem:  "threadview",
		Registerer: registerer,
	}))
	e.Use(middleware.BodyLimit("1M"))
	e.HTTPErrorHandler = srv.errorHandler
	e.Renderer = NewRenderer("templates/", &TemplateFS, config.Debug)
	e.Use(middleware.SecureWithConfig(middleware.SecureConfig{
		ContentTypeNosniff: "nosniff",
		XFrameOptions:      "SAMEORIGIN",
		HSTSMaxAge:         31536000, // 365 days
	}))

	// redirect trailing slash to non-trailing slash.
	// all of our current endpoints have no trailing slash.
	e.Use(middleware.RemoveTrailingSlashWithConfig(middleware.TrailingSlashConfig{
		RedirectCode: http.StatusFound,
	}))

	staticHandler := http.FileServer(func() http.FileSystem {
		if config.Debug {
			return http.FS(os.DirFS("static"))
		}
		fsys, err := fs.Sub(StaticFS, "static")
		if err != nil {
			slog.Error("static template error", "err", err)
			os.Exit(-1)
		}
		return http.FS(fsys)
	}())

	e.GET("/static/*", echo.WrapHandler(http.StripPrefix("/static/", staticHandler)))
	e.GET("/_health", srv.HandleHealthCheck)
	e.GET("/metrics", echoprometheus.NewHandlerWithConfig(echoprometheus.HandlerConfig{Gatherer: gatherer}))

	// basic static routes
	e.GET("/robots.txt", echo.WrapHandler(staticHandler))

	// actual content
	e.GET("/", srv.WebHome)
	e.GET("/query", srv.WebQuery)
	e.GET("/thread", srv.WebThreadURI)
	e.GET("/profile/:atid/post/:rkey", srv.WebPost)
	e.GET("/profile/:atid/post/:rkey/thread.json", srv.WebPostJSON)
	e.GET("/profile/:atid/post/:rkey/rss", srv.WebPostRSS)
	e.GET("/_filter", srv.WebFilter)

	return srv
}

type GenericStatus struct {
	Daemon  string `json:"daemon"`
	Status  string `json:"status"`
	Message string `json:"msg,omitempty"`
}

func (srv *Server) errorHandler(err error, c echo.Context) {
	code := http.StatusInternalServerError
	var errorMessage string
	var he *echo.HTTPError
	if errors.As(err, &he) {
		code = he.Code
		errorMessage = fmt.Sprintf("%s", he.Message)
	}
	if code >= 500 {
		slog.Warn("threadview-http-internal-error", "err", err)
	}
	if c.Response().Committed {
		return
	}
	// API-style routes get JSON errors
	if c.Path() == "/profile/:atid/post/:rkey/thread.json" || c.Path() == "/_filter" {
		c.JSON(code, GenericStatus{Daemon: "threadview", Status: "error", Message: errorMessage})
		return
	}
	data := pongo2.Context{
		"statusCode":   code,
		"errorMessage": errorMessage,
	}
	c.Render(code, "error.html", data)
}

func (srv *Server) ServeHTTP(rw http.ResponseWriter, req *http.Request) {
	srv.echo.ServeHTTP(rw, req)
}

func (srv *Server) Shutdown() error {
	slog.Info("shutting down")

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	return srv.httpd.Shutdown(ctx)
}

func (srv *Server) HandleHealthCheck(c echo.Context) error {
	return c.JSON(http.StatusOK, GenericStatus{Status: "ok", Daemon: "threadview"})
}
