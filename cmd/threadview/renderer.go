package main

import (
	"embed"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"strings"

	"github.com/flosch/pongo2/v6"
	"github.com/labstack/echo/v4"
)

//go:embed templates/*
var TemplateFS embed.FS

type Renderer struct {
	TemplateSet *pongo2.TemplateSet
	Debug       bool
}

// In debug mode templates are read from disk (relative to the working directory) on every request; otherwise from the embedded filesystem, and cached.
func NewRenderer(prefix string, fsys *embed.FS, debug bool) *Renderer {
	var loader pongo2.TemplateLoader
	if debug {
		loader = pongo2.MustNewLocalFileSystemLoader(prefix)
	} else {
		sub, err := fs.Sub(fsys, strings.TrimSuffix(prefix, "/"))
		if err != nil {
			panic(fmt.Sprintf("template filesystem: %s", err))
		}
		loader = pongo2.NewFSLoader(sub)
	}
	set := pongo2.NewSet("threadview", loader)
	set.Debug = debug
	return &Renderer{
		TemplateSet: set,
		Debug:       debug,
	}
}

func (r Renderer) Render(w io.Writer, name string, data interface{}, c echo.Context) error {
	var ctx pongo2.Context
	if data != nil {
		var ok bool
		ctx, ok = data.(pongo2.Context)
		if !ok {
			return errors.New("no pongo2.Context data was passed")
		}
	}

	var t *pongo2.Template
	var err error
	if r.Debug {
		t, err = r.TemplateSet.FromFile(name)
	} else {
		t, err = r.TemplateSet.FromCache(name)
	}
	if err != nil {
		return err
	}
	return t.ExecuteWriter(ctx, w)
}
