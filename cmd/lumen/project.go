package main

import (
	"fmt"
	"log"
	"path/filepath"

	"github.com/recera/lumen/internal/cache"
	"github.com/recera/lumen/internal/config"
	"github.com/recera/lumen/internal/template"
	"github.com/recera/lumen/pkg/render"
)

// project is a lumen project rooted at a directory.
type project struct {
	root  string
	cfg   *config.Config
	cache *cache.Cache
}

// loadProject reads lumen.yaml in root and opens the module cache. A cache
// that cannot be opened is skipped with a warning.
func loadProject(root string, useCache bool) (*project, error) {
	cfg, err := config.Load(root)
	if err != nil {
		return nil, err
	}
	p := &project{root: root, cfg: cfg}
	if useCache && cfg.Cache != nil && cfg.Cache.Enabled {
		c, err := cache.Open(cfg.CacheSettings(root))
		if err != nil {
			log.Printf("⚠️  Failed to open module cache: %v (continuing without cache)", err)
		} else {
			p.cache = c
		}
	}
	return p, nil
}

func (p *project) srcDir() string { return filepath.Join(p.root, p.cfg.SrcDir) }
func (p *project) outDir() string { return filepath.Join(p.root, p.cfg.OutDir) }

func (p *project) options() template.Options {
	opts := template.Options{
		Table:    p.cfg.Table(),
		Resolver: p.cfg.Resolver(),
		Salt:     p.cfg.Fingerprint(),
	}
	if p.cache != nil {
		opts.Cache = p.cache
	}
	return opts
}

// compile compiles every template under the source directory.
func (p *project) compile() ([]*template.Result, error) {
	return template.ProcessDirectory(p.srcDir(), p.outDir(), p.options())
}

// entries loads compiled modules, keyed by their template path.
func entries(results []*template.Result) (map[string]render.Entry, error) {
	out := make(map[string]render.Entry, len(results))
	for _, r := range results {
		m, err := render.LoadModule(r.Module)
		if err != nil {
			return nil, fmt.Errorf("loading %s: %w", r.Rel, err)
		}
		out[r.Rel] = m
	}
	return out, nil
}

// runtime compiles the project and returns a runtime holding its pages.
func (p *project) runtime() (*render.Runtime, error) {
	results, err := p.compile()
	if err != nil {
		return nil, err
	}
	pages, err := entries(results)
	if err != nil {
		return nil, err
	}
	rt := render.New(render.WithGlobals(p.cfg.Globals), render.WithSite(p.cfg.Site))
	rt.RegisterPages(pages)
	return rt, nil
}

func (p *project) close() {
	if p.cache != nil {
		if err := p.cache.Close(); err != nil {
			log.Printf("⚠️  Failed to save module cache: %v", err)
		}
	}
}
