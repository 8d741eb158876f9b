package template

import (
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/recera/lumen/internal/cache"
)

// Ext is the extension of template files.
const Ext = ".html"

// ModuleExt is the extension of compiled module files.
const ModuleExt = ".lumen"

// Store caches compiled modules.
type Store interface {
	Get(key string) ([]byte, bool)
	Put(key string, module []byte, template string) error
}

// Result describes one compiled template.
type Result struct {
	// Rel is the template path relative to the source root, slash separated.
	Rel string
	// Target is the written module file.
	Target string
	Module string
	Cached bool
}

// ProcessFile compiles the template at path, relative to root, and writes the
// module to outDir/<rel without extension>.lumen.
func ProcessFile(root, path, outDir string, opts Options) (*Result, error) {
	src, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read template: %w", err)
	}
	rel, err := filepath.Rel(root, path)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve %s against %s: %w", path, root, err)
	}
	rel = filepath.ToSlash(rel)

	res := &Result{
		Rel:    rel,
		Target: filepath.Join(outDir, filepath.FromSlash(strings.TrimSuffix(rel, Ext)+ModuleExt)),
	}

	key := cache.Key(opts.Salt, rel, string(src))
	if opts.Cache != nil {
		if data, ok := opts.Cache.Get(key); ok {
			res.Module, res.Cached = string(data), true
		}
	}
	if !res.Cached {
		out, err := Compile(rel, string(src), opts)
		if err != nil {
			return nil, err
		}
		res.Module = out.Module
		if opts.Cache != nil {
			if err := opts.Cache.Put(key, []byte(out.Module), rel); err != nil {
				return nil, fmt.Errorf("failed to cache %s: %w", rel, err)
			}
		}
	}

	if err := os.MkdirAll(filepath.Dir(res.Target), 0755); err != nil {
		return nil, fmt.Errorf("failed to create output directory: %w", err)
	}
	if err := os.WriteFile(res.Target, []byte(res.Module), 0644); err != nil {
		return nil, fmt.Errorf("failed to write module: %w", err)
	}
	return res, nil
}

// ProcessDirectory compiles every template under root. Output directories
// and hidden directories are skipped. It stops at the first failing template.
func ProcessDirectory(root, outDir string, opts Options) ([]*Result, error) {
	absOut, _ := filepath.Abs(outDir)
	var results []*Result
	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			abs, _ := filepath.Abs(path)
			if path != root && (strings.HasPrefix(d.Name(), ".") || abs == absOut) {
				return filepath.SkipDir
			}
			return nil
		}
		if filepath.Ext(path) != Ext {
			return nil
		}
		res, err := ProcessFile(root, path, outDir, opts)
		if err != nil {
			return err
		}
		results = append(results, res)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return results, nil
}
