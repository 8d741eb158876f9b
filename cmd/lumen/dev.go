package main

import (
	"context"
	"fmt"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"sync"
	"syscall"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/cobra"

	"github.com/recera/lumen/internal/template"
	"github.com/recera/lumen/pkg/live"
	"github.com/recera/lumen/pkg/render"
	"github.com/recera/lumen/pkg/server"
)

type devServer struct {
	project    *project
	watcher    *fsnotify.Watcher
	liveServer *live.Server
	rtMutex    sync.RWMutex
	rt         *render.Runtime
	buildMutex sync.Mutex
}

func newDevCommand() *cobra.Command {
	var port int
	var host string
	var cwd string

	cmd := &cobra.Command{
		Use:   "dev",
		Short: "Start the development server",
		Long:  `Starts a development server that renders pages per request, recompiles templates on change and reloads connected browsers.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runDev(cwd, host, port)
		},
	}

	cmd.Flags().IntVarP(&port, "port", "p", 0, "Port to run the dev server on (default from lumen.yaml)")
	cmd.Flags().StringVarP(&host, "host", "H", "", "Host to bind the dev server to (default from lumen.yaml)")
	cmd.Flags().StringVar(&cwd, "cwd", ".", "Project directory")
	return cmd
}

func runDev(root, host string, port int) error {
	p, err := loadProject(root, true)
	if err != nil {
		return err
	}
	defer p.close()

	// CLI flags take precedence
	if port == 0 {
		port = p.cfg.Dev.Port
	}
	if host == "" {
		host = p.cfg.Dev.Host
	}

	s := newDevServer(p)
	log.Println("🎨 Compiling templates...")
	if err := s.rebuild(nil); err != nil {
		log.Printf("⚠️  Template compilation failed: %v\n", err)
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("failed to create file watcher: %w", err)
	}
	defer watcher.Close()
	s.watcher = watcher
	if err := s.setupWatcher(); err != nil {
		return fmt.Errorf("failed to setup watcher: %w", err)
	}
	go s.watchFiles()

	addr := fmt.Sprintf("%s:%d", host, port)
	srv := &http.Server{
		Addr:    addr,
		Handler: s.handler(),
	}

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	go func() {
		<-sigChan
		log.Println("\n🛑 Shutting down dev server...")
		s.liveServer.Close()
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		srv.Shutdown(ctx)
	}()

	log.Printf("✨ Dev server running at http://%s\n", addr)
	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return err
	}
	return nil
}

func newDevServer(p *project) *devServer {
	return &devServer{
		project:    p,
		liveServer: live.NewServer(),
		rt:         render.New(render.WithGlobals(p.cfg.Globals), render.WithSite(p.cfg.Site)),
	}
}

// runtime returns the runtime of the latest successful build.
func (s *devServer) runtime() *render.Runtime {
	s.rtMutex.RLock()
	defer s.rtMutex.RUnlock()
	return s.rt
}

func (s *devServer) handler() http.Handler {
	cfg := s.project.cfg
	opts := []server.Option{
		server.WithNotFound(cfg.Dev.NotFound),
		server.WithFallback(http.FileServer(http.Dir(filepath.Join(s.project.root, "public")))),
		server.WithLogger(slog.Default()),
	}
	if cfg.Dev.LiveReload {
		opts = append(opts, server.WithInjection(live.Script(live.Path)))
	}

	mux := http.NewServeMux()
	mux.Handle(live.Path, s.liveServer)
	mux.Handle("/", server.New(s.runtime, opts...))
	return mux
}

// rebuild drops cached modules of changed templates, recompiles the project
// and swaps in a runtime holding the new pages. On failure the previous
// runtime keeps serving.
func (s *devServer) rebuild(changed []string) error {
	s.buildMutex.Lock()
	defer s.buildMutex.Unlock()

	if s.project.cache != nil {
		for _, path := range changed {
			if rel, err := filepath.Rel(s.project.srcDir(), path); err == nil {
				s.project.cache.Invalidate(filepath.ToSlash(rel))
			}
		}
	}

	results, err := s.project.compile()
	if err != nil {
		return err
	}
	pages, err := entries(results)
	if err != nil {
		return err
	}

	s.rtMutex.Lock()
	s.rt = s.rt.Reload(pages)
	s.rtMutex.Unlock()
	return nil
}

func (s *devServer) setupWatcher() error {
	return filepath.Walk(s.project.srcDir(), func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		// Skip hidden directories
		if info.IsDir() && path != s.project.srcDir() && strings.HasPrefix(info.Name(), ".") {
			return filepath.SkipDir
		}
		if info.IsDir() {
			return s.watcher.Add(path)
		}
		return nil
	})
}

func (s *devServer) watchFiles() {
	debounce := time.NewTimer(0)
	<-debounce.C // drain initial timer

	var pendingEvents []fsnotify.Event
	var mu sync.Mutex

	for {
		select {
		case event, ok := <-s.watcher.Events:
			if !ok {
				return
			}

			if event.Has(fsnotify.Create) {
				if info, err := os.Stat(event.Name); err == nil && info.IsDir() {
					if err := s.watcher.Add(event.Name); err != nil {
						log.Printf("⚠️  Failed to watch %s: %v\n", event.Name, err)
					}
					continue
				}
			}
			if !isTemplate(event.Name) {
				continue
			}

			mu.Lock()
			pendingEvents = append(pendingEvents, event)
			mu.Unlock()

			debounce.Reset(100 * time.Millisecond)

		case err, ok := <-s.watcher.Errors:
			if !ok {
				return
			}
			log.Println("Watcher error:", err)

		case <-debounce.C:
			mu.Lock()
			events := pendingEvents
			pendingEvents = nil
			mu.Unlock()

			if len(events) > 0 {
				s.handleFileChanges(events)
			}
		}
	}
}

func isTemplate(path string) bool {
	return strings.ToLower(filepath.Ext(path)) == template.Ext
}

func (s *devServer) handleFileChanges(events []fsnotify.Event) {
	seen := make(map[string]bool)
	var changed []string
	for _, event := range events {
		if !seen[event.Name] {
			seen[event.Name] = true
			changed = append(changed, event.Name)
		}
	}

	log.Printf("🎨 %d template(s) changed, recompiling...\n", len(changed))
	start := time.Now()
	if err := s.rebuild(changed); err != nil {
		log.Printf("❌ %v\n", err)
		s.liveServer.Error(err)
		return
	}
	log.Printf("✅ Reloaded in %s\n", time.Since(start).Round(time.Millisecond))
	s.liveServer.Reload()
}
