package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/spf13/cobra"

	"github.com/kalambet/folio/internal/api"
	"github.com/kalambet/folio/internal/config"
	"github.com/kalambet/folio/internal/content"
	"github.com/kalambet/folio/internal/editor"
	"github.com/kalambet/folio/internal/storage"
	"github.com/kalambet/folio/internal/web"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the portfolio server (foreground)",
	RunE: func(cmd *cobra.Command, args []string) error {
		return runServer()
	},
}

var stopCmd = &cobra.Command{
	Use:   "stop",
	Short: "Stop the running portfolio server",
	RunE: func(cmd *cobra.Command, args []string) error {
		return stopServer()
	},
}

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show server status and recent saves",
	RunE: func(cmd *cobra.Command, args []string) error {
		limit, _ := cmd.Flags().GetInt("limit")
		return showStatus(cmd.Context(), limit)
	},
}

func init() {
	statusCmd.Flags().Int("limit", 5, "number of recent saves to list")
}

func pidFilePath(dataDir string) string {
	return filepath.Join(dataDir, "folio.pid")
}

func writePIDFile(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	return os.WriteFile(path, []byte(strconv.Itoa(os.Getpid())), 0o644)
}

func readPIDFile(path string) (int, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return 0, err
	}
	return strconv.Atoi(strings.TrimSpace(string(data)))
}

func newLogger(level string) *slog.Logger {
	var lvl slog.Level
	if err := lvl.UnmarshalText([]byte(level)); err != nil {
		lvl = slog.LevelInfo
	}
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: lvl}))
}

// services are the backends shared by the server and the offline commands.
type services struct {
	store   *storage.Store
	library *content.Library
	saver   *api.Saver
}

func openServices(cfg config.Config, logger *slog.Logger) (*services, error) {
	store, err := storage.Open(cfg.Storage.DataDir)
	if err != nil {
		return nil, fmt.Errorf("opening storage: %w", err)
	}
	library := content.NewLibrary(cfg.Content.DataDir, map[content.Kind]string{
		content.KindWorks: cfg.Content.WorksSource,
		content.KindBlog:  cfg.Content.BlogSource,
	}, &http.Client{Timeout: 15 * time.Second})

	return &services{
		store:   store,
		library: library,
		saver: &api.Saver{
			Files:     content.FileStore{Dir: cfg.Content.DataDir},
			Revisions: store,
			Logger:    logger,
		},
	}, nil
}

func (s *services) Close() {
	if err := s.store.Close(); err != nil {
		printWarning("closing storage: %v", err)
	}
}

// persisterFor saves in process unless an explicit save endpoint is
// configured, in which case documents are posted there.
func persisterFor(cfg config.Config, saver *api.Saver) editor.Persister {
	if cfg.Editor.SaveURL != "" {
		return editor.HTTPPersister{URL: cfg.Editor.SaveURL, Client: &http.Client{Timeout: 15 * time.Second}}
	}
	return saver
}

// newRouter composes the JSON API and the pages under one router.
func newRouter(cfg config.Config, svc *services, site config.Site, logger *slog.Logger) (http.Handler, error) {
	app := api.NewAppHandler(api.AppDeps{
		Saver:     svc.saver,
		Counter:   svc.store,
		Revisions: svc.store,
		Logger:    logger,
	})

	deps := web.Deps{
		Content: svc.library,
		Site:    site,
		Counter: svc.store,
		DataDir: cfg.Content.DataDir,
		Logger:  logger,
	}
	if cfg.Editor.Enabled {
		deps.Session = editor.NewSession()
		deps.Persister = persisterFor(cfg, svc.saver)
	}
	pages, err := web.NewHandler(deps)
	if err != nil {
		return nil, fmt.Errorf("building pages: %w", err)
	}

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(api.RequestLogger(logger))
	r.Use(middleware.Recoverer)

	r.Handle("/health", app)
	r.Handle("/api/*", app)
	r.Mount("/", pages)
	return r, nil
}

func runServer() error {
	fmt.Fprintf(os.Stderr, "folio version %s\n", version)

	cfg, err := config.Load()
	if err != nil {
		return err
	}

	logger := newLogger(cfg.Log.Level)
	slog.SetDefault(logger)

	// Refuse to start twice on the same port.
	pidPath := pidFilePath(cfg.Storage.DataDir)
	healthClient := &http.Client{Timeout: 2 * time.Second}
	if resp, err := healthClient.Get(cfg.Server.BaseURL() + "/health"); err == nil {
		resp.Body.Close()
		if pid, pidErr := readPIDFile(pidPath); pidErr == nil {
			return fmt.Errorf("server already running (PID %d)", pid)
		}
		return fmt.Errorf("server already running on port %d", cfg.Server.Port)
	}
	if err := writePIDFile(pidPath); err != nil {
		return fmt.Errorf("writing PID file: %w", err)
	}
	defer os.Remove(pidPath)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	svc, err := openServices(cfg, logger)
	if err != nil {
		return err
	}
	defer svc.Close()

	site, err := config.LoadSite(cfg.Site.File)
	if err != nil {
		return err
	}

	handler, err := newRouter(cfg, svc, site, logger)
	if err != nil {
		return err
	}

	srv := &http.Server{
		Addr:              cfg.Server.Addr(),
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("folio listening", "addr", srv.Addr, "content", cfg.Content.DataDir, "editor", cfg.Editor.Enabled)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case <-ctx.Done():
		fmt.Fprintln(os.Stderr, "shutting down...")
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("server error: %w", err)
		}
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}

func stopServer() error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}

	pidPath := pidFilePath(cfg.Storage.DataDir)
	pid, err := readPIDFile(pidPath)
	if err != nil {
		return fmt.Errorf("folio is not running (no PID file): %w", err)
	}

	process, err := os.FindProcess(pid)
	if err != nil {
		return fmt.Errorf("finding process %d: %w", pid, err)
	}
	if err := process.Signal(syscall.SIGTERM); err != nil {
		os.Remove(pidPath)
		return fmt.Errorf("stopping folio (PID %d): %w", pid, err)
	}

	printSuccess("Sent stop signal to folio (PID %d)", pid)
	return nil
}

type revisionInfo struct {
	ID        string    `json:"id"`
	Kind      string    `json:"kind"`
	Bytes     int       `json:"bytes"`
	Items     int       `json:"items"`
	CreatedAt time.Time `json:"created_at"`
}

func showStatus(ctx context.Context, limit int) error {
	cfg, err := config.Load()
	if err != nil {
		printError("config error: %v", err)
		return nil
	}

	client, err := newAPIClient()
	if err != nil {
		return err
	}

	running := false
	if resp, err := client.get(ctx, "/health"); err != nil {
		printStatus("Server", "stopped")
	} else {
		resp.Body.Close()
		if resp.StatusCode == http.StatusOK {
			running = true
			printStatus("Server", "running at %s", client.baseURL)
		} else {
			printStatus("Server", "error (HTTP %d)", resp.StatusCode)
		}
	}

	printStatus("Content", "%s", cfg.Content.DataDir)
	printStatus("Data dir", "%s", cfg.Storage.DataDir)
	if cfg.Editor.Enabled {
		printStatus("Editor", "enabled, saving to %s", cfg.SaveURL())
	} else {
		printStatus("Editor", "disabled")
	}

	if !running {
		lastSaves(cfg.Storage.DataDir)
		return nil
	}
	revs, err := fetchRevisions(ctx, client, limit)
	if err != nil {
		printWarning("listing saves: %v", err)
		return nil
	}
	printStatus("Recent saves", "%s", countLabel(len(revs), limit))
	for _, r := range revs {
		fmt.Fprintf(stderr, "    %s  %-5s  %d items  %d bytes  %s\n",
			colorize(colorCyan, shortID(r.ID)), r.Kind, r.Items, r.Bytes, r.CreatedAt.Local().Format(time.DateTime))
	}
	return nil
}

// lastSaves reports the newest save of each kind straight from the database
// when the server is not there to ask.
func lastSaves(dataDir string) {
	store, err := storage.Open(dataDir)
	if err != nil {
		printWarning("opening storage: %v", err)
		return
	}
	defer store.Close()

	for _, kind := range content.Kinds {
		label := "Last " + string(kind) + " save"
		rev, err := store.LatestRevision(string(kind))
		switch {
		case errors.Is(err, storage.ErrNotFound):
			printStatus(label, "never")
		case err != nil:
			printStatus(label, "unknown (%v)", err)
		default:
			printStatus(label, "%s, %d items", rev.CreatedAt.Local().Format(time.DateTime), rev.Items)
		}
	}
}

func fetchRevisions(ctx context.Context, client *apiClient, limit int) ([]revisionInfo, error) {
	resp, err := client.get(ctx, fmt.Sprintf("/api/revisions?limit=%d", limit))
	if err != nil {
		return nil, err
	}
	var revs []revisionInfo
	if err := decodeJSON(resp, &revs); err != nil {
		return nil, err
	}
	return revs, nil
}

func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}

func countLabel(count, limit int) string {
	if count >= limit {
		return fmt.Sprintf("%d+", count)
	}
	return fmt.Sprintf("%d", count)
}
