package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"reply-overlay/internal/appview"
	"reply-overlay/internal/cache"
	"reply-overlay/internal/config"
	"reply-overlay/internal/firehose"
	"reply-overlay/internal/overlay"
	"reply-overlay/internal/replymedia"
)

// securityHeaders wraps an HTTP handler to add security headers
func securityHeaders(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		// Fragments embed CDN thumbnails and inline styles only
		csp := "default-src 'self'; " +
			"img-src * data:; " +
			"style-src 'self' 'unsafe-inline'; " +
			"script-src 'self'"
		w.Header().Set("Content-Security-Policy", csp)
		w.Header().Set("X-Content-Type-Options", "nosniff")
		w.Header().Set("Referrer-Policy", "strict-origin-when-cross-origin")
		next(w, r)
	}
}

// CLI flags
var (
	htmlFlag  bool
	themeFlag string
)

var rootCmd = &cobra.Command{
	Use:   "reply-overlay",
	Short: "Media reply thumbnails for Bluesky threads",
	Long: `reply-overlay finds the image and video replies of a post and renders them as a
small thumbnail overlay that links back to each reply.

Examples:
  reply-overlay serve
  reply-overlay inspect at://did:plc:abc/app.bsky.feed.post/3k2a
  reply-overlay inspect at://did:plc:abc/app.bsky.feed.post/3k2a --html --theme dark`,
	SilenceUsage: true,
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve overlays over HTTP",
	Args:  cobra.NoArgs,
	RunE:  runServe,
}

var inspectCmd = &cobra.Command{
	Use:   "inspect <at-uri>",
	Short: "Fetch one thread and print its media replies",
	Args:  cobra.ExactArgs(1),
	RunE:  runInspect,
}

func init() {
	inspectCmd.Flags().BoolVar(&htmlFlag, "html", false, "Print the rendered overlay fragment instead of JSON")
	inspectCmd.Flags().StringVar(&themeFlag, "theme", config.ThemeLight, "Theme palette for --html (light or dark)")
	rootCmd.AddCommand(serveCmd, inspectCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

// setup loads configuration and initializes logging and theming
func setup() (config.Config, error) {
	cfg, err := config.Load()
	if err != nil {
		return cfg, err
	}
	InitLogger()
	config.SetThemeConfigPath(cfg.ThemeConfig)
	return cfg, nil
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg, err := setup()
	if err != nil {
		return err
	}
	slog.Info("starting reply-overlay", "config", cfg)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cacheCfg := cache.DefaultCacheConfig()
	backend, backendType := InitCaches(ctx, cfg.RedisURL, cacheCfg)
	defer backend.Close()

	client := appview.NewClient(cfg.AppViewURL, cfg.FetchTimeout)
	service := replymedia.NewService(client, cache.NewReplyMediaStore(backend), cacheCfg).
		WithLogger(slog.Default().With("component", "replymedia"))
	presenter, err := overlay.NewPresenter(overlay.DefaultOpenPath)
	if err != nil {
		return err
	}

	go reloadOnHangup(ctx)
	if cfg.JetstreamURL != "" {
		go firehose.NewSubscriber(cfg.JetstreamURL, service).Run(ctx)
	}

	srv := &server{
		service:     service,
		presenter:   presenter,
		webBaseURL:  cfg.WebBaseURL,
		backend:     backend,
		backendType: backendType,
	}
	httpServer := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           srv.routes(),
		ReadHeaderTimeout: 10 * time.Second,
		WriteTimeout:      30 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		slog.Info("listening", "addr", httpServer.Addr, "cache", backendType)
		errCh <- httpServer.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	case <-ctx.Done():
	}

	slog.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return httpServer.Shutdown(shutdownCtx)
}

// reloadOnHangup re-reads the theme file on SIGHUP until ctx ends
func reloadOnHangup(ctx context.Context) {
	hup := make(chan os.Signal, 1)
	signal.Notify(hup, syscall.SIGHUP)
	defer signal.Stop(hup)
	for {
		select {
		case <-ctx.Done():
			return
		case <-hup:
			config.ReloadThemeConfig()
		}
	}
}

func runInspect(cmd *cobra.Command, args []string) error {
	cfg, err := setup()
	if err != nil {
		return err
	}
	anchor := args[0]
	if !isPostURI(anchor) {
		return fmt.Errorf("not an at:// post URI: %q", anchor)
	}

	client := appview.NewClient(cfg.AppViewURL, cfg.FetchTimeout)
	service := replymedia.NewService(client, nil, cache.DefaultCacheConfig())
	set := service.Collect(cmd.Context(), anchor)

	out := cmd.OutOrStdout()
	if !htmlFlag {
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		return enc.Encode(newReplyMediaResponse(anchor, set))
	}

	presenter, err := overlay.NewPresenter(overlay.DefaultOpenPath)
	if err != nil {
		return err
	}
	return presenter.Render(out, set, config.GetThemeConfig().Palette(themeFlag))
}
