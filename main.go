// Copyright (c) 2024 cblomart
// Licensed under the MIT License

package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"

	_ "postgrid/docs"
	"postgrid/internal/api"
	"postgrid/internal/cache"
	"postgrid/internal/catalog"
	"postgrid/internal/comments"
	"postgrid/internal/config"
	"postgrid/internal/fixtures"
	"postgrid/internal/grid"
	"postgrid/internal/models"
	"postgrid/internal/poller"
	"postgrid/internal/render"
	"postgrid/internal/storage"
	"postgrid/internal/web"

	"github.com/spf13/cobra"
)

// app bundles the long-lived components shared by every command
type app struct {
	cfg          *config.Config
	cacheManager *cache.Manager
	storage      storage.Storage
	catalog      *catalog.Catalog
	local        *comments.StoreClient
	comments     grid.CommentFetcher
	poller       *poller.Poller
}

func newApp(cfg *config.Config) (*app, error) {
	// Initialize cache for hot data
	cacheManager := cache.NewManager(cfg.CacheTTL)

	// Initialize persistent storage
	storageManager, err := storage.NewStorage(cfg.DataDir, cfg.Database)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize storage: %w", err)
	}

	local := comments.NewStoreClient(storageManager, cacheManager)
	var fetcher grid.CommentFetcher = local
	if cfg.Grid.CommentsAPIURL != "" {
		log.Printf("Fetching recent comments from %s", cfg.Grid.CommentsAPIURL)
		fetcher = comments.NewHTTPClient(cfg.Grid.CommentsAPIURL, cfg.Grid.FetchTimeout)
	}

	feedPoller := poller.New(cacheManager, storageManager, cfg.Feeds, cfg.FetchCommentFeeds, cfg.PollInterval)
	feedPoller.SetVerbose(cfg.Verbose())

	return &app{
		cfg:          cfg,
		cacheManager: cacheManager,
		storage:      storageManager,
		catalog:      catalog.New(storageManager, cacheManager),
		local:        local,
		comments:     fetcher,
		poller:       feedPoller,
	}, nil
}

func (a *app) Close() {
	if err := a.storage.Close(); err != nil {
		log.Printf("Warning: failed to close storage: %v", err)
	}
}

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	serveCmd := newServeCmd()
	root := &cobra.Command{
		Use:          "postgrid",
		Short:        "Blog post grid with view and sort modes",
		SilenceUsage: true,
		RunE:         serveCmd.RunE,
	}
	root.Flags().AddFlagSet(serveCmd.Flags())
	root.AddCommand(serveCmd, newPollCmd(), newImportCmd(), newRenderCmd())
	return root
}

func newServeCmd() *cobra.Command {
	var port int
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP server and background feed poller",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := config.Load()
			if cmd.Flags().Changed("port") {
				cfg.Port = port
			}
			return serve(cmd.Context(), cfg)
		},
	}
	cmd.Flags().IntVar(&port, "port", 8080, "HTTP listen port (overrides PORT)")
	return cmd
}

func serve(ctx context.Context, cfg *config.Config) error {
	a, err := newApp(cfg)
	if err != nil {
		return err
	}
	defer a.Close()

	return a.run(ctx)
}

// run serves until ctx is cancelled, a shutdown signal arrives or the server
// fails. The poller is stopped before run returns, so storage can be closed.
func (a *app) run(ctx context.Context) error {
	cfg := a.cfg
	server, err := api.NewServer(api.Services{
		Posts:    a.catalog,
		Comments: a.comments,
		Recent:   a.local,
		Poller:   a.poller,
	}, cfg)
	if err != nil {
		return fmt.Errorf("failed to initialize server: %w", err)
	}

	// Start background polling
	if len(cfg.Feeds) > 0 {
		a.poller.Start()
	} else {
		log.Println("No BLOG_FEEDS configured, background polling disabled")
	}

	log.Printf("Starting post grid server on port %d", cfg.Port)
	log.Printf("Data directory: %s (driver %s)", cfg.DataDir, cfg.Database.Driver)
	log.Printf("Cache TTL: %v", cfg.CacheTTL)
	log.Printf("Background polling interval: %v", cfg.PollInterval)

	// Handle shutdown signals
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(sigChan)

	if ctx == nil {
		ctx = context.Background()
	}
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	stopped := make(chan struct{})
	go func() {
		defer close(stopped)
		select {
		case <-sigChan:
			log.Println("Received shutdown signal, stopping services...")
		case <-ctx.Done():
		}
		a.poller.Stop()
		cancel()
	}()

	err = server.StartWithContext(ctx)
	cancel()
	<-stopped

	if err != nil && err != context.Canceled {
		return fmt.Errorf("failed to start server: %w", err)
	}
	return nil
}

func newPollCmd() *cobra.Command {
	var feed string
	cmd := &cobra.Command{
		Use:   "poll",
		Short: "Poll the configured blog feeds once and exit",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := config.Load()
			a, err := newApp(cfg)
			if err != nil {
				return err
			}
			defer a.Close()

			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			if feed == "" && len(cfg.Feeds) == 0 {
				return fmt.Errorf("no feeds configured: set BLOG_FEEDS")
			}
			return a.poller.ForcePoll(ctx, feed)
		},
	}
	cmd.Flags().StringVar(&feed, "feed", "", "poll only this configured feed URL")
	return cmd
}

func newImportCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "import <fixtures.yaml>",
		Short: "Import posts and comments from a YAML or JSON fixture file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			set, err := fixtures.Load(args[0])
			if err != nil {
				return err
			}

			a, err := newApp(config.Load())
			if err != nil {
				return err
			}
			defer a.Close()

			if err := set.Import(cmd.Context(), a.storage); err != nil {
				return err
			}
			log.Printf("Imported %d posts and %d comments from %s", len(set.Posts), len(set.Comments), args[0])
			return nil
		},
	}
}

func newRenderCmd() *cobra.Command {
	var viewFlag, sortFlag string
	var fragment bool
	cmd := &cobra.Command{
		Use:   "render",
		Short: "Render the post grid HTML to stdout",
		RunE: func(cmd *cobra.Command, args []string) error {
			view, err := models.ParseViewMode(viewFlag)
			if err != nil {
				return err
			}
			sortMode, err := models.ParseSortMode(sortFlag)
			if err != nil {
				return err
			}

			cfg := config.Load()
			a, err := newApp(cfg)
			if err != nil {
				return err
			}
			defer a.Close()

			shell, err := render.NewShell(
				render.WithSkeletonCount(cfg.Grid.SkeletonCount),
				render.WithEmptyMessage(cfg.Grid.EmptyMessage),
				render.WithMinify(cfg.Grid.MinifyHTML),
			)
			if err != nil {
				return err
			}

			snap, tag := web.BuildSnapshot(cmd.Context(), a.catalog, a.comments, cfg.Grid, view, sortMode)
			if fragment {
				return shell.Render(cmd.OutOrStdout(), snap)
			}
			return shell.RenderPage(cmd.OutOrStdout(), cfg.Grid.PageTitle, tag.String(), snap)
		},
	}
	cmd.Flags().StringVar(&viewFlag, "view", string(models.DefaultViewMode), "view mode: all, popular, recent_posts, recent_comments")
	cmd.Flags().StringVar(&sortFlag, "sort", string(models.DefaultSortMode), "sort mode: newest, oldest, most_comments, least_comments, title_asc, title_desc")
	cmd.Flags().BoolVar(&fragment, "fragment", false, "render only the grid section, without the page around it")
	return cmd
}
