package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/nao1215/sitemirror/internal/config"
	"github.com/nao1215/sitemirror/internal/crawler"
	"github.com/nao1215/sitemirror/internal/database"
	"github.com/nao1215/sitemirror/internal/log"
	"github.com/nao1215/sitemirror/internal/model"
	"github.com/nao1215/sitemirror/internal/pathmap"
	"github.com/nao1215/sitemirror/internal/pipeline"
	"github.com/nao1215/sitemirror/internal/proxy"
	"github.com/nao1215/sitemirror/internal/render"
	"github.com/nao1215/sitemirror/internal/storage"
	"github.com/nao1215/sitemirror/internal/transport"
)

// resourceBurst is the token bucket size used with --resource-rate.
const resourceBurst = 4

// NewMirrorCmd creates the mirror command.
func NewMirrorCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "mirror [url]",
		Short: "Mirror a website to local disk",
		Long: `Mirror crawls every same-domain page reachable from the start URL and saves
the pages together with their scripts, stylesheets, and images.

The start URL may also come from TARGET_URL. Settings are read from a .env
file in the working directory, then from the environment, then from flags.

Modes:
  proxy   fetch through CROCSEEK_PROXY_BASE; files go to js/, css/, assets/
  direct  fetch the site itself; files mirror the site's host and paths

Examples:
  # Mirror directly, three pages at most
  sitemirror mirror --mode direct --max-pages 3 https://example.com/

  # Mirror through a rewriting proxy
  sitemirror mirror --proxy-base https://proxy.example.net/fetch?url= https://example.com/

  # Route everything through Tor
  sitemirror mirror --tor http://exampleonion.onion/

  # Skip the browser and fetch pages over plain HTTP
  sitemirror mirror --no-browser https://example.com/`,
		Args: cobra.MaximumNArgs(1),
		RunE: runMirrorCmd,
	}

	cmd.Flags().String("mode", "", "Fetch mode: proxy or direct (default: proxy when a proxy base is set)")
	cmd.Flags().String("proxy-base", "", "URL prefix of the rewriting proxy (CROCSEEK_PROXY_BASE)")
	cmd.Flags().String("forward-proxy", "", "Forwarding proxy for all traffic: http://, https://, or socks5:// (ADDITIONAL_PROXY_URL)")
	cmd.Flags().Bool("tor", false, "Start an embedded Tor daemon and route all traffic through it")
	cmd.Flags().DurationP("tor-timeout", "T", config.DefaultTorStartupTimeout, "Timeout for embedded Tor startup")
	cmd.Flags().StringP("output", "o", "", "Output directory (SITE_FOLDER, default: <data dir>/sitemirror/<host>)")
	cmd.Flags().IntP("max-pages", "p", config.DefaultMaxPages, "Maximum URLs visited, pages and resources together")
	cmd.Flags().Duration("delay", config.DefaultCrawlDelay, "Politeness delay after each page")
	cmd.Flags().Duration("nav-wait", config.DefaultNavigationWait, "Browser settle time after navigation")
	cmd.Flags().DurationP("timeout", "t", config.DefaultTimeout, "Timeout for each resource download")
	cmd.Flags().Duration("render-timeout", config.DefaultRenderTimeout, "Timeout for rendering one page")
	cmd.Flags().IntP("workers", "w", config.DefaultWorkers, "Pages processed concurrently")
	cmd.Flags().Float64("resource-rate", 0, "Maximum resource requests per second (0 disables)")
	cmd.Flags().Bool("no-browser", false, "Fetch pages over plain HTTP instead of headless Chrome")
	cmd.Flags().Bool("no-history", false, "Do not record the run in the history database")
	cmd.Flags().StringP("config", "c", "", "Configuration file path (default: .sitemirror in current or home directory)")

	return cmd
}

func runMirrorCmd(cmd *cobra.Command, args []string) error {
	cfg, err := buildConfig(cmd, args)
	if err != nil {
		return err
	}
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("configuration error: %w", err)
	}

	logger := log.NewSecureLogger(cmd.ErrOrStderr(), cfg.Verbose)
	slog.SetDefault(logger)

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	run, err := runMirror(ctx, cfg, logger)
	if err != nil {
		return err
	}
	printSummary(cmd.OutOrStdout(), run)
	return nil
}

// buildConfig layers defaults, .env, the environment, flags, and finally the
// site file for the target host.
func buildConfig(cmd *cobra.Command, args []string) (*config.Config, error) {
	cfg := config.NewConfig()

	if err := config.LoadDotEnv(""); err != nil {
		return nil, fmt.Errorf("failed to load %s: %w", config.DefaultEnvFile, err)
	}
	if err := cfg.ApplyEnv(os.LookupEnv); err != nil {
		return nil, fmt.Errorf("configuration error: %w", err)
	}
	if len(args) > 0 {
		cfg.TargetURL = args[0]
	}
	cfg.Verbose = getVerboseFlag(cmd)

	if err := applyFlags(cmd, cfg); err != nil {
		return nil, err
	}

	var err error
	cfg.ConfigFilePath, err = cmd.Flags().GetString("config")
	if err != nil {
		return nil, err
	}
	configPath := config.FindConfigFile(cfg.ConfigFilePath)
	switch {
	case configPath != "":
		cfg.SiteConfigs, err = config.LoadConfigFile(configPath)
		if err != nil {
			return nil, fmt.Errorf("failed to load config file %s: %w", configPath, err)
		}
	case cfg.ConfigFilePath != "":
		return nil, fmt.Errorf("%w: %s", config.ErrConfigNotFound, cfg.ConfigFilePath)
	default:
		cfg.SiteConfigs = &config.File{Sites: make(map[string]config.SiteConfig)}
	}

	// An invalid target is reported by Validate.
	if target, err := cfg.Target(); err == nil {
		cfg.ApplySite(cfg.SiteConfigs.GetSiteConfig(target.Domain))
	}
	return cfg, nil
}

// applyFlags copies the flags the user changed onto cfg.
func applyFlags(cmd *cobra.Command, cfg *config.Config) error {
	flags := cmd.Flags()
	var err error

	if flags.Changed("mode") {
		if cfg.Mode, err = flags.GetString("mode"); err != nil {
			return err
		}
	}
	if flags.Changed("proxy-base") {
		if cfg.ProxyBase, err = flags.GetString("proxy-base"); err != nil {
			return err
		}
	}
	if flags.Changed("forward-proxy") {
		if cfg.ForwardProxy, err = flags.GetString("forward-proxy"); err != nil {
			return err
		}
	}
	if flags.Changed("output") {
		if cfg.OutputDir, err = flags.GetString("output"); err != nil {
			return err
		}
	}
	if flags.Changed("max-pages") {
		if cfg.MaxPages, err = flags.GetInt("max-pages"); err != nil {
			return err
		}
		cfg.MarkExplicit(config.FieldMaxPages)
	}
	if flags.Changed("delay") {
		if cfg.CrawlDelay, err = flags.GetDuration("delay"); err != nil {
			return err
		}
		cfg.MarkExplicit(config.FieldDelay)
	}
	if flags.Changed("workers") {
		if cfg.Workers, err = flags.GetInt("workers"); err != nil {
			return err
		}
	}

	if cfg.UseTor, err = flags.GetBool("tor"); err != nil {
		return err
	}
	if cfg.TorStartupTimeout, err = flags.GetDuration("tor-timeout"); err != nil {
		return err
	}
	if cfg.NavigationWait, err = flags.GetDuration("nav-wait"); err != nil {
		return err
	}
	if cfg.Timeout, err = flags.GetDuration("timeout"); err != nil {
		return err
	}
	if cfg.RenderTimeout, err = flags.GetDuration("render-timeout"); err != nil {
		return err
	}
	if cfg.ResourceRate, err = flags.GetFloat64("resource-rate"); err != nil {
		return err
	}

	noBrowser, err := flags.GetBool("no-browser")
	if err != nil {
		return err
	}
	cfg.UseBrowser = !noBrowser

	noHistory, err := flags.GetBool("no-history")
	if err != nil {
		return err
	}
	cfg.SaveHistory = !noHistory
	return nil
}

// runMirror wires every component for one run and crawls it to completion.
// Finalizer failures are logged; only setup failures are returned.
func runMirror(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*model.Run, error) {
	target, err := cfg.Target()
	if err != nil {
		return nil, err
	}
	mode, err := cfg.RunMode()
	if err != nil {
		return nil, err
	}
	site := cfg.SiteConfigs.GetSiteConfig(target.Domain)

	forward, stopTor, err := setupForwardProxy(ctx, cfg, logger)
	if err != nil {
		return nil, err
	}
	defer stopTor()

	client, err := transport.NewClient(
		transport.WithTimeout(cfg.Timeout),
		transport.WithForwardProxy(forward),
		transport.WithUserAgent(cfg.UserAgent),
		transport.WithMaxBodySize(cfg.MaxBodySize),
		transport.WithHeaders(site.Headers),
		transport.WithCookie(site.Cookie),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create HTTP client: %w", err)
	}

	state := model.NewCrawlState(cfg.MaxPages)
	rewriter, err := proxy.New(mode, cfg.ProxyBase, state)
	if err != nil {
		return nil, fmt.Errorf("configuration error: %w", err)
	}

	store, err := storage.New(cfg.ResolveOutputDir(target))
	if err != nil {
		return nil, fmt.Errorf("failed to create output directory: %w", err)
	}
	if mode == model.ModeProxy {
		if err := store.Prepare(pathmap.ScriptDir, pathmap.StyleDir, pathmap.AssetDir); err != nil {
			return nil, fmt.Errorf("failed to create output directory: %w", err)
		}
	}
	paths := pathmap.NewIndex(pathmap.NewMapper(pathmap.LayoutFor(mode)))

	renderer := newRenderer(cfg, client, forward, logger)
	fetcher := crawler.NewResourceFetcher(client, rewriter, state, paths, store,
		crawler.WithFetchTimeout(cfg.Timeout),
		crawler.WithRateLimit(cfg.ResourceRate, resourceBurst),
		crawler.WithFetcherLogger(logger),
	)

	var saver pipeline.RunSaver
	if cfg.SaveHistory {
		db, err := database.Open(cfg.HistoryDir, database.DefaultOptions())
		if err != nil {
			logger.Warn("history disabled: failed to open database", "dir", cfg.HistoryDir, "error", err)
		} else {
			defer db.Close()
			saver = db
		}
	}
	drainer := pipeline.New(pipeline.WithLogger(logger), pipeline.WithContinueOnError(true))
	drainer.AddSteps(pipeline.Finalizers(store, saver, logger)...)

	run := &model.Run{
		ID:        uuid.NewString(),
		Target:    target,
		Mode:      mode,
		ProxyBase: cfg.ProxyBase,
		OutputDir: store.Root(),
		State:     state,
	}

	logger.Info("starting mirror",
		"url", target.URL,
		"mode", mode.String(),
		"output", store.Root(),
		"max_pages", cfg.MaxPages,
		"browser", cfg.UseBrowser,
	)

	scheduler := crawler.NewScheduler(run, crawler.Components{
		Rewriter: rewriter,
		Renderer: renderer,
		Fetcher:  fetcher,
		Paths:    paths,
		Store:    store,
	},
		crawler.WithDelay(cfg.CrawlDelay),
		crawler.WithRenderTimeout(cfg.RenderTimeout),
		crawler.WithWorkers(cfg.Workers),
		crawler.WithLinkFilter(crawler.LinkFilter{Ignore: site.IgnorePatterns, Follow: site.FollowPatterns}),
		crawler.WithDrainer(drainer),
		crawler.WithLogger(logger),
	)

	run, err = scheduler.Run(ctx)
	if err != nil {
		// The manifest and whatever was saved remain usable.
		logger.Error("finalization incomplete", "error", err)
	}
	return run, nil
}

// setupForwardProxy returns the forwarding proxy for the run, if any, and a
// cleanup function that is always safe to call.
func setupForwardProxy(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*transport.ForwardProxy, func(), error) {
	noop := func() {}

	if cfg.UseTor {
		tor := transport.NewEmbeddedTor(transport.WithStartupTimeout(cfg.TorStartupTimeout))
		logger.Info("starting embedded Tor daemon", "timeout", cfg.TorStartupTimeout)
		if err := tor.Start(ctx); err != nil {
			return nil, noop, fmt.Errorf("failed to start embedded Tor: %w", err)
		}
		stop := func() {
			logger.Info("stopping embedded Tor daemon")
			if err := tor.Stop(); err != nil {
				logger.Error("failed to stop embedded Tor", "error", err)
			}
		}
		fp, err := tor.ForwardProxy()
		if err != nil {
			stop()
			return nil, noop, err
		}
		return fp, stop, nil
	}

	if cfg.ForwardProxy == "" {
		return nil, noop, nil
	}
	fp, err := transport.ParseForwardProxy(cfg.ForwardProxy)
	if err != nil {
		return nil, noop, fmt.Errorf("configuration error: %w", err)
	}

	checkCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	if status := transport.CheckProxy(checkCtx, fp); status != transport.ProxyStatusOK {
		logger.Warn("forward proxy check failed", "proxy", fp.String(), "status", status.String())
	} else {
		logger.Info("forward proxy connection verified", "proxy", fp.String())
	}
	return fp, noop, nil
}

func newRenderer(cfg *config.Config, client *transport.Client, forward *transport.ForwardProxy, logger *slog.Logger) render.Renderer {
	if !cfg.UseBrowser {
		return render.NewHTTPRenderer(client)
	}
	opts := render.BrowserOptions{
		UserAgent:  cfg.UserAgent,
		Headless:   true,
		Stealth:    true,
		SettleWait: cfg.NavigationWait,
		Logger:     logger,
	}
	if forward != nil {
		opts.ProxyServer = forward.HostPort()
	}
	return render.NewBrowserRenderer(opts)
}

func printSummary(w io.Writer, run *model.Run) {
	m := model.NewManifest(run)
	fmt.Fprintf(w, "Mirrored %s (%s mode) in %s\n", run.Target.URL, run.Mode, run.Duration().Round(time.Millisecond))
	fmt.Fprintf(w, "  pages:      %d saved, %d failed\n", len(run.State.SavedPages()), run.PagesFailed)
	fmt.Fprintf(w, "  resources:  %d js, %d css, %d images, %d other, %d failed\n",
		len(m.JSFiles), len(m.CSSFiles), len(m.ImageFiles), len(m.OtherResources), run.ResourcesFailed)
	fmt.Fprintf(w, "  visited:    %d of %d allowed\n", len(m.ScrapedPages), run.State.MaxVisits())
	fmt.Fprintf(w, "  stopped:    %s\n", run.Termination)
	fmt.Fprintf(w, "  output:     %s\n", run.OutputDir)
	if run.Termination == model.TerminationCancelled {
		fmt.Fprintln(w, "  the crawl was interrupted; the manifest covers what was saved")
	}
}
