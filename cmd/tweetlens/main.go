// Package main runs the page augmentation loop against a live browser
// session: per-user remarks, video download buttons, and tweet
// screenshots, reconciled from observed DOM mutations.
//
// Augmentations apply to the internally held document; they are not
// written back into the live page, so the injected controls' click
// flows are reached through the mediator API (and the -shoot flag)
// rather than in-page clicks.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"golang.org/x/net/html"

	"github.com/tweetlens/tweetlens/pkg/analytics"
	"github.com/tweetlens/tweetlens/pkg/annotate"
	"github.com/tweetlens/tweetlens/pkg/browser"
	"github.com/tweetlens/tweetlens/pkg/dialog"
	"github.com/tweetlens/tweetlens/pkg/download"
	"github.com/tweetlens/tweetlens/pkg/history"
	"github.com/tweetlens/tweetlens/pkg/i18n"
	"github.com/tweetlens/tweetlens/pkg/inject"
	"github.com/tweetlens/tweetlens/pkg/locator"
	"github.com/tweetlens/tweetlens/pkg/logging"
	"github.com/tweetlens/tweetlens/pkg/mediator"
	"github.com/tweetlens/tweetlens/pkg/proxy"
	"github.com/tweetlens/tweetlens/pkg/reconcile"
	"github.com/tweetlens/tweetlens/pkg/settings"
	"github.com/tweetlens/tweetlens/pkg/shot"
)

const version = "0.1.0"

// CLIConfig holds command-line configuration.
type CLIConfig struct {
	URL          string
	Headless     bool
	SettingsPath string
	HistoryPath  string
	DownloadDir  string
	ProxyURL     string
	AnalyticsURL string
	Locale       string
	DomainHint   string
	ShootTweetID string
	ShowVersion  bool
}

func main() {
	config := parseFlags()

	if config.ShowVersion {
		fmt.Printf("tweetlens v%s\n", version)
		return
	}

	ctx, cancel := context.WithCancel(context.Background())

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	go func() {
		<-sigChan
		fmt.Println("\nShutting down gracefully...")
		cancel()
	}()

	if err := run(ctx, config); err != nil && err != context.Canceled {
		cancel()
		fmt.Fprintf(os.Stderr, "tweetlens failed: %v\n", err)
		os.Exit(1)
	}
	cancel()
}

func parseFlags() *CLIConfig {
	config := &CLIConfig{}

	dataDir := defaultDataDir()
	flag.StringVar(&config.URL, "url", "https://x.com/home", "Page to attach to")
	flag.BoolVar(&config.Headless, "headless", false, "Run the browser headless")
	flag.StringVar(&config.SettingsPath, "settings", filepath.Join(dataDir, "settings.json"), "Settings file")
	flag.StringVar(&config.HistoryPath, "history", filepath.Join(dataDir, "history.db"), "Download history database")
	flag.StringVar(&config.DownloadDir, "downloads", filepath.Join(dataDir, "downloads"), "Download directory")
	flag.StringVar(&config.ProxyURL, "proxy", "http://localhost:8787", "Video info proxy base URL")
	flag.StringVar(&config.AnalyticsURL, "analytics", "", "Analytics endpoint, empty disables")
	flag.StringVar(&config.Locale, "locale", "en", "Locale for user-visible text")
	flag.StringVar(&config.DomainHint, "domain", "x.com", "Domain hint forwarded to the proxy")
	flag.StringVar(&config.ShootTweetID, "shoot", "", "Screenshot the tweet with this id and exit")
	flag.BoolVar(&config.ShowVersion, "version", false, "Show version and exit")

	flag.Usage = func() {
		fmt.Fprintf(os.Stderr, "tweetlens - remarks, video downloads and screenshots for your timeline\n\n")
		fmt.Fprintf(os.Stderr, "Usage: tweetlens [options]\n\n")
		fmt.Fprintf(os.Stderr, "Augmentations are tracked on an internal copy of the page, not\n")
		fmt.Fprintf(os.Stderr, "written back into the browser; use -shoot to drive the screenshot\n")
		fmt.Fprintf(os.Stderr, "flow directly.\n\n")
		fmt.Fprintf(os.Stderr, "Options:\n")
		flag.PrintDefaults()
	}

	flag.Parse()
	return config
}

func defaultDataDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ".tweetlens"
	}
	return filepath.Join(home, ".tweetlens")
}

func run(ctx context.Context, config *CLIConfig) error {
	log, err := logging.NewLogger("tweetlens")
	if err != nil {
		return fmt.Errorf("failed to create logger: %w", err)
	}
	defer log.Close()
	log.Infof("starting tweetlens v%s against %s", version, config.URL)

	for _, dir := range []string{filepath.Dir(config.SettingsPath), filepath.Dir(config.HistoryPath), config.DownloadDir} {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("failed to create %s: %w", dir, err)
		}
	}

	store, err := settings.NewFileStore(config.SettingsPath)
	if err != nil {
		return fmt.Errorf("failed to open settings: %w", err)
	}
	cache := settings.NewCache(store)

	values, err := cache.Load(ctx)
	if err != nil {
		return fmt.Errorf("failed to load settings: %w", err)
	}
	downloadDir := values.DownloadDirectory
	if downloadDir == "" {
		downloadDir = config.DownloadDir
		if err := store.Set(ctx, map[string]any{settings.KeyDownloadDirectory: downloadDir}); err != nil {
			return fmt.Errorf("failed to persist download directory: %w", err)
		}
		cache.Invalidate()
	}

	hist, err := history.Open(config.HistoryPath)
	if err != nil {
		return fmt.Errorf("failed to open download history: %w", err)
	}
	defer hist.Close()

	proxyClient, err := proxy.NewHTTPClient(config.ProxyURL, proxy.DefaultAllowedHosts)
	if err != nil {
		return fmt.Errorf("failed to create proxy client: %w", err)
	}

	downloads, err := download.NewLocalManager(downloadDir, log)
	if err != nil {
		return fmt.Errorf("failed to create download manager: %w", err)
	}

	var beacon analytics.Beacon = analytics.Nop{}
	if config.AnalyticsURL != "" {
		httpBeacon := analytics.NewHTTPBeacon(config.AnalyticsURL, log)
		defer httpBeacon.Close()
		beacon = httpBeacon
	}

	msgs, err := i18n.NewProvider(config.Locale)
	if err != nil {
		return fmt.Errorf("failed to load locale %s: %w", config.Locale, err)
	}

	driver := browser.NewDriver(browser.Options{Headless: config.Headless}, log)
	if err := driver.Initialize(); err != nil {
		return err
	}
	defer driver.Close()
	if err := driver.Start(config.URL); err != nil {
		return err
	}
	beacon.LogPageView("timeline", config.URL, nil)

	annotations := annotate.NewEngine(log)
	buttons := inject.NewEngine(msgs, log)
	shots := shot.NewGenerator(driver)

	med := mediator.New(mediator.Config{
		Settings:    cache,
		History:     hist,
		Proxy:       proxyClient,
		Downloads:   downloads,
		Surface:     dialog.NewTUI(),
		Messages:    msgs,
		Beacon:      beacon,
		Annotations: annotations,
		Buttons:     buttons,
		Shots:       shots,
		Logger:      log,
		DomainHint:  config.DomainHint,
		OpenRecord: func(rec history.Record) {
			log.Infof("existing download: %s (%s)", rec.Filename, rec.TweetURL)
		},
	})

	doc := driver.Document()
	med.Bind(ctx, doc)

	if config.ShootTweetID != "" {
		return shootTweet(ctx, med, driver, doc, config.ShootTweetID)
	}

	observed, err := driver.Observe(ctx)
	if err != nil {
		return err
	}

	// Merge browser mutations with settings-change notifications into
	// the single stream the reconciler consumes.
	mutations := make(chan reconcile.Mutation, 64)
	store.Subscribe(func(changed []string) {
		select {
		case mutations <- reconcile.Mutation{Type: reconcile.MutationSettingsChanged}:
		case <-ctx.Done():
		}
	})
	go func() {
		defer close(mutations)
		for m := range observed {
			select {
			case mutations <- m:
			case <-ctx.Done():
				return
			}
		}
	}()

	reconciler := reconcile.New(doc, cache, annotations, buttons, log,
		reconcile.WithLocker(driver.TreeLock()))
	return reconciler.Run(ctx, mutations)
}

// shootTweet runs the one-shot screenshot flow for a single tweet and
// returns. The theme resolves from the live page background.
func shootTweet(ctx context.Context, med *mediator.Mediator, driver *browser.Driver, doc *html.Node, tweetID string) error {
	var tweet *html.Node
	for _, candidate := range locator.Tweets(doc) {
		if locator.TweetID(candidate) == tweetID {
			tweet = candidate
			break
		}
	}
	if tweet == nil {
		return fmt.Errorf("tweet %s is not on the page", tweetID)
	}

	background, err := driver.PageBackground()
	if err != nil {
		return err
	}
	med.HandleScreenshot(ctx, tweet, shot.Options{
		Theme:          shot.ThemeAuto,
		PageBackground: background,
	})
	return nil
}
