// Package mediator coordinates the user-facing flows behind the
// injected controls: video download, remark editing, and tweet
// screenshots. It owns the dialog choreography and delegates the
// actual work to the storage, proxy, and rendering collaborators.
package mediator

import (
	"context"
	"fmt"
	"net/url"
	"path"
	"path/filepath"
	"strconv"
	"time"

	"golang.org/x/net/html"

	"github.com/tweetlens/tweetlens/pkg/analytics"
	"github.com/tweetlens/tweetlens/pkg/annotate"
	"github.com/tweetlens/tweetlens/pkg/dialog"
	"github.com/tweetlens/tweetlens/pkg/download"
	"github.com/tweetlens/tweetlens/pkg/history"
	"github.com/tweetlens/tweetlens/pkg/i18n"
	"github.com/tweetlens/tweetlens/pkg/inject"
	"github.com/tweetlens/tweetlens/pkg/locator"
	"github.com/tweetlens/tweetlens/pkg/logging"
	"github.com/tweetlens/tweetlens/pkg/proxy"
	"github.com/tweetlens/tweetlens/pkg/settings"
	"github.com/tweetlens/tweetlens/pkg/shot"
)

// Config carries the collaborators a Mediator needs. Settings,
// Surface, Messages, Annotations, and Buttons are required; the rest
// degrade gracefully when absent (nil Beacon becomes a no-op, nil
// History disables deduplication).
type Config struct {
	Settings    *settings.Cache
	History     history.Store
	Proxy       proxy.Client
	Downloads   download.Manager
	Surface     dialog.Surface
	Messages    *i18n.Provider
	Beacon      analytics.Beacon
	Annotations *annotate.Engine
	Buttons     *inject.Engine
	Shots       *shot.Generator
	Logger      *logging.Logger

	// DomainHint is forwarded to the proxy so it can pick the right
	// host API variant.
	DomainHint string

	// OpenRecord is invoked when the user asks to open an existing
	// download from the already-downloaded dialog.
	OpenRecord func(history.Record)
}

// Mediator runs one user action at a time from start to dialog
// resolution. A failure aborts only the action it occurred in.
type Mediator struct {
	cfg   Config
	log   *logging.Logger
	clock func() time.Time
}

// New creates a mediator from cfg.
func New(cfg Config) *Mediator {
	if cfg.Beacon == nil {
		cfg.Beacon = analytics.Nop{}
	}
	return &Mediator{cfg: cfg, log: cfg.Logger, clock: time.Now}
}

// Bind registers the mediator as the click target for the injected
// controls on doc.
func (m *Mediator) Bind(ctx context.Context, doc *html.Node) {
	m.cfg.Buttons.OnRemark(func(username string, _ *html.Node) {
		m.HandleRemark(ctx, doc, username)
	})
	m.cfg.Buttons.OnDownload(func(tweet, button *html.Node) {
		m.HandleDownload(ctx, tweet, button)
	})
}

// HandleDownload runs the download flow for one tweet: resolve the
// tweet id, dedupe against history, fetch video info, then download
// directly (single item) or after a selection dialog (multiple).
func (m *Mediator) HandleDownload(ctx context.Context, tweet, button *html.Node) {
	tweetID := locator.TweetID(tweet)
	if tweetID == "" {
		m.alert(ctx, m.msg("download"), m.msg("error_missing_tweet_id"))
		m.cfg.Beacon.LogError("missing_tweet_id", nil)
		return
	}

	if button != nil {
		if inject.IsLoading(button) {
			return
		}
		m.cfg.Buttons.SetLoading(button, true)
		defer m.cfg.Buttons.SetLoading(button, false)
	}

	if m.cfg.History != nil {
		rec, err := m.cfg.History.GetByTweetID(ctx, tweetID)
		if err != nil {
			m.alert(ctx, m.msg("download"), m.msg("error_video_info", err.Error()))
			m.cfg.Beacon.LogError("history_lookup_failed", map[string]string{"tweet_id": tweetID})
			return
		}
		if rec != nil {
			open, err := m.cfg.Surface.Confirm(ctx, m.msg("download"), m.msg("already_downloaded", rec.Filename))
			if err != nil {
				m.logf("already-downloaded dialog failed: %v", err)
				return
			}
			if open && m.cfg.OpenRecord != nil {
				m.cfg.OpenRecord(*rec)
			}
			m.cfg.Beacon.LogEvent("download_deduplicated", map[string]string{"tweet_id": tweetID})
			return
		}
	}

	infos, err := m.cfg.Proxy.GetVideoInfo(ctx, tweetID, m.cfg.DomainHint)
	if err != nil {
		m.alert(ctx, m.msg("download"), m.msg("error_video_info", err.Error()))
		m.cfg.Beacon.LogError("video_info_failed", map[string]string{"tweet_id": tweetID})
		return
	}
	if len(infos) == 0 {
		m.alert(ctx, m.msg("download"), m.msg("no_video_found"))
		return
	}

	if len(infos) == 1 {
		if err := m.downloadOne(ctx, tweetID, infos[0]); err != nil {
			m.alert(ctx, m.msg("download"), m.msg("download_failed", videoFilename(tweetID, infos[0]), err.Error()))
		}
		return
	}

	options := make([]dialog.VideoOption, len(infos))
	for i, info := range infos {
		options[i] = dialog.VideoOption{
			Label:        fmt.Sprintf("Video %d (%s)", i+1, videoFilename(tweetID, info)),
			ThumbnailURL: info.ThumbnailURL,
		}
	}
	selected, ok, err := m.cfg.Surface.SelectVideos(ctx, m.msg("select_videos_title", strconv.Itoa(len(infos))), options)
	if err != nil {
		m.logf("video selection dialog failed: %v", err)
		return
	}
	if !ok {
		return
	}

	// Each selected item downloads on its own; one failure does not
	// abort the rest of the batch.
	for _, idx := range selected {
		if idx < 0 || idx >= len(infos) {
			continue
		}
		if err := m.downloadOne(ctx, tweetID, infos[idx]); err != nil {
			m.alert(ctx, m.msg("download"), m.msg("download_failed", videoFilename(tweetID, infos[idx]), err.Error()))
		}
	}
}

func (m *Mediator) downloadOne(ctx context.Context, tweetID string, info proxy.VideoInfo) error {
	filename := videoFilename(tweetID, info)
	downloadID, err := m.cfg.Downloads.Download(ctx, download.Request{URL: info.VideoURL, Filename: filename})
	if err != nil {
		m.cfg.Beacon.LogError("download_failed", map[string]string{"tweet_id": tweetID})
		return err
	}

	if m.cfg.History != nil {
		_, err := m.cfg.History.Add(ctx, history.Record{
			TweetID:      tweetID,
			Filename:     filename,
			DownloadDate: m.clock(),
			DownloadID:   downloadID,
			TweetURL:     info.TweetURL,
			TweetText:    info.TweetText,
		})
		if err != nil {
			// The file is already on its way; losing the history row
			// only weakens future deduplication.
			m.logf("failed to record download of %s: %v", tweetID, err)
		}
	}
	m.cfg.Beacon.LogEvent("video_download", map[string]string{"tweet_id": tweetID})
	return nil
}

// HandleRemark runs the remark dialog for username and refreshes the
// page state after a save or delete.
func (m *Mediator) HandleRemark(ctx context.Context, doc *html.Node, username string) {
	values, err := m.cfg.Settings.Load(ctx)
	if err != nil {
		m.alert(ctx, m.msg("remark_prompt_title", username), m.msg("error_save_remark", err.Error()))
		m.cfg.Beacon.LogError("settings_load_failed", nil)
		return
	}
	current, _ := values.Remark(username)

	value, ok, err := m.cfg.Surface.PromptRemark(ctx,
		m.msg("remark_prompt_title", username), m.msg("remark_prompt_placeholder"), current)
	if err != nil {
		m.logf("remark dialog failed: %v", err)
		return
	}
	if !ok {
		return
	}

	has, err := m.cfg.Settings.SaveRemark(ctx, username, value)
	if err != nil {
		m.alert(ctx, m.msg("remark_prompt_title", username), m.msg("error_save_remark", err.Error()))
		m.cfg.Beacon.LogError("remark_save_failed", map[string]string{"username": username})
		return
	}

	refreshed, err := m.cfg.Settings.Load(ctx)
	if err != nil {
		m.logf("failed to reload settings after remark save: %v", err)
		return
	}
	m.cfg.Annotations.RevertAll(doc)
	m.cfg.Annotations.ApplyAll(doc, refreshed.Remarks)
	m.cfg.Buttons.UpdateRemarkLabels(doc, username, has)

	event := "remark_saved"
	if !has {
		event = "remark_deleted"
	}
	m.cfg.Beacon.LogEvent(event, map[string]string{"username": username})
}

// HandleScreenshot captures a themed card for the tweet and offers to
// save, copy, or export it.
func (m *Mediator) HandleScreenshot(ctx context.Context, tweet *html.Node, opts shot.Options) {
	data := locator.Extract(tweet)
	if data == nil {
		m.alert(ctx, m.msg("screenshot_title"), m.msg("screenshot_failed", "tweet data is incomplete"))
		return
	}

	png, err := m.cfg.Shots.Capture(ctx, data, opts)
	if err != nil {
		m.alert(ctx, m.msg("screenshot_title"), m.msg("screenshot_failed", err.Error()))
		m.cfg.Beacon.LogError("screenshot_failed", map[string]string{"tweet_id": data.TweetID})
		return
	}

	choice, ok, err := m.cfg.Surface.Choose(ctx, m.msg("screenshot_title"), []string{
		m.msg("screenshot_save"),
		m.msg("screenshot_copy"),
		m.msg("screenshot_pdf"),
	})
	if err != nil {
		m.logf("screenshot dialog failed: %v", err)
		return
	}
	if !ok {
		return
	}

	values, err := m.cfg.Settings.Load(ctx)
	if err != nil {
		m.alert(ctx, m.msg("screenshot_title"), m.msg("screenshot_failed", err.Error()))
		return
	}
	base := filepath.Join(values.DownloadDirectory, "tweet-"+data.TweetID)

	var format string
	switch choice {
	case 0:
		format, err = "png", shot.SavePNG(png, base+".png")
	case 1:
		format, err = "clipboard", shot.CopyToClipboard(png)
	case 2:
		format, err = "pdf", shot.ExportPDF(png, base+".pdf")
	default:
		return
	}
	if err != nil {
		m.alert(ctx, m.msg("screenshot_title"), m.msg("screenshot_failed", err.Error()))
		m.cfg.Beacon.LogError("screenshot_export_failed", map[string]string{"format": format})
		return
	}
	m.cfg.Beacon.LogEvent("screenshot", map[string]string{"format": format, "tweet_id": data.TweetID})
}

func (m *Mediator) alert(ctx context.Context, title, message string) {
	if err := m.cfg.Surface.Alert(ctx, title, message); err != nil {
		m.logf("alert dialog failed: %v", err)
	}
}

func (m *Mediator) msg(key string, subs ...string) string {
	return m.cfg.Messages.GetMessage(key, subs...)
}

func (m *Mediator) logf(format string, args ...interface{}) {
	if m.log != nil {
		m.log.Warnf(format, args...)
	}
}

// videoFilename derives a stable local filename for one media item:
// tweet id plus media id, extension taken from the video URL path
// with mp4 as the fallback.
func videoFilename(tweetID string, info proxy.VideoInfo) string {
	ext := ".mp4"
	if u, err := url.Parse(info.VideoURL); err == nil {
		if e := path.Ext(u.Path); e != "" {
			ext = e
		}
	}
	if info.MediaID == "" {
		return tweetID + ext
	}
	return tweetID + "-" + info.MediaID + ext
}
