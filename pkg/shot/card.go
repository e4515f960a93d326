package shot

import (
	"fmt"
	"html/template"
	"strings"

	"github.com/tweetlens/tweetlens/pkg/locator"
)

// cardTemplate renders the off-screen tweet card that gets rasterized.
// It is self-contained: no external stylesheets, so the rasterizer
// needs nothing but this markup.
var cardTemplate = template.Must(template.New("card").Parse(`<!DOCTYPE html>
<html>
<head>
<meta charset="utf-8">
<style>
  body { margin: 0; background: transparent; }
  .card {
    width: 560px;
    box-sizing: border-box;
    padding: 24px;
    border-radius: 16px;
    font-family: -apple-system, "Segoe UI", Roboto, sans-serif;
    background: {{.Background}};
    color: {{.Foreground}};
  }
  .header { display: flex; align-items: center; }
  .avatar { width: 48px; height: 48px; border-radius: 50%; }
  .names { margin-left: 12px; }
  .display { font-weight: 700; }
  .badge { color: #1d9bf0; margin-left: 4px; }
  .username { color: {{.Muted}}; }
  .retweet { color: {{.Muted}}; font-size: 13px; margin-bottom: 8px; }
  .content { margin-top: 16px; font-size: 17px; white-space: pre-wrap; }
  .images img { width: 100%; border-radius: 12px; margin-top: 12px; }
  .timestamp { margin-top: 16px; color: {{.Muted}}; font-size: 14px; }
  .watermark { margin-top: 12px; color: {{.Muted}}; font-size: 12px; text-align: right; }
</style>
</head>
<body>
<div class="card">
  {{if .Tweet.IsRetweet}}<div class="retweet">Reposted</div>{{end}}
  <div class="header">
    <img class="avatar" src="{{.Tweet.AvatarURL}}">
    <div class="names">
      <div class="display">{{.Tweet.DisplayName}}{{if .Tweet.IsVerified}}<span class="badge">&#10004;</span>{{end}}</div>
      <div class="username">@{{.Tweet.Username}}</div>
    </div>
  </div>
  <div class="content">{{.Tweet.Content}}</div>
  <div class="images">{{range .Tweet.ImageURLs}}<img src="{{.}}">{{end}}</div>
  <div class="timestamp">{{.Timestamp}}</div>
  {{if .Watermark}}<div class="watermark">{{.Watermark}}</div>{{end}}
</div>
</body>
</html>`))

type cardData struct {
	Tweet      *locator.TweetData
	Background string
	Foreground string
	Muted      string
	Timestamp  string
	Watermark  string
}

// RenderCard builds the themed HTML card for a tweet snapshot.
func RenderCard(data *locator.TweetData, theme Theme, watermark string) (string, error) {
	if data == nil {
		return "", fmt.Errorf("tweet data is required")
	}

	card := cardData{
		Tweet:      data,
		Background: "#ffffff",
		Foreground: "#0f1419",
		Muted:      "#536471",
		Timestamp:  data.Timestamp,
		Watermark:  watermark,
	}
	if theme == ThemeDark {
		card.Background = "#15202b"
		card.Foreground = "#f7f9f9"
		card.Muted = "#8b98a5"
	}
	if card.Timestamp == "" {
		card.Timestamp = data.Datetime
	}

	var b strings.Builder
	if err := cardTemplate.Execute(&b, card); err != nil {
		return "", fmt.Errorf("render tweet card: %w", err)
	}
	return b.String(), nil
}
