package shot

import (
	"context"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tweetlens/tweetlens/pkg/locator"
)

func sampleTweet() *locator.TweetData {
	return &locator.TweetData{
		TweetID:     "998877",
		DisplayName: "Jane",
		Username:    "jane",
		AvatarURL:   "https://img.example/jane.jpg",
		Content:     "hello world",
		Timestamp:   "May 1",
		IsVerified:  true,
		ImageURLs:   []string{"https://img.example/p1.jpg"},
		TweetURL:    "https://x.com/jane/status/998877",
	}
}

func TestResolveTheme(t *testing.T) {
	cases := []struct {
		name       string
		theme      Theme
		background string
		osDark     bool
		want       Theme
	}{
		{"explicit light passes through", ThemeLight, "rgb(0, 0, 0)", true, ThemeLight},
		{"explicit dark passes through", ThemeDark, "rgb(255, 255, 255)", false, ThemeDark},
		{"auto black background", ThemeAuto, "rgb(0, 0, 0)", false, ThemeDark},
		{"auto white background", ThemeAuto, "rgb(255, 255, 255)", true, ThemeLight},
		{"auto dim background", ThemeAuto, "rgb(21, 32, 43)", false, ThemeDark},
		{"auto rgba", ThemeAuto, "rgba(255, 255, 255, 1)", true, ThemeLight},
		{"auto unparsable falls back to OS dark", ThemeAuto, "transparent", true, ThemeDark},
		{"auto unparsable falls back to OS light", ThemeAuto, "", false, ThemeLight},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, ResolveTheme(tc.theme, tc.background, tc.osDark))
		})
	}
}

func TestLuminance(t *testing.T) {
	assert.InDelta(t, 0.0, Luminance(0, 0, 0), 1e-9)
	assert.InDelta(t, 1.0, Luminance(255, 255, 255), 1e-9)
	assert.Less(t, Luminance(21, 32, 43), 0.5)
}

func TestRenderCard(t *testing.T) {
	card, err := RenderCard(sampleTweet(), ThemeLight, "via tweetlens")
	require.NoError(t, err)

	assert.Contains(t, card, "Jane")
	assert.Contains(t, card, "@jane")
	assert.Contains(t, card, "hello world")
	assert.Contains(t, card, "https://img.example/p1.jpg")
	assert.Contains(t, card, "via tweetlens")
	assert.Contains(t, card, "#ffffff")
}

func TestRenderCardDarkTheme(t *testing.T) {
	card, err := RenderCard(sampleTweet(), ThemeDark, "")
	require.NoError(t, err)
	assert.Contains(t, card, "#15202b")
	assert.NotContains(t, card, "watermark\">")
}

func TestRenderCardEscapesContent(t *testing.T) {
	data := sampleTweet()
	data.Content = `<script>alert("x")</script>`
	card, err := RenderCard(data, ThemeLight, "")
	require.NoError(t, err)
	assert.NotContains(t, card, "<script>alert")
}

func TestRenderCardNilData(t *testing.T) {
	_, err := RenderCard(nil, ThemeLight, "")
	assert.Error(t, err)
}

// stubRasterizer records the HTML it was asked to draw.
type stubRasterizer struct {
	mu    sync.Mutex
	calls []string
}

func (s *stubRasterizer) Rasterize(_ context.Context, html string, _ int) ([]byte, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls = append(s.calls, html)
	return []byte("png"), nil
}

func (s *stubRasterizer) count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.calls)
}

func TestCapture(t *testing.T) {
	raster := &stubRasterizer{}
	gen := NewGenerator(raster)

	png, err := gen.Capture(context.Background(), sampleTweet(), Options{Theme: ThemeLight})
	require.NoError(t, err)
	assert.Equal(t, []byte("png"), png)
	require.Equal(t, 1, raster.count())
	assert.True(t, strings.Contains(raster.calls[0], "hello world"))
}

func TestPreviewerDebounces(t *testing.T) {
	raster := &stubRasterizer{}
	gen := NewGenerator(raster)

	results := make(chan []byte, 4)
	previewer := NewPreviewer(gen, 30*time.Millisecond, func(png []byte, err error) {
		require.NoError(t, err)
		results <- png
	})

	// Rapid option edits inside one debounce window collapse into a
	// single rasterization.
	ctx := context.Background()
	for _, mark := range []string{"a", "ab", "abc"} {
		previewer.Request(ctx, sampleTweet(), Options{Theme: ThemeLight, Watermark: mark})
		time.Sleep(5 * time.Millisecond)
	}

	select {
	case <-results:
	case <-time.After(time.Second):
		t.Fatal("preview never delivered")
	}
	assert.Equal(t, 1, raster.count())
	assert.Contains(t, raster.calls[0], "abc", "only the last request rasterizes")
}

func TestPreviewerStop(t *testing.T) {
	raster := &stubRasterizer{}
	previewer := NewPreviewer(NewGenerator(raster), 20*time.Millisecond, func([]byte, error) {
		t.Error("stopped preview must not deliver")
	})

	previewer.Request(context.Background(), sampleTweet(), Options{Theme: ThemeLight})
	previewer.Stop()
	time.Sleep(60 * time.Millisecond)
	assert.Equal(t, 0, raster.count())
}
