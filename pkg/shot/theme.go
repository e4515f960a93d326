package shot

import (
	"regexp"
	"strconv"
)

// Theme selects the card's color scheme.
type Theme string

const (
	ThemeLight Theme = "light"
	ThemeDark  Theme = "dark"
	ThemeAuto  Theme = "auto"
)

var rgbRe = regexp.MustCompile(`rgba?\(\s*(\d+)\s*,\s*(\d+)\s*,\s*(\d+)`)

// Luminance computes perceived luminance of an RGB color, normalized
// to [0, 1].
func Luminance(r, g, b int) float64 {
	return (0.299*float64(r) + 0.587*float64(g) + 0.114*float64(b)) / 255
}

// ResolveTheme resolves ThemeAuto by sampling the page's computed
// background color: luminance below 0.5 reads as a dark page. If the
// background cannot be parsed, the OS-level dark-mode preference
// decides. Explicit themes pass through unchanged.
func ResolveTheme(theme Theme, pageBackground string, osPrefersDark bool) Theme {
	if theme != ThemeAuto {
		return theme
	}
	if m := rgbRe.FindStringSubmatch(pageBackground); m != nil {
		r, _ := strconv.Atoi(m[1])
		g, _ := strconv.Atoi(m[2])
		b, _ := strconv.Atoi(m[3])
		if Luminance(r, g, b) < 0.5 {
			return ThemeDark
		}
		return ThemeLight
	}
	if osPrefersDark {
		return ThemeDark
	}
	return ThemeLight
}
