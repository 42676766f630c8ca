package export

import (
	"regexp"
	"strings"
)

// The raster engine cannot be assumed to parse every modern CSS color
// syntax. Each entry rewrites one unsupported function to an RGB fallback
// before capture. The table is data-driven so it can grow without touching
// the pipeline, and is unit tested independent of the engine.
type colorSubstitution struct {
	pattern     *regexp.Regexp
	replacement string
}

var colorSubstitutions = []colorSubstitution{
	{regexp.MustCompile(`oklch\([^)]*\)`), "rgb(0, 0, 0)"},
	{regexp.MustCompile(`oklab\([^)]*\)`), "rgb(0, 0, 0)"},
	{regexp.MustCompile(`\blab\([^)]*\)`), "rgb(0, 0, 0)"},
	{regexp.MustCompile(`\blch\([^)]*\)`), "rgb(0, 0, 0)"},
	{regexp.MustCompile(`color-mix\([^)]*\)`), "rgb(128, 128, 128)"},
	{regexp.MustCompile(`color\(display-p3[^)]*\)`), "rgb(0, 0, 0)"},
	{regexp.MustCompile(`color\(rec2020[^)]*\)`), "rgb(0, 0, 0)"},
}

// SanitizeColors replaces unsupported color functions in both inline style
// attributes and stylesheet rules with RGB equivalents.
func SanitizeColors(html string) string {
	for _, sub := range colorSubstitutions {
		html = sub.pattern.ReplaceAllString(html, sub.replacement)
	}
	return html
}

var (
	boxShadowRe = regexp.MustCompile(`(?i)box-shadow\s*:[^;"}]*;?`)
	transformRe = regexp.MustCompile(`(?i)transform\s*:\s*scale\([^)]*\)[^;"}]*;?`)
	printRootRe = regexp.MustCompile(`(?i)(id="print-root"[^>]*style=")([^"]*)(")`)
)

// NormalizeLayout strips shadows and preview-only scaling so the captured
// pixels match the page bounds exactly, and zeroes external margins on the
// print root.
func NormalizeLayout(html string) string {
	html = boxShadowRe.ReplaceAllString(html, "")
	html = transformRe.ReplaceAllString(html, "")
	html = printRootRe.ReplaceAllStringFunc(html, func(m string) string {
		parts := printRootRe.FindStringSubmatch(m)
		style := parts[2]
		if !strings.Contains(style, "margin") {
			style += ";margin:0"
		}
		return parts[1] + style + parts[3]
	})
	return html
}
