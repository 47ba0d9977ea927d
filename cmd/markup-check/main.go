// Overlay Markup Validator
// Renders the overlay for every set size and theme and checks the resulting markup
package main

import (
	"bytes"
	"flag"
	"fmt"
	"os"
	"strings"

	"golang.org/x/net/html"

	"reply-overlay/internal/config"
	"reply-overlay/internal/overlay"
	"reply-overlay/internal/types"
)

// Validation categories
const (
	CategoryHTML          = "HTML"
	CategoryAccessibility = "Accessibility"
	CategoryLayout        = "Layout"
)

// CheckResult represents a single validation check result
type CheckResult struct {
	Category string
	Rule     string
	Passed   bool
	Message  string
	Fixture  string
}

var (
	themePath string
	verbose   bool
)

func main() {
	flag.StringVar(&themePath, "theme", "config/theme.json", "Theme config to render with")
	flag.BoolVar(&verbose, "v", false, "Verbose output")
	flag.Parse()

	fmt.Printf("Overlay Markup Validator\n")
	fmt.Printf("========================\n")

	presenter, err := overlay.NewPresenter(overlay.DefaultOpenPath)
	if err != nil {
		fmt.Printf("Error: %v\n", err)
		os.Exit(1)
	}
	themes := config.LoadThemeConfig(themePath)

	var results []CheckResult
	for _, theme := range []string{config.ThemeLight, config.ThemeDark} {
		for n := 0; n <= 9; n++ {
			name := fmt.Sprintf("%s/%d", theme, n)
			var buf bytes.Buffer
			if err := presenter.Render(&buf, fixture(n), themes.Palette(theme)); err != nil {
				results = append(results, CheckResult{CategoryHTML, "Renders", false, err.Error(), name})
				continue
			}
			results = append(results, checkFragment(name, n, buf.String())...)
		}
	}

	failed := 0
	for _, r := range results {
		if !r.Passed {
			failed++
			fmt.Printf("  FAIL [%s] %s: %s (%s)\n", r.Category, r.Fixture, r.Rule, r.Message)
		} else if verbose {
			fmt.Printf("  ok   [%s] %s: %s\n", r.Category, r.Fixture, r.Rule)
		}
	}
	fmt.Printf("\n%d checks, %d failed\n", len(results), failed)
	if failed > 0 {
		os.Exit(1)
	}
}

// fixture builds n media replies alternating image and video embeds
func fixture(n int) types.MediaReplySet {
	set := make(types.MediaReplySet, n)
	for i := range set {
		post := types.PostRecord{
			URI:    fmt.Sprintf("at://did:plc:fixture%d/app.bsky.feed.post/rk%d", i, i),
			Author: types.Author{Handle: fmt.Sprintf("fixture%d.test", i)},
		}
		if i%2 == 0 {
			post.Embed = types.ImagesEmbed{Images: []types.Image{{Thumb: fmt.Sprintf("https://cdn.test/%d.jpg", i), Alt: "fixture <b>image</b>"}}}
		} else {
			post.Embed = types.VideoEmbed{Thumbnail: fmt.Sprintf("https://video.test/%d.jpg", i)}
		}
		set[i] = post
	}
	return set
}

func checkFragment(name string, n int, fragment string) []CheckResult {
	check := func(category, rule string, passed bool, format string, args ...any) CheckResult {
		return CheckResult{category, rule, passed, fmt.Sprintf(format, args...), name}
	}

	if n == 0 {
		return []CheckResult{check(CategoryHTML, "Empty set renders nothing", fragment == "", "got %d bytes", len(fragment))}
	}

	doc, err := html.Parse(strings.NewReader(fragment))
	if err != nil {
		return []CheckResult{check(CategoryHTML, "Valid HTML structure", false, "%v", err)}
	}

	var containers, links, images []*html.Node
	var walk func(*html.Node)
	walk = func(node *html.Node) {
		if node.Type == html.ElementNode {
			switch node.Data {
			case "div":
				containers = append(containers, node)
			case "a":
				links = append(links, node)
			case "img":
				images = append(images, node)
			}
		}
		for c := node.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(doc)

	results := []CheckResult{
		check(CategoryHTML, "Single container", len(containers) == 1, "%d containers", len(containers)),
		check(CategoryHTML, "One tile per reply", len(links) == n && len(images) == n, "%d links, %d images", len(links), len(images)),
	}
	for _, a := range links {
		results = append(results,
			check(CategoryHTML, "Non-empty href", attr(a, "href") != "", "tile without href"),
			check(CategoryAccessibility, "Link label", attr(a, "aria-label") != "", "tile without aria-label"))
	}
	for _, img := range images {
		alt := attr(img, "alt")
		results = append(results,
			check(CategoryHTML, "Non-empty src", attr(img, "src") != "", "image without src"),
			check(CategoryAccessibility, "Alt text", alt != "" && !strings.Contains(alt, "<"), "alt %q", alt))
	}

	if len(containers) == 1 {
		plan := overlay.ComputeLayout(fixture(n))
		style := attr(containers[0], "style")
		wantWidth := plan.Mode != overlay.ModeGrid || strings.Contains(style, fmt.Sprintf("width:%dpx", plan.Width()))
		results = append(results,
			check(CategoryLayout, "Layout mode", strings.Contains(attr(containers[0], "class"), "reply-media-"+string(plan.Mode)), "class %q", attr(containers[0], "class")),
			check(CategoryLayout, "Grid width", wantWidth, "style %q", style))
	}
	return results
}

func attr(n *html.Node, key string) string {
	for _, a := range n.Attr {
		if a.Key == key {
			return a.Val
		}
	}
	return ""
}
