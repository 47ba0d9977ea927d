package overlay

import (
	"fmt"
	"html"
	"html/template"
	"io"
	"log/slog"
	"net/url"

	"github.com/microcosm-cc/bluemonday"

	"reply-overlay/internal/config"
	"reply-overlay/internal/media"
	"reply-overlay/internal/types"
	"reply-overlay/templates"
)

// DefaultOpenPath is the endpoint tiles link to; it pushes the post's intent
const DefaultOpenPath = "/html/open"

// Presenter renders overlays. It is safe for concurrent use.
type Presenter struct {
	tmpl     *template.Template
	policy   *bluemonday.Policy
	openPath string
	logger   *slog.Logger
}

// NewPresenter compiles the overlay template
func NewPresenter(openPath string) (*Presenter, error) {
	if openPath == "" {
		openPath = DefaultOpenPath
	}
	tmpl, err := template.New("overlay").Parse(templates.GetOverlayTemplate())
	if err != nil {
		return nil, fmt.Errorf("failed to compile overlay template: %w", err)
	}
	return &Presenter{
		tmpl:     tmpl,
		policy:   bluemonday.StrictPolicy(),
		openPath: openPath,
		logger:   slog.Default(),
	}, nil
}

type tileData struct {
	Href  string
	Src   string
	Alt   string
	Label string
	Kind  media.Kind
}

type overlayData struct {
	Mode           Mode
	Tiles          []tileData
	TileSize       int
	ContainerStyle template.CSS
	TileStyle      template.CSS
	ImageStyle     template.CSS
}

// Render writes the overlay for set. An empty set writes nothing.
// Thumbnails are resolved again here; a post that no longer resolves gets no tile.
func (p *Presenter) Render(w io.Writer, set types.MediaReplySet, palette config.Palette) error {
	if len(set) == 0 {
		return nil
	}

	tiles := make([]tileData, 0, len(set))
	for _, post := range set {
		thumb, ok := media.ExtractThumbnail(post)
		if !ok {
			continue
		}
		tiles = append(tiles, p.tile(post, thumb))
	}
	p.logger.Debug("rendering reply media overlay", "received", len(set), "rendered", len(tiles))
	if len(tiles) == 0 {
		return nil
	}

	plan := ComputeLayout(set)
	data := overlayData{
		Mode:           plan.Mode,
		Tiles:          tiles,
		TileSize:       TileSize,
		ContainerStyle: containerStyle(plan, palette),
		TileStyle: template.CSS(fmt.Sprintf(
			"display:block;width:%dpx;height:%dpx;border:1px solid %s;border-radius:4px;overflow:hidden",
			TileSize, TileSize, palette.BorderColor)),
		ImageStyle: "width:100%;height:100%;object-fit:cover",
	}
	return p.tmpl.ExecuteTemplate(w, "overlay", data)
}

func (p *Presenter) tile(post types.PostRecord, thumb media.Thumbnail) tileData {
	q := url.Values{"uri": {post.URI}, "handle": {post.Author.Handle}}
	label := "Open reply by @" + post.Author.Handle

	alt := html.UnescapeString(p.policy.Sanitize(thumb.Alt))
	if alt == "" {
		alt = fmt.Sprintf("%s reply by @%s", kindLabel(thumb.Kind), post.Author.Handle)
	}
	return tileData{
		Href:  p.openPath + "?" + q.Encode(),
		Src:   thumb.URL,
		Alt:   alt,
		Label: label,
		Kind:  thumb.Kind,
	}
}

func kindLabel(k media.Kind) string {
	if k == media.KindVideo {
		return "Video"
	}
	return "Image"
}

func containerStyle(plan Plan, palette config.Palette) template.CSS {
	backdrop := palette.Backdrop
	if backdrop == "" {
		backdrop = "rgba(0,0,0,0.6)"
	}
	style := fmt.Sprintf("position:absolute;bottom:%dpx;right:%dpx;background-color:%s;border-radius:%dpx;padding:%dpx;gap:%dpx;",
		ContainerInset, ContainerInset, backdrop, ContainerRadius, ContainerPad, TileGap)
	if plan.Mode == ModeGrid {
		style += fmt.Sprintf("display:grid;grid-template-columns:repeat(%d,%dpx);width:%dpx",
			plan.Columns, TileSize, plan.Width())
	} else {
		style += "display:flex;flex-direction:column"
	}
	return template.CSS(style)
}
