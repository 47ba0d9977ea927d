package templates

// Overlay template - the reply media thumbnails pinned to the corner of a post.
// Rendered standalone as an HTML fragment; the host page positions the post relatively.

// GetOverlayTemplate returns the overlay fragment template
func GetOverlayTemplate() string {
	return overlayTemplate
}

var overlayTemplate = `{{define "overlay"}}<div class="reply-media-overlay reply-media-{{.Mode}}" data-count="{{len .Tiles}}" style="{{.ContainerStyle}}">
{{range .Tiles}}  <a class="reply-media-tile" href="{{.Href}}" aria-label="{{.Label}}" data-kind="{{.Kind}}" style="{{$.TileStyle}}">
    <img src="{{.Src}}" alt="{{.Alt}}" width="{{$.TileSize}}" height="{{$.TileSize}}" loading="lazy" style="{{$.ImageStyle}}">
  </a>
{{end}}</div>{{end}}`
