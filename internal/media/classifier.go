// Package media classifies post embeds into overlay thumbnails.
package media

import "reply-overlay/internal/types"

// Kind is the media kind behind a thumbnail
type Kind string

const (
	KindImage Kind = "image"
	KindVideo Kind = "video"
)

// Thumbnail is the resolved overlay image for a post
type Thumbnail struct {
	URL  string
	Alt  string
	Kind Kind
}

// ExtractThumbnailURL returns the post's overlay thumbnail URL, or "" when the post carries no media.
func ExtractThumbnailURL(post types.PostRecord) string {
	thumb, _ := ExtractThumbnail(post)
	return thumb.URL
}

// ExtractThumbnail resolves the thumbnail of a post. First match wins:
// the first image of an images embed, the thumbnail of a video embed,
// then the same two rules applied once to the media of a record-with-media embed.
func ExtractThumbnail(post types.PostRecord) (Thumbnail, bool) {
	if e, ok := post.Embed.(types.RecordWithMediaEmbed); ok {
		return fromMedia(e.Media)
	}
	return fromMedia(post.Embed)
}

// HasMedia reports whether the post resolves to a thumbnail
func HasMedia(post types.PostRecord) bool {
	_, ok := ExtractThumbnail(post)
	return ok
}

func fromMedia(embed types.Embed) (Thumbnail, bool) {
	switch e := embed.(type) {
	case types.ImagesEmbed:
		if len(e.Images) > 0 && e.Images[0].Thumb != "" {
			return Thumbnail{URL: e.Images[0].Thumb, Alt: e.Images[0].Alt, Kind: KindImage}, true
		}
	case types.VideoEmbed:
		if e.Thumbnail != "" {
			return Thumbnail{URL: e.Thumbnail, Alt: e.Alt, Kind: KindVideo}, true
		}
	}
	return Thumbnail{}, false
}
