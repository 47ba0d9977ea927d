package overlay

import (
	"strings"

	"reply-overlay/internal/navigation"
	"reply-overlay/internal/types"
)

// RecordKey returns the last path segment of an at:// post URI
func RecordKey(uri string) string {
	return uri[strings.LastIndex(uri, "/")+1:]
}

// Activate maps a tapped tile to the thread screen of its post
func Activate(post types.PostRecord) navigation.Intent {
	return navigation.Intent{
		Screen: navigation.ScreenPostThread,
		Params: navigation.Params{
			AuthorHandle: post.Author.Handle,
			RecordKey:    RecordKey(post.URI),
		},
	}
}
