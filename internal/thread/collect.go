package thread

import (
	"reply-overlay/internal/media"
	"reply-overlay/internal/types"
)

// MaxMediaReplies caps the size of a collected set
const MaxMediaReplies = 9

// CollectMediaReplies walks the thread items in response order and returns up to
// MaxMediaReplies media-bearing posts. The anchor, root-level items (depth 0 or absent),
// malformed items and already accepted URIs are skipped.
func CollectMediaReplies(resp *types.ThreadResponse, anchorURI string) types.MediaReplySet {
	set := types.MediaReplySet{}
	if resp == nil {
		return set
	}

	accepted := make(map[string]struct{})
	for _, item := range resp.Items {
		if len(set) >= MaxMediaReplies {
			break
		}
		post := item.Post
		if post == nil || post.URI == anchorURI {
			continue
		}
		// TODO: confirm getPostThreadV2 never assigns depth 0 to sibling replies; they are dropped here.
		if !item.Depth.Valid || item.Depth.ValueOrZero() == 0 {
			continue
		}
		if _, dup := accepted[post.URI]; dup {
			continue
		}
		if !media.HasMedia(*post) {
			continue
		}
		accepted[post.URI] = struct{}{}
		set = append(set, *post)
	}
	return set
}

// Members returns the distinct URIs of the descendants in the window (depth 1 and deeper),
// whether or not they carry media. A new reply under any of them may change the anchor's set.
func Members(resp *types.ThreadResponse, anchorURI string) []string {
	if resp == nil {
		return nil
	}
	seen := make(map[string]struct{}, len(resp.Items))
	var uris []string
	for _, item := range resp.Items {
		if !item.Depth.Valid || item.Depth.ValueOrZero() < 1 {
			continue
		}
		uri := item.URI
		if item.Post != nil && item.Post.URI != "" {
			uri = item.Post.URI
		}
		if uri == "" || uri == anchorURI {
			continue
		}
		if _, dup := seen[uri]; dup {
			continue
		}
		seen[uri] = struct{}{}
		uris = append(uris, uri)
	}
	return uris
}
