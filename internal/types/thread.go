package types

import "github.com/guregu/null/v6"

// Sort is the reply ordering requested from the thread endpoint
type Sort string

// SortNewest orders replies newest first
const SortNewest Sort = "newest"

// ThreadQuery holds the traversal window for one thread fetch
type ThreadQuery struct {
	Anchor          string
	BranchingFactor int
	Below           int
	Sort            Sort
}

// ThreadItem is one node of a flattened thread.
// Post is nil when the nested value or its post is missing or malformed.
// Depth is invalid when the item carries no numeric depth.
type ThreadItem struct {
	URI   string
	Depth null.Int
	Post  *PostRecord
}

// ThreadResponse is a decoded thread payload, items in response order
type ThreadResponse struct {
	Items           []ThreadItem
	HasOtherReplies bool
}

// MediaReplySet is an ordered list of at most nine media-bearing posts with distinct URIs.
// It is immutable once produced.
type MediaReplySet []PostRecord

// URIs returns the post identifiers in order
func (s MediaReplySet) URIs() []string {
	uris := make([]string, len(s))
	for i, p := range s {
		uris[i] = p.URI
	}
	return uris
}
