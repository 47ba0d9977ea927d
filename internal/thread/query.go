// Package thread decodes thread responses and collects media-bearing replies from them.
package thread

import "reply-overlay/internal/types"

// Traversal window for reply media lookups. Callers needing a different window build their own query.
const (
	BranchingFactor = 10
	Below           = 20
)

// Query returns the fixed thread query for an anchor post
func Query(anchorURI string) types.ThreadQuery {
	return types.ThreadQuery{
		Anchor:          anchorURI,
		BranchingFactor: BranchingFactor,
		Below:           Below,
		Sort:            types.SortNewest,
	}
}
