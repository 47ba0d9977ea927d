// Package overlay lays out and renders the reply media thumbnails shown over a post
// and turns a tapped thumbnail into a navigation intent.
package overlay

import "reply-overlay/internal/types"

// Mode is the arrangement of the tiles
type Mode string

const (
	ModeVertical Mode = "vertical"
	ModeGrid     Mode = "grid"
)

// Layout constants in CSS pixels
const (
	TileSize        = 50
	TileGap         = 4
	ContainerInset  = 8
	ContainerRadius = 8
	ContainerPad    = 4
	GridColumns     = 2

	// maxVertical is the largest set stacked in a single column
	maxVertical = 3
)

// Plan is the computed arrangement for a set
type Plan struct {
	Mode    Mode `json:"mode"`
	Columns int  `json:"columns"`
	Rows    int  `json:"rows"`
}

// ComputeLayout stacks up to three tiles vertically and puts four or more in a two-column grid
func ComputeLayout(set types.MediaReplySet) Plan {
	n := len(set)
	if n <= maxVertical {
		return Plan{Mode: ModeVertical, Columns: 1, Rows: n}
	}
	return Plan{Mode: ModeGrid, Columns: GridColumns, Rows: (n + GridColumns - 1) / GridColumns}
}

// Width is the grid container width: one tile plus its gap per column.
// Vertical stacks size to their content and report 0.
func (p Plan) Width() int {
	if p.Mode != ModeGrid {
		return 0
	}
	return p.Columns * (TileSize + TileGap)
}
