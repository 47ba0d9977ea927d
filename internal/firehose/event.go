package firehose

import "strings"

const (
	kindCommit      = "commit"
	operationCreate = "create"
	postCollection  = "app.bsky.feed.post"
)

// Record embed types that carry media. Records use the bare lexicon ids, not the #view variants.
var mediaEmbedTypes = map[string]bool{
	"app.bsky.embed.images":          true,
	"app.bsky.embed.video":           true,
	"app.bsky.embed.recordWithMedia": true,
}

// event is one Jetstream message
type event struct {
	DID    string  `json:"did"`
	TimeUS int64   `json:"time_us"`
	Kind   string  `json:"kind"`
	Commit *commit `json:"commit,omitempty"`
}

type commit struct {
	Operation  string      `json:"operation"`
	Collection string      `json:"collection"`
	RKey       string      `json:"rkey"`
	Record     *postRecord `json:"record,omitempty"`
}

type postRecord struct {
	Reply *replyRef `json:"reply,omitempty"`
	Embed *embedRef `json:"embed,omitempty"`
}

type replyRef struct {
	Root   strongRef `json:"root"`
	Parent strongRef `json:"parent"`
}

type strongRef struct {
	URI string `json:"uri"`
}

type embedRef struct {
	Type string `json:"$type"`
}

// affectedAnchors returns the parent and root of a newly created reply that carries media.
// The invalidator widens each to every cached anchor whose window held it, which covers
// anchors further up the thread than the parent.
func (e *event) affectedAnchors() []string {
	if e.Kind != kindCommit || e.Commit == nil {
		return nil
	}
	c := e.Commit
	if c.Operation != operationCreate || c.Collection != postCollection || c.Record == nil {
		return nil
	}
	r := c.Record
	if r.Reply == nil || r.Embed == nil || !mediaEmbedTypes[r.Embed.Type] {
		return nil
	}

	var anchors []string
	for _, uri := range []string{r.Reply.Parent.URI, r.Reply.Root.URI} {
		if !strings.HasPrefix(uri, "at://") {
			continue
		}
		if len(anchors) == 1 && anchors[0] == uri {
			continue
		}
		anchors = append(anchors, uri)
	}
	return anchors
}
