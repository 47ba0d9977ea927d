// Package types provides the shared data model for reply media collection.
package types

import (
	"encoding/json"
	"errors"

	"github.com/tidwall/gjson"
)

// ErrMalformedPost is returned when a post payload lacks its uri, author or author handle.
var ErrMalformedPost = errors.New("malformed post")

// Author is the author sub-record of a post
type Author struct {
	DID         string
	Handle      string
	DisplayName string
	Avatar      string
}

// PostRecord is a validated post. Construct it from untyped data with DecodePost only.
type PostRecord struct {
	URI       string
	CID       string
	Author    Author
	Text      string
	Embed     Embed
	IndexedAt string
}

// DecodePost validates a raw post view and returns a strict PostRecord.
// The post is rejected when uri, author or author.handle is missing, empty or of the wrong type.
func DecodePost(v gjson.Result) (PostRecord, bool) {
	if !v.IsObject() {
		return PostRecord{}, false
	}
	uri := v.Get("uri")
	if uri.Type != gjson.String || uri.Str == "" {
		return PostRecord{}, false
	}
	author := v.Get("author")
	if !author.IsObject() {
		return PostRecord{}, false
	}
	handle := author.Get("handle")
	if handle.Type != gjson.String || handle.Str == "" {
		return PostRecord{}, false
	}

	return PostRecord{
		URI: uri.Str,
		CID: stringAt(v, "cid"),
		Author: Author{
			DID:         stringAt(author, "did"),
			Handle:      handle.Str,
			DisplayName: stringAt(author, "displayName"),
			Avatar:      stringAt(author, "avatar"),
		},
		Text:      stringAt(v, "record.text"),
		Embed:     DecodeEmbed(v.Get("embed")),
		IndexedAt: stringAt(v, "indexedAt"),
	}, true
}

// stringAt returns the string at path, or "" when absent or not a string.
func stringAt(v gjson.Result, path string) string {
	r := v.Get(path)
	if r.Type != gjson.String {
		return ""
	}
	return r.Str
}

// postView mirrors the AppView post view so cached posts decode through DecodePost again
type postView struct {
	URI       string     `json:"uri"`
	CID       string     `json:"cid,omitempty"`
	Author    authorView `json:"author"`
	Record    recordView `json:"record"`
	Embed     Embed      `json:"embed,omitempty"`
	IndexedAt string     `json:"indexedAt,omitempty"`
}

type authorView struct {
	DID         string `json:"did,omitempty"`
	Handle      string `json:"handle"`
	DisplayName string `json:"displayName,omitempty"`
	Avatar      string `json:"avatar,omitempty"`
}

type recordView struct {
	Text string `json:"text"`
}

func (p PostRecord) MarshalJSON() ([]byte, error) {
	return json.Marshal(postView{
		URI: p.URI,
		CID: p.CID,
		Author: authorView{
			DID:         p.Author.DID,
			Handle:      p.Author.Handle,
			DisplayName: p.Author.DisplayName,
			Avatar:      p.Author.Avatar,
		},
		Record:    recordView{Text: p.Text},
		Embed:     p.Embed,
		IndexedAt: p.IndexedAt,
	})
}

func (p *PostRecord) UnmarshalJSON(data []byte) error {
	if !gjson.ValidBytes(data) {
		return ErrMalformedPost
	}
	post, ok := DecodePost(gjson.ParseBytes(data))
	if !ok {
		return ErrMalformedPost
	}
	*p = post
	return nil
}
