package types

import (
	"encoding/json"

	"github.com/tidwall/gjson"
)

// Embed view lexicon types recognised by the classifier
const (
	EmbedImagesType          = "app.bsky.embed.images#view"
	EmbedVideoType           = "app.bsky.embed.video#view"
	EmbedRecordWithMediaType = "app.bsky.embed.recordWithMedia#view"
)

// Embed is the closed set of embed variants. A nil Embed means "other or none".
type Embed interface {
	embedType() string
}

// Image is one entry of an images embed
type Image struct {
	Thumb    string `json:"thumb"`
	Fullsize string `json:"fullsize,omitempty"`
	Alt      string `json:"alt"`
}

// ImagesEmbed is a direct image embed
type ImagesEmbed struct {
	Images []Image
}

// VideoEmbed is a direct video embed. Thumbnail is "" when the view carries none.
type VideoEmbed struct {
	Thumbnail string
	Playlist  string
	Alt       string
}

// RecordWithMediaEmbed is a quoted record with attached media.
// Media is an ImagesEmbed, a VideoEmbed or nil; it never nests further.
type RecordWithMediaEmbed struct {
	Media Embed
}

func (ImagesEmbed) embedType() string          { return EmbedImagesType }
func (VideoEmbed) embedType() string           { return EmbedVideoType }
func (RecordWithMediaEmbed) embedType() string { return EmbedRecordWithMediaType }

// DecodeEmbed maps a raw embed view onto its variant. Unknown shapes yield nil.
func DecodeEmbed(v gjson.Result) Embed {
	if !v.IsObject() {
		return nil
	}
	if stringAt(v, `\$type`) == EmbedRecordWithMediaType {
		return RecordWithMediaEmbed{Media: decodeMedia(v.Get("media"))}
	}
	return decodeMedia(v)
}

// decodeMedia decodes the leaf variants only
func decodeMedia(v gjson.Result) Embed {
	if !v.IsObject() {
		return nil
	}
	switch stringAt(v, `\$type`) {
	case EmbedImagesType:
		var images []Image
		for _, img := range v.Get("images").Array() {
			images = append(images, Image{
				Thumb:    stringAt(img, "thumb"),
				Fullsize: stringAt(img, "fullsize"),
				Alt:      stringAt(img, "alt"),
			})
		}
		return ImagesEmbed{Images: images}
	case EmbedVideoType:
		return VideoEmbed{
			Thumbnail: stringAt(v, "thumbnail"),
			Playlist:  stringAt(v, "playlist"),
			Alt:       stringAt(v, "alt"),
		}
	}
	return nil
}

func (e ImagesEmbed) MarshalJSON() ([]byte, error) {
	images := e.Images
	if images == nil {
		images = []Image{}
	}
	return json.Marshal(struct {
		Type   string  `json:"$type"`
		Images []Image `json:"images"`
	}{EmbedImagesType, images})
}

func (e VideoEmbed) MarshalJSON() ([]byte, error) {
	return json.Marshal(struct {
		Type      string `json:"$type"`
		Thumbnail string `json:"thumbnail,omitempty"`
		Playlist  string `json:"playlist,omitempty"`
		Alt       string `json:"alt,omitempty"`
	}{EmbedVideoType, e.Thumbnail, e.Playlist, e.Alt})
}

func (e RecordWithMediaEmbed) MarshalJSON() ([]byte, error) {
	return json.Marshal(struct {
		Type  string `json:"$type"`
		Media Embed  `json:"media,omitempty"`
	}{EmbedRecordWithMediaType, e.Media})
}
