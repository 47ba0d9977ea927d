package thread

import (
	"errors"

	"github.com/guregu/null/v6"
	"github.com/tidwall/gjson"

	"reply-overlay/internal/types"
)

// ErrInvalidResponse is returned when the body is not a JSON object
var ErrInvalidResponse = errors.New("invalid thread response")

// Decode parses a raw thread response. A missing or non-array thread yields no items.
// Items whose value or post is malformed are kept with a nil Post so callers see response order.
func Decode(body []byte) (*types.ThreadResponse, error) {
	if !gjson.ValidBytes(body) {
		return nil, ErrInvalidResponse
	}
	root := gjson.ParseBytes(body)
	if !root.IsObject() {
		return nil, ErrInvalidResponse
	}

	resp := &types.ThreadResponse{
		HasOtherReplies: root.Get("hasOtherReplies").Type == gjson.True,
	}
	items := root.Get("thread")
	if !items.IsArray() {
		return resp, nil
	}
	items.ForEach(func(_, item gjson.Result) bool {
		resp.Items = append(resp.Items, decodeItem(item))
		return true
	})
	return resp, nil
}

func decodeItem(item gjson.Result) types.ThreadItem {
	var ti types.ThreadItem
	if !item.IsObject() {
		return ti
	}
	if uri := item.Get("uri"); uri.Type == gjson.String {
		ti.URI = uri.Str
	}
	if depth := item.Get("depth"); depth.Type == gjson.Number {
		ti.Depth = null.IntFrom(depth.Int())
	}
	value := item.Get("value")
	if !value.IsObject() {
		return ti
	}
	if post, ok := types.DecodePost(value.Get("post")); ok {
		ti.Post = &post
	}
	return ti
}
