// Package navigation describes where an overlay tile leads and how a host pushes it.
package navigation

import (
	"net/http"
	"net/url"
	"strings"
)

// ScreenPostThread is the thread view of a single post
const ScreenPostThread = "PostThread"

// DefaultWebBaseURL is the public web client used for hrefs
const DefaultWebBaseURL = "https://bsky.app"

// Params identifies the post a PostThread screen opens
type Params struct {
	AuthorHandle string `json:"authorHandle"`
	RecordKey    string `json:"recordKey"`
}

// Intent is a request to open a screen. Intents carry no state beyond their params.
type Intent struct {
	Screen string `json:"screen"`
	Params Params `json:"params"`
}

// Href renders the intent as a web URL under base
func (i Intent) Href(base string) string {
	if base == "" {
		base = DefaultWebBaseURL
	}
	return strings.TrimRight(base, "/") +
		"/profile/" + url.PathEscape(i.Params.AuthorHandle) +
		"/post/" + url.PathEscape(i.Params.RecordKey)
}

// Navigator pushes intents onto the host's navigation stack
type Navigator interface {
	Push(intent Intent)
}

// NavigatorFunc adapts a function to Navigator
type NavigatorFunc func(intent Intent)

func (f NavigatorFunc) Push(intent Intent) { f(intent) }

// Redirector is the HTTP navigator: pushing answers the request with a 303 to the intent's href.
type Redirector struct {
	BaseURL string
	w       http.ResponseWriter
	r       *http.Request
}

// NewRedirector binds a navigator to one request
func NewRedirector(baseURL string, w http.ResponseWriter, r *http.Request) *Redirector {
	return &Redirector{BaseURL: baseURL, w: w, r: r}
}

func (rd *Redirector) Push(intent Intent) {
	http.Redirect(rd.w, rd.r, intent.Href(rd.BaseURL), http.StatusSeeOther)
}
