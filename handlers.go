package main

import (
	"bytes"
	"context"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"reply-overlay/internal/cache"
	"reply-overlay/internal/config"
	"reply-overlay/internal/metrics"
	"reply-overlay/internal/navigation"
	"reply-overlay/internal/overlay"
	"reply-overlay/internal/replymedia"
	"reply-overlay/internal/types"
	"reply-overlay/internal/util"
)

// Fragments change at most once per cache window
const fragmentMaxAge = 60

// maxBatchAnchors caps uri parameters on a batched lookup
const maxBatchAnchors = 25

// server holds the handler dependencies
type server struct {
	service     *replymedia.Service
	presenter   *overlay.Presenter
	webBaseURL  string
	backend     cache.CacheBackend
	backendType string
}

// replyMediaResponse is the JSON shape of one anchor's overlay
type replyMediaResponse struct {
	Anchor string              `json:"anchor"`
	Posts  types.MediaReplySet `json:"posts"`
	Layout overlay.Plan        `json:"layout"`
}

func newReplyMediaResponse(anchor string, set types.MediaReplySet) replyMediaResponse {
	if set == nil {
		set = types.MediaReplySet{}
	}
	return replyMediaResponse{Anchor: anchor, Posts: set, Layout: overlay.ComputeLayout(set)}
}

// routes builds the HTTP surface
func (s *server) routes() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/reply-media", getOnly(s.replyMediaHandler))
	mux.HandleFunc("/reply-media/qr", getOnly(s.qrHandler))
	mux.HandleFunc("/html/reply-media", securityHeaders(getOnly(s.htmlReplyMediaHandler)))
	mux.HandleFunc("/html/open", securityHeaders(getOnly(s.htmlOpenHandler)))
	mux.HandleFunc("/html/theme", securityHeaders(getOnly(themeHandler)))
	mux.HandleFunc("/health", s.healthHandler)
	mux.Handle("/metrics", metrics.Handler(s.backendType))
	return RequestLoggingMiddleware(mux)
}

// getOnly rejects every method but GET (and HEAD, which net/http answers from GET)
func getOnly(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet && r.Method != http.MethodHead {
			util.RespondMethodNotAllowed(w)
			return
		}
		next(w, r)
	}
}

// isPostURI accepts at:// URIs with an authority and a path
func isPostURI(uri string) bool {
	rest, ok := strings.CutPrefix(uri, "at://")
	return ok && strings.Contains(rest, "/") && !strings.HasPrefix(rest, "/")
}

// anchorsParam returns the validated uri parameters in request order
func anchorsParam(r *http.Request) ([]string, string) {
	uris := r.URL.Query()["uri"]
	if len(uris) == 0 {
		return nil, "Missing uri parameter"
	}
	if len(uris) > maxBatchAnchors {
		return nil, "Too many uri parameters (max " + strconv.Itoa(maxBatchAnchors) + ")"
	}
	for _, uri := range uris {
		if !isPostURI(uri) {
			return nil, "Invalid uri parameter: at:// post URI required"
		}
	}
	return uris, ""
}

// replyMediaHandler serves /reply-media?uri=... as JSON; repeated uri parameters return an array
func (s *server) replyMediaHandler(w http.ResponseWriter, r *http.Request) {
	anchors, problem := anchorsParam(r)
	if problem != "" {
		util.RespondBadRequest(w, problem)
		return
	}

	if len(anchors) == 1 {
		set := s.service.Get(r.Context(), anchors[0])
		util.WriteJSON(w, http.StatusOK, newReplyMediaResponse(anchors[0], set))
		return
	}

	sets := s.service.GetMany(r.Context(), anchors)
	resp := make([]replyMediaResponse, len(anchors))
	for i, anchor := range anchors {
		resp[i] = newReplyMediaResponse(anchor, sets[anchor])
	}
	util.WriteJSON(w, http.StatusOK, resp)
}

// htmlReplyMediaHandler serves the overlay fragment, or 204 when there is nothing to show
func (s *server) htmlReplyMediaHandler(w http.ResponseWriter, r *http.Request) {
	anchors, problem := anchorsParam(r)
	if problem != "" {
		util.RespondBadRequest(w, problem)
		return
	}
	if len(anchors) != 1 {
		util.RespondBadRequest(w, "Exactly one uri parameter required")
		return
	}

	set := s.service.Get(r.Context(), anchors[0])
	palette := config.GetThemeConfig().Palette(config.ThemeFromRequest(r))

	var buf bytes.Buffer
	if err := s.presenter.Render(&buf, set, palette); err != nil {
		LoggerFromContext(r.Context()).Error("failed to render overlay", "anchor", anchors[0], "error", err)
		util.RespondInternalError(w, "Failed to render overlay")
		return
	}
	if buf.Len() == 0 {
		util.WriteNoContent(w)
		return
	}

	util.SetHTMLHeaders(w, fragmentMaxAge)
	w.Write(buf.Bytes())
}

// intentParam builds the navigation intent for ?uri=...&handle=...
func intentParam(r *http.Request) (navigation.Intent, string) {
	uri := r.URL.Query().Get("uri")
	handle := r.URL.Query().Get("handle")
	if !isPostURI(uri) {
		return navigation.Intent{}, "Invalid uri parameter: at:// post URI required"
	}
	if handle == "" {
		return navigation.Intent{}, "Missing handle parameter"
	}
	post := types.PostRecord{URI: uri, Author: types.Author{Handle: handle}}
	return overlay.Activate(post), ""
}

// htmlOpenHandler activates a tile: the redirect is the navigation push
func (s *server) htmlOpenHandler(w http.ResponseWriter, r *http.Request) {
	intent, problem := intentParam(r)
	if problem != "" {
		util.RespondBadRequest(w, problem)
		return
	}
	navigation.NewRedirector(s.webBaseURL, w, r).Push(intent)
}

// qrHandler serves a PNG share code for a tile's target; ?size= is clamped to 64..1024.
// ?format=dataurl answers JSON with the target href and the code as a data URL.
func (s *server) qrHandler(w http.ResponseWriter, r *http.Request) {
	intent, problem := intentParam(r)
	if problem != "" {
		util.RespondBadRequest(w, problem)
		return
	}

	size := navigation.QRSize
	if v, err := strconv.Atoi(r.URL.Query().Get("size")); err == nil {
		size = min(max(v, 64), 1024)
	}

	switch format := r.URL.Query().Get("format"); format {
	case "", "png":
		png, err := navigation.QRCode(intent, s.webBaseURL, size)
		if err != nil {
			LoggerFromContext(r.Context()).Error("failed to generate QR code", "error", err)
			util.RespondInternalError(w, "Failed to generate QR code")
			return
		}
		w.Header().Set("Content-Type", "image/png")
		w.Header().Set("Cache-Control", "max-age=86400")
		w.Write(png)
	case "dataurl":
		dataURL, err := navigation.QRCodeDataURL(intent, s.webBaseURL, size)
		if err != nil {
			LoggerFromContext(r.Context()).Error("failed to generate QR code", "error", err)
			util.RespondInternalError(w, "Failed to generate QR code")
			return
		}
		w.Header().Set("Cache-Control", "max-age=86400")
		util.WriteJSON(w, http.StatusOK, qrResponse{Href: intent.Href(s.webBaseURL), DataURL: dataURL})
	default:
		util.RespondBadRequest(w, "Unknown format "+strconv.Quote(format))
	}
}

type qrResponse struct {
	Href    string `json:"href"`
	DataURL string `json:"dataUrl"`
}

// healthHandler reports 503 while the cache backend is unreachable
func (s *server) healthHandler(w http.ResponseWriter, r *http.Request) {
	status, code := "ok", http.StatusOK
	if s.backend != nil {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()
		if err := s.backend.Ping(ctx); err != nil {
			slog.Warn("health check: cache unreachable", "cache", s.backendType, "error", err)
			status, code = "degraded", http.StatusServiceUnavailable
		}
	}
	util.WriteJSON(w, code, map[string]string{"status": status, "cache": s.backendType})
}
