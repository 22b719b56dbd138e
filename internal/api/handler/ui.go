package handler

import (
	"net/http"

	"github.com/iconidentify/inthistweet/pkg/ui"
)

// UIHandler serves the embedded web page.
type UIHandler struct{}

// NewUIHandler creates a new UI handler.
func NewUIHandler() *UIHandler {
	return &UIHandler{}
}

// Index handles GET /
func (h *UIHandler) Index(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.Header().Set("Cache-Control", "no-cache")
	w.Write(ui.IndexHTML)
}
