package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"

	"github.com/charmbracelet/log"

	"github.com/desertthunder/unison/internal/library"
	"github.com/desertthunder/unison/internal/merge"
	"github.com/desertthunder/unison/internal/shared"
)

const maxPageSize = 500

// PageItem is one merged item in a JSON page.
type PageItem[T any] struct {
	Index   int      `json:"index"`
	ID      string   `json:"id"`
	Sources []string `json:"sources"`
	Value   T        `json:"value"`
}

// Page is a window of a merged collection.
type Page[T any] struct {
	Offset int           `json:"offset"`
	Limit  int           `json:"limit"`
	Total  int           `json:"total"`
	Items  []PageItem[T] `json:"items"`
}

// LibraryHandler serves read-only windows of a [library.Library].
type LibraryHandler struct {
	lib      *library.Library
	pageSize int
	logger   *log.Logger
}

// NewLibraryHandler creates a handler; pageSize is the default limit of a page.
func NewLibraryHandler(lib *library.Library, pageSize int, logger *log.Logger) *LibraryHandler {
	if pageSize <= 0 {
		pageSize = 50
	}
	if logger == nil {
		logger = log.New(io.Discard)
	}
	return &LibraryHandler{lib: lib, pageSize: pageSize, logger: logger}
}

func (h *LibraryHandler) Routes() []string {
	return []string{"GET /tracks", "GET /albums", "GET /artists", "GET /playlists", "GET /sources"}
}

func (h *LibraryHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	switch r.URL.Path {
	case "/tracks":
		servePage(h, w, r, h.lib.Tracks(), h.lib.Index().Link)
	case "/albums":
		servePage(h, w, r, h.lib.Albums(), nil)
	case "/artists":
		servePage(h, w, r, h.lib.Artists(), nil)
	case "/playlists":
		servePage(h, w, r, h.lib.Playlists(), nil)
	case "/sources":
		h.writeJSON(w, http.StatusOK, map[string][]merge.SourceInfo{
			"tracks":    h.lib.Tracks().Sources(),
			"albums":    h.lib.Albums().Sources(),
			"artists":   h.lib.Artists().Sources(),
			"playlists": h.lib.Playlists().Sources(),
		})
	default:
		http.NotFound(w, r)
	}
}

// servePage writes one window of coll. When set, value rewrites each item before encoding.
func servePage[T any](h *LibraryHandler, w http.ResponseWriter, r *http.Request, coll *merge.Collection[T], value func(T) T) {
	limit, offset, err := h.window(r)
	if err != nil {
		h.writeError(w, http.StatusBadRequest, err)
		return
	}

	entries, err := coll.GetIndexed(r.Context(), limit, offset)
	if err != nil {
		status := http.StatusInternalServerError
		switch {
		case errors.Is(err, merge.ErrClosed):
			status = http.StatusServiceUnavailable
		case errors.Is(err, context.Canceled):
			return
		}
		h.logger.Error("page read failed", "collection", coll.Name(), "err", err)
		h.writeError(w, status, err)
		return
	}

	page := Page[T]{Offset: offset, Limit: limit, Total: coll.TotalCount(), Items: make([]PageItem[T], len(entries))}
	for i, e := range entries {
		v := e.Item.Value()
		if value != nil {
			v = value(v)
		}
		page.Items[i] = PageItem[T]{Index: e.Index, ID: e.Item.ID(), Sources: e.Item.Sources(), Value: v}
	}
	h.writeJSON(w, http.StatusOK, page)
}

func (h *LibraryHandler) window(r *http.Request) (limit, offset int, err error) {
	limit, offset = h.pageSize, 0
	q := r.URL.Query()
	if v := q.Get("limit"); v != "" {
		if limit, err = strconv.Atoi(v); err != nil || limit < 0 {
			return 0, 0, fmt.Errorf("%w: limit %q", shared.ErrInvalidArgument, v)
		}
	}
	if v := q.Get("offset"); v != "" {
		if offset, err = strconv.Atoi(v); err != nil || offset < 0 {
			return 0, 0, fmt.Errorf("%w: offset %q", shared.ErrInvalidArgument, v)
		}
	}
	return min(limit, maxPageSize), offset, nil
}

func (h *LibraryHandler) writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		h.logger.Warn("failed to write response", "err", err)
	}
}

func (h *LibraryHandler) writeError(w http.ResponseWriter, status int, err error) {
	h.writeJSON(w, status, map[string]string{"error": err.Error()})
}
