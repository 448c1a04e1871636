package handlers

import (
	"context"
	"net/http"

	"github.com/sirupsen/logrus"
)

func (h *Handler) Search(w http.ResponseWriter, r *http.Request) {
	results, err := h.catalog.SearchShows(r.Context(), r.URL.Query().Get("q"))
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, results)
}

// ShowDetails returns the show with its embedded bundle and records the
// visit in the recently visited list.
func (h *Handler) ShowDetails(w http.ResponseWriter, r *http.Request) {
	id, ok := showID(r)
	if !ok {
		writeMessage(w, http.StatusBadRequest, "invalid show id")
		return
	}

	show, err := h.catalog.ShowDetails(r.Context(), id)
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	h.recent.Record(r.Context(), *show)
	h.logger.WithFields(logrus.Fields{
		"show_id": show.ID,
		"name":    show.Name,
	}).Debug("Recorded visit")

	writeJSON(w, http.StatusOK, show)
}

func (h *Handler) Seasons(w http.ResponseWriter, r *http.Request) {
	serveList(h, w, r, h.catalog.Seasons)
}

func (h *Handler) Episodes(w http.ResponseWriter, r *http.Request) {
	serveList(h, w, r, h.catalog.Episodes)
}

func (h *Handler) Cast(w http.ResponseWriter, r *http.Request) {
	serveList(h, w, r, h.catalog.Cast)
}

func (h *Handler) Images(w http.ResponseWriter, r *http.Request) {
	serveList(h, w, r, h.catalog.Images)
}

func serveList[T any](h *Handler, w http.ResponseWriter, r *http.Request, fetch func(context.Context, int64) ([]T, error)) {
	id, ok := showID(r)
	if !ok {
		writeMessage(w, http.StatusBadRequest, "invalid show id")
		return
	}

	items, err := fetch(r.Context(), id)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	if items == nil {
		items = []T{}
	}
	writeJSON(w, http.StatusOK, items)
}
