package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/sirupsen/logrus"

	"tvscout/internal/models"
	"tvscout/internal/recent"
	"tvscout/internal/services"
	"tvscout/internal/validate"
)

// Catalog is the part of services.Client the handlers use.
type Catalog interface {
	SearchShows(ctx context.Context, query string) ([]models.SearchResult, error)
	ShowDetails(ctx context.Context, showID int64) (*models.Show, error)
	Seasons(ctx context.Context, showID int64) ([]models.Season, error)
	Episodes(ctx context.Context, showID int64) ([]models.Episode, error)
	Cast(ctx context.Context, showID int64) ([]models.CastMember, error)
	Images(ctx context.Context, showID int64) ([]models.ImageAsset, error)
}

type Handler struct {
	catalog Catalog
	recent  *recent.Cache
	logger  *logrus.Logger
}

func New(catalog Catalog, recentCache *recent.Cache, logger *logrus.Logger) *Handler {
	if logger == nil {
		logger = logrus.New()
		logger.SetOutput(io.Discard)
	}
	return &Handler{catalog: catalog, recent: recentCache, logger: logger}
}

type errorResponse struct {
	Error string `json:"error"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeMessage(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, errorResponse{Error: msg})
}

// writeError maps catalog and validation failures to HTTP statuses.
func (h *Handler) writeError(w http.ResponseWriter, r *http.Request, err error) {
	var statusErr *services.StatusError

	switch {
	case errors.Is(err, services.ErrEmptyQuery):
		writeMessage(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, services.ErrShowNotFound):
		writeMessage(w, http.StatusNotFound, services.ErrShowNotFound.Error())
	case errors.Is(err, validate.ErrInvalid):
		writeMessage(w, http.StatusBadGateway, validate.ErrInvalid.Error())
	case errors.As(err, &statusErr):
		writeMessage(w, http.StatusBadGateway, "catalog returned an error")
	case errors.Is(err, context.Canceled):
		// client went away
	default:
		h.logger.WithError(err).WithField("path", r.URL.Path).Error("Catalog request failed")
		writeMessage(w, http.StatusBadGateway, "failed to load from catalog")
	}
}

func showID(r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil || id <= 0 {
		return 0, false
	}
	return id, true
}
