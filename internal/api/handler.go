// Package api serves datasets over HTTP: listing, SQL preview, fetch and the
// dimension-choices and dimension-latest helpers.
package api

import (
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"sort"

	"github.com/go-chi/chi/v5"

	"fireant/dataset"
	"fireant/internal/middleware"
	"fireant/internal/request"
	"fireant/query"
)

const maxBodyBytes = 1 << 20

// Catalog looks up datasets by name.
type Catalog interface {
	Get(name string) (*dataset.DataSet, bool)
	Names() []string
}

// Handler implements the /v1 endpoints.
type Handler struct {
	catalog Catalog
	logger  *slog.Logger
}

// NewHandler creates a handler over catalog. A nil logger uses slog.Default.
func NewHandler(catalog Catalog, logger *slog.Logger) *Handler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Handler{catalog: catalog, logger: logger}
}

// DatasetSummary describes one dataset in a listing.
type DatasetSummary struct {
	Name    string `json:"name"`
	Blended bool   `json:"blended"`
	Fields  int    `json:"fields"`
}

// FieldSummary describes one field.
type FieldSummary struct {
	Alias     string `json:"alias"`
	Label     string `json:"label"`
	Type      string `json:"type"`
	Aggregate bool   `json:"aggregate"`
	Extra     bool   `json:"extra,omitempty"`
}

func (h *Handler) listDatasets(w http.ResponseWriter, _ *http.Request) {
	names := h.catalog.Names()
	sort.Strings(names)
	out := make([]DatasetSummary, 0, len(names))
	for _, name := range names {
		ds, _ := h.catalog.Get(name)
		out = append(out, DatasetSummary{Name: name, Blended: ds.IsBlended(), Fields: len(ds.Fields())})
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"datasets": out})
}

func (h *Handler) listFields(w http.ResponseWriter, r *http.Request) {
	ds, err := h.dataset(r)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	out := make([]FieldSummary, 0, len(ds.Fields()))
	for _, f := range ds.Fields() {
		out = append(out, FieldSummary{
			Alias:     f.Alias,
			Label:     f.Label,
			Type:      f.DataType.String(),
			Aggregate: f.IsAggregate(),
			Extra:     f.Extra(),
		})
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"fields": out})
}

func (h *Handler) sql(w http.ResponseWriter, r *http.Request) {
	b, err := h.builder(r)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	plan, err := b.Plan()
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"sql": plan.SQL()})
}

func (h *Handler) fetch(w http.ResponseWriter, r *http.Request) {
	b, err := h.builder(r)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	res, err := b.Fetch(r.Context(), r.URL.Query().Get("hint"))
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

func (h *Handler) choices(w http.ResponseWriter, r *http.Request) {
	ds, f, err := h.field(r)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	cb := query.Choices(ds, f)
	for _, raw := range r.URL.Query()["filter"] {
		spec, err := request.ParseFilter(raw)
		if err != nil {
			h.fail(w, r, err)
			return
		}
		filter, err := spec.Build(ds)
		if err != nil {
			h.fail(w, r, err)
			return
		}
		cb = cb.Filter(filter)
	}
	choices, err := cb.Fetch(r.Context(), r.URL.Query().Get("hint"))
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"choices": choices})
}

func (h *Handler) latest(w http.ResponseWriter, r *http.Request) {
	ds, f, err := h.field(r)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	latest, err := query.Latest(ds, f).Fetch(r.Context())
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"latest": latest[f.Alias]})
}

func (h *Handler) dataset(r *http.Request) (*dataset.DataSet, error) {
	name := chi.URLParam(r, "name")
	ds, ok := h.catalog.Get(name)
	if !ok {
		return nil, &notFoundError{msg: fmt.Sprintf("dataset %q not found", name)}
	}
	return ds, nil
}

func (h *Handler) field(r *http.Request) (*dataset.DataSet, *dataset.Field, error) {
	ds, err := h.dataset(r)
	if err != nil {
		return nil, nil, err
	}
	alias := chi.URLParam(r, "alias")
	f, ok := ds.Field(alias)
	if !ok {
		return nil, nil, &notFoundError{msg: fmt.Sprintf("dataset %q has no field %q", ds.Name(), alias)}
	}
	return ds, f, nil
}

// builder decodes the request body and resolves it against the dataset.
func (h *Handler) builder(r *http.Request) (*query.Builder, error) {
	ds, err := h.dataset(r)
	if err != nil {
		return nil, err
	}
	var req request.Request
	dec := json.NewDecoder(io.LimitReader(r.Body, maxBodyBytes))
	dec.DisallowUnknownFields()
	if err := dec.Decode(&req); err != nil {
		return nil, &badRequestError{err: err}
	}
	return req.Builder(ds)
}

func (h *Handler) fail(w http.ResponseWriter, r *http.Request, err error) {
	code := httpStatusFromError(err)
	id := middleware.RequestIDFromContext(r.Context())
	if code >= http.StatusInternalServerError {
		h.logger.Error("request failed", "method", r.Method, "path", r.URL.Path, "request_id", id, "error", err)
	} else {
		h.logger.Debug("request rejected", "method", r.Method, "path", r.URL.Path, "request_id", id, "status", code, "error", err)
	}
	writeJSON(w, code, errorBody{Code: code, Message: err.Error(), RequestID: id})
}
