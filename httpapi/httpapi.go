// Package httpapi exposes the schema registry and validation over HTTP.
package httpapi

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	j "github.com/goccy/go-json"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"

	"github.com/reoring/skema"
	"github.com/reoring/skema/i18n"
)

// MaxBodyBytes bounds request bodies read for validation.
const MaxBodyBytes = 4 << 20

// Option configures the router.
type Option func(*Handler)

// WithLogger sets the logger for request failures.
func WithLogger(l zerolog.Logger) Option {
	return func(h *Handler) { h.logger = l }
}

// WithMetrics serves g at path.
func WithMetrics(path string, g prometheus.Gatherer) Option {
	return func(h *Handler) {
		h.metricsPath = path
		h.gatherer = g
	}
}

// Handler serves the schema API.
type Handler struct {
	validator   *skema.Validator
	logger      zerolog.Logger
	metricsPath string
	gatherer    prometheus.Gatherer
}

// NewRouter returns the schema API router:
//
//	GET  /schemas               registered keys
//	GET  /schemas/{id}          a schema document
//	POST /schemas/{id}/validate validate the JSON body
//
// Keys containing slashes must be path-escaped.
func NewRouter(v *skema.Validator, opts ...Option) http.Handler {
	h := &Handler{validator: v, logger: zerolog.Nop()}
	for _, o := range opts {
		o(h)
	}

	r := chi.NewRouter()
	r.Use(middleware.Recoverer)

	r.Get("/schemas", h.ListSchemas)
	r.Get("/schemas/{id}", h.GetSchema)
	r.Post("/schemas/{id}/validate", h.Validate)

	if h.gatherer != nil && h.metricsPath != "" {
		r.Handle(h.metricsPath, promhttp.HandlerFor(h.gatherer, promhttp.HandlerOpts{}))
	}
	return r
}

type schemaSummary struct {
	Key  string `json:"key"`
	ID   string `json:"id,omitempty"`
	File string `json:"file"`
}

// ListSchemas writes the registered schemas in key order.
func (h *Handler) ListSchemas(w http.ResponseWriter, r *http.Request) {
	reg := h.validator.Registry()
	out := make([]schemaSummary, 0, reg.Len())
	for _, key := range reg.Keys() {
		e, ok := reg.Lookup(key)
		if !ok {
			continue
		}
		out = append(out, schemaSummary{Key: key, ID: e.Document.ID, File: e.Document.FileName})
	}
	writeJSON(w, http.StatusOK, map[string]any{"schemas": out})
}

// GetSchema writes one schema document.
func (h *Handler) GetSchema(w http.ResponseWriter, r *http.Request) {
	key, err := schemaKey(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", err.Error())
		return
	}
	e, ok := h.validator.Registry().Lookup(key)
	if !ok {
		writeError(w, http.StatusNotFound, "not_found", fmt.Sprintf("schema %q not found", key))
		return
	}
	writeJSON(w, http.StatusOK, e.Document.Body)
}

// Validate checks the request body against a registered schema. It answers
// 200 with the (possibly rewritten) data or 422 with localized errors.
func (h *Handler) Validate(w http.ResponseWriter, r *http.Request) {
	key, err := schemaKey(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", err.Error())
		return
	}
	if _, ok := h.validator.Registry().Lookup(key); !ok {
		writeError(w, http.StatusNotFound, "not_found", fmt.Sprintf("schema %q not found", key))
		return
	}
	data, err := decodeBody(w, r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", err.Error())
		return
	}

	res := h.validator.TryValidateWith(skema.ID(key), &data)
	if !res.OK {
		h.logger.Debug().Str("schema", key).Int("errors", len(res.Errors)).Msg("Request body rejected")
		writeErrors(w, r, res.Errors)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"data": data})
}

type ctxKeyData struct{}

// DataFromContext returns the validated body stored by RequireValid.
func DataFromContext(ctx context.Context) (any, bool) {
	v, ok := ctx.Value(ctxKeyData{}).(*any)
	if !ok {
		return nil, false
	}
	return *v, true
}

// RequireValid rejects requests whose JSON body does not validate against
// ref. Accepted requests continue with the rewritten body, which is also
// available through DataFromContext.
func RequireValid(v *skema.Validator, ref skema.SchemaRef) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			data, err := decodeBody(w, r)
			if err != nil {
				writeError(w, http.StatusBadRequest, "bad_request", err.Error())
				return
			}
			res := v.TryValidateWith(ref, &data)
			if !res.OK {
				writeErrors(w, r, res.Errors)
				return
			}
			raw, err := j.Marshal(data)
			if err != nil {
				writeError(w, http.StatusInternalServerError, "internal", err.Error())
				return
			}
			r = r.WithContext(context.WithValue(r.Context(), ctxKeyData{}, &data))
			r.Body = io.NopCloser(bytes.NewReader(raw))
			r.ContentLength = int64(len(raw))
			next.ServeHTTP(w, r)
		})
	}
}

func schemaKey(r *http.Request) (string, error) {
	key, err := url.PathUnescape(chi.URLParam(r, "id"))
	if err != nil {
		return "", fmt.Errorf("schema id: %w", err)
	}
	return key, nil
}

func decodeBody(w http.ResponseWriter, r *http.Request) (any, error) {
	dec := j.NewDecoder(http.MaxBytesReader(w, r.Body, MaxBodyBytes))
	dec.UseNumber()
	var data any
	if err := dec.Decode(&data); err != nil {
		if errors.Is(err, io.EOF) {
			return nil, errors.New("request body is empty")
		}
		return nil, fmt.Errorf("decode body: %w", err)
	}
	return data, nil
}

type errorEntry struct {
	skema.ValidationError
	Localized string `json:"localized"`
}

func writeErrors(w http.ResponseWriter, r *http.Request, errs skema.Errors) {
	tr := i18n.FromAcceptLanguage(r.Header.Get("Accept-Language"))
	out := make([]errorEntry, len(errs))
	for i, e := range errs {
		out[i] = errorEntry{ValidationError: e, Localized: tr.Message(e.Keyword, messageData(e))}
	}
	status := http.StatusUnprocessableEntity
	if len(errs) > 0 && errs[0].Keyword == skema.KeywordInvalidArgument {
		status = http.StatusBadRequest
	}
	writeJSON(w, status, map[string]any{"errors": out})
}

func messageData(e skema.ValidationError) map[string]string {
	for _, k := range []string{"missingProperty", "additionalProperty"} {
		if p, ok := e.Params[k].(string); ok {
			return map[string]string{"property": p}
		}
	}
	return nil
}

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	j.NewEncoder(w).Encode(data)
}

func writeError(w http.ResponseWriter, status int, code, message string) {
	writeJSON(w, status, map[string]any{
		"error": map[string]string{
			"code":    code,
			"message": message,
		},
	})
}
