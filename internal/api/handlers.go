// SPDX-License-Identifier: MIT

package api

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/url"

	"github.com/go-chi/chi/v5"

	xlog "github.com/antoniofrignani/laravel4-settings/internal/log"
	"github.com/antoniofrignani/laravel4-settings/internal/record"
)

// SettingResponse is the body of GET /api/v1/settings/{key}.
type SettingResponse struct {
	Key   string `json:"key"`
	Value any    `json:"value"`
}

// PutRequest is the body of PUT /api/v1/settings/{key}.
type PutRequest struct {
	Value     json.RawMessage `json:"value"`
	Temporary bool            `json:"temporary"`
}

// ListResponse is the body of GET /api/v1/settings.
type ListResponse struct {
	Settings []record.Record `json:"settings"`
}

// ReloadResponse is the body of POST /api/v1/settings/reload.
type ReloadResponse struct {
	Collections []string `json:"collections"`
}

// missing is returned by Get when a key holds nothing.
var missing = new(struct{})

func keyParam(r *http.Request) string {
	raw := chi.URLParam(r, "key")
	if key, err := url.PathUnescape(raw); err == nil {
		return key
	}
	return raw
}

func (s *Server) handleGet(w http.ResponseWriter, r *http.Request) {
	key := keyParam(r)
	v, err := s.settings.Get(r.Context(), key, missing)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	if v == any(missing) {
		writeError(w, http.StatusNotFound, "not_found", key, xlog.RequestIDFromContext(r.Context()))
		return
	}
	writeJSON(w, http.StatusOK, SettingResponse{Key: key, Value: v})
}

func (s *Server) handlePut(w http.ResponseWriter, r *http.Request) {
	key := keyParam(r)
	reqID := xlog.RequestIDFromContext(r.Context())

	var body PutRequest
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	dec.DisallowUnknownFields()
	if err := dec.Decode(&body); err != nil {
		detail := err.Error()
		if errors.Is(err, io.EOF) {
			detail = "request body is empty"
		}
		writeError(w, http.StatusBadRequest, "invalid_body", detail, reqID)
		return
	}
	if len(body.Value) == 0 {
		writeError(w, http.StatusBadRequest, "invalid_body", "value is required", reqID)
		return
	}

	var value any
	if err := json.Unmarshal(body.Value, &value); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_body", err.Error(), reqID)
		return
	}

	if body.Temporary {
		err := s.settings.SetTemp(r.Context(), key, value)
		if err != nil {
			s.fail(w, r, err)
			return
		}
	} else if err := s.settings.Set(r.Context(), key, value); err != nil {
		s.fail(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleDelete(w http.ResponseWriter, r *http.Request) {
	if err := s.settings.Forget(r.Context(), keyParam(r)); err != nil {
		s.fail(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleList(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	recs, err := s.settings.Records(r.Context(), q.Get("namespace"), q.Get("group"))
	if err != nil {
		s.fail(w, r, err)
		return
	}
	if recs == nil {
		recs = []record.Record{}
	}
	writeJSON(w, http.StatusOK, ListResponse{Settings: recs})
}

func (s *Server) handleReload(w http.ResponseWriter, r *http.Request) {
	if err := s.settings.Load(r.Context()); err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, ReloadResponse{Collections: s.settings.Collections()})
}

// fail maps err to a response. Server faults are logged and their detail
// is withheld from the client.
func (s *Server) fail(w http.ResponseWriter, r *http.Request, err error) {
	reqID := xlog.RequestIDFromContext(r.Context())
	code, kind := statusFor(err)
	if code >= http.StatusInternalServerError {
		logger := xlog.WithContext(r.Context(), s.logger)
		logger.Error().
			Err(err).
			Str(xlog.FieldEvent, "api.request_failed").
			Str(xlog.FieldPath, r.URL.Path).
			Msg("settings request failed")
		writeError(w, code, kind, "", reqID)
		return
	}
	writeError(w, code, kind, err.Error(), reqID)
}
