// Package handler provides the admin API HTTP handlers.
package handler

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"

	"github.com/asklokesh/FireLater-sub015/pkg/apierror"
	"github.com/asklokesh/FireLater-sub015/pkg/domain/shared"
	"github.com/asklokesh/FireLater-sub015/pkg/logger"
)

// maxBodyBytes bounds request bodies; admin payloads are small.
const maxBodyBytes = 1 << 20

func respondJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if v != nil {
		_ = json.NewEncoder(w).Encode(v)
	}
}

func respondError(w http.ResponseWriter, r *http.Request, log *logger.Logger, err error) {
	apiErr := apierror.FromDomain(err)
	if apiErr.Status >= http.StatusInternalServerError {
		log.Error("request failed", "path", r.URL.Path, "error", err)
	}
	apiErr.WriteJSON(w, chimiddleware.GetReqID(r.Context()))
}

func decodeJSON(r *http.Request, v any) error {
	r.Body = http.MaxBytesReader(nil, r.Body, maxBodyBytes)
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		if errors.Is(err, io.EOF) {
			return apierror.BadRequest("request body is required")
		}
		return apierror.BadRequest("invalid JSON body: " + err.Error())
	}
	return nil
}

func idParam(r *http.Request, name string) (shared.ID, error) {
	id, err := shared.IDFromString(chi.URLParam(r, name))
	if err != nil {
		return shared.ID{}, apierror.BadRequest("invalid " + name)
	}
	return id, nil
}

func tenantParam(r *http.Request) string {
	return chi.URLParam(r, "tenant")
}
