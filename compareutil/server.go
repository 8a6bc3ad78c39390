/*
Copyright © 2026 the gridcompare authors.
This file is part of gridcompare.

gridcompare is free software: you can redistribute it and/or modify
it under the terms of the GNU General Public License as published by
the Free Software Foundation, either version 3 of the License, or
(at your option) any later version.

gridcompare is distributed in the hope that it will be useful,
but WITHOUT ANY WARRANTY; without even the implied warranty of
MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
GNU General Public License for more details.

You should have received a copy of the GNU General Public License
along with gridcompare.  If not, see <http://www.gnu.org/licenses/>.*/

package compareutil

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"path/filepath"
	"strings"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/sirupsen/logrus"
	"github.com/spatialmodel/gridcompare"
	"github.com/spatialmodel/gridcompare/cloud"
)

// PreviewPath is the URL path under which previews are served.
const PreviewPath = "/previews/"

// CompareRequest is the body of a comparison request. Paths are relative
// to the data directory of the server.
type CompareRequest struct {
	Scenario1  string `json:"scenario1"`
	Scenario2  string `json:"scenario2"`
	Parcels    string `json:"parcels,omitempty"`
	IDProperty string `json:"id_property,omitempty"`
}

// Server answers comparison requests over HTTP.
type Server struct {
	Comparer *gridcompare.Comparer
	Store    *cloud.BlobStore
	Log      logrus.FieldLogger

	// DataDir is the directory below which request paths are resolved.
	DataDir string

	// IDProperty is the default parcel identifier attribute.
	IDProperty string

	router *mux.Router
}

// NewServer creates a server configured by cfg whose metrics are
// registered with reg.
func NewServer(ctx context.Context, cfg *Cfg, log logrus.FieldLogger, reg *prometheus.Registry) (*Server, error) {
	store, err := cloud.NewBlobStore(ctx, cfg.expand("PreviewBucket"), PreviewPath)
	if err != nil {
		return nil, err
	}
	c, err := cfg.comparer(log, store, gridcompare.NewMetrics(reg))
	if err != nil {
		store.Close()
		return nil, err
	}
	dataDir, err := filepath.Abs(cfg.expand("DataDir"))
	if err != nil {
		store.Close()
		return nil, err
	}
	s := &Server{
		Comparer:   c,
		Store:      store,
		Log:        log,
		DataDir:    dataDir,
		IDProperty: cfg.GetString("IDProperty"),
	}
	s.routes(promhttp.HandlerFor(reg, promhttp.HandlerOpts{}))
	return s, nil
}

func (s *Server) routes(metrics http.Handler) {
	r := mux.NewRouter()
	r.HandleFunc("/health", s.health).Methods(http.MethodGet)
	r.Handle("/metrics", metrics).Methods(http.MethodGet)
	r.HandleFunc("/compare", s.compare).Methods(http.MethodPost)
	r.HandleFunc(PreviewPath+"{key:.+}", s.preview).Methods(http.MethodGet)
	r.HandleFunc(PreviewPath+"{request}", s.deletePreviews).Methods(http.MethodDelete)
	s.router = r
}

// ServeHTTP implements http.Handler.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

// Close releases the preview store.
func (s *Server) Close() error {
	return s.Store.Close()
}

type errorResponse struct {
	Error string `json:"error"`
}

func (s *Server) sendJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		s.Log.WithError(err).Error("writing response")
	}
}

func (s *Server) sendError(w http.ResponseWriter, status int, err error) {
	s.Log.WithError(err).WithField("status", status).Warn("request failed")
	s.sendJSON(w, status, errorResponse{Error: err.Error()})
}

func (s *Server) health(w http.ResponseWriter, r *http.Request) {
	s.sendJSON(w, http.StatusOK, map[string]string{"status": "ok", "version": gridcompare.Version})
}

// resolve returns the location of the request path p below the data
// directory.
func (s *Server) resolve(p string) (string, error) {
	if p == "" {
		return "", nil
	}
	if filepath.IsAbs(p) || cloud.IsBucketURL(p) {
		return "", fmt.Errorf("path %q must be relative to the data directory", p)
	}
	full := filepath.Join(s.DataDir, filepath.FromSlash(p))
	if full != s.DataDir && !strings.HasPrefix(full, s.DataDir+string(filepath.Separator)) {
		return "", fmt.Errorf("path %q is outside of the data directory", p)
	}
	return full, nil
}

func (s *Server) compare(w http.ResponseWriter, r *http.Request) {
	var req CompareRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.sendError(w, http.StatusBadRequest, fmt.Errorf("invalid request body: %v", err))
		return
	}
	if req.Scenario1 == "" || req.Scenario2 == "" {
		s.sendError(w, http.StatusBadRequest, errors.New("scenario1 and scenario2 are required"))
		return
	}
	var paths [3]string
	for i, p := range []string{req.Scenario1, req.Scenario2, req.Parcels} {
		var err error
		if paths[i], err = s.resolve(p); err != nil {
			s.sendError(w, http.StatusBadRequest, err)
			return
		}
	}
	idProperty := req.IDProperty
	if idProperty == "" {
		idProperty = s.IDProperty
	}

	ctx := r.Context()
	inputs, err := readInputs(ctx, paths[0], paths[1], s.Comparer.Variables)
	if err != nil {
		s.sendError(w, http.StatusInternalServerError, err)
		return
	}
	parcels, warnings, err := loadParcels(ctx, paths[2], idProperty, s.Comparer.Projector)
	if err != nil {
		s.sendError(w, http.StatusBadRequest, err)
		return
	}
	res, err := s.Comparer.Compare(ctx, &gridcompare.Request{Inputs: inputs, Parcels: parcels, Warnings: warnings})
	if err != nil {
		s.sendError(w, http.StatusInternalServerError, err)
		return
	}
	s.sendJSON(w, http.StatusOK, res)
}

func (s *Server) preview(w http.ResponseWriter, r *http.Request) {
	key := mux.Vars(r)["key"]
	b, err := s.Store.Get(r.Context(), key)
	if errors.Is(err, cloud.ErrNotFound) {
		s.sendError(w, http.StatusNotFound, err)
		return
	} else if err != nil {
		s.sendError(w, http.StatusInternalServerError, err)
		return
	}
	w.Header().Set("Content-Type", "image/png")
	w.Write(b)
}

func (s *Server) deletePreviews(w http.ResponseWriter, r *http.Request) {
	n, err := s.Store.DeleteDir(r.Context(), mux.Vars(r)["request"])
	if err != nil {
		s.sendError(w, http.StatusInternalServerError, err)
		return
	}
	s.sendJSON(w, http.StatusOK, map[string]int{"deleted": n})
}
