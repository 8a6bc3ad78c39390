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
	"bytes"
	"context"
	"encoding/json"
	"image/png"
	"net/http"
	"net/http/httptest"
	"path"
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/spatialmodel/gridcompare"
)

func testServer(t *testing.T, dataDir string) *Server {
	t.Helper()
	cfg := InitializeConfig()
	cfg.Set("DataDir", dataDir)
	cfg.Set("PreviewBucket", "mem://previews")
	s, err := NewServer(context.Background(), cfg, quietLogger(), prometheus.NewRegistry())
	if err != nil {
		t.Fatal(err)
	}
	return s
}

func do(s *Server, method, target, body string) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	s.ServeHTTP(w, httptest.NewRequest(method, target, strings.NewReader(body)))
	return w
}

func TestServerCompare(t *testing.T) {
	s := testServer(t, scenarios(t))
	defer s.Close()

	w := do(s, http.MethodPost, "/compare", `{"scenario1": "s1", "scenario2": "s2", "parcels": "parcels.geojson"}`)
	if w.Code != http.StatusOK {
		t.Fatalf("status %d: %s", w.Code, w.Body)
	}
	var res gridcompare.Result
	if err := json.Unmarshal(w.Body.Bytes(), &res); err != nil {
		t.Fatal(err)
	}
	checkResult(t, &res)

	inf := res.Variable("infiltration")
	if !strings.HasPrefix(inf.PreviewURL, PreviewPath) {
		t.Fatalf("preview url %q", inf.PreviewURL)
	}
	w = do(s, http.MethodGet, inf.PreviewURL, "")
	if w.Code != http.StatusOK || w.Header().Get("Content-Type") != "image/png" {
		t.Fatalf("preview: status %d, content type %q", w.Code, w.Header().Get("Content-Type"))
	}
	img, err := png.Decode(bytes.NewReader(w.Body.Bytes()))
	if err != nil {
		t.Fatal(err)
	}
	if b := img.Bounds(); b.Dx() != 10 || b.Dy() != 10 {
		t.Errorf("preview size %v", b)
	}

	request := path.Dir(inf.PreviewKey)
	w = do(s, http.MethodDelete, PreviewPath+request, "")
	if w.Code != http.StatusOK || strings.TrimSpace(w.Body.String()) != `{"deleted":2}` {
		t.Errorf("delete: status %d: %s", w.Code, w.Body)
	}
	if w = do(s, http.MethodGet, inf.PreviewURL, ""); w.Code != http.StatusNotFound {
		t.Errorf("deleted preview: status %d", w.Code)
	}

	w = do(s, http.MethodGet, "/metrics", "")
	if w.Code != http.StatusOK || !strings.Contains(w.Body.String(), "gridcompare_requests_total 1") {
		t.Errorf("metrics: status %d:\n%s", w.Code, w.Body)
	}
}

func TestServerBadRequests(t *testing.T) {
	s := testServer(t, scenarios(t))
	defer s.Close()
	for name, body := range map[string]string{
		"not json":         `{"scenario1": `,
		"missing scenario": `{"scenario1": "s1"}`,
		"outside":          `{"scenario1": "../s1", "scenario2": "s2"}`,
		"absolute":         `{"scenario1": "/etc", "scenario2": "s2"}`,
		"bucket":           `{"scenario1": "gs://bucket/s1", "scenario2": "s2"}`,
		"parcel format":    `{"scenario1": "s1", "scenario2": "s2", "parcels": "s1"}`,
	} {
		if w := do(s, http.MethodPost, "/compare", body); w.Code != http.StatusBadRequest {
			t.Errorf("%s: status %d: %s", name, w.Code, w.Body)
		}
	}
	if w := do(s, http.MethodGet, "/compare", ""); w.Code != http.StatusMethodNotAllowed {
		t.Errorf("GET /compare: status %d", w.Code)
	}
}

func TestServerHealth(t *testing.T) {
	s := testServer(t, t.TempDir())
	defer s.Close()
	w := do(s, http.MethodGet, "/health", "")
	if w.Code != http.StatusOK {
		t.Fatalf("status %d", w.Code)
	}
	var h map[string]string
	if err := json.Unmarshal(w.Body.Bytes(), &h); err != nil {
		t.Fatal(err)
	}
	if h["status"] != "ok" || h["version"] != gridcompare.Version {
		t.Errorf("have %v", h)
	}
}
