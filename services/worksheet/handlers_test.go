// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package worksheet

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Mnehmos/provecalc-website-sub000/services/worksheet/document"
	"github.com/Mnehmos/provecalc-website-sub000/services/worksheet/execute"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func setupTestRouter(svc *Service) *gin.Engine {
	router := gin.New()
	RegisterRoutes(router.Group("/v1"), NewHandlers(svc))
	return router
}

func doJSON(t *testing.T, router *gin.Engine, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func TestHandlers_Flow(t *testing.T) {
	svc, _ := newTestService(t)
	router := setupTestRouter(svc)

	w := doJSON(t, router, http.MethodPost, "/v1/worksheets", CreateWorksheetRequest{Snapshot: framedProblem()})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	var created CreateWorksheetResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &created))
	assert.NotEmpty(t, w.Header().Get(requestIDHeader))

	w = doJSON(t, router, http.MethodPost, "/v1/worksheets/"+created.ID+"/proposals", ProposeRequest{Reply: newtonReply})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	var proposal struct {
		ID       string            `json:"id"`
		Blocked  bool              `json:"blocked"`
		Commands []json.RawMessage `json:"commands"`
		Summary  map[string]int    `json:"summary"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &proposal))
	assert.False(t, proposal.Blocked)
	assert.Len(t, proposal.Commands, 3)
	assert.Contains(t, string(proposal.Commands[0]), `"action":"add_given"`)
	assert.Equal(t, 3, proposal.Summary["valid"])

	w = doJSON(t, router, http.MethodGet, "/v1/worksheets/"+created.ID+"/proposals/"+proposal.ID, nil)
	assert.Equal(t, http.StatusOK, w.Code)

	w = doJSON(t, router, http.MethodPost, "/v1/worksheets/"+created.ID+"/proposals/"+proposal.ID+"/accept", nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	var batch execute.BatchResult
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &batch))
	assert.Equal(t, 3, batch.Succeeded)

	w = doJSON(t, router, http.MethodGet, "/v1/worksheets/"+created.ID, nil)
	require.Equal(t, http.StatusOK, w.Code)
	var snap document.Snapshot
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &snap))
	assert.Len(t, snap.Nodes, 5)

	w = doJSON(t, router, http.MethodGet, "/v1/worksheets/"+created.ID+"/history?limit=5", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), batch.BatchID)
}

func TestHandlers_Errors(t *testing.T) {
	svc, _ := newTestService(t)
	router := setupTestRouter(svc)
	id, err := svc.CreateWorksheet(nil)
	require.NoError(t, err)

	tests := []struct {
		name   string
		method string
		path   string
		body   any
		status int
		code   string
	}{
		{"unknown worksheet", http.MethodGet, "/v1/worksheets/nope", nil, http.StatusNotFound, "WORKSHEET_NOT_FOUND"},
		{"missing reply", http.MethodPost, "/v1/worksheets/" + id + "/proposals", map[string]string{}, http.StatusBadRequest, "INVALID_REQUEST"},
		{"blank reply", http.MethodPost, "/v1/worksheets/" + id + "/proposals", ProposeRequest{Reply: "  "}, http.StatusBadRequest, "EMPTY_REPLY"},
		{"unknown proposal", http.MethodPost, "/v1/worksheets/" + id + "/proposals/x/accept", nil, http.StatusNotFound, "PROPOSAL_NOT_FOUND"},
		{"reject unknown", http.MethodDelete, "/v1/worksheets/" + id + "/proposals/x", nil, http.StatusNotFound, "PROPOSAL_NOT_FOUND"},
		{"bad limit", http.MethodGet, "/v1/worksheets/" + id + "/history?limit=-1", nil, http.StatusBadRequest, "INVALID_LIMIT"},
		{"bad snapshot", http.MethodPost, "/v1/worksheets", CreateWorksheetRequest{Snapshot: &document.Snapshot{Nodes: []document.Node{{Type: "widget"}}}}, http.StatusBadRequest, "INVALID_SNAPSHOT"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := doJSON(t, router, tt.method, tt.path, tt.body)
			assert.Equal(t, tt.status, w.Code, w.Body.String())
			var resp ErrorResponse
			require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
			assert.Equal(t, tt.code, resp.Code)
		})
	}
}

func TestHandlers_BlockedAcceptAndReject(t *testing.T) {
	svc, _ := newTestService(t)
	router := setupTestRouter(svc)
	id, err := svc.CreateWorksheet(nil)
	require.NoError(t, err)

	p, err := svc.Propose(t.Context(), id, newtonReply)
	require.NoError(t, err)
	w := doJSON(t, router, http.MethodPost, "/v1/worksheets/"+id+"/proposals/"+p.ID+"/accept", nil)
	assert.Equal(t, http.StatusConflict, w.Code)

	p, err = svc.Propose(t.Context(), id, newtonReply)
	require.NoError(t, err)
	w = doJSON(t, router, http.MethodDelete, "/v1/worksheets/"+id+"/proposals/"+p.ID, nil)
	assert.Equal(t, http.StatusNoContent, w.Code)
}

func TestHandlers_NormalizeAndHealth(t *testing.T) {
	router := setupTestRouter(NewService(ServiceConfig{}))

	w := doJSON(t, router, http.MethodPost, "/v1/normalize", NormalizeRequest{Expression: `\frac{1}{2} m v^{2}`})
	require.Equal(t, http.StatusOK, w.Code)
	var resp NormalizeResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, []string{"m", "v"}, resp.Variables)
	assert.NotContains(t, resp.Normalized, `\frac`)

	w = doJSON(t, router, http.MethodGet, "/v1/health", nil)
	require.Equal(t, http.StatusOK, w.Code)
	var health HealthResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &health))
	assert.Equal(t, "healthy", health.Status)
	assert.Equal(t, ServiceVersion, health.Version)
}
