package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"net/http"
	"os"
	"strings"

	"github.com/go-chi/chi/v5/middleware"

	"github.com/spektr-org/askdata/engine"
	"github.com/spektr-org/askdata/pipeline"
	"github.com/spektr-org/askdata/table"
)

const maxBodyBytes = 1 << 20

// QueryRequest is the body of POST /query.
type QueryRequest struct {
	UserQuery *string `json:"user_query"`
}

// QueryResponse is the body of a successful POST /query.
type QueryResponse struct {
	Response string `json:"response"`
}

// ErrorResponse carries every failure.
type ErrorResponse struct {
	Detail string `json:"detail"`
}

// DatasetInfo describes one loaded dataset.
type DatasetInfo struct {
	Name    string         `json:"name"`
	Binding string         `json:"binding"`
	Rows    int            `json:"rows"`
	Columns []table.Column `json:"columns"`
}

func (s *Server) handleIndex(w http.ResponseWriter, _ *http.Request) {
	content, err := os.ReadFile(s.indexFile)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			writeDetail(w, http.StatusNotFound, "Index file not found.")
			return
		}
		writeDetail(w, http.StatusInternalServerError, fmt.Sprintf("Error reading index file: %v", err))
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(content)
}

func (s *Server) handleQuery(w http.ResponseWriter, r *http.Request) {
	var req QueryRequest
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err := dec.Decode(&req); err != nil {
		writeDetail(w, http.StatusUnprocessableEntity, fmt.Sprintf("invalid request body: %v", err))
		return
	}
	if req.UserQuery == nil {
		writeDetail(w, http.StatusUnprocessableEntity, "user_query is required")
		return
	}
	query := strings.TrimSpace(*req.UserQuery)
	if query == "" {
		writeDetail(w, http.StatusUnprocessableEntity, "user_query must not be empty")
		return
	}

	ctx := r.Context()
	if s.queryTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.queryTimeout)
		defer cancel()
	}

	ans, err := s.runner.Run(ctx, query)
	if err != nil {
		stage := "unknown"
		var stageErr *pipeline.StageError
		if errors.As(err, &stageErr) {
			stage = string(stageErr.Stage)
		}
		s.logger.Error("query request failed",
			"request_id", middleware.GetReqID(r.Context()),
			"stage", stage,
			"kind", pipeline.Kind(err),
		)
		writeDetail(w, http.StatusInternalServerError, "Error processing query: "+err.Error())
		return
	}

	writeJSON(w, http.StatusOK, QueryResponse{Response: ans.Interpretation})
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleDatasets(w http.ResponseWriter, _ *http.Request) {
	data := s.runner.Datasets()
	writeJSON(w, http.StatusOK, map[string][]DatasetInfo{
		"datasets": {
			describe(data.A, engine.BindingA),
			describe(data.B, engine.BindingB),
		},
	})
}

func describe(t *table.Table, binding string) DatasetInfo {
	return DatasetInfo{
		Name:    t.Name(),
		Binding: binding,
		Rows:    t.Len(),
		Columns: t.Columns(),
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeDetail(w http.ResponseWriter, status int, detail string) {
	writeJSON(w, status, ErrorResponse{Detail: detail})
}
