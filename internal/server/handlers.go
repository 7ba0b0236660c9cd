package server

import (
	"encoding/json"
	"io"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sitescout/sitescout/internal/ingest"
	"github.com/sitescout/sitescout/internal/model"
	"github.com/sitescout/sitescout/internal/store"
)

// maxUploadBytes bounds GeoJSON upload size.
const maxUploadBytes = 8 << 20

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// handleCreateEvaluation ingests a GeoJSON body, runs the pipeline
// synchronously, and returns the ranked evaluation. Invalid features are
// skipped and reported; a document with no valid parcels is a 400.
func (s *Server) handleCreateEvaluation(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(io.LimitReader(r.Body, maxUploadBytes))
	if err != nil {
		writeError(w, http.StatusBadRequest, "unreadable request body")
		return
	}

	parcels, skipped, err := ingest.ParseGeoJSON(body)
	if err != nil {
		if model.IsValidation(err) {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
		zap.L().Error("server: ingest failed", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "ingest failed")
		return
	}
	if len(parcels) == 0 {
		resp := map[string]any{"error": "no valid parcels in upload"}
		if len(skipped) > 0 {
			resp["skipped"] = skipped
		}
		writeJSON(w, http.StatusBadRequest, resp)
		return
	}

	source := r.URL.Query().Get("source")
	if source == "" {
		source = "upload"
	}

	eval, err := s.pipeline.Evaluate(r.Context(), source, parcels, skipped)
	if err != nil {
		zap.L().Error("server: evaluation failed", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "evaluation failed")
		return
	}

	writeJSON(w, http.StatusCreated, eval)
}

func (s *Server) handleListEvaluations(w http.ResponseWriter, r *http.Request) {
	if s.store == nil {
		writeError(w, http.StatusNotImplemented, "no store configured")
		return
	}

	filter := store.ListFilter{
		Source: r.URL.Query().Get("source"),
		Limit:  queryInt(r, "limit"),
		Offset: queryInt(r, "offset"),
	}

	evals, err := s.store.ListEvaluations(r.Context(), filter)
	if err != nil {
		zap.L().Error("server: list evaluations", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "list failed")
		return
	}
	if evals == nil {
		evals = []model.Evaluation{}
	}

	writeJSON(w, http.StatusOK, map[string]any{"evaluations": evals})
}

func (s *Server) handleGetEvaluation(w http.ResponseWriter, r *http.Request) {
	if s.store == nil {
		writeError(w, http.StatusNotImplemented, "no store configured")
		return
	}

	id := chi.URLParam(r, "id")
	eval, err := s.store.GetEvaluation(r.Context(), id)
	if err != nil {
		if eris.Is(err, store.ErrNotFound) {
			writeError(w, http.StatusNotFound, "evaluation not found")
			return
		}
		zap.L().Error("server: get evaluation", zap.String("id", id), zap.Error(err))
		writeError(w, http.StatusInternalServerError, "lookup failed")
		return
	}

	writeJSON(w, http.StatusOK, eval)
}

func queryInt(r *http.Request, key string) int {
	v, _ := strconv.Atoi(r.URL.Query().Get(key))
	return v
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}
