package server

import (
	"fmt"
	"net/http"
	"time"

	"blogd/internal/api"
)

func (s *Server) handleImageGC(w http.ResponseWriter, r *http.Request) {
	var req api.ImageGCRequest
	if !s.decodeJSONReq(w, r, &req) {
		return
	}
	if !req.DryRun && r.Header.Get(api.ConfirmHeader) != "true" {
		s.writeErrorReq(w, r, http.StatusBadRequest, badRequestCode(fmt.Errorf("applying a sweep requires %s: true header", api.ConfirmHeader), ErrCodeMissingRequired))
		return
	}

	grace := s.gcGrace
	if req.GraceSeconds > 0 {
		grace = time.Duration(req.GraceSeconds) * time.Second
	}

	result, err := s.posts.GCImages(r.Context(), grace, !req.DryRun)
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}

	s.log().Info("image sweep requested", "dry_run", req.DryRun, "deleted", result.DeletedCount)
	s.writeJSON(w, http.StatusOK, api.ImageGCResponse{
		Scanned:        result.Scanned,
		SkippedRecent:  result.SkippedRecent,
		CandidateCount: result.CandidateCount,
		DeletedCount:   result.DeletedCount,
		FailedCount:    result.FailedCount,
		ReclaimedBytes: result.ReclaimedBytes,
		DryRun:         result.DryRun,
	})
}
