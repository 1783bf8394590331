package server

import (
	"encoding/json"
	"net/http"

	"go.uber.org/zap"

	"github.com/jonathan/taskmatch/internal/pipeline"
	"github.com/jonathan/taskmatch/internal/types"
)

// maxBatch bounds POST /issues/batch.
const maxBatch = 100

// BatchItem is one positional entry of a batch response.
type BatchItem struct {
	Result *pipeline.IssueResult `json:"result,omitempty"`
	Error  string                `json:"error,omitempty"`
	Status int                   `json:"status"`
}

// handleCreateIssue triages one issue.
func (s *Server) handleCreateIssue(w http.ResponseWriter, r *http.Request) {
	var req types.IssueRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.errorResponse(w, http.StatusBadRequest, "Invalid request body: "+err.Error())
		return
	}

	result, err := s.deps.Issues.Process(r.Context(), req)
	if err != nil {
		s.failure(w, err)
		return
	}
	status := http.StatusCreated
	if result.Outcome == pipeline.OutcomeMerged {
		status = http.StatusOK
	}
	s.jsonResponse(w, status, result)
}

// handleCreateIssueStream triages one issue and streams progress via SSE.
func (s *Server) handleCreateIssueStream(w http.ResponseWriter, r *http.Request) {
	var req types.IssueRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.errorResponse(w, http.StatusBadRequest, "Invalid request body: "+err.Error())
		return
	}

	stream, err := openEventStream(w)
	if err != nil {
		s.errorResponse(w, http.StatusInternalServerError, err.Error())
		return
	}

	ctx := pipeline.WithProgress(r.Context(), func(event pipeline.ProgressEvent) {
		if err := stream.send("step", event); err != nil {
			s.logger.Warn("writing SSE event", zap.String("step", event.Step), zap.Error(err))
		}
	})
	result, err := s.deps.Issues.Process(ctx, req)
	if err != nil {
		err = stream.fail(err)
	} else {
		err = stream.done(result)
	}
	if err != nil {
		s.logger.Warn("finishing SSE stream", zap.Error(err))
	}
}

// handleBatchIssues triages up to maxBatch issues concurrently.
func (s *Server) handleBatchIssues(w http.ResponseWriter, r *http.Request) {
	var reqs []types.IssueRequest
	if err := json.NewDecoder(r.Body).Decode(&reqs); err != nil {
		s.errorResponse(w, http.StatusBadRequest, "Invalid request body: "+err.Error())
		return
	}
	if len(reqs) == 0 {
		s.failure(w, &BadRequestError{Field: "body", Reason: "at least one issue is required"})
		return
	}
	if len(reqs) > maxBatch {
		s.failure(w, &BadRequestError{Field: "body", Reason: "too many issues in one batch"})
		return
	}

	results := s.deps.Issues.TriageBatch(r.Context(), reqs, s.parallelism)
	items := make([]BatchItem, len(results))
	for i, res := range results {
		if res.Err != nil {
			items[i] = BatchItem{Error: res.Err.Error(), Status: HTTPStatus(res.Err)}
			continue
		}
		items[i] = BatchItem{Result: res.Result, Status: http.StatusOK}
	}
	s.jsonResponse(w, http.StatusOK, map[string]any{"results": items})
}

// handleGetIssue returns a work item.
func (s *Server) handleGetIssue(w http.ResponseWriter, r *http.Request) {
	item, err := s.deps.Issues.Get(r.Context(), r.PathValue("id"))
	if err != nil {
		s.failure(w, err)
		return
	}
	s.jsonResponse(w, http.StatusOK, item)
}

// handleCreateCommit ingests one commit.
func (s *Server) handleCreateCommit(w http.ResponseWriter, r *http.Request) {
	var req types.CommitRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.errorResponse(w, http.StatusBadRequest, "Invalid request body: "+err.Error())
		return
	}

	result, err := s.deps.Commits.Process(r.Context(), req)
	if err != nil {
		s.failure(w, err)
		return
	}
	s.jsonResponse(w, http.StatusCreated, result)
}

// handleListRequisitions lists requisitions, optionally by ?status=.
func (s *Server) handleListRequisitions(w http.ResponseWriter, r *http.Request) {
	status := types.RequisitionStatus(r.URL.Query().Get("status"))
	switch status {
	case "", types.RequisitionPending, types.RequisitionApproved, types.RequisitionClosed:
	default:
		s.failure(w, &BadRequestError{Field: "status", Reason: "must be pending, approved or closed"})
		return
	}

	reqs, err := s.deps.Requisitions.List(r.Context(), status)
	if err != nil {
		s.failure(w, err)
		return
	}
	if reqs == nil {
		reqs = []types.Requisition{}
	}
	s.jsonResponse(w, http.StatusOK, map[string]any{"requisitions": reqs, "count": len(reqs)})
}

// handleGetRequisition returns one requisition.
func (s *Server) handleGetRequisition(w http.ResponseWriter, r *http.Request) {
	req, err := s.deps.Requisitions.Get(r.Context(), r.PathValue("id"))
	if err != nil {
		s.failure(w, err)
		return
	}
	s.jsonResponse(w, http.StatusOK, req)
}

// handleApproveRequisition records a human approval.
func (s *Server) handleApproveRequisition(w http.ResponseWriter, r *http.Request) {
	req, err := s.deps.Requisitions.Approve(r.Context(), r.PathValue("id"))
	if err != nil {
		s.failure(w, err)
		return
	}
	s.logger.Info("requisition approved", zap.String("requisition_id", req.ID))
	s.jsonResponse(w, http.StatusOK, req)
}

// handleCloseRequisition closes a requisition.
func (s *Server) handleCloseRequisition(w http.ResponseWriter, r *http.Request) {
	req, err := s.deps.Requisitions.Close(r.Context(), r.PathValue("id"))
	if err != nil {
		s.failure(w, err)
		return
	}
	s.jsonResponse(w, http.StatusOK, req)
}
