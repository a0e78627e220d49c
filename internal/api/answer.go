package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/google/uuid"

	"github.com/MikeSquared-Agency/kbchat/internal/chat"
	"github.com/MikeSquared-Agency/kbchat/internal/pipeline"
	"github.com/MikeSquared-Agency/kbchat/internal/store"
)

type answerRequest struct {
	History []chat.Message `json:"history"`
}

type answerView struct {
	ID            uuid.UUID `json:"id"`
	RequestID     string    `json:"request_id"`
	Question      string    `json:"question"`
	Reply         string    `json:"reply"`
	Model         string    `json:"model"`
	EvidenceCount int       `json:"evidence_count"`
	CacheHit      bool      `json:"cache_hit"`
	CreatedAt     time.Time `json:"created_at"`
}

func viewOf(r store.AnswerRecord) answerView {
	return answerView{
		ID:            r.ID,
		RequestID:     r.RequestID,
		Question:      r.Question,
		Reply:         r.Reply,
		Model:         r.Model,
		EvidenceCount: r.EvidenceCount,
		CacheHit:      r.CacheHit,
		CreatedAt:     r.CreatedAt,
	}
}

// getAnswer handles POST /api/v1/get_answer/
func (s *Server) getAnswer(w http.ResponseWriter, r *http.Request) {
	var req answerRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON: "+err.Error())
		return
	}

	ctx := r.Context()
	if id := middleware.GetReqID(ctx); id != "" {
		ctx = pipeline.ContextWithRequestID(ctx, id)
	}

	if s.stats != nil {
		if _, err := s.stats.TrackRequest(ctx); err != nil {
			s.logger.Warn("failed to track request", "error", err)
		}
	}

	reply, err := s.answerer.Answer(ctx, req.History)
	if err != nil {
		status := statusFor(err)
		if status >= http.StatusInternalServerError {
			s.logger.Error("answer failed", "error", err, "status", status)
		}
		writeError(w, status, err.Error())
		return
	}

	writeJSON(w, http.StatusOK, reply)
}

func statusFor(err error) int {
	switch {
	case errors.Is(err, chat.ErrInvalidHistory):
		return http.StatusBadRequest
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return http.StatusServiceUnavailable
	case errors.Is(err, chat.ErrRetrievalUnavailable),
		errors.Is(err, chat.ErrModelUnavailable),
		errors.Is(err, chat.ErrMalformedUpstream):
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

// recentAnswers handles GET /api/v1/answers?limit=N
func (s *Server) recentAnswers(w http.ResponseWriter, r *http.Request) {
	if s.answers == nil {
		writeError(w, http.StatusServiceUnavailable, "answer log not configured")
		return
	}

	limit := 20
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n <= 0 {
			writeError(w, http.StatusBadRequest, "invalid limit")
			return
		}
		limit = min(n, 200)
	}

	rows, err := s.answers.RecentAnswers(r.Context(), limit)
	if err != nil {
		s.logger.Error("failed to list answers", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to list answers")
		return
	}

	out := make([]answerView, 0, len(rows))
	for _, row := range rows {
		out = append(out, viewOf(row))
	}
	writeJSON(w, http.StatusOK, map[string]any{"answers": out, "count": len(out)})
}

// answerByID handles GET /api/v1/answers/{id}
func (s *Server) answerByID(w http.ResponseWriter, r *http.Request) {
	if s.answers == nil {
		writeError(w, http.StatusServiceUnavailable, "answer log not configured")
		return
	}

	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid answer id")
		return
	}

	row, err := s.answers.GetAnswerByID(r.Context(), id)
	if errors.Is(err, store.ErrNotFound) {
		writeError(w, http.StatusNotFound, "answer not found")
		return
	}
	if err != nil {
		s.logger.Error("failed to get answer", "id", id, "error", err)
		writeError(w, http.StatusInternalServerError, "failed to get answer")
		return
	}
	writeJSON(w, http.StatusOK, viewOf(*row))
}
