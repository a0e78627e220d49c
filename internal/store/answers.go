package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

var ErrNotFound = errors.New("not found")

// AnswerRecord is one answered chat turn.
type AnswerRecord struct {
	ID            uuid.UUID
	RequestID     string
	Question      string
	Prompt        string
	Reply         string
	Model         string
	EvidenceCount int
	CacheHit      bool
	CreatedAt     time.Time
}

// WriteAnswer inserts an answered turn and returns its ID.
func (s *Store) WriteAnswer(ctx context.Context, rec AnswerRecord) (uuid.UUID, error) {
	id := rec.ID
	if id == uuid.Nil {
		id = uuid.New()
	}
	_, err := s.pool.Exec(ctx, `
		INSERT INTO chat_answers (id, request_id, question, prompt, reply, model, evidence_count, cache_hit)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
		id, rec.RequestID, rec.Question, rec.Prompt, rec.Reply, rec.Model, rec.EvidenceCount, rec.CacheHit,
	)
	if err != nil {
		return uuid.Nil, fmt.Errorf("insert chat answer: %w", err)
	}
	return id, nil
}

// GetAnswerByID fetches an answered turn by ID.
func (s *Store) GetAnswerByID(ctx context.Context, id uuid.UUID) (*AnswerRecord, error) {
	row := s.pool.QueryRow(ctx, `
		SELECT id, request_id, question, prompt, reply, model, evidence_count, cache_hit, created_at
		FROM chat_answers WHERE id = $1`, id)

	var r AnswerRecord
	err := row.Scan(&r.ID, &r.RequestID, &r.Question, &r.Prompt, &r.Reply, &r.Model, &r.EvidenceCount, &r.CacheHit, &r.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("chat answer %s: %w", id, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("get chat answer: %w", err)
	}
	return &r, nil
}

// RecentAnswers returns the latest answered turns, newest first.
func (s *Store) RecentAnswers(ctx context.Context, limit int) ([]AnswerRecord, error) {
	if limit <= 0 {
		limit = 20
	}
	rows, err := s.pool.Query(ctx, `
		SELECT id, request_id, question, prompt, reply, model, evidence_count, cache_hit, created_at
		FROM chat_answers ORDER BY created_at DESC LIMIT $1`, limit)
	if err != nil {
		return nil, fmt.Errorf("query chat answers: %w", err)
	}
	defer rows.Close()

	var out []AnswerRecord
	for rows.Next() {
		var r AnswerRecord
		if err := rows.Scan(&r.ID, &r.RequestID, &r.Question, &r.Prompt, &r.Reply, &r.Model, &r.EvidenceCount, &r.CacheHit, &r.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan chat answer: %w", err)
		}
		out = append(out, r)
	}
	return out, rows.Err()
}
