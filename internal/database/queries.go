package database

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/truecheckia/detector/internal/models"
)

// ErrNotFound is returned when no analysis matches the requested ID.
var ErrNotFound = errors.New("analysis not found")

// SaveAnalysis saves an analysis to the database
func (db *DB) SaveAnalysis(analysis *models.Analysis) error {
	resultJSON, err := json.Marshal(analysis.Result)
	if err != nil {
		return fmt.Errorf("failed to marshal result: %w", err)
	}

	usingFallback := 0
	if analysis.Result.UsingFallback {
		usingFallback = 1
	}

	_, err = db.conn.Exec(`
		INSERT INTO analyses (id, text, language, result, ai_score, using_fallback, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			result = excluded.result,
			ai_score = excluded.ai_score,
			using_fallback = excluded.using_fallback,
			updated_at = excluded.updated_at
	`, analysis.ID, analysis.Text, string(analysis.Language), resultJSON,
		analysis.Result.AIScore, usingFallback, analysis.CreatedAt, analysis.UpdatedAt)
	if err != nil {
		return fmt.Errorf("failed to insert analysis: %w", err)
	}

	return nil
}

// GetAnalysis retrieves an analysis by ID
func (db *DB) GetAnalysis(id string) (*models.Analysis, error) {
	var (
		text       string
		language   string
		resultJSON string
		createdAt  time.Time
		updatedAt  time.Time
	)

	err := db.conn.QueryRow(`
		SELECT text, language, result, created_at, updated_at
		FROM analyses WHERE id = ?
	`, id).Scan(&text, &language, &resultJSON, &createdAt, &updatedAt)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query analysis: %w", err)
	}

	var result models.AnalysisResult
	if err := json.Unmarshal([]byte(resultJSON), &result); err != nil {
		return nil, fmt.Errorf("failed to unmarshal result: %w", err)
	}

	return &models.Analysis{
		ID:        id,
		Text:      text,
		Language:  models.Language(language),
		Result:    result,
		CreatedAt: createdAt,
		UpdatedAt: updatedAt,
	}, nil
}

// ListAnalyses retrieves analyses ordered by creation time, newest first
func (db *DB) ListAnalyses(limit, offset int) ([]*models.Analysis, error) {
	rows, err := db.conn.Query(`
		SELECT id, text, language, result, created_at, updated_at
		FROM analyses
		ORDER BY created_at DESC
		LIMIT ? OFFSET ?
	`, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("failed to query analyses: %w", err)
	}
	defer rows.Close()

	var analyses []*models.Analysis
	for rows.Next() {
		var (
			a          models.Analysis
			language   string
			resultJSON string
		)
		if err := rows.Scan(&a.ID, &a.Text, &language, &resultJSON, &a.CreatedAt, &a.UpdatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan analysis: %w", err)
		}
		if err := json.Unmarshal([]byte(resultJSON), &a.Result); err != nil {
			return nil, fmt.Errorf("failed to unmarshal result: %w", err)
		}
		a.Language = models.Language(language)
		analyses = append(analyses, &a)
	}

	return analyses, rows.Err()
}

// CountAnalyses returns the total number of stored analyses
func (db *DB) CountAnalyses() (int, error) {
	var count int
	if err := db.conn.QueryRow(`SELECT COUNT(*) FROM analyses`).Scan(&count); err != nil {
		return 0, fmt.Errorf("failed to count analyses: %w", err)
	}
	return count, nil
}
