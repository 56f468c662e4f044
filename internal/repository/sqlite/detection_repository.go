package sqlite

import (
	"fmt"

	"petlens/internal/model"
)

// DetectionRepository implements repository.DetectionRepository for SQLite.
type DetectionRepository struct {
	db *DB
}

// NewDetectionRepository creates a new SQLite detection repository.
func NewDetectionRepository(db *DB) *DetectionRepository {
	return &DetectionRepository{db: db}
}

// InsertBatch adds multiple detections in a single transaction.
func (r *DetectionRepository) InsertBatch(detections []model.Detection) error {
	if len(detections) == 0 {
		return nil
	}

	r.db.Lock()
	defer r.db.Unlock()

	tx, err := r.db.Conn().Begin()
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	stmt, err := tx.Prepare(`
		INSERT INTO detections (timestamp, label, confidence, matched_post_id)
		VALUES (?, ?, ?, ?)
	`)
	if err != nil {
		return fmt.Errorf("failed to prepare statement: %w", err)
	}
	defer stmt.Close()

	for _, det := range detections {
		if _, err := stmt.Exec(det.Timestamp, det.Label, det.Confidence, det.MatchedPostID); err != nil {
			return fmt.Errorf("failed to insert detection: %w", err)
		}
	}

	return tx.Commit()
}

// GetStats returns the total number of stored detections and the limit most
// frequent labels and matched posts.
func (r *DetectionRepository) GetStats(limit int) (*model.DetectionStats, error) {
	r.db.RLock()
	defer r.db.RUnlock()

	if limit <= 0 {
		limit = 10
	}

	stats := &model.DetectionStats{
		LabelCounts: make(map[string]int),
		MatchCounts: make(map[string]int),
	}

	if err := r.db.Conn().QueryRow(`SELECT COUNT(*) FROM detections`).Scan(&stats.TotalDetections); err != nil {
		return nil, fmt.Errorf("failed to count detections: %w", err)
	}

	labelRows, err := r.db.Conn().Query(`
		SELECT label, COUNT(*) AS cnt
		FROM detections
		GROUP BY label
		ORDER BY cnt DESC
		LIMIT ?
	`, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query labels: %w", err)
	}
	defer labelRows.Close()

	for labelRows.Next() {
		var label string
		var count int
		if err := labelRows.Scan(&label, &count); err != nil {
			return nil, fmt.Errorf("failed to scan label: %w", err)
		}
		stats.LabelCounts[label] = count
	}

	// Count cycles, not labels: one cycle stores one row per label.
	matchRows, err := r.db.Conn().Query(`
		SELECT matched_post_id, COUNT(DISTINCT timestamp) AS cnt
		FROM detections
		WHERE matched_post_id != ''
		GROUP BY matched_post_id
		ORDER BY cnt DESC
		LIMIT ?
	`, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query matches: %w", err)
	}
	defer matchRows.Close()

	for matchRows.Next() {
		var postID string
		var count int
		if err := matchRows.Scan(&postID, &count); err != nil {
			return nil, fmt.Errorf("failed to scan match: %w", err)
		}
		stats.MatchCounts[postID] = count
	}

	return stats, nil
}

// DeleteAll removes the whole detection history.
func (r *DetectionRepository) DeleteAll() error {
	r.db.Lock()
	defer r.db.Unlock()

	if _, err := r.db.Conn().Exec(`DELETE FROM detections`); err != nil {
		return fmt.Errorf("failed to delete detections: %w", err)
	}
	return nil
}
