package store

import (
	"database/sql"
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// Detection sources recorded in the history.
const (
	SourceHTTP      = "http"
	SourceWebSocket = "websocket"
)

// DefaultHistoryLimit is used when List is called with a non-positive limit.
const DefaultHistoryLimit = 50

// MaxHistoryLimit bounds a single List call.
const MaxHistoryLimit = 500

// HistoryEntry records one served detection request.
type HistoryEntry struct {
	ID            string          `json:"id"`
	Source        string          `json:"source"`
	Threshold     float64         `json:"threshold"`
	Success       bool            `json:"success"`
	Count         int             `json:"count"`
	Error         string          `json:"error,omitempty"`
	TopClass      string          `json:"top_class,omitempty"`
	TopConfidence float64         `json:"top_confidence,omitempty"`
	Detections    json.RawMessage `json:"detections"`
	CreatedAt     time.Time       `json:"created_at"`
}

// HistoryRepository stores detection history.
type HistoryRepository struct {
	db *sql.DB
}

// History returns the history repository for this store.
func (s *Store) History() *HistoryRepository {
	return &HistoryRepository{db: s.db}
}

// Record inserts e, assigning its ID and CreatedAt when unset.
func (r *HistoryRepository) Record(e *HistoryEntry) error {
	if e.ID == "" {
		e.ID = uuid.New().String()
	}
	if e.CreatedAt.IsZero() {
		e.CreatedAt = time.Now()
	}
	if len(e.Detections) == 0 {
		e.Detections = json.RawMessage("[]")
	}

	_, err := r.db.Exec(
		`INSERT INTO detection_history
		 (id, source, threshold, success, count, error, top_class, top_confidence, detections, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		e.ID, e.Source, e.Threshold, e.Success, e.Count, e.Error,
		e.TopClass, e.TopConfidence, string(e.Detections), e.CreatedAt,
	)
	return err
}

// List returns up to limit entries, newest first.
func (r *HistoryRepository) List(limit int) ([]*HistoryEntry, error) {
	if limit <= 0 {
		limit = DefaultHistoryLimit
	}
	if limit > MaxHistoryLimit {
		limit = MaxHistoryLimit
	}

	rows, err := r.db.Query(
		`SELECT id, source, threshold, success, count, error, top_class, top_confidence, detections, created_at
		 FROM detection_history ORDER BY rowid DESC LIMIT ?`,
		limit,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var entries []*HistoryEntry
	for rows.Next() {
		e := &HistoryEntry{}
		var detections string
		if err := rows.Scan(&e.ID, &e.Source, &e.Threshold, &e.Success, &e.Count, &e.Error,
			&e.TopClass, &e.TopConfidence, &detections, &e.CreatedAt); err != nil {
			return nil, err
		}
		e.Detections = json.RawMessage(detections)
		entries = append(entries, e)
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}

	return entries, nil
}

// Count returns the number of recorded entries.
func (r *HistoryRepository) Count() (int, error) {
	var n int
	err := r.db.QueryRow(`SELECT COUNT(*) FROM detection_history`).Scan(&n)
	return n, err
}

// Prune deletes all but the newest keep entries and returns how many were removed.
func (r *HistoryRepository) Prune(keep int) (int64, error) {
	res, err := r.db.Exec(
		`DELETE FROM detection_history WHERE rowid NOT IN
		 (SELECT rowid FROM detection_history ORDER BY rowid DESC LIMIT ?)`,
		keep,
	)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}
