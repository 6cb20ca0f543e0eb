package store

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/dukerupert/chorequest/internal/model"
)

// ArchiveStore tracks the weekly documents uploaded to object storage.
type ArchiveStore struct {
	db *sql.DB
}

func NewArchiveStore(db *sql.DB) *ArchiveStore {
	return &ArchiveStore{db: db}
}

const archiveColumns = `id, week_start, s3_key, size_bytes, status, error_message, created_at, completed_at`

// Create starts a pending archive for the week. Archiving a week again
// resets its row.
func (s *ArchiveStore) Create(weekStart, s3Key string) (*model.Archive, error) {
	now := time.Now().UTC()
	_, err := s.db.Exec(
		`INSERT INTO archives (week_start, s3_key, status, created_at)
		 VALUES (?, ?, ?, ?)
		 ON CONFLICT(week_start) DO UPDATE SET s3_key = excluded.s3_key, status = excluded.status,
		   size_bytes = 0, error_message = NULL, created_at = excluded.created_at, completed_at = NULL`,
		weekStart, s3Key, model.ArchiveStatusPending, now,
	)
	if err != nil {
		return nil, fmt.Errorf("create archive: %w", err)
	}
	return s.GetByWeek(weekStart)
}

func (s *ArchiveStore) GetByWeek(weekStart string) (*model.Archive, error) {
	row := s.db.QueryRow(`SELECT `+archiveColumns+` FROM archives WHERE week_start = ?`, weekStart)
	a, err := scanArchive(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get archive %s: %w", weekStart, err)
	}
	return a, nil
}

// List returns archives newest week first.
func (s *ArchiveStore) List(limit int) ([]model.Archive, error) {
	rows, err := s.db.Query(`SELECT `+archiveColumns+` FROM archives ORDER BY week_start DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("list archives: %w", err)
	}
	defer rows.Close()

	var archives []model.Archive
	for rows.Next() {
		a, err := scanArchive(rows)
		if err != nil {
			return nil, fmt.Errorf("scan archive: %w", err)
		}
		archives = append(archives, *a)
	}
	return archives, rows.Err()
}

func (s *ArchiveStore) MarkCompleted(id, sizeBytes int64) error {
	_, err := s.db.Exec(
		`UPDATE archives SET status = ?, size_bytes = ?, completed_at = ? WHERE id = ?`,
		model.ArchiveStatusCompleted, sizeBytes, time.Now().UTC(), id,
	)
	if err != nil {
		return fmt.Errorf("mark archive completed: %w", err)
	}
	return nil
}

func (s *ArchiveStore) MarkFailed(id int64, msg string) error {
	_, err := s.db.Exec(
		`UPDATE archives SET status = ?, error_message = ? WHERE id = ?`,
		model.ArchiveStatusFailed, msg, id,
	)
	if err != nil {
		return fmt.Errorf("mark archive failed: %w", err)
	}
	return nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanArchive(r rowScanner) (*model.Archive, error) {
	var a model.Archive
	var errMsg sql.NullString
	var completedAt sql.NullTime
	if err := r.Scan(&a.ID, &a.WeekStart, &a.S3Key, &a.SizeBytes, &a.Status, &errMsg, &a.CreatedAt, &completedAt); err != nil {
		return nil, err
	}
	a.ErrorMessage = errMsg.String
	if completedAt.Valid {
		a.CompletedAt = &completedAt.Time
	}
	return &a, nil
}
