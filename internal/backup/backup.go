// Package backup uploads each closed week's document, encrypted, to
// S3-compatible storage.
package backup

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sync"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"

	"github.com/dukerupert/chorequest/internal/gateway"
	"github.com/dukerupert/chorequest/internal/metrics"
	"github.com/dukerupert/chorequest/internal/model"
)

// ErrDisabled is returned when storage or the passphrase is not configured.
var ErrDisabled = errors.New("archive storage not configured")

// s3Client is an interface for testability.
type s3Client interface {
	PutObject(ctx context.Context, input *s3.PutObjectInput, opts ...func(*s3.Options)) (*s3.PutObjectOutput, error)
	GetObject(ctx context.Context, input *s3.GetObjectInput, opts ...func(*s3.Options)) (*s3.GetObjectOutput, error)
}

// Records is the local index of uploaded weeks.
type Records interface {
	Create(weekStart, s3Key string) (*model.Archive, error)
	GetByWeek(weekStart string) (*model.Archive, error)
	List(limit int) ([]model.Archive, error)
	MarkCompleted(id, sizeBytes int64) error
	MarkFailed(id int64, msg string) error
}

// S3Config holds S3-compatible storage configuration.
type S3Config struct {
	Endpoint  string
	Bucket    string
	Region    string
	AccessKey string
	SecretKey string
}

func (c S3Config) complete() bool {
	return c.Bucket != "" && c.AccessKey != "" && c.SecretKey != ""
}

type Config struct {
	S3         S3Config
	Passphrase string
}

type State string

const (
	StateIdle     State = "idle"
	StateRunning  State = "running"
	StateDisabled State = "disabled"
	StateError    State = "error"
)

type Status struct {
	State       State      `json:"state"`
	LastArchive *time.Time `json:"last_archive,omitempty"`
	LastWeek    string     `json:"last_week,omitempty"`
	Error       string     `json:"error,omitempty"`
}

// StatusCallback is called whenever the archive state changes.
type StatusCallback func(Status)

// Manager seals and uploads weekly documents.
type Manager struct {
	mu       sync.RWMutex
	cfg      Config
	status   Status
	callback StatusCallback

	records Records
	client  s3Client
	logger  *slog.Logger
}

func NewManager(cfg Config, records Records, logger *slog.Logger, callback StatusCallback) *Manager {
	m := &Manager{
		cfg:      cfg,
		records:  records,
		logger:   logger,
		callback: callback,
		status:   Status{State: StateDisabled},
	}
	if cfg.S3.complete() && cfg.Passphrase != "" {
		m.client = newS3Client(cfg.S3)
		m.status.State = StateIdle
	}
	return m
}

func newS3Client(cfg S3Config) *s3.Client {
	opts := s3.Options{
		Region:       cfg.Region,
		Credentials:  credentials.NewStaticCredentialsProvider(cfg.AccessKey, cfg.SecretKey, ""),
		UsePathStyle: true,
	}
	if cfg.Endpoint != "" {
		opts.BaseEndpoint = aws.String(cfg.Endpoint)
	}
	return s3.New(opts)
}

// Key is where a week's archive lives in the bucket.
func Key(weekStart string) string {
	return fmt.Sprintf("weeks/%s.json.enc", weekStart)
}

func (m *Manager) Enabled() bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.client != nil
}

func (m *Manager) Status() Status {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.status
}

func (m *Manager) setStatus(s Status) {
	m.mu.Lock()
	m.status = s
	m.mu.Unlock()
	if m.callback != nil {
		m.callback(s)
	}
}

func (m *Manager) fail(id int64, err error) error {
	if id != 0 {
		if merr := m.records.MarkFailed(id, err.Error()); merr != nil {
			m.logger.Error("mark archive failed", "error", merr)
		}
	}
	m.setStatus(Status{State: StateError, Error: err.Error()})
	metrics.RecordArchive(err)
	return err
}

// Archive seals doc and uploads it under its week. Documents that were
// never stamped with a week are skipped.
func (m *Manager) Archive(ctx context.Context, doc model.Document) error {
	m.mu.RLock()
	client := m.client
	bucket := m.cfg.S3.Bucket
	passphrase := m.cfg.Passphrase
	m.mu.RUnlock()

	if client == nil {
		return ErrDisabled
	}
	if doc.WeekStart == "" {
		return nil
	}

	m.setStatus(Status{State: StateRunning})

	key := Key(doc.WeekStart)
	record, err := m.records.Create(doc.WeekStart, key)
	if err != nil {
		return m.fail(0, fmt.Errorf("create archive record: %w", err))
	}

	raw, err := gateway.Encode(doc)
	if err != nil {
		return m.fail(record.ID, err)
	}
	sealed, err := Seal(raw, passphrase)
	if err != nil {
		return m.fail(record.ID, fmt.Errorf("seal archive: %w", err))
	}

	_, err = client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:        aws.String(bucket),
		Key:           aws.String(key),
		Body:          bytes.NewReader(sealed),
		ContentLength: aws.Int64(int64(len(sealed))),
	})
	if err != nil {
		return m.fail(record.ID, fmt.Errorf("upload to s3: %w", err))
	}

	if err := m.records.MarkCompleted(record.ID, int64(len(sealed))); err != nil {
		m.logger.Error("mark archive completed", "error", err)
	}

	now := time.Now().UTC()
	m.setStatus(Status{State: StateIdle, LastArchive: &now, LastWeek: doc.WeekStart})
	metrics.RecordArchive(nil)
	m.logger.Info("week archived", "week", doc.WeekStart, "key", key, "bytes", len(sealed))
	return nil
}

// List returns the most recent archive records, newest first.
func (m *Manager) List(limit int) ([]model.Archive, error) {
	return m.records.List(limit)
}

// Load downloads and decrypts a week. It returns nil, nil when the week was
// never archived.
func (m *Manager) Load(ctx context.Context, weekStart string) (*model.Document, error) {
	m.mu.RLock()
	client := m.client
	bucket := m.cfg.S3.Bucket
	passphrase := m.cfg.Passphrase
	m.mu.RUnlock()

	if client == nil {
		return nil, ErrDisabled
	}

	record, err := m.records.GetByWeek(weekStart)
	if err != nil {
		return nil, fmt.Errorf("get archive record: %w", err)
	}
	if record == nil || record.Status != model.ArchiveStatusCompleted {
		return nil, nil
	}

	out, err := client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(bucket),
		Key:    aws.String(record.S3Key),
	})
	if err != nil {
		return nil, fmt.Errorf("download from s3: %w", err)
	}
	defer out.Body.Close()

	sealed, err := io.ReadAll(out.Body)
	if err != nil {
		return nil, fmt.Errorf("read archive: %w", err)
	}
	raw, err := Unseal(sealed, passphrase)
	if err != nil {
		return nil, fmt.Errorf("unseal archive: %w", err)
	}
	return gateway.Decode(raw)
}
