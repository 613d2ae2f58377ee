package invoice

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
	"regexp"
	"strings"
	"time"

	"github.com/fakturai/fakturai/internal/document"
	"github.com/fakturai/fakturai/internal/scanning"
)

// IDGenerator generates unique IDs for invoice records
type IDGenerator interface {
	Generate() string
}

// TimeSource provides the current time
type TimeSource interface {
	Now() time.Time
}

// defaultIDGenerator generates IDs using UnixNano timestamp
type defaultIDGenerator struct{}

func (g *defaultIDGenerator) Generate() string {
	return fmt.Sprintf("%d", time.Now().UnixNano())
}

// defaultTimeSource provides the current time
type defaultTimeSource struct{}

func (t *defaultTimeSource) Now() time.Time {
	return time.Now()
}

// Service runs the ingestion pipeline: sniff, rasterize (with password
// recovery), normalize, extract, validate, persist. Processing is
// synchronous and single-threaded per request; exactly one password recovery
// session may be pending per Service instance.
type Service struct {
	db          DB
	storage     Storage
	extractor   scanning.Extractor
	normalizer  *document.Normalizer
	recovery    *document.RecoveryController
	idGenerator IDGenerator
	timeSource  TimeSource
}

// NewService creates a Service with the default rasterizer, normalizer, ID
// generator and time source
func NewService(db DB, extractor scanning.Extractor, storage Storage) *Service {
	return NewServiceWithDeps(db, extractor, storage,
		document.NewPDFRasterizer(), document.NewNormalizer(),
		&defaultIDGenerator{}, &defaultTimeSource{})
}

// NewServiceWithDeps creates a Service with custom dependencies for testing
func NewServiceWithDeps(db DB, extractor scanning.Extractor, storage Storage,
	rasterizer document.Rasterizer, normalizer *document.Normalizer,
	idGen IDGenerator, timeSrc TimeSource) *Service {
	return &Service{
		db:          db,
		storage:     storage,
		extractor:   extractor,
		normalizer:  normalizer,
		recovery:    document.NewRecoveryController(rasterizer),
		idGenerator: idGen,
		timeSource:  timeSrc,
	}
}

// sanitizeFilename cleans up a filename by removing special characters and
// truncating length
func sanitizeFilename(filename string) string {
	ext := filepath.Ext(filename)
	base := strings.TrimSuffix(filename, ext)

	reg := regexp.MustCompile(`[^a-zA-Z0-9\s\-_]`)
	base = reg.ReplaceAllString(base, "")

	reg = regexp.MustCompile(`\s+`)
	base = reg.ReplaceAllString(base, " ")

	base = strings.TrimSpace(base)

	maxLen := 50
	if len(base) > maxLen {
		base = base[:maxLen]
	}

	if base == "" {
		base = "invoice"
	}

	return base + ext
}

// ProcessDocument runs the full pipeline for a fresh upload.
//
// A PDF that turns out to be password protected returns a PasswordRequired
// error and leaves the document buffered in the recovery session; the caller
// is expected to follow up with SubmitPassword or CancelRecovery rather than
// re-uploading. Submitting a new document while a session is pending
// discards the stale session.
func (s *Service) ProcessDocument(ctx context.Context, filename string, data []byte) (*Record, error) {
	var pages []document.RasterPage

	switch kind := document.Classify(data); kind {
	case document.KindPDF:
		var err error
		pages, err = s.recovery.Submit(document.RawDocument{Data: data, Filename: filename})
		if err != nil {
			return nil, err
		}
	case document.KindJPEG, document.KindPNG:
		// A direct image upload supersedes any document still blocked on a password
		s.recovery.Cancel()
		page, err := s.normalizer.Decode(data)
		if err != nil {
			return nil, err
		}
		pages = []document.RasterPage{page}
	default:
		return nil, &document.Error{
			Kind:    document.UnsupportedFormat,
			Message: "unsupported file format, supported formats: PDF, JPEG, PNG",
		}
	}

	return s.finish(ctx, filename, data, pages)
}

// SubmitPassword retries the pending password-protected document. An
// InvalidPassword outcome keeps the session pending so another attempt is
// possible without re-uploading.
func (s *Service) SubmitPassword(ctx context.Context, password string) (*Record, error) {
	session := s.recovery.Session()
	if session == nil {
		return nil, fmt.Errorf("no document is awaiting a password")
	}
	filename, data := session.Filename, session.Data

	pages, err := s.recovery.SubmitPassword(password)
	if err != nil {
		return nil, err
	}

	return s.finish(ctx, filename, data, pages)
}

// CancelRecovery discards the pending password session, if any
func (s *Service) CancelRecovery() {
	s.recovery.Cancel()
}

// RecoveryState reports the password recovery state machine position
func (s *Service) RecoveryState() document.RecoveryState {
	return s.recovery.State()
}

// RecoverySession returns the pending password session, or nil
func (s *Service) RecoverySession() *document.PasswordSession {
	return s.recovery.Session()
}

// finish normalizes the rasterized pages, runs extraction and validation and
// persists the record together with the original upload
func (s *Service) finish(ctx context.Context, filename string, data []byte, pages []document.RasterPage) (*Record, error) {
	images, err := s.normalizer.NormalizeAll(pages)
	if err != nil {
		return nil, err
	}

	candidate, err := s.extractor.ExtractInvoice(ctx, images)
	if err != nil {
		slog.Error("Failed to extract invoice data",
			"filename", filename,
			"pages", len(images),
			"error", err,
		)
		return nil, fmt.Errorf("extracting invoice data: %w", err)
	}

	record, err := Validate(candidate)
	if err != nil {
		slog.Error("Extracted invoice failed validation", "filename", filename, "error", err)
		return nil, err
	}

	id := s.idGenerator.Generate()
	now := s.timeSource.Now()

	savedPath, err := s.storage.Save(fmt.Sprintf("%s_%s", id, sanitizeFilename(filename)), data)
	if err != nil {
		return nil, fmt.Errorf("saving file: %w", err)
	}

	record.ID = id
	record.Filename = savedPath
	record.PageCount = len(images)
	record.CreatedAt = now
	record.UpdatedAt = now

	if err := s.db.SaveRecord(record); err != nil {
		// Clean up file if database save fails
		s.storage.Delete(savedPath)
		return nil, fmt.Errorf("saving invoice to database: %w", err)
	}

	return record, nil
}

// GetRecord retrieves an invoice record by ID
func (s *Service) GetRecord(id string) (*Record, error) {
	record, err := s.db.GetRecord(id)
	if err != nil {
		return nil, fmt.Errorf("getting invoice: %w", err)
	}
	return record, nil
}

// ListRecords returns all invoice records
func (s *Service) ListRecords() ([]*Record, error) {
	records, err := s.db.ListRecords()
	if err != nil {
		return nil, fmt.Errorf("listing invoices: %w", err)
	}
	return records, nil
}

// DeleteRecord removes a record and its stored upload
func (s *Service) DeleteRecord(id string) error {
	record, err := s.db.GetRecord(id)
	if err != nil {
		return fmt.Errorf("getting invoice for deletion: %w", err)
	}

	if record.Filename != "" {
		if err := s.storage.Delete(record.Filename); err != nil {
			// Log error but continue with database deletion
			slog.Warn("Failed to delete file", "filename", record.Filename, "error", err)
		}
	}

	if err := s.db.DeleteRecord(id); err != nil {
		return fmt.Errorf("deleting invoice from database: %w", err)
	}
	return nil
}

// GetRecordFile retrieves the original uploaded document for a record
func (s *Service) GetRecordFile(id string) ([]byte, string, error) {
	record, err := s.db.GetRecord(id)
	if err != nil {
		return nil, "", fmt.Errorf("getting invoice: %w", err)
	}

	data, err := s.storage.Get(record.Filename)
	if err != nil {
		return nil, "", fmt.Errorf("getting invoice file: %w", err)
	}

	contentType := "application/octet-stream"
	switch document.Classify(data) {
	case document.KindPDF:
		contentType = "application/pdf"
	case document.KindJPEG:
		contentType = "image/jpeg"
	case document.KindPNG:
		contentType = "image/png"
	}

	return data, contentType, nil
}

// ExportRecord renders a record as an Excel workbook
func (s *Service) ExportRecord(id string) ([]byte, error) {
	record, err := s.db.GetRecord(id)
	if err != nil {
		return nil, fmt.Errorf("getting invoice: %w", err)
	}
	return ExportExcel(record)
}
