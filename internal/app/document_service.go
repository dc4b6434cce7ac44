package app

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"go.uber.org/zap"

	"lawrag/internal/model"
	"lawrag/internal/repository"
	"lawrag/internal/vectorindex"
)

var (
	ErrInvalidInput        = errors.New("invalid input")
	ErrDocumentNotFound    = errors.New("document not found")
	ErrUnsupportedFileType = errors.New("unsupported file type")
)

var supportedFileTypes = map[string]bool{
	"pdf":  true,
	"docx": true,
	"doc":  true,
	"txt":  true,
	"md":   true,
}

// TaskQueue accepts parse tasks for asynchronous processing.
type TaskQueue interface {
	Publish(ctx context.Context, task model.ParseTask) error
}

// DocumentService owns the document registry: uploads, status, listing
// and deletion. Parsing itself happens asynchronously in the worker.
type DocumentService struct {
	repo      *repository.DocumentRepository
	queue     TaskQueue
	index     vectorindex.Index
	uploadDir string
	maxSize   int64
	logger    *zap.SugaredLogger
}

func NewDocumentService(repo *repository.DocumentRepository, queue TaskQueue, index vectorindex.Index, uploadDir string, maxSize int64, logger *zap.SugaredLogger) *DocumentService {
	return &DocumentService{
		repo:      repo,
		queue:     queue,
		index:     index,
		uploadDir: uploadDir,
		maxSize:   maxSize,
		logger:    logger,
	}
}

// UploadInput carries one uploaded file stream.
type UploadInput struct {
	Title    string
	FileName string
	Size     int64
	Content  io.Reader
}

// Upload stores the file, registers the document as PENDING and queues
// a parse task. The document is accepted once the task is published;
// parsing progress is visible through Status.
func (s *DocumentService) Upload(ctx context.Context, input UploadInput) (*model.Document, error) {
	fileName := strings.TrimSpace(input.FileName)
	if fileName == "" || input.Content == nil {
		return nil, ErrInvalidInput
	}
	if s.maxSize > 0 && input.Size > s.maxSize {
		return nil, fmt.Errorf("%w: file exceeds %d bytes", ErrInvalidInput, s.maxSize)
	}

	fileType := strings.ToLower(strings.TrimPrefix(filepath.Ext(fileName), "."))
	if !supportedFileTypes[fileType] {
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedFileType, fileType)
	}

	title := strings.TrimSpace(input.Title)
	if title == "" {
		title = strings.TrimSuffix(fileName, filepath.Ext(fileName))
	}

	if err := os.MkdirAll(s.uploadDir, 0o755); err != nil {
		return nil, fmt.Errorf("create upload dir failed: %w", err)
	}
	storedName := fmt.Sprintf("%d_%s", time.Now().UnixNano(), filepath.Base(fileName))
	storedPath := filepath.Join(s.uploadDir, storedName)

	dst, err := os.Create(storedPath)
	if err != nil {
		return nil, fmt.Errorf("store upload failed: %w", err)
	}
	written, err := io.Copy(dst, input.Content)
	if closeErr := dst.Close(); err == nil {
		err = closeErr
	}
	if err != nil {
		_ = os.Remove(storedPath)
		return nil, fmt.Errorf("store upload failed: %w", err)
	}

	doc := &model.Document{
		Title:       title,
		FileName:    fileName,
		FilePath:    storedPath,
		FileType:    fileType,
		FileSize:    written,
		ParseStatus: model.ParseStatusPending,
	}
	if err := s.repo.Create(ctx, doc); err != nil {
		_ = os.Remove(storedPath)
		return nil, err
	}

	if err := s.publishParseTask(ctx, doc); err != nil {
		return nil, err
	}

	s.logger.Infow("document accepted", "document_id", doc.ID, "file", fileName, "bytes", written)
	return doc, nil
}

// Reparse re-queues an existing document, clearing previous vectors so
// the re-ingested chunks replace them.
func (s *DocumentService) Reparse(ctx context.Context, id int64) (*model.Document, error) {
	doc, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}

	if err := s.index.DeleteByDocument(ctx, doc.ID); err != nil {
		return nil, fmt.Errorf("clear previous vectors failed: %w", err)
	}
	if err := s.repo.UpdateParseStatus(ctx, doc.ID, model.ParseStatusPending, 0, "", 0); err != nil {
		return nil, err
	}
	doc.ParseStatus = model.ParseStatusPending
	doc.ParseProgress = 0
	doc.ParseError = ""

	if err := s.publishParseTask(ctx, doc); err != nil {
		return nil, err
	}
	return doc, nil
}

func (s *DocumentService) publishParseTask(ctx context.Context, doc *model.Document) error {
	task := model.ParseTask{
		DocumentID: doc.ID,
		FilePath:   doc.FilePath,
		FileType:   doc.FileType,
	}
	if err := s.queue.Publish(ctx, task); err != nil {
		return fmt.Errorf("queue parse task failed: %w", err)
	}
	return nil
}

func (s *DocumentService) Get(ctx context.Context, id int64) (*model.Document, error) {
	if id <= 0 {
		return nil, ErrInvalidInput
	}
	doc, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if doc == nil {
		return nil, ErrDocumentNotFound
	}
	return doc, nil
}

func (s *DocumentService) List(ctx context.Context) ([]model.Document, error) {
	return s.repo.List(ctx)
}

// Delete removes the document row, its indexed vectors and the stored
// file. Vector deletion is idempotent, so retrying a half-finished
// delete is safe.
func (s *DocumentService) Delete(ctx context.Context, id int64) error {
	doc, err := s.Get(ctx, id)
	if err != nil {
		return err
	}

	if err := s.index.DeleteByDocument(ctx, doc.ID); err != nil {
		return fmt.Errorf("delete document vectors failed: %w", err)
	}
	if err := s.repo.DeleteByID(ctx, doc.ID); err != nil {
		return err
	}
	if doc.FilePath != "" {
		if err := os.Remove(doc.FilePath); err != nil && !os.IsNotExist(err) {
			s.logger.Warnw("remove stored file failed", "document_id", doc.ID, "path", doc.FilePath, "error", err)
		}
	}
	return nil
}
