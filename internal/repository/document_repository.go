package repository

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"lawrag/internal/model"
)

type DocumentRepository struct {
	db     *gorm.DB
	logger *zap.SugaredLogger
}

func NewDocumentRepository(db *gorm.DB, logger *zap.SugaredLogger) *DocumentRepository {
	return &DocumentRepository{db: db, logger: logger}
}

func (r *DocumentRepository) Create(ctx context.Context, doc *model.Document) error {
	if err := r.db.WithContext(ctx).Create(doc).Error; err != nil {
		return fmt.Errorf("create document failed: %w", err)
	}
	return nil
}

// GetByID returns nil without error when the document does not exist.
func (r *DocumentRepository) GetByID(ctx context.Context, id int64) (*model.Document, error) {
	var doc model.Document
	if err := r.db.WithContext(ctx).First(&doc, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("get document failed: %w", err)
	}
	return &doc, nil
}

func (r *DocumentRepository) List(ctx context.Context) ([]model.Document, error) {
	var list []model.Document
	if err := r.db.WithContext(ctx).Order("created_at DESC").Find(&list).Error; err != nil {
		return nil, fmt.Errorf("list documents failed: %w", err)
	}
	return list, nil
}

func (r *DocumentRepository) DeleteByID(ctx context.Context, id int64) error {
	if err := r.db.WithContext(ctx).Delete(&model.Document{}, id).Error; err != nil {
		return fmt.Errorf("delete document failed: %w", err)
	}
	return nil
}

// UpdateParseStatus writes the parse lifecycle fields of a document.
func (r *DocumentRepository) UpdateParseStatus(ctx context.Context, id int64, status string, progress int, errMsg string, vectorCount int) error {
	updates := map[string]interface{}{
		"parse_status":   status,
		"parse_progress": progress,
		"parse_error":    errMsg,
	}
	if vectorCount > 0 {
		updates["vector_count"] = vectorCount
	}
	if err := r.db.WithContext(ctx).Model(&model.Document{}).Where("id = ?", id).Updates(updates).Error; err != nil {
		return fmt.Errorf("update parse status failed: %w", err)
	}
	return nil
}

// Update implements the ingestion status sink. A failed status write is
// logged and swallowed so it cannot abort the ingestion itself.
func (r *DocumentRepository) Update(ctx context.Context, documentID int64, status string, progress int, errMsg string, vectorCount int) {
	if err := r.UpdateParseStatus(ctx, documentID, status, progress, errMsg, vectorCount); err != nil {
		r.logger.Warnw("record parse status failed",
			"document_id", documentID, "status", status, "error", err)
	}
}
