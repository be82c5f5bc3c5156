package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/legalclear/backend/model"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
)

// Store persists documents, analyses and chat messages. The Postgres
// implementation is used in production; tests use the in-memory store.
type Store interface {
	SaveDocument(ctx context.Context, doc *model.Document) error
	GetDocument(ctx context.Context, id string) (*model.Document, error)
	ListDocuments(ctx context.Context) ([]*model.Document, error)
	// DeleteDocument removes the document and cascades to its analysis and
	// chat messages. Returns ErrNotFound if the document does not exist.
	DeleteDocument(ctx context.Context, id string) error
	// UpdateStatus moves the document to a new lifecycle status. The
	// transition is validated; ErrInvalidTransition is returned for moves the
	// state machine forbids.
	UpdateStatus(ctx context.Context, id, status, errMsg string) error
	// SaveAnalysis writes the analysis and flips the document to analyzed in
	// a single transaction, so readers never observe one without the other.
	SaveAnalysis(ctx context.Context, analysis *model.Analysis) error
	GetAnalysis(ctx context.Context, documentID string) (*model.Analysis, error)
	AppendChatMessage(ctx context.Context, msg *model.ChatMessage) error
	ListChatMessages(ctx context.Context, documentID, sessionID string) ([]*model.ChatMessage, error)
}

// GormStore is the Postgres-backed Store.
type GormStore struct {
	db *gorm.DB
}

// OpenDatabase connects to Postgres and optionally runs schema migration.
func OpenDatabase(dsn string, autoMigrate bool) (*gorm.DB, error) {
	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to postgres: %w", err)
	}

	if autoMigrate {
		if err := db.AutoMigrate(&model.Document{}, &model.Analysis{}, &model.ChatMessage{}); err != nil {
			return nil, fmt.Errorf("failed to migrate schema: %w", err)
		}
	}

	return db, nil
}

func NewGormStore(db *gorm.DB) *GormStore {
	return &GormStore{db: db}
}

func (s *GormStore) SaveDocument(ctx context.Context, doc *model.Document) error {
	doc.UpdatedAt = time.Now()
	return s.db.WithContext(ctx).Save(doc).Error
}

func (s *GormStore) GetDocument(ctx context.Context, id string) (*model.Document, error) {
	var doc model.Document
	err := s.db.WithContext(ctx).First(&doc, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &doc, nil
}

func (s *GormStore) ListDocuments(ctx context.Context) ([]*model.Document, error) {
	var docs []*model.Document
	err := s.db.WithContext(ctx).Order("upload_date DESC").Find(&docs).Error
	if err != nil {
		return nil, err
	}
	return docs, nil
}

func (s *GormStore) DeleteDocument(ctx context.Context, id string) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		res := tx.Delete(&model.Document{}, "id = ?", id)
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return ErrNotFound
		}
		if err := tx.Delete(&model.Analysis{}, "document_id = ?", id).Error; err != nil {
			return err
		}
		return tx.Delete(&model.ChatMessage{}, "document_id = ?", id).Error
	})
}

func (s *GormStore) UpdateStatus(ctx context.Context, id, status, errMsg string) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var doc model.Document
		if err := tx.First(&doc, "id = ?", id).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrNotFound
			}
			return err
		}
		if !model.CanTransition(doc.Status, status) {
			return fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, doc.Status, status)
		}
		return tx.Model(&doc).Updates(map[string]interface{}{
			"status":     status,
			"error_msg":  errMsg,
			"updated_at": time.Now(),
		}).Error
	})
}

func (s *GormStore) SaveAnalysis(ctx context.Context, analysis *model.Analysis) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var doc model.Document
		if err := tx.First(&doc, "id = ?", analysis.DocumentID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrNotFound
			}
			return err
		}
		if !model.CanTransition(doc.Status, model.StatusAnalyzed) {
			return fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, doc.Status, model.StatusAnalyzed)
		}
		if err := tx.Create(analysis).Error; err != nil {
			return err
		}
		return tx.Model(&doc).Updates(map[string]interface{}{
			"status":     model.StatusAnalyzed,
			"error_msg":  "",
			"updated_at": time.Now(),
		}).Error
	})
}

func (s *GormStore) GetAnalysis(ctx context.Context, documentID string) (*model.Analysis, error) {
	var analysis model.Analysis
	err := s.db.WithContext(ctx).First(&analysis, "document_id = ?", documentID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &analysis, nil
}

func (s *GormStore) AppendChatMessage(ctx context.Context, msg *model.ChatMessage) error {
	return s.db.WithContext(ctx).Create(msg).Error
}

func (s *GormStore) ListChatMessages(ctx context.Context, documentID, sessionID string) ([]*model.ChatMessage, error) {
	var msgs []*model.ChatMessage
	q := s.db.WithContext(ctx).Where("document_id = ?", documentID)
	if sessionID != "" {
		q = q.Where("session_id = ?", sessionID)
	}
	if err := q.Order("seq ASC").Find(&msgs).Error; err != nil {
		return nil, err
	}
	return msgs, nil
}
