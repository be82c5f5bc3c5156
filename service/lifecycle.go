package service

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/legalclear/backend/model"
	"github.com/legalclear/backend/pkg/logger"
)

// UploadInput carries a validated upload request into the lifecycle manager.
type UploadInput struct {
	Filename    string
	ContentType string
	Data        []byte
	Name        string
	Type        string
	Notes       string
}

// DocumentDetail is a document together with its analysis (when present) and
// the derived summary and complexity used by the client before analysis
// completes.
type DocumentDetail struct {
	Document   *model.Document
	Analysis   *model.Analysis
	Summary    string
	Complexity string
}

// Lifecycle owns document state transitions: it validates and extracts
// uploads, persists records, runs the analysis in the background and exposes
// the read and delete operations.
type Lifecycle struct {
	store     Store
	extractor *Extractor
	analyzer  *Analyzer
	files     *MinioService // nil when object storage is not configured
	timeout   time.Duration
}

func NewLifecycle(store Store, extractor *Extractor, analyzer *Analyzer, files *MinioService, analysisTimeout time.Duration) *Lifecycle {
	return &Lifecycle{
		store:     store,
		extractor: extractor,
		analyzer:  analyzer,
		files:     files,
		timeout:   analysisTimeout,
	}
}

// CreateDocument validates the upload, extracts its text, persists the
// document with status uploaded and starts the analysis in the background.
// Validation and extraction failures are returned synchronously; analysis
// failures surface later through the document status.
func (l *Lifecycle) CreateDocument(ctx context.Context, in UploadInput) (*model.Document, error) {
	if in.Name == "" {
		return nil, fmt.Errorf("%w: document_name is required", ErrInvalidInput)
	}
	if !model.IsValidDocumentType(in.Type) {
		return nil, fmt.Errorf("%w: unknown document type %q", ErrInvalidInput, in.Type)
	}
	if err := l.extractor.Validate(in.Filename, in.ContentType, int64(len(in.Data))); err != nil {
		return nil, err
	}

	text, err := l.extractor.Extract(in.Filename, in.Data)
	if err != nil {
		return nil, err
	}

	doc := &model.Document{
		ID:               uuid.New().String(),
		Name:             in.Name,
		OriginalFilename: in.Filename,
		DocumentType:     in.Type,
		UserNotes:        in.Notes,
		Status:           model.StatusUploaded,
		ContentText:      text,
		FileSize:         int64(len(in.Data)),
		UploadDate:       time.Now(),
	}

	if l.files != nil {
		objectName := fmt.Sprintf("%s/%s", doc.ID, in.Filename)
		if err := l.files.UploadDocument(ctx, objectName, in.Data, in.ContentType); err != nil {
			return nil, fmt.Errorf("failed to store original file: %w", err)
		}
		doc.ObjectName = objectName
	}

	if err := l.store.SaveDocument(ctx, doc); err != nil {
		return nil, err
	}

	go l.runAnalysis(doc.ID)

	return doc, nil
}

// runAnalysis drives the uploaded -> analyzing -> analyzed/error transitions.
// It is detached from the upload request and bounded by the configured
// analysis timeout so a stalled collaborator cannot leave a document in
// analyzing forever.
func (l *Lifecycle) runAnalysis(documentID string) {
	ctx, cancel := context.WithTimeout(context.Background(), l.timeout)
	defer cancel()
	ctx = context.WithValue(ctx, logger.DocumentIDKey, documentID)

	if err := l.store.UpdateStatus(ctx, documentID, model.StatusAnalyzing, ""); err != nil {
		logger.Error(ctx, "failed to mark document analyzing", "error", err)
		l.recordFailure(documentID, err)
		return
	}

	// A store failure here must still land the document in error: the status
	// field is the only signal the polling client has.
	doc, err := l.store.GetDocument(ctx, documentID)
	if err != nil {
		logger.Error(ctx, "failed to load document for analysis", "error", err)
		l.recordFailure(documentID, err)
		return
	}

	analysis, err := l.analyzer.Analyze(ctx, doc)
	if err != nil {
		logger.Error(ctx, "analysis failed", "error", err)
		l.recordFailure(documentID, err)
		return
	}

	if err := l.store.SaveAnalysis(ctx, analysis); err != nil {
		logger.Error(ctx, "failed to persist analysis", "error", err)
		l.recordFailure(documentID, err)
		return
	}

	logger.Info(ctx, "analysis completed",
		"risk_level", analysis.RiskLevel,
		"overall_score", analysis.OverallScore,
	)
}

// recordFailure moves the document to error with a fresh context: the
// analysis context may already be past its deadline.
func (l *Lifecycle) recordFailure(documentID string, cause error) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := l.store.UpdateStatus(ctx, documentID, model.StatusError, cause.Error()); err != nil {
		logger.Error(ctx, "failed to record analysis error", "document_id", documentID, "error", err)
	}
}

// GetDocument returns the document with its analysis and derived fields.
func (l *Lifecycle) GetDocument(ctx context.Context, id string) (*DocumentDetail, error) {
	doc, err := l.store.GetDocument(ctx, id)
	if err != nil {
		return nil, err
	}

	detail := &DocumentDetail{
		Document:   doc,
		Summary:    GenerateSummary(doc.ContentText, doc.DocumentType),
		Complexity: AnalyzeComplexity(doc.ContentText),
	}

	analysis, err := l.store.GetAnalysis(ctx, id)
	if err == nil {
		detail.Analysis = analysis
	}

	return detail, nil
}

// ListDocuments returns all documents, most recent upload first.
func (l *Lifecycle) ListDocuments(ctx context.Context) ([]*DocumentDetail, error) {
	docs, err := l.store.ListDocuments(ctx)
	if err != nil {
		return nil, err
	}

	result := make([]*DocumentDetail, len(docs))
	for i, doc := range docs {
		result[i] = &DocumentDetail{
			Document:   doc,
			Summary:    GenerateSummary(doc.ContentText, doc.DocumentType),
			Complexity: AnalyzeComplexity(doc.ContentText),
		}
	}
	return result, nil
}

// GetAnalysis returns the analysis for a document. ErrNotFound means either
// the document does not exist or it has not been analyzed yet; callers that
// need to distinguish the two should check the document first.
func (l *Lifecycle) GetAnalysis(ctx context.Context, documentID string) (*model.Analysis, error) {
	return l.store.GetAnalysis(ctx, documentID)
}

// DeleteDocument removes the document, its analysis, its chat history and the
// stored original file. Deleting a missing document returns ErrNotFound.
func (l *Lifecycle) DeleteDocument(ctx context.Context, id string) error {
	doc, err := l.store.GetDocument(ctx, id)
	if err != nil {
		return err
	}

	if err := l.store.DeleteDocument(ctx, id); err != nil {
		return err
	}

	if l.files != nil && doc.ObjectName != "" {
		if err := l.files.DeleteDocument(ctx, doc.ObjectName); err != nil {
			logger.Warn(ctx, "failed to delete stored file", "document_id", id, "error", err)
		}
	}

	return nil
}

// DownloadURL returns a presigned URL for the original uploaded file.
func (l *Lifecycle) DownloadURL(ctx context.Context, id string) (string, error) {
	doc, err := l.store.GetDocument(ctx, id)
	if err != nil {
		return "", err
	}
	if l.files == nil || doc.ObjectName == "" {
		return "", fmt.Errorf("%w: no stored file for document", ErrNotFound)
	}
	return l.files.GetPresignedURL(ctx, doc.ObjectName)
}
