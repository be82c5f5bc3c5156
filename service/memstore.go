package service

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/legalclear/backend/model"
)

// MemoryStore is an in-memory Store used by tests and as a fallback when no
// database is configured. All mutations take the write lock, so per-document
// updates are atomic.
type MemoryStore struct {
	mu        sync.RWMutex
	documents map[string]*model.Document
	analyses  map[string]*model.Analysis // keyed by document ID
	messages  []*model.ChatMessage
	nextSeq   uint64
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		documents: make(map[string]*model.Document),
		analyses:  make(map[string]*model.Analysis),
	}
}

func (s *MemoryStore) SaveDocument(_ context.Context, doc *model.Document) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	doc.UpdatedAt = time.Now()
	copied := *doc
	s.documents[doc.ID] = &copied
	return nil
}

func (s *MemoryStore) GetDocument(_ context.Context, id string) (*model.Document, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	doc, ok := s.documents[id]
	if !ok {
		return nil, ErrNotFound
	}
	copied := *doc
	return &copied, nil
}

func (s *MemoryStore) ListDocuments(_ context.Context) ([]*model.Document, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	result := make([]*model.Document, 0, len(s.documents))
	for _, doc := range s.documents {
		copied := *doc
		result = append(result, &copied)
	}
	// Most recent upload first
	sort.Slice(result, func(i, j int) bool {
		return result[i].UploadDate.After(result[j].UploadDate)
	})
	return result, nil
}

func (s *MemoryStore) DeleteDocument(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.documents[id]; !ok {
		return ErrNotFound
	}
	delete(s.documents, id)
	delete(s.analyses, id)

	kept := s.messages[:0]
	for _, msg := range s.messages {
		if msg.DocumentID != id {
			kept = append(kept, msg)
		}
	}
	s.messages = kept
	return nil
}

func (s *MemoryStore) UpdateStatus(_ context.Context, id, status, errMsg string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	doc, ok := s.documents[id]
	if !ok {
		return ErrNotFound
	}
	if !model.CanTransition(doc.Status, status) {
		return fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, doc.Status, status)
	}
	doc.Status = status
	doc.ErrorMsg = errMsg
	doc.UpdatedAt = time.Now()
	return nil
}

func (s *MemoryStore) SaveAnalysis(_ context.Context, analysis *model.Analysis) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	doc, ok := s.documents[analysis.DocumentID]
	if !ok {
		return ErrNotFound
	}
	if !model.CanTransition(doc.Status, model.StatusAnalyzed) {
		return fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, doc.Status, model.StatusAnalyzed)
	}

	copied := *analysis
	s.analyses[analysis.DocumentID] = &copied
	doc.Status = model.StatusAnalyzed
	doc.ErrorMsg = ""
	doc.UpdatedAt = time.Now()
	return nil
}

func (s *MemoryStore) GetAnalysis(_ context.Context, documentID string) (*model.Analysis, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	analysis, ok := s.analyses[documentID]
	if !ok {
		return nil, ErrNotFound
	}
	copied := *analysis
	return &copied, nil
}

func (s *MemoryStore) AppendChatMessage(_ context.Context, msg *model.ChatMessage) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.nextSeq++
	msg.Seq = s.nextSeq
	copied := *msg
	s.messages = append(s.messages, &copied)
	return nil
}

func (s *MemoryStore) ListChatMessages(_ context.Context, documentID, sessionID string) ([]*model.ChatMessage, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var result []*model.ChatMessage
	for _, msg := range s.messages {
		if msg.DocumentID != documentID {
			continue
		}
		if sessionID != "" && msg.SessionID != sessionID {
			continue
		}
		copied := *msg
		result = append(result, &copied)
	}
	return result, nil
}

// Count returns the number of documents in the store.
func (s *MemoryStore) Count() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.documents)
}
