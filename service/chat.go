package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/legalclear/backend/model"
	"github.com/legalclear/backend/pkg/logger"
)

// historyContextLimit is how many prior messages are included in the prompt.
const historyContextLimit = 10

// pendingAnalysisReply is returned when the document has no extracted text yet.
const pendingAnalysisReply = "Document analysis is still in progress. Please try again later."

// ChatService manages the append-only conversation threads scoped by
// (document, session) and answers user messages through the collaborator.
type ChatService struct {
	store Store
	llm   Collaborator
	cache *ChatCache // nil when redis is not configured
}

func NewChatService(store Store, llm Collaborator, cache *ChatCache) *ChatService {
	return &ChatService{store: store, llm: llm, cache: cache}
}

// PostMessage appends the user message, asks the collaborator for a reply
// using the document text and recent history as context, appends the reply
// and returns it. The user message is persisted even when the collaborator
// fails, so a retry does not lose it.
func (s *ChatService) PostMessage(ctx context.Context, documentID, sessionID, text string) (*model.ChatMessage, error) {
	if strings.TrimSpace(text) == "" {
		return nil, fmt.Errorf("%w: message is required", ErrInvalidInput)
	}

	doc, err := s.store.GetDocument(ctx, documentID)
	if err != nil {
		return nil, err
	}

	if sessionID == "" {
		sessionID = uuid.New().String()
	}

	userMsg := &model.ChatMessage{
		ID:          uuid.New().String(),
		DocumentID:  documentID,
		SessionID:   sessionID,
		MessageType: model.MessageTypeUser,
		Message:     text,
		Timestamp:   time.Now(),
	}
	if err := s.store.AppendChatMessage(ctx, userMsg); err != nil {
		return nil, err
	}
	s.cacheAppend(ctx, documentID, sessionID, userMsg)

	reply, err := s.generateReply(ctx, doc, documentID, sessionID, text)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrAnalysisFailed, err)
	}

	assistantMsg := &model.ChatMessage{
		ID:          uuid.New().String(),
		DocumentID:  documentID,
		SessionID:   sessionID,
		MessageType: model.MessageTypeAssistant,
		Message:     reply,
		Timestamp:   time.Now(),
	}
	if err := s.store.AppendChatMessage(ctx, assistantMsg); err != nil {
		return nil, err
	}
	s.cacheAppend(ctx, documentID, sessionID, assistantMsg)

	return assistantMsg, nil
}

// GetHistory returns the thread's messages in arrival order. An empty slice,
// not an error, when no messages exist. ErrNotFound when the document is gone.
func (s *ChatService) GetHistory(ctx context.Context, documentID, sessionID string) ([]*model.ChatMessage, error) {
	if _, err := s.store.GetDocument(ctx, documentID); err != nil {
		return nil, err
	}

	if s.cache != nil && sessionID != "" {
		if msgs, ok := s.cache.GetHistory(ctx, documentID, sessionID); ok {
			return msgs, nil
		}
	}

	msgs, err := s.store.ListChatMessages(ctx, documentID, sessionID)
	if err != nil {
		return nil, err
	}
	if msgs == nil {
		msgs = []*model.ChatMessage{}
	}

	if s.cache != nil && sessionID != "" && len(msgs) > 0 {
		s.cache.SetHistory(ctx, documentID, sessionID, msgs)
	}

	return msgs, nil
}

func (s *ChatService) generateReply(ctx context.Context, doc *model.Document, documentID, sessionID, question string) (string, error) {
	// Chat before analysis completes falls back to a fixed reply rather than
	// answering without document context.
	if doc.ContentText == "" {
		return pendingAnalysisReply, nil
	}
	if s.llm == nil {
		return fmt.Sprintf("Based on the document, here's what I found: %s", question), nil
	}

	history, err := s.store.ListChatMessages(ctx, documentID, sessionID)
	if err != nil {
		return "", err
	}

	return s.llm.GenerateContent(ctx, buildChatPrompt(doc.ContentText, history, question))
}

func (s *ChatService) cacheAppend(ctx context.Context, documentID, sessionID string, msg *model.ChatMessage) {
	if s.cache == nil {
		return
	}
	if err := s.cache.Append(ctx, documentID, sessionID, msg); err != nil {
		logger.Warn(ctx, "failed to cache chat message", "document_id", documentID, "error", err)
	}
}

// InvalidateDocument drops every cached thread for a deleted document.
func (s *ChatService) InvalidateDocument(ctx context.Context, documentID string) {
	if s.cache != nil {
		s.cache.Invalidate(ctx, documentID)
	}
}

// buildChatPrompt assembles the collaborator prompt from the document text,
// the most recent history and the user's question.
func buildChatPrompt(documentText string, history []*model.ChatMessage, question string) string {
	if len(history) > historyContextLimit {
		history = history[len(history)-historyContextLimit:]
	}

	var historyLines []string
	for _, msg := range history {
		historyLines = append(historyLines, fmt.Sprintf("%s: %s", titleCase(msg.MessageType), msg.Message))
	}

	var sb strings.Builder
	sb.WriteString("You are a legal contract analysis assistant. Use the following document and chat history to answer the user's question.\n\n")
	sb.WriteString("- If the user asks about a legal term, always provide a clear definition and explain its meaning in simple language.\n")
	sb.WriteString("- If the user asks about a legal concept or clause, explain it in plain English and provide context or examples if possible.\n")
	sb.WriteString("- If the user asks about the document, summarize relevant legal sections and explain what they mean.\n\n")
	sb.WriteString("Document:\n")
	sb.WriteString(capText(documentText))
	sb.WriteString("\n\nChat History:\n")
	sb.WriteString(strings.Join(historyLines, "\n"))
	sb.WriteString("\n\nUser Question: ")
	sb.WriteString(question)
	sb.WriteString("\n\nReply in clear, plain English. Reference relevant sections if possible.")

	return sb.String()
}
