package service

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/legalclear/backend/model"
)

func newChatTestStore(t *testing.T, contentText string) *MemoryStore {
	t.Helper()
	store := NewMemoryStore()
	store.SaveDocument(context.Background(), &model.Document{
		ID:           "doc-1",
		Name:         "Test Document",
		DocumentType: model.TypeContract,
		Status:       model.StatusAnalyzed,
		ContentText:  contentText,
		UploadDate:   time.Now(),
	})
	return store
}

func TestChatPostMessage(t *testing.T) {
	store := newChatTestStore(t, "The employee agrees to arbitration.")
	llm := &stubCollaborator{fn: func(_ context.Context, prompt string) (string, error) {
		if !strings.Contains(prompt, "The employee agrees to arbitration.") {
			t.Error("Expected document text in prompt")
		}
		if !strings.Contains(prompt, "User Question: What is arbitration?") {
			t.Error("Expected user question in prompt")
		}
		return "Arbitration is dispute resolution outside the courts.", nil
	}}
	chat := NewChatService(store, llm, nil)

	reply, err := chat.PostMessage(context.Background(), "doc-1", "", "What is arbitration?")
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}

	if reply.MessageType != model.MessageTypeAssistant {
		t.Errorf("Expected assistant message, got '%s'", reply.MessageType)
	}
	if reply.SessionID == "" {
		t.Error("Expected a generated session ID")
	}
	if reply.Message != "Arbitration is dispute resolution outside the courts." {
		t.Errorf("Unexpected reply: '%s'", reply.Message)
	}

	// Both the question and the reply are persisted in the same session
	history, err := chat.GetHistory(context.Background(), "doc-1", reply.SessionID)
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if len(history) != 2 {
		t.Fatalf("Expected 2 messages, got %d", len(history))
	}
	if history[0].MessageType != model.MessageTypeUser || history[1].MessageType != model.MessageTypeAssistant {
		t.Error("Expected user message followed by assistant message")
	}
}

func TestChatPostMessageEmptyText(t *testing.T) {
	chat := NewChatService(newChatTestStore(t, "text"), nil, nil)

	if _, err := chat.PostMessage(context.Background(), "doc-1", "", "   "); !errors.Is(err, ErrInvalidInput) {
		t.Errorf("Expected ErrInvalidInput, got %v", err)
	}
}

func TestChatPostMessageMissingDocument(t *testing.T) {
	chat := NewChatService(NewMemoryStore(), nil, nil)

	if _, err := chat.PostMessage(context.Background(), "missing", "", "hello"); !errors.Is(err, ErrNotFound) {
		t.Errorf("Expected ErrNotFound, got %v", err)
	}
}

func TestChatPostMessageBeforeAnalysis(t *testing.T) {
	// A document without extracted text gets the fixed pending reply
	store := newChatTestStore(t, "")
	llm := &stubCollaborator{fn: func(_ context.Context, _ string) (string, error) {
		t.Error("Model should not be called without document text")
		return "", nil
	}}
	chat := NewChatService(store, llm, nil)

	reply, err := chat.PostMessage(context.Background(), "doc-1", "session-1", "What does it say?")
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if reply.Message != pendingAnalysisReply {
		t.Errorf("Expected pending reply, got '%s'", reply.Message)
	}
}

func TestChatPostMessageModelFailure(t *testing.T) {
	store := newChatTestStore(t, "Document text.")
	llm := &stubCollaborator{fn: func(_ context.Context, _ string) (string, error) {
		return "", errors.New("model unavailable")
	}}
	chat := NewChatService(store, llm, nil)

	_, err := chat.PostMessage(context.Background(), "doc-1", "session-1", "hello")
	if !errors.Is(err, ErrAnalysisFailed) {
		t.Fatalf("Expected ErrAnalysisFailed, got %v", err)
	}

	// The user message survives so a retry does not lose it
	history, _ := chat.GetHistory(context.Background(), "doc-1", "session-1")
	if len(history) != 1 || history[0].MessageType != model.MessageTypeUser {
		t.Errorf("Expected the user message to be persisted, got %d messages", len(history))
	}
}

func TestChatGetHistoryEmpty(t *testing.T) {
	chat := NewChatService(newChatTestStore(t, "text"), nil, nil)

	history, err := chat.GetHistory(context.Background(), "doc-1", "session-1")
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if history == nil {
		t.Error("Expected empty slice, got nil")
	}
	if len(history) != 0 {
		t.Errorf("Expected 0 messages, got %d", len(history))
	}
}

func TestChatGetHistoryMissingDocument(t *testing.T) {
	chat := NewChatService(NewMemoryStore(), nil, nil)

	if _, err := chat.GetHistory(context.Background(), "missing", ""); !errors.Is(err, ErrNotFound) {
		t.Errorf("Expected ErrNotFound, got %v", err)
	}
}

func TestBuildChatPromptHistoryLimit(t *testing.T) {
	var history []*model.ChatMessage
	for i := 0; i < 15; i++ {
		msgType := model.MessageTypeUser
		if i%2 == 1 {
			msgType = model.MessageTypeAssistant
		}
		history = append(history, &model.ChatMessage{
			MessageType: msgType,
			Message:     "msg-" + string(rune('a'+i)),
		})
	}

	prompt := buildChatPrompt("document text", history, "question")

	// Only the last 10 messages make it into the prompt
	if strings.Contains(prompt, "User: msg-a") {
		t.Error("Expected oldest messages to be dropped")
	}
	if !strings.Contains(prompt, "msg-o") {
		t.Error("Expected the most recent message to be present")
	}
	if !strings.Contains(prompt, "Document:\ndocument text") {
		t.Error("Expected document text in prompt")
	}
	if !strings.Contains(prompt, "User Question: question") {
		t.Error("Expected user question in prompt")
	}
}

func TestBuildChatPromptCapsDocumentText(t *testing.T) {
	long := strings.Repeat("a", promptTextLimit+500)
	prompt := buildChatPrompt(long, nil, "question")

	if strings.Contains(prompt, strings.Repeat("a", promptTextLimit+1)) {
		t.Error("Expected document text to be capped")
	}
}
