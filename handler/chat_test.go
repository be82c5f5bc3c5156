package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/legalclear/backend/model"
	"github.com/legalclear/backend/service"
)

type fakeCollaborator struct {
	reply string
	err   error
}

func (f *fakeCollaborator) GenerateContent(_ context.Context, _ string) (string, error) {
	return f.reply, f.err
}

func newChatTestRouter(llm service.Collaborator) (*gin.Engine, *service.MemoryStore) {
	store := service.NewMemoryStore()
	h := NewChatHandler(service.NewChatService(store, llm, nil))

	router := gin.New()
	router.POST("/documents/:id/chat", h.PostMessage)
	router.GET("/documents/:id/chat", h.GetHistory)
	return router, store
}

func seedChatDocument(store *service.MemoryStore, contentText string) {
	store.SaveDocument(context.Background(), &model.Document{
		ID:          "doc-1",
		Name:        "Contract",
		Status:      model.StatusAnalyzed,
		ContentText: contentText,
		UploadDate:  time.Now(),
	})
}

func postChatMessage(t *testing.T, router *gin.Engine, docID string, body map[string]string) *httptest.ResponseRecorder {
	t.Helper()

	data, _ := json.Marshal(body)
	req := httptest.NewRequest("POST", "/documents/"+docID+"/chat", bytes.NewBuffer(data))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func TestChatPostMessageRoundTrip(t *testing.T) {
	router, store := newChatTestRouter(&fakeCollaborator{reply: "It means binding dispute resolution."})
	seedChatDocument(store, "The parties agree to arbitration.")

	w := postChatMessage(t, router, "doc-1", map[string]string{"message": "What is arbitration?"})
	if w.Code != http.StatusOK {
		t.Fatalf("Expected status 200, got %d: %s", w.Code, w.Body.String())
	}

	var resp map[string]any
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("Failed to parse response: %v", err)
	}
	if resp["type"] != model.MessageTypeAssistant {
		t.Errorf("Expected assistant message, got '%v'", resp["type"])
	}
	if resp["session_id"] == "" {
		t.Error("Expected a session_id in the response")
	}
	if resp["message"] != "It means binding dispute resolution." {
		t.Errorf("Unexpected reply: '%v'", resp["message"])
	}

	// History now holds the question and the reply
	sessionID, _ := resp["session_id"].(string)
	req := httptest.NewRequest("GET", "/documents/doc-1/chat?session_id="+sessionID, nil)
	hw := httptest.NewRecorder()
	router.ServeHTTP(hw, req)

	if hw.Code != http.StatusOK {
		t.Fatalf("Expected status 200, got %d", hw.Code)
	}

	var history []map[string]any
	if err := json.Unmarshal(hw.Body.Bytes(), &history); err != nil {
		t.Fatalf("Failed to parse history: %v", err)
	}
	if len(history) != 2 {
		t.Fatalf("Expected 2 messages, got %d", len(history))
	}
	if history[0]["type"] != model.MessageTypeUser || history[1]["type"] != model.MessageTypeAssistant {
		t.Error("Expected user message followed by assistant reply")
	}
}

func TestChatPostMessageMissingBody(t *testing.T) {
	router, store := newChatTestRouter(nil)
	seedChatDocument(store, "text")

	w := postChatMessage(t, router, "doc-1", map[string]string{})
	if w.Code != http.StatusBadRequest {
		t.Errorf("Expected status 400, got %d", w.Code)
	}
}

func TestChatPostMessageMissingDocument(t *testing.T) {
	router, _ := newChatTestRouter(nil)

	w := postChatMessage(t, router, "missing", map[string]string{"message": "hello"})
	if w.Code != http.StatusNotFound {
		t.Errorf("Expected status 404, got %d", w.Code)
	}
}

func TestChatPostMessageBeforeAnalysis(t *testing.T) {
	router, store := newChatTestRouter(&fakeCollaborator{reply: "should not be used"})
	seedChatDocument(store, "")

	w := postChatMessage(t, router, "doc-1", map[string]string{"message": "What does it say?"})
	if w.Code != http.StatusOK {
		t.Fatalf("Expected status 200, got %d", w.Code)
	}

	var resp map[string]any
	json.Unmarshal(w.Body.Bytes(), &resp)
	if resp["message"] == "should not be used" {
		t.Error("Expected the pending-analysis reply, not a model answer")
	}
}

func TestChatGetHistoryEmpty(t *testing.T) {
	router, store := newChatTestRouter(nil)
	seedChatDocument(store, "text")

	req := httptest.NewRequest("GET", "/documents/doc-1/chat", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("Expected status 200, got %d", w.Code)
	}
	// Empty history is an empty JSON array, not null
	if body := w.Body.String(); body != "[]" {
		t.Errorf("Expected empty array, got %s", body)
	}
}

func TestChatGetHistoryMissingDocument(t *testing.T) {
	router, _ := newChatTestRouter(nil)

	req := httptest.NewRequest("GET", "/documents/missing/chat", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	if w.Code != http.StatusNotFound {
		t.Errorf("Expected status 404, got %d", w.Code)
	}
}
