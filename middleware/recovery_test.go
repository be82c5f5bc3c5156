package middleware

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
)

func TestRecoveryMiddleware(t *testing.T) {
	router := gin.New()
	router.Use(RequestID())
	router.Use(Recovery())
	router.GET("/api/documents/:id/analysis", func(c *gin.Context) {
		panic("analysis row vanished")
	})
	router.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	t.Run("panic becomes 500 with request id", func(t *testing.T) {
		req := httptest.NewRequest("GET", "/api/documents/doc-1/analysis", nil)
		req.Header.Set("X-Request-ID", "req-panic-1")
		w := httptest.NewRecorder()

		router.ServeHTTP(w, req)

		if w.Code != http.StatusInternalServerError {
			t.Errorf("Expected status 500, got %d", w.Code)
		}

		var resp map[string]string
		if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
			t.Fatalf("Failed to parse response: %v", err)
		}
		if resp["error"] != "Internal server error" {
			t.Errorf("Expected generic error message, got '%s'", resp["error"])
		}
		if resp["request_id"] != "req-panic-1" {
			t.Errorf("Expected request_id 'req-panic-1', got '%s'", resp["request_id"])
		}
	})

	t.Run("router survives the panic", func(t *testing.T) {
		req := httptest.NewRequest("GET", "/healthz", nil)
		w := httptest.NewRecorder()

		router.ServeHTTP(w, req)

		if w.Code != http.StatusOK {
			t.Errorf("Expected status 200, got %d", w.Code)
		}
	})
}
