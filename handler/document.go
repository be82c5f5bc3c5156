package handler

import (
	"errors"
	"io"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/legalclear/backend/service"
)

// uploadFormOverhead is headroom on top of the file size ceiling for the
// multipart boundaries and the other form fields.
const uploadFormOverhead = 64 << 10

type DocumentHandler struct {
	lifecycle *service.Lifecycle
	chat      *service.ChatService
	maxUpload int64
}

func NewDocumentHandler(lifecycle *service.Lifecycle, chat *service.ChatService, maxUpload int64) *DocumentHandler {
	return &DocumentHandler{lifecycle: lifecycle, chat: chat, maxUpload: maxUpload}
}

// documentResponse is the list/read view of a document, with the derived
// summary and complexity the client shows before analysis completes.
type documentResponse struct {
	ID               string    `json:"id"`
	Name             string    `json:"name"`
	OriginalFilename string    `json:"original_filename"`
	DocumentType     string    `json:"document_type"`
	UploadDate       time.Time `json:"upload_date"`
	Status           string    `json:"status"`
	UserNotes        string    `json:"user_notes"`
	FileSize         int64     `json:"file_size"`
	Summary          string    `json:"summary"`
	Complexity       string    `json:"complexity"`
	ErrorMsg         string    `json:"error_msg,omitempty"`
}

func toDocumentResponse(d *service.DocumentDetail) documentResponse {
	return documentResponse{
		ID:               d.Document.ID,
		Name:             d.Document.Name,
		OriginalFilename: d.Document.OriginalFilename,
		DocumentType:     d.Document.DocumentType,
		UploadDate:       d.Document.UploadDate,
		Status:           d.Document.Status,
		UserNotes:        d.Document.UserNotes,
		FileSize:         d.Document.FileSize,
		Summary:          d.Summary,
		Complexity:       d.Complexity,
		ErrorMsg:         d.Document.ErrorMsg,
	}
}

// Upload handles a multipart document upload and starts the analysis.
func (h *DocumentHandler) Upload(c *gin.Context) {
	// Bound the body before the multipart parser buffers it, so an oversized
	// upload is rejected without reading it into memory.
	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, h.maxUpload+uploadFormOverhead)

	file, header, err := c.Request.FormFile("file")
	if err != nil {
		var maxErr *http.MaxBytesError
		if errors.As(err, &maxErr) {
			c.JSON(http.StatusBadRequest, gin.H{"error": "File too large"})
			return
		}
		c.JSON(http.StatusBadRequest, gin.H{"error": "No file provided"})
		return
	}
	defer file.Close()

	name := c.PostForm("document_name")
	docType := c.PostForm("document_type")
	notes := c.PostForm("notes")

	data, err := io.ReadAll(file)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Failed to read file"})
		return
	}

	doc, err := h.lifecycle.CreateDocument(c.Request.Context(), service.UploadInput{
		Filename:    header.Filename,
		ContentType: header.Header.Get("Content-Type"),
		Data:        data,
		Name:        name,
		Type:        docType,
		Notes:       notes,
	})
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"document_id": doc.ID,
		"status":      doc.Status,
		"message":     "Document uploaded successfully and analysis started",
	})
}

// List returns all documents, most recent upload first.
func (h *DocumentHandler) List(c *gin.Context) {
	details, err := h.lifecycle.ListDocuments(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}

	result := make([]documentResponse, len(details))
	for i, d := range details {
		result[i] = toDocumentResponse(d)
	}

	c.JSON(http.StatusOK, result)
}

// Get returns a single document, including its analysis when available.
func (h *DocumentHandler) Get(c *gin.Context) {
	detail, err := h.lifecycle.GetDocument(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}

	resp := gin.H{
		"id":                detail.Document.ID,
		"name":              detail.Document.Name,
		"original_filename": detail.Document.OriginalFilename,
		"document_type":     detail.Document.DocumentType,
		"upload_date":       detail.Document.UploadDate,
		"updated_at":        detail.Document.UpdatedAt,
		"status":            detail.Document.Status,
		"user_notes":        detail.Document.UserNotes,
		"file_size":         detail.Document.FileSize,
		"summary":           detail.Summary,
		"complexity":        detail.Complexity,
	}
	if detail.Document.ErrorMsg != "" {
		resp["error_msg"] = detail.Document.ErrorMsg
	}
	if detail.Analysis != nil {
		resp["analysis"] = detail.Analysis
	}

	c.JSON(http.StatusOK, resp)
}

// GetStatus returns the lifecycle status for polling clients.
func (h *DocumentHandler) GetStatus(c *gin.Context) {
	detail, err := h.lifecycle.GetDocument(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"id":        detail.Document.ID,
		"status":    detail.Document.Status,
		"error_msg": detail.Document.ErrorMsg,
	})
}

// GetAnalysis returns the analysis, or 404 while it is not yet available.
func (h *DocumentHandler) GetAnalysis(c *gin.Context) {
	analysis, err := h.lifecycle.GetAnalysis(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, analysis)
}

// Delete removes a document, its analysis and its chat history.
func (h *DocumentHandler) Delete(c *gin.Context) {
	id := c.Param("id")
	if err := h.lifecycle.DeleteDocument(c.Request.Context(), id); err != nil {
		respondError(c, err)
		return
	}

	if h.chat != nil {
		h.chat.InvalidateDocument(c.Request.Context(), id)
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"message": "Document deleted successfully",
	})
}

// Download returns a presigned URL for the original uploaded file.
func (h *DocumentHandler) Download(c *gin.Context) {
	url, err := h.lifecycle.DownloadURL(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"url": url})
}
