package handler

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"lawrag/internal/app"
	"lawrag/internal/transport/http/response"
)

type DocumentHandler struct {
	documents *app.DocumentService
}

func NewDocumentHandler(documents *app.DocumentService) *DocumentHandler {
	return &DocumentHandler{documents: documents}
}

// Upload accepts a multipart file and queues it for parsing. The
// response carries the registered document in PENDING state.
func (h *DocumentHandler) Upload(c *gin.Context) {
	fileHeader, err := c.FormFile("file")
	if err != nil {
		response.Error(c, http.StatusBadRequest, response.CodeBadRequest, "missing file field")
		return
	}

	file, err := fileHeader.Open()
	if err != nil {
		response.Error(c, http.StatusBadRequest, response.CodeBadRequest, "open uploaded file failed")
		return
	}
	defer file.Close()

	doc, err := h.documents.Upload(c.Request.Context(), app.UploadInput{
		Title:    c.PostForm("title"),
		FileName: fileHeader.Filename,
		Size:     fileHeader.Size,
		Content:  file,
	})
	if err != nil {
		switch {
		case errors.Is(err, app.ErrUnsupportedFileType):
			response.Error(c, http.StatusBadRequest, response.CodeUnsupportedFile, err.Error())
		case errors.Is(err, app.ErrInvalidInput):
			response.Error(c, http.StatusBadRequest, response.CodeBadRequest, err.Error())
		default:
			response.Error(c, http.StatusInternalServerError, response.CodeInternalServer, "upload document failed")
		}
		return
	}
	response.OK(c, doc)
}

func (h *DocumentHandler) List(c *gin.Context) {
	docs, err := h.documents.List(c.Request.Context())
	if err != nil {
		response.Error(c, http.StatusInternalServerError, response.CodeInternalServer, "list documents failed")
		return
	}
	response.OK(c, docs)
}

func (h *DocumentHandler) Status(c *gin.Context) {
	id, err := parseIDParam(c)
	if err != nil {
		response.Error(c, http.StatusBadRequest, response.CodeBadRequest, "invalid document id")
		return
	}

	doc, err := h.documents.Get(c.Request.Context(), id)
	if err != nil {
		if errors.Is(err, app.ErrDocumentNotFound) {
			response.Error(c, http.StatusNotFound, response.CodeDocumentNotFound, err.Error())
		} else {
			response.Error(c, http.StatusInternalServerError, response.CodeInternalServer, "get document failed")
		}
		return
	}
	response.OK(c, gin.H{
		"document_id":    doc.ID,
		"parse_status":   doc.ParseStatus,
		"parse_progress": doc.ParseProgress,
		"parse_error":    doc.ParseError,
		"vector_count":   doc.VectorCount,
	})
}

// Reparse clears a document's vectors and queues it again.
func (h *DocumentHandler) Reparse(c *gin.Context) {
	id, err := parseIDParam(c)
	if err != nil {
		response.Error(c, http.StatusBadRequest, response.CodeBadRequest, "invalid document id")
		return
	}
	h.queueParse(c, id)
}

type ParseRequest struct {
	DocumentID int64 `json:"document_id" binding:"required"`
}

// Parse triggers asynchronous ingestion of a registered document. The
// response only means the task was accepted; progress is polled
// through Status.
func (h *DocumentHandler) Parse(c *gin.Context) {
	var req ParseRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, http.StatusBadRequest, response.CodeBadRequest, "invalid request payload")
		return
	}
	h.queueParse(c, req.DocumentID)
}

func (h *DocumentHandler) queueParse(c *gin.Context, id int64) {
	doc, err := h.documents.Reparse(c.Request.Context(), id)
	if err != nil {
		if errors.Is(err, app.ErrDocumentNotFound) {
			response.Error(c, http.StatusNotFound, response.CodeDocumentNotFound, err.Error())
		} else {
			response.Error(c, http.StatusInternalServerError, response.CodeInternalServer, "reparse document failed")
		}
		return
	}
	response.OK(c, doc)
}

func (h *DocumentHandler) Delete(c *gin.Context) {
	id, err := parseIDParam(c)
	if err != nil {
		response.Error(c, http.StatusBadRequest, response.CodeBadRequest, "invalid document id")
		return
	}

	if err := h.documents.Delete(c.Request.Context(), id); err != nil {
		if errors.Is(err, app.ErrDocumentNotFound) {
			response.Error(c, http.StatusNotFound, response.CodeDocumentNotFound, err.Error())
		} else {
			response.Error(c, http.StatusInternalServerError, response.CodeInternalServer, "delete document failed")
		}
		return
	}
	response.OK(c, gin.H{"deleted_document_id": id})
}

func parseIDParam(c *gin.Context) (int64, error) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil || id <= 0 {
		return 0, errors.New("invalid id")
	}
	return id, nil
}
