package handler

import (
	"encoding/json"
	"io"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"grimoire-backend/internal/domains/book/model"
	"grimoire-backend/internal/domains/book/service"
	"grimoire-backend/internal/shared/middleware"
	"grimoire-backend/internal/shared/response"
	"grimoire-backend/pkg/logger"
)

// Handler binds the catalog operations to HTTP. Create and update accept
// multipart payloads: a "book" JSON part plus an "image" file part.
type Handler struct {
	service service.ServiceInterface
}

func NewHandler(service service.ServiceInterface) *Handler {
	return &Handler{service: service}
}

// ListBooks - GET /v1/books
func (h *Handler) ListBooks(c *gin.Context) {
	books, err := h.service.ListBooks(c.Request.Context())
	if model.HandleBookError(c, err) {
		return
	}
	response.Success(c, http.StatusOK, books)
}

// GetBook - GET /v1/books/:id
func (h *Handler) GetBook(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}

	book, err := h.service.GetBook(c.Request.Context(), id)
	if model.HandleBookError(c, err) {
		return
	}
	response.Success(c, http.StatusOK, book)
}

// TopRatedBooks - GET /v1/books/bestrating
func (h *Handler) TopRatedBooks(c *gin.Context) {
	books, err := h.service.TopRatedBooks(c.Request.Context())
	if model.HandleBookError(c, err) {
		return
	}
	response.Success(c, http.StatusOK, books)
}

// CreateBook - POST /v1/books
func (h *Handler) CreateBook(c *gin.Context) {
	callerID, ok := middleware.CallerID(c)
	if !ok {
		response.Unauthorized(c, "missing caller identity")
		return
	}

	var req model.CreateBookRequest
	if err := json.Unmarshal([]byte(c.PostForm("book")), &req); err != nil {
		response.BadRequest(c, "invalid book payload")
		return
	}

	if err := req.Validate(); err != nil {
		response.ErrorWithDetails(c, http.StatusBadRequest, "VALIDATION_FAILED", "Validation failed", err.Error())
		return
	}

	image, ok := readImageFile(c)
	if !ok {
		return
	}

	book, err := h.service.CreateBook(c.Request.Context(), callerID, req, image)
	if model.HandleBookError(c, err) {
		return
	}

	response.Success(c, http.StatusCreated, book)
}

// UpdateBook - PUT /v1/books/:id
// Accepts multipart (book part + optional image) or a bare JSON body when no
// image is being replaced.
func (h *Handler) UpdateBook(c *gin.Context) {
	callerID, ok := middleware.CallerID(c)
	if !ok {
		response.Unauthorized(c, "missing caller identity")
		return
	}

	id, ok := parseID(c)
	if !ok {
		return
	}

	var req model.UpdateBookRequest
	var image []byte

	if strings.HasPrefix(c.ContentType(), "multipart/form-data") {
		if err := json.Unmarshal([]byte(c.PostForm("book")), &req); err != nil {
			response.BadRequest(c, "invalid book payload")
			return
		}
		image, ok = readOptionalImageFile(c)
		if !ok {
			return
		}
	} else {
		if err := c.ShouldBindJSON(&req); err != nil {
			response.BadRequest(c, "invalid request body")
			return
		}
	}

	if err := req.Validate(); err != nil {
		response.ErrorWithDetails(c, http.StatusBadRequest, "VALIDATION_FAILED", "Validation failed", err.Error())
		return
	}

	book, err := h.service.UpdateBook(c.Request.Context(), id, callerID, req, image)
	if model.HandleBookError(c, err) {
		return
	}

	response.Success(c, http.StatusOK, book)
}

// DeleteBook - DELETE /v1/books/:id
func (h *Handler) DeleteBook(c *gin.Context) {
	callerID, ok := middleware.CallerID(c)
	if !ok {
		response.Unauthorized(c, "missing caller identity")
		return
	}

	id, ok := parseID(c)
	if !ok {
		return
	}

	err := h.service.DeleteBook(c.Request.Context(), id, callerID)
	if model.HandleBookError(c, err) {
		return
	}

	response.Success(c, http.StatusOK, gin.H{"message": "book deleted"})
}

// RateBook - POST /v1/books/:id/rating
func (h *Handler) RateBook(c *gin.Context) {
	callerID, ok := middleware.CallerID(c)
	if !ok {
		response.Unauthorized(c, "missing caller identity")
		return
	}

	id, ok := parseID(c)
	if !ok {
		return
	}

	var req model.RateBookRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "invalid request body")
		return
	}

	book, err := h.service.RateBook(c.Request.Context(), id, callerID, req.Rating)
	if model.HandleBookError(c, err) {
		return
	}

	response.Success(c, http.StatusOK, book)
}

// ExportBooks - GET /v1/books/export
func (h *Handler) ExportBooks(c *gin.Context) {
	f, err := h.service.ExportBooks(c.Request.Context())
	if model.HandleBookError(c, err) {
		return
	}

	c.Header("Content-Disposition", `attachment; filename="catalog.xlsx"`)
	c.Header("Content-Type", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
	if err := f.Write(c.Writer); err != nil {
		logger.Error("failed to write export", err)
	}
}

func parseID(c *gin.Context) (uuid.UUID, bool) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.BadRequest(c, "invalid book id")
		return uuid.Nil, false
	}
	return id, true
}

// readImageFile reads the required "image" part.
func readImageFile(c *gin.Context) ([]byte, bool) {
	image, ok := readOptionalImageFile(c)
	if !ok {
		return nil, false
	}
	if len(image) == 0 {
		response.ErrorResponse(c, http.StatusBadRequest, "IMAGE_REQUIRED", "An image file must be attached")
		return nil, false
	}
	return image, true
}

// readOptionalImageFile reads the "image" part when present. A missing part
// is not an error; an unreadable one is.
func readOptionalImageFile(c *gin.Context) ([]byte, bool) {
	fileHeader, err := c.FormFile("image")
	if err != nil {
		return nil, true
	}

	file, err := fileHeader.Open()
	if err != nil {
		response.BadRequest(c, "cannot open uploaded file")
		return nil, false
	}
	defer file.Close()

	data, err := io.ReadAll(file)
	if err != nil {
		response.BadRequest(c, "cannot read uploaded file")
		return nil, false
	}
	return data, true
}
