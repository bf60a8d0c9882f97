package model

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"grimoire-backend/internal/shared/response"
	"grimoire-backend/pkg/logger"
)

var (
	ErrBookNotFound    = errors.New("book not found")
	ErrNotOwner        = errors.New("caller is not the owner of this book")
	ErrImageRequired   = errors.New("an image file is required")
	ErrInvalidImage    = errors.New("uploaded file is not a valid image")
	ErrImageTooLarge   = errors.New("image exceeds maximum upload size")
	ErrDuplicateRating = errors.New("user has already rated this book")
	ErrGradeOutOfRange = errors.New("grade is outside the accepted range")
)

var bookErrorMap = map[error]struct {
	Status  int
	Code    string
	Message string
}{
	ErrBookNotFound: {
		Status:  http.StatusNotFound,
		Code:    "BOOK_NOT_FOUND",
		Message: "The specified book does not exist",
	},
	ErrNotOwner: {
		Status:  http.StatusForbidden,
		Code:    "NOT_OWNER",
		Message: "Only the owner may modify this book",
	},
	ErrImageRequired: {
		Status:  http.StatusBadRequest,
		Code:    "IMAGE_REQUIRED",
		Message: "An image file must be attached",
	},
	ErrInvalidImage: {
		Status:  http.StatusBadRequest,
		Code:    "INVALID_IMAGE",
		Message: "The uploaded file could not be decoded as an image",
	},
	ErrImageTooLarge: {
		Status:  http.StatusBadRequest,
		Code:    "IMAGE_TOO_LARGE",
		Message: "The uploaded image exceeds the size limit",
	},
	ErrDuplicateRating: {
		Status:  http.StatusConflict,
		Code:    "DUPLICATE_RATING",
		Message: "User has already rated this book",
	},
	ErrGradeOutOfRange: {
		Status:  http.StatusBadRequest,
		Code:    "GRADE_OUT_OF_RANGE",
		Message: "The grade is outside the accepted range",
	},
}

// HandleBookError maps a service error to its HTTP response. Returns true
// when a response was written. Unrecognized errors become a 500; collaborator
// failures surface this way without retry.
func HandleBookError(c *gin.Context, err error) bool {
	if err == nil {
		return false
	}

	for sentinel, cfg := range bookErrorMap {
		if errors.Is(err, sentinel) {
			response.ErrorResponse(c, cfg.Status, cfg.Code, cfg.Message)
			return true
		}
	}

	logger.Error("unhandled book error", err)
	response.InternalServerError(c, "Internal server error")
	return true
}
