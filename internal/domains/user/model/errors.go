package model

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"grimoire-backend/internal/shared/response"
)

var (
	ErrEmailTaken = errors.New("email already registered")
	// ErrInvalidCredentials covers both unknown email and wrong password,
	// so a login probe cannot tell which one failed.
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrUserNotFound       = errors.New("user not found")
)

type errorMapping struct {
	Status  int
	Code    string
	Message string
}

var userErrorMap = map[error]errorMapping{
	ErrEmailTaken:         {http.StatusConflict, "EMAIL_TAKEN", "An account with this email already exists"},
	ErrInvalidCredentials: {http.StatusUnauthorized, "INVALID_CREDENTIALS", "Incorrect email or password"},
	ErrUserNotFound:       {http.StatusNotFound, "USER_NOT_FOUND", "User not found"},
}

// HandleUserError writes the mapped error envelope and reports whether an
// error was handled. Unmapped errors become a generic 500.
func HandleUserError(c *gin.Context, err error) bool {
	if err == nil {
		return false
	}

	for sentinel, mapping := range userErrorMap {
		if errors.Is(err, sentinel) {
			response.ErrorResponse(c, mapping.Status, mapping.Code, mapping.Message)
			return true
		}
	}

	response.InternalServerError(c, "Something went wrong")
	return true
}
