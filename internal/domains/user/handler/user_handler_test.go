package handler

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"

	"grimoire-backend/internal/domains/user/model"
)

type fakeUserService struct {
	user *model.User
	res  *model.LoginResponse
	err  error
}

func (f *fakeUserService) Signup(context.Context, model.SignupRequest) (*model.User, error) {
	return f.user, f.err
}

func (f *fakeUserService) Login(context.Context, model.LoginRequest) (*model.LoginResponse, error) {
	return f.res, f.err
}

func setupRouter(svc *fakeUserService) *gin.Engine {
	gin.SetMode(gin.TestMode)
	h := NewHandler(svc)

	router := gin.New()
	auth := router.Group("/auth")
	{
		auth.POST("/signup", h.Signup)
		auth.POST("/login", h.Login)
	}
	return router
}

func postJSON(router *gin.Engine, path, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	return rec
}

func TestSignup_Created(t *testing.T) {
	router := setupRouter(&fakeUserService{
		user: &model.User{ID: uuid.New(), Email: "reader@example.com"},
	})

	rec := postJSON(router, "/auth/signup", `{"email":"reader@example.com","password":"long enough"}`)

	assert.Equal(t, http.StatusCreated, rec.Code)
	assert.Contains(t, rec.Body.String(), "reader@example.com")
	// Never leak the hash.
	assert.NotContains(t, rec.Body.String(), "password")
}

func TestSignup_ValidationFailures(t *testing.T) {
	router := setupRouter(&fakeUserService{})

	tests := []struct {
		name string
		body string
	}{
		{"bad email", `{"email":"not-an-email","password":"long enough"}`},
		{"short password", `{"email":"reader@example.com","password":"short"}`},
		{"empty body", `{}`},
		{"malformed json", `{"email":`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := postJSON(router, "/auth/signup", tt.body)
			assert.Equal(t, http.StatusBadRequest, rec.Code)
		})
	}
}

func TestSignup_DuplicateEmail(t *testing.T) {
	router := setupRouter(&fakeUserService{err: model.ErrEmailTaken})

	rec := postJSON(router, "/auth/signup", `{"email":"reader@example.com","password":"long enough"}`)

	assert.Equal(t, http.StatusConflict, rec.Code)
	assert.Contains(t, rec.Body.String(), "EMAIL_TAKEN")
}

func TestLogin_Success(t *testing.T) {
	id := uuid.New()
	router := setupRouter(&fakeUserService{
		res: &model.LoginResponse{UserID: id, Token: "signed-token"},
	})

	rec := postJSON(router, "/auth/login", `{"email":"reader@example.com","password":"whatever"}`)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "signed-token")
	assert.Contains(t, rec.Body.String(), id.String())
}

func TestLogin_BadCredentials(t *testing.T) {
	router := setupRouter(&fakeUserService{err: model.ErrInvalidCredentials})

	rec := postJSON(router, "/auth/login", `{"email":"reader@example.com","password":"wrong"}`)

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Contains(t, rec.Body.String(), "INVALID_CREDENTIALS")
}
