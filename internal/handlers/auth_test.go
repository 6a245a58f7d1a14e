package handlers_test

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/thereayou/pulse-chat/internal/handlers"
	"github.com/thereayou/pulse-chat/pkg/auth"
)

func newAuthRouter(t *testing.T) (*gin.Engine, *auth.JWTManager) {
	t.Helper()
	gin.SetMode(gin.TestMode)

	db := newTestDB(t)
	jwtMgr := auth.NewJWTManager("test-secret", time.Hour)
	authH := handlers.NewAuthHandler(db, jwtMgr, nil)

	router := gin.New()
	router.POST("/auth/register", authH.Register)
	router.POST("/auth/login", authH.Login)
	return router, jwtMgr
}

func postJSON(t *testing.T, router *gin.Engine, path string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()
	raw, err := json.Marshal(body)
	require.NoError(t, err)
	req := httptest.NewRequest(http.MethodPost, path, bytes.NewReader(raw))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	return rec
}

func TestRegisterAndLogin(t *testing.T) {
	router, jwtMgr := newAuthRouter(t)

	rec := postJSON(t, router, "/auth/register", gin.H{"username": "alice", "password": "secret-pass"})
	require.Equal(t, http.StatusCreated, rec.Code)

	// Повторная регистрация того же username отклоняется
	rec = postJSON(t, router, "/auth/register", gin.H{"username": "alice", "password": "secret-pass"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = postJSON(t, router, "/auth/login", gin.H{"username": "alice", "password": "secret-pass"})
	require.Equal(t, http.StatusOK, rec.Code)

	var resp map[string]string
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))

	claims, err := jwtMgr.Verify(resp["token"])
	require.NoError(t, err)
	assert.Equal(t, "alice", claims.Subject)
}

func TestLoginWrongPassword(t *testing.T) {
	router, _ := newAuthRouter(t)

	rec := postJSON(t, router, "/auth/register", gin.H{"username": "alice", "password": "secret-pass"})
	require.Equal(t, http.StatusCreated, rec.Code)

	rec = postJSON(t, router, "/auth/login", gin.H{"username": "alice", "password": "wrong"})
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}
