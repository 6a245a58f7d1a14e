package handlers

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/go-redis/redis/v8"
	"golang.org/x/crypto/bcrypt"

	"github.com/thereayou/pulse-chat/internal/database"
	"github.com/thereayou/pulse-chat/internal/handlers/dto"
	"github.com/thereayou/pulse-chat/internal/models"
	"github.com/thereayou/pulse-chat/pkg/auth"
)

type AuthHandler struct {
	db         *database.Database
	jwtManager *auth.JWTManager
	redis      *redis.Client
}

func NewAuthHandler(db *database.Database, jwtMgr *auth.JWTManager, rdb *redis.Client) *AuthHandler {
	return &AuthHandler{db: db, jwtManager: jwtMgr, redis: rdb}
}

// Register создает запись каталога с паролем. Username и есть userId чата.
func (h *AuthHandler) Register(c *gin.Context) {
	var req dto.RegisterRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "cannot hash password"})
		return
	}

	displayName := req.DisplayName
	if displayName == "" {
		displayName = req.Username
	}

	user := &models.User{
		UserID:       req.Username,
		DisplayName:  displayName,
		PasswordHash: string(hash),
		LastSeenAt:   time.Now(),
		CreatedAt:    time.Now(),
	}

	if err := h.db.SaveUser(user); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "failed to create user"})
		return
	}

	c.JSON(http.StatusCreated, gin.H{"message": "user registered"})
}

// Login выдает JWT с userId в subject
func (h *AuthHandler) Login(c *gin.Context) {
	var req dto.LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	user, err := h.db.FindUserByName(req.Username)
	if err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid credentials"})
		return
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(req.Password)); err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid credentials"})
		return
	}

	token, err := h.jwtManager.Generate(user.UserID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "could not generate token"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"token": token})
}

// Logout ставит токен в черный список в Redis до истечения
func (h *AuthHandler) Logout(c *gin.Context) {
	rawToken, err := auth.ExtractTokenFromHeader(c.Request)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	exp, err := h.jwtManager.Expiry(rawToken)
	if err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid token"})
		return
	}

	if h.redis != nil {
		ttl := time.Until(exp)
		h.redis.Set(context.Background(), "blacklist:"+rawToken, 1, ttl)
	}

	c.Status(http.StatusOK)
}
