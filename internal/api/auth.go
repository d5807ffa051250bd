package api

import (
	"errors"
	"net/http"
	"strings"

	"coachassist/internal/models"
	"coachassist/internal/store"

	"github.com/gin-gonic/gin"
	"golang.org/x/crypto/bcrypt"
)

const bcryptCost = 12

type AuthHandler struct {
	users  store.UserStore
	secret []byte
}

func NewAuthHandler(users store.UserStore, secret []byte) *AuthHandler {
	return &AuthHandler{users: users, secret: secret}
}

type registerRequest struct {
	Name     string `json:"name" binding:"required"`
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required,min=6"`
}

func (h *AuthHandler) Register(c *gin.Context) {
	var req registerRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, http.StatusBadRequest, "Name, email and password are required")
		return
	}

	email := strings.ToLower(strings.TrimSpace(req.Email))
	if _, err := h.users.FindByEmail(c.Request.Context(), email); err == nil {
		respondError(c, http.StatusConflict, "User with this email already exists")
		return
	} else if !errors.Is(err, store.ErrNotFound) {
		respondError(c, http.StatusInternalServerError, "Internal server error")
		return
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcryptCost)
	if err != nil {
		respondError(c, http.StatusInternalServerError, "Internal server error")
		return
	}

	user := &models.User{
		Name:         strings.TrimSpace(req.Name),
		Email:        email,
		PasswordHash: string(hash),
	}
	if err := h.users.Create(c.Request.Context(), user); err != nil {
		respondError(c, http.StatusInternalServerError, "Internal server error")
		return
	}

	token, err := signToken(user.ID, h.secret)
	if err != nil {
		respondError(c, http.StatusInternalServerError, "Internal server error")
		return
	}

	respondMessage(c, http.StatusCreated, "User registered successfully", gin.H{"user": user, "token": token})
}

type loginRequest struct {
	Email    string `json:"email" binding:"required"`
	Password string `json:"password" binding:"required"`
}

func (h *AuthHandler) Login(c *gin.Context) {
	var req loginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, http.StatusBadRequest, "Email and password are required")
		return
	}

	user, err := h.users.FindByEmail(c.Request.Context(), strings.ToLower(strings.TrimSpace(req.Email)))
	if err != nil {
		respondError(c, http.StatusUnauthorized, "Invalid email or password")
		return
	}

	if bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(req.Password)) != nil {
		respondError(c, http.StatusUnauthorized, "Invalid email or password")
		return
	}

	token, err := signToken(user.ID, h.secret)
	if err != nil {
		respondError(c, http.StatusInternalServerError, "Internal server error")
		return
	}

	respondMessage(c, http.StatusOK, "Login successful", gin.H{"user": user, "token": token})
}

func (h *AuthHandler) Me(c *gin.Context) {
	respondOK(c, http.StatusOK, gin.H{"user": currentUser(c)})
}
