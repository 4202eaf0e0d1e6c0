package auth

import (
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"healthrisk/packages/apperrors"
	"healthrisk/packages/models"
	"healthrisk/packages/users"
)

type Handler struct {
	users  users.Store
	tokens *TokenManager
	log    *zap.Logger
}

func NewHandler(store users.Store, tokens *TokenManager, log *zap.Logger) *Handler {
	return &Handler{users: store, tokens: tokens, log: log}
}

type registerRequest struct {
	Name     string `json:"name" binding:"required,max=100"`
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required,min=6,max=72"`
}

type loginRequest struct {
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required"`
}

type authResponse struct {
	Token     string       `json:"token"`
	ExpiresAt time.Time    `json:"expiresAt"`
	User      *models.User `json:"user"`
}

// RegisterRoutes монтирует /register, /login и /me.
// requireAuth - middleware проверки токена, loginLimit - ограничение частоты входа
func (h *Handler) RegisterRoutes(group *gin.RouterGroup, requireAuth, loginLimit gin.HandlerFunc) {
	group.POST("/register", loginLimit, h.register)
	group.POST("/login", loginLimit, h.login)
	group.GET("/me", requireAuth, h.me)
}

// Регистрация нового пользователя
func (h *Handler) register(c *gin.Context) {
	var req registerRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		apperrors.Respond(c, h.log, apperrors.NewValidationError("Некорректные данные регистрации", err))
		return
	}

	hash, err := users.HashPassword(req.Password)
	if err != nil {
		apperrors.Respond(c, h.log, apperrors.NewInternalError("hash password", err))
		return
	}

	user := &models.User{
		Name:         req.Name,
		Email:        req.Email,
		PasswordHash: hash,
		Role:         models.RoleUser,
	}

	if err := h.users.Create(c.Request.Context(), user); err != nil {
		if errors.Is(err, users.ErrDuplicateEmail) {
			apperrors.Respond(c, h.log, apperrors.NewConflictError("Пользователь с таким email уже существует", err))
			return
		}
		apperrors.Respond(c, h.log, apperrors.NewInternalError("create user", err))
		return
	}

	h.log.Info("✅ Зарегистрирован пользователь", zap.String("user_id", user.ID.Hex()))
	h.respondWithToken(c, http.StatusCreated, user)
}

// Вход по email и паролю
func (h *Handler) login(c *gin.Context) {
	var req loginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		apperrors.Respond(c, h.log, apperrors.NewValidationError("Некорректные данные входа", err))
		return
	}

	// Одинаковый ответ для неизвестного email и неверного пароля
	invalid := apperrors.NewUnauthorizedError("Неверный email или пароль", nil)

	user, err := h.users.FindByEmail(c.Request.Context(), req.Email)
	if err != nil {
		if errors.Is(err, users.ErrNotFound) {
			apperrors.Respond(c, h.log, invalid)
			return
		}
		apperrors.Respond(c, h.log, apperrors.NewInternalError("find user", err))
		return
	}

	if err := users.CheckPassword(user.PasswordHash, req.Password); err != nil {
		apperrors.Respond(c, h.log, invalid)
		return
	}

	h.respondWithToken(c, http.StatusOK, user)
}

// Текущий пользователь
func (h *Handler) me(c *gin.Context) {
	id, ok := GetIdentity(c)
	if !ok {
		apperrors.Respond(c, h.log, apperrors.NewUnauthorizedError("missing token claims", nil))
		return
	}

	// Пользователи внешнего провайдера в нашей базе не хранятся
	if id.Source != SourceLocal {
		c.JSON(http.StatusOK, gin.H{"user": id})
		return
	}

	user, err := h.users.FindByID(c.Request.Context(), id.UserID)
	if err != nil {
		if errors.Is(err, users.ErrNotFound) {
			apperrors.Respond(c, h.log, apperrors.NewNotFoundError("Пользователь не найден", err))
			return
		}
		apperrors.Respond(c, h.log, apperrors.NewInternalError("find user", err))
		return
	}

	c.JSON(http.StatusOK, gin.H{"user": user})
}

func (h *Handler) respondWithToken(c *gin.Context, status int, user *models.User) {
	token, expiresAt, err := h.tokens.Issue(user)
	if err != nil {
		apperrors.Respond(c, h.log, apperrors.NewInternalError("issue token", err))
		return
	}

	c.JSON(status, authResponse{
		Token:     token,
		ExpiresAt: expiresAt,
		User:      user,
	})
}
