package auth

import (
	"errors"
	"time"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/jason-czar/freedomains/internal/auth"
	"github.com/jason-czar/freedomains/internal/config"
	"github.com/jason-czar/freedomains/internal/httpx"
	"github.com/jason-czar/freedomains/internal/model"
	"github.com/jason-czar/freedomains/internal/validator"
)

// RegisterRequest represents signup request body
type RegisterRequest struct {
	Email    string `json:"email" binding:"required"`
	Password string `json:"password" binding:"required,min=8"`
}

// LoginRequest represents login request body
type LoginRequest struct {
	Email    string `json:"email" binding:"required"`
	Password string `json:"password" binding:"required"`
}

// LoginResponse represents login response data
type LoginResponse struct {
	Token    string    `json:"token"`
	ExpireAt string    `json:"expireAt"`
	Owner    OwnerInfo `json:"owner"`
}

// OwnerInfo represents owner information in response
type OwnerInfo struct {
	ID    int    `json:"id"`
	Email string `json:"email"`
}

// RegisterHandler handles account signup
func RegisterHandler(db *gorm.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req RegisterRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			httpx.FailErr(c, httpx.ErrParamInvalid("invalid request body"))
			return
		}
		if !validator.IsValidEmail(req.Email) {
			httpx.FailErr(c, httpx.ErrParamInvalid("invalid email address"))
			return
		}

		hash, err := auth.HashPassword(req.Password)
		if err != nil {
			httpx.FailErr(c, httpx.ErrInternalError("failed to hash password", err))
			return
		}

		owner := model.Owner{
			Email:        req.Email,
			PasswordHash: hash,
			Status:       model.OwnerStatusActive,
		}
		if err := db.Create(&owner).Error; err != nil {
			if errors.Is(err, gorm.ErrDuplicatedKey) {
				httpx.FailErr(c, httpx.ErrAlreadyExists("email already registered"))
				return
			}
			httpx.FailErr(c, httpx.ErrDatabaseError("failed to create account", err))
			return
		}

		httpx.OK(c, OwnerInfo{ID: owner.ID, Email: owner.Email})
	}
}

// LoginHandler handles owner login
func LoginHandler(db *gorm.DB, cfg *config.Config) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req LoginRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			httpx.FailErr(c, httpx.ErrParamInvalid("invalid request body"))
			return
		}

		var owner model.Owner
		if err := db.Where("email = ?", req.Email).First(&owner).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				// Unknown email and wrong password return the same error
				httpx.FailErr(c, httpx.ErrInvalidToken("invalid credentials"))
				return
			}
			httpx.FailErr(c, httpx.ErrDatabaseError("database error", err))
			return
		}

		if owner.Status == model.OwnerStatusInactive {
			httpx.FailErr(c, httpx.ErrForbidden("account is inactive"))
			return
		}

		if err := auth.ComparePassword(owner.PasswordHash, req.Password); err != nil {
			httpx.FailErr(c, httpx.ErrInvalidToken("invalid credentials"))
			return
		}

		expireAt := time.Now().Add(time.Duration(cfg.JWT.ExpireMinutes) * time.Minute)
		token, err := auth.GenerateToken(owner.ID, owner.Email, expireAt, cfg.JWT.Issuer)
		if err != nil {
			httpx.FailErr(c, httpx.ErrInternalError("failed to generate token", err))
			return
		}

		httpx.OK(c, LoginResponse{
			Token:    token,
			ExpireAt: expireAt.Format(time.RFC3339),
			Owner:    OwnerInfo{ID: owner.ID, Email: owner.Email},
		})
	}
}
