package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-contrib/sessions"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"storefront/internal/apperr"
	"storefront/internal/logger"
	"storefront/internal/middleware"
	"storefront/internal/models"
	"storefront/internal/storage"
)

type signupRequest struct {
	Name           string  `json:"name" form:"name" binding:"required"`
	Email          string  `json:"email" form:"email" binding:"required,email"`
	Password       string  `json:"password" form:"password" binding:"required,min=6"`
	Phone          *string `json:"phone" form:"phone"`
	ProfilePicture *string `json:"profilePicture" form:"-" binding:"omitempty,url"`
}

type loginRequest struct {
	Email    string `json:"email" form:"email" binding:"required,email"`
	Password string `json:"password" form:"password" binding:"required"`
}

// Signup accepts JSON or multipart (with an optional profilePicture image).
func (h *Handler) Signup(c *gin.Context) {
	var req signupRequest
	if err := c.ShouldBind(&req); err != nil {
		fail(c, err)
		return
	}
	ctx := c.Request.Context()

	var cnt int64
	if err := h.db.WithContext(ctx).Model(&models.User{}).Where("email = ?", req.Email).Count(&cnt).Error; err != nil {
		fail(c, err)
		return
	}
	if cnt > 0 {
		fail(c, apperr.BadRequest("User already exists!", apperr.UserAlreadyExists))
		return
	}

	picture, err := storage.SaveImage(c, h.uploads, "profilePicture", h.uploadMax)
	if err != nil {
		fail(c, err)
		return
	}
	if picture != "" {
		req.ProfilePicture = &picture
	}

	hash, err := models.HashPassword(req.Password)
	if err != nil {
		fail(c, err)
		return
	}
	u := models.User{
		Name:           h.clean(req.Name),
		Email:          req.Email,
		Password:       hash,
		Phone:          req.Phone,
		ProfilePicture: req.ProfilePicture,
		Role:           models.RoleUser,
		Status:         true,
	}
	if err := h.db.WithContext(ctx).Create(&u).Error; err != nil {
		// lost a race with a concurrent signup for the same email
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			err = apperr.BadRequest("User already exists!", apperr.UserAlreadyExists)
		}
		fail(c, err)
		return
	}
	logger.For(c, h.log).Info("user signed up", zap.Uint("user_id", u.ID))
	c.JSON(http.StatusOK, u)
}

// Login checks credentials, stamps lastLogin and returns a fresh token.
// The token is also kept in the cookie session for browser clients.
func (h *Handler) Login(c *gin.Context) {
	var req loginRequest
	if err := c.ShouldBind(&req); err != nil {
		fail(c, err)
		return
	}
	ctx := c.Request.Context()

	var u models.User
	if err := h.db.WithContext(ctx).Where("email = ?", req.Email).First(&u).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			err = apperr.NotFound("User not found!", apperr.UserNotFound)
		}
		fail(c, err)
		return
	}
	if !models.CheckPassword(u.Password, req.Password) {
		fail(c, apperr.BadRequest("Incorrect password!", apperr.IncorrectPassword))
		return
	}
	if !u.Status {
		fail(c, apperr.UnauthorizedErr("Account disabled"))
		return
	}

	now := h.now()
	if err := h.db.WithContext(ctx).Model(&u).Update("last_login", now).Error; err != nil {
		fail(c, err)
		return
	}
	u.LastLogin = &now

	token, err := h.tokens.Sign(u.ID)
	if err != nil {
		fail(c, err)
		return
	}
	sess := sessions.Default(c)
	sess.Set(middleware.SessionTokenKey, token)
	if err := sess.Save(); err != nil {
		fail(c, err)
		return
	}

	logger.For(c, h.log).Info("user logged in", zap.Uint("user_id", u.ID), zap.String("ip", c.ClientIP()))
	c.JSON(http.StatusOK, gin.H{"user": u, "token": token})
}

func (h *Handler) Logout(c *gin.Context) {
	sess := sessions.Default(c)
	sess.Clear()
	if err := sess.Save(); err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true})
}

// Me returns the logged in user.
func (h *Handler) Me(c *gin.Context) {
	c.JSON(http.StatusOK, user(c))
}
