package handlers

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	"gorm.io/gorm"

	"github.com/urbanplantlife/store/internal/events"
	"github.com/urbanplantlife/store/internal/hash"
	authmw "github.com/urbanplantlife/store/internal/middleware/auth"
	"github.com/urbanplantlife/store/internal/models"
	"github.com/urbanplantlife/store/internal/web"
)

type AuthHandler struct {
	DB        *gorm.DB
	JWTSecret []byte
	TokenTTL  time.Duration
	Producer  *events.Producer
}

func (h *AuthHandler) publish(c echo.Context, event map[string]any) {
	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()
	if err := h.Producer.PublishEvent(ctx, events.TopicUserEvents, fmt.Sprint(event["userID"]), event); err != nil {
		c.Logger().Errorf("kafka publish error: %v", err)
	}
}

func (h *AuthHandler) Register(c echo.Context) error {
	var req struct {
		Username        string `json:"username"        validate:"required,min=3"`
		Email           string `json:"email"           validate:"required,email"`
		Password        string `json:"password"        validate:"required,min=6"`
		PasswordConfirm string `json:"passwordConfirm" validate:"required"`
	}
	if err := c.Bind(&req); err != nil {
		return web.Validation(c, "Invalid request body.")
	}
	if err := c.Validate(&req); err != nil {
		return web.Validation(c, "All fields are required; email must be valid and password at least 6 characters.")
	}
	if req.Password != req.PasswordConfirm {
		return web.Validation(c, "Passwords do not match.")
	}

	var existing models.User
	err := h.DB.Where("username = ? OR email = ?", req.Username, req.Email).First(&existing).Error
	if err == nil {
		return web.Conflict(c, "Username or email already in use. Please choose another.")
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return web.ServerError(c, err)
	}

	passwordHash, err := hash.HashPassword(req.Password)
	if err != nil {
		return web.ServerError(c, err)
	}

	user := models.User{
		Username:     req.Username,
		Email:        req.Email,
		PasswordHash: passwordHash,
		Role:         models.RoleCustomer,
	}
	if err := h.DB.Create(&user).Error; err != nil {
		return web.ServerError(c, err)
	}

	h.publish(c, map[string]any{
		"type":     "user_registered",
		"userID":   user.ID,
		"username": user.Username,
	})

	return web.OK(c, http.StatusCreated, user, "User registered successfully.")
}

func (h *AuthHandler) Login(c echo.Context) error {
	var req struct {
		Email    string `json:"email"    validate:"required"`
		Password string `json:"password" validate:"required"`
	}
	if err := c.Bind(&req); err != nil {
		return web.Validation(c, "Invalid request body.")
	}
	if err := c.Validate(&req); err != nil {
		return web.Validation(c, "Email and password are required.")
	}

	var user models.User
	if err := h.DB.Where("email = ?", req.Email).First(&user).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return web.Unauthorized(c, "Invalid email or password.")
		}
		return web.ServerError(c, err)
	}
	if !hash.CheckPassword(user.PasswordHash, req.Password) {
		return web.Unauthorized(c, "Invalid email or password.")
	}

	token, err := authmw.SignToken(&user, h.JWTSecret, h.TokenTTL)
	if err != nil {
		return web.ServerError(c, err)
	}

	h.publish(c, map[string]any{
		"type":     "user_logged_in",
		"userID":   user.ID,
		"username": user.Username,
	})

	return web.OK(c, http.StatusOK, echo.Map{
		"token": token,
		"user":  user,
	}, "Login successful.")
}

// LogOut is a stateless acknowledgement. Tokens carry their own expiry
// and there is no revocation list; the client drops the token.
func (h *AuthHandler) LogOut(c echo.Context) error {
	return web.OK(c, http.StatusOK, nil, "Logout successful. Please remove your token on the client.")
}

func (h *AuthHandler) GetProfile(c echo.Context) error {
	var user models.User
	if err := h.DB.First(&user, authmw.UserID(c)).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return web.NotFound(c, "User not found.")
		}
		return web.ServerError(c, err)
	}
	return web.OK(c, http.StatusOK, user, "")
}

func (h *AuthHandler) UpdateProfile(c echo.Context) error {
	userID := authmw.UserID(c)

	var req struct {
		Username string `json:"username" validate:"omitempty,min=3"`
		Email    string `json:"email"    validate:"omitempty,email"`
	}
	if err := c.Bind(&req); err != nil {
		return web.Validation(c, "Invalid request body.")
	}
	if err := c.Validate(&req); err != nil {
		return web.Validation(c, "Username must be at least 3 characters and email must be valid.")
	}
	if req.Username == "" && req.Email == "" {
		return web.Validation(c, "Nothing to update.")
	}

	var user models.User
	if err := h.DB.First(&user, userID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return web.NotFound(c, "User not found.")
		}
		return web.ServerError(c, err)
	}

	if req.Email != "" {
		var other models.User
		err := h.DB.Where("email = ? AND id <> ?", req.Email, userID).First(&other).Error
		if err == nil {
			return web.Conflict(c, "Email already in use.")
		}
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			return web.ServerError(c, err)
		}
		user.Email = req.Email
	}
	if req.Username != "" {
		var other models.User
		err := h.DB.Where("username = ? AND id <> ?", req.Username, userID).First(&other).Error
		if err == nil {
			return web.Conflict(c, "Username already in use.")
		}
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			return web.ServerError(c, err)
		}
		user.Username = req.Username
	}

	if err := h.DB.Save(&user).Error; err != nil {
		return web.ServerError(c, err)
	}

	h.publish(c, map[string]any{
		"type":   "profile_updated",
		"userID": user.ID,
	})

	return web.OK(c, http.StatusOK, user, "Profile updated successfully.")
}
