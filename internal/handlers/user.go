package handlers

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/labstack/echo/v4"
	"gorm.io/gorm"

	"github.com/urbanplantlife/store/internal/events"
	"github.com/urbanplantlife/store/internal/models"
	"github.com/urbanplantlife/store/internal/web"
)

// UserHandler covers the admin back-office user endpoints. Role changes
// go through here only; registration always produces a customer.
type UserHandler struct {
	DB       *gorm.DB
	Producer *events.Producer
}

func (h *UserHandler) publishUser(c echo.Context, event map[string]any) {
	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()
	if err := h.Producer.PublishEvent(ctx, events.TopicUserEvents, fmt.Sprint(event["userID"]), event); err != nil {
		c.Logger().Errorf("kafka publish error: %v", err)
	}
}

func (h *UserHandler) ListUsers(c echo.Context) error {
	var users []models.User
	if err := h.DB.Order("created_at DESC").Find(&users).Error; err != nil {
		return web.ServerError(c, err)
	}
	return web.OK(c, http.StatusOK, users, "")
}

func (h *UserHandler) UpdateUserRole(c echo.Context) error {
	id, err := strconv.Atoi(c.Param("id"))
	if err != nil || id <= 0 {
		return web.Validation(c, "Valid user ID is required.")
	}

	var req struct {
		Role string `json:"role" validate:"required"`
	}
	if err := c.Bind(&req); err != nil {
		return web.Validation(c, "Invalid request body.")
	}
	if err := c.Validate(&req); err != nil || !models.ValidRole(req.Role) {
		return web.Validation(c, "Role must be one of: customer, staff, admin.")
	}

	var user models.User
	if err := h.DB.First(&user, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return web.NotFound(c, "User not found.")
		}
		return web.ServerError(c, err)
	}

	user.Role = req.Role
	if err := h.DB.Save(&user).Error; err != nil {
		return web.ServerError(c, err)
	}

	h.publishUser(c, map[string]any{
		"type":   "user_role_changed",
		"userID": user.ID,
		"role":   user.Role,
	})

	return web.OK(c, http.StatusOK, user, "User role updated successfully.")
}

func (h *UserHandler) DeleteUser(c echo.Context) error {
	id, err := strconv.Atoi(c.Param("id"))
	if err != nil || id <= 0 {
		return web.Validation(c, "Valid user ID is required.")
	}

	var user models.User
	if err := h.DB.First(&user, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return web.NotFound(c, "User not found.")
		}
		return web.ServerError(c, err)
	}

	if err := h.DB.Delete(&user).Error; err != nil {
		return web.ServerError(c, err)
	}

	h.publishUser(c, map[string]any{
		"type":   "user_deleted",
		"userID": user.ID,
	})

	return web.OK(c, http.StatusOK, nil, "User deleted successfully.")
}
