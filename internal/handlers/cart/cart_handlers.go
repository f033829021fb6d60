package cart

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"
	"gorm.io/gorm"

	"github.com/urbanplantlife/store/internal/events"
	authmw "github.com/urbanplantlife/store/internal/middleware/auth"
	"github.com/urbanplantlife/store/internal/models"
	"github.com/urbanplantlife/store/internal/web"
)

type CartHandler struct {
	DB       *gorm.DB
	Producer *events.Producer
}

// Line is a cart row joined with its plant, mirroring what the
// storefront needs to render the cart page.
type Line struct {
	ID       uint         `json:"id"`
	PlantID  uint         `json:"plant_id"`
	Quantity uint         `json:"quantity"`
	Plant    models.Plant `json:"plant"`
}

func (h *CartHandler) GetCart(c echo.Context) error {
	userID := authmw.UserID(c)

	var items []models.CartItem
	if err := h.DB.Where("user_id = ?", userID).Order("id ASC").Find(&items).Error; err != nil {
		return web.ServerError(c, err)
	}

	lines := make([]Line, 0, len(items))
	for _, item := range items {
		var plant models.Plant
		if err := h.DB.First(&plant, item.PlantID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				continue
			}
			return web.ServerError(c, err)
		}
		lines = append(lines, Line{ID: item.ID, PlantID: item.PlantID, Quantity: item.Quantity, Plant: plant})
	}

	return web.OK(c, http.StatusOK, lines, "Cart retrieved successfully.")
}

// AddToCart upserts by (user, plant): an existing line accumulates the
// requested quantity. Stock is not checked or reserved here; contention
// happens only at order placement.
func (h *CartHandler) AddToCart(c echo.Context) error {
	userID := authmw.UserID(c)

	var req struct {
		PlantID  uint `json:"plant_id" validate:"required"`
		Quantity int  `json:"quantity" validate:"required,gt=0"`
	}
	if err := c.Bind(&req); err != nil {
		return web.Validation(c, "Invalid request body.")
	}
	if err := c.Validate(&req); err != nil {
		return web.Validation(c, "Plant ID and a positive quantity are required.")
	}

	var plant models.Plant
	if err := h.DB.First(&plant, req.PlantID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return web.NotFound(c, "Plant not found.")
		}
		return web.ServerError(c, err)
	}

	var item models.CartItem
	err := h.DB.Where("user_id = ? AND plant_id = ?", userID, req.PlantID).First(&item).Error
	switch {
	case err == nil:
		item.Quantity += uint(req.Quantity)
		if err := h.DB.Save(&item).Error; err != nil {
			return web.ServerError(c, err)
		}
	case errors.Is(err, gorm.ErrRecordNotFound):
		item = models.CartItem{UserID: userID, PlantID: req.PlantID, Quantity: uint(req.Quantity)}
		if err := h.DB.Create(&item).Error; err != nil {
			return web.ServerError(c, err)
		}
	default:
		return web.ServerError(c, err)
	}

	h.publish(c, map[string]any{
		"type":     "cart_item_added",
		"userID":   userID,
		"plantID":  req.PlantID,
		"quantity": item.Quantity,
	})

	return web.OK(c, http.StatusCreated, item, "Item added to cart successfully.")
}

func (h *CartHandler) GetCartItem(c echo.Context) error {
	userID := authmw.UserID(c)
	plantID, err := plantIDParam(c)
	if err != nil {
		return web.Validation(c, "Valid plant ID is required.")
	}

	var item models.CartItem
	if err := h.DB.Where("user_id = ? AND plant_id = ?", userID, plantID).First(&item).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return web.NotFound(c, "Cart item not found.")
		}
		return web.ServerError(c, err)
	}

	var plant models.Plant
	if err := h.DB.First(&plant, item.PlantID).Error; err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
		return web.ServerError(c, err)
	}

	line := Line{ID: item.ID, PlantID: item.PlantID, Quantity: item.Quantity, Plant: plant}
	return web.OK(c, http.StatusOK, line, "Cart item retrieved successfully.")
}

// UpdateCartItem overwrites the line's quantity. Zero or less removes
// the line entirely.
func (h *CartHandler) UpdateCartItem(c echo.Context) error {
	userID := authmw.UserID(c)
	plantID, err := plantIDParam(c)
	if err != nil {
		return web.Validation(c, "Valid plant ID is required.")
	}

	var req struct {
		Quantity *int `json:"quantity"`
	}
	if err := c.Bind(&req); err != nil {
		return web.Validation(c, "Invalid request body.")
	}
	if req.Quantity == nil {
		return web.Validation(c, "Quantity is required.")
	}

	var item models.CartItem
	if err := h.DB.Where("user_id = ? AND plant_id = ?", userID, plantID).First(&item).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return web.NotFound(c, "Cart item not found.")
		}
		return web.ServerError(c, err)
	}

	if *req.Quantity <= 0 {
		if err := h.DB.Delete(&item).Error; err != nil {
			return web.ServerError(c, err)
		}
		h.publish(c, map[string]any{
			"type":    "cart_item_removed",
			"userID":  userID,
			"plantID": plantID,
		})
		return web.OK(c, http.StatusOK, nil, "Item removed from cart successfully.")
	}

	item.Quantity = uint(*req.Quantity)
	if err := h.DB.Save(&item).Error; err != nil {
		return web.ServerError(c, err)
	}

	h.publish(c, map[string]any{
		"type":     "cart_item_updated",
		"userID":   userID,
		"plantID":  plantID,
		"quantity": item.Quantity,
	})

	return web.OK(c, http.StatusOK, item, "Cart item updated successfully.")
}

// RemoveFromCart deletes one line. A missing line is a 404, not a
// silent success.
func (h *CartHandler) RemoveFromCart(c echo.Context) error {
	userID := authmw.UserID(c)
	plantID, err := plantIDParam(c)
	if err != nil {
		return web.Validation(c, "Valid plant ID is required.")
	}

	var item models.CartItem
	if err := h.DB.Where("user_id = ? AND plant_id = ?", userID, plantID).First(&item).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return web.NotFound(c, "Cart item not found.")
		}
		return web.ServerError(c, err)
	}

	if err := h.DB.Delete(&item).Error; err != nil {
		return web.ServerError(c, err)
	}

	h.publish(c, map[string]any{
		"type":    "cart_item_removed",
		"userID":  userID,
		"plantID": plantID,
	})

	return web.OK(c, http.StatusOK, item, "Item removed from cart successfully.")
}

func (h *CartHandler) ClearCart(c echo.Context) error {
	userID := authmw.UserID(c)

	if err := h.DB.Where("user_id = ?", userID).Delete(&models.CartItem{}).Error; err != nil {
		return web.ServerError(c, err)
	}

	h.publish(c, map[string]any{
		"type":   "cart_cleared",
		"userID": userID,
	})

	return web.OK(c, http.StatusOK, nil, "Cart cleared successfully.")
}

func plantIDParam(c echo.Context) (uint, error) {
	id, err := strconv.Atoi(c.Param("plant_id"))
	if err != nil || id <= 0 {
		return 0, errors.New("invalid plant id")
	}
	return uint(id), nil
}
