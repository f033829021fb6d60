package order

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
	authmw "github.com/urbanplantlife/store/internal/middleware/auth"
	"github.com/urbanplantlife/store/internal/models"
	"github.com/urbanplantlife/store/internal/web"
)

type OrderHandler struct {
	DB       *gorm.DB
	Producer *events.Producer
}

type itemRequest struct {
	PlantID  uint `json:"plant_id" validate:"required"`
	Quantity int  `json:"quantity" validate:"required,gt=0"`
}

// Response is an order header with its materialized line items.
type Response struct {
	models.Order
	Items []models.OrderItem `json:"items"`
}

// orderError carries an expected failure out of the placement
// transaction so the whole thing rolls back before we answer.
type orderError struct {
	code    int
	message string
}

func (e *orderError) Error() string { return e.message }

func (h *OrderHandler) publish(c echo.Context, event map[string]any) {
	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()
	if err := h.Producer.PublishEvent(ctx, events.TopicOrderEvents, fmt.Sprint(event["userID"]), event); err != nil {
		c.Logger().Errorf("kafka publish error: %v", err)
	}
}

// CreateOrder places an order from an explicit item list. Validation,
// stock decrement, header and item inserts all run in one transaction:
// either every line is satisfied and stock drops by exactly the ordered
// quantities, or nothing changes. Stock is taken with a conditional
// UPDATE guarded by stock_quantity >= qty, so two concurrent orders for
// the same plant cannot both pass a stale check and oversell.
func (h *OrderHandler) CreateOrder(c echo.Context) error {
	userID := authmw.UserID(c)

	var req struct {
		Items []itemRequest `json:"items" validate:"required,min=1,dive"`
	}
	if err := c.Bind(&req); err != nil {
		return web.Validation(c, "Invalid request body.")
	}
	if err := c.Validate(&req); err != nil {
		return web.Validation(c, "Order must contain at least one item, each with plant_id and quantity > 0.")
	}

	var (
		order      models.Order
		orderItems []models.OrderItem
	)

	txErr := h.DB.Transaction(func(tx *gorm.DB) error {
		var total float64

		for _, it := range req.Items {
			var plant models.Plant
			if err := tx.First(&plant, it.PlantID).Error; err != nil {
				if errors.Is(err, gorm.ErrRecordNotFound) {
					return &orderError{http.StatusNotFound, fmt.Sprintf("Plant with ID %d not found.", it.PlantID)}
				}
				return err
			}

			res := tx.Model(&models.Plant{}).
				Where("id = ? AND stock_quantity >= ?", it.PlantID, it.Quantity).
				UpdateColumn("stock_quantity", gorm.Expr("stock_quantity - ?", it.Quantity))
			if res.Error != nil {
				return res.Error
			}
			if res.RowsAffected == 0 {
				return &orderError{http.StatusConflict, fmt.Sprintf("Insufficient stock for %s. Available: %d", plant.Name, plant.StockQuantity)}
			}

			total += plant.Price * float64(it.Quantity)
			orderItems = append(orderItems, models.OrderItem{
				PlantID:  it.PlantID,
				Quantity: uint(it.Quantity),
				Price:    plant.Price,
			})
		}

		order = models.Order{
			UserID:      userID,
			Status:      models.StatusPending,
			TotalAmount: total,
		}
		if err := tx.Create(&order).Error; err != nil {
			return err
		}

		for i := range orderItems {
			orderItems[i].OrderID = order.ID
		}
		if err := tx.Create(&orderItems).Error; err != nil {
			return err
		}
		return nil
	})

	if txErr != nil {
		var oe *orderError
		if errors.As(txErr, &oe) {
			return web.Fail(c, oe.code, oe.message)
		}
		return web.ServerError(c, txErr)
	}

	h.publish(c, map[string]any{
		"type":    "order_created",
		"userID":  userID,
		"orderID": order.ID,
		"total":   order.TotalAmount,
	})

	return web.OK(c, http.StatusCreated, Response{Order: order, Items: orderItems}, "Order created successfully.")
}

func (h *OrderHandler) GetMyOrders(c echo.Context) error {
	userID := authmw.UserID(c)

	var orders []models.Order
	if err := h.DB.Where("user_id = ?", userID).Order("created_at DESC").Find(&orders).Error; err != nil {
		return web.ServerError(c, err)
	}

	resp, err := h.withItems(orders)
	if err != nil {
		return web.ServerError(c, err)
	}
	return web.OK(c, http.StatusOK, resp, "Order history retrieved successfully.")
}

func (h *OrderHandler) ListOrders(c echo.Context) error {
	status := c.QueryParam("status")
	if status != "" && !models.ValidOrderStatus(status) {
		return web.Validation(c, "Status must be one of: pending, processing, shipped, delivered, cancelled.")
	}

	query := h.DB.Model(&models.Order{})
	if status != "" {
		query = query.Where("status = ?", status)
	}

	var orders []models.Order
	if err := query.Order("created_at DESC").Find(&orders).Error; err != nil {
		return web.ServerError(c, err)
	}

	resp, err := h.withItems(orders)
	if err != nil {
		return web.ServerError(c, err)
	}
	return web.OK(c, http.StatusOK, resp, "Orders retrieved successfully.")
}

func (h *OrderHandler) GetOrderStats(c echo.Context) error {
	var stats struct {
		TotalOrders     int64   `json:"total_orders"`
		TotalRevenue    float64 `json:"total_revenue"`
		PendingOrders   int64   `json:"pending_orders"`
		DeliveredOrders int64   `json:"delivered_orders"`
	}

	if err := h.DB.Model(&models.Order{}).Count(&stats.TotalOrders).Error; err != nil {
		return web.ServerError(c, err)
	}
	if err := h.DB.Model(&models.Order{}).Select("COALESCE(SUM(total_amount), 0)").Scan(&stats.TotalRevenue).Error; err != nil {
		return web.ServerError(c, err)
	}
	if err := h.DB.Model(&models.Order{}).Where("status = ?", models.StatusPending).Count(&stats.PendingOrders).Error; err != nil {
		return web.ServerError(c, err)
	}
	if err := h.DB.Model(&models.Order{}).Where("status = ?", models.StatusDelivered).Count(&stats.DeliveredOrders).Error; err != nil {
		return web.ServerError(c, err)
	}

	return web.OK(c, http.StatusOK, stats, "Order statistics retrieved successfully.")
}

func (h *OrderHandler) GetOrder(c echo.Context) error {
	id, err := orderIDParam(c)
	if err != nil {
		return web.Validation(c, "Valid order ID is required.")
	}

	var order models.Order
	if err := h.DB.First(&order, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return web.NotFound(c, "Order not found.")
		}
		return web.ServerError(c, err)
	}

	if authmw.Role(c) != models.RoleAdmin && order.UserID != authmw.UserID(c) {
		return web.Forbidden(c, "You do not have access to this order.")
	}

	items, err := h.itemsFor(order.ID)
	if err != nil {
		return web.ServerError(c, err)
	}
	return web.OK(c, http.StatusOK, Response{Order: order, Items: items}, "Order retrieved successfully.")
}

// UpdateOrderStatus overwrites the status with any valid value. Legal
// transition ordering is not enforced.
func (h *OrderHandler) UpdateOrderStatus(c echo.Context) error {
	id, err := orderIDParam(c)
	if err != nil {
		return web.Validation(c, "Valid order ID is required.")
	}

	var req struct {
		Status string `json:"status"`
	}
	if err := c.Bind(&req); err != nil {
		return web.Validation(c, "Invalid request body.")
	}
	if !models.ValidOrderStatus(req.Status) {
		return web.Validation(c, "Status must be one of: pending, processing, shipped, delivered, cancelled.")
	}

	var order models.Order
	if err := h.DB.First(&order, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return web.NotFound(c, "Order not found.")
		}
		return web.ServerError(c, err)
	}

	order.Status = req.Status
	if err := h.DB.Save(&order).Error; err != nil {
		return web.ServerError(c, err)
	}

	h.publish(c, map[string]any{
		"type":    "order_status_updated",
		"userID":  order.UserID,
		"orderID": order.ID,
		"status":  order.Status,
	})

	items, err := h.itemsFor(order.ID)
	if err != nil {
		return web.ServerError(c, err)
	}
	return web.OK(c, http.StatusOK, Response{Order: order, Items: items}, "Order status updated successfully.")
}

// DeleteOrder removes the order and restores every line's quantity to
// plant stock, whatever status the order was in. Header, items and
// stock restoration commit or roll back together.
func (h *OrderHandler) DeleteOrder(c echo.Context) error {
	id, err := orderIDParam(c)
	if err != nil {
		return web.Validation(c, "Valid order ID is required.")
	}

	var order models.Order
	txErr := h.DB.Transaction(func(tx *gorm.DB) error {
		if err := tx.First(&order, id).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return &orderError{http.StatusNotFound, "Order not found."}
			}
			return err
		}

		var items []models.OrderItem
		if err := tx.Where("order_id = ?", order.ID).Find(&items).Error; err != nil {
			return err
		}

		for _, it := range items {
			res := tx.Model(&models.Plant{}).
				Where("id = ?", it.PlantID).
				UpdateColumn("stock_quantity", gorm.Expr("stock_quantity + ?", it.Quantity))
			if res.Error != nil {
				return res.Error
			}
		}

		if err := tx.Where("order_id = ?", order.ID).Delete(&models.OrderItem{}).Error; err != nil {
			return err
		}
		return tx.Delete(&order).Error
	})

	if txErr != nil {
		var oe *orderError
		if errors.As(txErr, &oe) {
			return web.Fail(c, oe.code, oe.message)
		}
		return web.ServerError(c, txErr)
	}

	h.publish(c, map[string]any{
		"type":    "order_deleted",
		"userID":  order.UserID,
		"orderID": order.ID,
	})

	return web.OK(c, http.StatusOK, nil, "Order deleted successfully.")
}

func (h *OrderHandler) itemsFor(orderID uint) ([]models.OrderItem, error) {
	var items []models.OrderItem
	if err := h.DB.Where("order_id = ?", orderID).Find(&items).Error; err != nil {
		return nil, err
	}
	return items, nil
}

func (h *OrderHandler) withItems(orders []models.Order) ([]Response, error) {
	resp := make([]Response, 0, len(orders))
	for _, o := range orders {
		items, err := h.itemsFor(o.ID)
		if err != nil {
			return nil, err
		}
		resp = append(resp, Response{Order: o, Items: items})
	}
	return resp, nil
}

func orderIDParam(c echo.Context) (uint, error) {
	id, err := strconv.Atoi(c.Param("id"))
	if err != nil || id <= 0 {
		return 0, errors.New("invalid order id")
	}
	return uint(id), nil
}
