package handlers

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/elastic/go-elasticsearch/v9"
	"github.com/labstack/echo/v4"
	"gorm.io/gorm"

	"github.com/urbanplantlife/store/internal/events"
	"github.com/urbanplantlife/store/internal/models"
	"github.com/urbanplantlife/store/internal/service/search"
	"github.com/urbanplantlife/store/internal/util"
	"github.com/urbanplantlife/store/internal/web"
)

// PlantHandler serves the catalog. ES is optional; when nil, search
// falls back to a SQL LIKE filter.
type PlantHandler struct {
	DB       *gorm.DB
	ES       *elasticsearch.Client
	ESIndex  string
	Producer *events.Producer
}

type plantRequest struct {
	Name              string  `json:"name"                validate:"required"`
	Description       string  `json:"description"`
	Price             float64 `json:"price"               validate:"gte=0"`
	StockQuantity     int     `json:"stock_quantity"      validate:"gte=0"`
	LowStockThreshold int     `json:"low_stock_threshold" validate:"gte=0"`
	Category          string  `json:"category"`
	CareLevel         string  `json:"care_level"`
	LightRequirement  string  `json:"light_requirement"`
	ImageURL          string  `json:"image_url"`
}

func (h *PlantHandler) publish(c echo.Context, event map[string]any) {
	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()
	if err := h.Producer.PublishEvent(ctx, events.TopicPlantEvents, fmt.Sprint(event["plantID"]), event); err != nil {
		c.Logger().Errorf("kafka publish error: %v", err)
	}
}

func (h *PlantHandler) ListPlants(c echo.Context) error {
	searchText := c.QueryParam("search")
	sortType := c.QueryParam("sort")
	page := util.ParseIntDefault(c.QueryParam("page"), 1)
	size := util.ParseIntDefault(c.QueryParam("size"), util.DefaultPageSize)
	from, limit := util.Calculate(page, size)

	if searchText != "" && h.ES != nil {
		total, plants, err := search.Plants(c.Request().Context(), h.ES, h.ESIndex, searchText, from, limit)
		if err != nil {
			return web.ServerError(c, err)
		}
		return web.OK(c, http.StatusOK, echo.Map{
			"plants": plants,
			"meta":   listMeta(page, limit, from, total),
		}, "")
	}

	query := h.DB.Model(&models.Plant{})
	if searchText != "" {
		query = query.Where("lower(name) LIKE lower(?)", "%"+searchText+"%")
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return web.ServerError(c, err)
	}

	var plants []models.Plant
	if err := query.Order(plantSortOrder(sortType)).Offset(from).Limit(limit).Find(&plants).Error; err != nil {
		return web.ServerError(c, err)
	}

	return web.OK(c, http.StatusOK, echo.Map{
		"plants": plants,
		"meta":   listMeta(page, limit, from, total),
	}, "")
}

func plantSortOrder(sortType string) string {
	switch sortType {
	case "price_asc":
		return "price ASC"
	case "price_desc":
		return "price DESC"
	case "name":
		return "name ASC"
	default:
		return "created_at DESC"
	}
}

func listMeta(page, limit, from int, total int64) map[string]any {
	return map[string]any{
		"page":        page,
		"size":        limit,
		"total":       total,
		"total_pages": (total + int64(limit) - 1) / int64(limit),
		"has_prev":    page > 1,
		"has_next":    int64(from+limit) < total,
	}
}

func (h *PlantHandler) GetPlant(c echo.Context) error {
	id, err := strconv.Atoi(c.Param("id"))
	if err != nil || id <= 0 {
		return web.Validation(c, "Valid plant ID is required.")
	}

	var plant models.Plant
	if err := h.DB.First(&plant, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return web.NotFound(c, "Plant not found.")
		}
		return web.ServerError(c, err)
	}
	return web.OK(c, http.StatusOK, plant, "")
}

// LowStock lists plants at or below their restock threshold.
func (h *PlantHandler) LowStock(c echo.Context) error {
	var plants []models.Plant
	if err := h.DB.Where("stock_quantity <= low_stock_threshold").Order("stock_quantity ASC").Find(&plants).Error; err != nil {
		return web.ServerError(c, err)
	}
	return web.OK(c, http.StatusOK, plants, "")
}

func (h *PlantHandler) CreatePlant(c echo.Context) error {
	var req plantRequest
	if err := c.Bind(&req); err != nil {
		return web.Validation(c, "Invalid request body.")
	}
	if err := c.Validate(&req); err != nil {
		return web.Validation(c, "Name is required; price and stock must be non-negative.")
	}

	plant := models.Plant{
		Name:              req.Name,
		Description:       req.Description,
		Price:             req.Price,
		StockQuantity:     uint(req.StockQuantity),
		LowStockThreshold: uint(req.LowStockThreshold),
		Category:          req.Category,
		CareLevel:         req.CareLevel,
		LightRequirement:  req.LightRequirement,
		ImageURL:          req.ImageURL,
	}
	if err := h.DB.Create(&plant).Error; err != nil {
		return web.ServerError(c, err)
	}

	h.publish(c, map[string]any{
		"type":    "plant_created",
		"plantID": plant.ID,
		"name":    plant.Name,
	})

	return web.OK(c, http.StatusCreated, plant, "Plant created successfully.")
}

func (h *PlantHandler) UpdatePlant(c echo.Context) error {
	id, err := strconv.Atoi(c.Param("id"))
	if err != nil || id <= 0 {
		return web.Validation(c, "Valid plant ID is required.")
	}

	var req plantRequest
	if err := c.Bind(&req); err != nil {
		return web.Validation(c, "Invalid request body.")
	}
	if err := c.Validate(&req); err != nil {
		return web.Validation(c, "Name is required; price and stock must be non-negative.")
	}

	var plant models.Plant
	if err := h.DB.First(&plant, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return web.NotFound(c, "Plant not found.")
		}
		return web.ServerError(c, err)
	}

	plant.Name = req.Name
	plant.Description = req.Description
	plant.Price = req.Price
	plant.StockQuantity = uint(req.StockQuantity)
	plant.LowStockThreshold = uint(req.LowStockThreshold)
	plant.Category = req.Category
	plant.CareLevel = req.CareLevel
	plant.LightRequirement = req.LightRequirement
	plant.ImageURL = req.ImageURL

	if err := h.DB.Save(&plant).Error; err != nil {
		return web.ServerError(c, err)
	}

	h.publish(c, map[string]any{
		"type":    "plant_updated",
		"plantID": plant.ID,
		"name":    plant.Name,
	})

	return web.OK(c, http.StatusOK, plant, "Plant updated successfully.")
}

func (h *PlantHandler) DeletePlant(c echo.Context) error {
	id, err := strconv.Atoi(c.Param("id"))
	if err != nil || id <= 0 {
		return web.Validation(c, "Valid plant ID is required.")
	}

	var plant models.Plant
	if err := h.DB.First(&plant, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return web.NotFound(c, "Plant not found.")
		}
		return web.ServerError(c, err)
	}

	if err := h.DB.Delete(&plant).Error; err != nil {
		return web.ServerError(c, err)
	}

	h.publish(c, map[string]any{
		"type":    "plant_deleted",
		"plantID": plant.ID,
	})

	return web.OK(c, http.StatusOK, nil, "Plant successfully deleted.")
}
