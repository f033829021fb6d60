package handlers

import (
	"encoding/json"
	"net/http"
	"testing"

	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/urbanplantlife/store/internal/events"
	"github.com/urbanplantlife/store/internal/models"
	"github.com/urbanplantlife/store/internal/web"
)

func newPlantHandler(db *gorm.DB) *PlantHandler {
	return &PlantHandler{DB: db, ESIndex: "plants", Producer: &events.Producer{}}
}

func seedPlants(t *testing.T, db *gorm.DB) {
	t.Helper()
	plants := []models.Plant{
		{Name: "Monstera", Price: 30, StockQuantity: 12, LowStockThreshold: 5},
		{Name: "Fern", Price: 8, StockQuantity: 2, LowStockThreshold: 5},
		{Name: "Cactus", Price: 15, StockQuantity: 40, LowStockThreshold: 5},
	}
	for i := range plants {
		require.NoError(t, db.Create(&plants[i]).Error)
	}
}

func decodePlants(t *testing.T, body []byte) []map[string]any {
	t.Helper()
	var resp web.Response
	require.NoError(t, json.Unmarshal(body, &resp))
	data, ok := resp.Data.(map[string]any)
	require.True(t, ok)
	items, ok := data["plants"].([]any)
	require.True(t, ok)
	out := make([]map[string]any, len(items))
	for i, it := range items {
		out[i] = it.(map[string]any)
	}
	return out
}

func TestCreatePlant(t *testing.T) {
	db := initTestDB(t)
	e := newTestEcho()
	h := newPlantHandler(db)

	c, rec := newJSONContext(e, http.MethodPost, "/api/plants", map[string]any{
		"name":                "Snake Plant",
		"description":         "Hard to kill.",
		"price":               12.5,
		"stock_quantity":      20,
		"low_stock_threshold": 4,
		"category":            "Indoor",
	})
	require.NoError(t, h.CreatePlant(c))
	require.Equal(t, http.StatusCreated, rec.Code)

	var plant models.Plant
	require.NoError(t, db.Where("name = ?", "Snake Plant").First(&plant).Error)
	require.Equal(t, 12.5, plant.Price)
	require.EqualValues(t, 20, plant.StockQuantity)
}

func TestCreatePlantNegativePrice(t *testing.T) {
	db := initTestDB(t)
	e := newTestEcho()
	h := newPlantHandler(db)

	c, rec := newJSONContext(e, http.MethodPost, "/api/plants", map[string]any{
		"name":  "Bad Plant",
		"price": -1.0,
	})
	require.NoError(t, h.CreatePlant(c))
	require.Equal(t, http.StatusBadRequest, rec.Code)

	var count int64
	db.Model(&models.Plant{}).Count(&count)
	require.Zero(t, count)
}

func TestListPlantsSorted(t *testing.T) {
	db := initTestDB(t)
	e := newTestEcho()
	h := newPlantHandler(db)
	seedPlants(t, db)

	c, rec := newJSONContext(e, http.MethodGet, "/api/plants?sort=price_asc", nil)
	require.NoError(t, h.ListPlants(c))
	require.Equal(t, http.StatusOK, rec.Code)

	plants := decodePlants(t, rec.Body.Bytes())
	require.Len(t, plants, 3)
	require.Equal(t, "Fern", plants[0]["name"])
	require.Equal(t, "Monstera", plants[2]["name"])

	c2, rec2 := newJSONContext(e, http.MethodGet, "/api/plants?sort=price_desc", nil)
	require.NoError(t, h.ListPlants(c2))
	plants2 := decodePlants(t, rec2.Body.Bytes())
	require.Equal(t, "Monstera", plants2[0]["name"])
}

func TestListPlantsSearchFallback(t *testing.T) {
	db := initTestDB(t)
	e := newTestEcho()
	h := newPlantHandler(db)
	seedPlants(t, db)

	c, rec := newJSONContext(e, http.MethodGet, "/api/plants?search=mon", nil)
	require.NoError(t, h.ListPlants(c))
	require.Equal(t, http.StatusOK, rec.Code)

	plants := decodePlants(t, rec.Body.Bytes())
	require.Len(t, plants, 1)
	require.Equal(t, "Monstera", plants[0]["name"])
}

func TestGetPlantNotFound(t *testing.T) {
	db := initTestDB(t)
	e := newTestEcho()
	h := newPlantHandler(db)

	c, rec := newJSONContext(e, http.MethodGet, "/api/plants/99", nil)
	c.SetParamNames("id")
	c.SetParamValues("99")
	require.NoError(t, h.GetPlant(c))
	require.Equal(t, http.StatusNotFound, rec.Code)
}

func TestLowStock(t *testing.T) {
	db := initTestDB(t)
	e := newTestEcho()
	h := newPlantHandler(db)
	seedPlants(t, db)

	c, rec := newJSONContext(e, http.MethodGet, "/api/plants/low-stock", nil)
	require.NoError(t, h.LowStock(c))
	require.Equal(t, http.StatusOK, rec.Code)

	var resp web.Response
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	items := resp.Data.([]any)
	require.Len(t, items, 1)
	require.Equal(t, "Fern", items[0].(map[string]any)["name"])
}

func TestUpdateAndDeletePlant(t *testing.T) {
	db := initTestDB(t)
	e := newTestEcho()
	h := newPlantHandler(db)

	plant := models.Plant{Name: "Ficus", Price: 25, StockQuantity: 10, LowStockThreshold: 3}
	require.NoError(t, db.Create(&plant).Error)

	c, rec := newJSONContext(e, http.MethodPut, "/api/plants/1", map[string]any{
		"name":                "Ficus",
		"price":               22.0,
		"stock_quantity":      8,
		"low_stock_threshold": 3,
	})
	c.SetParamNames("id")
	c.SetParamValues("1")
	require.NoError(t, h.UpdatePlant(c))
	require.Equal(t, http.StatusOK, rec.Code)

	var reloaded models.Plant
	require.NoError(t, db.First(&reloaded, plant.ID).Error)
	require.Equal(t, 22.0, reloaded.Price)
	require.EqualValues(t, 8, reloaded.StockQuantity)

	c2, rec2 := newJSONContext(e, http.MethodDelete, "/api/plants/1", nil)
	c2.SetParamNames("id")
	c2.SetParamValues("1")
	require.NoError(t, h.DeletePlant(c2))
	require.Equal(t, http.StatusOK, rec2.Code)

	err := db.First(&reloaded, plant.ID).Error
	require.ErrorIs(t, err, gorm.ErrRecordNotFound)

	c3, rec3 := newJSONContext(e, http.MethodDelete, "/api/plants/1", nil)
	c3.SetParamNames("id")
	c3.SetParamValues("1")
	require.NoError(t, h.DeletePlant(c3))
	require.Equal(t, http.StatusNotFound, rec3.Code)
}
