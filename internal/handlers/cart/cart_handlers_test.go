package cart

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/glebarez/sqlite"
	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/urbanplantlife/store/internal/config"
	"github.com/urbanplantlife/store/internal/events"
	authmw "github.com/urbanplantlife/store/internal/middleware/auth"
	"github.com/urbanplantlife/store/internal/models"
	"github.com/urbanplantlife/store/internal/web"
)

func initTestDB(t *testing.T) *gorm.DB {
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	require.NoError(t, err)
	require.NoError(t, config.Migrate(db))
	return db
}

func newUserContext(e *echo.Echo, method, path string, payload any, userID uint) (echo.Context, *httptest.ResponseRecorder) {
	var body *bytes.Reader
	if payload != nil {
		b, _ := json.Marshal(payload)
		body = bytes.NewReader(b)
	} else {
		body = bytes.NewReader(nil)
	}
	req := httptest.NewRequest(method, path, body)
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)
	authmw.SetUserContext(c, &authmw.Claims{UserID: userID, Role: models.RoleCustomer})
	return c, rec
}

func setupCart(t *testing.T) (*gorm.DB, *echo.Echo, *CartHandler, models.Plant) {
	db := initTestDB(t)
	e := echo.New()
	e.Validator = web.NewValidator()
	h := &CartHandler{DB: db, Producer: &events.Producer{}}
	plant := models.Plant{Name: "Monstera", Price: 30, StockQuantity: 10, LowStockThreshold: 3}
	require.NoError(t, db.Create(&plant).Error)
	return db, e, h, plant
}

func TestAddToCartAccumulates(t *testing.T) {
	db, e, h, plant := setupCart(t)

	c, rec := newUserContext(e, http.MethodPost, "/api/cart", map[string]any{"plant_id": plant.ID, "quantity": 2}, 1)
	require.NoError(t, h.AddToCart(c))
	require.Equal(t, http.StatusCreated, rec.Code)

	c2, rec2 := newUserContext(e, http.MethodPost, "/api/cart", map[string]any{"plant_id": plant.ID, "quantity": 3}, 1)
	require.NoError(t, h.AddToCart(c2))
	require.Equal(t, http.StatusCreated, rec2.Code)

	var items []models.CartItem
	require.NoError(t, db.Where("user_id = ?", 1).Find(&items).Error)
	require.Len(t, items, 1, "repeated adds must collapse into one line")
	require.EqualValues(t, 5, items[0].Quantity)
}

func TestAddToCartMissingPlant(t *testing.T) {
	_, e, h, _ := setupCart(t)

	c, rec := newUserContext(e, http.MethodPost, "/api/cart", map[string]any{"plant_id": 999, "quantity": 1}, 1)
	require.NoError(t, h.AddToCart(c))
	require.Equal(t, http.StatusNotFound, rec.Code)
}

func TestAddToCartInvalidQuantity(t *testing.T) {
	db, e, h, plant := setupCart(t)

	c, rec := newUserContext(e, http.MethodPost, "/api/cart", map[string]any{"plant_id": plant.ID, "quantity": 0}, 1)
	require.NoError(t, h.AddToCart(c))
	require.Equal(t, http.StatusBadRequest, rec.Code)

	var count int64
	db.Model(&models.CartItem{}).Count(&count)
	require.Zero(t, count)
}

func TestUpdateCartItemToZeroDeletes(t *testing.T) {
	db, e, h, plant := setupCart(t)
	require.NoError(t, db.Create(&models.CartItem{UserID: 1, PlantID: plant.ID, Quantity: 2}).Error)

	c, rec := newUserContext(e, http.MethodPut, "/api/cart/1", map[string]any{"quantity": 0}, 1)
	c.SetParamNames("plant_id")
	c.SetParamValues("1")
	require.NoError(t, h.UpdateCartItem(c))
	require.Equal(t, http.StatusOK, rec.Code)

	var count int64
	db.Model(&models.CartItem{}).Where("user_id = ?", 1).Count(&count)
	require.Zero(t, count, "quantity <= 0 must delete the line")
}

func TestUpdateCartItemOverwrites(t *testing.T) {
	db, e, h, plant := setupCart(t)
	require.NoError(t, db.Create(&models.CartItem{UserID: 1, PlantID: plant.ID, Quantity: 2}).Error)

	c, rec := newUserContext(e, http.MethodPut, "/api/cart/1", map[string]any{"quantity": 7}, 1)
	c.SetParamNames("plant_id")
	c.SetParamValues("1")
	require.NoError(t, h.UpdateCartItem(c))
	require.Equal(t, http.StatusOK, rec.Code)

	var item models.CartItem
	require.NoError(t, db.Where("user_id = ? AND plant_id = ?", 1, plant.ID).First(&item).Error)
	require.EqualValues(t, 7, item.Quantity)
}

func TestUpdateMissingCartItem(t *testing.T) {
	_, e, h, _ := setupCart(t)

	c, rec := newUserContext(e, http.MethodPut, "/api/cart/5", map[string]any{"quantity": 3}, 1)
	c.SetParamNames("plant_id")
	c.SetParamValues("5")
	require.NoError(t, h.UpdateCartItem(c))
	require.Equal(t, http.StatusNotFound, rec.Code)
}

func TestRemoveFromCartMissingIsNotFound(t *testing.T) {
	_, e, h, _ := setupCart(t)

	c, rec := newUserContext(e, http.MethodDelete, "/api/cart/1", nil, 1)
	c.SetParamNames("plant_id")
	c.SetParamValues("1")
	require.NoError(t, h.RemoveFromCart(c))
	require.Equal(t, http.StatusNotFound, rec.Code, "removing a missing line must not be a silent success")
}

func TestClearCart(t *testing.T) {
	db, e, h, plant := setupCart(t)
	require.NoError(t, db.Create(&models.CartItem{UserID: 1, PlantID: plant.ID, Quantity: 2}).Error)
	other := models.Plant{Name: "Fern", Price: 8, StockQuantity: 4, LowStockThreshold: 2}
	require.NoError(t, db.Create(&other).Error)
	require.NoError(t, db.Create(&models.CartItem{UserID: 1, PlantID: other.ID, Quantity: 1}).Error)
	require.NoError(t, db.Create(&models.CartItem{UserID: 2, PlantID: plant.ID, Quantity: 9}).Error)

	c, rec := newUserContext(e, http.MethodDelete, "/api/cart", nil, 1)
	require.NoError(t, h.ClearCart(c))
	require.Equal(t, http.StatusOK, rec.Code)

	var mine, theirs int64
	db.Model(&models.CartItem{}).Where("user_id = ?", 1).Count(&mine)
	db.Model(&models.CartItem{}).Where("user_id = ?", 2).Count(&theirs)
	require.Zero(t, mine)
	require.EqualValues(t, 1, theirs, "clear must only touch the caller's cart")
}

func TestGetCartJoinsPlantData(t *testing.T) {
	db, e, h, plant := setupCart(t)
	require.NoError(t, db.Create(&models.CartItem{UserID: 1, PlantID: plant.ID, Quantity: 2}).Error)

	c, rec := newUserContext(e, http.MethodGet, "/api/cart", nil, 1)
	require.NoError(t, h.GetCart(c))
	require.Equal(t, http.StatusOK, rec.Code)

	var resp web.Response
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	lines := resp.Data.([]any)
	require.Len(t, lines, 1)
	line := lines[0].(map[string]any)
	require.EqualValues(t, 2, line["quantity"])
	require.Equal(t, "Monstera", line["plant"].(map[string]any)["name"])
}
