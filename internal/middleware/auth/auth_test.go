package auth

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/require"

	"github.com/urbanplantlife/store/internal/models"
)

var secret = []byte("test_secret")

func testUser() *models.User {
	return &models.User{ID: 7, Username: "planty", Email: "planty@example.com", Role: models.RoleCustomer}
}

func TestSignAndParseToken(t *testing.T) {
	token, err := SignToken(testUser(), secret, time.Hour)
	require.NoError(t, err)

	claims, err := ParseToken(token, secret)
	require.NoError(t, err)
	require.EqualValues(t, 7, claims.UserID)
	require.Equal(t, "planty", claims.Username)
	require.Equal(t, "planty@example.com", claims.Email)
	require.Equal(t, models.RoleCustomer, claims.Role)
}

func TestParseTokenFailsClosed(t *testing.T) {
	expired, err := SignToken(testUser(), secret, -time.Hour)
	require.NoError(t, err)
	_, err = ParseToken(expired, secret)
	require.Error(t, err, "expired token must be rejected")

	valid, err := SignToken(testUser(), secret, time.Hour)
	require.NoError(t, err)
	_, err = ParseToken(valid, []byte("other_secret"))
	require.Error(t, err, "wrong signature must be rejected")

	_, err = ParseToken("not.a.token", secret)
	require.Error(t, err)
}

func TestMiddlewareSetsContext(t *testing.T) {
	e := echo.New()
	e.GET("/whoami", func(c echo.Context) error {
		return c.String(http.StatusOK, Role(c))
	}, Middleware(secret))

	token, err := SignToken(&models.User{ID: 1, Username: "boss", Email: "boss@example.com", Role: models.RoleAdmin}, secret, time.Hour)
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodGet, "/whoami", nil)
	req.Header.Set(echo.HeaderAuthorization, "Bearer "+token)
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code)
	require.Equal(t, models.RoleAdmin, rec.Body.String())

	req2 := httptest.NewRequest(http.MethodGet, "/whoami", nil)
	rec2 := httptest.NewRecorder()
	e.ServeHTTP(rec2, req2)
	require.Equal(t, http.StatusUnauthorized, rec2.Code)

	req3 := httptest.NewRequest(http.MethodGet, "/whoami", nil)
	req3.Header.Set(echo.HeaderAuthorization, "Bearer garbage")
	rec3 := httptest.NewRecorder()
	e.ServeHTTP(rec3, req3)
	require.Equal(t, http.StatusUnauthorized, rec3.Code)
}

func TestRoleGates(t *testing.T) {
	e := echo.New()
	okHandler := func(c echo.Context) error { return c.NoContent(http.StatusOK) }
	e.PUT("/orders/:id/status", okHandler, Middleware(secret), RequireStaffOrAdmin)
	e.GET("/stats", okHandler, Middleware(secret), RequireAdmin)

	call := func(method, path, role string) int {
		token, _ := SignToken(&models.User{ID: 1, Username: "u", Email: "u@example.com", Role: role}, secret, time.Hour)
		req := httptest.NewRequest(method, path, nil)
		req.Header.Set(echo.HeaderAuthorization, "Bearer "+token)
		rec := httptest.NewRecorder()
		e.ServeHTTP(rec, req)
		return rec.Code
	}

	// A customer is rejected from status updates regardless of ownership.
	require.Equal(t, http.StatusForbidden, call(http.MethodPut, "/orders/1/status", models.RoleCustomer))
	require.Equal(t, http.StatusOK, call(http.MethodPut, "/orders/1/status", models.RoleStaff))
	require.Equal(t, http.StatusOK, call(http.MethodPut, "/orders/1/status", models.RoleAdmin))

	require.Equal(t, http.StatusForbidden, call(http.MethodGet, "/stats", models.RoleStaff))
	require.Equal(t, http.StatusOK, call(http.MethodGet, "/stats", models.RoleAdmin))
}
