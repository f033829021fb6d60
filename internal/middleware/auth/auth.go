package auth

import (
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/labstack/echo/v4"

	"github.com/urbanplantlife/store/internal/models"
)

// Context keys populated by Middleware after a token verifies.
const (
	ContextUserID   = "userID"
	ContextUsername = "username"
	ContextEmail    = "email"
	ContextRole     = "role"
)

// Claims is the identity a bearer token carries.
type Claims struct {
	UserID   uint
	Username string
	Email    string
	Role     string
}

func SignToken(user *models.User, secret []byte, ttl time.Duration) (string, error) {
	claims := jwt.MapClaims{
		"sub":      user.ID,
		"username": user.Username,
		"email":    user.Email,
		"role":     user.Role,
		"exp":      time.Now().Add(ttl).Unix(),
	}
	t := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return t.SignedString(secret)
}

// ParseToken verifies signature and expiry and extracts the identity
// claims. Any malformed, expired or mis-signed token fails closed.
func ParseToken(raw string, secret []byte) (*Claims, error) {
	token, err := jwt.Parse(raw, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return secret, nil
	})
	if err != nil {
		return nil, fmt.Errorf("invalid token: %w", err)
	}
	if !token.Valid {
		return nil, fmt.Errorf("invalid token")
	}

	mc, ok := token.Claims.(jwt.MapClaims)
	if !ok {
		return nil, fmt.Errorf("invalid token claims")
	}
	sub, ok := mc["sub"].(float64)
	if !ok {
		return nil, fmt.Errorf("invalid subject claim")
	}
	role, ok := mc["role"].(string)
	if !ok {
		return nil, fmt.Errorf("invalid role claim")
	}

	claims := &Claims{UserID: uint(sub), Role: role}
	if v, ok := mc["username"].(string); ok {
		claims.Username = v
	}
	if v, ok := mc["email"].(string); ok {
		claims.Email = v
	}
	return claims, nil
}

// Middleware authenticates the Authorization bearer token and stores the
// caller's identity on the echo context.
func Middleware(secret []byte) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			raw := bearerToken(c)
			if raw == "" {
				return echo.NewHTTPError(http.StatusUnauthorized, "Access token required. Please login.")
			}
			claims, err := ParseToken(raw, secret)
			if err != nil {
				return echo.NewHTTPError(http.StatusUnauthorized, "Invalid or expired token. Please login again.")
			}
			SetUserContext(c, claims)
			return next(c)
		}
	}
}

func RequireAdmin(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		if Role(c) != models.RoleAdmin {
			return echo.NewHTTPError(http.StatusForbidden, "Admin access required.")
		}
		return next(c)
	}
}

func RequireStaffOrAdmin(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		if r := Role(c); r != models.RoleAdmin && r != models.RoleStaff {
			return echo.NewHTTPError(http.StatusForbidden, "Admin or staff access required.")
		}
		return next(c)
	}
}

func SetUserContext(c echo.Context, claims *Claims) {
	c.Set(ContextUserID, claims.UserID)
	c.Set(ContextUsername, claims.Username)
	c.Set(ContextEmail, claims.Email)
	c.Set(ContextRole, claims.Role)
}

func UserID(c echo.Context) uint {
	if v, ok := c.Get(ContextUserID).(uint); ok {
		return v
	}
	return 0
}

func Role(c echo.Context) string {
	if v, ok := c.Get(ContextRole).(string); ok {
		return v
	}
	return ""
}

func bearerToken(c echo.Context) string {
	header := c.Request().Header.Get(echo.HeaderAuthorization)
	if header == "" {
		return ""
	}
	parts := strings.SplitN(header, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "bearer") {
		return ""
	}
	return strings.TrimSpace(parts[1])
}
