package httpserver

import (
	"github.com/labstack/echo/v4"
	"gorm.io/gorm"

	"github.com/urbanplantlife/store/internal/handlers"
	"github.com/urbanplantlife/store/internal/handlers/cart"
	"github.com/urbanplantlife/store/internal/handlers/order"
	authmw "github.com/urbanplantlife/store/internal/middleware/auth"
)

type Deps struct {
	DB           *gorm.DB
	JWTSecret    []byte
	AuthHandler  *handlers.AuthHandler
	UserHandler  *handlers.UserHandler
	PlantHandler *handlers.PlantHandler
	CartHandler  *cart.CartHandler
	OrderHandler *order.OrderHandler
}

func Register(e *echo.Echo, d *Deps) {
	e.GET("/health/live", func(c echo.Context) error { return c.NoContent(200) })
	e.GET("/health/ready", func(c echo.Context) error { return c.NoContent(200) })

	api := e.Group("/api")
	authn := authmw.Middleware(d.JWTSecret)

	auth := api.Group("/auth")
	auth.POST("/register", d.AuthHandler.Register)
	auth.POST("/login", d.AuthHandler.Login)
	auth.POST("/logout", d.AuthHandler.LogOut, authn)
	auth.GET("/profile", d.AuthHandler.GetProfile, authn)
	auth.PUT("/profile", d.AuthHandler.UpdateProfile, authn)

	users := api.Group("/users", authn, authmw.RequireAdmin)
	users.GET("", d.UserHandler.ListUsers)
	users.PUT("/:id/role", d.UserHandler.UpdateUserRole)
	users.DELETE("/:id", d.UserHandler.DeleteUser)

	plants := api.Group("/plants")
	plants.GET("", d.PlantHandler.ListPlants)
	plants.GET("/low-stock", d.PlantHandler.LowStock, authn, authmw.RequireStaffOrAdmin)
	plants.GET("/:id", d.PlantHandler.GetPlant)
	plants.POST("", d.PlantHandler.CreatePlant, authn, authmw.RequireAdmin)
	plants.PUT("/:id", d.PlantHandler.UpdatePlant, authn, authmw.RequireAdmin)
	plants.DELETE("/:id", d.PlantHandler.DeletePlant, authn, authmw.RequireAdmin)

	carts := api.Group("/cart", authn)
	carts.GET("", d.CartHandler.GetCart)
	carts.POST("", d.CartHandler.AddToCart)
	carts.DELETE("", d.CartHandler.ClearCart)
	carts.GET("/:plant_id", d.CartHandler.GetCartItem)
	carts.PUT("/:plant_id", d.CartHandler.UpdateCartItem)
	carts.DELETE("/:plant_id", d.CartHandler.RemoveFromCart)

	orders := api.Group("/orders", authn)
	orders.POST("", d.OrderHandler.CreateOrder)
	orders.GET("/my-orders", d.OrderHandler.GetMyOrders)
	orders.GET("", d.OrderHandler.ListOrders, authmw.RequireStaffOrAdmin)
	orders.GET("/stats", d.OrderHandler.GetOrderStats, authmw.RequireAdmin)
	orders.GET("/:id", d.OrderHandler.GetOrder)
	orders.PUT("/:id/status", d.OrderHandler.UpdateOrderStatus, authmw.RequireStaffOrAdmin)
	orders.DELETE("/:id", d.OrderHandler.DeleteOrder, authmw.RequireAdmin)
}
