package handlers

import (
	"net/http"
	"sync"

	"github.com/gin-gonic/gin"
	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"

	"hotel-booking/availability"
	"hotel-booking/database"
	"hotel-booking/middleware"
	"hotel-booking/models"
)

// Handler carries the dependencies of every route.
type Handler struct {
	Store        database.Store
	Engine       *availability.Engine
	JWT          *middleware.JWT
	CookieSecure bool
}

// New wires a Handler.
func New(store database.Store, engine *availability.Engine, jwt *middleware.JWT, cookieSecure bool) *Handler {
	return &Handler{Store: store, Engine: engine, JWT: jwt, CookieSecure: cookieSecure}
}

var registerValidators sync.Once

// RegisterValidators adds the custom binding tags used by request structs.
func RegisterValidators() {
	registerValidators.Do(func() {
		if v, ok := binding.Validator.Engine().(*validator.Validate); ok {
			_ = v.RegisterValidation("hoteltype", func(fl validator.FieldLevel) bool {
				return models.IsHotelType(fl.Field().String())
			})
		}
	})
}

// NewRouter builds the gin engine with every API route mounted under /api.
func NewRouter(h *Handler, corsOrigins []string) *gin.Engine {
	RegisterValidators()

	r := gin.New()
	r.Use(middleware.Logger(), gin.Recovery(), middleware.CORS(corsOrigins), middleware.ErrorHandler())

	// 健康检查
	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"status":  "ok",
			"message": "hotel booking service is running",
		})
	})

	authed := h.JWT.AuthMiddleware()
	admin := []gin.HandlerFunc{authed, middleware.AdminMiddleware()}

	api := r.Group("/api")
	{
		auth := api.Group("/auth")
		{
			auth.POST("/register", h.Register)
			auth.POST("/login", h.Login)
			auth.POST("/logout", h.Logout)
		}

		hotel := api.Group("/hotel")
		{
			hotel.GET("", h.GetHotels)
			hotel.GET("/countByCity", h.CountByCity)
			hotel.GET("/countByType", h.CountByType)
			hotel.GET("/room/:id", h.GetHotelRooms)
			hotel.GET("/find/:id", h.GetHotel)
			hotel.GET("/occupancy/:id", append(admin, h.ExportOccupancy)...)
			hotel.POST("", append(admin, h.CreateHotel)...)
			hotel.PUT("/:id", append(admin, h.UpdateHotel)...)
			hotel.DELETE("/:id", append(admin, h.DeleteHotel)...)
		}

		room := api.Group("/room")
		{
			room.GET("", h.GetRooms)
			room.GET("/:id", h.GetRoom)
			room.GET("/:id/availability", h.GetRoomAvailability)
			room.PUT("/availability/:id", authed, h.UpdateRoomAvailability)
			room.POST("/reserve", authed, h.ReserveRooms)
			room.POST("/:id", append(admin, h.CreateRoom)...)
			room.PUT("/:id", append(admin, h.UpdateRoom)...)
			room.DELETE("/:id", append(admin, h.DeleteRoom)...)
		}

		user := api.Group("/user")
		{
			user.GET("", append(admin, h.GetUsers)...)
			self := []gin.HandlerFunc{authed, middleware.SelfOrAdminMiddleware("id")}
			user.GET("/:id", append(self, h.GetUser)...)
			user.PUT("/:id", append(self, h.UpdateUser)...)
			user.DELETE("/:id", append(self, h.DeleteUser)...)
		}
	}

	return r
}
