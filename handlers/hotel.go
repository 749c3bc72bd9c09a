package handlers

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"

	"hotel-booking/database"
	"hotel-booking/middleware"
	"hotel-booking/models"
)

// HotelRequest 创建酒店请求结构
type HotelRequest struct {
	Name          string   `json:"name" binding:"required"`
	Type          string   `json:"type" binding:"required,hoteltype"`
	City          string   `json:"city" binding:"required"`
	Address       string   `json:"address" binding:"required"`
	Distance      string   `json:"distance"`
	Title         string   `json:"title"`
	Desc          string   `json:"desc"`
	CheapestPrice int      `json:"cheapestPrice" binding:"gte=0"`
	Rating        float64  `json:"rating" binding:"gte=0,lte=5"`
	Featured      bool     `json:"featured"`
	Photos        []string `json:"photos"`
}

// UpdateHotelRequest is a partial hotel update; absent fields are left unchanged.
type UpdateHotelRequest struct {
	Name          *string  `json:"name" binding:"omitempty,min=1"`
	Type          *string  `json:"type" binding:"omitempty,hoteltype"`
	City          *string  `json:"city" binding:"omitempty,min=1"`
	Address       *string  `json:"address"`
	Distance      *string  `json:"distance"`
	Title         *string  `json:"title"`
	Desc          *string  `json:"desc"`
	CheapestPrice *int     `json:"cheapestPrice" binding:"omitempty,gte=0"`
	Rating        *float64 `json:"rating" binding:"omitempty,gte=0,lte=5"`
	Featured      *bool    `json:"featured"`
	Photos        []string `json:"photos"`
}

// CreateHotel 创建酒店
func (h *Handler) CreateHotel(c *gin.Context) {
	var req HotelRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		middleware.Fail(c, middleware.BadRequest("invalid request: "+err.Error()))
		return
	}

	hotel := models.Hotel{
		Name:          req.Name,
		Type:          req.Type,
		City:          req.City,
		Address:       req.Address,
		Distance:      req.Distance,
		Title:         req.Title,
		Desc:          req.Desc,
		CheapestPrice: req.CheapestPrice,
		Rating:        req.Rating,
		Featured:      req.Featured,
		Photos:        req.Photos,
	}
	if err := h.Store.CreateHotel(c.Request.Context(), &hotel); err != nil {
		middleware.Fail(c, err)
		return
	}
	c.JSON(http.StatusCreated, hotel)
}

// UpdateHotel 修改指定ID的酒店
func (h *Handler) UpdateHotel(c *gin.Context) {
	var req UpdateHotelRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		middleware.Fail(c, middleware.BadRequest("invalid request: "+err.Error()))
		return
	}

	hotel, err := h.Store.UpdateHotel(c.Request.Context(), c.Param("id"), database.HotelUpdate{
		Name:          req.Name,
		Type:          req.Type,
		City:          req.City,
		Address:       req.Address,
		Distance:      req.Distance,
		Title:         req.Title,
		Desc:          req.Desc,
		CheapestPrice: req.CheapestPrice,
		Rating:        req.Rating,
		Featured:      req.Featured,
		Photos:        req.Photos,
	})
	if err != nil {
		middleware.Fail(c, err)
		return
	}
	c.JSON(http.StatusOK, hotel)
}

// DeleteHotel 删除酒店及其所有房间
func (h *Handler) DeleteHotel(c *gin.Context) {
	if err := h.Store.DeleteHotel(c.Request.Context(), c.Param("id")); err != nil {
		middleware.Fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"message": "Hotel has been deleted.",
	})
}

func (h *Handler) GetHotel(c *gin.Context) {
	hotel, err := h.Store.GetHotel(c.Request.Context(), c.Param("id"))
	if err != nil {
		middleware.Fail(c, err)
		return
	}
	c.JSON(http.StatusOK, hotel)
}

// GetHotels lists hotels filtered by city, type, featured and an exclusive
// cheapestPrice range (min, max).
func (h *Handler) GetHotels(c *gin.Context) {
	filter := database.HotelFilter{
		City: c.Query("city"),
		Type: c.Query("type"),
	}
	var err error
	if filter.Min, err = intQuery(c, "min"); err != nil {
		middleware.Fail(c, err)
		return
	}
	if filter.Max, err = intQuery(c, "max"); err != nil {
		middleware.Fail(c, err)
		return
	}
	if filter.Limit, err = intQuery(c, "limit"); err != nil {
		middleware.Fail(c, err)
		return
	}
	if raw := c.Query("featured"); raw != "" {
		featured, err := strconv.ParseBool(raw)
		if err != nil {
			middleware.Fail(c, middleware.BadRequest("featured must be true or false"))
			return
		}
		filter.Featured = &featured
	}

	hotels, err := h.Store.ListHotels(c.Request.Context(), filter)
	if err != nil {
		middleware.Fail(c, err)
		return
	}
	c.JSON(http.StatusOK, hotels)
}

func intQuery(c *gin.Context, name string) (int, error) {
	raw := c.Query(name)
	if raw == "" {
		return 0, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n < 0 {
		return 0, middleware.BadRequest(name + " must be a non-negative integer")
	}
	return n, nil
}

// CountByCity returns one count per requested city, in request order.
func (h *Handler) CountByCity(c *gin.Context) {
	raw := c.Query("cities")
	if strings.TrimSpace(raw) == "" {
		middleware.Fail(c, middleware.BadRequest("cities is required"))
		return
	}
	counts, err := h.Store.CountByCity(c.Request.Context(), strings.Split(raw, ","))
	if err != nil {
		middleware.Fail(c, err)
		return
	}
	c.JSON(http.StatusOK, counts)
}

func (h *Handler) CountByType(c *gin.Context) {
	counts, err := h.Store.CountByType(c.Request.Context())
	if err != nil {
		middleware.Fail(c, err)
		return
	}
	c.JSON(http.StatusOK, counts)
}

// GetHotelRooms 获取酒店的所有房间
func (h *Handler) GetHotelRooms(c *gin.Context) {
	rooms, err := h.Store.HotelRooms(c.Request.Context(), c.Param("id"))
	if err != nil {
		middleware.Fail(c, err)
		return
	}
	c.JSON(http.StatusOK, rooms)
}
