package handlers

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"hotel-booking/availability"
	"hotel-booking/database"
	"hotel-booking/middleware"
	"hotel-booking/models"
)

// RoomRequest 创建房间请求结构
type RoomRequest struct {
	Title       string `json:"title" binding:"required"`
	Price       int    `json:"price" binding:"required,gt=0"`
	MaxPeople   int    `json:"maxPeople" binding:"required,gt=0"`
	Desc        string `json:"desc"`
	RoomNumbers []int  `json:"roomNumbers" binding:"dive,gt=0"`
}

// UpdateRoomRequest is a partial room update. A present roomNumbers replaces the unit
// set; units whose number survives keep their booked dates.
type UpdateRoomRequest struct {
	Title       *string `json:"title" binding:"omitempty,min=1"`
	Price       *int    `json:"price" binding:"omitempty,gt=0"`
	MaxPeople   *int    `json:"maxPeople" binding:"omitempty,gt=0"`
	Desc        *string `json:"desc"`
	RoomNumbers []int   `json:"roomNumbers" binding:"omitempty,dive,gt=0"`
}

// AvailabilityRequest marks one unit occupied on the listed dates.
type AvailabilityRequest struct {
	Dates []string `json:"dates" binding:"required,min=1"`
}

// ReserveRequest 订房请求结构
type ReserveRequest struct {
	UnitIDs  []string `json:"unitIds" binding:"required,min=1,dive,required"`
	CheckIn  string   `json:"checkIn" binding:"required"`
	CheckOut string   `json:"checkOut" binding:"required"`
}

func checkNumbers(numbers []int) error {
	seen := make(map[int]bool, len(numbers))
	for _, n := range numbers {
		if seen[n] {
			return middleware.BadRequest("duplicate room number")
		}
		seen[n] = true
	}
	return nil
}

// CreateRoom 在指定酒店下创建房间
func (h *Handler) CreateRoom(c *gin.Context) {
	var req RoomRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		middleware.Fail(c, middleware.BadRequest("invalid request: "+err.Error()))
		return
	}
	if err := checkNumbers(req.RoomNumbers); err != nil {
		middleware.Fail(c, err)
		return
	}

	room := models.Room{
		Title:     req.Title,
		Price:     req.Price,
		MaxPeople: req.MaxPeople,
		Desc:      req.Desc,
	}
	for _, n := range req.RoomNumbers {
		room.RoomNumbers = append(room.RoomNumbers, models.RoomUnit{Number: n})
	}
	if err := h.Store.CreateRoom(c.Request.Context(), c.Param("id"), &room); err != nil {
		middleware.Fail(c, err)
		return
	}
	c.JSON(http.StatusCreated, room)
}

// UpdateRoom 修改指定ID的房间
func (h *Handler) UpdateRoom(c *gin.Context) {
	var req UpdateRoomRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		middleware.Fail(c, middleware.BadRequest("invalid request: "+err.Error()))
		return
	}
	if err := checkNumbers(req.RoomNumbers); err != nil {
		middleware.Fail(c, err)
		return
	}

	room, err := h.Store.UpdateRoom(c.Request.Context(), c.Param("id"), database.RoomUpdate{
		Title:     req.Title,
		Price:     req.Price,
		MaxPeople: req.MaxPeople,
		Desc:      req.Desc,
		Numbers:   req.RoomNumbers,
	})
	if err != nil {
		middleware.Fail(c, err)
		return
	}
	c.JSON(http.StatusOK, room)
}

// DeleteRoom removes a room and detaches it from ?hotelId when given.
func (h *Handler) DeleteRoom(c *gin.Context) {
	if err := h.Store.DeleteRoom(c.Request.Context(), c.Param("id"), c.Query("hotelId")); err != nil {
		middleware.Fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"message": "Room has been deleted.",
	})
}

func (h *Handler) GetRoom(c *gin.Context) {
	room, err := h.Store.GetRoom(c.Request.Context(), c.Param("id"))
	if err != nil {
		middleware.Fail(c, err)
		return
	}
	c.JSON(http.StatusOK, room)
}

// GetRooms 获取所有房间
func (h *Handler) GetRooms(c *gin.Context) {
	rooms, err := h.Store.ListRooms(c.Request.Context())
	if err != nil {
		middleware.Fail(c, err)
		return
	}
	c.JSON(http.StatusOK, rooms)
}

func parseRange(checkIn, checkOut string) (time.Time, time.Time, error) {
	ci, err := availability.ParseDate(checkIn)
	if err != nil {
		return time.Time{}, time.Time{}, err
	}
	co, err := availability.ParseDate(checkOut)
	if err != nil {
		return time.Time{}, time.Time{}, err
	}
	if err := availability.ValidateRange(ci, co); err != nil {
		return time.Time{}, time.Time{}, err
	}
	return ci, co, nil
}

// GetRoomAvailability reports which units of a room are free for
// ?checkIn..?checkOut, both nights inclusive.
func (h *Handler) GetRoomAvailability(c *gin.Context) {
	ci, co, err := parseRange(c.Query("checkIn"), c.Query("checkOut"))
	if err != nil {
		middleware.Fail(c, err)
		return
	}
	room, err := h.Store.GetRoom(c.Request.Context(), c.Param("id"))
	if err != nil {
		middleware.Fail(c, err)
		return
	}
	c.JSON(http.StatusOK, availability.RoomReport(*room, ci, co))
}

// UpdateRoomAvailability marks the unit :id occupied on every listed date.
// Either all dates are recorded or none are.
func (h *Handler) UpdateRoomAvailability(c *gin.Context) {
	var req AvailabilityRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		middleware.Fail(c, middleware.BadRequest("invalid request: "+err.Error()))
		return
	}

	dates := make([]time.Time, 0, len(req.Dates))
	for _, raw := range req.Dates {
		d, err := availability.ParseDate(raw)
		if err != nil {
			middleware.Fail(c, err)
			return
		}
		dates = append(dates, d)
	}
	if len(dates) > availability.MaxStayDays {
		middleware.Fail(c, availability.ErrStayTooLong)
		return
	}

	if err := h.Engine.ReserveDates(c.Request.Context(), c.Param("id"), dates); err != nil {
		middleware.Fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"message": "Room status has been updated.",
		"dates":   req.Dates,
	})
}

// ReserveRooms books several units for one stay. Each unit succeeds or fails
// on its own: 200 when all are reserved, 207 when some are, 409 when none are.
func (h *Handler) ReserveRooms(c *gin.Context) {
	var req ReserveRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		middleware.Fail(c, middleware.BadRequest("invalid request: "+err.Error()))
		return
	}
	ci, co, err := parseRange(req.CheckIn, req.CheckOut)
	if err != nil {
		middleware.Fail(c, err)
		return
	}

	results := h.Engine.Reserve(c.Request.Context(), req.UnitIDs, ci, co)
	reserved := 0
	for _, r := range results {
		if r.Status == availability.StatusReserved {
			reserved++
		}
	}

	status := http.StatusOK
	switch {
	case reserved == 0:
		status = http.StatusConflict
	case reserved < len(results):
		status = http.StatusMultiStatus
	}
	c.JSON(status, gin.H{
		"success":  reserved == len(results),
		"checkIn":  availability.FormatDate(ci),
		"checkOut": availability.FormatDate(co),
		"results":  results,
	})
}
