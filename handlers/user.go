package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"golang.org/x/crypto/bcrypt"

	"hotel-booking/database"
	"hotel-booking/middleware"
	"hotel-booking/models"
)

// RegisterRequest 注册请求结构
type RegisterRequest struct {
	Username string `json:"username" binding:"required,max=255"`
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required,max=72"`
	Country  string `json:"country"`
	City     string `json:"city"`
	Phone    string `json:"phone"`
	Img      string `json:"img"`
}

// LoginRequest 登录请求结构
type LoginRequest struct {
	Username string `json:"username" binding:"required"`
	Password string `json:"password" binding:"required"`
}

// UpdateUserRequest is a partial profile update.
type UpdateUserRequest struct {
	Email    *string `json:"email" binding:"omitempty,email"`
	Password *string `json:"password" binding:"omitempty,min=1,max=72"`
	Country  *string `json:"country"`
	City     *string `json:"city"`
	Phone    *string `json:"phone"`
	Img      *string `json:"img"`
}

type loginResponse struct {
	*models.User
	Token string `json:"token"`
}

var errInvalidCredentials = middleware.NewError(http.StatusUnauthorized, "invalid credentials")

// dummyHash is compared against when the username is unknown, so both
// failure paths cost one bcrypt comparison.
var dummyHash, _ = bcrypt.GenerateFromPassword([]byte("not-a-real-password"), bcrypt.DefaultCost)

// Register 用户注册
func (h *Handler) Register(c *gin.Context) {
	var req RegisterRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		middleware.Fail(c, middleware.BadRequest("invalid request: "+err.Error()))
		return
	}

	// 加密密码
	hashedPassword, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		middleware.Fail(c, err)
		return
	}

	user := models.User{
		Username: req.Username,
		Email:    req.Email,
		Password: string(hashedPassword),
		Country:  req.Country,
		City:     req.City,
		Phone:    req.Phone,
		Img:      req.Img,
	}
	if err := h.Store.CreateUser(c.Request.Context(), &user); err != nil {
		middleware.Fail(c, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{
		"success": true,
		"message": "User has been created.",
		"user":    user,
	})
}

// Login 用户登录
func (h *Handler) Login(c *gin.Context) {
	var req LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		middleware.Fail(c, middleware.BadRequest("invalid request: "+err.Error()))
		return
	}

	user, err := h.Store.GetUserByUsername(c.Request.Context(), req.Username)
	if errors.Is(err, database.ErrNotFound) {
		_ = bcrypt.CompareHashAndPassword(dummyHash, []byte(req.Password))
		middleware.Fail(c, errInvalidCredentials)
		return
	}
	if err != nil {
		middleware.Fail(c, err)
		return
	}

	// 验证密码
	if err := bcrypt.CompareHashAndPassword([]byte(user.Password), []byte(req.Password)); err != nil {
		middleware.Fail(c, errInvalidCredentials)
		return
	}

	token, err := h.JWT.GenerateToken(user.ID, user.IsAdmin)
	if err != nil {
		middleware.Fail(c, err)
		return
	}

	middleware.SetSessionCookie(c, token, h.CookieSecure)
	c.JSON(http.StatusOK, loginResponse{User: user, Token: token})
}

// Logout clears the session cookie.
func (h *Handler) Logout(c *gin.Context) {
	middleware.ClearSessionCookie(c, h.CookieSecure)
	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"message": "Logged out.",
	})
}

// GetUsers 获取所有用户（管理员权限）
func (h *Handler) GetUsers(c *gin.Context) {
	users, err := h.Store.ListUsers(c.Request.Context())
	if err != nil {
		middleware.Fail(c, err)
		return
	}
	c.JSON(http.StatusOK, users)
}

func (h *Handler) GetUser(c *gin.Context) {
	user, err := h.Store.GetUser(c.Request.Context(), c.Param("id"))
	if err != nil {
		middleware.Fail(c, err)
		return
	}
	c.JSON(http.StatusOK, user)
}

func (h *Handler) UpdateUser(c *gin.Context) {
	var req UpdateUserRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		middleware.Fail(c, middleware.BadRequest("invalid request: "+err.Error()))
		return
	}

	upd := database.UserUpdate{
		Email:   req.Email,
		Country: req.Country,
		City:    req.City,
		Phone:   req.Phone,
		Img:     req.Img,
	}
	if req.Password != nil {
		hashed, err := bcrypt.GenerateFromPassword([]byte(*req.Password), bcrypt.DefaultCost)
		if err != nil {
			middleware.Fail(c, err)
			return
		}
		password := string(hashed)
		upd.Password = &password
	}

	user, err := h.Store.UpdateUser(c.Request.Context(), c.Param("id"), upd)
	if err != nil {
		middleware.Fail(c, err)
		return
	}
	c.JSON(http.StatusOK, user)
}

func (h *Handler) DeleteUser(c *gin.Context) {
	id := c.Param("id")
	if err := h.Store.DeleteUser(c.Request.Context(), id); err != nil {
		middleware.Fail(c, err)
		return
	}
	if session, ok := middleware.SessionFrom(c); ok && session.UserID == id {
		middleware.ClearSessionCookie(c, h.CookieSecure)
	}
	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"message": "User has been deleted.",
	})
}
