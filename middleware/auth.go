package middleware

import (
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
)

// CookieName is the httpOnly cookie carrying the session token.
const CookieName = "access_token"

const sessionKey = "session"

// Claims JWT声明结构
type Claims struct {
	UserID  string `json:"id"`
	IsAdmin bool   `json:"isAdmin"`
	jwt.RegisteredClaims
}

// Session is the authenticated caller of a request.
type Session struct {
	UserID  string
	IsAdmin bool
}

// JWT issues and verifies session tokens.
type JWT struct {
	secret []byte
	ttl    time.Duration
}

// NewJWT returns a token service. A zero ttl issues tokens without expiry.
func NewJWT(secret string, ttl time.Duration) *JWT {
	return &JWT{secret: []byte(secret), ttl: ttl}
}

// GenerateToken 生成JWT token
func (j *JWT) GenerateToken(userID string, isAdmin bool) (string, error) {
	now := time.Now()
	claims := Claims{
		UserID:  userID,
		IsAdmin: isAdmin,
		RegisteredClaims: jwt.RegisteredClaims{
			IssuedAt: jwt.NewNumericDate(now),
			Issuer:   "hotel-booking",
		},
	}
	if j.ttl > 0 {
		claims.ExpiresAt = jwt.NewNumericDate(now.Add(j.ttl))
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(j.secret)
}

// ParseToken 解析JWT token
func (j *JWT) ParseToken(tokenString string) (*Claims, error) {
	token, err := jwt.ParseWithClaims(tokenString, &Claims{}, func(token *jwt.Token) (interface{}, error) {
		return j.secret, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
	if err != nil {
		return nil, err
	}

	if claims, ok := token.Claims.(*Claims); ok && token.Valid && claims.UserID != "" {
		return claims, nil
	}
	return nil, jwt.ErrTokenInvalidClaims
}

// tokenFromRequest reads the session cookie, falling back to a Bearer header.
func tokenFromRequest(c *gin.Context) string {
	if cookie, err := c.Cookie(CookieName); err == nil && cookie != "" {
		return cookie
	}
	header := c.GetHeader("Authorization")
	if token := strings.TrimPrefix(header, "Bearer "); token != header {
		return strings.TrimSpace(token)
	}
	return ""
}

// AuthMiddleware JWT认证中间件
func (j *JWT) AuthMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		tokenString := tokenFromRequest(c)
		if tokenString == "" {
			Fail(c, NewError(http.StatusUnauthorized, "you are not authenticated"))
			return
		}

		claims, err := j.ParseToken(tokenString)
		if err != nil {
			Fail(c, NewError(http.StatusUnauthorized, "token is not valid"))
			return
		}

		c.Set(sessionKey, Session{UserID: claims.UserID, IsAdmin: claims.IsAdmin})
		c.Next()
	}
}

// SessionFrom returns the session stored by AuthMiddleware.
func SessionFrom(c *gin.Context) (Session, bool) {
	v, ok := c.Get(sessionKey)
	if !ok {
		return Session{}, false
	}
	s, ok := v.(Session)
	return s, ok
}

// AdminMiddleware 管理员权限中间件
func AdminMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		session, ok := SessionFrom(c)
		if !ok || !session.IsAdmin {
			Fail(c, NewError(http.StatusForbidden, "you are not authorized"))
			return
		}
		c.Next()
	}
}

// SelfOrAdminMiddleware lets a user act on their own account, identified by
// the path parameter param, and admins act on any account.
func SelfOrAdminMiddleware(param string) gin.HandlerFunc {
	return func(c *gin.Context) {
		session, ok := SessionFrom(c)
		if !ok || (session.UserID != c.Param(param) && !session.IsAdmin) {
			Fail(c, NewError(http.StatusForbidden, "you are not authorized"))
			return
		}
		c.Next()
	}
}

// SetSessionCookie stores token in the httpOnly session cookie.
func SetSessionCookie(c *gin.Context, token string, secure bool) {
	c.SetSameSite(http.SameSiteLaxMode)
	c.SetCookie(CookieName, token, 0, "/", "", secure, true)
}

// ClearSessionCookie expires the session cookie.
func ClearSessionCookie(c *gin.Context, secure bool) {
	c.SetSameSite(http.SameSiteLaxMode)
	c.SetCookie(CookieName, "", -1, "/", "", secure, true)
}
