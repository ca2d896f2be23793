package handlers

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
)

const defaultSessionCookieName = "session"

// CookieSettings shape the session cookie.
type CookieSettings struct {
	Name   string
	Secure bool
	MaxAge time.Duration
}

// CookieName returns the configured cookie name or "session".
func (s CookieSettings) CookieName() string {
	if s.Name == "" {
		return defaultSessionCookieName
	}
	return s.Name
}

func (s CookieSettings) write(c *gin.Context, value string) {
	http.SetCookie(c.Writer, &http.Cookie{
		Name:     s.CookieName(),
		Value:    value,
		Path:     "/",
		MaxAge:   int(s.MaxAge / time.Second),
		HttpOnly: true,
		Secure:   s.Secure,
		SameSite: http.SameSiteLaxMode,
	})
}

func (s CookieSettings) clear(c *gin.Context) {
	http.SetCookie(c.Writer, &http.Cookie{
		Name:     s.CookieName(),
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   s.Secure,
		SameSite: http.SameSiteLaxMode,
	})
}

func (s CookieSettings) read(c *gin.Context) string {
	value, err := c.Cookie(s.CookieName())
	if err != nil {
		return ""
	}
	return value
}
