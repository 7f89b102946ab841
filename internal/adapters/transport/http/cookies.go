package http

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
)

const (
	refreshCookie    = "refreshToken"
	refreshCookieAge = 30 * 24 * time.Hour
)

// setRefreshCookie stores the refresh token where cross-site frontends can send it back but scripts cannot read it.
func setRefreshCookie(c *gin.Context, token, domain string) {
	c.SetSameSite(http.SameSiteNoneMode)
	c.SetCookie(refreshCookie, token, int(refreshCookieAge.Seconds()), "/", domain, true, true)
}

func clearRefreshCookie(c *gin.Context, domain string) {
	c.SetSameSite(http.SameSiteNoneMode)
	c.SetCookie(refreshCookie, "", -1, "/", domain, true, true)
}

func refreshFromCookie(c *gin.Context) string {
	token, err := c.Cookie(refreshCookie)
	if err != nil {
		return ""
	}
	return token
}
