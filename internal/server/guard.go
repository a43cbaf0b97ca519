package server

import (
	"crypto/subtle"
	"mime"
	"net"
	"net/http"
	"net/url"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/loykin/pipedeck/internal/bridge"
)

// LocalOrigin rejects requests carrying an Origin header that is not a
// loopback host. Browsers always send Origin on cross-site requests, and
// native clients send none.
func LocalOrigin() gin.HandlerFunc {
	return func(c *gin.Context) {
		origin := c.GetHeader("Origin")
		if origin != "" && !loopbackOrigin(origin) {
			abort(c, http.StatusForbidden, "cross-origin request rejected")
			return
		}
		c.Next()
	}
}

// RequireJSON rejects bodies that are not declared as application/json, so
// no bridge call can be made with a CORS simple request. An empty body with
// no Content-Type is a call without arguments.
func RequireJSON() gin.HandlerFunc {
	return func(c *gin.Context) {
		ct := c.GetHeader("Content-Type")
		if ct == "" && c.Request.ContentLength == 0 {
			c.Next()
			return
		}
		mt, _, err := mime.ParseMediaType(ct)
		if err != nil || mt != "application/json" {
			abort(c, http.StatusUnsupportedMediaType, "bridge calls require Content-Type application/json")
			return
		}
		c.Next()
	}
}

// BearerToken requires "Authorization: Bearer <token>". An empty token
// disables the check.
func BearerToken(token string) gin.HandlerFunc {
	return func(c *gin.Context) {
		if token == "" {
			c.Next()
			return
		}
		got, ok := strings.CutPrefix(c.GetHeader("Authorization"), "Bearer ")
		if !ok || subtle.ConstantTimeCompare([]byte(got), []byte(token)) != 1 {
			abort(c, http.StatusUnauthorized, "invalid or missing bridge token")
			return
		}
		c.Next()
	}
}

func abort(c *gin.Context, code int, msg string) {
	writeJSON(c, code, bridge.BadRequest(msg))
	c.Abort()
}

func loopbackOrigin(origin string) bool {
	u, err := url.Parse(origin)
	if err != nil || u.Host == "" {
		return false
	}
	host := u.Hostname()
	if strings.EqualFold(host, "localhost") {
		return true
	}
	ip := net.ParseIP(host)
	return ip != nil && ip.IsLoopback()
}
