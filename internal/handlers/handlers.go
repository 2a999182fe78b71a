// Package handlers exposes the HTTP and websocket surface of the three
// assessment engines, plus auth and results.
package handlers

import (
	"context"
	"fmt"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/Kothamrita/GlauCat/internal/models"
)

// currentUser pulls the user loaded by the router middleware.
func currentUser(c *gin.Context) (*models.User, bool) {
	v, ok := c.Get("user")
	if !ok {
		return nil, false
	}
	user, ok := v.(*models.User)
	return user, ok
}

// userKey is the session-manager key for a user; one live engine per key.
func userKey(u *models.User) string {
	return fmt.Sprintf("user:%d", u.ID)
}

// contextWithTimeout bounds persistence calls made from engine
// callbacks or late in a request.
func contextWithTimeout(c *gin.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(c.Request.Context(), 5*time.Second)
}
