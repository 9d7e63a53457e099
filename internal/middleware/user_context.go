package middleware

import (
	"context"

	"github.com/gin-contrib/sessions"
	"github.com/gin-gonic/gin"

	"tilt-dashboard/internal/models"
)

const CurrentUserKey = "CurrentUser"

type UserGetter interface {
	GetUser(ctx context.Context, id uint) (*models.User, error)
}

// InjectUser loads the logged-in operator into the gin context.
func InjectUser(users UserGetter) gin.HandlerFunc {
	return func(c *gin.Context) {
		sess := sessions.Default(c)

		if uid, ok := sess.Get("user_id").(uint); ok && uid > 0 {
			if user, err := users.GetUser(c.Request.Context(), uid); err == nil {
				c.Set(CurrentUserKey, *user)
			}
		}

		c.Next()
	}
}
