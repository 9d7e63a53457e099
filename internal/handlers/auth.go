package handlers

import (
	"net/http"
	"strings"

	"github.com/gin-contrib/sessions"
	"github.com/gin-gonic/gin"
	"golang.org/x/crypto/bcrypt"
)

const minPasswordLength = 8

type loginForm struct {
	Username string `json:"username" form:"username"`
	Password string `json:"password" form:"password"`
}

func (h *Handler) Login(c *gin.Context) {
	var form loginForm
	if err := c.ShouldBind(&form); err != nil {
		badRequest(c, "invalid request")
		return
	}

	user, err := h.Store.FindUser(c.Request.Context(), strings.TrimSpace(form.Username))
	if err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid username or password"})
		return
	}
	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(form.Password)); err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid username or password"})
		return
	}

	sess := sessions.Default(c)
	sess.Set("user_id", user.ID)
	if err := sess.Save(); err != nil {
		h.respondError(c, err)
		return
	}

	h.Log.WithField("username", user.Username).Info("operator logged in")
	c.JSON(http.StatusOK, gin.H{"success": true, "username": user.Username})
}

func (h *Handler) Logout(c *gin.Context) {
	sess := sessions.Default(c)
	sess.Clear()
	_ = sess.Save()
	c.JSON(http.StatusOK, gin.H{"success": true})
}

func (h *Handler) Session(c *gin.Context) {
	uid, ok := sessions.Default(c).Get("user_id").(uint)
	if !ok {
		c.JSON(http.StatusOK, gin.H{"authenticated": false})
		return
	}
	user, err := h.Store.GetUser(c.Request.Context(), uid)
	if err != nil {
		c.JSON(http.StatusOK, gin.H{"authenticated": false})
		return
	}
	c.JSON(http.StatusOK, gin.H{"authenticated": true, "username": user.Username})
}

type changePasswordForm struct {
	CurrentPassword string `json:"current_password"`
	NewPassword     string `json:"new_password"`
}

func (h *Handler) ChangePassword(c *gin.Context) {
	var form changePasswordForm
	if err := c.ShouldBindJSON(&form); err != nil {
		badRequest(c, "invalid request")
		return
	}
	if len(form.NewPassword) < minPasswordLength {
		badRequest(c, "new password must be at least 8 characters")
		return
	}

	uid, _ := sessions.Default(c).Get("user_id").(uint)
	user, err := h.Store.GetUser(c.Request.Context(), uid)
	if err != nil {
		h.respondError(c, err)
		return
	}
	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(form.CurrentPassword)); err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "current password is incorrect"})
		return
	}
	if err := h.Store.SetPassword(c.Request.Context(), uid, form.NewPassword); err != nil {
		h.respondError(c, err)
		return
	}

	h.Log.WithField("username", user.Username).Info("password changed")
	c.JSON(http.StatusOK, gin.H{"success": true})
}
