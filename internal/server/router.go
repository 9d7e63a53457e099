package server

import (
	"net/http"

	"github.com/gin-contrib/sessions"
	"github.com/gin-contrib/sessions/cookie"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"tilt-dashboard/internal/config"
	"tilt-dashboard/internal/handlers"
	"tilt-dashboard/internal/middleware"
)

const sessionMaxAge = 8 * 60 * 60

func NewRouter(cfg *config.Config, h *handlers.Handler, metrics prometheus.Gatherer) *gin.Engine {
	r := gin.Default()

	store := cookie.NewStore([]byte(cfg.SessionSecret))
	store.Options(sessions.Options{
		Path:     "/",
		MaxAge:   sessionMaxAge,
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})
	r.Use(sessions.Sessions("tilt_session", store))

	r.Use(middleware.InjectUser(h.Store))

	// AUTH
	r.POST("/login", h.Login)
	r.POST("/logout", h.Logout)
	r.GET("/session", h.Session)

	auth := r.Group("/")
	auth.Use(middleware.RequireAuth())

	auth.POST("/change-password", h.ChangePassword)

	// VENDORS
	auth.GET("/vendors", h.ListVendors)
	auth.GET("/vendors/ranked", h.RankedVendors)
	auth.POST("/vendors", h.CreateVendor)
	auth.GET("/vendors/:id", h.GetVendor)
	auth.PUT("/vendors/:id", h.UpdateVendor)
	auth.DELETE("/vendors/:id", h.DeleteVendor)
	auth.POST("/vendors/:id/acknowledge", h.AcknowledgeVendor)

	// CATALOG
	auth.GET("/questions/standard", h.ListQuestions)
	auth.POST("/questions/standard", h.SaveQuestion)
	auth.PUT("/questions/standard/:id", h.SaveQuestion)
	auth.DELETE("/questions/standard/:id", h.DeleteQuestion)

	auth.GET("/questions/cloud", h.ListCriteria)
	auth.POST("/questions/cloud", h.SaveCriterion)
	auth.PUT("/questions/cloud/:id", h.SaveCriterion)
	auth.DELETE("/questions/cloud/:id", h.DeleteCriterion)

	// SETTINGS
	auth.GET("/settings", h.GetSettings)
	auth.POST("/settings", h.SaveSettings)

	// SCORING / OSINT
	auth.POST("/assessment/calculate", h.Calculate)
	auth.POST("/osint/scan/:id", h.ScanVendor)

	// HEALTHCHECK
	r.GET("/health", h.Health)
	if metrics != nil {
		r.GET("/metrics", gin.WrapH(promhttp.HandlerFor(metrics, promhttp.HandlerOpts{})))
	}

	return r
}
