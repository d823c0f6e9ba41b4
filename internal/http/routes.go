package http

import (
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	gintrace "gopkg.in/DataDog/dd-trace-go.v1/contrib/gin-gonic/gin"

	"github.com/tazhibayda/edu-auth/internal/domain"
)

func NewRouter(h *Handler) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(gintrace.Middleware("edu-auth"))
	r.Use(RequestID())
	r.Use(Metrics())

	r.GET("/healthz", h.Healthz)
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))
	r.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))

	auth := r.Group("/api/auth")
	{
		auth.POST("/register", h.Register)
		auth.POST("/login", h.Login)
		auth.POST("/refresh", h.Refresh)
		auth.POST("/logout", h.Logout)

		auth.GET("/google", h.GoogleStart)
		auth.GET("/google/callback", h.GoogleCallback)

		guarded := auth.Group("", h.Authenticate())
		{
			guarded.GET("/me", h.Me)
			guarded.PUT("/change-password", h.ChangePassword)
			guarded.POST("/set-password", h.SetPassword)
			guarded.PUT("/profile", h.UpdateProfile)
		}
	}

	admin := r.Group("/api/admin", h.Authenticate(), h.RequireRoles(domain.RoleAdmin))
	{
		admin.DELETE("/users/:id", h.DeactivateUser)
	}

	return r
}
