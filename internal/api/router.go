package api

import (
	"github.com/gin-gonic/gin"

	"github.com/JLEscolaDev/magnet-fortune-tracker-sub000/internal/auth"
)

// NewRouter wires the full HTTP surface. Every /api route sits behind auth.
func NewRouter(app App, provider auth.Provider) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(RequestIDMiddleware())

	r.GET("/healthz", func(c *gin.Context) {
		c.JSON(200, gin.H{"status": "ok"})
	})

	protected := r.Group("/api")
	protected.Use(auth.AuthMiddleware(provider))
	{
		protected.POST("/entries", SaveEntryHandler(app))
		protected.POST("/fortunes", SaveFortuneHandler(app))
		protected.POST("/reports/generate", GenerateReportHandler(app))
		protected.GET("/reports", ListReportsHandler(app))
		protected.GET("/reports/:id", GetReportHandler(app))
	}
	return r
}
