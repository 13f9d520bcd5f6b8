package server

import (
	"net/http"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
)

func (s *Server) RegisterRoutes() http.Handler {
	r := gin.Default()

	r.Use(cors.New(cors.Config{
		AllowOrigins:     s.config.CORS.AllowedOrigins,
		AllowMethods:     s.config.CORS.AllowedMethods,
		AllowHeaders:     s.config.CORS.AllowedHeaders,
		AllowCredentials: s.config.CORS.AllowCredentials,
		MaxAge:           time.Duration(s.config.CORS.MaxAge) * time.Second,
	}))

	r.MaxMultipartMemory = 8 << 20

	r.GET("/health", s.healthHandler)
	r.GET("/online", s.onlineHandler)

	contracts := r.Group("/api/contracts")
	{
		contracts.POST("/upload", s.UploadContractHandler)
		contracts.GET("", s.ListContractsHandler)
		contracts.GET("/stats", s.ContractStatsHandler)
		contracts.GET("/:id", s.GetContractHandler)
		contracts.GET("/:id/status", s.ContractStatusHandler)
		contracts.GET("/:id/download", s.DownloadContractHandler)
		contracts.POST("/:id/cancel", s.CancelContractHandler)
	}

	return r
}
