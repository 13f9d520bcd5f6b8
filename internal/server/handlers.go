package server

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

func (s *Server) healthHandler(c *gin.Context) {
	health := s.sc.Health(c.Request.Context())

	status := http.StatusOK
	for _, v := range health {
		if v != "healthy" {
			status = http.StatusServiceUnavailable
			break
		}
	}

	c.JSON(status, health)
}

func (s *Server) onlineHandler(c *gin.Context) {
	c.String(http.StatusOK, s.sc.Online())
}
