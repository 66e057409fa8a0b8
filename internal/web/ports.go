// internal/web/ports.go
package web

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
)

type PortCheckRequest struct {
	HostID string `json:"hostId"`
	Port   *int   `json:"port"`
}

// GET /api/ports/generate?hostId=&start=&end=
func (s *Server) generatePort(c *gin.Context) {
	hostID := c.Query("hostId")
	if hostID == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "hostId is required"})
		return
	}

	start, err := queryInt(c, "start", s.config.Ports.RangeStart)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "start must be a number"})
		return
	}
	end, err := queryInt(c, "end", s.config.Ports.RangeEnd)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "end must be a number"})
		return
	}

	port, err := s.allocator.GenerateUniquePort(c.Request.Context(), hostID, start, end)
	if err != nil {
		s.fail(c, err, "Failed to generate unique port")
		return
	}
	c.JSON(http.StatusOK, gin.H{"port": port})
}

// POST /api/ports/check
func (s *Server) checkPort(c *gin.Context) {
	var req PortCheckRequest
	if err := c.ShouldBindJSON(&req); err != nil || req.HostID == "" || req.Port == nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "hostId and port are required"})
		return
	}

	available, err := s.allocator.IsPortAvailable(c.Request.Context(), req.HostID, *req.Port)
	if err != nil {
		s.fail(c, err, "Failed to check port availability")
		return
	}
	c.JSON(http.StatusOK, gin.H{"available": available, "port": *req.Port})
}

// GET /api/ports/:hostId/used
func (s *Server) getUsedPorts(c *gin.Context) {
	hostID := c.Param("hostId")
	used, err := s.allocator.UsedPorts(c.Request.Context(), hostID)
	if err != nil {
		s.fail(c, err, "Failed to fetch used ports")
		return
	}
	c.JSON(http.StatusOK, gin.H{"hostId": hostID, "usedPorts": used})
}

func queryInt(c *gin.Context, key string, def int) (int, error) {
	v := c.Query(key)
	if v == "" {
		return def, nil
	}
	return strconv.Atoi(v)
}
