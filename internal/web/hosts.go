// internal/web/hosts.go
package web

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"infradash/internal/database"
)

type HostRequest struct {
	Name        string  `json:"name"`
	IPAddress   string  `json:"ipAddress"`
	Description *string `json:"description"`
	Order       int     `json:"order"`
}

// GET /api/hosts - hosts with their services, both ordered by order
func (s *Server) getHosts(c *gin.Context) {
	hosts, err := s.store.Hosts().FindManyWithServices(c.Request.Context(), database.Query{
		OrderBy: []database.Order{database.Asc("order")},
	})
	if err != nil {
		s.fail(c, err, "Failed to fetch hosts")
		return
	}
	c.JSON(http.StatusOK, hosts)
}

func (s *Server) getHost(c *gin.Context) {
	host, err := s.store.Hosts().FindUniqueWithServices(c.Request.Context(), database.ByID(c.Param("id")))
	if err != nil {
		s.fail(c, err, "Failed to fetch host")
		return
	}
	if host == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Host not found"})
		return
	}
	c.JSON(http.StatusOK, host)
}

func (s *Server) createHost(c *gin.Context) {
	var req HostRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	req.Name = strings.TrimSpace(req.Name)
	req.IPAddress = strings.TrimSpace(req.IPAddress)
	if req.Name == "" || req.IPAddress == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Name and IP address are required"})
		return
	}

	host, err := s.store.Hosts().Create(c.Request.Context(), database.Host{
		Name:        req.Name,
		IPAddress:   req.IPAddress,
		Description: req.Description,
		Order:       req.Order,
	})
	if err != nil {
		s.fail(c, err, "Failed to create host")
		return
	}

	logrus.WithFields(logrus.Fields{
		"host_id": host.ID,
		"ip":      host.IPAddress,
	}).Info("Host created")
	c.JSON(http.StatusCreated, host)
}

func (s *Server) updateHost(c *gin.Context) {
	var patch database.HostPatch
	if err := c.ShouldBindJSON(&patch); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if (patch.Name != nil && strings.TrimSpace(*patch.Name) == "") || (patch.IPAddress != nil && strings.TrimSpace(*patch.IPAddress) == "") {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Name and IP address cannot be empty"})
		return
	}

	host, err := s.store.Hosts().Update(c.Request.Context(), database.ByID(c.Param("id")), patch)
	if err != nil {
		s.fail(c, err, "Failed to update host")
		return
	}
	c.JSON(http.StatusOK, host)
}

// DELETE /api/hosts/:id - services stay unless ?cascade=true
func (s *Server) deleteHost(c *gin.Context) {
	id := c.Param("id")
	cascade, _ := strconv.ParseBool(c.Query("cascade"))

	if cascade {
		_, removed, err := s.store.DeleteHostCascade(c.Request.Context(), database.ByID(id))
		if err != nil {
			s.fail(c, err, "Failed to delete host")
			return
		}
		c.JSON(http.StatusOK, gin.H{
			"message":         "Host deleted successfully",
			"servicesDeleted": removed,
		})
		return
	}

	if _, err := s.store.Hosts().Delete(c.Request.Context(), database.ByID(id)); err != nil {
		s.fail(c, err, "Failed to delete host")
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Host deleted successfully"})
}
