// internal/web/services.go
package web

import (
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"infradash/internal/database"
)

type ServiceRequest struct {
	Name        string  `json:"name"`
	Description *string `json:"description"`
	URL         string  `json:"url"`
	Port        int     `json:"port"`
	HostID      string  `json:"hostId"`
	IconType    string  `json:"iconType"`
	IconValue   *string `json:"iconValue"`
	Category    *string `json:"category"`
	IsActive    *bool   `json:"isActive"`
	Order       int     `json:"order"`
}

// GET /api/services?hostId= - services with their host, ordered by order
func (s *Server) getServices(c *gin.Context) {
	q := database.Query{OrderBy: []database.Order{database.Asc("order")}}
	if hostID := c.Query("hostId"); hostID != "" {
		q.Where = database.Where{database.Eq("hostId", hostID)}
	}

	services, err := s.store.Services().FindManyWithHost(c.Request.Context(), q)
	if err != nil {
		s.fail(c, err, "Failed to fetch services")
		return
	}
	c.JSON(http.StatusOK, services)
}

func (s *Server) getService(c *gin.Context) {
	svc, err := s.store.Services().FindUniqueWithHost(c.Request.Context(), database.ByID(c.Param("id")))
	if err != nil {
		s.fail(c, err, "Failed to fetch service")
		return
	}
	if svc == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Service not found"})
		return
	}
	c.JSON(http.StatusOK, svc)
}

func (s *Server) createService(c *gin.Context) {
	var req ServiceRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if strings.TrimSpace(req.Name) == "" || strings.TrimSpace(req.URL) == "" || req.Port == 0 || req.HostID == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Name, URL, port, and hostId are required"})
		return
	}

	svc := database.Service{
		Name:        req.Name,
		Description: req.Description,
		URL:         req.URL,
		Port:        req.Port,
		HostID:      req.HostID,
		IconType:    req.IconType,
		IconValue:   req.IconValue,
		Category:    req.Category,
		IsActive:    true,
		Order:       req.Order,
	}
	if svc.IconType == "" {
		svc.IconType = database.IconPreset
	}
	if req.IsActive != nil {
		svc.IsActive = *req.IsActive
	}

	created, err := s.store.Services().Create(c.Request.Context(), svc)
	if err != nil {
		s.failService(c, err, req.Port, "Failed to create service")
		return
	}
	c.JSON(http.StatusCreated, created)
}

func (s *Server) updateService(c *gin.Context) {
	var patch database.ServicePatch
	if err := c.ShouldBindJSON(&patch); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	svc, err := s.store.Services().Update(c.Request.Context(), database.ByID(c.Param("id")), patch)
	if err != nil {
		port := 0
		if patch.Port != nil {
			port = *patch.Port
		}
		s.failService(c, err, port, "Failed to update service")
		return
	}
	c.JSON(http.StatusOK, svc)
}

func (s *Server) deleteService(c *gin.Context) {
	if _, err := s.store.Services().Delete(c.Request.Context(), database.ByID(c.Param("id"))); err != nil {
		s.fail(c, err, "Failed to delete service")
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Service deleted successfully"})
}

func (s *Server) failService(c *gin.Context, err error, port int, msg string) {
	if errors.Is(err, database.ErrPortInUse) && port != 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": fmt.Sprintf("Port %d is already in use on this host", port)})
		return
	}
	s.fail(c, err, msg)
}
