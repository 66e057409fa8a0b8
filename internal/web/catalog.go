// internal/web/catalog.go - templates and categories
package web

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"infradash/internal/catalog"
	"infradash/internal/database"
)

type TemplateRequest struct {
	Name        string  `json:"name"`
	Description *string `json:"description"`
	Port        int     `json:"port"`
	IconType    string  `json:"iconType"`
	IconValue   *string `json:"iconValue"`
	Category    *string `json:"category"`
}

type CategoryRequest struct {
	Name  string  `json:"name"`
	Color *string `json:"color"`
	Order int     `json:"order"`
}

// GET /api/templates - built-in templates followed by stored ones
func (s *Server) getTemplates(c *gin.Context) {
	stored, err := s.store.ServiceTemplates().FindMany(c.Request.Context(), database.Query{
		OrderBy: []database.Order{database.Asc("name")},
	})
	if err != nil {
		s.fail(c, err, "Failed to fetch templates")
		return
	}
	c.JSON(http.StatusOK, append(catalog.Templates(), stored...))
}

func (s *Server) createTemplate(c *gin.Context) {
	var req TemplateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if strings.TrimSpace(req.Name) == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Name is required"})
		return
	}
	if req.IconType == "" {
		req.IconType = database.IconPreset
	}

	tpl, err := s.store.ServiceTemplates().Create(c.Request.Context(), database.ServiceTemplate{
		Name:        req.Name,
		Description: req.Description,
		Port:        req.Port,
		IconType:    req.IconType,
		IconValue:   req.IconValue,
		Category:    req.Category,
	})
	if err != nil {
		s.fail(c, err, "Failed to create template")
		return
	}
	c.JSON(http.StatusCreated, tpl)
}

func (s *Server) deleteTemplate(c *gin.Context) {
	if _, err := s.store.ServiceTemplates().Delete(c.Request.Context(), database.ByID(c.Param("id"))); err != nil {
		s.fail(c, err, "Failed to delete template")
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Template deleted successfully"})
}

func (s *Server) getCategories(c *gin.Context) {
	cats, err := s.store.Categories().FindMany(c.Request.Context(), database.Query{
		OrderBy: []database.Order{database.Asc("order"), database.Asc("name")},
	})
	if err != nil {
		s.fail(c, err, "Failed to fetch categories")
		return
	}
	c.JSON(http.StatusOK, cats)
}

func (s *Server) createCategory(c *gin.Context) {
	var req CategoryRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if strings.TrimSpace(req.Name) == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Name is required"})
		return
	}

	cat, err := s.store.Categories().Create(c.Request.Context(), database.Category{
		Name:  req.Name,
		Color: req.Color,
		Order: req.Order,
	})
	if err != nil {
		s.fail(c, err, "Failed to create category")
		return
	}
	c.JSON(http.StatusCreated, cat)
}

func (s *Server) updateCategory(c *gin.Context) {
	var patch database.CategoryPatch
	if err := c.ShouldBindJSON(&patch); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	cat, err := s.store.Categories().Update(c.Request.Context(), database.ByID(c.Param("id")), patch)
	if err != nil {
		s.fail(c, err, "Failed to update category")
		return
	}
	c.JSON(http.StatusOK, cat)
}

func (s *Server) deleteCategory(c *gin.Context) {
	if _, err := s.store.Categories().Delete(c.Request.Context(), database.ByID(c.Param("id"))); err != nil {
		s.fail(c, err, "Failed to delete category")
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Category deleted successfully"})
}
