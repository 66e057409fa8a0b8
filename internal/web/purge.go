// internal/web/purge.go
package web

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
)

// POST /api/purge/orphaned-services - delete services whose host is gone
func (s *Server) purgeOrphanedServices(c *gin.Context) {
	removed, err := s.store.Services().DeleteOrphans(c.Request.Context())
	if err != nil {
		s.fail(c, err, "Failed to purge orphaned services")
		return
	}

	logrus.WithField("deleted_count", removed).Info("Purged orphaned services")
	c.JSON(http.StatusOK, gin.H{
		"message":   "Orphaned services purged successfully",
		"deleted":   removed,
		"timestamp": time.Now(),
	})
}
