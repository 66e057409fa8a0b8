// internal/web/backups.go
package web

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
)

func (s *Server) backupsEnabled(c *gin.Context) bool {
	if s.archive == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "Backups are disabled"})
		return false
	}
	return true
}

func (s *Server) listBackups(c *gin.Context) {
	if !s.backupsEnabled(c) {
		return
	}
	list, err := s.archive.List(c.Request.Context())
	if err != nil {
		s.fail(c, err, "Failed to list backups")
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": list, "count": len(list)})
}

func (s *Server) createBackup(c *gin.Context) {
	if !s.backupsEnabled(c) {
		return
	}
	data, err := s.store.Snapshot(c.Request.Context())
	if err != nil {
		s.fail(c, err, "Failed to create backup")
		return
	}
	info, err := s.archive.Save(c.Request.Context(), data)
	if s.metrics != nil {
		s.metrics.RecordBackup(err)
	}
	if err != nil {
		s.fail(c, err, "Failed to create backup")
		return
	}

	logrus.WithFields(logrus.Fields{
		"key":  info.Key,
		"size": info.Size,
	}).Info("Backup created")
	c.JSON(http.StatusCreated, gin.H{"data": info})
}

func (s *Server) backupStats(c *gin.Context) {
	if !s.backupsEnabled(c) {
		return
	}
	stats, err := s.archive.Stats(c.Request.Context())
	if err != nil {
		s.fail(c, err, "Failed to get backup stats")
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": stats})
}

func (s *Server) restoreBackup(c *gin.Context) {
	if !s.backupsEnabled(c) {
		return
	}
	key := c.Param("key")
	if err := s.archive.RestoreInto(c.Request.Context(), key, s.store); err != nil {
		s.fail(c, err, "Failed to restore backup")
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Backup restored successfully", "key": key})
}
