// internal/web/errors.go
package web

import (
	"errors"
	"net/http"
	"os"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"infradash/internal/auth"
	"infradash/internal/backup"
	"infradash/internal/database"
	"infradash/internal/ports"
)

// fail writes the JSON error response for err. Known sentinel errors map to
// client errors; anything else is logged and reported as msg with a 500.
func (s *Server) fail(c *gin.Context, err error, msg string) {
	status, text := classify(err)
	if status == http.StatusInternalServerError {
		logrus.WithError(err).WithField("path", c.Request.URL.Path).Error(msg)
		text = msg
	}
	c.JSON(status, gin.H{"error": text})
}

func classify(err error) (int, string) {
	switch {
	case errors.Is(err, database.ErrNotFound), errors.Is(err, backup.ErrNotFound):
		return http.StatusNotFound, "Record not found"
	case errors.Is(err, database.ErrDuplicateIP):
		return http.StatusBadRequest, "A host with this IP address already exists"
	case errors.Is(err, database.ErrPortInUse):
		return http.StatusBadRequest, "Port is already in use on this host"
	case errors.Is(err, database.ErrConflict):
		return http.StatusBadRequest, err.Error()
	case errors.Is(err, database.ErrInvalidField), errors.Is(err, database.ErrInvalidSnapshot):
		return http.StatusBadRequest, err.Error()
	case errors.Is(err, ports.ErrExhaustedRange):
		return http.StatusConflict, "No available ports in the specified range"
	case errors.Is(err, backup.ErrInvalidKey):
		return http.StatusBadRequest, err.Error()
	case errors.Is(err, auth.ErrSetupComplete):
		return http.StatusBadRequest, "Setup already completed"
	case errors.Is(err, auth.ErrMissingCredentials):
		return http.StatusBadRequest, "Username and password are required"
	case errors.Is(err, auth.ErrInvalidCredentials):
		return http.StatusUnauthorized, "Invalid username or password"
	}
	return http.StatusInternalServerError, ""
}

func fileExists(path string) bool {
	info, err := os.Stat(path)
	return err == nil && !info.IsDir()
}
