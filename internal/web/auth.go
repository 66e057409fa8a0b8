// internal/web/auth.go
package web

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
)

type CredentialsRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

// GET /api/auth/setup - whether the first admin still has to be created
func (s *Server) getSetupStatus(c *gin.Context) {
	needs, err := s.auth.NeedsSetup(c.Request.Context())
	if err != nil {
		logrus.WithError(err).Warn("Failed to count users, assuming setup is needed")
		needs = true
	}
	c.JSON(http.StatusOK, gin.H{"needsSetup": needs})
}

// POST /api/auth/setup - create the initial admin user
func (s *Server) setup(c *gin.Context) {
	var req CredentialsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Username and password are required"})
		return
	}

	user, err := s.auth.Setup(c.Request.Context(), req.Username, req.Password)
	if err != nil {
		s.fail(c, err, "Failed to create user")
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"message": "Admin user created successfully",
		"user":    user,
	})
}

// POST /api/auth/login - credential check only; sessions are left to the
// frontend.
func (s *Server) login(c *gin.Context) {
	var req CredentialsRequest
	if err := c.ShouldBindJSON(&req); err != nil || req.Username == "" || req.Password == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Username and password are required"})
		return
	}

	user, err := s.auth.Authenticate(c.Request.Context(), req.Username, req.Password)
	if err != nil {
		logrus.WithField("username", req.Username).Warn("Authentication failed")
		s.fail(c, err, "Failed to authenticate")
		return
	}
	c.JSON(http.StatusOK, gin.H{"user": user})
}
