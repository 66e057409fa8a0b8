// internal/web/upload.go - service icon uploads
package web

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strings"

	"github.com/gabriel-vasile/mimetype"
	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
)

const maxUploadSize = 2 * 1024 * 1024

var allowedMIMETypes = map[string]bool{
	"image/png":                true,
	"image/jpeg":               true,
	"image/jpg":                true,
	"image/gif":                true,
	"image/webp":               true,
	"image/svg+xml":            true,
	"image/x-icon":             true,
	"image/vnd.microsoft.icon": true,
	"image/bmp":                true,
}

var allowedExtensions = []string{".png", ".jpg", ".jpeg", ".gif", ".webp", ".svg", ".ico", ".bmp"}

var extContentTypes = map[string]string{
	".png":  "image/png",
	".jpg":  "image/jpeg",
	".jpeg": "image/jpeg",
	".gif":  "image/gif",
	".webp": "image/webp",
	".svg":  "image/svg+xml",
	".ico":  "image/x-icon",
	".bmp":  "image/bmp",
}

// mimetype reports canonical names; declared types the browser may send
// under another name are mapped first.
var canonicalMIME = map[string]string{
	"image/jpg":                "image/jpeg",
	"image/vnd.microsoft.icon": "image/x-icon",
}

// POST /api/upload
func (s *Server) uploadIcon(c *gin.Context) {
	fh, err := c.FormFile("file")
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "No file provided"})
		return
	}

	mimeType := fh.Header.Get("Content-Type")
	if !allowedMIMETypes[mimeType] {
		c.JSON(http.StatusBadRequest, gin.H{"error": fmt.Sprintf("Invalid file type: %s. Only image files are allowed (PNG, JPG, GIF, WebP, SVG, ICO, BMP).", mimeType)})
		return
	}

	ext := strings.ToLower(filepath.Ext(fh.Filename))
	if !containsString(allowedExtensions, ext) {
		c.JSON(http.StatusBadRequest, gin.H{"error": fmt.Sprintf("Invalid file extension: %s. Allowed: %s", ext, strings.Join(allowedExtensions, ", "))})
		return
	}

	if fh.Size > maxUploadSize {
		c.JSON(http.StatusBadRequest, gin.H{"error": fmt.Sprintf("File too large. Maximum size is %dMB.", maxUploadSize/1024/1024)})
		return
	}

	f, err := fh.Open()
	if err != nil {
		s.fail(c, err, "Failed to upload file")
		return
	}
	defer f.Close()

	data, err := io.ReadAll(io.LimitReader(f, maxUploadSize+1))
	if err != nil {
		s.fail(c, err, "Failed to upload file")
		return
	}
	if len(data) > maxUploadSize {
		c.JSON(http.StatusBadRequest, gin.H{"error": fmt.Sprintf("File too large. Maximum size is %dMB.", maxUploadSize/1024/1024)})
		return
	}
	if !contentMatches(data, mimeType) {
		c.JSON(http.StatusBadRequest, gin.H{"error": "File content does not match its declared type. Upload rejected."})
		return
	}

	dir := s.config.Server.UploadDir
	if err := os.MkdirAll(dir, 0o755); err != nil {
		s.fail(c, err, "Failed to upload file")
		return
	}

	id := make([]byte, 8)
	if _, err := rand.Read(id); err != nil {
		s.fail(c, err, "Failed to upload file")
		return
	}
	filename := hex.EncodeToString(id) + ext
	if err := os.WriteFile(filepath.Join(dir, filename), data, 0o644); err != nil {
		s.fail(c, err, "Failed to upload file")
		return
	}

	logrus.WithFields(logrus.Fields{
		"filename": filename,
		"size":     len(data),
		"mime":     mimeType,
	}).Info("Icon uploaded")

	c.JSON(http.StatusOK, gin.H{
		"filename":     filename,
		"originalName": fh.Filename,
		"size":         len(data),
		"mimeType":     mimeType,
	})
}

// GET /api/uploads/:filename
func (s *Server) serveUpload(c *gin.Context) {
	name := c.Param("filename")
	if filepath.Base(name) != name || strings.Contains(name, "..") || strings.ContainsAny(name, `/\`) {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid filename"})
		return
	}

	path := filepath.Join(s.config.Server.UploadDir, name)
	if !fileExists(path) {
		c.JSON(http.StatusNotFound, gin.H{"error": "File not found"})
		return
	}

	contentType, ok := extContentTypes[strings.ToLower(filepath.Ext(name))]
	if !ok {
		contentType = "application/octet-stream"
	}
	c.Header("Content-Type", contentType)
	c.Header("Cache-Control", "public, max-age=86400")
	c.File(path)
}

// contentMatches sniffs data and checks it against the declared type. SVG
// is text and is recognised by its leading markup instead.
func contentMatches(data []byte, declared string) bool {
	if len(data) == 0 {
		return false
	}
	if declared == "image/svg+xml" {
		head := data
		if len(head) > 256 {
			head = head[:256]
		}
		text := strings.ToLower(strings.TrimSpace(string(head)))
		return strings.HasPrefix(text, "<?xml") || strings.Contains(text, "<svg")
	}

	want := declared
	if c, ok := canonicalMIME[declared]; ok {
		want = c
	}
	return mimetype.Detect(data).Is(want)
}

func containsString(list []string, v string) bool {
	for _, s := range list {
		if s == v {
			return true
		}
	}
	return false
}
