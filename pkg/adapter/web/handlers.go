package web

import (
	"errors"
	"io"
	"mime/multipart"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/marmos91/webdisk/internal/logger"
	"github.com/marmos91/webdisk/pkg/names"
)

// uploadField is the multipart form field carrying file content.
const uploadField = "file"

var errMissingFilePart = errors.New("multipart field \"file\" is required")

func (a *HTTPAdapter) handleSize(c *gin.Context) {
	c.JSON(http.StatusOK, SizeResponse{Size: a.query.Size()})
}

func (a *HTTPAdapter) handleSearch(c *gin.Context) {
	pattern, ok := c.GetQuery("pattern")
	if !ok {
		abortWithError(c, http.StatusBadRequest, "Query parameter pattern is required")
		return
	}

	start := time.Now()
	results, err := a.query.Search(pattern)
	if err != nil {
		fail(c, err)
		return
	}
	logger.Info("Search for %s took %d ms", pattern, time.Since(start).Milliseconds())

	if results == nil {
		results = []string{}
	}
	c.JSON(http.StatusOK, SearchResponse{Results: results})
}

func (a *HTTPAdapter) handleRestricted(c *gin.Context) {
	c.String(http.StatusOK, "Authorized")
}

func (a *HTTPAdapter) handleUpload(c *gin.Context) {
	part, err := a.filePart(c)
	if err != nil {
		a.failUpload(c, err)
		return
	}
	defer part.Close()

	name, err := a.disk.Create(c.Request.Context(), part)
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, UploadResponse{FileName: name})
}

func (a *HTTPAdapter) handlePut(c *gin.Context) {
	name := c.Param("name")
	if !names.IsValid(name) {
		abortWithError(c, http.StatusBadRequest, "Invalid filename")
		return
	}

	part, err := a.filePart(c)
	if err != nil {
		a.failUpload(c, err)
		return
	}
	defer part.Close()

	if err := a.disk.Put(c.Request.Context(), name, part); err != nil {
		fail(c, err)
		return
	}
	c.String(http.StatusOK, "")
}

func (a *HTTPAdapter) handleDownload(c *gin.Context) {
	name := c.Param("name")

	rc, err := a.disk.Read(c.Request.Context(), name)
	if err != nil {
		fail(c, err)
		return
	}
	defer rc.Close()

	c.Header("Content-Disposition", "attachment; filename="+name)
	c.Header("Content-Type", "application/octet-stream")
	c.Status(http.StatusOK)

	// Headers are sent with the first byte, so a copy failure can only be
	// logged and the connection cut short.
	if _, err := io.Copy(c.Writer, rc); err != nil {
		_ = c.Error(err)
		logger.Warn("Download of %s interrupted: %v", name, err)
	}
}

func (a *HTTPAdapter) handleExists(c *gin.Context) {
	if !a.query.Exists(c.Param("name")) {
		c.Status(http.StatusNotFound)
		return
	}
	c.Status(http.StatusOK)
}

func (a *HTTPAdapter) handleDelete(c *gin.Context) {
	if err := a.disk.Delete(c.Request.Context(), c.Param("name")); err != nil {
		fail(c, err)
		return
	}
	c.String(http.StatusOK, "")
}

// filePart streams the "file" part of a multipart body without buffering
// the whole request. Parts before it are skipped.
func (a *HTTPAdapter) filePart(c *gin.Context) (*multipart.Part, error) {
	if a.config.MaxUploadBytes > 0 {
		c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, a.config.MaxUploadBytes)
	}

	reader, err := c.Request.MultipartReader()
	if err != nil {
		return nil, err
	}

	for {
		part, err := reader.NextPart()
		if errors.Is(err, io.EOF) {
			return nil, errMissingFilePart
		}
		if err != nil {
			return nil, err
		}
		if part.FormName() == uploadField {
			return part, nil
		}
		_ = part.Close()
	}
}

func (a *HTTPAdapter) failUpload(c *gin.Context, err error) {
	var tooLarge *http.MaxBytesError
	if errors.As(err, &tooLarge) {
		fail(c, err)
		return
	}
	_ = c.Error(err)
	abortWithError(c, http.StatusBadRequest, "Expected a multipart body with a file field")
}
