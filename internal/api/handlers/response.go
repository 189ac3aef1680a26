package handlers

import (
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"

	"github.com/andresuchdata/orderplan/internal/domain"
	"github.com/andresuchdata/orderplan/internal/filter"
	"github.com/andresuchdata/orderplan/internal/report"
	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"
)

// StatusFor maps a service error to an HTTP status.
func StatusFor(err error) int {
	switch {
	case errors.Is(err, domain.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, domain.ErrConflict), errors.Is(err, domain.ErrAmbiguousSynonym):
		return http.StatusConflict
	case errors.Is(err, domain.ErrUnsupportedFormat):
		return http.StatusUnsupportedMediaType
	case errors.Is(err, domain.ErrPartialBroadcast):
		return http.StatusMultiStatus
	case errors.Is(err, domain.ErrEmptyInput),
		errors.Is(err, domain.ErrInvalidLimit),
		errors.Is(err, domain.ErrExpressionSyntax),
		errors.Is(err, domain.ErrInvalidInput):
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}

func respondError(c *gin.Context, err error) {
	status := StatusFor(err)
	body := gin.H{"error": err.Error()}

	var syntaxErr *filter.SyntaxError
	if errors.As(err, &syntaxErr) {
		body["position"] = syntaxErr.Pos
	}

	if status >= http.StatusInternalServerError {
		log.Error().Err(err).Str("path", c.Request.URL.Path).Msg("request failed")
		body["error"] = "internal server error"
	} else {
		log.Debug().Err(err).Int("status", status).Str("path", c.Request.URL.Path).Msg("request rejected")
	}
	c.JSON(status, body)
}

func badRequest(c *gin.Context, message string) {
	c.JSON(http.StatusBadRequest, gin.H{"error": message})
}

// readUpload reads the multipart file field into memory.
func readUpload(c *gin.Context, field string) (string, []byte, error) {
	header, err := c.FormFile(field)
	if err != nil {
		return "", nil, fmt.Errorf("%w: multipart field %q is required", domain.ErrInvalidInput, field)
	}
	f, err := header.Open()
	if err != nil {
		return "", nil, err
	}
	defer f.Close()

	data, err := io.ReadAll(f)
	if err != nil {
		return "", nil, fmt.Errorf("failed to read upload: %w", err)
	}
	return header.Filename, data, nil
}

func sendWorkbook(c *gin.Context, filename, orderID string, data []byte) {
	c.Header("Content-Disposition", report.ContentDisposition(filename))
	c.Header("Access-Control-Expose-Headers", "Content-Disposition, X-Order-ID")
	if orderID != "" {
		c.Header("X-Order-ID", orderID)
	}
	c.Data(http.StatusOK, report.ContentType, data)
}

func queryBool(c *gin.Context, key string) bool {
	v, err := strconv.ParseBool(strings.TrimSpace(c.Query(key)))
	return err == nil && v
}

// splitList reads a comma separated query value.
func splitList(raw string) []string {
	var out []string
	for _, part := range strings.Split(raw, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
