package handlers

import (
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
)

var (
	errMissingFile        = errors.New("file is required")
	errMissingCoordinates = errors.New("lat and lng are required")
)

// readUpload reads the multipart "file" field, capping the request body at
// maxBytes. The returned status is the HTTP code to answer with on error.
func readUpload(c *gin.Context, maxBytes int64) ([]byte, int, error) {
	if maxBytes > 0 {
		c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, maxBytes)
	}

	fileHeader, err := c.FormFile("file")
	if err != nil {
		if isTooLarge(err) {
			return nil, http.StatusRequestEntityTooLarge, fmt.Errorf("upload exceeds %d bytes", maxBytes)
		}
		return nil, http.StatusBadRequest, errMissingFile
	}
	if maxBytes > 0 && fileHeader.Size > maxBytes {
		return nil, http.StatusRequestEntityTooLarge, fmt.Errorf("upload exceeds %d bytes", maxBytes)
	}

	f, err := fileHeader.Open()
	if err != nil {
		return nil, http.StatusBadRequest, fmt.Errorf("failed to open upload: %w", err)
	}
	defer f.Close()

	data, err := io.ReadAll(f)
	if err != nil {
		return nil, http.StatusInternalServerError, fmt.Errorf("failed to read upload: %w", err)
	}
	if len(data) == 0 {
		return nil, http.StatusBadRequest, errors.New("file is empty")
	}
	return data, http.StatusOK, nil
}

func isTooLarge(err error) bool {
	var maxErr *http.MaxBytesError
	if errors.As(err, &maxErr) {
		return true
	}
	return strings.Contains(err.Error(), "request body too large")
}

// parseCoordinates parses the lat and lng form fields. No range checks are
// applied.
func parseCoordinates(rawLat, rawLng string) (float64, float64, error) {
	if rawLat == "" || rawLng == "" {
		return 0, 0, errMissingCoordinates
	}
	lat, err := strconv.ParseFloat(rawLat, 64)
	if err != nil {
		return 0, 0, fmt.Errorf("invalid lat: %q", rawLat)
	}
	lng, err := strconv.ParseFloat(rawLng, 64)
	if err != nil {
		return 0, 0, fmt.Errorf("invalid lng: %q", rawLng)
	}
	return lat, lng, nil
}
