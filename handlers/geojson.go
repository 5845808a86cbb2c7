package handlers

import (
	"net/http"

	"github.com/Aditya-GrowAI/civicvoice3/models"

	"github.com/apex/log"
	"github.com/gin-gonic/gin"
	geojson "github.com/paulmach/go.geojson"
)

const geoJSONContentType = "application/geo+json"

// IssuesGeoJSON returns the listed issues as a FeatureCollection of points.
func (h *Handlers) IssuesGeoJSON(c *gin.Context) {
	issues, ok := h.listIssues(c)
	if !ok {
		return
	}

	body, err := IssuesFeatureCollection(issues).MarshalJSON()
	if err != nil {
		log.Errorf("Failed to encode GeoJSON: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to encode GeoJSON"})
		return
	}
	c.Data(http.StatusOK, geoJSONContentType, body)
}

// IssuesFeatureCollection converts issues to GeoJSON. Coordinates are
// [lng, lat] and the issue id becomes the feature id.
func IssuesFeatureCollection(issues []models.Issue) *geojson.FeatureCollection {
	fc := geojson.NewFeatureCollection()
	for _, issue := range issues {
		f := geojson.NewPointFeature([]float64{issue.Lng, issue.Lat})
		f.ID = issue.ID
		f.SetProperty("type", issue.Type)
		f.SetProperty("status", issue.Status)
		f.SetProperty("created_at", issue.CreatedAt)
		if issue.Image != nil {
			f.SetProperty("image", *issue.Image)
		}
		if issue.Description != nil {
			f.SetProperty("description", *issue.Description)
		}
		fc.AddFeature(f)
	}
	return fc
}
