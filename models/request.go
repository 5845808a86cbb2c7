package models

// CreateRequestBody is the JSON body of POST /requests. Pointers let binding
// tell a missing field from a zero value.
type CreateRequestBody struct {
	Description *string  `json:"description" binding:"required"`
	Latitude    *float64 `json:"latitude" binding:"required"`
	Longitude   *float64 `json:"longitude" binding:"required"`
}

type CreateRequestResponse struct {
	Msg string `json:"msg"`
	ID  string `json:"id"`
}

type UploadResponse struct {
	Success bool   `json:"success"`
	Issue   *Issue `json:"issue"`
}

// HealthResponse is returned by GET /health.
type HealthResponse struct {
	Status   string `json:"status"`
	Service  string `json:"service"`
	Database string `json:"database"`
	Time     string `json:"time"`
}
