package server

import (
	"encoding/json"
	"net/http"
)

type apiResponse struct {
	Status  string `json:"status"` // success | fail
	Message string `json:"message,omitempty"`
	Data    any    `json:"data,omitempty"`
}

func decodeRequestBody(r *http.Request, v any) error {
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	return dec.Decode(v)
}

func writeJSON(w http.ResponseWriter, statusCode int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	_ = json.NewEncoder(w).Encode(v)
}

func respondSuccess(w http.ResponseWriter, statusCode int, message string, data any) {
	writeJSON(w, statusCode, apiResponse{
		Status:  "success",
		Message: message,
		Data:    data,
	})
}

func respondFail(w http.ResponseWriter, statusCode int, message string) {
	writeJSON(w, statusCode, apiResponse{
		Status:  "fail",
		Message: message,
	})
}
