package utils

import (
	"encoding/json"
	"log"
	"net/http"
)

// ErrorResponse 是所有错误响应的统一格式
type ErrorResponse struct {
	Error string `json:"error"`
}

// RespondJSON 发送JSON响应
func RespondJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	if payload == nil {
		return
	}
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		log.Printf("[http] failed to encode response status=%d: %v", status, err)
	}
}

// RespondError 发送错误响应
func RespondError(w http.ResponseWriter, status int, message string) {
	RespondJSON(w, status, ErrorResponse{Error: message})
}
