package utils

import (
	"encoding/json"
	"fmt"
	"net/http"
)

// SetupSSEHeaders 设置Server-Sent Events响应头
func SetupSSEHeaders(w http.ResponseWriter) {
	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.Header().Set("X-Accel-Buffering", "no")
}

// SendSSEChunk 以 "data: <json>" 帧写出一个事件并立即刷新。
// 写失败通常意味着客户端已断开。
func SendSSEChunk(w http.ResponseWriter, flusher http.Flusher, payload any) error {
	data, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal sse payload: %w", err)
	}

	if _, err := fmt.Fprintf(w, "data: %s\n\n", data); err != nil {
		return fmt.Errorf("write sse frame: %w", err)
	}
	flusher.Flush()
	return nil
}
