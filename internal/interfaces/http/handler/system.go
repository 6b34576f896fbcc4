package handler

import (
	"runtime"
	"time"

	"github.com/gin-gonic/gin"
)

const (
	apiName    = "Closebooks Review API"
	apiVersion = "1.0.0"
)

// SystemHandler serves the info and ping endpoints.
type SystemHandler struct {
	BaseHandler
	started   time.Time
	ruleCount int
}

// NewSystemHandler wires a SystemHandler. ruleCount is surfaced by
// /system/info so operators can confirm how many rules the binary carries.
func NewSystemHandler(ruleCount int) *SystemHandler {
	return &SystemHandler{started: time.Now(), ruleCount: ruleCount}
}

// SystemInfoResponse is the payload of GET /system/info.
type SystemInfoResponse struct {
	Name      string `json:"name"`
	Version   string `json:"version"`
	GoVersion string `json:"go_version"`
	Uptime    string `json:"uptime"`
	RuleCount int    `json:"rule_count"`
}

// GetSystemInfo reports build identity, uptime and the registered rule count.
func (h *SystemHandler) GetSystemInfo(c *gin.Context) {
	h.Success(c, SystemInfoResponse{
		Name:      apiName,
		Version:   apiVersion,
		GoVersion: runtime.Version(),
		Uptime:    time.Since(h.started).Round(time.Second).String(),
		RuleCount: h.ruleCount,
	})
}

// PingResponse is the payload of GET /system/ping.
type PingResponse struct {
	Message   string `json:"message"`
	Timestamp string `json:"timestamp"`
}

// Ping answers pong with the server clock, for liveness probes.
func (h *SystemHandler) Ping(c *gin.Context) {
	h.Success(c, PingResponse{
		Message:   "pong",
		Timestamp: time.Now().UTC().Format(time.RFC3339),
	})
}
