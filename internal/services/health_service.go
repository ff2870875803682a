package services

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"runtime"
	"time"
)

// SessionCounter reports the number of live sessions
type SessionCounter interface {
	Len() int
}

// HealthService provides health check functionality
type HealthService struct {
	version    string
	buildTime  string
	buildID    string
	stagingDir string
	sessions   SessionCounter
	startTime  time.Time
	logger     *slog.Logger
}

// HealthStatus represents the health status response
type HealthStatus struct {
	Status    string                 `json:"status"`
	Timestamp time.Time              `json:"timestamp"`
	Version   string                 `json:"version"`
	Runtime   map[string]interface{} `json:"runtime,omitempty"`
	Services  map[string]interface{} `json:"services,omitempty"`
}

// ServiceHealth represents individual service health
type ServiceHealth struct {
	Status  string `json:"status"`
	Message string `json:"message,omitempty"`
}

// NewHealthService creates a new health service. An empty stagingDir means
// the system temporary directory. sessions may be nil.
func NewHealthService(version, buildTime, buildID, stagingDir string, sessions SessionCounter, logger *slog.Logger) *HealthService {
	if logger == nil {
		logger = slog.Default()
	}
	logger = logger.With(slog.String("component", "health_service"))

	logger.Info("HealthService initialized",
		slog.String("version", version),
		slog.String("build_time", buildTime),
		slog.String("build_id", buildID))

	return &HealthService{
		version:    version,
		buildTime:  buildTime,
		buildID:    buildID,
		stagingDir: stagingDir,
		sessions:   sessions,
		startTime:  time.Now(),
		logger:     logger,
	}
}

// HealthCheck returns overall health status
func (hs *HealthService) HealthCheck(ctx context.Context) HealthStatus {
	hs.logger.Debug("HealthCheck: performing health check",
		slog.String("uptime", time.Since(hs.startTime).String()))

	return HealthStatus{
		Status:    "ok",
		Timestamp: time.Now(),
		Version:   hs.version,
	}
}

// ReadinessCheck reports whether runs can be staged
func (hs *HealthService) ReadinessCheck(ctx context.Context) HealthStatus {
	status := HealthStatus{
		Status:    "ready",
		Timestamp: time.Now(),
		Version:   hs.version,
		Services:  make(map[string]interface{}),
	}

	staging := hs.checkStaging()
	status.Services["staging"] = staging
	if hs.sessions != nil {
		status.Services["sessions"] = ServiceHealth{
			Status:  "ready",
			Message: fmt.Sprintf("%d active session(s)", hs.sessions.Len()),
		}
	}

	if staging.Status != "ready" {
		status.Status = "not_ready"
		hs.logger.Warn("ReadinessCheck: not ready", slog.String("reason", staging.Message))
	}
	return status
}

// LivenessCheck returns liveness status
func (hs *HealthService) LivenessCheck(ctx context.Context) HealthStatus {
	return HealthStatus{
		Status:    "alive",
		Timestamp: time.Now(),
		Version:   hs.version,
		Runtime: map[string]interface{}{
			"uptime":     time.Since(hs.startTime).Seconds(),
			"go_version": runtime.Version(),
			"goroutines": runtime.NumGoroutine(),
		},
	}
}

// Version returns version information
func (hs *HealthService) Version() map[string]interface{} {
	result := map[string]interface{}{
		"version":      hs.version,
		"go_version":   runtime.Version(),
		"os":           runtime.GOOS,
		"arch":         runtime.GOARCH,
		"uptime":       time.Since(hs.startTime).Seconds(),
		"start_time":   hs.startTime.Format(time.RFC3339),
		"current_time": time.Now().Format(time.RFC3339),
	}

	if hs.buildTime != "" {
		result["build_time"] = hs.buildTime
	}
	if hs.buildID != "" {
		result["build_id"] = hs.buildID
	}
	return result
}

// checkStaging verifies a staging directory can be created and removed
func (hs *HealthService) checkStaging() ServiceHealth {
	if hs.stagingDir != "" {
		if err := os.MkdirAll(hs.stagingDir, 0755); err != nil {
			return ServiceHealth{
				Status:  "not_ready",
				Message: fmt.Sprintf("Cannot create staging root: %v", err),
			}
		}
	}

	dir, err := os.MkdirTemp(hs.stagingDir, "health-*")
	if err != nil {
		return ServiceHealth{
			Status:  "not_ready",
			Message: fmt.Sprintf("Cannot write to staging root: %v", err),
		}
	}
	os.RemoveAll(dir)

	return ServiceHealth{
		Status:  "ready",
		Message: "Staging root is writable",
	}
}
