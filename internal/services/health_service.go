package services

import (
	"context"
	"log/slog"
	"os"
	"runtime"
	"time"

	"navcli/internal/config"
)

// Checker is a dependency whose health can be probed, such as a database sink.
type Checker interface {
	Ping(ctx context.Context) error
}

// HealthService provides health check functionality
type HealthService struct {
	version    string
	paths      *config.Paths
	data       *DataService
	operations *OperationService
	clients    func() int
	checks     map[string]Checker
	startTime  time.Time
	logger     *slog.Logger
}

// HealthStatus represents the health status response
type HealthStatus struct {
	Status    string                   `json:"status"`
	Timestamp time.Time                `json:"timestamp"`
	Version   string                   `json:"version"`
	Runtime   map[string]interface{}   `json:"runtime,omitempty"`
	Services  map[string]ServiceHealth `json:"services,omitempty"`
}

// ServiceHealth represents individual service health
type ServiceHealth struct {
	Status  string `json:"status"`
	Message string `json:"message,omitempty"`
}

// SystemStats represents system statistics
type SystemStats struct {
	UptimeSeconds    float64 `json:"uptime_seconds"`
	FundReports      int     `json:"fund_reports"`
	ReportBytes      int64   `json:"report_bytes"`
	WebSocketClients int     `json:"websocket_clients"`
	RunningOperation string  `json:"running_operation,omitempty"`
	GoVersion        string  `json:"go_version"`
	OS               string  `json:"os"`
	Arch             string  `json:"arch"`
}

// NewHealthService creates a health service. clients reports the number of
// connected WebSocket clients and may be nil.
func NewHealthService(version string, paths *config.Paths, data *DataService, ops *OperationService, clients func() int, logger *slog.Logger) *HealthService {
	if logger == nil {
		logger = slog.Default()
	}
	if clients == nil {
		clients = func() int { return 0 }
	}
	return &HealthService{
		version:    version,
		paths:      paths,
		data:       data,
		operations: ops,
		clients:    clients,
		checks:     make(map[string]Checker),
		startTime:  time.Now(),
		logger:     logger,
	}
}

// AddCheck registers a dependency probed by ReadinessCheck.
func (hs *HealthService) AddCheck(name string, c Checker) {
	hs.checks[name] = c
}

// HealthCheck returns overall health status
func (hs *HealthService) HealthCheck(ctx context.Context) HealthStatus {
	return HealthStatus{Status: "ok", Timestamp: time.Now(), Version: hs.version}
}

// ReadinessCheck probes the report directory and every registered dependency.
func (hs *HealthService) ReadinessCheck(ctx context.Context) HealthStatus {
	status := HealthStatus{
		Status:    "ready",
		Timestamp: time.Now(),
		Version:   hs.version,
		Services:  map[string]ServiceHealth{"reports": hs.checkReports()},
	}
	for name, c := range hs.checks {
		pingCtx, cancel := context.WithTimeout(ctx, 2*time.Second)
		err := c.Ping(pingCtx)
		cancel()
		if err != nil {
			hs.logger.WarnContext(ctx, "dependency not ready",
				slog.String("dependency", name),
				slog.String("error", err.Error()))
			status.Services[name] = ServiceHealth{Status: "not_ready", Message: err.Error()}
			continue
		}
		status.Services[name] = ServiceHealth{Status: "ready"}
	}

	for _, s := range status.Services {
		if s.Status != "ready" {
			status.Status = "not_ready"
			break
		}
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

// SystemStats returns system statistics
func (hs *HealthService) SystemStats(ctx context.Context) (SystemStats, error) {
	count, size, err := hs.data.ReportStats()
	if err != nil && !os.IsNotExist(err) {
		return SystemStats{}, err
	}
	running, _ := hs.operations.Running()
	return SystemStats{
		UptimeSeconds:    time.Since(hs.startTime).Seconds(),
		FundReports:      count,
		ReportBytes:      size,
		WebSocketClients: hs.clients(),
		RunningOperation: running,
		GoVersion:        runtime.Version(),
		OS:               runtime.GOOS,
		Arch:             runtime.GOARCH,
	}, nil
}

func (hs *HealthService) checkReports() ServiceHealth {
	info, err := os.Stat(hs.paths.CSVDir)
	if err != nil {
		return ServiceHealth{Status: "not_ready", Message: err.Error()}
	}
	if !info.IsDir() {
		return ServiceHealth{Status: "not_ready", Message: hs.paths.CSVDir + " is not a directory"}
	}
	return ServiceHealth{Status: "ready"}
}
