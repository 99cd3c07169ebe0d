package models

// Banner is the body of the root endpoint.
type Banner struct {
	Message string `json:"message"`
}

// Health is the body of the liveness endpoints.
type Health struct {
	Status string `json:"status"`
}

// SystemStatus reports the state of the gateway's dependencies.
type SystemStatus struct {
	Status   HealthStatus    `json:"status"`
	Time     Timestamp       `json:"time"`
	Version  string          `json:"version,omitempty"`
	Database SubsystemStatus `json:"database"`
	Backends []BackendStatus `json:"backends"`
}

// SubsystemStatus represents the status of a subsystem.
type SubsystemStatus struct {
	Name   string       `json:"name"`
	Status HealthStatus `json:"status"`
	Detail *string      `json:"detail,omitempty"`
}

// BackendStatus represents the status of a remote backend.
type BackendStatus struct {
	Name           string       `json:"name"`
	Status         HealthStatus `json:"status"`
	BreakerEnabled bool         `json:"breakerEnabled"`
	CircuitState   string       `json:"circuitState"`
	LastSuccessAt  *Timestamp   `json:"lastSuccessAt,omitempty"`
	LastFailureAt  *Timestamp   `json:"lastFailureAt,omitempty"`
	Message        *string      `json:"message,omitempty"`
}
