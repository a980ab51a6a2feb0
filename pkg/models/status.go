package models

// SystemStatusOperational is the status tag the backend reports when healthy
const SystemStatusOperational = "OPERATIONAL"

// SystemStatusSummary is the server's aggregate view. It is replaced wholesale
// on every fetch and never incrementally updated by the client.
type SystemStatusSummary struct {
	TotalWorkers   int    `json:"totalWorkers"`
	TotalAlerts    int    `json:"totalAlerts"`
	CriticalAlerts int    `json:"criticalAlerts"`
	HighAlerts     int    `json:"highAlerts"`
	SystemStatus   string `json:"systemStatus"`
}

// Operational reports whether the backend considers itself healthy
func (s SystemStatusSummary) Operational() bool {
	return s.SystemStatus == SystemStatusOperational
}

// ConnectivityState is the observed health of the alert stream connection
type ConnectivityState string

const (
	ConnectivityConnecting   ConnectivityState = "CONNECTING"
	ConnectivityConnected    ConnectivityState = "CONNECTED"
	ConnectivityDisconnected ConnectivityState = "DISCONNECTED"
)
