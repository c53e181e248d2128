package domain

import "time"

// RemoteFileRecord is one entry of a remote directory listing. It is always
// derived from a live listing and never persisted as-is.
type RemoteFileRecord struct {
	Name        string
	Size        int64
	IsDirectory bool
	ModifiedAt  time.Time
}

// ProbeState is the outcome of a directory existence probe
type ProbeState int

const (
	ProbeNotFound ProbeState = iota
	ProbeFound
	ProbeError
)

func (s ProbeState) String() string {
	switch s {
	case ProbeFound:
		return "found"
	case ProbeError:
		return "error"
	default:
		return "not_found"
	}
}

// Probe reports whether a remote directory exists. Err is set only when
// State is ProbeError, so callers can decide whether a transient failure
// counts as missing.
type Probe struct {
	State ProbeState
	Err   error
}

// Found returns a successful probe result.
func Found() Probe { return Probe{State: ProbeFound} }

// Missing returns a probe result for an absent directory.
func Missing() Probe { return Probe{State: ProbeNotFound} }

// ProbeFailed returns a probe result carrying the underlying error.
func ProbeFailed(err error) Probe { return Probe{State: ProbeError, Err: err} }

// Exists reports whether the probe positively found the directory.
func (p Probe) Exists() bool { return p.State == ProbeFound }

// HealthStatus values
const (
	HealthOK       = "OK"
	HealthError    = "ERROR"
	HealthDegraded = "DEGRADED"
)

// HealthReport is the liveness snapshot of one storage backend.
type HealthReport struct {
	Status        string `json:"status"`
	Backend       string `json:"backend"`
	Connected     bool   `json:"connected"`
	Host          string `json:"host"`
	BasePath      string `json:"basePath"`
	BaseDirExists bool   `json:"baseDirExists"`
	Error         string `json:"error,omitempty"`
}

// OK reports whether the backend answered and its base directory exists.
func (h HealthReport) OK() bool { return h.Status == HealthOK }
