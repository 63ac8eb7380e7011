// Package probe defines the system-state checks the setup wizard runs and
// the registry that holds them.
package probe

import (
	"fmt"
	"time"
)

// Kind selects how a probe's Target is interpreted and evaluated.
type Kind string

const (
	// KindCommand checks that Target resolves on the executable search path.
	KindCommand Kind = "command-exists"
	// KindPort checks that Target (a port number) accepts TCP connections.
	KindPort Kind = "port-open"
	// KindHTTP checks that Target (a URL) answers with a healthy status.
	KindHTTP Kind = "http-health"
	// KindFile checks that Target (a path) exists and is readable.
	KindFile Kind = "file-exists"
	// KindEnv checks that Target (a variable name) is set and non-empty.
	KindEnv Kind = "env-var-set"
)

// Kinds lists every valid kind.
var Kinds = []Kind{KindCommand, KindPort, KindHTTP, KindFile, KindEnv}

// Category groups probes in the readiness summary.
type Category string

const (
	CategoryDependency Category = "dependency"
	CategoryService    Category = "service"
	CategoryConfig     Category = "config"
	CategoryCredential Category = "credential"
	CategoryCLITool    Category = "cli-tool"
)

// Categories lists every valid category in display order.
var Categories = []Category{CategoryDependency, CategoryCLITool, CategoryService, CategoryConfig, CategoryCredential}

// Status is the outcome of evaluating one probe.
type Status int

const (
	StatusAbsent   Status = iota // checked, not found
	StatusPresent                // checked, found and healthy
	StatusDegraded               // found but unhealthy or outdated
	StatusError                  // the check itself could not complete
)

func (s Status) String() string {
	switch s {
	case StatusAbsent:
		return "absent"
	case StatusPresent:
		return "present"
	case StatusDegraded:
		return "degraded"
	case StatusError:
		return "error"
	default:
		return "unknown"
	}
}

// Satisfied reports whether the component counts as detected: present or
// degraded.
func (s Status) Satisfied() bool {
	return s == StatusPresent || s == StatusDegraded
}

// MarshalText encodes the status by name so JSON output stays readable.
func (s Status) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// UnmarshalText decodes a status name.
func (s *Status) UnmarshalText(b []byte) error {
	switch string(b) {
	case "absent":
		*s = StatusAbsent
	case "present":
		*s = StatusPresent
	case "degraded":
		*s = StatusDegraded
	case "error":
		*s = StatusError
	default:
		return fmt.Errorf("unknown probe status %q", string(b))
	}
	return nil
}

// Probe identifies one thing to check.
type Probe struct {
	// Name is unique within a registry.
	Name string `json:"name"`

	Kind Kind `json:"kind"`

	// Target is a command name, port number, URL, path or variable name
	// depending on Kind.
	Target string `json:"target"`

	// Required probes block a "ready" classification and weigh more in the score.
	Required bool `json:"required"`

	Category Category `json:"category"`

	// MinVersion is an optional version constraint (e.g. ">= 3.10") for
	// command probes. A command that resolves but reports an older version
	// is degraded.
	MinVersion string `json:"min_version,omitempty"`
}

// Result is the outcome of evaluating one Probe. Results are immutable once
// created.
type Result struct {
	ProbeName string    `json:"probe"`
	Status    Status    `json:"status"`
	Detail    string    `json:"detail,omitempty"`
	CheckedAt time.Time `json:"checked_at"`
}
