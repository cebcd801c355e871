package enums

import (
	"fmt"
	"strings"
)

// SnapshotBackend selects where cart snapshots are persisted.
type SnapshotBackend string

const (
	SnapshotBackendMemory SnapshotBackend = "memory"
	SnapshotBackendFile   SnapshotBackend = "file"
	SnapshotBackendRedis  SnapshotBackend = "redis"
	SnapshotBackendSQL    SnapshotBackend = "sql"
)

var validSnapshotBackends = []SnapshotBackend{
	SnapshotBackendMemory,
	SnapshotBackendFile,
	SnapshotBackendRedis,
	SnapshotBackendSQL,
}

// String implements fmt.Stringer.
func (b SnapshotBackend) String() string {
	return string(b)
}

// IsValid reports whether the backend is recognized.
func (b SnapshotBackend) IsValid() bool {
	for _, candidate := range validSnapshotBackends {
		if candidate == b {
			return true
		}
	}
	return false
}

// ParseSnapshotBackend converts raw input into a SnapshotBackend.
func ParseSnapshotBackend(value string) (SnapshotBackend, error) {
	normalized := strings.ToLower(strings.TrimSpace(value))
	for _, candidate := range validSnapshotBackends {
		if string(candidate) == normalized {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid snapshot backend %q", value)
}
