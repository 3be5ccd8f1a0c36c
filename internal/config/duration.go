// Package config holds small, shared configuration value types, mirroring
// go.goldmine.build/go/config's Duration wrapper.
package config

import (
	"encoding/json"
	"time"

	"go.vrtcore.dev/internal/skerr"
)

// Duration lets configuration files express durations as human-readable
// strings ("45s", "10m") instead of raw nanosecond integers.
type Duration struct {
	time.Duration
}

func (d Duration) MarshalJSON() ([]byte, error) {
	return json.Marshal(d.Duration.String())
}

func (d *Duration) UnmarshalJSON(b []byte) error {
	var s string
	if err := json.Unmarshal(b, &s); err != nil {
		return skerr.Wrapf(err, "duration must be a JSON string")
	}
	if s == "" {
		d.Duration = 0
		return nil
	}
	parsed, err := time.ParseDuration(s)
	if err != nil {
		return skerr.Wrapf(err, "invalid duration %q", s)
	}
	d.Duration = parsed
	return nil
}
