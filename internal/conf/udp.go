package conf

import (
	"fmt"
	"time"

	"unilink/internal/link/udp"
)

// UDP carries the tunables for every udp.Manager the process creates,
// surfacing internal/link/udp.Config's fields as configuration.
type UDP struct {
	PoolCeiling      int `yaml:"pool_ceiling"`
	MTU              int `yaml:"mtu"`
	AcceptThrottleMs int `yaml:"accept_throttle_ms"`
	SinkTimeoutMs    int `yaml:"sink_timeout_ms"`
}

func (u *UDP) setDefaults() {
	if u.PoolCeiling == 0 {
		u.PoolCeiling = 1
	}
	if u.MTU == 0 {
		u.MTU = 65507
	}
	if u.AcceptThrottleMs == 0 {
		u.AcceptThrottleMs = 8
	}
	if u.SinkTimeoutMs == 0 {
		u.SinkTimeoutMs = 5000
	}
}

func (u *UDP) validate() []error {
	var errors []error
	if u.PoolCeiling < 1 {
		errors = append(errors, fmt.Errorf("udp.pool_ceiling must be >= 1"))
	}
	if u.MTU < 1 || u.MTU > 65527 {
		errors = append(errors, fmt.Errorf("udp.mtu must be in [1, 65527]"))
	}
	if u.AcceptThrottleMs < 1 {
		errors = append(errors, fmt.Errorf("udp.accept_throttle_ms must be >= 1"))
	}
	if u.SinkTimeoutMs < 1 {
		errors = append(errors, fmt.Errorf("udp.sink_timeout_ms must be >= 1"))
	}
	return errors
}

// ToLinkConfig builds the internal/link/udp.Config this configuration
// describes.
func (u UDP) ToLinkConfig() udp.Config {
	return udp.Config{
		MTU:            u.MTU,
		PoolCeiling:    u.PoolCeiling,
		AcceptThrottle: time.Duration(u.AcceptThrottleMs) * time.Millisecond,
		SinkTimeout:    time.Duration(u.SinkTimeoutMs) * time.Millisecond,
	}
}
