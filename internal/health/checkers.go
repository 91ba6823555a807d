// SPDX-License-Identifier: MIT

package health

import "context"

// PingChecker reports a component unhealthy when its ping fails.
type PingChecker struct {
	name string
	ping func(ctx context.Context) error
}

// NewPingChecker wraps ping, e.g. a record store's Ping method.
func NewPingChecker(name string, ping func(ctx context.Context) error) *PingChecker {
	return &PingChecker{name: name, ping: ping}
}

func (c *PingChecker) Name() string { return c.name }

func (c *PingChecker) Check(ctx context.Context) CheckResult {
	if err := c.ping(ctx); err != nil {
		return CheckResult{Status: StatusUnhealthy, Error: err.Error()}
	}
	return CheckResult{Status: StatusHealthy}
}

// LoadedChecker reports degraded until the settings have been loaded.
type LoadedChecker struct {
	loaded func() bool
}

// NewLoadedChecker creates a checker around a Loaded accessor.
func NewLoadedChecker(loaded func() bool) *LoadedChecker {
	return &LoadedChecker{loaded: loaded}
}

func (c *LoadedChecker) Name() string { return "settings_loaded" }

func (c *LoadedChecker) Check(context.Context) CheckResult {
	if !c.loaded() {
		return CheckResult{Status: StatusDegraded, Message: "settings not loaded yet, groups load on demand"}
	}
	return CheckResult{Status: StatusHealthy, Message: "settings loaded"}
}
