// SPDX-License-Identifier: MIT

package main

import (
	"github.com/KimMachineGun/automemlimit/memlimit"
	"github.com/rs/zerolog"
	"go.uber.org/automaxprocs/maxprocs"
)

// tuneRuntime sizes GOMAXPROCS and GOMEMLIMIT to the container limits.
// Failures are logged and otherwise ignored.
func tuneRuntime(logger zerolog.Logger) {
	if _, err := maxprocs.Set(maxprocs.Logger(func(format string, args ...any) {
		logger.Debug().Msgf(format, args...)
	})); err != nil {
		logger.Warn().Err(err).Msg("failed to set GOMAXPROCS")
	}

	limit, err := memlimit.SetGoMemLimitWithOpts(
		memlimit.WithRatio(0.9),
		memlimit.WithProvider(memlimit.ApplyFallback(memlimit.FromCgroup, memlimit.FromSystem)),
	)
	if err != nil {
		logger.Warn().Err(err).Msg("failed to set GOMEMLIMIT")
		return
	}
	logger.Debug().Int64("limit_bytes", limit).Msg("memory limit set")
}
