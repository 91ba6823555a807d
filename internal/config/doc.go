// SPDX-License-Identifier: MIT

// Package config loads the settings service configuration.
//
// Precedence is environment > YAML file > defaults. The YAML file is decoded
// strictly: unknown keys fail the load. ConfigHolder keeps the active
// configuration and swaps it atomically on reload.
package config
