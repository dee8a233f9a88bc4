// Package config loads, validates, and defaults the TOML configuration for
// mealvault. Path fields are ~-expanded and normalized at load time so the
// rest of the codebase never touches raw user input.
package config
