// Package driving declares what the surfaces (CLI, HTTP, MCP, TUI) may
// ask of the core. internal/core/services implements every interface here.
package driving
