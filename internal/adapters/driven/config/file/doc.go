// Package file keeps user-editable state on disk under ~/.propdocs:
// config.toml through ConfigStore and prompt templates through
// PromptStore.
package file
