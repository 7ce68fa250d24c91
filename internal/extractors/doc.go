// Package extractors provides the structured text extractors for each
// supported upload format and the registry that dispatches between them.
//
// Extractors are registered with the Registry at startup via RegisterDefaults.
package extractors
