// Package domain holds the propdocs data model: documents and their
// chunks, analysis records, ranking candidates, chat events, owning
// entities, settings and scheduled tasks, plus the errors the core
// reports. It imports only the standard library.
package domain
