// Package services holds the propdocs core: ingestion, retrieval,
// analysis, chat and maintenance. Each service implements a driving port
// and reaches storage, models and the filesystem only through driven
// ports.
package services
