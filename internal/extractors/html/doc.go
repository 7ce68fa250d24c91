// Package html provides a StructuredExtractor for HTML documents. It strips
// tags, scripts and styles and decodes entities, leaving readable text.
package html
