// Package ocr implements the OCR fallback path: rendering document pages to
// images with poppler, cleaning them up for recognition, and running tesseract.
package ocr
