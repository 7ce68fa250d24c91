package ocr

import (
	"context"
	"fmt"
	"strings"

	"github.com/custodia-labs/propdocs/internal/core/ports/driven"
	"github.com/custodia-labs/propdocs/internal/extractors/command"
)

// EngineTool is the OCR binary.
const EngineTool = "tesseract"

// Verify interface compliance.
var _ driven.OCREngine = (*Tesseract)(nil)

// Tesseract recognises page images with the tesseract CLI.
type Tesseract struct {
	runner   command.Runner
	language string
}

// NewTesseract creates an engine. An empty language defaults to English.
func NewTesseract(runner command.Runner, language string) *Tesseract {
	if language == "" {
		language = "eng"
	}
	return &Tesseract{runner: runner, language: language}
}

// Recognize returns the text tesseract finds in the image.
func (t *Tesseract) Recognize(ctx context.Context, imagePath string) (string, error) {
	out, err := t.runner.Run(ctx, EngineTool, imagePath, "stdout", "-l", t.language, "--psm", "3")
	if err != nil {
		return "", fmt.Errorf("ocr: %w", err)
	}
	return strings.TrimSpace(string(out)), nil
}
