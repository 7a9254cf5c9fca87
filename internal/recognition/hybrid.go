package recognition

import (
	"log/slog"
)

// Hybrid chains the OCR strategy with an AI fallback to keep paid external
// calls to a minimum. OCR runs first; a result below the confidence
// threshold is discarded in favor of AI vision. When OCR produced a readable
// transcript but the line heuristics got nothing out of it, the cheaper
// AI-text strategy interprets the transcript instead of re-reading the image.
type Hybrid struct {
	ocr       Recognizer
	vision    Recognizer
	text      TextRecognizer
	threshold float64
}

// NewHybrid creates a hybrid recognizer. ocr may be nil (no Tesseract
// installed), in which case every input goes straight to vision. text may be
// nil, disabling the transcript shortcut.
func NewHybrid(ocr Recognizer, vision Recognizer, text TextRecognizer) *Hybrid {
	return &Hybrid{
		ocr:       ocr,
		vision:    vision,
		text:      text,
		threshold: ConfidenceThreshold,
	}
}

// Recognize dispatches to OCR first, falling back to AI strategies when the
// OCR result cannot be trusted standalone.
func (h *Hybrid) Recognize(imageData []byte, contentType string) (*Result, error) {
	if h.ocr == nil {
		return h.vision.Recognize(imageData, contentType)
	}

	result, err := h.ocr.Recognize(imageData, contentType)
	if err != nil {
		slog.Warn("OCR pass failed, falling back to AI vision", "error", err)
		return h.vision.Recognize(imageData, contentType)
	}

	if result.Confidence >= h.threshold && len(result.Lines) > 0 {
		return result, nil
	}

	if result.Confidence >= h.threshold && h.text != nil && result.Text != "" {
		// The transcript is trustworthy, only the heuristics came up
		// empty. Interpreting text is cheaper than vision.
		slog.Info("OCR heuristics found no lines, interpreting transcript",
			"confidence", result.Confidence)
		return h.text.RecognizeText(result.Text)
	}

	slog.Info("OCR result below threshold, falling back to AI vision",
		"confidence", result.Confidence,
		"threshold", h.threshold,
		"lines", len(result.Lines))
	return h.vision.Recognize(imageData, contentType)
}

// Close closes all wrapped recognizers
func (h *Hybrid) Close() error {
	var firstErr error
	if h.ocr != nil {
		if err := h.ocr.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	if err := h.vision.Close(); err != nil && firstErr == nil {
		firstErr = err
	}
	if h.text != nil {
		if err := h.text.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}
