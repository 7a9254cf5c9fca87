package recognition

// ConfidenceThreshold is the minimum average OCR confidence (0-100) at which
// an OCR result is trusted standalone. Below it the hybrid dispatcher falls
// back to an AI strategy.
const ConfidenceThreshold = 60.0

// Result is the output of a single recognition pass over one order form.
type Result struct {
	Lines []CandidateLine `json:"lines"`
	// Confidence is an aggregate score from 0 to 100. AI strategies report
	// 100; OCR reports the mean word confidence.
	Confidence float64 `json:"confidence"`
	// Source identifies the strategy that produced the result ("ocr",
	// "gemini-vision", "gemini-text", "ollama-vision", "cache").
	Source string `json:"source"`
	// Text is the raw transcript, set only by the OCR strategy. The hybrid
	// dispatcher reuses it for the cheaper AI-text fallback.
	Text string `json:"text,omitempty"`
}

// Recognizer extracts candidate order lines from an order form image.
type Recognizer interface {
	// Recognize analyzes an order image and extracts candidate lines
	Recognize(imageData []byte, contentType string) (*Result, error)
	// Close releases any resources held by the recognizer
	Close() error
}

// TextRecognizer extracts candidate order lines from already-extracted text,
// such as an email body or an OCR transcript.
type TextRecognizer interface {
	RecognizeText(text string) (*Result, error)
	Close() error
}
