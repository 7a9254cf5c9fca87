package order

import (
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/kojimafarm/orderscan/internal/recognition"
)

// ErrNoOrders is the terminal "nothing to render" outcome: not a single
// order line could be extracted from any input in the batch.
var ErrNoOrders = errors.New("no order lines extracted from any input")

// Input is one uploaded order form. Images carry Data and ContentType; an
// email body arrives with ContentType "text/plain" and the body in Data.
type Input struct {
	Filename    string
	Data        []byte
	ContentType string
}

// Failure records a per-input hard failure. The batch continues past it.
type Failure struct {
	Filename string `json:"filename"`
	Reason   string `json:"reason"`
}

// StoreGroup is the per-store view of the batch, the unit the label
// renderer prints one page for.
type StoreGroup struct {
	Store string `json:"store"`
	Lines []Line `json:"lines"`
	// BoxTotal is the physical box count for the store, the 計 N 箱
	// figure on the label.
	BoxTotal int `json:"box_total"`
}

// Document is the batch output consumed by the downstream label renderer
// and chat formatter.
type Document struct {
	Company      string       `json:"company"`
	DeliveryDate string       `json:"delivery_date"`
	Lines        []Line       `json:"lines"`
	Stores       []StoreGroup `json:"stores"`
	Warnings     []Warning    `json:"warnings,omitempty"`
	Deferred     []string     `json:"deferred,omitempty"`
	Failures     []Failure    `json:"failures,omitempty"`
}

// Service runs the per-input pipeline: cache lookup, recognition with
// retry, reconciliation, aggregation. Inputs are processed sequentially in
// the order given; output line order mirrors input order so labels map back
// to the photographs they came from.
type Service struct {
	recognizer recognition.Recognizer
	text       recognition.TextRecognizer
	retryer    *recognition.Retryer
	cache      *recognition.Cache
	reconciler *Reconciler
	timeSource func() time.Time
}

// NewService creates a Service. text may be nil (no email-body inputs);
// cache may be nil, disabling recognition caching.
func NewService(recognizer recognition.Recognizer, text recognition.TextRecognizer, retryer *recognition.Retryer, cache *recognition.Cache, reconciler *Reconciler) *Service {
	return &Service{
		recognizer: recognizer,
		text:       text,
		retryer:    retryer,
		cache:      cache,
		reconciler: reconciler,
		timeSource: time.Now,
	}
}

// ProcessBatch runs the whole pipeline over a batch of inputs and assembles
// the output document. company names the sender on the label; the delivery
// date defaults to tomorrow. Only a completely empty extraction is an
// error.
func (s *Service) ProcessBatch(inputs []Input, company string) (*Document, error) {
	doc := &Document{
		Company:      company,
		DeliveryDate: s.timeSource().AddDate(0, 0, 1).Format("2006-01-02"),
		Lines:        make([]Line, 0),
	}

	for _, input := range inputs {
		candidates, err := s.processOne(input)
		if err != nil {
			if errors.Is(err, recognition.ErrDeferred) {
				doc.Deferred = append(doc.Deferred, input.Filename)
				continue
			}
			slog.Error("input failed", "filename", input.Filename, "error", err)
			doc.Failures = append(doc.Failures, Failure{Filename: input.Filename, Reason: err.Error()})
			continue
		}

		base := len(doc.Lines)
		lines, warnings := s.reconciler.Reconcile(candidates)
		doc.Lines = append(doc.Lines, lines...)
		for _, w := range warnings {
			w.Index += base
			doc.Warnings = append(doc.Warnings, w)
		}
	}

	if len(doc.Lines) == 0 {
		return nil, ErrNoOrders
	}

	doc.Stores = GroupByStore(doc.Lines)
	return doc, nil
}

// processOne resolves one input to candidate lines: text inputs go to the
// AI-text strategy, images through cache and the retry-wrapped recognizer.
func (s *Service) processOne(input Input) ([]recognition.CandidateLine, error) {
	if isTextInput(input.ContentType) {
		return s.processText(string(input.Data))
	}

	normalized, err := recognition.PrepareImage(input.Data, input.ContentType)
	if err != nil {
		return nil, fmt.Errorf("normalizing image: %w", err)
	}
	fingerprint := recognition.Fingerprint(normalized)

	if s.cache != nil {
		if lines, ok := s.cache.Get(fingerprint); ok {
			slog.Info("cache hit", "filename", input.Filename, "fingerprint", fingerprint)
			return lines, nil
		}
	}

	result, err := s.retryer.Do(fingerprint, normalized, func() (*recognition.Result, error) {
		return s.recognizer.Recognize(normalized, "image/png")
	})
	if err != nil {
		return nil, err
	}

	slog.Info("recognized order form",
		"filename", input.Filename,
		"source", result.Source,
		"lines", len(result.Lines),
		"confidence", result.Confidence)

	if s.cache != nil && len(result.Lines) > 0 {
		s.cache.Put(fingerprint, result.Lines)
	}
	return result.Lines, nil
}

func (s *Service) processText(text string) ([]recognition.CandidateLine, error) {
	if s.text == nil {
		return nil, fmt.Errorf("no text recognizer configured")
	}

	fingerprint := recognition.Fingerprint([]byte(text))
	result, err := s.retryer.Do(fingerprint, nil, func() (*recognition.Result, error) {
		return s.text.RecognizeText(text)
	})
	if err != nil {
		return nil, err
	}
	return result.Lines, nil
}

func isTextInput(contentType string) bool {
	return strings.HasPrefix(strings.ToLower(strings.TrimSpace(contentType)), "text/")
}

// GroupByStore splits lines per store, preserving first-occurrence store
// order and line order within a store.
func GroupByStore(lines []Line) []StoreGroup {
	var order []string
	grouped := make(map[string][]Line)
	for _, line := range lines {
		if _, seen := grouped[line.Store]; !seen {
			order = append(order, line.Store)
		}
		grouped[line.Store] = append(grouped[line.Store], line)
	}

	groups := make([]StoreGroup, 0, len(order))
	for _, store := range order {
		group := StoreGroup{Store: store, Lines: grouped[store]}
		for _, line := range group.Lines {
			group.BoxTotal += line.BoxCount()
		}
		groups = append(groups, group)
	}
	return groups
}
