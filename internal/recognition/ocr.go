package recognition

import (
	"bytes"
	"fmt"
	"image/color"
	"regexp"
	"strings"

	"github.com/disintegration/imaging"
	"github.com/otiai10/gosseract/v2"
)

// ItemMatcher reports whether a known produce item name appears in text,
// returning the canonical name. The OCR parser uses it to tell item lines
// apart from store-name lines; it never rewrites the extracted text, that is
// the reconciler's job.
type ItemMatcher func(text string) (string, bool)

// OCR implements the Recognizer interface using Tesseract. It is the cheap
// first pass of the hybrid dispatch: no network call, but handwriting and
// low-contrast photos routinely defeat it, which the confidence score
// reflects.
type OCR struct {
	lang      string
	matchItem ItemMatcher
	binarize  bool
}

// NewOCR creates a new OCR recognizer. lang is a Tesseract language code
// ("jpn" for the usual order forms); matchItem may be nil, disabling
// store/item line disambiguation.
func NewOCR(lang string, matchItem ItemMatcher) *OCR {
	if lang == "" {
		lang = "jpn"
	}
	return &OCR{lang: lang, matchItem: matchItem}
}

// SetBinarize toggles hard black/white thresholding during preprocessing.
// Helps with washed-out photos, hurts with shadows across the page.
func (o *OCR) SetBinarize(enabled bool) {
	o.binarize = enabled
}

// Recognize runs Tesseract over the order image and parses the transcript
// with the heuristic line patterns.
func (o *OCR) Recognize(imageData []byte, contentType string) (*Result, error) {
	pngData, err := PrepareImage(imageData, contentType)
	if err != nil {
		return nil, &Error{Kind: FailurePermanent, Err: err}
	}

	pngData, err = o.preprocess(pngData)
	if err != nil {
		return nil, &Error{Kind: FailurePermanent, Err: err}
	}

	client := gosseract.NewClient()
	defer client.Close()

	if err := client.SetLanguage(o.lang); err != nil {
		return nil, &Error{Kind: FailurePermanent, Err: fmt.Errorf("setting OCR language: %w", err)}
	}
	if err := client.SetPageSegMode(gosseract.PSM_AUTO); err != nil {
		return nil, &Error{Kind: FailurePermanent, Err: fmt.Errorf("setting page segmentation mode: %w", err)}
	}
	if err := client.SetImageFromBytes(pngData); err != nil {
		return nil, &Error{Kind: FailurePermanent, Err: fmt.Errorf("setting OCR image: %w", err)}
	}

	boxes, err := client.GetBoundingBoxesVerbose()
	if err != nil {
		return nil, &Error{Kind: FailurePermanent, Err: fmt.Errorf("extracting text: %w", err)}
	}

	textLines, confidence := o.assembleLines(boxes)
	lines := parseTranscript(textLines, o.matchItem)

	return &Result{
		Lines:      lines,
		Confidence: confidence,
		Source:     "ocr",
		Text:       strings.Join(textLines, "\n"),
	}, nil
}

// Close releases OCR resources (the Tesseract client is per-call)
func (o *OCR) Close() error {
	return nil
}

// preprocess normalizes the photo for Tesseract: grayscale and a contrast
// boost, plus optional binarization for badly lit photos.
func (o *OCR) preprocess(pngData []byte) ([]byte, error) {
	img, err := imaging.Decode(bytes.NewReader(pngData))
	if err != nil {
		return nil, fmt.Errorf("decoding image for preprocessing: %w", err)
	}

	gray := imaging.Grayscale(img)
	gray = imaging.AdjustContrast(gray, 25)
	if o.binarize {
		gray = imaging.AdjustFunc(gray, binarizePixel)
	}

	var buf bytes.Buffer
	if err := imaging.Encode(&buf, gray, imaging.PNG); err != nil {
		return nil, fmt.Errorf("encoding preprocessed image: %w", err)
	}
	return buf.Bytes(), nil
}

// binarizePixel thresholds an already-grayscale pixel to pure black or white.
func binarizePixel(c color.NRGBA) color.NRGBA {
	if int(c.R)+int(c.G)+int(c.B) > 3*140 {
		return color.NRGBA{R: 255, G: 255, B: 255, A: c.A}
	}
	return color.NRGBA{A: c.A}
}

// assembleLines groups word boxes into text lines by block/paragraph/line
// position and computes the mean word confidence (0-100).
func (o *OCR) assembleLines(boxes []gosseract.BoundingBox) ([]string, float64) {
	type lineKey struct{ block, par, line int }

	var order []lineKey
	words := make(map[lineKey][]string)
	var confSum float64

	for _, box := range boxes {
		word := strings.TrimSpace(box.Word)
		if word == "" {
			continue
		}
		key := lineKey{box.BlockNum, box.ParNum, box.LineNum}
		if _, seen := words[key]; !seen {
			order = append(order, key)
		}
		words[key] = append(words[key], word)
		confSum += box.Confidence
	}

	if len(boxes) == 0 {
		return nil, 0
	}

	// Japanese Tesseract splits lines into per-character words; joining
	// with spaces would corrupt item names.
	sep := " "
	if strings.HasPrefix(o.lang, "jpn") {
		sep = ""
	}

	lines := make([]string, 0, len(order))
	for _, key := range order {
		lines = append(lines, strings.Join(words[key], sep))
	}
	return lines, confSum / float64(len(boxes))
}

// Ordered heuristic patterns applied to each space-stripped transcript line.
// First match wins; a line matching none falls back to last-number-is-total.
var (
	// 春菊3箱+バラ20 / 胡瓜(バラ)2箱
	boxSplitPattern = regexp.MustCompile(`^(.+?)(\d+)箱(?:[+＋]?(?:バラ)?(\d+))?$`)
	// 青梗菜(20入)60: pack spec in parens, then a gross total
	unitTotalPattern = regexp.MustCompile(`^(.+?)([(（](\d+)[^)）]*[)）])(\d+)$`)
	// 春菊90袋 / 胡瓜150本
	itemTotalPattern = regexp.MustCompile(`^(\D+?)(\d+)(?:本|個|束|袋|パック|P)?$`)

	digitsPattern = regexp.MustCompile(`\d+`)
)

// parseTranscript turns OCR text lines into candidate order lines, tracking
// a running current-store context: a line with no digits and no known item
// keyword names the store for the item lines that follow it.
func parseTranscript(textLines []string, matchItem ItemMatcher) []CandidateLine {
	var out []CandidateLine
	var currentStore string

	for _, raw := range textLines {
		compact := strings.Join(strings.Fields(raw), "")
		if compact == "" {
			continue
		}

		if !digitsPattern.MatchString(compact) {
			if matchItem != nil {
				if _, ok := matchItem(compact); ok {
					// Item name with no quantity; nothing to extract.
					continue
				}
			}
			currentStore = compact
			continue
		}

		cand, ok := parseOrderLine(compact)
		if !ok {
			continue
		}

		store, item := splitStoreItem(cand.Item, matchItem)
		if store != "" {
			cand.Store = store
			cand.Item = item
		} else {
			cand.Store = currentStore
		}
		out = append(out, cand)
	}
	return out
}

func parseOrderLine(compact string) (CandidateLine, bool) {
	if m := boxSplitPattern.FindStringSubmatch(compact); m != nil {
		cand := CandidateLine{Item: m[1], Boxes: Number(m[2])}
		if m[3] != "" {
			cand.Remainder = Number(m[3])
		}
		return cand, true
	}

	if m := unitTotalPattern.FindStringSubmatch(compact); m != nil {
		return CandidateLine{
			Item:  m[1],
			Spec:  m[2],
			Unit:  Number(m[3]),
			Total: Number(m[4]),
		}, true
	}

	if m := itemTotalPattern.FindStringSubmatch(compact); m != nil {
		return CandidateLine{Item: m[1], Total: Number(m[2])}, true
	}

	// Fallback: last numeric token is the total, everything before it is
	// the item name.
	locs := digitsPattern.FindAllStringIndex(compact, -1)
	if len(locs) == 0 {
		return CandidateLine{}, false
	}
	last := locs[len(locs)-1]
	item := strings.TrimSpace(compact[:last[0]])
	if item == "" {
		return CandidateLine{}, false
	}
	return CandidateLine{Item: item, Total: Number(compact[last[0]:last[1]])}, true
}

// splitStoreItem detects inline "store + item" lines: a short leading token
// followed by a known item keyword. It returns the longest store prefix (up
// to 8 runes) whose removal still leaves a recognizable item.
func splitStoreItem(text string, matchItem ItemMatcher) (string, string) {
	if matchItem == nil {
		return "", text
	}
	if _, ok := matchItem(text); !ok {
		return "", text
	}

	runes := []rune(text)
	best := 0
	for i := 1; i <= 8 && i < len(runes); i++ {
		if _, ok := matchItem(string(runes[i:])); ok {
			best = i
		}
	}
	if best == 0 {
		return "", text
	}
	return string(runes[:best]), string(runes[best:])
}
