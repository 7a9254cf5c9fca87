package recognition

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/generative-ai-go/genai"
	"google.golang.org/api/option"
)

// orderScanPrompt is the shared instruction for AI strategies reading an
// order form image. It embeds the canonical item list and the units-per-box
// table so the model reports quantities already split into boxes and
// remainder where it can.
const orderScanPrompt = `注文書の画像を解析し、店舗ごとの注文行をJSON配列で返してください。

【品目と入数のルール】
- 胡瓜(3本P): 30パック/箱
- 胡瓜(バラ): 100本/箱（端数が50本以上なら50本箱を1つ使う、未満はバラ）
- 春菊: 30袋/箱
- 青梗菜: 20袋/箱
- 長ネギ(2本P): 30パック/箱

【出力形式】JSON配列のみを返してください。コードブロックや説明文は不要です。
[{"store":"店舗名","item":"品目名","spec":"入数","unit":"30","boxes":"2","remainder":"5"}]

- unit/boxes/remainder は数値の文字列で返してください
- 箱数が判断できない場合は "total" に合計数量だけを入れてください
- 店舗名が読めない行は直前の店舗名を引き継いでください`

// orderTextPrompt is the instruction for interpreting already-extracted text
// (an email body or OCR transcript) instead of an image. Text orders have two
// layout quirks the model must resolve: a continuation line holding a bare
// quantity belongs to the item on the previous line, and slash-separated
// numbers on one line are components of the same item to be summed.
const orderTextPrompt = `以下の注文テキストを解析し、店舗ごとの注文行をJSON配列で返してください。

【品目と入数のルール】
- 胡瓜(3本P): 30パック/箱
- 胡瓜(バラ): 100本/箱（端数が50本以上なら50本箱を1つ使う、未満はバラ）
- 春菊: 30袋/箱
- 青梗菜: 20袋/箱
- 長ネギ(2本P): 30パック/箱

【解釈のルール】
- 数量だけの行は直前の品目の続きとして扱ってください
- 「30/20/10」のようにスラッシュ区切りの数量は同じ品目・同じ店舗の内訳なので合計して1行にしてください
- 店舗名が書かれていない行は直前の店舗名を引き継いでください

【出力形式】JSON配列のみを返してください。コードブロックや説明文は不要です。
[{"store":"店舗名","item":"品目名","spec":"入数","unit":"30","boxes":"2","remainder":"5"}]

注文テキスト:
`

// Gemini implements the Recognizer and TextRecognizer interfaces using
// Google Gemini.
type Gemini struct {
	client  *genai.Client
	model   *genai.GenerativeModel
	timeout time.Duration
}

// NewGemini creates a new Gemini recognizer instance
func NewGemini(apiKey string, modelName string) (*Gemini, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("gemini api key is required")
	}
	if modelName == "" {
		modelName = "gemini-2.0-flash-lite"
	}

	ctx := context.Background()
	client, err := genai.NewClient(ctx, option.WithAPIKey(apiKey))
	if err != nil {
		return nil, fmt.Errorf("creating gemini client: %w", err)
	}

	return &Gemini{
		client:  client,
		model:   client.GenerativeModel(modelName),
		timeout: 60 * time.Second,
	}, nil
}

// Recognize analyzes an order form image and extracts candidate lines
func (g *Gemini) Recognize(imageData []byte, contentType string) (*Result, error) {
	ctx, cancel := context.WithTimeout(context.Background(), g.timeout)
	defer cancel()

	pngData, err := PrepareImage(imageData, contentType)
	if err != nil {
		return nil, &Error{Kind: FailurePermanent, Err: err}
	}

	parts := []genai.Part{
		genai.ImageData("png", pngData),
		genai.Text(orderScanPrompt),
	}

	text, err := g.generate(ctx, parts...)
	if err != nil {
		return nil, err
	}

	lines, err := parseCandidateJSON(text)
	if err != nil {
		return nil, err
	}

	return &Result{Lines: lines, Confidence: 100, Source: "gemini-vision"}, nil
}

// RecognizeText interprets already-extracted order text
func (g *Gemini) RecognizeText(text string) (*Result, error) {
	ctx, cancel := context.WithTimeout(context.Background(), g.timeout)
	defer cancel()

	response, err := g.generate(ctx, genai.Text(orderTextPrompt+text))
	if err != nil {
		return nil, err
	}

	lines, err := parseCandidateJSON(response)
	if err != nil {
		return nil, err
	}

	return &Result{Lines: lines, Confidence: 100, Source: "gemini-text"}, nil
}

func (g *Gemini) generate(ctx context.Context, parts ...genai.Part) (string, error) {
	resp, err := g.model.GenerateContent(ctx, parts...)
	if err != nil {
		return "", Classify(fmt.Errorf("generating content: %w", err))
	}

	if len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil || len(resp.Candidates[0].Content.Parts) == 0 {
		return "", &Error{Kind: FailureMalformed, Err: fmt.Errorf("empty response from gemini")}
	}

	var sb strings.Builder
	for _, part := range resp.Candidates[0].Content.Parts {
		if text, ok := part.(genai.Text); ok {
			sb.WriteString(string(text))
		}
	}
	return sb.String(), nil
}

// Close closes the Gemini client
func (g *Gemini) Close() error {
	return g.client.Close()
}
