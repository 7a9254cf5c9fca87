package main

import (
	_ "embed"
	"encoding/json"
	"fmt"
	"log/slog"
	"mime"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/peterbourgon/ff/v4"
	"github.com/peterbourgon/ff/v4/ffhelp"

	"github.com/kojimafarm/orderscan/internal/order"
	"github.com/kojimafarm/orderscan/internal/recognition"
)

//go:embed VERSION.txt
var versionFile string

var version = strings.TrimSpace(versionFile)

func main() {
	fs := ff.NewFlagSet("orderscan")
	var (
		inputDir    = fs.StringLong("input", "", "Directory of order form images (or pass files as arguments)")
		outPath     = fs.StringLong("out", "labels.json", "Label document output path (JSON)")
		summaryPath = fs.StringLong("summary", "summary.txt", "Chat summary output path")
		company     = fs.StringLong("company", "小島農園", "Company name printed on labels")

		cachePath    = fs.StringLong("cache", "recognition-cache.json", "Recognition cache file (empty to disable)")
		cacheCap     = fs.IntLong("cache-cap", 200, "Maximum recognition cache entries")
		pendingDir   = fs.StringLong("pending", "./pending", "Pending-review directory for deferred inputs")
		aliasPath    = fs.StringLong("aliases", "aliases.db", "Alias database path (empty for built-in name rules)")
		noStoreLearn = fs.BoolLong("no-store-learn", "Do not auto-learn unknown store names")

		provider    = fs.StringLong("provider", "gemini", "AI vision provider: 'gemini' or 'ollama'")
		geminiKey   = fs.StringLong("gemini-key", "", "Google Gemini API key (or set ORDERSCAN_GEMINI_KEY)")
		geminiModel = fs.StringLong("gemini-model", "gemini-2.0-flash-lite", "Google Gemini model name")
		ollamaURL   = fs.StringLong("ollama-url", "http://localhost:11434", "Ollama API base URL")
		ollamaModel = fs.StringLong("ollama-model", "llava", "Ollama model name")

		noOCR    = fs.BoolLong("no-ocr", "Skip the OCR pass and go straight to AI recognition")
		ocrLang  = fs.StringLong("ocr-lang", "jpn", "Tesseract language code")
		binarize = fs.BoolLong("binarize", "Binarize images before OCR")

		showVersion = fs.BoolLong("version", "Show version information")
	)

	if err := ff.Parse(fs, os.Args[1:],
		ff.WithEnvVarPrefix("ORDERSCAN"),
	); err != nil {
		fmt.Fprintf(os.Stderr, "%s\n", ffhelp.Flags(fs))
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}

	if *showVersion {
		fmt.Println(version)
		os.Exit(0)
	}

	inputs, err := collectInputs(*inputDir, fs.GetArgs())
	if err != nil {
		slog.Error("Failed to collect inputs", "error", err)
		os.Exit(1)
	}
	if len(inputs) == 0 {
		fmt.Fprintf(os.Stderr, "%s\n", ffhelp.Flags(fs))
		fmt.Fprintln(os.Stderr, "error: no input files (use --input or pass files as arguments)")
		os.Exit(1)
	}

	rules := order.DefaultRules()

	// Alias tables: bbolt-backed when a path is configured, seeded with the
	// rule table on first run. Empty path selects the legacy regex rules.
	var (
		itemTable  *order.AliasTable
		storeTable *order.AliasTable
		aliasDB    order.AliasDB
	)
	if *aliasPath != "" {
		db, err := order.NewBoltAliasDB(*aliasPath)
		if err != nil {
			slog.Error("Failed to open alias database", "error", err)
			os.Exit(1)
		}
		defer db.Close()
		aliasDB = db

		itemTable, err = db.LoadItems()
		if err != nil {
			slog.Error("Failed to load item aliases", "error", err)
			os.Exit(1)
		}
		storeTable, err = db.LoadStores()
		if err != nil {
			slog.Error("Failed to load store aliases", "error", err)
			os.Exit(1)
		}
		seedItemTable(itemTable, rules)
	}

	var reconciler *order.Reconciler
	if itemTable != nil {
		reconciler = order.NewReconciler(
			order.NewNormalizer(itemTable),
			order.NewStoreBook(storeTable, !*noStoreLearn),
			rules,
		)
	} else {
		reconciler = order.NewReconciler(nil, nil, rules)
	}

	// Recognition stack: OCR first pass, AI vision fallback, AI text for
	// trustworthy transcripts and email bodies.
	var vision recognition.Recognizer
	var text recognition.TextRecognizer
	switch *provider {
	case "gemini":
		apiKey := *geminiKey
		if apiKey == "" {
			apiKey = os.Getenv("GEMINI_API_KEY")
		}
		if apiKey == "" {
			slog.Error("Gemini API key is required. Set --gemini-key or GEMINI_API_KEY")
			os.Exit(1)
		}
		slog.Info("Initializing Gemini recognizer...", "model", *geminiModel)
		gemini, err := recognition.NewGemini(apiKey, *geminiModel)
		if err != nil {
			slog.Error("Failed to initialize Gemini", "error", err)
			os.Exit(1)
		}
		vision = gemini
		text = gemini
	case "ollama":
		slog.Info("Initializing Ollama recognizer...", "url", *ollamaURL, "model", *ollamaModel)
		vision, err = recognition.NewOllama(*ollamaURL, *ollamaModel)
		if err != nil {
			slog.Error("Failed to initialize Ollama", "error", err)
			os.Exit(1)
		}
	default:
		slog.Error("Invalid provider", "provider", *provider, "valid", "gemini or ollama")
		os.Exit(1)
	}

	var ocr recognition.Recognizer
	if !*noOCR {
		o := recognition.NewOCR(*ocrLang, itemMatcher(itemTable))
		o.SetBinarize(*binarize)
		ocr = o
	}

	recognizer := recognition.NewHybrid(ocr, vision, text)
	defer recognizer.Close()

	pending, err := recognition.NewPendingStore(*pendingDir)
	if err != nil {
		slog.Error("Failed to initialize pending store", "error", err)
		os.Exit(1)
	}
	retryer := recognition.NewRetryer(pending)

	var cache *recognition.Cache
	if *cachePath != "" {
		cache = recognition.NewCache(*cachePath, *cacheCap)
		if err := cache.Load(); err != nil {
			slog.Warn("Failed to load recognition cache, starting empty", "error", err)
		}
	}

	service := order.NewService(recognizer, text, retryer, cache, reconciler)

	slog.Info("Processing batch", "inputs", len(inputs))
	doc, err := service.ProcessBatch(inputs, *company)

	// Cache and alias tables are saved even when the batch came up empty;
	// learned names and partial results are worth keeping.
	if cache != nil {
		if saveErr := cache.Save(); saveErr != nil {
			slog.Warn("Failed to save recognition cache", "error", saveErr)
		}
	}
	if aliasDB != nil {
		if saveErr := aliasDB.SaveItems(itemTable); saveErr != nil {
			slog.Warn("Failed to save item aliases", "error", saveErr)
		}
		if saveErr := aliasDB.SaveStores(storeTable); saveErr != nil {
			slog.Warn("Failed to save store aliases", "error", saveErr)
		}
	}

	if err != nil {
		slog.Error("Batch produced no orders", "error", err)
		os.Exit(1)
	}

	for _, w := range doc.Warnings {
		slog.Warn("Review needed", "line", w.Index, "message", w.Message)
	}
	for _, fp := range doc.Deferred {
		slog.Warn("Input deferred to pending review", "filename", fp)
	}

	if err := writeDocument(*outPath, doc); err != nil {
		slog.Error("Failed to write label document", "error", err)
		os.Exit(1)
	}

	summary := order.Summarize(doc.Lines)
	if err := os.WriteFile(*summaryPath, []byte(summary.Format(order.DefaultUnitLabels())), 0644); err != nil {
		slog.Error("Failed to write summary", "error", err)
		os.Exit(1)
	}

	slog.Info("Done",
		"lines", len(doc.Lines),
		"stores", len(doc.Stores),
		"warnings", len(doc.Warnings),
		"deferred", len(doc.Deferred),
		"labels", *outPath,
		"summary", *summaryPath)
}

// seedItemTable registers the rule-table items (and their usual spellings)
// on first run so alias lookups start from the farm's real catalog.
func seedItemTable(table *order.AliasTable, rules *order.Rules) {
	if len(table.Entries()) > 0 {
		return
	}
	for _, item := range rules.Items() {
		table.AddEntry(item)
	}
	table.AddVariant("青梗菜", "チンゲン菜")
	table.AddVariant("青梗菜", "チンゲンサイ")
	table.AddVariant("春菊", "シュンギク")
	table.AddVariant("胡瓜(バラ)", "きゅうりバラ")
	table.AddVariant("長ネギ(2本P)", "長ねぎ")
}

// itemMatcher adapts the alias table (or the built-in regex rules) to the
// OCR parser's keyword check.
func itemMatcher(table *order.AliasTable) recognition.ItemMatcher {
	if table == nil {
		return order.MatchItem
	}
	return table.Match
}

func collectInputs(dir string, args []string) ([]order.Input, error) {
	paths := append([]string(nil), args...)
	if dir != "" {
		entries, err := os.ReadDir(dir)
		if err != nil {
			return nil, fmt.Errorf("reading input directory: %w", err)
		}
		for _, entry := range entries {
			if !entry.IsDir() {
				paths = append(paths, filepath.Join(dir, entry.Name()))
			}
		}
	}

	// Deterministic batch order: labels must map back to the photographs
	// in a predictable way.
	sort.Strings(paths)

	inputs := make([]order.Input, 0, len(paths))
	for _, path := range paths {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("reading input %s: %w", path, err)
		}
		contentType := mime.TypeByExtension(filepath.Ext(path))
		if contentType == "" {
			contentType = "image/jpeg"
		}
		inputs = append(inputs, order.Input{
			Filename:    filepath.Base(path),
			Data:        data,
			ContentType: contentType,
		})
	}
	return inputs, nil
}

func writeDocument(path string, doc *order.Document) error {
	data, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return fmt.Errorf("marshaling document: %w", err)
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("writing document: %w", err)
	}
	return nil
}
