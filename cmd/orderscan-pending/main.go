package main

import (
	_ "embed"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"strings"

	"github.com/peterbourgon/ff/v4"
	"github.com/peterbourgon/ff/v4/ffhelp"

	"github.com/kojimafarm/orderscan/internal/order"
	"github.com/kojimafarm/orderscan/internal/recognition"
)

//go:embed VERSION.txt
var versionFile string

var version = strings.TrimSpace(versionFile)

// orderscan-pending inspects and reprocesses the pending-review directory:
// inputs that exhausted their quota retries during a batch run. Without
// --retry it lists what is parked; with --retry it pushes every entry back
// through recognition and removes the ones that make it through.
func main() {
	fs := ff.NewFlagSet("orderscan-pending")
	var (
		pendingDir = fs.StringLong("pending", "./pending", "Pending-review directory")
		retry      = fs.BoolLong("retry", "Reprocess pending entries instead of listing them")

		outPath     = fs.StringLong("out", "labels-pending.json", "Label document output path for retried entries")
		summaryPath = fs.StringLong("summary", "summary-pending.txt", "Chat summary output path for retried entries")
		company     = fs.StringLong("company", "小島農園", "Company name printed on labels")
		aliasPath   = fs.StringLong("aliases", "aliases.db", "Alias database path (empty for built-in name rules)")

		provider    = fs.StringLong("provider", "gemini", "AI vision provider: 'gemini' or 'ollama'")
		geminiKey   = fs.StringLong("gemini-key", "", "Google Gemini API key (or set ORDERSCAN_GEMINI_KEY)")
		geminiModel = fs.StringLong("gemini-model", "gemini-2.0-flash-lite", "Google Gemini model name")
		ollamaURL   = fs.StringLong("ollama-url", "http://localhost:11434", "Ollama API base URL")
		ollamaModel = fs.StringLong("ollama-model", "llava", "Ollama model name")

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

	pending, err := recognition.NewPendingStore(*pendingDir)
	if err != nil {
		slog.Error("Failed to open pending store", "error", err)
		os.Exit(1)
	}

	fingerprints, err := pending.List()
	if err != nil {
		slog.Error("Failed to list pending entries", "error", err)
		os.Exit(1)
	}
	if len(fingerprints) == 0 {
		fmt.Println("no pending entries")
		return
	}

	if !*retry {
		listEntries(pending, fingerprints)
		return
	}

	reconciler, saveAliases, err := buildReconciler(*aliasPath)
	if err != nil {
		slog.Error("Failed to set up alias tables", "error", err)
		os.Exit(1)
	}

	recognizer, err := buildRecognizer(*provider, *geminiKey, *geminiModel, *ollamaURL, *ollamaModel)
	if err != nil {
		slog.Error("Failed to initialize recognizer", "error", err)
		os.Exit(1)
	}
	defer recognizer.Close()

	// The retryer writes still-failing entries back to the same store;
	// re-saving an existing fingerprint is an overwrite, so a failed retry
	// leaves the entry exactly where it was.
	retryer := recognition.NewRetryer(pending)
	service := order.NewService(recognizer, nil, retryer, nil, reconciler)

	inputs := make([]order.Input, 0, len(fingerprints))
	for _, fingerprint := range fingerprints {
		data, err := pending.Get(fingerprint)
		if err != nil {
			slog.Error("Failed to read pending image", "fingerprint", fingerprint, "error", err)
			os.Exit(1)
		}
		inputs = append(inputs, order.Input{
			Filename:    fingerprint,
			Data:        data,
			ContentType: "image/png",
		})
	}

	slog.Info("Retrying pending entries", "count", len(inputs))
	doc, err := service.ProcessBatch(inputs, *company)

	saveAliases()

	if err != nil {
		slog.Error("Retry produced no orders", "error", err)
		os.Exit(1)
	}

	// Entries that neither deferred again nor failed made it through and
	// leave the review queue.
	stuck := make(map[string]bool)
	for _, fingerprint := range doc.Deferred {
		stuck[fingerprint] = true
	}
	for _, failure := range doc.Failures {
		stuck[failure.Filename] = true
	}
	for _, fingerprint := range fingerprints {
		if stuck[fingerprint] {
			continue
		}
		if err := pending.Remove(fingerprint); err != nil {
			slog.Warn("Failed to remove reprocessed entry", "fingerprint", fingerprint, "error", err)
		}
	}

	for _, w := range doc.Warnings {
		slog.Warn("Review needed", "line", w.Index, "message", w.Message)
	}

	data, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		slog.Error("Failed to marshal label document", "error", err)
		os.Exit(1)
	}
	if err := os.WriteFile(*outPath, data, 0644); err != nil {
		slog.Error("Failed to write label document", "error", err)
		os.Exit(1)
	}

	summary := order.Summarize(doc.Lines)
	if err := os.WriteFile(*summaryPath, []byte(summary.Format(order.DefaultUnitLabels())), 0644); err != nil {
		slog.Error("Failed to write summary", "error", err)
		os.Exit(1)
	}

	slog.Info("Done",
		"retried", len(inputs),
		"recovered", len(inputs)-len(stuck),
		"still_pending", len(stuck),
		"labels", *outPath,
		"summary", *summaryPath)
}

func listEntries(pending *recognition.PendingStore, fingerprints []string) {
	for _, fingerprint := range fingerprints {
		meta, err := pending.Meta(fingerprint)
		if err != nil {
			// Older entries may lack a sidecar.
			fmt.Printf("%s\n", fingerprint)
			continue
		}
		fmt.Printf("%s  deferred %s  %s\n",
			fingerprint,
			meta.DeferredAt.Format("2006-01-02 15:04"),
			meta.Reason)
	}
}

func buildReconciler(aliasPath string) (*order.Reconciler, func(), error) {
	rules := order.DefaultRules()
	if aliasPath == "" {
		return order.NewReconciler(nil, nil, rules), func() {}, nil
	}

	db, err := order.NewBoltAliasDB(aliasPath)
	if err != nil {
		return nil, nil, err
	}

	itemTable, err := db.LoadItems()
	if err != nil {
		db.Close()
		return nil, nil, err
	}
	storeTable, err := db.LoadStores()
	if err != nil {
		db.Close()
		return nil, nil, err
	}

	save := func() {
		if err := db.SaveItems(itemTable); err != nil {
			slog.Warn("Failed to save item aliases", "error", err)
		}
		if err := db.SaveStores(storeTable); err != nil {
			slog.Warn("Failed to save store aliases", "error", err)
		}
		db.Close()
	}

	reconciler := order.NewReconciler(
		order.NewNormalizer(itemTable),
		order.NewStoreBook(storeTable, true),
		rules,
	)
	return reconciler, save, nil
}

func buildRecognizer(provider, geminiKey, geminiModel, ollamaURL, ollamaModel string) (recognition.Recognizer, error) {
	switch provider {
	case "gemini":
		apiKey := geminiKey
		if apiKey == "" {
			apiKey = os.Getenv("GEMINI_API_KEY")
		}
		if apiKey == "" {
			return nil, fmt.Errorf("gemini API key is required: set --gemini-key or GEMINI_API_KEY")
		}
		return recognition.NewGemini(apiKey, geminiModel)
	case "ollama":
		return recognition.NewOllama(ollamaURL, ollamaModel)
	default:
		return nil, fmt.Errorf("invalid provider %q: valid values are gemini or ollama", provider)
	}
}
