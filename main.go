package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/joho/godotenv"

	"github.com/ellalabs/ella-extractor/internal/api"
	"github.com/ellalabs/ella-extractor/internal/extractor"
	"github.com/ellalabs/ella-extractor/internal/models"
	"github.com/ellalabs/ella-extractor/internal/parser"
	"github.com/ellalabs/ella-extractor/internal/writer"
)

func main() {
	// .env is optional; real environments set the variables directly.
	_ = godotenv.Load()

	bankFlag := flag.String("bank", "", "Institution: itau_personnalite, sicredi, bradesco, c6, itau, nubank (auto-detected if omitted)")
	outputFlag := flag.String("output", "", "Output CSV file path (defaults to input filename with .csv extension)")
	jsonFlag := flag.Bool("json", false, "Print the structured result as JSON instead of writing CSV")
	headerFlag := flag.Bool("header", true, "Include document metadata header rows in CSV")
	serveFlag := flag.Bool("serve", false, "Run the HTTP service instead of converting files")
	versionFlag := flag.Bool("version", false, "Print version and exit")
	helpFlag := flag.Bool("help", false, "Show usage help")

	flag.Usage = func() {
		fmt.Fprintf(os.Stderr, `ELLA PDF Extractor

Converts Brazilian bank statement and credit-card invoice PDFs
(Itaú Personnalité, Sicredi, Bradesco, C6, Itaú, Nubank) into
structured ledgers.

Usage:
  ella-extractor [flags] <input.pdf> [input2.pdf ...]
  ella-extractor --serve

Flags:
`)
		flag.PrintDefaults()
		fmt.Fprintf(os.Stderr, `
Examples:
  # Auto-detect institution and convert
  ella-extractor extrato.pdf

  # Specify institution explicitly
  ella-extractor --bank=nubank extrato.pdf

  # JSON output
  ella-extractor --bank=sicredi --json fatura.pdf

  # Run the HTTP service (PORT env var, default 8000)
  ella-extractor --serve
`)
	}

	flag.Parse()

	version := envOr("VERSION", "dev")

	if *versionFlag {
		fmt.Printf("ella-extractor v%s\n", version)
		os.Exit(0)
	}

	if *serveFlag {
		serve(version)
		return
	}

	if *helpFlag || flag.NArg() == 0 {
		flag.Usage()
		os.Exit(0)
	}

	var bank models.BankType
	if *bankFlag != "" {
		bank = models.BankType(strings.ReplaceAll(strings.ToLower(*bankFlag), "-", "_"))
		if _, err := parser.New(bank); err != nil {
			fatalf("Unknown institution %q. Supported: itau_personnalite, sicredi, bradesco, c6, itau, nubank\n", *bankFlag)
		}
	}

	for _, inputPath := range flag.Args() {
		if err := processFile(inputPath, bank, *outputFlag, *jsonFlag, *headerFlag); err != nil {
			fmt.Fprintf(os.Stderr, "Error processing %s: %v\n", inputPath, err)
			os.Exit(1)
		}
	}
}

func serve(version string) {
	logger := slog.New(slog.NewJSONHandler(os.Stderr, nil))
	slog.SetDefault(logger)

	h := &api.Handler{
		Version:     version,
		GitSha:      envOr("GIT_SHA", "unknown"),
		BuildTime:   envOr("BUILD_TIME", "unknown"),
		FixturesDir: os.Getenv("FIXTURES_DIR"),
		Logger:      logger,
	}

	app := fiber.New(fiber.Config{
		AppName:   "ella-extractor",
		BodyLimit: 32 << 20,
	})
	h.RegisterRoutes(app)

	addr := ":" + envOr("PORT", "8000")
	logger.Info("listening", "addr", addr, "version", version)
	if err := app.Listen(addr); err != nil {
		logger.Error("server stopped", "error", err)
		os.Exit(1)
	}
}

func processFile(inputPath string, bank models.BankType, outputPath string, asJSON, includeHeader bool) error {
	if _, err := os.Stat(inputPath); os.IsNotExist(err) {
		return fmt.Errorf("input file not found: %s", inputPath)
	}
	if ext := strings.ToLower(filepath.Ext(inputPath)); ext != ".pdf" {
		return fmt.Errorf("expected .pdf file, got %q", ext)
	}

	data, err := os.ReadFile(inputPath)
	if err != nil {
		return fmt.Errorf("read input: %w", err)
	}

	res, err := extractor.ExtractBytes(data)
	if err != nil {
		if extractor.LooksLikePDF(data) {
			return fmt.Errorf("%s: %w", models.ReasonUnreadable, err)
		}
		return fmt.Errorf("not a PDF: %w", err)
	}

	text := res.Text()

	effectiveBank := bank
	if effectiveBank == "" {
		detected, err := parser.Detect(text)
		if err != nil {
			return err
		}
		effectiveBank = detected
		fmt.Printf("  Detected institution: %s\n", detected)
	}

	p, err := parser.New(effectiveBank)
	if err != nil {
		return err
	}
	result := p.Parse(text)

	fmt.Printf("  %d transaction(s), %d page(s), method %s\n", len(result.Transactions), len(res.Pages), res.Method())
	for _, w := range result.Warnings {
		fmt.Printf("  warning: %s\n", w)
	}

	if asJSON {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(result)
	}

	out := outputPath
	if out == "" {
		out = strings.TrimSuffix(inputPath, filepath.Ext(inputPath)) + ".csv"
	}
	cw := &writer.CSVWriter{IncludeHeader: includeHeader}
	if err := cw.WriteToFile(out, result); err != nil {
		return err
	}
	fmt.Printf("  Wrote %s\n", out)
	return nil
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func fatalf(format string, args ...any) {
	fmt.Fprintf(os.Stderr, format, args...)
	os.Exit(1)
}
