// Package api exposes the parsing engine over HTTP.
package api

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"

	"github.com/ellalabs/ella-extractor/internal/extractor"
	"github.com/ellalabs/ella-extractor/internal/fixtures"
	"github.com/ellalabs/ella-extractor/internal/models"
	"github.com/ellalabs/ella-extractor/internal/parser"
)

// Handler wires the HTTP routes to the extraction and parsing core.
type Handler struct {
	Version     string
	GitSha      string
	BuildTime   string
	FixturesDir string
	Logger      *slog.Logger
}

// errorBody is the JSON shape of every non-2xx response.
type errorBody struct {
	Reason  string `json:"reason,omitempty"`
	Message string `json:"message"`
}

// RegisterRoutes sets up the HTTP routes.
func (h *Handler) RegisterRoutes(app *fiber.App) {
	app.Get("/health", h.handleHealth)
	app.Get("/version", h.handleVersion)
	app.Post("/parse/:bank", h.handleParse)
	app.Post("/extract/:bank", h.handleExtract)
}

func (h *Handler) handleHealth(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{"status": "ok"})
}

func (h *Handler) handleVersion(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{
		"name":      "ella-extractor",
		"version":   h.Version,
		"gitSha":    h.GitSha,
		"buildTime": h.BuildTime,
	})
}

// handleParse runs the full pipeline: upload validation, extraction, parsing.
// The :bank segment names an institution or "auto" for sniff-based detection.
func (h *Handler) handleParse(c *fiber.Ctx) error {
	c.Set("X-Parser-Version", h.Version)
	requestID := uuid.NewString()
	log := h.logger().With("requestId", requestID, "route", "parse", "bank", c.Params("bank"))

	data, filename, ferr := h.readUpload(c)
	if ferr != nil {
		log.Warn("upload rejected", "error", ferr.Message)
		return c.Status(fiber.StatusBadRequest).JSON(ferr)
	}
	log.Info("received upload", "filename", filename, "bytes", len(data))

	res, status, ferr := h.extract(data)
	if ferr != nil {
		log.Warn("extraction failed", "error", ferr.Message, "status", status)
		return c.Status(status).JSON(ferr)
	}

	text := res.Text()
	h.writeFixture(c.Params("bank"), text, log)

	bank, ferr := h.resolveBank(c.Params("bank"), text)
	if ferr != nil {
		log.Warn("bank resolution failed", "error", ferr.Message)
		return c.Status(fiber.StatusBadRequest).JSON(ferr)
	}

	p, err := parser.New(bank)
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(errorBody{Message: err.Error()})
	}

	result := p.Parse(text)
	if result.Debug == nil {
		result.Debug = map[string]any{}
	}
	result.Debug["methodUsed"] = res.Method()
	result.Debug["pages"] = len(res.Pages)

	log.Info("parsed document",
		"transactions", len(result.Transactions),
		"warnings", result.Warnings,
		"method", res.Method())
	return c.JSON(result)
}

// handleExtract returns the recovered text without parsing it, for layout
// debugging.
func (h *Handler) handleExtract(c *fiber.Ctx) error {
	c.Set("X-Parser-Version", h.Version)
	log := h.logger().With("requestId", uuid.NewString(), "route", "extract", "bank", c.Params("bank"))

	data, filename, ferr := h.readUpload(c)
	if ferr != nil {
		return c.Status(fiber.StatusBadRequest).JSON(ferr)
	}

	res, status, ferr := h.extract(data)
	if ferr != nil {
		log.Warn("extraction failed", "error", ferr.Message, "status", status)
		return c.Status(status).JSON(ferr)
	}

	text := res.Text()
	h.writeFixture(c.Params("bank"), text, log)

	lines := strings.Split(text, "\n")
	sample := lines
	if len(sample) > 10 {
		sample = sample[:10]
	}

	return c.JSON(fiber.Map{
		"bank":       c.Params("bank"),
		"filename":   filename,
		"pages":      len(res.Pages),
		"textLength": len(text),
		"text":       text,
		"meta": fiber.Map{
			"methodUsed": res.Method(),
			"lineCount":  len(lines),
			"sample":     sample,
		},
	})
}

func (h *Handler) readUpload(c *fiber.Ctx) ([]byte, string, *errorBody) {
	fileHeader, err := c.FormFile("file")
	if err != nil {
		return nil, "", &errorBody{Message: "No file uploaded. Use form field 'file'."}
	}

	contentType := fileHeader.Header.Get("Content-Type")
	if contentType != "" && contentType != "application/pdf" {
		return nil, "", &errorBody{Message: "Invalid content-type. Expected application/pdf"}
	}

	f, err := fileHeader.Open()
	if err != nil {
		return nil, "", &errorBody{Message: fmt.Sprintf("Failed to open upload: %v", err)}
	}
	defer f.Close()

	data, err := io.ReadAll(f)
	if err != nil {
		return nil, "", &errorBody{Message: fmt.Sprintf("Failed to read upload: %v", err)}
	}
	if len(data) == 0 {
		return nil, "", &errorBody{Message: "Empty file"}
	}
	return data, fileHeader.Filename, nil
}

// extract distinguishes "looks like a PDF but unreadable" (422) from "not a
// PDF at all" (400).
func (h *Handler) extract(data []byte) (*extractor.Result, int, *errorBody) {
	res, err := extractor.ExtractBytes(data)
	if err != nil {
		if extractor.LooksLikePDF(data) {
			return nil, fiber.StatusUnprocessableEntity, &errorBody{
				Reason:  models.ReasonUnreadable,
				Message: "Failed to read PDF",
			}
		}
		return nil, fiber.StatusBadRequest, &errorBody{Message: "Failed to read PDF"}
	}
	return res, 0, nil
}

func (h *Handler) resolveBank(param, text string) (models.BankType, *errorBody) {
	name := strings.ToLower(strings.TrimSpace(param))
	if name == "" || name == "auto" {
		bank, err := parser.Detect(text)
		if err != nil {
			return "", &errorBody{Message: err.Error()}
		}
		return bank, nil
	}

	// Route segments use dashes; bank tags use underscores.
	bank := models.BankType(strings.ReplaceAll(name, "-", "_"))
	if _, err := parser.New(bank); err != nil {
		return "", &errorBody{Message: err.Error()}
	}
	return bank, nil
}

// writeFixture persists the extracted text for regression fixtures when
// FixturesDir is configured. Failures are logged, never surfaced.
func (h *Handler) writeFixture(bank, text string, log *slog.Logger) {
	if h.FixturesDir == "" {
		return
	}
	name := strings.ReplaceAll(strings.ToLower(bank), "-", "_") + "_reference.txt"
	path, err := fixtures.WriteTextFixture(h.FixturesDir, name, text)
	if err != nil {
		log.Warn("fixture write failed", "error", err)
		return
	}
	log.Info("fixture written", "path", path)
}

func (h *Handler) logger() *slog.Logger {
	if h.Logger != nil {
		return h.Logger
	}
	return slog.New(slog.NewJSONHandler(os.Stderr, nil))
}
