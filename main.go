package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"

	"github.com/Cortexa-LLC/mcp/src/pdfocr/config"
	"github.com/Cortexa-LLC/mcp/src/pdfocr/converter"
	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
)

// Server identity constants.
const (
	serverName    = "pdfocr"
	serverVersion = "0.1.0"
)

// MCP tool parameter key constants, shared between schema definitions and
// argument extraction so a typo in one place is caught by the other.
const (
	argPath   = "path"
	argOutput = "output"
)

func main() {
	cfg := config.Load()

	// stdout carries the MCP protocol; logs go to stderr.
	logger := slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{Level: cfg.LogLevel}))
	slog.SetDefault(logger)

	conv := converter.NewConverter(cfg, converter.WithLogger(logger))
	conv.Workspaces().Sweep(cfg.StaleWorkspaceAge)

	s := server.NewMCPServer(serverName, serverVersion)
	registerTools(s, conv, logger)

	if err := server.ServeStdio(s); err != nil {
		logger.Error("server error", "error", err)
		os.Exit(1)
	}
}

// registerTools binds MCP tool definitions to their handlers.
// It accepts the FileConverter interface so tests can inject a mock.
func registerTools(s *server.MCPServer, conv converter.FileConverter, logger *slog.Logger) {
	// convert_pdf_to_docx: OCR a scanned PDF into a Word document
	s.AddTool(
		mcp.NewTool("convert_pdf_to_docx",
			mcp.WithDescription("Convert an image-based (scanned) PDF to an editable Word document using OCR. "+
				"Each page is rendered to an image, recognized with Tesseract, and written as one paragraph. "+
				"Layout, fonts, tables and images are not preserved."),
			mcp.WithString(argPath,
				mcp.Required(),
				mcp.Description("Absolute path of the PDF to convert"),
			),
			mcp.WithString(argOutput,
				mcp.Description("Optional .docx destination path; defaults to <output dir>/<name>_OCR.docx"),
			),
		),
		convertHandler(conv, logger),
	)

	// read_docx: show the paragraphs of a converted document
	s.AddTool(
		mcp.NewTool("read_docx",
			mcp.WithDescription("Return the text of a .docx as Markdown, one block per paragraph."),
			mcp.WithString(argPath,
				mcp.Required(),
				mcp.Description("Absolute path of the .docx file"),
			),
		),
		readHandler(conv, logger),
	)

	// get_conversion_info: engines and configuration
	s.AddTool(
		mcp.NewTool("get_conversion_info",
			mcp.WithDescription("Return OCR engine availability and the active conversion configuration."),
		),
		func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
			return mcp.NewToolResultText(conv.GetConversionInfo(ctx)), nil
		},
	)
}

func convertHandler(conv converter.FileConverter, logger *slog.Logger) server.ToolHandlerFunc {
	return func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		input, ok := req.Params.Arguments[argPath].(string)
		if !ok || input == "" {
			return mcp.NewToolResultError(argPath + " is required"), nil
		}
		output, _ := req.Params.Arguments[argOutput].(string)

		res, err := conv.ConvertFile(ctx, input, output)
		if err != nil {
			var cerr *converter.ConversionError
			if errors.As(err, &cerr) {
				return mcp.NewToolResultError(cerr.Public()), nil
			}
			logger.Error("conversion returned an unclassified error", "pdf", input, "error", err)
			return mcp.NewToolResultError("internal server error"), nil
		}
		return mcp.NewToolResultText(successMessage(res)), nil
	}
}

func readHandler(conv converter.FileConverter, logger *slog.Logger) server.ToolHandlerFunc {
	return func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		input, ok := req.Params.Arguments[argPath].(string)
		if !ok || input == "" {
			return mcp.NewToolResultError(argPath + " is required"), nil
		}
		out, err := conv.ReadDocument(ctx, input)
		if err != nil {
			// Input errors carry a caller-safe reason; anything else may name paths.
			if errors.Is(err, converter.ErrInvalidInput) {
				return mcp.NewToolResultError(err.Error()), nil
			}
			logger.Error("read document failed", "docx", input, "error", err)
			return mcp.NewToolResultError("could not read the document: not a readable .docx file"), nil
		}
		return mcp.NewToolResultText(out), nil
	}
}

func successMessage(res *converter.Result) string {
	msg := fmt.Sprintf("Conversion succeeded: %d page(s) written to %s (formatting may differ from the original due to OCR).",
		res.Pages, res.Destination)
	if len(res.SkippedPages) > 0 {
		msg += fmt.Sprintf(" Pages left empty after recognition errors: %v.", res.SkippedPages)
	}
	return msg
}
