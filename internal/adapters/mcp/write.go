package mcp

import (
	"context"
	"fmt"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"printvault/internal/application"
	"printvault/internal/application/commands"
	"printvault/internal/domain"
	"printvault/internal/ports"
)

// RegisterWriteTools adds the tools that change the catalog or the store.
func RegisterWriteTools(s *server.MCPServer, storage ports.RemoteStorage, storedNames ports.Compressor, reconciler *application.Reconciler) {
	s.AddTool(scanArmyTool(), scanArmyHandler(reconciler))
	s.AddTool(scanAllTool(), scanAllHandler(reconciler))
	s.AddTool(deleteFileTool(), deleteFileHandler(storage, storedNames))
}

// --- scan_army ---

func scanArmyTool() mcp.Tool {
	return mcp.NewTool("scan_army",
		mcp.WithDescription("Import the unit folders of one army into the catalog. New folders become units, file lists follow the store, hand-edited fields are kept."),
		mcp.WithString("army_id",
			mcp.Description("Army ID, the sanitized faction name (e.g. stormcast-eternals)"),
			mcp.Required(),
		),
	)
}

func scanArmyHandler(reconciler *application.Reconciler) server.ToolHandlerFunc {
	return func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		result, err := commands.NewScanArmyCommand(reconciler, req.GetString("army_id", "")).Execute(ctx)
		if err != nil {
			return toolError(err)
		}
		var sb strings.Builder
		sb.WriteString(result.Message)
		sb.WriteByte('\n')
		writeUnitScans(&sb, result.Scan.Units)
		writeScanErrors(&sb, result.Scan.Errors)
		return mcp.NewToolResultText(sb.String()), nil
	}
}

// --- scan_all ---

func scanAllTool() mcp.Tool {
	return mcp.NewTool("scan_all",
		mcp.WithDescription("Scan every army in the catalog. Armies whose folder cannot be listed are reported and skipped."),
	)
}

func scanAllHandler(reconciler *application.Reconciler) server.ToolHandlerFunc {
	return func(ctx context.Context, _ mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		result, err := commands.NewScanAllCommand(reconciler).Execute(ctx)
		if err != nil {
			return toolError(err)
		}
		var sb strings.Builder
		sb.WriteString(result.Message)
		sb.WriteByte('\n')
		for _, army := range result.Summary.Armies {
			if army.Changed() {
				fmt.Fprintf(&sb, "%s:\n", army.ArmyID)
				writeUnitScans(&sb, army.Units)
			}
		}
		writeScanErrors(&sb, result.Summary.Errors)
		return mcp.NewToolResultText(sb.String()), nil
	}
}

// --- delete_file ---

func deleteFileTool() mcp.Tool {
	opts := append([]mcp.ToolOption{
		mcp.WithDescription("Delete one stored file of a unit. The catalog entry is not touched; run scan_army afterwards to drop it."),
		mcp.WithString("file_name",
			mcp.Description("File name as shown by list_files"),
			mcp.Required(),
		),
	}, taxonomyParams()...)
	return mcp.NewTool("delete_file", opts...)
}

func deleteFileHandler(storage ports.RemoteStorage, storedNames ports.Compressor) server.ToolHandlerFunc {
	return func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		cmd := commands.NewDeleteFileCommand(storage, storedNames,
			req.GetString("allegiance", ""),
			req.GetString("faction", ""),
			req.GetString("unit", ""),
			req.GetString("file_name", ""),
		)
		result, err := cmd.Execute(ctx)
		if err != nil {
			return toolError(err)
		}
		return mcp.NewToolResultText(result.Message), nil
	}
}

func writeUnitScans(sb *strings.Builder, units []domain.UnitScan) {
	for _, u := range units {
		if u.Change == domain.UnitUnchanged {
			continue
		}
		fmt.Fprintf(sb, "  %s %s", u.ChangeName, u.Unit.ID)
		if len(u.FilesAdded) > 0 {
			fmt.Fprintf(sb, " +%s", strings.Join(u.FilesAdded, ","))
		}
		if len(u.FilesRemoved) > 0 {
			fmt.Fprintf(sb, " -%s", strings.Join(u.FilesRemoved, ","))
		}
		sb.WriteByte('\n')
	}
}

func writeScanErrors(sb *strings.Builder, errs []domain.ScanError) {
	for _, e := range errs {
		fmt.Fprintf(sb, "  error %s %s: %s\n", e.ArmyID, e.Path, e.Error)
	}
}
