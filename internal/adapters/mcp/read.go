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

// RegisterReadTools adds the read-only storage and catalog tools to the MCP
// server.
func RegisterReadTools(s *server.MCPServer, storage ports.RemoteStorage, catalog *application.Catalog) {
	s.AddTool(resolvePathTool(), resolvePathHandler(storage))
	s.AddTool(listFilesTool(), listFilesHandler(storage))
	s.AddTool(listArmiesTool(), listArmiesHandler(catalog))
	s.AddTool(healthTool(), healthHandler(storage))
}

func taxonomyParams() []mcp.ToolOption {
	return []mcp.ToolOption{
		mcp.WithString("allegiance",
			mcp.Description("Allegiance label, e.g. Order or Chaos"),
			mcp.Required(),
		),
		mcp.WithString("faction",
			mcp.Description("Faction label, e.g. Stormcast Eternals"),
			mcp.Required(),
		),
		mcp.WithString("unit",
			mcp.Description("Unit label, e.g. Liberators"),
			mcp.Required(),
		),
	}
}

// --- resolve_path ---

func resolvePathTool() mcp.Tool {
	opts := append([]mcp.ToolOption{
		mcp.WithDescription("Get the storage folder for an allegiance/faction/unit triple and whether it exists. Labels are sanitized the same way uploads are."),
	}, taxonomyParams()...)
	return mcp.NewTool("resolve_path", opts...)
}

func resolvePathHandler(storage ports.RemoteStorage) server.ToolHandlerFunc {
	return func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		p, err := application.ResolvePath(
			req.GetString("allegiance", ""),
			req.GetString("faction", ""),
			req.GetString("unit", ""),
		)
		if err != nil {
			return toolError(err)
		}
		state := "missing"
		if application.DirectoryExists(ctx, storage, p) {
			state = "exists"
		}
		return mcp.NewToolResultText(fmt.Sprintf("%s (%s)", p, state)), nil
	}
}

// --- list_files ---

func listFilesTool() mcp.Tool {
	opts := append([]mcp.ToolOption{
		mcp.WithDescription("List the files stored for a unit. Compressed files are shown under their original name."),
	}, taxonomyParams()...)
	return mcp.NewTool("list_files", opts...)
}

func listFilesHandler(storage ports.RemoteStorage) server.ToolHandlerFunc {
	return func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		cmd := commands.NewListFilesCommand(storage,
			req.GetString("allegiance", ""),
			req.GetString("faction", ""),
			req.GetString("unit", ""),
		)
		result, err := cmd.Execute(ctx)
		if err != nil {
			return toolError(err)
		}
		if !result.Exists {
			return mcp.NewToolResultText(fmt.Sprintf("%s does not exist.", result.FolderPath)), nil
		}
		return formatEntities(result.Files, formatFile)
	}
}

// --- list_armies ---

func listArmiesTool() mcp.Tool {
	return mcp.NewTool("list_armies",
		mcp.WithDescription("List the armies in the catalog with their unit counts."),
	)
}

func listArmiesHandler(catalog *application.Catalog) server.ToolHandlerFunc {
	return func(ctx context.Context, _ mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		armies, err := commands.NewListArmiesCommand(catalog).Execute(ctx)
		if err != nil {
			return toolError(err)
		}
		return formatEntities(armies, formatArmy)
	}
}

// --- health ---

func healthTool() mcp.Tool {
	return mcp.NewTool("health",
		mcp.WithDescription("Check that the storage backend is reachable and its base folder exists."),
	)
}

func healthHandler(storage ports.RemoteStorage) server.ToolHandlerFunc {
	return func(ctx context.Context, _ mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		result := commands.NewHealthCommand(storage).Execute(ctx)
		r := result.Storage
		text := fmt.Sprintf("%s  backend=%s host=%s base=%s connected=%t baseDirExists=%t",
			result.Status, r.Backend, r.Host, r.BasePath, r.Connected, r.BaseDirExists)
		if r.Error != "" {
			text += "\nerror: " + r.Error
		}
		return mcp.NewToolResultText(text), nil
	}
}

// --- helpers ---

func toolError(err error) (*mcp.CallToolResult, error) {
	return mcp.NewToolResultError(fmt.Sprintf("%s: %s", domain.CodeOf(err), err.Error())), nil
}

func formatEntities[T any](entities []T, format func(T) string) (*mcp.CallToolResult, error) {
	if len(entities) == 0 {
		return mcp.NewToolResultText("No results."), nil
	}
	var sb strings.Builder
	for _, e := range entities {
		sb.WriteString(format(e))
		sb.WriteByte('\n')
	}
	return mcp.NewToolResultText(sb.String()), nil
}

func formatFile(f commands.FileListing) string {
	marker := ""
	if f.IsPreview {
		marker = "  [preview]"
	}
	return fmt.Sprintf("%s  %s  %s%s", f.Name, f.Size, f.Path, marker)
}

func formatArmy(a domain.Army) string {
	return fmt.Sprintf("%s  %s  %s  %d unit(s)", a.ID, a.Allegiance, a.Name, len(a.Units))
}
