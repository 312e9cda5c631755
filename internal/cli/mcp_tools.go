package cli

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/dustin/go-humanize"
	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/nwscript-tools/nwsoutline/internal/db"
	"github.com/nwscript-tools/nwsoutline/internal/indexer"
	"github.com/nwscript-tools/nwsoutline/internal/search"
	"github.com/nwscript-tools/nwsoutline/internal/source"
	"github.com/nwscript-tools/nwsoutline/internal/symbols"
)

// OutlineArgs is the input for the outline MCP tool.
type OutlineArgs struct {
	FilePath string   `json:"filePath" jsonschema:"Path of the script file, absolute or repo-relative"`
	Kinds    []string `json:"kinds,omitempty" jsonschema:"Only return these kinds: engine_structure, function, constant"`
}

// LookupArgs is the input for the lookup MCP tool.
type LookupArgs struct {
	Name         string `json:"name" jsonschema:"Exact, case-sensitive declaration name"`
	FetchTheCode *bool  `json:"fetchTheCode,omitempty" jsonschema:"Include the declaration source and its leading comment (default: false)"`
}

// CompleteArgs is the input for the complete MCP tool.
type CompleteArgs struct {
	Prefix string `json:"prefix" jsonschema:"Case-sensitive name prefix"`
	Limit  int    `json:"limit,omitempty" jsonschema:"Maximum number of names (default: 50)"`
}

// SearchArgs is the input for the search MCP tool.
type SearchArgs struct {
	Query      string   `json:"query" jsonschema:"Free text; matched against the words of declaration names and signatures"`
	Kinds      []string `json:"kinds,omitempty" jsonschema:"Only return these kinds: engine_structure, function, constant"`
	PathPrefix string   `json:"pathPrefix,omitempty" jsonschema:"Only return declarations from repo-relative paths with this prefix"`
	Limit      int      `json:"limit,omitempty" jsonschema:"Maximum number of results (default: 20)"`
}

func toolError(err error) *mcp.CallToolResult {
	return &mcp.CallToolResult{
		Content: []mcp.Content{&mcp.TextContent{Text: fmt.Sprintf("Error: %v", err)}},
		IsError: true,
	}
}

func toolText(text string) *mcp.CallToolResult {
	return &mcp.CallToolResult{Content: []mcp.Content{&mcp.TextContent{Text: text}}}
}

// newMCPServer builds the server and registers every tool and prompt
// against ws.
func newMCPServer(ws *workspace) *mcp.Server {
	server := mcp.NewServer(&mcp.Implementation{
		Name:    "nwsoutline",
		Version: Version,
	}, nil)

	mcp.AddTool(server, &mcp.Tool{
		Name:        "nwscript.projectInfo",
		Description: "Get project information: repo root, source roots, index totals and database path",
	}, func(ctx context.Context, req *mcp.CallToolRequest, args struct{}) (*mcp.CallToolResult, any, error) {
		stats, err := ws.nav.Stats()
		if err != nil {
			return toolError(err), nil, nil
		}
		dbPath := db.DatabasePath(ws.stateDir)
		info := map[string]any{
			"repoRoot":    ws.repoRoot,
			"sourceRoots": ws.cfg.SourceRoots,
			"extensions":  ws.cfg.Extensions,
			"dbPath":      dbPath,
			"stats":       stats,
		}
		text := fmt.Sprintf("Repo Root: %s\nSource Roots: %v\nDatabase: %s\nIndexed: %d files (%s), %d engine structures, %d functions, %d constants",
			ws.repoRoot, ws.cfg.SourceRoots, dbPath, stats.Files, humanize.Bytes(uint64(stats.Bytes)),
			stats.EngineStructureCount, stats.FunctionCount, stats.ConstantCount)
		return toolText(text), info, nil
	})

	mcp.AddTool(server, &mcp.Tool{
		Name:        "nwscript.outline",
		Description: "List the engine structures, function prototypes and constants declared in one NWScript file, sorted by name. Served from the index when the file is indexed, otherwise extracted from disk.",
	}, func(ctx context.Context, req *mcp.CallToolRequest, args OutlineArgs) (*mcp.CallToolResult, any, error) {
		kinds, err := parseKinds(args.Kinds)
		if err != nil {
			return toolError(err), nil, nil
		}
		rel := toRepoRelative(args.FilePath, ws.repoRoot)
		fr, from, err := outlineFor(ws, rel)
		if err != nil {
			return toolError(err), nil, nil
		}
		out := fileOutline{Path: filepath.ToSlash(rel), FileResult: fr.Only(kinds...)}

		var sb strings.Builder
		renderOutline(&sb, out)
		return toolText(sb.String()), map[string]any{"outline": out, "source": from}, nil
	})

	mcp.AddTool(server, &mcp.Tool{
		Name:        "nwscript.lookup",
		Description: "Find every declaration of a name across the project. Returns kind, signature, file and line, and optionally the source of each declaration.",
	}, func(ctx context.Context, req *mcp.CallToolRequest, args LookupArgs) (*mcp.CallToolResult, any, error) {
		if args.Name == "" {
			return toolError(errors.New("name is required")), nil, nil
		}
		defs, err := ws.nav.Lookup(args.Name)
		if err != nil {
			return toolError(err), nil, nil
		}
		if len(defs) == 0 {
			return toolText(fmt.Sprintf("No declaration named %q.", args.Name)), map[string]any{"definitions": defs}, nil
		}

		structured := map[string]any{"definitions": defs}
		text := formatDefinitions(defs)
		if args.FetchTheCode != nil && *args.FetchTheCode {
			if code := fetchDeclarationsCode(ws.repoRoot, ws.idx.Extractor(), defs); code != "" {
				structured["code"] = code
				text += "\n" + code
			}
		}
		return toolText(text), structured, nil
	})

	mcp.AddTool(server, &mcp.Tool{
		Name:        "nwscript.complete",
		Description: "List declared names that start with a prefix, in ordinal order. Useful when only part of a function or constant name is known.",
	}, func(ctx context.Context, req *mcp.CallToolRequest, args CompleteArgs) (*mcp.CallToolResult, any, error) {
		items, err := ws.nav.Complete(args.Prefix, args.Limit)
		if err != nil {
			return toolError(err), nil, nil
		}
		if len(items) == 0 {
			return toolText(fmt.Sprintf("No names start with %q.", args.Prefix)), map[string]any{"completions": items}, nil
		}
		return toolText(formatCompletions(items)), map[string]any{"completions": items}, nil
	})

	mcp.AddTool(server, &mcp.Tool{
		Name:        "nwscript.search",
		Description: "Rank declarations against free text when the exact name is unknown. Names are split into words at underscores and case changes and one typo per word is tolerated.",
	}, func(ctx context.Context, req *mcp.CallToolRequest, args SearchArgs) (*mcp.CallToolResult, any, error) {
		kinds, err := parseKinds(args.Kinds)
		if err != nil {
			return toolError(err), nil, nil
		}
		sx, err := ws.symbolSearch()
		if err != nil {
			return toolError(err), nil, nil
		}
		hits, err := sx.Search(args.Query, search.Options{
			Kinds:      kinds,
			PathPrefix: args.PathPrefix,
			Limit:      args.Limit,
		})
		if err != nil {
			return toolError(err), nil, nil
		}
		if len(hits) == 0 {
			return toolText(fmt.Sprintf("No declarations match %q.", args.Query)), map[string]any{"hits": hits}, nil
		}
		return toolText(formatHits(hits)), map[string]any{"hits": hits}, nil
	})

	registerSkillPrompts(server)
	return server
}

// outlineFor serves rel from the index, falling back to extracting the file
// from disk. It reports which one answered.
func outlineFor(ws *workspace, rel string) (*symbols.FileResult, string, error) {
	fr, err := ws.nav.FileOutline(rel)
	if err == nil {
		return fr, "index", nil
	}
	if !errors.Is(err, indexer.ErrNotIndexed) {
		return nil, "", err
	}
	abs := safeJoinPath(ws.repoRoot, rel)
	if abs == "" {
		return nil, "", fmt.Errorf("%s is outside the repository", rel)
	}
	fr, err = source.Outline(ws.idx.Extractor(), abs)
	if err != nil {
		return nil, "", err
	}
	return fr, "disk", nil
}

// toRepoRelative converts an absolute path to a repo-relative path.
func toRepoRelative(path, repoRoot string) string {
	if filepath.IsAbs(path) {
		if rel, err := filepath.Rel(repoRoot, path); err == nil {
			return rel
		}
	}
	return filepath.Clean(filepath.FromSlash(path))
}
