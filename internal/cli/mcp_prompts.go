package cli

import (
	"context"
	"fmt"

	"github.com/modelcontextprotocol/go-sdk/mcp"
)

// registerSkillPrompts registers MCP prompts for common NWScript workflows.
func registerSkillPrompts(server *mcp.Server) {
	server.AddPrompt(&mcp.Prompt{
		Name:        "nwscript.skill.api_lookup",
		Description: "Resolve an engine call or include function: signature, defaults and related constants",
		Arguments: []*mcp.PromptArgument{
			{Name: "name", Description: "Function, constant or engine structure name"},
		},
	}, func(ctx context.Context, req *mcp.GetPromptRequest) (*mcp.GetPromptResult, error) {
		return apiLookupPromptHandler(promptArg(req, "name"))
	})

	server.AddPrompt(&mcp.Prompt{
		Name:        "nwscript.skill.include_audit",
		Description: "Check an include file for names that shadow or duplicate other declarations",
		Arguments: []*mcp.PromptArgument{
			{Name: "file", Description: "Repo-relative path of the include file"},
		},
	}, func(ctx context.Context, req *mcp.GetPromptRequest) (*mcp.GetPromptResult, error) {
		return includeAuditPromptHandler(promptArg(req, "file"))
	})
}

func promptArg(req *mcp.GetPromptRequest, name string) string {
	if req == nil || req.Params == nil {
		return ""
	}
	return req.Params.Arguments[name]
}

func userPrompt(description, text string) *mcp.GetPromptResult {
	return &mcp.GetPromptResult{
		Description: description,
		Messages: []*mcp.PromptMessage{
			{Role: "user", Content: &mcp.TextContent{Text: text}},
		},
	}
}

func apiLookupPromptHandler(name string) (*mcp.GetPromptResult, error) {
	target := "the symbol you are unsure about"
	if name != "" {
		target = "`" + name + "`"
	}

	content := fmt.Sprintf(`# Resolving %s

**1. Find the declaration**
   - Call `+"`nwscript.lookup`"+` with the exact name (lookups are case-sensitive).
   - Several results mean the name is declared in more than one script; note which
     include each caller pulls in before choosing one.

**2. Read the signature, not just the name**
   - Parameters with a default value may be omitted at the call site.
   - Vector defaults such as `+"`[0.0, 0.0, 0.0]`"+` are kept whole.
   - Set fetchTheCode=true to see the comment block above the prototype.

**3. Explore neighbours**
   - If you only know part of the name, call `+"`nwscript.complete`"+` with the prefix.
   - If you only know what it does, call `+"`nwscript.search`"+` with a few words
     ("distance creature") and pick from the ranked declarations.
   - Constants of one family usually share a prefix (OBJECT_TYPE_, DAMAGE_TYPE_).

**4. Check the enclosing file**
   - `+"`nwscript.outline`"+` on the declaring file shows the related engine structures,
     functions and constants together.
`, target)

	return userPrompt("Lookup workflow for NWScript declarations", content), nil
}

func includeAuditPromptHandler(file string) (*mcp.GetPromptResult, error) {
	target := "the include file"
	if file != "" {
		target = "`" + file + "`"
	}

	content := fmt.Sprintf(`# Auditing %s

**1. List its declarations**
   - Call `+"`nwscript.outline`"+` on the file. Members come back sorted by name,
     so duplicates inside one file sit next to each other.

**2. Look for clashes across the project**
   - For each function and constant, call `+"`nwscript.lookup`"+`.
   - More than one location means another script declares the same name; a
     constant and a function may legally share a name but callers will be confused.

**3. Check prototypes against their use**
   - Prototypes only are indexed; bodies are ignored. A prototype with no matching
     implementation in the project is worth reporting.

**4. Report**
   - List each clash with both locations and signatures.
`, target)

	return userPrompt("Include file audit workflow", content), nil
}
