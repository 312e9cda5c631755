package cli

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/charmbracelet/huh"
	"github.com/spf13/cobra"
)

// AssistantKind names an editor assistant that can be pointed at the MCP
// server.
type AssistantKind string

const (
	AssistantClaude      AssistantKind = "claude"
	AssistantCursor      AssistantKind = "cursor"
	AssistantAntigravity AssistantKind = "antigravity"
)

// AssistantInfo is one assistant as seen in a repository.
type AssistantInfo struct {
	Kind        AssistantKind
	DisplayName string
	TargetPath  string // relative to repo root
	Detected    bool
}

// assistantSpec describes where an assistant keeps its rules and which
// repo entries betray that it is in use.
type assistantSpec struct {
	kind    AssistantKind
	label   string
	target  string
	signals []string
}

var assistants = []assistantSpec{
	{AssistantClaude, "Claude Code", "CLAUDE.md", []string{"CLAUDE.md"}},
	{AssistantCursor, "Cursor", filepath.Join(".cursor", "rules", "nwsoutline.mdc"), []string{".cursor", ".cursorrules", "AGENTS.md"}},
	{AssistantAntigravity, "Antigravity", filepath.Join(".agent", "rules", "nwsoutline.mdc"), []string{".agent"}},
}

func lookupAssistant(kind AssistantKind) (assistantSpec, bool) {
	for _, a := range assistants {
		if a.kind == kind {
			return a, true
		}
	}
	return assistantSpec{}, false
}

// detectAssistants reports every known assistant, marking the ones with a
// signal present under repoRoot.
func detectAssistants(repoRoot string) []AssistantInfo {
	out := make([]AssistantInfo, len(assistants))
	for i, a := range assistants {
		out[i] = AssistantInfo{
			Kind:        a.kind,
			DisplayName: a.label,
			TargetPath:  a.target,
			Detected:    isAssistantPresent(repoRoot, a.kind),
		}
	}
	return out
}

func isAssistantPresent(repoRoot string, kind AssistantKind) bool {
	a, ok := lookupAssistant(kind)
	if !ok {
		return false
	}
	for _, rel := range a.signals {
		if _, err := os.Stat(filepath.Join(repoRoot, rel)); err == nil {
			return true
		}
	}
	return false
}

// promptAndUpdateAssistantGuidance asks which assistants to configure and
// writes their rule files after a confirmation. Claude is offered by default
// when nothing is detected.
func promptAndUpdateAssistantGuidance(cmd *cobra.Command, repoRoot string) error {
	found := detectAssistants(repoRoot)

	options := make([]huh.Option[string], 0, len(found))
	var picked []string
	for _, a := range found {
		opt := huh.NewOption(a.DisplayName, string(a.Kind))
		if a.Detected {
			opt = huh.NewOption(a.DisplayName+" (found in repo)", string(a.Kind))
			picked = append(picked, string(a.Kind))
		}
		options = append(options, opt)
	}
	if len(picked) == 0 {
		picked = append(picked, string(AssistantClaude))
	}

	err := huh.NewForm(huh.NewGroup(
		huh.NewMultiSelect[string]().
			Title("Which assistants should learn about the NWScript index?").
			Description("Space toggles a choice. Enter accepts.").
			Options(options...).
			Value(&picked),
	)).Run()
	if err != nil {
		return fmt.Errorf("assistant selection: %w", err)
	}
	if len(picked) == 0 {
		return nil
	}

	targets := make([]string, 0, len(picked))
	for _, k := range picked {
		if a, ok := lookupAssistant(AssistantKind(k)); ok {
			targets = append(targets, a.target)
		}
	}
	var proceed bool
	err = huh.NewForm(huh.NewGroup(
		huh.NewConfirm().
			Title("Update these rule files?").
			Description(strings.Join(targets, "\n")).
			Value(&proceed),
	)).Run()
	if err != nil {
		return fmt.Errorf("assistant confirmation: %w", err)
	}
	if !proceed {
		return nil
	}

	for _, k := range picked {
		a, _ := lookupAssistant(AssistantKind(k))
		if err := writeAssistantGuidance(repoRoot, a.kind); err != nil {
			cmd.Printf("%s %s rules not written: %v\n", infoStyle.Render("!"), a.label, err)
			continue
		}
		cmd.Printf("%s %s\n", successStyle.Render("✓"), a.target)
	}
	return nil
}

// writeAssistantGuidance writes the rule file of one assistant. CLAUDE.md is
// edited in place; the .mdc rule files are owned outright and overwritten.
func writeAssistantGuidance(repoRoot string, kind AssistantKind) error {
	a, ok := lookupAssistant(kind)
	if !ok {
		return fmt.Errorf("unknown assistant kind: %s", kind)
	}
	dest := filepath.Join(repoRoot, a.target)

	var body string
	switch kind {
	case AssistantClaude:
		_, statErr := os.Stat(dest)
		return updateClaudeMd(dest, repoRoot, statErr == nil)
	case AssistantCursor:
		body = generateCursorGuidance()
	case AssistantAntigravity:
		body = generateAntigravityGuidance()
	}
	if err := os.MkdirAll(filepath.Dir(dest), 0o755); err != nil {
		return fmt.Errorf("create %s: %w", filepath.Dir(a.target), err)
	}
	return os.WriteFile(dest, []byte(body), 0o644)
}

// inlineCode renders s as markdown inline code.
func inlineCode(s string) string { return "`" + s + "`" }

const fence = "```"

// toolsAndPrompts is the tool and prompt reference shared by every rule
// file.
func toolsAndPrompts() string {
	lines := []string{
		"### Available Tools",
		"",
		"- " + inlineCode("nwscript.projectInfo") + " returns the repo root, source roots, index totals and database path",
		"- " + inlineCode("nwscript.outline") + " lists the engine structures, function prototypes and constants of one script",
		"- " + inlineCode("nwscript.lookup") + " finds every declaration of a name, with its signature and optionally its source",
		"- " + inlineCode("nwscript.complete") + " lists declared names starting with a prefix",
		"- " + inlineCode("nwscript.search") + " ranks declarations against free text when the exact name is unknown",
		"",
		"Use these instead of grepping nwscript.nss and include files. The index reads UTF-16",
		"sources and keeps default arguments and constant values.",
		"",
		"### Prompts",
		"",
		"- " + inlineCode("nwscript.skill.api_lookup") + " walks through resolving an unfamiliar engine call",
		"- " + inlineCode("nwscript.skill.include_audit") + " checks an include file for duplicate or shadowed names",
	}
	return strings.Join(lines, "\n")
}

// intro opens every rule file.
const intro = `## NWScript Outline

nwsoutline indexes the engine structures, function prototypes and constants declared in this
repository's NWScript sources and serves them over the Model Context Protocol (MCP).`

// mdcRule wraps a setup section in the always-applied .mdc frontmatter.
func mdcRule(setup string) string {
	var sb strings.Builder
	sb.WriteString("---\n")
	sb.WriteString(`description: "nwsoutline - NWScript declarations index via MCP"` + "\n")
	sb.WriteString("alwaysApply: true\n")
	sb.WriteString("---\n\n")
	sb.WriteString(intro)
	sb.WriteString("\n\n### Setup\n\n")
	sb.WriteString(setup)
	sb.WriteString("\n\n")
	sb.WriteString(toolsAndPrompts())
	sb.WriteString("\n")
	return sb.String()
}

func generateCursorGuidance() string {
	return mdcRule("Register the server in " + inlineCode(".cursor/mcp.json") + ":\n\n" +
		fence + "json\n" +
		`{
  "mcpServers": {
    "nwsoutline": {
      "command": "nwsoutline",
      "args": ["mcp", "--cwd", "<REPO_ROOT>"]
    }
  }
}
` + fence + "\n\n" +
		"with " + inlineCode("<REPO_ROOT>") + " set to this repository's absolute path, then restart Cursor.")
}

func generateAntigravityGuidance() string {
	return mdcRule("Register the server in " + inlineCode(".vscode/mcp.json") + ":\n\n" +
		fence + "json\n" +
		`{
  "servers": {
    "nwsoutline": {
      "type": "stdio",
      "command": "nwsoutline",
      "args": ["mcp", "--cwd", "<REPO_ROOT>"]
    }
  }
}
` + fence + "\n\n" +
		"with " + inlineCode("<REPO_ROOT>") + " set to this repository's absolute path.")
}

const (
	claudeMdBeginMarker = "<!-- nwsoutline:begin -->"
	claudeMdEndMarker   = "<!-- nwsoutline:end -->"
)

func managedBlock(content string) string {
	return claudeMdBeginMarker + "\n" + content + "\n" + claudeMdEndMarker
}

// updateClaudeMd writes the managed block into CLAUDE.md, leaving any text
// outside the markers alone.
func updateClaudeMd(path string, repoRoot string, exists bool) error {
	block := generateClaudeGuidance(repoRoot)
	if !exists {
		return os.WriteFile(path, []byte(managedBlock(block)+"\n"), 0o644)
	}
	prev, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read %s: %w", path, err)
	}
	return os.WriteFile(path, []byte(updateManagedSection(string(prev), block)), 0o644)
}

// updateManagedSection swaps the text between the markers, or appends a new
// block separated by a blank line.
func updateManagedSection(existing string, managedContent string) string {
	block := managedBlock(managedContent)
	begin := strings.Index(existing, claudeMdBeginMarker)
	end := strings.Index(existing, claudeMdEndMarker)
	if begin >= 0 && end > begin {
		return existing[:begin] + block + existing[end+len(claudeMdEndMarker):]
	}
	if existing == "" {
		return block + "\n"
	}
	if !strings.HasSuffix(existing, "\n") {
		existing += "\n"
	}
	return existing + "\n" + block + "\n"
}

func generateClaudeGuidance(repoRoot string) string {
	return intro + "\n\n### Setup\n\n" +
		fence + "bash\n" +
		"claude mcp add nwsoutline --transport stdio -- nwsoutline mcp --cwd " + repoRoot + "\n" +
		fence + "\n\n" +
		toolsAndPrompts() + "\n"
}
