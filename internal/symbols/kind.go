package symbols

import (
	"fmt"
	"strings"
)

// SymbolKind represents the category of an outline member.
type SymbolKind int

const (
	KindUnknown         SymbolKind = 0
	KindEngineStructure SymbolKind = 1
	KindFunction        SymbolKind = 2
	KindConstant        SymbolKind = 3
)

var kindNames = map[SymbolKind]string{
	KindUnknown:         "unknown",
	KindEngineStructure: "engine_structure",
	KindFunction:        "function",
	KindConstant:        "constant",
}

var nameToKind map[string]SymbolKind

func init() {
	nameToKind = make(map[string]SymbolKind, len(kindNames))
	for k, v := range kindNames {
		nameToKind[v] = k
	}
}

// String returns the human-readable name of the kind.
func (k SymbolKind) String() string {
	if s, ok := kindNames[k]; ok {
		return s
	}
	return fmt.Sprintf("kind(%d)", int(k))
}

// ParseKind converts a string name to a SymbolKind.
// Returns KindUnknown if the name is not recognized.
func ParseKind(name string) SymbolKind {
	if k, ok := nameToKind[name]; ok {
		return k
	}
	return KindUnknown
}

// MarshalText lets kinds appear by name in JSON and YAML output.
func (k SymbolKind) MarshalText() ([]byte, error) {
	return []byte(k.String()), nil
}

// UnmarshalText is the inverse of MarshalText.
func (k *SymbolKind) UnmarshalText(b []byte) error {
	*k = ParseKind(string(b))
	return nil
}

// Parameter is one formal parameter of a function prototype.
type Parameter struct {
	Type         string `json:"type" yaml:"type"`
	Name         string `json:"name" yaml:"name"`
	DefaultValue string `json:"defaultValue" yaml:"defaultValue"`
}

// Symbol is one extracted declaration. Kind decides which of Type, Value
// and Parameters carry data; the others stay empty.
type Symbol struct {
	Kind       SymbolKind  `json:"kind" yaml:"kind"`
	Name       string      `json:"name" yaml:"name"`
	Type       string      `json:"type" yaml:"type"`
	Value      string      `json:"value" yaml:"value"`
	Parameters []Parameter `json:"parameters" yaml:"parameters"`
	Line       int         `json:"line" yaml:"line"` // 1-based line of Name
}

// Signature renders the declaration in source-like form.
func (s Symbol) Signature() string {
	switch s.Kind {
	case KindFunction:
		var sb strings.Builder
		sb.WriteString(s.Type)
		sb.WriteByte(' ')
		sb.WriteString(s.Name)
		sb.WriteByte('(')
		for i, p := range s.Parameters {
			if i > 0 {
				sb.WriteString(", ")
			}
			sb.WriteString(p.Type)
			sb.WriteByte(' ')
			sb.WriteString(p.Name)
			if p.DefaultValue != "" {
				sb.WriteString(" = ")
				sb.WriteString(p.DefaultValue)
			}
		}
		sb.WriteByte(')')
		return sb.String()
	case KindConstant:
		return s.Type + " " + s.Name + " = " + s.Value
	case KindEngineStructure:
		return "struct " + s.Name
	}
	return s.Name
}

// FileResult is the outline of a single file.
type FileResult struct {
	Members              []Symbol `json:"members" yaml:"members"`
	EngineStructureCount int      `json:"engineStructureCount" yaml:"engineStructureCount"`
	FunctionCount        int      `json:"functionCount" yaml:"functionCount"`
	ConstantCount        int      `json:"constantCount" yaml:"constantCount"`
	Encoding             string   `json:"encoding" yaml:"encoding"`
}

// Count returns the number of members of the given kind.
func (r *FileResult) Count(k SymbolKind) int {
	switch k {
	case KindEngineStructure:
		return r.EngineStructureCount
	case KindFunction:
		return r.FunctionCount
	case KindConstant:
		return r.ConstantCount
	}
	return 0
}

// Filter returns the members whose kind is in kinds, preserving order.
// An empty kinds list returns all members.
func (r *FileResult) Filter(kinds ...SymbolKind) []Symbol {
	if len(kinds) == 0 {
		return r.Members
	}
	out := make([]Symbol, 0, len(r.Members))
	for _, m := range r.Members {
		for _, k := range kinds {
			if m.Kind == k {
				out = append(out, m)
				break
			}
		}
	}
	return out
}

// Only returns a copy of r holding just the members of the given kinds, with
// the counters recomputed from them. An empty kinds list copies r unchanged.
func (r *FileResult) Only(kinds ...SymbolKind) FileResult {
	out := FileResult{Members: r.Filter(kinds...), Encoding: r.Encoding}
	for _, m := range out.Members {
		switch m.Kind {
		case KindEngineStructure:
			out.EngineStructureCount++
		case KindFunction:
			out.FunctionCount++
		case KindConstant:
			out.ConstantCount++
		}
	}
	return out
}
