package nwscript

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/text/encoding/charmap"
	"golang.org/x/text/encoding/unicode"

	"github.com/nwscript-tools/nwsoutline/internal/symbols"
)

func readFixture(t *testing.T, name string) []byte {
	t.Helper()
	src, err := os.ReadFile(filepath.Join("testdata", name))
	require.NoError(t, err, "read fixture")
	return src
}

func findMember(t *testing.T, res *symbols.FileResult, name string, kind symbols.SymbolKind) symbols.Symbol {
	t.Helper()
	for _, m := range res.Members {
		if m.Name == name && m.Kind == kind {
			return m
		}
	}
	t.Fatalf("expected %s %q in %v", kind, name, memberNames(res))
	return symbols.Symbol{}
}

func memberNames(res *symbols.FileResult) []string {
	names := make([]string, len(res.Members))
	for i, m := range res.Members {
		names[i] = m.Name
	}
	return names
}

func TestExtractSample(t *testing.T) {
	res := Extract(readFixture(t, "sample.nss"))

	assert.Equal(t, 2, res.EngineStructureCount)
	assert.Equal(t, 3, res.FunctionCount)
	assert.Equal(t, 3, res.ConstantCount)
	assert.Equal(t, "narrow", res.Encoding)
	assert.Equal(t, []string{
		"ApplyVector", "Count", "GREETING", "GetDistance",
		"OBJECT_TYPE_CREATURE", "PI", "effect", "event",
	}, memberNames(res))

	effect := findMember(t, res, "effect", symbols.KindEngineStructure)
	assert.Empty(t, effect.Type)
	assert.Empty(t, effect.Value)
	assert.NotNil(t, effect.Parameters)
	assert.Empty(t, effect.Parameters)
	assert.Equal(t, 2, effect.Line)

	creature := findMember(t, res, "OBJECT_TYPE_CREATURE", symbols.KindConstant)
	assert.Equal(t, "int", creature.Type)
	assert.Equal(t, "1", creature.Value)
	assert.Equal(t, 7, creature.Line)

	pi := findMember(t, res, "PI", symbols.KindConstant)
	assert.Equal(t, "float", pi.Type)
	assert.Equal(t, "3.14159", pi.Value)

	greeting := findMember(t, res, "GREETING", symbols.KindConstant)
	assert.Equal(t, `"hello, world"`, greeting.Value)

	dist := findMember(t, res, "GetDistance", symbols.KindFunction)
	assert.Equal(t, "float", dist.Type)
	assert.Equal(t, 12, dist.Line)
	assert.Equal(t, []symbols.Parameter{
		{Type: "object", Name: "oA"},
		{Type: "object", Name: "oB", DefaultValue: "OBJECT_SELF"},
	}, dist.Parameters)

	count := findMember(t, res, "Count", symbols.KindFunction)
	assert.NotNil(t, count.Parameters)
	assert.Empty(t, count.Parameters)

	for _, m := range res.Members {
		assert.NotEqual(t, "main", m.Name, "function with a body must not be extracted")
	}
}

func TestNestedVectorDefaultIsKeptWhole(t *testing.T) {
	res := Extract(readFixture(t, "sample.nss"))

	fn := findMember(t, res, "ApplyVector", symbols.KindFunction)
	require.Len(t, fn.Parameters, 2)
	assert.Equal(t, symbols.Parameter{Type: "vector", Name: "v", DefaultValue: "[[1, 2], [3, [4, 5]]]"}, fn.Parameters[0])
	assert.Equal(t, symbols.Parameter{Type: "int", Name: "nFlags", DefaultValue: "0"}, fn.Parameters[1])
}

func TestObjectDefault(t *testing.T) {
	res := Extract([]byte("void Spawn(json j = {name, [1 2], {inner}});\n"))

	fn := findMember(t, res, "Spawn", symbols.KindFunction)
	require.Len(t, fn.Parameters, 1)
	assert.Equal(t, "{name, [1 2], {inner}}", fn.Parameters[0].DefaultValue)
}

func TestZeroDeclarations(t *testing.T) {
	for _, input := range []string{"", "// nothing here\n", "/* only\n a comment */\n", "void main()\n{\n}\n"} {
		res := Extract([]byte(input))
		assert.Zero(t, res.EngineStructureCount, "input %q", input)
		assert.Zero(t, res.FunctionCount, "input %q", input)
		assert.Zero(t, res.ConstantCount, "input %q", input)
		assert.Empty(t, res.Members, "input %q", input)
	}
}

func TestMembersSortedOrdinally(t *testing.T) {
	src := strings.Join([]string{
		"int zeta = 1;",
		"int Alpha = 2;",
		"void beta();",
		"#define ENGINE_STRUCTURE_3 _under",
		"string Zed = \"z\";",
		"void alpha();",
		"",
	}, "\n")
	res := Extract([]byte(src))

	require.Len(t, res.Members, 6)
	for i := 1; i < len(res.Members); i++ {
		a, b := res.Members[i-1].Name, res.Members[i].Name
		assert.LessOrEqual(t, a, b, "members %d and %d out of order", i-1, i)
	}
	assert.Equal(t, []string{"Alpha", "Zed", "_under", "alpha", "beta", "zeta"}, memberNames(res))
}

func TestDeterministic(t *testing.T) {
	src := readFixture(t, "sample.nss")
	assert.Equal(t, Extract(src), Extract(src))
}

func TestConcurrentExtraction(t *testing.T) {
	src := readFixture(t, "sample.nss")
	want := Extract(src)

	var wg sync.WaitGroup
	results := make([]*symbols.FileResult, 8)
	for i := range results {
		wg.Add(1)
		go func() {
			defer wg.Done()
			results[i] = Extract(src)
		}()
	}
	wg.Wait()
	for _, got := range results {
		assert.Equal(t, want, got)
	}
}

func TestCommentsDoNotBreakExtraction(t *testing.T) {
	src := strings.Join([]string{
		"// a comment-only line",
		"/* a block comment",
		"   spanning lines */",
		"int First(int a);",
		"/* doc",
		" */ int Second(int b);",
		"void Third(int a /* first */, // trailing",
		"           string b = \"x\");",
		"",
	}, "\n")
	res := Extract([]byte(src))

	require.Equal(t, 3, res.FunctionCount, "got %v", memberNames(res))
	findMember(t, res, "First", symbols.KindFunction)
	second := findMember(t, res, "Second", symbols.KindFunction)
	assert.Equal(t, 6, second.Line)
	third := findMember(t, res, "Third", symbols.KindFunction)
	assert.Equal(t, []symbols.Parameter{
		{Type: "int", Name: "a"},
		{Type: "string", Name: "b", DefaultValue: `"x"`},
	}, third.Parameters)
}

func TestDefinitionsAreNotPrototypes(t *testing.T) {
	src := strings.Join([]string{
		"int Add(int a, int b)",
		"{",
		"    return a + b;",
		"}",
		"void Inline(int a) { Add(a, a); }",
		"",
	}, "\n")
	res := Extract([]byte(src))
	assert.Zero(t, res.FunctionCount)
}

func TestControlFlowIsNotAFunction(t *testing.T) {
	src := strings.Join([]string{
		"return GetFoo(x);",
		"if Check(y);",
		"else Other(z);",
		"switch Pick(w);",
		"int returnCode();",
		"",
	}, "\n")
	res := Extract([]byte(src))
	assert.Equal(t, []string{"returnCode"}, memberNames(res))
}

func TestMalformedDeclarationsAreSkipped(t *testing.T) {
	src := strings.Join([]string{
		"int NoInit;",
		"int NoSemicolon = 5",
		"int Compare == 3;",
		"void TrailingComma(int a,);",
		"void Unclosed(int a;",
		"int Good = 1;",
		"",
	}, "\n")
	res := Extract([]byte(src))
	assert.Equal(t, []string{"Good"}, memberNames(res))
}

func TestStructTypes(t *testing.T) {
	src := "struct  Location GetHome(struct Location lBase, const int n = 2);\n"
	res := Extract([]byte(src))

	fn := findMember(t, res, "GetHome", symbols.KindFunction)
	assert.Equal(t, "struct Location", fn.Type)
	assert.Equal(t, []symbols.Parameter{
		{Type: "struct Location", Name: "lBase"},
		{Type: "int", Name: "n", DefaultValue: "2"},
	}, fn.Parameters)
}

func TestConstantShadowingFunction(t *testing.T) {
	src := "int NAME = 1;\nvoid Other();\nvoid NAME(int a);\n"
	res := Extract([]byte(src))

	require.Len(t, res.Members, 3)
	assert.Equal(t, "NAME", res.Members[0].Name)
	assert.Equal(t, symbols.KindFunction, res.Members[0].Kind)
	assert.Equal(t, "NAME", res.Members[1].Name)
	assert.Equal(t, symbols.KindConstant, res.Members[1].Kind)
	assert.Equal(t, "Other", res.Members[2].Name)
}

func TestWideLittleEndianMatchesNarrow(t *testing.T) {
	narrow := readFixture(t, "sample.nss")
	wide, err := unicode.UTF16(unicode.LittleEndian, unicode.UseBOM).NewEncoder().Bytes(narrow)
	require.NoError(t, err)
	require.Equal(t, []byte{0xFF, 0xFE}, wide[:2])

	want := Extract(narrow)
	got := Extract(wide)
	assert.Equal(t, "utf16le-bom", got.Encoding)
	assert.Equal(t, want.Members, got.Members)
	assert.Equal(t, want.FunctionCount, got.FunctionCount)
	assert.Equal(t, want.ConstantCount, got.ConstantCount)
	assert.Equal(t, want.EngineStructureCount, got.EngineStructureCount)
}

func TestWideBigEndianWithoutMark(t *testing.T) {
	narrow := readFixture(t, "sample.nss")
	wide, err := unicode.UTF16(unicode.BigEndian, unicode.IgnoreBOM).NewEncoder().Bytes(narrow)
	require.NoError(t, err)

	got := Extract(wide)
	assert.Equal(t, "utf16be", got.Encoding)
	assert.Equal(t, Extract(narrow).Members, got.Members)
}

func TestUTF8MarkIsStripped(t *testing.T) {
	src := append([]byte{0xEF, 0xBB, 0xBF}, "int First(int a);\n"...)
	res := Extract(src)

	assert.Equal(t, "narrow-utf8", res.Encoding)
	fn := findMember(t, res, "First", symbols.KindFunction)
	assert.Equal(t, 1, fn.Line)
}

func TestLegacyCharset(t *testing.T) {
	src, err := charmap.Windows1252.NewEncoder().Bytes([]byte("string CAFE = \"café\";\n"))
	require.NoError(t, err)

	x, err := New(Options{LegacyCharset: "windows-1252"})
	require.NoError(t, err)
	res := x.Extract(src)

	c := findMember(t, res, "CAFE", symbols.KindConstant)
	assert.Equal(t, `"café"`, c.Value)
}

func TestNewRejectsBadOptions(t *testing.T) {
	_, err := New(Options{LegacyCharset: "no-such-charset"})
	assert.Error(t, err)

	_, err = New(Options{SampleSize: -1})
	assert.Error(t, err)

	x, err := New(Options{})
	require.NoError(t, err)
	assert.Equal(t, DefaultSampleSize, x.sampleSize)
}

func TestCarriageReturnLineEndings(t *testing.T) {
	src := "int A = 1;\r\nvoid B();\r\n"
	res := Extract([]byte(src))
	assert.Equal(t, []string{"A", "B"}, memberNames(res))
	assert.Equal(t, 2, findMember(t, res, "B", symbols.KindFunction).Line)
}

func TestUnclosedParameterListsStayLinear(t *testing.T) {
	const lines = 40000
	shapes := map[string]string{
		"no closing paren":       "int f%d(int a\n",
		"unterminated comment":   "int f%d(int a /*\n",
		"unterminated string":    "int f%d(string s = \"x\n",
		"open vector default":    "int f%d(vector v = [1, 2\n",
		"open constant sequence": "int c%d = [1, 2\n",
	}
	for name, line := range shapes {
		t.Run(name, func(t *testing.T) {
			var sb strings.Builder
			for i := 0; i < lines; i++ {
				fmt.Fprintf(&sb, line, i)
			}
			sb.WriteString("void Last(int a);\n")

			start := time.Now()
			res := Extract([]byte(sb.String()))
			elapsed := time.Since(start)

			assert.Equal(t, []string{"Last"}, memberNames(res))
			assert.Less(t, elapsed, 5*time.Second, "%d lines took %s", lines, elapsed)
		})
	}
}

func TestStringDefaultsDoNotSpanLines(t *testing.T) {
	src := "void A(string s = \"open\nvoid B(string t = \"ok\");\n"
	res := Extract([]byte(src))
	assert.Equal(t, []string{"B"}, memberNames(res))
}
