package sexpr

import (
	"strings"
	"testing"
)

// Helper to parse a single s-expression from a string
func parseOne(t *testing.T, input string) *List {
	t.Helper()
	nodes, err := ParseString(input)
	if err != nil {
		t.Fatalf("Failed to parse s-expression %q: %v", input, err)
	}
	if len(nodes) == 0 {
		t.Fatalf("No s-expressions parsed from %q", input)
	}
	list, ok := nodes[0].(*List)
	if !ok {
		t.Fatalf("Expected list from %q, got %T", input, nodes[0])
	}
	return list
}

func TestStringAt(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		index   int
		want    string
		wantErr bool
	}{
		{
			name:  "head symbol",
			input: `(lib_id "Device:R")`,
			index: 0,
			want:  "lib_id",
		},
		{
			name:  "quoted value",
			input: `(lib_id "Device:R")`,
			index: 1,
			want:  "Device:R",
		},
		{
			name:  "bare number",
			input: "(at 100 50 90)",
			index: 3,
			want:  "90",
		},
		{
			name:    "index out of bounds",
			input:   `(lib_id "Device:R")`,
			index:   5,
			wantErr: true,
		},
		{
			name:    "list at index",
			input:   "(symbol (at 0 0))",
			index:   1,
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			l := parseOne(t, tt.input)
			got, err := StringAt(l, tt.index)

			if tt.wantErr {
				if err == nil {
					t.Errorf("StringAt() expected error, got nil")
				}
				return
			}
			if err != nil {
				t.Errorf("StringAt() unexpected error: %v", err)
				return
			}
			if got != tt.want {
				t.Errorf("StringAt() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestFind(t *testing.T) {
	l := parseOne(t, `(symbol (lib_id "Device:R") (at 100 50 0) (unit 1))`)

	at, ok := Find(l, "at")
	if !ok {
		t.Fatalf("Find(at) not found")
	}
	x, err := FloatAt(at, 1)
	if err != nil || x != 100 {
		t.Errorf("FloatAt(at, 1) = %v, %v; want 100", x, err)
	}

	if _, ok := Find(l, "missing"); ok {
		t.Errorf("Find(missing) should not match")
	}
}

func TestFindAll(t *testing.T) {
	l := parseOne(t, `(symbol (property "Reference" "R1") (property "Value" "10k") (unit 1))`)

	props := FindAll(l, "property")
	if len(props) != 2 {
		t.Fatalf("FindAll(property) = %d results, want 2", len(props))
	}
	key, _ := StringAt(props[1], 1)
	if key != "Value" {
		t.Errorf("second property key = %q, want Value", key)
	}
}

func TestQuotedVsBare(t *testing.T) {
	l := parseOne(t, `(property "Reference" "R1" hide)`)

	if _, ok := l.Items[1].(Str); !ok {
		t.Errorf("quoted atom should parse as Str, got %T", l.Items[1])
	}
	if !HasFlag(l, "hide") {
		t.Errorf("bare hide flag not detected")
	}
	if HasFlag(l, "Reference") {
		t.Errorf("quoted string must not match as a bare flag")
	}
}

func TestStringEscapeRoundTrip(t *testing.T) {
	tests := []struct {
		name  string
		value string
	}{
		{"embedded quotes", `a "quoted" part`},
		{"backslash", `C:\lib\stuff`},
		{"newline and tab", "line1\nline2\tend"},
		{"unicode", "Ω 10kΩ µF 电阻"},
		{"empty", ""},
		{"only quote", `"`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			src := Format(NewList("value", Str(tt.value)))
			nodes, err := ParseString(src)
			if err != nil {
				t.Fatalf("re-parse of %q failed: %v", src, err)
			}
			got, err := StringAt(nodes[0].(*List), 1)
			if err != nil {
				t.Fatalf("StringAt failed: %v", err)
			}
			if got != tt.value {
				t.Errorf("round trip = %q, want %q", got, tt.value)
			}
		})
	}
}

func TestWriterCanonicalForm(t *testing.T) {
	l := NewList("symbol",
		NewList("lib_id", Str("Device:R")),
		NewList("at", Num(100), Num(50), Num(0)),
		NewList("unit", Int(1)),
	)

	want := "(symbol\n" +
		"  (lib_id \"Device:R\")\n" +
		"  (at 100 50 0)\n" +
		"  (unit 1)\n" +
		")\n"

	if got := Format(l); got != want {
		t.Errorf("Format() =\n%s\nwant\n%s", got, want)
	}
}

func TestWriterStableAcrossCycles(t *testing.T) {
	input := `(kicad_sch (version 20230121) (symbol (lib_id "Device:R") (at 25.4 38.1 0) (property "Value" "10k" (at 0 0 0))))`

	nodes, err := ParseString(input)
	if err != nil {
		t.Fatalf("parse failed: %v", err)
	}
	first := Format(nodes[0])

	reparsed, err := ParseString(first)
	if err != nil {
		t.Fatalf("re-parse failed: %v", err)
	}
	second := Format(reparsed[0])

	if first != second {
		t.Errorf("serialization not byte-stable:\nfirst:\n%s\nsecond:\n%s", first, second)
	}
	if !Equal(nodes[0], reparsed[0]) {
		t.Errorf("parse(serialize(parse(x))) != parse(x)")
	}
}

func TestParseErrors(t *testing.T) {
	tests := []struct {
		name  string
		input string
	}{
		{"unbalanced open", "(symbol (at 0 0)"},
		{"unbalanced close", "(symbol))"},
		{"unterminated string", `(value "abc`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := ParseString(tt.input); err == nil {
				t.Errorf("ParseString(%q) expected error", tt.input)
			}
		})
	}
}

func TestParseErrorsReportPosition(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  string
	}{
		{"unclosed list", "(symbol\n  (at 0 0)", "line 1:1"},
		{"unterminated string", "(a\n  \"abc", "line 2:3"},
		{"stray close", "(a b)\n)", "line 2:1"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseString(tt.input)
			if err == nil {
				t.Fatalf("ParseString(%q) expected error", tt.input)
			}
			if !strings.Contains(err.Error(), tt.want) {
				t.Errorf("error %q does not mention %s", err, tt.want)
			}
		})
	}
}

func TestComments(t *testing.T) {
	input := "# leading comment\n(at 1 2) # trailing\n"
	nodes, err := ParseString(input)
	if err != nil {
		t.Fatalf("parse failed: %v", err)
	}
	if len(nodes) != 1 {
		t.Fatalf("expected 1 node, got %d", len(nodes))
	}
}

func TestClone(t *testing.T) {
	l := parseOne(t, `(symbol (at 1 2) (unit 1))`)
	c := Clone(l).(*List)

	if !Equal(l, c) {
		t.Fatalf("clone not equal to original")
	}

	at, _ := Find(c, "at")
	at.Items[1] = Num(99)
	orig, _ := Find(l, "at")
	if v, _ := FloatAt(orig, 1); v != 1 {
		t.Errorf("mutating clone changed original")
	}
}

func TestLargeInput(t *testing.T) {
	var b strings.Builder
	b.WriteString("(root")
	for i := 0; i < 5000; i++ {
		b.WriteString(` (item "x")`)
	}
	b.WriteString(")")

	nodes, err := ParseString(b.String())
	if err != nil {
		t.Fatalf("parse failed: %v", err)
	}
	if n := nodes[0].(*List).Len(); n != 5001 {
		t.Errorf("expected 5001 items, got %d", n)
	}
}
