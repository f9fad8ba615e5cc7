package dsl

import (
	"strings"
	"testing"
)

const sampleCirc = `# voltage divider with a decoupled child sheet
circuit "main" {
  part R1 "Device:R" value "10k" footprint "Resistor_SMD:R_0603_1608Metric"
  part R2 "Device:R" value "4.7k" at (50, 60, 90)
  part C1 "Device:C" value "100n" prop "Tolerance" "1%" prop "Power" 0.25 prop "DNP" false

  net VCC R1.1 C1.1
  net OUT R1.2 R2.1
  net GND R2.2 C1.2

  sheet psu {
    bind VIN = VCC
    part U1 "Regulator_Linear:AMS1117-3.3" value "AMS1117-3.3"
    net VIN U1.3
    net GND U1.1
  }
}
`

func newParser(t *testing.T) *Parser {
	t.Helper()
	p, err := NewParser()
	if err != nil {
		t.Fatalf("NewParser failed: %v", err)
	}
	return p
}

func TestParseSample(t *testing.T) {
	p := newParser(t)
	g, err := p.ParseString(sampleCirc)
	if err != nil {
		t.Fatalf("parse failed: %v", err)
	}

	root := g.Root
	if root.Name != "main" {
		t.Errorf("root name = %q", root.Name)
	}
	if len(root.Components) != 3 {
		t.Fatalf("components = %d, want 3", len(root.Components))
	}

	r2 := root.Components["R2"]
	if r2.Value != "4.7k" {
		t.Errorf("R2 value = %q", r2.Value)
	}
	if r2.Placement == nil || r2.Placement.X != 50 || r2.Placement.Y != 60 || r2.Placement.Rotation != 90 {
		t.Errorf("R2 placement = %+v", r2.Placement)
	}

	c1 := root.Components["C1"]
	if v, ok := c1.Properties["Tolerance"].AsString(); !ok || v != "1%" {
		t.Errorf("C1 Tolerance = %v", c1.Properties["Tolerance"])
	}
	if n, ok := c1.Properties["Power"].AsNumber(); !ok || n != 0.25 {
		t.Errorf("C1 Power = %v", c1.Properties["Power"])
	}
	if b, ok := c1.Properties["DNP"].AsBool(); !ok || b {
		t.Errorf("C1 DNP = %v", c1.Properties["DNP"])
	}

	vcc := root.Nets["VCC"]
	if vcc == nil || len(vcc.Pins) != 2 {
		t.Fatalf("VCC net = %+v", vcc)
	}
	if vcc.Pins[0].Component != "R1" || vcc.Pins[0].Pin != "1" {
		t.Errorf("VCC first pin = %+v", vcc.Pins[0])
	}

	if len(root.Children) != 1 {
		t.Fatalf("children = %d, want 1", len(root.Children))
	}
	child := root.Children[0]
	if child.Name != "psu" || child.Circuit.Parent != "main" {
		t.Errorf("child = %q parent %q", child.Name, child.Circuit.Parent)
	}
	if child.Binds["VIN"] != "VCC" {
		t.Errorf("binds = %v", child.Binds)
	}
}

func TestParseErrors(t *testing.T) {
	p := newParser(t)

	tests := []struct {
		name  string
		input string
	}{
		{"duplicate ref", `circuit "m" { part R1 "Device:R" part R1 "Device:C" }`},
		{"pin on two nets", `circuit "m" { part R1 "Device:R" net A R1.1 net B R1.1 }`},
		{"bind outside sheet", `circuit "m" { bind A = B }`},
		{"missing brace", `circuit "m" { part R1 "Device:R"`},
		{"missing symbol", `circuit "m" { part R1 }`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := p.ParseString(tt.input); err == nil {
				t.Errorf("expected error for %s", tt.name)
			}
		})
	}
}

func TestWriteRoundTrip(t *testing.T) {
	p := newParser(t)
	g, err := p.ParseString(sampleCirc)
	if err != nil {
		t.Fatalf("parse failed: %v", err)
	}

	var b strings.Builder
	if err := Write(&b, g); err != nil {
		t.Fatalf("write failed: %v", err)
	}

	back, err := p.ParseString(b.String())
	if err != nil {
		t.Fatalf("re-parse of written output failed: %v\n%s", err, b.String())
	}

	if len(back.Root.Components) != len(g.Root.Components) {
		t.Errorf("component count changed across round trip")
	}
	if len(back.Root.Nets) != len(g.Root.Nets) {
		t.Errorf("net count changed across round trip")
	}
	if len(back.Root.Children) != 1 || back.Root.Children[0].Binds["VIN"] != "VCC" {
		t.Errorf("sheet binds lost across round trip")
	}

	// Writing twice produces identical text.
	var b2 strings.Builder
	if err := Write(&b2, back); err != nil {
		t.Fatalf("second write failed: %v", err)
	}
	if b.String() != b2.String() {
		t.Errorf("writer output not deterministic:\n%s\n---\n%s", b.String(), b2.String())
	}
}

func TestQuotedNetNames(t *testing.T) {
	p := newParser(t)
	g, err := p.ParseString(`circuit "m" { part R1 "Device:R" net "N$1" R1.1 }`)
	if err != nil {
		t.Fatalf("parse failed: %v", err)
	}
	if _, ok := g.Root.Nets["N$1"]; !ok {
		t.Errorf("quoted net name not preserved: %v", g.Root.NetNames())
	}
}
