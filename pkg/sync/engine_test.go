package sync

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/OpenTraceLab/schsync/pkg/circuit"
	"github.com/OpenTraceLab/schsync/pkg/schematic"
	"github.com/OpenTraceLab/schsync/pkg/symbols"
)

func testEngine(t *testing.T) *Engine {
	t.Helper()
	return New(zaptest.NewLogger(t), testResolver())
}

func schPath(t *testing.T) string {
	t.Helper()
	return filepath.Join(t.TempDir(), "main.kicad_sch")
}

func dividerGraph(t *testing.T) *circuit.Graph {
	return graphWith(t, func(c *circuit.Circuit) {
		part(t, c, "R1", "Device:R", "10k", "Resistor_SMD:R_0603_1608Metric")
		wire(t, c, "VCC", "R1.1")
		wire(t, c, "GND", "R1.2")
	})
}

func labelsNamed(doc *schematic.Document, name string) []*schematic.Element {
	var out []*schematic.Element
	for _, e := range doc.ElementsOfKind(schematic.KindLabel) {
		if e.Text() == name {
			out = append(out, e)
		}
	}
	return out
}

func TestGenerateThenExtend(t *testing.T) {
	e := testEngine(t)
	path := schPath(t)

	_, err := e.Generate(dividerGraph(t), path, DefaultPolicy())
	require.NoError(t, err)

	doc, err := schematic.ParseFile(path)
	require.NoError(t, err)
	require.Len(t, doc.Components(), 1)
	assert.Len(t, labelsNamed(doc, "VCC"), 1)
	assert.Len(t, labelsNamed(doc, "GND"), 1)

	r1, _ := doc.ComponentByReference("R1")
	require.NotNil(t, r1)
	r1Pos := r1.Position()
	r1ID := r1.UUID()

	// Add R2 on the same nets; R1 must not move or change identity.
	g2 := graphWith(t, func(c *circuit.Circuit) {
		part(t, c, "R1", "Device:R", "10k", "Resistor_SMD:R_0603_1608Metric")
		part(t, c, "R2", "Device:R", "4.7k", "Resistor_SMD:R_0603_1608Metric")
		wire(t, c, "VCC", "R1.1", "R2.1")
		wire(t, c, "GND", "R1.2", "R2.2")
	})
	_, err = e.Generate(g2, path, DefaultPolicy())
	require.NoError(t, err)

	doc, err = schematic.ParseFile(path)
	require.NoError(t, err)
	require.Len(t, doc.Components(), 2)

	r1, _ = doc.ComponentByReference("R1")
	require.NotNil(t, r1)
	assert.Equal(t, r1ID, r1.UUID())
	assert.Equal(t, r1Pos, r1.Position())
	assert.Len(t, labelsNamed(doc, "VCC"), 2, "VCC must now list two pins")
}

func TestRegenerationIsFixedPoint(t *testing.T) {
	e := testEngine(t)
	path := schPath(t)
	g := dividerGraph(t)

	_, err := e.Generate(g, path, DefaultPolicy())
	require.NoError(t, err)
	first, err := os.ReadFile(path)
	require.NoError(t, err)

	_, err = e.Generate(g, path, DefaultPolicy())
	require.NoError(t, err)
	second, err := os.ReadFile(path)
	require.NoError(t, err)

	assert.Equal(t, string(first), string(second), "second run must be byte-identical")
}

func TestManualPositionSurvivesRegeneration(t *testing.T) {
	e := testEngine(t)
	path := schPath(t)
	g := dividerGraph(t)

	_, err := e.Generate(g, path, DefaultPolicy())
	require.NoError(t, err)

	// Simulate a user dragging R1 in the CAD tool.
	project, err := schematic.LoadProject(path)
	require.NoError(t, err)
	r1, _ := project.Root.ComponentByReference("R1")
	require.NotNil(t, r1)
	moved := schematic.PositionAngle{Position: schematic.Position{X: 123.19, Y: 67.31}}
	r1.SetPosition(moved)
	require.NoError(t, project.Save())

	_, err = e.Generate(g, path, DefaultPolicy())
	require.NoError(t, err)

	doc, err := schematic.ParseFile(path)
	require.NoError(t, err)
	r1, _ = doc.ComponentByReference("R1")
	assert.Equal(t, moved, r1.Position())
}

func TestDeletionPolicyPreserves(t *testing.T) {
	e := testEngine(t)
	path := schPath(t)

	g2 := graphWith(t, func(c *circuit.Circuit) {
		part(t, c, "R1", "Device:R", "10k", "")
		part(t, c, "R2", "Device:R", "4.7k", "")
		wire(t, c, "VCC", "R1.1", "R2.1")
	})
	_, err := e.Generate(g2, path, DefaultPolicy())
	require.NoError(t, err)

	g1 := graphWith(t, func(c *circuit.Circuit) {
		part(t, c, "R1", "Device:R", "10k", "")
		wire(t, c, "VCC", "R1.1")
	})
	_, err = e.Generate(g1, path, DefaultPolicy())
	require.NoError(t, err)

	doc, err := schematic.ParseFile(path)
	require.NoError(t, err)
	r2, _ := doc.ComponentByReference("R2")
	require.NotNil(t, r2, "preserved component must stay in the file")
	_, orphan := r2.Property(schematic.PropOrphan)
	assert.True(t, orphan, "preserved component must carry the orphan mark")

	// A later regeneration must not keep churning on the orphan.
	before, _ := os.ReadFile(path)
	_, err = e.Generate(g1, path, DefaultPolicy())
	require.NoError(t, err)
	after, _ := os.ReadFile(path)
	assert.Equal(t, string(before), string(after))
}

func TestDeletionPolicyDeletes(t *testing.T) {
	e := testEngine(t)
	path := schPath(t)

	g2 := graphWith(t, func(c *circuit.Circuit) {
		part(t, c, "R1", "Device:R", "10k", "")
		part(t, c, "R2", "Device:R", "4.7k", "")
		wire(t, c, "VCC", "R1.1", "R2.1")
	})
	_, err := e.Generate(g2, path, DefaultPolicy())
	require.NoError(t, err)

	g1 := graphWith(t, func(c *circuit.Circuit) {
		part(t, c, "R1", "Device:R", "10k", "")
		wire(t, c, "VCC", "R1.1")
	})
	policy := DefaultPolicy()
	policy.PreserveUserComponents = false
	_, err = e.Generate(g1, path, policy)
	require.NoError(t, err)

	doc, err := schematic.ParseFile(path)
	require.NoError(t, err)
	r2, _ := doc.ComponentByReference("R2")
	assert.Nil(t, r2, "deleted component must be gone")
	assert.Len(t, labelsNamed(doc, "VCC"), 1, "the deleted component's label goes with it")
}

func TestRenameKeepsIdentityAndGeometry(t *testing.T) {
	e := testEngine(t)
	path := schPath(t)

	_, err := e.Generate(dividerGraph(t), path, DefaultPolicy())
	require.NoError(t, err)
	doc, err := schematic.ParseFile(path)
	require.NoError(t, err)
	old, _ := doc.ComponentByReference("R1")
	oldID, oldPos := old.UUID(), old.Position()

	renamed := graphWith(t, func(c *circuit.Circuit) {
		part(t, c, "R5", "Device:R", "10k", "Resistor_SMD:R_0603_1608Metric")
		wire(t, c, "VCC", "R5.1")
		wire(t, c, "GND", "R5.2")
	})
	_, err = e.Generate(renamed, path, DefaultPolicy())
	require.NoError(t, err)

	doc, err = schematic.ParseFile(path)
	require.NoError(t, err)
	require.Len(t, doc.Components(), 1, "rename must not leave an orphan plus a fresh copy")

	r5, _ := doc.ComponentByReference("R5")
	require.NotNil(t, r5)
	assert.Equal(t, oldID, r5.UUID())
	assert.Equal(t, oldPos, r5.Position())
}

func TestNetSplitScenario(t *testing.T) {
	e := testEngine(t)
	path := schPath(t)

	joined := graphWith(t, func(c *circuit.Circuit) {
		part(t, c, "R1", "Device:R", "10k", "")
		part(t, c, "R2", "Device:R", "10k", "")
		wire(t, c, "NET1", "R1.1", "R2.1")
	})
	_, err := e.Generate(joined, path, DefaultPolicy())
	require.NoError(t, err)

	split := graphWith(t, func(c *circuit.Circuit) {
		part(t, c, "R1", "Device:R", "10k", "")
		part(t, c, "R2", "Device:R", "10k", "")
		wire(t, c, "NET1", "R1.1")
		wire(t, c, "NET2", "R2.1")
	})
	_, err = e.Generate(split, path, DefaultPolicy())
	require.NoError(t, err)

	doc, err := schematic.ParseFile(path)
	require.NoError(t, err)
	net1 := labelsNamed(doc, "NET1")
	net2 := labelsNamed(doc, "NET2")
	require.Len(t, net1, 1, "NET1 retains one connection")
	require.Len(t, net2, 1, "NET2 is created with one connection")

	attach1, _ := net1[0].Property(schematic.PropAttach)
	attach2, _ := net2[0].Property(schematic.PropAttach)
	assert.Equal(t, "R1.1", attach1)
	assert.Equal(t, "R2.1", attach2)
}

func TestImportIsFixedPoint(t *testing.T) {
	e := testEngine(t)
	path := schPath(t)

	g := graphWith(t, func(c *circuit.Circuit) {
		part(t, c, "R1", "Device:R", "10k", "Resistor_SMD:R_0603_1608Metric")
		part(t, c, "R2", "Device:R", "4.7k", "Resistor_SMD:R_0603_1608Metric")
		wire(t, c, "VCC", "R1.1", "R2.1")
		wire(t, c, "GND", "R1.2", "R2.2")
	})
	_, err := e.Generate(g, path, DefaultPolicy())
	require.NoError(t, err)

	imported, err := e.Import(path)
	require.NoError(t, err)
	require.Len(t, imported.Root.Components, 2)
	require.Len(t, imported.Root.Nets, 2)
	assert.Len(t, imported.Root.Nets["VCC"].Pins, 2)

	// Diffing the extracted graph against its own source must be a no-op.
	project, err := schematic.LoadProject(path)
	require.NoError(t, err)
	script, err := Diff(imported, project, DefaultPolicy())
	require.NoError(t, err)
	assert.True(t, script.Empty(), "extract followed by diff must reach a fixed point")

	// And regenerating from the extracted graph leaves the file untouched.
	before, _ := os.ReadFile(path)
	_, err = e.Generate(imported, path, DefaultPolicy())
	require.NoError(t, err)
	after, _ := os.ReadFile(path)
	assert.Equal(t, string(before), string(after))
}

func TestHierarchicalSheets(t *testing.T) {
	e := testEngine(t)
	path := schPath(t)

	g := graphWith(t, func(c *circuit.Circuit) {
		part(t, c, "R1", "Device:R", "10k", "")
		wire(t, c, "VCC", "R1.1")

		psu := circuit.NewCircuit("psu")
		part(t, psu, "R10", "Device:R", "0", "")
		wire(t, psu, "VIN", "R10.1")
		c.AddChild(&circuit.SubcircuitInstance{
			Name:    "psu",
			Circuit: psu,
			Binds:   map[string]string{"VIN": "VCC"},
		})
	})

	policy := DefaultPolicy()
	policy.Placement = StrategyHierarchical
	_, err := e.Generate(g, path, policy)
	require.NoError(t, err)

	childPath := filepath.Join(filepath.Dir(path), "psu.kicad_sch")
	_, err = os.Stat(childPath)
	require.NoError(t, err, "child sheet file must be written")

	doc, err := schematic.ParseFile(path)
	require.NoError(t, err)
	sheets := doc.Sheets()
	require.Len(t, sheets, 1)
	assert.Equal(t, "psu", sheets[0].SheetName())
	bind, _ := sheets[0].Property("Sync_Bind_VIN")
	assert.Equal(t, "VCC", bind)

	imported, err := e.Import(path)
	require.NoError(t, err)
	require.Len(t, imported.Root.Children, 1)
	child := imported.Root.Children[0]
	assert.Equal(t, "psu", child.Name)
	assert.Equal(t, map[string]string{"VIN": "VCC"}, child.Binds)
	require.Contains(t, child.Circuit.Components, "R10")

	// The hierarchy must also reach a fixed point.
	before, _ := os.ReadFile(path)
	_, err = e.Generate(g, path, policy)
	require.NoError(t, err)
	after, _ := os.ReadFile(path)
	assert.Equal(t, string(before), string(after))
}

func TestExplicitPositionTakesPrecedence(t *testing.T) {
	e := testEngine(t)
	path := schPath(t)

	g := graphWith(t, func(c *circuit.Circuit) {
		comp := part(t, c, "R1", "Device:R", "10k", "")
		comp.Placement = &circuit.Placement{X: 203.2, Y: 101.6, Rotation: 90}
	})
	_, err := e.Generate(g, path, DefaultPolicy())
	require.NoError(t, err)

	doc, err := schematic.ParseFile(path)
	require.NoError(t, err)
	r1, _ := doc.ComponentByReference("R1")
	require.NotNil(t, r1)
	pos := r1.Position()
	assert.Equal(t, 203.2, pos.X)
	assert.Equal(t, 101.6, pos.Y)
	assert.Equal(t, schematic.Angle(90), pos.Angle)
}

func TestMalformedDocumentAbortsGeneration(t *testing.T) {
	e := testEngine(t)
	path := schPath(t)
	garbage := []byte("this is not a schematic (")
	require.NoError(t, os.WriteFile(path, garbage, 0o644))

	_, err := e.Generate(dividerGraph(t), path, DefaultPolicy())
	var malformed *schematic.MalformedError
	require.ErrorAs(t, err, &malformed)

	// The unreadable file must never be overwritten.
	content, readErr := os.ReadFile(path)
	require.NoError(t, readErr)
	assert.Equal(t, garbage, content)
}

func TestMultiUnitReconciliation(t *testing.T) {
	resolver := symbols.StaticResolver{
		"IC:DUAL": {
			ID:        "IC:DUAL",
			UnitCount: 2,
			Pins: []symbols.Pin{
				{ID: "1", Name: "A", Unit: 1},
				{ID: "2", Name: "B", Unit: 2},
			},
		},
		"IC:QUAD": {
			ID:        "IC:QUAD",
			UnitCount: 4,
			Pins: []symbols.Pin{
				{ID: "1", Name: "A", Unit: 1},
				{ID: "2", Name: "B", Unit: 2},
				{ID: "3", Name: "C", Unit: 3},
				{ID: "4", Name: "D", Unit: 4},
			},
		},
	}
	e := New(zaptest.NewLogger(t), resolver)
	path := schPath(t)

	dual := graphWith(t, func(c *circuit.Circuit) {
		part(t, c, "U1", "IC:DUAL", "", "")
	})
	_, err := e.Generate(dual, path, DefaultPolicy())
	require.NoError(t, err)

	doc, err := schematic.ParseFile(path)
	require.NoError(t, err)
	primary, units := doc.ComponentByReference("U1")
	require.Len(t, units, 2, "one placed element per unit")
	primaryID := primary.UUID()

	quad := graphWith(t, func(c *circuit.Circuit) {
		part(t, c, "U1", "IC:QUAD", "", "")
	})
	_, err = e.Generate(quad, path, DefaultPolicy())
	require.NoError(t, err)

	doc, err = schematic.ParseFile(path)
	require.NoError(t, err)
	primary, units = doc.ComponentByReference("U1")
	require.Len(t, units, 4, "symbol change must add the missing units")
	assert.Equal(t, primaryID, primary.UUID(), "primary unit identity survives the symbol change")
	for _, unit := range units {
		assert.Equal(t, "IC:QUAD", unit.LibID())
	}
}

func TestAlphanumericPinConnectivity(t *testing.T) {
	resolver := symbols.StaticResolver{
		"IC:BGA": {
			ID:        "IC:BGA",
			UnitCount: 1,
			Pins: []symbols.Pin{
				{ID: "A1", Name: "IN"},
				{ID: "B1", Name: "OUT"},
			},
		},
	}
	e := New(zaptest.NewLogger(t), resolver)
	path := schPath(t)

	g := graphWith(t, func(c *circuit.Circuit) {
		part(t, c, "U1", "IC:BGA", "", "")
		wire(t, c, "NET_A", "U1.A1")
		wire(t, c, "NET_B", "U1.B1")
	})
	_, err := e.Generate(g, path, DefaultPolicy())
	require.NoError(t, err)

	doc, err := schematic.ParseFile(path)
	require.NoError(t, err)
	netA := labelsNamed(doc, "NET_A")
	netB := labelsNamed(doc, "NET_B")
	require.Len(t, netA, 1)
	require.Len(t, netB, 1)
	assert.NotEqual(t, netA[0].Position(), netB[0].Position(),
		"labels for different pins must not share a position")

	imported, err := e.Import(path)
	require.NoError(t, err)
	require.Len(t, imported.Root.Nets, 2, "distinct nets must survive the round trip")
	require.Contains(t, imported.Root.Nets, "NET_A")
	require.Contains(t, imported.Root.Nets, "NET_B")
	require.Len(t, imported.Root.Nets["NET_A"].Pins, 1)
	require.Len(t, imported.Root.Nets["NET_B"].Pins, 1)
	assert.Equal(t, "U1.A1", imported.Root.Nets["NET_A"].Pins[0].String())
	assert.Equal(t, "U1.B1", imported.Root.Nets["NET_B"].Pins[0].String())

	project, err := schematic.LoadProject(path)
	require.NoError(t, err)
	script, err := Diff(imported, project, DefaultPolicy())
	require.NoError(t, err)
	assert.True(t, script.Empty(), "extract followed by diff must reach a fixed point")
}

func TestGenerateRejectsBadGraph(t *testing.T) {
	e := testEngine(t)
	root := circuit.NewCircuit("main")
	root.Components["R1"] = &circuit.Component{Ref: "R2", SymbolID: "Device:R"}
	root.Components["R2"] = &circuit.Component{Ref: "R2", SymbolID: "Device:R"}

	_, err := e.Generate(&circuit.Graph{Root: root}, schPath(t), DefaultPolicy())
	var dup *DuplicateReferenceError
	require.ErrorAs(t, err, &dup)
}
