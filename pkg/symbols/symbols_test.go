package symbols

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
)

const deviceLib = `(kicad_symbol_lib
  (version 20220914)
  (generator kicad_symbol_editor)
  (symbol "R"
    (pin_numbers hide)
    (property "Reference" "R" (at 2.032 0 90))
    (property "Value" "R" (at 0 0 90))
    (symbol "R_0_1"
      (rectangle (start -1.016 -2.54) (end 1.016 2.54))
    )
    (symbol "R_1_1"
      (pin passive line (at 0 3.81 270) (length 1.27)
        (name "~" (effects (font (size 1.27 1.27))))
        (number "1" (effects (font (size 1.27 1.27))))
      )
      (pin passive line (at 0 -3.81 90) (length 1.27)
        (name "~" (effects (font (size 1.27 1.27))))
        (number "2" (effects (font (size 1.27 1.27))))
      )
    )
  )
  (symbol "Q_NAND"
    (property "Reference" "U" (at 0 0 0))
    (symbol "Q_NAND_1_1"
      (pin input line (at -7.62 1.27 0) (length 2.54)
        (name "A" (effects (font (size 1.27 1.27))))
        (number "1" (effects (font (size 1.27 1.27))))
      )
      (pin output line (at 7.62 0 180) (length 2.54)
        (name "Y" (effects (font (size 1.27 1.27))))
        (number "3" (effects (font (size 1.27 1.27))))
      )
    )
    (symbol "Q_NAND_2_1"
      (pin input line (at -7.62 1.27 0) (length 2.54)
        (name "A" (effects (font (size 1.27 1.27))))
        (number "4" (effects (font (size 1.27 1.27))))
      )
    )
    (symbol "Q_NAND_0_1"
      (pin power_in line (at 0 7.62 270) (length 2.54)
        (name "VCC" (effects (font (size 1.27 1.27))))
        (number "14" (effects (font (size 1.27 1.27))))
      )
    )
  )
)
`

func writeLib(t *testing.T, dir, name, content string) {
	t.Helper()
	if err := os.WriteFile(filepath.Join(dir, name), []byte(content), 0o644); err != nil {
		t.Fatalf("failed to write library: %v", err)
	}
}

func TestLibraryResolver(t *testing.T) {
	dir := t.TempDir()
	writeLib(t, dir, "Device.kicad_sym", deviceLib)

	r := NewLibraryResolver(dir)

	sym, err := r.Resolve("Device:R")
	if err != nil {
		t.Fatalf("Resolve(Device:R) failed: %v", err)
	}
	if len(sym.Pins) != 2 {
		t.Errorf("Device:R pins = %d, want 2", len(sym.Pins))
	}
	if sym.UnitCount != 1 {
		t.Errorf("Device:R unit count = %d, want 1", sym.UnitCount)
	}
	if sym.IsMultiUnit() {
		t.Errorf("Device:R is not multi-unit")
	}
	if _, ok := sym.PinByID("2"); !ok {
		t.Errorf("pin 2 not found")
	}
}

func TestMultiUnitSymbol(t *testing.T) {
	dir := t.TempDir()
	writeLib(t, dir, "Device.kicad_sym", deviceLib)

	r := NewLibraryResolver(dir)
	sym, err := r.Resolve("Device:Q_NAND")
	if err != nil {
		t.Fatalf("Resolve failed: %v", err)
	}
	if sym.UnitCount != 2 {
		t.Errorf("unit count = %d, want 2", sym.UnitCount)
	}

	unit1 := sym.PinsOfUnit(1)
	if len(unit1) != 3 { // pins 1, 3 plus common VCC
		t.Errorf("unit 1 pins = %d, want 3", len(unit1))
	}
	unit2 := sym.PinsOfUnit(2)
	if len(unit2) != 2 { // pin 4 plus common VCC
		t.Errorf("unit 2 pins = %d, want 2", len(unit2))
	}
}

func TestUnknownSymbol(t *testing.T) {
	dir := t.TempDir()
	writeLib(t, dir, "Device.kicad_sym", deviceLib)

	r := NewLibraryResolver(dir)

	tests := []string{"Device:Missing", "NoSuchLib:R", "malformed-no-colon"}
	for _, id := range tests {
		_, err := r.Resolve(id)
		var unknown *UnknownSymbolError
		if !errors.As(err, &unknown) {
			t.Errorf("Resolve(%q) error = %v, want UnknownSymbolError", id, err)
		}
	}
}

func TestStaticResolver(t *testing.T) {
	r := StaticResolver{"Device:R": TwoPin("Device:R")}

	if _, err := r.Resolve("Device:R"); err != nil {
		t.Errorf("static resolve failed: %v", err)
	}
	var unknown *UnknownSymbolError
	if _, err := r.Resolve("Device:C"); !errors.As(err, &unknown) {
		t.Errorf("expected UnknownSymbolError, got %v", err)
	}
}

func TestLibraryCache(t *testing.T) {
	dir := t.TempDir()
	writeLib(t, dir, "Device.kicad_sym", deviceLib)

	r := NewLibraryResolver(dir)
	if _, err := r.Resolve("Device:R"); err != nil {
		t.Fatalf("first resolve failed: %v", err)
	}

	// Deleting the file must not matter once the library is cached.
	os.Remove(filepath.Join(dir, "Device.kicad_sym"))
	if _, err := r.Resolve("Device:Q_NAND"); err != nil {
		t.Errorf("cached resolve failed: %v", err)
	}
}
