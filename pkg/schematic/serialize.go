package schematic

import (
	"bytes"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/OpenTraceLab/schsync/pkg/sexpr"
)

// Serialize writes the document in canonical form: known header nodes in
// fixed order, elements in document order, retained unknown nodes, then
// trailer nodes. The formatting is deterministic, so serializing an
// unchanged document is byte-stable across cycles.
func (d *Document) Serialize(w io.Writer) error {
	root := sexpr.NewList("kicad_sch")

	for _, key := range headerOrder {
		if node, ok := d.header[key]; ok {
			root.Append(node)
		}
	}
	for _, e := range d.Elements {
		root.Append(e.Node)
	}
	for _, extra := range d.extras {
		root.Append(extra)
	}
	for _, key := range trailerOrder {
		if node, ok := d.trailer[key]; ok {
			root.Append(node)
		}
	}

	return sexpr.Write(w, root)
}

// Bytes returns the serialized document.
func (d *Document) Bytes() ([]byte, error) {
	var buf bytes.Buffer
	if err := d.Serialize(&buf); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// WriteFile serializes the document to path atomically: the content is
// written to a temp file in the destination directory and renamed over the
// target, so a crash mid-write cannot corrupt the on-disk schematic.
func (d *Document) WriteFile(path string) error {
	data, err := d.Bytes()
	if err != nil {
		return fmt.Errorf("failed to serialize document: %w", err)
	}

	dir := filepath.Dir(path)
	tmp, err := os.CreateTemp(dir, ".schsync-*.tmp")
	if err != nil {
		return fmt.Errorf("failed to create temp file: %w", err)
	}
	tmpName := tmp.Name()

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("failed to write temp file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("failed to close temp file: %w", err)
	}
	if err := os.Rename(tmpName, path); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("failed to replace %s: %w", path, err)
	}
	return nil
}
