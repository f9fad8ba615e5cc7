package schematic

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// Project groups a root schematic document with the child-sheet documents
// its sheet elements reference. Children are linked by stable file identity
// (the child document's own uuid), with the Sheetfile path as the initial
// hint, so renaming a sheet's display name or moving its file does not break
// the hierarchy.
type Project struct {
	Root     *Document
	RootPath string

	// Children maps sheet element identity to the loaded child document.
	Children map[UUID]*ChildSheet
}

// ChildSheet is a loaded child document together with the sheet element in
// the parent that references it. Children holds the next hierarchy level,
// keyed by sheet element identity, mirroring Project.Children.
type ChildSheet struct {
	Doc     *Document
	Path    string
	Element *Element

	Children map[UUID]*ChildSheet
}

// PropSheetDocID records the referenced child document's own uuid on the
// sheet element, establishing path-independent identity.
const PropSheetDocID = "Sheet_Doc_Id"

// LoadProject parses the root document and all reachable child sheets.
// A child whose Sheetfile path is stale is recovered by scanning sibling
// schematic files for a matching document uuid.
func LoadProject(path string) (*Project, error) {
	root, err := ParseFile(path)
	if err != nil {
		return nil, err
	}

	p := &Project{
		Root:     root,
		RootPath: path,
		Children: make(map[UUID]*ChildSheet),
	}

	children, err := loadChildren(filepath.Dir(path), root)
	if err != nil {
		return nil, err
	}
	p.Children = children

	return p, nil
}

// loadChildren loads every sheet referenced by doc, recursing into each
// child's own sheets.
func loadChildren(dir string, doc *Document) (map[UUID]*ChildSheet, error) {
	children := make(map[UUID]*ChildSheet)
	for _, sheet := range doc.Sheets() {
		child, childPath, err := loadChild(dir, sheet)
		if err != nil {
			return nil, fmt.Errorf("failed to load sheet %q: %w", sheet.SheetName(), err)
		}
		sub, err := loadChildren(dir, child)
		if err != nil {
			return nil, err
		}
		children[sheet.UUID()] = &ChildSheet{
			Doc:      child,
			Path:     childPath,
			Element:  sheet,
			Children: sub,
		}
	}
	return children, nil
}

func loadChild(dir string, sheet *Element) (*Document, string, error) {
	file := sheet.SheetFile()
	if file == "" {
		return nil, "", fmt.Errorf("sheet has no %s property", PropSheetFile)
	}

	wantID, _ := sheet.Property(PropSheetDocID)
	childPath := filepath.Join(dir, file)

	doc, err := ParseFile(childPath)
	if err == nil && (wantID == "" || string(doc.UUID()) == wantID) {
		return doc, childPath, nil
	}

	// Path stale or identity mismatch: recover by document identity.
	if wantID != "" {
		if found, foundPath := findByDocID(dir, UUID(wantID)); found != nil {
			sheet.SetProperty(PropSheetFile, filepath.Base(foundPath))
			return found, foundPath, nil
		}
	}
	if err != nil {
		return nil, "", err
	}
	return doc, childPath, nil
}

// findByDocID scans sibling schematic files for a document with the given
// identity.
func findByDocID(dir string, id UUID) (*Document, string) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, ""
	}
	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".kicad_sch") {
			continue
		}
		path := filepath.Join(dir, entry.Name())
		doc, err := ParseFile(path)
		if err != nil {
			continue
		}
		if doc.UUID() == id {
			return doc, path
		}
	}
	return nil, ""
}

// NewProject creates an empty project rooted at path.
func NewProject(path string) *Project {
	return &Project{
		Root:     NewDocument(),
		RootPath: path,
		Children: make(map[UUID]*ChildSheet),
	}
}

// AddChild creates a child document for the given sheet element and
// registers the identity link on the sheet.
func (p *Project) AddChild(sheet *Element) *ChildSheet {
	child := newChild(filepath.Dir(p.RootPath), sheet)
	p.Children[sheet.UUID()] = child
	return child
}

// AddChild creates a grandchild document under this sheet.
func (cs *ChildSheet) AddChild(sheet *Element) *ChildSheet {
	child := newChild(filepath.Dir(cs.Path), sheet)
	if cs.Children == nil {
		cs.Children = make(map[UUID]*ChildSheet)
	}
	cs.Children[sheet.UUID()] = child
	return child
}

func newChild(dir string, sheet *Element) *ChildSheet {
	doc := NewDocument()
	sheet.SetProperty(PropSheetDocID, string(doc.UUID()))
	return &ChildSheet{
		Doc:      doc,
		Path:     filepath.Join(dir, sheet.SheetFile()),
		Element:  sheet,
		Children: make(map[UUID]*ChildSheet),
	}
}

// Documents returns the root and all child documents, root first, in sheet
// document order.
func (p *Project) Documents() []*Document {
	docs := []*Document{p.Root}
	return appendDocuments(docs, p.Root, p.Children)
}

func appendDocuments(docs []*Document, doc *Document, children map[UUID]*ChildSheet) []*Document {
	for _, sheet := range doc.Sheets() {
		child, ok := children[sheet.UUID()]
		if !ok {
			continue
		}
		docs = append(docs, child.Doc)
		docs = appendDocuments(docs, child.Doc, child.Children)
	}
	return docs
}

// Save writes the root document and every child document, each atomically.
func (p *Project) Save() error {
	if err := p.Root.WriteFile(p.RootPath); err != nil {
		return err
	}
	return saveChildren(p.Children)
}

func saveChildren(children map[UUID]*ChildSheet) error {
	for _, child := range children {
		if err := child.Doc.WriteFile(child.Path); err != nil {
			return err
		}
		if err := saveChildren(child.Children); err != nil {
			return err
		}
	}
	return nil
}
