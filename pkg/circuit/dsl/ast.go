package dsl

// File represents a complete circuit description file.
// A file contains exactly one root circuit block.
type File struct {
	Root *CircuitBlock `parser:"@@"`
}

// CircuitBlock is the top-level scope declaration.
// Example: circuit "main" { ... }
type CircuitBlock struct {
	Name  string  `parser:"KwCircuit @String LBrace"`
	Items []*Item `parser:"@@* RBrace"`
}

// Item is one declaration inside a circuit or sheet block.
type Item struct {
	Part  *PartDecl  `parser:"  @@"`
	Net   *NetDecl   `parser:"| @@"`
	Sheet *SheetDecl `parser:"| @@"`
	Bind  *BindDecl  `parser:"| @@"`
}

// PartDecl declares one component.
// Example: part R1 "Device:R" value "10k" footprint "..." at (50, 60)
type PartDecl struct {
	Ref    string      `parser:"KwPart @Ident"`
	Symbol string      `parser:"@String"`
	Attrs  []*PartAttr `parser:"@@*"`
}

// PartAttr is one optional component attribute clause.
type PartAttr struct {
	Value     *string   `parser:"  KwValue @String"`
	Footprint *string   `parser:"| KwFootprint @String"`
	At        *AtClause `parser:"| @@"`
	Prop      *PropDecl `parser:"| @@"`
}

// AtClause supplies an explicit position, with optional rotation.
// Example: at (50, 60) or at (50, 60, 90)
type AtClause struct {
	X        float64  `parser:"KwAt LParen @Number"`
	Y        float64  `parser:"Comma @Number"`
	Rotation *float64 `parser:"( Comma @Number )? RParen"`
}

// PropDecl attaches a typed extra property to a component.
// Example: prop "Tolerance" "1%"  /  prop "Power" 0.25  /  prop "DNP" true
type PropDecl struct {
	Key    string   `parser:"KwProp @String"`
	SVal   *string  `parser:"( @String"`
	NVal   *float64 `parser:"| @Number"`
	BTrue  bool     `parser:"| @KwTrue"`
	BFalse bool     `parser:"| @KwFalse )"`
}

// NetDecl connects component pins into one named net.
// Example: net VCC R1.1 C1.1
type NetDecl struct {
	Name string    `parser:"KwNet @( Ident | String )"`
	Pins []*PinRef `parser:"@@*"`
}

// PinRef names one component pin, e.g. R1.1 or U3.A7.
type PinRef struct {
	Component string `parser:"@Ident Dot"`
	Pin       string `parser:"@( Ident | Number )"`
}

// SheetDecl declares a child subcircuit instance with its own scope.
// Example: sheet psu { part R2 "Device:R" ... }
type SheetDecl struct {
	Name  string  `parser:"KwSheet @Ident LBrace"`
	Items []*Item `parser:"@@* RBrace"`
}

// BindDecl maps a child interface net onto a net of the enclosing scope.
// Only valid inside a sheet block.
// Example: bind VIN = VCC
type BindDecl struct {
	Child  string `parser:"KwBind @( Ident | String )"`
	Parent string `parser:"Eq @( Ident | String )"`
}
