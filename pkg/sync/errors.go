// Package sync implements the bidirectional synchronization engine between a
// circuit graph and a schematic project on disk. The forward path diffs the
// graph against the current documents and applies a minimal edit script under
// a preservation policy; the reverse path extracts a graph back out of the
// documents. Element identity is the document uuid, never the reference
// string, so components keep their position and manual metadata across
// regenerations.
package sync

import (
	"fmt"
	"strings"

	"github.com/OpenTraceLab/schsync/pkg/schematic"
)

// DuplicateReferenceError reports two components carrying the same reference
// in the same scope. Generation aborts before any write.
type DuplicateReferenceError struct {
	Ref   string
	Scope string
}

func (e *DuplicateReferenceError) Error() string {
	return fmt.Sprintf("duplicate reference %q in scope %q", e.Ref, e.Scope)
}

// AmbiguousIdentityError reports that rename detection found several
// equally good candidates for the same structural fingerprint. The caller
// either resolves the references manually or opts into ordinal pairing via
// Policy.OrdinalTiebreak.
type AmbiguousIdentityError struct {
	Scope      string
	Refs       []string         // graph references competing for the match
	Candidates []schematic.UUID // document elements they could map to
}

func (e *AmbiguousIdentityError) Error() string {
	return fmt.Sprintf("ambiguous identity in scope %q: %d candidates for renamed components %s",
		e.Scope, len(e.Candidates), strings.Join(e.Refs, ", "))
}

// CollisionError reports that the placement allocator exhausted its search
// without finding a free cell.
type CollisionError struct {
	Element string
	Cells   int
}

func (e *CollisionError) Error() string {
	return fmt.Sprintf("no collision-free position for %s within %d grid cells", e.Element, e.Cells)
}
