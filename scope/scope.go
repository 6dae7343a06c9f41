// Package scope implements Eva's scope analyzer: a pre-pass over the AST
// that classifies every symbol reference as GLOBAL, LOCAL, or CELL before
// the compiler emits a single byte of bytecode.
//
// The classification algorithm (maybePromote/resolve) is the one the
// original Eva virtual machine uses: walk the scope chain looking for an
// existing allocation, flip the tentative allocation to CELL when a function
// boundary is crossed without finding one, and flip to GLOBAL once the
// search reaches the scope directly enclosed by the global scope.
package scope

import "fmt"

// Type identifies what introduced a Scope: the program itself, a lexical
// block (`begin`), or a function body (`def`/`lambda`).
type Type int

const (
	Global Type = iota
	Block
	Function
)

// Allocation is where a variable's storage lives at runtime.
type Allocation int

const (
	AllocGlobal Allocation = iota
	AllocLocal
	AllocCell
)

// ReferenceError reports use of a name that resolution could not find
// anywhere in the enclosing scope chain.
type ReferenceError struct {
	Name string
}

func (e ReferenceError) Error() string {
	return fmt.Sprintf("Reference error: %s is not defined", e.Name)
}

// Scope is a compile-time record attached to every scope-introducing AST
// node (the top-level program, a `begin` block, a `def`/`lambda` body).
type Scope struct {
	Type   Type
	Parent *Scope

	// allocInfo classifies every name this scope has seen, either because
	// the name is declared here (AddLocal/addCell) or because resolution
	// passing through this scope recorded a decision (addFree).
	allocInfo map[string]Allocation

	// free is the set of names used in this scope (or a nested one) that
	// are owned by an *enclosing* function and must be threaded through as
	// cells. freeOrder preserves first-reference order, since cellIdx
	// assignment must be stable across the compiler's two passes over the
	// same Scope.
	free      map[string]bool
	freeOrder []string

	// cells is the set of names this scope itself promotes to a heap cell
	// because some nested function captures them; cellsOrder preserves
	// first-capture order for the same reason.
	cells      map[string]bool
	cellsOrder []string
}

// New creates a Scope of the given type with the given (possibly nil)
// parent.
func New(t Type, parent *Scope) *Scope {
	return &Scope{
		Type:      t,
		Parent:    parent,
		allocInfo: make(map[string]Allocation),
		free:      make(map[string]bool),
		cells:     make(map[string]bool),
	}
}

// AddLocal registers name as declared in this scope: a parameter, a named
// function's own binding, or a `var`. It is allocated GLOBAL if this scope
// is the Global scope, LOCAL otherwise.
func (s *Scope) AddLocal(name string) {
	if s.Type == Global {
		s.allocInfo[name] = AllocGlobal
	} else {
		s.allocInfo[name] = AllocLocal
	}
}

// addCell marks name as owned by this scope and heap-allocated, because a
// nested function captures it.
func (s *Scope) addCell(name string) {
	if !s.cells[name] {
		s.cells[name] = true
		s.cellsOrder = append(s.cellsOrder, name)
	}
	s.allocInfo[name] = AllocCell
}

// addFree marks name as a free variable this scope must thread through to
// an inner function that borrows it from an enclosing owner.
func (s *Scope) addFree(name string) {
	if !s.free[name] {
		s.free[name] = true
		s.freeOrder = append(s.freeOrder, name)
	}
	s.allocInfo[name] = AllocCell
}

// FreeNames returns, in first-reference order, the names this scope must
// thread through from an enclosing function. This order becomes the
// cellNames free-prefix the compiler assigns to the CodeObject.
func (s *Scope) FreeNames() []string {
	return s.freeOrder
}

// Cells returns, in first-capture order, the names this scope owns as heap
// cells. This order becomes the cellNames suffix.
func (s *Scope) Cells() []string {
	return s.cellsOrder
}

// Lookup reports the allocation Resolve recorded for name directly in this
// scope (not searching parents), and whether one was recorded at all.
func Lookup(s *Scope, name string) (Allocation, bool) {
	alloc, ok := s.allocInfo[name]
	return alloc, ok
}

// Resolve classifies a symbol reference occurring in scope s, performing
// promotion (and free-variable threading through intermediate scopes) as a
// side effect when the reference resolves to a cell.
func Resolve(s *Scope, name string) (Allocation, error) {
	initial := tentative(s)
	if existing, ok := s.allocInfo[name]; ok {
		initial = existing
	}

	owner, alloc, err := resolveChain(s, name, initial)
	if err != nil {
		return 0, err
	}

	s.allocInfo[name] = alloc
	if alloc == AllocCell {
		promote(s, owner, name)
	}
	return alloc, nil
}

func tentative(s *Scope) Allocation {
	if s.Type == Global {
		return AllocGlobal
	}
	return AllocLocal
}

// resolveChain walks up the scope chain starting at s, returning the scope
// that owns name once resolved, along with the final allocation. alloc is
// the allocation accumulated so far as the walk crosses function and global
// boundaries; once name is found, that accumulated value (not whatever was
// separately recorded in the owning scope) is the answer — a name declared
// LOCAL in its own scope still resolves CELL for a use site that had to
// cross a function boundary to reach it.
func resolveChain(s *Scope, name string, alloc Allocation) (*Scope, Allocation, error) {
	if _, ok := s.allocInfo[name]; ok {
		return s, alloc, nil
	}

	if s.Type == Function {
		alloc = AllocCell
	}

	if s.Parent == nil {
		return nil, 0, ReferenceError{Name: name}
	}

	if s.Parent.Type == Global {
		alloc = AllocGlobal
	}

	return resolveChain(s.Parent, name, alloc)
}

// promote threads name as a free variable through the use scope s and every
// scope between it and owner (owner excluded), and registers it as a cell on
// owner itself.
func promote(s *Scope, owner *Scope, name string) {
	owner.addCell(name)
	for cur := s; cur != owner; cur = cur.Parent {
		cur.addFree(name)
	}
}
