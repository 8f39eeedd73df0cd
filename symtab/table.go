package symtab

// SymbolTable tracks the open scope while a compilation unit is parsed. One table is shared
// by every unit of a session.
type SymbolTable struct {
	top     *Scope
	current *Scope
	unit    string
}

// New creates a symbol table holding only the top scope
func New() *SymbolTable {
	top := newScope("", nil, false, false)
	return &SymbolTable{top: top, current: top}
}

// SetUnit names the compilation unit whose declarations follow, and resets the cursor to
// the top scope
func (t *SymbolTable) SetUnit(unit string) {
	t.unit = unit
	t.current = t.top
}

// Unit returns the current compilation unit
func (t *SymbolTable) Unit() string { return t.unit }

// TopScope returns the root of the scope graph
func (t *SymbolTable) TopScope() *Scope { return t.top }

// CurrentScope returns the open scope
func (t *SymbolTable) CurrentScope() *Scope { return t.current }

// OpenScope enters the child scope name, creating it on first use
func (t *SymbolTable) OpenScope(name string, typeScope bool) *Scope {
	if existing := t.current.Child(name); existing != nil {
		t.current = existing
		return existing
	}
	t.current = newScope(name, t.current, typeScope, false)
	return t.current
}

// CloseScope returns to the parent scope. A pragma scope opened inside the closed scope ends
// with it.
func (t *SymbolTable) CloseScope() error {
	cur := t.current
	if cur.pragma {
		cur = cur.parent
	}
	if cur == t.top {
		return ErrTopScopeClose
	}
	t.current = cur.parent
	return nil
}

// OpenPragmaScope opens the scope for a #pragma prefix. An open pragma scope is closed
// first; an empty prefix only closes it.
func (t *SymbolTable) OpenPragmaScope(prefix string) *Scope {
	t.ClosePragmaScope()
	if prefix == "" {
		return t.current
	}
	if existing, ok := t.current.children[prefix]; ok && existing.pragma {
		t.current = existing
		return existing
	}
	t.current = newScope(prefix, t.current, false, true)
	return t.current
}

// ClosePragmaScope leaves the current scope if it is a pragma scope
func (t *SymbolTable) ClosePragmaScope() {
	if t.current.pragma {
		t.current = t.current.parent
	}
}

// AddSymbol adds a definition to the current scope
func (t *SymbolTable) AddSymbol(name string) (*Symbol, error) {
	return t.current.AddSymbol(name, t.unit)
}

// AddSymbolValue adds a constant or enumerator to the current scope
func (t *SymbolTable) AddSymbolValue(name string) (*Symbol, error) {
	return t.current.AddSymbolValue(name, t.unit)
}

// AddFwdDecl adds a forward declaration to the current scope
func (t *SymbolTable) AddFwdDecl(name string) *Symbol {
	return t.current.AddFwdDecl(name, t.unit)
}

// AddTypeDef adds a typedef name to the current scope
func (t *SymbolTable) AddTypeDef(name string) (*Symbol, error) {
	return t.current.AddTypeDef(name, t.unit)
}

// ResolveScopedNameToSymbol resolves parts starting at start. The search is breadth first
// over the inherited scopes and the parent of every visited scope; each scope is visited
// at most once.
func (t *SymbolTable) ResolveScopedNameToSymbol(start *Scope, parts []string) *Symbol {
	if start == nil || len(parts) == 0 {
		return nil
	}
	visited := make(map[*Scope]bool)
	queue := []*Scope{start}
	for len(queue) > 0 {
		cur := queue[0]
		queue = queue[1:]
		if visited[cur] {
			continue
		}
		visited[cur] = true
		if found := resolveIn(cur, parts); found != nil {
			return found
		}
		queue = append(queue, cur.inherited...)
		if cur.parent != nil {
			queue = append(queue, cur.parent)
		}
	}
	return nil
}

func resolveIn(s *Scope, parts []string) *Symbol {
	cur := s
	for _, part := range parts[:len(parts)-1] {
		if cur = cur.Child(part); cur == nil {
			return nil
		}
	}
	return cur.Symbol(parts[len(parts)-1])
}

// ScopeForSymbol returns the scope opened for a type symbol, such as an interface body
func (t *SymbolTable) ScopeForSymbol(sym *Symbol) *Scope {
	return sym.scope.Child(sym.name)
}

// ConstructRepositoryID returns the repository id of sym, honouring #pragma ID overrides
func (t *SymbolTable) ConstructRepositoryID(sym *Symbol) string {
	if id, ok := sym.scope.PragmaID(sym.name); ok {
		return id
	}
	name := sym.name
	if len(name) > 1 && name[0] == '_' {
		name = name[1:]
	}
	path := name
	if part := sym.scope.RepositoryIDPart(); part != "" {
		path = part + "/" + name
	}
	return "IDL:" + path + ":1.0"
}

// CheckAllFwdDeclsComplete fails when any symbol of the session is only forward declared
func (t *SymbolTable) CheckAllFwdDeclsComplete() error {
	return t.top.CheckAllFwdCompleted()
}

func (t *SymbolTable) String() string {
	return "symbol table contents\n" + t.top.String()
}
