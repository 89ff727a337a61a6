package xmlstreamer

// NamespaceSet is a prefix->URI map for a single lexical scope,
// optionally chained to a parent scope. Lookup walks the local map first,
// then the parent transitively, so a prefix redeclared in an inner scope
// shadows everything outside it.
//
// The absent-prefix case (the default namespace, declared by a bare
// xmlns="..." attribute) is keyed by "" the same way the teacher's own
// extractNamespaces keyed its flattened map, since "" can never be a real
// XML prefix.
//
// Grounded on _examples/original_source/minidom-rs/src/namespace_set.rs:
// a BTreeMap<Option<String>, String> plus a RefCell<Option<Rc<NamespaceSet>>>
// parent link. Go has no interior-mutability ceremony to translate, so
// set_parent just assigns a field once, guarded by a sealed flag that
// panics on a second call the way the Rust original documents undefined
// behavior for calling set_parent twice.
type NamespaceSet struct {
	namespaces map[string]string
	parent     *NamespaceSet
	sealed     bool
}

// NewNamespaceSet returns an empty, unsealed NamespaceSet.
func NewNamespaceSet() *NamespaceSet {
	return &NamespaceSet{namespaces: map[string]string{}}
}

// NewDefaultNamespaceSet returns a NamespaceSet binding only the default
// (no-prefix) namespace to uri.
func NewDefaultNamespaceSet(uri string) *NamespaceSet {
	return &NamespaceSet{namespaces: map[string]string{"": uri}}
}

// NewPrefixedNamespaceSet returns a NamespaceSet binding a single prefix
// to uri.
func NewPrefixedNamespaceSet(prefix, uri string) *NamespaceSet {
	return &NamespaceSet{namespaces: map[string]string{prefix: uri}}
}

// NewNamespaceSetFromMap returns a NamespaceSet seeded with a complete
// prefix->URI map. The map is adopted, not copied: callers must not
// mutate it afterwards (construction discipline is append-only, then
// frozen, per the spec).
func NewNamespaceSetFromMap(bindings map[string]string) *NamespaceSet {
	if bindings == nil {
		bindings = map[string]string{}
	}
	return &NamespaceSet{namespaces: bindings}
}

// Get returns the URI bound to prefix in the nearest enclosing scope, and
// whether any binding was found at all.
func (ns *NamespaceSet) Get(prefix string) (string, bool) {
	if ns == nil {
		return "", false
	}
	if uri, ok := ns.namespaces[prefix]; ok {
		return uri, true
	}
	return ns.parent.Get(prefix)
}

// Has reports whether prefix resolves to exactly uri in the nearest
// enclosing scope, short-circuiting on a mismatch found in a closer scope
// (a redeclaration to a different URI hides an outer match rather than
// falling through to it).
func (ns *NamespaceSet) Has(prefix, uri string) bool {
	if ns == nil {
		return false
	}
	if bound, ok := ns.namespaces[prefix]; ok {
		return bound == uri
	}
	return ns.parent.Has(prefix, uri)
}

// SetParent installs the parent scope. It may be called at most once per
// set; calling it again panics, since a sealed set being re-parented
// would let lookups silently see a different ancestry than when it was
// first shared with descendants.
func (ns *NamespaceSet) SetParent(parent *NamespaceSet) {
	if ns.sealed {
		panic("xmlstreamer: NamespaceSet.SetParent called twice")
	}
	ns.parent = parent
	ns.sealed = true
}

// DeclaredNS exposes only the bindings declared locally in this scope,
// not anything inherited from a parent. The returned map must not be
// mutated by callers.
func (ns *NamespaceSet) DeclaredNS() map[string]string {
	return ns.namespaces
}
