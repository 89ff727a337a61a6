package xmlstreamer

// TreeBuilder is a SAX-style stack machine that turns a Token stream into
// a namespace-scoped XMLElement tree. Grounded on
// _examples/original_source/minidom/src/tree_builder.rs, extended with
// the spec's fatal MissingNamespace / InvalidElementClosed checks the
// original source leaves to its caller.
type TreeBuilder struct {
	stack         []*XMLElement
	prefixesStack []*NamespaceSet
	root          *XMLElement

	// OnElementClosed, if set, is invoked synchronously right after an
	// element closes and has been attached to its parent (or assigned as
	// Root, if it was the outermost element). Grounded on the teacher's
	// handleEndElement/checkAndStreamElement pair in
	// _examples/wilkmaciej-xml-streamer/parser.go, generalized so the
	// Parser can decide, per closed element, whether to detach it and
	// stream it out rather than leaving it attached to the growing tree.
	OnElementClosed func(elem *XMLElement)
}

// NewTreeBuilder returns an empty TreeBuilder.
func NewTreeBuilder() *TreeBuilder {
	return &TreeBuilder{}
}

// Depth returns the number of currently open elements.
func (b *TreeBuilder) Depth() int {
	return len(b.stack)
}

// Top returns the innermost open element, or nil if nothing is open.
func (b *TreeBuilder) Top() *XMLElement {
	if len(b.stack) == 0 {
		return nil
	}
	return b.stack[len(b.stack)-1]
}

// Root returns the outermost element once it has closed, or nil while
// the document is still open (or hasn't started).
func (b *TreeBuilder) Root() *XMLElement {
	return b.root
}

// UnshiftChild detaches and returns the first child of the innermost
// open element, supporting incremental consumption of top-level
// children in long-lived streams (the XMPP <stream:stream> shape: an
// effectively unbounded root whose direct children are complete stanzas
// that should be drained as they close rather than accumulated forever).
func (b *TreeBuilder) UnshiftChild() (XMLNode, bool) {
	top := b.Top()
	if top == nil {
		return nil, false
	}
	return top.UnshiftChild()
}

func (b *TreeBuilder) processStartTag(name QName, attrs []Attribute) error {
	declared := map[string]string{}
	var elemAttrs []XMLAttribute
	for _, attr := range attrs {
		switch {
		case attr.Name.Prefix == "" && attr.Name.Local == "xmlns":
			declared[""] = attr.Value
		case attr.Name.Prefix == "xmlns":
			declared[attr.Name.Local] = attr.Value
		default:
			elemAttrs = append(elemAttrs, XMLAttribute{Name: attr.Name.String(), Value: attr.Value})
		}
	}

	nss := NewNamespaceSetFromMap(declared)
	// Seal the new scope onto its enclosing scope immediately, before any
	// lookup happens: the Get calls below and every later lookup through
	// the built Element both rely on this parent link, and the spec
	// requires the element's own prefix to resolve against the *entire*
	// current stack including bindings declared on this very StartTag.
	// Resolve directly against nss rather than through b.prefixesStack:
	// nss isn't pushed onto prefixesStack
	// (and elem isn't pushed onto stack) until resolution succeeds, so a
	// MissingNamespace return never leaves the two stacks out of balance.
	top := b.Top()
	if top != nil {
		nss.SetParent(top.nsScope)
	}

	namespaceURI := ""
	if name.Prefix != "" {
		uri, ok := nss.Get(name.Prefix)
		if !ok {
			return newError(ErrMissingNamespace, "undeclared prefix %q on element %q", name.Prefix, name.Local)
		}
		namespaceURI = uri
	} else if uri, ok := nss.Get(""); ok {
		namespaceURI = uri
	}

	elem := getElementFromPool()
	elem.Name = name.String()
	elem.localName = name.Local
	elem.prefix = name.Prefix
	elem.namespaceURI = namespaceURI
	elem.nsScope = nss
	elem.Attributes = elemAttrs

	// Note: elem is NOT attached to its parent's children here. Per
	// spec.md §4.4, attachment happens when the EndTag closes this
	// element, not when it opens — the parent pointer alone is set now
	// so navigation works while the element is still on the stack.
	elem.parent = top

	b.prefixesStack = append(b.prefixesStack, nss)
	b.stack = append(b.stack, elem)
	return nil
}

func (b *TreeBuilder) processEndTag(name QName) error {
	if len(b.stack) == 0 {
		// Tolerated: an EndTag popping an empty stack is discarded, not
		// fatal, matching tree_builder.rs's pop() returning None and
		// process_end_tag() doing nothing further.
		return nil
	}

	top := len(b.stack) - 1
	elem := b.stack[top]
	b.stack = b.stack[:top]
	b.prefixesStack = b.prefixesStack[:top]

	if elem.localName != name.Local || elem.prefix != name.Prefix {
		return newError(ErrInvalidElementClosed, "end tag %q does not match open element %q", name.String(), elem.Name)
	}

	if len(b.stack) > 0 {
		parent := b.stack[len(b.stack)-1]
		parent.AppendChild(elem)
	} else {
		b.root = elem
	}

	if b.OnElementClosed != nil {
		b.OnElementClosed(elem)
	}
	return nil
}

func (b *TreeBuilder) processText(text string) {
	if len(b.stack) == 0 {
		return
	}
	b.stack[len(b.stack)-1].AppendTextNode(text)
}

// ProcessToken advances the builder's state machine by one token.
func (b *TreeBuilder) ProcessToken(tok Token) error {
	switch tok.Kind {
	case StartTag:
		if err := b.processStartTag(tok.Name, tok.Attrs); err != nil {
			return err
		}
		if tok.SelfClosing {
			return b.processEndTag(tok.Name)
		}
		return nil
	case EndTag:
		return b.processEndTag(tok.Name)
	case Text:
		b.processText(tok.TextValue)
		return nil
	default:
		return nil
	}
}
