package xmlstreamer

import "testing"

// feed pushes xml through a Tokenizer into a fresh TreeBuilder, returning
// the finished builder. Fails the test on any parse error.
func feed(t *testing.T, xml string) *TreeBuilder {
	t.Helper()
	tok := NewTokenizer()
	tok.Push([]byte(xml))
	b := NewTreeBuilder()
	for {
		tk, err := tok.Pull()
		if err != nil {
			t.Fatalf("unexpected tokenizer error: %v", err)
		}
		if tk == nil {
			break
		}
		if err := b.ProcessToken(*tk); err != nil {
			t.Fatalf("unexpected builder error: %v", err)
		}
	}
	return b
}

func TestTreeBuilderStackBalance(t *testing.T) {
	b := feed(t, `<a><b><c/></b></a>`)
	if b.Depth() != 0 {
		t.Fatalf("expected empty stack after balanced document, got depth %d", b.Depth())
	}
	if b.Root() == nil || b.Root().Name != "a" {
		t.Fatalf("expected root 'a', got %+v", b.Root())
	}
}

func TestTreeBuilderSelfClosingSynthesizesEndTag(t *testing.T) {
	b := feed(t, `<root><item/></root>`)
	if b.Depth() != 0 {
		t.Fatalf("expected stack empty, got depth %d", b.Depth())
	}
	root := b.Root()
	if len(root.children) != 1 {
		t.Fatalf("expected 1 child, got %d", len(root.children))
	}
}

func TestTreeBuilderEmptyAttributeValue(t *testing.T) {
	b := feed(t, `<root a=""/>`)
	root := b.Root()
	if len(root.Attributes) != 1 || root.Attributes[0].Value != "" {
		t.Fatalf("expected one empty-valued attribute, got %+v", root.Attributes)
	}
}

func TestTreeBuilderEndTagOnEmptyStackDiscarded(t *testing.T) {
	tok := NewTokenizer()
	tok.Push([]byte(`</root>`))
	b := NewTreeBuilder()
	tk, err := tok.Pull()
	if err != nil {
		t.Fatalf("unexpected tokenizer error: %v", err)
	}
	if err := b.ProcessToken(*tk); err != nil {
		t.Fatalf("expected stray end tag to be silently discarded, got error: %v", err)
	}
	if b.Depth() != 0 {
		t.Fatalf("expected depth 0, got %d", b.Depth())
	}
}

func TestTreeBuilderMissingNamespaceIsFatal(t *testing.T) {
	tok := NewTokenizer()
	tok.Push([]byte(`<ns:root/>`))
	b := NewTreeBuilder()
	tk, err := tok.Pull()
	if err != nil {
		t.Fatalf("unexpected tokenizer error: %v", err)
	}
	err = b.ProcessToken(*tk)
	if err == nil {
		t.Fatal("expected MissingNamespace error for undeclared prefix")
	}
	xErr, ok := err.(*Error)
	if !ok || xErr.Kind != ErrMissingNamespace {
		t.Fatalf("expected ErrMissingNamespace, got %v", err)
	}
	if len(b.stack) != 0 || len(b.prefixesStack) != 0 {
		t.Fatalf("expected stack and prefixesStack left empty and balanced after a failed StartTag, got %d/%d", len(b.stack), len(b.prefixesStack))
	}
}

func TestTreeBuilderInvalidElementClosedIsFatal(t *testing.T) {
	tok := NewTokenizer()
	tok.Push([]byte(`<a></b>`))
	b := NewTreeBuilder()
	for {
		tk, err := tok.Pull()
		if err != nil {
			t.Fatalf("unexpected tokenizer error: %v", err)
		}
		if tk == nil {
			break
		}
		err = b.ProcessToken(*tk)
		if tk.Kind == EndTag {
			if err == nil {
				t.Fatal("expected InvalidElementClosed error for mismatched end tag")
			}
			xErr, ok := err.(*Error)
			if !ok || xErr.Kind != ErrInvalidElementClosed {
				t.Fatalf("expected ErrInvalidElementClosed, got %v", err)
			}
			return
		}
		if err != nil {
			t.Fatalf("unexpected error on start tag: %v", err)
		}
	}
}

func TestTreeBuilderSelfDeclaredPrefixResolves(t *testing.T) {
	b := feed(t, `<x:z xmlns:x='urn:X'/>`)
	root := b.Root()
	if root.NamespaceURI() != "urn:X" {
		t.Fatalf("expected self-declared prefix to resolve, got %q", root.NamespaceURI())
	}
}

func TestTreeBuilderNamespaceInheritedThroughTree(t *testing.T) {
	b := feed(t, `<a xmlns:ns='urn:example'><ns:child/></a>`)
	root := b.Root()
	if len(root.children) != 1 {
		t.Fatalf("expected 1 child, got %d", len(root.children))
	}
	child := root.children[0].(*XMLElement)
	if child.NamespaceURI() != "urn:example" {
		t.Errorf("expected inherited namespace, got %q", child.NamespaceURI())
	}

	// Lookup through the built tree itself (not the transient builder
	// stack) must still resolve, since scopes are sealed onto their
	// parent at construction time.
	if uri, ok := child.nsScope.Get("ns"); !ok || uri != "urn:example" {
		t.Errorf("expected post-parse lookup through tree to work, got %q, %v", uri, ok)
	}
}

func TestTreeBuilderAttachmentDeferredUntilClose(t *testing.T) {
	tok := NewTokenizer()
	tok.Push([]byte(`<a><b>`))
	b := NewTreeBuilder()
	for {
		tk, err := tok.Pull()
		if err != nil {
			t.Fatalf("unexpected tokenizer error: %v", err)
		}
		if tk == nil {
			break
		}
		if err := b.ProcessToken(*tk); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
	}
	// <b> is still open; it must not yet be attached as a child of <a>,
	// per spec.md §4.4 (attachment happens at EndTag, not StartTag).
	a := b.stack[0]
	if len(a.children) != 0 {
		t.Fatalf("expected no children attached yet, got %d", len(a.children))
	}
}

func TestTreeBuilderUnshiftChildDrainsInOrder(t *testing.T) {
	tok := NewTokenizer()
	tok.Push([]byte(`<stream><a/><b/>`))
	b := NewTreeBuilder()
	for {
		tk, err := tok.Pull()
		if err != nil {
			t.Fatalf("unexpected tokenizer error: %v", err)
		}
		if tk == nil {
			break
		}
		if err := b.ProcessToken(*tk); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
	}

	first, ok := b.UnshiftChild()
	if !ok {
		t.Fatal("expected a child to drain")
	}
	if first.(*XMLElement).Name != "a" {
		t.Errorf("expected 'a' first, got %q", first.(*XMLElement).Name)
	}

	second, ok := b.UnshiftChild()
	if !ok {
		t.Fatal("expected a second child to drain")
	}
	if second.(*XMLElement).Name != "b" {
		t.Errorf("expected 'b' second, got %q", second.(*XMLElement).Name)
	}

	if _, ok := b.UnshiftChild(); ok {
		t.Fatal("expected no more children yet (stream still open)")
	}
}
