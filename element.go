package xmlstreamer

import (
	"strings"
	"sync"
	"unsafe"

	"github.com/wilkmaciej/xpath"
)

// XMLNode is the interface implemented by all XML node types. The
// "external collaborator" Element type the spec puts out of scope is
// implemented here, adapted from the teacher's element.go: same pooling
// and zero-copy InnerText idiom, now driven by a shared NamespaceSet
// handle instead of a flattened per-element map.
type XMLNode interface {
	Parent() *XMLElement
	InnerText() string
	getSiblingIndex() int
}

// XMLContentNode represents a text node in the XML tree. Content is
// stored as offsets into the parent's rawContent buffer for zero-copy
// access, the same trick the teacher uses — even though tokens arrive as
// fully decoded, independently-allocated strings (entity decoding
// already happened in the tokenizer), appending their bytes into one
// shared per-element buffer keeps the fast InnerText path intact.
type XMLContentNode struct {
	start        int
	end          int
	nodeType     xpath.NodeType
	parent       *XMLElement
	siblingIndex int
}

func (c *XMLContentNode) Parent() *XMLElement {
	return c.parent
}

func (c *XMLContentNode) InnerText() string {
	if c.parent == nil || c.start >= c.end {
		return ""
	}
	return unsafe.String(&c.parent.rawContent[c.start], c.end-c.start)
}

func (c *XMLContentNode) getSiblingIndex() int {
	return c.siblingIndex
}

// XMLAttribute is a decoded attribute as stored on the built tree. Name
// is the composed "prefix:local" (or bare local) form the tree builder
// produces, per spec.md §4.4.
type XMLAttribute struct {
	Name  string
	Value string
}

// XMLElement represents a namespace-resolved XML element with XPath
// query capabilities.
type XMLElement struct {
	Name string

	children     []XMLNode
	parent       *XMLElement
	Attributes   []XMLAttribute
	localName    string
	prefix       string
	namespaceURI string
	nsScope      *NamespaceSet // this element's own declared bindings, parent-chained to its enclosing scope
	siblingIndex int
	rawContent   []byte
}

func (e *XMLElement) Parent() *XMLElement {
	return e.parent
}

func (e *XMLElement) getSiblingIndex() int {
	return e.siblingIndex
}

// LocalName returns the element's local name (without prefix).
func (e *XMLElement) LocalName() string {
	return e.localName
}

// Prefix returns the element's namespace prefix, or "" if unprefixed.
func (e *XMLElement) Prefix() string {
	return e.prefix
}

// NamespaceURI returns the namespace URI resolved for this element at
// construction time.
func (e *XMLElement) NamespaceURI() string {
	return e.namespaceURI
}

// DeclaredNamespaces exposes the xmlns/xmlns:* bindings declared on this
// element's own start tag (not inherited ones). The returned map must
// not be mutated.
func (e *XMLElement) DeclaredNamespaces() map[string]string {
	if e.nsScope == nil {
		return nil
	}
	return e.nsScope.DeclaredNS()
}

// Children returns the element's child nodes in document order. The
// returned slice must not be mutated; use AppendChild / AppendTextNode /
// UnshiftChild to modify the tree.
func (e *XMLElement) Children() []XMLNode {
	return e.children
}

// AppendChild attaches child as the new last child of e.
func (e *XMLElement) AppendChild(child *XMLElement) {
	child.parent = e
	child.siblingIndex = len(e.children)
	e.children = append(e.children, child)
}

// AppendTextNode appends text as a new text-node child of e.
func (e *XMLElement) AppendTextNode(text string) {
	if text == "" {
		return
	}
	node := getContentNodeFromPool()
	node.start = len(e.rawContent)
	e.rawContent = append(e.rawContent, text...)
	node.end = len(e.rawContent)
	node.nodeType = xpath.TextNode
	node.parent = e
	node.siblingIndex = len(e.children)
	e.children = append(e.children, node)
}

// removeChildAt detaches the child at idx, shifting the remaining
// children down and renumbering their sibling indices in place.
func (e *XMLElement) removeChildAt(idx int) XMLNode {
	if idx < 0 || idx >= len(e.children) {
		return nil
	}
	child := e.children[idx]
	copy(e.children[idx:], e.children[idx+1:])
	e.children = e.children[:len(e.children)-1]
	for i := idx; i < len(e.children); i++ {
		switch n := e.children[i].(type) {
		case *XMLElement:
			n.siblingIndex = i
		case *XMLContentNode:
			n.siblingIndex = i
		}
	}
	return child
}

// UnshiftChild detaches and returns e's first child. This is the
// primitive a long-lived stream drains through: consuming completed
// sub-trees without holding the whole, effectively unbounded document in
// memory.
func (e *XMLElement) UnshiftChild() (XMLNode, bool) {
	child := e.removeChildAt(0)
	if child == nil {
		return nil, false
	}
	return child, true
}

// detachFromParent removes e from its parent's children, locating it in
// O(1) via its tracked sibling index (the removal itself shifts and
// renumbers the later siblings), and clears e's own parent link.
func (e *XMLElement) detachFromParent() {
	if e.parent == nil {
		return
	}
	e.parent.removeChildAt(e.siblingIndex)
	e.parent = nil
	e.siblingIndex = 0
}

// InnerText returns the concatenated text content of this element and
// all descendants.
func (e *XMLElement) InnerText() string {
	if len(e.children) == 0 {
		return ""
	}

	hasElementChild := false
	textLen := 0
	for _, child := range e.children {
		switch c := child.(type) {
		case *XMLElement:
			hasElementChild = true
		case *XMLContentNode:
			textLen += c.end - c.start
		}
	}
	// rawContent keeps the bytes of text nodes detached by UnshiftChild, so
	// the zero-copy path is taken only while every byte still belongs to an
	// attached text node.
	if !hasElementChild && textLen == len(e.rawContent) {
		return unsafe.String(unsafe.SliceData(e.rawContent), len(e.rawContent))
	}

	var sb strings.Builder
	e.collectText(&sb)
	return sb.String()
}

func (e *XMLElement) collectText(sb *strings.Builder) {
	for _, child := range e.children {
		switch node := child.(type) {
		case *XMLContentNode:
			if node.nodeType == xpath.TextNode && node.parent != nil && node.start < node.end {
				sb.Write(node.parent.rawContent[node.start:node.end])
			}
		case *XMLElement:
			node.collectText(sb)
		}
	}
}

// Evaluate evaluates an XPath expression over the tree rooted at e.
func (e *XMLElement) Evaluate(exp *xpath.Expr) any {
	nav := &elementNavigator{currNode: e, currElement: e, root: e, attributeIndex: -1}
	result := exp.Evaluate(nav)

	if iter, ok := result.(*xpath.NodeIterator); ok {
		elements := make([]any, 0, 1)
		for iter.MoveNext() {
			if nav, ok := iter.Current().(*elementNavigator); ok {
				if nav.attributeIndex != -1 {
					elements = append(elements, &nav.currElement.Attributes[nav.attributeIndex])
				} else {
					elements = append(elements, nav.currNode)
				}
			}
		}
		return elements
	}

	return result
}

// Release returns this element and all its children to the pool for
// reuse. After calling Release, the element and its children must not
// be used again.
func (e *XMLElement) Release() {
	returnElementToPool(e)
}

var xmlElementPool = sync.Pool{
	New: func() any {
		return &XMLElement{
			children:   make([]XMLNode, 0, 4),
			rawContent: make([]byte, 0, 128),
		}
	},
}

var xmlContentNodePool = sync.Pool{
	New: func() any {
		return &XMLContentNode{}
	},
}

func getContentNodeFromPool() *XMLContentNode {
	return xmlContentNodePool.Get().(*XMLContentNode)
}

func returnContentNodeToPool(node *XMLContentNode) {
	xmlContentNodePool.Put(node)
}

// returnElementToPool returns elem and every descendant element to the
// pool, iteratively to avoid recursion overhead on deep trees.
func returnElementToPool(elem *XMLElement) {
	stack := make([]*XMLElement, 0, 16)
	stack = append(stack, elem)

	for len(stack) > 0 {
		current := stack[len(stack)-1]
		stack = stack[:len(stack)-1]

		for _, child := range current.children {
			switch c := child.(type) {
			case *XMLElement:
				stack = append(stack, c)
			case *XMLContentNode:
				returnContentNodeToPool(c)
			}
		}

		current.children = current.children[:0]
		current.parent = nil
		current.Attributes = current.Attributes[:0]
		current.nsScope = nil
		current.siblingIndex = 0
		current.rawContent = current.rawContent[:0]
		xmlElementPool.Put(current)
	}
}

func getElementFromPool() *XMLElement {
	return xmlElementPool.Get().(*XMLElement)
}
