package analyzer

import (
	"strings"

	"github.com/PuerkitoBio/goquery"
	"golang.org/x/net/html"

	"github.com/planwright/planwright/internal/htmlx"
)

// Tree is an arena of structural nodes addressed by index. Children
// are stored as index lists, so the tree carries no cyclic references
// and serializes directly into diagnostics.
type Tree struct {
	Nodes []TreeNode `json:"nodes"`
	Root  int        `json:"root"`
}

// TreeNode is one element in the structural tree. Path is a
// human-readable breadcrumb built from the root down; it is a
// selector/diagnostic string, never a live DOM reference.
type TreeNode struct {
	Tag      string            `json:"tag"`
	Class    string            `json:"class,omitempty"`
	ID       string            `json:"id,omitempty"`
	Attrs    map[string]string `json:"attrs,omitempty"`
	Text     string            `json:"text,omitempty"`
	Children []int             `json:"children,omitempty"`
	Parent   int               `json:"parent"`
	Depth    int               `json:"depth"`
	Path     string            `json:"path"`
}

// keptAttrs are the only attributes carried into the structural tree.
var keptAttrs = []string{"href", "src", "rel", "role", "datetime", "type"}

const (
	maxTreeDepth    = 12
	maxNodeText     = 120
	maxTreeChildren = 40
)

// BuildTree converts a parsed document into an arena-indexed
// structural tree rooted at <body>.
func BuildTree(doc *goquery.Document) *Tree {
	tree := &Tree{Root: -1}

	body := doc.Find("body").First()
	if body.Length() == 0 {
		return tree
	}

	tree.Root = tree.addNode(body.Nodes[0], -1, 0, "")
	return tree
}

func (t *Tree) addNode(n *html.Node, parent, depth int, parentPath string) int {
	node := TreeNode{
		Tag:    n.Data,
		Parent: parent,
		Depth:  depth,
	}

	for _, attr := range n.Attr {
		switch attr.Key {
		case "class":
			node.Class = attr.Val
		case "id":
			node.ID = attr.Val
		default:
			for _, kept := range keptAttrs {
				if attr.Key == kept {
					if node.Attrs == nil {
						node.Attrs = map[string]string{}
					}
					node.Attrs[attr.Key] = attr.Val
				}
			}
		}
	}

	node.Path = joinPath(parentPath, breadcrumb(node))
	node.Text = htmlx.Truncate(directText(n), maxNodeText)

	idx := len(t.Nodes)
	t.Nodes = append(t.Nodes, node)

	if depth >= maxTreeDepth {
		return idx
	}

	count := 0
	for child := n.FirstChild; child != nil; child = child.NextSibling {
		if child.Type != html.ElementNode || skipTag(child.Data) {
			continue
		}
		if count >= maxTreeChildren {
			break
		}
		childIdx := t.addNode(child, idx, depth+1, t.Nodes[idx].Path)
		t.Nodes[idx].Children = append(t.Nodes[idx].Children, childIdx)
		count++
	}

	return idx
}

// breadcrumb renders one node as tag.firstClass#id.
func breadcrumb(n TreeNode) string {
	var b strings.Builder
	b.WriteString(n.Tag)
	if n.Class != "" {
		if first := strings.Fields(n.Class); len(first) > 0 {
			b.WriteString("." + first[0])
		}
	}
	if n.ID != "" {
		b.WriteString("#" + n.ID)
	}
	return b.String()
}

func joinPath(parent, crumb string) string {
	if parent == "" {
		return crumb
	}
	return parent + " > " + crumb
}

// directText collects text from the node's immediate text children.
func directText(n *html.Node) string {
	var b strings.Builder
	for child := n.FirstChild; child != nil; child = child.NextSibling {
		if child.Type == html.TextNode {
			b.WriteString(child.Data)
		}
	}
	return htmlx.NormalizeWhitespace(b.String())
}

func skipTag(tag string) bool {
	switch tag {
	case "script", "style", "noscript", "template", "svg":
		return true
	}
	return false
}

// Walk visits every node depth-first starting at the root.
func (t *Tree) Walk(visit func(idx int, n TreeNode)) {
	if t.Root < 0 {
		return
	}
	var rec func(idx int)
	rec = func(idx int) {
		visit(idx, t.Nodes[idx])
		for _, child := range t.Nodes[idx].Children {
			rec(child)
		}
	}
	rec(t.Root)
}

// Outline returns the breadcrumb paths of likely repeated-item
// containers: nodes holding at least three element children, in
// depth-first order, capped at max.
func (t *Tree) Outline(max int) []string {
	var paths []string
	t.Walk(func(_ int, n TreeNode) {
		if len(paths) >= max || len(n.Children) < 3 {
			return
		}
		paths = append(paths, n.Path)
	})
	return paths
}

// Selector returns a usable CSS selector for the node: #id when
// present, else tag.firstClass, else the bare tag.
func (n TreeNode) Selector() string {
	if n.ID != "" {
		return "#" + n.ID
	}
	if n.Class != "" {
		if fields := strings.Fields(n.Class); len(fields) > 0 {
			return n.Tag + "." + fields[0]
		}
	}
	return n.Tag
}
