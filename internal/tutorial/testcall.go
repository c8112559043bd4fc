package tutorial

import (
	"context"
	"strings"

	sitter "github.com/smacker/go-tree-sitter"
	"github.com/smacker/go-tree-sitter/javascript"
)

// describeQuery captures every describe/it style call together with its title
// string, so block lookup works on nested suites too.
const describeQuery = `
(call_expression
  function: (identifier) @fn
  arguments: (arguments (string) @title)) @call
`

// resolveTestCall finds the named test block in the test source, then the
// first call to callName inside it. TypeScript test files parse well enough
// with the javascript grammar for call-site location.
func (r *Resolver) resolveTestCall(blockTitle, callName string) *Range {
	if len(r.testSrc) == 0 || blockTitle == "" {
		return nil
	}

	parser := sitter.NewParser()
	parser.SetLanguage(javascript.GetLanguage())
	tree, err := parser.ParseCtx(context.Background(), nil, r.testSrc)
	if err != nil {
		return nil
	}

	block := r.findTestBlock(tree.RootNode(), blockTitle)
	if block == nil {
		return nil
	}
	if callName == "" {
		return &Range{
			Start: int(block.StartPoint().Row) + 1,
			End:   int(block.EndPoint().Row) + 1,
		}
	}
	call := firstCallNamed(block, callName, r.testSrc)
	if call == nil {
		return nil
	}
	return &Range{
		Start: int(call.StartPoint().Row) + 1,
		End:   int(call.EndPoint().Row) + 1,
	}
}

// findTestBlock returns the call node of the first describe/it/context block
// whose title matches.
func (r *Resolver) findTestBlock(root *sitter.Node, title string) *sitter.Node {
	query, err := sitter.NewQuery([]byte(describeQuery), javascript.GetLanguage())
	if err != nil {
		return nil
	}
	qc := sitter.NewQueryCursor()
	qc.Exec(query, root)

	for {
		m, ok := qc.NextMatch()
		if !ok {
			break
		}
		var callNode *sitter.Node
		var fnName, blockTitle string
		for _, c := range m.Captures {
			switch query.CaptureNameForId(c.Index) {
			case "call":
				callNode = c.Node
			case "fn":
				fnName = c.Node.Content(r.testSrc)
			case "title":
				blockTitle = unquote(c.Node.Content(r.testSrc))
			}
		}
		switch fnName {
		case "describe", "context", "it", "test":
			if blockTitle == title {
				return callNode
			}
		}
	}
	return nil
}

// firstCallNamed walks the subtree in source order and returns the first call
// expression invoking name, either bare or as the final member of a chain
// (contract.connect(alice).increment(...)).
func firstCallNamed(node *sitter.Node, name string, src []byte) *sitter.Node {
	if node.Type() == "call_expression" {
		fn := node.ChildByFieldName("function")
		if fn != nil && calleeName(fn, src) == name {
			return node
		}
	}
	for i := 0; i < int(node.NamedChildCount()); i++ {
		if found := firstCallNamed(node.NamedChild(i), name, src); found != nil {
			return found
		}
	}
	return nil
}

func calleeName(fn *sitter.Node, src []byte) string {
	switch fn.Type() {
	case "identifier":
		return fn.Content(src)
	case "member_expression":
		if prop := fn.ChildByFieldName("property"); prop != nil {
			return prop.Content(src)
		}
	}
	return ""
}

func unquote(s string) string {
	return strings.Trim(s, "\"'`")
}
