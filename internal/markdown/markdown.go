// Package markdown pulls operation directives out of a markdown-formatted
// assistant reply. Producers sometimes wrap the whole directive block in a
// fenced code block; parsing only the fenced bodies keeps the fence markers
// and surrounding chatter from turning into parse warnings.
package markdown

import (
	"bytes"
	"strings"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/ast"
	"github.com/yuin/goldmark/text"
)

// CodeBlock is one fenced code block from a markdown document.
type CodeBlock struct {
	Lang    string
	Content string
}

// ExtractCodeBlocks walks the markdown AST and returns every fenced code
// block with its language hint.
func ExtractCodeBlocks(source []byte) ([]CodeBlock, error) {
	var blocks []CodeBlock
	parser := goldmark.DefaultParser()
	root := parser.Parse(text.NewReader(source))

	walker := func(node ast.Node, entering bool) (ast.WalkStatus, error) {
		if !entering {
			return ast.WalkContinue, nil
		}

		fenced, ok := node.(*ast.FencedCodeBlock)
		if !ok {
			return ast.WalkContinue, nil
		}

		var block CodeBlock
		if fenced.Info != nil {
			block.Lang = string(fenced.Info.Text(source))
		}

		var content bytes.Buffer
		lines := fenced.Lines()
		for i := 0; i < lines.Len(); i++ {
			line := lines.At(i)
			content.Write(line.Value(source))
		}
		block.Content = content.String()

		blocks = append(blocks, block)
		return ast.WalkSkipChildren, nil
	}

	if err := ast.Walk(root, walker); err != nil {
		return nil, err
	}

	return blocks, nil
}

// UnwrapDirectives returns the directive-bearing portion of content. When
// any fenced code block contains a directive tag, the bodies of those
// blocks are concatenated and returned; otherwise content comes back
// unchanged and is scanned as-is.
func UnwrapDirectives(content string) string {
	if !strings.Contains(content, "```") {
		return content
	}
	blocks, err := ExtractCodeBlocks([]byte(content))
	if err != nil {
		return content
	}

	var parts []string
	for _, b := range blocks {
		if hasDirectiveTag(b.Content) {
			parts = append(parts, b.Content)
		}
	}
	if len(parts) == 0 {
		return content
	}
	return strings.Join(parts, "\n")
}

func hasDirectiveTag(s string) bool {
	for _, tag := range []string{"<file ", "<delete ", "<rename ", "<binary ", "<patch>"} {
		if strings.Contains(s, tag) {
			return true
		}
	}
	return false
}
