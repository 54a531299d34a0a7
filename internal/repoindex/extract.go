package repoindex

import (
	"context"

	sitter "github.com/smacker/go-tree-sitter"
	"github.com/smacker/go-tree-sitter/golang"
	"github.com/smacker/go-tree-sitter/javascript"
	"github.com/smacker/go-tree-sitter/python"
	"github.com/smacker/go-tree-sitter/typescript/typescript"

	"github.com/devpost-labs/devpost-upgrade/internal/model"
)

func languageFor(lang string) *sitter.Language {
	switch lang {
	case "go":
		return golang.GetLanguage()
	case "javascript":
		return javascript.GetLanguage()
	case "typescript":
		return typescript.GetLanguage()
	case "python":
		return python.GetLanguage()
	default:
		return nil
	}
}

// extractFile parses source with the grammar for lang and returns its
// imports and function signatures, nested declarations included. A parse failure for one
// file is the caller's concern to log and skip — extractFile itself
// just reports the error.
func extractFile(ctx context.Context, source []byte, lang string) ([]model.ImportDecl, []model.FunctionSig, error) {
	sitterLang := languageFor(lang)
	if sitterLang == nil {
		return nil, nil, nil
	}

	parser := sitter.NewParser()
	defer parser.Close()
	parser.SetLanguage(sitterLang)

	tree, err := parser.ParseCtx(ctx, nil, source)
	if err != nil {
		return nil, nil, err
	}
	defer tree.Close()

	root := tree.RootNode()

	var imports []model.ImportDecl
	var functions []model.FunctionSig

	switch lang {
	case "go":
		imports = extractGoImports(root, source)
		functions = extractGoFunctions(root, source)
	case "javascript", "typescript":
		imports = extractJSImports(root, source)
		functions = extractJSFunctions(root, source)
	case "python":
		imports = extractPythonImports(root, source)
		functions = extractPythonFunctions(root, source)
	}

	return imports, functions, nil
}

func nodeText(node *sitter.Node, source []byte) string {
	if node == nil {
		return ""
	}
	return string(source[node.StartByte():node.EndByte()])
}

// walk visits every node in the tree, calling visit on each.
func walk(node *sitter.Node, visit func(*sitter.Node)) {
	if node == nil {
		return
	}
	visit(node)
	for i := 0; i < int(node.ChildCount()); i++ {
		walk(node.Child(i), visit)
	}
}

// --- Go ---

func extractGoImports(root *sitter.Node, source []byte) []model.ImportDecl {
	var decls []model.ImportDecl
	walk(root, func(n *sitter.Node) {
		if n.Type() != "import_spec" {
			return
		}
		pathNode := n.ChildByFieldName("path")
		if pathNode == nil {
			return
		}
		importPath := trimQuotes(nodeText(pathNode, source))

		var name string
		if nameNode := n.ChildByFieldName("name"); nameNode != nil {
			name = nodeText(nameNode, source)
		}
		decls = append(decls, model.ImportDecl{From: importPath, Names: nonEmpty(name)})
	})
	return decls
}

func extractGoFunctions(root *sitter.Node, source []byte) []model.FunctionSig {
	var sigs []model.FunctionSig
	walk(root, func(n *sitter.Node) {
		switch n.Type() {
		case "function_declaration":
			sigs = append(sigs, buildGoFuncSig(n, source, ""))
		case "method_declaration":
			receiverName := ""
			if recv := n.ChildByFieldName("receiver"); recv != nil {
				receiverName = extractGoReceiverTypeName(recv, source)
			}
			sigs = append(sigs, buildGoFuncSig(n, source, receiverName))
		}
	})
	return sigs
}

func extractGoReceiverTypeName(recv *sitter.Node, source []byte) string {
	// recv is a parameter_list containing one parameter_declaration
	// whose type may be a pointer_type wrapping a type_identifier.
	text := nodeText(recv, source)
	return trimGoReceiver(text)
}

func trimGoReceiver(text string) string {
	text = trimAny(text, "(", ")")
	fields := splitFields(text)
	if len(fields) == 0 {
		return ""
	}
	last := fields[len(fields)-1]
	return trimAny(last, "*", "")
}

func buildGoFuncSig(n *sitter.Node, source []byte, receiver string) model.FunctionSig {
	nameNode := n.ChildByFieldName("name")
	name := nodeText(nameNode, source)
	if receiver != "" {
		name = receiver + "." + name
	}

	paramsNode := n.ChildByFieldName("parameters")
	params := nodeText(paramsNode, source)

	_, hasType := hasReturnType(n)

	return model.FunctionSig{
		Name:      name,
		StartLine: int(n.StartPoint().Row) + 1,
		EndLine:   int(n.EndPoint().Row) + 1,
		Params:    params,
		HasType:   hasType,
	}
}

func hasReturnType(n *sitter.Node) (string, bool) {
	result := n.ChildByFieldName("result")
	return nodeTypeOrEmpty(result), result != nil
}

func nodeTypeOrEmpty(n *sitter.Node) string {
	if n == nil {
		return ""
	}
	return n.Type()
}

// --- JavaScript / TypeScript ---

func extractJSImports(root *sitter.Node, source []byte) []model.ImportDecl {
	var decls []model.ImportDecl
	walk(root, func(n *sitter.Node) {
		if n.Type() != "import_statement" {
			return
		}
		var sourcePath string
		var names []string

		for i := 0; i < int(n.ChildCount()); i++ {
			child := n.Child(i)
			switch child.Type() {
			case "string":
				sourcePath = trimQuotes(nodeText(child, source))
			case "import_clause":
				names = collectJSImportNames(child, source)
			}
		}

		if sourcePath != "" {
			decls = append(decls, model.ImportDecl{From: sourcePath, Names: names})
		}
	})
	return decls
}

func collectJSImportNames(clause *sitter.Node, source []byte) []string {
	var names []string
	walk(clause, func(n *sitter.Node) {
		switch n.Type() {
		case "identifier":
			names = append(names, nodeText(n, source))
		}
	})
	return names
}

func extractJSFunctions(root *sitter.Node, source []byte) []model.FunctionSig {
	var sigs []model.FunctionSig

	walk(root, func(n *sitter.Node) {
		switch n.Type() {
		case "function_declaration":
			nameNode := n.ChildByFieldName("name")
			sigs = append(sigs, buildJSFuncSig(nodeText(nameNode, source), n, source))
		case "method_definition":
			nameNode := n.ChildByFieldName("name")
			className := enclosingClassName(n, source)
			name := nodeText(nameNode, source)
			if className != "" {
				name = className + "." + name
			}
			sigs = append(sigs, buildJSFuncSig(name, n, source))
		case "variable_declarator":
			// Arrow-function-bound identifier: const f = (x) => ...
			valueNode := n.ChildByFieldName("value")
			if valueNode == nil {
				return
			}
			if valueNode.Type() != "arrow_function" {
				return
			}
			nameNode := n.ChildByFieldName("name")
			sigs = append(sigs, buildJSFuncSig(nodeText(nameNode, source), valueNode, source))
		}
	})

	return sigs
}

func enclosingClassName(n *sitter.Node, source []byte) string {
	for p := n.Parent(); p != nil; p = p.Parent() {
		if p.Type() == "class_declaration" || p.Type() == "class" {
			nameNode := p.ChildByFieldName("name")
			return nodeText(nameNode, source)
		}
	}
	return ""
}

func buildJSFuncSig(name string, n *sitter.Node, source []byte) model.FunctionSig {
	paramsNode := n.ChildByFieldName("parameters")
	params := nodeText(paramsNode, source)
	returnType := n.ChildByFieldName("return_type")

	return model.FunctionSig{
		Name:      name,
		StartLine: int(n.StartPoint().Row) + 1,
		EndLine:   int(n.EndPoint().Row) + 1,
		Params:    params,
		HasType:   returnType != nil,
	}
}

// --- Python ---

func extractPythonImports(root *sitter.Node, source []byte) []model.ImportDecl {
	var decls []model.ImportDecl
	walk(root, func(n *sitter.Node) {
		switch n.Type() {
		case "import_statement":
			walk(n, func(c *sitter.Node) {
				if c.Type() == "dotted_name" {
					decls = append(decls, model.ImportDecl{From: nodeText(c, source)})
				}
			})
		case "import_from_statement":
			moduleNode := n.ChildByFieldName("module_name")
			module := nodeText(moduleNode, source)
			var names []string
			walk(n, func(c *sitter.Node) {
				if c.Type() == "identifier" && c != moduleNode {
					names = append(names, nodeText(c, source))
				}
			})
			decls = append(decls, model.ImportDecl{From: module, Names: names})
		}
	})
	return decls
}

func extractPythonFunctions(root *sitter.Node, source []byte) []model.FunctionSig {
	var sigs []model.FunctionSig
	walk(root, func(n *sitter.Node) {
		if n.Type() != "function_definition" {
			return
		}
		nameNode := n.ChildByFieldName("name")
		name := nodeText(nameNode, source)
		if className := enclosingPythonClassName(n, source); className != "" {
			name = className + "." + name
		}

		paramsNode := n.ChildByFieldName("parameters")
		returnType := n.ChildByFieldName("return_type")

		sigs = append(sigs, model.FunctionSig{
			Name:      name,
			StartLine: int(n.StartPoint().Row) + 1,
			EndLine:   int(n.EndPoint().Row) + 1,
			Params:    nodeText(paramsNode, source),
			HasType:   returnType != nil,
		})
	})
	return sigs
}

func enclosingPythonClassName(n *sitter.Node, source []byte) string {
	for p := n.Parent(); p != nil; p = p.Parent() {
		if p.Type() == "class_definition" {
			nameNode := p.ChildByFieldName("name")
			return nodeText(nameNode, source)
		}
	}
	return ""
}

// --- shared helpers ---

func trimQuotes(s string) string {
	return trimAny(s, `"'`, `"'`)
}

func trimAny(s, leftCutset, rightCutset string) string {
	for len(s) > 0 && containsByte(leftCutset, s[0]) {
		s = s[1:]
	}
	for len(s) > 0 && containsByte(rightCutset, s[len(s)-1]) {
		s = s[:len(s)-1]
	}
	return s
}

func containsByte(set string, b byte) bool {
	for i := 0; i < len(set); i++ {
		if set[i] == b {
			return true
		}
	}
	return false
}

func splitFields(s string) []string {
	var fields []string
	var current []byte
	for i := 0; i < len(s); i++ {
		c := s[i]
		if c == ' ' || c == '\t' {
			if len(current) > 0 {
				fields = append(fields, string(current))
				current = current[:0]
			}
			continue
		}
		current = append(current, c)
	}
	if len(current) > 0 {
		fields = append(fields, string(current))
	}
	return fields
}

func nonEmpty(s string) []string {
	if s == "" {
		return nil
	}
	return []string{s}
}
