package bemxjst

import "fmt"

// treeModes are copied onto BEMTREE output nodes when a template matches.
var treeModes = []string{"tag", "attrs", "cls", "mix", "js", "bem"}

// expandTree applies BEMTREE templates, returning a new BEMJSON tree. The
// input is never mutated.
func expandTree(prog *Program, node any, parentBlock string, depth int) (any, error) {
	if depth > maxDepth {
		return nil, fmt.Errorf("bemxjst: render depth exceeds %d", maxDepth)
	}
	switch value := node.(type) {
	case []any:
		out := make([]any, 0, len(value))
		for _, child := range value {
			expanded, err := expandTree(prog, child, parentBlock, depth+1)
			if err != nil {
				return nil, err
			}
			out = append(out, expanded)
		}
		return out, nil
	case map[string]any:
		return expandObject(prog, value, parentBlock, depth)
	default:
		return node, nil
	}
}

func expandObject(prog *Program, node map[string]any, parentBlock string, depth int) (any, error) {
	ctx := resolveNode(prog, node, parentBlock)

	out := make(map[string]any, len(node)+2)
	for k, v := range node {
		out[k] = v
	}
	if len(ctx.ent.mods) > 0 {
		out["mods"] = ctx.ent.mods
	}
	if len(ctx.ent.elemMods) > 0 {
		out["elemMods"] = ctx.ent.elemMods
	}
	for _, mode := range treeModes {
		if v, ok := prog.lookup(mode, ctx.ent); ok {
			out[mode] = v
		}
	}
	if attrs := ctx.attrs(); len(attrs) > 0 {
		out["attrs"] = attrs
	}

	content, err := ctx.content()
	if err != nil {
		return nil, err
	}
	if content == nil {
		delete(out, "content")
		return out, nil
	}

	childBlock := parentBlock
	if ctx.ent.block != "" {
		childBlock = ctx.ent.block
	}
	expanded, err := expandTree(prog, content, childBlock, depth+1)
	if err != nil {
		return nil, err
	}
	out["content"] = expanded
	return out, nil
}
