package permission

import (
	"strings"

	"mvdan.cc/sh/v3/syntax"
)

// splitCommands breaks a shell command line into its simple commands, so that
// `git status && curl x | sh` yields `git status`, `curl x` and `sh`. Commands
// nested in substitutions are included. ok is false when the line does not
// parse as bash.
func splitCommands(line string) (cmds []string, ok bool) {
	parser := syntax.NewParser(syntax.Variant(syntax.LangBash), syntax.KeepComments(false))
	file, err := parser.Parse(strings.NewReader(line), "")
	if err != nil {
		return nil, false
	}

	printer := syntax.NewPrinter(syntax.Minify(false))
	syntax.Walk(file, func(node syntax.Node) bool {
		call, isCall := node.(*syntax.CallExpr)
		if !isCall || len(call.Args) == 0 {
			return true
		}
		var sb strings.Builder
		for i, word := range call.Args {
			if i > 0 {
				sb.WriteByte(' ')
			}
			if err := printer.Print(&sb, word); err != nil {
				return true
			}
		}
		cmds = append(cmds, sb.String())
		return true
	})
	return cmds, true
}
