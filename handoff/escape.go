package handoff

import "strings"

// inlineReplacer neutralizes the sequences that can terminate or corrupt an
// inline script block. "</script" is the script-closing hazard, "<!--"
// opens an HTML comment inside classic scripts, and U+2028/U+2029 are valid
// JSON but illegal inside pre-ES2019 string literals. JSON only produces
// these inside string values, where the \u escapes decode to the same text.
var inlineReplacer = strings.NewReplacer(
	"</", `</`,
	"<!--", `<!--`,
	" ", ` `,
	" ", ` `,
)

// EscapeInlineJSON makes marshaled JSON safe to embed inside an inline
// <script> element. The result parses to the same value.
func EscapeInlineJSON(raw []byte) string {
	return inlineReplacer.Replace(string(raw))
}
