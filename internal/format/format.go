// Package format evaluates the tmux-style `#{...}` template language used by
// status-line segments (spec §4.10, §8 property 10). It is a pure-function
// package: the actual status-line renderer is an external collaborator
// (spec §1) and is not part of this repository, but the evaluator itself is
// tested directly by the testable properties, so it's implemented here in
// full.
//
// Ported 1:1 from the original Rust daemon's src/ui/format.rs.
package format

import "strings"

// Eval expands a template string against a variable set. It supports plain
// `#{name}` substitution (empty string when name is absent) and
// `#{?cond,true_val,false_val}` conditionals, where an absent or
// empty-string variable is falsy. Conditionals with fewer than three
// comma-separated parts (respecting nested `{...}`) evaluate to empty.
func Eval(template string, vars map[string]string) string {
	var out strings.Builder
	out.Grow(len(template))

	runes := []rune(template)
	i := 0
	for i < len(runes) {
		if runes[i] == '#' && i+1 < len(runes) && runes[i+1] == '{' {
			i += 2
			token, consumed := readUntilMatchingBrace(runes[i:])
			i += consumed
			out.WriteString(expandToken(token, vars))
			continue
		}
		out.WriteRune(runes[i])
		i++
	}
	return out.String()
}

// readUntilMatchingBrace reads runes until the brace that matches the
// opening '{' already consumed by the caller, tracking nesting depth so an
// inner `#{...}` doesn't terminate the outer token early. It returns the
// token text and how many runes were consumed (including the trailing '}'
// if one was found; if the input runs out first, everything is consumed).
func readUntilMatchingBrace(runes []rune) (string, int) {
	var buf strings.Builder
	depth := 1
	for i, ch := range runes {
		switch ch {
		case '{':
			depth++
			buf.WriteRune(ch)
		case '}':
			depth--
			if depth == 0 {
				return buf.String(), i + 1
			}
			buf.WriteRune(ch)
		default:
			buf.WriteRune(ch)
		}
	}
	return buf.String(), len(runes)
}

func expandToken(token string, vars map[string]string) string {
	if rest, ok := strings.CutPrefix(token, "?"); ok {
		parts := splitConditional(rest)
		if len(parts) < 3 {
			return ""
		}
		condition, trueVal, falseVal := parts[0], parts[1], parts[2]
		truthy := vars[condition] != ""
		if truthy {
			return Eval(trueVal, vars)
		}
		return Eval(falseVal, vars)
	}
	return vars[token]
}

// splitConditional splits s on top-level commas, i.e. commas not nested
// inside a `{...}` block.
func splitConditional(s string) []string {
	var parts []string
	depth := 0
	start := 0
	runes := []rune(s)
	for i, ch := range runes {
		switch ch {
		case '{':
			depth++
		case '}':
			if depth > 0 {
				depth--
			}
		case ',':
			if depth == 0 {
				parts = append(parts, string(runes[start:i]))
				start = i + 1
			}
		}
	}
	parts = append(parts, string(runes[start:]))
	return parts
}
