// Package condition performs a light syntax check of policy condition
// expressions before they are persisted. The authoritative evaluation
// happens in the backend engine; this check only catches expressions
// that can never parse there.
package condition

import (
	"errors"
	"strings"
)

var (
	ErrEmptyCondition    = errors.New("empty condition expression")
	ErrUnbalancedQuotes  = errors.New("unbalanced quotes in condition")
	ErrUnbalancedParens  = errors.New("unbalanced parentheses in condition")
	ErrDanglingConnector = errors.New("condition ends with a logical connector")
)

// Validate checks an expression like `facts.arch = "x86_64" and
// facts.cores > 2` for structural problems.
//
// Returns an error if:
// - The expression is empty or blank
// - Quotes or parentheses are unbalanced
// - The expression trails off after "and"/"or"/"not"
func Validate(expression string) error {
	trimmed := strings.TrimSpace(expression)
	if trimmed == "" {
		return ErrEmptyCondition
	}

	depth := 0
	inQuote := false
	var quote byte
	for i := 0; i < len(trimmed); i++ {
		c := trimmed[i]
		if inQuote {
			if c == quote {
				inQuote = false
			}
			continue
		}
		switch c {
		case '"', '\'':
			inQuote = true
			quote = c
		case '(':
			depth++
		case ')':
			depth--
			if depth < 0 {
				return ErrUnbalancedParens
			}
		}
	}
	if inQuote {
		return ErrUnbalancedQuotes
	}
	if depth != 0 {
		return ErrUnbalancedParens
	}

	fields := strings.Fields(strings.ToLower(trimmed))
	last := fields[len(fields)-1]
	switch last {
	case "and", "or", "not":
		return ErrDanglingConnector
	}

	return nil
}
