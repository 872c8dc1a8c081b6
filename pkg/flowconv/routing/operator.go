package routing

import (
	"fmt"
	"strings"
)

// Operator is the text test a decision gate applies to the agent's output.
type Operator string

// Gate operators.
const (
	OperatorEquals   Operator = "equals"
	OperatorContains Operator = "contains"
)

// ParseOperator validates an operator name. Empty selects OperatorContains.
func ParseOperator(s string) (Operator, error) {
	switch Operator(s) {
	case "":
		return OperatorContains, nil
	case OperatorEquals, OperatorContains:
		return Operator(s), nil
	default:
		return "", fmt.Errorf("unknown gate operator: %s", s)
	}
}

// answerTrim is the punctuation a model commonly wraps a bare answer in.
const answerTrim = ".!?,;:\"'`()[]*"

// Match applies the operator to text. Equals compares the answer with
// surrounding whitespace and punctuation removed, so "3.", " 3" and "3\n"
// all select gate 3 while "13" does not.
func (o Operator) Match(text, match string, caseSensitive bool) bool {
	if !caseSensitive {
		text, match = strings.ToLower(text), strings.ToLower(match)
	}
	switch o {
	case OperatorEquals:
		return bareAnswer(text) == bareAnswer(match)
	case OperatorContains:
		return strings.Contains(text, match)
	default:
		return false
	}
}

func bareAnswer(s string) string {
	for {
		t := strings.Trim(strings.TrimSpace(s), answerTrim)
		if t == s {
			return t
		}
		s = t
	}
}
