// Package prompt synthesizes the instruction text placed into generated
// model nodes.
//
// Consolidate renders a whole workflow as one state-machine prompt. Augment
// rewrites a single node's prompt for its own model node. Decision renders
// the numbered-choice prompt of a routing agent. The two conversion modes
// never mix Consolidate with Augment.
//
// Fixed text is written as ${name} templates and rendered with the
// placeholder package, so user text containing "$" passes through intact.
package prompt

import (
	"fmt"
	"strings"

	"github.com/randalmurphal/vapiflow/pkg/flowconv/placeholder"
	"github.com/randalmurphal/vapiflow/pkg/flowconv/source"
)

const consolidatedHeader = `You are a unified voice AI assistant. Your goal is to handle the entire conversation flow defined below.
You must strictly follow the state transitions and instructions for each node.
Maintain the persona and tone defined in the start node throughout the conversation.

--- GLOBAL INSTRUCTIONS ---
1. **State Management**: You are always in exactly one named node of the conversation.
2. **Transitions**: After each user response, check the transitions of your current node. Move to another node only when one of its conditions is satisfied.
3. **Responses**: Speak only according to the instruction of your current node.
4. **Variable Extraction**: If the current node extracts variables, output them as JSON at the end of your response.

--- CONVERSATION FLOW ---`

const consolidatedFooter = `
--- RESPONSE FORMAT ---
For every turn, your output must be:
1. Your conversational response (text).
2. (If applicable) A JSON block with extracted variables.
3. (Internal Thought) [State: <Current_Node> -> <Next_Node>]`

const firstMessageTemplate = `When starting the conversation, first say: "${text}".

Then continue with: ${prompt}`

const extractionTemplate = `

IMPORTANT: After your response, you MUST extract the following information and output it as JSON:
${schema}

Variables to extract: ${names}
Format: First provide your conversational response, then on a new line output ONLY the JSON object with extracted values.`

const decisionTemplate = `You are a routing agent for a conversation workflow. Based on the user's message and the conversation context, decide which condition best matches the user's intent.

CONDITIONS:
${conditions}

INSTRUCTIONS:
- Choose the condition number (1 to ${count}) that BEST matches the user's intent.
- If several conditions apply, choose the most specific one.
- Respond with ONLY the number. No quotes, no punctuation, no explanation, and do not repeat the condition text.

Your response (just the number):`

// AlwaysLabel describes a transition without a condition prompt.
const AlwaysLabel = "Default/Always"

// Consolidate renders the whole workflow as one instruction document.
// Nodes appear in declaration order. A node's first message is rendered only
// when the node is the declared start.
func Consolidate(g *source.Graph) string {
	var b strings.Builder
	b.WriteString(consolidatedHeader)

	for _, n := range g.Nodes {
		fmt.Fprintf(&b, "\n\n## NODE: %s", n.Name)
		if n.IsStart && n.FirstMessage != "" {
			fmt.Fprintf(&b, "\n**STARTING MESSAGE**: %q", n.FirstMessage)
		}
		if n.Prompt != "" {
			fmt.Fprintf(&b, "\n**INSTRUCTION**: %s", n.Prompt)
		}
		if len(n.Variables) > 0 {
			b.WriteString("\n**VARIABLES TO EXTRACT**:")
			for _, v := range n.Variables {
				fmt.Fprintf(&b, "\n- %s: %s", v.Title, v.Description)
				if len(v.Enum) > 0 {
					fmt.Fprintf(&b, " (Options: %s)", strings.Join(v.Enum, ", "))
				}
			}
		}

		out := g.Outgoing(n.Name)
		if len(out) == 0 {
			b.WriteString("\n**TRANSITIONS**: End of conversation (hang up or wait).")
			continue
		}
		b.WriteString("\n**TRANSITIONS**:")
		for _, e := range out {
			fmt.Fprintf(&b, "\n- IF %s -> GOTO Node: %s", conditionText(e.Condition), e.To)
		}
	}

	b.WriteString("\n")
	b.WriteString(consolidatedFooter)
	return b.String()
}

// Augment returns the prompt for n's own model node: the first-message
// directive when n has a first message, then the raw prompt, then the
// variable extraction block when n extracts variables.
func Augment(n *source.Node) string {
	text := n.Prompt
	if n.FirstMessage != "" {
		text = placeholder.Expand(firstMessageTemplate, map[string]any{
			"text":   n.FirstMessage,
			"prompt": n.Prompt,
		})
	}
	if len(n.Variables) == 0 {
		return text
	}

	names := make([]string, len(n.Variables))
	for i, v := range n.Variables {
		names[i] = v.Title
	}
	return text + placeholder.Expand(extractionTemplate, map[string]any{
		"schema": Schema(n.Variables),
		"names":  strings.Join(names, ", "),
	})
}

// Schema renders the JSON object template for a variable extraction plan.
// Enumerated variables show their first option and list all options;
// the others show a <type> placeholder and their description.
func Schema(vars []source.Variable) string {
	var b strings.Builder
	b.WriteString("{\n")
	for _, v := range vars {
		if len(v.Enum) > 0 {
			fmt.Fprintf(&b, "  %q: %q // Options: %s\n", v.Title, v.Enum[0], strings.Join(v.Enum, ", "))
			continue
		}
		typ := v.Type
		if typ == "" {
			typ = "string"
		}
		fmt.Fprintf(&b, "  %q: \"<%s>\" // %s\n", v.Title, typ, v.Description)
	}
	b.WriteString("}")
	return b.String()
}

// Decision renders the routing agent prompt for the given conditions.
// Condition i (0-based) is listed as number i+1; empty conditions are
// labelled "Condition <n>".
func Decision(conditions []string) string {
	lines := make([]string, len(conditions))
	for i, c := range conditions {
		if c == "" {
			c = fmt.Sprintf("Condition %d", i+1)
		}
		lines[i] = fmt.Sprintf("%d. %s", i+1, c)
	}
	return placeholder.Expand(decisionTemplate, map[string]any{
		"conditions": strings.Join(lines, "\n"),
		"count":      len(conditions),
	})
}

// Conditions extracts the condition prompts of edges in order.
func Conditions(edges []source.Edge) []string {
	out := make([]string, len(edges))
	for i, e := range edges {
		if e.Condition != nil {
			out[i] = e.Condition.Prompt
		}
	}
	return out
}

func conditionText(c *source.Condition) string {
	if c == nil || c.Prompt == "" {
		return AlwaysLabel
	}
	return c.Prompt
}
