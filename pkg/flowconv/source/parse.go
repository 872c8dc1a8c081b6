package source

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
)

// DefaultName names workflows that carry no name.
const DefaultName = "Converted Workflow"

// ParseError reports an unreadable workflow document.
type ParseError struct {
	Path string
	Err  error
}

func (e *ParseError) Error() string {
	if e.Path != "" {
		return fmt.Sprintf("parse workflow %s: %v", e.Path, e.Err)
	}
	return fmt.Sprintf("parse workflow: %v", e.Err)
}

func (e *ParseError) Unwrap() error { return e.Err }

type workflowDoc struct {
	Name  string    `json:"name"`
	Nodes []nodeDoc `json:"nodes"`
	Edges []edgeDoc `json:"edges"`
}

// envelopeDoc accepts both {"workflow": {...}} and a bare workflow object.
type envelopeDoc struct {
	Workflow *workflowDoc `json:"workflow"`
	workflowDoc
}

type nodeDoc struct {
	Name        string `json:"name"`
	Type        string `json:"type"`
	Prompt      string `json:"prompt"`
	IsStart     bool   `json:"isStart"`
	MessagePlan *struct {
		FirstMessage string `json:"firstMessage"`
	} `json:"messagePlan"`
	VariableExtractionPlan *struct {
		Output []variableDoc `json:"output"`
	} `json:"variableExtractionPlan"`
	Metadata *struct {
		Position *struct {
			X float64 `json:"x"`
			Y float64 `json:"y"`
		} `json:"position"`
	} `json:"metadata"`
	Tool *struct {
		Type string `json:"type"`
	} `json:"tool"`
}

type variableDoc struct {
	Title       string   `json:"title"`
	Description string   `json:"description"`
	Type        string   `json:"type"`
	Enum        []string `json:"enum"`
}

type edgeDoc struct {
	From      string `json:"from"`
	To        string `json:"to"`
	Condition *struct {
		Type   string `json:"type"`
		Prompt string `json:"prompt"`
	} `json:"condition"`
}

// Parse decodes a workflow document.
func Parse(r io.Reader) (*Graph, error) {
	var env envelopeDoc
	if err := json.NewDecoder(r).Decode(&env); err != nil {
		return nil, &ParseError{Err: err}
	}
	wf := env.workflowDoc
	if env.Workflow != nil {
		wf = *env.Workflow
	}
	return fromDoc(wf), nil
}

// ParseFile reads and decodes a workflow file.
func ParseFile(path string) (*Graph, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, &ParseError{Path: path, Err: err}
	}
	defer f.Close()

	g, err := Parse(f)
	if err != nil {
		if pe, ok := err.(*ParseError); ok {
			pe.Path = path
		}
		return nil, err
	}
	return g, nil
}

func fromDoc(wf workflowDoc) *Graph {
	g := &Graph{Name: wf.Name}
	if g.Name == "" {
		g.Name = DefaultName
	}

	for _, nd := range wf.Nodes {
		n := Node{
			Name:    nd.Name,
			Kind:    ParseKind(nd.Type),
			Prompt:  nd.Prompt,
			IsStart: nd.IsStart,
		}
		if nd.MessagePlan != nil {
			n.FirstMessage = nd.MessagePlan.FirstMessage
		}
		if nd.VariableExtractionPlan != nil {
			for _, v := range nd.VariableExtractionPlan.Output {
				n.Variables = append(n.Variables, Variable(v))
			}
		}
		if nd.Metadata != nil && nd.Metadata.Position != nil {
			n.Position = &Position{X: nd.Metadata.Position.X, Y: nd.Metadata.Position.Y}
		}
		if nd.Tool != nil {
			n.ToolType = nd.Tool.Type
		}
		g.Nodes = append(g.Nodes, n)
	}

	for _, ed := range wf.Edges {
		e := Edge{From: ed.From, To: ed.To}
		if ed.Condition != nil {
			e.Condition = &Condition{Kind: ConditionKind(ed.Condition.Type), Prompt: ed.Condition.Prompt}
		}
		g.Edges = append(g.Edges, e)
	}
	return g
}
