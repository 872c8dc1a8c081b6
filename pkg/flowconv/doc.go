/*
Package flowconv converts VAPI voice-agent workflows into Langflow flows.

# Overview

A VAPI workflow is a directed graph of conversation nodes. Each node has a
prompt, and may extract variables and branch on conditions the model
evaluates. A Langflow flow wires typed component ports together, and every
output port carries a single value. flowconv bridges the two in one of two
modes:

  - ModeMultiNode (default) emits one component per workflow node. Branch
    points near the start become routing subgraphs: a decision agent that
    answers with a number, followed by a cascade of binary decision gates.
  - ModeConsolidated emits a single model whose system prompt describes the
    whole workflow as a state machine.

Both modes wrap the result in a ChatInput entry and a ChatOutput exit.

# Basic Usage

Load a component library, parse the workflow, convert:

	lib := library.New()
	if _, err := lib.LoadFile("components.json"); err != nil {
	    log.Fatal(err)
	}

	g, err := source.ParseFile("workflow.json")
	if err != nil {
	    log.Fatal(err)
	}

	conv := flowconv.New(lib, flowconv.WithMaxDepth(1))
	res, err := conv.Convert(context.Background(), g)
	if err != nil {
	    log.Fatal(err)
	}
	res.Flow.Encode(os.Stdout)

# Errors

Malformed workflow parts (unnamed nodes, edges to unknown nodes) are dropped
and reported in Result.Warnings. A missing component template, a routing
failure or an incompatible port connection aborts the conversion and no flow
is returned. Use errors.Is with the sentinels in the errors subpackage, or
errors.IsFatal, to tell them apart.

# Observability

WithLogger enables structured logging through log/slog. WithMetrics and
WithTracing enable OpenTelemetry instruments and spans through the global
providers.

# Determinism

Generated ids come from the library's IDGenerator. With a
target.SequenceGenerator, repeated conversions produce identical flows;
with random ids, target.Fingerprint still matches.
*/
package flowconv
