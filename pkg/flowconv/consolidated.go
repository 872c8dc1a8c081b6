package flowconv

import (
	"github.com/randalmurphal/vapiflow/pkg/flowconv/observability"
	"github.com/randalmurphal/vapiflow/pkg/flowconv/prompt"
	"github.com/randalmurphal/vapiflow/pkg/flowconv/routing"
	"github.com/randalmurphal/vapiflow/pkg/flowconv/source"
	"github.com/randalmurphal/vapiflow/pkg/flowconv/target"
)

// ConsolidatedDisplayName is the display name of the consolidated model.
const ConsolidatedDisplayName = "Unified Conversation Agent"

// consolidated emits entry -> model -> exit, with the whole workflow in the
// model's system prompt.
func (a *assembly) consolidated(g *source.Graph) error {
	clean, _, err := a.validate(g)
	if err != nil {
		return err
	}

	_, span := a.c.cfg.spans.StartPhaseSpan(a.ctx, PhaseNodes)
	defer span.End()

	if err := a.addEntry(); err != nil {
		return err
	}
	a.entry.Position = target.Position{X: -400, Y: 0}

	model, err := a.c.lib.Clone(a.c.cfg.nodeTypes[source.KindConversation])
	if err != nil {
		return &ConversionError{Phase: PhaseNodes, Err: err}
	}
	if err := a.c.configure(model); err != nil {
		return &ConversionError{Phase: PhaseNodes, Err: err}
	}
	model.Role = target.RoleConsolidated
	model.SetDisplayName(ConsolidatedDisplayName)
	model.SetFirst(routing.PromptSlots, prompt.Consolidate(clean))
	model.SetField("model_name", a.c.cfg.modelName)
	a.flow.AddNode(model)
	observability.LogNodeConverted(a.logger, ConsolidatedDisplayName, model.ID, model.Type)

	if err := a.addExit(); err != nil {
		return err
	}

	if err := a.connect(a.entry, "", model, "", nil); err != nil {
		return err
	}
	if err := a.connect(model, "", a.exit, "", nil); err != nil {
		return err
	}
	a.stats.ExitWired = 1
	return nil
}
