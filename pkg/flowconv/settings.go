package flowconv

import (
	"log/slog"

	"github.com/randalmurphal/vapiflow/pkg/flowconv/config"
	"github.com/randalmurphal/vapiflow/pkg/flowconv/routing"
)

// SettingsOptions maps validated settings to converter options. logger may
// be nil.
func SettingsOptions(s config.Settings, logger *slog.Logger) ([]Option, error) {
	if err := s.Validate(); err != nil {
		return nil, err
	}
	op, err := routing.ParseOperator(s.GateOperator)
	if err != nil {
		return nil, err
	}

	return []Option{
		WithMode(Mode(s.Mode)),
		WithMaxDepth(s.MaxDepth),
		WithModelName(s.ModelName),
		WithGateOperator(op),
		WithNodeTypes(s.NodeTypes),
		WithCredentials(s.Credentials),
		WithFlowName(s.FlowName),
		WithLenientStart(s.LenientStart),
		WithLogger(logger),
	}, nil
}
