// Package config loads converter settings from YAML or JSON files and the
// environment.
//
// Precedence, lowest first: Defaults, the settings file, environment
// variables, command line flags. Flags are applied by the caller.
package config

import (
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"
)

// Conversion modes.
const (
	ModeMultiNode    = "multinode"
	ModeConsolidated = "consolidated"
)

// Environment variables read by ApplyEnv.
const (
	EnvOpenAIKey = "OPENAI_API_KEY"
	EnvMaxDepth  = "VAPIFLOW_MAX_DEPTH"
	EnvMode      = "VAPIFLOW_MODE"
)

// Log configures the slog handler.
type Log struct {
	Level  string `yaml:"level" json:"level" validate:"oneof=debug info warn error"`
	Format string `yaml:"format" json:"format" validate:"oneof=text json"`
}

// Settings holds every converter setting.
type Settings struct {
	Mode string `yaml:"mode" json:"mode" validate:"oneof=multinode consolidated"`
	// MaxDepth is the deepest branch point compiled with routing.
	MaxDepth  int    `yaml:"max_depth" json:"max_depth" validate:"gte=0"`
	ModelName string `yaml:"model_name" json:"model_name"`
	// GateOperator is "contains" or "equals".
	GateOperator string `yaml:"gate_operator" json:"gate_operator" validate:"omitempty,oneof=contains equals"`
	// NodeTypes overrides the component type per source node kind.
	NodeTypes map[string]string `yaml:"node_types" json:"node_types" validate:"dive,keys,oneof=conversation tool other,endkeys,required"`
	// Credentials are substituted into ${NAME} references in node
	// configuration. OPENAI_API_KEY is also written to model key slots.
	Credentials  map[string]string `yaml:"credentials" json:"credentials"`
	FlowName     string            `yaml:"flow_name" json:"flow_name"`
	LenientStart bool              `yaml:"lenient_start" json:"lenient_start"`
	// Templates are component library documents, loaded in order.
	Templates []string `yaml:"templates" json:"templates"`
	// Archive is the SQLite file emitted flows are recorded in. Empty disables.
	Archive string `yaml:"archive" json:"archive"`
	Log     Log    `yaml:"log" json:"log"`
}

// Defaults returns the default settings.
func Defaults() Settings {
	return Settings{
		Mode:         ModeMultiNode,
		MaxDepth:     1,
		ModelName:    "gpt-4o",
		GateOperator: "contains",
		Log:          Log{Level: "info", Format: "text"},
	}
}

// FromFile loads settings over Defaults, picking the format by extension:
// .yaml, .yml or .json.
func FromFile(path string) (Settings, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Settings{}, fmt.Errorf("read config file: %w", err)
	}

	ext := strings.ToLower(filepath.Ext(path))
	switch ext {
	case ".yaml", ".yml":
		return FromYAML(data)
	case ".json":
		return FromJSON(data)
	default:
		return Settings{}, fmt.Errorf("unsupported config file extension: %s", ext)
	}
}

// FromYAML parses YAML settings over Defaults.
func FromYAML(data []byte) (Settings, error) {
	s := Defaults()
	if err := yaml.Unmarshal(data, &s); err != nil {
		return Settings{}, fmt.Errorf("parse yaml: %w", err)
	}
	return s, nil
}

// FromJSON parses JSON settings over Defaults.
func FromJSON(data []byte) (Settings, error) {
	s := Defaults()
	if err := json.Unmarshal(data, &s); err != nil {
		return Settings{}, fmt.Errorf("parse json: %w", err)
	}
	return s, nil
}

// ApplyEnv overlays environment variables found by lookup, typically
// os.LookupEnv.
func (s *Settings) ApplyEnv(lookup func(string) (string, bool)) error {
	if v, ok := lookup(EnvOpenAIKey); ok && v != "" {
		if s.Credentials == nil {
			s.Credentials = make(map[string]string)
		}
		s.Credentials[EnvOpenAIKey] = v
	}
	if v, ok := lookup(EnvMaxDepth); ok && v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("%s: %w", EnvMaxDepth, err)
		}
		s.MaxDepth = n
	}
	if v, ok := lookup(EnvMode); ok && v != "" {
		s.Mode = v
	}
	return nil
}

var validate = validator.New()

// Validate checks the settings.
func (s Settings) Validate() error {
	err := validate.Struct(s)
	if err == nil {
		return nil
	}
	verrs, ok := err.(validator.ValidationErrors)
	if !ok {
		return err
	}
	msgs := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		msgs = append(msgs, describe(fe))
	}
	return fmt.Errorf("invalid settings: %s", strings.Join(msgs, "; "))
}

func describe(fe validator.FieldError) string {
	field := strings.TrimPrefix(fe.Namespace(), "Settings.")
	switch fe.Tag() {
	case "oneof":
		return fmt.Sprintf("%s must be one of: %s (got %v)", field, fe.Param(), fe.Value())
	case "gte":
		return fmt.Sprintf("%s must be at least %s", field, fe.Param())
	case "required":
		return fmt.Sprintf("%s is required", field)
	default:
		return fmt.Sprintf("%s is invalid", field)
	}
}

// Logger builds a slog logger writing to w.
func (l Log) Logger(w io.Writer) *slog.Logger {
	var level slog.Level
	switch l.Level {
	case "debug":
		level = slog.LevelDebug
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	default:
		level = slog.LevelInfo
	}
	opts := &slog.HandlerOptions{Level: level}
	if l.Format == "json" {
		return slog.New(slog.NewJSONHandler(w, opts))
	}
	return slog.New(slog.NewTextHandler(w, opts))
}
