package main

import (
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/randalmurphal/vapiflow/pkg/flowconv/config"
)

// ExitError carries the process exit code for a failed run.
type ExitError struct {
	Code    int
	Message string
}

// Error implements the error interface.
func (e *ExitError) Error() string {
	return e.Message
}

// invocation is a parsed command line.
type invocation struct {
	Settings config.Settings
	Input    string
	Output   string
}

type stringList []string

func (l *stringList) String() string { return strings.Join(*l, ",") }

func (l *stringList) Set(v string) error {
	*l = append(*l, v)
	return nil
}

// parseArgs resolves settings from defaults, the config file, the
// environment and flags, in that order. It returns done when the program
// should exit cleanly without converting.
func parseArgs(args []string, output io.Writer, lookup func(string) (string, bool)) (*invocation, bool, error) {
	fs := flag.NewFlagSet("vapiflow", flag.ContinueOnError)
	fs.SetOutput(output)
	fs.Usage = func() {
		fmt.Fprint(output, `
vapiflow - convert a VAPI workflow into a Langflow flow.

Usage:
  vapiflow [options] WORKFLOW_JSON

Options:
`)
		fs.PrintDefaults()
	}

	var templates stringList
	configPath := fs.String("c", "", "Path to a YAML or JSON settings file.")
	fs.Var(&templates, "t", "Component library JSON file. Repeatable; earlier files win.")
	outPath := fs.String("o", "", "Output file. Defaults to stdout.")
	mode := fs.String("mode", "", "Conversion mode: 'multinode' or 'consolidated'.")
	maxDepth := fs.Int("max-depth", 0, "Deepest branch point compiled into a router.")
	archive := fs.String("archive", "", "SQLite file to archive the emitted flow in.")
	logLevel := fs.String("log-level", "", "Log level: 'debug', 'info', 'warn' or 'error'.")
	logFormat := fs.String("log-format", "", "Log format: 'text' or 'json'.")

	if err := fs.Parse(args); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return nil, true, nil
		}
		return nil, false, &ExitError{Code: 2, Message: err.Error()}
	}
	if fs.NArg() == 0 {
		fs.Usage()
		return nil, true, nil
	}

	s := config.Defaults()
	if *configPath != "" {
		loaded, err := config.FromFile(*configPath)
		if err != nil {
			return nil, false, &ExitError{Code: 2, Message: err.Error()}
		}
		s = loaded
		dir := filepath.Dir(*configPath)
		for i, t := range s.Templates {
			if !filepath.IsAbs(t) {
				s.Templates[i] = filepath.Join(dir, t)
			}
		}
	}
	if err := s.ApplyEnv(lookup); err != nil {
		return nil, false, &ExitError{Code: 2, Message: err.Error()}
	}

	fs.Visit(func(f *flag.Flag) {
		switch f.Name {
		case "mode":
			s.Mode = strings.ToLower(*mode)
		case "max-depth":
			s.MaxDepth = *maxDepth
		case "archive":
			s.Archive = *archive
		case "log-level":
			s.Log.Level = strings.ToLower(*logLevel)
		case "log-format":
			s.Log.Format = strings.ToLower(*logFormat)
		}
	})
	if len(templates) > 0 {
		s.Templates = append([]string(templates), s.Templates...)
	}

	if err := s.Validate(); err != nil {
		return nil, false, &ExitError{Code: 2, Message: err.Error()}
	}
	if len(s.Templates) == 0 {
		return nil, false, &ExitError{Code: 2, Message: "no component library given: use -t or the templates setting"}
	}

	return &invocation{Settings: s, Input: fs.Arg(0), Output: *outPath}, false, nil
}

// defaultLookup reads the process environment.
func defaultLookup(key string) (string, bool) {
	return os.LookupEnv(key)
}
