// Command vapiflow converts a VAPI workflow document into an importable
// Langflow flow.
package main

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/randalmurphal/vapiflow/pkg/flowconv"
	"github.com/randalmurphal/vapiflow/pkg/flowconv/library"
	"github.com/randalmurphal/vapiflow/pkg/flowconv/source"
	"github.com/randalmurphal/vapiflow/pkg/flowconv/store"
	"github.com/randalmurphal/vapiflow/pkg/flowconv/target"
)

func main() {
	if err := run(context.Background(), os.Args[1:], os.Stdout, os.Stderr, defaultLookup); err != nil {
		fmt.Fprintln(os.Stderr, "vapiflow:", err)
		var exitErr *ExitError
		if errors.As(err, &exitErr) {
			os.Exit(exitErr.Code)
		}
		os.Exit(1)
	}
}

func run(ctx context.Context, args []string, stdout, stderr io.Writer, lookup func(string) (string, bool)) error {
	inv, done, err := parseArgs(args, stderr, lookup)
	if err != nil || done {
		return err
	}
	s := inv.Settings
	logger := s.Log.Logger(stderr)

	lib := library.New()
	for _, path := range s.Templates {
		n, err := lib.LoadFile(path)
		if err != nil {
			return err
		}
		logger.Debug("component library loaded", slog.String("path", path), slog.Int("types", n))
	}

	g, err := source.ParseFile(inv.Input)
	if err != nil {
		return err
	}

	opts, err := flowconv.SettingsOptions(s, logger)
	if err != nil {
		return &ExitError{Code: 2, Message: err.Error()}
	}
	res, err := flowconv.New(lib, opts...).Convert(ctx, g)
	if err != nil {
		return err
	}

	var buf bytes.Buffer
	if err := res.Flow.Encode(&buf); err != nil {
		return fmt.Errorf("encode flow: %w", err)
	}
	if err := write(inv.Output, stdout, buf.Bytes()); err != nil {
		return err
	}

	if s.Archive != "" {
		if err := archive(s.Archive, res, buf.Bytes(), logger); err != nil {
			return err
		}
	}
	return nil
}

func write(path string, stdout io.Writer, data []byte) error {
	if path == "" {
		_, err := stdout.Write(data)
		return err
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("write output: %w", err)
	}
	return nil
}

// archive records the flow and reports earlier flows with the same
// structure.
func archive(path string, res *flowconv.Result, data []byte, logger *slog.Logger) error {
	fp, err := target.Fingerprint(res.Flow)
	if err != nil {
		return fmt.Errorf("fingerprint flow: %w", err)
	}

	st, err := store.NewSQLiteStore(path)
	if err != nil {
		return fmt.Errorf("open archive: %w", err)
	}
	defer st.Close()

	earlier, err := st.FindByFingerprint(fp)
	if err != nil {
		return err
	}
	if err := st.Save(store.Record{
		FlowID:      res.Flow.ID,
		Name:        res.Flow.Name,
		Mode:        string(res.Mode),
		Fingerprint: fp,
		Data:        data,
	}); err != nil {
		return err
	}

	logger.Info("flow archived",
		slog.String("flow_id", res.Flow.ID),
		slog.String("fingerprint", fp),
		slog.Int("identical_earlier", len(earlier)),
	)
	return nil
}
