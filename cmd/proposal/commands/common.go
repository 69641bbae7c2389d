// Package commands holds the actions of the proposal batch CLI. Commands
// that touch a session read and write it as a JSON snapshot file so a run
// can be resumed or handed to the HTTP service later.
package commands

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"github.com/urfave/cli/v3"

	"github.com/joseph-ayodele/proposal-builder/internal/app"
	"github.com/joseph-ayodele/proposal-builder/internal/common"
	"github.com/joseph-ayodele/proposal-builder/internal/extract"
	"github.com/joseph-ayodele/proposal-builder/internal/formstate"
	"github.com/joseph-ayodele/proposal-builder/internal/llm"
)

// stdout is where command results go; logs go to stderr.
var stdout io.Writer = os.Stdout

// newApp loads the env file named by --env and builds every service.
func newApp(ctx context.Context, cmd *cli.Command) (*app.App, error) {
	envFile := cmd.String("env")
	if err := common.LoadEnvFile(envFile); err != nil {
		return nil, err
	}
	cfg := common.LoadConfig()
	logger := common.NewLogger(cfg.Log, os.Stderr)

	a, err := app.New(ctx, cfg, logger)
	if err != nil {
		return nil, fmt.Errorf("init app: %w", err)
	}
	return a, nil
}

func closeApp(a *app.App) {
	if err := a.Close(); err != nil {
		a.Logger.Warn("app.close.failed", "error", err)
	}
}

func parseKind(s string) (extract.Kind, error) {
	switch k := extract.Kind(strings.TrimSpace(s)); k {
	case extract.KindPainPoints, extract.KindServices:
		return k, nil
	default:
		return "", common.InvalidInputErrorf("unknown kind %q (want %s or %s)", s, extract.KindPainPoints, extract.KindServices)
	}
}

// readSession loads a snapshot file. A missing file yields a fresh snapshot
// with defaults applied.
func readSession(path string) (formstate.Snapshot, error) {
	snap := formstate.NewSnapshot()
	b, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return snap, nil
	}
	if err != nil {
		return snap, common.StorageError("read session file", err)
	}
	if err := json.Unmarshal(b, &snap); err != nil {
		return snap, common.InvalidInputErrorf("session file %s: %v", path, err)
	}
	return snap, nil
}

func writeSession(path string, snap formstate.Snapshot) error {
	b, err := json.MarshalIndent(snap, "", "  ")
	if err != nil {
		return common.WrapError(err, "encode session")
	}
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return common.StorageError("create session dir", err)
		}
	}
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, append(b, '\n'), 0o644); err != nil {
		return common.StorageError("write session file", err)
	}
	if err := os.Rename(tmp, path); err != nil {
		return common.StorageError("replace session file", err)
	}
	return nil
}

// mergeExtraction records an analyzed document and its insights on the tab
// the kind belongs to. A non-empty extraction replaces the previous insights;
// the document list keeps every path once.
func mergeExtraction(ctx context.Context, snap *formstate.Snapshot, kind extract.Kind, company, path string, ext llm.Extraction) error {
	store := formstate.NewMemoryStore()
	switch kind {
	case extract.KindServices:
		fields := map[string]any{"documents": appendOnce(snap.Seller.Documents, path)}
		if len(ext) > 0 {
			fields["services"] = map[string]string(ext)
		}
		if snap.Seller.EnterpriseName == "" {
			fields["enterprise_name"] = company
		}
		_, err := formstate.Update(ctx, store, &snap.Seller, fields)
		return err
	default:
		fields := map[string]any{"documents": appendOnce(snap.Client.Documents, path)}
		if len(ext) > 0 {
			fields["pain_points"] = map[string]string(ext)
		}
		if snap.Client.EnterpriseName == "" {
			fields["enterprise_name"] = company
		}
		_, err := formstate.Update(ctx, store, &snap.Client, fields)
		return err
	}
}

func appendOnce(list []string, item string) []string {
	out := slices.Clone(list)
	if item == "" || slices.Contains(out, item) {
		return out
	}
	return append(out, item)
}

func printJSON(v any) error {
	enc := json.NewEncoder(stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// resultView is the printed form of a common.Result.
type resultView struct {
	Outcome common.Outcome `json:"outcome"`
	Message string         `json:"message"`
	Error   string         `json:"error,omitempty"`
	Data    any            `json:"data,omitempty"`
}

func viewOf[T any](r common.Result[T], what string, data any) resultView {
	v := resultView{Outcome: r.Outcome, Message: r.Message(what), Data: data}
	if r.Err != nil {
		v.Error = r.Err.Error()
	}
	return v
}
