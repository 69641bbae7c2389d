package commands

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/urfave/cli/v3"

	"github.com/joseph-ayodele/proposal-builder/internal/async"
	"github.com/joseph-ayodele/proposal-builder/internal/common"
	"github.com/joseph-ayodele/proposal-builder/internal/extract"
	"github.com/joseph-ayodele/proposal-builder/internal/ingest"
	"github.com/joseph-ayodele/proposal-builder/internal/llm"
	"github.com/joseph-ayodele/proposal-builder/internal/pipeline"
)

type analysisView struct {
	Path       string         `json:"path"`
	Kind       extract.Kind   `json:"kind"`
	Method     string         `json:"method,omitempty"`
	Pages      int            `json:"pages,omitempty"`
	Chunks     int            `json:"chunks"`
	Collection string         `json:"collection,omitempty"`
	Reused     bool           `json:"reused,omitempty"`
	Extraction llm.Extraction `json:"extraction"`
	Warnings   []string       `json:"warnings,omitempty"`
}

func viewReport(r pipeline.Report) analysisView {
	return analysisView{
		Path:       r.Document.Path,
		Kind:       r.Kind,
		Method:     r.Method,
		Pages:      r.Pages,
		Chunks:     len(r.Chunks),
		Collection: r.Collection.Name,
		Reused:     r.Collection.Reused,
		Extraction: r.Extraction,
		Warnings:   r.Warnings,
	}
}

// AnalyzeAction runs the document pipeline over one file.
func AnalyzeAction(ctx context.Context, cmd *cli.Command) error {
	company := cmd.String("company")
	file := cmd.String("file")
	sessionFile := cmd.String("session")
	kind, err := parseKind(cmd.String("kind"))
	if err != nil {
		return err
	}

	a, err := newApp(ctx, cmd)
	if err != nil {
		return err
	}
	defer closeApp(a)

	res := a.Processor.Analyze(ctx, company, file, kind)
	if res.IsFailed() {
		return res.Err
	}
	if sessionFile != "" {
		if err := saveAnalyses(ctx, sessionFile, company, []pipeline.Report{res.Value}); err != nil {
			return err
		}
	}
	return printJSON(viewOf(res, "analysis", viewReport(res.Value)))
}

type dirSummary struct {
	Stats    ingest.DirStats `json:"stats"`
	Analyzed []analysisView  `json:"analyzed"`
	Degraded int             `json:"degraded"`
	Failed   []string        `json:"failed,omitempty"`
}

// AnalyzeDirAction ingests a directory and analyzes every unique document
// through the worker queue.
func AnalyzeDirAction(ctx context.Context, cmd *cli.Command) error {
	company := cmd.String("company")
	dir := cmd.String("dir")
	sessionFile := cmd.String("session")
	kind, err := parseKind(cmd.String("kind"))
	if err != nil {
		return err
	}

	a, err := newApp(ctx, cmd)
	if err != nil {
		return err
	}
	defer closeApp(a)

	results, stats, err := a.Ingestor.IngestDirectory(ctx, dir, !cmd.Bool("include-hidden"))
	if err != nil {
		return err
	}

	var (
		mu      sync.Mutex
		summary = dirSummary{Stats: stats, Analyzed: []analysisView{}}
		reports []pipeline.Report
	)
	queue := async.NewAnalysisQueue(a.Processor, a.Logger,
		async.WithWorkers(int(cmd.Int("workers"))),
		async.WithJobTimeout(cmd.Duration("job-timeout")),
		async.WithResultHandler(func(o async.Outcome) {
			mu.Lock()
			defer mu.Unlock()
			if o.Result.IsFailed() {
				summary.Failed = append(summary.Failed, fmt.Sprintf("%s: %v", o.Job.Path, o.Result.Err))
				return
			}
			if o.Result.IsDegraded() {
				summary.Degraded++
			}
			summary.Analyzed = append(summary.Analyzed, viewReport(o.Result.Value))
			reports = append(reports, o.Result.Value)
		}),
	)

	for _, r := range results {
		if r.Err != "" || r.Deduplicated {
			continue
		}
		job := async.Job{ID: uuid.NewString(), Company: company, Path: r.Document.Path, Kind: kind, SubmittedAt: time.Now()}
		if err := queue.Enqueue(ctx, job); err != nil {
			a.Logger.Warn("analyze_dir.enqueue.failed", "path", job.Path, "error", err)
			break
		}
	}
	if err := queue.Shutdown(ctx); err != nil {
		return err
	}

	sort.Slice(summary.Analyzed, func(i, j int) bool { return summary.Analyzed[i].Path < summary.Analyzed[j].Path })
	sort.Slice(reports, func(i, j int) bool { return reports[i].Document.Path < reports[j].Document.Path })
	if sessionFile != "" {
		if err := saveAnalyses(ctx, sessionFile, company, reports); err != nil {
			return err
		}
	}
	return printJSON(summary)
}

// WatchAction analyzes documents as they appear under the watched
// directories until interrupted.
func WatchAction(ctx context.Context, cmd *cli.Command) error {
	company := cmd.String("company")
	sessionFile := cmd.String("session")
	kind, err := parseKind(cmd.String("kind"))
	if err != nil {
		return err
	}

	a, err := newApp(ctx, cmd)
	if err != nil {
		return err
	}
	defer closeApp(a)

	paths, errs, err := ingest.StartWatcher(ctx, ingest.WatchConfig{
		Roots:       cmd.StringSlice("dir"),
		InitialScan: cmd.Bool("initial-scan"),
		SkipHidden:  true,
		Debounce:    cmd.Duration("debounce"),
	}, a.Logger)
	if err != nil {
		return err
	}

	var mu sync.Mutex
	queue := async.NewAnalysisQueue(a.Processor, a.Logger,
		async.WithWorkers(int(cmd.Int("workers"))),
		async.WithResultHandler(func(o async.Outcome) {
			if o.Result.IsFailed() {
				a.Logger.Error("watch.analyze.failed", "path", o.Job.Path, "error", o.Result.Err)
				return
			}
			a.Logger.Info("watch.analyze.done",
				"path", o.Job.Path,
				"outcome", o.Result.Outcome,
				"categories", len(o.Result.Value.Extraction),
			)
			if sessionFile == "" {
				return
			}
			mu.Lock()
			defer mu.Unlock()
			if err := saveAnalyses(context.WithoutCancel(ctx), sessionFile, company, []pipeline.Report{o.Result.Value}); err != nil {
				a.Logger.Error("watch.session.save_failed", "path", sessionFile, "error", err)
			}
		}),
	)

	a.Logger.Info("watch.start", "roots", cmd.StringSlice("dir"), "kind", kind)
loop:
	for {
		select {
		case p, ok := <-paths:
			if !ok {
				break loop
			}
			job := async.Job{ID: uuid.NewString(), Company: company, Path: p, Kind: kind, SubmittedAt: time.Now()}
			if err := queue.Enqueue(ctx, job); err != nil {
				a.Logger.Warn("watch.enqueue.failed", "path", p, "error", err)
			}
		case err, ok := <-errs:
			if !ok {
				errs = nil
				continue
			}
			a.Logger.Warn("watch.error", "error", err)
		}
	}

	shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), time.Minute)
	defer cancel()
	if err := queue.Shutdown(shutdownCtx); err != nil {
		return err
	}
	slog.Info("watch.stopped")
	return nil
}

func saveAnalyses(ctx context.Context, sessionFile, company string, reports []pipeline.Report) error {
	snap, err := readSession(sessionFile)
	if err != nil {
		return err
	}
	for _, r := range reports {
		if err := mergeExtraction(ctx, &snap, r.Kind, company, r.Document.Path, r.Extraction); err != nil {
			return common.WrapError(err, "merge "+r.Document.Name)
		}
	}
	return writeSession(sessionFile, snap)
}
