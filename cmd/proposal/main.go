package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/urfave/cli/v3"

	"github.com/joseph-ayodele/proposal-builder/cmd/proposal/commands"
)

func envFlag() cli.Flag {
	return &cli.StringFlag{
		Name:  "env",
		Usage: "dotenv file to load before reading the environment",
		Value: ".env",
	}
}

func kindFlag() cli.Flag {
	return &cli.StringFlag{
		Name:  "kind",
		Usage: "extraction to run: pain_points (client RFI) or services (seller capabilities)",
		Value: "pain_points",
	}
}

func sessionFlag(required bool) cli.Flag {
	return &cli.StringFlag{
		Name:     "session",
		Usage:    "session snapshot JSON file",
		Required: required,
	}
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	app := &cli.Command{
		Name:  "proposal",
		Usage: "batch tools for building sales proposals from client and seller documents",
		Commands: []*cli.Command{
			{
				Name:  "analyze",
				Usage: "extract insights from one document",
				Flags: []cli.Flag{
					envFlag(),
					kindFlag(),
					sessionFlag(false),
					&cli.StringFlag{Name: "company", Usage: "company the document belongs to", Required: true},
					&cli.StringFlag{Name: "file", Usage: "document path", Required: true},
				},
				Action: commands.AnalyzeAction,
			},
			{
				Name:  "analyze-dir",
				Usage: "extract insights from every document under a directory",
				Flags: []cli.Flag{
					envFlag(),
					kindFlag(),
					sessionFlag(false),
					&cli.StringFlag{Name: "company", Usage: "company the documents belong to", Required: true},
					&cli.StringFlag{Name: "dir", Usage: "directory to walk", Required: true},
					&cli.IntFlag{Name: "workers", Usage: "concurrent analyses", Value: 4},
					&cli.DurationFlag{Name: "job-timeout", Usage: "limit per document", Value: 3 * time.Minute},
					&cli.BoolFlag{Name: "include-hidden", Usage: "also walk dot files and dot directories"},
				},
				Action: commands.AnalyzeDirAction,
			},
			{
				Name:  "watch",
				Usage: "analyze documents as they are added to directories",
				Flags: []cli.Flag{
					envFlag(),
					kindFlag(),
					sessionFlag(false),
					&cli.StringFlag{Name: "company", Usage: "company the documents belong to", Required: true},
					&cli.StringSliceFlag{Name: "dir", Usage: "directory to watch (repeatable)", Required: true},
					&cli.IntFlag{Name: "workers", Usage: "concurrent analyses", Value: 2},
					&cli.DurationFlag{Name: "debounce", Usage: "quiet period before a changed file is analyzed", Value: 500 * time.Millisecond},
					&cli.BoolFlag{Name: "initial-scan", Usage: "analyze files already present"},
				},
				Action: commands.WatchAction,
			},
			{
				Name:  "discover",
				Usage: "find a company's website and LinkedIn page",
				Flags: []cli.Flag{
					envFlag(),
					&cli.StringFlag{Name: "company", Usage: "company name", Required: true},
					&cli.IntFlag{Name: "max", Usage: "maximum URLs to return", Value: 5},
					&cli.BoolFlag{Name: "scrape", Usage: "also summarize the first URL found"},
				},
				Action: commands.DiscoverAction,
			},
			{
				Name:  "recommend",
				Usage: "generate the project specification recommendations for a session",
				Flags: []cli.Flag{
					envFlag(),
					sessionFlag(true),
					&cli.StringFlag{Name: "kind", Usage: "only this recommendation: scope, timeline, effort, team or pricing"},
				},
				Action: commands.RecommendAction,
			},
			{
				Name:  "generate",
				Usage: "render the proposal for a session",
				Flags: []cli.Flag{
					envFlag(),
					sessionFlag(true),
					&cli.BoolFlag{Name: "pdf", Usage: "also render a PDF"},
				},
				Action: commands.GenerateAction,
			},
			{
				Name:   "export",
				Usage:  "write the session workbook",
				Flags:  []cli.Flag{envFlag(), sessionFlag(true)},
				Action: commands.ExportAction,
			},
		},
	}

	if err := app.Run(ctx, os.Args); err != nil {
		log.Fatal(err)
	}
}
