package commands

import (
	"context"
	"strings"

	"github.com/urfave/cli/v3"

	"github.com/joseph-ayodele/proposal-builder/internal/common"
	"github.com/joseph-ayodele/proposal-builder/internal/formstate"
	"github.com/joseph-ayodele/proposal-builder/internal/recommend"
)

// RecommendAction asks for the project recommendations (all of them, or the
// one named by --kind) and stores them on the project tab of the session file.
func RecommendAction(ctx context.Context, cmd *cli.Command) error {
	sessionFile := cmd.String("session")

	a, err := newApp(ctx, cmd)
	if err != nil {
		return err
	}
	defer closeApp(a)

	snap, err := readSession(sessionFile)
	if err != nil {
		return err
	}
	in := recommend.InputFrom(snap)
	var recs []recommend.Recommendation
	if only := cmd.String("kind"); only != "" {
		kind, err := recommend.ParseKind(only)
		if err != nil {
			return err
		}
		res := a.Recommender.Recommend(ctx, kind, in)
		if res.IsFailed() {
			return res.Err
		}
		rec := recommend.Recommendation{Kind: kind, Value: res.Value, Outcome: res.Outcome}
		if res.Cause != nil {
			rec.Cause = res.Cause.Error()
		}
		recs = []recommend.Recommendation{rec}
	} else if recs, err = a.Recommender.RecommendAll(ctx, in); err != nil {
		return err
	}
	fields := recommend.Fields(recs)
	// keep outcomes of kinds not asked for this time
	outcomes := fields["outcomes"].(map[string]string)
	for k, v := range snap.Project.Outcomes {
		if _, ok := outcomes[k]; !ok {
			outcomes[k] = v
		}
	}
	if _, err := formstate.Update(ctx, formstate.NewMemoryStore(), &snap.Project, fields); err != nil {
		return err
	}
	if err := writeSession(sessionFile, snap); err != nil {
		return err
	}
	return printJSON(recs)
}

type discovery struct {
	Company     string   `json:"company"`
	URLs        []string `json:"urls"`
	LinkedInURL string   `json:"linkedin_url,omitempty"`
	Description string   `json:"description,omitempty"`
}

// DiscoverAction searches for a company's web presence and, with --scrape,
// summarizes its site.
func DiscoverAction(ctx context.Context, cmd *cli.Command) error {
	company := strings.TrimSpace(cmd.String("company"))
	if company == "" {
		return common.InvalidInputErrorf("company is required")
	}

	a, err := newApp(ctx, cmd)
	if err != nil {
		return err
	}
	defer closeApp(a)

	out := discovery{
		Company:     company,
		URLs:        a.Scraper.DiscoverURLs(ctx, company, int(cmd.Int("max"))),
		LinkedInURL: a.Scraper.LinkedInLookup(ctx, company),
	}
	if cmd.Bool("scrape") && len(out.URLs) > 0 {
		out.Description = a.Scraper.ScrapeWebsite(ctx, out.URLs[0]).Text()
	}
	return printJSON(out)
}

// GenerateAction renders the proposal for a session file.
func GenerateAction(ctx context.Context, cmd *cli.Command) error {
	a, err := newApp(ctx, cmd)
	if err != nil {
		return err
	}
	defer closeApp(a)

	snap, err := readSession(cmd.String("session"))
	if err != nil {
		return err
	}
	res := a.Proposals.Generate(ctx, snap, cmd.Bool("pdf"))
	if res.IsFailed() {
		return res.Err
	}
	return printJSON(viewOf(res, "proposal generation", res.Value))
}

// ExportAction writes the session workbook.
func ExportAction(ctx context.Context, cmd *cli.Command) error {
	a, err := newApp(ctx, cmd)
	if err != nil {
		return err
	}
	defer closeApp(a)

	snap, err := readSession(cmd.String("session"))
	if err != nil {
		return err
	}
	path, err := a.Exporter.WriteSession(ctx, snap)
	if err != nil {
		return err
	}
	return printJSON(map[string]string{"path": path})
}
