package recommend

import (
	"github.com/joseph-ayodele/proposal-builder/internal/formstate"
	"github.com/joseph-ayodele/proposal-builder/internal/llm"
)

// InputFrom builds prompt input from a session. When the user selected
// pain points or services only those are sent.
func InputFrom(snap formstate.Snapshot) Input {
	c, s, p := snap.Client, snap.Seller, snap.Project
	return Input{
		ClientName:         c.EnterpriseName,
		ClientIndustry:     c.Industry,
		ClientDescription:  c.Description,
		PainPoints:         selected(c.PainPoints, c.SelectedPainPoints),
		SellerName:         s.EnterpriseName,
		Services:           selected(s.Services, s.SelectedServices),
		ProjectDescription: p.Description,
		Budget:             p.Budget,
		Currency:           p.Currency,
		StartDate:          p.StartDate,
		Notes:              c.Notes,
	}
}

func selected(all map[string]string, pick formstate.Set) llm.Extraction {
	out := make(llm.Extraction, len(all))
	for k, v := range all {
		if len(pick) == 0 || pick.Has(k) {
			out[k] = v
		}
	}
	return out
}

// Fields maps recommendations onto project tab fields, including the
// per-kind outcomes.
func Fields(recs []Recommendation) map[string]any {
	fields := make(map[string]any, len(recs)+1)
	outcomes := make(map[string]string, len(recs))
	for _, r := range recs {
		fields[string(r.Kind)] = r.Value
		outcomes[string(r.Kind)] = string(r.Outcome)
	}
	fields["outcomes"] = outcomes
	return fields
}
