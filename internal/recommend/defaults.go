package recommend

// Defaults returns the canned recommendation for kind. Callers get a fresh
// copy they may modify.
func Defaults(kind Kind, currency string) map[string]any {
	if currency == "" {
		currency = "USD"
	}
	switch kind {
	case KindScope:
		return map[string]any{
			"objectives":   []any{"Clarify business requirements", "Deliver a working solution that addresses the stated pain points"},
			"deliverables": []any{"Requirements document", "Solution design", "Implemented and tested solution", "Handover and training"},
			"in_scope":     []any{"Discovery workshops", "Design", "Implementation", "Testing", "Deployment support"},
			"out_of_scope": []any{"Hardware procurement", "Ongoing operations after handover"},
		}
	case KindTimeline:
		return map[string]any{
			"phases": []any{
				map[string]any{"name": "Discovery", "weeks": 2.0, "activities": []any{"Stakeholder interviews", "Requirements"}},
				map[string]any{"name": "Design", "weeks": 2.0, "activities": []any{"Architecture", "Prototype"}},
				map[string]any{"name": "Build", "weeks": 6.0, "activities": []any{"Implementation", "Integration"}},
				map[string]any{"name": "Test & Launch", "weeks": 2.0, "activities": []any{"UAT", "Go-live"}},
			},
			"total_weeks": 12.0,
		}
	case KindEffort:
		return map[string]any{
			"roles":       map[string]any{"Project Manager": 160.0, "Business Analyst": 160.0, "Developer": 640.0, "QA Engineer": 160.0},
			"total_hours": 1120.0,
		}
	case KindTeam:
		return map[string]any{
			"members": []any{
				map[string]any{"role": "Project Manager", "count": 1.0, "responsibilities": "Planning, reporting and stakeholder management"},
				map[string]any{"role": "Business Analyst", "count": 1.0, "responsibilities": "Requirements and acceptance criteria"},
				map[string]any{"role": "Developer", "count": 2.0, "responsibilities": "Design and implementation"},
				map[string]any{"role": "QA Engineer", "count": 1.0, "responsibilities": "Test planning and execution"},
			},
		}
	case KindPricing:
		return map[string]any{
			"currency": currency,
			"line_items": []any{
				map[string]any{"item": "Discovery & Design", "amount": 20000.0},
				map[string]any{"item": "Implementation", "amount": 60000.0},
				map[string]any{"item": "Testing & Launch", "amount": 15000.0},
			},
			"total":         95000.0,
			"payment_terms": "30% on signature, 40% at build completion, 30% on go-live",
		}
	default:
		return map[string]any{}
	}
}
