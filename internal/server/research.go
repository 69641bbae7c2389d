package server

import (
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/joseph-ayodele/proposal-builder/internal/common"
	"github.com/joseph-ayodele/proposal-builder/internal/formstate"
)

const maxDescriptionChars = 1200

type researchRequest struct {
	Tab string `json:"tab"`
	URL string `json:"url"`
}

func bindResearch(c *gin.Context) (researchRequest, party, bool) {
	req := researchRequest{Tab: formstate.TabClient}
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			fail(c, common.InvalidInputErrorf("invalid research request"))
			return req, party{}, false
		}
	}
	if req.Tab == "" {
		req.Tab = formstate.TabClient
	}
	p, err := loadParty(c, req.Tab)
	if err != nil {
		fail(c, err)
		return req, p, false
	}
	if strings.TrimSpace(p.Enterprise) == "" {
		fail(c, common.InvalidInputErrorf("set enterprise_name on the %s tab first", p.Tab))
		return req, p, false
	}
	return req, p, true
}

func (s *Server) discover(c *gin.Context) {
	if s.deps.Researcher == nil {
		unavailable(c, "web research")
		return
	}
	_, p, ok := bindResearch(c)
	if !ok {
		return
	}
	ctx := c.Request.Context()
	urls := s.deps.Researcher.DiscoverURLs(ctx, p.Enterprise, s.deps.MaxDiscovered)
	linkedin := s.deps.Researcher.LinkedInLookup(ctx, p.Enterprise)

	fields := map[string]any{}
	if linkedin != "" {
		fields["linkedin_url"] = linkedin
	}
	switch p.Tab {
	case formstate.TabClient:
		fields["discovered_urls"] = urls
		if p.Website == "" && len(urls) > 0 {
			fields["website"] = urls[0]
		}
	case formstate.TabSeller:
		if p.Website == "" && len(urls) > 0 {
			fields["website"] = urls[0]
		}
	}
	rec, err := saveParty(c, p.Tab, fields)
	if err != nil {
		fail(c, err)
		return
	}

	outcome, msg := common.OutcomeOK, "web discovery completed"
	if len(urls) == 0 && linkedin == "" {
		outcome, msg = common.OutcomeDegraded, "web discovery found nothing for "+p.Enterprise
	}
	respond(c, outcome, msg, gin.H{"urls": urls, "linkedin_url": linkedin, "record": rec})
}

func (s *Server) scrape(c *gin.Context) {
	if s.deps.Researcher == nil {
		unavailable(c, "web research")
		return
	}
	req, p, ok := bindResearch(c)
	if !ok {
		return
	}
	target := strings.TrimSpace(req.URL)
	if target == "" {
		target = p.Website
	}
	v := common.NewValidator().Field("url", target, common.Required, common.URL)
	if err := common.ValidateAndReturnError(v); err != nil {
		fail(c, err)
		return
	}

	site := s.deps.Researcher.ScrapeWebsite(c.Request.Context(), target)

	fields := map[string]any{}
	if p.Description == "" {
		if d := describe(site.Description, site.Text()); d != "" {
			fields["description"] = d
		}
	}
	if p.Tab == formstate.TabClient {
		fields["scraped_pages"] = site.PageMap()
	}
	rec, err := saveParty(c, p.Tab, fields)
	if err != nil {
		fail(c, err)
		return
	}

	outcome, msg := common.OutcomeOK, "scraped "+target
	if len(site.Pages) == 0 {
		outcome, msg = common.OutcomeDegraded, "could not scrape "+target
	}
	respond(c, outcome, msg, gin.H{"url": site.URL, "title": site.Title, "pages": len(site.Pages), "record": rec})
}

// describe prefers the site's meta description, else the start of its text.
func describe(meta, text string) string {
	if d := strings.TrimSpace(meta); d != "" {
		return d
	}
	text = strings.Join(strings.Fields(text), " ")
	if r := []rune(text); len(r) > maxDescriptionChars {
		return string(r[:maxDescriptionChars]) + "…"
	}
	return text
}
