package server

import (
	"path/filepath"

	"github.com/gin-gonic/gin"

	"github.com/joseph-ayodele/proposal-builder/internal/common"
	"github.com/joseph-ayodele/proposal-builder/internal/formstate"
	"github.com/joseph-ayodele/proposal-builder/internal/recommend"
)

func (s *Server) recommendations(c *gin.Context) {
	if s.deps.Recommender == nil {
		unavailable(c, "recommendations")
		return
	}
	ctx, sess := c.Request.Context(), formSession(c)
	snap := formstate.LoadSnapshot(ctx, sess)

	recs, err := s.deps.Recommender.RecommendAll(ctx, recommend.InputFrom(snap))
	if err != nil {
		fail(c, err)
		return
	}
	rec, err := formstate.Save[formstate.ProjectSpecification](ctx, sess, recommend.Fields(recs))
	if err != nil {
		fail(c, err)
		return
	}

	outcome, msg := common.OutcomeOK, "recommendations completed"
	for _, r := range recs {
		if r.Outcome != common.OutcomeOK {
			outcome, msg = common.OutcomeDegraded, "some recommendations use default content"
			break
		}
	}
	respond(c, outcome, msg, gin.H{"recommendations": recs, "record": rec})
}

type proposalRequest struct {
	PDF *bool `json:"pdf"`
}

func (s *Server) proposal(c *gin.Context) {
	if s.deps.Proposals == nil {
		unavailable(c, "proposal generation")
		return
	}
	var req proposalRequest
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			fail(c, common.InvalidInputErrorf("invalid proposal request"))
			return
		}
	}
	wantPDF := s.deps.WantPDF
	if req.PDF != nil {
		wantPDF = *req.PDF
	}

	snap := formstate.LoadSnapshot(c.Request.Context(), formSession(c))
	res := s.deps.Proposals.Generate(c.Request.Context(), snap, wantPDF)
	respondResult(c, res, "proposal generation", res.Value)
}

// export writes the session workbook. ?download=true streams the file
// instead of returning its path.
func (s *Server) export(c *gin.Context) {
	if s.deps.Exporter == nil {
		unavailable(c, "export")
		return
	}
	snap := formstate.LoadSnapshot(c.Request.Context(), formSession(c))
	path, err := s.deps.Exporter.WriteSession(c.Request.Context(), snap)
	if err != nil {
		fail(c, err)
		return
	}
	if c.Query("download") == "true" {
		c.FileAttachment(path, filepath.Base(path))
		return
	}
	respond(c, common.OutcomeOK, "exported "+filepath.Base(path), gin.H{"path": path})
}
