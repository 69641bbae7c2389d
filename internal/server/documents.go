package server

import (
	"net/http"
	"path/filepath"
	"slices"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/joseph-ayodele/proposal-builder/constants"
	"github.com/joseph-ayodele/proposal-builder/internal/common"
	"github.com/joseph-ayodele/proposal-builder/internal/extract"
	"github.com/joseph-ayodele/proposal-builder/internal/formstate"
)

// party is the part of the client or seller tab the handlers share.
type party struct {
	Tab         string
	Enterprise  string
	Website     string
	Description string
	Documents   []string
}

func loadParty(c *gin.Context, tab string) (party, error) {
	ctx, sess := c.Request.Context(), formSession(c)
	switch tab {
	case formstate.TabClient:
		rec := formstate.Load[formstate.Client](ctx, sess)
		return party{tab, rec.EnterpriseName, rec.Website, rec.Description, rec.Documents}, nil
	case formstate.TabSeller:
		rec := formstate.Load[formstate.Seller](ctx, sess)
		return party{tab, rec.EnterpriseName, rec.Website, rec.Description, rec.Documents}, nil
	default:
		return party{}, common.InvalidInputErrorf("tab must be %q or %q", formstate.TabClient, formstate.TabSeller)
	}
}

func saveParty(c *gin.Context, tab string, fields map[string]any) (any, error) {
	ctx, sess := c.Request.Context(), formSession(c)
	if tab == formstate.TabSeller {
		return formstate.Save[formstate.Seller](ctx, sess, fields)
	}
	return formstate.Save[formstate.Client](ctx, sess, fields)
}

func (s *Server) upload(c *gin.Context) {
	if s.deps.Ingestor == nil {
		unavailable(c, "document ingestion")
		return
	}
	limit := s.deps.MaxUploadBytes
	if limit <= 0 {
		limit = constants.MaxUploadMB << 20
	}
	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, limit+1<<20)

	p, err := loadParty(c, c.DefaultPostForm("tab", formstate.TabClient))
	if err != nil {
		fail(c, err)
		return
	}
	if strings.TrimSpace(p.Enterprise) == "" {
		fail(c, common.InvalidInputErrorf("set enterprise_name on the %s tab before uploading", p.Tab))
		return
	}

	fh, err := c.FormFile("file")
	if err != nil {
		fail(c, common.InvalidInputErrorf("multipart field \"file\" is required"))
		return
	}
	if fh.Size > limit {
		fail(c, common.InvalidInputErrorf("file exceeds %d bytes", limit))
		return
	}
	if !constants.IsAllowedExt(filepath.Ext(fh.Filename)) {
		fail(c, common.InvalidInputErrorf("unsupported file type %q", filepath.Ext(fh.Filename)))
		return
	}
	f, err := fh.Open()
	if err != nil {
		fail(c, common.InvalidInputErrorf("cannot read upload"))
		return
	}
	defer f.Close()

	doc, err := s.deps.Ingestor.SaveUpload(c.Request.Context(), p.Enterprise, fh.Filename, f)
	if err != nil {
		fail(c, err)
		return
	}

	docs := p.Documents
	if !slices.Contains(docs, doc.Path) {
		docs = append(slices.Clone(docs), doc.Path)
	}
	rec, err := saveParty(c, p.Tab, map[string]any{"documents": docs})
	if err != nil {
		fail(c, err)
		return
	}
	respond(c, common.OutcomeOK, "uploaded "+doc.Name, gin.H{
		"document": gin.H{"name": doc.Name, "path": doc.Path, "kind": doc.Kind, "size": doc.Size, "sha256": doc.SHA256},
		"record":   rec,
	})
}

type analyzeRequest struct {
	// Document is a file name or path from the tab's documents; empty
	// means the most recent upload.
	Document string `json:"document"`
}

func (s *Server) analyze(kind extract.Kind) gin.HandlerFunc {
	tab, field := formstate.TabClient, "pain_points"
	if kind == extract.KindServices {
		tab, field = formstate.TabSeller, "services"
	}
	return func(c *gin.Context) {
		if s.deps.Analyzer == nil {
			unavailable(c, "document analysis")
			return
		}
		var req analyzeRequest
		if c.Request.ContentLength > 0 {
			if err := c.ShouldBindJSON(&req); err != nil {
				fail(c, common.InvalidInputErrorf("invalid analyze request"))
				return
			}
		}

		p, _ := loadParty(c, tab)
		path, err := pickDocument(p.Documents, req.Document)
		if err == nil {
			err = s.checkUploadPath(p.Enterprise, path)
		}
		if err != nil {
			fail(c, err)
			return
		}

		res := s.deps.Analyzer.Analyze(c.Request.Context(), p.Enterprise, path, kind)
		if res.IsFailed() {
			fail(c, res.Err)
			return
		}
		rep := res.Value
		rec, err := saveParty(c, tab, map[string]any{field: map[string]string(rep.Extraction)})
		if err != nil {
			fail(c, err)
			return
		}
		respondResult(c, res, "analysis of "+filepath.Base(path), gin.H{
			"document":   rep.Document.Name,
			"method":     rep.Method,
			"chunks":     len(rep.Chunks),
			"collection": rep.Collection.Name,
			"backend":    rep.Collection.Backend,
			field:        rep.Extraction,
			"record":     rec,
		})
	}
}

func pickDocument(docs []string, want string) (string, error) {
	if len(docs) == 0 {
		return "", common.InvalidInputErrorf("upload a document first")
	}
	want = strings.TrimSpace(want)
	if want == "" {
		return docs[len(docs)-1], nil
	}
	for _, d := range docs {
		if d == want || filepath.Base(d) == want {
			return d, nil
		}
	}
	return "", common.NotFoundErrorf("document %q is not on this tab", want)
}

// checkUploadPath rejects documents outside {UploadRoot}/{enterprise}.
func (s *Server) checkUploadPath(enterprise, path string) error {
	if s.deps.UploadRoot == "" {
		return nil
	}
	dir, err := filepath.Abs(filepath.Join(s.deps.UploadRoot, strings.TrimSpace(enterprise)))
	if err != nil {
		return common.WrapError(err, "resolve upload directory")
	}
	abs, err := filepath.Abs(path)
	if err != nil {
		return common.InvalidInputErrorf("invalid document path")
	}
	if rel, err := filepath.Rel(dir, abs); err != nil || rel == "." || strings.HasPrefix(rel, "..") {
		s.logger.Warn("analyze.document.outside_uploads", "enterprise", enterprise, "path", path)
		return common.NotFoundErrorf("document %q is not an upload of %s", filepath.Base(path), enterprise)
	}
	return nil
}
