package server

import (
	"fmt"
	"slices"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/joseph-ayodele/proposal-builder/internal/common"
	"github.com/joseph-ayodele/proposal-builder/internal/formstate"
	"github.com/joseph-ayodele/proposal-builder/internal/proposal"
)

// fieldRules are checked for PATCH bodies, per tab and only for fields
// present in the body.
var fieldRules = map[string]map[string][]common.ValidationRule{
	formstate.TabClient: {
		"enterprise_name": {common.MaxLength(200)},
		"industry":        {common.MaxLength(200)},
		"website":         {common.URL},
		"linkedin_url":    {common.URL},
		"contact_email":   {common.Email},
		"notes":           {common.MaxLength(5000)},
	},
	formstate.TabSeller: {
		"enterprise_name": {common.MaxLength(200)},
		"industry":        {common.MaxLength(200)},
		"website":         {common.URL},
		"linkedin_url":    {common.URL},
		"contact_email":   {common.Email},
	},
	formstate.TabProject: {
		"title":    {common.MaxLength(300)},
		"currency": {common.CurrencyCode},
		"theme":    {oneOf(proposal.ThemeNames()...)},
	},
}

// oneOf accepts blank strings and the listed values.
func oneOf(allowed ...string) common.ValidationRule {
	return func(field string, value any) *common.ValidationError {
		s, ok := value.(string)
		if !ok || strings.TrimSpace(s) == "" || slices.Contains(allowed, s) {
			return nil
		}
		return &common.ValidationError{Field: field, Value: value, Message: fmt.Sprintf("must be one of %s", strings.Join(allowed, ", "))}
	}
}

// uploadManaged fields are only written by the upload handler.
var uploadManaged = []string{"documents"}

func readOnly(field string, _ any) *common.ValidationError {
	return &common.ValidationError{Field: field, Message: "is set by uploads and cannot be patched"}
}

func validateFields(tab string, fields map[string]any) error {
	v := common.NewValidator()
	for _, name := range uploadManaged {
		if value, ok := fields[name]; ok {
			v.Field(name, value, readOnly)
		}
	}
	for name, rules := range fieldRules[tab] {
		if value, ok := fields[name]; ok {
			v.Field(name, value, rules...)
		}
	}
	return common.ValidateAndReturnError(v)
}

func tabView[T formstate.Record](rec T) gin.H {
	return gin.H{"tab": rec.Tab(), "record": rec, "state": formstate.TabState(rec)}
}

func (s *Server) getTab(c *gin.Context) {
	sess := formSession(c)
	ctx := c.Request.Context()
	switch tab := c.Param("tab"); tab {
	case formstate.TabClient:
		respond(c, common.OutcomeOK, "loaded", tabView(formstate.Load[formstate.Client](ctx, sess)))
	case formstate.TabSeller:
		respond(c, common.OutcomeOK, "loaded", tabView(formstate.Load[formstate.Seller](ctx, sess)))
	case formstate.TabProject:
		respond(c, common.OutcomeOK, "loaded", tabView(formstate.Load[formstate.ProjectSpecification](ctx, sess)))
	default:
		fail(c, common.NotFoundErrorf("unknown tab %q", tab))
	}
}

func (s *Server) patchTab(c *gin.Context) {
	tab := c.Param("tab")
	var fields map[string]any
	if err := c.ShouldBindJSON(&fields); err != nil {
		fail(c, common.InvalidInputErrorf("body must be a JSON object of field values"))
		return
	}
	if _, ok := fieldRules[tab]; !ok {
		fail(c, common.NotFoundErrorf("unknown tab %q", tab))
		return
	}
	if err := validateFields(tab, fields); err != nil {
		fail(c, err)
		return
	}

	switch tab {
	case formstate.TabClient:
		saveAndRespond[formstate.Client](c, fields)
	case formstate.TabSeller:
		saveAndRespond[formstate.Seller](c, fields)
	case formstate.TabProject:
		saveAndRespond[formstate.ProjectSpecification](c, fields)
	}
}

func saveAndRespond[T formstate.Record](c *gin.Context, fields map[string]any) {
	rec, err := formstate.Save[T](c.Request.Context(), formSession(c), fields)
	if err != nil {
		fail(c, err)
		return
	}
	respond(c, common.OutcomeOK, "saved", tabView(rec))
}

func (s *Server) getStates(c *gin.Context) {
	snap := formstate.LoadSnapshot(c.Request.Context(), formSession(c))
	respond(c, common.OutcomeOK, "loaded", snap.States())
}
