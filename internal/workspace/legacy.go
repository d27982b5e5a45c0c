package workspace

import (
	"fmt"
	"strings"

	"cashplan/internal/core"
)

var (
	workspaceFields = []string{"id", "name", "currency", "periodType", "mode"}
	lineItemFields  = []string{"id", "description", "amount", "frequency", "type", "startDate"}
	actualFields    = []string{"id", "date", "amount"}
)

// lineItemRecord decodes either schema: version 2 fills Tags, version 1
// fills Category.
type lineItemRecord struct {
	core.LineItem `yaml:",inline"`
	Category      string `json:"category,omitempty" yaml:"category,omitempty"`
}

type actualRecord struct {
	core.Actual `yaml:",inline"`
	Category    string `json:"category,omitempty" yaml:"category,omitempty"`
}

type rawDocument struct {
	Version   int              `json:"version" yaml:"version"`
	Workspace core.Workspace   `json:"workspace" yaml:"workspace"`
	LineItems []lineItemRecord `json:"lineItems" yaml:"lineItems"`
	Actuals   []actualRecord   `json:"actuals" yaml:"actuals"`

	// approvalSet marks the actuals that carried an explicit approved key.
	approvalSet []bool
}

// normalize converts decoded records to the current shape.
func (r rawDocument) normalize() Document {
	doc := New(r.Workspace, nil, nil)
	for _, rec := range r.LineItems {
		li := rec.LineItem
		li.Tags = mergeCategory(li.Tags, rec.Category)
		doc.LineItems = append(doc.LineItems, li)
	}
	for i, rec := range r.Actuals {
		a := rec.Actual
		// Stored actuals were confirmed when written; records that predate
		// the approved key are approved.
		if i >= len(r.approvalSet) || !r.approvalSet[i] {
			a.Approved = true
		}
		a.Tags = mergeCategory(a.Tags, rec.Category)
		a.WorkspaceID = r.Workspace.ID
		if a.LineItemID != nil && strings.TrimSpace(*a.LineItemID) == "" {
			a.LineItemID = nil
		}
		if a.MatchConfidence == "" {
			a.MatchConfidence = core.ConfidenceUnmatched
			if a.IsMatched() {
				a.MatchConfidence = core.ConfidenceManual
			}
		}
		doc.Actuals = append(doc.Actuals, a)
	}
	return doc
}

// mergeCategory wraps a legacy category in a one-element tag list. Records
// that already carry tags keep them.
func mergeCategory(tags []string, category string) []string {
	if len(tags) > 0 {
		return tags
	}
	if c := strings.TrimSpace(category); c != "" {
		return []string{c}
	}
	return []string{}
}

// checkRequired reports every missing field on the workspace and on the
// first ValidationWindow line items and actuals.
func checkRequired(doc map[string]any) []error {
	var errs []error

	ws, ok := doc["workspace"].(map[string]any)
	if !ok {
		errs = append(errs, &FieldError{Record: "document", Field: "workspace"})
	} else {
		errs = append(errs, missing("workspace", ws, workspaceFields)...)
	}

	errs = append(errs, checkRecords(doc["lineItems"], "lineItems", lineItemFields)...)
	errs = append(errs, checkRecords(doc["actuals"], "actuals", actualFields)...)
	return errs
}

// approvalKeys reports, per actual record, whether it sets approved.
func approvalKeys(doc map[string]any) []bool {
	list, _ := doc["actuals"].([]any)
	set := make([]bool, len(list))
	for i, item := range list {
		if rec, ok := item.(map[string]any); ok {
			_, set[i] = rec["approved"]
		}
	}
	return set
}

func checkRecords(v any, name string, fields []string) []error {
	list, ok := v.([]any)
	if !ok {
		return nil
	}
	var errs []error
	for i, item := range list {
		if i >= ValidationWindow {
			break
		}
		rec, ok := item.(map[string]any)
		if !ok {
			errs = append(errs, fmt.Errorf("%s[%d]: record is not an object", name, i))
			continue
		}
		errs = append(errs, missing(fmt.Sprintf("%s[%d]", name, i), rec, fields)...)
	}
	return errs
}

func missing(record string, m map[string]any, fields []string) []error {
	var errs []error
	for _, f := range fields {
		if v, ok := m[f]; !ok || v == nil {
			errs = append(errs, &FieldError{Record: record, Field: f})
		}
	}
	return errs
}
