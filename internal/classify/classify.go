// Package classify turns a scanned project into a typed, staged project
// with suggested follow-up tasks and content. It performs no I/O.
package classify

import (
	"fmt"

	perrors "github.com/p-blackswan/projectsync/internal/errors"
	"github.com/p-blackswan/projectsync/internal/scan"
)

// ChangeKind is the kind of difference between two scans.
type ChangeKind string

const (
	NewProject     ChangeKind = "new_project"
	UpdatedProject ChangeKind = "updated_project"
	DeletedProject ChangeKind = "deleted_project"
)

// SourceFilesystemSync tags rows derived from a scan.
const SourceFilesystemSync = "filesystem_sync"

// Priorities used by suggested tasks.
const (
	PriorityMedium = "medium"
	PriorityHigh   = "high"
)

// Summary describes the inferred project.
type Summary struct {
	Name        string
	Brand       string
	Description string
	Type        string
	Status      string
	Tags        []string
}

// ProjectUpsert is the project state to write.
type ProjectUpsert struct {
	Type        string
	Status      string
	Description string
	Tags        []string
}

// TaskSuggestion is a follow-up task.
type TaskSuggestion struct {
	Title       string
	Description string
	Priority    string
}

// ContentSuggestion is a planned content item.
type ContentSuggestion struct {
	Title  string
	Type   string
	Status string
	Source string
}

// Result is the full classification of one change.
type Result struct {
	Summary      Summary
	Project      ProjectUpsert
	Tasks        []TaskSuggestion
	ContentItems []ContentSuggestion
	LogMessage   string
}

// Classify applies the brand's rule tables to d.
func Classify(d scan.Descriptor, kind ChangeKind) (Result, error) {
	f := Facts{Name: d.Name, Files: d.Files}

	var res Result
	switch d.Brand {
	case scan.BrandTech:
		res = classifyTech(d, f)
	case scan.BrandRecords:
		res = classifyRecords(d, f)
	default:
		return Result{}, fmt.Errorf("unknown brand %q for %s: %w", d.Brand, d.Path, perrors.ErrInvalidInput)
	}

	res.Project = ProjectUpsert{
		Type:        res.Summary.Type,
		Status:      res.Summary.Status,
		Description: res.Summary.Description,
		Tags:        append([]string(nil), res.Summary.Tags...),
	}
	res.LogMessage = fmt.Sprintf("%s: %s (%s)", kind, d.Name, d.Brand)
	return res, nil
}

func classifyTech(d scan.Descriptor, f Facts) Result {
	projectType := TechTypeRules.Resolve(f, TypeCodeProject)
	status := TechStatusRules.Resolve(f, StatusPrototype)

	res := Result{Summary: Summary{
		Name:        d.Name,
		Brand:       d.Brand,
		Description: fmt.Sprintf("Tech project inferred from filesystem (%s).", projectType),
		Type:        projectType,
		Status:      status,
		Tags:        []string{projectType, "automation", "ai"},
	}}

	if !hasReadme(f) {
		res.Tasks = append(res.Tasks, TaskSuggestion{
			Title:       "Add README for project",
			Description: "Create a short README describing purpose and setup.",
			Priority:    PriorityMedium,
		})
	}
	if !hasTests(f) {
		res.Tasks = append(res.Tasks, TaskSuggestion{
			Title:       "Add minimal tests",
			Description: "Create basic tests to validate core functionality.",
			Priority:    PriorityMedium,
		})
	}
	if status == StatusReadyForDemo {
		res.ContentItems = append(res.ContentItems, ContentSuggestion{
			Title:  "Demo: " + d.Name,
			Type:   "case_study",
			Status: StatusIdea,
			Source: SourceFilesystemSync,
		})
	}
	return res
}

func classifyRecords(d scan.Descriptor, f Facts) Result {
	projectType := RecordsTypeRules.Resolve(f, TypeSong)
	status := RecordsStatusRules.Resolve(f, StatusIdea)

	res := Result{Summary: Summary{
		Name:        d.Name,
		Brand:       d.Brand,
		Description: fmt.Sprintf("Records project inferred from filesystem (%s).", projectType),
		Type:        projectType,
		Status:      status,
		Tags:        []string{projectType, "records"},
	}}

	switch status {
	case StatusProduction, StatusMix:
		res.Tasks = append(res.Tasks, TaskSuggestion{
			Title:       "Get feedback on latest version",
			Description: "Share mix with trusted listeners and collect notes.",
			Priority:    PriorityMedium,
		})
	case StatusReadyForRelease:
		res.Tasks = append(res.Tasks, TaskSuggestion{
			Title:       "Create release plan",
			Description: "Define release date, artwork, and distribution steps.",
			Priority:    PriorityHigh,
		})
	}
	switch status {
	case StatusProduction, StatusMix, StatusReadyForRelease:
		res.ContentItems = append(res.ContentItems, ContentSuggestion{
			Title:  "Teaser: " + d.Name,
			Type:   "teaser",
			Status: StatusIdea,
			Source: SourceFilesystemSync,
		})
	}
	return res
}
