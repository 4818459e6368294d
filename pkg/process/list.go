package process

import (
	"errors"

	"github.com/dukex/pvm/pkg/template"
)

// Summary describes the latest public version of a process.
type Summary struct {
	ID          string   `json:"id"`
	Version     string   `json:"version"`
	Name        string   `json:"name"`
	Description string   `json:"description"`
	Author      string   `json:"author"`
	Date        string   `json:"date"`
	Versions    []string `json:"versions"`
}

// List returns public processes in dir grouped by id, each listing all its
// versions latest first. Files that fail to load are skipped and reported in
// the returned error.
func List(dir string) ([]*Summary, error) {
	files, err := versionsOf(dir, "")
	if err != nil {
		return nil, err
	}

	var (
		summaries []*Summary
		failures  []error
		current   *Summary
	)

	for _, file := range files {
		if current != nil && current.ID == file.id {
			current.Versions = append(current.Versions, file.version)

			continue
		}

		definition, err := LoadFile(file.path)
		if err != nil {
			failures = append(failures, err)

			continue
		}

		current = &Summary{
			ID:          definition.ID,
			Version:     definition.Version,
			Name:        definition.Header.Name,
			Description: definition.Header.Description,
			Author:      definition.Header.Author,
			Date:        definition.Header.Date,
			Versions:    []string{definition.Version},
		}

		if definition.Header.Public {
			summaries = append(summaries, current)
		}
	}

	return summaries, errors.Join(failures...)
}

// RenderName renders the header name template with form data.
func (d *Definition) RenderName(forms map[string]map[string]any) (string, error) {
	return template.RenderForms(d.Header.Name, forms)
}

// RenderDescription renders the header description template with form data.
func (d *Definition) RenderDescription(forms map[string]map[string]any) (string, error) {
	return template.RenderForms(d.Header.Description, forms)
}
