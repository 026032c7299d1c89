package geomodelgrids

import (
	"fmt"

	"github.com/geomodelgrids/goquery/container"
)

// ModelInfo holds a model's descriptive, human-facing metadata — the
// attributes that never participate in a query but are surfaced to callers
// via the Model.Info field or the "summary" command (§3, §6.1).
type ModelInfo struct {
	Title       string
	ID          string
	Description string
	Keywords    []string

	History string
	Comment string

	CreatorName        string
	CreatorEmail       string
	CreatorInstitution string
	Acknowledgement    string

	Authors    []string
	References []string

	RepositoryName string
	RepositoryURL  string
	RepositoryDOI  string

	Version string
	License string

	// Auxiliary is the raw JSON text of the optional "auxiliary" root
	// attribute, left undecoded since its schema is model-specific.
	Auxiliary string
}

func loadModelInfo(adapter container.Adapter) (*ModelInfo, error) {
	info := &ModelInfo{}

	stringAttrs := []struct {
		name string
		dest *string
	}{
		{"title", &info.Title},
		{"id", &info.ID},
		{"description", &info.Description},
		{"history", &info.History},
		{"comment", &info.Comment},
		{"creator_name", &info.CreatorName},
		{"creator_email", &info.CreatorEmail},
		{"creator_institution", &info.CreatorInstitution},
		{"acknowledgement", &info.Acknowledgement},
		{"repository_name", &info.RepositoryName},
		{"repository_url", &info.RepositoryURL},
		{"repository_doi", &info.RepositoryDOI},
		{"version", &info.Version},
		{"license", &info.License},
	}
	for _, attr := range stringAttrs {
		if !adapter.HasAttribute("", attr.name) {
			continue
		}
		v, err := adapter.ReadAttributeString("", attr.name)
		if err != nil {
			return nil, fmt.Errorf("%w: root attribute %q: %v", ErrBadMetadata, attr.name, err)
		}
		*attr.dest = v
	}

	if adapter.HasAttribute("", "auxiliary") {
		v, err := adapter.ReadAttributeString("", "auxiliary")
		if err != nil {
			return nil, fmt.Errorf("%w: root attribute \"auxiliary\": %v", ErrBadMetadata, err)
		}
		info.Auxiliary = v
	}

	arrayAttrs := []struct {
		name string
		dest *[]string
	}{
		{"keywords", &info.Keywords},
		{"authors", &info.Authors},
		{"references", &info.References},
	}
	for _, attr := range arrayAttrs {
		if !adapter.HasAttribute("", attr.name) {
			continue
		}
		v, err := adapter.ReadAttributeStringArray("", attr.name)
		if err != nil {
			return nil, fmt.Errorf("%w: root attribute %q: %v", ErrBadMetadata, attr.name, err)
		}
		*attr.dest = v
	}

	return info, nil
}
