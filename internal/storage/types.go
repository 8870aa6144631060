package storage

import "slices"

// FacetFolderish marks documents that can hold children.
const FacetFolderish = "Folderish"

// Document is a document entity as returned by the REST API.
type Document struct {
	EntityType string         `json:"entity-type"`
	Repository string         `json:"repository,omitempty"`
	UID        string         `json:"uid"`
	Path       string         `json:"path"`
	Type       string         `json:"type"`
	State      string         `json:"state,omitempty"`
	Title      string         `json:"title"`
	Facets     []string       `json:"facets,omitempty"`
	Properties map[string]any `json:"properties,omitempty"`
}

// IsFolderish reports whether the document can contain other documents.
func (d Document) IsFolderish() bool {
	return slices.Contains(d.Facets, FacetFolderish)
}

// DocumentList is a page of documents.
type DocumentList struct {
	EntityType          string     `json:"entity-type"`
	IsPaginable         bool       `json:"isPaginable"`
	CurrentPageIndex    int        `json:"currentPageIndex"`
	PageSize            int        `json:"pageSize"`
	NumberOfPages       int        `json:"numberOfPages"`
	IsNextPageAvailable bool       `json:"isNextPageAvailable"`
	Entries             []Document `json:"entries"`
}
