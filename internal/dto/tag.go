package dto

import (
	"time"

	"quizforge/internal/domain"
)

// CreateTagRequest is the payload for creating a tag.
type CreateTagRequest struct {
	Name        string   `json:"name"`
	Description string   `json:"description"`
	Color       string   `json:"color"`
	ParentID    string   `json:"parent_id"`
	Aliases     []string `json:"aliases"`
}

// UpdateTagRequest is a partial update; omitted fields stay untouched.
type UpdateTagRequest struct {
	Name        *string   `json:"name"`
	Description *string   `json:"description"`
	Color       *string   `json:"color"`
	ParentID    *string   `json:"parent_id"`
	Aliases     *[]string `json:"aliases"`
}

// MergeTagsRequest folds source into target.
type MergeTagsRequest struct {
	SourceID string `json:"source_id"`
	TargetID string `json:"target_id"`
}

// TagResponse is a tag enriched with its place in the hierarchy.
type TagResponse struct {
	ID            string     `json:"id"`
	Name          string     `json:"name"`
	Description   string     `json:"description,omitempty"`
	Color         string     `json:"color,omitempty"`
	ParentID      string     `json:"parent_id,omitempty"`
	Aliases       []string   `json:"aliases,omitempty"`
	UsageCount    int        `json:"usage_count"`
	QuestionCount int        `json:"question_count"`
	LastUsed      *time.Time `json:"last_used,omitempty"`
	CreatedAt     time.Time  `json:"created_at"`
	Depth         int        `json:"depth"`
	FullPath      string     `json:"full_path"`
}

// NewTagResponse builds the response shape from a domain tag.
func NewTagResponse(tag *domain.Tag, depth int, fullPath string) TagResponse {
	return TagResponse{
		ID:            tag.ID,
		Name:          tag.Name,
		Description:   tag.Description,
		Color:         tag.Color,
		ParentID:      tag.ParentID,
		Aliases:       tag.Aliases,
		UsageCount:    tag.UsageCount,
		QuestionCount: tag.QuestionCount,
		LastUsed:      tag.LastUsed,
		CreatedAt:     tag.CreatedAt,
		Depth:         depth,
		FullPath:      fullPath,
	}
}

// TagListResponse wraps a tag listing.
type TagListResponse struct {
	Tags  []TagResponse `json:"tags"`
	Count int           `json:"count"`
}

// HierarchyValidationResponse reports the issues found by a full audit.
type HierarchyValidationResponse struct {
	Valid  bool     `json:"valid"`
	Issues []string `json:"issues,omitempty"`
}
