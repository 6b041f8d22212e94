package domain

import (
	"regexp"
	"strings"
	"time"
)

const (
	maxTagNameLength        = 20
	maxTagDescriptionLength = 100
)

var (
	tagNamePattern = regexp.MustCompile(`^[a-zA-Z0-9_-]+$`)
	hexColorPattern = regexp.MustCompile(`^#[0-9A-Fa-f]{6}$`)
)

// Tag is a categorization node in the tag hierarchy. Parent/child links are
// id references resolved through the hierarchy manager, never pointers, so
// the whole forest stays trivially serializable.
type Tag struct {
	ID            string     `json:"id"`
	Name          string     `json:"name"`
	Description   string     `json:"description"`
	Color         string     `json:"color"`
	ParentID      string     `json:"parent_id,omitempty"`
	Aliases       []string   `json:"aliases,omitempty"`
	UsageCount    int        `json:"usage_count"`
	QuestionCount int        `json:"question_count"`
	LastUsed      *time.Time `json:"last_used,omitempty"`
	CreatedAt     time.Time  `json:"created_at"`
}

// NewTag creates a new Tag instance. The ID is assigned by the hierarchy
// manager on insert.
func NewTag(name, description, color, parentID string) *Tag {
	return &Tag{
		Name:        strings.TrimSpace(name),
		Description: strings.TrimSpace(description),
		Color:       strings.TrimSpace(color),
		ParentID:    parentID,
		CreatedAt:   time.Now(),
	}
}

// Validate validates the tag fields
func (t *Tag) Validate() error {
	if t.Name == "" {
		return NewValidationError("tag name cannot be empty")
	}
	if len(t.Name) > maxTagNameLength {
		return NewValidationError("tag name cannot exceed 20 characters")
	}
	if !tagNamePattern.MatchString(t.Name) {
		return NewValidationError("tag name can only contain alphanumeric characters, hyphens, and underscores")
	}
	if len(t.Description) > maxTagDescriptionLength {
		return NewValidationError("tag description cannot exceed 100 characters")
	}
	if t.Color != "" && !hexColorPattern.MatchString(t.Color) {
		return NewValidationError("tag color must be a hex color code such as #FF0000")
	}
	if t.UsageCount < 0 {
		return NewValidationError("usage count cannot be negative")
	}
	for _, alias := range t.Aliases {
		alias = strings.TrimSpace(alias)
		if alias == "" {
			return NewValidationError("aliases must be non-empty strings")
		}
		if len(alias) > maxTagNameLength {
			return NewValidationError("aliases cannot exceed 20 characters")
		}
		if !tagNamePattern.MatchString(alias) {
			return NewValidationError("aliases can only contain alphanumeric characters, hyphens, and underscores")
		}
	}
	return nil
}

// IsRoot reports whether the tag has no parent.
func (t *Tag) IsRoot() bool {
	return t.ParentID == ""
}

// HasAlias reports whether the tag carries the alias, case-insensitively.
func (t *Tag) HasAlias(alias string) bool {
	alias = strings.ToLower(strings.TrimSpace(alias))
	for _, a := range t.Aliases {
		if strings.ToLower(a) == alias {
			return true
		}
	}
	return false
}

// AddAlias appends an alias if not already present.
func (t *Tag) AddAlias(alias string) {
	alias = strings.TrimSpace(alias)
	if alias == "" || t.HasAlias(alias) {
		return
	}
	t.Aliases = append(t.Aliases, alias)
}

// MarkUsed increments the usage count and refreshes the last-used timestamp.
func (t *Tag) MarkUsed(now time.Time) {
	t.UsageCount++
	t.LastUsed = &now
}

// Clone returns a deep copy. The hierarchy manager hands out clones so
// callers can never mutate stored tags directly.
func (t *Tag) Clone() *Tag {
	c := *t
	if t.Aliases != nil {
		c.Aliases = append([]string(nil), t.Aliases...)
	}
	if t.LastUsed != nil {
		lu := *t.LastUsed
		c.LastUsed = &lu
	}
	return &c
}
