package repository

import (
	"sort"
	"strings"

	"quizforge/internal/domain"
)

// TagStore is the in-memory indexed collection behind the tag hierarchy
// manager: id -> tag plus derived name, alias, and children indexes. It holds
// no business rules; uniqueness and acyclicity live in the manager. The store
// is not safe for concurrent use on its own; the manager serializes access.
type TagStore struct {
	tags     map[string]*domain.Tag
	byName   map[string]string   // lower(name) -> id
	byAlias  map[string]string   // lower(alias) -> id
	children map[string][]string // parent id -> child ids
}

// NewTagStore creates an empty TagStore.
func NewTagStore() *TagStore {
	return &TagStore{
		tags:     make(map[string]*domain.Tag),
		byName:   make(map[string]string),
		byAlias:  make(map[string]string),
		children: make(map[string][]string),
	}
}

// Get returns the stored tag by id, or nil.
func (s *TagStore) Get(id string) *domain.Tag {
	return s.tags[id]
}

// GetByName returns the tag whose name or alias matches, case-insensitively.
func (s *TagStore) GetByName(name string) *domain.Tag {
	key := strings.ToLower(strings.TrimSpace(name))
	if id, ok := s.byName[key]; ok {
		return s.tags[id]
	}
	if id, ok := s.byAlias[key]; ok {
		return s.tags[id]
	}
	return nil
}

// NameInUse reports whether the given name collides with any stored name or
// alias, excluding the tag with exceptID.
func (s *TagStore) NameInUse(name, exceptID string) bool {
	key := strings.ToLower(strings.TrimSpace(name))
	if id, ok := s.byName[key]; ok && id != exceptID {
		return true
	}
	if id, ok := s.byAlias[key]; ok && id != exceptID {
		return true
	}
	return false
}

// Put inserts or replaces a tag and rebuilds its index entries.
func (s *TagStore) Put(tag *domain.Tag) {
	if old := s.tags[tag.ID]; old != nil {
		s.unindex(old)
	}
	s.tags[tag.ID] = tag
	s.index(tag)
}

// Remove deletes a tag and all of its index entries.
func (s *TagStore) Remove(id string) {
	tag := s.tags[id]
	if tag == nil {
		return
	}
	s.unindex(tag)
	delete(s.tags, id)
	delete(s.children, id)
}

func (s *TagStore) index(tag *domain.Tag) {
	s.byName[strings.ToLower(tag.Name)] = tag.ID
	for _, alias := range tag.Aliases {
		s.byAlias[strings.ToLower(alias)] = tag.ID
	}
	if tag.ParentID != "" {
		s.children[tag.ParentID] = append(s.children[tag.ParentID], tag.ID)
	}
}

func (s *TagStore) unindex(tag *domain.Tag) {
	delete(s.byName, strings.ToLower(tag.Name))
	for _, alias := range tag.Aliases {
		delete(s.byAlias, strings.ToLower(alias))
	}
	if tag.ParentID != "" {
		s.children[tag.ParentID] = removeID(s.children[tag.ParentID], tag.ID)
		if len(s.children[tag.ParentID]) == 0 {
			delete(s.children, tag.ParentID)
		}
	}
}

// Children returns the ids of direct children of the given tag.
func (s *TagStore) Children(parentID string) []string {
	return append([]string(nil), s.children[parentID]...)
}

// All returns every stored tag sorted by name.
func (s *TagStore) All() []*domain.Tag {
	tags := make([]*domain.Tag, 0, len(s.tags))
	for _, t := range s.tags {
		tags = append(tags, t)
	}
	sort.Slice(tags, func(i, j int) bool {
		return strings.ToLower(tags[i].Name) < strings.ToLower(tags[j].Name)
	})
	return tags
}

// Len returns the number of stored tags.
func (s *TagStore) Len() int {
	return len(s.tags)
}

func removeID(ids []string, id string) []string {
	for i, v := range ids {
		if v == id {
			return append(ids[:i], ids[i+1:]...)
		}
	}
	return ids
}
