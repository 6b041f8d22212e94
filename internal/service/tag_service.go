package service

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"quizforge/internal/domain"
	"quizforge/internal/logger"
	"quizforge/internal/repository"
	"quizforge/internal/util"

	"go.uber.org/zap"
)

// TagUpdate carries the fields of an update; nil means "leave unchanged".
type TagUpdate struct {
	Name        *string
	Description *string
	Color       *string
	ParentID    *string
	Aliases     *[]string
}

// TagUsage is one entry of the most-used ranking.
type TagUsage struct {
	Name       string `json:"name"`
	UsageCount int    `json:"usage_count"`
}

// TagStatistics aggregates derived numbers over the whole hierarchy.
type TagStatistics struct {
	TotalTags         int         `json:"total_tags"`
	RootTags          int         `json:"root_tags"`
	LeafTags          int         `json:"leaf_tags"`
	MaxDepth          int         `json:"max_depth"`
	AverageUsage      float64     `json:"average_usage"`
	AverageQuestions  float64     `json:"average_questions"`
	MostUsedTags      []TagUsage  `json:"most_used_tags"`
	UnusedTags        []string    `json:"unused_tags"`
	DepthDistribution map[int]int `json:"depth_distribution"`
}

// TagPersister saves the full hierarchy after a mutation. Implemented by
// repository.FileTagStore.
type TagPersister interface {
	Save(tags []*domain.Tag) error
}

// TagService is the tag hierarchy manager. It owns every mutation of the tag
// forest and maintains two invariants: names and aliases are unique
// case-insensitively across the whole collection, and the parent-pointer
// graph is acyclic. Mutating operations validate completely before touching
// any state, so a failure leaves the hierarchy unchanged.
type TagService struct {
	mu        sync.RWMutex
	store     *repository.TagStore
	questions domain.QuestionRepository
	persister TagPersister
}

// NewTagService creates a new TagService. The question repository may be nil
// when no question reassignment on delete/merge is needed (e.g. tests).
func NewTagService(store *repository.TagStore, questions domain.QuestionRepository) *TagService {
	return &TagService{store: store, questions: questions}
}

// SetQuestionRepository wires in the question repository after construction.
// The repository resolves tag names through this service, so the two are
// built in sequence and linked here.
func (s *TagService) SetQuestionRepository(questions domain.QuestionRepository) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.questions = questions
}

// SetPersister enables durable storage: every mutation writes the hierarchy
// through it.
func (s *TagService) SetPersister(p TagPersister) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.persister = p
}

// ImportTags hydrates the store from persisted tags, replacing nothing that
// is already there. Used at startup before the service is handed out.
func (s *TagService) ImportTags(tags []*domain.Tag) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, tag := range tags {
		if tag != nil && s.store.Get(tag.ID) == nil {
			s.store.Put(tag.Clone())
		}
	}
}

// persistLocked writes the hierarchy out. Hierarchy-mutating operations
// surface the failure so a caller never mistakes an undurable change for a
// durable one; usage-counter touches log it and retry on the next mutation.
func (s *TagService) persistLocked() error {
	if s.persister == nil {
		return nil
	}
	return s.persister.Save(s.store.All())
}

func (s *TagService) persistCountersLocked() {
	if err := s.persistLocked(); err != nil {
		logger.Get().Warn("Failed to persist tag hierarchy", zap.Error(err))
	}
}

// CreateTag creates a new tag under an optional parent.
func (s *TagService) CreateTag(name, description, color, parentID string, aliases []string) (*domain.Tag, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	tag := domain.NewTag(name, description, color, parentID)
	for _, alias := range aliases {
		tag.AddAlias(alias)
	}
	if err := tag.Validate(); err != nil {
		return nil, err
	}

	if err := s.checkNamesAvailable(tag.Name, tag.Aliases, ""); err != nil {
		return nil, err
	}
	if parentID != "" && s.store.Get(parentID) == nil {
		return nil, domain.NewInvalidParentError(parentID)
	}

	tag.ID = util.NewULID()
	s.store.Put(tag)
	if err := s.persistLocked(); err != nil {
		return nil, err
	}

	logger.Get().Info("Created tag",
		zap.String("id", tag.ID),
		zap.String("name", tag.Name),
		zap.String("parent_id", tag.ParentID))
	return tag.Clone(), nil
}

// UpdateTag applies a partial update. Validation runs against a proposed copy
// of the tag; nothing is mutated unless every check passes.
func (s *TagService) UpdateTag(id string, upd TagUpdate) (*domain.Tag, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	current := s.store.Get(id)
	if current == nil {
		return nil, domain.NewTagNotFoundError(id)
	}

	proposed := current.Clone()
	if upd.Name != nil {
		proposed.Name = strings.TrimSpace(*upd.Name)
	}
	if upd.Description != nil {
		proposed.Description = strings.TrimSpace(*upd.Description)
	}
	if upd.Color != nil {
		proposed.Color = strings.TrimSpace(*upd.Color)
	}
	if upd.ParentID != nil {
		proposed.ParentID = *upd.ParentID
	}
	if upd.Aliases != nil {
		proposed.Aliases = nil
		for _, alias := range *upd.Aliases {
			proposed.AddAlias(alias)
		}
	}

	if err := proposed.Validate(); err != nil {
		return nil, err
	}
	if err := s.checkNamesAvailable(proposed.Name, proposed.Aliases, id); err != nil {
		return nil, err
	}
	if upd.ParentID != nil && proposed.ParentID != "" {
		if proposed.ParentID == id {
			return nil, domain.NewCycleError(id)
		}
		parent := s.store.Get(proposed.ParentID)
		if parent == nil {
			return nil, domain.NewInvalidParentError(proposed.ParentID)
		}
		if s.isDescendantLocked(proposed.ParentID, id) {
			return nil, domain.NewCycleError(id)
		}
	}

	s.store.Put(proposed)
	if err := s.persistLocked(); err != nil {
		return nil, err
	}
	logger.Get().Info("Updated tag", zap.String("id", id), zap.String("name", proposed.Name))
	return proposed.Clone(), nil
}

// DeleteTag removes a tag. When the tag has children a reassignment target is
// required; children and question associations are repointed before the tag
// disappears.
func (s *TagService) DeleteTag(ctx context.Context, id, reassignTo string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	tag := s.store.Get(id)
	if tag == nil {
		return domain.NewTagNotFoundError(id)
	}

	childIDs := s.store.Children(id)
	if len(childIDs) > 0 && reassignTo == "" {
		return domain.NewValidationError("cannot delete tag '" + tag.Name + "': it has child tags and no reassignment target was given")
	}

	var target *domain.Tag
	if reassignTo != "" {
		if reassignTo == id {
			return domain.NewValidationError("cannot reassign a tag to itself")
		}
		target = s.store.Get(reassignTo)
		if target == nil {
			return domain.NewTagNotFoundError(reassignTo)
		}
		// Repointing a child to its own descendant would close a loop.
		for _, childID := range childIDs {
			if childID == reassignTo || s.isDescendantLocked(reassignTo, childID) {
				return domain.NewCycleError(childID)
			}
		}
	}

	if s.questions != nil {
		if err := s.questions.ReassignTag(ctx, id, reassignTo); err != nil {
			return domain.NewPersistenceError("failed to reassign question associations", err)
		}
	}

	for _, childID := range childIDs {
		child := s.store.Get(childID).Clone()
		child.ParentID = reassignTo
		s.store.Put(child)
	}
	if target != nil {
		updated := target.Clone()
		updated.QuestionCount += tag.QuestionCount
		s.store.Put(updated)
	}
	s.store.Remove(id)
	if err := s.persistLocked(); err != nil {
		return err
	}

	logger.Get().Info("Deleted tag",
		zap.String("id", id),
		zap.String("name", tag.Name),
		zap.String("reassigned_to", reassignTo))
	return nil
}

// MergeTags folds source into target: children, aliases, and question
// associations move over, then source is removed. Observers under the manager
// lock never see a partially merged state.
func (s *TagService) MergeTags(ctx context.Context, sourceID, targetID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	source := s.store.Get(sourceID)
	if source == nil {
		return domain.NewTagNotFoundError(sourceID)
	}
	target := s.store.Get(targetID)
	if target == nil {
		return domain.NewTagNotFoundError(targetID)
	}
	if sourceID == targetID {
		return domain.NewValidationError("cannot merge a tag with itself")
	}

	childIDs := s.store.Children(sourceID)
	for _, childID := range childIDs {
		if childID == targetID || s.isDescendantLocked(targetID, childID) {
			return domain.NewCycleError(childID)
		}
	}

	if s.questions != nil {
		if err := s.questions.ReassignTag(ctx, sourceID, targetID); err != nil {
			return domain.NewPersistenceError("failed to transfer question associations", err)
		}
	}

	for _, childID := range childIDs {
		child := s.store.Get(childID).Clone()
		child.ParentID = targetID
		s.store.Put(child)
	}

	merged := target.Clone()
	for _, alias := range source.Aliases {
		merged.AddAlias(alias)
	}
	merged.QuestionCount += source.QuestionCount
	s.store.Remove(sourceID)
	s.store.Put(merged)
	if err := s.persistLocked(); err != nil {
		return err
	}

	logger.Get().Info("Merged tags",
		zap.String("source", source.Name),
		zap.String("target", merged.Name))
	return nil
}

// GetTag returns a copy of the tag by id.
func (s *TagService) GetTag(id string) (*domain.Tag, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	tag := s.store.Get(id)
	if tag == nil {
		return nil, domain.NewTagNotFoundError(id)
	}
	return tag.Clone(), nil
}

// GetTagByName returns a copy of the tag matching the name or alias.
func (s *TagService) GetTagByName(name string) (*domain.Tag, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	tag := s.store.GetByName(name)
	if tag == nil {
		return nil, domain.NewTagNotFoundError(name)
	}
	return tag.Clone(), nil
}

// GetAllTags returns copies of every tag sorted by name.
func (s *TagService) GetAllTags() []*domain.Tag {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return cloneAll(s.store.All())
}

// GetRootTags returns every tag without a parent.
func (s *TagService) GetRootTags() []*domain.Tag {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var roots []*domain.Tag
	for _, tag := range s.store.All() {
		if tag.IsRoot() {
			roots = append(roots, tag.Clone())
		}
	}
	return roots
}

// GetChildren returns the direct children of a tag, sorted by name.
func (s *TagService) GetChildren(id string) []*domain.Tag {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return cloneAll(s.childrenLocked(id))
}

// GetDescendants returns children, grandchildren, and so on, depth-first.
func (s *TagService) GetDescendants(id string) []*domain.Tag {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []*domain.Tag
	var walk func(string)
	walk = func(parentID string) {
		for _, child := range s.childrenLocked(parentID) {
			out = append(out, child.Clone())
			walk(child.ID)
		}
	}
	walk(id)
	return out
}

// GetAncestors returns the chain of parents up to the root.
func (s *TagService) GetAncestors(id string) []*domain.Tag {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []*domain.Tag
	tag := s.store.Get(id)
	for tag != nil && tag.ParentID != "" {
		parent := s.store.Get(tag.ParentID)
		if parent == nil {
			break
		}
		out = append(out, parent.Clone())
		tag = parent
	}
	return out
}

// GetDepth returns the depth of a tag in the hierarchy, 0 for roots.
func (s *TagService) GetDepth(id string) int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.depthLocked(id)
}

// GetFullPath returns the names from the root down to the tag joined by
// " > ", e.g. "Science > Physics > Mechanics".
func (s *TagService) GetFullPath(id string) string {
	s.mu.RLock()
	defer s.mu.RUnlock()

	tag := s.store.Get(id)
	if tag == nil {
		return ""
	}
	parts := []string{tag.Name}
	seen := map[string]bool{tag.ID: true}
	for tag.ParentID != "" {
		parent := s.store.Get(tag.ParentID)
		if parent == nil || seen[parent.ID] {
			break
		}
		parts = append([]string{parent.Name}, parts...)
		seen[parent.ID] = true
		tag = parent
	}
	return strings.Join(parts, " > ")
}

// SearchTags matches the term against names, descriptions, and aliases,
// case-insensitively.
func (s *TagService) SearchTags(term string) []*domain.Tag {
	s.mu.RLock()
	defer s.mu.RUnlock()

	term = strings.ToLower(strings.TrimSpace(term))
	var out []*domain.Tag
	for _, tag := range s.store.All() {
		if strings.Contains(strings.ToLower(tag.Name), term) ||
			strings.Contains(strings.ToLower(tag.Description), term) {
			out = append(out, tag.Clone())
			continue
		}
		for _, alias := range tag.Aliases {
			if strings.Contains(strings.ToLower(alias), term) {
				out = append(out, tag.Clone())
				break
			}
		}
	}
	return out
}

// ValidateTagHierarchy runs a full consistency sweep and returns
// human-readable issues. It is a diagnostic audit, not a blocking check, so
// it reports rather than fails.
func (s *TagService) ValidateTagHierarchy() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var issues []string
	for _, tag := range s.store.All() {
		if tag.ParentID != "" && s.store.Get(tag.ParentID) == nil {
			issues = append(issues, "tag '"+tag.Name+"' references missing parent "+tag.ParentID)
		}
		if s.hasCycleLocked(tag.ID) {
			issues = append(issues, "circular reference detected for tag '"+tag.Name+"'")
		}
	}
	return issues
}

// GetTagStatistics computes derived statistics over the hierarchy. Tags whose
// last use is older than unusedWindow (or that were never used) are reported
// as unused.
func (s *TagService) GetTagStatistics(unusedWindow time.Duration) *TagStatistics {
	s.mu.RLock()
	defer s.mu.RUnlock()

	stats := &TagStatistics{DepthDistribution: map[int]int{}}
	tags := s.store.All()
	stats.TotalTags = len(tags)
	if len(tags) == 0 {
		return stats
	}

	cutoff := time.Now().Add(-unusedWindow)
	var totalUsage, totalQuestions int
	for _, tag := range tags {
		if tag.IsRoot() {
			stats.RootTags++
		}
		if len(s.store.Children(tag.ID)) == 0 {
			stats.LeafTags++
		}
		depth := s.depthLocked(tag.ID)
		stats.DepthDistribution[depth]++
		if depth > stats.MaxDepth {
			stats.MaxDepth = depth
		}
		totalUsage += tag.UsageCount
		totalQuestions += tag.QuestionCount
		if tag.LastUsed == nil || tag.LastUsed.Before(cutoff) {
			stats.UnusedTags = append(stats.UnusedTags, tag.Name)
		}
	}
	stats.AverageUsage = float64(totalUsage) / float64(len(tags))
	stats.AverageQuestions = float64(totalQuestions) / float64(len(tags))

	ranked := append([]*domain.Tag(nil), tags...)
	sort.Slice(ranked, func(i, j int) bool { return ranked[i].UsageCount > ranked[j].UsageCount })
	for i, tag := range ranked {
		if i == 5 {
			break
		}
		stats.MostUsedTags = append(stats.MostUsedTags, TagUsage{Name: tag.Name, UsageCount: tag.UsageCount})
	}
	return stats
}

// TouchUsage bumps usage counters for the given tag ids; the quiz generator
// calls this whenever it hands out questions, which feeds the usage-aware
// selection strategies.
func (s *TagService) TouchUsage(ids []string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	now := time.Now()
	for _, id := range ids {
		if tag := s.store.Get(id); tag != nil {
			updated := tag.Clone()
			updated.MarkUsed(now)
			s.store.Put(updated)
		}
	}
	s.persistCountersLocked()
}

// AdjustQuestionCount shifts the question counter of a tag, clamped at zero.
func (s *TagService) AdjustQuestionCount(name string, delta int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	tag := s.store.GetByName(name)
	if tag == nil {
		return
	}
	updated := tag.Clone()
	updated.QuestionCount += delta
	if updated.QuestionCount < 0 {
		updated.QuestionCount = 0
	}
	s.store.Put(updated)
	s.persistCountersLocked()
}

// ResolveTagNames implements domain.TagResolver: names and aliases map to
// ids, unknown names are skipped.
func (s *TagService) ResolveTagNames(names []string) []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var ids []string
	for _, name := range names {
		if tag := s.store.GetByName(name); tag != nil {
			ids = append(ids, tag.ID)
		}
	}
	return ids
}

// checkNamesAvailable verifies name plus aliases against every stored name
// and alias (excluding the tag itself) and against each other.
func (s *TagService) checkNamesAvailable(name string, aliases []string, exceptID string) error {
	if s.store.NameInUse(name, exceptID) {
		return domain.NewDuplicateNameError(name)
	}
	seen := map[string]bool{strings.ToLower(name): true}
	for _, alias := range aliases {
		key := strings.ToLower(alias)
		if seen[key] {
			return domain.NewDuplicateNameError(alias)
		}
		seen[key] = true
		if s.store.NameInUse(alias, exceptID) {
			return domain.NewDuplicateNameError(alias)
		}
	}
	return nil
}

func (s *TagService) childrenLocked(parentID string) []*domain.Tag {
	ids := s.store.Children(parentID)
	children := make([]*domain.Tag, 0, len(ids))
	for _, id := range ids {
		if tag := s.store.Get(id); tag != nil {
			children = append(children, tag)
		}
	}
	sort.Slice(children, func(i, j int) bool {
		return strings.ToLower(children[i].Name) < strings.ToLower(children[j].Name)
	})
	return children
}

// isDescendantLocked reports whether candidate sits somewhere below ancestor.
func (s *TagService) isDescendantLocked(candidate, ancestor string) bool {
	tag := s.store.Get(candidate)
	seen := map[string]bool{}
	for tag != nil && tag.ParentID != "" && !seen[tag.ID] {
		if tag.ParentID == ancestor {
			return true
		}
		seen[tag.ID] = true
		tag = s.store.Get(tag.ParentID)
	}
	return false
}

func (s *TagService) depthLocked(id string) int {
	depth := 0
	tag := s.store.Get(id)
	seen := map[string]bool{}
	for tag != nil && tag.ParentID != "" && !seen[tag.ID] {
		seen[tag.ID] = true
		tag = s.store.Get(tag.ParentID)
		if tag != nil {
			depth++
		}
	}
	return depth
}

func (s *TagService) hasCycleLocked(id string) bool {
	seen := map[string]bool{}
	tag := s.store.Get(id)
	for tag != nil && tag.ParentID != "" {
		if seen[tag.ID] {
			return true
		}
		seen[tag.ID] = true
		tag = s.store.Get(tag.ParentID)
	}
	return false
}

func cloneAll(tags []*domain.Tag) []*domain.Tag {
	out := make([]*domain.Tag, len(tags))
	for i, t := range tags {
		out[i] = t.Clone()
	}
	return out
}
