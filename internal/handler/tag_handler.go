package handler

import (
	"bytes"
	"encoding/csv"
	"encoding/json"
	"strconv"
	"strings"
	"time"

	"quizforge/internal/domain"
	"quizforge/internal/dto"
	"quizforge/internal/service"

	"github.com/gofiber/fiber/v2"
)

// TagHandler exposes the tag hierarchy over HTTP.
type TagHandler struct {
	tags *service.TagService
}

// NewTagHandler creates a new TagHandler.
func NewTagHandler(tags *service.TagService) *TagHandler {
	return &TagHandler{tags: tags}
}

// RegisterRoutes mounts the tag endpoints under the given router.
func (h *TagHandler) RegisterRoutes(router fiber.Router) {
	grp := router.Group("/tags")
	grp.Post("/", h.CreateTag)
	grp.Get("/", h.ListTags)
	grp.Get("/roots", h.ListRootTags)
	grp.Get("/validate", h.ValidateHierarchy)
	grp.Get("/stats", h.GetStatistics)
	grp.Get("/export", h.ExportTags)
	grp.Post("/merge", h.MergeTags)
	grp.Get("/:id", h.GetTag)
	grp.Put("/:id", h.UpdateTag)
	grp.Delete("/:id", h.DeleteTag)
	grp.Get("/:id/children", h.GetChildren)
	grp.Get("/:id/descendants", h.GetDescendants)
	grp.Get("/:id/ancestors", h.GetAncestors)
}

// CreateTag handles POST /tags
func (h *TagHandler) CreateTag(c *fiber.Ctx) error {
	var req dto.CreateTagRequest
	if err := c.BodyParser(&req); err != nil {
		return domain.NewValidationError("invalid request body")
	}
	tag, err := h.tags.CreateTag(req.Name, req.Description, req.Color, req.ParentID, req.Aliases)
	if err != nil {
		return err
	}
	return c.Status(fiber.StatusCreated).JSON(h.respond(tag))
}

// ListTags handles GET /tags, optionally filtered by ?search=term.
func (h *TagHandler) ListTags(c *fiber.Ctx) error {
	var tags []*domain.Tag
	if term := c.Query("search"); term != "" {
		tags = h.tags.SearchTags(term)
	} else {
		tags = h.tags.GetAllTags()
	}
	return c.JSON(h.respondList(tags))
}

// ListRootTags handles GET /tags/roots
func (h *TagHandler) ListRootTags(c *fiber.Ctx) error {
	return c.JSON(h.respondList(h.tags.GetRootTags()))
}

// GetTag handles GET /tags/:id; the id may also be a name or alias.
func (h *TagHandler) GetTag(c *fiber.Ctx) error {
	tag, err := h.tags.GetTag(c.Params("id"))
	if err != nil {
		if tag, nameErr := h.tags.GetTagByName(c.Params("id")); nameErr == nil {
			return c.JSON(h.respond(tag))
		}
		return err
	}
	return c.JSON(h.respond(tag))
}

// UpdateTag handles PUT /tags/:id
func (h *TagHandler) UpdateTag(c *fiber.Ctx) error {
	var req dto.UpdateTagRequest
	if err := c.BodyParser(&req); err != nil {
		return domain.NewValidationError("invalid request body")
	}
	tag, err := h.tags.UpdateTag(c.Params("id"), service.TagUpdate{
		Name:        req.Name,
		Description: req.Description,
		Color:       req.Color,
		ParentID:    req.ParentID,
		Aliases:     req.Aliases,
	})
	if err != nil {
		return err
	}
	return c.JSON(h.respond(tag))
}

// DeleteTag handles DELETE /tags/:id?reassign_to=<id>
func (h *TagHandler) DeleteTag(c *fiber.Ctx) error {
	if err := h.tags.DeleteTag(c.Context(), c.Params("id"), c.Query("reassign_to")); err != nil {
		return err
	}
	return c.SendStatus(fiber.StatusNoContent)
}

// MergeTags handles POST /tags/merge
func (h *TagHandler) MergeTags(c *fiber.Ctx) error {
	var req dto.MergeTagsRequest
	if err := c.BodyParser(&req); err != nil {
		return domain.NewValidationError("invalid request body")
	}
	if err := h.tags.MergeTags(c.Context(), req.SourceID, req.TargetID); err != nil {
		return err
	}
	return c.SendStatus(fiber.StatusNoContent)
}

// GetChildren handles GET /tags/:id/children
func (h *TagHandler) GetChildren(c *fiber.Ctx) error {
	if _, err := h.tags.GetTag(c.Params("id")); err != nil {
		return err
	}
	return c.JSON(h.respondList(h.tags.GetChildren(c.Params("id"))))
}

// GetDescendants handles GET /tags/:id/descendants
func (h *TagHandler) GetDescendants(c *fiber.Ctx) error {
	if _, err := h.tags.GetTag(c.Params("id")); err != nil {
		return err
	}
	return c.JSON(h.respondList(h.tags.GetDescendants(c.Params("id"))))
}

// GetAncestors handles GET /tags/:id/ancestors
func (h *TagHandler) GetAncestors(c *fiber.Ctx) error {
	if _, err := h.tags.GetTag(c.Params("id")); err != nil {
		return err
	}
	return c.JSON(h.respondList(h.tags.GetAncestors(c.Params("id"))))
}

// ValidateHierarchy handles GET /tags/validate
func (h *TagHandler) ValidateHierarchy(c *fiber.Ctx) error {
	issues := h.tags.ValidateTagHierarchy()
	return c.JSON(dto.HierarchyValidationResponse{
		Valid:  len(issues) == 0,
		Issues: issues,
	})
}

// GetStatistics handles GET /tags/stats?unused_days=N (default 7).
func (h *TagHandler) GetStatistics(c *fiber.Ctx) error {
	days := 7
	if raw := c.Query("unused_days"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed < 0 {
			return domain.NewValidationError("unused_days must be a non-negative integer")
		}
		days = parsed
	}
	return c.JSON(h.tags.GetTagStatistics(time.Duration(days) * 24 * time.Hour))
}

// ExportTags handles GET /tags/export?format=json|csv
func (h *TagHandler) ExportTags(c *fiber.Ctx) error {
	responses := h.respondList(h.tags.GetAllTags()).Tags
	switch strings.ToLower(c.Query("format", "json")) {
	case "json":
		data, err := json.MarshalIndent(responses, "", "  ")
		if err != nil {
			return err
		}
		c.Set(fiber.HeaderContentType, fiber.MIMEApplicationJSON)
		return c.Send(data)
	case "csv":
		data, err := tagsToCSV(responses)
		if err != nil {
			return err
		}
		c.Set(fiber.HeaderContentType, "text/csv")
		return c.Send(data)
	default:
		return domain.NewInvalidFormatError(c.Query("format"))
	}
}

func (h *TagHandler) respond(tag *domain.Tag) dto.TagResponse {
	return dto.NewTagResponse(tag, h.tags.GetDepth(tag.ID), h.tags.GetFullPath(tag.ID))
}

func (h *TagHandler) respondList(tags []*domain.Tag) dto.TagListResponse {
	responses := make([]dto.TagResponse, len(tags))
	for i, tag := range tags {
		responses[i] = h.respond(tag)
	}
	return dto.TagListResponse{Tags: responses, Count: len(responses)}
}

func tagsToCSV(tags []dto.TagResponse) ([]byte, error) {
	var buf bytes.Buffer
	w := csv.NewWriter(&buf)
	if err := w.Write([]string{"id", "name", "full_path", "parent_id", "aliases", "usage_count", "question_count"}); err != nil {
		return nil, err
	}
	for _, tag := range tags {
		row := []string{
			tag.ID,
			tag.Name,
			tag.FullPath,
			tag.ParentID,
			strings.Join(tag.Aliases, ";"),
			strconv.Itoa(tag.UsageCount),
			strconv.Itoa(tag.QuestionCount),
		}
		if err := w.Write(row); err != nil {
			return nil, err
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
