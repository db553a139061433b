package api

import (
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/efebarandurmaz/anzen/internal/catalog"
	"github.com/efebarandurmaz/anzen/internal/incident"
	"github.com/efebarandurmaz/anzen/internal/parse"
	"github.com/efebarandurmaz/anzen/internal/report"
	"github.com/efebarandurmaz/anzen/internal/search"
)

// Handler handles API requests.
type Handler struct {
	search  Searcher
	reports ReportGenerator
	cases   CaseRegistry
	logger  *slog.Logger
}

type pdfRequest struct {
	CategoryID            string             `json:"categoryId"`
	UserQuery             string             `json:"userQuery"`
	AdditionalSuggestions []parse.Suggestion `json:"additionalSuggestions"`
	Lang                  string             `json:"lang"`
}

// Search matches a work description to a category.
func (h *Handler) Search(c *gin.Context) {
	var req search.Request
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body."})
		return
	}

	resp, err := h.search.Search(c.Request.Context(), req)
	switch {
	case errors.Is(err, search.ErrEmptyQuery):
		c.JSON(http.StatusBadRequest, gin.H{"error": "Query text is required."})
	case errors.Is(err, search.ErrNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": "No matching category found."})
	case err != nil:
		_ = c.Error(err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "An internal server error occurred."})
	default:
		c.JSON(http.StatusOK, resp)
	}
}

// GeneratePDF renders the report for a matched category.
func (h *Handler) GeneratePDF(c *gin.Context) {
	var req pdfRequest
	if err := c.ShouldBindJSON(&req); err != nil ||
		strings.TrimSpace(req.CategoryID) == "" ||
		strings.TrimSpace(req.UserQuery) == "" ||
		req.AdditionalSuggestions == nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Required fields are missing."})
		return
	}

	url, err := h.reports.Generate(c.Request.Context(), report.Request{
		CategoryID:  req.CategoryID,
		UserQuery:   req.UserQuery,
		Suggestions: req.AdditionalSuggestions,
		Lang:        catalog.NormalizeLang(req.Lang),
	})
	switch {
	case errors.Is(err, report.ErrNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": "Category not found."})
	case err != nil:
		_ = c.Error(err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to generate PDF."})
	default:
		c.JSON(http.StatusOK, gin.H{"pdfUrl": url})
	}
}

// CreateInternalCase stores an internally logged incident.
func (h *Handler) CreateInternalCase(c *gin.Context) {
	var req incident.NewCase
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Required fields are missing."})
		return
	}

	id, err := h.cases.Create(c.Request.Context(), req)
	switch {
	case errors.Is(err, incident.ErrInvalid):
		c.JSON(http.StatusBadRequest, gin.H{"error": "Required fields are missing."})
	case err != nil:
		_ = c.Error(err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to save case."})
	default:
		h.logger.Info("internal case saved", "case_id", id)
		c.JSON(http.StatusCreated, gin.H{"message": "Case saved successfully.", "id": id})
	}
}
