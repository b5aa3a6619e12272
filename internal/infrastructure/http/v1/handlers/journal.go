package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"clinicledger/internal/domain/journal"
	"clinicledger/internal/domain/outcome"
	"clinicledger/internal/infrastructure/http/v1/dto"
)

// JournalHandler serves /journal and /categories.
type JournalHandler struct {
	*BaseHandler
	processor  *journal.Processor
	categories *journal.Categories
}

func NewJournalHandler(base *BaseHandler, processor *journal.Processor, categories *journal.Categories) *JournalHandler {
	return &JournalHandler{BaseHandler: base, processor: processor, categories: categories}
}

// Post handles POST /journal.
func (h *JournalHandler) Post(c *gin.Context) {
	var req dto.PostJournalRequest
	if !h.BindJSON(c, &req) {
		return
	}
	res, err := h.processor.Post(c.Request.Context(), req.Input())
	h.Respond(c, "journal.post", http.StatusCreated, outcome.Journal(res, err), err)
}

// Edit handles PUT /journal/:id.
func (h *JournalHandler) Edit(c *gin.Context) {
	entryID, ok := h.PathID(c)
	if !ok {
		return
	}
	var req dto.EditJournalRequest
	if !h.BindJSON(c, &req) {
		return
	}
	res, err := h.processor.Edit(c.Request.Context(), entryID, req.Input())
	h.Respond(c, "journal.edit", http.StatusOK, outcome.Journal(res, err), err)
}

// Delete handles DELETE /journal/:id.
func (h *JournalHandler) Delete(c *gin.Context) {
	entryID, ok := h.PathID(c)
	if !ok {
		return
	}
	res, err := h.processor.Delete(c.Request.Context(), entryID)
	h.Respond(c, "journal.delete", http.StatusOK, outcome.Journal(res, err), err)
}

// Get handles GET /journal/:id.
func (h *JournalHandler) Get(c *gin.Context) {
	entryID, ok := h.PathID(c)
	if !ok {
		return
	}
	e, err := h.processor.Get(c.Request.Context(), entryID)
	if err != nil {
		h.Error(c, err)
		return
	}
	h.OK(c, e)
}

// List handles GET /journal.
func (h *JournalHandler) List(c *gin.Context) {
	var q dto.JournalListQuery
	if !h.BindQuery(c, &q) {
		return
	}
	f, err := q.ToFilter()
	if err != nil {
		h.Error(c, err)
		return
	}
	res, err := h.processor.List(c.Request.Context(), f)
	if err != nil {
		h.Error(c, err)
		return
	}
	h.OK(c, res)
}

// ListCategories handles GET /categories. ?all=true includes inactive ones.
func (h *JournalHandler) ListCategories(c *gin.Context) {
	out, err := h.categories.List(c.Request.Context(), c.Query("all") != "true")
	if err != nil {
		h.Error(c, err)
		return
	}
	h.OK(c, gin.H{"items": out})
}

// CreateCategory handles POST /categories.
func (h *JournalHandler) CreateCategory(c *gin.Context) {
	var req dto.CreateCategoryRequest
	if !h.BindJSON(c, &req) {
		return
	}
	cat, err := h.categories.Create(c.Request.Context(), req.Name, req.Direction)
	var env outcome.Envelope
	if err == nil {
		env = outcome.Envelope{OK: true, Entity: cat}
	}
	h.Respond(c, "category.create", http.StatusCreated, env, err)
}
