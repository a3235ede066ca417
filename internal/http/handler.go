package http

import (
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"github.com/nurpe/proposals/internal/http/middleware"
	"github.com/nurpe/proposals/internal/service"
	"github.com/nurpe/proposals/internal/validation"
)

const (
	contentTypePDF  = "application/pdf"
	contentTypeXLSX = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
)

var errInvalidID = errors.New("invalid proposal id")

type Handler struct {
	proposals *service.ProposalService
	log       zerolog.Logger
	now       func() time.Time
}

func NewHandler(proposals *service.ProposalService, log zerolog.Logger) *Handler {
	return &Handler{proposals: proposals, log: log, now: time.Now}
}

func (h *Handler) Register(router *gin.Engine) {
	api := router.Group("/api")
	api.GET("/proposals", h.listProposals)
	api.POST("/proposals", h.createProposal)
	api.GET("/proposals/:id", h.getProposal)
	api.PUT("/proposals/:id", h.updateProposal)
	api.DELETE("/proposals/:id", h.deleteProposal)
	api.GET("/proposals/:id/pdf", h.exportProposalPDF)
	api.GET("/proposals/:id/xlsx", h.exportProposalWorkbook)
	api.GET("/exports/proposals.xlsx", h.exportAllProposals)
	api.GET("/templates", h.listTemplates)
}

func (h *Handler) listProposals(c *gin.Context) {
	proposals, err := h.proposals.List(c.Request.Context())
	if err != nil {
		h.handleError(c, err, "Failed to get proposals")
		return
	}
	c.JSON(http.StatusOK, proposals)
}

func (h *Handler) getProposal(c *gin.Context) {
	id, err := parseID(c.Param("id"))
	if err != nil {
		h.handleError(c, err, "")
		return
	}

	proposal, err := h.proposals.Get(c.Request.Context(), id)
	if err != nil {
		h.handleError(c, err, "Failed to get proposal")
		return
	}
	c.JSON(http.StatusOK, proposal)
}

func (h *Handler) createProposal(c *gin.Context) {
	var req validation.ProposalRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body"})
		return
	}

	proposal, err := h.proposals.Create(c.Request.Context(), req)
	if err != nil {
		h.handleError(c, err, "Failed to create proposal")
		return
	}
	c.JSON(http.StatusCreated, proposal)
}

func (h *Handler) updateProposal(c *gin.Context) {
	id, err := parseID(c.Param("id"))
	if err != nil {
		h.handleError(c, err, "")
		return
	}

	var req validation.ProposalRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body"})
		return
	}

	proposal, err := h.proposals.Update(c.Request.Context(), id, req)
	if err != nil {
		h.handleError(c, err, "Failed to update proposal")
		return
	}
	c.JSON(http.StatusOK, proposal)
}

func (h *Handler) deleteProposal(c *gin.Context) {
	id, err := parseID(c.Param("id"))
	if err != nil {
		h.handleError(c, err, "")
		return
	}

	if err := h.proposals.Delete(c.Request.Context(), id); err != nil {
		h.handleError(c, err, "Failed to delete proposal")
		return
	}
	c.Status(http.StatusNoContent)
}

func (h *Handler) exportProposalPDF(c *gin.Context) {
	id, err := parseID(c.Param("id"))
	if err != nil {
		h.handleError(c, err, "")
		return
	}

	result, err := h.proposals.ExportPDF(c.Request.Context(), id)
	if err != nil {
		h.handleError(c, err, "Failed to export proposal")
		return
	}
	sendAttachment(c, contentTypePDF, result)
}

func (h *Handler) exportProposalWorkbook(c *gin.Context) {
	id, err := parseID(c.Param("id"))
	if err != nil {
		h.handleError(c, err, "")
		return
	}

	result, err := h.proposals.ExportWorkbook(c.Request.Context(), id)
	if err != nil {
		h.handleError(c, err, "Failed to export proposal")
		return
	}
	sendAttachment(c, contentTypeXLSX, result)
}

func (h *Handler) exportAllProposals(c *gin.Context) {
	result, err := h.proposals.ExportAllWorkbook(c.Request.Context(), h.now())
	if err != nil {
		h.handleError(c, err, "Failed to export proposals")
		return
	}
	sendAttachment(c, contentTypeXLSX, result)
}

func (h *Handler) listTemplates(c *gin.Context) {
	c.JSON(http.StatusOK, h.proposals.Templates(h.now()))
}

func sendAttachment(c *gin.Context, contentType string, result *service.ExportResult) {
	c.Header("Content-Disposition", "attachment; filename=\""+result.FileName+"\"")
	c.Data(http.StatusOK, contentType, result.Content)
}

func (h *Handler) handleError(c *gin.Context, err error, failure string) {
	switch {
	case errors.Is(err, errInvalidID):
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid proposal ID"})
	case errors.Is(err, service.ErrInvalidInput):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	case errors.Is(err, service.ErrNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": "Proposal not found"})
	default:
		h.log.Error().
			Err(err).
			Str("request_id", middleware.GetRequestID(c)).
			Str("path", c.Request.URL.Path).
			Msg(strings.ToLower(failure))
		c.JSON(http.StatusInternalServerError, gin.H{"error": failure})
	}
}

func parseID(raw string) (int64, error) {
	id, err := strconv.ParseInt(strings.TrimSpace(raw), 10, 64)
	if err != nil {
		return 0, errInvalidID
	}
	return id, nil
}
