// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package worksheet

import (
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/Mnehmos/provecalc-website-sub000/services/worksheet/mathnorm"
)

// requestIDHeader carries a caller-supplied request ID.
const requestIDHeader = "X-Request-ID"

// Handlers serves the worksheet HTTP API.
type Handlers struct {
	svc *Service
}

// NewHandlers creates handlers for svc.
func NewHandlers(svc *Service) *Handlers {
	return &Handlers{svc: svc}
}

func getOrCreateRequestID(c *gin.Context) string {
	id := c.GetHeader(requestIDHeader)
	if id == "" {
		id = uuid.NewString()
	}
	c.Header(requestIDHeader, id)
	return id
}

// errorStatus maps service errors to HTTP status and code.
func errorStatus(err error) (int, string) {
	switch {
	case errors.Is(err, ErrWorksheetNotFound):
		return http.StatusNotFound, "WORKSHEET_NOT_FOUND"
	case errors.Is(err, ErrProposalNotFound):
		return http.StatusNotFound, "PROPOSAL_NOT_FOUND"
	case errors.Is(err, ErrProposalExpired):
		return http.StatusGone, "PROPOSAL_EXPIRED"
	case errors.Is(err, ErrProposalBlocked):
		return http.StatusConflict, "PROPOSAL_BLOCKED"
	case errors.Is(err, ErrEmptyReply):
		return http.StatusBadRequest, "EMPTY_REPLY"
	}
	return http.StatusInternalServerError, "INTERNAL"
}

func (h *Handlers) fail(c *gin.Context, logger *slog.Logger, err error) {
	status, code := errorStatus(err)
	if status >= http.StatusInternalServerError {
		logger.Error("request failed", "error", err)
	} else {
		logger.Warn("request rejected", "error", err, "code", code)
	}
	c.JSON(status, ErrorResponse{Error: err.Error(), Code: code})
}

func badRequest(c *gin.Context, logger *slog.Logger, err error) {
	logger.Warn("invalid request body", "error", err)
	c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid request body", Code: "INVALID_REQUEST"})
}

// HandleCreateWorksheet handles POST /v1/worksheets.
func (h *Handlers) HandleCreateWorksheet(c *gin.Context) {
	logger := slog.With("request_id", getOrCreateRequestID(c), "handler", "HandleCreateWorksheet")

	var req CreateWorksheetRequest
	if c.Request.ContentLength != 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			badRequest(c, logger, err)
			return
		}
	}
	id, err := h.svc.CreateWorksheet(req.Snapshot)
	if err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: err.Error(), Code: "INVALID_SNAPSHOT"})
		return
	}
	c.JSON(http.StatusCreated, CreateWorksheetResponse{ID: id})
}

// HandleGetWorksheet handles GET /v1/worksheets/:id.
func (h *Handlers) HandleGetWorksheet(c *gin.Context) {
	logger := slog.With("request_id", getOrCreateRequestID(c), "handler", "HandleGetWorksheet")
	snap, err := h.svc.Snapshot(c.Param("id"))
	if err != nil {
		h.fail(c, logger, err)
		return
	}
	c.JSON(http.StatusOK, snap)
}

// HandlePropose handles POST /v1/worksheets/:id/proposals.
func (h *Handlers) HandlePropose(c *gin.Context) {
	logger := slog.With("request_id", getOrCreateRequestID(c), "handler", "HandlePropose")

	var req ProposeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, logger, err)
		return
	}
	p, err := h.svc.Propose(c.Request.Context(), c.Param("id"), req.Reply)
	if err != nil {
		h.fail(c, logger, err)
		return
	}
	c.JSON(http.StatusCreated, p)
}

// HandleGetProposal handles GET /v1/worksheets/:id/proposals/:pid.
func (h *Handlers) HandleGetProposal(c *gin.Context) {
	logger := slog.With("request_id", getOrCreateRequestID(c), "handler", "HandleGetProposal")
	p, err := h.svc.Proposal(c.Param("id"), c.Param("pid"))
	if err != nil {
		h.fail(c, logger, err)
		return
	}
	c.JSON(http.StatusOK, p)
}

// HandleAccept handles POST /v1/worksheets/:id/proposals/:pid/accept.
func (h *Handlers) HandleAccept(c *gin.Context) {
	logger := slog.With("request_id", getOrCreateRequestID(c), "handler", "HandleAccept")
	res, err := h.svc.Accept(c.Request.Context(), c.Param("id"), c.Param("pid"))
	if err != nil {
		h.fail(c, logger, err)
		return
	}
	c.JSON(http.StatusOK, res)
}

// HandleReject handles DELETE /v1/worksheets/:id/proposals/:pid.
func (h *Handlers) HandleReject(c *gin.Context) {
	logger := slog.With("request_id", getOrCreateRequestID(c), "handler", "HandleReject")
	if err := h.svc.Reject(c.Param("id"), c.Param("pid")); err != nil {
		h.fail(c, logger, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// HandleHistory handles GET /v1/worksheets/:id/history?limit=n.
func (h *Handlers) HandleHistory(c *gin.Context) {
	logger := slog.With("request_id", getOrCreateRequestID(c), "handler", "HandleHistory")
	limit := 0
	if raw := c.Query("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 0 {
			c.JSON(http.StatusBadRequest, ErrorResponse{Error: "limit must be a non-negative integer", Code: "INVALID_LIMIT"})
			return
		}
		limit = n
	}
	entries, err := h.svc.History(c.Request.Context(), c.Param("id"), limit)
	if err != nil {
		h.fail(c, logger, err)
		return
	}
	c.JSON(http.StatusOK, entries)
}

// HandleNormalize handles POST /v1/normalize.
func (h *Handlers) HandleNormalize(c *gin.Context) {
	logger := slog.With("request_id", getOrCreateRequestID(c), "handler", "HandleNormalize")
	var req NormalizeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, logger, err)
		return
	}
	c.JSON(http.StatusOK, NormalizeResponse{
		Input:      req.Expression,
		Normalized: mathnorm.Normalize(req.Expression),
		Variables:  mathnorm.ExtractVariables(req.Expression),
	})
}

// HandleHealth handles GET /v1/health.
func (h *Handlers) HandleHealth(c *gin.Context) {
	c.JSON(http.StatusOK, HealthResponse{
		Status:           "healthy",
		Version:          ServiceVersion,
		PendingProposals: h.svc.PendingProposals(),
	})
}
