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

import "github.com/gin-gonic/gin"

// RegisterRoutes registers the worksheet endpoints on rg (typically /v1).
//
// Endpoints:
//
//	POST   /v1/worksheets - Create a worksheet, optionally from a snapshot
//	GET    /v1/worksheets/:id - Worksheet snapshot
//	POST   /v1/worksheets/:id/proposals - Parse, resolve and validate a reply
//	GET    /v1/worksheets/:id/proposals/:pid - Pending proposal
//	POST   /v1/worksheets/:id/proposals/:pid/accept - Place and execute
//	DELETE /v1/worksheets/:id/proposals/:pid - Reject
//	GET    /v1/worksheets/:id/history - Executed batches, newest first
//	POST   /v1/normalize - Canonical form of an expression
//	GET    /v1/health - Liveness
func RegisterRoutes(rg *gin.RouterGroup, h *Handlers) {
	ws := rg.Group("/worksheets")
	{
		ws.POST("", h.HandleCreateWorksheet)
		ws.GET("/:id", h.HandleGetWorksheet)
		ws.POST("/:id/proposals", h.HandlePropose)
		ws.GET("/:id/proposals/:pid", h.HandleGetProposal)
		ws.POST("/:id/proposals/:pid/accept", h.HandleAccept)
		ws.DELETE("/:id/proposals/:pid", h.HandleReject)
		ws.GET("/:id/history", h.HandleHistory)
	}
	rg.POST("/normalize", h.HandleNormalize)
	rg.GET("/health", h.HandleHealth)
}
