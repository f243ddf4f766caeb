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

import "github.com/Mnehmos/provecalc-website-sub000/services/worksheet/document"

// CreateWorksheetRequest optionally seeds a worksheet.
type CreateWorksheetRequest struct {
	Snapshot *document.Snapshot `json:"snapshot,omitempty"`
}

// CreateWorksheetResponse names the new worksheet.
type CreateWorksheetResponse struct {
	ID string `json:"id"`
}

// ProposeRequest carries an assistant reply.
type ProposeRequest struct {
	Reply string `json:"reply" binding:"required"`
}

// NormalizeRequest asks for the canonical form of an expression.
type NormalizeRequest struct {
	Expression string `json:"expression" binding:"required"`
}

// NormalizeResponse is the canonical form and its variables.
type NormalizeResponse struct {
	Input      string   `json:"input"`
	Normalized string   `json:"normalized"`
	Variables  []string `json:"variables"`
}

// HealthResponse reports liveness.
type HealthResponse struct {
	Status           string `json:"status"`
	Version          string `json:"version"`
	PendingProposals int    `json:"pending_proposals"`
}

// ErrorResponse is the standard error body.
type ErrorResponse struct {
	// Error is the error message.
	Error string `json:"error"`

	// Code is a stable machine-readable code.
	Code string `json:"code,omitempty"`
}
