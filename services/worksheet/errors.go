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

import "errors"

// Sentinel errors for the worksheet service.
var (
	// ErrWorksheetNotFound indicates no worksheet has the given ID.
	ErrWorksheetNotFound = errors.New("worksheet not found")

	// ErrProposalNotFound indicates no pending proposal has the given ID.
	ErrProposalNotFound = errors.New("proposal not found")

	// ErrProposalBlocked indicates a proposal has invalid commands.
	ErrProposalBlocked = errors.New("proposal has invalid commands")

	// ErrProposalExpired indicates a proposal outlived its TTL.
	ErrProposalExpired = errors.New("proposal expired")

	// ErrEmptyReply indicates a reply with no text at all.
	ErrEmptyReply = errors.New("reply is empty")
)
