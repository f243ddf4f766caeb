// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package document

import "errors"

// Sentinel errors for the document model.
var (
	// ErrNodeNotFound indicates no node has the requested ID.
	ErrNodeNotFound = errors.New("node not found")

	// ErrAssumptionNotFound indicates no assumption has the requested ID.
	ErrAssumptionNotFound = errors.New("assumption not found")

	// ErrDuplicateID indicates an inserted node reuses an existing ID.
	ErrDuplicateID = errors.New("duplicate node id")

	// ErrInvalidNode indicates a node is missing its ID or has an unknown type.
	ErrInvalidNode = errors.New("invalid node")

	// ErrUnsupportedField indicates an update names a field the node type does not have.
	ErrUnsupportedField = errors.New("unsupported update field")

	// ErrInvalidUpdate indicates an update value has the wrong shape.
	ErrInvalidUpdate = errors.New("invalid update value")
)
