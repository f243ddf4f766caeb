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
	"encoding/json"
	"sync"
	"time"

	"github.com/Mnehmos/provecalc-website-sub000/services/worksheet/commands"
	"github.com/Mnehmos/provecalc-website-sub000/services/worksheet/validate"
)

// Proposal is a validated batch awaiting a decision.
type Proposal struct {
	ID          string
	WorksheetID string

	// Commands are resolved against the worksheet as it was at proposal time.
	Commands []commands.Command
	Results  []validate.Result

	// Blocked is true when any command is invalid.
	Blocked bool

	// Prose is the reply with command blocks removed.
	Prose string

	DroppedBlocks  int
	DroppedObjects int

	CreatedAt time.Time
	ExpiresAt time.Time
}

// MarshalJSON writes commands with their action names.
func (p *Proposal) MarshalJSON() ([]byte, error) {
	return json.Marshal(struct {
		ID             string                  `json:"id"`
		WorksheetID    string                  `json:"worksheet_id"`
		Commands       []commands.Envelope     `json:"commands"`
		Results        []validate.Result       `json:"results"`
		Summary        map[validate.Status]int `json:"summary"`
		Blocked        bool                    `json:"blocked"`
		Prose          string                  `json:"prose"`
		DroppedBlocks  int                     `json:"dropped_blocks"`
		DroppedObjects int                     `json:"dropped_objects"`
		CreatedAt      time.Time               `json:"created_at"`
		ExpiresAt      time.Time               `json:"expires_at"`
	}{
		ID:             p.ID,
		WorksheetID:    p.WorksheetID,
		Commands:       commands.Wrap(p.Commands),
		Results:        p.Results,
		Summary:        validate.Summary(p.Results),
		Blocked:        p.Blocked,
		Prose:          p.Prose,
		DroppedBlocks:  p.DroppedBlocks,
		DroppedObjects: p.DroppedObjects,
		CreatedAt:      p.CreatedAt,
		ExpiresAt:      p.ExpiresAt,
	})
}

// proposalStore keeps pending proposals in insertion order.
//
// Thread Safety: Safe for concurrent use.
type proposalStore struct {
	mu    sync.Mutex
	max   int
	items map[string]*Proposal
	order []string
}

func newProposalStore(max int) *proposalStore {
	return &proposalStore{max: max, items: make(map[string]*Proposal)}
}

// put adds p, evicting the oldest proposals past the cap. It returns the
// number of evicted proposals.
func (s *proposalStore) put(p *Proposal) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.items[p.ID] = p
	s.order = append(s.order, p.ID)
	evicted := 0
	for len(s.order) > s.max {
		delete(s.items, s.order[0])
		s.order = s.order[1:]
		evicted++
	}
	return evicted
}

// take removes and returns a proposal.
func (s *proposalStore) take(id string) (*Proposal, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.items[id]
	if !ok {
		return nil, false
	}
	s.remove(id)
	return p, true
}

func (s *proposalStore) get(id string) (*Proposal, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.items[id]
	return p, ok
}

// purge drops every proposal that expired at or before now.
func (s *proposalStore) purge(now time.Time) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := 0
	for _, id := range append([]string(nil), s.order...) {
		if p := s.items[id]; !now.Before(p.ExpiresAt) {
			s.remove(id)
			n++
		}
	}
	return n
}

func (s *proposalStore) len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.items)
}

// remove must be called with mu held.
func (s *proposalStore) remove(id string) {
	delete(s.items, id)
	for i, v := range s.order {
		if v == id {
			s.order = append(s.order[:i], s.order[i+1:]...)
			return
		}
	}
}
