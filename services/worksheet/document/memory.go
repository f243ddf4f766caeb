// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package document

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/google/uuid"
)

// MemoryModel is an in-process Model.
//
// Description:
//
//	Keeps nodes in insertion order and rebuilds dependency edges after every
//	mutation. Duplicate symbols are allowed; DuplicateSymbols reports them.
//	When no Verifier is configured, verification only marks nodes pending.
//
// Thread Safety:
//
//	Safe for concurrent use. The verifier is called without holding the lock.
type MemoryModel struct {
	mu          sync.RWMutex
	nodes       []Node
	assumptions []Assumption
	verifier    Verifier
	logger      *slog.Logger
	newID       func() string
}

// Option configures a MemoryModel.
type Option func(*MemoryModel)

// WithVerifier sets the verifier used by VerifyNode and VerifyAllNodes.
func WithVerifier(v Verifier) Option {
	return func(m *MemoryModel) { m.verifier = v }
}

// WithLogger sets the model's logger.
func WithLogger(l *slog.Logger) Option {
	return func(m *MemoryModel) {
		if l != nil {
			m.logger = l
		}
	}
}

// WithIDGenerator replaces the assumption ID generator.
func WithIDGenerator(gen func() string) Option {
	return func(m *MemoryModel) {
		if gen != nil {
			m.newID = gen
		}
	}
}

// NewMemoryModel creates an empty worksheet model.
func NewMemoryModel(opts ...Option) *MemoryModel {
	m := &MemoryModel{
		logger: slog.Default().With("component", "document"),
		newID:  uuid.NewString,
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Nodes returns a copy of every node in document order.
func (m *MemoryModel) Nodes() []Node {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]Node, len(m.nodes))
	for i, n := range m.nodes {
		out[i] = n.Clone()
	}
	return out
}

// Assumptions returns a copy of every assumption in insertion order.
func (m *MemoryModel) Assumptions() []Assumption {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]Assumption, len(m.assumptions))
	for i, a := range m.assumptions {
		out[i] = a.Clone()
	}
	return out
}

// InsertNode appends a node and relinks the graph.
func (m *MemoryModel) InsertNode(node Node) error {
	if node.ID == "" {
		return fmt.Errorf("%w: missing id", ErrInvalidNode)
	}
	if !node.Type.Valid() {
		return fmt.Errorf("%w: unknown type %q", ErrInvalidNode, node.Type)
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if m.indexOf(node.ID) >= 0 {
		return fmt.Errorf("%w: %s", ErrDuplicateID, node.ID)
	}
	n := node.Clone()
	if n.Verification.Status == "" {
		n.Verification.Status = VerificationUnverified
	}
	m.nodes = append(m.nodes, n)
	link(m.nodes)
	return nil
}

// UpdateNode applies a partial update.
//
// Description:
//
//	Keys are wire field names (symbol, value, unit, lhs, rhs, latex,
//	expression, target_symbol, method, title, content, collapsed,
//	description, position). A key the node type does not carry fails with
//	ErrUnsupportedField; nothing is applied in that case.
//
// Outputs:
//
//	error - ErrNodeNotFound, ErrUnsupportedField or ErrInvalidUpdate.
func (m *MemoryModel) UpdateNode(id string, updates map[string]any) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	i := m.indexOf(id)
	if i < 0 {
		return fmt.Errorf("%w: %s", ErrNodeNotFound, id)
	}
	n := m.nodes[i].Clone()
	if err := applyUpdates(&n, updates); err != nil {
		return fmt.Errorf("update node %s: %w", id, err)
	}
	m.nodes[i] = n
	link(m.nodes)
	return nil
}

// DeleteNode removes a node, drops it from assumption scopes and relinks.
func (m *MemoryModel) DeleteNode(id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	i := m.indexOf(id)
	if i < 0 {
		return fmt.Errorf("%w: %s", ErrNodeNotFound, id)
	}
	m.nodes = append(m.nodes[:i], m.nodes[i+1:]...)
	for j := range m.assumptions {
		m.assumptions[j].Scope = without(m.assumptions[j].Scope, id)
	}
	link(m.nodes)
	return nil
}

// AddAssumption records an active assumption.
func (m *MemoryModel) AddAssumption(statement, formalExpression string, scope []string) (string, error) {
	if statement == "" {
		return "", fmt.Errorf("%w: empty assumption statement", ErrInvalidUpdate)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	a := Assumption{
		ID:               m.newID(),
		Statement:        statement,
		FormalExpression: formalExpression,
		Active:           true,
		Scope:            append([]string(nil), scope...),
	}
	m.assumptions = append(m.assumptions, a)
	return a.ID, nil
}

// RemoveAssumption deletes an assumption.
func (m *MemoryModel) RemoveAssumption(id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i, a := range m.assumptions {
		if a.ID == id {
			m.assumptions = append(m.assumptions[:i], m.assumptions[i+1:]...)
			return nil
		}
	}
	return fmt.Errorf("%w: %s", ErrAssumptionNotFound, id)
}

// VerifyNode re-verifies one node against the current symbol table.
func (m *MemoryModel) VerifyNode(ctx context.Context, id string) error {
	m.mu.RLock()
	i := m.indexOf(id)
	if i < 0 {
		m.mu.RUnlock()
		return fmt.Errorf("%w: %s", ErrNodeNotFound, id)
	}
	node := m.nodes[i].Clone()
	symbols := SymbolTable(m.nodes)
	m.mu.RUnlock()

	result := Verification{Status: VerificationPending}
	if m.verifier != nil {
		v, err := m.verifier.Verify(ctx, node, symbols)
		if err != nil {
			return fmt.Errorf("verify node %s: %w", id, err)
		}
		result = v
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	i = m.indexOf(id)
	if i < 0 {
		return fmt.Errorf("%w: %s", ErrNodeNotFound, id)
	}
	m.nodes[i].Verification = result
	m.logger.Debug("node verified", "node_id", id, "status", result.Status)
	return nil
}

// VerifyAllNodes verifies every given, result, equation and constraint node.
// It keeps going after individual failures and returns them joined.
func (m *MemoryModel) VerifyAllNodes(ctx context.Context) error {
	m.mu.RLock()
	var ids []string
	for _, n := range m.nodes {
		if verifiable(n.Type) {
			ids = append(ids, n.ID)
		}
	}
	m.mu.RUnlock()

	var errs []error
	for _, id := range ids {
		if err := ctx.Err(); err != nil {
			errs = append(errs, err)
			break
		}
		if err := m.VerifyNode(ctx, id); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// DuplicateSymbols maps each symbol bound by more than one given/result node
// to the IDs of those nodes.
func (m *MemoryModel) DuplicateSymbols() map[string][]string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	bySymbol := make(map[string][]string)
	for _, n := range m.nodes {
		if n.Type.DefinesSymbol() && n.Symbol != "" {
			bySymbol[n.Symbol] = append(bySymbol[n.Symbol], n.ID)
		}
	}
	dups := make(map[string][]string)
	for sym, ids := range bySymbol {
		if len(ids) > 1 {
			dups[sym] = ids
		}
	}
	return dups
}

// Snapshot returns the serializable state of the model.
func (m *MemoryModel) Snapshot() Snapshot {
	return Snapshot{Nodes: m.Nodes(), Assumptions: m.Assumptions()}
}

// Restore replaces the model's state with a snapshot.
func (m *MemoryModel) Restore(s Snapshot) error {
	seen := make(map[string]struct{}, len(s.Nodes))
	nodes := make([]Node, 0, len(s.Nodes))
	for _, n := range s.Nodes {
		if n.ID == "" || !n.Type.Valid() {
			return fmt.Errorf("%w: id=%q type=%q", ErrInvalidNode, n.ID, n.Type)
		}
		if _, ok := seen[n.ID]; ok {
			return fmt.Errorf("%w: %s", ErrDuplicateID, n.ID)
		}
		seen[n.ID] = struct{}{}
		c := n.Clone()
		if c.Verification.Status == "" {
			c.Verification.Status = VerificationUnverified
		}
		nodes = append(nodes, c)
	}
	assumptions := make([]Assumption, len(s.Assumptions))
	for i, a := range s.Assumptions {
		assumptions[i] = a.Clone()
	}
	link(nodes)

	m.mu.Lock()
	defer m.mu.Unlock()
	m.nodes = nodes
	m.assumptions = assumptions
	return nil
}

func (m *MemoryModel) indexOf(id string) int {
	for i := range m.nodes {
		if m.nodes[i].ID == id {
			return i
		}
	}
	return -1
}

func verifiable(t NodeType) bool {
	switch t {
	case NodeGiven, NodeResult, NodeEquation, NodeConstraint:
		return true
	}
	return false
}

func without(ids []string, id string) []string {
	out := ids[:0]
	for _, s := range ids {
		if s != id {
			out = append(out, s)
		}
	}
	return out
}
