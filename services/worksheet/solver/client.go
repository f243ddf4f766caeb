// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package solver

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"sync"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/sync/singleflight"
	"golang.org/x/time/rate"

	"github.com/Mnehmos/provecalc-website-sub000/services/worksheet/document"
)

var tracer = otel.Tracer("provecalc.worksheet.solver")

// maxResponseBytes bounds solver response bodies.
const maxResponseBytes = 1 << 20

// ClientConfig configures the HTTP solver client.
type ClientConfig struct {
	// BaseURL is the solver root, e.g. http://localhost:8090/api.
	BaseURL string `yaml:"base_url"`

	// Timeout bounds each HTTP request. Zero means 10s.
	Timeout time.Duration `yaml:"timeout"`

	// RequestsPerSecond limits outgoing requests. Zero disables limiting.
	RequestsPerSecond float64 `yaml:"requests_per_second"`

	// Burst is the limiter burst. Values below 1 are treated as 1.
	Burst int `yaml:"burst"`

	// CacheTTL keeps successful unit checks. Zero disables the cache.
	CacheTTL time.Duration `yaml:"cache_ttl"`
}

// Client is the HTTP solver client.
//
// Description:
//
//	Calls POST {base}/units/check and POST {base}/verify. Identical
//	concurrent unit checks share one request, successful answers are cached
//	for CacheTTL, and all requests pass through a token-bucket limiter.
//
// Thread Safety: Safe for concurrent use.
type Client struct {
	baseURL    string
	httpClient *http.Client
	limiter    *rate.Limiter
	inflight   singleflight.Group
	cacheTTL   time.Duration
	now        func() time.Time

	mu    sync.Mutex
	cache map[string]cachedCheck
}

type cachedCheck struct {
	check   UnitCheck
	expires time.Time
}

// NewClient creates a solver client.
//
// Outputs:
//
//	*Client - Ready client.
//	error - If BaseURL is empty.
func NewClient(cfg ClientConfig) (*Client, error) {
	base := strings.TrimRight(strings.TrimSpace(cfg.BaseURL), "/")
	if base == "" {
		return nil, errors.New("solver base url must not be empty")
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	limiter := rate.NewLimiter(rate.Inf, 1)
	if cfg.RequestsPerSecond > 0 {
		burst := cfg.Burst
		if burst < 1 {
			burst = 1
		}
		limiter = rate.NewLimiter(rate.Limit(cfg.RequestsPerSecond), burst)
	}
	return &Client{
		baseURL:    base,
		httpClient: &http.Client{Timeout: timeout},
		limiter:    limiter,
		cacheTTL:   cfg.CacheTTL,
		now:        time.Now,
		cache:      make(map[string]cachedCheck),
	}, nil
}

// CheckUnits asks the solver whether a unit expression is consistent.
func (c *Client) CheckUnits(ctx context.Context, expression string) (UnitCheck, error) {
	ctx, span := tracer.Start(ctx, "solver.Client.CheckUnits",
		trace.WithAttributes(attribute.String("unit.expression", expression)),
	)
	defer span.End()

	if check, ok := c.cached(expression); ok {
		span.SetAttributes(attribute.Bool("cached", true))
		return check, nil
	}

	v, err, shared := c.inflight.Do(expression, func() (interface{}, error) {
		var out UnitCheck
		if err := c.post(ctx, "/units/check", map[string]string{"expression": expression}, &out); err != nil {
			return UnitCheck{}, err
		}
		c.store(expression, out)
		return out, nil
	})
	span.SetAttributes(attribute.Bool("shared", shared))
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return UnitCheck{}, err
	}
	check := v.(UnitCheck)
	span.SetAttributes(attribute.Bool("unit.consistent", check.Consistent))
	return check, nil
}

type verifyRequest struct {
	Node    document.Node                `json:"node"`
	Symbols map[string]document.Quantity `json:"symbols"`
}

// Verify asks the solver to verify a node against the symbol table.
func (c *Client) Verify(ctx context.Context, node document.Node, symbols map[string]document.Quantity) (document.Verification, error) {
	ctx, span := tracer.Start(ctx, "solver.Client.Verify",
		trace.WithAttributes(
			attribute.String("node.id", node.ID),
			attribute.String("node.type", string(node.Type)),
		),
	)
	defer span.End()

	var out document.Verification
	if err := c.post(ctx, "/verify", verifyRequest{Node: node, Symbols: symbols}, &out); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return document.Verification{}, err
	}
	switch out.Status {
	case document.VerificationVerified, document.VerificationFailed,
		document.VerificationPending, document.VerificationUnverified:
	default:
		err := fmt.Errorf("%w: verification status %q", ErrBadResponse, out.Status)
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return document.Verification{}, err
	}
	span.SetAttributes(attribute.String("verification.status", string(out.Status)))
	return out, nil
}

func (c *Client) post(ctx context.Context, path string, payload any, out any) error {
	if err := c.limiter.Wait(ctx); err != nil {
		return err
	}
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal solver request: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("build solver request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		return fmt.Errorf("%w: %v", ErrSolverUnavailable, err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return fmt.Errorf("%w: read body: %v", ErrSolverUnavailable, err)
	}
	if resp.StatusCode >= http.StatusInternalServerError {
		return fmt.Errorf("%w: %s %s", ErrSolverUnavailable, path, resp.Status)
	}
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("%w: %s %s: %s", ErrBadResponse, path, resp.Status, strings.TrimSpace(string(data)))
	}
	if err := json.Unmarshal(data, out); err != nil {
		return fmt.Errorf("%w: %v", ErrBadResponse, err)
	}
	return nil
}

func (c *Client) cached(expression string) (UnitCheck, bool) {
	if c.cacheTTL <= 0 {
		return UnitCheck{}, false
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	entry, ok := c.cache[expression]
	if !ok {
		return UnitCheck{}, false
	}
	if c.now().After(entry.expires) {
		delete(c.cache, expression)
		return UnitCheck{}, false
	}
	return entry.check, true
}

func (c *Client) store(expression string, check UnitCheck) {
	if c.cacheTTL <= 0 {
		return
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.cache[expression] = cachedCheck{check: check, expires: c.now().Add(c.cacheTTL)}
}
