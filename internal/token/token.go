// Package token estimates analysis-cost units for text and packs items
// into budget-bounded batches.
package token

import (
	"errors"
	"fmt"
	"log/slog"
	"math"
	"strings"
)

// ErrInvalidConfig is returned when counter parameters are out of bounds.
var ErrInvalidConfig = errors.New("invalid token counter configuration")

// DefaultCostPer1K is the assumed cost per thousand tokens.
const DefaultCostPer1K = 0.002

// Counter estimates token counts against a budget. The estimator can be
// swapped for testing; any estimator error falls back to the ceil(len/4)
// approximation, so CountTokens never fails.
type Counter struct {
	maxTokensPerBatch int
	safetyMargin      float64
	estimator         func(string) (int, error)
	log               *slog.Logger
}

// NewCounter validates the batching parameters and returns a Counter.
func NewCounter(maxTokensPerBatch int, safetyMargin float64, log *slog.Logger) (*Counter, error) {
	if maxTokensPerBatch <= 0 {
		return nil, fmt.Errorf("%w: maxTokensPerBatch must be positive, got %d", ErrInvalidConfig, maxTokensPerBatch)
	}
	if safetyMargin <= 0 || safetyMargin > 1 {
		return nil, fmt.Errorf("%w: safetyMargin must be in (0,1], got %g", ErrInvalidConfig, safetyMargin)
	}
	if log == nil {
		log = slog.New(slog.DiscardHandler)
	}
	return &Counter{
		maxTokensPerBatch: maxTokensPerBatch,
		safetyMargin:      safetyMargin,
		estimator:         estimateTokens,
		log:               log,
	}, nil
}

// SetEstimator replaces the token estimator. Intended for tests.
func (c *Counter) SetEstimator(fn func(string) (int, error)) {
	c.estimator = fn
}

// CountTokens estimates the token count of text. Never fails: estimator
// errors degrade to the ceil(len/4) approximation.
func (c *Counter) CountTokens(text string) int {
	if text == "" {
		return 0
	}
	n, err := c.estimator(text)
	if err != nil || n < 0 {
		c.log.Debug("token estimator failed, using approximation", "error", err)
		return approximate(text)
	}
	return n
}

// EffectiveMaxTokens is the per-batch budget after the safety margin.
func (c *Counter) EffectiveMaxTokens() int {
	return int(math.Floor(float64(c.maxTokensPerBatch) * c.safetyMargin))
}

// SplitIntoChunks splits text into chunks that each fit the budget,
// accumulating separator-delimited units greedily. An empty separator
// means newline. A single unit over the budget becomes its own oversized
// chunk. Empty chunks are dropped.
func (c *Counter) SplitIntoChunks(text, separator string) []string {
	if separator == "" {
		separator = "\n"
	}
	budget := c.EffectiveMaxTokens()
	if c.CountTokens(text) <= budget {
		if text == "" {
			return nil
		}
		return []string{text}
	}

	var chunks []string
	var current strings.Builder
	currentTokens := 0

	flush := func() {
		if current.Len() > 0 {
			chunks = append(chunks, current.String())
			current.Reset()
			currentTokens = 0
		}
	}

	for _, unit := range strings.Split(text, separator) {
		unitTokens := c.CountTokens(unit)
		if unitTokens > budget {
			flush()
			if unit != "" {
				chunks = append(chunks, unit)
			}
			continue
		}
		if currentTokens+unitTokens > budget {
			flush()
		}
		if current.Len() > 0 {
			current.WriteString(separator)
		}
		current.WriteString(unit)
		currentTokens += unitTokens
	}
	flush()

	return chunks
}

// Batch is a budget-bounded group of items. Indices are assigned in
// creation order starting at zero. A singleton batch may exceed the
// budget when its one item does on its own.
type Batch[T any] struct {
	Items         []T `json:"items"`
	Index         int `json:"batchIndex"`
	TokenEstimate int `json:"totalTokenEstimate"`
}

// CreateBatches packs items into batches under the counter's budget with
// the same greedy policy as SplitIntoChunks, generalized to opaque items.
func CreateBatches[T any](c *Counter, items []T, textOf func(T) string) []Batch[T] {
	budget := c.EffectiveMaxTokens()

	var batches []Batch[T]
	var current Batch[T]

	flush := func() {
		if len(current.Items) > 0 {
			current.Index = len(batches)
			batches = append(batches, current)
			current = Batch[T]{}
		}
	}

	for _, item := range items {
		itemTokens := c.CountTokens(textOf(item))
		if itemTokens > budget {
			flush()
			current = Batch[T]{Items: []T{item}, TokenEstimate: itemTokens}
			flush()
			continue
		}
		if current.TokenEstimate+itemTokens > budget {
			flush()
		}
		current.Items = append(current.Items, item)
		current.TokenEstimate += itemTokens
	}
	flush()

	return batches
}

// CreateStringBatches packs plain strings.
func (c *Counter) CreateStringBatches(items []string) []Batch[string] {
	return CreateBatches(c, items, func(s string) string { return s })
}

// Stats summarizes a batch set.
type Stats struct {
	BatchCount    int     `json:"batchCount"`
	TotalItems    int     `json:"totalItems"`
	TotalTokens   int     `json:"totalTokens"`
	AvgTokens     int     `json:"avgTokens"`
	MaxTokens     int     `json:"maxTokens"`
	MinTokens     int     `json:"minTokens"`
	EstimatedCost float64 `json:"estimatedCost"`
}

// Statistics computes aggregate stats over batches.
func Statistics[T any](batches []Batch[T]) Stats {
	s := Stats{BatchCount: len(batches)}
	if len(batches) == 0 {
		return s
	}
	s.MinTokens = batches[0].TokenEstimate
	for _, b := range batches {
		s.TotalItems += len(b.Items)
		s.TotalTokens += b.TokenEstimate
		if b.TokenEstimate > s.MaxTokens {
			s.MaxTokens = b.TokenEstimate
		}
		if b.TokenEstimate < s.MinTokens {
			s.MinTokens = b.TokenEstimate
		}
	}
	s.AvgTokens = s.TotalTokens / len(batches)
	s.EstimatedCost = EstimateCost(s.TotalTokens, DefaultCostPer1K)
	return s
}

// EstimateCost converts a token count to a dollar cost. Non-positive
// costPer1K uses the default rate.
func EstimateCost(tokens int, costPer1K float64) float64 {
	if costPer1K <= 0 {
		costPer1K = DefaultCostPer1K
	}
	return float64(tokens) / 1000 * costPer1K
}

// estimateTokens is a word-aware heuristic: each whitespace-delimited
// field contributes roughly one token per four characters.
func estimateTokens(text string) (int, error) {
	fields := strings.Fields(text)
	if len(fields) == 0 {
		return 0, nil
	}
	n := 0
	for _, f := range fields {
		n += (len(f) + 3) / 4
	}
	return n, nil
}

func approximate(text string) int {
	return (len(text) + 3) / 4
}
