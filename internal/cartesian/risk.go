package cartesian

import (
	"freightrates/internal/config"
	"freightrates/internal/domain"
)

// Level is the cartesian risk tier of a row.
type Level string

const (
	LevelNormal   Level = "normal"
	LevelWeakRisk Level = "weak_risk"
	LevelHighRisk Level = "high_risk"
)

// Entry is the batching decision for one data row.
type Entry struct {
	RowIndex       int        `json:"row_index"`
	Row            domain.Row `json:"row,omitempty"`
	Level          Level      `json:"level"`
	CartesianCount int        `json:"cartesian_count"`
	BatchSize      int        `json:"batch_size"`
}

// Classifier maps cartesian counts to risk tiers and batch sizes.
type Classifier struct {
	low, high                  int
	normal, weakRisk, highRisk int
}

// NewClassifier creates a Classifier from the batch configuration.
func NewClassifier(cfg *config.BatchConfig) *Classifier {
	return &Classifier{
		low:      cfg.LowThreshold,
		high:     cfg.HighThreshold,
		normal:   cfg.NormalSize,
		weakRisk: cfg.WeakRiskSize,
		highRisk: cfg.HighRiskSize,
	}
}

// Level returns the risk tier for a cartesian count.
func (c *Classifier) Level(count int) Level {
	switch {
	case count > c.high:
		return LevelHighRisk
	case count > c.low:
		return LevelWeakRisk
	default:
		return LevelNormal
	}
}

// BatchSize returns the configured batch size for a tier.
func (c *Classifier) BatchSize(level Level) int {
	switch level {
	case LevelHighRisk:
		return c.highRisk
	case LevelWeakRisk:
		return c.weakRisk
	default:
		return c.normal
	}
}

// Strategy classifies every row of a section.
func (c *Classifier) Strategy(rows []domain.Row) []Entry {
	entries := make([]Entry, 0, len(rows))
	for i, row := range rows {
		count := Count(row)
		level := c.Level(count)
		entries = append(entries, Entry{
			RowIndex:       i,
			Row:            row,
			Level:          level,
			CartesianCount: count,
			BatchSize:      c.BatchSize(level),
		})
	}
	return entries
}
