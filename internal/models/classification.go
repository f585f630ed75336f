package models

import "strings"

// ClassificationLevel is the sensitivity tag attached to a snapshot by the classification resolver.
type ClassificationLevel string

const (
	ClassificationPublic       ClassificationLevel = "public"
	ClassificationInternal     ClassificationLevel = "internal"
	ClassificationConfidential ClassificationLevel = "confidential"
	ClassificationRestricted   ClassificationLevel = "restricted"
)

var classificationOrder = []ClassificationLevel{
	ClassificationPublic,
	ClassificationInternal,
	ClassificationConfidential,
	ClassificationRestricted,
}

// ClassificationLevels lists every level from least to most sensitive.
func ClassificationLevels() []ClassificationLevel {
	out := make([]ClassificationLevel, len(classificationOrder))
	copy(out, classificationOrder)
	return out
}

// Rank orders levels by increasing sensitivity. Unknown levels rank -1.
func (l ClassificationLevel) Rank() int {
	for i, level := range classificationOrder {
		if level == l {
			return i
		}
	}
	return -1
}

// Valid reports whether l is one of the known levels.
func (l ClassificationLevel) Valid() bool {
	return l.Rank() >= 0
}

// ParseClassificationLevel accepts a level name in any case.
func ParseClassificationLevel(raw string) (ClassificationLevel, bool) {
	level := ClassificationLevel(strings.ToLower(strings.TrimSpace(raw)))
	return level, level.Valid()
}
