// Package services provides the business logic layer of the harmonization
// engine. This file implements the aggregator building the "master control"
// view from the flat mapping list.
package services

import (
	"github.com/Sectutor/ComplianceOS-Core-sub012/internal/models"
)

// Aggregator groups the mapping store's flat, join-enriched list into
// harmonized "master control" groups. It is pure in-memory derivation over
// whatever slice the caller provides; visibility filtering happened in the
// store query.
type Aggregator struct{}

// NewAggregator creates an Aggregator.
func NewAggregator() *Aggregator {
	return &Aggregator{}
}

// GroupBySource groups mappings by their source control.
//
// Groups appear in first-seen order of distinct source controls (insertion
// order, not alphabetical), and targets keep the order of the underlying
// query, so repeated renders see stable positions. A control that is only
// ever a mapping target gets no group of its own here; it appears nested
// under other groups' target lists.
func (a *Aggregator) GroupBySource(mappings []models.MappingView) []models.HarmonizedGroup {
	builder := newGroupBuilder()

	for _, m := range mappings {
		group := builder.ensure(m.SourceControlID, m.SourceCode, m.SourceName, m.SourceFramework)
		group.Targets = append(group.Targets, forwardTarget(m))
	}

	return builder.collect()
}

// GroupSymmetric builds the bidirectional view: forward groups as in
// GroupBySource, plus reverse visibility so that a control reached only as
// the target of an equivalent or related mapping still "sees" its
// counterpart. Partial mappings stay one-directional; partial overlap of A
// by B does not imply B is covered by A.
func (a *Aggregator) GroupSymmetric(mappings []models.MappingView) []models.HarmonizedGroup {
	builder := newGroupBuilder()

	for _, m := range mappings {
		group := builder.ensure(m.SourceControlID, m.SourceCode, m.SourceName, m.SourceFramework)
		group.Targets = append(group.Targets, forwardTarget(m))
	}

	for _, m := range mappings {
		if m.MappingType == models.MappingPartial {
			continue
		}
		group := builder.ensure(m.TargetControlID, m.TargetCode, m.TargetName, m.TargetFramework)
		group.Targets = append(group.Targets, models.HarmonizedTarget{
			MappingID:   m.ID,
			ControlID:   m.SourceControlID,
			Code:        m.SourceCode,
			Name:        m.SourceName,
			Framework:   m.SourceFramework,
			MappingType: m.MappingType,
			Confidence:  m.Confidence,
			Direction:   "reverse",
		})
	}

	return builder.collect()
}

func forwardTarget(m models.MappingView) models.HarmonizedTarget {
	return models.HarmonizedTarget{
		MappingID:   m.ID,
		ControlID:   m.TargetControlID,
		Code:        m.TargetCode,
		Name:        m.TargetName,
		Framework:   m.TargetFramework,
		MappingType: m.MappingType,
		Confidence:  m.Confidence,
		Direction:   "forward",
	}
}

// groupBuilder preserves first-seen group order while deduplicating by
// control id.
type groupBuilder struct {
	index  map[int]int
	groups []models.HarmonizedGroup
}

func newGroupBuilder() *groupBuilder {
	return &groupBuilder{index: make(map[int]int)}
}

func (b *groupBuilder) ensure(controlID int, code, name, framework string) *models.HarmonizedGroup {
	if i, ok := b.index[controlID]; ok {
		return &b.groups[i]
	}
	b.index[controlID] = len(b.groups)
	b.groups = append(b.groups, models.HarmonizedGroup{
		ControlID: controlID,
		Code:      code,
		Name:      name,
		Framework: framework,
		Targets:   []models.HarmonizedTarget{},
	})
	return &b.groups[len(b.groups)-1]
}

func (b *groupBuilder) collect() []models.HarmonizedGroup {
	if b.groups == nil {
		return []models.HarmonizedGroup{}
	}
	return b.groups
}
