package service

import (
	"sort"

	"github.com/mkale-dev/swarmd/internal/catalog"
	"github.com/mkale-dev/swarmd/internal/domain"
)

// ValidateBlueprint checks a proposed blueprint against the catalogs.
// Checks run in a fixed order (tools, then strategy, then trigger) so
// the same invalid input always reports the same first violation.
// Returns the derived input schema on success: the strategy's
// declared input shape, overridden by the webhook payload schema when
// one is configured.
func ValidateBlueprint(bp *domain.Blueprint, triggerType domain.TriggerType, tools *catalog.ToolCatalog, strategies *catalog.StrategyCatalog) (domain.Schema, error) {
	for _, ref := range bp.Tools {
		if ref.Name == "" {
			return nil, domain.NewValidationError("tool reference with empty name")
		}
		if _, ok := tools.Lookup(ref.Name); !ok {
			return nil, domain.NewValidationError("unknown tool %q", ref.Name)
		}
	}

	if bp.Strategy.Name == "" {
		return nil, domain.NewValidationError("strategy name is required")
	}
	strat, ok := strategies.Lookup(bp.Strategy.Name)
	if !ok {
		return nil, domain.NewValidationError("unknown strategy %q", bp.Strategy.Name)
	}

	if bp.Trigger.Type != triggerType {
		return nil, domain.NewValidationError("trigger type %q does not match agent trigger type %q", bp.Trigger.Type, triggerType)
	}
	switch bp.Trigger.Type {
	case domain.TriggerPeriodic:
		if bp.Trigger.IntervalSec <= 0 {
			return nil, domain.NewValidationError("periodic trigger requires a positive interval_sec")
		}
	case domain.TriggerWebhook:
		// The optional payload-schema override must name recognized
		// field types, or every webhook call would fail confusingly
		// at dispatch time. Fields are checked in sorted order.
		names := make([]string, 0, len(bp.Trigger.PayloadSchema))
		for name := range bp.Trigger.PayloadSchema {
			names = append(names, name)
		}
		sort.Strings(names)
		for _, name := range names {
			if ft := bp.Trigger.PayloadSchema[name]; !domain.ValidFieldType(ft) {
				return nil, domain.NewValidationError("payload_schema field %q has unknown type %q", name, ft)
			}
		}
	default:
		return nil, domain.NewValidationError("unknown trigger type %q", bp.Trigger.Type)
	}

	schema := strat.Input
	if bp.Trigger.Type == domain.TriggerWebhook && bp.Trigger.PayloadSchema != nil {
		schema = bp.Trigger.PayloadSchema
	}
	return schema, nil
}
