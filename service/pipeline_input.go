package service

import (
	"fmt"
	"math"
	"sort"

	"github.com/sibyllinesoft/valknut-sub001/domain"
)

// sanitizeEntities drops entities that fail validation or repeat an ID.
// The first definition of an ID wins.
func sanitizeEntities(in []domain.Entity) ([]domain.Entity, []domain.Anomaly) {
	var anomalies []domain.Anomaly
	seen := make(map[string]bool, len(in))
	out := make([]domain.Entity, 0, len(in))
	for i := range in {
		e := in[i]
		if err := e.Validate(); err != nil {
			anomalies = append(anomalies, domain.Anomaly{
				EntityID: e.ID,
				Stage:    domain.StageInput,
				Message:  err.Error(),
			})
			continue
		}
		if seen[e.ID] {
			anomalies = append(anomalies, domain.Anomaly{
				EntityID: e.ID,
				Stage:    domain.StageInput,
				Message:  "duplicate entity id; later definition dropped",
			})
			continue
		}
		seen[e.ID] = true
		out = append(out, e)
	}
	return out, anomalies
}

// sanitizeCoverage keeps finite ratios in [0,1] for known entities
func sanitizeCoverage(coverage map[string]float64, entities []domain.Entity) (map[string]float64, []domain.Anomaly) {
	if len(coverage) == 0 {
		return nil, nil
	}
	known := make(map[string]bool, len(entities))
	for i := range entities {
		known[entities[i].ID] = true
	}

	ids := make([]string, 0, len(coverage))
	for id := range coverage {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	var anomalies []domain.Anomaly
	out := make(map[string]float64, len(coverage))
	for _, id := range ids {
		ratio := coverage[id]
		switch {
		case !known[id]:
			anomalies = append(anomalies, domain.Anomaly{
				EntityID: id,
				Stage:    domain.StageInput,
				Message:  "coverage reported for unknown entity",
			})
		case math.IsNaN(ratio) || ratio < 0 || ratio > 1:
			anomalies = append(anomalies, domain.Anomaly{
				EntityID: id,
				Stage:    domain.StageInput,
				Message:  fmt.Sprintf("coverage ratio %v outside [0,1]; ignored", ratio),
			})
		default:
			out[id] = ratio
		}
	}
	return out, anomalies
}

func entityIDs(entities []domain.Entity) []string {
	ids := make([]string, len(entities))
	for i := range entities {
		ids[i] = entities[i].ID
	}
	return ids
}
