package analyzer

import (
	"sort"
	"strings"

	"github.com/sibyllinesoft/valknut-sub001/domain"
)

// SignalSet collects raw detector scores keyed by detector name
type SignalSet struct {
	Specs  map[string]DetectorSpec
	Scores map[string][]domain.DetectorScore
}

// NewSignalSet creates an empty signal set
func NewSignalSet() *SignalSet {
	return &SignalSet{
		Specs:  make(map[string]DetectorSpec),
		Scores: make(map[string][]domain.DetectorScore),
	}
}

// Add records one raw value
func (s *SignalSet) Add(spec DetectorSpec, entityID string, raw float64) {
	s.Specs[spec.Name] = spec
	s.Scores[spec.Name] = append(s.Scores[spec.Name], domain.DetectorScore{
		EntityID: entityID,
		Detector: spec.Name,
		Kind:     spec.Kind,
		Raw:      raw,
	})
}

// SpecList returns the detector specs in name order
func (s *SignalSet) SpecList() []DetectorSpec {
	out := make([]DetectorSpec, 0, len(s.Specs))
	for _, spec := range s.Specs {
		out = append(out, spec)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

// reservedDetectors are produced inside the pipeline and never read from features
var reservedDetectors = map[string]bool{
	domain.DetectorCoverage:         true,
	domain.DetectorGraphBetweenness: true,
	domain.DetectorGraphCloseness:   true,
	domain.DetectorGraphCycle:       true,
	domain.DetectorCloneSimilarity:  true,
}

// ResolveDetector maps an entity feature to a detector. Configured features
// win; otherwise a "<kind>.<name>" feature maps by its prefix. Anything else
// is ignored.
func ResolveDetector(feature string, configured map[string]DetectorSpec) (DetectorSpec, bool) {
	if reservedDetectors[feature] {
		return DetectorSpec{}, false
	}
	if spec, ok := configured[feature]; ok {
		return spec, true
	}
	prefix, _, found := strings.Cut(feature, ".")
	if !found {
		return DetectorSpec{}, false
	}
	kind, err := domain.ParseDetectorKind(prefix)
	if err != nil {
		return DetectorSpec{}, false
	}
	return DetectorSpec{Name: feature, Kind: kind, Inverted: kind == domain.DetectorKindCoverage}, true
}

// FeatureSignals builds detector scores from entity features and coverage.
// Entities are visited in the given order and features in name order.
func FeatureSignals(entities []domain.Entity, configured map[string]DetectorSpec, coverage map[string]float64) *SignalSet {
	set := NewSignalSet()
	for i := range entities {
		e := &entities[i]
		names := make([]string, 0, len(e.Features))
		for name := range e.Features {
			names = append(names, name)
		}
		sort.Strings(names)
		for _, name := range names {
			if spec, ok := ResolveDetector(name, configured); ok {
				set.Add(spec, e.ID, e.Features[name])
			}
		}
		if ratio, ok := coverage[e.ID]; ok {
			set.Add(DetectorSpec{Name: domain.DetectorCoverage, Kind: domain.DetectorKindCoverage, Inverted: true}, e.ID, ratio)
		}
	}
	return set
}

// GraphSignals adds betweenness, closeness and cycle membership for every
// entity node of a non-empty graph
func GraphSignals(set *SignalSet, entities []domain.Entity, graph *domain.GraphResult) {
	if graph == nil || graph.Summary.Edges == 0 {
		return
	}
	for i := range entities {
		cr, ok := graph.Centrality[entities[i].ID]
		if !ok {
			continue
		}
		id := entities[i].ID
		set.Add(DetectorSpec{Name: domain.DetectorGraphBetweenness, Kind: domain.DetectorKindGraph}, id, cr.NormalizedBetweenness)
		set.Add(DetectorSpec{Name: domain.DetectorGraphCloseness, Kind: domain.DetectorKindGraph}, id, cr.Closeness)
		set.Add(DetectorSpec{Name: domain.DetectorGraphCycle, Kind: domain.DetectorKindGraph}, id, float64(cr.CycleLength))
	}
}

// CloneSignals adds the best exposed pair similarity of every entity that
// took part in clone detection
func CloneSignals(set *SignalSet, entities []domain.Entity, clones *CloneDetectionResult) {
	if clones == nil {
		return
	}
	best := clones.PartnerSimilarity()
	for i := range entities {
		if sim, ok := best[entities[i].ID]; ok {
			set.Add(DetectorSpec{Name: domain.DetectorCloneSimilarity, Kind: domain.DetectorKindClone}, entities[i].ID, sim)
		}
	}
}
