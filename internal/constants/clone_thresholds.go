package constants

// Clone classification thresholds on verified structural similarity.
//
// References:
// - Roy, C. K., & Cordy, J. R. (2007). A survey on software clone detection research
// - Bellon, S., et al. (2007). Comparison and evaluation of clone detection tools
const (
	// DefaultType1CloneThreshold: structurally identical fragments (>= 95%).
	DefaultType1CloneThreshold = 0.95

	// DefaultType2CloneThreshold: same shape with renamed identifiers or literals (>= 85%).
	DefaultType2CloneThreshold = 0.85

	// DefaultType3CloneThreshold: copies with changed, added or removed statements (>= 80%).
	DefaultType3CloneThreshold = 0.80
)

// LSH and verification defaults
const (
	DefaultShingleSize         = 3
	DefaultMinHashFunctions    = 128
	DefaultLSHBands            = 32
	DefaultCandidateThreshold  = 0.5
	DefaultAcceptanceThreshold = DefaultType3CloneThreshold
	DefaultMaxVerifyNodes      = 2000
	DefaultVerifyTimeoutMillis = 2000
	DefaultFeedbackRelaxation  = 0.1
)

// CloneTypeNames provides human-readable names for clone types
var CloneTypeNames = map[int]string{
	0: "Unverified",
	1: "Type-1 (Identical)",
	2: "Type-2 (Renamed)",
	3: "Type-3 (Near-Miss)",
}
