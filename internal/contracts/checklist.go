package contracts

import "fmt"

// Source identifies the analyzer that produced a criterion
type Source string

const (
	SourceMarket        Source = "market"
	SourceTechnical     Source = "technical"
	SourceInstitutional Source = "institutional"
	SourceTiming        Source = "timing"
)

// Criterion is one of the fixed checklist items
type Criterion int

// ⭐ SSOT: 체크리스트 항목은 이 12개로 고정
const (
	CriterionVIXDeclining Criterion = iota
	CriterionSectorStrength
	CriterionIndexTrend
	CriterionMeanReversion
	CriterionVolumeClimax
	CriterionRSI2Extreme
	CriterionBollingerTouch
	CriterionInstitutionalFlow
	CriterionInstitutionalActivity
	CriterionFavorableDay
	CriterionOptimalWindow
	CriterionPullbackEntry

	criterionCount
)

// TotalCriteria is the fixed checklist size
const TotalCriteria = int(criterionCount)

var criterionNames = [TotalCriteria]string{
	"vix_declining",
	"sector_strength",
	"index_trend",
	"mean_reversion_opportunity",
	"volume_climax",
	"rsi2_extreme",
	"bollinger_touch",
	"institutional_flow_aligned",
	"institutional_activity",
	"favorable_day",
	"optimal_window",
	"pullback_entry",
}

var criterionSources = [TotalCriteria]Source{
	SourceMarket, SourceMarket, SourceMarket,
	SourceTechnical, SourceTechnical, SourceTechnical, SourceTechnical,
	SourceInstitutional, SourceInstitutional,
	SourceTiming, SourceTiming, SourceTiming,
}

// Criteria returns all checklist items in order
func Criteria() []Criterion {
	out := make([]Criterion, TotalCriteria)
	for i := range out {
		out[i] = Criterion(i)
	}
	return out
}

// Valid reports whether c is one of the fixed items
func (c Criterion) Valid() bool {
	return c >= 0 && c < criterionCount
}

func (c Criterion) String() string {
	if !c.Valid() {
		return fmt.Sprintf("criterion(%d)", int(c))
	}
	return criterionNames[c]
}

// Source returns the analyzer that owns the item
func (c Criterion) Source() Source {
	if !c.Valid() {
		return ""
	}
	return criterionSources[c]
}

// MarshalText renders the criterion by name in JSON output
func (c Criterion) MarshalText() ([]byte, error) {
	return []byte(c.String()), nil
}

// CriterionResult is one evaluated checklist item
type CriterionResult struct {
	Criterion Criterion `json:"criterion"`
	Source    Source    `json:"source"`
	Confirmed bool      `json:"confirmed"`
	Value     Measure   `json:"value"`
	Note      string    `json:"note,omitempty"`
}

// Checklist is the fixed-size evaluated checklist.
// The array bound makes ConfirmedCount <= TotalCount hold by construction.
type Checklist [TotalCriteria]CriterionResult

// NewChecklist returns a checklist with every item unconfirmed
func NewChecklist() Checklist {
	var cl Checklist
	for i := range cl {
		c := Criterion(i)
		cl[i] = CriterionResult{Criterion: c, Source: c.Source(), Note: "not evaluated"}
	}
	return cl
}

// ConfirmedCount counts confirmed items
func (cl *Checklist) ConfirmedCount() int {
	n := 0
	for _, r := range cl {
		if r.Confirmed {
			n++
		}
	}
	return n
}

// TotalCount is always TotalCriteria
func (cl *Checklist) TotalCount() int {
	return len(cl)
}

// Get returns the result for one item
func (cl *Checklist) Get(c Criterion) CriterionResult {
	return cl[c]
}

// ChecklistContribution is implemented by every analyzer that feeds the checklist.
// Bias returns NONE for sources that do not vote on direction.
// Criteria is evaluated once the composite direction is known; direction-aware
// items must never confirm for DirectionNone.
type ChecklistContribution interface {
	Source() Source
	Bias() Direction
	Criteria(dir Direction) []CriterionResult
}

// UnmarshalText parses a criterion name
func (c *Criterion) UnmarshalText(text []byte) error {
	for i, name := range criterionNames {
		if name == string(text) {
			*c = Criterion(i)
			return nil
		}
	}
	return InvalidParameter("criterion", fmt.Sprintf("unknown criterion %q", string(text)))
}
