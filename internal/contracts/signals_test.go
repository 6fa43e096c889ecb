package contracts

import (
	"encoding/json"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func bar(day int, o, h, l, c float64, v int64) PriceBar {
	return PriceBar{
		Date:   time.Date(2024, 3, day, 0, 0, 0, 0, time.UTC),
		Open:   o,
		High:   h,
		Low:    l,
		Close:  c,
		Volume: v,
	}
}

func TestErrorKinds(t *testing.T) {
	err := fmt.Errorf("evaluate: %w", InsufficientData("sma", 20, 5))

	assert.True(t, errors.Is(err, ErrInsufficientData))
	assert.False(t, errors.Is(err, ErrInvalidParameter))
	assert.Equal(t, KindInsufficientData, KindOf(err))
	assert.Contains(t, err.Error(), "need 20 bars, have 5")

	assert.Equal(t, KindUndefinedRatio, KindOf(UndefinedRatio("call_put_ratio", "put volume is zero")))
	assert.Equal(t, KindUpstreamDataGap, KindOf(UpstreamDataGap("options", "no chain")))
	assert.Equal(t, ErrorKind(""), KindOf(errors.New("plain")))

	var e *Error
	require.ErrorAs(t, InvalidParameter("leverage", "out of range"), &e)
	assert.Equal(t, "leverage", e.Field)
}

func TestPriceBarValidate(t *testing.T) {
	tests := []struct {
		name    string
		bar     PriceBar
		wantErr bool
	}{
		{"valid", bar(1, 10, 11, 9, 10.5, 100), false},
		{"high below close", bar(1, 10, 10.2, 9, 10.5, 100), true},
		{"low above open", bar(1, 10, 11, 10.1, 10.5, 100), true},
		{"negative volume", bar(1, 10, 11, 9, 10.5, -1), true},
		{"zero price", bar(1, 0, 11, 9, 10.5, 1), true},
		{"zero volume ok", bar(1, 10, 11, 9, 10.5, 0), false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.bar.Validate()
			if tt.wantErr {
				assert.ErrorIs(t, err, ErrInvalidParameter)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestPriceSeriesValidateOrdering(t *testing.T) {
	s := &PriceSeries{Symbol: "AAPL", Resolution: ResolutionDaily, Bars: []PriceBar{
		bar(2, 10, 11, 9, 10, 100),
		bar(1, 10, 11, 9, 10, 100),
	}}
	assert.ErrorIs(t, s.Validate(), ErrInvalidParameter)

	s.Bars[0], s.Bars[1] = s.Bars[1], s.Bars[0]
	assert.NoError(t, s.Validate())

	assert.Equal(t, []float64{10, 10}, s.Closes())
	last, ok := s.Last()
	require.True(t, ok)
	assert.Equal(t, 2, last.Date.Day())
	assert.Equal(t, 1, s.Tail(1).Len())

	var empty *PriceSeries
	assert.Equal(t, 0, empty.Len())
}

func TestChecklistBounds(t *testing.T) {
	cl := NewChecklist()
	assert.Equal(t, 12, cl.TotalCount())
	assert.Equal(t, 0, cl.ConfirmedCount())

	for i := range cl {
		cl[i].Confirmed = true
	}
	assert.Equal(t, cl.TotalCount(), cl.ConfirmedCount())
}

func TestCriterionNamesAndSources(t *testing.T) {
	seen := map[string]bool{}
	perSource := map[Source]int{}
	for _, c := range Criteria() {
		require.True(t, c.Valid())
		assert.False(t, seen[c.String()], "duplicate name %s", c)
		seen[c.String()] = true
		perSource[c.Source()]++
	}

	assert.Len(t, seen, TotalCriteria)
	assert.Equal(t, 3, perSource[SourceMarket])
	assert.Equal(t, 4, perSource[SourceTechnical])
	assert.Equal(t, 2, perSource[SourceInstitutional])
	assert.Equal(t, 3, perSource[SourceTiming])
	assert.False(t, Criterion(99).Valid())
}

func TestCriterionJSONRoundTrip(t *testing.T) {
	data, err := json.Marshal(CriterionResult{Criterion: CriterionRSI2Extreme, Confirmed: true})
	require.NoError(t, err)
	assert.Contains(t, string(data), `"criterion":"rsi2_extreme"`)

	var back CriterionResult
	require.NoError(t, json.Unmarshal(data, &back))
	assert.Equal(t, CriterionRSI2Extreme, back.Criterion)
}

func TestMeasureAndFlag(t *testing.T) {
	m := MeasureOf(0, UndefinedRatio("cpr", "put volume is zero"))
	assert.False(t, m.Known)
	assert.Contains(t, m.Reason, "undefined_ratio")

	assert.True(t, Flag{Value: true, Known: true}.True())
	assert.False(t, Flag{Value: true}.True())
	assert.True(t, Flag{Known: true}.False())
}

func TestParseHelpers(t *testing.T) {
	r, err := ParseResolution("5MIN")
	require.NoError(t, err)
	assert.True(t, r.Intraday())
	_, err = ParseResolution("weekly")
	assert.ErrorIs(t, err, ErrInvalidParameter)

	ot, err := ParseOptionType("P")
	require.NoError(t, err)
	assert.Equal(t, OptionPut, ot)
}

func TestEvaluationInputsValidate(t *testing.T) {
	in := &EvaluationInputs{}
	assert.ErrorIs(t, in.Validate(), ErrInvalidParameter)

	in.Daily = &PriceSeries{Symbol: "AAPL", Bars: []PriceBar{bar(1, 10, 11, 9, 10, 100)}}
	assert.ErrorIs(t, in.Validate(), ErrInvalidParameter, "missing as_of")

	in.AsOf = time.Date(2024, 3, 1, 15, 0, 0, 0, time.UTC)
	assert.NoError(t, in.Validate())

	in.Options = &OptionsChainSnapshot{Symbol: "AAPL", Date: in.AsOf, Contracts: []OptionContract{{Type: "straddle", Strike: 100}}}
	assert.ErrorIs(t, in.Validate(), ErrInvalidParameter)
}
