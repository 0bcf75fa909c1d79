package domain

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func testView(t *testing.T) *FeatureView {
	t.Helper()
	v, err := NewFeatureView("demo", "driver_stats", []string{"driver"},
		[]Feature{{Name: "conv_rate", ValueType: ValueTypeFloat64}},
		"driver_source", 24*time.Hour, true)
	assert.NoError(t, err)
	return v
}

func TestNewFeatureView_Validation(t *testing.T) {
	_, err := NewFeatureView("p", "", []string{"e"}, []Feature{{Name: "f"}}, "s", 0, false)
	assert.ErrorIs(t, err, ErrInvalidViewName)

	_, err = NewFeatureView("p", "v", nil, []Feature{{Name: "f"}}, "s", 0, false)
	assert.ErrorIs(t, err, ErrViewWithoutEntities)

	_, err = NewFeatureView("p", "v", []string{"e"}, nil, "s", 0, false)
	assert.ErrorIs(t, err, ErrViewWithoutFeatures)

	_, err = NewFeatureView("p", "v", []string{"e"}, []Feature{{Name: "f"}}, "", 0, false)
	assert.ErrorIs(t, err, ErrMissingSourceRef)
}

func TestFeatureView_Feature(t *testing.T) {
	v := testView(t)

	f, err := v.Feature("conv_rate")
	assert.NoError(t, err)
	assert.Equal(t, ValueTypeFloat64, f.ValueType)

	_, err = v.Feature("nope")
	assert.ErrorIs(t, err, ErrFeatureNotFound)
}

func TestFeatureView_IsFresh(t *testing.T) {
	v := testView(t)
	now := time.Now()

	assert.True(t, v.IsFresh(now.Add(-time.Hour), now))
	assert.True(t, v.IsFresh(now.Add(-24*time.Hour), now))
	assert.False(t, v.IsFresh(now.Add(-25*time.Hour), now))

	v.TTL = 0
	assert.True(t, v.IsFresh(now.Add(-1000*time.Hour), now))
}

func TestFeatureView_AddMaterializedInterval_Merges(t *testing.T) {
	v := testView(t)
	day := 24 * time.Hour
	t0 := time.Date(2021, 8, 1, 0, 0, 0, 0, time.UTC)

	v.AddMaterializedInterval(Interval{Start: t0, End: t0.Add(day)})
	v.AddMaterializedInterval(Interval{Start: t0.Add(2 * day), End: t0.Add(3 * day)})
	assert.Len(t, v.MaterializedIntervals, 2)

	// bridges the gap, everything collapses into one interval
	v.AddMaterializedInterval(Interval{Start: t0.Add(day), End: t0.Add(2 * day)})
	assert.Len(t, v.MaterializedIntervals, 1)
	assert.Equal(t, t0, v.MaterializedIntervals[0].Start)
	assert.Equal(t, t0.Add(3*day), v.MaterializedIntervals[0].End)

	assert.Equal(t, t0.Add(3*day), v.MostRecentEnd())
}

func TestFeatureView_MostRecentEnd_Empty(t *testing.T) {
	v := testView(t)
	assert.True(t, v.MostRecentEnd().IsZero())
}

func TestNewInterval_Invalid(t *testing.T) {
	now := time.Now()
	_, err := NewInterval(now, now)
	assert.ErrorIs(t, err, ErrInvalidInterval)
	_, err = NewInterval(now, now.Add(-time.Hour))
	assert.ErrorIs(t, err, ErrInvalidInterval)
}

func TestParseFeatureRef(t *testing.T) {
	ref, err := ParseFeatureRef("driver_stats:conv_rate")
	assert.NoError(t, err)
	assert.Equal(t, "driver_stats", ref.View)
	assert.Equal(t, "conv_rate", ref.Feature)
	assert.Equal(t, "driver_stats__conv_rate", ref.ColumnName())
	assert.Equal(t, "driver_stats:conv_rate", ref.String())
}

func TestParseFeatureRef_Invalid(t *testing.T) {
	for _, bad := range []string{"conv_rate", "view:", ":feature", ""} {
		_, err := ParseFeatureRef(bad)
		assert.ErrorIs(t, err, ErrInvalidFeatureRef, bad)
	}
}
