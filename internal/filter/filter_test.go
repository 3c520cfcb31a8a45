package filter_test

import (
	"net/url"
	"testing"

	"github.com/hay-kot/criterio"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nhle/advisor-tasks/internal/filter"
	"github.com/nhle/advisor-tasks/internal/model"
)

var cfg = model.FilterConfig{DefaultTake: 10, MaxTake: 100}

func newSync(t *testing.T, initial string) (*filter.Synchronizer, *filter.History) {
	t.Helper()
	h := filter.NewHistory(initial)
	return filter.NewSynchronizer(h, cfg, zerolog.Nop()), h
}

func TestParse_EmptyAddressIsDefault(t *testing.T) {
	s, _ := newSync(t, "")

	f := s.Current()
	assert.True(t, f.Equal(model.Filter{Status: model.StatusAll, Page: 1, Take: 10}))
	assert.True(t, s.IsDefault(f))
	assert.True(t, s.IsDefaultView())
}

func TestParse(t *testing.T) {
	codec := filter.NewCodec(cfg)

	tests := []struct {
		name  string
		query string
		want  model.Filter
	}{
		{
			name:  "all fields",
			query: "status=late&category=k1&manager=m1&contractNumber=C-1&id=t1&page=3&take=25",
			want: model.Filter{
				Status: model.StatusLate, Category: model.Ptr("k1"), Manager: model.Ptr("m1"),
				ContractNumber: model.Ptr("C-1"), ID: model.Ptr("t1"), Page: 3, Take: 25,
			},
		},
		{
			name:  "missing fields default",
			query: "manager=m1",
			want:  model.Filter{Status: model.StatusAll, Manager: model.Ptr("m1"), Page: 1, Take: 10},
		},
		{
			name:  "empty category selects uncategorized",
			query: "category=",
			want:  model.Filter{Status: model.StatusAll, Category: model.Ptr(""), Page: 1, Take: 10},
		},
		{
			name:  "unknown keys ignored",
			query: "tab=overview&status=completed",
			want:  model.Filter{Status: model.StatusCompleted, Page: 1, Take: 10},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			v, err := url.ParseQuery(tt.query)
			require.NoError(t, err)

			got, err := codec.Parse(v)
			require.NoError(t, err)
			assert.True(t, tt.want.Equal(got), "got %+v", got)
		})
	}
}

func TestParse_InvalidFallsBackWholesale(t *testing.T) {
	codec := filter.NewCodec(cfg)

	tests := []struct {
		name  string
		query string
	}{
		{"unknown status", "status=overdue&category=k1"},
		{"zero page", "page=0&manager=m1"},
		{"non numeric page", "page=two&manager=m1"},
		{"octal page", "page=010&manager=m1"},
		{"hex page", "page=0x2"},
		{"signed take", "take=+5"},
		{"padded take", "take=%205"},
		{"take too large", "take=500&status=late"},
		{"take zero", "take=0"},
		{"repeated key", "category=a&category=b"},
		{"empty id", "id=&status=late"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			v, err := url.ParseQuery(tt.query)
			require.NoError(t, err)

			got, err := codec.Parse(v)
			require.Error(t, err)
			assert.True(t, filter.IsValidationError(err))
			assert.True(t, got.Equal(codec.Defaults()), "a single malformed field resets every field")
		})
	}
}

func TestParse_ValidationErrorCarriesFields(t *testing.T) {
	codec := filter.NewCodec(cfg)

	_, err := codec.Parse(url.Values{"status": {"nope"}, "take": {"0"}})

	var fieldErrs criterio.FieldErrors
	require.ErrorAs(t, err, &fieldErrs)
	assert.Len(t, fieldErrs, 2)
}

func TestSerialize_RoundTrip(t *testing.T) {
	codec := filter.NewCodec(cfg)

	filters := []model.Filter{
		codec.Defaults(),
		{Status: model.StatusLate},
		{Status: model.StatusAll, Category: model.Ptr("")},
		{Status: model.StatusCompleted, Category: model.Ptr("k1"), Manager: model.Ptr("m1")},
		{Status: model.StatusInProgress, ContractNumber: model.Ptr("C 42/7"), ID: model.Ptr("t-1")},
		{Status: model.StatusAll, Manager: model.Ptr("m&=2")},
	}

	for _, f := range filters {
		encoded := codec.Serialize(f).Encode()
		v, err := url.ParseQuery(encoded)
		require.NoError(t, err)

		got, err := codec.Parse(v)
		require.NoError(t, err, encoded)
		assert.True(t, f.WithoutPagination().Equal(got.WithoutPagination()), "round trip of %q", encoded)
		assert.Equal(t, codec.IsDefault(f), codec.IsDefault(got))
	}

	assert.Empty(t, codec.Serialize(codec.Defaults()).Encode())
	assert.Equal(t, "category=", codec.Serialize(model.Filter{Category: model.Ptr("")}).Encode())
}

func TestIsDefault_IgnoresPagination(t *testing.T) {
	codec := filter.NewCodec(cfg)

	assert.True(t, codec.IsDefault(model.Filter{Status: model.StatusAll, Page: 7, Take: 50}))
	assert.False(t, codec.IsDefault(model.Filter{Status: model.StatusLate, Page: 1, Take: 10}))
	assert.False(t, codec.IsDefault(model.Filter{Status: model.StatusAll, Category: model.Ptr(""), Page: 1, Take: 10}))
}

func TestSelectCategory_ToggleLaw(t *testing.T) {
	s, _ := newSync(t, "")

	s.SelectCategory("X")
	require.NotNil(t, s.Current().Category)
	assert.Equal(t, "X", *s.Current().Category)

	s.SelectCategory("X")
	assert.Nil(t, s.Current().Category)

	s.SelectCategory("X")
	s.SelectCategory("Y")
	require.NotNil(t, s.Current().Category)
	assert.Equal(t, "Y", *s.Current().Category)
}

func TestSelect_ResetsPage(t *testing.T) {
	s, _ := newSync(t, "page=4")
	require.Equal(t, 4, s.Current().Page)

	s.SelectManager("m1")
	assert.Equal(t, 1, s.Current().Page)

	require.NoError(t, s.SetPage(3))
	assert.Equal(t, 3, s.Current().Page)

	require.NoError(t, s.SelectStatus(model.StatusLate))
	assert.Equal(t, 1, s.Current().Page)

	require.NoError(t, s.SetPage(2))
	s.SelectTask("t-9")
	assert.Equal(t, 2, s.Current().Page, "detail selection keeps pagination")

	require.NoError(t, s.SetTake(20))
	assert.Equal(t, 1, s.Current().Page)
	assert.Equal(t, 20, s.Current().Take)
}

func TestSelectStatus_Toggle(t *testing.T) {
	s, h := newSync(t, "")

	require.NoError(t, s.SelectStatus(model.StatusLate))
	assert.Equal(t, model.StatusLate, s.Current().Status)
	assert.Equal(t, "status=late", h.String())

	require.NoError(t, s.SelectStatus(model.StatusLate))
	assert.Equal(t, model.StatusAll, s.Current().Status)
	assert.True(t, s.IsDefaultView())

	assert.Error(t, s.SelectStatus("overdue"))
}

func TestSetters_Validate(t *testing.T) {
	s, h := newSync(t, "")

	assert.Error(t, s.SetPage(0))
	assert.Error(t, s.SetTake(101))
	assert.Equal(t, 1, h.Len(), "rejected writes do not navigate")

	s.SetContractNumber("C-1")
	assert.Equal(t, "C-1", *s.Current().ContractNumber)
	s.SetContractNumber("")
	assert.Nil(t, s.Current().ContractNumber)
}

func TestHistory_BackForwardNotifies(t *testing.T) {
	s, h := newSync(t, "")

	var seen []model.Filter
	unsubscribe := s.OnChange(func(f model.Filter) { seen = append(seen, f) })

	s.SelectCategory("A")
	s.SelectManager("m1")
	require.Len(t, seen, 2)

	require.True(t, h.Back())
	assert.Nil(t, s.Current().Manager)
	assert.Equal(t, "A", *s.Current().Category)

	require.True(t, h.Back())
	assert.True(t, s.IsDefaultView())
	assert.False(t, h.Back())

	require.True(t, h.Forward())
	assert.Equal(t, "A", *s.Current().Category)
	require.Len(t, seen, 5)

	// A new selection drops the forward entry.
	require.NoError(t, s.SelectStatus(model.StatusCompleted))
	assert.False(t, h.Forward())

	unsubscribe()
	s.Reset()
	assert.Len(t, seen, 6)
	assert.True(t, s.IsDefaultView())
}

func TestHistory_MalformedAddress(t *testing.T) {
	s, h := newSync(t, "status=late")

	h.Navigate("status=bogus&category=A")
	assert.True(t, s.IsDefaultView())

	h.Replace(url.Values{"status": {"late"}})
	assert.Equal(t, model.StatusLate, s.Current().Status)

	var seen []model.Filter
	s.OnChange(func(f model.Filter) { seen = append(seen, f) })

	// A bad escape in one field discards the fields that did parse.
	h.Navigate("status=late&category=%zz")
	assert.True(t, s.Current().Equal(s.Defaults()))
	assert.True(t, s.IsDefaultView())
	require.Len(t, seen, 1)
	assert.True(t, seen[0].Equal(s.Defaults()))

	_, err := h.Query()
	assert.Error(t, err)
}
