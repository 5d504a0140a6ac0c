package models

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestClassifyTierBoundaries(t *testing.T) {
	tests := []struct {
		score int
		want  MatchTier
	}{
		{0, MatchTierGood},
		{59, MatchTierGood},
		{60, MatchTierGreat},
		{79, MatchTierGreat},
		{80, MatchTierBest},
		{100, MatchTierBest},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, ClassifyTier(tt.score), "score %d", tt.score)
	}
}

func sampleMatch(revealed bool) *Match {
	return &Match{
		ID:                  "m-1",
		ProfileID:           "p-1",
		CounterpartyName:    "Baltic Timber OÜ",
		CounterpartyCountry: "EE",
		MatchScore:          87,
		ScoreBreakdown:      map[string]int{"products": 40, "markets": 30, "certs": 17},
		MatchTier:           MatchTierBest,
		MatchReasons:        []string{"Overlapping product lines", "Active in your target markets"},
		Status:              MatchStatusNew,
		Revealed:            revealed,
		CounterpartyContact: &ContactInfo{
			Name:  "Kristjan Tamm",
			Title: "Export Manager",
			Email: "kristjan@baltictimber.example",
			Phone: "+372 5555 0100",
		},
		TradeData: &TradeData{Volume: "20 containers/yr", Frequency: "monthly", YearsActive: 12},
	}
}

func TestClientViewHidesContactUntilRevealed(t *testing.T) {
	m := sampleMatch(false)
	view := m.ClientView()
	assert.Nil(t, view.CounterpartyContact)
	assert.False(t, view.Revealed)
	// trade data is visible regardless of reveal state
	require.NotNil(t, view.TradeData)
	assert.Equal(t, 12, view.TradeData.YearsActive)

	revealed := sampleMatch(true)
	view = revealed.ClientView()
	require.NotNil(t, view.CounterpartyContact)
	assert.Equal(t, "kristjan@baltictimber.example", view.CounterpartyContact.Email)
}

func TestClientViewNeverSerializesScore(t *testing.T) {
	for _, revealed := range []bool{false, true} {
		raw, err := json.Marshal(sampleMatch(revealed).ClientView())
		require.NoError(t, err)

		var out map[string]interface{}
		require.NoError(t, json.Unmarshal(raw, &out))
		assert.NotContains(t, out, "match_score")
		assert.NotContains(t, out, "score_breakdown")
		assert.Contains(t, out, "match_tier")
		assert.Contains(t, out, "match_reasons")

		if !revealed {
			assert.Nil(t, out["counterparty_contact"])
		}
	}
}

func TestMatchJSONTagsHideInternalFields(t *testing.T) {
	// Defense in depth: even the raw model never marshals score or contact.
	raw, err := json.Marshal(sampleMatch(false))
	require.NoError(t, err)

	var out map[string]interface{}
	require.NoError(t, json.Unmarshal(raw, &out))
	assert.NotContains(t, out, "match_score")
	assert.NotContains(t, out, "score_breakdown")
	assert.NotContains(t, out, "counterparty_contact")
}
