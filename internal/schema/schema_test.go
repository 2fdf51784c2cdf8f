package schema

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestResult_Compiles(t *testing.T) {
	sch, err := Result()
	require.NoError(t, err)
	assert.NotNil(t, sch)
}

const minimal = `{
  "schema_version": "1.0",
  "analysis_id": "0b4e5f1a-1c2d-5e3f-8a9b-0c1d2e3f4a5b",
  "demo_hash": "abc",
  "map": "de_mirage",
  "tick_rate": 64,
  "rounds_played": 1,
  "score": {"T": 1, "CT": 0},
  "players": {
    "1001": {
      "id": 1001, "name": "a", "squad": "T",
      "rating": {"player": 1001, "role": "entry", "raw_impact": 12.5, "percentile": 40, "final": 40,
        "rules": [{"rule": "role_baseline", "kind": "normalize", "value": -0.2, "before": 12.5, "after": 40}]},
      "role": {"player": 1001, "role": "entry", "confidence": 0.5, "evidence_count": 2},
      "round_roles": [],
      "wpa": 0.1, "trade_potential": 100,
      "stats": {"rounds_played": 1, "kills": 1, "deaths": 0, "kdr": 1, "adr": 100, "kast": 1},
      "feedback": {"deaths": 0, "causes": {"solo_push": 0}, "primary_count": 0, "items": [], "classifications": []}
    }
  },
  "mistakes": [],
  "mistake_summary": {"DRY_PEEK": 0},
  "predictions": [{"kind": "round_win", "round": 1, "team": "T", "probability": 0.5, "log_odds": 0,
    "confidence": 0, "factors": [{"name": "economy", "input": 0, "contribution": 0}]}],
  "rounds": [{"number": 1, "winner": "T", "planted": false, "sides": {"1001": "T"}}]
}`

func TestValidate_Minimal(t *testing.T) {
	assert.NoError(t, Validate([]byte(minimal)))
}

func TestValidate_Rejects(t *testing.T) {
	cases := map[string]string{
		"not json":      `{`,
		"missing field": `{"schema_version": "1.0"}`,
		"wrong version": `{"schema_version": "2.0"}`,
	}
	for name, doc := range cases {
		assert.Error(t, Validate([]byte(doc)), name)
	}
}

func TestValidate_RatingOutOfBounds(t *testing.T) {
	doc := bytes.Replace([]byte(minimal), []byte(`"final": 40`), []byte(`"final": 140`), 1)
	assert.Error(t, Validate(doc))
}

func TestValidate_Feedback(t *testing.T) {
	item := `"items": [{"cause": "solo_push", "round_phase": "early", "count": 2, "priority": 18,
	  "message": "2 solo pushes", "avg_teammate_distance": 950, "traded": 0, "untraded": 2, "drills": []}]`
	doc := bytes.Replace([]byte(minimal), []byte(`"items": []`), []byte(item), 1)
	assert.NoError(t, Validate(doc))

	badCause := bytes.Replace(doc, []byte(`"cause": "solo_push"`), []byte(`"cause": "panic"`), 1)
	assert.Error(t, Validate(badCause))

	noFeedback := bytes.Replace([]byte(minimal), []byte(`"feedback"`), []byte(`"coaching"`), 1)
	assert.Error(t, Validate(noFeedback), "feedback is required per player")
}
