package types

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHomeManager(t *testing.T) {
	t.Run("Full Payload", func(t *testing.T) {
		body := `{"TotalConsumption":100,"GridConsumption":40,"SelfConsumption":60,"SelfConsumptionQuote":0.6,"AutarkyQuote":0.6,"Timestamp":{"DateTime":"2024-01-01T00:00:00"},"InfoMessages":[],"WarningMessages":[],"ErrorMessages":["E1"]}`

		var hm HomeManager
		require.NoError(t, json.Unmarshal([]byte(body), &hm))

		assert.True(t, hm.Valid())
		assert.Equal(t, 100.0, hm.TotalConsumption.Value())
		assert.Equal(t, 40.0, hm.GridConsumption.Value())
		assert.Equal(t, 60.0, hm.SelfConsumption.Value())
		assert.Equal(t, 0.6, hm.SelfConsumptionQuote.Value())
		assert.Equal(t, 0.6, hm.AutarkyQuote.Value())
		assert.Equal(t, "2024-01-01T00:00:00", hm.DateTime())
		assert.Empty(t, hm.InfoMessages)
		assert.Equal(t, []Message{"E1"}, hm.ErrorMessages)
	})

	t.Run("Missing Timestamp", func(t *testing.T) {
		var hm HomeManager
		require.NoError(t, json.Unmarshal([]byte(`{"TotalConsumption":100}`), &hm))
		assert.False(t, hm.Valid())
		assert.Equal(t, "", hm.DateTime())
	})

	t.Run("Empty DateTime", func(t *testing.T) {
		var hm HomeManager
		require.NoError(t, json.Unmarshal([]byte(`{"Timestamp":{}}`), &hm))
		assert.False(t, hm.Valid())
	})

	t.Run("Object Messages", func(t *testing.T) {
		var hm HomeManager
		require.NoError(t, json.Unmarshal([]byte(`{"WarningMessages":[{"Code": 7, "Text": "grid"}, "plain"]}`), &hm))
		assert.Equal(t, []Message{`{"Code":7,"Text":"grid"}`, "plain"}, hm.WarningMessages)
	})

	t.Run("Null Metrics", func(t *testing.T) {
		var hm HomeManager
		require.NoError(t, json.Unmarshal([]byte(`{"TotalConsumption":null,"GridConsumption":40,"Timestamp":{"DateTime":"2024-01-01T00:00:00"}}`), &hm))
		assert.True(t, hm.Valid())
		assert.Nil(t, hm.TotalConsumption.Value())
		_, ok := hm.TotalConsumption.Float64()
		assert.False(t, ok)
		// missing is the same as null
		assert.Nil(t, hm.AutarkyQuote.Value())
		f, ok := hm.GridConsumption.Float64()
		assert.True(t, ok)
		assert.Equal(t, 40.0, f)
	})

	t.Run("Non-Number Metrics", func(t *testing.T) {
		var hm HomeManager
		require.NoError(t, json.Unmarshal([]byte(`{"TotalConsumption":"1.5","GridConsumption":"n/a","SelfConsumption":true,"SelfConsumptionQuote":{"v": 1},"Timestamp":{"DateTime":"2024-01-01T00:00:00"}}`), &hm))
		assert.True(t, hm.Valid())
		assert.Equal(t, 1.5, hm.TotalConsumption.Value())
		assert.Equal(t, "n/a", hm.GridConsumption.Value())
		assert.Equal(t, "true", hm.SelfConsumption.Value())
		assert.Equal(t, `{"v":1}`, hm.SelfConsumptionQuote.Value())
	})

	t.Run("Metric Marshal", func(t *testing.T) {
		b, err := json.Marshal(struct {
			A Metric `json:"a"`
			B Metric `json:"b"`
		}{A: NewMetric(2.5)})
		require.NoError(t, err)
		assert.JSONEq(t, `{"a":2.5,"b":null}`, string(b))
	})
}
