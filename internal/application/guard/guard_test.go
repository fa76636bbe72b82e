package guard

import (
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEvaluateDefaultRules(t *testing.T) {
	engine, err := NewEngine(DefaultRules(), zerolog.Nop())
	require.NoError(t, err)

	warnings := engine.Evaluate(map[string]interface{}{
		"is_recent_account": true,
		"item_length":       12,
	})
	require.Len(t, warnings, 1)
	assert.Equal(t, "recent-account", warnings[0].Rule)

	warnings = engine.Evaluate(map[string]interface{}{
		"is_recent_account": false,
		"item_length":       12,
	})
	assert.Empty(t, warnings)
}

func TestEvaluateSkipsFailingRule(t *testing.T) {
	engine, err := NewEngine([]Rule{
		{Name: "broken", Expression: "missing_param > 3", Message: "x"},
		{Name: "ok", Expression: "item_length > 1", Message: "long"},
	}, zerolog.Nop())
	require.NoError(t, err)

	warnings := engine.Evaluate(map[string]interface{}{"item_length": 5})
	require.Len(t, warnings, 1)
	assert.Equal(t, "ok", warnings[0].Rule)
}

func TestNewEngineRejectsBadExpression(t *testing.T) {
	_, err := NewEngine([]Rule{{Name: "bad", Expression: "((", Message: "x"}}, zerolog.Nop())
	require.Error(t, err)
}
