package config

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestParseEmptyContentReturnsBase(t *testing.T) {
	cfg, warnings, err := Parse("  \n", Default())
	require.NoError(t, err)
	require.Empty(t, warnings)
	require.Equal(t, Default(), cfg)
}

func TestParseCommentOnlyContentIsNotAnObject(t *testing.T) {
	_, _, err := Parse("// nothing here\nbase_url = http://x\n", Default())
	require.Error(t, err)
	require.Contains(t, err.Error(), "JSONC object")
}

func TestParseLeadingCommentBeforeObject(t *testing.T) {
	cfg, _, err := Parse("/* parley */\n{\"playback\": {\"autoplay\": false}}", Default())
	require.NoError(t, err)
	require.False(t, cfg.Playback.Autoplay)
}
