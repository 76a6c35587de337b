package ipc

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestRequestOmitsUnsetSelectors(t *testing.T) {
	raw, err := json.Marshal(Request{Command: CommandStatus})
	require.NoError(t, err)
	require.JSONEq(t, `{"command":"status"}`, string(raw))

	turn := 0
	raw, err = json.Marshal(Request{Command: CommandReplay, Turn: &turn})
	require.NoError(t, err)
	require.JSONEq(t, `{"command":"replay","turn":0}`, string(raw))
}

func TestResponseElapsed(t *testing.T) {
	require.Equal(t, "0:07", Response{ElapsedS: 7}.Elapsed())
	require.Equal(t, "2:05", Response{ElapsedS: 125}.Elapsed())
	require.Equal(t, "0:00", Response{}.Elapsed())
}
