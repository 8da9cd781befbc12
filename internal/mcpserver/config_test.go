package mcpserver

import (
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestServerConfigResolveRunString(t *testing.T) {
	sc := ServerConfig{Run: "python3 server.py --flag"}
	argv, env, err := sc.resolve()
	require.NoError(t, err)
	assert.Equal(t, []string{"python3", "server.py", "--flag"}, argv)
	assert.Nil(t, env)
}

func TestServerConfigResolveCommandWithEnv(t *testing.T) {
	sc := ServerConfig{Command: "node", Args: []string{"index.js"}, Env: map[string]string{"FOO": "bar"}}
	argv, env, err := sc.resolve()
	require.NoError(t, err)
	assert.Equal(t, []string{"node", "index.js"}, argv)
	assert.Contains(t, env, "FOO=bar")
	assert.GreaterOrEqual(t, len(env), len(os.Environ()))
}

func TestServerConfigResolveCommandNoEnvOverlay(t *testing.T) {
	sc := ServerConfig{Command: "node", Args: []string{"index.js"}}
	_, env, err := sc.resolve()
	require.NoError(t, err)
	assert.Nil(t, env)
}

func TestServerConfigResolveRejectsEmpty(t *testing.T) {
	sc := ServerConfig{}
	_, _, err := sc.resolve()
	assert.Error(t, err)
}
