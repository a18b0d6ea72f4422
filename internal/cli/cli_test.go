package cli

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vk/devdag/internal/app"
)

func TestParse(t *testing.T) {
	t.Setenv(EnvNeo4jURI, "")
	t.Setenv(EnvNotifyURL, "")

	cfg, exit, err := Parse([]string{"--log-level", "DEBUG", "diff", "--mode", "left", "a.json", "b.json", "-o", "d.json"}, &bytes.Buffer{})
	require.NoError(t, err)
	assert.False(t, exit)
	assert.Equal(t, app.CmdDiff, cfg.Command)
	assert.Equal(t, []string{"a.json", "b.json"}, cfg.Args)
	assert.Equal(t, "left", cfg.DiffMode)
	assert.Equal(t, "d.json", cfg.OutPath)
	assert.Equal(t, "debug", cfg.LogLevel)
	assert.Equal(t, "text", cfg.LogFormat)
	assert.Equal(t, "neo4j", cfg.Neo4j.Database)
	assert.Equal(t, app.ColorAuto, cfg.Color)
}

func TestParse_EnvironmentDefaults(t *testing.T) {
	t.Setenv(EnvNeo4jURI, "bolt://db:7687")
	t.Setenv(EnvNeo4jUser, "reader")
	t.Setenv(EnvNeo4jPassword, "secret")
	t.Setenv(EnvNotifyURL, "http://events:3000/")

	cfg, _, err := Parse([]string{"snapshot", "list"}, &bytes.Buffer{})
	require.NoError(t, err)
	assert.Equal(t, app.Neo4jConfig{URI: "bolt://db:7687", User: "reader", Password: "secret", Database: "neo4j"}, cfg.Neo4j)
	assert.Equal(t, "http://events:3000/", cfg.NotifyURL)

	cfg, _, err = Parse([]string{"--neo4j-uri", "bolt://other:7687", "snapshot", "list"}, &bytes.Buffer{})
	require.NoError(t, err)
	assert.Equal(t, "bolt://other:7687", cfg.Neo4j.URI, "flags win over the environment")
}

func TestParse_ShouldExit(t *testing.T) {
	for _, args := range [][]string{{"-h"}, {"--help"}, {}} {
		out := &bytes.Buffer{}
		cfg, exit, err := Parse(args, out)
		require.NoError(t, err)
		assert.True(t, exit)
		assert.Nil(t, cfg)
		assert.Contains(t, out.String(), "Usage:")
		assert.Contains(t, out.String(), "--neo4j-uri")
	}
}

func TestParse_Errors(t *testing.T) {
	t.Setenv(EnvNeo4jURI, "")
	testCases := []struct {
		name    string
		args    []string
		wantErr string
	}{
		{"unknown flag", []string{"--bogus", "print", "g.json"}, "unknown flag: --bogus"},
		{"bad log format", []string{"--log-format", "xml", "print", "g.json"}, "invalid log-format"},
		{"bad log level", []string{"--log-level", "loud", "print", "g.json"}, "invalid log-level"},
		{"unknown command", []string{"merge", "a", "b"}, `unknown command "merge"`},
		{"wrong arity", []string{"compare", "a.json"}, "compare: want 2 arguments, got 1"},
		{"bad mode", []string{"diff", "-m", "middle", "a", "b"}, "unknown diff mode"},
		{"snapshot needs neo4j", []string{"snapshot", "list"}, "--neo4j-uri is required"},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			_, exit, err := Parse(tc.args, &bytes.Buffer{})
			assert.False(t, exit)
			var exitErr *ExitError
			require.ErrorAs(t, err, &exitErr)
			assert.Equal(t, 2, exitErr.Code)
			assert.Contains(t, exitErr.Message, tc.wantErr)
		})
	}
}
