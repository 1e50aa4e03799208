package cli

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/statsadmin/client"
	"github.com/statsadmin/client/auth/mock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRun(t *testing.T) {
	backend, err := mock.NewHTTPTestBackend()
	require.NoError(t, err)
	defer backend.Close()
	sessionDir := t.TempDir()
	t.Setenv("STATS_BASE_URL", backend.URL)
	t.Setenv("STATS_SESSION_DIR", sessionDir)
	t.Setenv("STATS_LOG_LEVEL", "error")

	payloadFile := filepath.Join(t.TempDir(), "team.json")
	require.NoError(t, os.WriteFile(payloadFile, []byte(`{"nombre":"Palestino"}`), 0o600))

	testCases := []struct {
		description string
		args        []string
		expectErr   error
		expectOut   string
	}{
		{description: "not logged in", args: []string{"get", "/teams"}, expectErr: client.ErrSessionExpired},
		{description: "bad login", args: []string{"login", "-U", "admin", "-P", "nope"}, expectErr: client.ErrInvalidCredentials},
		{description: "non admin", args: []string{"login", "-U", "user", "-P", "user", "--admin"}, expectErr: client.ErrForbiddenRole},
		{description: "login", args: []string{"login", "-U", "admin", "-P", "admin", "--admin"}, expectOut: "logged in as admin"},
		{description: "me", args: []string{"me"}, expectOut: `"usuario": "admin"`},
		{description: "get", args: []string{"get", "/teams/stats/total"}, expectOut: `"path":"/teams/stats/total"`},
		{description: "send inline", args: []string{"send", "-m", "PUT", "-d", `{"id":1}`, "/teams/1"}, expectOut: `"method":"PUT"`},
		{description: "send file", args: []string{"send", "-d", "@" + payloadFile, "/teams"}, expectOut: `Palestino`},
		{description: "logout", args: []string{"logout"}},
		{description: "after logout", args: []string{"me"}, expectErr: client.ErrSessionExpired},
	}
	for _, testCase := range testCases {
		stdout := &bytes.Buffer{}
		err := Run(testCase.args, stdout)
		if testCase.expectErr != nil {
			assert.ErrorIs(t, err, testCase.expectErr, testCase.description)
			continue
		}
		require.NoError(t, err, testCase.description)
		assert.Contains(t, stdout.String(), testCase.expectOut, testCase.description)
	}
}

func TestRun_RequiresCommand(t *testing.T) {
	t.Setenv("STATS_SESSION_DIR", t.TempDir())
	assert.Error(t, Run(nil, &bytes.Buffer{}))
}
