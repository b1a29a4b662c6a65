package cmd

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestVersionAndMigrate(t *testing.T) {
	home := t.TempDir()

	stdout, _, err := executeCLI(t, home, "version")
	require.NoError(t, err)
	assert.Equal(t, "dev\n", stdout)

	stdout, _, err = executeCLI(t, home, "migrate")
	require.NoError(t, err)
	assert.Contains(t, stdout, "sqlite schema is up to date")
}

func TestManagerRegistry(t *testing.T) {
	home := t.TempDir()

	stdout, _, err := executeCLI(t, home, "manager", "add", "1", "--role", "owner", "--name", "Olga")
	require.NoError(t, err)
	assert.Contains(t, stdout, "Registered 1 as owner")

	_, _, err = executeCLI(t, home, "manager", "add", "2", "--role", "intern")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown role")

	stdout, _, err = executeCLI(t, home, "manager", "list")
	require.NoError(t, err)
	assert.Contains(t, stdout, "Olga")
	assert.Contains(t, stdout, "owner")
}

func TestCommandsRequireActor(t *testing.T) {
	home := t.TempDir()

	_, _, err := executeCLI(t, home, "mine")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "--actor is required")

	_, _, err = executeCLI(t, home, "mine", "--actor", "77")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "not registered")
}

func TestIngestIssueAndClose(t *testing.T) {
	home := t.TempDir()
	registerManagers(t, home)

	stdout, _, err := executeCLIWithInput(t, home,
		"a@x.com:pw1\nb@x.com:pw2:1.2.3.4:8080\njunk\n",
		"ingest", "--actor", "1", "--type", "Mamba", "--price", "10",
	)
	require.NoError(t, err)
	assert.Contains(t, stdout, "Uploaded mamba")
	assert.Contains(t, stdout, "10.00")
	assert.Contains(t, stdout, "1 unreadable line(s) skipped")

	_, _, err = executeCLIWithInput(t, home, "c@x.com:pw3\n", "ingest", "--actor", "2", "--type", "mamba")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "manager role cannot ingest")

	stdout, _, err = executeCLI(t, home, "issue", "--actor", "2", "--type", "mamba", "--count", "1")
	require.NoError(t, err)
	assert.Contains(t, stdout, "Issued 1 of 1 mamba")
	assert.Contains(t, stdout, "#1 a@x.com:pw1")

	stdout, _, err = executeCLI(t, home, "mine", "--actor", "2")
	require.NoError(t, err)
	assert.Contains(t, stdout, "#1")
	assert.Contains(t, stdout, "a@x.com")

	_, _, err = executeCLI(t, home, "mark", "--actor", "3", "--resource", "1", "--verdict", "good")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "not issued to you")

	stdout, _, err = executeCLI(t, home, "mark", "--actor", "2", "--resource", "1", "--verdict", "ok")
	require.NoError(t, err)
	assert.Contains(t, stdout, "Resource 1 marked good")

	_, _, err = executeCLI(t, home, "mark", "--actor", "2", "--resource", "1", "--verdict", "bad")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "already marked")

	stdout, _, err = executeCLI(t, home, "lifetime", "--actor", "2", "--resource", "1", "--minutes=-1")
	require.NoError(t, err)
	assert.Contains(t, stdout, "Resource 1 closed after")

	_, _, err = executeCLI(t, home, "lifetime", "--actor", "2", "--resource", "1", "--minutes=30")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "already closed")

	stdout, _, err = executeCLI(t, home, "history", "--actor", "1", "1")
	require.NoError(t, err)
	for _, action := range []string{"purchase", "issue", "status_good", "lifetime_set"} {
		assert.Contains(t, stdout, action)
	}
	assert.Contains(t, stdout, "price=10.00")
}

func TestIssueWithoutStock(t *testing.T) {
	home := t.TempDir()
	registerManagers(t, home)

	stdout, _, err := executeCLI(t, home, "issue", "--actor", "2", "--type", "tabor", "--count", "2")
	require.NoError(t, err)
	assert.Contains(t, stdout, "No free tabor resources right now.")

	_, _, err = executeCLI(t, home, "issue", "--actor", "2", "--type", "tabor", "--count", "0")
	require.Error(t, err)
}

func TestImportStockAndReport(t *testing.T) {
	home := t.TempDir()
	registerManagers(t, home)

	_, _, err := executeCLIWithInput(t, home, "tabor 2,5\nt1;p1;1.1.1.1:80\n", "import", "--actor", "3")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "admin role cannot import")

	stdout, _, err := executeCLIWithInput(t, home, "/import tabor 2,5\nt1;p1;1.1.1.1:80\nt2;p2\nt1;p1\n", "import", "--actor", "1")
	require.NoError(t, err)
	assert.Contains(t, stdout, "Uploaded tabor")
	assert.Contains(t, stdout, "2.50")

	stdout, _, err = executeCLI(t, home, "stock", "--actor", "3", "--json")
	require.NoError(t, err)
	var counts []map[string]any
	require.NoError(t, json.Unmarshal([]byte(stdout), &counts))
	require.Len(t, counts, 1)
	assert.Equal(t, "tabor", counts[0]["Type"])
	assert.EqualValues(t, 2, counts[0]["Count"])

	_, _, err = executeCLI(t, home, "stock", "--actor", "2")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "manager role cannot report")

	stdout, _, err = executeCLI(t, home, "report", "--actor", "3", "--json")
	require.NoError(t, err)
	assert.True(t, json.Valid([]byte(stdout)))
	assert.Contains(t, stdout, "\"Totals\"")

	stdout, _, err = executeCLI(t, home, "report", "--actor", "3", "--finance")
	require.NoError(t, err)
	assert.Contains(t, stdout, "Purchases")
	assert.Contains(t, stdout, "5.00")

	stdout, _, err = executeCLI(t, home, "report", "--actor", "3")
	require.NoError(t, err)
	assert.Contains(t, stdout, "Daily report")
	assert.Contains(t, stdout, "tabor")

	_, _, err = executeCLI(t, home, "report", "--actor", "3", "--day", "yesterday")
	require.Error(t, err)
}

func TestSayIssueDialogAcrossInvocations(t *testing.T) {
	home := t.TempDir()
	registerManagers(t, home)
	_, _, err := executeCLIWithInput(t, home, "a@x.com:pw1\n", "ingest", "--actor", "1", "--type", "mamba")
	require.NoError(t, err)

	stdout, _, err := executeCLI(t, home, "say", "--actor", "2", "/issue")
	require.NoError(t, err)
	assert.Contains(t, stdout, "Which type do you need?")
	assert.Contains(t, stdout, "[mamba]")

	stdout, _, err = executeCLI(t, home, "say", "--actor", "2", "mamba")
	require.NoError(t, err)
	assert.Contains(t, stdout, "How many mamba?")

	stdout, _, err = executeCLI(t, home, "say", "--actor", "2", "back")
	require.NoError(t, err)
	assert.Contains(t, stdout, "Which type do you need?")

	_, _, err = executeCLI(t, home, "say", "--actor", "2", "mamba")
	require.NoError(t, err)

	stdout, _, err = executeCLI(t, home, "say", "--actor", "2", "1")
	require.NoError(t, err)
	assert.Contains(t, stdout, "Issued 1 of 1 mamba")
	assert.Contains(t, stdout, "a@x.com:pw1")

	stdout, _, err = executeCLI(t, home, "say", "--actor", "2", "cancel")
	require.NoError(t, err)
	assert.Contains(t, stdout, "Nothing to cancel.")
}

func TestSayUploadReadsStdin(t *testing.T) {
	home := t.TempDir()
	registerManagers(t, home)

	_, _, err := executeCLI(t, home, "say", "--actor", "3", "/upload")
	require.NoError(t, err)

	stdout, _, err := executeCLI(t, home, "say", "--actor", "3", "beboo")
	require.NoError(t, err)
	assert.Contains(t, stdout, "Paste beboo credentials")

	stdout, _, err = executeCLIWithInput(t, home, "login: u1 password: p1\nu2|p2\n", "say", "--actor", "3", "-")
	require.NoError(t, err)
	assert.Contains(t, stdout, "Uploaded beboo: 2 added")
}

func TestSweepIsOwnerOnly(t *testing.T) {
	home := t.TempDir()
	registerManagers(t, home)

	_, _, err := executeCLI(t, home, "sweep", "--actor", "3")
	require.Error(t, err)

	stdout, _, err := executeCLI(t, home, "sweep", "--actor", "1")
	require.NoError(t, err)
	assert.Contains(t, stdout, "Expired 0 resource(s)")
}

func TestInvalidConfigSurfacesOnEveryCommand(t *testing.T) {
	home := t.TempDir()
	t.Setenv("STOCKROOM_DATABASE_DRIVER", "mysql")

	_, _, err := executeCLI(t, home, "version")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown database driver")
}

func TestSecretBackedDSN(t *testing.T) {
	home := t.TempDir()
	t.Setenv("STOCKROOM_SECRETS_BACKEND", "file")
	dbPath := filepath.Join(home, "vaulted", "stock.db")

	stdout, _, err := executeCLIWithInput(t, home, dbPath+"\n", "secret", "set", "database/dsn")
	require.NoError(t, err)
	assert.Contains(t, stdout, "Stored secret database/dsn")

	t.Setenv("STOCKROOM_DATABASE_DSN_SECRET", "database/dsn")
	_, _, err = executeCLI(t, home, "migrate")
	require.NoError(t, err)
	_, err = os.Stat(dbPath)
	require.NoError(t, err)

	t.Setenv("STOCKROOM_DATABASE_DSN_SECRET", "database/missing")
	_, _, err = executeCLI(t, home, "migrate")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "resolve database dsn")
}

func registerManagers(t *testing.T, home string) {
	t.Helper()

	for _, args := range [][]string{
		{"manager", "add", "1", "--role", "owner"},
		{"manager", "add", "2", "--role", "manager"},
		{"manager", "add", "3", "--role", "admin"},
	} {
		_, _, err := executeCLI(t, home, args...)
		require.NoError(t, err)
	}
}

func executeCLI(t *testing.T, home string, args ...string) (string, string, error) {
	t.Helper()
	return executeCLIWithInput(t, home, "", args...)
}

func executeCLIWithInput(t *testing.T, home string, input string, args ...string) (string, string, error) {
	t.Helper()
	t.Setenv("HOME", home)

	root := newRootCmd()
	stdout := &bytes.Buffer{}
	stderr := &bytes.Buffer{}
	root.SetOut(stdout)
	root.SetErr(stderr)
	root.SetIn(strings.NewReader(input))
	root.SetArgs(args)

	err := root.Execute()
	return stdout.String(), stderr.String(), err
}
