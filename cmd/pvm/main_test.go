package main

import (
	"bytes"
	"context"
	"log/slog"
	"path/filepath"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dukex/pvm/pkg/persistence/redis"
)

func run(t *testing.T, args ...string) (string, error) {
	t.Helper()

	var out bytes.Buffer

	app := newApp()
	app.Writer = &out
	app.ErrWriter = &out

	err := app.Run(context.Background(), append([]string{"pvm", "--log-level", "error"}, args...))

	return out.String(), err
}

func TestValidate(t *testing.T) {
	valid := filepath.Join("..", "..", "examples", "processes", "simple.2018-02-19.yaml")
	invalid := filepath.Join("..", "..", "pkg", "process", "testdata", "no_header.yaml")

	out, err := run(t, "validate", valid)
	require.NoError(t, err)
	assert.Contains(t, out, "1 files OK")

	out, err = run(t, "validate", valid, invalid)
	require.ErrorIs(t, err, ErrInvalidProcess)
	assert.Contains(t, out, invalid+":1 This process lacks the process-info node")

	_, err = run(t, "validate")
	assert.ErrorIs(t, err, ErrNoFiles)
}

func TestList(t *testing.T) {
	out, err := run(t, "--processes-path", filepath.Join("..", "..", "examples", "processes"), "list")
	require.NoError(t, err)

	assert.Contains(t, out, "simple (Simple process {{ .start_form.data }})")
	assert.Contains(t, out, "Versions: 2018-02-19, 2017-10-14")
}

func TestLogin(t *testing.T) {
	server := miniredis.RunT(t)

	out, err := run(t,
		"--database-url", "redis://"+server.Addr(),
		"--auth-backends", "anyone",
		"login", "--username", "juan", "--email", "juan@example.com",
	)
	require.NoError(t, err)
	assert.Contains(t, out, "juan\tjuan@example.com")

	store, err := redis.NewPersistence(context.Background(), slog.Default(), "redis://"+server.Addr())
	require.NoError(t, err)

	user, err := store.Users().GetByIdentifier(context.Background(), "juan")
	require.NoError(t, err)
	assert.Equal(t, "juan@example.com", user.Email)
}

func TestStart_RequiresProcess(t *testing.T) {
	_, err := run(t, "start")
	assert.ErrorIs(t, err, ErrMissingArgument)
}
