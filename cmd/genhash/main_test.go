package main

import (
	"bytes"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

func run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	cmd := newRootCmd()
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return strings.TrimSpace(out.String()), err
}

func TestGenhash_Flag(t *testing.T) {
	digest, err := run(t, "--password", "s3cret", "--cost", "4")
	require.NoError(t, err)
	assert.NoError(t, bcrypt.CompareHashAndPassword([]byte(digest), []byte("s3cret")))

	cost, err := bcrypt.Cost([]byte(digest))
	require.NoError(t, err)
	assert.Equal(t, 4, cost)
}

func TestGenhash_PositionalArg(t *testing.T) {
	digest, err := run(t, "--cost", "4", "hunter2")
	require.NoError(t, err)
	assert.NoError(t, bcrypt.CompareHashAndPassword([]byte(digest), []byte("hunter2")))
}

func TestGenhash_MissingPassword(t *testing.T) {
	_, err := run(t)
	assert.Error(t, err)
}
