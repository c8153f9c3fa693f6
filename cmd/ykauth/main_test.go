package main

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"

	"github.com/dmitrymomot/ykauth/pkg/config"
	"github.com/dmitrymomot/ykauth/pkg/otpkey"
)

const (
	testSecret  = "000102030405060708090a0b0c0d0e0f"
	testPrivate = "010203040506"
)

// execute runs a fresh command tree and returns what it printed to stdout.
func execute(t *testing.T, stdin string, args ...string) (string, error) {
	t.Helper()
	config.Reset()
	t.Cleanup(config.Reset)

	cmd := newRootCmd()
	var out, errOut bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&errOut)
	cmd.SetIn(strings.NewReader(stdin))
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), err
}

func createKey(t *testing.T, dir string) {
	t.Helper()
	_, err := execute(t, "", "--config-dir", dir, "key", "create",
		"--public-id", "c0ffee",
		"--private-id", testPrivate,
		"--secret", testSecret,
		"--sys-user", "alice",
		"--description", "desk key",
	)
	require.NoError(t, err)
}

func generate(t *testing.T, dir string, n string) []string {
	t.Helper()
	out, err := execute(t, "", "--config-dir", dir, "generate", "c0ffee", "-n", n)
	require.NoError(t, err)
	return strings.Fields(out)
}

func TestVersionCmd(t *testing.T) {
	out, err := execute(t, "", "version")
	require.NoError(t, err)
	assert.Equal(t, "ykauth dev\n", out)
}

func TestKeyCreate(t *testing.T) {
	dir := t.TempDir()
	out, err := execute(t, "", "--config-dir", dir, "key", "create",
		"--public-id", "C0FFEE", "--sys-user", "alice", "-o", "json")
	require.NoError(t, err)

	var view keyView
	require.NoError(t, json.Unmarshal([]byte(out), &view))
	assert.Equal(t, "c0ffee", view.PublicID)
	assert.Equal(t, "rcvvuu", view.Prefix)
	assert.Len(t, view.PrivateID, 12)
	assert.Len(t, view.SecretKey, 32, "a generated secret is shown once")
	assert.Equal(t, filepath.Join(dir, "c0ffee.json"), view.Filename)

	info, err := os.Stat(view.Filename)
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0o600), info.Mode().Perm())

	_, err = execute(t, "", "--config-dir", dir, "key", "create", "--public-id", "c0ffee")
	assert.ErrorIs(t, err, otpkey.ErrDuplicatePublicID)
}

func TestKeyCreateInvalid(t *testing.T) {
	dir := t.TempDir()

	_, err := execute(t, "", "--config-dir", dir, "key", "create", "--public-id", "c0ffee", "--secret", "abcd")
	assert.ErrorIs(t, err, otpkey.ErrInvalidFormat)

	_, err = execute(t, "", "--config-dir", dir, "key", "create", "--public-id", "xyz")
	assert.ErrorIs(t, err, otpkey.ErrInvalidFormat)

	_, err = execute(t, "", "--config-dir", dir, "key", "create")
	assert.Error(t, err, "public id is required")

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	assert.Empty(t, entries)
}

func TestKeyCreatePromptSecret(t *testing.T) {
	dir := t.TempDir()
	_, err := execute(t, testSecret+"\n", "--config-dir", dir, "key", "create",
		"--public-id", "c0ffee", "--prompt-secret")
	require.NoError(t, err)

	out, err := execute(t, "", "--config-dir", dir, "key", "show", "c0ffee", "--reveal", "-o", "json")
	require.NoError(t, err)
	var view keyView
	require.NoError(t, json.Unmarshal([]byte(out), &view))
	assert.Equal(t, testSecret, view.SecretKey)
}

func TestKeyShowAndList(t *testing.T) {
	dir := t.TempDir()
	createKey(t, dir)

	out, err := execute(t, "", "--config-dir", dir, "key", "show", "c0ffee")
	require.NoError(t, err)
	assert.Contains(t, out, "rcvvuu")
	assert.Contains(t, out, "alice")
	assert.Contains(t, out, maskedSecret)
	assert.NotContains(t, out, testSecret)

	_, err = execute(t, "", "--config-dir", dir, "key", "show", "abcdef")
	assert.ErrorIs(t, err, otpkey.ErrConfigNotFound)

	out, err = execute(t, "", "--config-dir", dir, "key", "list", "-o", "yaml")
	require.NoError(t, err)
	var views []keyView
	require.NoError(t, yaml.Unmarshal([]byte(out), &views))
	require.Len(t, views, 1)
	assert.Equal(t, "c0ffee", views[0].PublicID)
	assert.Equal(t, testPrivate, views[0].PrivateID)
	assert.Equal(t, "desk key", views[0].Description)

	out, err = execute(t, "", "--config-dir", dir, "key", "list")
	require.NoError(t, err)
	assert.Contains(t, out, "PUBLIC ID")
	assert.Contains(t, out, "c0ffee")

	_, err = execute(t, "", "--config-dir", dir, "key", "list", "-o", "xml")
	assert.Error(t, err)
}

func TestKeyDelete(t *testing.T) {
	dir := t.TempDir()
	createKey(t, dir)

	out, err := execute(t, "", "--config-dir", dir, "key", "delete", "C0FFEE")
	require.NoError(t, err)
	assert.Equal(t, "deleted c0ffee\n", out)
	assert.NoFileExists(t, filepath.Join(dir, "c0ffee.json"))

	_, err = execute(t, "", "--config-dir", dir, "key", "delete", "c0ffee")
	assert.ErrorIs(t, err, otpkey.ErrConfigNotFound)
}

func TestGenerateAndVerify(t *testing.T) {
	dir := t.TempDir()
	createKey(t, dir)
	otps := generate(t, dir, "2")
	require.Len(t, otps, 2)
	assert.True(t, strings.HasPrefix(otps[0], "rcvvuu"))

	out, err := execute(t, "", "--config-dir", dir, "verify", otps[0])
	require.NoError(t, err)
	assert.Equal(t, "OK c0ffee alice\n", out)

	out, err = execute(t, "", "--config-dir", dir, "verify", otps[0])
	assert.ErrorIs(t, err, errRejected)
	assert.Equal(t, "FAIL c0ffee\n", out)

	out, err = execute(t, "", "--config-dir", dir, "verify", "not-an-otp")
	assert.ErrorIs(t, err, errRejected)
	assert.Equal(t, "FAIL malformed\n", out)

	// generate continues after the last accepted otp
	next := generate(t, dir, "1")
	out, err = execute(t, "", "--config-dir", dir, "verify", next[0])
	require.NoError(t, err)
	assert.Equal(t, "OK c0ffee alice\n", out)
}

func TestVerifyStream(t *testing.T) {
	dir := t.TempDir()
	createKey(t, dir)
	otps := generate(t, dir, "2")

	stdin := strings.Join([]string{otps[0], "", otps[0], "garbage", otps[1]}, "\n")
	out, err := execute(t, stdin, "--config-dir", dir, "verify")
	require.NoError(t, err)
	assert.Equal(t, "OK c0ffee alice\nFAIL c0ffee\nFAIL malformed\nOK c0ffee alice\n", out)
}

func TestVerifyThrottled(t *testing.T) {
	t.Setenv("YKAUTH_MAX_FAILURES", "1")
	t.Setenv("YKAUTH_FAILURE_WINDOW", "1h")

	dir := t.TempDir()
	createKey(t, dir)
	otps := generate(t, dir, "2")

	stdin := strings.Join([]string{otps[0], otps[0], otps[1]}, "\n")
	out, err := execute(t, stdin, "--config-dir", dir, "verify", "-")
	require.NoError(t, err)
	assert.Equal(t, "OK c0ffee alice\nFAIL c0ffee\nFAIL c0ffee throttled\n", out)
}

func TestVerifyWithRedisLock(t *testing.T) {
	mr := miniredis.RunT(t)
	t.Setenv("YKAUTH_REDIS_URL", "redis://"+mr.Addr()+"/0")

	dir := t.TempDir()
	createKey(t, dir)
	otps := generate(t, dir, "1")

	out, err := execute(t, "", "--config-dir", dir, "verify", otps[0])
	require.NoError(t, err)
	assert.Equal(t, "OK c0ffee alice\n", out)
	assert.Empty(t, mr.Keys(), "lock is released")
}

func TestVerifyThrottledAcrossInvocationsWithRedis(t *testing.T) {
	mr := miniredis.RunT(t)
	t.Setenv("YKAUTH_REDIS_URL", "redis://"+mr.Addr()+"/0")
	t.Setenv("YKAUTH_MAX_FAILURES", "1")
	t.Setenv("YKAUTH_FAILURE_WINDOW", "1h")

	dir := t.TempDir()
	createKey(t, dir)
	otps := generate(t, dir, "2")

	out, err := execute(t, "", "--config-dir", dir, "verify", otps[0])
	require.NoError(t, err)
	assert.Equal(t, "OK c0ffee alice\n", out)

	out, err = execute(t, "", "--config-dir", dir, "verify", otps[0])
	assert.ErrorIs(t, err, errRejected)
	assert.Equal(t, "FAIL c0ffee\n", out)

	out, err = execute(t, "", "--config-dir", dir, "verify", otps[1])
	assert.ErrorIs(t, err, errRejected)
	assert.Equal(t, "FAIL c0ffee throttled\n", out, "the failure is remembered by redis")
	assert.True(t, mr.Exists("ykauth:rate:otp-failures:c0ffee"))
}

func TestRootFlags(t *testing.T) {
	_, err := execute(t, "", "--config-dir", t.TempDir(), "--log-level", "loud", "key", "list")
	assert.ErrorIs(t, err, config.ErrInvalidConfig)

	out, err := execute(t, "", "--config-dir", t.TempDir(), "--log-level", "debug", "key", "list", "-o", "json")
	require.NoError(t, err)
	assert.JSONEq(t, "[]", out)
}
