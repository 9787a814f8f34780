package commands

import (
	"bytes"
	"encoding/hex"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func execute(t *testing.T, stdin string, args ...string) (string, string, error) {
	t.Helper()
	root := NewRootCommand()
	var stdout, stderr bytes.Buffer
	root.SetOut(&stdout)
	root.SetErr(&stderr)
	root.SetIn(strings.NewReader(stdin))
	root.SetArgs(args)
	err := root.Execute()
	return stdout.String(), stderr.String(), err
}

func TestSM3Stdin(t *testing.T) {
	out, _, err := execute(t, "abc", "sm3")
	require.NoError(t, err)
	assert.Equal(t, "66c7f0f462eeedd9d1f2d46bdc10e4e24167c4875cf2f7a2297da02b8f4ba8e0  -\n", out)
}

func TestSM3Files(t *testing.T) {
	dir := t.TempDir()
	a := filepath.Join(dir, "a.txt")
	b := filepath.Join(dir, "b.txt")
	require.NoError(t, os.WriteFile(a, []byte("abc"), 0600))
	require.NoError(t, os.WriteFile(b, []byte(strings.Repeat("abcd", 16)), 0600))

	out, _, err := execute(t, "", "sm3", "--jobs", "2", a, b)
	require.NoError(t, err)
	lines := strings.Split(strings.TrimSpace(out), "\n")
	require.Len(t, lines, 2)
	assert.Equal(t, "66c7f0f462eeedd9d1f2d46bdc10e4e24167c4875cf2f7a2297da02b8f4ba8e0  "+a, lines[0])
	assert.Equal(t, "debe9ff92275b8a138604889c18e5a4d6fdb70e5387e5765293dcba39c0c5732  "+b, lines[1])
}

func TestSM3MissingFile(t *testing.T) {
	_, _, err := execute(t, "", "sm3", filepath.Join(t.TempDir(), "missing"))
	assert.Error(t, err)
}

func TestSM4KeyRoundTrip(t *testing.T) {
	dir := t.TempDir()
	plain := filepath.Join(dir, "plain")
	enc := filepath.Join(dir, "enc")
	dec := filepath.Join(dir, "dec")
	msg := []byte("attack at dawn, bring the sm4 key")
	require.NoError(t, os.WriteFile(plain, msg, 0600))

	key := "0123456789abcdeffedcba9876543210"
	iv := "000102030405060708090a0b0c0d0e0f"
	for _, mode := range []string{"ecb", "cbc", "cfb", "ofb", "ctr"} {
		t.Run(mode, func(t *testing.T) {
			args := []string{"--key-hex", key, "--mode", mode}
			if mode != "ecb" {
				args = append(args, "--iv-hex", iv)
			}
			_, _, err := execute(t, "", append([]string{"sm4", "encrypt", "--in", plain, "--out", enc}, args...)...)
			require.NoError(t, err)
			ct, err := os.ReadFile(enc)
			require.NoError(t, err)
			assert.NotEqual(t, msg, ct)

			_, _, err = execute(t, "", append([]string{"sm4", "decrypt", "--in", enc, "--out", dec}, args...)...)
			require.NoError(t, err)
			pt, err := os.ReadFile(dec)
			require.NoError(t, err)
			assert.Equal(t, msg, pt)
		})
	}
}

func TestSM4PasswordRoundTrip(t *testing.T) {
	dir := t.TempDir()
	plain := filepath.Join(dir, "plain")
	enc := filepath.Join(dir, "enc")
	dec := filepath.Join(dir, "dec")
	msg := []byte("password protected")
	require.NoError(t, os.WriteFile(plain, msg, 0600))

	out, stderr, err := execute(t, "", "sm4", "encrypt", "--in", plain, "--out", enc,
		"--password", "hunter2", "--iterations", "1000", "--log-level", "debug")
	require.NoError(t, err)
	assert.NotContains(t, stderr, "hunter2")
	require.True(t, strings.HasPrefix(out, "salt: "))
	salt := strings.TrimSpace(strings.TrimPrefix(out, "salt: "))
	_, err = hex.DecodeString(salt)
	require.NoError(t, err)

	_, _, err = execute(t, "", "sm4", "decrypt", "--in", enc, "--out", dec,
		"--password", "hunter2", "--salt-hex", salt, "--iterations", "1000")
	require.NoError(t, err)
	pt, err := os.ReadFile(dec)
	require.NoError(t, err)
	assert.Equal(t, msg, pt)

	_, _, err = execute(t, "", "sm4", "decrypt", "--in", enc, "--out", dec,
		"--password", "hunter2", "--iterations", "1000")
	assert.Error(t, err, "decrypt without salt")
}

func TestSM4FlagErrors(t *testing.T) {
	dir := t.TempDir()
	plain := filepath.Join(dir, "plain")
	out := filepath.Join(dir, "out")
	require.NoError(t, os.WriteFile(plain, []byte("0123456789abcdef"), 0600))
	key := "0123456789abcdeffedcba9876543210"

	tests := []struct {
		name string
		args []string
	}{
		{"no key", []string{"sm4", "encrypt", "--in", plain, "--out", out}},
		{"key and password", []string{"sm4", "encrypt", "--in", plain, "--out", out, "--key-hex", key, "--password", "x"}},
		{"missing out", []string{"sm4", "encrypt", "--in", plain, "--key-hex", key}},
		{"short key", []string{"sm4", "encrypt", "--in", plain, "--out", out, "--key-hex", "0011"}},
		{"bad hex", []string{"sm4", "encrypt", "--in", plain, "--out", out, "--key-hex", "zz"}},
		{"unknown mode", []string{"sm4", "encrypt", "--in", plain, "--out", out, "--key-hex", key, "--mode", "gcm"}},
		{"cbc without iv", []string{"sm4", "encrypt", "--in", plain, "--out", out, "--key-hex", key, "--mode", "cbc"}},
		{"unknown padding", []string{"sm4", "encrypt", "--in", plain, "--out", out, "--key-hex", key, "--padding", "zero"}},
		{"few iterations", []string{"sm4", "encrypt", "--in", plain, "--out", out, "--password", "x", "--iterations", "10"}},
		{"unknown curve", []string{"--curve", "nope", "sm4", "encrypt", "--in", plain, "--out", out, "--key-hex", key}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, _, err := execute(t, "", tt.args...)
			assert.Error(t, err)
		})
	}
}

func TestSM4DecryptRaw(t *testing.T) {
	dir := t.TempDir()
	enc := filepath.Join(dir, "enc")
	require.NoError(t, os.WriteFile(enc, make([]byte, 16), 0600))
	_, stderr, err := execute(t, "", "sm4", "decrypt", "--in", enc, "--out", filepath.Join(dir, "dec"),
		"--key-hex", "0123456789abcdeffedcba9876543210", "--mode", "ecb", "--padding", "none")
	require.NoError(t, err, "no padding accepts any aligned input")
	assert.NotContains(t, stderr, "0123456789abcdef")

	require.NoError(t, os.WriteFile(enc, make([]byte, 15), 0600))
	_, _, err = execute(t, "", "sm4", "decrypt", "--in", enc, "--out", filepath.Join(dir, "dec"),
		"--key-hex", "0123456789abcdeffedcba9876543210")
	assert.Error(t, err)
}

func TestSM2Keygen(t *testing.T) {
	out, _, err := execute(t, "", "sm2", "keygen")
	require.NoError(t, err)
	assert.Regexp(t, `^private: [0-9a-f]{64}\npublic: 04[0-9a-f]{128}\n$`, out)

	dir := t.TempDir()
	out, _, err = execute(t, "", "--curve", "P-256", "sm2", "keygen", "--out-dir", dir)
	require.NoError(t, err)
	paths := strings.Split(strings.TrimSpace(out), "\n")
	require.Len(t, paths, 2)
	assert.True(t, strings.HasSuffix(paths[0], "-sm2-private-key.hex"))
	assert.True(t, strings.HasSuffix(paths[1], "-sm2-public-key.hex"))

	info, err := os.Stat(paths[0])
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0600), info.Mode().Perm())
}

func TestSM2Exchange(t *testing.T) {
	out, _, err := execute(t, "", "sm2", "exchange", "--uid-a", "alice@example.com", "--uid-b", "bob@example.com", "--key-len", "32")
	require.NoError(t, err)
	assert.Regexp(t, `^key: [0-9a-f]{64}\n$`, out)

	out, _, err = execute(t, "", "--curve", "P-256", "--log-format", "text", "sm2", "exchange")
	require.NoError(t, err)
	assert.Regexp(t, `^key: [0-9a-f]{32}\n$`, out)
}

func TestSM2ExchangeFixedKeys(t *testing.T) {
	keyA := "81eb26e941bb5af16df116495f90695272ae2cd63d6c4ae1678418be48230029"
	keyB := "785129917d45a9ea5437a59356b82338eaadda6ceb199088f14ae10defa229b5"
	out, _, err := execute(t, "", "sm2", "exchange", "--key-a", keyA, "--key-b", keyB)
	require.NoError(t, err)
	assert.Regexp(t, `^key: [0-9a-f]{32}\n$`, out)

	_, _, err = execute(t, "", "sm2", "exchange", "--key-a", "00")
	assert.Error(t, err)
	_, _, err = execute(t, "", "sm2", "exchange", "--key-len", "0")
	assert.Error(t, err)
	_, _, err = execute(t, "", "sm2", "exchange", "--attempts", "0")
	assert.Error(t, err)
}
