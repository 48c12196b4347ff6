package cmd

import (
	"bytes"
	"log"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func runCmd(t *testing.T, args ...string) string {
	t.Helper()
	var buf bytes.Buffer
	savedInfo, savedFatalln, savedFatalf := infoLogger, logFatalln, logFatalf
	infoLogger = log.New(&buf, "", 0)
	logFatalln = func(v ...interface{}) { t.Fatal(v...) }
	logFatalf = func(format string, v ...interface{}) { t.Fatalf(format, v...) }
	defer func() {
		infoLogger, logFatalln, logFatalf = savedInfo, savedFatalln, savedFatalf
	}()
	rootCmd.SetArgs(args)
	require.NoError(t, rootCmd.Execute())
	return buf.String()
}

func TestCliUploadDownloadRoundTrip(t *testing.T) {
	store := t.TempDir()
	srcDir := t.TempDir()
	outDir := t.TempDir()

	content := []byte("round and round it goes")
	source := filepath.Join(srcDir, "hello.txt")
	require.NoError(t, os.WriteFile(source, content, 0644))

	out := runCmd(t, "upload", source,
		"--store", store, "--loglevel", "error")
	root := strings.TrimSpace(out)
	require.NotEmpty(t, root)

	out = runCmd(t, "cid", root)
	assert.Contains(t, out, "dag-cbor")
	assert.Contains(t, out, "sha2-256")

	runCmd(t, "download", root,
		"--store", store, "--out", outDir, "--loglevel", "error")

	restored, err := os.ReadFile(filepath.Join(outDir, "hello.txt"))
	require.NoError(t, err)
	assert.Equal(t, content, restored)
}

func TestCliUploadTree(t *testing.T) {
	store := t.TempDir()
	srcDir := t.TempDir()
	outDir := t.TempDir()

	require.NoError(t, os.MkdirAll(filepath.Join(srcDir, "tree", "sub"), 0755))
	require.NoError(t, os.WriteFile(filepath.Join(srcDir, "tree", "a.txt"), []byte("alpha"), 0644))
	require.NoError(t, os.WriteFile(filepath.Join(srcDir, "tree", "sub", "b.txt"), []byte("beta"), 0644))

	out := runCmd(t, "upload", filepath.Join(srcDir, "tree"),
		"--store", store, "--loglevel", "error")
	root := strings.TrimSpace(out)
	require.NotEmpty(t, root)

	runCmd(t, "download", root,
		"--store", store, "--out", outDir, "--loglevel", "error")

	a, err := os.ReadFile(filepath.Join(outDir, "tree", "a.txt"))
	require.NoError(t, err)
	assert.Equal(t, []byte("alpha"), a)
	b, err := os.ReadFile(filepath.Join(outDir, "tree", "sub", "b.txt"))
	require.NoError(t, err)
	assert.Equal(t, []byte("beta"), b)
}

func TestParseChunkSize(t *testing.T) {
	sz, err := parseChunkSize("1M")
	require.NoError(t, err)
	assert.EqualValues(t, 1024*1024, sz)

	sz, err = parseChunkSize("512K")
	require.NoError(t, err)
	assert.EqualValues(t, 512*1024, sz)

	for _, bad := range []string{"0", "-1K", "4100M", "64G", "bogus"} {
		_, err := parseChunkSize(bad)
		require.Error(t, err, bad)
	}
}

func TestCliRejectsBadCid(t *testing.T) {
	var fataled bool
	savedFatalf := logFatalf
	logFatalf = func(string, ...interface{}) { fataled = true }
	defer func() { logFatalf = savedFatalf }()

	rootCmd.SetArgs([]string{"cid", "not-a-cid"})
	require.NoError(t, rootCmd.Execute())
	assert.True(t, fataled)
}
