package tclcore

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// buildSingleByteTableFile renders a spec §6 S-type descriptor for a
// single-byte encoding whose code point at byte b is mapping[b], with
// 0 left as "unmapped" (0000).
func buildSingleByteTableFile(fallback rune, mapping [256]rune) string {
	var b strings.Builder
	fmt.Fprintln(&b, "S")
	fmt.Fprintf(&b, "%04X 0000 1\n", fallback)
	fmt.Fprintln(&b, "00")
	for row := 0; row < 16; row++ {
		words := make([]string, 16)
		for col := 0; col < 16; col++ {
			words[col] = fmt.Sprintf("%04X", mapping[row*16+col])
		}
		fmt.Fprintln(&b, strings.Join(words, " "))
	}
	return b.String()
}

func TestLoadEncodingFromFile_TableFormatBarePageHeader(t *testing.T) {
	dir := t.TempDir()

	var mapping [256]rune
	for i := 0; i < 256; i++ {
		mapping[i] = rune(i) // identity, like iso8859-1
	}
	content := buildSingleByteTableFile('?', mapping)
	require.NoError(t, os.WriteFile(filepath.Join(dir, "file-test-table.enc"), []byte(content), 0644))

	SetEncodingSearchPath([]string{dir})
	defer SetEncodingSearchPath(nil)

	e, err := GetEncoding("file-test-table")
	require.NoError(t, err)
	defer ReleaseEncoding(e)

	var state ConvertState
	res, out := e.FromCanonical(&state, []byte("Hi!"), ConvertFlags{Start: true, End: true}, make([]byte, 0, 16))
	require.Equal(t, ConvertOK, res.Status)

	state.Reset()
	res2, back := e.ToCanonical(&state, out, ConvertFlags{Start: true, End: true}, make([]byte, 0, 16))
	require.Equal(t, ConvertOK, res2.Status)
	assert.Equal(t, "Hi!", string(back))
}

func TestLoadEncodingFromFile_EscapeFormatUnkeyedSubTableLines(t *testing.T) {
	CreateEncoding(&Encoding{Name: "file-test-escape-ascii", NulWidth: 1, conv: &tableConverter{table: asciiTable()}})
	CreateEncoding(&Encoding{Name: "file-test-escape-latin1", NulWidth: 1, conv: &tableConverter{table: latin1Table()}})

	dir := t.TempDir()
	content := strings.Join([]string{
		"E",
		"init 1b25696e6974",
		"final 1b2566696e616c",
		"file-test-escape-ascii -",
		"file-test-escape-latin1 1b2e4c",
		"",
	}, "\n")
	require.NoError(t, os.WriteFile(filepath.Join(dir, "file-test-escape.enc"), []byte(content), 0644))

	SetEncodingSearchPath([]string{dir})
	defer SetEncodingSearchPath(nil)

	e, err := GetEncoding("file-test-escape")
	require.NoError(t, err)
	defer ReleaseEncoding(e)

	var state ConvertState
	res, out := e.FromCanonical(&state, []byte("aéb"), ConvertFlags{Start: true, End: true}, make([]byte, 0, 64))
	require.Equal(t, ConvertOK, res.Status)
	assert.Contains(t, string(out), "\x1b%init")
	assert.Contains(t, string(out), "\x1b%final")
	assert.Contains(t, string(out), "\x1b.L")

	state.Reset()
	res2, back := e.ToCanonical(&state, out, ConvertFlags{Start: true, End: true}, make([]byte, 0, 64))
	require.Equal(t, ConvertOK, res2.Status)
	assert.Equal(t, "aéb", string(back))
}

func TestParseEncodingFile_EscapeFormatRejectsOnlyReservedKeysAsNonSubTable(t *testing.T) {
	r := strings.NewReader(strings.Join([]string{
		"E",
		"init -",
		"final -",
	}, "\n"))
	_, err := parseEncodingFile("no-sub-tables", r)
	require.Error(t, err)
	assert.True(t, IsKind(err, ErrEncodingInvalid))
}
