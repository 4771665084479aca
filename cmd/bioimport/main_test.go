package main

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const export = "No\tDevNo\tUserId\tName\tMode\tDateTime\n" +
	"1\t1\t101\tNODADO, A.\tFP\t2024-03-04 07:55:10\n" +
	"2\t1\t101\tNODADO, A.\tFP\t2024-03-04 17:02:00\n" +
	"3\t1\t103\tSANTOS M\tFP\tnot-a-date\n" +
	"4\t1\t104\tDela Cruz J\tFP\t2024-03-05 08:10:00\n"

func runCommand(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	cmd := newRootCommand()
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), err
}

func TestParseCommand(t *testing.T) {
	path := filepath.Join(t.TempDir(), "march.txt")
	require.NoError(t, os.WriteFile(path, []byte(export), 0o600))

	out, err := runCommand(t, "parse", "--tz", "UTC", path)
	require.NoError(t, err)

	assert.Contains(t, out, "3 scans, 2 names, 1 skipped lines")
	assert.Contains(t, out, "nodado a")
	assert.Contains(t, out, "2024-03-04 07:55")
	assert.Contains(t, out, "2024-03-04 17:02")
	assert.Contains(t, out, "dela cruz j")
	assert.Contains(t, out, "line 4:")
}

func TestParseCommand_Errors(t *testing.T) {
	tests := []struct {
		name string
		args []string
	}{
		{name: "missing file argument", args: []string{"parse"}},
		{name: "file does not exist", args: []string{"parse", filepath.Join(t.TempDir(), "nope.txt")}},
		{name: "bad timezone", args: []string{"parse", "--tz", "Mars/Olympus", "x.txt"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := runCommand(t, tt.args...)
			assert.Error(t, err)
		})
	}
}

func TestOptionalDate(t *testing.T) {
	d, err := optionalDate("")
	require.NoError(t, err)
	assert.Nil(t, d)

	d, err = optionalDate("2024-03-04")
	require.NoError(t, err)
	require.NotNil(t, d)
	assert.Equal(t, "2024-03-04", d.String())

	_, err = optionalDate("04/03/2024")
	assert.Error(t, err)
}
