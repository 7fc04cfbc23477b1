package history

import (
	"bytes"
	"math"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sawpanic/pivotscope/internal/testkit"
)

func TestRead_WithHeader(t *testing.T) {
	in := "date,close\n2020-01-01,100\n2020-01-02,101.5\n"

	rows, err := NewCSVReader().Read(strings.NewReader(in))
	require.NoError(t, err)

	require.Len(t, rows, 2)
	assert.Equal(t, time.Date(2020, 1, 1, 0, 0, 0, 0, time.UTC), rows[0].Date)
	assert.Equal(t, 101.5, rows[1].Close)
}

func TestRead_HeaderlessAndReorderedColumns(t *testing.T) {
	rows, err := NewCSVReader().Read(strings.NewReader("2020-01-01,5\n2020-01-03,6\n"))
	require.NoError(t, err)
	assert.Len(t, rows, 2)

	rows, err = NewCSVReader().Read(strings.NewReader("Close,volume,Timestamp\n7,1,2021-02-01T00:00:00Z\n"))
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, 7.0, rows[0].Close)
	assert.Equal(t, 2021, rows[0].Date.Year())
}

func TestRead_UnparsableCloseBecomesMissing(t *testing.T) {
	rows, err := NewCSVReader().Read(strings.NewReader("date,close\n2020-01-01,\n2020-01-02,n/a\n2020-01-03,3\n"))
	require.NoError(t, err)

	require.Len(t, rows, 3)
	assert.True(t, math.IsNaN(rows[0].Close))
	assert.True(t, math.IsNaN(rows[1].Close))
	assert.Equal(t, 3.0, rows[2].Close)
}

func TestRead_Errors(t *testing.T) {
	cases := map[string]struct {
		in   string
		want string
	}{
		"bad date":   {"date,close\n2020-01-01,1\nyesterday,2\n", "line 3: unparsable date"},
		"duplicate":  {"date,close\n2020-01-01,1\n2020-01-01,2\n", "line 3: duplicate date 2020-01-01"},
		"unsorted":   {"2020-01-02,1\n2020-01-01,2\n", "line 2: date 2020-01-01 before previous 2020-01-02"},
		"short row":  {"2020-01-01\n", "line 1: expected at least 2 fields"},
		"empty":      {"date,close\n", ErrEmpty.Error()},
		"only blank": {"", ErrEmpty.Error()},
	}

	for name, tc := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := NewCSVReader().Read(strings.NewReader(tc.in))
			require.Error(t, err)
			assert.Contains(t, err.Error(), tc.want)
		})
	}
}

func TestWriteThenLoadFile(t *testing.T) {
	want := testkit.RoundTrip().Rows()

	var buf bytes.Buffer
	require.NoError(t, Write(&buf, want))

	path := filepath.Join(t.TempDir(), "history.csv")
	require.NoError(t, os.WriteFile(path, buf.Bytes(), 0o644))

	got, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, want, got)
}

func TestLoadFile_Missing(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.csv"))
	assert.ErrorContains(t, err, "failed to open history file")
}
