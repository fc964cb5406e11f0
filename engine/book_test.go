package engine

import (
	"os"
	"path/filepath"
	"strconv"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeBook(t *testing.T, contents string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "book.json")
	require.NoError(t, os.WriteFile(path, []byte(contents), 0o644))
	return path
}

func TestLoadBook(t *testing.T) {
	start := StartPosition()
	e2e4, err := start.ParseUCIMove("e2e4")
	require.NoError(t, err)

	key := strconv.FormatUint(start.Hash(), 10)
	path := writeBook(t, `{"`+key+`": [`+strconv.Itoa(int(e2e4))+`, true], "17": [0, false]}`)

	tt, err := LoadBook(path)
	require.NoError(t, err)
	assert.Equal(t, 2, tt.Len())

	entry, ok := tt.Get(start.Hash())
	require.True(t, ok)
	assert.Equal(t, TTEntry{Move: e2e4, Depth: 1, Flag: ExactFlag, Value: BookValue}, entry)

	entry, ok = tt.Get(17)
	require.True(t, ok)
	assert.Equal(t, -BookValue, entry.Value)
}

func TestBookMoveIsPlayedAtDepthOne(t *testing.T) {
	start := StartPosition()
	d2d4, err := start.ParseUCIMove("d2d4")
	require.NoError(t, err)
	path := writeBook(t, `{"`+strconv.FormatUint(start.Hash(), 10)+`": [`+strconv.Itoa(int(d2d4))+`, true]}`)

	tt := NewTransTableWithBook(path)
	s := newSearcher(tt, DefaultSearchOptions())
	res := s.alphaBeta(StartPosition(), 1, -Infinity, Infinity, 0, true)
	assert.Equal(t, "d2d4", res.Move.String())
	assert.Equal(t, BookValue, res.Score)
}

func TestLoadBookErrors(t *testing.T) {
	cases := map[string]string{
		"not json":      `{"1": [`,
		"bad key":       `{"abc": [1, true]}`,
		"bad record":    `{"1": ["e2e4", true]}`,
		"missing flag":  `{"1": [1]}`,
		"flag not bool": `{"1": [1, 2]}`,
	}
	for name, contents := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := LoadBook(writeBook(t, contents))
			assert.Error(t, err)
		})
	}

	_, err := LoadBook(filepath.Join(t.TempDir(), "missing.json"))
	assert.ErrorIs(t, err, os.ErrNotExist)
}

func TestNewTransTableWithBookFallsBack(t *testing.T) {
	assert.Equal(t, 0, NewTransTableWithBook("").Len())
	assert.Equal(t, 0, NewTransTableWithBook(filepath.Join(t.TempDir(), "missing.json")).Len())
	assert.Equal(t, 0, NewTransTableWithBook(writeBook(t, "[]")).Len())
}

func TestBookSeedsIndependentTables(t *testing.T) {
	start := StartPosition()
	e2e4, err := start.ParseUCIMove("e2e4")
	require.NoError(t, err)
	path := writeBook(t, `{"`+strconv.FormatUint(start.Hash(), 10)+`": [`+strconv.Itoa(int(e2e4))+`, false]}`)

	book, err := ReadBook(path)
	require.NoError(t, err)
	require.Len(t, book, 1)
	require.NoError(t, os.Remove(path))

	first, second := book.NewTransTable(), book.NewTransTable()
	first.Insert(start.Hash(), TTEntry{Move: e2e4, Depth: 5, Flag: LowerBoundFlag, Value: 40})

	entry, ok := second.Get(start.Hash())
	require.True(t, ok)
	assert.Equal(t, TTEntry{Move: e2e4, Depth: 1, Flag: ExactFlag, Value: -BookValue}, entry)
	assert.Equal(t, -BookValue, book[start.Hash()].Value)
}

func TestOpenBookFallsBackToNil(t *testing.T) {
	assert.Nil(t, OpenBook(""))
	assert.Nil(t, OpenBook(filepath.Join(t.TempDir(), "missing.json")))
	assert.Equal(t, 0, Book(nil).NewTransTable().Len())
}
