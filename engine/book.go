package engine

import (
	"encoding/json"
	"fmt"
	"os"
	"strconv"

	"github.com/cespare/xxhash"
	"github.com/dylhunn/dragontoothmg"
	"github.com/rs/zerolog/log"
)

// BookValue is the score given to a book position: positive when the book
// favours the side to move.
const BookValue Score = 999

const bookDepth = 1

// bookRecord is one `[move code, favored]` pair of the book file.
type bookRecord struct {
	Move    dragontoothmg.Move
	Favored bool
}

func (r *bookRecord) UnmarshalJSON(data []byte) error {
	var raw [2]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	var code uint16
	if err := json.Unmarshal(raw[0], &code); err != nil {
		return fmt.Errorf("move code: %w", err)
	}
	if err := json.Unmarshal(raw[1], &r.Favored); err != nil {
		return fmt.Errorf("favored flag: %w", err)
	}
	r.Move = dragontoothmg.Move(code)
	return nil
}

// Book is a parsed opening book: the entries it seeds, keyed by position hash.
type Book map[uint64]TTEntry

/*
ReadBook parses an opening book. The file is a JSON object mapping a position
hash (decimal string) to a [move code, favored] pair; every record becomes an
exact entry at depth 1 worth +/-BookValue.
*/
func ReadBook(path string) (Book, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading opening book: %w", err)
	}
	var records map[string]bookRecord
	if err := json.Unmarshal(data, &records); err != nil {
		return nil, fmt.Errorf("decoding opening book %s: %w", path, err)
	}

	book := make(Book, len(records))
	for hash, rec := range records {
		key, err := strconv.ParseUint(hash, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("opening book key %q: %w", hash, err)
		}
		value := -BookValue
		if rec.Favored {
			value = BookValue
		}
		book[key] = TTEntry{
			Move:  rec.Move,
			Depth: bookDepth,
			Flag:  ExactFlag,
			Value: value,
		}
	}

	log.Info().
		Str("path", path).
		Int("entries", len(book)).
		Str("checksum", strconv.FormatUint(xxhash.Sum64(data), 16)).
		Msg("loaded-opening-book")
	return book, nil
}

// OpenBook is ReadBook for callers that fall back to no book: an empty path
// or an unreadable file gives a nil Book.
func OpenBook(path string) Book {
	if path == "" {
		return nil
	}
	book, err := ReadBook(path)
	if err != nil {
		log.Debug().Err(err).Msg("opening-book-unavailable")
		return nil
	}
	return book
}

// NewTransTable returns a fresh table seeded with the book. All entries are
// written first and published with a single Refresh.
func (b Book) NewTransTable() *TransTable {
	tt := NewTransTable()
	for key, entry := range b {
		tt.InsertNoRefresh(key, entry)
	}
	tt.Refresh()
	return tt
}

// LoadBook reads path and seeds a table from it.
func LoadBook(path string) (*TransTable, error) {
	book, err := ReadBook(path)
	if err != nil {
		return nil, err
	}
	return book.NewTransTable(), nil
}

// NewTransTableWithBook seeds a table from path, or returns an empty table
// when the book cannot be read.
func NewTransTableWithBook(path string) *TransTable {
	return OpenBook(path).NewTransTable()
}
