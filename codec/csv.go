package codec

import (
	"encoding/csv"
	"fmt"
	"io"

	"github.com/passwordkeyorg/s3s/storage"
)

// CSV stores a Table with its row index as the first column. The header's
// first cell is the index name, empty for an unnamed index.
var CSV = &Codec{
	Suffix:      ".csv",
	ContentType: "text/csv",
	ReadMode:    storage.Text,
	WriteMode:   storage.Text,
	DecodeFunc:  decodeCSV,
	EncodeFunc:  encodeCSV,
}

func encodeCSV(w io.Writer, v any) error {
	var t *Table
	switch x := v.(type) {
	case *Table:
		t = x
	case Table:
		t = &x
	default:
		return fmt.Errorf("csv: unsupported value type %T", v)
	}
	if t == nil {
		return fmt.Errorf("csv: nil table")
	}
	if err := t.validate(); err != nil {
		return fmt.Errorf("csv: %w", err)
	}

	cw := csv.NewWriter(w)
	rec := make([]string, 0, len(t.Columns)+1)
	rec = append(append(rec, t.IndexName), t.Columns...)
	if err := cw.Write(rec); err != nil {
		return err
	}
	for i, row := range t.Rows {
		rec = append(append(rec[:0], t.Index[i]), row...)
		if err := cw.Write(rec); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

func decodeCSV(r io.Reader, dst any) error {
	records, err := csv.NewReader(r).ReadAll()
	if err != nil {
		return err
	}
	if len(records) == 0 {
		return errEmptyCSV
	}
	header := records[0]
	t := &Table{
		IndexName: header[0],
		Columns:   append([]string(nil), header[1:]...),
		Index:     make([]string, 0, len(records)-1),
		Rows:      make([][]string, 0, len(records)-1),
	}
	for _, rec := range records[1:] {
		t.Index = append(t.Index, rec[0])
		t.Rows = append(t.Rows, append([]string(nil), rec[1:]...))
	}
	return assign(dst, t)
}
