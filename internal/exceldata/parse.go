package exceldata

import (
	"crypto/md5"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/xuri/excelize/v2"
)

// RequiredColumns are the sheet columns every upload must provide, after
// trimming and lowercasing the header row.
var RequiredColumns = []string{
	"srocode",
	"internaldocumentnumber",
	"docno",
	"docname",
	"registrationdate",
	"sroname",
	"micrno",
	"bank_type",
	"party_code",
	"sellerparty",
	"purchaserparty",
	"propertydescription",
	"areaname",
	"consideration_amt",
	"marketvalue",
	"dateofexecution",
	"stampdutypaid",
	"registrationfees",
	"status",
}

// KeyColumns identify a row for duplicate detection and content hashing.
var KeyColumns = []string{
	"docno",
	"internaldocumentnumber",
	"registrationdate",
	"sellerparty",
	"purchaserparty",
}

// Row is one parsed sheet row, keyed by normalized column name.
type Row map[string]string

// ErrEmptySheet marks an upload whose first sheet has no data rows. The text
// is surfaced verbatim in API error bodies.
var ErrEmptySheet = errors.New("File is empty or could not be read")

// Parse reads the first sheet of an xlsx document and returns its rows. The
// header row is normalized (trimmed, lowercased) and all required columns
// must be present. Cell values are trimmed; short rows are padded with empty
// strings.
func Parse(r io.Reader) ([]Row, error) {
	book, err := excelize.OpenReader(r)
	if err != nil {
		return nil, fmt.Errorf("open spreadsheet: %w", err)
	}
	defer book.Close()

	sheets := book.GetSheetList()
	if len(sheets) == 0 {
		return nil, ErrEmptySheet
	}

	cells, err := book.GetRows(sheets[0])
	if err != nil {
		return nil, fmt.Errorf("read sheet %q: %w", sheets[0], err)
	}
	if len(cells) < 2 {
		return nil, ErrEmptySheet
	}

	header := make([]string, len(cells[0]))
	seen := make(map[string]struct{}, len(cells[0]))
	for i, name := range cells[0] {
		normalized := strings.ToLower(strings.TrimSpace(name))
		header[i] = normalized
		seen[normalized] = struct{}{}
	}

	var missing []string
	for _, required := range RequiredColumns {
		if _, ok := seen[required]; !ok {
			missing = append(missing, required)
		}
	}
	if len(missing) > 0 {
		return nil, fmt.Errorf("Missing required columns: %s", strings.Join(missing, ", "))
	}

	rows := make([]Row, 0, len(cells)-1)
	for _, line := range cells[1:] {
		row := make(Row, len(header))
		for i, column := range header {
			if column == "" {
				continue
			}
			value := ""
			if i < len(line) {
				value = strings.TrimSpace(line[i])
			}
			row[column] = value
		}
		rows = append(rows, row)
	}
	if len(rows) == 0 {
		return nil, ErrEmptySheet
	}
	return rows, nil
}

// DataHash returns a hex MD5 digest of the key columns across all rows,
// identifying the upload's content.
func DataHash(rows []Row) string {
	hasher := md5.New()
	for _, row := range rows {
		for _, column := range KeyColumns {
			io.WriteString(hasher, row[column])
			hasher.Write([]byte{0})
		}
	}
	return hex.EncodeToString(hasher.Sum(nil))
}
