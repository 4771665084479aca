package biometric

import (
	"bytes"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/cmlabs-hris/bio-attendance-go/internal/domain/biometric"
	"github.com/xuri/excelize/v2"
)

// ParseResult is the output of reading one export file.
type ParseResult struct {
	Events  []biometric.ScanEvent
	Skipped []*biometric.ParseError
}

// exportColumns are the column positions of one export layout.
type exportColumns struct {
	deviceID int
	name     int
	dateTime int
}

// Column order of the stock export: No, DevNo, UserId, Name, Mode, DateTime.
var defaultColumns = exportColumns{deviceID: 1, name: 3, dateTime: 5}

var scanTimeLayouts = []string{
	"2006-01-02 15:04:05",
	"2006-01-02 15:04",
	"2006/01/02 15:04:05",
	"2006/01/02 15:04",
}

// ParseFile picks the reader for filename's extension.
func ParseFile(r io.Reader, filename string, loc *time.Location) (ParseResult, error) {
	if strings.EqualFold(filepath.Ext(filename), ".xlsx") {
		return ParseWorkbook(r, loc)
	}
	return ParseExport(r, loc)
}

// ParseExport reads a delimited time-clock export. Rows that cannot be parsed are skipped and
// reported; only a failure to read the input is returned as an error.
func ParseExport(r io.Reader, loc *time.Location) (ParseResult, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return ParseResult{}, fmt.Errorf("read export: %w", err)
	}

	reader := csv.NewReader(bytes.NewReader(data))
	reader.Comma = sniffDelimiter(data)
	reader.FieldsPerRecord = -1
	reader.LazyQuotes = true

	var (
		result ParseResult
		cols   exportColumns
		header = true
	)
	for {
		row, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			var csvErr *csv.ParseError
			if errors.As(err, &csvErr) {
				result.Skipped = append(result.Skipped, &biometric.ParseError{Line: csvErr.Line, Reason: csvErr.Err.Error()})
				continue
			}
			return ParseResult{}, fmt.Errorf("read export: %w", err)
		}
		line, _ := reader.FieldPos(0)
		if isBlankRow(row) {
			continue
		}
		if header {
			header = false
			var ok bool
			if cols, ok = locateColumns(row); !ok {
				result.Skipped = append(result.Skipped, &biometric.ParseError{Line: line, Reason: "header not recognised, using default column order"})
			}
			continue
		}

		ev, perr := parseRow(row, cols, line, loc)
		if perr != nil {
			result.Skipped = append(result.Skipped, perr)
			continue
		}
		result.Events = append(result.Events, ev)
	}

	return result, nil
}

// ParseWorkbook reads the first sheet of an .xlsx export with the same layout as the text export.
func ParseWorkbook(r io.Reader, loc *time.Location) (ParseResult, error) {
	file, err := excelize.OpenReader(r)
	if err != nil {
		return ParseResult{}, fmt.Errorf("open workbook: %w", err)
	}
	defer func() { _ = file.Close() }()

	sheetName := file.GetSheetName(0)
	if sheetName == "" {
		return ParseResult{}, biometric.ErrEmptyWorkbook
	}

	rows, err := file.GetRows(sheetName)
	if err != nil {
		return ParseResult{}, fmt.Errorf("read worksheet %s: %w", sheetName, err)
	}

	var (
		result ParseResult
		cols   exportColumns
		header = true
	)
	for i, row := range rows {
		line := i + 1
		if isBlankRow(row) {
			continue
		}
		if header {
			header = false
			var ok bool
			if cols, ok = locateColumns(row); !ok {
				result.Skipped = append(result.Skipped, &biometric.ParseError{Line: line, Reason: "header not recognised, using default column order"})
			}
			continue
		}
		ev, perr := parseRow(row, cols, line, loc)
		if perr != nil {
			result.Skipped = append(result.Skipped, perr)
			continue
		}
		result.Events = append(result.Events, ev)
	}

	return result, nil
}

// NormalizeNameToken lowercases a raw export name and collapses punctuation and whitespace,
// so "NODADO,  A." becomes "nodado a".
func NormalizeNameToken(raw string) string {
	replacer := strings.NewReplacer(",", " ", ".", " ", "\u00a0", " ")
	return strings.Join(strings.Fields(strings.ToLower(replacer.Replace(raw))), " ")
}

// ParseScanTime parses an export timestamp in loc. Any run of whitespace may separate date
// and time.
func ParseScanTime(value string, loc *time.Location) (time.Time, error) {
	normalized := strings.Join(strings.Fields(value), " ")
	for _, layout := range scanTimeLayouts {
		if t, err := time.ParseInLocation(layout, normalized, loc); err == nil {
			return t, nil
		}
	}
	// Spreadsheet cells can carry the raw date serial.
	if serial, err := strconv.ParseFloat(normalized, 64); err == nil && serial > 1 {
		if t, err := excelize.ExcelDateToTime(serial, false); err == nil {
			return time.Date(t.Year(), t.Month(), t.Day(), t.Hour(), t.Minute(), t.Second(), 0, loc), nil
		}
	}
	return time.Time{}, fmt.Errorf("unparseable timestamp %q", value)
}

func parseRow(row []string, cols exportColumns, line int, loc *time.Location) (biometric.ScanEvent, *biometric.ParseError) {
	name := NormalizeNameToken(cellValue(row, cols.name))
	if name == "" {
		return biometric.ScanEvent{}, &biometric.ParseError{Line: line, Reason: "empty name"}
	}

	rawTime := cellValue(row, cols.dateTime)
	if rawTime == "" {
		return biometric.ScanEvent{}, &biometric.ParseError{Line: line, Reason: "missing timestamp"}
	}
	ts, err := ParseScanTime(rawTime, loc)
	if err != nil {
		return biometric.ScanEvent{}, &biometric.ParseError{Line: line, Reason: err.Error()}
	}

	return biometric.ScanEvent{
		RawNameToken: name,
		DeviceID:     cellValue(row, cols.deviceID),
		Timestamp:    ts,
		Line:         line,
	}, nil
}

func locateColumns(header []string) (exportColumns, bool) {
	cols := exportColumns{deviceID: -1, name: -1, dateTime: -1}
	for i, h := range header {
		switch normalizeHeader(h) {
		case "devno", "deviceno", "deviceid", "device":
			cols.deviceID = i
		case "name", "username", "employeename":
			cols.name = i
		case "datetime", "date/time", "timestamp", "scantime":
			cols.dateTime = i
		}
	}
	if cols.name < 0 || cols.dateTime < 0 {
		return defaultColumns, false
	}
	return cols, true
}

func normalizeHeader(header string) string {
	header = strings.TrimPrefix(header, "\ufeff")
	header = strings.ToLower(strings.TrimSpace(header))
	return strings.NewReplacer(" ", "", "_", "", "-", "").Replace(header)
}

func cellValue(row []string, idx int) string {
	if idx < 0 || idx >= len(row) {
		return ""
	}
	return strings.TrimSpace(row[idx])
}

func isBlankRow(row []string) bool {
	for _, cell := range row {
		if strings.TrimSpace(cell) != "" {
			return false
		}
	}
	return true
}

// sniffDelimiter prefers tabs and falls back to commas for exports re-saved as CSV.
func sniffDelimiter(data []byte) rune {
	firstLine := data
	if i := bytes.IndexByte(data, '\n'); i >= 0 {
		firstLine = data[:i]
	}
	if bytes.IndexByte(firstLine, '\t') < 0 && bytes.IndexByte(firstLine, ',') >= 0 {
		return ','
	}
	return '\t'
}
