package loader

import (
	"archive/zip"
	"bytes"
	"encoding/xml"
	"fmt"
	"io"
	"path"
	"path/filepath"
	"strings"

	"github.com/KaramelBytes/nestloom-cli/internal/table"
)

type xlsxLoader struct{}

func (xlsxLoader) CanLoad(filename string) bool {
	return strings.HasSuffix(strings.ToLower(filename), ".xlsx")
}

// Load reads the selected sheet; the first row is the header.
func (xlsxLoader) Load(p string, opt Options) (*table.Table, error) {
	zr, err := zip.OpenReader(p)
	if err != nil {
		return nil, fmt.Errorf("open xlsx: %w", err)
	}
	defer zr.Close()
	wb := workbook{files: zr.File}
	target, err := wb.sheetPath(opt.SheetName, opt.SheetIndex)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", filepath.Base(p), err)
	}
	rr := newSheetRowReader(wb.read(target), parseSharedStrings(wb.read("xl/sharedStrings.xml")))
	header, ok := rr.Next()
	if !ok || len(header) == 0 {
		return table.New()
	}
	var rows [][]string
	for opt.MaxRows <= 0 || len(rows) < opt.MaxRows {
		row, ok := rr.Next()
		if !ok {
			break
		}
		rows = append(rows, row)
	}
	return FromRecords(header, rows, opt)
}

// SheetNames lists the worksheet names of an .xlsx file in workbook order.
func SheetNames(p string) ([]string, error) {
	zr, err := zip.OpenReader(p)
	if err != nil {
		return nil, fmt.Errorf("open xlsx: %w", err)
	}
	defer zr.Close()
	wb := workbook{files: zr.File}
	var names []string
	for _, s := range parseWorkbook(wb.read("xl/workbook.xml")) {
		names = append(names, s.Name)
	}
	return names, nil
}

type workbook struct {
	files []*zip.File
}

func (w workbook) read(name string) []byte {
	for _, f := range w.files {
		if f.Name != name {
			continue
		}
		rc, err := f.Open()
		if err != nil {
			return nil
		}
		defer rc.Close()
		b, _ := io.ReadAll(rc)
		return b
	}
	return nil
}

// sheetPath resolves a sheet by name, else by 1-based sheetId.
func (w workbook) sheetPath(name string, index int) (string, error) {
	sheets := parseWorkbook(w.read("xl/workbook.xml"))
	rels := parseRelationships(w.read("xl/_rels/workbook.xml.rels"))
	if name != "" {
		available := make([]string, 0, len(sheets))
		for _, s := range sheets {
			if strings.EqualFold(s.Name, name) {
				if rel, ok := rels[s.RID]; ok {
					return normalizeRelPath(rel), nil
				}
			}
			available = append(available, s.Name)
		}
		return "", &SheetNotFoundError{Name: name, Available: available}
	}
	if index <= 0 {
		index = 1
	}
	for _, s := range sheets {
		if s.SheetID == index {
			if rel, ok := rels[s.RID]; ok {
				return normalizeRelPath(rel), nil
			}
		}
	}
	return fmt.Sprintf("xl/worksheets/sheet%d.xml", index), nil
}

// SheetNotFoundError reports a sheet name absent from the workbook.
type SheetNotFoundError struct {
	Name      string
	Available []string
}

func (e *SheetNotFoundError) Error() string {
	return fmt.Sprintf("sheet %q not found (available: %s)", e.Name, strings.Join(e.Available, ", "))
}

type wbSheet struct {
	Name    string
	SheetID int
	RID     string
}

// eachStart calls fn for every start element in data.
func eachStart(data []byte, fn func(xml.StartElement)) {
	if len(data) == 0 {
		return
	}
	dec := xml.NewDecoder(bytes.NewReader(data))
	for {
		tok, err := dec.Token()
		if err != nil {
			return
		}
		if se, ok := tok.(xml.StartElement); ok {
			fn(se)
		}
	}
}

func parseWorkbook(data []byte) []wbSheet {
	var sheets []wbSheet
	eachStart(data, func(se xml.StartElement) {
		if se.Name.Local != "sheet" {
			return
		}
		var s wbSheet
		for _, a := range se.Attr {
			switch a.Name.Local {
			case "name":
				s.Name = a.Value
			case "sheetId":
				s.SheetID = atoiSafe(a.Value)
			case "id":
				s.RID = a.Value
			}
		}
		sheets = append(sheets, s)
	})
	return sheets
}

// parseRelationships maps relationship ids to targets.
func parseRelationships(data []byte) map[string]string {
	out := map[string]string{}
	eachStart(data, func(se xml.StartElement) {
		if se.Name.Local != "Relationship" {
			return
		}
		var id, target string
		for _, a := range se.Attr {
			switch a.Name.Local {
			case "Id":
				id = a.Value
			case "Target":
				target = a.Value
			}
		}
		if id != "" && target != "" {
			out[id] = target
		}
	})
	return out
}

func parseSharedStrings(data []byte) []string {
	if len(data) == 0 {
		return nil
	}
	dec := xml.NewDecoder(bytes.NewReader(data))
	var out []string
	var buf strings.Builder
	inT := false
	for {
		tok, err := dec.Token()
		if err != nil {
			return out
		}
		switch se := tok.(type) {
		case xml.StartElement:
			switch se.Name.Local {
			case "si":
				buf.Reset()
			case "t":
				inT = true
			}
		case xml.EndElement:
			switch se.Name.Local {
			case "t":
				inT = false
			case "si":
				out = append(out, buf.String())
			}
		case xml.CharData:
			if inT {
				buf.Write(se)
			}
		}
	}
}

type sheetRowReader struct {
	dec    *xml.Decoder
	shared []string
}

func newSheetRowReader(data []byte, shared []string) *sheetRowReader {
	return &sheetRowReader{dec: xml.NewDecoder(bytes.NewReader(data)), shared: shared}
}

// Next returns the next row with cells placed by their column reference.
func (r *sheetRowReader) Next() ([]string, bool) {
	var row []string
	inRow := false
	for {
		tok, err := r.dec.Token()
		if err != nil {
			return nil, false
		}
		switch se := tok.(type) {
		case xml.StartElement:
			if se.Name.Local == "row" {
				inRow, row = true, nil
				continue
			}
			if !inRow || se.Name.Local != "c" {
				continue
			}
			var ref, typ string
			for _, a := range se.Attr {
				switch a.Name.Local {
				case "r":
					ref = a.Value
				case "t":
					typ = a.Value
				}
			}
			idx := colIndexFromRef(ref)
			if idx < 0 {
				idx = len(row)
			}
			for len(row) <= idx {
				row = append(row, "")
			}
			row[idx] = r.cellValue(typ)
		case xml.EndElement:
			if inRow && se.Name.Local == "row" {
				return row, true
			}
		}
	}
}

// cellValue consumes tokens through the closing </c>.
func (r *sheetRowReader) cellValue(typ string) string {
	var val strings.Builder
	capture := false
	for {
		tok, err := r.dec.Token()
		if err != nil {
			break
		}
		switch se := tok.(type) {
		case xml.StartElement:
			capture = se.Name.Local == "v" || se.Name.Local == "t"
		case xml.EndElement:
			if se.Name.Local == "v" || se.Name.Local == "t" {
				capture = false
			}
			if se.Name.Local == "c" {
				return r.resolve(typ, val.String())
			}
		case xml.CharData:
			if capture {
				val.Write(se)
			}
		}
	}
	return r.resolve(typ, val.String())
}

func (r *sheetRowReader) resolve(typ, raw string) string {
	switch typ {
	case "s":
		idx := atoiSafe(raw)
		if idx >= 0 && idx < len(r.shared) {
			return r.shared[idx]
		}
		return ""
	case "b":
		if raw == "1" {
			return "true"
		}
		return "false"
	}
	return raw
}

// colIndexFromRef maps "C12" to 2.
func colIndexFromRef(ref string) int {
	idx := 0
	for i := 0; i < len(ref); i++ {
		c := ref[i]
		switch {
		case c >= 'A' && c <= 'Z':
			idx = idx*26 + int(c-'A'+1)
		case c >= 'a' && c <= 'z':
			idx = idx*26 + int(c-'a'+1)
		default:
			return idx - 1
		}
	}
	return idx - 1
}

func atoiSafe(s string) int {
	n := 0
	for i := 0; i < len(s); i++ {
		c := s[i]
		if c < '0' || c > '9' {
			break
		}
		n = n*10 + int(c-'0')
	}
	return n
}

// normalizeRelPath turns a relationship target into a zip entry name.
// Targets may be absolute ("/xl/worksheets/sheet1.xml") or relative to xl/.
func normalizeRelPath(rel string) string {
	rel = strings.TrimPrefix(rel, "/")
	if strings.HasPrefix(rel, "xl/") {
		return rel
	}
	return path.Join("xl", rel)
}
