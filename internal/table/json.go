package table

import (
	"bytes"
	"encoding/json"
	"math"
	"strconv"
)

// MarshalJSON encodes the table as an array of row objects, keys in column
// order. Sub-tables nest as arrays, vectors as arrays.
func (t *Table) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	if err := t.writeJSON(&buf); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func (t *Table) writeJSON(buf *bytes.Buffer) error {
	buf.WriteByte('[')
	for r := 0; r < t.rows; r++ {
		if r > 0 {
			buf.WriteByte(',')
		}
		buf.WriteByte('{')
		for i, c := range t.cols {
			if i > 0 {
				buf.WriteByte(',')
			}
			key, err := json.Marshal(c.name)
			if err != nil {
				return err
			}
			buf.Write(key)
			buf.WriteByte(':')
			if err := c.values[r].writeJSON(buf); err != nil {
				return err
			}
		}
		buf.WriteByte('}')
	}
	buf.WriteByte(']')
	return nil
}

// MarshalJSON encodes a single cell.
func (v Value) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	if err := v.writeJSON(&buf); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func (v Value) writeJSON(buf *bytes.Buffer) error {
	switch v.kind {
	case KindNull:
		buf.WriteString("null")
	case KindNumber:
		if math.IsNaN(v.num) || math.IsInf(v.num, 0) {
			buf.WriteString("null")
			return nil
		}
		buf.WriteString(strconv.FormatFloat(v.num, 'g', -1, 64))
	case KindString:
		b, err := json.Marshal(v.str)
		if err != nil {
			return err
		}
		buf.Write(b)
	case KindBool:
		buf.WriteString(strconv.FormatBool(v.b))
	case KindTable:
		return v.tbl.writeJSON(buf)
	case KindVector:
		buf.WriteByte('[')
		for i, e := range v.vec {
			if i > 0 {
				buf.WriteByte(',')
			}
			if err := e.writeJSON(buf); err != nil {
				return err
			}
		}
		buf.WriteByte(']')
	case KindHandle:
		b, err := json.Marshal(v.handle)
		if err != nil {
			b, _ = json.Marshal(v.String())
		}
		buf.Write(b)
	}
	return nil
}
