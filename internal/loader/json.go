package loader

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/KaramelBytes/nestloom-cli/internal/table"
)

type jsonLoader struct{}

func (jsonLoader) CanLoad(filename string) bool {
	return strings.HasSuffix(strings.ToLower(filename), ".json")
}

func (jsonLoader) Load(path string, opt Options) (*table.Table, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open json: %w", err)
	}
	defer f.Close()
	return ReadJSON(f, opt)
}

// object keeps keys in document order.
type object struct {
	keys []string
	vals map[string]any
}

// ReadJSON parses an array of objects. Columns follow first appearance of
// each key; nested arrays of objects become sub-tables and arrays of
// scalars become vectors.
func ReadJSON(r io.Reader, opt Options) (*table.Table, error) {
	dec := json.NewDecoder(r)
	dec.UseNumber()
	v, err := decodeAny(dec)
	if err != nil {
		if errors.Is(err, io.EOF) {
			return table.New()
		}
		return nil, fmt.Errorf("decode json: %w", err)
	}
	rows, ok := v.([]any)
	if !ok {
		return nil, fmt.Errorf("decode json: top level must be an array of objects")
	}
	if opt.MaxRows > 0 && len(rows) > opt.MaxRows {
		rows = rows[:opt.MaxRows]
	}
	return objectsTable(rows)
}

func decodeAny(dec *json.Decoder) (any, error) {
	tok, err := dec.Token()
	if err != nil {
		return nil, err
	}
	switch d := tok.(type) {
	case json.Delim:
		switch d {
		case '[':
			var out []any
			for dec.More() {
				v, err := decodeAny(dec)
				if err != nil {
					return nil, err
				}
				out = append(out, v)
			}
			_, err := dec.Token()
			return out, err
		case '{':
			obj := &object{vals: map[string]any{}}
			for dec.More() {
				kt, err := dec.Token()
				if err != nil {
					return nil, err
				}
				key, _ := kt.(string)
				v, err := decodeAny(dec)
				if err != nil {
					return nil, err
				}
				if _, dup := obj.vals[key]; !dup {
					obj.keys = append(obj.keys, key)
				}
				obj.vals[key] = v
			}
			_, err := dec.Token()
			return obj, err
		}
		return nil, fmt.Errorf("unexpected delimiter %v", d)
	default:
		return tok, nil
	}
}

func objectsTable(rows []any) (*table.Table, error) {
	var names []string
	seen := map[string]bool{}
	objs := make([]*object, len(rows))
	for i, r := range rows {
		obj, ok := r.(*object)
		if !ok {
			return nil, fmt.Errorf("row %d: expected object, got %T", i, r)
		}
		objs[i] = obj
		for _, k := range obj.keys {
			if !seen[k] {
				seen[k] = true
				names = append(names, k)
			}
		}
	}
	cols := make([]*table.Column, len(names))
	for j, name := range names {
		vals := make([]table.Value, len(objs))
		for i, obj := range objs {
			v, err := jsonValue(obj.vals[name])
			if err != nil {
				return nil, fmt.Errorf("row %d column %q: %w", i, name, err)
			}
			vals[i] = v
		}
		col, err := table.NewColumn(name, vals)
		if err != nil {
			return nil, err
		}
		cols[j] = col
	}
	return table.NewN(len(objs), cols...)
}

func jsonValue(v any) (table.Value, error) {
	switch x := v.(type) {
	case nil:
		return table.Null(), nil
	case json.Number:
		f, err := x.Float64()
		if err != nil {
			return table.Null(), err
		}
		return table.Number(f), nil
	case string:
		return table.String(x), nil
	case bool:
		return table.Bool(x), nil
	case *object:
		sub, err := objectsTable([]any{x})
		if err != nil {
			return table.Null(), err
		}
		return table.Nested(sub), nil
	case []any:
		if len(x) > 0 {
			if _, ok := x[0].(*object); ok {
				sub, err := objectsTable(x)
				if err != nil {
					return table.Null(), err
				}
				return table.Nested(sub), nil
			}
		}
		elems := make([]table.Value, len(x))
		for i, e := range x {
			ev, err := jsonValue(e)
			if err != nil {
				return table.Null(), err
			}
			if ev.Kind().IsList() {
				return table.Null(), fmt.Errorf("nested arrays are not supported")
			}
			elems[i] = ev
		}
		return table.Vector(elems...), nil
	}
	return table.Null(), fmt.Errorf("unsupported json value %T", v)
}
