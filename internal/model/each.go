package model

import (
	"fmt"

	"github.com/KaramelBytes/nestloom-cli/internal/nest"
	"github.com/KaramelBytes/nestloom-cli/internal/table"
)

// DefaultColumn holds fitted model handles after FitEach.
const DefaultColumn = "model"

// FitEach fits y ~ x to every sub-table of dataCol and stores the model
// handles in into.
func FitEach(nested *table.Table, dataCol, x, y, into string, opts ...nest.Option) (*table.Table, error) {
	return nest.MapTable(nested, dataCol, into, func(sub *table.Table) (table.Value, error) {
		m, err := FitLinear(sub, x, y)
		if err != nil {
			return table.Null(), err
		}
		return table.Handle(m), nil
	}, opts...)
}

// GlanceEach stores a one-row Glance table per model.
func GlanceEach(t *table.Table, modelCol, into string, opts ...nest.Option) (*table.Table, error) {
	return nest.Map(t, modelCol, into, func(v table.Value) (table.Value, error) {
		m, err := asLinear(v)
		if err != nil || m == nil {
			return table.Null(), err
		}
		g, err := Glance(m)
		return table.Nested(g), err
	}, opts...)
}

// TidyEach stores a per-term Tidy table per model.
func TidyEach(t *table.Table, modelCol, into string, opts ...nest.Option) (*table.Table, error) {
	return nest.Map(t, modelCol, into, func(v table.Value) (table.Value, error) {
		m, err := asLinear(v)
		if err != nil || m == nil {
			return table.Null(), err
		}
		td, err := Tidy(m)
		return table.Nested(td), err
	}, opts...)
}

// AugmentEach pairs each model with its data and stores the augmented
// sub-table.
func AugmentEach(t *table.Table, modelCol, dataCol, into string, opts ...nest.Option) (*table.Table, error) {
	return pairEach(t, modelCol, dataCol, into, Augment, opts...)
}

// ResidualsEach replaces (or adds) into with the data plus a residual
// column called name.
func ResidualsEach(t *table.Table, modelCol, dataCol, into, name string, opts ...nest.Option) (*table.Table, error) {
	return pairEach(t, modelCol, dataCol, into, func(m *Linear, data *table.Table) (*table.Table, error) {
		return AddResiduals(data, m, name)
	}, opts...)
}

// PredictionsEach is ResidualsEach for predictions.
func PredictionsEach(t *table.Table, modelCol, dataCol, into, name string, opts ...nest.Option) (*table.Table, error) {
	return pairEach(t, modelCol, dataCol, into, func(m *Linear, data *table.Table) (*table.Table, error) {
		return AddPredictions(data, m, name)
	}, opts...)
}

func pairEach(t *table.Table, modelCol, dataCol, into string, fn func(*Linear, *table.Table) (*table.Table, error), opts ...nest.Option) (*table.Table, error) {
	return nest.Map2(t, modelCol, dataCol, into, func(mv, dv table.Value) (table.Value, error) {
		m, err := asLinear(mv)
		if err != nil || m == nil || dv.IsNull() {
			return table.Null(), err
		}
		data := dv.Table()
		if data == nil {
			return table.Null(), fmt.Errorf("expected table cell, got %s", dv.Kind())
		}
		out, err := fn(m, data)
		return table.Nested(out), err
	}, opts...)
}

func asLinear(v table.Value) (*Linear, error) {
	if v.IsNull() {
		return nil, nil
	}
	m, ok := v.Handle().(*Linear)
	if !ok {
		return nil, fmt.Errorf("expected linear model handle, got %s", v)
	}
	return m, nil
}
