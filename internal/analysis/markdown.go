package analysis

import (
	"fmt"
	"sort"
	"strings"

	"github.com/KaramelBytes/nestloom-cli/internal/table"
)

// Markdown renders a compact report suitable for terminals or standalone docs.
func (r *Report) Markdown() string {
	var b strings.Builder
	b.WriteString("[DATASET SUMMARY]\n")
	if r.Name != "" {
		fmt.Fprintf(&b, "File: %s\n", r.Name)
	}
	fmt.Fprintf(&b, "Rows: %d\n", r.Rows)
	fmt.Fprintf(&b, "Columns: %d\n\n", len(r.Cols))

	b.WriteString("[SCHEMA]\n")
	for _, c := range r.Cols {
		missPct := 0.0
		if total := c.NonNull + c.Missing; total > 0 {
			missPct = float64(c.Missing) * 100.0 / float64(total)
		}
		fmt.Fprintf(&b, "- %s: %s (non-null %d, missing %.1f%%)", safeName(c.Name), c.Kind, c.NonNull, missPct)
		switch c.Kind {
		case "numeric":
			fmt.Fprintf(&b, "; min %.4g, max %.4g, mean %.4g, std %.4g", c.Min, c.Max, c.Mean, c.Std)
			if c.OutlierThreshold > 0 {
				fmt.Fprintf(&b, "; outliers: %d above |z|>%.1f", c.OutliersCount, c.OutlierThreshold)
				if c.OutliersMaxAbsZ > 0 {
					fmt.Fprintf(&b, " (max |z|≈%.2f)", c.OutliersMaxAbsZ)
				}
			}
		case "categorical", "bool":
			if len(c.TopValues) > 0 {
				b.WriteString("; top: ")
				for i, kv := range c.TopValues {
					if i > 0 {
						b.WriteString(", ")
					}
					fmt.Fprintf(&b, "%s(%d)", safeVal(kv.Value), kv.Count)
				}
				if c.Unique > len(c.TopValues) {
					fmt.Fprintf(&b, "; unique=%d", c.Unique)
				}
			}
		case "text":
			if len(c.ExampleTexts) > 0 {
				b.WriteString("; e.g., ")
				for i, ex := range c.ExampleTexts {
					if i > 0 {
						b.WriteString(" | ")
					}
					b.WriteString(truncate(safeVal(ex), 80))
				}
			}
		case "table", "vector":
			fmt.Fprintf(&b, "; length %d..%d", c.MinLen, c.MaxLen)
		}
		b.WriteString("\n")
	}
	if len(r.Groups) > 0 {
		b.WriteString("\n[GROUP-BY SUMMARY]\n")
		for _, g := range r.Groups {
			fmt.Fprintf(&b, "- %s (n=%d)\n", g.Key, g.Size)
			keys := make([]string, 0, len(g.Metrics))
			for k := range g.Metrics {
				keys = append(keys, k)
			}
			sort.Strings(keys)
			if len(keys) > 6 {
				keys = keys[:6]
			}
			for _, k := range keys {
				m := g.Metrics[k]
				fmt.Fprintf(&b, "  • %s: mean %.4g (min %.4g, max %.4g)\n", k, m.Mean, m.Min, m.Max)
			}
		}
		wroteHeader := false
		for _, g := range r.Groups {
			if len(g.CorrPairs) == 0 {
				continue
			}
			if !wroteHeader {
				b.WriteString("\n[PER-GROUP CORRELATIONS]\n")
				wroteHeader = true
			}
			fmt.Fprintf(&b, "- %s:\n", g.Key)
			for i, p := range g.CorrPairs {
				if i == 8 {
					break
				}
				fmt.Fprintf(&b, "  • %s ~ %s: r=%.3f\n", p.A, p.B, p.R)
			}
		}
	}
	if r.Corr != nil && len(r.Corr.Columns) >= 2 {
		b.WriteString("\n[CORRELATIONS]\n")
		for _, p := range topPairs(r.Corr, 10) {
			fmt.Fprintf(&b, "- %s ~ %s: r=%.3f\n", p.A, p.B, p.R)
		}
	}
	if len(r.Samples) > 0 {
		b.WriteString("\n[HEAD]\n")
		names := make([]string, len(r.Cols))
		for i, c := range r.Cols {
			names[i] = c.Name
		}
		writeMarkdownRows(&b, names, r.Samples)
	}
	if len(r.Warnings) > 0 {
		b.WriteString("\n[NOTES]\n")
		for _, w := range r.Warnings {
			b.WriteString("- ")
			b.WriteString(w)
			b.WriteString("\n")
		}
	}
	return b.String()
}

// Markdown renders t as a pipe table. Nested cells show as placeholders
// such as "<table [3 × 2]>". A limit <= 0 renders every row.
func Markdown(t *table.Table, limit int) string {
	rows := t.NumRows()
	if limit > 0 && rows > limit {
		rows = limit
	}
	cells := make([][]string, rows)
	for i := range cells {
		row := t.Row(i)
		cells[i] = make([]string, len(row))
		for j, v := range row {
			cells[i][j] = v.String()
		}
	}
	var b strings.Builder
	writeMarkdownRows(&b, t.Names(), cells)
	if rows < t.NumRows() {
		fmt.Fprintf(&b, "\n… %d more rows\n", t.NumRows()-rows)
	}
	return b.String()
}

func writeMarkdownRows(b *strings.Builder, names []string, rows [][]string) {
	b.WriteString("|")
	for _, n := range names {
		b.WriteString(" ")
		b.WriteString(safeVal(safeName(n)))
		b.WriteString(" |")
	}
	b.WriteString("\n|")
	for range names {
		b.WriteString(" --- |")
	}
	b.WriteString("\n")
	for _, row := range rows {
		b.WriteString("|")
		for i := range names {
			val := ""
			if i < len(row) {
				val = row[i]
			}
			b.WriteString(" ")
			b.WriteString(truncate(safeVal(val), 80))
			b.WriteString(" |")
		}
		b.WriteString("\n")
	}
}

func truncate(s string, n int) string {
	if r := []rune(s); len(r) > n {
		return string(r[:n-3]) + "..."
	}
	return s
}

func safeName(s string) string {
	s = strings.TrimSpace(s)
	if s == "" {
		return "(unnamed)"
	}
	return s
}

func safeVal(s string) string { return strings.ReplaceAll(strings.ReplaceAll(s, "\n", " "), "|", "/") }
