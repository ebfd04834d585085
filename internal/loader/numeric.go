package loader

import (
	"math"
	"regexp"
	"strconv"
	"strings"
)

func sniffDelimiter(path string) rune {
	name := strings.ToLower(path)
	if strings.HasSuffix(name, ".tsv") || strings.HasSuffix(name, ".tab") {
		return '\t'
	}
	return ','
}

// parseNumeric accepts plain, percent, and locale-formatted numbers such
// as "1.000,5" or "1,000.5".
func parseNumeric(s string, opt Options) (float64, bool) {
	raw := strings.TrimSpace(s)
	raw = strings.TrimSuffix(raw, "%")
	raw = strings.ReplaceAll(raw, "\u00A0", " ")
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return 0, false
	}
	dec := opt.DecimalSeparator
	thou := opt.ThousandsSeparator
	if dec == 0 {
		cpos := strings.LastIndex(raw, ",")
		dpos := strings.LastIndex(raw, ".")
		switch {
		case cpos >= 0 && dpos >= 0 && cpos > dpos:
			dec, thou = ',', '.'
		case cpos >= 0 && dpos >= 0:
			dec, thou = '.', ','
		case cpos >= 0:
			dec = ','
		default:
			dec = '.'
		}
	}
	if thou == 0 {
		for _, sep := range []rune{',', '.', ' '} {
			if sep != dec {
				raw = strings.ReplaceAll(raw, string(sep), "")
			}
		}
	} else if thou != dec {
		raw = strings.ReplaceAll(raw, string(thou), "")
	}
	if dec != '.' {
		raw = strings.ReplaceAll(raw, string(dec), ".")
	}
	f, err := strconv.ParseFloat(raw, 64)
	if err != nil || math.IsNaN(f) || math.IsInf(f, 0) {
		return 0, false
	}
	return f, true
}

func parseBool(s string) (bool, bool) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "true":
		return true, true
	case "false":
		return false, true
	}
	return false, false
}

func convertUnit(x float64, from, to string) (float64, bool) {
	switch from + ">" + to {
	case "g/L>mg/L":
		return x * 1000, true
	case "ug/L>mg/L":
		return x / 1000, true
	case "°F>°C":
		return (x - 32) * 5.0 / 9.0, true
	}
	return x, false
}

var unitPatterns = []*regexp.Regexp{
	regexp.MustCompile(`^(.*)\s*\(([^)]+)\)\s*$`),  // Alpha (%)
	regexp.MustCompile(`^(.*)\s*\[([^\]]+)\]\s*$`), // Mass [mg/L]
	regexp.MustCompile(`^(.*?)[_\s-]+(mg/L|g/L|ug/L|°[CF]|Brix|%|ppm|ppb)$`),
}

func splitUnits(name string) (clean string, unit string) {
	s := strings.TrimSpace(name)
	for _, re := range unitPatterns {
		if m := re.FindStringSubmatch(s); len(m) >= 3 {
			base := strings.TrimSpace(m[1])
			u := strings.TrimSpace(m[2])
			if base != "" && u != "" {
				return base, u
			}
		}
	}
	return s, ""
}
