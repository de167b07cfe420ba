package loader

import (
	"fmt"
	"math"
	"regexp"
	"strconv"
	"strings"

	"github.com/KaramelBytes/tabscope/internal/table"
)

// FromRecords builds a typed table from a header and raw string rows. Each column's
// kind is decided by majority over its non-missing cells: numeric, then datetime,
// then boolean, then text. Cells that do not parse as the chosen kind become
// missing and are reported in the returned warnings.
func FromRecords(header []string, rows [][]string, opt Options) (*table.Table, []string, error) {
	names, units := cleanHeader(header)
	var warnings []string
	ncol := len(names)
	long := 0
	for _, r := range rows {
		if len(r) > ncol {
			long++
		}
	}
	if long > 0 {
		warnings = append(warnings, fmt.Sprintf("%d rows had more than %d fields; extra fields dropped", long, ncol))
	}
	cols := make([]*table.Column, ncol)
	for j := 0; j < ncol; j++ {
		cells := make([]string, len(rows))
		for i, r := range rows {
			if j < len(r) {
				cells[i] = strings.TrimSpace(r[j])
			}
		}
		c, warn, err := inferColumn(names[j], units[j], cells, opt)
		if err != nil {
			return nil, warnings, err
		}
		if warn != "" {
			warnings = append(warnings, warn)
		}
		cols[j] = c
	}
	t, err := table.New(cols...)
	if err != nil {
		return nil, warnings, err
	}
	return t, warnings, nil
}

// cleanHeader strips units from names, fills blanks and disambiguates repeats.
func cleanHeader(header []string) (names, units []string) {
	names = make([]string, len(header))
	units = make([]string, len(header))
	taken := make(map[string]bool)
	for i, h := range header {
		clean, unit := splitUnits(strings.TrimPrefix(h, "\ufeff"))
		if clean == "" {
			clean = fmt.Sprintf("Unnamed: %d", i)
		}
		base := clean
		for n := 1; taken[clean]; n++ {
			clean = fmt.Sprintf("%s.%d", base, n)
		}
		taken[clean] = true
		names[i], units[i] = clean, unit
	}
	return names, units
}

func inferColumn(name, unit string, cells []string, opt Options) (*table.Column, string, error) {
	var numCnt, dtCnt, boolCnt, txtCnt int
	if unit == "" {
		for _, v := range cells {
			if !opt.isNull(v) && strings.Contains(v, "%") {
				unit = "%"
				break
			}
		}
	}
	for _, v := range cells {
		if opt.isNull(v) {
			continue
		}
		if _, ok := parseNumeric(v, opt); ok {
			numCnt++
		} else if _, ok := table.ParseTime(v, opt.TimeLayouts); ok {
			dtCnt++
		} else if _, ok := inferBool(v); ok {
			boolCnt++
		} else {
			txtCnt++
		}
	}
	kind := table.KindText
	switch {
	case numCnt >= dtCnt && numCnt >= boolCnt && numCnt >= txtCnt:
		kind = table.KindNumeric
	case dtCnt >= boolCnt && dtCnt >= txtCnt:
		kind = table.KindDatetime
	case boolCnt >= txtCnt:
		kind = table.KindBool
	}

	outUnit := unit
	convert := func(x float64) float64 { return x }
	if kind == table.KindNumeric && opt.UnitNormalize && unit != "" {
		if _, nu, ok := normalizeUnit(0, unit, opt); ok {
			outUnit = nu
			convert = func(x float64) float64 {
				y, _, _ := normalizeUnit(x, unit, opt)
				return y
			}
		}
	}

	vals := make([]table.Value, len(cells))
	bad := 0
	for i, v := range cells {
		if opt.isNull(v) {
			vals[i] = table.Null(kind)
			continue
		}
		switch kind {
		case table.KindNumeric:
			if x, ok := parseNumeric(v, opt); ok {
				vals[i] = table.Num(convert(x))
				continue
			}
		case table.KindDatetime:
			if ts, ok := table.ParseTime(v, opt.TimeLayouts); ok {
				vals[i] = table.Time(ts)
				continue
			}
		case table.KindBool:
			if b, ok := inferBool(v); ok {
				vals[i] = table.Bool(b)
				continue
			}
		default:
			vals[i] = table.Text(v)
			continue
		}
		vals[i] = table.Null(kind)
		bad++
	}
	c, err := table.ColumnOf(name, kind, vals)
	if err != nil {
		return nil, "", err
	}
	var warn string
	if bad > 0 {
		warn = fmt.Sprintf("column %q: %d values not parseable as %s set to missing", name, bad, kind)
	}
	return c.WithUnit(outUnit), warn, nil
}

// inferBool only recognizes spelled-out words; single letters stay text.
func inferBool(s string) (bool, bool) {
	switch strings.ToLower(s) {
	case "true", "yes":
		return true, true
	case "false", "no":
		return false, true
	}
	return false, false
}

func parseNumeric(s string, opt Options) (float64, bool) {
	raw := strings.TrimSpace(s)
	if strings.Contains(raw, "%") {
		raw = strings.ReplaceAll(raw, "%", "")
	}
	// Normalize spaces
	raw = strings.ReplaceAll(raw, "\u00a0", " ")
	raw = strings.TrimSpace(raw)
	dec := opt.DecimalSeparator
	thou := opt.ThousandsSeparator
	if dec == 0 {
		cpos := strings.LastIndex(raw, ",")
		dpos := strings.LastIndex(raw, ".")
		if cpos >= 0 && dpos >= 0 {
			if cpos > dpos {
				dec = ','
				thou = '.'
			} else {
				dec = '.'
				thou = ','
			}
		} else if cpos >= 0 {
			dec = ','
		} else {
			dec = '.'
		}
	}
	// Remove thousands separators (common: ',', '.', space) if they differ from decimal
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
	if err != nil {
		return 0, false
	}
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return 0, false
	}
	return f, true
}

func normalizeUnit(x float64, unit string, opt Options) (float64, string, bool) {
	if opt.UnitTargets == nil {
		return x, unit, false
	}
	target, ok := opt.UnitTargets[unit]
	if !ok {
		return x, unit, false
	}
	switch unit + ">" + target {
	case "g/L>mg/L":
		return x * 1000, target, true
	case "ug/L>mg/L":
		return x / 1000, target, true
	case "°F>°C":
		return (x - 32) * 5.0 / 9.0, target, true
	default:
		return x, unit, false
	}
}

var unitPatterns = []struct {
	re   *regexp.Regexp
	pick int
}{
	{regexp.MustCompile(`^(.*)\s*\(([^)]+)\)\s*$`), 2},  // e.g., Speed (mph)
	{regexp.MustCompile(`^(.*)\s*\[([^\]]+)\]\s*$`), 2}, // e.g., Mass [mg/L]
	{regexp.MustCompile(`^(.*?)[_\s-]+(mg/L|g/L|ug/L|°[CF]|Brix|%|ppm|ppb)$`), 2},
}

func splitUnits(name string) (clean string, unit string) {
	s := strings.TrimSpace(name)
	for _, p := range unitPatterns {
		if m := p.re.FindStringSubmatch(s); len(m) >= 3 {
			base := strings.TrimSpace(m[1])
			u := strings.TrimSpace(m[p.pick])
			if base != "" && u != "" {
				return base, u
			}
		}
	}
	return s, ""
}
