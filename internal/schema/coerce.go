package schema

import (
	"encoding/json"
	"fmt"
	"math"
	"regexp"
	"strconv"
	"strings"
	"time"
)

// FieldError is a per-field validation failure.
type FieldError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

func (e FieldError) Error() string {
	return e.Field + " " + e.Message
}

type valueClass int

const (
	classOther valueClass = iota
	classText
	classEnum
	classBool
	classInt
	classDecimal
	classTemporal
)

var (
	enumRe     = regexp.MustCompile(`(?i)^(enum|set)\((.*)\)$`)
	textRe     = regexp.MustCompile(`(?i)char|text|clob`)
	boolRe     = regexp.MustCompile(`(?i)^(bool|boolean|tinyint\(1\))$`)
	intRe      = regexp.MustCompile(`(?i)^(tiny|small|medium|big)?int(eger)?\b|^serial|^year`)
	decimalRe  = regexp.MustCompile(`(?i)decimal|numeric|float|double|real`)
	temporalRe = regexp.MustCompile(`(?i)^(date|datetime|timestamp|time)\b`)
)

var temporalLayouts = []string{
	"2006-01-02",
	"2006-01-02 15:04:05",
	"2006-01-02 15:04",
	"2006-01-02T15:04:05",
	"2006-01-02T15:04",
	time.RFC3339,
	time.RFC3339Nano,
	"15:04:05",
}

func classify(typ string) (valueClass, []string) {
	t := strings.TrimSpace(typ)
	if m := enumRe.FindStringSubmatch(t); m != nil {
		return classEnum, parseEnumValues(m[2])
	}
	switch {
	case textRe.MatchString(t):
		return classText, nil
	case boolRe.MatchString(t):
		return classBool, nil
	case intRe.MatchString(t):
		return classInt, nil
	case decimalRe.MatchString(t):
		return classDecimal, nil
	case temporalRe.MatchString(t):
		return classTemporal, nil
	}
	return classOther, nil
}

// parseEnumValues splits the body of enum('a','b') into its members.
func parseEnumValues(body string) []string {
	var out []string
	for _, part := range strings.Split(body, ",") {
		part = strings.TrimSpace(part)
		part = strings.TrimPrefix(part, "'")
		part = strings.TrimSuffix(part, "'")
		out = append(out, strings.ReplaceAll(part, "''", "'"))
	}
	return out
}

// Coerce converts every payload value to the class its column declares.
// Values that cannot be converted are reported, in column order, and left
// out of the result.
func Coerce(cols []Column, payload map[string]any) (map[string]any, []FieldError) {
	out := make(map[string]any, len(payload))
	var errs []FieldError
	for _, c := range cols {
		v, ok := payload[c.Field]
		if !ok {
			continue
		}
		cv, err := CoerceValue(c, v)
		if err != nil {
			errs = append(errs, FieldError{Field: c.Field, Message: err.Error()})
			continue
		}
		out[c.Field] = cv
	}
	return out, errs
}

// CoerceValue converts a decoded JSON or query-string value for storage in col.
// Empty strings count as null for non-textual columns.
func CoerceValue(col Column, v any) (any, error) {
	class, members := classify(col.Type)

	if s, ok := v.(string); ok && s == "" && class != classText && class != classOther {
		v = nil
	}
	if v == nil {
		if !col.Nullable && col.Key != "PRI" {
			return nil, fmt.Errorf("must not be null")
		}
		return nil, nil
	}
	switch v.(type) {
	case map[string]any, []any:
		return nil, fmt.Errorf("must be a scalar value")
	}

	switch class {
	case classText:
		return toText(v)
	case classEnum:
		s, err := toText(v)
		if err != nil {
			return nil, err
		}
		for _, m := range members {
			if m == s {
				return s, nil
			}
		}
		return nil, fmt.Errorf("must be one of %s", strings.Join(members, ", "))
	case classBool:
		return toBool(v)
	case classInt:
		return toInt(v)
	case classDecimal:
		return toDecimal(v)
	case classTemporal:
		s, ok := v.(string)
		if !ok {
			return nil, fmt.Errorf("must be a date/time string")
		}
		for _, layout := range temporalLayouts {
			if _, err := time.Parse(layout, s); err == nil {
				return s, nil
			}
		}
		return nil, fmt.Errorf("invalid date/time %q", s)
	default:
		if n, ok := v.(json.Number); ok {
			return n.String(), nil
		}
		return v, nil
	}
}

func toText(v any) (any, error) {
	switch x := v.(type) {
	case string:
		return x, nil
	case json.Number:
		return x.String(), nil
	case float64:
		return strconv.FormatFloat(x, 'f', -1, 64), nil
	case int64:
		return strconv.FormatInt(x, 10), nil
	case int:
		return strconv.Itoa(x), nil
	}
	return nil, fmt.Errorf("must be text")
}

func toInt(v any) (any, error) {
	switch x := v.(type) {
	case int64:
		return x, nil
	case int:
		return int64(x), nil
	case json.Number:
		if n, err := x.Int64(); err == nil {
			return n, nil
		}
	case float64:
		if x == math.Trunc(x) && math.Abs(x) < 1<<53 {
			return int64(x), nil
		}
	case string:
		if n, err := strconv.ParseInt(strings.TrimSpace(x), 10, 64); err == nil {
			return n, nil
		}
	}
	return nil, fmt.Errorf("must be an integer")
}

func toDecimal(v any) (any, error) {
	var s string
	switch x := v.(type) {
	case json.Number:
		s = x.String()
	case string:
		s = strings.TrimSpace(x)
	case float64:
		return x, nil
	case int64:
		return x, nil
	case int:
		return int64(x), nil
	default:
		return nil, fmt.Errorf("must be a number")
	}
	if _, err := strconv.ParseFloat(s, 64); err != nil {
		return nil, fmt.Errorf("must be a number")
	}
	return s, nil
}

func toBool(v any) (any, error) {
	switch x := v.(type) {
	case bool:
		return x, nil
	case json.Number:
		switch x.String() {
		case "0":
			return false, nil
		case "1":
			return true, nil
		}
	case float64:
		if x == 0 || x == 1 {
			return x == 1, nil
		}
	case int64:
		if x == 0 || x == 1 {
			return x == 1, nil
		}
	case string:
		if b, err := strconv.ParseBool(x); err == nil {
			return b, nil
		}
	}
	return nil, fmt.Errorf("must be a boolean")
}
