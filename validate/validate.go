// Package validate holds the per-kind field validators and the dispatcher that
// applies required/optional policy before routing a candidate value to the
// validator matching its field's kind.
package validate

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/convoflow/convoflow/types"
)

// Result is the two-variant validation outcome: success, or failure carrying a
// human-readable reason. There is no partial or warning state.
type Result struct {
	valid  bool
	reason string
}

func OK() Result { return Result{valid: true} }

func Fail(reason string) Result { return Result{reason: reason} }

func (r Result) Valid() bool { return r.valid }

// Reason returns the failure reason; empty on success.
func (r Result) Reason() string { return r.reason }

var (
	emailPattern = regexp.MustCompile(`^[^\s@]+@[^\s@]+\.[^\s@]+$`)
	phonePattern = regexp.MustCompile(`^[0-9\s+\-()]+$`)
	datePrefix   = regexp.MustCompile(`^(\d{4})-(\d{2})-(\d{2})`)
)

// Text validates TEXT and LONG_TEXT candidates. Length and pattern constraints
// declared on the field are intentionally not enforced here.
func Text(string) Result {
	return OK()
}

// Email accepts a conservative local-part@domain.tld shape.
func Email(s string) Result {
	if emailPattern.MatchString(strings.TrimSpace(s)) {
		return OK()
	}
	return Fail("Invalid email format")
}

// Phone requires at least 10 digits and allows only digits, whitespace, "+",
// "-" and parentheses in the original string.
func Phone(s string) Result {
	if !phonePattern.MatchString(s) {
		return Fail("Invalid phone format")
	}
	digits := 0
	for _, r := range s {
		if r >= '0' && r <= '9' {
			digits++
		}
	}
	if digits < 10 {
		return Fail("Invalid phone format")
	}
	return OK()
}

// Number checks a numeric candidate against optional min/max bounds. Absent
// bounds impose no constraint.
func Number(n float64, min, max *float64) Result {
	if min != nil && n < *min {
		return Fail(fmt.Sprintf("Number must be at least %v", *min))
	}
	if max != nil && n > *max {
		return Fail(fmt.Sprintf("Number must be at most %v", *max))
	}
	return OK()
}

// Date accepts a date value or a parseable date string. For strings starting
// with a YYYY-MM-DD run, the year/month/day are re-derived from the string and
// compared against the parsed UTC calendar fields, so a request for e.g.
// February 30th fails instead of rolling forward into March.
func Date(raw any) Result {
	switch v := raw.(type) {
	case time.Time:
		return OK()
	case types.Value:
		if _, ok := v.Date(); ok {
			return OK()
		}
		if s, ok := v.Text(); ok {
			return dateString(s)
		}
		return Fail("Invalid date format")
	case string:
		return dateString(v)
	default:
		return Fail("Invalid date format")
	}
}

func dateString(s string) Result {
	s = strings.TrimSpace(s)
	m := datePrefix.FindStringSubmatch(s)
	if m == nil {
		return Fail("Invalid date format")
	}

	var parsed time.Time
	var err error
	if len(s) == len(m[0]) {
		parsed, err = time.Parse(types.DateLayout, s)
	} else {
		parsed, err = time.Parse(time.RFC3339, s)
	}
	if err != nil {
		return Fail("Invalid date format")
	}

	year, _ := strconv.Atoi(m[1])
	month, _ := strconv.Atoi(m[2])
	day, _ := strconv.Atoi(m[3])
	py, pm, pd := parsed.UTC().Date()
	if py != year || int(pm) != month || pd != day {
		return Fail("Invalid date format")
	}
	return OK()
}

// Enum requires exact, case-sensitive membership in the option list.
func Enum(s string, options []string) Result {
	for _, opt := range options {
		if s == opt {
			return OK()
		}
	}
	return Fail("Value must be one of: " + strings.Join(options, ", "))
}

// ForField applies the required/optional policy, then dispatches the raw
// candidate to the validator for the field's kind, coercing the representation
// as needed. On success it returns the accepted value in its canonical typed
// form. The kind set is closed; an unrecognized kind is a configuration error
// and panics.
func ForField(field types.Field, raw any) (types.Value, Result) {
	if isAbsent(raw) {
		if field.Required {
			return types.AbsentValue(), Fail("Field is required")
		}
		return types.AbsentValue(), OK()
	}

	switch field.Kind {
	case types.KindText, types.KindLongText:
		s := stringify(raw)
		return types.TextValue(s), Text(s)
	case types.KindEmail:
		s := stringify(raw)
		if res := Email(s); !res.Valid() {
			return types.AbsentValue(), res
		}
		return types.TextValue(strings.TrimSpace(s)), OK()
	case types.KindPhone:
		s := stringify(raw)
		if res := Phone(s); !res.Valid() {
			return types.AbsentValue(), res
		}
		return types.TextValue(s), OK()
	case types.KindNumber:
		n, ok := numeric(raw)
		if !ok {
			return types.AbsentValue(), Fail("Invalid number format")
		}
		var min, max *float64
		if field.Constraints != nil {
			min, max = field.Constraints.Min, field.Constraints.Max
		}
		if res := Number(n, min, max); !res.Valid() {
			return types.AbsentValue(), res
		}
		return types.NumberValue(n), OK()
	case types.KindDate:
		if res := Date(raw); !res.Valid() {
			return types.AbsentValue(), res
		}
		return dateValue(raw), OK()
	case types.KindEnum:
		s := stringify(raw)
		var options []string
		if field.Constraints != nil {
			options = field.Constraints.Options
		}
		if res := Enum(s, options); !res.Valid() {
			return types.AbsentValue(), res
		}
		return types.TextValue(s), OK()
	}
	panic(fmt.Sprintf("unhandled field kind: %s", field.Kind))
}

func isAbsent(raw any) bool {
	switch v := raw.(type) {
	case nil:
		return true
	case types.Value:
		return v.IsAbsent()
	}
	return false
}

func stringify(raw any) string {
	switch v := raw.(type) {
	case string:
		return v
	case types.Value:
		return v.String()
	case float64:
		return strconv.FormatFloat(v, 'f', -1, 64)
	default:
		return fmt.Sprint(v)
	}
}

func numeric(raw any) (float64, bool) {
	switch v := raw.(type) {
	case float64:
		return v, true
	case int:
		return float64(v), true
	case int64:
		return float64(v), true
	case string:
		n, err := strconv.ParseFloat(strings.TrimSpace(v), 64)
		return n, err == nil
	case types.Value:
		if n, ok := v.Number(); ok {
			return n, true
		}
		if s, ok := v.Text(); ok {
			n, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
			return n, err == nil
		}
	}
	return 0, false
}

func dateValue(raw any) types.Value {
	switch v := raw.(type) {
	case time.Time:
		return types.DateValue(v)
	case types.Value:
		if t, ok := v.Date(); ok {
			return types.DateValue(t)
		}
		if s, ok := v.Text(); ok {
			return parseDateValue(s)
		}
	case string:
		return parseDateValue(v)
	}
	return types.AbsentValue()
}

func parseDateValue(s string) types.Value {
	s = strings.TrimSpace(s)
	if t, err := time.Parse(types.DateLayout, s); err == nil {
		return types.DateValue(t)
	}
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		return types.DateValue(t)
	}
	return types.AbsentValue()
}
