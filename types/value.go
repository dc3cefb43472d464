package types

import (
	"fmt"
	"strconv"
	"time"

	"github.com/bytedance/sonic"
)

// ValueKind discriminates the value union.
type ValueKind int

const (
	ValueAbsent ValueKind = iota
	ValueText
	ValueNumber
	ValueDate
)

// Value is the union of shapes a collected value may take: text, number, date,
// or an explicit absent marker. A value is always interpreted relative to
// exactly one field's kind.
type Value struct {
	kind   ValueKind
	text   string
	number float64
	date   time.Time
}

// DateLayout is the canonical wire format for date values.
const DateLayout = "2006-01-02"

func AbsentValue() Value          { return Value{kind: ValueAbsent} }
func TextValue(s string) Value    { return Value{kind: ValueText, text: s} }
func NumberValue(n float64) Value { return Value{kind: ValueNumber, number: n} }
func DateValue(t time.Time) Value { return Value{kind: ValueDate, date: t.UTC()} }

func (v Value) Kind() ValueKind { return v.kind }
func (v Value) IsAbsent() bool  { return v.kind == ValueAbsent }

func (v Value) Text() (string, bool) {
	return v.text, v.kind == ValueText
}

func (v Value) Number() (float64, bool) {
	return v.number, v.kind == ValueNumber
}

func (v Value) Date() (time.Time, bool) {
	return v.date, v.kind == ValueDate
}

// Native returns the value in its plain Go representation, suitable for JSON
// documents. Dates render in DateLayout; absent renders as nil.
func (v Value) Native() any {
	switch v.kind {
	case ValueAbsent:
		return nil
	case ValueText:
		return v.text
	case ValueNumber:
		return v.number
	case ValueDate:
		return v.date.Format(DateLayout)
	}
	panic(fmt.Sprintf("unhandled value kind: %d", v.kind))
}

// String renders the value for display inside prompts.
func (v Value) String() string {
	switch v.kind {
	case ValueAbsent:
		return ""
	case ValueText:
		return v.text
	case ValueNumber:
		return strconv.FormatFloat(v.number, 'f', -1, 64)
	case ValueDate:
		return v.date.Format(DateLayout)
	}
	panic(fmt.Sprintf("unhandled value kind: %d", v.kind))
}

// MarshalJSON emits the native representation.
func (v Value) MarshalJSON() ([]byte, error) {
	return sonic.Marshal(v.Native())
}

// UnmarshalJSON reads a generic JSON value. Strings in DateLayout come back as
// text; the validation dispatcher re-interprets them against the field kind on
// every proposal, so no information is lost.
func (v *Value) UnmarshalJSON(data []byte) error {
	var raw any
	if err := sonic.Unmarshal(data, &raw); err != nil {
		return err
	}
	switch val := raw.(type) {
	case nil:
		*v = AbsentValue()
	case string:
		*v = TextValue(val)
	case float64:
		*v = NumberValue(val)
	case bool:
		*v = TextValue(strconv.FormatBool(val))
	default:
		return fmt.Errorf("unsupported value shape: %T", raw)
	}
	return nil
}
