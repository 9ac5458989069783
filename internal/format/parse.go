package format

import (
	"fmt"
	"strconv"
	"strings"

	"benritz/schemadiff/internal/schema"
)

// TypeSpec is a parsed type string. At most one of Length or
// Precision/Scale is set.
type TypeSpec struct {
	Datatype  string
	Length    *int
	Precision *int
	Scale     *int
}

type ParseError struct {
	Raw    string
	Reason string
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("invalid type %q: %s", e.Raw, e.Reason)
}

func (e *ParseError) Unwrap() error {
	return schema.ErrInvalidType
}

// ParseType reads NAME['(' INT [',' INT] ')']. The name is trimmed and
// lower-cased; one number is a length, two are precision and scale.
func ParseType(raw string) (TypeSpec, error) {
	name, rest, hasArgs := strings.Cut(raw, "(")
	spec := TypeSpec{Datatype: strings.ToLower(strings.TrimSpace(name))}
	if spec.Datatype == "" {
		return TypeSpec{}, &ParseError{Raw: raw, Reason: "missing type name"}
	}
	if !hasArgs {
		if strings.Contains(raw, ")") {
			return TypeSpec{}, &ParseError{Raw: raw, Reason: "unbalanced ')'"}
		}
		return spec, nil
	}

	info, trailing, closed := strings.Cut(rest, ")")
	if !closed {
		return TypeSpec{}, &ParseError{Raw: raw, Reason: "missing ')'"}
	}
	if strings.TrimSpace(trailing) != "" {
		return TypeSpec{}, &ParseError{Raw: raw, Reason: "unexpected text after ')'"}
	}

	parts := strings.Split(info, ",")
	if len(parts) > 2 {
		return TypeSpec{}, &ParseError{Raw: raw, Reason: fmt.Sprintf("%d arguments, want 1 or 2", len(parts))}
	}
	nums := make([]int, len(parts))
	for i, p := range parts {
		n, err := strconv.Atoi(strings.TrimSpace(p))
		if err != nil || n < 0 {
			return TypeSpec{}, &ParseError{Raw: raw, Reason: fmt.Sprintf("argument %q is not a non-negative integer", strings.TrimSpace(p))}
		}
		nums[i] = n
	}

	if len(nums) == 2 {
		spec.Precision, spec.Scale = &nums[0], &nums[1]
	} else {
		spec.Length = &nums[0]
	}
	return spec, nil
}
