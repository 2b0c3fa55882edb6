package rotation

import (
	"github.com/Lunar-Chipter/crystalconf/internal/errors"
)

// PolicyKind names a rolling policy variant.
type PolicyKind uint8

const (
	TimeBased PolicyKind = iota
	SizeAndTimeBased
	FixedWindow
)

func (k PolicyKind) String() string {
	switch k {
	case SizeAndTimeBased:
		return "SizeAndTimeBasedRollingPolicy"
	case FixedWindow:
		return "FixedWindowRollingPolicy"
	default:
		return "TimeBasedRollingPolicy"
	}
}

// DocRef is the manual section describing the policy.
func (k PolicyKind) DocRef() string {
	return "http://logback.qos.ch/manual/appenders.html#" + k.String()
}

// tokenRule is what a policy kind expects of a token class.
type tokenRule struct {
	wantDate  bool
	wantIndex bool
}

var tokenRules = map[PolicyKind]tokenRule{
	TimeBased:        {wantDate: true, wantIndex: false},
	SizeAndTimeBased: {wantDate: true, wantIndex: true},
	FixedWindow:      {wantDate: false, wantIndex: true},
}

// Validate checks pattern against the token rules of kind before anything is
// created. Only primary date tokens count; auxiliary %d{...,aux} tokens are
// accepted by every kind. Date formats are checked for collisions: a format whose output
// repeats across periods would overwrite older archives.
func Validate(pattern string, kind PolicyKind) error {
	fail := func(sentinel error, msg string) error {
		return &errors.PatternError{Pattern: pattern, Message: msg, DocRef: kind.DocRef(), Cause: sentinel}
	}

	if pattern == "" {
		return &errors.PatternError{Message: `The property "fileNamePattern" is mandatory`, Cause: errors.ErrPatternMandatory}
	}

	fnp, err := ParseFileNamePattern(pattern)
	if err != nil {
		return &errors.PatternError{Pattern: pattern, Message: "Invalid fileNamePattern: " + err.Error(), DocRef: kind.DocRef(), Cause: err}
	}

	rule := tokenRules[kind]
	dates := fnp.count(dateToken, true)
	indexes := fnp.count(indexToken, false)

	switch {
	case rule.wantDate && dates == 0:
		return fail(errors.ErrMissingToken, "Missing date token, that is %d")
	case !rule.wantDate && dates > 0:
		return fail(errors.ErrUnexpectedToken, "Unexpected date token, that is %d")
	case dates > 1:
		return fail(errors.ErrDuplicateToken, "More than one primary date token, that is %d, mark the others as auxiliary with %d{...,aux}")
	case rule.wantIndex && indexes == 0:
		return fail(errors.ErrMissingToken, "Missing integer token, that is %i")
	case !rule.wantIndex && indexes > 0:
		return fail(errors.ErrUnexpectedToken, "Unexpected integer token, that is %i")
	case indexes > 1:
		return fail(errors.ErrDuplicateToken, "More than one integer token, that is %i")
	}

	if rule.wantDate {
		rc := NewRollingCalendar(fnp.PrimaryDateFormat())
		if !rc.IsCollisionFree() {
			return fail(errors.ErrDateCollision, "Incorrect date format in the date token")
		}
	}
	return nil
}
