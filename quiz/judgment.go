package quiz

import (
	"errors"
	"fmt"
	"strings"
)

// Judgment is the three-valued mark a viewer puts on a single answer option.
type Judgment int

const (
	// Unset covers both the explicit "don't know" mark and an untouched option.
	Unset Judgment = iota
	Affirmed
	Rejected
)

var ErrUnknownJudgment = errors.New("unknown judgment")

func (j Judgment) String() string {
	switch j {
	case Affirmed:
		return "affirmed"
	case Rejected:
		return "rejected"
	default:
		return "unset"
	}
}

// ParseJudgment accepts the wire names plus the short button aliases used by the page.
func ParseJudgment(s string) (Judgment, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "unset", "undecided", "none", "-":
		return Unset, nil
	case "affirmed", "affirm", "yes", "true":
		return Affirmed, nil
	case "rejected", "reject", "no", "false":
		return Rejected, nil
	}
	return Unset, fmt.Errorf("%w: %q", ErrUnknownJudgment, s)
}

func (j Judgment) MarshalText() ([]byte, error) {
	return []byte(j.String()), nil
}

func (j *Judgment) UnmarshalText(text []byte) error {
	v, err := ParseJudgment(string(text))
	if err != nil {
		return err
	}
	*j = v
	return nil
}
