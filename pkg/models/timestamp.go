package models

import (
	"fmt"
	"math/big"
	"strings"
)

// Timestamp is a ledger timestamp (nanoseconds) kept in decimal string form.
// The zero value means "absent".
type Timestamp string

// TimestampFromBig normalizes a large integer coming off the wire.
func TimestampFromBig(n *big.Int) Timestamp {
	if n == nil {
		return ""
	}
	return Timestamp(n.String())
}

// ParseTimestamp validates a decimal string before it is stored or sent.
func ParseTimestamp(s string) (Timestamp, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return "", nil
	}
	if _, ok := new(big.Int).SetString(s, 10); !ok {
		return "", fmt.Errorf("invalid timestamp %q", s)
	}
	return Timestamp(s), nil
}

func (t Timestamp) IsZero() bool {
	return t == ""
}

func (t Timestamp) String() string {
	return string(t)
}

// Big parses the timestamp back into the integer form requests carry.
func (t Timestamp) Big() (*big.Int, error) {
	if t.IsZero() {
		return nil, nil
	}
	n, ok := new(big.Int).SetString(string(t), 10)
	if !ok {
		return nil, fmt.Errorf("invalid timestamp %q", string(t))
	}
	return n, nil
}

// Compare orders timestamps numerically. Unparsable values sort first.
func (t Timestamp) Compare(o Timestamp) int {
	a, errA := t.Big()
	b, errB := o.Big()
	switch {
	case errA != nil || a == nil:
		if errB != nil || b == nil {
			return 0
		}
		return -1
	case errB != nil || b == nil:
		return 1
	}
	return a.Cmp(b)
}
