// Copyright (c) 2025 The VeChainThor developers
//
// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package icx

import (
	"fmt"

	"github.com/pkg/errors"
)

// Kind classifies failures surfaced to transaction submitters.
type Kind int

// Kinds of failures. The numeric value is the failure code reported on transaction results.
const (
	Fatal          Kind = 1
	InvalidRequest Kind = 2
	InvalidParams  Kind = 3
	OutOfStep      Kind = 4
	OutOfBalance   Kind = 5
	StackOverflow  Kind = 7
	InvalidFormat  Kind = 8
	AccessDenied   Kind = 9
	ScoreNotFound  Kind = 10
	ScoreError     Kind = 32
)

func (k Kind) String() string {
	switch k {
	case Fatal:
		return "Fatal"
	case InvalidRequest:
		return "InvalidRequest"
	case InvalidParams:
		return "InvalidParams"
	case OutOfStep:
		return "OutOfStep"
	case OutOfBalance:
		return "OutOfBalance"
	case StackOverflow:
		return "StackOverflow"
	case InvalidFormat:
		return "InvalidFormat"
	case AccessDenied:
		return "AccessDenied"
	case ScoreNotFound:
		return "ScoreNotFound"
	case ScoreError:
		return "ScoreError"
	}
	return fmt.Sprintf("Kind(%d)", int(k))
}

// Error is a classified failure.
type Error struct {
	Kind    Kind
	Message string
}

// Errorf creates a classified failure.
func Errorf(kind Kind, format string, args ...any) error {
	return &Error{kind, fmt.Sprintf(format, args...)}
}

func (e *Error) Error() string {
	return e.Message
}

// Code returns the machine-readable failure code.
func (e *Error) Code() int {
	return int(e.Kind)
}

// KindOf returns the kind of err. Unclassified errors are reported as Fatal, since
// they originate from storage or codec failures the engine cannot recover from.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return Fatal
}

// IsKind reports whether err is classified as kind.
func IsKind(err error, kind Kind) bool {
	var e *Error
	return errors.As(err, &e) && e.Kind == kind
}

// IsFatal reports whether err must stop block processing.
func IsFatal(err error) bool {
	return err != nil && KindOf(err) == Fatal
}
