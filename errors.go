package reckon

import (
	"errors"
	"fmt"

	"github.com/etnz/reckon/date"
)

// Sentinel errors, to be tested with errors.Is.
var (
	ErrMalformedRow          = errors.New("malformed row")
	ErrInsufficientInventory = errors.New("insufficient inventory")
	ErrUnsupportedRule       = errors.New("unsupported rule configuration")
)

// MalformedRowError reports an input row that cannot be normalized. It is
// recoverable: the row is reported and the rest of the batch goes on.
type MalformedRowError struct {
	Source string // account or trade file the row comes from
	Seq    int    // position of the row in its source
	Field  string // offending field, if known
	Value  string // offending raw value, if any
	Err    error
}

func (e *MalformedRowError) Error() string {
	msg := fmt.Sprintf("%s row %d: malformed", e.Source, e.Seq)
	if e.Field != "" {
		msg += fmt.Sprintf(" field %q", e.Field)
	}
	if e.Value != "" {
		msg += fmt.Sprintf(" value %q", e.Value)
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *MalformedRowError) Is(target error) bool { return target == ErrMalformedRow }
func (e *MalformedRowError) Unwrap() error        { return e.Err }

// InsufficientInventoryError reports a disposal of more units than are open
// for that asset.
type InsufficientInventoryError struct {
	Asset     string
	On        date.Date
	Requested Quantity
	Available Quantity
}

func (e *InsufficientInventoryError) Error() string {
	return fmt.Sprintf("on %s, cannot dispose of %v %s, only %v open", e.On, e.Requested, e.Asset, e.Available)
}

func (e *InsufficientInventoryError) Is(target error) bool { return target == ErrInsufficientInventory }

// UnsupportedRuleConfigurationError reports a missing or invalid parameter in
// a RuleSet or a MatchConfig. It is fatal for the computation that needs it.
type UnsupportedRuleConfigurationError struct {
	Parameter string
	Reason    string
}

func (e *UnsupportedRuleConfigurationError) Error() string {
	return fmt.Sprintf("unsupported rule configuration: %s %s", e.Parameter, e.Reason)
}

func (e *UnsupportedRuleConfigurationError) Is(target error) bool { return target == ErrUnsupportedRule }

// missing is a shorthand for a missing rule parameter.
func missing(parameter string) error {
	return &UnsupportedRuleConfigurationError{Parameter: parameter, Reason: "is missing"}
}

// invalid is a shorthand for an out of range rule parameter.
func invalid(parameter string, format string, args ...any) error {
	return &UnsupportedRuleConfigurationError{Parameter: parameter, Reason: fmt.Sprintf(format, args...)}
}
