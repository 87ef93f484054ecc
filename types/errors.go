package types

import (
	"errors"
	"fmt"
)

// ConfigurationError signals an invalid environment or test layout. It is
// always raised before any remote session is opened.
type ConfigurationError struct {
	Err error
}

func (e *ConfigurationError) Error() string {
	return fmt.Sprintf("configuration error: %v", e.Err)
}

// Unwrap implements the errors.Unwrap interface
func (e *ConfigurationError) Unwrap() error {
	return e.Err
}

// NewConfigurationError creates a new ConfigurationError
func NewConfigurationError(err error) *ConfigurationError {
	return &ConfigurationError{Err: err}
}

// ConfigurationErrorf creates a ConfigurationError from a format string
func ConfigurationErrorf(format string, args ...any) *ConfigurationError {
	return &ConfigurationError{Err: fmt.Errorf(format, args...)}
}

// IsConfigurationError checks if the error is or wraps a ConfigurationError
func IsConfigurationError(err error) bool {
	var cfgErr *ConfigurationError
	return err != nil && errors.As(err, &cfgErr)
}

// SessionFault represents a failure of the remote session transport, as
// opposed to an assertion made by a test.
type SessionFault struct {
	Op  string
	Err error
}

func (e *SessionFault) Error() string {
	return fmt.Sprintf("session fault: %s: %v", e.Op, e.Err)
}

// Unwrap implements the errors.Unwrap interface
func (e *SessionFault) Unwrap() error {
	return e.Err
}

// NewSessionFault creates a new SessionFault for the given operation
func NewSessionFault(op string, err error) *SessionFault {
	return &SessionFault{Op: op, Err: err}
}

// IsSessionFault checks if the error is or wraps a SessionFault
func IsSessionFault(err error) bool {
	var fault *SessionFault
	return err != nil && errors.As(err, &fault)
}

// ScriptError is an exception raised by a script running in the remote
// browser. It is the test's own failure, not a transport fault, so its message
// is the script's message unchanged.
type ScriptError struct {
	Message string
}

func (e *ScriptError) Error() string {
	return e.Message
}

// IsScriptError checks if the error is or wraps a ScriptError
func IsScriptError(err error) bool {
	var scriptErr *ScriptError
	return err != nil && errors.As(err, &scriptErr)
}

// ReportingFault represents a failed remote grid lookup for one entry
type ReportingFault struct {
	SessionID string
	Op        string
	Err       error
}

func (e *ReportingFault) Error() string {
	return fmt.Sprintf("reporting fault: session %s: %s: %v", e.SessionID, e.Op, e.Err)
}

// Unwrap implements the errors.Unwrap interface
func (e *ReportingFault) Unwrap() error {
	return e.Err
}

// NewReportingFault creates a new ReportingFault
func NewReportingFault(sessionID, op string, err error) *ReportingFault {
	return &ReportingFault{SessionID: sessionID, Op: op, Err: err}
}

// IsReportingFault checks if the error is or wraps a ReportingFault
func IsReportingFault(err error) bool {
	var fault *ReportingFault
	return err != nil && errors.As(err, &fault)
}
