package model

// DataValidationError reports a customer payload that cannot be deserialized.
type DataValidationError struct {
	Msg string
}

func (e *DataValidationError) Error() string { return e.Msg }

func newValidationError(msg string) error {
	return &DataValidationError{Msg: msg}
}
