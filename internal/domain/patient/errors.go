package patient

import "errors"

var (
	// ErrPatientNotFound is returned when no patient exists for a lookup.
	// An empty name search also reports it.
	ErrPatientNotFound = errors.New("patient not found")

	// ErrInvalidArgument is returned when a delete is attempted for a patient
	// without an identifier or one the store does not hold.
	ErrInvalidArgument = errors.New("invalid patient argument")
)
