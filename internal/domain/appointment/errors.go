package appointment

import "errors"

var (
	ErrNotFound          = errors.New("appointment not found")
	ErrSlotConflict      = errors.New("doctor already has an appointment in this time slot")
	ErrInvalidInterval   = errors.New("appointment end must be after start")
	ErrScheduledInPast   = errors.New("cannot schedule an appointment in the past")
	ErrAlreadyApproved   = errors.New("appointment is already approved and cannot be changed by the patient")
	ErrInvalidTransition = errors.New("invalid appointment status transition")
	ErrPurposeRequired   = errors.New("appointment purpose is required")
)
