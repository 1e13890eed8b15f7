package discovery

import "errors"

// Package-level sentinel errors for discovery operations.
var (
	// ErrClosed is returned when an operation is attempted on a closed advertiser.
	ErrClosed = errors.New("discovery: closed")

	// ErrAlreadyStarted is returned when starting an already-started service.
	ErrAlreadyStarted = errors.New("discovery: already started")

	// ErrNotStarted is returned when stopping a service that was not started.
	ErrNotStarted = errors.New("discovery: not started")

	// ErrInvalidDeviceID is returned when the device ID is not 6 hex bytes.
	ErrInvalidDeviceID = errors.New("discovery: invalid device ID (must be 6 bytes)")

	// ErrInvalidName is returned when the advertised name is empty or too long.
	ErrInvalidName = errors.New("discovery: invalid device name")

	// ErrInvalidPort is returned when the port number is out of range.
	ErrInvalidPort = errors.New("discovery: invalid port (must be 1-65535)")
)
