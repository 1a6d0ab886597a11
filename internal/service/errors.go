package service

import "errors"

// Job-level errors returned synchronously to callers of control
// operations, and input-level errors that reject a job before it exists.
var (
	// ErrJobNotFound means no import job exists for the given id.
	ErrJobNotFound = errors.New("import job not found")

	// ErrInvalidState means the requested control operation is not legal
	// from the job's current status.
	ErrInvalidState = errors.New("invalid job state for requested operation")

	// ErrEmptyFile means the uploaded file has no data rows.
	ErrEmptyFile = errors.New("file contains no data rows")

	// ErrInvalidFormat means the file could not be decoded as a spreadsheet.
	ErrInvalidFormat = errors.New("file is not a valid spreadsheet")

	// ErrMissingColumns means required header columns are absent.
	ErrMissingColumns = errors.New("required columns are missing")

	// ErrStorageUnavailable means a batch transaction could not commit
	// even after a retry; the job terminates as failed.
	ErrStorageUnavailable = errors.New("storage unavailable")
)
