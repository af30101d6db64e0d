package winewizard

import (
	"errors"
	"fmt"
)

var (
	// ErrInput indicates a missing or invalid installer file.
	ErrInput = errors.New("invalid input")

	// ErrManifest indicates a malformed repository or solution document.
	ErrManifest = errors.New("malformed manifest")

	// ErrVersionMismatch is matched by every *VersionMismatchError.
	ErrVersionMismatch = errors.New("repository version mismatch")

	// ErrBusy indicates another installation is already running.
	ErrBusy = errors.New("another installation is already running")

	// ErrAcquisitionCancelled indicates the user aborted a download.
	ErrAcquisitionCancelled = errors.New("acquisition cancelled")

	// ErrDependencyCycle indicates a package requires itself, directly or not.
	ErrDependencyCycle = errors.New("dependency cycle")

	// ErrPrefixNotFound indicates the referenced prefix does not exist on disk.
	ErrPrefixNotFound = errors.New("prefix not found")

	// ErrPrefixInUse indicates the prefix is busy or running.
	ErrPrefixInUse = errors.New("prefix is in use")

	// ErrAborted indicates the user declined a prompt.
	ErrAborted = errors.New("aborted by user")

	// ErrShuttingDown is returned by a workflow that stopped because quit was requested.
	ErrShuttingDown = errors.New("shutting down")
)

// VersionMismatchError reports a repository written for another application version.
type VersionMismatchError struct {
	Current  string
	Required string
}

func (e *VersionMismatchError) Error() string {
	return fmt.Sprintf("please install a newer version of Wine Wizard: the current version is %s, the required version is %s", e.Current, e.Required)
}

func (e *VersionMismatchError) Is(target error) bool {
	return target == ErrVersionMismatch
}

// isSilent reports errors that end a workflow without an error dialog.
func isSilent(err error) bool {
	return errors.Is(err, ErrAcquisitionCancelled) ||
		errors.Is(err, ErrAborted) ||
		errors.Is(err, ErrShuttingDown)
}

func manifestErrorf(format string, a ...any) error {
	return fmt.Errorf("%w: %s", ErrManifest, fmt.Sprintf(format, a...))
}

func inputErrorf(format string, a ...any) error {
	return fmt.Errorf("%w: %s", ErrInput, fmt.Sprintf(format, a...))
}
