// This is a compatibility shim for POSIX-defined errno codes across platforms.
// The syscall package doesn't define all the values we need on all systems,
// particularly things like EUCLEAN.

package errors

import (
	"fmt"
)

type Errno int

const (
	EOK Errno = iota
	ENOENT
	EIO
	EEXIST
	EINVAL
	ENOSPC
	ENAMETOOLONG
	EALREADY
	EUCLEAN
)

var ErrNotFound = New(ENOENT)
var ErrIOFailed = New(EIO)
var ErrExists = New(EEXIST)
var ErrInvalidArgument = New(EINVAL)
var ErrNoSpaceOnDevice = New(ENOSPC)
var ErrNameTooLong = New(ENAMETOOLONG)
var ErrAlreadyInProgress = New(EALREADY)
var ErrFileSystemCorrupted = New(EUCLEAN)

// Names used by the file store. These are the same values as their errno
// counterparts, so errors.Is matches either spelling.
var (
	ErrDuplicateName       = ErrExists
	ErrInsufficientSpace   = ErrNoSpaceOnDevice
	ErrInternalConsistency = ErrFileSystemCorrupted
)

// The map is built in its declaration rather than in init() so that the
// package-level errors above get their messages.
var errorMessagesByCode = map[Errno]string{
	EOK:          "Success",
	ENOENT:       "No such file or directory",
	EIO:          "Input/output error",
	EEXIST:       "File exists",
	EINVAL:       "Invalid argument",
	ENOSPC:       "No space left on device",
	ENAMETOOLONG: "File name too long",
	EALREADY:     "Operation already in progress",
	EUCLEAN:      "Structure needs cleaning",
}

func StrError(code Errno) string {
	message, ok := errorMessagesByCode[code]
	if ok {
		return message
	}
	return fmt.Sprintf("error %d not recognized.", int(code))
}
