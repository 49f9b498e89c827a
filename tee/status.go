package tee

import "fmt"

// Status is a result code returned by the secure environment. The zero value
// is never returned as an error.
type Status uint32

const (
	StatusSuccess         Status = 0x00000000
	StatusGeneric         Status = 0xFFFF0000
	StatusAccessDenied    Status = 0xFFFF0001
	StatusBadFormat       Status = 0xFFFF0005
	StatusBadParameters   Status = 0xFFFF0006
	StatusBadState        Status = 0xFFFF0007
	StatusItemNotFound    Status = 0xFFFF0008
	StatusNotSupported    Status = 0xFFFF000A
	StatusOutOfMemory     Status = 0xFFFF000C
	StatusCommunication   Status = 0xFFFF000E
	StatusShortBuffer     Status = 0xFFFF0010
	StatusTargetDead      Status = 0xFFFF3024
	StatusCorruptObject   Status = 0xF0100001
	StatusStorageNotAvail Status = 0xF0100003
)

var statusNames = map[Status]string{
	StatusSuccess:         "SUCCESS",
	StatusGeneric:         "ERROR_GENERIC",
	StatusAccessDenied:    "ERROR_ACCESS_DENIED",
	StatusBadFormat:       "ERROR_BAD_FORMAT",
	StatusBadParameters:   "ERROR_BAD_PARAMETERS",
	StatusBadState:        "ERROR_BAD_STATE",
	StatusItemNotFound:    "ERROR_ITEM_NOT_FOUND",
	StatusNotSupported:    "ERROR_NOT_SUPPORTED",
	StatusOutOfMemory:     "ERROR_OUT_OF_MEMORY",
	StatusCommunication:   "ERROR_COMMUNICATION",
	StatusShortBuffer:     "ERROR_SHORT_BUFFER",
	StatusTargetDead:      "ERROR_TARGET_DEAD",
	StatusCorruptObject:   "ERROR_CORRUPT_OBJECT",
	StatusStorageNotAvail: "ERROR_STORAGE_NOT_AVAILABLE",
}

func (s Status) Error() string {
	if name, ok := statusNames[s]; ok {
		return fmt.Sprintf("tee: %#08x: %s", uint32(s), name)
	}
	return fmt.Sprintf("tee: %#08x", uint32(s))
}

// Errorf wraps s with a formatted message. errors.Is(err, s) holds for the
// returned error.
func Errorf(s Status, format string, args ...interface{}) error {
	return fmt.Errorf("%s: %w", fmt.Sprintf(format, args...), s)
}
