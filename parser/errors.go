package parser

import "fmt"

// ErrorKind is the closed set of failure classifications a caller can
// switch on without parsing message text.
type ErrorKind int

const (
	ErrBadBootSector ErrorKind = iota
	ErrBadMagic
	ErrBadSentinel
	ErrFixupArrayTruncated
	ErrRecordSizeMisaligned
	ErrMalformedAttributeList
	ErrUnknownAttributeType
	ErrResidentContentOutOfBounds
	ErrRunListHeaderInvalid
	ErrRunListInconsistency
	ErrOffsetOverflow
	ErrTruncatedRead
	ErrIoError
	ErrUnsupported
)

func (self ErrorKind) String() string {
	switch self {
	case ErrBadBootSector:
		return "BadBootSector"
	case ErrBadMagic:
		return "BadMagic"
	case ErrBadSentinel:
		return "BadSentinel"
	case ErrFixupArrayTruncated:
		return "FixupArrayTruncated"
	case ErrRecordSizeMisaligned:
		return "RecordSizeMisaligned"
	case ErrMalformedAttributeList:
		return "MalformedAttributeList"
	case ErrUnknownAttributeType:
		return "UnknownAttributeType"
	case ErrResidentContentOutOfBounds:
		return "ResidentContentOutOfBounds"
	case ErrRunListHeaderInvalid:
		return "RunListHeaderInvalid"
	case ErrRunListInconsistency:
		return "RunListInconsistency"
	case ErrOffsetOverflow:
		return "OffsetOverflow"
	case ErrTruncatedRead:
		return "TruncatedRead"
	case ErrIoError:
		return "IoError"
	case ErrUnsupported:
		return "Unsupported"
	default:
		return "Unknown"
	}
}

// NtfsError carries the context an external caller needs to diagnose
// which structure, offset, and invariant were violated (§7).
type NtfsError struct {
	Kind ErrorKind

	// RecordIndex is the MFT record number involved, where known. -1
	// means not determined.
	RecordIndex int64

	// AttributeId is the attribute id involved, where known. -1 means
	// not determined.
	AttributeId int64

	// FieldOffset is the byte offset of the offending field within
	// its record/attribute, where known. -1 means not determined.
	FieldOffset int64

	Message string
	Err     error
}

func NewNtfsError(kind ErrorKind, message string) *NtfsError {
	return &NtfsError{
		Kind:        kind,
		RecordIndex: -1,
		AttributeId: -1,
		FieldOffset: -1,
		Message:     message,
	}
}

func (self *NtfsError) WithRecordIndex(idx int64) *NtfsError {
	self.RecordIndex = idx
	return self
}

func (self *NtfsError) WithAttributeId(id int64) *NtfsError {
	self.AttributeId = id
	return self
}

func (self *NtfsError) WithFieldOffset(offset int64) *NtfsError {
	self.FieldOffset = offset
	return self
}

func (self *NtfsError) WithErr(err error) *NtfsError {
	self.Err = err
	return self
}

func (self *NtfsError) Error() string {
	result := fmt.Sprintf("%v: %v", self.Kind, self.Message)
	if self.RecordIndex >= 0 {
		result += fmt.Sprintf(" (record %d)", self.RecordIndex)
	}
	if self.AttributeId >= 0 {
		result += fmt.Sprintf(" (attribute id %d)", self.AttributeId)
	}
	if self.FieldOffset >= 0 {
		result += fmt.Sprintf(" (offset %#x)", self.FieldOffset)
	}
	if self.Err != nil {
		result += fmt.Sprintf(": %v", self.Err)
	}
	return result
}

func (self *NtfsError) Unwrap() error {
	return self.Err
}
