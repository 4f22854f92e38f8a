package snapshot

// Kind classifies a validation finding.
type Kind string

const (
	// Hard errors: the artifact must not be imported.
	KindMalformedFormat     Kind = "MALFORMED_FORMAT"
	KindChecksumMismatch    Kind = "CHECKSUM_MISMATCH"
	KindVersionIncompatible Kind = "VERSION_INCOMPATIBLE"

	// Advisories: surfaced to the caller, do not block import.
	KindOrphanedReference Kind = "ORPHANED_REFERENCE"
	KindDuplicateID       Kind = "DUPLICATE_ID"
	KindChecksumMissing   Kind = "CHECKSUM_MISSING"
)

// Finding is one validation outcome with a short, user-presentable
// message. Never a stack trace.
type Finding struct {
	Kind    Kind
	Message string
}

func (f Finding) String() string {
	return string(f.Kind) + ": " + f.Message
}
