package snapshot

import (
	"fmt"
	"strings"
)

// Result is the outcome of validating an artifact. Exactly one of
// Failure (hard error) or Snapshot is meaningful: OK implies Snapshot
// is set and Failure is nil. Warnings may accompany an OK result and
// should be shown to the user before commit.
type Result struct {
	OK       bool
	Snapshot *Snapshot
	Failure  *Finding
	Warnings []Finding
}

func failure(kind Kind, msg string) *Result {
	return &Result{Failure: &Finding{Kind: kind, Message: msg}}
}

// Validate parses an artifact and verifies it without mutating any
// state. Steps in order, each short-circuiting: parse, version gate,
// fingerprint check, structural pass. Structural findings (orphaned
// references, duplicate IDs) are collected as advisories so the caller
// can present a complete list. Errors never escape as panics; every
// outcome is a typed Result.
func Validate(artifact []byte) *Result {
	s, err := decode(artifact)
	if err != nil {
		return failure(KindMalformedFormat, "The backup file is not in a valid JSON format.")
	}

	if !versionSupported(s.SchemaVersion) {
		return failure(KindVersionIncompatible,
			fmt.Sprintf("Backup version %q is not supported by this app.", s.SchemaVersion))
	}

	var warnings []Finding

	if s.Metadata.Checksum == "" {
		// Legacy artifacts carry no checksum. Unverifiable is not the
		// same as corrupt: proceed, but tell the user.
		warnings = append(warnings, Finding{
			Kind:    KindChecksumMissing,
			Message: "This backup has no checksum; its integrity cannot be verified.",
		})
	} else {
		computed, err := Fingerprint(&s.Body)
		if err != nil {
			return failure(KindMalformedFormat, "The backup file is not in a valid JSON format.")
		}
		if computed != s.Metadata.Checksum {
			return failure(KindChecksumMismatch,
				"Backup checksum validation failed. The file may be corrupt or altered.")
		}
	}

	warnings = append(warnings, structuralFindings(&s.Body)...)

	return &Result{OK: true, Snapshot: s, Warnings: warnings}
}

// versionSupported gates on the major version. "1" is the legacy
// format (checksum optional); "2" is current. An empty version is
// treated as legacy, matching artifacts written before the field
// existed.
func versionSupported(version string) bool {
	if version == "" {
		return true
	}
	major, _, _ := strings.Cut(version, ".")
	return major == "1" || major == "2"
}

// structuralFindings runs the referential pass: every bill and payment
// must reference an existing customer, and IDs within a collection must
// be unique. All findings are advisory.
func structuralFindings(body *Body) []Finding {
	var findings []Finding

	customerIDs := make(map[string]bool, len(body.Customers))
	for _, c := range body.Customers {
		if customerIDs[c.ID] {
			findings = append(findings, Finding{
				Kind:    KindDuplicateID,
				Message: fmt.Sprintf("duplicate customer ID %q", c.ID),
			})
		}
		customerIDs[c.ID] = true
	}

	billIDs := make(map[string]bool, len(body.Bills))
	for _, b := range body.Bills {
		if billIDs[b.ID] {
			findings = append(findings, Finding{
				Kind:    KindDuplicateID,
				Message: fmt.Sprintf("duplicate bill ID %q", b.ID),
			})
		}
		billIDs[b.ID] = true

		if !customerIDs[b.CustomerID] {
			findings = append(findings, Finding{
				Kind:    KindOrphanedReference,
				Message: fmt.Sprintf("bill %q references unknown customer %q", b.ID, b.CustomerID),
			})
		}
	}

	paymentIDs := make(map[string]bool, len(body.Payments))
	for _, p := range body.Payments {
		if paymentIDs[p.ID] {
			findings = append(findings, Finding{
				Kind:    KindDuplicateID,
				Message: fmt.Sprintf("duplicate payment ID %q", p.ID),
			})
		}
		paymentIDs[p.ID] = true

		if !customerIDs[p.CustomerID] {
			findings = append(findings, Finding{
				Kind:    KindOrphanedReference,
				Message: fmt.Sprintf("payment %q references unknown customer %q", p.ID, p.CustomerID),
			})
		}
	}

	return findings
}
