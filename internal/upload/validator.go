// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package upload validates candidate files before any network round-trip.
package upload

import (
	"bytes"
	"errors"
	"fmt"
	"path/filepath"
	"strings"
)

// =============================================================================
// LIMITS
// =============================================================================

// Size ceilings per file kind. The limit itself passes; limit+1 fails.
const (
	MaxPDFBytes = 5 * 1024 * 1024
	MaxCSVBytes = 2 * 1024 * 1024
)

// pdfMagic is the required header of a well-formed PDF file.
var pdfMagic = []byte("%PDF-")

// MagicLen is how many leading bytes a Candidate needs for the header
// check.
const MagicLen = 5

// =============================================================================
// ERRORS
// =============================================================================

// Validation errors. Each check failure yields a distinct user-facing
// message; use errors.Is to classify.
var (
	ErrBadExtension = errors.New("unsupported file type")
	ErrTooLarge     = errors.New("file exceeds the size limit")
	ErrBadMagic     = errors.New("file is not a valid PDF")
)

// =============================================================================
// CANDIDATE
// =============================================================================

// Candidate is a transient description of a file offered for upload. It is
// consumed once by Validate and never persisted.
type Candidate struct {
	Filename string
	Size     int64

	// Header holds the first few bytes of the file, used only for the
	// PDF magic-number check.
	Header []byte
}

// Kind returns the file kind implied by the candidate's extension, or ""
// if the extension is not recognized.
func (c Candidate) Kind() string {
	switch strings.ToLower(filepath.Ext(c.Filename)) {
	case ".pdf":
		return "pdf"
	case ".csv":
		return "csv"
	default:
		return ""
	}
}

// =============================================================================
// VALIDATOR
// =============================================================================

// Path selects which extension allow-list applies.
type Path int

const (
	// PathSidebar is the document sidebar upload path: PDF only.
	PathSidebar Path = iota

	// PathAttachment is the chat attachment path: PDF or CSV.
	PathAttachment
)

// Validate runs the ordered, short-circuiting checks on a candidate:
// extension allow-list, kind-specific size ceiling, then (PDF only) the
// %PDF- magic number. Passing all three is the only way a file reaches
// the network facade.
func Validate(c Candidate, path Path) error {
	kind := c.Kind()

	switch path {
	case PathSidebar:
		if kind != "pdf" {
			return fmt.Errorf("%w: only PDF files can be added to the knowledge base", ErrBadExtension)
		}
	case PathAttachment:
		if kind != "pdf" && kind != "csv" {
			return fmt.Errorf("%w: only PDF and CSV files can be attached", ErrBadExtension)
		}
	}

	switch kind {
	case "pdf":
		if c.Size > MaxPDFBytes {
			return fmt.Errorf("%w: PDF files must be 5 MB or smaller", ErrTooLarge)
		}
	case "csv":
		if c.Size > MaxCSVBytes {
			return fmt.Errorf("%w: CSV files must be 2 MB or smaller", ErrTooLarge)
		}
	}

	if kind == "pdf" {
		if len(c.Header) < MagicLen || !bytes.Equal(c.Header[:MagicLen], pdfMagic) {
			return fmt.Errorf("%w: the file does not start with a PDF header", ErrBadMagic)
		}
	}

	return nil
}
