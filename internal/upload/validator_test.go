// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package upload

import (
	"errors"
	"testing"
)

func pdfCandidate(name string, size int64) Candidate {
	return Candidate{Filename: name, Size: size, Header: []byte("%PDF-")}
}

// =============================================================================
// EXTENSION TESTS
// =============================================================================

func TestValidate_Extension(t *testing.T) {
	tests := []struct {
		name    string
		file    string
		path    Path
		wantErr error
	}{
		{"pdf on sidebar", "report.pdf", PathSidebar, nil},
		{"csv on sidebar rejected", "data.csv", PathSidebar, ErrBadExtension},
		{"pdf as attachment", "report.pdf", PathAttachment, nil},
		{"csv as attachment", "data.csv", PathAttachment, nil},
		{"exe rejected", "evil.exe", PathAttachment, ErrBadExtension},
		{"no extension rejected", "notes", PathAttachment, ErrBadExtension},
		{"uppercase extension accepted", "REPORT.PDF", PathSidebar, nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := pdfCandidate(tt.file, 1024)
			err := Validate(c, tt.path)
			if tt.wantErr == nil {
				if err != nil {
					t.Errorf("Validate(%q) = %v, want nil", tt.file, err)
				}
			} else if !errors.Is(err, tt.wantErr) {
				t.Errorf("Validate(%q) = %v, want %v", tt.file, err, tt.wantErr)
			}
		})
	}
}

// =============================================================================
// SIZE TESTS
// =============================================================================

func TestValidate_SizeBoundary(t *testing.T) {
	// Exactly at the limit passes; one byte over fails.
	if err := Validate(pdfCandidate("x.pdf", MaxPDFBytes), PathSidebar); err != nil {
		t.Errorf("PDF at exactly 5 MB should pass, got %v", err)
	}
	err := Validate(pdfCandidate("x.pdf", MaxPDFBytes+1), PathSidebar)
	if !errors.Is(err, ErrTooLarge) {
		t.Errorf("PDF at 5 MB + 1 byte = %v, want ErrTooLarge", err)
	}

	csv := Candidate{Filename: "x.csv", Size: MaxCSVBytes}
	if err := Validate(csv, PathAttachment); err != nil {
		t.Errorf("CSV at exactly 2 MB should pass, got %v", err)
	}
	csv.Size = MaxCSVBytes + 1
	if err := Validate(csv, PathAttachment); !errors.Is(err, ErrTooLarge) {
		t.Errorf("CSV at 2 MB + 1 byte = %v, want ErrTooLarge", err)
	}
}

func TestValidate_SixMegabytePDF(t *testing.T) {
	err := Validate(pdfCandidate("x.pdf", 6*1024*1024), PathSidebar)
	if !errors.Is(err, ErrTooLarge) {
		t.Errorf("6 MB x.pdf = %v, want ErrTooLarge", err)
	}
}

// =============================================================================
// MAGIC NUMBER TESTS
// =============================================================================

func TestValidate_PDFMagic(t *testing.T) {
	tests := []struct {
		name    string
		header  []byte
		wantErr error
	}{
		{"valid header", []byte("%PDF-1.7\n"), nil},
		{"wrong header", []byte("HELLO"), ErrBadMagic},
		{"truncated header", []byte("%PD"), ErrBadMagic},
		{"empty header", nil, ErrBadMagic},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := Candidate{Filename: "x.pdf", Size: 1024, Header: tt.header}
			err := Validate(c, PathSidebar)
			if tt.wantErr == nil {
				if err != nil {
					t.Errorf("Validate = %v, want nil", err)
				}
			} else if !errors.Is(err, tt.wantErr) {
				t.Errorf("Validate = %v, want %v", err, tt.wantErr)
			}
		})
	}
}

func TestValidate_CSVSkipsMagicCheck(t *testing.T) {
	// CSV has no magic number; header contents are irrelevant.
	c := Candidate{Filename: "data.csv", Size: 10, Header: []byte("a,b,c")}
	if err := Validate(c, PathAttachment); err != nil {
		t.Errorf("CSV with arbitrary header = %v, want nil", err)
	}
}

// =============================================================================
// ORDERING TESTS
// =============================================================================

func TestValidate_ChecksShortCircuit(t *testing.T) {
	// A file failing both extension and size reports the extension error:
	// checks run in order and stop at the first failure.
	c := Candidate{Filename: "huge.exe", Size: 100 * 1024 * 1024}
	err := Validate(c, PathAttachment)
	if !errors.Is(err, ErrBadExtension) {
		t.Errorf("Validate = %v, want ErrBadExtension first", err)
	}

	// Oversize PDF with a bad header reports the size error before magic.
	c = Candidate{Filename: "x.pdf", Size: MaxPDFBytes + 1, Header: []byte("XXXXX")}
	err = Validate(c, PathSidebar)
	if !errors.Is(err, ErrTooLarge) {
		t.Errorf("Validate = %v, want ErrTooLarge before ErrBadMagic", err)
	}
}
