package security

import (
	"fmt"
	"strings"

	pdferrors "github.com/a3tai/mcp-pdf-merger/internal/pdf/errors"
)

// Permissions represents the user access flags stored in the P entry of an
// encryption dictionary
type Permissions struct {
	Print            bool // Bit 3
	Modify           bool // Bit 4
	Copy             bool // Bit 5
	Annotate         bool // Bit 6
	FillForms        bool // Bit 9
	Extract          bool // Bit 10
	Assemble         bool // Bit 11
	PrintHighQuality bool // Bit 12
}

// NewPermissions decodes a PDF permissions integer
func NewPermissions(perms int32) Permissions {
	return Permissions{
		Print:            perms&0x04 != 0,
		Modify:           perms&0x08 != 0,
		Copy:             perms&0x10 != 0,
		Annotate:         perms&0x20 != 0,
		FillForms:        perms&0x200 != 0,
		Extract:          perms&0x400 != 0,
		Assemble:         perms&0x800 != 0,
		PrintHighQuality: perms&0x1000 != 0,
	}
}

// NewFullPermissions grants everything, as for an unencrypted document
func NewFullPermissions() Permissions {
	return NewPermissions(-1)
}

// CanAssemble reports whether pages may be taken into another document
func (p Permissions) CanAssemble() bool {
	return p.Modify || p.Assemble
}

// CanFillForms reports whether form fields may be carried over and changed
func (p Permissions) CanFillForms() bool {
	return p.Annotate || p.FillForms
}

// CheckMerge returns an error when the document may not be merged. With
// fields set, the form must also be editable.
func (p Permissions) CheckMerge(fields bool) error {
	if !p.CanAssemble() {
		return pdferrors.NewPDFErrorWithContext(pdferrors.ErrorTypeInvalidInput,
			"document permissions forbid assembly", p.String())
	}
	if fields && !p.CanFillForms() {
		return pdferrors.NewPDFErrorWithContext(pdferrors.ErrorTypeInvalidInput,
			"document permissions forbid form filling", p.String())
	}
	return nil
}

// Denied returns the names of the withheld permissions
func (p Permissions) Denied() []string {
	var denied []string
	for _, f := range p.flags() {
		if !f.granted {
			denied = append(denied, f.name)
		}
	}
	return denied
}

type flag struct {
	name    string
	granted bool
}

func (p Permissions) flags() []flag {
	return []flag{
		{"print", p.Print},
		{"modify", p.Modify},
		{"copy", p.Copy},
		{"annotate", p.Annotate},
		{"fill_forms", p.FillForms},
		{"extract", p.Extract},
		{"assemble", p.Assemble},
		{"print_high_quality", p.PrintHighQuality},
	}
}

// String returns a human-readable representation of the permissions
func (p Permissions) String() string {
	var parts []string
	for _, f := range p.flags() {
		if f.granted {
			parts = append(parts, f.name)
		}
	}
	if len(parts) == 0 {
		return "No permissions granted"
	}
	return fmt.Sprintf("Allowed: %s", strings.Join(parts, ", "))
}
