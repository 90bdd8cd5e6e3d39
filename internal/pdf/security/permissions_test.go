package security

import (
	"testing"

	"github.com/stretchr/testify/assert"

	pdferrors "github.com/a3tai/mcp-pdf-merger/internal/pdf/errors"
)

func TestNewPermissions(t *testing.T) {
	tests := []struct {
		name     string
		perms    int32
		expected Permissions
	}{
		{
			name:     "everything",
			perms:    -1,
			expected: Permissions{true, true, true, true, true, true, true, true},
		},
		{
			name:     "print only",
			perms:    0xC0 | 0x04,
			expected: Permissions{Print: true},
		},
		{
			name:     "assemble and fill forms",
			perms:    0x800 | 0x200,
			expected: Permissions{FillForms: true, Assemble: true},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, NewPermissions(tt.perms))
		})
	}
}

func TestCheckMerge(t *testing.T) {
	tests := []struct {
		name    string
		perms   Permissions
		fields  bool
		wantErr bool
	}{
		{name: "full", perms: NewFullPermissions(), fields: true},
		{name: "modify covers assembly", perms: Permissions{Modify: true}},
		{name: "assemble without forms", perms: Permissions{Assemble: true}},
		{name: "assemble, fields requested", perms: Permissions{Assemble: true}, fields: true, wantErr: true},
		{name: "annotate covers forms", perms: Permissions{Assemble: true, Annotate: true}, fields: true},
		{name: "print only", perms: Permissions{Print: true}, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.perms.CheckMerge(tt.fields)
			if tt.wantErr {
				assert.True(t, pdferrors.IsType(err, pdferrors.ErrorTypeInvalidInput))
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestPermissionsString(t *testing.T) {
	assert.Equal(t, "No permissions granted", Permissions{}.String())
	assert.Equal(t, "Allowed: print, assemble", Permissions{Print: true, Assemble: true}.String())
	assert.Equal(t, []string{"copy", "extract"}, Permissions{
		Print: true, Modify: true, Annotate: true, FillForms: true, Assemble: true, PrintHighQuality: true,
	}.Denied())
}
