package model

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestVersion_Status(t *testing.T) {
	t.Parallel()

	hash := "abc"
	tests := []struct {
		name    string
		version Version
		want    VersionStatus
		draft   bool
	}{
		{"draft", Version{}, VersionStatusDraft, true},
		{"finalized", Version{SrcHash: &hash}, VersionStatusFinalized, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tt.want, tt.version.Status())
			assert.Equal(t, tt.draft, tt.version.IsDraft())
		})
	}
}

func TestParseVersionStatus(t *testing.T) {
	t.Parallel()

	s, ok := ParseVersionStatus("draft")
	assert.True(t, ok)
	assert.Equal(t, VersionStatusDraft, s)

	s, ok = ParseVersionStatus("finalized")
	assert.True(t, ok)
	assert.Equal(t, VersionStatusFinalized, s)

	_, ok = ParseVersionStatus("archived")
	assert.False(t, ok)
}

func TestSnapshot_ActiveOptionCount(t *testing.T) {
	t.Parallel()

	s := Snapshot{Options: []VersionOption{
		{OptCode: "Y", IsActive: true},
		{OptCode: "N", IsActive: false},
		{OptCode: "M", IsActive: true},
	}}
	assert.Equal(t, 2, s.ActiveOptionCount())
}
