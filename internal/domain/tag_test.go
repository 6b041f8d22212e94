package domain

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTagValidate(t *testing.T) {
	tests := []struct {
		name    string
		tag     *Tag
		wantErr bool
	}{
		{
			name: "valid tag",
			tag:  NewTag("physics", "Physics questions", "#33aa55", ""),
		},
		{
			name: "valid without color",
			tag:  NewTag("physics", "", "", ""),
		},
		{
			name:    "empty name",
			tag:     NewTag("", "", "", ""),
			wantErr: true,
		},
		{
			name:    "name too long",
			tag:     NewTag(strings.Repeat("a", 21), "", "", ""),
			wantErr: true,
		},
		{
			name: "name at limit",
			tag:  NewTag(strings.Repeat("a", 20), "", "", ""),
		},
		{
			name:    "name with spaces",
			tag:     NewTag("two words", "", "", ""),
			wantErr: true,
		},
		{
			name: "name with underscore and dash",
			tag:  NewTag("quantum_mechanics-1", "", "", ""),
		},
		{
			name:    "description too long",
			tag:     NewTag("physics", strings.Repeat("d", 101), "", ""),
			wantErr: true,
		},
		{
			name:    "bad color",
			tag:     NewTag("physics", "", "green", ""),
			wantErr: true,
		},
		{
			name:    "short hex color",
			tag:     NewTag("physics", "", "#abc", ""),
			wantErr: true,
		},
		{
			name:    "invalid alias",
			tag:     withAliases(NewTag("physics", "", "", ""), "has space"),
			wantErr: true,
		},
		{
			name: "valid aliases",
			tag:  withAliases(NewTag("physics", "", "", ""), "mechanics", "newton"),
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.tag.Validate()
			if tt.wantErr {
				assert.Error(t, err)
				assert.True(t, IsCode(err, ErrValidation))
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func withAliases(tag *Tag, aliases ...string) *Tag {
	for _, a := range aliases {
		tag.Aliases = append(tag.Aliases, a)
	}
	return tag
}

func TestTagAliases(t *testing.T) {
	tag := NewTag("physics", "", "", "")

	tag.AddAlias("mechanics")
	tag.AddAlias("Mechanics")
	tag.AddAlias("mechanics")
	assert.Equal(t, []string{"mechanics"}, tag.Aliases)

	assert.True(t, tag.HasAlias("MECHANICS"))
	assert.False(t, tag.HasAlias("optics"))
}

func TestTagMarkUsed(t *testing.T) {
	tag := NewTag("physics", "", "", "")
	require.Nil(t, tag.LastUsed)

	now := time.Now()
	tag.MarkUsed(now)
	tag.MarkUsed(now.Add(time.Minute))

	assert.Equal(t, 2, tag.UsageCount)
	require.NotNil(t, tag.LastUsed)
	assert.Equal(t, now.Add(time.Minute), *tag.LastUsed)
}

func TestTagClone(t *testing.T) {
	tag := NewTag("physics", "Physics", "#33aa55", "parent-1")
	tag.AddAlias("mechanics")
	now := time.Now()
	tag.MarkUsed(now)

	clone := tag.Clone()
	clone.Aliases[0] = "changed"
	*clone.LastUsed = now.Add(time.Hour)

	assert.Equal(t, "mechanics", tag.Aliases[0])
	assert.Equal(t, now, *tag.LastUsed)
}
