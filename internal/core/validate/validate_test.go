package validate

import (
	"testing"

	"github.com/hay-kot/criterio"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTitle(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		wantErr bool
	}{
		{"valid title", "Write report", false},
		{"single word", "gym", false},
		{"empty string", "", true},
		{"only spaces", "   ", true},
		{"only tabs", "\t\t", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := Title(tt.input)
			assert.Equal(t, tt.wantErr, err != nil, "Title(%q) error = %v, wantErr %v", tt.input, err, tt.wantErr)
		})
	}
}

func TestChunkID(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		wantErr bool
	}{
		{"valid alphanumeric", "abc123", false},
		{"valid letters only", "abcdef", false},
		{"valid numbers only", "123456", false},
		{"empty string", "", true},
		{"with spaces", "abc 123", true},
		{"with hyphen", "abc-123", true},
		{"uppercase letters", "ABC123", true},
		{"unicode", "abc日本", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ChunkID(tt.input)
			assert.Equal(t, tt.wantErr, err != nil, "ChunkID(%q) error = %v, wantErr %v", tt.input, err, tt.wantErr)
		})
	}
}

func TestDate(t *testing.T) {
	assert.NoError(t, Date(""))
	assert.NoError(t, Date("2025-01-06"))
	assert.Error(t, Date("06/01/2025"))
	assert.Error(t, Date("2025-02-30"))
}

func TestFieldValidators(t *testing.T) {
	err := criterio.ValidateStruct(
		TitleField("title", ""),
		ChunkIDField("chunk", "ok1"),
		DateField("date", "tomorrow"),
	)

	var fieldErrs criterio.FieldErrors
	require.ErrorAs(t, err, &fieldErrs)

	fields := make([]string, 0, len(fieldErrs))
	for _, e := range fieldErrs {
		fields = append(fields, e.Field)
	}
	assert.ElementsMatch(t, []string{"title", "date"}, fields)
}
