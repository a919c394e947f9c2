package services

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSanitizeFilename(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{"plain", "photo.jpg", "photo.jpg"},
		{"spaces collapsed", "my holiday photo.jpg", "my_holiday_photo.jpg"},
		{"path separators", "../../etc/passwd", ".._.._etc_passwd"},
		{"unicode replaced", "фото☂.png", "_.png"},
		{"run collapse", "a///***b.pdf", "a_b.pdf"},
		{"kept charset", "Report_2025-06.v2.pdf", "Report_2025-06.v2.pdf"},
		{"empty", "", "file"},
		{"all stripped", "☂☂☂", "_"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, SanitizeFilename(tt.in))
		})
	}
}
