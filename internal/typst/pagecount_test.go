package typst

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCountPages(t *testing.T) {
	tests := []struct {
		name string
		pdf  string
		want int
	}{
		{
			name: "single page",
			pdf:  "<< /Type /Pages /Count 1 >> << /Type /Page /Parent 2 0 R >>",
			want: 1,
		},
		{
			name: "three pages",
			pdf:  "<< /Type /Pages >> << /Type /Page >> << /Type /Page >> << /Type /Page >>",
			want: 3,
		},
		{
			name: "compact syntax",
			pdf:  "<</Type/Pages>> <</Type/Page>>",
			want: 1,
		},
		{
			name: "no pages",
			pdf:  "%PDF-1.7",
			want: 0,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, CountPages([]byte(tt.pdf)))
		})
	}
}
