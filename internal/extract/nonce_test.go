package extract

import (
	"errors"
	"strings"
	"testing"

	"hibiki/internal/media"
)

func TestExtractNonce(t *testing.T) {
	run48 := strings.Repeat("a1B2", 12)

	tests := []struct {
		name    string
		body    string
		want    string
		wantErr bool
	}{
		{
			name: "single 48-char run",
			body: "<html><script>window._n = \"" + run48 + "\";</script></html>",
			want: run48,
		},
		{
			name: "three 16-char runs concatenated in document order",
			body: "<div data-a=\"Aaaa1111Bbbb2222\"></div>\n" +
				"<p>some unrelated text</p>\n" +
				"<div data-b=\"Cccc3333Dddd4444\"></div>\n" +
				"<div data-c=\"Eeee5555Ffff6666\"></div>",
			want: "Aaaa1111Bbbb2222Cccc3333Dddd4444Eeee5555Ffff6666",
		},
		{
			name: "48-char run wins over 16-char runs",
			body: "Aaaa1111Bbbb2222 " + run48 + " Cccc3333Dddd4444",
			want: run48,
		},
		{
			name:    "neither pattern present",
			body:    "<html><body>short tokens only abc123</body></html>",
			wantErr: true,
		},
		{
			name:    "only two 16-char runs",
			body:    "Aaaa1111Bbbb2222 and Cccc3333Dddd4444",
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := extractNonce(tt.body)
			if tt.wantErr {
				if err == nil {
					t.Fatalf("extractNonce() = %q, want error", got)
				}
				if !errors.Is(err, media.ErrExtraction) {
					t.Errorf("error %v is not media.ErrExtraction", err)
				}
				return
			}
			if err != nil {
				t.Fatalf("extractNonce() error = %v", err)
			}
			if got != tt.want {
				t.Errorf("extractNonce() = %q, want %q", got, tt.want)
			}
		})
	}
}
