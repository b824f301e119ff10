package shell

import (
	"errors"
	"slices"
	"testing"
)

func TestTokenize(t *testing.T) {
	tests := []struct {
		name       string
		line       string
		want       []string
		background bool
		wantErr    error
	}{
		{name: "empty", line: "", want: nil},
		{name: "blank", line: "   \t", want: nil},
		{name: "single word", line: "ls", want: []string{"ls"}},
		{name: "arguments", line: "ls -l /tmp", want: []string{"ls", "-l", "/tmp"}},
		{name: "extra spacing", line: "  echo   a  b ", want: []string{"echo", "a", "b"}},
		{name: "single quotes", line: "echo 'a b'", want: []string{"echo", "a b"}},
		{name: "double quotes", line: `echo "a b" c`, want: []string{"echo", "a b", "c"}},
		{name: "background word", line: "sleep 10 &", want: []string{"sleep", "10"}, background: true},
		{name: "background glued", line: "sleep 10&", want: []string{"sleep", "10"}, background: true},
		{name: "background trailing space", line: "sleep 10 &  ", want: []string{"sleep", "10"}, background: true},
		{name: "quoted ampersand", line: "echo '&'", want: []string{"echo", "&"}},
		{name: "bare ampersand", line: "&", wantErr: ErrBareAmpersand},
		{name: "bare ampersand spaced", line: "  &  ", wantErr: ErrBareAmpersand},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, background, err := Tokenize(tt.line)
			if tt.wantErr != nil {
				if !errors.Is(err, tt.wantErr) {
					t.Fatalf("Tokenize(%q) error = %v, want %v", tt.line, err, tt.wantErr)
				}
				return
			}
			if err != nil {
				t.Fatalf("Tokenize(%q) unexpected error: %v", tt.line, err)
			}
			if !slices.Equal(got, tt.want) {
				t.Errorf("Tokenize(%q) = %q, want %q", tt.line, got, tt.want)
			}
			if background != tt.background {
				t.Errorf("Tokenize(%q) background = %v, want %v", tt.line, background, tt.background)
			}
		})
	}
}
