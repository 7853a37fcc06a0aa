package version

import (
	"testing"
)

func TestParse(t *testing.T) {
	tests := []struct {
		in      string
		want    FormatVersion
		wantErr bool
	}{
		{"1.0", FormatVersion{1, 0}, false},
		{"2.13", FormatVersion{2, 13}, false},
		{"1", FormatVersion{}, true},
		{"1.0.0", FormatVersion{}, true},
		{".1", FormatVersion{}, true},
		{"a.b", FormatVersion{}, true},
		{"1.", FormatVersion{}, true},
		{"70000.0", FormatVersion{}, true},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := Parse(tt.in)
			if (err != nil) != tt.wantErr {
				t.Fatalf("Parse(%q) error = %v, wantErr %v", tt.in, err, tt.wantErr)
			}
			if got != tt.want {
				t.Errorf("Parse(%q) = %v, want %v", tt.in, got, tt.want)
			}
			if !tt.wantErr && got.String() != tt.in {
				t.Errorf("String() = %q, want %q", got.String(), tt.in)
			}
		})
	}
}

func TestReadable(t *testing.T) {
	if err := Readable(Current); err != nil {
		t.Errorf("Readable(Current) = %v", err)
	}
	if err := Readable("1.7"); err != nil {
		t.Errorf("minor versions should stay readable: %v", err)
	}
	if err := Readable("2.0"); err == nil {
		t.Error("Readable(2.0) should fail")
	}
	if err := Readable("garbage"); err == nil {
		t.Error("Readable(garbage) should fail")
	}
}
