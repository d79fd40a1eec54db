package formatting_test

import (
	"testing"

	"github.com/JaimeStill/citygarden/pkg/formatting"
)

func TestParseBytes(t *testing.T) {
	tests := []struct {
		input   string
		want    int64
		wantErr bool
	}{
		{"512", 512, false},
		{"512B", 512, false},
		{"1KB", 1024, false},
		{"20MB", 20 << 20, false},
		{"20mb", 20 << 20, false},
		{"20 MiB", 20 << 20, false},
		{"1.5KB", 1536, false},
		{"2GB", 2 << 30, false},
		{"  4MB ", 4 << 20, false},
		{"0", 0, false},
		{"", 0, true},
		{"MB", 0, true},
		{"10XB", 0, true},
		{"-5MB", 0, true},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			got, err := formatting.ParseBytes(tt.input)
			if (err != nil) != tt.wantErr {
				t.Fatalf("ParseBytes(%q) error = %v, wantErr %v", tt.input, err, tt.wantErr)
			}
			if got != tt.want {
				t.Errorf("ParseBytes(%q) = %d, want %d", tt.input, got, tt.want)
			}
		})
	}
}

func TestFormatBytes(t *testing.T) {
	tests := []struct {
		n         int64
		precision int
		want      string
	}{
		{0, 1, "0 B"},
		{1023, 2, "1023 B"},
		{1024, 0, "1 KB"},
		{1536, 1, "1.5 KB"},
		{20 << 20, 0, "20 MB"},
		{3 << 30, -1, "3 GB"},
	}

	for _, tt := range tests {
		t.Run(tt.want, func(t *testing.T) {
			if got := formatting.FormatBytes(tt.n, tt.precision); got != tt.want {
				t.Errorf("FormatBytes(%d, %d) = %q, want %q", tt.n, tt.precision, got, tt.want)
			}
		})
	}
}
