package runtime

import "testing"

func TestParseMemory(t *testing.T) {
	tests := []struct {
		in      string
		want    int64
		wantErr bool
	}{
		{"512M", 512 << 20, false},
		{"512m", 512 << 20, false},
		{"1G", 1 << 30, false},
		{"1.5g", 3 << 29, false},
		{"2048K", 2 << 20, false},
		{"100B", 100, false},
		{" 1G ", 1 << 30, false},
		{"", 0, true},
		{"512", 0, true},
		{"512MB", 0, true},
		{"1T", 0, true},
		{"-1G", 0, true},
		{"0M", 0, true},
		{"lots", 0, true},
		{"8589934591G", 8589934591 << 30, false},
		{"9000000000G", 0, true},
		{"20000000000G", 0, true},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseMemory(tt.in)
			if (err != nil) != tt.wantErr {
				t.Fatalf("ParseMemory(%q) error = %v, wantErr %v", tt.in, err, tt.wantErr)
			}
			if got != tt.want {
				t.Errorf("ParseMemory(%q) = %d, want %d", tt.in, got, tt.want)
			}
		})
	}
}

func TestParseCPUs(t *testing.T) {
	tests := []struct {
		in      string
		want    float64
		wantErr bool
	}{
		{"0.5", 0.5, false},
		{"2", 2, false},
		{"0", 0, true},
		{"-1", 0, true},
		{"two", 0, true},
		{"NaN", 0, true},
		{"+Inf", 0, true},
		{"", 0, true},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseCPUs(tt.in)
			if (err != nil) != tt.wantErr {
				t.Fatalf("ParseCPUs(%q) error = %v, wantErr %v", tt.in, err, tt.wantErr)
			}
			if got != tt.want {
				t.Errorf("ParseCPUs(%q) = %v, want %v", tt.in, got, tt.want)
			}
		})
	}
}

func TestFormatMemory(t *testing.T) {
	tests := []struct {
		bytes int64
		want  string
	}{
		{0, "unlimited"},
		{512 << 20, "512 MiB"},
		{1 << 30, "1.0 GiB"},
	}

	for _, tt := range tests {
		if got := FormatMemory(tt.bytes); got != tt.want {
			t.Errorf("FormatMemory(%d) = %q, want %q", tt.bytes, got, tt.want)
		}
	}
}

func TestFormatCPUs(t *testing.T) {
	tests := []struct {
		nano int64
		want string
	}{
		{0, "unlimited"},
		{500000000, "0.5"},
		{2000000000, "2"},
	}

	for _, tt := range tests {
		if got := FormatCPUs(tt.nano); got != tt.want {
			t.Errorf("FormatCPUs(%d) = %q, want %q", tt.nano, got, tt.want)
		}
	}
}
