package errors

import "testing"

func TestValidateCommand(t *testing.T) {
	tests := []struct {
		name    string
		cmd     string
		wantErr bool
	}{
		{"plain", "agfj", false},
		{"with arg", "agCj @ main", false},
		{"empty", "", true},
		{"blank", "   ", true},
		{"separator", "agfj; rm -rf /", true},
		{"pipe", "agfj | less", true},
		{"backtick", "agfj `pwd`", true},
		{"redirect", "agfj > /tmp/x", true},
		{"shell", "!ls", true},
		{"newline", "agfj\nq", true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateCommand(tt.cmd)
			if (err != nil) != tt.wantErr {
				t.Errorf("ValidateCommand(%q) error = %v, wantErr %v", tt.cmd, err, tt.wantErr)
			}
			if err != nil && !Is(err, ErrCodeInvalidCommand) {
				t.Errorf("ValidateCommand(%q) code = %v, want %v", tt.cmd, GetCode(err), ErrCodeInvalidCommand)
			}
		})
	}
}

func TestValidateOutputPath(t *testing.T) {
	tests := []struct {
		name    string
		path    string
		wantErr bool
	}{
		{"relative file", "out/graph.png", false},
		{"absolute file", "/tmp/graph.svg", false},
		{"empty", "", true},
		{"directory", "out/", true},
		{"traversal", "../graph.png", true},
		{"null byte", "graph\x00.png", true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateOutputPath(tt.path)
			if (err != nil) != tt.wantErr {
				t.Errorf("ValidateOutputPath(%q) error = %v, wantErr %v", tt.path, err, tt.wantErr)
			}
		})
	}
}

func TestValidateAddress(t *testing.T) {
	for _, ok := range []string{"0x401000", "0XDEADBEEF", "4198400"} {
		if err := ValidateAddress(ok); err != nil {
			t.Errorf("ValidateAddress(%q) = %v, want nil", ok, err)
		}
	}
	for _, bad := range []string{"", "main", "0x", "0x1234567890abcdef0", "12ab"} {
		if err := ValidateAddress(bad); err == nil {
			t.Errorf("ValidateAddress(%q) = nil, want error", bad)
		}
	}
}
