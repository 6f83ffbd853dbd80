package ffmpeg

import "testing"

func TestParseLogLevel(t *testing.T) {
	tests := []struct {
		line      string
		wantLevel string
		wantMsg   string
	}{
		{"[info] frame= 100 fps= 30", "info", "frame= 100 fps= 30"},
		{"[error] Device busy", "error", "Device busy"},
		{"[libx264 @ 0x55] [warning] VBV underflow", "warning", "[libx264 @ 0x55] VBV underflow"},
		{"[libx264 @ 0x55] using cpu capabilities", "info", "[libx264 @ 0x55] using cpu capabilities"},
		{"plain output line", "info", "plain output line"},
		{"", "info", ""},
	}

	for _, tt := range tests {
		level, msg := ParseLogLevel(tt.line)
		if level != tt.wantLevel || msg != tt.wantMsg {
			t.Errorf("ParseLogLevel(%q) = (%q, %q), want (%q, %q)",
				tt.line, level, msg, tt.wantLevel, tt.wantMsg)
		}
	}
}
