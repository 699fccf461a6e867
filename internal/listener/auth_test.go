package listener

import "testing"

func TestSanitizePhone(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"+7 (900) 123-45-67", "+79001234567"},
		{"  +1 555 0100 \n", "+15550100"},
		{"89001234567", "89001234567"},
		{"abc", ""},
		{"", ""},
	}

	for _, tt := range tests {
		if got := sanitizePhone(tt.in); got != tt.want {
			t.Errorf("sanitizePhone(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestMaskPhone(t *testing.T) {
	if got := maskPhone("+79001234567"); got != "**********67" {
		t.Errorf("maskPhone = %q", got)
	}

	if got := maskPhone("1"); got != "**" {
		t.Errorf("maskPhone short = %q", got)
	}
}
