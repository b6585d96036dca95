package constants

import "testing"

func TestHint_Valid(t *testing.T) {
	tests := []struct {
		name string
		hint Hint
		want bool
	}{
		{
			name: "truth is valid",
			hint: HintTruth,
			want: true,
		},
		{
			name: "grating is valid",
			hint: HintGrating,
			want: true,
		},
		{
			name: "degree is valid",
			hint: HintDegree,
			want: true,
		},
		{
			name: "empty string is invalid",
			hint: Hint(""),
			want: false,
		},
		{
			name: "arbitrary string is invalid",
			hint: Hint("answer"),
			want: false,
		},
		{
			name: "TRUTH uppercase is invalid",
			hint: Hint("TRUTH"),
			want: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.hint.Valid(); got != tt.want {
				t.Errorf("Hint.Valid() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestHint_String(t *testing.T) {
	tests := []struct {
		name string
		hint Hint
		want string
	}{
		{name: "truth", hint: HintTruth, want: "truth"},
		{name: "grating", hint: HintGrating, want: "grating"},
		{name: "degree", hint: HintDegree, want: "degree"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.hint.String(); got != tt.want {
				t.Errorf("Hint.String() = %v, want %v", got, tt.want)
			}
		})
	}
}
