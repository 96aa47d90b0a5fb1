package secrets

import (
	"errors"
	"strings"
	"testing"
)

const testSecret = "correct-horse-battery-staple"

func TestNewSealer(t *testing.T) {
	tests := []struct {
		name    string
		secret  string
		wantErr bool
	}{
		{name: "valid", secret: testSecret},
		{name: "exactly minimum", secret: strings.Repeat("x", MinSecretLength)},
		{name: "too short", secret: "short", wantErr: true},
		{name: "empty", secret: "", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewSealer(tt.secret)
			if tt.wantErr {
				if !errors.Is(err, ErrInvalidSecret) {
					t.Errorf("NewSealer() error = %v, want ErrInvalidSecret", err)
				}
				return
			}
			if err != nil {
				t.Errorf("NewSealer() unexpected error: %v", err)
			}
		})
	}
}

func TestSealer_RoundTrip(t *testing.T) {
	s, err := NewSealer(testSecret)
	if err != nil {
		t.Fatalf("NewSealer() error = %v", err)
	}

	sealed, err := s.Seal("sk-live-1234567890")
	if err != nil {
		t.Fatalf("Seal() error = %v", err)
	}
	if strings.Contains(sealed, "1234567890") {
		t.Error("sealed value contains the plaintext")
	}

	again, _ := s.Seal("sk-live-1234567890")
	if again == sealed {
		t.Error("two seals of the same plaintext are identical")
	}

	// A sealer built from the same secret opens it, as after a restart
	restarted, _ := NewSealer(testSecret)
	opened, err := restarted.Open(sealed)
	if err != nil {
		t.Fatalf("Open() error = %v", err)
	}
	if opened != "sk-live-1234567890" {
		t.Errorf("Open() = %q", opened)
	}
}

func TestSealer_OpenRejects(t *testing.T) {
	s, _ := NewSealer(testSecret)
	other, _ := NewSealer("a-completely-different-secret")
	sealed, _ := s.Seal("sk-test")

	tampered := []byte(sealed)
	tampered[len(tampered)-2] ^= 0x01

	tests := []struct {
		name   string
		sealer *Sealer
		input  string
	}{
		{name: "wrong key", sealer: other, input: sealed},
		{name: "tampered", sealer: s, input: string(tampered)},
		{name: "no prefix", sealer: s, input: "plain-text-key"},
		{name: "bad base64", sealer: s, input: "v1:!!!"},
		{name: "too short", sealer: s, input: "v1:AAAA"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := tt.sealer.Open(tt.input); !errors.Is(err, ErrInvalidCiphertext) {
				t.Errorf("Open() error = %v, want ErrInvalidCiphertext", err)
			}
		})
	}
}

func TestMask(t *testing.T) {
	tests := []struct {
		input string
		want  string
	}{
		{input: "sk-abcdef123456", want: "...3456"},
		{input: "abcd", want: "****"},
		{input: "", want: ""},
	}
	for _, tt := range tests {
		if got := Mask(tt.input); got != tt.want {
			t.Errorf("Mask(%q) = %q, want %q", tt.input, got, tt.want)
		}
	}
}
