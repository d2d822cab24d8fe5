package security

import (
	"testing"

	"golang.org/x/crypto/bcrypt"
)

func TestHasher_HashAndCompare(t *testing.T) {
	h := NewHasher(bcrypt.MinCost)
	hash, err := h.Hash([]byte("Correct-Horse-9"))
	if err != nil {
		t.Fatalf("Hash: %v", err)
	}
	if hash == "Correct-Horse-9" {
		t.Fatal("hash equals plaintext")
	}
	if err := h.Compare(hash, []byte("Correct-Horse-9")); err != nil {
		t.Errorf("Compare matching: %v", err)
	}
	if err := h.Compare(hash, []byte("wrong")); err == nil {
		t.Error("Compare with wrong password should fail")
	}
}

func TestNewHasher_ClampsCost(t *testing.T) {
	testCases := []struct {
		in, want int
	}{
		{0, bcrypt.DefaultCost},
		{-3, bcrypt.DefaultCost},
		{2, bcrypt.MinCost},
		{12, 12},
		{99, bcrypt.MaxCost},
	}
	for _, tc := range testCases {
		if got := NewHasher(tc.in).Cost; got != tc.want {
			t.Errorf("NewHasher(%d).Cost = %d, want %d", tc.in, got, tc.want)
		}
	}
}
