package security

import (
	"crypto/ecdsa"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func TestLoadPEM(t *testing.T) {
	path := filepath.Join(t.TempDir(), "key.pem")
	if err := os.WriteFile(path, []byte(testPrivateKeyPEM), 0o600); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}
	escaped := strings.ReplaceAll(testPublicKeyPEM, "\n", `\n`)

	testCases := []struct {
		name  string
		input string
		want  string
	}{
		{"inline", testPrivateKeyPEM, testPrivateKeyPEM},
		{"escaped newlines", escaped, testPublicKeyPEM},
		{"file path", path, testPrivateKeyPEM},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			got, err := LoadPEM(tc.input)
			if err != nil {
				t.Fatalf("LoadPEM: %v", err)
			}
			if string(got) != tc.want {
				t.Errorf("LoadPEM = %q", got)
			}
		})
	}

	if _, err := LoadPEM("   "); !errors.Is(err, ErrInvalidKey) {
		t.Errorf("LoadPEM blank err = %v, want ErrInvalidKey", err)
	}
	if _, err := LoadPEM(filepath.Join(t.TempDir(), "missing.pem")); err == nil {
		t.Error("LoadPEM missing file should fail")
	}
}

func TestParseKeys_Invalid(t *testing.T) {
	bogus := "-----BEGIN CERTIFICATE-----\nAAAA\n-----END CERTIFICATE-----"
	if _, err := ParsePrivateKey(bogus); err == nil {
		t.Error("ParsePrivateKey with certificate block should fail")
	}
	if _, err := ParsePublicKey(bogus); err == nil {
		t.Error("ParsePublicKey with certificate block should fail")
	}
	if _, err := ParsePrivateKey("-----BEGIN garbage"); !errors.Is(err, ErrInvalidKey) {
		t.Errorf("ParsePrivateKey garbage err = %v, want ErrInvalidKey", err)
	}
}

func TestLoadKeyPair_Configured(t *testing.T) {
	signer, pub, ephemeral, err := LoadKeyPair(testPrivateKeyPEM, testPublicKeyPEM)
	if err != nil {
		t.Fatalf("LoadKeyPair: %v", err)
	}
	if ephemeral {
		t.Error("configured pair reported as ephemeral")
	}
	if KeyAlg(pub) != "RS256" || KeyAlg(signer.Public()) != "RS256" {
		t.Errorf("KeyAlg = %q / %q, want RS256", KeyAlg(pub), KeyAlg(signer.Public()))
	}

	_, pub, _, err = LoadKeyPair(testPrivateKeyPEM, "")
	if err != nil {
		t.Fatalf("LoadKeyPair without public key: %v", err)
	}
	if KeyAlg(pub) != "RS256" {
		t.Errorf("derived public key alg = %q", KeyAlg(pub))
	}
}

func TestLoadKeyPair_Ephemeral(t *testing.T) {
	signer, pub, ephemeral, err := LoadKeyPair("", "")
	if err != nil {
		t.Fatalf("LoadKeyPair: %v", err)
	}
	if !ephemeral {
		t.Error("expected ephemeral pair")
	}
	if _, ok := pub.(*ecdsa.PublicKey); !ok {
		t.Fatalf("pub = %T, want *ecdsa.PublicKey", pub)
	}

	p := NewTokenProvider(signer, pub, "iss", "aud", time.Minute, time.Hour)
	tok, _, _, err := p.IssueAccess("g1", "u1", "")
	if err != nil {
		t.Fatalf("IssueAccess ES256: %v", err)
	}
	if _, err := p.ValidateAccess(tok); err != nil {
		t.Errorf("ValidateAccess ES256: %v", err)
	}
}

func TestKeyAlg_Unknown(t *testing.T) {
	if got := KeyAlg("not a key"); got != "" {
		t.Errorf("KeyAlg = %q, want empty", got)
	}
}
