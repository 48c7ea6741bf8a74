package qrtoken

import (
	"encoding/base64"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/lifeline-health/platform/pkg/common/models"
)

func newTestCodec(t *testing.T) *Codec {
	t.Helper()
	codec, err := New("emergency_healthcare_secret_key_2024", "emergency_salt_1234")
	if err != nil {
		t.Fatalf("failed to create codec: %v", err)
	}
	return codec
}

func testSummary() models.MedicalSummary {
	return models.MedicalSummary{
		BloodType:   "O+",
		Allergies:   []string{"Penicillin"},
		Conditions:  []string{},
		Medications: []string{},
		EmergencyContact: models.EmergencyContact{
			Name:         "Jane Doe",
			Phone:        "555-0100",
			Relationship: "Spouse",
		},
	}
}

func testLocation() models.Location {
	return models.Location{Lat: 40.7128, Lng: -74.0060, Address: "NYC"}
}

func TestIssueScanRoundTrip(t *testing.T) {
	codec := newTestCodec(t)

	result, err := codec.Issue("user-1", testSummary(), testLocation(), 0)
	if err != nil {
		t.Fatalf("issue failed: %v", err)
	}
	if !strings.HasPrefix(result.QRData, "EMERGENCY:EMG") {
		t.Fatalf("unexpected frame: %s", result.QRData)
	}
	if got, want := result.ExpiresAt.Sub(result.IssuedAt), DefaultTTL; got != want {
		t.Fatalf("expected ttl %v, got %v", want, got)
	}

	payload, err := codec.Scan(result.QRData)
	if err != nil {
		t.Fatalf("scan failed: %v", err)
	}
	if payload["emergency_id"] != result.EmergencyID {
		t.Fatalf("emergency_id mismatch: %v", payload["emergency_id"])
	}
	if payload["user_id"] != "user-1" {
		t.Fatalf("user_id mismatch: %v", payload["user_id"])
	}

	summary, ok := payload["medical_summary"].(map[string]interface{})
	if !ok {
		t.Fatalf("medical_summary missing: %v", payload)
	}
	if summary["blood_type"] != "O+" {
		t.Fatalf("blood_type mismatch: %v", summary["blood_type"])
	}
	allergies, ok := summary["allergies"].([]interface{})
	if !ok || len(allergies) != 1 || allergies[0] != "Penicillin" {
		t.Fatalf("allergies mismatch: %v", summary["allergies"])
	}
	contact, ok := summary["emergency_contact"].(map[string]interface{})
	if !ok || contact["name"] != "Jane Doe" || contact["phone"] != "555-0100" || contact["relationship"] != "Spouse" {
		t.Fatalf("emergency_contact mismatch: %v", summary["emergency_contact"])
	}

	location, ok := payload["location"].(map[string]interface{})
	if !ok || location["lat"] != 40.7128 || location["lng"] != -74.0060 || location["address"] != "NYC" {
		t.Fatalf("location mismatch: %v", payload["location"])
	}

	expiresAt, err := time.Parse(time.RFC3339, payload["expires_at"].(string))
	if err != nil {
		t.Fatalf("bad expires_at: %v", err)
	}
	if diff := expiresAt.Sub(result.IssuedAt.Add(2 * time.Hour)); diff < -time.Second || diff > time.Second {
		t.Fatalf("expires_at not ~2h after issue: %v", diff)
	}
}

func TestScanAcceptsBarePayload(t *testing.T) {
	codec := newTestCodec(t)

	result, err := codec.Issue("user-1", testSummary(), testLocation(), 0)
	if err != nil {
		t.Fatalf("issue failed: %v", err)
	}

	payload, err := codec.Scan(result.EncryptedPayload)
	if err != nil {
		t.Fatalf("scan of bare payload failed: %v", err)
	}
	if payload["emergency_id"] != result.EmergencyID {
		t.Fatalf("emergency_id mismatch: %v", payload["emergency_id"])
	}
}

func TestScanRejectsTamperedCiphertext(t *testing.T) {
	codec := newTestCodec(t)

	result, err := codec.Issue("user-1", testSummary(), testLocation(), 0)
	if err != nil {
		t.Fatalf("issue failed: %v", err)
	}

	raw, err := base64.URLEncoding.DecodeString(result.EncryptedPayload)
	if err != nil {
		t.Fatalf("payload is not valid base64: %v", err)
	}

	for i := range raw {
		tampered := make([]byte, len(raw))
		copy(tampered, raw)
		tampered[i] ^= 0x01

		framed := FramePrefix + result.EmergencyID + ":" + base64.URLEncoding.EncodeToString(tampered)
		_, err := codec.Scan(framed)
		if !errors.Is(err, ErrInvalidToken) {
			t.Fatalf("byte %d: expected ErrInvalidToken, got %v", i, err)
		}
	}
}

func TestScanExpiredIsDistinctFromInvalid(t *testing.T) {
	codec := newTestCodec(t)

	result, err := codec.Issue("user-1", testSummary(), testLocation(), -time.Second)
	if err != nil {
		t.Fatalf("issue failed: %v", err)
	}

	_, err = codec.Scan(result.QRData)
	if !errors.Is(err, ErrExpired) {
		t.Fatalf("expected ErrExpired, got %v", err)
	}
	if errors.Is(err, ErrInvalidToken) {
		t.Fatal("expired must not be reported as invalid")
	}
}

func TestScanRejectsMalformedFrame(t *testing.T) {
	codec := newTestCodec(t)

	cases := []string{
		"EMERGENCY:EMG20240101000000ABCDEF",
		"EMERGENCY:",
		"not-base64-at-all!!!",
		"EMERGENCY:EMG20240101000000ABCDEF:%%%不",
	}
	for _, raw := range cases {
		if _, err := codec.Scan(raw); !errors.Is(err, ErrInvalidToken) {
			t.Fatalf("%q: expected ErrInvalidToken, got %v", raw, err)
		}
	}
}

func TestEncryptIsNondeterministic(t *testing.T) {
	codec := newTestCodec(t)
	payload := map[string]interface{}{"hello": "world"}

	first, err := codec.Encrypt(payload)
	if err != nil {
		t.Fatalf("encrypt failed: %v", err)
	}
	second, err := codec.Encrypt(payload)
	if err != nil {
		t.Fatalf("encrypt failed: %v", err)
	}
	if first == second {
		t.Fatal("expected distinct ciphertexts for the same payload")
	}
}

func TestDecryptRejectsWrongKey(t *testing.T) {
	codec := newTestCodec(t)
	other, err := New("a_completely_different_passphrase", "emergency_salt_1234")
	if err != nil {
		t.Fatalf("failed to create codec: %v", err)
	}

	result, err := codec.Issue("user-1", testSummary(), testLocation(), 0)
	if err != nil {
		t.Fatalf("issue failed: %v", err)
	}

	if _, err := other.Decrypt(result.EncryptedPayload); !errors.Is(err, ErrInvalidToken) {
		t.Fatalf("expected ErrInvalidToken, got %v", err)
	}
}
