package crypto

import (
	"bytes"
	"context"
	"encoding/base64"
	"errors"
	"testing"

	"github.com/aws/aws-sdk-go-v2/service/kms"
)

// fakeKMSClient reverses the plaintext bytes so ciphertext differs from input.
type fakeKMSClient struct {
	lastKeyID string
	fail      bool
}

func reverse(b []byte) []byte {
	out := bytes.Clone(b)
	for i, j := 0, len(out)-1; i < j; i, j = i+1, j-1 {
		out[i], out[j] = out[j], out[i]
	}
	return out
}

func (f *fakeKMSClient) Encrypt(_ context.Context, in *kms.EncryptInput, _ ...func(*kms.Options)) (*kms.EncryptOutput, error) {
	if f.fail {
		return nil, errors.New("AccessDeniedException")
	}
	f.lastKeyID = *in.KeyId
	return &kms.EncryptOutput{CiphertextBlob: reverse(in.Plaintext)}, nil
}

func (f *fakeKMSClient) Decrypt(_ context.Context, in *kms.DecryptInput, _ ...func(*kms.Options)) (*kms.DecryptOutput, error) {
	if f.fail {
		return nil, errors.New("AccessDeniedException")
	}
	return &kms.DecryptOutput{Plaintext: reverse(in.CiphertextBlob)}, nil
}

func TestKMSService_RoundTrip(t *testing.T) {
	client := &fakeKMSClient{}
	s := NewKMSService(client, "alias/notes-config-key")
	ctx := context.Background()

	ciphertext, err := s.Encrypt(ctx, "mongodb://localhost:27017")
	if err != nil {
		t.Fatalf("Encrypt failed: %v", err)
	}
	if client.lastKeyID != "alias/notes-config-key" {
		t.Errorf("Expected key alias to be passed, got %q", client.lastKeyID)
	}
	if _, err := base64.StdEncoding.DecodeString(ciphertext); err != nil {
		t.Errorf("Ciphertext should be base64: %v", err)
	}

	plaintext, err := s.Decrypt(ctx, ciphertext)
	if err != nil {
		t.Fatalf("Decrypt failed: %v", err)
	}
	if plaintext != "mongodb://localhost:27017" {
		t.Errorf("Round trip mismatch: got %q", plaintext)
	}
}

func TestKMSService_Decrypt_InvalidBase64(t *testing.T) {
	s := NewKMSService(&fakeKMSClient{}, "k")
	if _, err := s.Decrypt(context.Background(), "%%%"); !errors.Is(err, ErrMalformedCiphertext) {
		t.Errorf("Expected ErrMalformedCiphertext, got %v", err)
	}
}

func TestKMSService_Decrypt_TrimsWhitespace(t *testing.T) {
	s := NewKMSService(&fakeKMSClient{}, "k")
	ctx := context.Background()

	sealed, _ := s.Encrypt(ctx, "mongodb://db:27017")
	plaintext, err := s.Decrypt(ctx, "  "+sealed+"\n")
	if err != nil {
		t.Fatalf("Decrypt failed: %v", err)
	}
	if plaintext != "mongodb://db:27017" {
		t.Errorf("Unexpected plaintext %q", plaintext)
	}
}

func TestKMSService_ClientError(t *testing.T) {
	s := NewKMSService(&fakeKMSClient{fail: true}, "k")
	if _, err := s.Encrypt(context.Background(), "x"); err == nil {
		t.Error("Expected Encrypt to surface client error")
	}
}

func TestMockEncryptor(t *testing.T) {
	m := NewMockEncryptor()
	ctx := context.Background()

	c, _ := m.Encrypt(ctx, "secret")
	if c != "mock:secret" {
		t.Errorf("Expected 'mock:secret', got %q", c)
	}
	p, _ := m.Decrypt(ctx, c)
	if p != "secret" {
		t.Errorf("Expected 'secret', got %q", p)
	}
}
