package middleware_test

import (
	"context"
	"crypto/rand"
	"io"
	"testing"
	"time"

	"github.com/aretw0/espalier/pkg/adapters/memory"
	"github.com/aretw0/espalier/pkg/domain"
	"github.com/aretw0/espalier/pkg/persistence/middleware"
)

func generateKey(t *testing.T) []byte {
	k := make([]byte, 32)
	if _, err := io.ReadFull(rand.Reader, k); err != nil {
		t.Fatal(err)
	}
	return k
}

func newSession(id string) *domain.Session {
	sess := domain.NewSession(id, "onboarding", "whatsapp", "+5511", "start", time.Now())
	sess.AwaitingNodeID = "ask_name"
	sess.LastText = "my secret answer"
	return sess
}

func TestEncryptionMiddleware_Roundtrip(t *testing.T) {
	// Setup
	underlyingStore := memory.NewStore()
	key := generateKey(t)
	mw := middleware.NewEncryptionMiddleware(middleware.EncryptionConfig{ActiveKey: key})
	secureStore := mw(underlyingStore)

	ctx := context.Background()
	original := newSession("test-session")
	original.SetVariable("secret", "my-secret-sauce")

	// 1. Save
	if err := secureStore.Save(ctx, original); err != nil {
		t.Fatalf("Save failed: %v", err)
	}

	// 2. Verify the underlying store directly (should be encrypted)
	stored, err := underlyingStore.Load(ctx, "test-session")
	if err != nil {
		t.Fatalf("Underlying load failed: %v", err)
	}
	if val, ok := stored.Variables["secret"]; ok {
		t.Fatalf("Expected secret to be hidden, found: %v", val)
	}
	if _, ok := stored.Variables["__encrypted__"]; !ok {
		t.Fatal("Expected __encrypted__ variable in envelope")
	}
	if stored.LastText != "" || stored.AwaitingNodeID != "" {
		t.Fatal("Envelope leaked conversation state")
	}

	// 3. Load via middleware (should be decrypted)
	loaded, err := secureStore.Load(ctx, "test-session")
	if err != nil {
		t.Fatalf("Load via middleware failed: %v", err)
	}
	if loaded.Variables["secret"] != "my-secret-sauce" {
		t.Errorf("Expected 'my-secret-sauce', got %v", loaded.Variables["secret"])
	}
	if loaded.AwaitingNodeID != "ask_name" {
		t.Errorf("Expected suspension to survive the roundtrip, got %q", loaded.AwaitingNodeID)
	}
}

func TestEncryptionMiddleware_KeyRotation(t *testing.T) {
	// Setup
	underlyingStore := memory.NewStore()
	oldKey := generateKey(t)
	newKey := generateKey(t)

	// Create middleware with OLD key to save initial state
	mwOld := middleware.NewEncryptionMiddleware(middleware.EncryptionConfig{ActiveKey: oldKey})
	secureStoreOld := mwOld(underlyingStore)

	ctx := context.Background()
	original := newSession("rotation-session")
	original.SetVariable("data", "encrypted-with-old-key")

	// 1. Save with OLD key
	if err := secureStoreOld.Save(ctx, original); err != nil {
		t.Fatalf("Save failed: %v", err)
	}

	// 2. Load with NEW key (active) + OLD key (fallback)
	mwNew := middleware.NewEncryptionMiddleware(middleware.EncryptionConfig{
		ActiveKey:    newKey,
		FallbackKeys: [][]byte{oldKey},
	})
	secureStoreNew := mwNew(underlyingStore)

	loaded, err := secureStoreNew.Load(ctx, "rotation-session")
	if err != nil {
		t.Fatalf("Load with rotated key failed: %v", err)
	}
	if loaded.Variables["data"] != "encrypted-with-old-key" {
		t.Errorf("Decryption with fallback key failed")
	}

	// 3. Save again (re-encrypts with NEW key)
	loaded.SetVariable("data", "encrypted-with-new-key")
	if err := secureStoreNew.Save(ctx, loaded); err != nil {
		t.Fatalf("Save with new key failed: %v", err)
	}

	// 4. Verify we CANNOT load with just the OLD key anymore
	if _, err := secureStoreOld.Load(ctx, "rotation-session"); err == nil {
		t.Error("Expected failure when loading new-key encryption with old-key middleware")
	}
}

func TestEncryptionMiddleware_InvalidKey(t *testing.T) {
	defer func() {
		if r := recover(); r == nil {
			t.Errorf("Expected panic for invalid key size")
		}
	}()
	middleware.NewEncryptionMiddleware(middleware.EncryptionConfig{ActiveKey: []byte("short-key")})
}

func TestChain_Order(t *testing.T) {
	underlyingStore := memory.NewStore()
	key := generateKey(t)
	store := middleware.Chain(underlyingStore,
		middleware.NewPIIMiddleware([]string{"cpf"}),
		middleware.NewEncryptionMiddleware(middleware.EncryptionConfig{ActiveKey: key}),
	)

	ctx := context.Background()
	sess := newSession("chain-session")
	sess.SetVariable("customer_cpf", "999.999.999-99")

	if err := store.Save(ctx, sess); err != nil {
		t.Fatalf("Save failed: %v", err)
	}

	// PII runs before encryption, so the persisted plaintext is masked.
	loaded, err := store.Load(ctx, "chain-session")
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if loaded.Variables["customer_cpf"] != "***" {
		t.Errorf("Expected masked cpf inside envelope, got %v", loaded.Variables["customer_cpf"])
	}
}
