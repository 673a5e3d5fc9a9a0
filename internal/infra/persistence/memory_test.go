package persistence

import (
	"context"
	"testing"

	"github.com/modulhaus/backoffice/errs"
)

func TestMemoryKVRoundTrip(t *testing.T) {
	kv := NewMemoryKV()
	ctx := context.Background()

	if _, err := kv.Get(ctx, "missing"); !errs.HasCode(err, errs.CodeNotFound) {
		t.Errorf("expected not_found, got %v", err)
	}

	if err := kv.Set(ctx, "adminActivityLogs", []byte(`[]`)); err != nil {
		t.Fatalf("Set() error = %v", err)
	}
	got, err := kv.Get(ctx, "adminActivityLogs")
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	if string(got) != `[]` {
		t.Errorf("value = %q", got)
	}

	// Mutating the returned slice must not touch the stored copy.
	got[0] = 'X'
	again, _ := kv.Get(ctx, "adminActivityLogs")
	if string(again) != `[]` {
		t.Error("returned slice aliases stored value")
	}
}

func TestMemoryKVRejectsEmptyKey(t *testing.T) {
	kv := NewMemoryKV()
	if err := kv.Set(context.Background(), "", nil); !errs.HasCode(err, errs.CodeInvalid) {
		t.Errorf("expected invalid_request, got %v", err)
	}
}
