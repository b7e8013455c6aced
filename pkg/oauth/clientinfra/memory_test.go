package clientinfra_test

import (
	"context"
	"testing"

	"github.com/Abraxas-365/tenantgate/pkg/kernel"
	"github.com/Abraxas-365/tenantgate/pkg/oauth"
	"github.com/Abraxas-365/tenantgate/pkg/oauth/clientinfra"
)

func TestMemoryClientRegistry_RegisterAndLookup(t *testing.T) {
	registry := clientinfra.NewMemoryClientRegistry()
	ctx := context.Background()

	record := oauth.ClientRecord{
		ClientID: kernel.NewClientID("acme"),
		Secret:   "s3cret",
		Scopes:   []string{"read"},
	}
	if err := registry.Register(ctx, record); err != nil {
		t.Fatalf("register failed: %v", err)
	}

	found, err := registry.Lookup(ctx, record.ClientID)
	if err != nil {
		t.Fatalf("lookup failed: %v", err)
	}
	if found.Secret != "s3cret" {
		t.Fatalf("expected stored secret, got %q", found.Secret)
	}
}

func TestMemoryClientRegistry_RegisterOverwrites(t *testing.T) {
	registry := clientinfra.NewMemoryClientRegistry()
	ctx := context.Background()
	id := kernel.NewClientID("acme")

	registry.Register(ctx, oauth.ClientRecord{ClientID: id, Secret: "old"})
	registry.Register(ctx, oauth.ClientRecord{ClientID: id, Secret: "new"})

	found, err := registry.Lookup(ctx, id)
	if err != nil {
		t.Fatalf("lookup failed: %v", err)
	}
	if found.Secret != "new" {
		t.Fatalf("expected re-registration to overwrite, got %q", found.Secret)
	}
}

func TestMemoryClientRegistry_LookupMiss(t *testing.T) {
	registry := clientinfra.NewMemoryClientRegistry()

	if _, err := registry.Lookup(context.Background(), kernel.NewClientID("ghost")); err == nil {
		t.Fatal("expected error for unknown client id")
	}
}

func TestMemoryClientRegistry_RemoveAbsentIsNoop(t *testing.T) {
	registry := clientinfra.NewMemoryClientRegistry()

	if err := registry.Remove(context.Background(), kernel.NewClientID("ghost")); err != nil {
		t.Fatalf("remove of absent record must succeed, got %v", err)
	}
}
