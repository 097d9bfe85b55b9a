package main

import (
	"testing"

	"stockledger/backend/internal/config"
)

func TestValidateSecurityConfigRejectsWeakValues(t *testing.T) {
	cases := []config.Config{
		{AuthSecret: "short", WarehouseStoreID: "warehouse"},
		{AuthSecret: "", WarehouseStoreID: "warehouse"},
		{AuthSecret: "0123456789abcdef0123456789abcdef"},
	}
	for _, cfg := range cases {
		if err := validateSecurityConfig(cfg); err == nil {
			t.Fatalf("expected config %+v to be rejected", cfg)
		}
	}
}

func TestValidateSecurityConfigAcceptsStrongValues(t *testing.T) {
	err := validateSecurityConfig(config.Config{AuthSecret: "0123456789abcdef0123456789abcdef", WarehouseStoreID: "warehouse"})
	if err != nil {
		t.Fatalf("expected strong config to pass, got %v", err)
	}
}
