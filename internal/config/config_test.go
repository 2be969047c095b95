package config

import (
	"os"
	"testing"
	"time"
)

func TestLoad_Defaults(t *testing.T) {
	os.Clearenv()
	os.Setenv("GRPC_ADDR", ":8080")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.GRPCAddr != ":8080" {
		t.Errorf("GRPCAddr = %q, want %q", cfg.GRPCAddr, ":8080")
	}
	if cfg.JWTIssuer != "classtrack-auth" {
		t.Errorf("JWTIssuer = %q, want %q", cfg.JWTIssuer, "classtrack-auth")
	}
	if cfg.JWTAudience != "classtrack-api" {
		t.Errorf("JWTAudience = %q, want %q", cfg.JWTAudience, "classtrack-api")
	}
	if cfg.FreePlanEntityLimit != 14 {
		t.Errorf("FreePlanEntityLimit = %d, want 14", cfg.FreePlanEntityLimit)
	}
	if cfg.RestrictionGraceDays != 14 {
		t.Errorf("RestrictionGraceDays = %d, want 14", cfg.RestrictionGraceDays)
	}
	if cfg.UsageCollection != "students" {
		t.Errorf("UsageCollection = %q, want %q", cfg.UsageCollection, "students")
	}
	if cfg.AuditKafkaTopic != "classtrack-audit" {
		t.Errorf("AuditKafkaTopic = %q, want default", cfg.AuditKafkaTopic)
	}
	if cfg.Production() {
		t.Error("Production() should be false by default")
	}
}

func TestLoad_EnvVarOverride(t *testing.T) {
	os.Clearenv()
	os.Setenv("GRPC_ADDR", ":9090")
	os.Setenv("JWT_ISSUER", "custom-issuer")
	os.Setenv("FREE_PLAN_ENTITY_LIMIT", "30")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.GRPCAddr != ":9090" {
		t.Errorf("GRPCAddr = %q, want %q", cfg.GRPCAddr, ":9090")
	}
	if cfg.JWTIssuer != "custom-issuer" {
		t.Errorf("JWTIssuer = %q, want %q", cfg.JWTIssuer, "custom-issuer")
	}
	if cfg.FreePlanEntityLimit != 30 {
		t.Errorf("FreePlanEntityLimit = %d, want 30", cfg.FreePlanEntityLimit)
	}
}

func TestLoad_ProductionRequiresPepper(t *testing.T) {
	os.Clearenv()
	os.Setenv("GRPC_ADDR", ":8080")
	os.Setenv("APP_ENV", "production")

	if _, err := Load(); err == nil {
		t.Fatal("Load should fail when APP_ENV=production and IP_HASH_PEPPER is empty")
	}

	os.Setenv("IP_HASH_PEPPER", "pepper")
	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if !cfg.Production() {
		t.Error("Production() should be true")
	}
}

func TestDurationAccessors(t *testing.T) {
	cfg := &Config{JWTAccessTTL: "30m", RestrictionCacheTTL: "90s"}
	if got := cfg.AccessTTL(); got != 30*time.Minute {
		t.Errorf("AccessTTL = %v, want 30m", got)
	}
	if got := cfg.CacheTTL(); got != 90*time.Second {
		t.Errorf("CacheTTL = %v, want 90s", got)
	}

	bad := &Config{JWTAccessTTL: "nope", RestrictionCacheTTL: "-1m"}
	if got := bad.AccessTTL(); got != time.Hour {
		t.Errorf("AccessTTL fallback = %v, want 1h", got)
	}
	if got := bad.CacheTTL(); got != 2*time.Minute {
		t.Errorf("CacheTTL fallback = %v, want 2m", got)
	}
}

func TestAuditKafkaBrokersList(t *testing.T) {
	cfg := &Config{AuditKafkaBrokers: "localhost:9092, broker2:9092 ,"}
	got := cfg.AuditKafkaBrokersList()
	if len(got) != 2 || got[0] != "localhost:9092" || got[1] != "broker2:9092" {
		t.Errorf("AuditKafkaBrokersList = %v", got)
	}
	empty := &Config{}
	if empty.AuditKafkaBrokersList() != nil {
		t.Error("empty brokers should return nil")
	}
}
