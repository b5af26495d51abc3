package demo

import (
	"flag"
	"testing"
)

func TestParseConfigDefaults(t *testing.T) {
	fs := flag.NewFlagSet("demo", flag.ContinueOnError)
	cfg, err := ParseConfig(fs, nil)
	if err != nil {
		t.Fatalf("ParseConfig() error = %v", err)
	}
	if cfg.HTTPAddr != ":8080" {
		t.Fatalf("HTTPAddr = %q, want %q", cfg.HTTPAddr, ":8080")
	}
	if cfg.DBPath != ":memory:" {
		t.Fatalf("DBPath = %q, want %q", cfg.DBPath, ":memory:")
	}
}

func TestParseConfigOverrideHTTPAddr(t *testing.T) {
	fs := flag.NewFlagSet("demo", flag.ContinueOnError)
	cfg, err := ParseConfig(fs, []string{"-http-addr", "127.0.0.1:9002"})
	if err != nil {
		t.Fatalf("ParseConfig() error = %v", err)
	}
	if cfg.HTTPAddr != "127.0.0.1:9002" {
		t.Fatalf("HTTPAddr = %q, want %q", cfg.HTTPAddr, "127.0.0.1:9002")
	}
}

func TestParseConfigOverrideDBPath(t *testing.T) {
	fs := flag.NewFlagSet("demo", flag.ContinueOnError)
	cfg, err := ParseConfig(fs, []string{"-db", "/tmp/demo.db"})
	if err != nil {
		t.Fatalf("ParseConfig() error = %v", err)
	}
	if cfg.DBPath != "/tmp/demo.db" {
		t.Fatalf("DBPath = %q, want %q", cfg.DBPath, "/tmp/demo.db")
	}
}
