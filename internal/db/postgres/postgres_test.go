package postgres

import "testing"

func TestOpen_RequiresDSN(t *testing.T) {
	if _, err := Open(Config{}); err == nil {
		t.Fatal("expected error without dsn")
	}
}

func TestOpen_AppliesPoolDefaults(t *testing.T) {
	p, err := Open(Config{DSN: "postgres://localhost:1/none?sslmode=disable", MaxOpenConns: 4})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	defer p.Close()

	if p.maxIdle != 2 {
		t.Errorf("maxIdle = %d, want 2", p.maxIdle)
	}
	if got := p.Stats().MaxOpenConnections; got != 4 {
		t.Errorf("MaxOpenConnections = %d, want 4", got)
	}
	p.Reset()
}
