package oracle

import "testing"

func TestConfigValidateRejectsNoConnectionMethod(t *testing.T) {
	c := Config{Name: "src", User: "u", Password: "p"}
	if err := c.validate(); err == nil {
		t.Error("expected error when no connection method is set")
	}
}

func TestConfigValidateRejectsMultipleConnectionMethods(t *testing.T) {
	c := Config{Name: "src", User: "u", Password: "p", TnsAlias: "ORCL", Host: "db", ServiceName: "svc"}
	if err := c.validate(); err == nil {
		t.Error("expected error when more than one connection method is set")
	}
}

func TestConfigValidateAcceptsTnsAlias(t *testing.T) {
	c := Config{Name: "src", User: "u", Password: "p", TnsAlias: "ORCL"}
	if err := c.validate(); err != nil {
		t.Errorf("unexpected error: %v", err)
	}
}

func TestConfigValidateAcceptsHostAndService(t *testing.T) {
	c := Config{Name: "src", User: "u", Password: "p", Host: "db.internal", ServiceName: "ORCLPDB1"}
	if err := c.validate(); err != nil {
		t.Errorf("unexpected error: %v", err)
	}
}

func TestServerStringPrefersTnsAlias(t *testing.T) {
	c := Config{TnsAlias: "ORCL", Host: "db", ServiceName: "svc"}
	if got, want := c.serverString(), "ORCL"; got != want {
		t.Errorf("serverString() = %q, want %q", got, want)
	}
}

func TestServerStringHostServiceWithPort(t *testing.T) {
	c := Config{Host: "db.internal", Port: 1521, ServiceName: "ORCLPDB1"}
	if got, want := c.serverString(), "db.internal:1521/ORCLPDB1"; got != want {
		t.Errorf("serverString() = %q, want %q", got, want)
	}
}

func TestServerStringHostServiceWithoutPort(t *testing.T) {
	c := Config{Host: "db.internal", ServiceName: "ORCLPDB1"}
	if got, want := c.serverString(), "db.internal/ORCLPDB1"; got != want {
		t.Errorf("serverString() = %q, want %q", got, want)
	}
}
