package schema_test

import (
	"testing"

	"github.com/relaydb/dbshift/internal/schema"
)

func TestParseVendorValid(t *testing.T) {
	for _, s := range []string{"sqlserver", "postgres", "mysql", "oracle"} {
		v, err := schema.ParseVendor(s)
		if err != nil {
			t.Errorf("ParseVendor(%q) unexpected error: %v", s, err)
		}
		if !v.Valid() {
			t.Errorf("ParseVendor(%q) = %v, want valid", s, v)
		}
	}
}

func TestParseVendorInvalid(t *testing.T) {
	if _, err := schema.ParseVendor("db2"); err == nil {
		t.Error("expected error for unsupported vendor string")
	}
}

func TestMaxIdentifierLength(t *testing.T) {
	cases := map[schema.Vendor]int{
		schema.SQLServer: 128,
		schema.Postgres:  63,
		schema.MySQL:     64,
		schema.Oracle:    30,
	}
	for v, want := range cases {
		if got := v.MaxIdentifierLength(); got != want {
			t.Errorf("%s.MaxIdentifierLength() = %d, want %d", v, got, want)
		}
	}
}
