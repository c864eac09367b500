package identifier_test

import (
	"strings"
	"testing"

	"github.com/relaydb/dbshift/internal/identifier"
	"github.com/relaydb/dbshift/internal/schema"
)

func TestConvertStyles(t *testing.T) {
	tcs := []struct {
		desc   string
		target schema.Vendor
		style  identifier.Style
		in     string
		want   string
	}{
		{"auto sqlserver pascal", schema.SQLServer, identifier.Auto, "customer_order", "CustomerOrder"},
		{"auto postgres snake", schema.Postgres, identifier.Auto, "CustomerOrder", "customer_order"},
		{"auto mysql lower", schema.MySQL, identifier.Auto, "Customer_Order", "customer_order"},
		{"auto oracle upper", schema.Oracle, identifier.Auto, "customer_order", "CUSTOMER_ORDER"},
		{"preserve verbatim", schema.Postgres, identifier.Preserve, "WeirdName123", "WeirdName123"},
		{"forced snake from pascal", schema.SQLServer, identifier.SnakeCase, "CustomerOrderId", "customer_order_id"},
		{"digit boundary", schema.Postgres, identifier.Auto, "col2Value", "col_2_value"},
	}
	for _, tc := range tcs {
		t.Run(tc.desc, func(t *testing.T) {
			c := identifier.NewConverter(tc.target, tc.style, 0)
			got, err := c.Convert(tc.in)
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if got != tc.want {
				t.Errorf("Convert(%q) = %q, want %q", tc.in, got, tc.want)
			}
		})
	}
}

func TestConvertEmptyFails(t *testing.T) {
	c := identifier.NewConverter(schema.Postgres, identifier.Auto, 0)
	if _, err := c.Convert(""); err == nil {
		t.Fatal("expected error for empty identifier")
	}
}

func TestConvertTruncatesAndIsStable(t *testing.T) {
	c := identifier.NewConverter(schema.Oracle, identifier.Preserve, 0)
	long := "ThisIsAnExtremelyLongTableNameThatVastlyExceedsTheOracleLimitOfThirtyCharacters"

	got1, err := c.Convert(long)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	got2, err := c.Convert(long)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if len(got1) != 30 {
		t.Errorf("len(got) = %d, want 30", len(got1))
	}
	if got1 != got2 {
		t.Errorf("Convert is not stable: %q != %q", got1, got2)
	}
	if !strings.HasPrefix(got1, long[:20]) {
		t.Errorf("truncated name %q does not preserve original prefix", got1)
	}
}

func TestConvertTruncationAvoidsCollisions(t *testing.T) {
	c := identifier.NewConverter(schema.Oracle, identifier.Preserve, 0)
	a := "ThisIsAnExtremelyLongTableNameThatVastlyExceedsTheOracleLimitOfThirtyCharactersOne"
	b := "ThisIsAnExtremelyLongTableNameThatVastlyExceedsTheOracleLimitOfThirtyCharactersTwo"

	gotA, err := c.Convert(a)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	gotB, err := c.Convert(b)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if gotA == gotB {
		t.Errorf("distinct long names collided after truncation: %q", gotA)
	}
}

func TestMaxIdentifierLengthDefaults(t *testing.T) {
	tcs := map[schema.Vendor]int{
		schema.SQLServer: 128,
		schema.Postgres:  63,
		schema.MySQL:     64,
		schema.Oracle:    30,
	}
	for v, want := range tcs {
		if got := v.MaxIdentifierLength(); got != want {
			t.Errorf("%s.MaxIdentifierLength() = %d, want %d", v, got, want)
		}
	}
}
