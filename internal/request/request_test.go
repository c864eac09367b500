package request_test

import (
	"strings"
	"testing"

	"github.com/relaydb/dbshift/internal/identifier"
	"github.com/relaydb/dbshift/internal/request"
)

func validRequest() request.MigrationRequest {
	return request.MigrationRequest{
		SourceVendor:            "sqlserver",
		SourceConnectionString:  "sqlserver://source",
		TargetVendor:            "postgres",
		TargetConnectionString:  "postgres://target",
		TargetSchema:            "public",
	}
}

func TestValidateOK(t *testing.T) {
	if err := request.Validate(validRequest()); err != nil {
		t.Errorf("unexpected error: %v", err)
	}
}

func TestValidateCombinesAllViolations(t *testing.T) {
	req := request.MigrationRequest{}
	err := request.Validate(req)
	if err == nil {
		t.Fatal("expected error for empty request")
	}
	msg := err.Error()
	for _, want := range []string{"SourceVendor", "SourceConnectionString", "TargetVendor", "TargetConnectionString", "TargetSchema"} {
		if !strings.Contains(msg, want) {
			t.Errorf("combined error %q missing violation for %s", msg, want)
		}
	}
}

func TestValidateRejectsUnknownVendor(t *testing.T) {
	req := validRequest()
	req.SourceVendor = "db2"
	err := request.Validate(req)
	if err == nil || !strings.Contains(err.Error(), "SourceVendor") {
		t.Errorf("expected SourceVendor violation, got %v", err)
	}
}

func TestValidateRejectsNegativeBatchSize(t *testing.T) {
	req := validRequest()
	req.BatchSize = -1
	err := request.Validate(req)
	if err == nil || !strings.Contains(err.Error(), "BatchSize") {
		t.Errorf("expected BatchSize violation, got %v", err)
	}
}

func TestNormalizeDefaults(t *testing.T) {
	req := validRequest()
	norm := req.Normalize()

	if norm.BatchSize != 1000 {
		t.Errorf("BatchSize default = %d, want 1000", norm.BatchSize)
	}
	if norm.Workers != 1 {
		t.Errorf("Workers default = %d, want 1", norm.Workers)
	}
	if norm.Naming != identifier.Auto {
		t.Errorf("Naming default = %v, want Auto", norm.Naming)
	}
	if norm.MaxIdentifierLength != 63 {
		t.Errorf("MaxIdentifierLength default = %d, want 63 (postgres)", norm.MaxIdentifierLength)
	}
}

func TestNormalizeDoesNotOverrideExplicitValues(t *testing.T) {
	req := validRequest()
	req.BatchSize = 50
	req.Workers = 4
	req.Naming = identifier.SnakeCase
	req.MaxIdentifierLength = 10

	norm := req.Normalize()
	if norm.BatchSize != 50 || norm.Workers != 4 || norm.Naming != identifier.SnakeCase || norm.MaxIdentifierLength != 10 {
		t.Errorf("Normalize overrode explicit values: %+v", norm)
	}
}

func TestNormalizeSampleRowCountDefaultsOnlyWhenSampleRowsEnabled(t *testing.T) {
	req := validRequest()
	req.SampleRows = true
	norm := req.Normalize()
	if norm.SampleRowCount != 10 {
		t.Errorf("SampleRowCount default = %d, want 10", norm.SampleRowCount)
	}

	req2 := validRequest()
	norm2 := req2.Normalize()
	if norm2.SampleRowCount != 0 {
		t.Errorf("SampleRowCount should stay 0 when SampleRows is false, got %d", norm2.SampleRowCount)
	}
}
