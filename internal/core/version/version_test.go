package version

import "testing"

func TestInfoDefaults(t *testing.T) {
	bi := Info()
	if bi.Service != "ghscan" {
		t.Fatalf("service = %q", bi.Service)
	}
	if bi.Version != "dev" || bi.Commit != "none" || bi.Date != "unknown" {
		t.Fatalf("unexpected defaults: %+v", bi)
	}
	if got := bi.String(); got != "dev (none, unknown)" {
		t.Fatalf("String() = %q", got)
	}
}
