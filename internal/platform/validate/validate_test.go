package validate

import (
	"testing"

	perr "ghscan/internal/platform/errors"
	kit "ghscan/internal/platform/testkit"
)

type settings struct {
	Source  string   `env:"SOURCE" validate:"oneof=http folder"`
	Workers int      `env:"POOL_SIZE" validate:"min=1,max=64"`
	Include []string `env:"INCLUDE" validate:"assignments"`
	Dir     string   `validate:"required_if=Source folder"`
}

func TestStruct(t *testing.T) {
	t.Parallel()

	cases := []struct {
		name    string
		in      settings
		wantMsg string
	}{
		{"ok", settings{Source: "http", Workers: 4, Include: []string{"type=PushEvent"}}, ""},
		{"ok empty include", settings{Source: "http", Workers: 1}, ""},
		{"min uses env name", settings{Source: "http", Workers: 0}, "POOL_SIZE must be at least 1"},
		{"max", settings{Source: "http", Workers: 65}, "POOL_SIZE must be at most 64"},
		{"oneof", settings{Source: "ftp", Workers: 1}, "SOURCE"},
		{"assignments", settings{Source: "http", Workers: 1, Include: []string{"nope"}}, "INCLUDE must be a list of field=value pairs"},
		{"assignments empty field", settings{Source: "http", Workers: 1, Include: []string{"=x"}}, "INCLUDE"},
		{"required_if falls back to struct field", settings{Source: "folder", Workers: 1}, "Dir"},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			err := Struct(c.in)
			if c.wantMsg == "" {
				if err != nil {
					t.Fatalf("unexpected error: %v", err)
				}
				return
			}
			if err == nil {
				t.Fatalf("expected error containing %q", c.wantMsg)
			}
			if !perr.IsCode(err, perr.CodeConfig) {
				t.Fatalf("code = %v", perr.CodeOf(err))
			}
			kit.MustContain(t, err.Error(), c.wantMsg)
		})
	}
}

func TestStruct_NotAStruct(t *testing.T) {
	t.Parallel()

	err := Struct(42)
	if !perr.IsCode(err, perr.CodeConfig) {
		t.Fatalf("err = %v", err)
	}
}

func TestFieldAndMessage(t *testing.T) {
	t.Parallel()

	if f, m := FieldAndMessage(nil); f != "" || m != "" {
		t.Fatalf("nil: %q %q", f, m)
	}
	err := Get().Validator.Struct(settings{Source: "http", Workers: 0})
	f, m := FieldAndMessage(err)
	if f != "POOL_SIZE" {
		t.Fatalf("field = %q", f)
	}
	kit.MustContain(t, m, "at least")
}

func TestInitIsSingleton(t *testing.T) {
	t.Parallel()

	if Init() != Get() {
		t.Fatalf("expected one validator instance")
	}
}
