package tmplexpand

import "testing"

func TestExpandKnownAndUnknown(t *testing.T) {
	vars := map[string]string{"pid": "123", "comm": "firefox"}
	got := Expand("{comm}-{pid}-{missing}", vars)
	want := "firefox-123-{missing}"
	if got != want {
		t.Fatalf("Expand() = %q, want %q", got, want)
	}
}

func TestExpandFuncTransformsOnlySubstitutedValues(t *testing.T) {
	vars := map[string]string{"containerId": "abc def"}
	got := ExpandFunc("echo {containerId} {missing}", vars, func(s string) string {
		return "'" + s + "'"
	})
	want := "echo 'abc def' {missing}"
	if got != want {
		t.Fatalf("ExpandFunc() = %q, want %q", got, want)
	}
}

func TestExpandNoPlaceholders(t *testing.T) {
	if got := Expand("static", nil); got != "static" {
		t.Fatalf("Expand() = %q, want %q", got, "static")
	}
}
