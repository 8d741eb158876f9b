package ui

import (
	"strings"
	"testing"
)

func TestSummary(t *testing.T) {
	got := Summary("Compiled 2 templates", []Row{
		{Label: "pages/index.html", Detail: "compiled"},
		{Label: "card.html", Detail: "cached"},
	})
	for _, want := range []string{"Compiled 2 templates", "pages/index.html", "card.html", "cached"} {
		if !strings.Contains(got, want) {
			t.Errorf("Summary is missing %q:\n%s", want, got)
		}
	}
}

func TestLines(t *testing.T) {
	tests := []struct {
		got  string
		want string
	}{
		{Success("done"), "done"},
		{Error("failed"), "failed"},
		{Muted("note"), "note"},
	}
	for _, tt := range tests {
		if !strings.Contains(tt.got, tt.want) {
			t.Errorf("%q does not contain %q", tt.got, tt.want)
		}
	}
}
