package render

import "testing"

func setOf(values ...string) *OrderedSet {
	s := NewOrderedSet()
	for _, v := range values {
		s.Add(v)
	}
	return s
}

func TestFinalize(t *testing.T) {
	tests := []struct {
		name    string
		out     string
		styles  []string
		scripts []string
		head    []string
		want    string
	}{
		{
			name: "nothing to inject",
			out:  "<p>x</p>",
			want: "<p>x</p>",
		},
		{
			name:    "head and body",
			out:     "<html><head></head><body><p>x</p></body></html>",
			styles:  []string{"<style>a{}</style>"},
			scripts: []string{"<script>1</script>"},
			head:    []string{"<script>h</script>"},
			want:    "<html><head><style>a{}</style><script>h</script></head><body><p>x</p><script>1</script></body></html>",
		},
		{
			name:   "synthesized head",
			out:    `<html lang="en"><body></body></html>`,
			styles: []string{"<link>"},
			want:   `<html lang="en"><head><link></head><body></body></html>`,
		},
		{
			name:   "fragment gets a head",
			out:    "<p>x</p>",
			styles: []string{"<link>"},
			want:   "<head><link></head><p>x</p>",
		},
		{
			name:    "trailing content relocated",
			out:     "<html><body><main></main></body></html><footer>f</footer>",
			scripts: []string{"<script>s</script>"},
			want:    "<html><body><main></main><footer>f</footer><script>s</script></body></html>",
		},
		{
			name: "trailing whitespace kept",
			out:  "<html><body></body></html>\n",
			want: "<html><body></body></html>\n",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := finalize(tt.out, setOf(tt.styles...), setOf(tt.scripts...), setOf(tt.head...))
			if got != tt.want {
				t.Errorf("finalize =\n%q\nwant\n%q", got, tt.want)
			}
		})
	}
}

func TestOrderedSet(t *testing.T) {
	s := NewOrderedSet()
	for _, v := range []string{"b", "a", "b", "c", "a"} {
		s.Add(v)
	}
	if got := s.Values(); len(got) != 3 || got[0] != "b" || got[1] != "a" || got[2] != "c" {
		t.Errorf("Values = %v", got)
	}
	if s.Add("c") {
		t.Error("Add of an existing value reported new")
	}
	if !s.Has("a") || s.Has("z") {
		t.Error("Has mismatch")
	}
	if s.String() != "bac" || s.Len() != 3 {
		t.Errorf("String = %q, Len = %d", s.String(), s.Len())
	}

	var zero OrderedSet
	if !zero.Add("x") || zero.Len() != 1 {
		t.Error("zero OrderedSet is not usable")
	}
}
