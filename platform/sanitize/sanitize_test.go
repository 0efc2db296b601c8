package sanitize

import "testing"

func TestText(t *testing.T) {
	cases := map[string]string{
		"plain note":                            "plain note",
		"  called   <b>twice</b>  ":             "called twice",
		"&lt;script&gt;alert(1)&lt;/script&gt;": "alert(1)",
		"line one  \n   line   two":             "line one\nline two",
		"Tom &amp; Jerry":                       "Tom & Jerry",
	}
	for in, want := range cases {
		if got := Text(in); got != want {
			t.Errorf("Text(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestTextPtr(t *testing.T) {
	if TextPtr(nil) != nil {
		t.Fatal("expected nil for nil input")
	}
	blank := "<p> </p>"
	if TextPtr(&blank) != nil {
		t.Fatal("expected markup-only input to become nil")
	}
	remark := " hot lead "
	if got := TextPtr(&remark); got == nil || *got != "hot lead" {
		t.Fatalf("unexpected result %v", got)
	}
}
