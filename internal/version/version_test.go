package version

import "testing"

func TestParseSystem(t *testing.T) {
	v, err := Parse("system")
	if err != nil {
		t.Fatalf("Parse(system): %v", err)
	}
	if !v.IsSystem() {
		t.Fatal("expected IsSystem() true")
	}
}

func TestParseLeadingV(t *testing.T) {
	v, err := Parse("v1.2.3")
	if err != nil {
		t.Fatalf("Parse(v1.2.3): %v", err)
	}
	if v.String() != "v1.2.3" {
		t.Fatalf("String() = %q, want original preserved", v.String())
	}
}

func TestCompareOrdering(t *testing.T) {
	a := MustParse("1.2.3")
	b := MustParse("1.10.0")
	if !a.LessThan(b) {
		t.Fatal("expected 1.2.3 < 1.10.0")
	}
}

func TestSystemSortsGreatest(t *testing.T) {
	sys, _ := Parse("system")
	v := MustParse("99.0.0")
	if !v.LessThan(sys) {
		t.Fatal("expected any release to sort before the system sentinel")
	}
}

func TestPrereleaseDetected(t *testing.T) {
	v := MustParse("2.0.0-rc.1")
	if !v.IsPrerelease() {
		t.Fatal("expected prerelease detection")
	}
}
