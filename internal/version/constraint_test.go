package version

import "testing"

func nodeCandidates() []Info {
	return []Info{
		{Version: "20.10.0"},
		{Version: "18.19.0", LTS: true},
		{Version: "18.18.2", LTS: true},
		{Version: "21.0.0-rc.1", Prerelease: true},
	}
}

func TestSelectExact(t *testing.T) {
	c, err := ParseConstraint("18.18.2")
	if err != nil {
		t.Fatalf("ParseConstraint: %v", err)
	}
	v, err := c.Select("node", nodeCandidates())
	if err != nil {
		t.Fatalf("Select: %v", err)
	}
	if v.String() != "18.18.2" {
		t.Fatalf("Select() = %q, want 18.18.2", v.String())
	}
}

func TestSelectCaretRange(t *testing.T) {
	c, err := ParseConstraint("^18")
	if err != nil {
		t.Fatalf("ParseConstraint: %v", err)
	}
	v, err := c.Select("node", nodeCandidates())
	if err != nil {
		t.Fatalf("Select: %v", err)
	}
	if v.String() != "18.19.0" {
		t.Fatalf("Select(^18) = %q, want greatest 18.x (18.19.0)", v.String())
	}
}

func TestSelectLatestSkipsPrerelease(t *testing.T) {
	c, _ := ParseConstraint("latest")
	v, err := c.Select("node", nodeCandidates())
	if err != nil {
		t.Fatalf("Select: %v", err)
	}
	if v.String() != "20.10.0" {
		t.Fatalf("Select(latest) = %q, want 20.10.0 (greatest release)", v.String())
	}
}

func TestSelectLatestFallsBackToPrerelease(t *testing.T) {
	c, _ := ParseConstraint("latest")
	v, err := c.Select("node", []Info{{Version: "21.0.0-rc.1", Prerelease: true}})
	if err != nil {
		t.Fatalf("Select: %v", err)
	}
	if v.String() != "21.0.0-rc.1" {
		t.Fatalf("Select(latest) with only prereleases = %q, want 21.0.0-rc.1", v.String())
	}
}

func TestSelectLTS(t *testing.T) {
	c, _ := ParseConstraint("lts")
	v, err := c.Select("node", nodeCandidates())
	if err != nil {
		t.Fatalf("Select: %v", err)
	}
	if v.String() != "18.19.0" {
		t.Fatalf("Select(lts) = %q, want greatest LTS (18.19.0)", v.String())
	}
}

func TestSelectSystem(t *testing.T) {
	c, _ := ParseConstraint("system")
	v, err := c.Select("node", nodeCandidates())
	if err != nil {
		t.Fatalf("Select: %v", err)
	}
	if !v.IsSystem() {
		t.Fatal("expected system sentinel")
	}
}

func TestSelectNoMatch(t *testing.T) {
	c, _ := ParseConstraint("99.0.0")
	_, err := c.Select("node", nodeCandidates())
	if err == nil {
		t.Fatal("expected NoSatisfyingVersion error")
	}
}

func TestIntersectExactMismatch(t *testing.T) {
	a, _ := ParseConstraint("1.2.3")
	b, _ := ParseConstraint("1.2.4")
	if _, ok := Intersect(a, b); ok {
		t.Fatal("expected intersection of distinct exact versions to fail")
	}
}

func TestIntersectRanges(t *testing.T) {
	a, _ := ParseConstraint(">=1.0.0")
	b, _ := ParseConstraint("<2.0.0")
	merged, ok := Intersect(a, b)
	if !ok {
		t.Fatal("expected ranges to intersect")
	}
	v, err := merged.Select("tool", []Info{{Version: "1.5.0"}, {Version: "2.5.0"}})
	if err != nil {
		t.Fatalf("Select on merged constraint: %v", err)
	}
	if v.String() != "1.5.0" {
		t.Fatalf("Select() = %q, want 1.5.0", v.String())
	}
}
