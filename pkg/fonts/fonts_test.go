package fonts

import "testing"

func TestMonoMetrics(t *testing.T) {
	m, err := MonoMetrics(DefaultSize)
	if err != nil {
		t.Fatalf("MonoMetrics: %v", err)
	}
	if m.Char <= 0 || m.Line <= m.Char {
		t.Errorf("implausible metrics %+v", m)
	}
	big, _ := MonoMetrics(2 * DefaultSize)
	if big.Char <= m.Char {
		t.Errorf("larger size should be wider: %v vs %v", big.Char, m.Char)
	}
}

func TestMonoCached(t *testing.T) {
	a, err := Mono(10)
	if err != nil {
		t.Fatal(err)
	}
	b, _ := Mono(10.01)
	if a != b {
		t.Error("sizes within a quarter point should share a face")
	}
}
