package config

import "testing"

func TestProfileYAMLRoundTrip(t *testing.T) {
	p := Profile{
		JoinMode: "OTAA",
		Region:   "EU868",
		AppEUI:   "0102030405060708",
		AppKey:   "000102030405060708090A0B0C0D0E0F",
	}

	out, err := MarshalProfileYAML(p)
	if err != nil {
		t.Fatalf("MarshalProfileYAML: %v", err)
	}

	got, err := UnmarshalProfileYAML(out)
	if err != nil {
		t.Fatalf("UnmarshalProfileYAML: %v", err)
	}
	if got != p {
		t.Fatalf("round trip mismatch: got %+v, want %+v", got, p)
	}
}

func TestUnmarshalProfileYAMLRejectsGarbage(t *testing.T) {
	if _, err := UnmarshalProfileYAML([]byte("not: [valid: yaml")); err == nil {
		t.Fatal("expected an error for malformed YAML")
	}
}
