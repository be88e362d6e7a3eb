// internal/scpi/identity_test.go
package scpi

import "testing"

func TestParseIdentification(t *testing.T) {
	id, err := ParseIdentification("Acme,Model-X,SN123,1.2.3\n")
	if err != nil {
		t.Fatalf("ParseIdentification returned error: %v", err)
	}

	want := Identification{
		Manufacturer: "Acme",
		Model:        "Model-X",
		SerialNumber: "SN123",
		Firmware:     "1.2.3",
	}
	if id != want {
		t.Fatalf("ParseIdentification = %+v, want %+v", id, want)
	}
}

func TestParseIdentificationStripsCRLF(t *testing.T) {
	id, err := ParseIdentification("Rohde&Schwarz,NGP814,5601.4007K04/101234,2.015\r\n")
	if err != nil {
		t.Fatalf("ParseIdentification returned error: %v", err)
	}
	if id.Firmware != "2.015" {
		t.Fatalf("Firmware = %q, want %q", id.Firmware, "2.015")
	}
}

func TestParseIdentificationRejectsShortResponse(t *testing.T) {
	for _, raw := range []string{"", "Acme", "Acme,Model-X", "Acme,Model-X,SN123"} {
		if _, err := ParseIdentification(raw); err == nil {
			t.Fatalf("ParseIdentification(%q) succeeded, want parse error", raw)
		}
	}
}

func TestParseIdentificationKeepsExtraFields(t *testing.T) {
	// Some instruments append option lists after the firmware field; only
	// the first four fields are meaningful.
	id, err := ParseIdentification("Keysight,E8257D,US12345678,C.06.22,opt 520\n")
	if err != nil {
		t.Fatalf("ParseIdentification returned error: %v", err)
	}
	if id.Model != "E8257D" || id.Firmware != "C.06.22" {
		t.Fatalf("unexpected identification: %+v", id)
	}
}
