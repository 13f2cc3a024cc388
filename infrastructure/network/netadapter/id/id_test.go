package id

import (
	"testing"
)

func TestID(t *testing.T) {
	generated, err := GenerateID()
	if err != nil {
		t.Fatalf("TestID: GenerateID: %+v", err)
	}
	parsed, err := FromString(generated.String())
	if err != nil {
		t.Fatalf("TestID: FromString: %+v", err)
	}
	if !parsed.Equal(generated) {
		t.Fatalf("TestID: expected %s, got %s", generated, parsed)
	}

	other, err := GenerateID()
	if err != nil {
		t.Fatalf("TestID: GenerateID: %+v", err)
	}
	if other.Equal(generated) {
		t.Fatalf("TestID: two generated IDs are equal")
	}

	_, err = NewID(make([]byte, IDLength-1))
	if err == nil {
		t.Fatalf("TestID: NewID succeeded with a short slice")
	}
	_, err = FromString("not hex")
	if err == nil {
		t.Fatalf("TestID: FromString succeeded with a non hex string")
	}

	bytes := generated.Bytes()
	bytes[0]++
	if !parsed.Equal(generated) {
		t.Fatalf("TestID: modifying the result of Bytes changed the ID")
	}
}
