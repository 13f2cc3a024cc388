package protocolerrors

import (
	"testing"

	"github.com/pkg/errors"
)

func TestShouldBan(t *testing.T) {
	tests := []struct {
		name      string
		err       error
		shouldBan bool
	}{
		{"banning", Wrapf(true, ErrIncorrectResponse, "leaf %d", 5), true},
		{"not banning", New(false, "timeout"), false},
		{"wrapped banning", errors.Wrap(Errorf(true, "bad"), "phase failed"), true},
		{"plain error", errors.New("disk full"), false},
	}
	for _, test := range tests {
		if ShouldBan(test.err) != test.shouldBan {
			t.Fatalf("TestShouldBan: %s: expected ShouldBan %t", test.name, test.shouldBan)
		}
	}

	err := Wrap(true, ErrEmptyResponse, "kernel stream")
	if !errors.Is(err, ErrEmptyResponse) {
		t.Fatalf("TestShouldBan: expected the cause to be ErrEmptyResponse")
	}
}
