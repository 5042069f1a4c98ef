package buildid

import "testing"

func TestIDIsStableAcrossCalls(t *testing.T) {
	if ID() != ID() {
		t.Fatal("ID() is not stable across calls")
	}
}

func TestVerifyAcceptsOwnID(t *testing.T) {
	if !Verify(ID()) {
		t.Fatal("Verify(ID()) should always be true")
	}
}

func TestVerifyRejectsForeignID(t *testing.T) {
	if Verify("not-a-real-build-id") {
		t.Fatal("Verify should reject an unrelated id")
	}
}
