package inject

import (
	"os"
	"testing"
)

func TestChildPIDsOnCurrentProcessDoesNotError(t *testing.T) {
	_, err := ChildPIDs(os.Getpid())
	if err != nil {
		t.Errorf("ChildPIDs() error = %v, want nil", err)
	}
}
