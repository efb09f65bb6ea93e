package uid

import "testing"

func TestNew(t *testing.T) {
	a, b := New(), New()
	if a == b {
		t.Fatalf("expected distinct ids, got %s twice", a)
	}
	if !IsValid(a) {
		t.Fatalf("New() = %q is not a valid uuid", a)
	}
	if IsValid("update-42") {
		t.Fatal("IsValid accepted a non-uuid")
	}
}

func TestForUpdate(t *testing.T) {
	a := ForUpdate(1001)
	if a != ForUpdate(1001) {
		t.Fatalf("ForUpdate(1001) is not stable")
	}
	if a == ForUpdate(1002) {
		t.Fatalf("ForUpdate gave %s for two different updates", a)
	}
	if !IsValid(a) {
		t.Fatalf("ForUpdate(1001) = %q is not a valid uuid", a)
	}
}
