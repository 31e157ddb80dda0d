package billing

import "testing"

func TestValidMethod(t *testing.T) {
	for _, m := range []PaymentMethod{MethodCash, MethodCard, MethodUPI} {
		if !ValidMethod(m) {
			t.Errorf("ValidMethod(%s) = false", m)
		}
	}
	for _, m := range []PaymentMethod{"", "cash", "Cheque"} {
		if ValidMethod(m) {
			t.Errorf("ValidMethod(%q) = true", m)
		}
	}
}
