package neuralnet

import "testing"

func TestReLUActivate(t *testing.T) {
	r := ReLU{}
	if got := r.Activate(-1); got != 0 {
		t.Errorf("ReLU.Activate(-1) = %v; want 0", got)
	}
	if got := r.Activate(2); got != 2 {
		t.Errorf("ReLU.Activate(2) = %v; want 2", got)
	}
}

func TestLeakyReLU(t *testing.T) {
	l := NewLeakyReLU(DefaultLeakySlope)
	if got := l.Activate(-2); !floatEquals(got, -0.02, 1e-12) {
		t.Errorf("LeakyReLU.Activate(-2) = %v; want -0.02", got)
	}
	if got := l.Activate(3); got != 3 {
		t.Errorf("LeakyReLU.Activate(3) = %v; want 3", got)
	}
	if got := l.Derivative(-1); got != DefaultLeakySlope {
		t.Errorf("LeakyReLU.Derivative(-1) = %v; want %v", got, DefaultLeakySlope)
	}
}

func TestSigmoidActivate(t *testing.T) {
	s := Sigmoid{}
	got := s.Activate(0)
	want := 0.5
	if diff := got - want; diff < -1e-3 || diff > 1e-3 {
		t.Errorf("Sigmoid.Activate(0) = %v; want approx %v", got, want)
	}
}

func TestLinearActivate(t *testing.T) {
	l := Linear{}
	input := 3.14
	if got := l.Activate(input); got != input {
		t.Errorf("Linear.Activate(%v) = %v; want %v", input, got, input)
	}
}

func TestActivationByName(t *testing.T) {
	for _, name := range []string{"", "leaky_relu", "relu", "sigmoid", "tanh", "linear"} {
		if _, err := ActivationByName(name); err != nil {
			t.Errorf("ActivationByName(%q) returned error: %v", name, err)
		}
	}
	if _, err := ActivationByName("softplus"); err == nil {
		t.Error("ActivationByName(\"softplus\") did not return error")
	}
}
