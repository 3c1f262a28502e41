package scan

import "testing"

func TestInferOSFromTTL(t *testing.T) {
	tests := []struct {
		name string
		ttl  int
		want string
	}{
		{"no ttl", 0, ""},
		{"linux default", 64, "linux"},
		{"linux a few hops away", 58, "linux"},
		{"linux lower bound", 35, "linux"},
		{"windows default", 128, "windows"},
		{"windows a few hops away", 119, "windows"},
		{"windows lower bound", 110, "windows"},
		{"network equipment", 255, "network_equipment"},
		{"network equipment many hops", 226, "network_equipment"},
		{"ambiguous gap", 100, ""},
		{"ambiguous low", 20, ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := InferOSFromTTL(tt.ttl); got != tt.want {
				t.Errorf("InferOSFromTTL(%d) = %q, want %q", tt.ttl, got, tt.want)
			}
		})
	}
}
