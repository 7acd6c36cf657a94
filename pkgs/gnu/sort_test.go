package gnu

import (
	"slices"
	"testing"
)

func sign(n int) int {
	switch {
	case n < 0:
		return -1
	case n > 0:
		return 1
	}
	return 0
}

func TestCompare(t *testing.T) {
	tests := []struct {
		a, b string
		want int
	}{
		{"1.0", "2.0", -1},
		{"2.0", "1.0", 1},
		{"1.0", "1.0", 0},

		{"1.2.10", "1.2.9", 1},
		{"1.10", "1.9", 1},
		{"2", "10", -1},

		{"1.01", "1.1", 0},
		{"01", "1", 0},

		{"", "", 0},
		{"1", "", 1},
		{"", "1", -1},

		{"1.0~rc1", "1.0", -1},
		{"1.0~alpha", "1.0~beta", -1},
		{"~", "", -1},

		{"a", "1", 1},
		{"1.0a", "1.0", 1},
		{"1.0.0-rc10", "1.0.0-rc9", 1},

		{"1.50.10", "1.50.9", 1},
		{"1.50.10", "1.51.0", -1},
		{"2.78.0", "2.8.0", 1},

		{"1-2", "1.2", -1},
		{"1_2", "1.2", 1},
	}

	for _, tt := range tests {
		t.Run(tt.a+"_vs_"+tt.b, func(t *testing.T) {
			if got := sign(Compare(tt.a, tt.b)); got != tt.want {
				t.Errorf("Compare(%q, %q) = %d, want %d", tt.a, tt.b, got, tt.want)
			}
		})
	}
}

func TestCompareSymmetry(t *testing.T) {
	pairs := [][2]string{
		{"1.0", "2.0"},
		{"1.10", "1.9"},
		{"1.0~rc1", "1.0"},
		{"1.0alpha", "1.0beta"},
	}
	for _, p := range pairs {
		if ab, ba := sign(Compare(p[0], p[1])), sign(Compare(p[1], p[0])); ab != -ba {
			t.Errorf("Compare(%q, %q)=%d, Compare(%q, %q)=%d", p[0], p[1], ab, p[1], p[0], ba)
		}
	}
}

func TestSort(t *testing.T) {
	got := []string{"1.50.10", "1.48.0", "1.50.9", "1.50.10~rc1", "1.9"}
	Sort(got)
	want := []string{"1.9", "1.48.0", "1.50.9", "1.50.10~rc1", "1.50.10"}
	if !slices.Equal(got, want) {
		t.Errorf("Sort() = %v, want %v", got, want)
	}
}

func TestMax(t *testing.T) {
	if got := Max(); got != "" {
		t.Errorf("Max() = %q, want empty", got)
	}
	if got := Max("1.50.9", "1.50.10", "1.49.4"); got != "1.50.10" {
		t.Errorf("Max() = %q, want %q", got, "1.50.10")
	}
}

func TestOrder(t *testing.T) {
	tests := []struct {
		c    byte
		want int
	}{
		{'0', 0},
		{'9', 0},
		{'a', int('a')},
		{'Z', int('Z')},
		{'~', -1},
		{0, 0},
		{'.', int('.') + 256},
		{'-', int('-') + 256},
	}
	for _, tt := range tests {
		if got := order(tt.c); got != tt.want {
			t.Errorf("order(%q) = %d, want %d", tt.c, got, tt.want)
		}
	}
}
