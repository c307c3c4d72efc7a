package util

import (
	"reflect"
	"testing"
)

func TestParseIntDefault(t *testing.T) {
	cases := []struct {
		in   string
		def  int
		want int
	}{
		{"42", 0, 42},
		{" 8 ", 0, 8},
		{"", 9090, 9090},
		{"abc", 9090, 9090},
	}
	for _, c := range cases {
		if got := ParseIntDefault(c.in, c.def); got != c.want {
			t.Fatalf("ParseIntDefault(%q, %d) = %d, want %d", c.in, c.def, got, c.want)
		}
	}
}

func TestSplitAndTrim(t *testing.T) {
	got := SplitAndTrim(" BTCUSDT, ETHUSDT ,,SOLUSDT ", ",")
	want := []string{"BTCUSDT", "ETHUSDT", "SOLUSDT"}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("SplitAndTrim = %v, want %v", got, want)
	}
}
