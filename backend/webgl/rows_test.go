package webgl

import (
	"bytes"
	"testing"
)

func TestFlipRows(t *testing.T) {
	data := []byte{1, 2, 3, 4, 5, 6}
	if got := flipRows(data, 2); !bytes.Equal(got, []byte{5, 6, 3, 4, 1, 2}) {
		t.Errorf("flipRows = %v", got)
	}
	if got := flipRows(data, 6); !bytes.Equal(got, data) {
		t.Errorf("flipRows single row = %v, want %v", got, data)
	}
	if data[0] != 1 {
		t.Error("flipRows modified its input")
	}
}

func TestCompactRG(t *testing.T) {
	rgba := make([]byte, 32)
	for i := range rgba {
		rgba[i] = byte(i)
	}
	want := []byte{0, 1, 2, 3, 4, 5, 6, 7, 16, 17, 18, 19, 20, 21, 22, 23}
	if got := compactRG(rgba); !bytes.Equal(got, want) {
		t.Errorf("compactRG = %v, want %v", got, want)
	}
}
