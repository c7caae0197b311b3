package export

import (
	"encoding/xml"
	"strings"
	"testing"

	"github.com/san-kum/furnacesim/internal/dynamo"
)

func checkSVG(t *testing.T, svg string) {
	t.Helper()
	var doc struct {
		XMLName xml.Name
	}
	if err := xml.Unmarshal([]byte(svg), &doc); err != nil {
		t.Fatalf("invalid svg: %v", err)
	}
	if doc.XMLName.Local != "svg" {
		t.Fatalf("expected svg root, got %s", doc.XMLName.Local)
	}
}

func TestHeatColor(t *testing.T) {
	tests := []struct {
		level float64
		want  string
	}{
		{-1, "#101860"},
		{0, "#101860"},
		{1, "#d01010"},
		{2, "#d01010"},
		{0.5, "#f0e040"},
	}
	for _, tt := range tests {
		if got := heatColor(tt.level); got != tt.want {
			t.Errorf("heatColor(%v) = %s, want %s", tt.level, got, tt.want)
		}
	}
}

func TestFieldToSVG(t *testing.T) {
	f := dynamo.NewField(3, 4)
	f.Fill(300)
	f.Set(0, 3, 1300)

	svg := FieldToSVG(f, 300, 1300, 10)
	checkSVG(t, svg)
	// background plus one rect per mirrored node
	if n := strings.Count(svg, "<rect"); n != 1+5*4 {
		t.Errorf("expected 21 rects, got %d", n)
	}
	if !strings.Contains(svg, `width="50" height="40"`) {
		t.Error("unexpected canvas size")
	}
	// the hot node sits on the axis at the top
	if !strings.Contains(svg, `<rect x="20.0" y="0.0" width="10.0" height="10.0" fill="#d01010"/>`) {
		t.Errorf("hot axis node not found:\n%s", svg)
	}
	if FieldToSVG(nil, 0, 1, 1) != "" {
		t.Error("expected empty output for nil field")
	}
}

func TestSeriesToSVG(t *testing.T) {
	svg := SeriesToSVG([]float64{0, 1, 2}, []float64{300, 400, 350}, 200, 100, "#00ffff")
	checkSVG(t, svg)
	if strings.Count(svg, " L") != 2 {
		t.Errorf("expected 3 points:\n%s", svg)
	}
	if SeriesToSVG([]float64{1}, []float64{1}, 10, 10, "#fff") != "" {
		t.Error("expected empty output for a single point")
	}
}
