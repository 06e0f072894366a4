package board

import "testing"

func TestParseType(t *testing.T) {
	for _, name := range []string{"chessboard", "charuco", "acircles", "dual_acircles"} {
		bt, err := ParseType(name)
		if err != nil {
			t.Errorf("ParseType(%q): %v", name, err)
		}
		if string(bt) != name {
			t.Errorf("ParseType(%q) = %q", name, bt)
		}
	}

	if _, err := ParseType("hexgrid"); err == nil {
		t.Error("expected error for unknown board type")
	}
}

func TestGeometryValidate(t *testing.T) {
	good := Geometry{Type: Chessboard, Size: Size{Width: 6, Height: 9}}
	if err := good.Validate(); err != nil {
		t.Errorf("valid geometry rejected: %v", err)
	}

	// Zero-sized grids are fatal configuration errors.
	for _, g := range []Geometry{
		{Type: Chessboard, Size: Size{Width: 0, Height: 9}},
		{Type: ACircles, Size: Size{Width: 4, Height: -1}},
		{Type: "", Size: Size{Width: 4, Height: 11}},
	} {
		if err := g.Validate(); err == nil {
			t.Errorf("geometry %+v should not validate", g)
		}
	}
}

func TestGeometryPointCount(t *testing.T) {
	tests := []struct {
		geometry Geometry
		want     int
	}{
		{Geometry{Type: Chessboard, Size: Size{Width: 6, Height: 9}}, 54},
		{Geometry{Type: ACircles, Size: Size{Width: 4, Height: 11}}, 44},
		{Geometry{Type: DualACircles, Size: Size{Width: 4, Height: 11}}, 88},
		{Geometry{Type: Charuco, Size: Size{Width: 6, Height: 8}}, 35},
	}
	for _, tt := range tests {
		if got := tt.geometry.PointCount(); got != tt.want {
			t.Errorf("%s %dx%d point count = %d, want %d",
				tt.geometry.Type, tt.geometry.Size.Width, tt.geometry.Size.Height, got, tt.want)
		}
	}
}
