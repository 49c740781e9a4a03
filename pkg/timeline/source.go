package timeline

// RGB is an opaque 8-bit color.
type RGB struct {
	R, G, B uint8
}

// Source is the read-only capability set renderers consume. Index implements
// everything but RelativeHeight and Color; Model completes it.
type Source interface {
	Count() int
	StartTime(index int) int64
	Duration(index int) int64
	GroupID(index int) int32
	ExpandedRow(index int) int
	CollapsedRow(index int) int
	// RelativeHeight scales an item within its row, in [0, 1].
	RelativeHeight(index int) float32
	Color(index int) RGB
}

// Model adapts an Index into a Source. Nil functions fall back to full-height
// items colored by group.
type Model struct {
	*Index

	ColorFunc  func(index int) RGB
	HeightFunc func(index int) float32
}

// NewModel wraps idx with the default color and height.
func NewModel(idx *Index) *Model {
	return &Model{Index: idx}
}

// RelativeHeight implements Source.
func (m *Model) RelativeHeight(index int) float32 {
	if m.HeightFunc != nil {
		return m.HeightFunc(index)
	}

	return 1
}

// Color implements Source.
func (m *Model) Color(index int) RGB {
	if m.ColorFunc != nil {
		return m.ColorFunc(index)
	}

	return ColorByGroup(m.GroupID(index))
}

// Group color parameters: hue steps 25 degrees per group.
const (
	groupHueStep   = 25
	hueCircle      = 360
	groupSatur     = 150.0 / 255
	groupLightness = 166.0 / 255
)

// ColorByGroup returns a stable color for a group id.
func ColorByGroup(group int32) RGB {
	hue := (int64(group) * groupHueStep) % hueCircle
	if hue < 0 {
		hue += hueCircle
	}

	return hslToRGB(float64(hue)/hueCircle, groupSatur, groupLightness)
}

// hslToRGB converts h, s, l in [0, 1] to 8-bit RGB.
func hslToRGB(h, s, l float64) RGB {
	var q float64
	if l < 0.5 {
		q = l * (1 + s)
	} else {
		q = l + s - l*s
	}

	p := 2*l - q

	return RGB{
		R: channel(p, q, h+1.0/3),
		G: channel(p, q, h),
		B: channel(p, q, h-1.0/3),
	}
}

func channel(p, q, t float64) uint8 {
	if t < 0 {
		t++
	}

	if t > 1 {
		t--
	}

	var v float64

	switch {
	case t < 1.0/6:
		v = p + (q-p)*6*t
	case t < 0.5:
		v = q
	case t < 2.0/3:
		v = p + (q-p)*(2.0/3-t)*6
	default:
		v = p
	}

	return uint8(v*255 + 0.5)
}
