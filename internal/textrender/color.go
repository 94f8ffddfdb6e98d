package textrender

import (
	"image/color"
	"strconv"
	"strings"
)

var namedColors = map[string]color.NRGBA{
	"white":       {R: 255, G: 255, B: 255, A: 255},
	"black":       {A: 255},
	"red":         {R: 255, A: 255},
	"green":       {G: 128, A: 255},
	"blue":        {B: 255, A: 255},
	"yellow":      {R: 255, G: 255, A: 255},
	"transparent": {},
}

// ParseColor parses #rgb, #rrggbb, #rrggbbaa, or a basic CSS colour name.
// The second result is false when the value could not be parsed; the colour
// returned in that case is fully transparent.
func ParseColor(value string) (color.NRGBA, bool) {
	value = strings.ToLower(strings.TrimSpace(value))
	if named, ok := namedColors[value]; ok {
		return named, true
	}
	hex, ok := strings.CutPrefix(value, "#")
	if !ok {
		return color.NRGBA{}, false
	}
	if len(hex) == 3 {
		hex = string([]byte{hex[0], hex[0], hex[1], hex[1], hex[2], hex[2]})
	}
	if len(hex) == 6 {
		hex += "ff"
	}
	if len(hex) != 8 {
		return color.NRGBA{}, false
	}
	v, err := strconv.ParseUint(hex, 16, 32)
	if err != nil {
		return color.NRGBA{}, false
	}
	return color.NRGBA{R: uint8(v >> 24), G: uint8(v >> 16), B: uint8(v >> 8), A: uint8(v)}, true
}

// TextColor resolves the foreground colour, defaulting to white.
func TextColor(value string) color.NRGBA {
	if strings.TrimSpace(value) == "" {
		return namedColors["white"]
	}
	c, ok := ParseColor(value)
	if !ok {
		return namedColors["white"]
	}
	return c
}

// BackgroundColor resolves the surface fill; anything unparsable is
// transparent.
func BackgroundColor(value string) color.NRGBA {
	c, _ := ParseColor(value)
	return c
}
