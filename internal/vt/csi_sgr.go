package vt

import "image/color"

// csiSelectGraphicRendition handles SGR ("m") sequences. Parameters are
// processed left to right, each mutating its own slice of the rendition
// state; an empty parameter list means reset-all.
func csiSelectGraphicRendition(s *screen, params []int) {
	if len(params) == 0 {
		s.pen = s.defaultPen()
		return
	}

	for i := 0; i < len(params); i++ {
		p := params[i]
		switch {
		case p == 0:
			s.pen = s.defaultPen()
		case p == 1:
			s.pen.bold = true
		case p == 3:
			s.pen.italic = true
		case p == 4:
			s.pen.underline = true
		case p == 7:
			s.pen.reverse = true
		case p == 22:
			s.pen.bold = false
		case p == 23:
			s.pen.italic = false
		case p == 24:
			s.pen.underline = false
		case p == 27:
			s.pen.reverse = false

		case p >= 30 && p <= 37:
			s.pen.fg = s.palette[p-30]
		case p == 38:
			// 38;5;N - indexed foreground, consuming two extra slots.
			if i+2 < len(params) && params[i+1] == 5 {
				s.pen.fg = s.color256(params[i+2])
				i += 2
			}
		case p == 39:
			s.pen.fg = s.fgDefault

		case p >= 40 && p <= 47:
			s.pen.bg = s.palette[p-40]
		case p == 48:
			// 48;5;N - indexed background.
			if i+2 < len(params) && params[i+1] == 5 {
				s.pen.bg = s.color256(params[i+2])
				i += 2
			}
		case p == 49:
			s.pen.bg = s.bgDefault

		case p >= 90 && p <= 97:
			s.pen.fg = s.palette[p-90+8]
		case p >= 100 && p <= 107:
			s.pen.bg = s.palette[p-100+8]
		}
	}
}

// color256 resolves an 8-bit color index: 0-15 hit the palette, 16-231 the
// 6x6x6 cube (each channel scaled by 51), 232-255 the 24-step grayscale
// ramp.
func (s *screen) color256(index int) color.RGBA {
	index = clamp(index, 0, 255)
	switch {
	case index < 16:
		return s.palette[index]
	case index < 232:
		index -= 16
		return color.RGBA{
			R: uint8((index / 36) * 51),
			G: uint8((index % 36 / 6) * 51),
			B: uint8((index % 6) * 51),
			A: 0xFF,
		}
	default:
		gray := uint8((index-232)*10 + 8)
		return color.RGBA{R: gray, G: gray, B: gray, A: 0xFF}
	}
}
