package utils

import (
	"image/color"
	"math"
)

type ColorFloat [4]float32

func (c *ColorFloat) RGBA() (r, g, b, a uint32) {
	const mf = float32(256*256 - 1)
	r = uint32(c[0] * mf)
	g = uint32(c[1] * mf)
	b = uint32(c[2] * mf)
	a = uint32(c[3] * mf)
	return
}

func NewColorFloat(c []float32) ColorFloat {
	return ColorFloat{c[0], c[1], c[2], 1.0}
}

// NewColorFloatHex converts 0xRRGGBB into an opaque color.
func NewColorFloatHex(hex uint32) ColorFloat {
	return ColorFloat{
		float32((hex>>16)&0xff) / 255,
		float32((hex>>8)&0xff) / 255,
		float32(hex&0xff) / 255,
		1.0,
	}
}

// NewColorFloatHSL converts hue in degrees, saturation and lightness in [0;1].
func NewColorFloatHSL(h, s, l float64) ColorFloat {
	h = math.Mod(h, 360) / 360
	if h < 0 {
		h += 1
	}
	if s == 0 {
		return ColorFloat{float32(l), float32(l), float32(l), 1.0}
	}

	var q float64
	if l < 0.5 {
		q = l * (1 + s)
	} else {
		q = l + s - l*s
	}
	p := 2*l - q

	hue := func(t float64) float32 {
		if t < 0 {
			t += 1
		}
		if t > 1 {
			t -= 1
		}
		switch {
		case t < 1.0/6:
			return float32(p + (q-p)*6*t)
		case t < 0.5:
			return float32(q)
		case t < 2.0/3:
			return float32(p + (q-p)*(2.0/3-t)*6)
		}
		return float32(p)
	}

	return ColorFloat{hue(h + 1.0/3), hue(h), hue(h - 1.0/3), 1.0}
}

func (c ColorFloat) Hex() uint32 {
	channel := func(v float32) uint32 {
		return uint32(clamp01(v)*255 + 0.5)
	}
	return channel(c[0])<<16 | channel(c[1])<<8 | channel(c[2])
}

func (c ColorFloat) Scale(k float32) ColorFloat {
	return ColorFloat{c[0] * k, c[1] * k, c[2] * k, c[3]}
}

func (c ColorFloat) Mul(o ColorFloat) ColorFloat {
	return ColorFloat{c[0] * o[0], c[1] * o[1], c[2] * o[2], c[3] * o[3]}
}

func (c ColorFloat) Add(o ColorFloat) ColorFloat {
	return ColorFloat{c[0] + o[0], c[1] + o[1], c[2] + o[2], c[3]}
}

func (c ColorFloat) NRGBA() color.NRGBA {
	return color.NRGBA{
		R: uint8(clamp01(c[0])*255 + 0.5),
		G: uint8(clamp01(c[1])*255 + 0.5),
		B: uint8(clamp01(c[2])*255 + 0.5),
		A: uint8(clamp01(c[3])*255 + 0.5),
	}
}

func clamp01(v float32) float32 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
