package viewer

import (
	"math"
	"unicode/utf16"

	"github.com/effibem/bemviewer/utils"
)

type RenderMode string

const (
	RenderBySurfaceType   RenderMode = "surfaceType"
	RenderByBoundary      RenderMode = "boundary"
	RenderByConstruction  RenderMode = "construction"
	RenderByThermalZone   RenderMode = "thermalZone"
	RenderBySpaceType     RenderMode = "spaceType"
	RenderByBuildingStory RenderMode = "buildingStory"
)

var RenderModes = []RenderMode{
	RenderBySurfaceType, RenderByBoundary, RenderByConstruction,
	RenderByThermalZone, RenderBySpaceType, RenderByBuildingStory,
}

func ParseRenderMode(s string) (RenderMode, bool) {
	for _, m := range RenderModes {
		if string(m) == s {
			return m, true
		}
	}
	return "", false
}

// user data field each name based mode colours by
var renderModeFields = map[RenderMode]string{
	RenderByConstruction:  "constructionName",
	RenderByThermalZone:   "thermalZoneName",
	RenderBySpaceType:     "spaceTypeName",
	RenderByBuildingStory: "buildingStoryName",
}

const (
	defaultExteriorColor = 0xcccccc
	defaultInteriorColor = 0xeeeeee
)

var surfaceTypeColors = map[string]uint32{
	"Floor": 0x808080, "Wall": 0xccb266, "RoofCeiling": 0x994c4c,
	"Window": 0x66b2cc, "GlassDoor": 0x66b2cc, "Skylight": 0x66b2cc,
	"TubularDaylightDome": 0x66b2cc, "TubularDaylightDiffuser": 0x66b2cc,
	"Door": 0x99854c, "OverheadDoor": 0x99854c,
	"SiteShading": 0x4b7c95, "BuildingShading": 0x714c99, "SpaceShading": 0x4c6eb2,
	"InteriorPartitionSurface": 0x9ebc8f, "AirWall": 0x66b2cc,
}

var surfaceTypeInteriorColors = map[string]uint32{
	"Floor": 0xbfbfbf, "Wall": 0xebe2c5, "RoofCeiling": 0xca9595,
	"Window": 0xc0e2eb, "GlassDoor": 0xc0e2eb, "Skylight": 0xc0e2eb,
	"TubularDaylightDome": 0xc0e2eb, "TubularDaylightDiffuser": 0xc0e2eb,
	"Door": 0xcabc95, "OverheadDoor": 0xcabc95,
	"SiteShading": 0xbbd1dc, "BuildingShading": 0xd8cbe5, "SpaceShading": 0xb7c5e0,
	"InteriorPartitionSurface": 0xd5e2cf, "AirWall": 0xc0e2eb,
}

var boundaryColors = map[string]uint32{
	"Surface": 0x009900, "Adiabatic": 0xff0000, "Space": 0xff0000,
	"Outdoors": 0xa3cccc, "Outdoors_Sun": 0x28cccc, "Outdoors_Wind": 0x099fa2, "Outdoors_SunWind": 0x4477a1,
	"Ground": 0xccb77a, "Foundation": 0x751e7a,
	"OtherSideCoefficients": 0x3f3f3f, "OtherSideConditionsModel": 0x99004c,
}

func lookupColor(palette map[string]uint32, key string, fallback uint32) uint32 {
	if c, ok := palette[key]; ok {
		return c
	}
	return fallback
}

// StringToColor derives a stable colour from a name: the hue comes from a
// rolling hash over UTF-16 code units, saturation is 65% and lightness 55%.
// The shift wraps to 32 bits while the accumulator does not, so the hash is
// kept in a float64.
func StringToColor(s string) uint32 {
	if s == "" {
		return defaultExteriorColor
	}
	var hash float64
	for _, cu := range utf16.Encode([]rune(s)) {
		shifted := int32(int64(hash)) << 5
		hash = float64(cu) + (float64(shifted) - hash)
	}
	h := math.Mod(math.Abs(hash), 360)
	return utils.NewColorFloatHSL(h, 0.65, 0.55).Hex()
}

// colorCache memoizes name based colours per mode.
type colorCache map[string]uint32

func (cc colorCache) get(mode RenderMode, name string) uint32 {
	key := string(mode) + "_" + name
	if c, ok := cc[key]; ok {
		return c
	}
	c := StringToColor(name)
	cc[key] = c
	return c
}

// colorsFor returns the exterior and interior colours of a surface.
func (cc colorCache) colorsFor(userData map[string]interface{}, mode RenderMode) (ext, in uint32) {
	str := func(key string) string {
		s, _ := userData[key].(string)
		return s
	}

	switch mode {
	case RenderBySurfaceType:
		st := str("surfaceType")
		return lookupColor(surfaceTypeColors, st, defaultExteriorColor),
			lookupColor(surfaceTypeInteriorColors, st, defaultInteriorColor)
	case RenderByBoundary:
		bc := str("outsideBoundaryCondition")
		if bc == "" {
			bc = "Outdoors"
		}
		key := bc
		if bc == "Outdoors" {
			sun := str("sunExposure") == "SunExposed"
			wind := str("windExposure") == "WindExposed"
			switch {
			case sun && wind:
				key = "Outdoors_SunWind"
			case sun:
				key = "Outdoors_Sun"
			case wind:
				key = "Outdoors_Wind"
			}
		}
		c := lookupColor(boundaryColors, key, lookupColor(boundaryColors, bc, defaultExteriorColor))
		return c, c
	}

	if field, ok := renderModeFields[mode]; ok {
		c := cc.get(mode, str(field))
		return c, c
	}
	return defaultExteriorColor, defaultInteriorColor
}
