package viewer

import "strings"

// Category is one of the surface type filter buckets.
type Category int

const (
	Floors Category = iota
	Walls
	Roofs
	Windows
	Doors
	Shading
	Partitions

	categoriesCount
)

var categoryNames = [categoriesCount]string{
	"floors", "walls", "roofs", "windows", "doors", "shading", "partitions",
}

// checkbox identifiers used by host pages
var categoryControls = [categoriesCount]string{
	"showFloors", "showWalls", "showRoofs", "showWindows", "showDoors", "showShading", "showPartitions",
}

func Categories() []Category {
	list := make([]Category, categoriesCount)
	for i := range list {
		list[i] = Category(i)
	}
	return list
}

func (c Category) String() string {
	if c < 0 || c >= categoriesCount {
		return "unknown"
	}
	return categoryNames[c]
}

func (c Category) Control() string {
	if c < 0 || c >= categoriesCount {
		return ""
	}
	return categoryControls[c]
}

// ParseCategory accepts either the category name or its checkbox identifier.
func ParseCategory(s string) (Category, bool) {
	for i := Category(0); i < categoriesCount; i++ {
		if strings.EqualFold(s, categoryNames[i]) || strings.EqualFold(s, categoryControls[i]) {
			return i, true
		}
	}
	return 0, false
}

type classificationRule struct {
	match    func(surfaceType string) bool
	category Category
}

func equals(v string) func(string) bool {
	return func(s string) bool { return s == v }
}

func containsAny(parts ...string) func(string) bool {
	return func(s string) bool {
		for _, p := range parts {
			if strings.Contains(s, p) {
				return true
			}
		}
		return false
	}
}

// Evaluated in order, first match wins. GlassDoor must be claimed by the
// windows rule before the generic door substring rule.
var classificationRules = []classificationRule{
	{equals("Floor"), Floors},
	{equals("Wall"), Walls},
	{equals("RoofCeiling"), Roofs},
	{func(s string) bool {
		return containsAny("Window", "Skylight", "TubularDaylight")(s) || s == "GlassDoor"
	}, Windows},
	{containsAny("Door"), Doors},
	{containsAny("Shading"), Shading},
	{equals("InteriorPartitionSurface"), Partitions},
}

// Classify returns the filter bucket of a surface type.
func Classify(surfaceType string) (Category, bool) {
	for _, rule := range classificationRules {
		if rule.match(surfaceType) {
			return rule.category, true
		}
	}
	return 0, false
}

// FilterState holds the checkbox state of every category.
type FilterState [categoriesCount]bool

func DefaultFilterState() FilterState {
	var fs FilterState
	for i := range fs {
		fs[i] = true
	}
	return fs
}

func (fs FilterState) Map() map[string]bool {
	m := make(map[string]bool, len(fs))
	for i, on := range fs {
		m[categoryNames[i]] = on
	}
	return m
}

type DiagnosticFilter int

const (
	OnlyNonConvexSurfaces DiagnosticFilter = iota
	OnlyIncorrectlyOriented
	OnlyNonConvexSpaces
	OnlyNonEnclosedSpaces

	diagnosticFiltersCount
)

var diagnosticControls = [diagnosticFiltersCount]string{
	"showOnlyNonConvexSurfaces",
	"showOnlyIncorrectlyOriented",
	"showOnlyNonConvexSpaces",
	"showOnlyNonEnclosedSpaces",
}

// user data flag a diagnostic filter requires to be false
var diagnosticKeys = [diagnosticFiltersCount]string{
	"convex", "correctlyOriented", "spaceConvex", "spaceEnclosed",
}

func (d DiagnosticFilter) String() string {
	if d < 0 || d >= diagnosticFiltersCount {
		return "unknown"
	}
	return diagnosticControls[d]
}

func ParseDiagnosticFilter(s string) (DiagnosticFilter, bool) {
	for i := DiagnosticFilter(0); i < diagnosticFiltersCount; i++ {
		if strings.EqualFold(s, diagnosticControls[i]) {
			return i, true
		}
	}
	return 0, false
}

// VisibilityState is everything a visibility decision depends on.
type VisibilityState struct {
	Filters            FilterState
	Story              string
	DiagnosticsEnabled bool
	Diagnostics        [diagnosticFiltersCount]bool
}

// Visible decides whether a surface with the given user data is shown.
// Surfaces without a surfaceType are always visible.
func Visible(userData map[string]interface{}, st VisibilityState) bool {
	surfaceType, _ := userData["surfaceType"].(string)
	if surfaceType == "" {
		return true
	}

	if category, ok := Classify(surfaceType); ok && !st.Filters[category] {
		return false
	}

	if st.Story != "" {
		story, _ := userData["buildingStoryName"].(string)
		if story != st.Story {
			return false
		}
	}

	if st.DiagnosticsEnabled {
		for i, on := range st.Diagnostics {
			if !on {
				continue
			}
			if flag, ok := userData[diagnosticKeys[i]].(bool); !ok || flag {
				return false
			}
		}
	}
	return true
}
