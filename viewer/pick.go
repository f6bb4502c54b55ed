package viewer

import (
	"github.com/effibem/bemviewer/scene"
)

// Selection describes a picked surface.
type Selection struct {
	Name                    string `json:"name"`
	SurfaceType             string `json:"surfaceType,omitempty"`
	Space                   string `json:"spaceName,omitempty"`
	SpaceType               string `json:"spaceTypeName,omitempty"`
	ThermalZone             string `json:"thermalZoneName,omitempty"`
	BuildingStory           string `json:"buildingStoryName,omitempty"`
	Construction            string `json:"constructionName,omitempty"`
	BoundaryCondition       string `json:"outsideBoundaryCondition,omitempty"`
	BoundaryConditionObject string `json:"outsideBoundaryConditionObjectName,omitempty"`
	SunExposure             string `json:"sunExposure,omitempty"`
	WindExposure            string `json:"windExposure,omitempty"`

	// set only with IncludeGeometryDiagnostics
	Convex            *bool `json:"convex,omitempty"`
	CorrectlyOriented *bool `json:"correctlyOriented,omitempty"`
	SpaceConvex       *bool `json:"spaceConvex,omitempty"`
	SpaceEnclosed     *bool `json:"spaceEnclosed,omitempty"`

	// Emphasized is the user data field the current render mode colours by.
	Emphasized string `json:"emphasized,omitempty"`
}

var renderModeEmphasis = map[RenderMode]string{
	RenderBySurfaceType:   "surfaceType",
	RenderByBoundary:      "outsideBoundaryCondition",
	RenderByConstruction:  "constructionName",
	RenderByThermalZone:   "thermalZoneName",
	RenderBySpaceType:     "spaceTypeName",
	RenderByBuildingStory: "buildingStoryName",
}

// Pick selects the nearest visible surface under the container pixel
// (x, y). A miss clears the selection.
func (v *Viewer) Pick(x, y float32) (*Selection, bool) {
	v.mu.Lock()
	defer v.mu.Unlock()

	sess := v.session
	if sess == nil {
		return nil, false
	}
	width, height := v.container.ClientWidth(), v.container.ClientHeight()
	if width <= 0 || height <= 0 {
		return nil, false
	}

	ndcX := x/float32(width)*2 - 1
	ndcY := 1 - y/float32(height)*2
	origin, dir := sess.camera.Ray(ndcX, ndcY)

	candidates := make([]*scene.Node, 0, len(sess.filterable))
	for _, n := range sess.filterable {
		if n.Visible {
			candidates = append(candidates, n)
		}
	}

	hit, ok := scene.Raycast(origin, dir, candidates)
	v.selectNode(hit.Node)
	if !ok {
		return nil, false
	}
	return v.selection(hit.Node), true
}

// ClearSelection restores the colours of the selected surface.
func (v *Viewer) ClearSelection() {
	v.mu.Lock()
	v.selectNode(nil)
	v.mu.Unlock()
}

func (v *Viewer) selectNode(n *scene.Node) {
	if v.selected != nil {
		v.selected.Selected = false
	}
	v.selected = n
	if n != nil {
		n.Selected = true
	}
}

func (v *Viewer) selection(n *scene.Node) *Selection {
	name := n.StringData("name")
	if name == "" {
		name = "Unknown"
	}
	sel := &Selection{
		Name:                    name,
		SurfaceType:             n.StringData("surfaceType"),
		Space:                   n.StringData("spaceName"),
		SpaceType:               n.StringData("spaceTypeName"),
		ThermalZone:             n.StringData("thermalZoneName"),
		BuildingStory:           n.StringData("buildingStoryName"),
		Construction:            n.StringData("constructionName"),
		BoundaryCondition:       n.StringData("outsideBoundaryCondition"),
		BoundaryConditionObject: n.StringData("outsideBoundaryConditionObjectName"),
		SunExposure:             n.StringData("sunExposure"),
		WindExposure:            n.StringData("windExposure"),
	}

	if v.opts.IncludeGeometryDiagnostics {
		flag := func(key string) *bool {
			if b, ok := n.BoolData(key); ok {
				return &b
			}
			return nil
		}
		sel.Convex = flag("convex")
		sel.CorrectlyOriented = flag("correctlyOriented")
		sel.SpaceConvex = flag("spaceConvex")
		sel.SpaceEnclosed = flag("spaceEnclosed")
	}

	if field := renderModeEmphasis[v.renderBy]; n.StringData(field) != "" {
		sel.Emphasized = field
	}
	return sel
}
