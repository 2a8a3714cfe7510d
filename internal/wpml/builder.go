package wpml

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/beevik/etree"

	"github.com/dronefield/flightplanner/internal/util"
)

const (
	kmlNamespace  = "http://www.opengis.net/kml/2.2"
	wpmlNamespace = "http://www.dji.com/wpmz/1.0.2"

	coordinateDigits = 15
)

// FormatValue renders a parameter value the way DJI writes it: integral
// numbers without a decimal point and booleans as 0/1.
func FormatValue(v any) string {
	switch x := v.(type) {
	case float64:
		return util.FormatNumber(x)
	case int:
		return strconv.Itoa(x)
	case int64:
		return strconv.FormatInt(x, 10)
	case bool:
		return util.FormatBool(x)
	case string:
		return x
	case fmt.Stringer:
		return x.String()
	}
	return fmt.Sprint(v)
}

func formatCoordinate(v float64) string {
	return util.FormatNumber(util.RoundSignificant(v, coordinateDigits))
}

func (c Coordinate) String() string {
	return formatCoordinate(c.Lon) + "," + formatCoordinate(c.Lat)
}

// add appends a wpml:<tag> element holding value.
func add(parent *etree.Element, tag string, value any) *etree.Element {
	el := parent.CreateElement("wpml:" + tag)
	el.SetText(FormatValue(value))
	return el
}

func newDocument() (*etree.Document, *etree.Element) {
	doc := etree.NewDocument()
	doc.CreateProcInst("xml", `version="1.0" encoding="UTF-8"`)
	root := doc.CreateElement("kml")
	root.CreateAttr("xmlns", kmlNamespace)
	root.CreateAttr("xmlns:wpml", wpmlNamespace)
	return doc, root.CreateElement("Document")
}

func addMissionConfig(parent *etree.Element, c MissionConfig) {
	mc := parent.CreateElement("wpml:missionConfig")
	add(mc, "flyToWaylineMode", c.FlyToWaylineMode)
	add(mc, "finishAction", c.FinishAction)
	add(mc, "exitOnRCLost", c.ExitOnRCLost)
	add(mc, "executeRCLostAction", c.ExecuteRCLostAction)
	add(mc, "takeOffSecurityHeight", c.TakeOffSecurityHeight)
	add(mc, "globalTransitionalSpeed", c.GlobalTransitionalSpeed)

	drone := mc.CreateElement("wpml:droneInfo")
	add(drone, "droneEnumValue", c.Drone.Value)
	add(drone, "droneSubEnumValue", c.Drone.SubValue)

	payload := mc.CreateElement("wpml:payloadInfo")
	add(payload, "payloadEnumValue", c.Payload.Value)
	add(payload, "payloadSubEnumValue", c.Payload.SubValue)
	add(payload, "payloadPositionIndex", 0)
}

// BuildTemplate renders the template.kml document of t.
func BuildTemplate(t *Template) *etree.Document {
	doc, d := newDocument()
	add(d, "createTime", t.Created.UnixMilli())
	add(d, "updateTime", t.Created.UnixMilli())
	addMissionConfig(d, t.Config)

	kind := t.Type
	if kind == "" {
		kind = TemplateTypeMapping2D
	}
	folder := d.CreateElement("Folder")
	add(folder, "templateType", kind)
	add(folder, "templateId", 0)

	sys := folder.CreateElement("wpml:waylineCoordinateSysParam")
	add(sys, "coordinateMode", coordinateModeWGS84)
	add(sys, "heightMode", t.HeightMode)
	add(sys, "globalShootHeight", t.GlobalShootHeight)
	add(sys, "positioningType", "GPS")
	add(folder, "autoFlightSpeed", t.AutoFlightSpeed)

	if kind == TemplateTypeWaypoint {
		addWaypointArea(folder, t)
	} else {
		addMappingArea(folder, t)
	}

	pp := folder.CreateElement("wpml:payloadParam")
	add(pp, "payloadPositionIndex", 0)
	add(pp, "focusMode", "firstPoint")
	add(pp, "meteringMode", "average")
	add(pp, "returnMode", t.Payload.ReturnMode)
	add(pp, "samplingRate", t.Payload.SamplingRate)
	add(pp, "scanningMode", t.Payload.ScanningMode)
	add(pp, "imageFormat", t.Payload.ImageFormat)

	doc.Indent(2)
	return doc
}

func addWaypointArea(folder *etree.Element, t *Template) {
	add(folder, "globalWaypointTurnMode", t.TurnMode)
	add(folder, "globalUseStraightLine", 1)
	add(folder, "gimbalPitchMode", "usePointSetting")
	add(folder, "globalHeight", t.Height)
	for i, p := range t.Points {
		pm := folder.CreateElement("Placemark")
		pm.CreateElement("Point").CreateElement("coordinates").SetText(p.Point.String())
		add(pm, "index", i)
		add(pm, "ellipsoidHeight", p.Height)
		add(pm, "height", p.Height)
		add(pm, "useGlobalHeight", 0)
		add(pm, "useGlobalSpeed", 1)
		add(pm, "useGlobalHeadingParam", 1)
		add(pm, "useGlobalTurnParam", 1)
	}
}

func addMappingArea(folder *etree.Element, t *Template) {
	pm := folder.CreateElement("Placemark")
	add(pm, "caliFlightEnable", t.CalibrateIMU)
	add(pm, "elevationOptimizeEnable", 0)
	add(pm, "smartObliqueEnable", 0)
	add(pm, "shootType", t.ShootType)
	add(pm, "direction", t.Direction)
	add(pm, "margin", t.Margin)

	overlap := pm.CreateElement("wpml:overlap")
	add(overlap, "orthoLidarOverlapH", t.Overlaps.LidarH)
	add(overlap, "orthoLidarOverlapW", t.Overlaps.LidarW)
	add(overlap, "orthoCameraOverlapH", t.Overlaps.CameraH)
	add(overlap, "orthoCameraOverlapW", t.Overlaps.CameraW)

	ring := pm.CreateElement("Polygon").
		CreateElement("outerBoundaryIs").
		CreateElement("LinearRing").
		CreateElement("coordinates")
	coords := make([]string, len(t.Polygon))
	for i, c := range t.Polygon {
		coords[i] = c.String() + ",0"
	}
	ring.SetText(strings.Join(coords, " "))

	add(pm, "ellipsoidHeight", t.EllipsoidHeight)
	add(pm, "height", t.Height)
}

// BuildWaylines renders the waylines.wpml document of w.
func BuildWaylines(w *Wayline) *etree.Document {
	doc, d := newDocument()
	addMissionConfig(d, w.Config)

	folder := d.CreateElement("Folder")
	add(folder, "templateId", w.TemplateID)
	add(folder, "executeHeightMode", w.ExecuteHeightMode)
	add(folder, "waylineId", w.WaylineID)
	add(folder, "distance", w.Distance)
	add(folder, "duration", w.Duration)
	add(folder, "autoFlightSpeed", w.AutoFlightSpeed)

	for _, p := range w.Placemarks {
		addPlacemark(folder, p)
	}

	doc.Indent(2)
	return doc
}

func addPlacemark(folder *etree.Element, p Placemark) {
	pm := folder.CreateElement("Placemark")
	pm.CreateElement("Point").CreateElement("coordinates").SetText(p.Point.String())
	add(pm, "index", p.Index)
	add(pm, "executeHeight", p.ExecuteHeight)
	add(pm, "waypointSpeed", p.Speed)

	heading := pm.CreateElement("wpml:waypointHeadingParam")
	add(heading, "waypointHeadingMode", p.HeadingMode)
	add(heading, "waypointHeadingAngle", p.HeadingAngle)
	add(heading, "waypointPoiPoint", "0.000000,0.000000,0.000000")
	add(heading, "waypointHeadingAngleEnable", p.HeadingAngleEnable)
	add(heading, "waypointHeadingPathMode", headingPathMode)

	turn := pm.CreateElement("wpml:waypointTurnParam")
	add(turn, "waypointTurnMode", p.TurnMode)
	add(turn, "waypointTurnDampingDist", p.TurnDampingDist)
	add(pm, "useStraightLine", p.UseStraightLine)

	for _, g := range p.Groups {
		addActionGroup(pm, g)
	}

	gimbal := pm.CreateElement("wpml:waypointGimbalHeadingParam")
	add(gimbal, "waypointGimbalPitchAngle", 0)
	add(gimbal, "waypointGimbalYawAngle", 0)
}

func addActionGroup(pm *etree.Element, g ActionGroup) {
	ag := pm.CreateElement("wpml:actionGroup")
	add(ag, "actionGroupId", g.ID)
	add(ag, "actionGroupStartIndex", g.StartIndex)
	add(ag, "actionGroupEndIndex", g.EndIndex)
	add(ag, "actionGroupMode", g.Mode)

	trigger := ag.CreateElement("wpml:actionTrigger")
	add(trigger, "actionTriggerType", g.Trigger)
	if g.TriggerParam != nil {
		add(trigger, "actionTriggerParam", *g.TriggerParam)
	}

	for _, a := range g.Actions {
		action := ag.CreateElement("wpml:action")
		add(action, "actionId", a.ID)
		add(action, "actionActuatorFunc", a.Func)
		params := action.CreateElement("wpml:actionActuatorFuncParam")
		for _, p := range a.Params {
			add(params, p.Key, p.Value)
		}
	}
}
