package wpml

import (
	"bytes"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/beevik/etree"
	"github.com/google/uuid"
	"github.com/klauspost/compress/zip"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testWayline() *Wayline {
	param := 4.5
	return &Wayline{
		Config:            DefaultMissionConfig(),
		ExecuteHeightMode: HeightRelativeToStart,
		Distance:          1045.2,
		Duration:          348.4,
		AutoFlightSpeed:   3,
		Placemarks: []Placemark{
			{
				Point: Coordinate{Lon: 7.999213456789012345, Lat: 47.0005}, Index: 0,
				ExecuteHeight: 50, Speed: 3, HeadingMode: "smoothTransition", HeadingAngle: 90.7,
				HeadingAngleEnable: true, TurnMode: "toPointAndStopWithDiscontinuityCurvature", UseStraightLine: true,
				Groups: []ActionGroup{{
					ID: 0, StartIndex: 0, EndIndex: 1, Mode: "sequence",
					Trigger: "multipleDistance", TriggerParam: &param,
					Actions: []Action{
						{ID: 0, Func: "gimbalRotate", Params: []Param{{"gimbalPitchRotateAngle", -90.0}, {"gimbalRotateTimeEnable", true}}},
						{ID: 1, Func: "startContinuousShooting", Params: []Param{{"payloadLensIndex", "visable,narrow_band"}}},
					},
				}},
			},
			{
				Point: Coordinate{Lon: 8.0008, Lat: 47.0005}, Index: 1,
				ExecuteHeight: 50.5, Speed: 3, HeadingMode: "smoothTransition",
				TurnMode: "toPointAndStopWithDiscontinuityCurvature", UseStraightLine: true,
			},
		},
	}
}

func TestFormatValue(t *testing.T) {
	tests := []struct {
		in   any
		want string
	}{
		{50.0, "50"},
		{50.5, "50.5"},
		{-90.0, "-90"},
		{3, "3"},
		{int64(1700000000000), "1700000000000"},
		{true, "1"},
		{false, "0"},
		{"sequence", "sequence"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, FormatValue(tt.in))
	}
}

func TestCoordinate_String(t *testing.T) {
	c := Coordinate{Lon: 7.999213456789012345, Lat: 47}
	assert.Equal(t, "7.99921345678901,47", c.String())
}

func TestBuildWaylines(t *testing.T) {
	doc := BuildWaylines(testWayline())
	root := doc.SelectElement("kml")
	require.NotNil(t, root)
	assert.Equal(t, wpmlNamespace, root.SelectAttrValue("xmlns:wpml", ""))

	folder := root.FindElement("Document/Folder")
	require.NotNil(t, folder)
	assert.Equal(t, "relativeToStartPoint", folder.FindElement("wpml:executeHeightMode").Text())
	assert.Equal(t, "1045.2", folder.FindElement("wpml:distance").Text())

	placemarks := folder.SelectElements("Placemark")
	require.Len(t, placemarks, 2)
	first := placemarks[0]
	assert.Equal(t, "7.99921345678901,47.0005", first.FindElement("Point/coordinates").Text())
	assert.Equal(t, "50", first.FindElement("wpml:executeHeight").Text())
	assert.Equal(t, "90.7", first.FindElement("wpml:waypointHeadingParam/wpml:waypointHeadingAngle").Text())
	assert.Equal(t, "1", first.FindElement("wpml:useStraightLine").Text())

	group := first.FindElement("wpml:actionGroup")
	require.NotNil(t, group)
	assert.Equal(t, "1", group.FindElement("wpml:actionGroupEndIndex").Text())
	assert.Equal(t, "4.5", group.FindElement("wpml:actionTrigger/wpml:actionTriggerParam").Text())
	actions := group.SelectElements("wpml:action")
	require.Len(t, actions, 2)
	assert.Equal(t, "-90", actions[0].FindElement("wpml:actionActuatorFuncParam/wpml:gimbalPitchRotateAngle").Text())
	assert.Equal(t, "1", actions[0].FindElement("wpml:actionActuatorFuncParam/wpml:gimbalRotateTimeEnable").Text())

	assert.Nil(t, placemarks[1].FindElement("wpml:actionGroup"))
	assert.Equal(t, "50.5", placemarks[1].FindElement("wpml:executeHeight").Text())
}

func TestBuildTemplate(t *testing.T) {
	tpl := &Template{
		Created:           time.UnixMilli(1700000000000),
		Config:            DefaultMissionConfig(),
		HeightMode:        HeightRelativeToStart,
		GlobalShootHeight: 50,
		AutoFlightSpeed:   3,
		CalibrateIMU:      true,
		ShootType:         ShootTypeDistance,
		Direction:         90,
		Margin:            10,
		Overlaps:          Overlaps{LidarH: 90, LidarW: 66, CameraH: 90, CameraW: 66},
		Polygon:           []Coordinate{{8, 47}, {8.001, 47}, {8.001, 47.001}, {8, 47.001}},
		Payload:           PayloadParam{ReturnMode: "quintupleReturn", SamplingRate: 240000, ScanningMode: "nonRepetitive", ImageFormat: "visable"},
	}
	tpl.Config.Drone = Enum{Value: 77, SubValue: 1}

	doc := BuildTemplate(tpl)
	d := doc.FindElement("kml/Document")
	require.NotNil(t, d)
	assert.Equal(t, "1700000000000", d.FindElement("wpml:createTime").Text())
	assert.Equal(t, "77", d.FindElement("wpml:missionConfig/wpml:droneInfo/wpml:droneEnumValue").Text())

	pm := d.FindElement("Folder/Placemark")
	require.NotNil(t, pm)
	assert.Equal(t, "1", pm.FindElement("wpml:caliFlightEnable").Text())
	assert.Equal(t, "66", pm.FindElement("wpml:overlap/wpml:orthoCameraOverlapW").Text())
	coords := pm.FindElement("Polygon/outerBoundaryIs/LinearRing/coordinates").Text()
	assert.Len(t, strings.Fields(coords), 4)
	assert.Equal(t, "mapping2d", d.FindElement("Folder/wpml:templateType").Text())
	assert.Equal(t, "quintupleReturn", d.FindElement("Folder/wpml:payloadParam/wpml:returnMode").Text())
}

func TestBuildTemplate_Waypoint(t *testing.T) {
	tpl := &Template{
		Type:              TemplateTypeWaypoint,
		Created:           time.UnixMilli(1700000000000),
		Config:            DefaultMissionConfig(),
		HeightMode:        HeightRelativeToStart,
		GlobalShootHeight: 60,
		AutoFlightSpeed:   5,
		Height:            60,
		TurnMode:          "toPointAndStopWithDiscontinuityCurvature",
		Points: []TemplatePoint{
			{Point: Coordinate{Lon: 8, Lat: 47}, Height: 60},
			{Point: Coordinate{Lon: 8, Lat: 47}, Height: 10},
			{Point: Coordinate{Lon: 8, Lat: 47}, Height: 60},
		},
		Payload: PayloadParam{ImageFormat: "wide,zoom"},
	}

	d := BuildTemplate(tpl).FindElement("kml/Document")
	require.NotNil(t, d)
	assert.Equal(t, "waypoint", d.FindElement("Folder/wpml:templateType").Text())
	assert.Equal(t, "toPointAndStopWithDiscontinuityCurvature", d.FindElement("Folder/wpml:globalWaypointTurnMode").Text())

	placemarks := d.FindElements("Folder/Placemark")
	require.Len(t, placemarks, 3)
	assert.Equal(t, "8,47", placemarks[1].FindElement("Point/coordinates").Text())
	assert.Equal(t, "1", placemarks[1].FindElement("wpml:index").Text())
	assert.Equal(t, "10", placemarks[1].FindElement("wpml:height").Text())
	assert.Nil(t, placemarks[0].FindElement("Polygon"))
	assert.Equal(t, "wide,zoom", d.FindElement("Folder/wpml:payloadParam/wpml:imageFormat").Text())
}

func TestWayline_Validate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(w *Wayline)
	}{
		{"index gap", func(w *Wayline) { w.Placemarks[1].Index = 2 }},
		{"end before start", func(w *Wayline) { w.Placemarks[0].Groups[0].EndIndex = -1 }},
		{"end after last", func(w *Wayline) { w.Placemarks[0].Groups[0].EndIndex = 2 }},
		{"misplaced group", func(w *Wayline) { w.Placemarks[0].Groups[0].StartIndex = 1 }},
		{"empty group", func(w *Wayline) { w.Placemarks[0].Groups[0].Actions = nil }},
		{"zero speed", func(w *Wayline) { w.Placemarks[1].Speed = 0 }},
		{"single waypoint", func(w *Wayline) { w.Placemarks = w.Placemarks[:1] }},
	}
	require.NoError(t, testWayline().Validate())
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := testWayline()
			tt.mutate(w)
			assert.ErrorIs(t, w.Validate(), ErrInvalidMission)
		})
	}
}

func readEntries(t *testing.T, path string) map[string][]byte {
	t.Helper()
	r, err := zip.OpenReader(path)
	require.NoError(t, err)
	defer r.Close()

	out := make(map[string][]byte)
	for _, f := range r.File {
		rc, err := f.Open()
		require.NoError(t, err)
		data, err := io.ReadAll(rc)
		rc.Close()
		require.NoError(t, err)
		out[f.Name] = data
	}
	return out
}

func TestArchive_Write(t *testing.T) {
	dir := t.TempDir()
	res := filepath.Join(dir, "plot.tif")
	require.NoError(t, os.WriteFile(res, []byte("dsm"), 0644))

	a := &Archive{
		Template:  &Template{Created: time.Now(), Config: DefaultMissionConfig()},
		Wayline:   testWayline(),
		Resources: map[string]string{"dsm/plot.tif": res},
	}
	dest := filepath.Join(dir, "out", "mission.kmz")
	require.NoError(t, a.Write(dest))

	entries := readEntries(t, dest)
	require.Contains(t, entries, TemplateEntry)
	require.Contains(t, entries, WaylinesEntry)
	assert.Equal(t, []byte("dsm"), entries["wpmz/res/dsm/plot.tif"])

	doc := etree.NewDocument()
	require.NoError(t, doc.ReadFromBytes(entries[WaylinesEntry]))
	assert.Len(t, doc.FindElements("//Placemark"), 2)
}

func TestArchive_WriteInvalid(t *testing.T) {
	w := testWayline()
	w.Placemarks[1].Index = 5
	a := &Archive{Template: &Template{}, Wayline: w}
	dest := filepath.Join(t.TempDir(), "mission.kmz")
	assert.ErrorIs(t, a.Write(dest), ErrInvalidMission)
	assert.NoFileExists(t, dest)

	assert.ErrorIs(t, (&Archive{}).Write(dest), ErrInvalidMission)
}

func TestSlotPath(t *testing.T) {
	id := uuid.MustParse("3f2b8c1e-1111-4a2b-9c3d-0123456789ab")
	want := filepath.Join("out", "3F2B8C1E-1111-4A2B-9C3D-0123456789AB", "3F2B8C1E-1111-4A2B-9C3D-0123456789AB.kmz")
	assert.Equal(t, want, SlotPath("out", id))
}

func TestWritePreview(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WritePreview(&buf, "mission", testWayline(), true))

	doc := etree.NewDocument()
	require.NoError(t, doc.ReadFromBytes(buf.Bytes()))
	line := doc.FindElement("//LineString/coordinates")
	require.NotNil(t, line)
	assert.Len(t, strings.Fields(line.Text()), 2)
	assert.Equal(t, "relativeToGround", doc.FindElement("//LineString/altitudeMode").Text())
	// one marker for the waypoint with actions
	assert.Len(t, doc.FindElements("//Point"), 1)
}
