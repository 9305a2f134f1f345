package dolphin

import "fmt"

// App groups deeds for the per-app daily limit.
type App uint8

const (
	AppSubGhz App = iota
	AppRfid
	AppNfc
	AppIr
	AppIbutton
	AppBadUsb
	AppPlugin
	appCount
)

func (a App) String() string {
	switch a {
	case AppSubGhz:
		return "subghz"
	case AppRfid:
		return "rfid"
	case AppNfc:
		return "nfc"
	case AppIr:
		return "ir"
	case AppIbutton:
		return "ibutton"
	case AppBadUsb:
		return "badusb"
	case AppPlugin:
		return "plugin"
	default:
		return fmt.Sprintf("app(%d)", uint8(a))
	}
}

// Deed is something the user did that earns experience.
type Deed uint8

const (
	DeedSubGhzReceiverInfo Deed = iota
	DeedSubGhzSave
	DeedSubGhzRawRec
	DeedSubGhzAddManually
	DeedSubGhzSend

	DeedRfidRead
	DeedRfidReadSuccess
	DeedRfidSave
	DeedRfidEmulate

	DeedNfcRead
	DeedNfcReadSuccess
	DeedNfcSave
	DeedNfcEmulate

	DeedIrSend
	DeedIrLearnSuccess
	DeedIrSave

	DeedIbuttonRead
	DeedIbuttonReadSuccess
	DeedIbuttonSave
	DeedIbuttonEmulate

	DeedBadUsbPlayScript

	DeedPluginStart
	DeedPluginGameStart
	DeedPluginGameWin

	deedCount
)

type deedWeight struct {
	app    App
	points uint32
}

var deedWeights = [deedCount]deedWeight{
	DeedSubGhzReceiverInfo: {AppSubGhz, 1},
	DeedSubGhzSave:         {AppSubGhz, 3},
	DeedSubGhzRawRec:       {AppSubGhz, 1},
	DeedSubGhzAddManually:  {AppSubGhz, 2},
	DeedSubGhzSend:         {AppSubGhz, 3},

	DeedRfidRead:        {AppRfid, 1},
	DeedRfidReadSuccess: {AppRfid, 3},
	DeedRfidSave:        {AppRfid, 3},
	DeedRfidEmulate:     {AppRfid, 2},

	DeedNfcRead:        {AppNfc, 1},
	DeedNfcReadSuccess: {AppNfc, 3},
	DeedNfcSave:        {AppNfc, 3},
	DeedNfcEmulate:     {AppNfc, 2},

	DeedIrSend:         {AppIr, 1},
	DeedIrLearnSuccess: {AppIr, 3},
	DeedIrSave:         {AppIr, 3},

	DeedIbuttonRead:        {AppIbutton, 1},
	DeedIbuttonReadSuccess: {AppIbutton, 3},
	DeedIbuttonSave:        {AppIbutton, 3},
	DeedIbuttonEmulate:     {AppIbutton, 2},

	DeedBadUsbPlayScript: {AppBadUsb, 3},

	DeedPluginStart:     {AppPlugin, 2},
	DeedPluginGameStart: {AppPlugin, 1},
	DeedPluginGameWin:   {AppPlugin, 10},
}

// Valid reports whether d is a known deed.
func (d Deed) Valid() bool { return d < deedCount }

// App returns the app the deed counts against.
func (d Deed) App() App {
	if !d.Valid() {
		return appCount
	}
	return deedWeights[d].app
}

// Points returns the experience the deed is worth.
func (d Deed) Points() uint32 {
	if !d.Valid() {
		return 0
	}
	return deedWeights[d].points
}

// DailyLimit caps the points one app can earn per day.
const DailyLimit = 20

// levelThresholds are the cumulative points at which each level starts.
var levelThresholds = []uint32{0, 300, 1800}

// Level returns the level reached with icounter points, counting from 1.
func Level(icounter uint32) int {
	level := 1
	for i, t := range levelThresholds {
		if icounter >= t {
			level = i + 1
		}
	}
	return level
}

// MaxLevel is the highest level.
func MaxLevel() int { return len(levelThresholds) }

// PointsToNextLevel returns the points still needed, or 0 at the top level.
func PointsToNextLevel(icounter uint32) uint32 {
	level := Level(icounter)
	if level >= MaxLevel() {
		return 0
	}
	return levelThresholds[level] - icounter
}
