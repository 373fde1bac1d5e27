package db

import (
	"time"
)

// Request types carried on an incoming packet. A missing type means pull.
const (
	RequestTypePull        = "pull"
	RequestTypeEdit        = "edit"
	RequestTypeDelete      = "delete"
	RequestTypeWellHistory = "wellHistory"
)

// PullPacket is an inbox entry: a raw pull, edit or delete request produced
// by the mobile app or dashboard. It lives only until the matching handler
// consumes it; deleting the row doubles as the ack.
type PullPacket struct {
	PacketKey            string    `json:"packetKey"`
	WellName             string    `json:"wellName"`
	RequestType          string    `json:"requestType,omitempty"`
	TargetPacketID       string    `json:"targetPacketId,omitempty"`
	DateTime             time.Time `json:"dateTime"`
	TankLevelFeet        *float64  `json:"tankLevelFeet,omitempty"`
	TankTopInches        *float64  `json:"tankTopInches,omitempty"`
	BblsTaken            *float64  `json:"bblsTaken,omitempty"`
	DriverName           string    `json:"driverName,omitempty"`
	DriverID             string    `json:"driverId,omitempty"`
	WellDown             bool      `json:"wellDown,omitempty"`
	PredictedLevelInches *float64  `json:"predictedLevelInches,omitempty"`
	RetriggeredFrom      string    `json:"retriggeredFrom,omitempty"`
	CreatedAt            time.Time `json:"createdAt"`
}

// ProcessedPacket is the permanent per-pull history record, keyed by the
// original packet id. Edits overwrite fields in place; deletes remove the
// whole row. History order is reconstructed by sorting on DateTime.
type ProcessedPacket struct {
	PacketID             string
	WellName             string
	RequestType          string
	DateTime             time.Time
	TankLevelFeet        float64
	TankTopInches        float64
	TankAfterInches      float64
	BblsTaken            float64
	DriverName           string
	DriverID             string
	WellDown             bool
	TimeDifDays          float64
	RecoveryInches       float64
	FlowRateDays         float64
	RecoveryNeededInches float64
	DaysToPull           float64
	NextPullTime         *time.Time
	AnomalyLevel         string
	WasEdited            bool
	ProcessedAt          time.Time
	EditedAt             *time.Time
	EditedBy             *string
}

// WellConfig is admin-owned well configuration. This worker only writes the
// cached flow-rate fields back; everything else is read-only here.
type WellConfig struct {
	WellName           string
	Tanks              float64
	BottomLevelFeet    float64
	PullBbls           float64
	Route              string
	AvgFlowRateDisplay string
	MinutesPerFoot     float64
}

// WellStatus is the single live outgoing status document for a well.
// Handlers replace it wholesale; at most one non-deleted row exists per
// well at any time.
type WellStatus struct {
	ResponseKey         string     `json:"responseKey"`
	WellName            string     `json:"wellName"`
	CurrentLevelDisplay string     `json:"currentLevel"`
	CurrentLevelInches  float64    `json:"currentLevelInches"`
	FlowRateDisplay     string     `json:"flowRate"`
	FlowRateDays        float64    `json:"flowRateDays"`
	Bbls24Hrs           int        `json:"bbls24hrs"`
	WindowBblsDay       int        `json:"windowBblsDay"`
	OvernightBblsDay    int        `json:"overnightBblsDay"`
	TimeTillPull        string     `json:"timeTillPull"`
	NextPullTime        *time.Time `json:"nextPullTime,omitempty"`
	LastPullLevelInches float64    `json:"lastPullLevelInches"`
	LastPullBbls        float64    `json:"lastPullBbls"`
	LastPullDriver      string     `json:"lastPullDriver"`
	LastPullTime        time.Time  `json:"lastPullTime"`
	LastPullPacketID    string     `json:"lastPullPacketId"`
	IsDown              bool       `json:"isDown"`
	UpdatedAt           time.Time  `json:"updatedAt"`
}

// ProductionLogEntry is the per-well per-production-day volume record.
type ProductionLogEntry struct {
	WellKey          string
	Date             string
	AfrBblsDay       int
	WindowBblsDay    int
	OvernightBblsDay int
	UpdatedAt        time.Time
	PullCount        int
}

// PerformanceSample records predicted vs. actual tank level at pull time,
// written only when the producer supplied a prediction.
type PerformanceSample struct {
	WellKey         string
	Timestamp       time.Time
	Date            string
	ActualInches    float64
	PredictedInches float64
}

// HealthSummary is a named system-health document ("watchdog" or "overall").
type HealthSummary struct {
	Name      string         `json:"name"`
	Status    string         `json:"status"`
	Detail    map[string]any `json:"detail"`
	UpdatedAt time.Time      `json:"updatedAt"`
}
