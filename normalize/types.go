package normalize

// Asset is the canonical equipment record. Pointer fields are nil when the
// vendor did not report them; the three gauges always carry a value.
type Asset struct {
	OEMName            string      `json:"oemName"`
	OEMAssetID         string      `json:"oemAssetId"`
	DisplayName        *string     `json:"displayName,omitempty"`
	Make               string      `json:"make"`
	Model              *string     `json:"model,omitempty"`
	SerialNumber       *string     `json:"serialNumber,omitempty"`
	OperatingHours     float64     `json:"operatingHours"`
	FuelPercent        float64     `json:"fuelPercent"`
	EngineSpeed        float64     `json:"engineSpeed"`
	Latitude           *float64    `json:"latitude,omitempty"`
	Longitude          *float64    `json:"longitude,omitempty"`
	Altitude           *float64    `json:"altitude,omitempty"`
	SubscriptionStatus *string     `json:"subscriptionStatus,omitempty"`
	DeviceInfo         *DeviceInfo `json:"deviceInfo,omitempty"`
}

// DeviceInfo describes the telematics unit fitted to an asset.
type DeviceInfo struct {
	DeviceID        *string `json:"deviceId,omitempty"`
	DeviceType      *string `json:"deviceType,omitempty"`
	FirmwareVersion *string `json:"firmwareVersion,omitempty"`
	LastReportedAt  *string `json:"lastReportedAt,omitempty"`
}

// Location is a position observation.
type Location struct {
	AssetRef      string   `json:"assetRef"`
	Timestamp     string   `json:"timestamp"`
	Source        string   `json:"source"`
	Latitude      *float64 `json:"latitude,omitempty"`
	Longitude     *float64 `json:"longitude,omitempty"`
	Altitude      *float64 `json:"altitude,omitempty"`
	AltitudeUnits *string  `json:"altitudeUnits,omitempty"`
}

// Hours is an hour-meter reading.
type Hours struct {
	AssetRef  string   `json:"assetRef"`
	Timestamp string   `json:"timestamp"`
	Source    string   `json:"source"`
	Hours     *float64 `json:"hours,omitempty"`
}

// Fault is a diagnostic trouble code occurrence.
type Fault struct {
	AssetRef    string   `json:"assetRef"`
	Timestamp   string   `json:"timestamp"`
	Source      string   `json:"source"`
	Code        string   `json:"code"`
	Description *string  `json:"description,omitempty"`
	Severity    *string  `json:"severity,omitempty"`
	Component   *string  `json:"component,omitempty"`
	SPN         *string  `json:"spn,omitempty"`
	FMI         *string  `json:"fmi,omitempty"`
	Occurrences *float64 `json:"occurrences,omitempty"`
}

// Fuel is a fuel level or consumption reading.
type Fuel struct {
	AssetRef  string   `json:"assetRef"`
	Timestamp string   `json:"timestamp"`
	Source    string   `json:"source"`
	Percent   *float64 `json:"percent,omitempty"`
	Consumed  *float64 `json:"consumed,omitempty"`
	Units     *string  `json:"units,omitempty"`
}

// FleetEnvelope is the response of the assets method.
type FleetEnvelope struct {
	Assets []Asset `json:"assets"`
}
