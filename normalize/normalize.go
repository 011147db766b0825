// Package normalize maps vendor telemetry payloads onto the gateway's
// canonical schema. Every function is total: missing or renamed fields fall
// through an ordered alias table and unknown fields are dropped.
package normalize

import (
	"fmt"

	"github.com/tidwall/gjson"
)

// DefaultOEMName is used when Options.OEMName is empty.
const DefaultOEMName = "Caterpillar"

// Options carries the context a record cannot provide itself.
type Options struct {
	OEMName string
	// Source tags time-series records with the producing vendor subsystem.
	Source string
	// AssetRef is used when a time-series record does not name its asset.
	AssetRef string
}

func (o Options) oemName() string {
	if o.OEMName == "" {
		return DefaultOEMName
	}
	return o.OEMName
}

// Asset field aliases, most plausible first.
var (
	assetID           = Aliases{"oemAssetId", "header.equipmentID", "header.equipmentId", "Header.EquipmentID", "equipmentID", "equipmentId", "assetId", "id"}
	assetOEMName      = Aliases{"oemName"}
	assetDisplayName  = Aliases{"displayName", "assetName", "name", "header.name", "Header.Name", "header.equipmentName"}
	assetMake         = Aliases{"make", "header.make", "Header.Make", "header.oemName", "Header.OEMName", "manufacturer"}
	assetModel        = Aliases{"model", "header.model", "Header.Model", "modelName"}
	assetSerial       = Aliases{"serialNumber", "header.serialNumber", "Header.SerialNumber", "serial", "pin", "vin"}
	assetHours        = Aliases{"operatingHours", "cumulativeOperatingHours.hour", "CumulativeOperatingHours.Hour", "engineHours", "hours"}
	assetFuel         = Aliases{"fuelPercent", "fuelRemaining.percent", "FuelRemaining.Percent", "fuelLevel"}
	assetEngineSpeed  = Aliases{"engineSpeed", "engineStatus.speed", "EngineStatus.Speed", "rpm"}
	assetLatitude     = Aliases{"latitude", "location.latitude", "Location.Latitude", "position.latitude", "lat"}
	assetLongitude    = Aliases{"longitude", "location.longitude", "Location.Longitude", "position.longitude", "lng", "lon"}
	assetAltitude     = Aliases{"altitude", "location.altitude", "Location.Altitude", "position.altitude"}
	assetSubscription = Aliases{"subscriptionStatus", "subscription.status", "header.subscriptionStatus", "Header.SubscriptionStatus"}

	deviceID       = Aliases{"deviceInfo.deviceId", "telematicsDevice.id", "header.telematicsDeviceId", "Header.TelematicsDeviceID"}
	deviceType     = Aliases{"deviceInfo.deviceType", "telematicsDevice.type", "header.telematicsDeviceType"}
	deviceFirmware = Aliases{"deviceInfo.firmwareVersion", "telematicsDevice.firmwareVersion"}
	deviceLastSeen = Aliases{"deviceInfo.lastReportedAt", "lastReportedAt", "snapshotTime", "header.snapshotTime"}
)

// Time-series aliases shared by every observation kind.
var (
	eventAssetRef  = Aliases{"assetRef", "equipmentID", "equipmentId", "EquipmentID", "assetId", "serialNumber", "SerialNumber", "header.equipmentID"}
	eventTimestamp = Aliases{"timestamp", "datetime", "dateTime", "DateTime", "Datetime", "time", "receivedTime"}
	eventSource    = Aliases{"source"}

	locationLatitude  = Aliases{"latitude", "Latitude", "lat", "position.latitude"}
	locationLongitude = Aliases{"longitude", "Longitude", "lng", "lon", "position.longitude"}
	locationAltitude  = Aliases{"altitude", "Altitude", "position.altitude"}
	locationAltUnits  = Aliases{"altitudeUnits", "AltitudeUnits"}

	hoursValue = Aliases{"hours", "Hour", "hour", "operatingHours", "value"}

	faultCode        = Aliases{"code", "CodeIdentifier", "codeIdentifier", "faultCode.code"}
	faultDescription = Aliases{"description", "CodeDescription", "codeDescription", "faultCode.description", "message"}
	faultSeverity    = Aliases{"severity", "CodeSeverity", "codeSeverity", "faultCode.severity"}
	faultComponent   = Aliases{"component", "CodeSource", "codeSource"}
	faultSPN         = Aliases{"spn", "SPN", "faultCode.spn"}
	faultFMI         = Aliases{"fmi", "FMI", "faultCode.fmi"}
	faultOccurrences = Aliases{"occurrences", "occurrence", "faultCode.occurrence", "count"}

	fuelPercent  = Aliases{"percent", "Percent", "fuelPercent", "fuelRemaining.percent"}
	fuelConsumed = Aliases{"consumed", "FuelConsumed", "fuelConsumed", "fuelUsed"}
	fuelUnits    = Aliases{"units", "FuelUnits", "fuelUnits"}
)

// ToAsset maps one raw equipment record.
func ToAsset(rec gjson.Result, opts Options) Asset {
	a := Asset{
		OEMName:            stringOr(rec, assetOEMName, opts.oemName()),
		OEMAssetID:         stringOr(rec, assetID, ""),
		DisplayName:        optString(rec, assetDisplayName),
		Make:               stringOr(rec, assetMake, opts.oemName()),
		Model:              optString(rec, assetModel),
		SerialNumber:       optString(rec, assetSerial),
		OperatingHours:     numberOr(rec, assetHours, 0),
		FuelPercent:        numberOr(rec, assetFuel, 0),
		EngineSpeed:        numberOr(rec, assetEngineSpeed, 0),
		Latitude:           optNumber(rec, assetLatitude),
		Longitude:          optNumber(rec, assetLongitude),
		Altitude:           optNumber(rec, assetAltitude),
		SubscriptionStatus: optString(rec, assetSubscription),
	}
	di := DeviceInfo{
		DeviceID:        optString(rec, deviceID),
		DeviceType:      optString(rec, deviceType),
		FirmwareVersion: optString(rec, deviceFirmware),
		LastReportedAt:  optString(rec, deviceLastSeen),
	}
	if di != (DeviceInfo{}) {
		a.DeviceInfo = &di
	}
	return a
}

func eventHeader(rec gjson.Result, opts Options) (assetRef, timestamp, source string) {
	return stringOr(rec, eventAssetRef, opts.AssetRef),
		Timestamp(rec, eventTimestamp),
		stringOr(rec, eventSource, opts.Source)
}

// ToLocation maps one raw position record.
func ToLocation(rec gjson.Result, opts Options) Location {
	l := Location{
		Latitude:      optNumber(rec, locationLatitude),
		Longitude:     optNumber(rec, locationLongitude),
		Altitude:      optNumber(rec, locationAltitude),
		AltitudeUnits: optString(rec, locationAltUnits),
	}
	l.AssetRef, l.Timestamp, l.Source = eventHeader(rec, opts)
	return l
}

// ToHours maps one raw hour-meter record.
func ToHours(rec gjson.Result, opts Options) Hours {
	h := Hours{Hours: optNumber(rec, hoursValue)}
	h.AssetRef, h.Timestamp, h.Source = eventHeader(rec, opts)
	return h
}

// ToFault maps one raw fault record. Without an explicit code the J1939
// SPN/FMI pair is used.
func ToFault(rec gjson.Result, opts Options) Fault {
	f := Fault{
		Description: optString(rec, faultDescription),
		Severity:    optString(rec, faultSeverity),
		Component:   optString(rec, faultComponent),
		SPN:         optString(rec, faultSPN),
		FMI:         optString(rec, faultFMI),
		Occurrences: optNumber(rec, faultOccurrences),
	}
	f.AssetRef, f.Timestamp, f.Source = eventHeader(rec, opts)
	if code, ok := String(rec, faultCode); ok {
		f.Code = code
	} else if f.SPN != nil && f.FMI != nil {
		f.Code = fmt.Sprintf("SPN %s FMI %s", *f.SPN, *f.FMI)
	}
	return f
}

// ToFuel maps one raw fuel record.
func ToFuel(rec gjson.Result, opts Options) Fuel {
	f := Fuel{
		Percent:  optNumber(rec, fuelPercent),
		Consumed: optNumber(rec, fuelConsumed),
		Units:    optString(rec, fuelUnits),
	}
	f.AssetRef, f.Timestamp, f.Source = eventHeader(rec, opts)
	return f
}
