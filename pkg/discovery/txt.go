package discovery

import (
	"fmt"
	"strings"
)

// TXT record keys for the _raop._tcp service.
const (
	// TXTKeyTXTVersion is the TXT record format version key.
	TXTKeyTXTVersion = "txtvers"

	// TXTKeyChannels is the audio channel count key.
	TXTKeyChannels = "ch"

	// TXTKeyCompression is the supported compression types key.
	TXTKeyCompression = "cn"

	// TXTKeyEncryption is the supported encryption types key.
	TXTKeyEncryption = "et"

	// TXTKeyMetadata is the supported metadata types key.
	TXTKeyMetadata = "md"

	// TXTKeyPassword indicates whether a password is required.
	TXTKeyPassword = "pw"

	// TXTKeySampleRate is the audio sample rate key.
	TXTKeySampleRate = "sr"

	// TXTKeySampleSize is the audio sample size key (bits).
	TXTKeySampleSize = "ss"

	// TXTKeyTransport is the audio transport protocol key.
	TXTKeyTransport = "tp"

	// TXTKeyVersion is the protocol version key.
	TXTKeyVersion = "vn"

	// TXTKeyServerVersion is the server version string key.
	TXTKeyServerVersion = "vs"

	// TXTKeyModel is the device model key.
	TXTKeyModel = "am"

	// TXTKeyStatusFlags is the status flags key.
	TXTKeyStatusFlags = "sf"
)

// TXT record keys for the _airplay._tcp service.
const (
	// TXTKeyDeviceID is the colon-separated MAC address key.
	TXTKeyDeviceID = "deviceid"

	// TXTKeyFeatures is the feature bitmask key.
	TXTKeyFeatures = "features"

	// TXTKeyAirPlayModel is the device model key.
	TXTKeyAirPlayModel = "model"

	// TXTKeySourceVersion is the AirPlay source version key.
	TXTKeySourceVersion = "srcvers"

	// TXTKeyFlags is the status flags key.
	TXTKeyFlags = "flags"

	// TXTKeyPublicKeyID is the pairing identity key.
	TXTKeyPublicKeyID = "pi"

	// TXTKeyPublicKey is the Ed25519 public key (hex) key.
	TXTKeyPublicKey = "pk"
)

// MaxNameLength is the maximum length of the advertised device name.
const MaxNameLength = 63

// Defaults advertised when the corresponding field is zero.
const (
	DefaultSampleRate    = 44100
	DefaultSampleSize    = 16
	DefaultChannels      = 2
	DefaultServerVersion = "377.40.00"
	DefaultModel         = "AudioAccessory1,1"
)

// RAOPTXT holds TXT records for the _raop._tcp service.
type RAOPTXT struct {
	// Channels is the audio channel count. Zero means stereo.
	Channels int

	// SampleRate is the audio sample rate in Hz. Zero means 44100.
	SampleRate int

	// SampleSize is the audio sample size in bits. Zero means 16.
	SampleSize int

	// CompressionTypes lists supported compression types ("0,1").
	CompressionTypes string

	// EncryptionTypes lists supported encryption types ("0,1").
	EncryptionTypes string

	// MetadataTypes lists supported metadata types ("0,1,2").
	MetadataTypes string

	// PasswordRequired indicates whether the receiver is password protected.
	PasswordRequired bool

	// ServerVersion is the advertised server version. Zero means 377.40.00.
	ServerVersion string

	// Model is the advertised device model.
	Model string

	// StatusFlags is the receiver status bitmap.
	StatusFlags uint32
}

// Encode converts the TXT record to DNS-SD format strings.
func (r *RAOPTXT) Encode() []string {
	channels := r.Channels
	if channels == 0 {
		channels = DefaultChannels
	}
	sampleRate := r.SampleRate
	if sampleRate == 0 {
		sampleRate = DefaultSampleRate
	}
	sampleSize := r.SampleSize
	if sampleSize == 0 {
		sampleSize = DefaultSampleSize
	}
	compression := r.CompressionTypes
	if compression == "" {
		compression = "0,1"
	}
	encryption := r.EncryptionTypes
	if encryption == "" {
		encryption = "0,1"
	}
	metadata := r.MetadataTypes
	if metadata == "" {
		metadata = "0,1,2"
	}
	version := r.ServerVersion
	if version == "" {
		version = DefaultServerVersion
	}
	model := r.Model
	if model == "" {
		model = DefaultModel
	}
	password := "false"
	if r.PasswordRequired {
		password = "true"
	}

	return []string{
		TXTKeyTXTVersion + "=1",
		fmt.Sprintf("%s=%d", TXTKeyChannels, channels),
		TXTKeyCompression + "=" + compression,
		TXTKeyEncryption + "=" + encryption,
		TXTKeyMetadata + "=" + metadata,
		TXTKeyPassword + "=" + password,
		fmt.Sprintf("%s=%d", TXTKeySampleRate, sampleRate),
		fmt.Sprintf("%s=%d", TXTKeySampleSize, sampleSize),
		TXTKeyTransport + "=UDP",
		TXTKeyVersion + "=65537",
		TXTKeyServerVersion + "=" + version,
		TXTKeyModel + "=" + model,
		fmt.Sprintf("%s=0x%x", TXTKeyStatusFlags, r.StatusFlags),
	}
}

// AirPlayTXT holds TXT records for the _airplay._tcp service.
type AirPlayTXT struct {
	// DeviceID is the 6-byte device MAC address.
	DeviceID [6]byte

	// Features is the advertised feature bitmask.
	Features uint64

	// Model is the advertised device model.
	Model string

	// SourceVersion is the AirPlay source version. Zero means 377.40.00.
	SourceVersion string

	// Flags is the status flags bitmap.
	Flags uint32

	// PairingIdentity is the pairing UUID (optional).
	PairingIdentity string

	// PublicKey is the hex-encoded Ed25519 public key (optional).
	PublicKey string
}

// Encode converts the TXT record to DNS-SD format strings.
func (a *AirPlayTXT) Encode() []string {
	model := a.Model
	if model == "" {
		model = DefaultModel
	}
	version := a.SourceVersion
	if version == "" {
		version = DefaultServerVersion
	}

	txt := []string{
		TXTKeyDeviceID + "=" + FormatDeviceID(a.DeviceID),
		// Upper 32 bits after the lower 32 bits, Apple's split-hex notation.
		fmt.Sprintf("%s=0x%X,0x%X", TXTKeyFeatures, uint32(a.Features), uint32(a.Features>>32)),
		TXTKeyAirPlayModel + "=" + model,
		TXTKeySourceVersion + "=" + version,
		fmt.Sprintf("%s=0x%x", TXTKeyFlags, a.Flags),
	}

	if a.PairingIdentity != "" {
		txt = append(txt, TXTKeyPublicKeyID+"="+a.PairingIdentity)
	}
	if a.PublicKey != "" {
		txt = append(txt, TXTKeyPublicKey+"="+a.PublicKey)
	}

	return txt
}

// FormatDeviceID renders a MAC address as colon-separated uppercase hex.
func FormatDeviceID(id [6]byte) string {
	return fmt.Sprintf("%02X:%02X:%02X:%02X:%02X:%02X",
		id[0], id[1], id[2], id[3], id[4], id[5])
}

// RAOPInstanceName builds the _raop._tcp instance name: the device ID as
// 12 bare hex digits, an @ separator, then the friendly name.
func RAOPInstanceName(id [6]byte, name string) string {
	return fmt.Sprintf("%02X%02X%02X%02X%02X%02X@%s",
		id[0], id[1], id[2], id[3], id[4], id[5], name)
}

// ParseTXT parses raw TXT record strings into a map.
func ParseTXT(records []string) map[string]string {
	result := make(map[string]string)
	for _, record := range records {
		if idx := strings.IndexByte(record, '='); idx > 0 {
			result[record[:idx]] = record[idx+1:]
		}
	}
	return result
}
