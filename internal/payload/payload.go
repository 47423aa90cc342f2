// Package payload packs watermark metadata into the 64-bit wire payload:
// 56 bits of fields plus an 8-bit CRC checksum.
package payload

// PackedMetadata is the decoded form of one watermark payload.
type PackedMetadata struct {
	SchemaVersion  int `json:"schema_version"`
	IssuerID       int `json:"issuer_id"`
	ModelID        int `json:"model_id"`
	ModelVersionID int `json:"model_version_id"`
	KeyID          int `json:"key_id"`
}

// Field widths within the 56-bit word, most-significant first:
// schema_version(4) | issuer_id(12) | model_id(16) | model_version_id(16) | key_id(8).
const (
	schemaShift   = 52
	issuerShift   = 40
	modelShift    = 24
	modelVerShift = 8

	schemaMask   = 0xF
	issuerMask   = 0xFFF
	modelMask    = 0xFFFF
	modelVerMask = 0xFFFF
	keyMask      = 0xFF
)

// crc8Poly is the CRC-8 generator polynomial (SMBUS-style: no reflection,
// init 0, no final XOR).
const crc8Poly = 0x07

// CRC8 computes the 8-bit CRC over data, MSB-first, polynomial 0x07.
func CRC8(data []byte) byte {
	var crc byte
	for _, b := range data {
		crc ^= b
		for i := 0; i < 8; i++ {
			if crc&0x80 != 0 {
				crc = (crc << 1) ^ crc8Poly
			} else {
				crc <<= 1
			}
		}
	}
	return crc
}

// Pack serializes meta into a 64-bit payload. Fields are masked to their
// declared widths: out-of-range values are truncated, never rejected.
func Pack(meta PackedMetadata) uint64 {
	raw56 := uint64(meta.SchemaVersion&schemaMask)<<schemaShift |
		uint64(meta.IssuerID&issuerMask)<<issuerShift |
		uint64(meta.ModelID&modelMask)<<modelShift |
		uint64(meta.ModelVersionID&modelVerMask)<<modelVerShift |
		uint64(meta.KeyID&keyMask)

	checksum := CRC8(raw56Bytes(raw56))
	return raw56<<8 | uint64(checksum)
}

// Unpack deserializes a 64-bit payload. It never fails: the returned bool
// reports whether the stored checksum matches the recomputed one, so callers
// can surface "tag found but payload corrupted" instead of dropping it.
func Unpack(payload uint64) (PackedMetadata, bool) {
	raw56 := payload >> 8
	checksum := byte(payload & keyMask)
	valid := CRC8(raw56Bytes(raw56)) == checksum

	meta := PackedMetadata{
		SchemaVersion:  int(raw56 >> schemaShift & schemaMask),
		IssuerID:       int(raw56 >> issuerShift & issuerMask),
		ModelID:        int(raw56 >> modelShift & modelMask),
		ModelVersionID: int(raw56 >> modelVerShift & modelVerMask),
		KeyID:          int(raw56 & keyMask),
	}
	return meta, valid
}

// raw56Bytes returns the 7-byte big-endian serialization of the 56-bit word.
// The CRC is always computed over this form for wire compatibility.
func raw56Bytes(raw56 uint64) []byte {
	return []byte{
		byte(raw56 >> 48),
		byte(raw56 >> 40),
		byte(raw56 >> 32),
		byte(raw56 >> 24),
		byte(raw56 >> 16),
		byte(raw56 >> 8),
		byte(raw56),
	}
}
