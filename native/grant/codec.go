package grant

import (
	"crypto/sha256"
	"encoding/binary"
)

const (
	PopMessageVersionV1 uint8 = 1
	PopMessageVersionV2 uint8 = 2

	popMessageLenV1 = 1 + 32 + 32 + 8 + 32 + 32 + 32 + 8
	popMessageLenV2 = 1 + 32 + 32 + 8 + 32 + 32 + 32 + 32 + 8

	popDomainV1 = "we-ne:pop:v1"
	popDomainV2 = "we-ne:pop:v2"
)

// PopMessage is the decoded proof-of-process payload carried by the companion
// signature instruction. It is transient and never persisted.
type PopMessage struct {
	Version        uint8
	Grant          [32]byte
	Claimer        [32]byte
	PeriodIndex    uint64
	PrevHash       [32]byte
	StreamPrevHash [32]byte
	AuditHash      [32]byte // zero for version 1
	EntryHash      [32]byte
	IssuedAt       int64
}

// ParsePopMessage decodes a proof-of-process message. Dispatch is keyed on the
// version byte; each version carries its own exact length contract, so a new
// version can be added without loosening the checks for existing ones.
func ParsePopMessage(message []byte) (*PopMessage, error) {
	if len(message) == 0 {
		return nil, ErrInvalidPopMessageLength
	}
	version := message[0]
	var expectedLen int
	switch version {
	case PopMessageVersionV1:
		expectedLen = popMessageLenV1
	case PopMessageVersionV2:
		expectedLen = popMessageLenV2
	default:
		return nil, ErrInvalidPopMessageVersion
	}
	if len(message) != expectedLen {
		return nil, ErrInvalidPopMessageLength
	}

	offset := 1
	msg := &PopMessage{Version: version}
	var err error
	if msg.Grant, err = readHash32(message, &offset); err != nil {
		return nil, err
	}
	if msg.Claimer, err = readHash32(message, &offset); err != nil {
		return nil, err
	}
	if msg.PeriodIndex, err = readUint64LE(message, &offset); err != nil {
		return nil, err
	}
	if msg.PrevHash, err = readHash32(message, &offset); err != nil {
		return nil, err
	}
	if msg.StreamPrevHash, err = readHash32(message, &offset); err != nil {
		return nil, err
	}
	if version == PopMessageVersionV2 {
		if msg.AuditHash, err = readHash32(message, &offset); err != nil {
			return nil, err
		}
	}
	if msg.EntryHash, err = readHash32(message, &offset); err != nil {
		return nil, err
	}
	if msg.IssuedAt, err = readInt64LE(message, &offset); err != nil {
		return nil, err
	}
	return msg, nil
}

// EncodePopMessage serialises a message back to its wire form. Off-chain
// signers and tests use this to produce the bytes covered by the ed25519
// signature.
func EncodePopMessage(msg *PopMessage) ([]byte, error) {
	var size int
	switch msg.Version {
	case PopMessageVersionV1:
		size = popMessageLenV1
	case PopMessageVersionV2:
		size = popMessageLenV2
	default:
		return nil, ErrInvalidPopMessageVersion
	}
	out := make([]byte, 0, size)
	out = append(out, msg.Version)
	out = append(out, msg.Grant[:]...)
	out = append(out, msg.Claimer[:]...)
	out = binary.LittleEndian.AppendUint64(out, msg.PeriodIndex)
	out = append(out, msg.PrevHash[:]...)
	out = append(out, msg.StreamPrevHash[:]...)
	if msg.Version == PopMessageVersionV2 {
		out = append(out, msg.AuditHash[:]...)
	}
	out = append(out, msg.EntryHash[:]...)
	out = binary.LittleEndian.AppendUint64(out, uint64(msg.IssuedAt))
	return out, nil
}

// ComputeEntryHash recomputes the commitment binding a proof message to its
// predecessor and to the claim-specific fields. Domain tags differ per
// version so a version 1 hash can never be replayed as version 2.
func ComputeEntryHash(msg *PopMessage) ([32]byte, error) {
	var periodBytes, issuedAtBytes [8]byte
	binary.LittleEndian.PutUint64(periodBytes[:], msg.PeriodIndex)
	binary.LittleEndian.PutUint64(issuedAtBytes[:], uint64(msg.IssuedAt))

	h := sha256.New()
	switch msg.Version {
	case PopMessageVersionV1:
		h.Write([]byte(popDomainV1))
		h.Write(msg.PrevHash[:])
		h.Write(msg.StreamPrevHash[:])
	case PopMessageVersionV2:
		h.Write([]byte(popDomainV2))
		h.Write(msg.PrevHash[:])
		h.Write(msg.StreamPrevHash[:])
		h.Write(msg.AuditHash[:])
	default:
		return [32]byte{}, ErrInvalidPopMessageVersion
	}
	h.Write(msg.Grant[:])
	h.Write(msg.Claimer[:])
	h.Write(periodBytes[:])
	h.Write(issuedAtBytes[:])

	var out [32]byte
	copy(out[:], h.Sum(nil))
	return out, nil
}

func readHash32(data []byte, offset *int) ([32]byte, error) {
	var out [32]byte
	end := *offset + 32
	if end < *offset || end > len(data) {
		return out, ErrInvalidPopMessageLength
	}
	copy(out[:], data[*offset:end])
	*offset = end
	return out, nil
}

func readUint64LE(data []byte, offset *int) (uint64, error) {
	end := *offset + 8
	if end < *offset || end > len(data) {
		return 0, ErrInvalidPopMessageLength
	}
	out := binary.LittleEndian.Uint64(data[*offset:end])
	*offset = end
	return out, nil
}

func readInt64LE(data []byte, offset *int) (int64, error) {
	raw, err := readUint64LE(data, offset)
	if err != nil {
		return 0, err
	}
	return int64(raw), nil
}
