package grant

import "crypto/sha256"

// Ed25519ProgramID identifies the native signature-verification program a
// claim's companion instruction must target.
var Ed25519ProgramID = deriveProgramID("we-ne:program:ed25519")

func deriveProgramID(name string) [32]byte {
	return sha256.Sum256([]byte(name))
}

const (
	ed25519HeaderLen     = 16
	ed25519SignatureLen  = 64
	ed25519PublicKeyLen  = 32
	inlineInstructionIdx = 0xFFFF
)

// Instruction is one entry of the transaction-scoped instruction list.
type Instruction struct {
	ProgramID [32]byte
	Data      []byte
}

// InstructionReader exposes the enclosing transaction's instruction list to
// the claim engine. Implementations are expected to return the instructions
// exactly as submitted; tests supply in-memory fixtures.
type InstructionReader interface {
	// CurrentIndex returns the position of the claim instruction within the
	// transaction.
	CurrentIndex() (int, error)
	// InstructionAt loads the instruction at the given position.
	InstructionAt(index int) (Instruction, error)
}

// loadCompanionSignature fetches the signature-verification instruction that
// must immediately precede the claim instruction and returns the claimed
// signer plus the raw signed message bytes. The signature bytes themselves
// are not checked here: the companion instruction only reaches this point if
// the native verifier already accepted it.
func loadCompanionSignature(reader InstructionReader) ([32]byte, []byte, error) {
	if reader == nil {
		return [32]byte{}, nil, ErrMissingPopSignatureInstruction
	}
	current, err := reader.CurrentIndex()
	if err != nil || current <= 0 {
		return [32]byte{}, nil, ErrMissingPopSignatureInstruction
	}
	ix, err := reader.InstructionAt(current - 1)
	if err != nil {
		return [32]byte{}, nil, ErrMissingPopSignatureInstruction
	}
	if ix.ProgramID != Ed25519ProgramID {
		return [32]byte{}, nil, ErrInvalidPopSignatureProgram
	}
	return extractEd25519SignerAndMessage(ix.Data)
}

// extractEd25519SignerAndMessage parses the fixed ed25519 instruction header
// and slices out the public key and message. Cross-instruction references are
// rejected: accepting them would let a claim point its offsets at data the
// native verifier never checked.
func extractEd25519SignerAndMessage(data []byte) ([32]byte, []byte, error) {
	var signer [32]byte
	if len(data) < ed25519HeaderLen {
		return signer, nil, ErrInvalidPopSignatureData
	}
	if data[0] != 1 {
		return signer, nil, ErrInvalidPopSignatureData
	}

	signatureOffset := int(leUint16(data, 2))
	signatureInstructionIdx := leUint16(data, 4)
	publicKeyOffset := int(leUint16(data, 6))
	publicKeyInstructionIdx := leUint16(data, 8)
	messageOffset := int(leUint16(data, 10))
	messageSize := int(leUint16(data, 12))
	messageInstructionIdx := leUint16(data, 14)

	if signatureInstructionIdx != inlineInstructionIdx ||
		publicKeyInstructionIdx != inlineInstructionIdx ||
		messageInstructionIdx != inlineInstructionIdx {
		return signer, nil, ErrInvalidPopSignatureData
	}

	signatureEnd := signatureOffset + ed25519SignatureLen
	publicKeyEnd := publicKeyOffset + ed25519PublicKeyLen
	messageEnd := messageOffset + messageSize
	if signatureEnd < signatureOffset || publicKeyEnd < publicKeyOffset || messageEnd < messageOffset {
		return signer, nil, ErrMathOverflow
	}
	if signatureEnd > len(data) || publicKeyEnd > len(data) || messageEnd > len(data) {
		return signer, nil, ErrInvalidPopSignatureData
	}

	copy(signer[:], data[publicKeyOffset:publicKeyEnd])
	message := append([]byte(nil), data[messageOffset:messageEnd]...)
	return signer, message, nil
}

// EncodeEd25519Instruction builds the companion instruction data for the
// given key, signature and message. Clients and tests use this to assemble
// claim transactions; the layout mirrors the native verifier's.
func EncodeEd25519Instruction(publicKey [32]byte, signature [64]byte, message []byte) []byte {
	signatureOffset := ed25519HeaderLen
	publicKeyOffset := signatureOffset + ed25519SignatureLen
	messageOffset := publicKeyOffset + ed25519PublicKeyLen

	data := make([]byte, 0, messageOffset+len(message))
	data = append(data, 1, 0)
	data = appendUint16(data, uint16(signatureOffset))
	data = appendUint16(data, inlineInstructionIdx)
	data = appendUint16(data, uint16(publicKeyOffset))
	data = appendUint16(data, inlineInstructionIdx)
	data = appendUint16(data, uint16(messageOffset))
	data = appendUint16(data, uint16(len(message)))
	data = appendUint16(data, inlineInstructionIdx)
	data = append(data, signature[:]...)
	data = append(data, publicKey[:]...)
	data = append(data, message...)
	return data
}

func leUint16(data []byte, offset int) uint16 {
	return uint16(data[offset]) | uint16(data[offset+1])<<8
}

func appendUint16(data []byte, v uint16) []byte {
	return append(data, byte(v), byte(v>>8))
}
