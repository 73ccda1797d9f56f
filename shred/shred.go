// Package shred decodes and validates the signed block fragments ("shreds")
// that arrive over the turbine/gossip network, and carries the packets they
// travel in.
package shred

import (
	"crypto/ed25519"
	"encoding/binary"
	"errors"
)

const (
	// SignatureSize is the size in bytes of the leader's signature that
	// prefixes every shred's wire representation.
	SignatureSize = ed25519.SignatureSize

	// headerSize is the size of the slot/index/seed header that follows
	// the signature in the wire format.
	headerSize = 8 + 4 + 8

	// MinWireSize is the smallest legal shred: signature plus header, with
	// an empty payload.
	MinWireSize = SignatureSize + headerSize
)

// ErrMalformed is returned by Deserialize when the raw bytes are too short
// or otherwise cannot be interpreted as a shred. It is never surfaced to a
// caller as a hard error — malformed traffic is expected from an untrusted
// UDP firehose and is dropped silently by the ingest stage.
var ErrMalformed = errors.New("shred: malformed packet")

// Identity is a validator's public key, used both as the node's own
// identity and as a candidate leader identity.
type Identity [ed25519.PublicKeySize]byte

// Shred is a decoded block fragment. RawBytes is retained alongside the
// decoded fields for retransmit fidelity and for FastVerify, which re-checks
// the signature against a claimed leader without re-parsing the payload.
type Shred struct {
	Slot      uint64
	Index     uint32
	Seed      uint64
	Signature [SignatureSize]byte
	RawBytes  []byte
}

// Deserialize parses the wire format produced by the network layer:
//
//	[0:64)   signature
//	[64:72)  slot     (big-endian uint64)
//	[72:76)  index    (big-endian uint32)
//	[76:84)  seed     (big-endian uint64)
//	[84:]    payload
//
// RawBytes retains the full input slice (not copied) so FastVerify can
// re-derive the signed message without reassembling it.
func Deserialize(data []byte) (*Shred, error) {
	if len(data) < MinWireSize {
		return nil, ErrMalformed
	}
	sh := &Shred{
		Slot:  binary.BigEndian.Uint64(data[SignatureSize : SignatureSize+8]),
		Index: binary.BigEndian.Uint32(data[SignatureSize+8 : SignatureSize+12]),
		Seed:  binary.BigEndian.Uint64(data[SignatureSize+12 : SignatureSize+20]),
	}
	copy(sh.Signature[:], data[:SignatureSize])
	sh.RawBytes = data
	return sh, nil
}

// FastVerify reports whether raw's signature was produced by leader over
// raw's signed prefix. It is pure and safe for concurrent use.
func FastVerify(raw []byte, leader Identity) bool {
	if len(raw) < MinWireSize {
		return false
	}
	return ed25519.Verify(ed25519.PublicKey(leader[:]), raw[SignatureSize:], raw[:SignatureSize])
}

// FastVerify re-checks sh's own RawBytes against a claimed leader identity.
func (sh *Shred) FastVerify(leader Identity) bool {
	return FastVerify(sh.RawBytes, leader)
}

// Meta is the mutable side-band the ingest stage attaches to a surviving
// Packet so the retransmit sink can route it without re-decoding.
type Meta struct {
	Slot uint64
	Seed uint64
}

// Packet is a single received datagram plus its routing side-band.
type Packet struct {
	Data []byte
	Meta Meta
}

// PacketBatch is an ordered sequence of Packets received together. Filtering
// must preserve the relative order of any packets that survive.
type PacketBatch []*Packet
