package repair

import (
	"encoding/binary"
	"fmt"
	"net"
)

// DefaultBatchSize bounds how many repair requests are packed into a single
// UDP datagram, matching the original's batched rate shape rather than one
// datagram per missing shred.
const DefaultBatchSize = 32

// Request identifies a single missing shred to request from a peer.
type Request struct {
	Slot  uint64
	Index uint32
}

// wireSize is the encoded size of one Request: slot (8 bytes) + index (4
// bytes).
const wireSize = 8 + 4

// Requester issues batched repair requests to peers over its own UDP
// socket.
type Requester struct {
	conn      *net.UDPConn
	batchSize int
}

// NewRequester opens a UDP socket bound to localAddr (empty string picks an
// ephemeral port) for sending repair requests.
func NewRequester(localAddr string) (*Requester, error) {
	addr, err := net.ResolveUDPAddr("udp", localAddr)
	if err != nil {
		return nil, fmt.Errorf("repair: resolve local addr %q: %w", localAddr, err)
	}
	conn, err := net.ListenUDP("udp", addr)
	if err != nil {
		return nil, fmt.Errorf("repair: listen udp: %w", err)
	}
	return &Requester{conn: conn, batchSize: DefaultBatchSize}, nil
}

// Close releases the underlying socket.
func (r *Requester) Close() error {
	return r.conn.Close()
}

// SetBatchSize overrides the per-datagram request count. Values <= 0 are
// ignored and DefaultBatchSize continues to apply.
func (r *Requester) SetBatchSize(n int) {
	if n > 0 {
		r.batchSize = n
	}
}

// SendRepairRequests sends reqs to peer, split into datagrams of at most
// batchSize requests each. Partial failures (some batches sent, one fails)
// return the first error after attempting all batches, matching
// best-effort UDP semantics: a single bad peer must not block the rest of
// the repair loop's other peers.
func (r *Requester) SendRepairRequests(reqs []Request, peer *net.UDPAddr) error {
	if len(reqs) == 0 {
		return nil
	}
	batchSize := r.batchSize
	if batchSize <= 0 {
		batchSize = DefaultBatchSize
	}

	var firstErr error
	for start := 0; start < len(reqs); start += batchSize {
		end := start + batchSize
		if end > len(reqs) {
			end = len(reqs)
		}
		batch := reqs[start:end]

		payload := make([]byte, len(batch)*wireSize)
		for i, req := range batch {
			off := i * wireSize
			binary.BigEndian.PutUint64(payload[off:off+8], req.Slot)
			binary.BigEndian.PutUint32(payload[off+8:off+12], req.Index)
		}

		if _, err := r.conn.WriteToUDP(payload, peer); err != nil {
			sendErrorsTotal.Inc(1)
			if firstErr == nil {
				firstErr = fmt.Errorf("repair: send batch to %s: %w", peer, err)
			}
			continue
		}
		requestsSentTotal.Inc(int64(len(batch)))
		batchesSentTotal.Inc(1)
	}
	return firstErr
}
