package repair

import "net"

// PeerSource is the cluster membership / gossip layer, queried for the
// current set of peer endpoints to send repair requests to. Its own
// implementation (gossip protocol, peer discovery) is out of scope here;
// this package only consumes the result.
type PeerSource interface {
	Peers() []*net.UDPAddr
}

// StaticPeers is a fixed peer set, useful for tests and for deployments
// that pin repair targets rather than discovering them via gossip.
type StaticPeers []*net.UDPAddr

// Peers implements PeerSource.
func (p StaticPeers) Peers() []*net.UDPAddr { return p }
