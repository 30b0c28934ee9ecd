package dtn

import (
	"fmt"
	"net"
	"strings"
	"time"

	"github.com/asgard/cgrsat/internal/engineerr"
	"github.com/asgard/cgrsat/internal/utils"
	"github.com/asgard/cgrsat/pkg/bundle"
)

// wireSeparator is the outer separator for node->space datagrams (§4.6,
// §6): "encoded_bundle ### (host,port) ### next_hop_id".
const wireSeparator = "###"

// TransportConfig configures the UDP datagram adapter to the shared
// "space" collaborator. The fixed 127.0.0.1:8080 endpoint in the
// source is treated as injected configuration here, not a
// process-wide singleton (§9).
type TransportConfig struct {
	ListenAddress   string
	SpaceAddress    string
	ReadTimeout     time.Duration
	MaxDatagramSize int
}

// DefaultTransportConfig matches the source's one-second receive-loop
// timeout (§4.5) and a datagram ceiling generous enough for a bundle
// with a few kilobytes of payload.
func DefaultTransportConfig() TransportConfig {
	return TransportConfig{
		ListenAddress:   "127.0.0.1:0",
		SpaceAddress:    "127.0.0.1:8080",
		ReadTimeout:     1 * time.Second,
		MaxDatagramSize: 65507,
	}
}

// Transport is the opaque datagram TransportAdapter (C7) described in
// §4.6: it sends to and receives from a single shared "space" endpoint
// that models propagation delay and loss between nodes. Loss and delay
// are both the space endpoint's concern; Transport only carries bytes.
type Transport struct {
	config    TransportConfig
	conn      *net.UDPConn
	spaceAddr *net.UDPAddr
	logger    *utils.Logger
}

// NewTransport resolves addresses but does not open the socket; call
// Listen to bind.
func NewTransport(config TransportConfig, logger *utils.Logger) (*Transport, error) {
	spaceAddr, err := net.ResolveUDPAddr("udp", config.SpaceAddress)
	if err != nil {
		return nil, engineerr.Wrap(err, engineerr.InvalidArgument, "resolving space endpoint address")
	}
	return &Transport{config: config, spaceAddr: spaceAddr, logger: logger}, nil
}

// Listen binds the receive socket. Must be called before Send/Receive.
func (t *Transport) Listen() error {
	laddr, err := net.ResolveUDPAddr("udp", t.config.ListenAddress)
	if err != nil {
		return engineerr.Wrap(err, engineerr.InvalidArgument, "resolving listen address")
	}
	conn, err := net.ListenUDP("udp", laddr)
	if err != nil {
		return engineerr.Wrap(err, engineerr.IoError, "binding transport socket")
	}
	t.conn = conn
	return nil
}

// LocalAddr returns the bound local address, useful for tests and for
// a node reporting its own endpoint.
func (t *Transport) LocalAddr() net.Addr {
	if t.conn == nil {
		return nil
	}
	return t.conn.LocalAddr()
}

// Close releases the socket. Part of the clean teardown on user
// interrupt described in §5: in-flight bundles in queues are lost,
// which is acceptable under DTN semantics.
func (t *Transport) Close() error {
	if t.conn == nil {
		return nil
	}
	return t.conn.Close()
}

// SendToSpace transmits encoded_bundle ### (host,port) ### next_hop_id
// to the space endpoint, per §4.6/§6.
func (t *Transport) SendToSpace(b *bundle.Bundle, destination NodeAddress, nextHop string) error {
	encoded, err := bundle.Marshal(b)
	if err != nil {
		return engineerr.Wrap(err, engineerr.InvalidEncoding, "encoding bundle for transmission")
	}
	addrToken := fmt.Sprintf("(%s,%d)", destination.Host, destination.Port)
	wire := encoded + wireSeparator + addrToken + wireSeparator + nextHop

	if _, err := t.conn.WriteToUDP([]byte(wire), t.spaceAddr); err != nil {
		return engineerr.Wrap(err, engineerr.IoError, "writing datagram to space endpoint")
	}
	return nil
}

// ReceiveResult distinguishes a successfully decoded bundle from a
// socket timeout, so the scheduler (C6) can tell "nothing arrived this
// tick" apart from a real error.
type ReceiveResult struct {
	Bundle  *bundle.Bundle
	TimedOut bool
}

// Receive blocks for up to ReadTimeout for one datagram from the space
// endpoint (bare encoded bundle, no outer separator), per §4.6/§6.
func (t *Transport) Receive() (ReceiveResult, error) {
	buf := make([]byte, t.config.MaxDatagramSize)
	if err := t.conn.SetReadDeadline(time.Now().Add(t.config.ReadTimeout)); err != nil {
		return ReceiveResult{}, engineerr.Wrap(err, engineerr.IoError, "setting read deadline")
	}

	n, _, err := t.conn.ReadFromUDP(buf)
	if err != nil {
		if ne, ok := err.(net.Error); ok && ne.Timeout() {
			return ReceiveResult{TimedOut: true}, nil
		}
		return ReceiveResult{}, engineerr.Wrap(err, engineerr.IoError, "reading from transport socket")
	}

	wire := strings.TrimSpace(string(buf[:n]))
	b, err := bundle.Decode(wire)
	if err != nil {
		return ReceiveResult{}, err
	}
	return ReceiveResult{Bundle: b}, nil
}
