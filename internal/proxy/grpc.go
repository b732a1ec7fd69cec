package proxy

import (
	"context"
	"fmt"
	"strings"

	handlercmd "github.com/xtls/xray-core/app/proxyman/command"
	statscmd "github.com/xtls/xray-core/app/stats/command"
	"github.com/xtls/xray-core/common/protocol"
	"github.com/xtls/xray-core/common/serial"
	"github.com/xtls/xray-core/proxy/vless"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"
)

// vlessFlow is the only flow the generated Reality inbound accepts.
const vlessFlow = "xtls-rprx-vision"

// GRPCClient talks to the xray control API (HandlerService for identity
// management, StatsService for traffic counters). The control endpoint is
// loopback-only in every supported deployment, hence insecure credentials.
type GRPCClient struct {
	conn       *grpc.ClientConn
	handler    handlercmd.HandlerServiceClient
	stats      statscmd.StatsServiceClient
	inboundTag string
	prober     *execProber
}

// NewGRPCClient builds a client for the control API at addr. identities are
// attached to the inbound registered under inboundTag; serviceName is the
// systemd unit probed by Health.
func NewGRPCClient(addr, inboundTag, serviceName string) (*GRPCClient, error) {
	conn, err := grpc.NewClient(addr, grpc.WithTransportCredentials(insecure.NewCredentials()))
	if err != nil {
		return nil, fmt.Errorf("error dialing control API: %w", err)
	}

	return &GRPCClient{
		conn:       conn,
		handler:    handlercmd.NewHandlerServiceClient(conn),
		stats:      statscmd.NewStatsServiceClient(conn),
		inboundTag: inboundTag,
		prober:     &execProber{service: serviceName},
	}, nil
}

// Close releases the underlying channel.
func (c *GRPCClient) Close() error {
	return c.conn.Close()
}

// AddIdentity registers a VLESS account under tag. The daemon has no
// uniqueness contract across transports, so "already exists" is success.
func (c *GRPCClient) AddIdentity(ctx context.Context, secret, tag string) error {
	account := &vless.Account{
		Id:         secret,
		Flow:       vlessFlow,
		Encryption: "none",
	}

	_, err := c.handler.AlterInbound(ctx, &handlercmd.AlterInboundRequest{
		Tag: c.inboundTag,
		Operation: serial.ToTypedMessage(&handlercmd.AddUserOperation{
			User: &protocol.User{
				Level:   0,
				Email:   tag,
				Account: serial.ToTypedMessage(account),
			},
		}),
	})

	if err != nil {
		if isAlreadyExists(err) {
			return nil
		}
		return classify("add identity", err)
	}
	return nil
}

// RemoveIdentity deletes the identity under tag; removing a non-existent
// identity is success.
func (c *GRPCClient) RemoveIdentity(ctx context.Context, tag string) error {
	_, err := c.handler.AlterInbound(ctx, &handlercmd.AlterInboundRequest{
		Tag: c.inboundTag,
		Operation: serial.ToTypedMessage(&handlercmd.RemoveUserOperation{
			Email: tag,
		}),
	})

	if err != nil {
		if isNotFound(err) {
			return nil
		}
		return classify("remove identity", err)
	}
	return nil
}

// ListIdentities enumerates identity tags on the inbound. Daemons predating
// the enumeration RPC answer Unimplemented, which surfaces as
// KindUnsupported so the engine can fall back to its ledger.
func (c *GRPCClient) ListIdentities(ctx context.Context) ([]string, error) {
	resp, err := c.handler.GetInboundUsers(ctx, &handlercmd.GetInboundUserRequest{
		Tag: c.inboundTag,
	})
	if err != nil {
		return nil, classify("list identities", err)
	}

	tags := make([]string, 0, len(resp.GetUsers()))
	for _, u := range resp.GetUsers() {
		tags = append(tags, u.GetEmail())
	}
	return tags, nil
}

// QueryUsage reads the uplink/downlink counters for tag. A missing counter
// means the identity has produced no traffic yet and reads as zero.
func (c *GRPCClient) QueryUsage(ctx context.Context, tag string) (*Usage, error) {
	up, err := c.queryCounter(ctx, fmt.Sprintf("user>>>%s>>>traffic>>>uplink", tag))
	if err != nil {
		return nil, err
	}
	down, err := c.queryCounter(ctx, fmt.Sprintf("user>>>%s>>>traffic>>>downlink", tag))
	if err != nil {
		return nil, err
	}
	return &Usage{UploadBytes: up, DownloadBytes: down}, nil
}

func (c *GRPCClient) queryCounter(ctx context.Context, name string) (int64, error) {
	resp, err := c.stats.GetStats(ctx, &statscmd.GetStatsRequest{Name: name, Reset_: false})
	if err != nil {
		if isNotFound(err) {
			return 0, nil
		}
		return 0, classify("query usage", err)
	}
	return resp.GetStat().GetValue(), nil
}

// Health reports daemon state without ever failing: install state and
// version come from the local probe, liveness from a sys-stats round trip
// on the control channel.
func (c *GRPCClient) Health(ctx context.Context) *Health {
	h := &Health{}
	h.Installed, h.Version = c.prober.probeBinary(ctx)

	if _, err := c.stats.GetSysStats(ctx, &statscmd.SysStatsRequest{}); err == nil {
		h.Running = true
	} else {
		// control channel may be down while the unit itself is up
		h.Running = c.prober.probeService(ctx)
	}
	return h
}

// isAlreadyExists matches the daemon's duplicate-identity rejection. The
// control API reports it as a plain error string, not a status code.
func isAlreadyExists(err error) bool {
	return err != nil && strings.Contains(strings.ToLower(err.Error()), "already exists")
}

// isNotFound matches the daemon's unknown-identity/counter rejection.
func isNotFound(err error) bool {
	return err != nil && strings.Contains(strings.ToLower(err.Error()), "not found")
}
