package sensor

import (
	"context"
	"fmt"
	"log/slog"
	"net"
	"sync/atomic"
	"time"

	"github.com/ultrasense/ultrasense-go/internal/conf"
	"github.com/ultrasense/ultrasense-go/internal/errors"
	"github.com/ultrasense/ultrasense-go/internal/logging"
)

// Client is the UDP frame source. It is not safe for concurrent use; the
// detection worker is the single caller.
type Client struct {
	conn    *net.UDPConn
	cfg     conf.SensorSettings
	info    sessionInfo
	buf     []byte
	seq     uint64
	logger  *slog.Logger
	started bool

	// consecutiveTimeouts is read by the worker for degraded-status
	// tracking and reset on any successful datagram.
	consecutiveTimeouts atomic.Int64
}

// NewClient creates a frame source for the given sensor settings. The UDP
// socket is opened here; the protocol handshake happens in Handshake.
func NewClient(cfg conf.SensorSettings) (*Client, error) {
	addr, err := net.ResolveUDPAddr("udp", fmt.Sprintf("%s:%d", cfg.Host, cfg.DataPort))
	if err != nil {
		return nil, errors.New(err).
			Component("sensor").
			Category(errors.CategoryNetwork).
			Context("host", cfg.Host).
			Context("port", cfg.DataPort).
			Build()
	}

	conn, err := net.DialUDP("udp", nil, addr)
	if err != nil {
		return nil, errors.New(err).
			Component("sensor").
			Category(errors.CategoryNetwork).
			Context("host", cfg.Host).
			Context("port", cfg.DataPort).
			Build()
	}

	return &Client{
		conn:   conn,
		cfg:    cfg,
		logger: logging.ForService("sensor"),
		// One datagram holds the header floats plus a full sample block.
		buf: make([]byte, (cfg.FrameSizeSamples+headerFloats)*4),
	}, nil
}

// Handshake performs the initial info exchange: send the info request, read
// one datagram and learn header length, block count and board sync time.
// Failure here is fatal for the run; the caller does not retry.
func (c *Client) Handshake(ctx context.Context) error {
	deadline := time.Now().Add(c.cfg.HandshakeTimeout)
	if d, ok := ctx.Deadline(); ok && d.Before(deadline) {
		deadline = d
	}
	if err := c.conn.SetDeadline(deadline); err != nil {
		return c.handshakeErr(err)
	}

	if _, err := c.conn.Write([]byte(infoRequest)); err != nil {
		return c.handshakeErr(err)
	}

	n, err := c.conn.Read(c.buf)
	if err != nil {
		return c.handshakeErr(err)
	}
	if n < minHeaderLen {
		return c.handshakeErr(fmt.Errorf("info packet too short: %d bytes", n))
	}

	info := sessionInfo{
		headerLen:   int(headerFloat(c.buf, offsetHeaderLen)),
		totalBlocks: int(headerFloat(c.buf, offsetTotalBlocks)),
		syncTime:    int64(headerFloat(c.buf, offsetSyncTime)),
	}
	if info.headerLen < minHeaderLen || info.headerLen > n {
		return c.handshakeErr(fmt.Errorf("implausible header length %d in info packet", info.headerLen))
	}
	if info.totalBlocks < 1 {
		return c.handshakeErr(fmt.Errorf("implausible block count %d in info packet", info.totalBlocks))
	}

	// Clear the handshake deadline so steady-state writes are not bound
	// by it; Receive sets its own read deadline per block.
	if err := c.conn.SetDeadline(time.Time{}); err != nil {
		return c.handshakeErr(err)
	}

	c.info = info
	c.started = true
	c.logger.Info("sensor session established",
		"header_len", info.headerLen,
		"blocks_per_frame", info.totalBlocks,
		"board_sync_ms", info.syncTime)
	return nil
}

// Receive requests and reassembles one complete frame. Each data block is
// requested individually and read under its own deadline.
//
// Errors are part of the normal stream: errors.ErrReceiveTimeout when a read
// deadline passes, errors.ErrMalformedFrame when blocks arrive out of
// sequence or the sample count comes up short. Both leave the client usable
// for the next call.
func (c *Client) Receive(timeout time.Duration) (*RawFrame, error) {
	if !c.started {
		return nil, errors.Newf("receive before handshake").
			Component("sensor").
			Category(errors.CategoryState).
			Build()
	}

	expected := c.cfg.FrameSizeSamples * c.info.totalBlocks
	samples := make([]int16, 0, expected)

	var distanceCm float64
	var deviceTime int64

	for block := 0; block < c.info.totalBlocks; block++ {
		if _, err := c.conn.Write([]byte(dataRequest)); err != nil {
			return nil, errors.New(err).
				Component("sensor").
				Category(errors.CategoryNetwork).
				Context("block", block).
				Build()
		}
		if err := c.conn.SetReadDeadline(time.Now().Add(timeout)); err != nil {
			return nil, errors.New(err).
				Component("sensor").
				Category(errors.CategoryNetwork).
				Build()
		}

		n, err := c.conn.Read(c.buf)
		if err != nil {
			if netErr, ok := err.(net.Error); ok && netErr.Timeout() {
				c.consecutiveTimeouts.Add(1)
				return nil, fmt.Errorf("%w: block %d after %s", errors.ErrReceiveTimeout, block, timeout)
			}
			return nil, errors.New(err).
				Component("sensor").
				Category(errors.CategoryNetwork).
				Context("block", block).
				Build()
		}
		c.consecutiveTimeouts.Store(0)

		if n < c.info.headerLen {
			return nil, fmt.Errorf("%w: datagram shorter than header (%d < %d)",
				errors.ErrMalformedFrame, n, c.info.headerLen)
		}

		gotBlock := int(headerFloat(c.buf, offsetBlockNumber))
		if gotBlock != block {
			return nil, fmt.Errorf("%w: block %d arrived while expecting %d",
				errors.ErrMalformedFrame, gotBlock, block)
		}

		if block == 0 {
			distanceCm = correctDistance(headerFloat(c.buf, offsetDistance))
			deviceTime = int64(headerFloat(c.buf, offsetAcqTime))
		}

		samples = decodeSamples(samples, c.buf[c.info.headerLen:n])
	}

	if len(samples) != expected {
		return nil, fmt.Errorf("%w: reassembled %d samples, expected %d",
			errors.ErrMalformedFrame, len(samples), expected)
	}

	c.seq++
	return &RawFrame{
		Samples:    samples,
		Sequence:   c.seq,
		DistanceCm: distanceCm,
		DeviceTime: deviceTime,
		ReceivedAt: time.Now(),
		Complete:   true,
	}, nil
}

// ConsecutiveTimeouts returns how many Receive calls in a row ended in a
// read timeout. Resets to zero whenever a datagram arrives.
func (c *Client) ConsecutiveTimeouts() int {
	return int(c.consecutiveTimeouts.Load())
}

// BlocksPerFrame returns the block count learned during the handshake.
func (c *Client) BlocksPerFrame() int { return c.info.totalBlocks }

// SyncTime returns the board time reported at handshake, in milliseconds.
func (c *Client) SyncTime() int64 { return c.info.syncTime }

// Close releases the UDP socket.
func (c *Client) Close() error {
	return c.conn.Close()
}

func (c *Client) handshakeErr(err error) error {
	return errors.New(err).
		Component("sensor").
		Category(errors.CategoryHandshake).
		Context("host", c.cfg.Host).
		Context("port", c.cfg.DataPort).
		Build()
}
