package comm

import (
	"context"
	"encoding/binary"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"strconv"
	"time"

	"github.com/nats-io/nats.go"
)

// DefaultSubjectPrefix namespaces all subjects of a run.
const DefaultSubjectPrefix = "wave"

const (
	joinRetryDelay = 100 * time.Millisecond
	headerBytes    = 16
	signalBytes    = 9
)

// NATSConfig describes how a worker process joins a distributed run.
type NATSConfig struct {
	URL     string
	RunID   string
	Prefix  string
	Rank    int
	Size    int
	Timeout time.Duration
	Logger  *slog.Logger
}

// NATSEndpoint is an Endpoint backed by a NATS connection. Each worker
// process owns one; subjects are namespaced by the run id so concurrent runs
// on the same server never see each other's traffic.
type NATSEndpoint struct {
	cfg    NATSConfig
	conn   *nats.Conn
	logger *slog.Logger

	haloIn   map[int]*nats.Subscription
	segIn    map[int]*nats.Subscription
	signalIn *nats.Subscription
	joinSub  *nats.Subscription
	chunk    int
}

// DialNATS connects to the server, subscribes to every subject this rank
// receives on and blocks until all ranks of the run have joined.
func DialNATS(ctx context.Context, cfg NATSConfig) (*NATSEndpoint, error) {
	if cfg.Size < 1 || cfg.Rank < 0 || cfg.Rank >= cfg.Size {
		return nil, fmt.Errorf("comm.DialNATS: rank %d of %d: %w", cfg.Rank, cfg.Size, ErrCommunication)
	}
	if cfg.RunID == "" {
		return nil, fmt.Errorf("comm.DialNATS: empty run id: %w", ErrCommunication)
	}
	if cfg.Prefix == "" {
		cfg.Prefix = DefaultSubjectPrefix
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	conn, err := nats.Connect(cfg.URL,
		nats.Name(fmt.Sprintf("wave-%s-%d", cfg.RunID, cfg.Rank)),
		nats.MaxReconnects(0),
	)
	if err != nil {
		return nil, fmt.Errorf("comm.DialNATS: connect %s: %w", cfg.URL, errors.Join(ErrCommunication, err))
	}
	e := &NATSEndpoint{
		cfg:    cfg,
		conn:   conn,
		logger: cfg.Logger.With("rank", cfg.Rank, "run", cfg.RunID),
		haloIn: make(map[int]*nats.Subscription),
		segIn:  make(map[int]*nats.Subscription),
		chunk:  int(conn.MaxPayload()-headerBytes) / 8,
	}
	if e.chunk < 1 {
		e.chunk = 1
	}
	if err := e.subscribe(); err != nil {
		conn.Close()
		return nil, err
	}
	if err := e.join(ctx); err != nil {
		conn.Close()
		return nil, err
	}
	e.logger.Debug("joined run", "size", cfg.Size)
	return e, nil
}

func (e *NATSEndpoint) subject(parts ...string) string {
	s := e.cfg.Prefix + "." + e.cfg.RunID
	for _, p := range parts {
		s += "." + p
	}
	return s
}

func (e *NATSEndpoint) haloSubject(src, dst int) string {
	return e.subject("halo", strconv.Itoa(src), strconv.Itoa(dst))
}

func (e *NATSEndpoint) segmentSubject(src int) string {
	return e.subject("seg", strconv.Itoa(src))
}

func (e *NATSEndpoint) signalSubject(dst int) string {
	return e.subject("sig", strconv.Itoa(dst))
}

func (e *NATSEndpoint) syncSub(subj string) (*nats.Subscription, error) {
	sub, err := e.conn.SubscribeSync(subj)
	if err != nil {
		return nil, fmt.Errorf("comm.NATSEndpoint: subscribe %s: %w", subj, errors.Join(ErrCommunication, err))
	}
	// Segments can be large; never drop them as a slow consumer.
	if err := sub.SetPendingLimits(-1, -1); err != nil {
		return nil, fmt.Errorf("comm.NATSEndpoint: pending limits %s: %w", subj, errors.Join(ErrCommunication, err))
	}
	return sub, nil
}

func (e *NATSEndpoint) subscribe() error {
	rank, size := e.cfg.Rank, e.cfg.Size
	for _, peer := range []int{rank - 1, rank + 1} {
		if peer < 0 || peer >= size {
			continue
		}
		sub, err := e.syncSub(e.haloSubject(peer, rank))
		if err != nil {
			return err
		}
		e.haloIn[peer] = sub
	}
	if rank == Coordinator {
		for src := 1; src < size; src++ {
			sub, err := e.syncSub(e.segmentSubject(src))
			if err != nil {
				return err
			}
			e.segIn[src] = sub
		}
	} else {
		sub, err := e.syncSub(e.signalSubject(rank))
		if err != nil {
			return err
		}
		e.signalIn = sub
	}
	if err := e.conn.Flush(); err != nil {
		return fmt.Errorf("comm.NATSEndpoint: flush subscriptions: %w", errors.Join(ErrCommunication, err))
	}
	return nil
}

// join performs the start-up rendezvous. Core NATS drops messages without a
// subscriber, so no rank may publish before every rank has subscribed. The
// coordinator collects one join request per worker and then releases all of
// them with a start signal.
func (e *NATSEndpoint) join(ctx context.Context) error {
	joinSubj := e.subject("join")
	if e.cfg.Rank == Coordinator {
		joined := make(chan int, e.cfg.Size)
		sub, err := e.conn.Subscribe(joinSubj, func(m *nats.Msg) {
			if len(m.Data) == 8 {
				select {
				case joined <- int(binary.LittleEndian.Uint64(m.Data)):
				default:
				}
			}
			_ = m.Respond([]byte("ok"))
		})
		if err != nil {
			return fmt.Errorf("comm.NATSEndpoint.join: subscribe: %w", errors.Join(ErrCommunication, err))
		}
		e.joinSub = sub
		seen := make(map[int]bool, e.cfg.Size)
		for len(seen) < e.cfg.Size-1 {
			select {
			case r := <-joined:
				if r > 0 && r < e.cfg.Size {
					seen[r] = true
				}
			case <-ctx.Done():
				return linkErr("join", e.cfg.Rank, -1, ctx.Err())
			}
		}
		_, err = e.Broadcast(ctx, Signal{})
		return err
	}

	payload := make([]byte, 8)
	binary.LittleEndian.PutUint64(payload, uint64(e.cfg.Rank))
	for {
		reqCtx, cancel := context.WithTimeout(ctx, time.Second)
		_, err := e.conn.RequestWithContext(reqCtx, joinSubj, payload)
		cancel()
		if err == nil {
			break
		}
		if ctx.Err() != nil {
			return linkErr("join", e.cfg.Rank, Coordinator, ctx.Err())
		}
		select {
		case <-time.After(joinRetryDelay):
		case <-ctx.Done():
			return linkErr("join", e.cfg.Rank, Coordinator, ctx.Err())
		}
	}
	_, err := e.Broadcast(ctx, Signal{})
	return err
}

// Rank returns the endpoint's rank.
func (e *NATSEndpoint) Rank() int { return e.cfg.Rank }

// Size returns the run size.
func (e *NATSEndpoint) Size() int { return e.cfg.Size }

func (e *NATSEndpoint) next(ctx context.Context, sub *nats.Subscription) (*nats.Msg, error) {
	if e.cfg.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, e.cfg.Timeout)
		defer cancel()
	}
	return sub.NextMsgWithContext(ctx)
}

// Exchange publishes out to the neighbour and waits for its value.
func (e *NATSEndpoint) Exchange(ctx context.Context, neighbor int, out float64) (float64, error) {
	if err := checkPeer("exchange", e.cfg.Rank, e.cfg.Size, neighbor); err != nil {
		return 0, err
	}
	sub, ok := e.haloIn[neighbor]
	if !ok {
		return 0, linkErr("exchange", e.cfg.Rank, neighbor, errors.New("ranks are not neighbours"))
	}
	buf := make([]byte, 8)
	binary.LittleEndian.PutUint64(buf, math.Float64bits(out))
	if err := e.conn.Publish(e.haloSubject(e.cfg.Rank, neighbor), buf); err != nil {
		return 0, linkErr("exchange send", e.cfg.Rank, neighbor, err)
	}
	msg, err := e.next(ctx, sub)
	if err != nil {
		return 0, linkErr("exchange recv", e.cfg.Rank, neighbor, err)
	}
	if len(msg.Data) != 8 {
		return 0, linkErr("exchange recv", e.cfg.Rank, neighbor, fmt.Errorf("halo payload of %d bytes", len(msg.Data)))
	}
	return math.Float64frombits(binary.LittleEndian.Uint64(msg.Data)), nil
}

// SendSegment publishes a (start, count) header followed by the values in
// chunks that fit the server's payload limit.
func (e *NATSEndpoint) SendSegment(ctx context.Context, seg Segment) error {
	if e.cfg.Rank == Coordinator {
		return linkErr("send segment", e.cfg.Rank, Coordinator, errors.New("coordinator gathers locally"))
	}
	subj := e.segmentSubject(e.cfg.Rank)
	if err := e.conn.Publish(subj, encodeHeader(seg.Start, len(seg.Values))); err != nil {
		return linkErr("send segment", e.cfg.Rank, Coordinator, err)
	}
	for off := 0; off < len(seg.Values); off += e.chunk {
		end := min(off+e.chunk, len(seg.Values))
		if err := e.conn.Publish(subj, encodeValues(seg.Values[off:end])); err != nil {
			return linkErr("send segment", e.cfg.Rank, Coordinator, err)
		}
	}
	if err := e.conn.FlushWithContext(ctx); err != nil {
		return linkErr("send segment", e.cfg.Rank, Coordinator, err)
	}
	return nil
}

// RecvSegment reads a header and then chunks until count values arrived.
func (e *NATSEndpoint) RecvSegment(ctx context.Context, from int) (Segment, error) {
	sub, ok := e.segIn[from]
	if !ok {
		return Segment{}, linkErr("recv segment", e.cfg.Rank, from, errors.New("not subscribed"))
	}
	msg, err := e.next(ctx, sub)
	if err != nil {
		return Segment{}, linkErr("recv segment", e.cfg.Rank, from, err)
	}
	start, count, err := decodeHeader(msg.Data)
	if err != nil {
		return Segment{}, linkErr("recv segment", e.cfg.Rank, from, err)
	}
	values := make([]float64, 0, count)
	for len(values) < count {
		msg, err := e.next(ctx, sub)
		if err != nil {
			return Segment{}, linkErr("recv segment", e.cfg.Rank, from, err)
		}
		if len(msg.Data)%8 != 0 || len(values)+len(msg.Data)/8 > count {
			return Segment{}, linkErr("recv segment", e.cfg.Rank, from, fmt.Errorf("chunk of %d bytes exceeds count %d", len(msg.Data), count))
		}
		values = decodeValues(values, msg.Data)
	}
	return Segment{Start: start, Values: values}, nil
}

// Broadcast publishes the coordinator's signal to every worker subject.
func (e *NATSEndpoint) Broadcast(ctx context.Context, sig Signal) (Signal, error) {
	if e.cfg.Rank == Coordinator {
		data := encodeSignal(sig)
		for r := 1; r < e.cfg.Size; r++ {
			if err := e.conn.Publish(e.signalSubject(r), data); err != nil {
				return Signal{}, linkErr("broadcast", e.cfg.Rank, r, err)
			}
		}
		if err := e.conn.FlushWithContext(ctx); err != nil {
			return Signal{}, linkErr("broadcast", e.cfg.Rank, -1, err)
		}
		return sig, nil
	}
	msg, err := e.next(ctx, e.signalIn)
	if err != nil {
		return Signal{}, linkErr("broadcast", e.cfg.Rank, Coordinator, err)
	}
	got, err := decodeSignal(msg.Data)
	if err != nil {
		return Signal{}, linkErr("broadcast", e.cfg.Rank, Coordinator, err)
	}
	return got, nil
}

// Close drains pending publishes and closes the connection.
func (e *NATSEndpoint) Close() error {
	if e.conn == nil {
		return nil
	}
	if err := e.conn.Drain(); err != nil {
		e.conn.Close()
		return fmt.Errorf("comm.NATSEndpoint.Close: %w", err)
	}
	return nil
}

func encodeValues(vs []float64) []byte {
	buf := make([]byte, 8*len(vs))
	for i, v := range vs {
		binary.LittleEndian.PutUint64(buf[8*i:], math.Float64bits(v))
	}
	return buf
}

func encodeHeader(start, count int) []byte {
	buf := make([]byte, headerBytes)
	binary.LittleEndian.PutUint64(buf[0:], uint64(start))
	binary.LittleEndian.PutUint64(buf[8:], uint64(count))
	return buf
}

func decodeHeader(data []byte) (start, count int, err error) {
	if len(data) != headerBytes {
		return 0, 0, fmt.Errorf("header of %d bytes", len(data))
	}
	start = int(int64(binary.LittleEndian.Uint64(data[0:])))
	n := int64(binary.LittleEndian.Uint64(data[8:]))
	if n < 0 || n > MaxSegmentLen {
		return 0, 0, fmt.Errorf("count %d outside [0, %d]", n, MaxSegmentLen)
	}
	return start, int(n), nil
}

func decodeValues(dst []float64, data []byte) []float64 {
	for i := 0; i+8 <= len(data); i += 8 {
		dst = append(dst, math.Float64frombits(binary.LittleEndian.Uint64(data[i:])))
	}
	return dst
}

const (
	flagPause = 1 << iota
	flagReset
	flagQuit
)

func encodeSignal(s Signal) []byte {
	buf := make([]byte, signalBytes)
	if s.Pause {
		buf[0] |= flagPause
	}
	if s.Reset {
		buf[0] |= flagReset
	}
	if s.Quit {
		buf[0] |= flagQuit
	}
	binary.LittleEndian.PutUint64(buf[1:], uint64(int64(s.Held)))
	return buf
}

func decodeSignal(data []byte) (Signal, error) {
	if len(data) != signalBytes {
		return Signal{}, fmt.Errorf("signal of %d bytes", len(data))
	}
	return Signal{
		Pause: data[0]&flagPause != 0,
		Reset: data[0]&flagReset != 0,
		Quit:  data[0]&flagQuit != 0,
		Held:  int(int64(binary.LittleEndian.Uint64(data[1:]))),
	}, nil
}
