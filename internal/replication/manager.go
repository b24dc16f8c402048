// Package replication implements the primary/replica protocol:
// replica-side handshake, primary-side write fan-out, and the WAIT
// barrier with replica ACK counting.
package replication

import (
	"crypto/rand"
	"encoding/hex"
	"net"
	"sync"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog"

	"github.com/haldenlabs/redikv/internal/metrics"
	"github.com/haldenlabs/redikv/internal/resp"
)

type ReplicaState int32

const (
	StateHandshaking ReplicaState = iota
	StateReady
	StateClosed
)

// getAckProbe is the wire encoding of "REPLCONF GETACK *", computed once
// rather than hard-coded even though its length never changes.
var getAckProbe = resp.EncodeCommand("REPLCONF", "GETACK", "*")

// ProbeLen is the byte length of the standard ACK probe.
func ProbeLen() int { return len(getAckProbe) }

// Replica is one attached replica connection as seen from the primary.
type Replica struct {
	mu            sync.Mutex
	conn          net.Conn
	listeningPort string
	state         atomic.Int32
	lastAckOffset int64
}

func (r *Replica) SetListeningPort(port string) { r.listeningPort = port }

func (r *Replica) State() ReplicaState { return ReplicaState(r.state.Load()) }

// Write sends raw bytes to the replica socket, guarded so fan-out and
// GETACK broadcasts never interleave on the wire.
func (r *Replica) Write(b []byte) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	_, err := r.conn.Write(b)
	if err != nil {
		r.state.Store(int32(StateClosed))
	}
	return err
}

// Manager tracks the fan-out registry and drives the WAIT barrier.
type Manager struct {
	mu       sync.Mutex
	replicas []*Replica
	replID   string
	ackCount atomic.Int32

	pollInterval time.Duration
	logger       zerolog.Logger
}

func NewManager(logger zerolog.Logger, pollInterval time.Duration) *Manager {
	return &Manager{
		replID:       generateReplID(),
		pollInterval: pollInterval,
		logger:       logger,
	}
}

func generateReplID() string {
	b := make([]byte, 20)
	rand.Read(b)
	return hex.EncodeToString(b)
}

func (m *Manager) ReplID() string { return m.replID }

// NewHandshakingReplica wraps conn in a Replica in the Handshaking state;
// it does not add it to the fan-out list, which Promote does.
func (m *Manager) NewHandshakingReplica(conn net.Conn) *Replica {
	r := &Replica{conn: conn}
	r.state.Store(int32(StateHandshaking))
	return r
}

// Promote moves r into the Ready fan-out list once PSYNC has completed.
func (m *Manager) Promote(r *Replica) {
	r.state.Store(int32(StateReady))
	m.mu.Lock()
	m.replicas = append(m.replicas, r)
	count := len(m.replicas)
	m.mu.Unlock()
	metrics.ReplicasConnected.Set(float64(count))
}

// Disconnect removes a replica from the fan-out registry, called by the
// server package when the underlying connection's read loop ends.
func (m *Manager) Disconnect(r *Replica) {
	m.drop(r)
}

func (m *Manager) drop(dead *Replica) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i, r := range m.replicas {
		if r == dead {
			m.replicas = append(m.replicas[:i], m.replicas[i+1:]...)
			break
		}
	}
	metrics.ReplicasConnected.Set(float64(len(m.replicas)))
}

func (m *Manager) readyReplicas() []*Replica {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]*Replica, len(m.replicas))
	copy(out, m.replicas)
	return out
}

// ReplicaCount returns the number of replicas currently in the fan-out
// list.
func (m *Manager) ReplicaCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.replicas)
}

// FanOut writes a write command's wire bytes to every ready replica, in
// registration order, dropping any replica whose socket errors.
func (m *Manager) FanOut(frame []byte) {
	for _, r := range m.readyReplicas() {
		if r.State() != StateReady {
			continue
		}
		if err := r.Write(frame); err != nil {
			m.logger.Debug().Err(err).Msg("dropping replica after fan-out write error")
			m.drop(r)
		}
	}
}

// RecordAck is called by the primary's per-connection loop when a replica
// link sends back "REPLCONF ACK <offset>".
func (m *Manager) RecordAck(r *Replica, offset int64) {
	r.lastAckOffset = offset
	m.ackCount.Add(1)
}

// Wait implements the WAIT barrier: if the calling session has issued
// no prior write this call returns the current replica count
// immediately; otherwise it broadcasts GETACK to every replica in
// parallel and polls until n ACKs arrive or timeout elapses.
func (m *Manager) Wait(n int, timeout time.Duration, hasPriorWrite bool) int {
	replicas := m.readyReplicas()
	if !hasPriorWrite {
		return len(replicas)
	}

	start := time.Now()
	defer func() { metrics.WaitLatencySeconds.Observe(time.Since(start).Seconds()) }()

	m.ackCount.Store(0)
	var wg sync.WaitGroup
	for _, r := range replicas {
		wg.Add(1)
		go func(r *Replica) {
			defer wg.Done()
			if err := r.Write(getAckProbe); err != nil {
				m.drop(r)
			}
		}(r)
	}

	deadline := time.Now().Add(timeout)
	interval := m.pollInterval
	if interval <= 0 {
		interval = 10 * time.Millisecond
	}
	for {
		cur := int(m.ackCount.Load())
		if cur >= n || !time.Now().Before(deadline) {
			wg.Wait()
			return cur
		}
		time.Sleep(interval)
	}
}
