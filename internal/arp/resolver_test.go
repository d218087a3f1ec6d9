package arp

import (
	"context"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"firestige.xyz/linkprobe/internal/core"
	"firestige.xyz/linkprobe/internal/core/codec"
	"firestige.xyz/linkprobe/internal/metrics"
)

func TestResolveEmitsBroadcastRequest(t *testing.T) {
	tr := newScripted(replyFrame(peerMAC, peerIP))
	r := NewResolver(tr, localID, ResolverOptions{Timeout: time.Second, StrictMatch: true})

	res, err := r.Resolve(context.Background(), peerIP)
	require.NoError(t, err)

	require.Len(t, tr.sent, 1, "request is sent exactly once")
	eth, payload, err := codec.Split(tr.sent[0])
	require.NoError(t, err)
	assert.Equal(t, core.BroadcastMAC, eth.Destination)
	assert.Equal(t, localMAC, eth.Source)
	assert.Equal(t, core.EtherTypeARP, eth.EtherType)

	req, err := codec.DecodeARP(payload)
	require.NoError(t, err)
	assert.Equal(t, core.ARPRequest, req.Operation)
	assert.Equal(t, core.IPv4{10, 0, 0, 1}, req.SenderIP)
	assert.Equal(t, localMAC, req.SenderMAC)
	assert.Equal(t, core.ZeroMAC, req.TargetMAC)
	assert.Equal(t, peerIP, req.TargetIP)

	assert.Equal(t, core.MAC{0x02, 0, 0, 0, 0, 0x02}, res.MAC)
	assert.Equal(t, peerIP, res.Target)
	assert.Equal(t, 1, res.Frames)
	assert.Equal(t, StateResolved, r.State())
}

func TestResolveIgnoresNonARPAndNonReply(t *testing.T) {
	for _, strict := range []bool{true, false} {
		tr := newScripted(
			ipv4Frame(),
			requestFrame(otherMAC, otherIP, peerIP),
			replyFrame(peerMAC, peerIP),
		)
		r := NewResolver(tr, localID, ResolverOptions{Timeout: time.Second, StrictMatch: strict})

		res, err := r.Resolve(context.Background(), peerIP)
		require.NoError(t, err)
		assert.Equal(t, peerMAC, res.MAC, "strict=%v", strict)
		assert.Equal(t, 3, res.Frames)
	}
}

func TestResolveSkipsTruncatedFrames(t *testing.T) {
	truncated := replyFrame(otherMAC, peerIP)[:30]
	tr := newScripted([]byte{0x01}, truncated, replyFrame(peerMAC, peerIP))
	r := NewResolver(tr, localID, ResolverOptions{Timeout: time.Second})

	res, err := r.Resolve(context.Background(), peerIP)
	require.NoError(t, err)
	assert.Equal(t, peerMAC, res.MAC)
}

func TestResolveStrictMatchDiscardsOtherSenders(t *testing.T) {
	before := testutil.ToFloat64(metrics.FramesDiscardedTotal.WithLabelValues(stageResolver, reasonSenderMismatch))

	tr := newScripted(replyFrame(otherMAC, otherIP), replyFrame(peerMAC, peerIP))
	r := NewResolver(tr, localID, ResolverOptions{Timeout: time.Second, StrictMatch: true})

	res, err := r.Resolve(context.Background(), peerIP)
	require.NoError(t, err)
	assert.Equal(t, peerMAC, res.MAC)
	assert.Equal(t, before+1,
		testutil.ToFloat64(metrics.FramesDiscardedTotal.WithLabelValues(stageResolver, reasonSenderMismatch)))
}

func TestResolveLenientAcceptsFirstReply(t *testing.T) {
	tr := newScripted(replyFrame(otherMAC, otherIP), replyFrame(peerMAC, peerIP))
	r := NewResolver(tr, localID, ResolverOptions{Timeout: time.Second, StrictMatch: false})

	res, err := r.Resolve(context.Background(), peerIP)
	require.NoError(t, err)
	assert.Equal(t, otherMAC, res.MAC)
}

func TestResolveStrictRejectsNonEthernetReply(t *testing.T) {
	bad := replyFrame(otherMAC, peerIP)
	bad[core.EthernetHeaderLen+1] = 6 // hardware type 6
	tr := newScripted(bad, replyFrame(peerMAC, peerIP))
	r := NewResolver(tr, localID, ResolverOptions{Timeout: time.Second, StrictMatch: true})

	res, err := r.Resolve(context.Background(), peerIP)
	require.NoError(t, err)
	assert.Equal(t, peerMAC, res.MAC)
}

func TestResolveTimeout(t *testing.T) {
	before := testutil.ToFloat64(metrics.ResolutionsTotal.WithLabelValues(metrics.ResultTimeout))

	tr := newScripted(ipv4Frame())
	r := NewResolver(tr, localID, ResolverOptions{Timeout: 20 * time.Millisecond, StrictMatch: true})

	_, err := r.Resolve(context.Background(), peerIP)
	assert.ErrorIs(t, err, core.ErrTimeout)
	assert.Equal(t, StateFailed, r.State())
	assert.Len(t, tr.sent, 1)
	assert.Equal(t, before+1, testutil.ToFloat64(metrics.ResolutionsTotal.WithLabelValues(metrics.ResultTimeout)))
}

func TestResolveCallerDeadline(t *testing.T) {
	tr := newScripted()
	r := NewResolver(tr, localID, ResolverOptions{})

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	_, err := r.Resolve(ctx, peerIP)
	assert.ErrorIs(t, err, core.ErrTimeout)
}

func TestResolveCancelled(t *testing.T) {
	tr := newScripted()
	r := NewResolver(tr, localID, ResolverOptions{})

	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		time.Sleep(10 * time.Millisecond)
		cancel()
	}()

	_, err := r.Resolve(ctx, peerIP)
	assert.ErrorIs(t, err, context.Canceled)
	assert.NotErrorIs(t, err, core.ErrTimeout)
}

func TestResolveSendFailure(t *testing.T) {
	tr := newScripted(replyFrame(peerMAC, peerIP))
	tr.sendErr = errLinkDown
	r := NewResolver(tr, localID, ResolverOptions{Timeout: time.Second})

	_, err := r.Resolve(context.Background(), peerIP)
	assert.ErrorIs(t, err, errLinkDown)
	assert.Equal(t, StateFailed, r.State())
	assert.Equal(t, 0, tr.received, "no frames read after a failed send")
}

func TestResolveReceiveFailureIsTransportError(t *testing.T) {
	tr := newScripted()
	tr.recvErr = errLinkDown
	r := NewResolver(tr, localID, ResolverOptions{Timeout: time.Second})

	_, err := r.Resolve(context.Background(), peerIP)
	assert.ErrorIs(t, err, core.ErrTransport)
}

func TestStateString(t *testing.T) {
	assert.Equal(t, "request-sent", StateRequestSent.String())
	assert.Equal(t, "matched", StateMatched.String())
	assert.Equal(t, "state(42)", State(42).String())
}
