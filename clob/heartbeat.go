package clob

import (
	"context"
	"net/http"
	"time"

	"github.com/google/uuid"

	"github.com/soleret/polyclob/clob/types"
	"github.com/soleret/polyclob/errs"
	"github.com/soleret/polyclob/observability"
)

// heartbeatErrBuffer bounds the undelivered-failure queue. A missed beat
// has order-cancellation consequences on the venue side, so failures are
// surfaced rather than retried; overflow is logged, never blocked on.
const heartbeatErrBuffer = 8

type heartbeatMonitor struct {
	interval time.Duration
	cancel   context.CancelFunc
	done     chan struct{}
	errc     chan error
}

func (hb *heartbeatMonitor) stop() {
	hb.cancel()
	<-hb.done
}

// Heartbeat sends one keep-alive. The first beat of a session passes a nil
// id and the venue assigns one; later beats must echo it back. The
// background loop does this automatically when a heartbeat interval is
// configured, so calling this directly is only needed for custom schedules.
func (ac *AuthenticatedClient) Heartbeat(ctx context.Context, id *uuid.UUID) (types.HeartbeatResponse, error) {
	const op = "clob.heartbeat"

	body, err := marshalBody(op, map[string]*uuid.UUID{"heartbeat_id": id})
	if err != nil {
		return types.HeartbeatResponse{}, err
	}
	var out types.HeartbeatResponse
	if err := ac.doAuth(ctx, op, request{
		method: http.MethodPost, path: "/v1/heartbeats", body: body, out: &out,
	}); err != nil {
		return types.HeartbeatResponse{}, errs.New(op, errs.CodeHeartbeat,
			errs.WithMessage("heartbeat not delivered"), errs.WithCause(err))
	}
	if out.Error != "" {
		return out, errs.New(op, errs.CodeHeartbeat, errs.WithVenueMessage(out.Error))
	}
	return out, nil
}

// startHeartbeat launches the keep-alive loop that tells the venue the
// session is live. Without it the venue cancels the session's open orders
// after its grace window.
func (ac *AuthenticatedClient) startHeartbeat() {
	ctx, cancel := context.WithCancel(context.Background())
	hb := &heartbeatMonitor{
		interval: ac.heartbeat,
		cancel:   cancel,
		done:     make(chan struct{}),
		errc:     make(chan error, heartbeatErrBuffer),
	}
	ac.hb = hb
	go ac.heartbeatLoop(ctx, hb)
}

// HeartbeatErrs exposes heartbeat failures. Each failed beat produces one
// error; the loop moves on to the next tick without retrying the missed
// beat. Returns nil when heartbeats are not configured.
func (ac *AuthenticatedClient) HeartbeatErrs() <-chan error {
	if ac.hb == nil {
		return nil
	}
	return ac.hb.errc
}

func (ac *AuthenticatedClient) heartbeatLoop(ctx context.Context, hb *heartbeatMonitor) {
	defer close(hb.done)

	ticker := time.NewTicker(hb.interval)
	defer ticker.Stop()

	// The venue hands out the session id on the first beat; every later
	// beat echoes it so the venue can spot gaps.
	var sessionID *uuid.UUID
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			out, err := ac.Heartbeat(ctx, sessionID)
			if err != nil {
				select {
				case hb.errc <- err:
				default:
					observability.Log().Warn("heartbeat failure dropped, consumer lagging",
						observability.F("error", err.Error()))
				}
				continue
			}
			if out.HeartbeatID != uuid.Nil {
				id := out.HeartbeatID
				sessionID = &id
			}
		}
	}
}
