package grpcts

import (
	"bytes"
	"context"
	"encoding/gob"
	"fmt"

	"github.com/asyncps/psengine/feaid"
	"github.com/asyncps/psengine/transport"
	"github.com/asyncps/psengine/transport/local"
)

// RemoteStore implements transport.ParamStore by forwarding every batch to
// a single free-standing server peer over the Dialer — the networked
// counterpart to transport/local.Store, used when the deployment choice
// is free-standing rather than embedded.
type RemoteStore struct {
	dialer *Dialer
	peer   string
	sender string
	keys   *KeyCache
}

// NewRemoteStore builds a ParamStore that talks to peer (registered with
// dialer) for every Push/Pull, identifying itself as sender. Its own
// KeyCache tracks the push and pull directions independently, so setting
// Filter.KeyCache lets repeated calls against an unchanged key set omit
// resending it.
func NewRemoteStore(dialer *Dialer, peer, sender string) *RemoteStore {
	return &RemoteStore{dialer: dialer, peer: peer, sender: sender, keys: NewKeyCache()}
}

func (r *RemoteStore) Push(keys []feaid.ID, values []float32, filter transport.Filter, cb transport.PushCallback) {
	go func() {
		wireKeys := keys
		if filter.KeyCache {
			wireKeys = r.keys.encode("push", keys)
		}
		payload := pushPayload{Keys: wireKeys, Values: maybeCompress(encodeValues(values, filter), filter), Filter: filter}
		var buf bytes.Buffer
		if err := gob.NewEncoder(&buf).Encode(payload); err != nil {
			if cb != nil {
				cb(fmt.Errorf("grpcts: encode push payload: %w", err))
			}
			return
		}
		_, err := r.dialer.Send(context.Background(), r.peer, transport.Frame{
			Role:    transport.RoleWorker,
			Sender:  r.sender,
			Cmd:     transport.CmdPush,
			Payload: buf.Bytes(),
		})
		if cb != nil {
			cb(err)
		}
	}()
}

func (r *RemoteStore) Pull(keys []feaid.ID, filter transport.Filter, cb transport.PullCallback) {
	go func() {
		wireKeys := keys
		if filter.KeyCache {
			wireKeys = r.keys.encode("pull", keys)
		}
		var buf bytes.Buffer
		if err := gob.NewEncoder(&buf).Encode(pullRequest{Keys: wireKeys, Filter: filter}); err != nil {
			if cb != nil {
				cb(nil, fmt.Errorf("grpcts: encode pull request: %w", err))
			}
			return
		}
		reply, err := r.dialer.Send(context.Background(), r.peer, transport.Frame{
			Role:    transport.RoleWorker,
			Sender:  r.sender,
			Cmd:     transport.CmdPull,
			Payload: buf.Bytes(),
		})
		if err != nil {
			if cb != nil {
				cb(nil, err)
			}
			return
		}
		var resp pullResponse
		if err := gob.NewDecoder(bytes.NewReader(reply.Payload)).Decode(&resp); err != nil {
			if cb != nil {
				cb(nil, fmt.Errorf("grpcts: decode pull response: %w", err))
			}
			return
		}
		raw, err := maybeDecompress(resp.Values, resp.Filter)
		if err != nil {
			if cb != nil {
				cb(nil, fmt.Errorf("grpcts: decompress pull response: %w", err))
			}
			return
		}
		values, err := decodeValues(raw, resp.Filter, len(keys))
		if cb != nil {
			cb(values, err)
		}
	}()
}

// ServerParamHandler builds the transport.Handler a free-standing server
// process registers with its grpcts.Server: it decodes CmdPush/CmdPull
// frames, drives store synchronously, and re-encodes the reply. store is
// typically backed by local.Store over this process's own shards. keys
// resolves any KeyCache-elided key vectors, keyed per Frame.Sender so one
// KeyCache can serve every worker talking to this server.
func ServerParamHandler(store *local.Store, keys *KeyCache) transport.Handler {
	return func(ctx context.Context, frame transport.Frame) (transport.Frame, error) {
		switch frame.Cmd {
		case transport.CmdPush:
			var payload pushPayload
			if err := gob.NewDecoder(bytes.NewReader(frame.Payload)).Decode(&payload); err != nil {
				return transport.Frame{}, fmt.Errorf("grpcts: decode push payload: %w", err)
			}
			resolvedKeys := payload.Keys
			if payload.Filter.KeyCache {
				var err error
				resolvedKeys, err = keys.decode(frame.Sender+":push", payload.Keys)
				if err != nil {
					return transport.Frame{}, err
				}
			}
			raw, err := maybeDecompress(payload.Values, payload.Filter)
			if err != nil {
				return transport.Frame{}, fmt.Errorf("grpcts: decompress push payload: %w", err)
			}
			grads, err := decodeValues(raw, payload.Filter, len(resolvedKeys))
			if err != nil {
				return transport.Frame{}, err
			}
			result := make(chan error, 1)
			store.Push(resolvedKeys, grads, payload.Filter, func(err error) { result <- err })
			if err := <-result; err != nil {
				return transport.Frame{}, err
			}
			return transport.Frame{Role: transport.RoleServer, Cmd: transport.CmdPush}, nil

		case transport.CmdPull:
			var req pullRequest
			if err := gob.NewDecoder(bytes.NewReader(frame.Payload)).Decode(&req); err != nil {
				return transport.Frame{}, fmt.Errorf("grpcts: decode pull request: %w", err)
			}
			resolvedKeys := req.Keys
			if req.Filter.KeyCache {
				var err error
				resolvedKeys, err = keys.decode(frame.Sender+":pull", req.Keys)
				if err != nil {
					return transport.Frame{}, err
				}
			}
			type pullResult struct {
				values []float32
				err    error
			}
			result := make(chan pullResult, 1)
			store.Pull(resolvedKeys, req.Filter, func(values []float32, err error) {
				result <- pullResult{values, err}
			})
			res := <-result
			if res.err != nil {
				return transport.Frame{}, res.err
			}
			var buf bytes.Buffer
			resp := pullResponse{Values: maybeCompress(encodeValues(res.values, req.Filter), req.Filter), Filter: req.Filter}
			if err := gob.NewEncoder(&buf).Encode(resp); err != nil {
				return transport.Frame{}, fmt.Errorf("grpcts: encode pull response: %w", err)
			}
			return transport.Frame{Role: transport.RoleServer, Cmd: transport.CmdPull, Payload: buf.Bytes()}, nil

		default:
			return transport.Frame{}, fmt.Errorf("grpcts: server handler got unsupported cmd %v", frame.Cmd)
		}
	}
}
