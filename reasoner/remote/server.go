package remote

import (
	"context"
	"encoding/json"
	"log/slog"

	"github.com/c360/semreason/errors"
	"github.com/c360/semreason/natsclient"
	"github.com/c360/semreason/reasoner"
)

// Responder registers request handlers. *natsclient.Client implements it.
type Responder interface {
	Respond(ctx context.Context, subject, queue string, responder natsclient.Responder) error
}

// Serve exposes backend on the four subjects under prefix. Servers
// sharing a queue group split the load. Handlers run until the
// subscriptions are closed.
func Serve(ctx context.Context, bus Responder, prefix, queue string, backend reasoner.Backend, logger *slog.Logger) error {
	if prefix == "" {
		prefix = DefaultPrefix
	}
	if logger == nil {
		logger = slog.Default()
	}
	logger = logger.With("component", "remote-server", "prefix", prefix, "backend", backend.Name())

	handlers := map[string]func(context.Context, Request) Reply{
		SubjectReason: func(ctx context.Context, req Request) Reply {
			if req.Configuration == nil {
				return Reply{Error: &ReplyError{Code: CodeInvalid, Message: "configuration is required"}}
			}
			res, err := backend.Reason(ctx, req.Dataset, *req.Configuration)
			if err != nil {
				return Reply{Error: toReplyError(err)}
			}
			return Reply{Result: res}
		},
		SubjectConsistency: func(ctx context.Context, req Request) Reply {
			ok, err := backend.CheckConsistency(ctx, req.Dataset)
			if err != nil {
				return Reply{Error: toReplyError(err)}
			}
			return Reply{Consistent: &ok}
		},
		SubjectUnsatisfiable: func(ctx context.Context, req Request) Reply {
			lines, err := backend.UnsatisfiableEntities(ctx, req.Dataset)
			if err != nil {
				return Reply{Error: toReplyError(err)}
			}
			return Reply{Lines: nonNil(lines)}
		},
		SubjectExplain: func(ctx context.Context, req Request) Reply {
			lines, err := backend.ExplainInconsistency(ctx, req.Dataset)
			if err != nil {
				return Reply{Error: toReplyError(err)}
			}
			return Reply{Lines: nonNil(lines)}
		},
	}

	for suffix, handle := range handlers {
		subject := prefix + "." + suffix
		handle := handle
		err := bus.Respond(ctx, subject, queue, func(ctx context.Context, data []byte) []byte {
			var req Request
			reply := Reply{}
			if err := json.Unmarshal(data, &req); err != nil {
				reply.Error = &ReplyError{Code: CodeInvalid, Message: "decode request: " + err.Error()}
			} else {
				reply = handle(ctx, req)
			}
			if reply.Error != nil {
				logger.Warn("Remote reasoning request failed", "subject", subject, "code", reply.Error.Code,
					"error", reply.Error.Message)
			}

			out, err := json.Marshal(reply)
			if err != nil {
				logger.Error("Failed to encode reply", "subject", subject, "error", err)
				out, _ = json.Marshal(Reply{Error: &ReplyError{Code: CodeInternal, Message: "encode reply"}})
			}
			return out
		})
		if err != nil {
			return errors.WrapClassified(err, "RemoteServer", "Serve", "subscribe to "+subject)
		}
	}

	logger.Info("Serving remote reasoning requests", "queue", queue)
	return nil
}
