package grpc

import (
	"context"
	"path"

	"github.com/kaplunov-alex/PWMgr/internal/common"
	"github.com/kaplunov-alex/PWMgr/internal/netx"
	"github.com/kaplunov-alex/PWMgr/internal/server/session"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/peer"
	"google.golang.org/grpc/status"
)

type ctxKey string

const sessionKey ctxKey = "session"

// publicMethods are callable without an authenticated session.
var publicMethods = map[string]bool{
	"Status": true,
	"Setup":  true,
	"Login":  true,
}

func sessionFromContext(ctx context.Context) (*session.Session, bool) {
	s, ok := ctx.Value(sessionKey).(*session.Session)
	return s, ok && s != nil
}

func firstMetadata(ctx context.Context, name string) string {
	if md, ok := metadata.FromIncomingContext(ctx); ok {
		if values := md.Get(name); len(values) > 0 {
			return values[0]
		}
	}
	return ""
}

// clientID identifies the caller for login throttling: the first address
// in x-forwarded-for, else the peer host.
func clientID(ctx context.Context) string {
	if first := netx.FirstForwarded(firstMetadata(ctx, common.ForwardedForHeaderName)); first != "" {
		return first
	}

	if p, ok := peer.FromContext(ctx); ok && p.Addr != nil {
		return netx.Host(p.Addr.String())
	}

	return "unknown"
}

func (s *GRPCServer) throttleInterceptor(ctx context.Context, req any, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (any, error) {
	if s.throttle != nil && !s.throttle.Allow() {
		s.logger.Warn(ctx, "request throttled", "method", info.FullMethod, "client", clientID(ctx))
		return nil, status.Error(codes.ResourceExhausted, "too many requests")
	}
	return handler(ctx, req)
}

// sessionInterceptor resolves the session token, if any, and refuses
// non-public methods to callers without an authenticated session.
func (s *GRPCServer) sessionInterceptor(ctx context.Context, req any, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (any, error) {
	var sess *session.Session

	if token := firstMetadata(ctx, common.SessionTokenHeaderName); token != "" {
		id, err := s.tokens.Parse(token)
		if err != nil {
			s.logger.Debug(ctx, "rejected session token", "method", info.FullMethod, "error", err)
		} else if found, ok := s.sessions.Get(id); ok {
			sess = found
		}
	}

	if !publicMethods[path.Base(info.FullMethod)] {
		if sess == nil || !s.auth.IsAuthenticated(sess) {
			return nil, status.Error(codes.Unauthenticated, "not authenticated")
		}
	}

	if sess != nil {
		ctx = context.WithValue(ctx, sessionKey, sess)
	}

	return handler(ctx, req)
}
