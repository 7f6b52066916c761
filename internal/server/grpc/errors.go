package grpc

import (
	"context"
	"errors"

	"github.com/kaplunov-alex/PWMgr/internal/common"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

// toStatus maps a service error onto a gRPC status. Unknown errors are
// logged and hidden behind a generic message.
func (s *GRPCServer) toStatus(ctx context.Context, err error) error {
	var rl *common.RateLimitedError

	switch {
	case errors.As(err, &rl):
		return status.Error(codes.ResourceExhausted, rl.Error())
	case errors.Is(err, common.ErrValidation):
		return status.Error(codes.InvalidArgument, err.Error())
	case errors.Is(err, common.ErrConflict):
		return status.Error(codes.AlreadyExists, err.Error())
	case errors.Is(err, common.ErrNotConfigured):
		return status.Error(codes.FailedPrecondition, err.Error())
	case errors.Is(err, common.ErrorNotFound):
		return status.Error(codes.NotFound, "entry not found")
	case errors.Is(err, common.ErrorUnauthorized),
		errors.Is(err, common.ErrInvalidToken),
		errors.Is(err, common.ErrTokenExpired):
		return status.Error(codes.Unauthenticated, "not authenticated")
	case errors.Is(err, common.ErrAuthenticationFailure),
		errors.Is(err, common.ErrMalformedInput):
		s.logger.Error(ctx, "stored entry failed to decrypt", "error", err)
		return status.Error(codes.DataLoss, err.Error())
	}

	s.logger.Error(ctx, "request failed", "error", err)
	return status.Error(codes.Internal, common.ErrorInternal.Error())
}
