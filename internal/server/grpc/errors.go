package grpc

import (
	"context"
	"errors"

	"github.com/dmitrijs2005/unicore/internal/common"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

// toStatus maps the store error taxonomy onto gRPC status codes. Messages of
// unexpected errors are not exposed to the caller.
func toStatus(err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, common.ErrorNotFound):
		return status.Error(codes.NotFound, err.Error())
	case errors.Is(err, common.ErrConflict):
		return status.Error(codes.AlreadyExists, err.Error())
	case errors.Is(err, common.ErrInsufficientFunds):
		return status.Error(codes.FailedPrecondition, err.Error())
	case errors.Is(err, common.ErrInvalidArgument):
		return status.Error(codes.InvalidArgument, err.Error())
	case errors.Is(err, common.ErrPersistence):
		return status.Error(codes.Unavailable, "persistence failure")
	case errors.Is(err, context.Canceled):
		return status.Error(codes.Canceled, err.Error())
	case errors.Is(err, context.DeadlineExceeded):
		return status.Error(codes.DeadlineExceeded, err.Error())
	default:
		return status.Error(codes.Internal, "internal error")
	}
}

// fail logs err and converts it for the wire.
func (s *GRPCServer) fail(ctx context.Context, op string, err error) error {
	if common.IsBusiness(err) {
		s.logger.Info(ctx, op+" rejected", "error", err.Error())
	} else {
		s.logger.Error(ctx, op+" failed", "error", err.Error())
	}
	return toStatus(err)
}
