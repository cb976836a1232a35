package grpc

import (
	"context"
	"errors"

	"github.com/dmitrijs2005/kitkeeper/internal/common"
	pb "github.com/dmitrijs2005/kitkeeper/internal/proto"
	"github.com/dmitrijs2005/kitkeeper/internal/server/admin"
	"github.com/dmitrijs2005/kitkeeper/internal/server/models"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/structpb"
)

func (s *GRPCServer) caller(ctx context.Context) (models.Player, error) {
	p, ok := playerFromContext(ctx)
	if !ok {
		return models.Player{}, status.Error(codes.Unauthenticated, "missing token")
	}
	return p, nil
}

func (s *GRPCServer) Claim(ctx context.Context, in *structpb.Struct) (*structpb.Struct, error) {

	player, err := s.caller(ctx)
	if err != nil {
		return nil, err
	}
	req := pb.ClaimRequestFrom(in)

	res, err := s.deps.Claims.Claim(ctx, player, req.Kit)

	resp := pb.ClaimResponse{
		Allowed:   res.Allowed(),
		Reason:    res.Reason.String(),
		Remaining: res.Remaining,
		Charged:   res.Charged,
		Overflow:  res.Overflow,
	}

	switch {
	case err == nil && res.Allowed():
		resp.Message = "claimed " + res.Kit.DisplayName
	case err == nil:
		resp.Message = res.Err().Error()
	case res.Allowed() && res.Kit != nil:
		// committed, but some items could not be delivered
		s.logger.Error(ctx, err.Error(), "player", player.ID)
		resp.Message = "claimed " + res.Kit.DisplayName + " with delivery errors"
	default:
		return nil, claimStatus(err)
	}

	return toStruct(resp.Struct())
}

func claimStatus(err error) error {
	switch {
	case errors.Is(err, common.ErrShuttingDown):
		return status.Error(codes.Unavailable, err.Error())
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return status.FromContextError(err).Err()
	default:
		return status.Error(codes.Internal, "internal error")
	}
}

// ListKits returns the kits the caller may claim, with their cooldown and
// one-time state.
func (s *GRPCServer) ListKits(ctx context.Context, _ *structpb.Struct) (*structpb.Struct, error) {

	player, err := s.caller(ctx)
	if err != nil {
		return nil, err
	}

	now := s.deps.Clock.Now()
	var resp pb.ListKitsResponse
	for _, k := range s.deps.Kits.ListAvailable(player) {
		ent := s.deps.Entitlements.Get(player.ID, k.ID)
		st := pb.KitStatus{ID: k.ID, DisplayName: k.DisplayName, Status: pb.StatusReady, Cost: k.Cost, OneTime: k.OneTime}
		switch {
		case k.OneTime && ent.OneTimeUsed:
			st.Status = pb.StatusUsed
		case ent.Remaining(now) > 0:
			st.Status = pb.StatusCooldown
			st.Remaining = ent.Remaining(now)
		}
		resp.Kits = append(resp.Kits, st)
	}

	return toStruct(resp.Struct())
}

func (s *GRPCServer) Admin(ctx context.Context, in *structpb.Struct) (*structpb.Struct, error) {

	player, err := s.caller(ctx)
	if err != nil {
		return nil, err
	}
	req, err := pb.AdminRequestFrom(in)
	if err != nil {
		return nil, status.Error(codes.InvalidArgument, err.Error())
	}

	out, err := s.deps.Admin.Execute(ctx, admin.Sender{Player: player}, req.Args)
	if err != nil {
		return nil, adminStatus(err)
	}

	s.logger.Info(ctx, "admin command", "player", player.Name, "args", req.Args)
	return toStruct(pb.AdminResponse{Output: out}.Struct())
}

func adminStatus(err error) error {
	switch {
	case errors.Is(err, common.ErrPermissionDenied):
		return status.Error(codes.PermissionDenied, err.Error())
	case errors.Is(err, common.ErrConfigInvalid):
		return status.Error(codes.InvalidArgument, err.Error())
	case errors.Is(err, common.ErrKitNotFound), errors.Is(err, common.ErrorNotFound):
		return status.Error(codes.NotFound, err.Error())
	case errors.Is(err, common.ErrKitExists):
		return status.Error(codes.AlreadyExists, err.Error())
	case errors.Is(err, common.ErrEconomyDisabled):
		return status.Error(codes.FailedPrecondition, err.Error())
	case errors.Is(err, common.ErrShuttingDown):
		return status.Error(codes.Unavailable, err.Error())
	default:
		return status.Error(codes.Internal, err.Error())
	}
}

func toStruct(s *structpb.Struct, err error) (*structpb.Struct, error) {
	if err != nil {
		return nil, status.Error(codes.Internal, err.Error())
	}
	return s, nil
}

var _ pb.KitServiceServer = (*GRPCServer)(nil)
