package grpc

import (
	"context"
	"strings"
	"time"

	"github.com/dmitrijs2005/kitkeeper/internal/common"
	pb "github.com/dmitrijs2005/kitkeeper/internal/proto"
	"github.com/dmitrijs2005/kitkeeper/internal/server/auth"
	"github.com/dmitrijs2005/kitkeeper/internal/server/models"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/status"
)

type ctxKey string

const playerKey ctxKey = "player"

var protectedPrefix = "/" + pb.ServiceName + "/"

// accessTokenInterceptor resolves the caller of every KitService method from
// the access_token metadata. Health checks pass through.
func (s *GRPCServer) accessTokenInterceptor(ctx context.Context, req interface{}, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (interface{}, error) {

	if strings.HasPrefix(info.FullMethod, protectedPrefix) {

		var accessToken string
		if md, ok := metadata.FromIncomingContext(ctx); ok {
			values := md.Get(common.AccessTokenHeaderName)
			if len(values) > 0 {
				accessToken = values[0]
			}
		}
		if len(accessToken) == 0 {
			return nil, status.Error(codes.Unauthenticated, "missing token")
		}

		player, err := auth.PlayerFromToken(accessToken, s.jwtSecret)
		if err != nil {
			return nil, status.Error(codes.Unauthenticated, common.ErrInvalidToken.Error())
		}

		if s.deps.Players != nil {
			s.deps.Players.Remember(player)
		}

		ctx = context.WithValue(ctx, playerKey, player)
	}

	return handler(ctx, req)
}

func playerFromContext(ctx context.Context) (models.Player, bool) {
	p, ok := ctx.Value(playerKey).(models.Player)
	return p, ok
}

func (s *GRPCServer) loggingInterceptor(ctx context.Context, req interface{}, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (interface{}, error) {
	start := time.Now()
	resp, err := handler(ctx, req)

	code := status.Code(err)
	args := []any{"method", info.FullMethod, "code", code.String(), "took", time.Since(start)}
	switch code {
	case codes.OK:
		s.logger.Debug(ctx, "rpc", args...)
	case codes.Internal, codes.Unknown:
		s.logger.Error(ctx, "rpc failed", append(args, "error", err)...)
	default:
		s.logger.Warn(ctx, "rpc rejected", append(args, "error", err)...)
	}
	return resp, err
}
