// Package grpc exposes the claim coordinator, kit listing and admin verbs
// over kitkeeper.v1.KitService.
package grpc

import (
	"context"
	"net"

	"github.com/dmitrijs2005/kitkeeper/internal/logging"
	pb "github.com/dmitrijs2005/kitkeeper/internal/proto"
	"github.com/dmitrijs2005/kitkeeper/internal/server/admin"
	"github.com/dmitrijs2005/kitkeeper/internal/server/claims"
	"github.com/dmitrijs2005/kitkeeper/internal/server/models"
	"github.com/dmitrijs2005/kitkeeper/internal/timex"
	"github.com/google/uuid"
	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
)

type Claimer interface {
	Claim(ctx context.Context, player models.Player, kitID string) (claims.Result, error)
}

type Kits interface {
	ListAvailable(player models.Player) []*models.Kit
}

type Entitlements interface {
	Get(player uuid.UUID, kit string) models.Entitlement
}

type Admin interface {
	Execute(ctx context.Context, s admin.Sender, args []string) (string, error)
}

// Players learns names from verified tokens so admin verbs can address
// players by name.
type Players interface {
	Remember(p models.Player)
}

type Deps struct {
	Claims       Claimer
	Kits         Kits
	Entitlements Entitlements
	Admin        Admin
	Players      Players
	Clock        timex.Clock
}

type GRPCServer struct {
	address   string
	logger    logging.Logger
	jwtSecret []byte
	health    *health.Server
	deps      Deps
}

func NewGRPCServer(a string, l logging.Logger, secretKey string, d Deps) *GRPCServer {
	if d.Clock == nil {
		d.Clock = timex.SystemClock{}
	}
	return &GRPCServer{
		address:   a,
		logger:    l.With("module", "grpc_server"),
		jwtSecret: []byte(secretKey),
		health:    health.NewServer(),
		deps:      d,
	}
}

func (s *GRPCServer) Run(ctx context.Context) error {

	// announces address
	listen, err := net.Listen("tcp", s.address)
	if err != nil {
		return err
	}

	s.logger.Info(ctx, "Starting gRPC server", "address", s.address)

	return s.serve(ctx, listen)
}

func (s *GRPCServer) serve(ctx context.Context, listen net.Listener) error {

	// creates gRPC-server
	srv := grpc.NewServer(grpc.ChainUnaryInterceptor(s.loggingInterceptor, s.accessTokenInterceptor))

	// registers services
	pb.RegisterKitServiceServer(srv, s)
	healthpb.RegisterHealthServer(srv, s.health)
	s.health.SetServingStatus(pb.ServiceName, healthpb.HealthCheckResponse_SERVING)

	go func() {
		<-ctx.Done()
		s.logger.Info(ctx, "Stopping gPRC server...")
		s.health.Shutdown()
		srv.GracefulStop()
	}()

	// starts accepting incoming connections
	if err := srv.Serve(listen); err != nil {
		return err
	}

	return nil
}
