package client

import (
	"context"
	"fmt"

	"github.com/dmitrijs2005/kitkeeper/internal/common"
	pb "github.com/dmitrijs2005/kitkeeper/internal/proto"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/structpb"
)

type GRPCClient struct {
	endpointURL string
	conn        *grpc.ClientConn
	client      pb.KitServiceClient
	accessToken string
	dialOpts    []grpc.DialOption
}

func withAccessToken(ctx context.Context, token string) context.Context {
	md, _ := metadata.FromOutgoingContext(ctx)
	md = md.Copy()
	if md == nil {
		md = metadata.MD{}
	}
	md.Delete(common.AccessTokenHeaderName)
	md.Set(common.AccessTokenHeaderName, token)

	return metadata.NewOutgoingContext(ctx, md)
}

func (s *GRPCClient) accessTokenInterceptor(
	ctx context.Context,
	method string,
	req, reply interface{},
	cc *grpc.ClientConn,
	invoker grpc.UnaryInvoker,
	opts ...grpc.CallOption,
) error {
	if s.accessToken != "" {
		ctx = withAccessToken(ctx, s.accessToken)
	}
	return invoker(ctx, method, req, reply, cc, opts...)
}

func NewKitKeeperClient(endpointURL, accessToken string, opts ...grpc.DialOption) (*GRPCClient, error) {
	c := &GRPCClient{endpointURL: endpointURL, accessToken: accessToken, dialOpts: opts}
	err := c.InitGRPCClient()
	if err != nil {
		return nil, err
	}
	return c, nil
}

func (s *GRPCClient) InitGRPCClient() error {

	opts := append([]grpc.DialOption{
		grpc.WithTransportCredentials(insecure.NewCredentials()),
		grpc.WithUnaryInterceptor(s.accessTokenInterceptor),
	}, s.dialOpts...)

	conn, err := grpc.NewClient(s.endpointURL, opts...)
	if err != nil {
		return err
	}
	s.conn = conn
	s.client = pb.NewKitServiceClient(conn)
	return nil
}

func (s *GRPCClient) Claim(ctx context.Context, kit string) (pb.ClaimResponse, error) {

	req, err := pb.ClaimRequest{Kit: kit}.Struct()
	if err != nil {
		return pb.ClaimResponse{}, err
	}

	resp, err := s.client.Claim(ctx, req)
	if err != nil {
		return pb.ClaimResponse{}, s.mapError(err)
	}

	return pb.ClaimResponseFrom(resp), nil
}

func (s *GRPCClient) ListKits(ctx context.Context) ([]pb.KitStatus, error) {

	resp, err := s.client.ListKits(ctx, &structpb.Struct{})
	if err != nil {
		return nil, s.mapError(err)
	}

	list, err := pb.ListKitsResponseFrom(resp)
	if err != nil {
		return nil, fmt.Errorf("malformed kit list: %w", err)
	}
	return list.Kits, nil
}

func (s *GRPCClient) Admin(ctx context.Context, args []string) (string, error) {

	req, err := pb.AdminRequest{Args: args}.Struct()
	if err != nil {
		return "", err
	}

	resp, err := s.client.Admin(ctx, req)
	if err != nil {
		return "", s.mapError(err)
	}

	return pb.AdminResponseFrom(resp).Output, nil
}

func (s *GRPCClient) Close() error {
	return s.conn.Close()
}

// mapError turns a status into a sentinel, keeping the server's message.
func (s *GRPCClient) mapError(err error) error {
	if err == nil {
		return nil
	}
	st, _ := status.FromError(err)
	switch st.Code() {
	case codes.Unauthenticated:
		return fmt.Errorf("%w: %s", ErrUnauthorized, st.Message())
	case codes.PermissionDenied:
		return fmt.Errorf("%w: %s", ErrForbidden, st.Message())
	case codes.InvalidArgument, codes.AlreadyExists, codes.FailedPrecondition:
		return fmt.Errorf("%w: %s", ErrBadRequest, st.Message())
	case codes.NotFound:
		return fmt.Errorf("%w: %s", ErrNotFound, st.Message())
	case codes.Unavailable, codes.DeadlineExceeded:
		return ErrUnavailable
	default:
		return fmt.Errorf("rpc error: %w", err)
	}
}
