package api

import (
	"context"

	"google.golang.org/grpc"
)

// ServiceName is the fully-qualified gRPC service name.
const ServiceName = "recipebook.v1.Backend"

// FullMethod returns the gRPC path of method.
func FullMethod(method string) string { return "/" + ServiceName + "/" + method }

// BackendServer is the server API of the backend platform.
type BackendServer interface {
	SignUp(context.Context, *Credentials) (*SignUpResponse, error)
	SignIn(context.Context, *Credentials) (*SignInResponse, error)
	SendPasswordReset(context.Context, *EmailRequest) (*Empty, error)
	ResetPassword(context.Context, *ResetPasswordRequest) (*Empty, error)
	DeleteIdentity(context.Context, *EmailRequest) (*Empty, error)
	UpdateDisplay(context.Context, *UpdateDisplayRequest) (*Empty, error)

	GetDoc(context.Context, *DocRef) (*DocResponse, error)
	AddDoc(context.Context, *AddDocRequest) (*AddDocResponse, error)
	SetDoc(context.Context, *WriteDocRequest) (*Empty, error)
	UpdateDoc(context.Context, *WriteDocRequest) (*Empty, error)
	DeleteDoc(context.Context, *DocRef) (*Empty, error)
	ListDocs(context.Context, *ListDocsRequest) (*DocsResponse, error)
	Subscribe(*SubscribeRequest, Backend_SubscribeServer) error

	Upload(context.Context, *UploadRequest) (*Empty, error)
	DownloadURL(context.Context, *PathRequest) (*URLResponse, error)
}

// Backend_SubscribeServer sends one Snapshot per change of the collection.
type Backend_SubscribeServer interface { //nolint:revive // generated-style stream type name
	Send(*Snapshot) error
	grpc.ServerStream
}

type subscribeServer struct{ grpc.ServerStream }

func (x *subscribeServer) Send(m *Snapshot) error { return x.ServerStream.SendMsg(m) }

func unary[Req, Resp any](name string, call func(BackendServer, context.Context, *Req) (*Resp, error)) grpc.MethodDesc {
	return grpc.MethodDesc{
		MethodName: name,
		Handler: func(srv any, ctx context.Context, dec func(any) error, ic grpc.UnaryServerInterceptor) (any, error) {
			in := new(Req)
			if err := dec(in); err != nil {
				return nil, err
			}
			if ic == nil {
				return call(srv.(BackendServer), ctx, in)
			}
			info := &grpc.UnaryServerInfo{Server: srv, FullMethod: FullMethod(name)}
			h := func(ctx context.Context, req any) (any, error) {
				return call(srv.(BackendServer), ctx, req.(*Req))
			}
			return ic(ctx, in, info, h)
		},
	}
}

func subscribeHandler(srv any, stream grpc.ServerStream) error {
	in := new(SubscribeRequest)
	if err := stream.RecvMsg(in); err != nil {
		return err
	}
	return srv.(BackendServer).Subscribe(in, &subscribeServer{stream})
}

// ServiceDesc describes recipebook.v1.Backend for grpc.Server.RegisterService.
var ServiceDesc = grpc.ServiceDesc{
	ServiceName: ServiceName,
	HandlerType: (*BackendServer)(nil),
	Methods: []grpc.MethodDesc{
		unary("SignUp", BackendServer.SignUp),
		unary("SignIn", BackendServer.SignIn),
		unary("SendPasswordReset", BackendServer.SendPasswordReset),
		unary("ResetPassword", BackendServer.ResetPassword),
		unary("DeleteIdentity", BackendServer.DeleteIdentity),
		unary("UpdateDisplay", BackendServer.UpdateDisplay),
		unary("GetDoc", BackendServer.GetDoc),
		unary("AddDoc", BackendServer.AddDoc),
		unary("SetDoc", BackendServer.SetDoc),
		unary("UpdateDoc", BackendServer.UpdateDoc),
		unary("DeleteDoc", BackendServer.DeleteDoc),
		unary("ListDocs", BackendServer.ListDocs),
		unary("Upload", BackendServer.Upload),
		unary("DownloadURL", BackendServer.DownloadURL),
	},
	Streams: []grpc.StreamDesc{
		{StreamName: "Subscribe", Handler: subscribeHandler, ServerStreams: true},
	},
	Metadata: "recipebook/v1/backend.json",
}

// RegisterBackendServer registers srv on s.
func RegisterBackendServer(s grpc.ServiceRegistrar, srv BackendServer) {
	s.RegisterService(&ServiceDesc, srv)
}

// BackendClient is the client API of the backend platform. Calls use the JSON codec.
type BackendClient struct {
	cc grpc.ClientConnInterface
}

// NewBackendClient binds a client to cc.
func NewBackendClient(cc grpc.ClientConnInterface) *BackendClient {
	return &BackendClient{cc: cc}
}

func invoke[Resp any](ctx context.Context, cc grpc.ClientConnInterface, method string, in any, opts []grpc.CallOption) (*Resp, error) {
	out := new(Resp)
	opts = append([]grpc.CallOption{grpc.CallContentSubtype(CodecName)}, opts...)
	if err := cc.Invoke(ctx, FullMethod(method), in, out, opts...); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *BackendClient) SignUp(ctx context.Context, in *Credentials, opts ...grpc.CallOption) (*SignUpResponse, error) {
	return invoke[SignUpResponse](ctx, c.cc, "SignUp", in, opts)
}

func (c *BackendClient) SignIn(ctx context.Context, in *Credentials, opts ...grpc.CallOption) (*SignInResponse, error) {
	return invoke[SignInResponse](ctx, c.cc, "SignIn", in, opts)
}

func (c *BackendClient) SendPasswordReset(ctx context.Context, in *EmailRequest, opts ...grpc.CallOption) (*Empty, error) {
	return invoke[Empty](ctx, c.cc, "SendPasswordReset", in, opts)
}

func (c *BackendClient) ResetPassword(ctx context.Context, in *ResetPasswordRequest, opts ...grpc.CallOption) (*Empty, error) {
	return invoke[Empty](ctx, c.cc, "ResetPassword", in, opts)
}

func (c *BackendClient) DeleteIdentity(ctx context.Context, in *EmailRequest, opts ...grpc.CallOption) (*Empty, error) {
	return invoke[Empty](ctx, c.cc, "DeleteIdentity", in, opts)
}

func (c *BackendClient) UpdateDisplay(ctx context.Context, in *UpdateDisplayRequest, opts ...grpc.CallOption) (*Empty, error) {
	return invoke[Empty](ctx, c.cc, "UpdateDisplay", in, opts)
}

func (c *BackendClient) GetDoc(ctx context.Context, in *DocRef, opts ...grpc.CallOption) (*DocResponse, error) {
	return invoke[DocResponse](ctx, c.cc, "GetDoc", in, opts)
}

func (c *BackendClient) AddDoc(ctx context.Context, in *AddDocRequest, opts ...grpc.CallOption) (*AddDocResponse, error) {
	return invoke[AddDocResponse](ctx, c.cc, "AddDoc", in, opts)
}

func (c *BackendClient) SetDoc(ctx context.Context, in *WriteDocRequest, opts ...grpc.CallOption) (*Empty, error) {
	return invoke[Empty](ctx, c.cc, "SetDoc", in, opts)
}

func (c *BackendClient) UpdateDoc(ctx context.Context, in *WriteDocRequest, opts ...grpc.CallOption) (*Empty, error) {
	return invoke[Empty](ctx, c.cc, "UpdateDoc", in, opts)
}

func (c *BackendClient) DeleteDoc(ctx context.Context, in *DocRef, opts ...grpc.CallOption) (*Empty, error) {
	return invoke[Empty](ctx, c.cc, "DeleteDoc", in, opts)
}

func (c *BackendClient) ListDocs(ctx context.Context, in *ListDocsRequest, opts ...grpc.CallOption) (*DocsResponse, error) {
	return invoke[DocsResponse](ctx, c.cc, "ListDocs", in, opts)
}

func (c *BackendClient) Upload(ctx context.Context, in *UploadRequest, opts ...grpc.CallOption) (*Empty, error) {
	return invoke[Empty](ctx, c.cc, "Upload", in, opts)
}

func (c *BackendClient) DownloadURL(ctx context.Context, in *PathRequest, opts ...grpc.CallOption) (*URLResponse, error) {
	return invoke[URLResponse](ctx, c.cc, "DownloadURL", in, opts)
}

// Backend_SubscribeClient receives snapshots of one collection.
type Backend_SubscribeClient interface { //nolint:revive // generated-style stream type name
	Recv() (*Snapshot, error)
	grpc.ClientStream
}

type subscribeClient struct{ grpc.ClientStream }

func (x *subscribeClient) Recv() (*Snapshot, error) {
	m := new(Snapshot)
	if err := x.ClientStream.RecvMsg(m); err != nil {
		return nil, err
	}
	return m, nil
}

// Subscribe opens the snapshot stream of in.Collection.
func (c *BackendClient) Subscribe(ctx context.Context, in *SubscribeRequest, opts ...grpc.CallOption) (Backend_SubscribeClient, error) {
	opts = append([]grpc.CallOption{grpc.CallContentSubtype(CodecName)}, opts...)
	stream, err := c.cc.NewStream(ctx, &ServiceDesc.Streams[0], FullMethod("Subscribe"), opts...)
	if err != nil {
		return nil, err
	}
	x := &subscribeClient{stream}
	if err := x.ClientStream.SendMsg(in); err != nil {
		return nil, err
	}
	if err := x.ClientStream.CloseSend(); err != nil {
		return nil, err
	}
	return x, nil
}
