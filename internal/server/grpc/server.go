// Package grpcserver exposes the recipebook backend platform over gRPC.
package grpcserver

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"go.uber.org/zap"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/peer"
	"google.golang.org/grpc/status"

	"github.com/and161185/recipebook/internal/api"
	"github.com/and161185/recipebook/internal/blobstore"
	"github.com/and161185/recipebook/internal/docstore"
	"github.com/and161185/recipebook/internal/errs"
	"github.com/and161185/recipebook/internal/model"
	"github.com/and161185/recipebook/internal/policy"
	"github.com/and161185/recipebook/internal/projection"
	"github.com/and161185/recipebook/internal/service"
)

// Roles resolves and invalidates the role of an identity.
type Roles interface {
	Viewer(ctx context.Context, identity string) (policy.Viewer, error)
	Forget(identity string)
}

// Server wires services and stores into gRPC handlers.
type Server struct {
	auth    service.AuthService
	docs    docstore.Store
	blobs   blobstore.Store
	roles   Roles
	signKey []byte
	log     *zap.Logger
}

var _ api.BackendServer = (*Server)(nil)

// New constructs a gRPC server with injected services.
func New(auth service.AuthService, docs docstore.Store, blobs blobstore.Store, roles Roles, signKey []byte, log *zap.Logger) *Server {
	if log == nil {
		log = zap.NewNop()
	}
	return &Server{auth: auth, docs: docs, blobs: blobs, roles: roles, signKey: signKey, log: log}
}

// --- Auth ---

// SignUp creates a new identity.
func (s *Server) SignUp(ctx context.Context, req *api.Credentials) (*api.SignUpResponse, error) {
	if req.Email == "" || req.Password == "" {
		return nil, status.Error(codes.InvalidArgument, "empty email/password")
	}
	id, err := s.auth.Register(ctx, req.Email, req.Password)
	if err != nil {
		return nil, toStatus("sign up", err)
	}
	return &api.SignUpResponse{Identity: toAPIIdentity(id)}, nil
}

func remoteIP(ctx context.Context) string {
	if p, ok := peer.FromContext(ctx); ok && p.Addr != nil {
		return p.Addr.String()
	}
	return ""
}

// SignIn authenticates an identity and returns an access token.
func (s *Server) SignIn(ctx context.Context, req *api.Credentials) (*api.SignInResponse, error) {
	tok, id, err := s.auth.LoginWithIP(ctx, req.Email, req.Password, remoteIP(ctx))
	if err != nil {
		return nil, toStatus("sign in", err)
	}
	return &api.SignInResponse{AccessToken: tok.AccessToken, ExpiresAt: tok.ExpiresAt, Identity: toAPIIdentity(id)}, nil
}

// SendPasswordReset mails a reset token. Unknown emails are reported as NotFound.
func (s *Server) SendPasswordReset(ctx context.Context, req *api.EmailRequest) (*api.Empty, error) {
	if err := s.auth.RequestPasswordReset(ctx, req.Email); err != nil {
		return nil, toStatus("send password reset", err)
	}
	return &api.Empty{}, nil
}

// ResetPassword consumes a reset token.
func (s *Server) ResetPassword(ctx context.Context, req *api.ResetPasswordRequest) (*api.Empty, error) {
	if err := s.auth.ResetPassword(ctx, req.Token, req.Password); err != nil {
		return nil, toStatus("reset password", err)
	}
	return &api.Empty{}, nil
}

// DeleteIdentity removes the users/<email> profile and then the identity.
// Callers may delete themselves; admins anyone.
func (s *Server) DeleteIdentity(ctx context.Context, req *api.EmailRequest) (*api.Empty, error) {
	v, err := s.viewer(ctx)
	if err != nil {
		return nil, err
	}
	if v.Identity != req.Email && !v.Admin() {
		return nil, status.Error(codes.PermissionDenied, "not your identity")
	}
	if err := s.docs.Delete(ctx, model.CollectionUsers, req.Email); err != nil && !errors.Is(err, errs.ErrNotFound) {
		return nil, toStatus("delete profile", err)
	}
	s.roles.Forget(req.Email)
	if err := s.auth.DeleteIdentity(ctx, req.Email); err != nil {
		return nil, toStatus("delete identity", err)
	}
	return &api.Empty{}, nil
}

// UpdateDisplay changes display name and photo of the caller.
func (s *Server) UpdateDisplay(ctx context.Context, req *api.UpdateDisplayRequest) (*api.Empty, error) {
	email, err := requireEmail(ctx)
	if err != nil {
		return nil, err
	}
	if email != req.Email {
		return nil, status.Error(codes.PermissionDenied, "not your identity")
	}
	if err := s.auth.UpdateDisplay(ctx, req.Email, req.DisplayName, req.PhotoURL); err != nil {
		return nil, toStatus("update display", err)
	}
	return &api.Empty{}, nil
}

// --- Documents ---

// GetDoc returns one document. Reads are public except for profiles.
func (s *Server) GetDoc(ctx context.Context, req *api.DocRef) (*api.DocResponse, error) {
	if err := s.checkRead(ctx, req.Collection, req.ID); err != nil {
		return nil, err
	}
	d, err := s.docs.Get(ctx, req.Collection, req.ID)
	if err != nil {
		return nil, toStatus("get doc", err)
	}
	return &api.DocResponse{Doc: api.Doc{ID: d.ID, Fields: api.FromModel(d.Fields)}}, nil
}

// AddDoc inserts a document under a fresh id.
func (s *Server) AddDoc(ctx context.Context, req *api.AddDocRequest) (*api.AddDocResponse, error) {
	fields := req.Fields.Model()
	if err := s.checkWrite(ctx, opAdd, req.Collection, "", fields); err != nil {
		return nil, err
	}
	id, err := s.docs.Add(ctx, req.Collection, fields)
	if err != nil {
		return nil, toStatus("add doc", err)
	}
	return &api.AddDocResponse{ID: id}, nil
}

// SetDoc creates or replaces a document with an explicit id.
func (s *Server) SetDoc(ctx context.Context, req *api.WriteDocRequest) (*api.Empty, error) {
	fields := req.Fields.Model()
	if err := s.checkWrite(ctx, opSet, req.Collection, req.ID, fields); err != nil {
		return nil, err
	}
	if err := s.docs.Set(ctx, req.Collection, req.ID, fields); err != nil {
		return nil, toStatus("set doc", err)
	}
	s.afterUserWrite(req.Collection, req.ID)
	return &api.Empty{}, nil
}

// UpdateDoc merges fields into a document.
func (s *Server) UpdateDoc(ctx context.Context, req *api.WriteDocRequest) (*api.Empty, error) {
	fields := req.Fields.Model()
	if err := s.checkWrite(ctx, opUpdate, req.Collection, req.ID, fields); err != nil {
		return nil, err
	}
	if err := s.docs.Update(ctx, req.Collection, req.ID, fields); err != nil {
		return nil, toStatus("update doc", err)
	}
	s.afterUserWrite(req.Collection, req.ID)
	return &api.Empty{}, nil
}

// DeleteDoc removes a document.
func (s *Server) DeleteDoc(ctx context.Context, req *api.DocRef) (*api.Empty, error) {
	if err := s.checkWrite(ctx, opDelete, req.Collection, req.ID, nil); err != nil {
		return nil, err
	}
	if err := s.docs.Delete(ctx, req.Collection, req.ID); err != nil {
		return nil, toStatus("delete doc", err)
	}
	s.afterUserWrite(req.Collection, req.ID)
	return &api.Empty{}, nil
}

// ListDocs returns a collection, optionally ordered by one field.
func (s *Server) ListDocs(ctx context.Context, req *api.ListDocsRequest) (*api.DocsResponse, error) {
	if err := s.checkRead(ctx, req.Collection, ""); err != nil {
		return nil, err
	}
	docs, err := s.docs.List(ctx, req.Collection, docstore.Order{Field: req.OrderBy, Desc: req.Desc})
	if err != nil {
		return nil, toStatus("list docs", err)
	}
	return &api.DocsResponse{Docs: api.FromDocs(docs)}, nil
}

// Subscribe streams a full snapshot of the collection after every change
// until the client goes away.
func (s *Server) Subscribe(req *api.SubscribeRequest, stream api.Backend_SubscribeServer) error {
	ctx := stream.Context()
	if err := s.checkRead(ctx, req.Collection, ""); err != nil {
		return err
	}
	snaps := make(chan model.Snapshot, 1)
	cancel, err := s.docs.Subscribe(ctx, req.Collection, func(sn model.Snapshot) {
		select {
		case snaps <- sn:
		case <-ctx.Done():
		}
	})
	if err != nil {
		return toStatus("subscribe", err)
	}
	defer cancel()

	for {
		select {
		case <-ctx.Done():
			return nil
		case sn := <-snaps:
			if err := stream.Send(&api.Snapshot{Collection: sn.Collection, Docs: api.FromDocs(sn.Docs)}); err != nil {
				return err
			}
		}
	}
}

// --- Blobs ---

// Upload stores an object.
func (s *Server) Upload(ctx context.Context, req *api.UploadRequest) (*api.Empty, error) {
	if _, err := requireEmail(ctx); err != nil {
		return nil, err
	}
	if err := s.blobs.Upload(ctx, req.Path, req.Data, req.ContentType); err != nil {
		return nil, toStatus("upload", err)
	}
	return &api.Empty{}, nil
}

// DownloadURL returns the URL of an object.
func (s *Server) DownloadURL(ctx context.Context, req *api.PathRequest) (*api.URLResponse, error) {
	url, err := s.blobs.DownloadURL(ctx, req.Path)
	if err != nil {
		return nil, toStatus("download url", err)
	}
	return &api.URLResponse{URL: url}, nil
}

// --- access rules ---

type writeOp int

const (
	opAdd writeOp = iota
	opSet
	opUpdate
	opDelete
)

// checkWrite requires an identity for every write. Admins may write anything
// and are the only writers of categories. A users/<email> profile may be
// written by its owner, who cannot raise its role. Items, comments and
// favorites carry their owner in a field: new documents must name the
// caller, existing ones may be touched by their owner only and never change
// hands. Nobody but an admin can approve an item.
func (s *Server) checkWrite(ctx context.Context, op writeOp, collection, id string, fields model.Fields) error {
	v, err := s.viewer(ctx)
	if err != nil {
		return err
	}
	if v.Admin() {
		return nil
	}
	switch {
	case collection == model.CollectionUsers:
		if id != v.Identity {
			return status.Error(codes.PermissionDenied, "profile of another identity")
		}
		if r, ok := fields[projection.FieldRole]; ok && r != string(model.RoleUser) {
			return status.Error(codes.PermissionDenied, "role change requires admin")
		}
	case collection == model.CollectionCategories:
		return status.Error(codes.PermissionDenied, "categories are read-only")
	case collection == model.CollectionFoods:
		if fields[projection.FieldApproved] == true {
			return status.Error(codes.PermissionDenied, "approval requires admin")
		}
		return s.checkOwner(ctx, v, op, collection, id, projection.FieldOwner, fields)
	case collection == model.CollectionFavorites, model.IsCommentsCollection(collection):
		return s.checkOwner(ctx, v, op, collection, id, projection.FieldAuthor, fields)
	}
	return nil
}

// checkOwner enforces ownership through the key field of a document.
func (s *Server) checkOwner(ctx context.Context, v policy.Viewer, op writeOp, collection, id, key string, fields model.Fields) error {
	if op != opAdd {
		d, err := s.docs.Get(ctx, collection, id)
		switch {
		case errors.Is(err, errs.ErrNotFound):
			if op != opSet {
				// the store reports the missing document
				return nil
			}
		case err != nil:
			return toStatus("load owner", err)
		default:
			if owner, _ := d.Fields[key].(string); owner != v.Identity {
				return status.Error(codes.PermissionDenied, "document of another identity")
			}
		}
	}
	if op == opDelete {
		return nil
	}
	owner, ok := fields[key]
	if !ok && op == opUpdate {
		return nil
	}
	if owner != v.Identity {
		return status.Errorf(codes.PermissionDenied, "%s must be the caller", key)
	}
	return nil
}

// checkRead guards the users collection: a profile is visible to its owner,
// the whole collection to admins only. Other collections are public.
func (s *Server) checkRead(ctx context.Context, collection, id string) error {
	if collection != model.CollectionUsers {
		return nil
	}
	v, err := s.viewer(ctx)
	if err != nil {
		return err
	}
	if v.Admin() || (id != "" && id == v.Identity) {
		return nil
	}
	return status.Error(codes.PermissionDenied, "profile of another identity")
}

func (s *Server) afterUserWrite(collection, id string) {
	if collection == model.CollectionUsers {
		s.roles.Forget(id)
	}
}

func (s *Server) viewer(ctx context.Context) (policy.Viewer, error) {
	email, err := requireEmail(ctx)
	if err != nil {
		return policy.Viewer{}, err
	}
	v, err := s.roles.Viewer(ctx, email)
	if err != nil {
		return policy.Viewer{}, toStatus("resolve role", err)
	}
	return v, nil
}

func requireEmail(ctx context.Context) (string, error) {
	email, ok := EmailFromCtx(ctx)
	if !ok {
		return "", status.Error(codes.Unauthenticated, "no auth")
	}
	return email, nil
}

func toAPIIdentity(id model.Identity) api.Identity {
	return api.Identity{Email: id.Email, DisplayName: id.DisplayName, PhotoURL: id.PhotoURL}
}

// --- tokens ---

// emailFromToken verifies an HS256 JWT and returns its subject.
func (s *Server) emailFromToken(tok string) (string, error) {
	var claims jwt.RegisteredClaims
	parsed, err := jwt.ParseWithClaims(tok, &claims, func(t *jwt.Token) (any, error) {
		if t.Method != jwt.SigningMethodHS256 {
			return nil, errors.New("unexpected signing method")
		}
		return s.signKey, nil
	})
	if err != nil || !parsed.Valid {
		return "", errors.New("invalid token")
	}

	v := jwt.NewValidator(jwt.WithLeeway(30 * time.Second))
	if err := v.Validate(&claims); err != nil {
		return "", errors.New("token expired or not valid yet")
	}

	if claims.Subject == "" || !strings.Contains(claims.Subject, "@") {
		return "", errors.New("bad subject")
	}
	return claims.Subject, nil
}

// authenticate returns ctx carrying the caller's identity when a valid bearer
// token is present. Requests without a token pass through anonymous.
func (s *Server) authenticate(ctx context.Context) (context.Context, error) {
	tok, err := bearerTokenFromMD(ctx)
	if err != nil {
		return ctx, nil
	}
	email, err := s.emailFromToken(tok)
	if err != nil {
		return nil, status.Error(codes.Unauthenticated, err.Error())
	}
	return WithEmail(ctx, email), nil
}

func bearerTokenFromMD(ctx context.Context) (string, error) {
	md, ok := metadata.FromIncomingContext(ctx)
	if !ok {
		return "", errors.New("no metadata")
	}
	for _, v := range md.Get("authorization") {
		v = strings.TrimSpace(v)
		if len(v) >= 7 && strings.EqualFold(v[:7], "bearer ") {
			t := strings.TrimSpace(v[7:])
			if t != "" {
				return t, nil
			}
		}
	}
	return "", errors.New("no bearer token")
}
