package grpcserver

import (
	"context"
	"errors"
	"net"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"go.uber.org/zap/zaptest"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/peer"
	"google.golang.org/grpc/status"
	"google.golang.org/grpc/test/bufconn"

	"github.com/and161185/recipebook/internal/api"
	blobmem "github.com/and161185/recipebook/internal/blobstore/memory"
	"github.com/and161185/recipebook/internal/docstore"
	docmem "github.com/and161185/recipebook/internal/docstore/memory"
	"github.com/and161185/recipebook/internal/errs"
	"github.com/and161185/recipebook/internal/model"
	"github.com/and161185/recipebook/internal/policy"
)

var testKey = []byte("test-secret")

type fakeAuth struct {
	t       *testing.T
	deleted []string
	display map[string]string
	lastIP  string
}

func (f *fakeAuth) Register(_ context.Context, email, _ string) (model.Identity, error) {
	if email == "taken@x.io" {
		return model.Identity{}, errs.ErrAlreadyExists
	}
	return model.Identity{Email: email}, nil
}

func (f *fakeAuth) LoginWithIP(_ context.Context, email, password, ip string) (model.Tokens, model.Identity, error) {
	f.lastIP = ip
	if password != "secret1" {
		return model.Tokens{}, model.Identity{}, errs.ErrUnauthorized
	}
	tok := makeJWT(f.t, email, testKey, jwt.SigningMethodHS256, time.Now().UTC(), time.Hour)
	return model.Tokens{AccessToken: tok, ExpiresAt: time.Now().Add(time.Hour)}, model.Identity{Email: email}, nil
}

func (f *fakeAuth) RequestPasswordReset(_ context.Context, email string) error {
	if email == "nobody@x.io" {
		return errs.ErrNotFound
	}
	return nil
}

func (f *fakeAuth) ResetPassword(context.Context, string, string) error { return errs.ErrUnauthorized }

func (f *fakeAuth) DeleteIdentity(_ context.Context, email string) error {
	f.deleted = append(f.deleted, email)
	return nil
}

func (f *fakeAuth) UpdateDisplay(_ context.Context, email, name, _ string) error {
	if f.display == nil {
		f.display = map[string]string{}
	}
	f.display[email] = name
	return nil
}

const bufSize = 1 << 20

type harness struct {
	srv   *Server
	auth  *fakeAuth
	docs  *docmem.Store
	blobs *blobmem.Store
	cl    *api.BackendClient
}

func startBufGRPC(t *testing.T) *harness {
	t.Helper()
	log := zaptest.NewLogger(t)
	docs := docmem.New()
	blobs := blobmem.New("")
	roles, err := policy.NewRoleResolver(docs, 16)
	if err != nil {
		t.Fatalf("roles: %v", err)
	}
	a := &fakeAuth{t: t}
	srv := New(a, docs, blobs, roles, testKey, log)

	lis := bufconn.Listen(bufSize)
	gs := grpc.NewServer(
		grpc.ChainUnaryInterceptor(RecoverUnary(log), srv.AuthUnary()),
		grpc.ChainStreamInterceptor(RecoverStream(log), srv.AuthStream()),
	)
	api.RegisterBackendServer(gs, srv)
	go func() { _ = gs.Serve(lis) }()
	dialer := func(context.Context, string) (net.Conn, error) { return lis.Dial() }
	//nolint:staticcheck // DialContext is supported through 1.x; migrate when grpc.NewClient is stable
	cc, err := grpc.DialContext(context.Background(), "bufnet",
		grpc.WithContextDialer(dialer), grpc.WithTransportCredentials(insecure.NewCredentials()))
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	t.Cleanup(func() { _ = cc.Close(); gs.Stop(); _ = lis.Close() })
	return &harness{srv: srv, auth: a, docs: docs, blobs: blobs, cl: api.NewBackendClient(cc)}
}

func as(t *testing.T, email string) context.Context {
	t.Helper()
	tok := makeJWT(t, email, testKey, jwt.SigningMethodHS256, time.Now().UTC(), time.Hour)
	return metadata.AppendToOutgoingContext(context.Background(), "authorization", "Bearer "+tok)
}

func wantCode(t *testing.T, err error, c codes.Code) {
	t.Helper()
	if st, ok := status.FromError(err); !ok || st.Code() != c {
		t.Fatalf("want %v, got %v", c, err)
	}
}

func TestServer_E2E_AuthFlow(t *testing.T) {
	t.Parallel()
	h := startBufGRPC(t)
	ctx := context.Background()

	_, err := h.cl.SignUp(ctx, &api.Credentials{})
	wantCode(t, err, codes.InvalidArgument)
	_, err = h.cl.SignUp(ctx, &api.Credentials{Email: "taken@x.io", Password: "secret1"})
	wantCode(t, err, codes.AlreadyExists)
	up, err := h.cl.SignUp(ctx, &api.Credentials{Email: "a@x.io", Password: "secret1"})
	if err != nil || up.Identity.Email != "a@x.io" {
		t.Fatalf("sign up: %v %+v", err, up)
	}

	_, err = h.cl.SignIn(ctx, &api.Credentials{Email: "a@x.io", Password: "wrong"})
	wantCode(t, err, codes.Unauthenticated)
	in, err := h.cl.SignIn(ctx, &api.Credentials{Email: "a@x.io", Password: "secret1"})
	if err != nil || in.AccessToken == "" || in.Identity.Email != "a@x.io" {
		t.Fatalf("sign in: %v %+v", err, in)
	}
	if h.auth.lastIP == "" {
		t.Fatalf("peer address not passed to the limiter")
	}

	_, err = h.cl.SendPasswordReset(ctx, &api.EmailRequest{Email: "nobody@x.io"})
	wantCode(t, err, codes.NotFound)
	_, err = h.cl.ResetPassword(ctx, &api.ResetPasswordRequest{Token: "t", Password: "secret2"})
	wantCode(t, err, codes.Unauthenticated)

	_, err = h.cl.UpdateDisplay(ctx, &api.UpdateDisplayRequest{Email: "a@x.io", DisplayName: "A"})
	wantCode(t, err, codes.Unauthenticated)
	_, err = h.cl.UpdateDisplay(as(t, "b@x.io"), &api.UpdateDisplayRequest{Email: "a@x.io", DisplayName: "A"})
	wantCode(t, err, codes.PermissionDenied)
	if _, err := h.cl.UpdateDisplay(as(t, "a@x.io"), &api.UpdateDisplayRequest{Email: "a@x.io", DisplayName: "A"}); err != nil {
		t.Fatalf("update display: %v", err)
	}
	if h.auth.display["a@x.io"] != "A" {
		t.Fatalf("display not stored: %v", h.auth.display)
	}

	if err := h.docs.Set(ctx, model.CollectionUsers, "a@x.io", model.Fields{"email": "a@x.io", "role": "user"}); err != nil {
		t.Fatal(err)
	}
	_, err = h.cl.DeleteIdentity(as(t, "b@x.io"), &api.EmailRequest{Email: "a@x.io"})
	wantCode(t, err, codes.PermissionDenied)
	if _, err := h.cl.DeleteIdentity(as(t, "a@x.io"), &api.EmailRequest{Email: "a@x.io"}); err != nil {
		t.Fatalf("delete self: %v", err)
	}
	if len(h.auth.deleted) != 1 {
		t.Fatalf("deleted: %v", h.auth.deleted)
	}
	if _, err := h.docs.Get(ctx, model.CollectionUsers, "a@x.io"); !errors.Is(err, errs.ErrNotFound) {
		t.Fatalf("profile must go with the identity: %v", err)
	}
	// no profile left to remove
	if _, err := h.cl.DeleteIdentity(as(t, "c@x.io"), &api.EmailRequest{Email: "c@x.io"}); err != nil {
		t.Fatalf("delete without profile: %v", err)
	}
}

func TestServer_E2E_Documents(t *testing.T) {
	t.Parallel()
	h := startBufGRPC(t)
	ctx := context.Background()

	_, err := h.cl.AddDoc(ctx, &api.AddDocRequest{Collection: model.CollectionFoods, Fields: api.Fields{"name": "Phở"}})
	wantCode(t, err, codes.Unauthenticated)

	bad := metadata.AppendToOutgoingContext(ctx, "authorization", "Bearer garbage")
	_, err = h.cl.ListDocs(bad, &api.ListDocsRequest{Collection: model.CollectionFoods})
	wantCode(t, err, codes.Unauthenticated)

	alice := as(t, "alice@x.io")
	add, err := h.cl.AddDoc(alice, &api.AddDocRequest{
		Collection: model.CollectionFoods,
		Fields:     api.FromModel(model.Fields{"name": "Phở", "email": "alice@x.io", "stamp": docstore.ServerTimestamp}),
	})
	if err != nil || add.ID == "" {
		t.Fatalf("add: %v %+v", err, add)
	}

	got, err := h.cl.GetDoc(ctx, &api.DocRef{Collection: model.CollectionFoods, ID: add.ID})
	if err != nil {
		t.Fatalf("anonymous get: %v", err)
	}
	if got.Doc.Fields["name"] != "Phở" {
		t.Fatalf("fields: %+v", got.Doc.Fields)
	}
	if _, ok := docstore.ParseTime(got.Doc.Fields["stamp"]); !ok {
		t.Fatalf("server timestamp not stamped: %#v", got.Doc.Fields["stamp"])
	}

	bob := as(t, "bob@x.io")
	_, err = h.cl.UpdateDoc(bob, &api.WriteDocRequest{Collection: model.CollectionFoods, ID: add.ID, Fields: api.Fields{"name": "x"}})
	wantCode(t, err, codes.PermissionDenied)
	_, err = h.cl.UpdateDoc(alice, &api.WriteDocRequest{Collection: model.CollectionFoods, ID: add.ID, Fields: api.Fields{"approve": true}})
	wantCode(t, err, codes.PermissionDenied)
	_, err = h.cl.DeleteDoc(bob, &api.DocRef{Collection: model.CollectionFoods, ID: add.ID})
	wantCode(t, err, codes.PermissionDenied)

	if err := h.docs.Set(ctx, model.CollectionUsers, "root@x.io", model.Fields{"role": "admin"}); err != nil {
		t.Fatal(err)
	}
	if _, err := h.cl.UpdateDoc(as(t, "root@x.io"), &api.WriteDocRequest{Collection: model.CollectionFoods, ID: add.ID, Fields: api.Fields{"approve": true}}); err != nil {
		t.Fatalf("admin approve: %v", err)
	}
	_, err = h.cl.UpdateDoc(alice, &api.WriteDocRequest{Collection: model.CollectionFoods, ID: "nope", Fields: api.Fields{"x": 1}})
	wantCode(t, err, codes.NotFound)

	list, err := h.cl.ListDocs(ctx, &api.ListDocsRequest{Collection: model.CollectionFoods})
	if err != nil || len(list.Docs) != 1 || list.Docs[0].Fields["approve"] != true {
		t.Fatalf("list: %v %+v", err, list)
	}
	_, err = h.cl.ListDocs(ctx, &api.ListDocsRequest{Collection: "comments/x"})
	wantCode(t, err, codes.InvalidArgument)

	if _, err := h.cl.DeleteDoc(alice, &api.DocRef{Collection: model.CollectionFoods, ID: add.ID}); err != nil {
		t.Fatalf("delete: %v", err)
	}
	_, err = h.cl.GetDoc(ctx, &api.DocRef{Collection: model.CollectionFoods, ID: add.ID})
	wantCode(t, err, codes.NotFound)
}

func TestServer_E2E_UserProfilesRules(t *testing.T) {
	t.Parallel()
	h := startBufGRPC(t)
	ctx := context.Background()
	if err := h.docs.Set(ctx, model.CollectionUsers, "root@x.io", model.Fields{"email": "root@x.io", "role": "admin"}); err != nil {
		t.Fatal(err)
	}
	alice := as(t, "alice@x.io")
	root := as(t, "root@x.io")

	_, err := h.cl.SetDoc(alice, &api.WriteDocRequest{Collection: model.CollectionUsers, ID: "bob@x.io", Fields: api.Fields{"role": "user"}})
	wantCode(t, err, codes.PermissionDenied)
	_, err = h.cl.SetDoc(alice, &api.WriteDocRequest{Collection: model.CollectionUsers, ID: "alice@x.io", Fields: api.Fields{"role": "admin"}})
	wantCode(t, err, codes.PermissionDenied)
	if _, err := h.cl.SetDoc(alice, &api.WriteDocRequest{Collection: model.CollectionUsers, ID: "alice@x.io", Fields: api.Fields{"email": "alice@x.io", "role": "user"}}); err != nil {
		t.Fatalf("own profile: %v", err)
	}

	if _, err := h.cl.UpdateDoc(root, &api.WriteDocRequest{Collection: model.CollectionUsers, ID: "alice@x.io", Fields: api.Fields{"role": "admin"}}); err != nil {
		t.Fatalf("admin role change: %v", err)
	}
	// the cached role of alice must be dropped by the write above
	if _, err := h.cl.SetDoc(alice, &api.WriteDocRequest{Collection: model.CollectionUsers, ID: "bob@x.io", Fields: api.Fields{"role": "user"}}); err != nil {
		t.Fatalf("promoted alice: %v", err)
	}

	_, err = h.cl.DeleteDoc(as(t, "bob@x.io"), &api.DocRef{Collection: model.CollectionUsers, ID: "alice@x.io"})
	wantCode(t, err, codes.PermissionDenied)
}

func TestServer_E2E_OwnedWrites(t *testing.T) {
	t.Parallel()
	h := startBufGRPC(t)
	ctx := context.Background()
	if err := h.docs.Set(ctx, model.CollectionUsers, "root@x.io", model.Fields{"role": "admin"}); err != nil {
		t.Fatal(err)
	}
	alice, bob, root := as(t, "alice@x.io"), as(t, "bob@x.io"), as(t, "root@x.io")

	// items
	_, err := h.cl.AddDoc(bob, &api.AddDocRequest{Collection: model.CollectionFoods, Fields: api.Fields{"name": "x", "email": "alice@x.io"}})
	wantCode(t, err, codes.PermissionDenied)
	_, err = h.cl.AddDoc(bob, &api.AddDocRequest{Collection: model.CollectionFoods, Fields: api.Fields{"name": "x"}})
	wantCode(t, err, codes.PermissionDenied)
	item, err := h.cl.AddDoc(alice, &api.AddDocRequest{Collection: model.CollectionFoods, Fields: api.Fields{"name": "Phở", "email": "alice@x.io"}})
	if err != nil {
		t.Fatalf("own item: %v", err)
	}
	_, err = h.cl.UpdateDoc(alice, &api.WriteDocRequest{Collection: model.CollectionFoods, ID: item.ID, Fields: api.Fields{"email": "bob@x.io"}})
	wantCode(t, err, codes.PermissionDenied)
	if _, err := h.cl.UpdateDoc(alice, &api.WriteDocRequest{Collection: model.CollectionFoods, ID: item.ID, Fields: api.Fields{"name": "Phở bò", "email": "alice@x.io"}}); err != nil {
		t.Fatalf("update keeping owner: %v", err)
	}
	_, err = h.cl.SetDoc(alice, &api.WriteDocRequest{Collection: model.CollectionFoods, ID: item.ID, Fields: api.Fields{"name": "ownerless"}})
	wantCode(t, err, codes.PermissionDenied)
	_, err = h.cl.SetDoc(bob, &api.WriteDocRequest{Collection: model.CollectionFoods, ID: item.ID, Fields: api.Fields{"name": "mine", "email": "bob@x.io"}})
	wantCode(t, err, codes.PermissionDenied)
	if _, err := h.cl.SetDoc(bob, &api.WriteDocRequest{Collection: model.CollectionFoods, ID: "fresh", Fields: api.Fields{"name": "Bún", "email": "bob@x.io"}}); err != nil {
		t.Fatalf("set new own item: %v", err)
	}
	d, _ := h.docs.Get(ctx, model.CollectionFoods, item.ID)
	if d.Fields["email"] != "alice@x.io" || d.Fields["name"] != "Phở bò" {
		t.Fatalf("item changed hands: %v", d.Fields)
	}

	// comments
	thread := model.CommentsCollection("Phở")
	_, err = h.cl.AddDoc(bob, &api.AddDocRequest{Collection: thread, Fields: api.Fields{"userEmail": "alice@x.io", "comment": "spam"}})
	wantCode(t, err, codes.PermissionDenied)
	c, err := h.cl.AddDoc(alice, &api.AddDocRequest{Collection: thread, Fields: api.Fields{"userEmail": "alice@x.io", "comment": "ngon"}})
	if err != nil {
		t.Fatalf("own comment: %v", err)
	}
	_, err = h.cl.UpdateDoc(bob, &api.WriteDocRequest{Collection: thread, ID: c.ID, Fields: api.Fields{"comment": "edited"}})
	wantCode(t, err, codes.PermissionDenied)
	_, err = h.cl.DeleteDoc(bob, &api.DocRef{Collection: thread, ID: c.ID})
	wantCode(t, err, codes.PermissionDenied)
	_, err = h.cl.UpdateDoc(alice, &api.WriteDocRequest{Collection: thread, ID: c.ID, Fields: api.Fields{"userEmail": "bob@x.io"}})
	wantCode(t, err, codes.PermissionDenied)
	if _, err := h.cl.UpdateDoc(alice, &api.WriteDocRequest{Collection: thread, ID: c.ID, Fields: api.Fields{"comment": "rất ngon"}}); err != nil {
		t.Fatalf("edit own comment: %v", err)
	}
	if _, err := h.cl.DeleteDoc(alice, &api.DocRef{Collection: thread, ID: c.ID}); err != nil {
		t.Fatalf("delete own comment: %v", err)
	}

	// favorites
	_, err = h.cl.AddDoc(bob, &api.AddDocRequest{Collection: model.CollectionFavorites, Fields: api.Fields{"userEmail": "alice@x.io", "name": "Phở"}})
	wantCode(t, err, codes.PermissionDenied)
	f, err := h.cl.AddDoc(alice, &api.AddDocRequest{Collection: model.CollectionFavorites, Fields: api.Fields{"userEmail": "alice@x.io", "name": "Phở"}})
	if err != nil {
		t.Fatalf("own favorite: %v", err)
	}
	_, err = h.cl.DeleteDoc(bob, &api.DocRef{Collection: model.CollectionFavorites, ID: f.ID})
	wantCode(t, err, codes.PermissionDenied)
	if _, err := h.cl.DeleteDoc(alice, &api.DocRef{Collection: model.CollectionFavorites, ID: f.ID}); err != nil {
		t.Fatalf("delete own favorite: %v", err)
	}

	// categories
	_, err = h.cl.AddDoc(bob, &api.AddDocRequest{Collection: model.CollectionCategories, Fields: api.Fields{"CategoryName": "spam"}})
	wantCode(t, err, codes.PermissionDenied)
	_, err = h.cl.SetDoc(bob, &api.WriteDocRequest{Collection: model.CollectionCategories, ID: "food", Fields: api.Fields{"CategoryName": "spam"}})
	wantCode(t, err, codes.PermissionDenied)
	if _, err := h.cl.AddDoc(root, &api.AddDocRequest{Collection: model.CollectionCategories, Fields: api.Fields{"CategoryName": "Soup"}}); err != nil {
		t.Fatalf("admin category: %v", err)
	}
	// admins are not bound to owner fields
	if _, err := h.cl.DeleteDoc(root, &api.DocRef{Collection: model.CollectionFoods, ID: item.ID}); err != nil {
		t.Fatalf("admin delete: %v", err)
	}
}

func TestServer_E2E_ProfileReads(t *testing.T) {
	t.Parallel()
	h := startBufGRPC(t)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	for email, role := range map[string]string{"alice@x.io": "user", "root@x.io": "admin"} {
		if err := h.docs.Set(ctx, model.CollectionUsers, email, model.Fields{"email": email, "phoneNumber": "123", "role": role}); err != nil {
			t.Fatal(err)
		}
	}
	alice, bob, root := as(t, "alice@x.io"), as(t, "bob@x.io"), as(t, "root@x.io")

	_, err := h.cl.GetDoc(ctx, &api.DocRef{Collection: model.CollectionUsers, ID: "alice@x.io"})
	wantCode(t, err, codes.Unauthenticated)
	_, err = h.cl.ListDocs(ctx, &api.ListDocsRequest{Collection: model.CollectionUsers})
	wantCode(t, err, codes.Unauthenticated)
	_, err = h.cl.GetDoc(bob, &api.DocRef{Collection: model.CollectionUsers, ID: "alice@x.io"})
	wantCode(t, err, codes.PermissionDenied)
	_, err = h.cl.ListDocs(alice, &api.ListDocsRequest{Collection: model.CollectionUsers})
	wantCode(t, err, codes.PermissionDenied)

	own, err := h.cl.GetDoc(alice, &api.DocRef{Collection: model.CollectionUsers, ID: "alice@x.io"})
	if err != nil || own.Doc.Fields["phoneNumber"] != "123" {
		t.Fatalf("own profile: %v %+v", err, own)
	}
	if _, err := h.cl.GetDoc(root, &api.DocRef{Collection: model.CollectionUsers, ID: "alice@x.io"}); err != nil {
		t.Fatalf("admin get: %v", err)
	}
	all, err := h.cl.ListDocs(root, &api.ListDocsRequest{Collection: model.CollectionUsers})
	if err != nil || len(all.Docs) != 2 {
		t.Fatalf("admin list: %v %+v", err, all)
	}

	anon, err := h.cl.Subscribe(ctx, &api.SubscribeRequest{Collection: model.CollectionUsers})
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	_, err = anon.Recv()
	wantCode(t, err, codes.Unauthenticated)
	denied, err := h.cl.Subscribe(alice, &api.SubscribeRequest{Collection: model.CollectionUsers})
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	_, err = denied.Recv()
	wantCode(t, err, codes.PermissionDenied)

	rctx, rcancel := context.WithCancel(root)
	defer rcancel()
	stream, err := h.cl.Subscribe(rctx, &api.SubscribeRequest{Collection: model.CollectionUsers})
	if err != nil {
		t.Fatalf("subscribe: %v", err)
	}
	first, err := stream.Recv()
	if err != nil || len(first.Docs) != 2 {
		t.Fatalf("admin snapshot: %v %+v", err, first)
	}
}

func TestServer_E2E_Subscribe(t *testing.T) {
	t.Parallel()
	h := startBufGRPC(t)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	stream, err := h.cl.Subscribe(ctx, &api.SubscribeRequest{Collection: model.CollectionCategories})
	if err != nil {
		t.Fatalf("subscribe: %v", err)
	}
	first, err := stream.Recv()
	if err != nil || len(first.Docs) != 0 {
		t.Fatalf("initial snapshot: %v %+v", err, first)
	}

	if _, err := h.docs.Add(context.Background(), model.CollectionCategories, model.Fields{"name": "Soup"}); err != nil {
		t.Fatal(err)
	}
	next, err := stream.Recv()
	if err != nil || len(next.Docs) != 1 || next.Docs[0].Fields["name"] != "Soup" {
		t.Fatalf("change snapshot: %v %+v", err, next)
	}

	bad, err := h.cl.Subscribe(ctx, &api.SubscribeRequest{Collection: "bad//path"})
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	_, err = bad.Recv()
	wantCode(t, err, codes.InvalidArgument)
}

func TestServer_E2E_Blobs(t *testing.T) {
	t.Parallel()
	h := startBufGRPC(t)

	_, err := h.cl.Upload(context.Background(), &api.UploadRequest{Path: "avatars/a@x.io", Data: []byte{1}})
	wantCode(t, err, codes.Unauthenticated)
	if _, err := h.cl.Upload(as(t, "a@x.io"), &api.UploadRequest{Path: "avatars/a@x.io", Data: []byte{1}, ContentType: "image/png"}); err != nil {
		t.Fatalf("upload: %v", err)
	}
	u, err := h.cl.DownloadURL(context.Background(), &api.PathRequest{Path: "avatars/a@x.io"})
	if err != nil || u.URL == "" {
		t.Fatalf("url: %v %+v", err, u)
	}
	if obj, ok := h.blobs.Object("avatars/a@x.io"); !ok || obj.ContentType != "image/png" {
		t.Fatalf("object: %+v", obj)
	}
	_, err = h.cl.DownloadURL(context.Background(), &api.PathRequest{Path: "avatars/none"})
	wantCode(t, err, codes.NotFound)
}

func Test_remoteIP(t *testing.T) {
	t.Parallel()
	if got := remoteIP(context.Background()); got != "" {
		t.Fatalf("want empty, got %q", got)
	}
	pctx := peer.NewContext(context.Background(), &peer.Peer{Addr: fakeAddr{}})
	if got := remoteIP(pctx); got != "127.0.0.1:12345" {
		t.Fatalf("got %q", got)
	}
}

func Test_checkWrite_Anonymous(t *testing.T) {
	t.Parallel()
	s := &Server{signKey: testKey}
	err := s.checkWrite(context.Background(), opAdd, model.CollectionFoods, "", nil)
	wantCode(t, err, codes.Unauthenticated)
}
