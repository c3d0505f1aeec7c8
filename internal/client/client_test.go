package client

import (
	"context"
	"errors"
	"net"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
	"google.golang.org/grpc/test/bufconn"

	"github.com/and161185/recipebook/internal/api"
	blobmem "github.com/and161185/recipebook/internal/blobstore/memory"
	"github.com/and161185/recipebook/internal/docstore"
	docmem "github.com/and161185/recipebook/internal/docstore/memory"
	"github.com/and161185/recipebook/internal/errs"
	"github.com/and161185/recipebook/internal/model"
	"github.com/and161185/recipebook/internal/policy"
	grpcserver "github.com/and161185/recipebook/internal/server/grpc"
	"github.com/and161185/recipebook/internal/service"
	"github.com/and161185/recipebook/internal/session"
)

var key = []byte("client-test")

type fakeAuth struct{}

var _ service.AuthService = fakeAuth{}

func (fakeAuth) Register(_ context.Context, email, _ string) (model.Identity, error) {
	return model.Identity{Email: email}, nil
}

func (fakeAuth) LoginWithIP(_ context.Context, email, password, _ string) (model.Tokens, model.Identity, error) {
	if password != "secret1" {
		return model.Tokens{}, model.Identity{}, errs.ErrUnauthorized
	}
	exp := time.Now().Add(time.Hour)
	tok, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.RegisteredClaims{
		Subject:   email,
		ExpiresAt: jwt.NewNumericDate(exp),
	}).SignedString(key)
	if err != nil {
		return model.Tokens{}, model.Identity{}, err
	}
	return model.Tokens{AccessToken: tok, ExpiresAt: exp}, model.Identity{Email: email}, nil
}

func (fakeAuth) RequestPasswordReset(context.Context, string) error          { return nil }
func (fakeAuth) ResetPassword(context.Context, string, string) error         { return nil }
func (fakeAuth) DeleteIdentity(context.Context, string) error                { return nil }
func (fakeAuth) UpdateDisplay(context.Context, string, string, string) error { return nil }

type env struct {
	docs *docmem.Store
	be   *Backend
	sess *session.Session
}

func start(t *testing.T) *env {
	t.Helper()
	log := zaptest.NewLogger(t)
	docs := docmem.New()
	roles, err := policy.NewRoleResolver(docs, 8)
	require.NoError(t, err)
	srv := grpcserver.New(fakeAuth{}, docs, blobmem.New(""), roles, key, log)

	lis := bufconn.Listen(1 << 20)
	gs := grpc.NewServer(
		grpc.ChainUnaryInterceptor(srv.AuthUnary()),
		grpc.ChainStreamInterceptor(srv.AuthStream()),
	)
	api.RegisterBackendServer(gs, srv)
	go func() { _ = gs.Serve(lis) }()

	e := &env{docs: docs}
	var sess *session.Session
	cc, err := Dial(context.Background(), "bufnet",
		Options{Plaintext: true, Token: func() string { return sess.Token() }},
		grpc.WithContextDialer(func(context.Context, string) (net.Conn, error) { return lis.Dial() }))
	require.NoError(t, err)
	t.Cleanup(func() { _ = cc.Close(); gs.Stop(); _ = lis.Close() })

	e.be = New(cc, log)
	sess = session.New(e.be.Auth, log)
	e.sess = sess
	return e
}

func TestFromStatus(t *testing.T) {
	t.Parallel()

	var ve *errs.ValidationError
	err := fromStatus(status.Error(codes.InvalidArgument, "validation: missing name, image"))
	require.ErrorAs(t, err, &ve)
	require.Equal(t, []string{"name", "image"}, ve.Fields)

	cases := map[codes.Code]error{
		codes.InvalidArgument:    errs.ErrInvalid,
		codes.NotFound:           errs.ErrNotFound,
		codes.AlreadyExists:      errs.ErrAlreadyExists,
		codes.Unauthenticated:    errs.ErrUnauthorized,
		codes.PermissionDenied:   errs.ErrForbidden,
		codes.ResourceExhausted:  errs.ErrRateLimited,
		codes.FailedPrecondition: errs.ErrVersionConflict,
		codes.DeadlineExceeded:   context.DeadlineExceeded,
		codes.Canceled:           context.Canceled,
	}
	for c, want := range cases {
		require.ErrorIs(t, fromStatus(status.Error(c, "x")), want, c.String())
	}

	plain := errors.New("plain")
	require.Same(t, plain, fromStatus(plain))
	require.Equal(t, codes.Unavailable, status.Code(fromStatus(status.Error(codes.Unavailable, "down"))))
	require.NoError(t, fromStatus(nil))
}

func TestDocs_WritesNeedSession(t *testing.T) {
	t.Parallel()
	e := start(t)
	ctx := context.Background()

	_, err := e.be.Docs.Add(ctx, model.CollectionFoods, model.Fields{"name": "Phở"})
	require.ErrorIs(t, err, errs.ErrUnauthorized)

	require.NoError(t, e.sess.SignIn(ctx, "alice@x.io", "secret1"))
	id, err := e.be.Docs.Add(ctx, model.CollectionFoods, model.Fields{"name": "Phở", "email": "alice@x.io", "at": docstore.ServerTimestamp})
	require.NoError(t, err)

	d, err := e.be.Docs.Get(ctx, model.CollectionFoods, id)
	require.NoError(t, err)
	require.Equal(t, "Phở", d.Fields["name"])
	_, ok := docstore.ParseTime(d.Fields["at"])
	require.True(t, ok, "server timestamp must be stamped by the backend")

	require.ErrorIs(t, e.be.Docs.Update(ctx, model.CollectionFoods, id, model.Fields{"approve": true}), errs.ErrForbidden)
	require.NoError(t, e.be.Docs.Update(ctx, model.CollectionFoods, id, model.Fields{"ingredient": "bò"}))
	docs, err := e.be.Docs.List(ctx, model.CollectionFoods, docstore.Order{})
	require.NoError(t, err)
	require.Len(t, docs, 1)
	require.Equal(t, "bò", docs[0].Fields["ingredient"])

	require.NoError(t, e.be.Docs.Delete(ctx, model.CollectionFoods, id))
	_, err = e.be.Docs.Get(ctx, model.CollectionFoods, id)
	require.ErrorIs(t, err, errs.ErrNotFound)

	e.sess.SignOut()
	require.ErrorIs(t, e.be.Docs.Set(ctx, model.CollectionFoods, "x", model.Fields{}), errs.ErrUnauthorized)
}

func TestDocs_Subscribe(t *testing.T) {
	t.Parallel()
	e := start(t)
	ctx := context.Background()

	var (
		mu    sync.Mutex
		snaps []model.Snapshot
	)
	cancel, err := e.be.Docs.Subscribe(ctx, model.CollectionCategories, func(s model.Snapshot) {
		mu.Lock()
		snaps = append(snaps, s)
		mu.Unlock()
	})
	require.NoError(t, err)

	_, err = e.docs.Add(ctx, model.CollectionCategories, model.Fields{"name": "Soup"})
	require.NoError(t, err)

	require.Eventually(t, func() bool {
		mu.Lock()
		defer mu.Unlock()
		return len(snaps) == 2 && len(snaps[1].Docs) == 1
	}, 2*time.Second, 10*time.Millisecond)

	cancel()
	cancel()
	_, err = e.docs.Add(ctx, model.CollectionCategories, model.Fields{"name": "Salad"})
	require.NoError(t, err)
	time.Sleep(50 * time.Millisecond)
	mu.Lock()
	require.Len(t, snaps, 2, "no snapshots after cancel")
	mu.Unlock()

	_, err = e.be.Docs.Subscribe(ctx, "bad//path", func(model.Snapshot) {})
	require.ErrorIs(t, err, errs.ErrInvalid)
	_, err = e.be.Docs.Subscribe(ctx, model.CollectionFoods, nil)
	require.ErrorIs(t, err, errs.ErrInvalid)
}

func TestItems_OverTheWire(t *testing.T) {
	t.Parallel()
	e := start(t)
	ctx := context.Background()
	require.NoError(t, e.sess.SignIn(ctx, "alice@x.io", "secret1"))

	items := service.NewItemService(e.be.Docs, e.be.Blobs, nil, service.Deps{Log: zaptest.NewLogger(t)})
	alice := policy.Viewer{Identity: "alice@x.io", Role: model.RoleUser}
	png := []byte("\x89PNG\r\n\x1a\n\x00\x00\x00\rIHDR")

	_, err := items.Create(ctx, alice, model.ItemDraft{Name: "Phở"}, service.Image{Data: png})
	require.ErrorIs(t, err, errs.ErrInvalid)

	id, err := items.Create(ctx, alice, model.ItemDraft{
		Name: "Phở", Ingredient: "bò", Instruction: "nấu", CategoryID: "food",
	}, service.Image{Data: png})
	require.NoError(t, err)

	it, err := items.Get(ctx, alice, id)
	require.NoError(t, err)
	require.False(t, it.Approved)
	require.Contains(t, it.ImageURL, "Images/")

	// the backend checks the stored role, not the one claimed locally
	err = items.Approve(ctx, policy.Viewer{Identity: "alice@x.io", Role: model.RoleAdmin}, id)
	require.ErrorIs(t, err, errs.ErrForbidden)
}

func TestAuth_SessionRoundTrip(t *testing.T) {
	t.Parallel()
	e := start(t)
	ctx := context.Background()

	id, err := e.sess.SignUp(ctx, "bob@x.io", "secret1")
	require.NoError(t, err)
	require.Equal(t, "bob@x.io", id.Email)
	require.NotEmpty(t, e.sess.Token())

	err = e.sess.SignIn(ctx, "bob@x.io", "wrong")
	require.ErrorIs(t, err, errs.ErrUnauthorized)

	require.NoError(t, e.sess.UpdateProfile(ctx, "Bob", ""))
	require.NoError(t, e.be.Auth.ResetPassword(ctx, "tok", "secret2"))
	require.NoError(t, e.sess.DeleteCurrent(ctx))
	_, ok := e.sess.Current()
	require.False(t, ok)
}

func TestBearerCreds_Metadata(t *testing.T) {
	t.Parallel()

	tok := ""
	b := bearerCreds{token: func() string { return tok }, secure: true}
	md, err := b.GetRequestMetadata(context.Background())
	require.NoError(t, err)
	require.Empty(t, md, "signed out sends no header")

	tok = "T"
	md, err = b.GetRequestMetadata(context.Background())
	require.NoError(t, err)
	require.Equal(t, "Bearer T", md["authorization"])
	require.True(t, b.RequireTransportSecurity())

	md, err = bearerCreds{}.GetRequestMetadata(context.Background())
	require.NoError(t, err)
	require.Empty(t, md)
	require.False(t, bearerCreds{}.RequireTransportSecurity())
}

func TestLoadTLS_Variants(t *testing.T) {
	t.Parallel()

	creds, err := loadTLS("", true)
	require.NoError(t, err)
	require.NotNil(t, creds)

	creds, err = loadTLS("", false)
	require.NoError(t, err)
	require.NotNil(t, creds)

	bad := filepath.Join(t.TempDir(), "bad.pem")
	require.NoError(t, os.WriteFile(bad, []byte("not pem"), 0o600))
	creds, err = loadTLS(bad, false)
	require.Error(t, err)
	require.Nil(t, creds)

	_, err = loadTLS(filepath.Join(t.TempDir(), "missing.pem"), false)
	require.Error(t, err)

	_, err = DialOptions(Options{CACert: bad})
	require.Error(t, err)
	opts, err := DialOptions(Options{Plaintext: true})
	require.NoError(t, err)
	require.Len(t, opts, 2)
}
