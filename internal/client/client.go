// Package client adapts the recipebook.v1.Backend gRPC service to the
// document store, blob store and auth capabilities used by the application.
package client

import (
	"context"
	"crypto/tls"
	"crypto/x509"
	"errors"
	"fmt"
	"os"
	"strings"

	"go.uber.org/zap"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/credentials"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/grpc/status"

	"github.com/and161185/recipebook/internal/api"
	"github.com/and161185/recipebook/internal/errs"
)

// TokenFunc returns the current access token, or "" when signed out.
type TokenFunc func() string

// Options configure Dial.
type Options struct {
	// CACert is a PEM bundle to verify the server with; empty uses system roots.
	CACert string
	// SkipVerify disables certificate verification (dev).
	SkipVerify bool
	// Plaintext dials without TLS (local dev and tests).
	Plaintext bool
	// Token supplies the bearer token per call.
	Token TokenFunc
}

type bearerCreds struct {
	token  TokenFunc
	secure bool
}

func (b bearerCreds) GetRequestMetadata(context.Context, ...string) (map[string]string, error) {
	if b.token == nil {
		return nil, nil
	}
	t := b.token()
	if t == "" {
		return nil, nil
	}
	return map[string]string{"authorization": "Bearer " + t}, nil
}

func (b bearerCreds) RequireTransportSecurity() bool { return b.secure }

func loadTLS(caPath string, skipVerify bool) (credentials.TransportCredentials, error) {
	if skipVerify {
		//nolint:gosec // explicit dev switch
		return credentials.NewTLS(&tls.Config{InsecureSkipVerify: true}), nil
	}
	if caPath == "" {
		return credentials.NewClientTLSFromCert(nil, ""), nil
	}
	pem, err := os.ReadFile(caPath)
	if err != nil {
		return nil, err
	}
	pool := x509.NewCertPool()
	if !pool.AppendCertsFromPEM(pem) {
		return nil, errors.New("bad CA cert")
	}
	return credentials.NewTLS(&tls.Config{RootCAs: pool}), nil
}

// DialOptions builds transport and per-call credentials from o.
func DialOptions(o Options) ([]grpc.DialOption, error) {
	var creds credentials.TransportCredentials
	if o.Plaintext {
		creds = insecure.NewCredentials()
	} else {
		c, err := loadTLS(o.CACert, o.SkipVerify)
		if err != nil {
			return nil, err
		}
		creds = c
	}
	return []grpc.DialOption{
		grpc.WithTransportCredentials(creds),
		grpc.WithPerRPCCredentials(bearerCreds{token: o.Token, secure: !o.Plaintext}),
	}, nil
}

// Dial connects to addr.
func Dial(ctx context.Context, addr string, o Options, extra ...grpc.DialOption) (*grpc.ClientConn, error) {
	opts, err := DialOptions(o)
	if err != nil {
		return nil, err
	}
	//nolint:staticcheck // DialContext is supported through 1.x; migrate when grpc.NewClient is stable
	return grpc.DialContext(ctx, addr, append(opts, extra...)...)
}

// Backend bundles the three adapters over one connection.
type Backend struct {
	Docs  *Docs
	Blobs *Blobs
	Auth  *Auth
}

// New binds adapters to cc.
func New(cc grpc.ClientConnInterface, log *zap.Logger) *Backend {
	if log == nil {
		log = zap.NewNop()
	}
	c := api.NewBackendClient(cc)
	return &Backend{
		Docs:  &Docs{api: c, log: log},
		Blobs: &Blobs{api: c},
		Auth:  &Auth{api: c},
	}
}

const validationPrefix = "validation: missing "

// fromStatus maps a gRPC status back onto the errs sentinels.
func fromStatus(err error) error {
	if err == nil {
		return nil
	}
	st, ok := status.FromError(err)
	if !ok {
		return err
	}
	msg := st.Message()
	switch st.Code() {
	case codes.InvalidArgument:
		if i := strings.Index(msg, validationPrefix); i >= 0 {
			return errs.Validation(strings.Split(msg[i+len(validationPrefix):], ", ")...)
		}
		return fmt.Errorf("%s: %w", msg, errs.ErrInvalid)
	case codes.NotFound:
		return errs.ErrNotFound
	case codes.AlreadyExists:
		return errs.ErrAlreadyExists
	case codes.Unauthenticated:
		return errs.ErrUnauthorized
	case codes.PermissionDenied:
		return fmt.Errorf("%s: %w", msg, errs.ErrForbidden)
	case codes.ResourceExhausted:
		return errs.ErrRateLimited
	case codes.FailedPrecondition:
		return errs.ErrVersionConflict
	case codes.Canceled:
		return fmt.Errorf("%s: %w", msg, context.Canceled)
	case codes.DeadlineExceeded:
		return fmt.Errorf("%s: %w", msg, context.DeadlineExceeded)
	}
	return err
}
