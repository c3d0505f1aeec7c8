package main

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/and161185/recipebook/internal/client"
	"github.com/and161185/recipebook/internal/policy"
	"github.com/and161185/recipebook/internal/service"
	"github.com/and161185/recipebook/internal/session"
)

const (
	callTimeout = 15 * time.Second
	roleCache   = 256
)

// app is one CLI invocation: a session, the remote backend and the services
// bound to it.
type app struct {
	sess  *session.Session
	be    *client.Backend
	roles *policy.RoleResolver

	items    *service.ItemServiceImpl
	comments *service.CommentServiceImpl
	favs     *service.FavoriteServiceImpl
	profiles *service.ProfileServiceImpl
	cats     *service.CategoryServiceImpl

	log  *zap.Logger
	in   *bufio.Reader
	out  io.Writer
	errw io.Writer
	yes  bool

	unwatch func()
}

func newApp(be *client.Backend, sess *session.Session, in io.Reader, out, errw io.Writer, yes bool, log *zap.Logger) (*app, error) {
	if log == nil {
		log = zap.NewNop()
	}
	roles, err := policy.NewRoleResolver(be.Docs, roleCache)
	if err != nil {
		return nil, err
	}
	a := &app{sess: sess, be: be, roles: roles, log: log, in: bufio.NewReader(in), out: out, errw: errw, yes: yes}
	a.unwatch = sess.OnChange(func(session.State) { roles.Reset() })

	d := service.Deps{
		Log:     log,
		Notify:  service.NotifierFunc(a.notify),
		Confirm: service.ConfirmerFunc(a.confirm),
		Timeout: callTimeout,
	}
	a.cats = service.NewCategoryService(be.Docs, d)
	a.items = service.NewItemService(be.Docs, be.Blobs, a.cats, d)
	a.comments = service.NewCommentService(be.Docs, d)
	a.favs = service.NewFavoriteService(be.Docs, d)
	a.profiles = service.NewProfileService(be.Docs, be.Blobs, be.Auth, roles, d)
	return a, nil
}

func (a *app) close() { a.unwatch() }

// viewer resolves the signed-in identity and its stored role.
func (a *app) viewer(ctx context.Context) (policy.Viewer, error) {
	id, ok := a.sess.Current()
	if !ok {
		return policy.Viewer{}, nil
	}
	return a.roles.Viewer(ctx, id.Email)
}

// notify prints successes; failures are returned to the command and printed once by fail.
func (a *app) notify(_ context.Context, n service.Notice) {
	if n.Err == nil {
		fmt.Fprintf(a.errw, "%s: ok\n", n.Op)
	}
}

func (a *app) confirm(_ context.Context, prompt string) (bool, error) {
	if a.yes {
		return true, nil
	}
	fmt.Fprintf(a.errw, "%s [y/N] ", prompt)
	line, err := a.in.ReadString('\n')
	if err != nil && err != io.EOF {
		return false, err
	}
	switch strings.ToLower(strings.TrimSpace(line)) {
	case "y", "yes":
		return true, nil
	}
	return false, nil
}
