package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"strings"

	"github.com/and161185/recipebook/internal/errs"
	"github.com/and161185/recipebook/internal/model"
	"github.com/and161185/recipebook/internal/modlist"
	"github.com/and161185/recipebook/internal/policy"
	"github.com/and161185/recipebook/internal/service"
)

var errUsage = errors.New("usage")

// run dispatches one subcommand.
func run(ctx context.Context, a *app, cmd string, args []string) error {
	switch cmd {
	case "version":
		fmt.Fprintf(a.out, "rb %s (%s)\n", version, buildDate)
		return nil

	// account
	case "signup":
		return a.signup(ctx, args)
	case "login":
		return a.login(ctx, args)
	case "logout":
		a.sess.SignOut()
		return nil
	case "reset":
		return a.reset(ctx, args)
	case "whoami":
		return a.whoami(ctx)
	case "close-account":
		return a.closeAccount(ctx)

	// recipes
	case "list":
		return listCmd(ctx, a, args, "list", always(modlist.Public))
	case "mine":
		return listCmd(ctx, a, args, "mine", modlist.Mine)
	case "pending":
		return listCmd(ctx, a, args, "pending", modlist.Pending)
	case "category":
		return a.category(ctx, args)
	case "show":
		return a.show(ctx, args)
	case "add":
		return a.add(ctx, args)
	case "edit":
		return a.edit(ctx, args)
	case "rm":
		return a.rm(ctx, args)
	case "approve":
		return a.approve(ctx, args)
	case "categories":
		return a.categories(ctx, args)

	// comments
	case "comments":
		return a.thread(ctx, args)
	case "comment":
		return a.comment(ctx, args)
	case "comment-edit":
		return a.commentEdit(ctx, args)
	case "comment-rm":
		return a.commentRm(ctx, args)

	// favorites
	case "favs":
		return listCmd(ctx, a, args, "favs", modlist.Favorites)
	case "fav":
		return a.fav(ctx, args)
	case "unfav":
		return a.unfav(ctx, args)

	// profiles
	case "profile":
		return a.profile(ctx, args)
	case "profile-set":
		return a.profileSet(ctx, args)
	case "avatar":
		return a.avatar(ctx, args)
	case "users":
		return listCmd(ctx, a, args, "users", modlist.Users)
	case "role":
		return a.role(ctx, args)
	case "deluser":
		return a.delUser(ctx, args)
	}
	return fmt.Errorf("%w: unknown command %q", errUsage, cmd)
}

func newFlags(name string, w io.Writer) *flag.FlagSet {
	fs := flag.NewFlagSet(name, flag.ContinueOnError)
	fs.SetOutput(w)
	return fs
}

func need(name string, vals ...string) error {
	for _, v := range vals {
		if strings.TrimSpace(v) == "" {
			return fmt.Errorf("%w: %s", errUsage, name)
		}
	}
	return nil
}

// ---- account ----

func (a *app) signup(ctx context.Context, args []string) error {
	fs := newFlags("signup", a.errw)
	email := fs.String("e", "", "email")
	pass := fs.String("p", "", "password")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if err := need("signup -e <email> -p <password>", *email, *pass); err != nil {
		return err
	}
	id, err := a.sess.SignUp(ctx, *email, *pass)
	if err != nil {
		return err
	}
	if err := a.ensureProfile(ctx, id); err != nil {
		return err
	}
	printJSON(a.out, id)
	return nil
}

// ensureProfile creates users/<email> unless it exists. An existing profile keeps its role.
func (a *app) ensureProfile(ctx context.Context, id model.Identity) error {
	v, err := a.viewer(ctx)
	if err != nil {
		return err
	}
	_, err = a.profiles.Get(ctx, v, id.Email)
	if err == nil {
		return nil
	}
	if !errors.Is(err, errs.ErrNotFound) {
		return err
	}
	return a.profiles.Create(ctx, v, model.UserProfile{Email: id.Email, DisplayName: id.DisplayName})
}

func (a *app) login(ctx context.Context, args []string) error {
	fs := newFlags("login", a.errw)
	email := fs.String("e", "", "email")
	pass := fs.String("p", "", "password")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if err := need("login -e <email> -p <password>", *email, *pass); err != nil {
		return err
	}
	if err := a.sess.SignIn(ctx, *email, *pass); err != nil {
		return err
	}
	fmt.Fprintln(a.out, "ok")
	return nil
}

func (a *app) reset(ctx context.Context, args []string) error {
	fs := newFlags("reset", a.errw)
	email := fs.String("e", "", "email")
	token := fs.String("token", "", "token from the reset mail")
	pass := fs.String("p", "", "new password")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *token != "" || *pass != "" {
		if err := need("reset -token <token> -p <password>", *token, *pass); err != nil {
			return err
		}
		if err := a.be.Auth.ResetPassword(ctx, *token, *pass); err != nil {
			return err
		}
		fmt.Fprintln(a.out, "password changed")
		return nil
	}
	if err := need("reset -e <email> | reset -token <token> -p <password>", *email); err != nil {
		return err
	}
	if err := a.sess.SendPasswordReset(ctx, *email); err != nil {
		return err
	}
	fmt.Fprintln(a.out, "reset mail sent")
	return nil
}

func (a *app) whoami(ctx context.Context) error {
	id, ok := a.sess.Current()
	if !ok {
		return errs.ErrUnauthorized
	}
	v, err := a.viewer(ctx)
	if err != nil {
		return err
	}
	printJSON(a.out, struct {
		model.Identity
		Role model.Role
	}{id, v.Role})
	return nil
}

func (a *app) closeAccount(ctx context.Context) error {
	id, ok := a.sess.Current()
	if !ok {
		return errs.ErrUnauthorized
	}
	yes, err := a.confirm(ctx, fmt.Sprintf("Close account %s?", id.Email))
	if err != nil || !yes {
		return err
	}
	return a.sess.DeleteCurrent(ctx)
}

// ---- lists ----

func listCmd[T any](ctx context.Context, a *app, args []string, name string, build func(modlist.Options[T]) (*modlist.List[T], error)) error {
	fs := newFlags(name, a.errw)
	q := fs.String("q", "", "search by name")
	watch := fs.Bool("watch", false, "print every change until interrupted")
	if err := fs.Parse(args); err != nil {
		return err
	}
	return render(ctx, a, build, *q, *watch)
}

func always[T any](f func(modlist.Options[T]) *modlist.List[T]) func(modlist.Options[T]) (*modlist.List[T], error) {
	return func(o modlist.Options[T]) (*modlist.List[T], error) { return f(o), nil }
}

func (a *app) category(ctx context.Context, args []string) error {
	fs := newFlags("category", a.errw)
	name := fs.String("name", "", "category name")
	q := fs.String("q", "", "search by name")
	watch := fs.Bool("watch", false, "print every change until interrupted")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if err := need("category -name <category>", *name); err != nil {
		return err
	}
	build := func(o modlist.Options[model.Item]) (*modlist.List[model.Item], error) {
		return modlist.Category(o, *name)
	}
	return render(ctx, a, build, *q, *watch)
}

func (a *app) thread(ctx context.Context, args []string) error {
	fs := newFlags("comments", a.errw)
	item := fs.String("item", "", "item name")
	watch := fs.Bool("watch", false, "print every change until interrupted")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if err := need("comments -item <name>", *item); err != nil {
		return err
	}
	build := func(o modlist.Options[model.Comment]) (*modlist.List[model.Comment], error) {
		return modlist.Thread(o, *item), nil
	}
	return render(ctx, a, build, "", *watch)
}

func (a *app) categories(ctx context.Context, args []string) error {
	fs := newFlags("categories", a.errw)
	watch := fs.Bool("watch", false, "print every change until interrupted")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if !*watch {
		cats, err := a.cats.List(ctx)
		if err != nil {
			return err
		}
		printJSON(a.out, cats)
		return nil
	}
	return render(ctx, a, always(modlist.Categories), "", true)
}

// render mounts a list screen, prints its first rows and, when watching,
// every later change until ctx is done.
func render[T any](ctx context.Context, a *app, build func(modlist.Options[T]) (*modlist.List[T], error), q string, watch bool) error {
	v, err := a.viewer(ctx)
	if err != nil {
		return err
	}
	latest := make(chan []modlist.Row[T], 1)
	l, err := build(modlist.Options[T]{
		Store:  a.be.Docs,
		Viewer: v,
		Log:    a.log,
		OnChange: func(rows []modlist.Row[T]) {
			select {
			case <-latest:
			default:
			}
			select {
			case latest <- rows:
			default:
			}
		},
	})
	if err != nil {
		return err
	}
	if q != "" {
		l.Search(q)
		<-latest
	}
	if err := l.Start(ctx); err != nil {
		return err
	}
	defer l.Stop()

	for {
		select {
		case rows := <-latest:
			printJSON(a.out, rows)
			if !watch {
				return nil
			}
		case <-ctx.Done():
			if watch {
				return nil
			}
			return ctx.Err()
		}
	}
}

// ---- recipes ----

func (a *app) show(ctx context.Context, args []string) error {
	fs := newFlags("show", a.errw)
	id := fs.String("id", "", "item id")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if err := need("show -id <id>", *id); err != nil {
		return err
	}
	v, err := a.viewer(ctx)
	if err != nil {
		return err
	}
	it, err := a.items.Get(ctx, v, *id)
	if err != nil {
		return err
	}
	printJSON(a.out, modlist.Row[model.Item]{Item: it, Actions: policy.ItemActions(v, it)})
	return nil
}

func (a *app) add(ctx context.Context, args []string) error {
	fs := newFlags("add", a.errw)
	name := fs.String("name", "", "recipe name")
	ingredient := fs.String("ingredient", "", "ingredients")
	instruction := fs.String("instruction", "", "instructions")
	category := fs.String("category", "", "category id")
	image := fs.String("image", "", "image file, - for stdin")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if err := need("add -name -ingredient -instruction -category -image", *image); err != nil {
		return err
	}
	data, err := readAll(*image)
	if err != nil {
		return err
	}
	// denormalized category names come from the last fetched list
	if _, err := a.cats.List(ctx); err != nil {
		return err
	}
	v, err := a.viewer(ctx)
	if err != nil {
		return err
	}
	id, err := a.items.Create(ctx, v, model.ItemDraft{
		Name:        *name,
		Ingredient:  *ingredient,
		Instruction: *instruction,
		CategoryID:  *category,
	}, service.Image{Data: data})
	if err != nil {
		return err
	}
	fmt.Fprintln(a.out, id)
	return nil
}

// setFlags records which flags were given so empty values can be told from absent ones.
func setFlags(fs *flag.FlagSet) map[string]bool {
	set := map[string]bool{}
	fs.Visit(func(f *flag.Flag) { set[f.Name] = true })
	return set
}

func opt(set map[string]bool, name string, v *string) *string {
	if set[name] {
		return v
	}
	return nil
}

func (a *app) edit(ctx context.Context, args []string) error {
	fs := newFlags("edit", a.errw)
	id := fs.String("id", "", "item id")
	name := fs.String("name", "", "recipe name")
	ingredient := fs.String("ingredient", "", "ingredients")
	instruction := fs.String("instruction", "", "instructions")
	category := fs.String("category", "", "category id")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if err := need("edit -id <id> [-name] [-ingredient] [-instruction] [-category <id>]", *id); err != nil {
		return err
	}
	set := setFlags(fs)
	if set["category"] {
		if _, err := a.cats.List(ctx); err != nil {
			return err
		}
	}
	v, err := a.viewer(ctx)
	if err != nil {
		return err
	}
	return a.items.Update(ctx, v, *id, model.ItemPatch{
		Name:        opt(set, "name", name),
		Ingredient:  opt(set, "ingredient", ingredient),
		Instruction: opt(set, "instruction", instruction),
		Category:    opt(set, "category", category),
	})
}

func (a *app) rm(ctx context.Context, args []string) error {
	fs := newFlags("rm", a.errw)
	id := fs.String("id", "", "item id")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if err := need("rm -id <id>", *id); err != nil {
		return err
	}
	v, err := a.viewer(ctx)
	if err != nil {
		return err
	}
	deleted, err := a.items.Delete(ctx, v, *id)
	if err != nil {
		return err
	}
	if !deleted {
		fmt.Fprintln(a.out, "kept")
	}
	return nil
}

func (a *app) approve(ctx context.Context, args []string) error {
	fs := newFlags("approve", a.errw)
	id := fs.String("id", "", "item id")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if err := need("approve -id <id>", *id); err != nil {
		return err
	}
	v, err := a.viewer(ctx)
	if err != nil {
		return err
	}
	return a.items.Approve(ctx, v, *id)
}

// ---- comments ----

func (a *app) comment(ctx context.Context, args []string) error {
	fs := newFlags("comment", a.errw)
	item := fs.String("item", "", "item name")
	text := fs.String("text", "", "comment text")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if err := need("comment -item <name> -text <text>", *item); err != nil {
		return err
	}
	v, err := a.viewer(ctx)
	if err != nil {
		return err
	}
	id, err := a.comments.Add(ctx, v, *item, *text)
	if err != nil {
		return err
	}
	fmt.Fprintln(a.out, id)
	return nil
}

func (a *app) commentEdit(ctx context.Context, args []string) error {
	fs := newFlags("comment-edit", a.errw)
	item := fs.String("item", "", "item name")
	id := fs.String("id", "", "comment id")
	text := fs.String("text", "", "comment text")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if err := need("comment-edit -item <name> -id <id> -text <text>", *item, *id); err != nil {
		return err
	}
	v, err := a.viewer(ctx)
	if err != nil {
		return err
	}
	return a.comments.Edit(ctx, v, *item, *id, *text)
}

func (a *app) commentRm(ctx context.Context, args []string) error {
	fs := newFlags("comment-rm", a.errw)
	item := fs.String("item", "", "item name")
	id := fs.String("id", "", "comment id")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if err := need("comment-rm -item <name> -id <id>", *item, *id); err != nil {
		return err
	}
	v, err := a.viewer(ctx)
	if err != nil {
		return err
	}
	return a.comments.Delete(ctx, v, *item, *id)
}

// ---- favorites ----

func (a *app) fav(ctx context.Context, args []string) error {
	fs := newFlags("fav", a.errw)
	id := fs.String("id", "", "item id")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if err := need("fav -id <item id>", *id); err != nil {
		return err
	}
	v, err := a.viewer(ctx)
	if err != nil {
		return err
	}
	it, err := a.items.Get(ctx, v, *id)
	if err != nil {
		return err
	}
	fid, err := a.favs.Add(ctx, v, it)
	if err != nil {
		return err
	}
	fmt.Fprintln(a.out, fid)
	return nil
}

func (a *app) unfav(ctx context.Context, args []string) error {
	fs := newFlags("unfav", a.errw)
	id := fs.String("id", "", "favorite id")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if err := need("unfav -id <favorite id>", *id); err != nil {
		return err
	}
	v, err := a.viewer(ctx)
	if err != nil {
		return err
	}
	return a.favs.Remove(ctx, v, *id)
}

// ---- profiles ----

// self returns the signed-in email unless email is given.
func (a *app) self(email string) (string, error) {
	if email != "" {
		return email, nil
	}
	id, ok := a.sess.Current()
	if !ok {
		return "", errs.ErrUnauthorized
	}
	return id.Email, nil
}

func (a *app) profile(ctx context.Context, args []string) error {
	fs := newFlags("profile", a.errw)
	email := fs.String("e", "", "email (default: signed-in user)")
	if err := fs.Parse(args); err != nil {
		return err
	}
	target, err := a.self(*email)
	if err != nil {
		return err
	}
	v, err := a.viewer(ctx)
	if err != nil {
		return err
	}
	p, err := a.profiles.Get(ctx, v, target)
	if err != nil {
		return err
	}
	printJSON(a.out, p)
	return nil
}

func (a *app) profileSet(ctx context.Context, args []string) error {
	fs := newFlags("profile-set", a.errw)
	name := fs.String("name", "", "display name")
	phone := fs.String("phone", "", "phone")
	address := fs.String("address", "", "address")
	dob := fs.String("dob", "", "date of birth")
	if err := fs.Parse(args); err != nil {
		return err
	}
	target, err := a.self("")
	if err != nil {
		return err
	}
	set := setFlags(fs)
	v, err := a.viewer(ctx)
	if err != nil {
		return err
	}
	return a.profiles.UpdateFields(ctx, v, target, model.ProfilePatch{
		DisplayName: opt(set, "name", name),
		Phone:       opt(set, "phone", phone),
		Address:     opt(set, "address", address),
		DOB:         opt(set, "dob", dob),
	})
}

func (a *app) avatar(ctx context.Context, args []string) error {
	fs := newFlags("avatar", a.errw)
	image := fs.String("image", "", "image file, - for stdin")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if err := need("avatar -image <file>", *image); err != nil {
		return err
	}
	target, err := a.self("")
	if err != nil {
		return err
	}
	data, err := readAll(*image)
	if err != nil {
		return err
	}
	v, err := a.viewer(ctx)
	if err != nil {
		return err
	}
	url, err := a.profiles.UploadAvatar(ctx, v, target, service.Image{Data: data})
	if err != nil {
		return err
	}
	fmt.Fprintln(a.out, url)
	return nil
}

func (a *app) role(ctx context.Context, args []string) error {
	fs := newFlags("role", a.errw)
	email := fs.String("e", "", "email")
	role := fs.String("role", "", "user or admin")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if err := need("role -e <email> -role <user|admin>", *email, *role); err != nil {
		return err
	}
	v, err := a.viewer(ctx)
	if err != nil {
		return err
	}
	return a.profiles.SetRole(ctx, v, *email, model.Role(*role))
}

func (a *app) delUser(ctx context.Context, args []string) error {
	fs := newFlags("deluser", a.errw)
	email := fs.String("e", "", "email")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if err := need("deluser -e <email>", *email); err != nil {
		return err
	}
	v, err := a.viewer(ctx)
	if err != nil {
		return err
	}
	deleted, err := a.profiles.Delete(ctx, v, *email)
	var partial *errs.TwoStepDeletionError
	if errors.As(err, &partial) {
		fmt.Fprintf(a.errw, "profile of %s removed, sign-in identity kept: %v\n", partial.Identity, partial.Err)
		return err
	}
	if err != nil {
		return err
	}
	if !deleted {
		fmt.Fprintln(a.out, "kept")
	}
	return nil
}
