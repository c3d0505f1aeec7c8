// Command rb is a CLI client for the recipe book service.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"go.uber.org/zap"
	"google.golang.org/grpc/status"

	"github.com/and161185/recipebook/internal/client"
	"github.com/and161185/recipebook/internal/session"
)

func usage() {
	fmt.Fprintf(os.Stderr, `rb CLI
Usage:
  rb -addr HOST:PORT [-cacert file | -insecure | -plaintext] [-y] [-debug] <cmd> [args]

Commands:
  version
  signup        -e <email> -p <password>           (saves token)
  login         -e <email> -p <password>           (saves token)
  logout
  reset         -e <email>                          mails a reset token
  reset         -token <token> -p <password>
  whoami
  close-account
  list          [-q <text>] [-watch]                approved recipes
  mine          [-q <text>] [-watch]                your recipes
  pending       [-q <text>] [-watch]                awaiting approval (admin)
  category      -name <category> [-q <text>] [-watch]
  show          -id <id>
  add           -name -ingredient -instruction -category <id> -image <file|->
  edit          -id <id> [-name] [-ingredient] [-instruction] [-category <id>]
  rm            -id <id>
  approve       -id <id>                            (admin)
  categories    [-watch]
  comments      -item <name> [-watch]
  comment       -item <name> -text <text>
  comment-edit  -item <name> -id <id> -text <text>
  comment-rm    -item <name> -id <id>
  favs          [-q <text>] [-watch]
  fav           -id <item id>
  unfav         -id <favorite id>
  profile       [-e <email>]
  profile-set   [-name] [-phone] [-address] [-dob]
  avatar        -image <file|->
  users         [-q <text>] [-watch]                (admin)
  role          -e <email> -role <user|admin>       (admin)
  deluser       -e <email>                          (admin)
`)
	os.Exit(2)
}

// ---- main ----

var (
	version   = "dev"
	buildDate = "unknown"
)

// main restores the saved session, dials the backend and dispatches one subcommand.
func main() {
	// global flags
	addr := flag.String("addr", "localhost:8443", "server addr")
	caPath := flag.String("cacert", "", "CA cert (PEM)")
	insecure := flag.Bool("insecure", false, "skip cert verify (dev)")
	plaintext := flag.Bool("plaintext", false, "dial without TLS (dev)")
	yes := flag.Bool("y", false, "answer yes to confirmations")
	debug := flag.Bool("debug", false, "log to stderr")
	flag.Usage = usage
	flag.Parse()

	if flag.NArg() < 1 {
		usage()
	}
	cmd := flag.Arg(0)

	log := zap.NewNop()
	if *debug {
		l, err := zap.NewDevelopment()
		if err != nil {
			fail(err)
		}
		log = l
	}
	defer func() { _ = log.Sync() }()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	var sess *session.Session
	cc, err := client.Dial(ctx, *addr, client.Options{
		CACert:     *caPath,
		SkipVerify: *insecure,
		Plaintext:  *plaintext,
		Token:      func() string { return sess.Token() },
	})
	if err != nil {
		fail(err)
	}
	defer cc.Close()

	be := client.New(cc, log)
	sess = session.New(be.Auth, log)
	if tok, id, err := loadToken(); err == nil {
		sess.Restore(tok, id)
	}
	sess.OnChange(persist(log))

	a, err := newApp(be, sess, os.Stdin, os.Stdout, os.Stderr, *yes, log)
	if err != nil {
		fail(err)
	}
	defer a.close()

	if err := run(ctx, a, cmd, flag.Args()[1:]); err != nil {
		if errors.Is(err, errUsage) {
			fmt.Fprintln(os.Stderr, err)
			usage()
		}
		fail(err)
	}
}

// persist mirrors session changes into the token file.
func persist(log *zap.Logger) func(session.State) {
	return func(st session.State) {
		var err error
		if st.SignedIn() {
			err = saveToken(st.Tokens, st.Identity)
		} else {
			err = dropToken()
		}
		if err != nil {
			log.Warn("persist session", zap.Error(err))
		}
	}
}

func fail(err error) {
	if errors.Is(err, flag.ErrHelp) {
		os.Exit(2)
	}
	if s, ok := status.FromError(err); ok {
		fmt.Fprintf(os.Stderr, "rpc error: code=%s msg=%s\n", s.Code(), s.Message())
		os.Exit(1)
	}
	fmt.Fprintln(os.Stderr, err)
	os.Exit(1)
}
