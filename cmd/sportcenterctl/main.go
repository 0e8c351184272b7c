package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/sportcenterhq/client-go/internal/credstore"
	"github.com/sportcenterhq/client-go/internal/gateway"
	"github.com/sportcenterhq/client-go/internal/models"
	"github.com/sportcenterhq/client-go/internal/session"
	"github.com/sportcenterhq/client-go/internal/workflow"
	"github.com/sportcenterhq/client-go/pkg/config"
	"github.com/sportcenterhq/client-go/pkg/export"
	"github.com/sportcenterhq/client-go/pkg/logger"
)

const usage = `usage: sportcenterctl <command> [flags]

commands:
  register     create a member account
  login        sign in and persist the session
  logout       clear the persisted session
  whoami       show the signed-in profile
  classes      list active class offerings
  enroll       enroll the signed-in member in a class
  pay          pay for a pending enrollment (writes a receipt on success)
  cancel       cancel an enrollment
  enrollments  list the member's enrollments with class details
`

type app struct {
	cfg      *config.Config
	logger   *zap.Logger
	state    *session.State
	sessions *session.Manager
	workflow *workflow.Service
	receipts *export.ReceiptRenderer
}

func main() {
	if len(os.Args) < 2 {
		fmt.Fprint(os.Stderr, usage)
		os.Exit(2)
	}

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	logr, err := logger.New(cfg)
	if err != nil {
		log.Fatalf("failed to init logger: %v", err)
	}
	defer logr.Sync() //nolint:errcheck

	store, err := newStore(cfg)
	if err != nil {
		logr.Sugar().Fatalw("failed to open credential store", "error", err)
	}

	validate := validator.New()
	state := session.NewState()
	sessions := session.NewManager(store, state, session.Config{
		BaseURL:      cfg.API.BaseURL,
		ClientID:     cfg.API.ClientID,
		ClientSecret: cfg.API.ClientSecret,
		Timeout:      cfg.API.Timeout,
	}, validate, logr)

	gw := gateway.New(cfg.API.BaseURL, cfg.API.Timeout, sessions, gateway.NewMetrics(), logr)

	var retrier *workflow.Reconciler
	if cfg.Reconciler.Enabled {
		retrier, err = workflow.NewReconciler(gw, cfg.Reconciler.Schedule, cfg.Reconciler.MaxAttempts, logr)
		if err != nil {
			logr.Sugar().Fatalw("failed to build reconciler", "error", err)
		}
		retrier.Start()
		defer retrier.Stop()
	}

	a := &app{
		cfg:      cfg,
		logger:   logr,
		state:    state,
		sessions: sessions,
		workflow: workflow.NewService(gw, retrier, validate, logr),
		receipts: export.NewReceiptRenderer(),
	}

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	if err := a.run(ctx, os.Args[1], os.Args[2:]); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func newStore(cfg *config.Config) (credstore.Store, error) {
	switch cfg.Store.Backend {
	case config.StoreBackendRedis:
		return credstore.NewRedisStore(cfg.Redis)
	case config.StoreBackendMemory:
		return credstore.NewMemoryStore(), nil
	default:
		return credstore.NewFileStore(cfg.Store.Dir, cfg.Store.Passphrase)
	}
}

func (a *app) run(ctx context.Context, command string, args []string) error {
	switch command {
	case "register":
		return a.register(ctx, args)
	case "login":
		return a.login(ctx, args)
	case "logout":
		return a.sessions.Logout(ctx)
	case "whoami":
		return a.whoami(ctx)
	case "classes":
		return a.classes(ctx, args)
	case "enroll":
		return a.enroll(ctx, args)
	case "pay":
		return a.pay(ctx, args)
	case "cancel":
		return a.cancel(ctx, args)
	case "enrollments":
		return a.enrollments(ctx)
	default:
		fmt.Fprint(os.Stderr, usage)
		return fmt.Errorf("unknown command %q", command)
	}
}

func (a *app) register(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("register", flag.ExitOnError)
	username := fs.String("username", "", "account username")
	password := fs.String("password", "", "account password")
	email := fs.String("email", "", "contact email")
	first := fs.String("first", "", "first name")
	last := fs.String("last", "", "last name")
	phone := fs.String("phone", "", "phone number")
	fs.Parse(args) //nolint:errcheck

	identity, err := a.sessions.Register(ctx, models.RegisterRequest{
		Username:  *username,
		Password:  *password,
		Password2: *password,
		Email:     *email,
		FirstName: *first,
		LastName:  *last,
		Phone:     *phone,
	})
	if err != nil {
		return err
	}

	fmt.Printf("registered %s (id %d)\n", identity.Username, identity.ID)
	return nil
}

func (a *app) login(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("login", flag.ExitOnError)
	username := fs.String("username", "", "account username")
	password := fs.String("password", "", "account password")
	fs.Parse(args) //nolint:errcheck

	identity, err := a.sessions.Login(ctx, *username, *password)
	if err != nil {
		return err
	}

	fmt.Printf("signed in as %s (%s)\n", identity.Username, identity.Role)
	return nil
}

func (a *app) whoami(ctx context.Context) error {
	if _, err := a.sessions.Restore(ctx); err != nil {
		return err
	}
	snap := a.state.Current()
	if !snap.LoggedIn {
		fmt.Println("not signed in")
		return nil
	}
	fmt.Printf("%s (%s) — %s, id %d\n", snap.User.FullName, snap.User.Username, snap.Role, snap.User.ID)
	return nil
}

func (a *app) classes(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("classes", flag.ExitOnError)
	trainer := fs.Int64("trainer", 0, "filter by trainer id")
	search := fs.String("q", "", "search term")
	limit := fs.Int("limit", 0, "max results")
	fs.Parse(args) //nolint:errcheck

	if _, err := a.sessions.Restore(ctx); err != nil {
		return err
	}

	classes, err := a.workflow.ListActiveClasses(ctx, models.ClassFilter{
		TrainerID: *trainer,
		Search:    *search,
		Limit:     *limit,
	})
	if err != nil {
		return err
	}

	for _, c := range classes {
		fmt.Printf("#%-5d %-30s %s  %d VND  %d spots left\n",
			c.ID, c.Name, c.StartTime.Format("2006-01-02 15:04"), c.Price, c.SpotsLeft())
	}
	return nil
}

func (a *app) enroll(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("enroll", flag.ExitOnError)
	classID := fs.Int64("class", 0, "class id")
	fs.Parse(args) //nolint:errcheck

	member, err := a.requireMember(ctx)
	if err != nil {
		return err
	}

	outcome, err := a.workflow.Enroll(ctx, member.ID, *classID)
	if err != nil {
		return err
	}
	if outcome.AlreadyEnrolled {
		fmt.Printf("already enrolled in class %d\n", *classID)
		return nil
	}

	fmt.Printf("enrollment %d created (status %s) — proceed to pay\n", outcome.Enrollment.ID, outcome.Enrollment.Status)
	return nil
}

func (a *app) pay(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("pay", flag.ExitOnError)
	enrollmentID := fs.Int64("enrollment", 0, "enrollment id")
	amount := fs.Int64("amount", 0, "amount in VND")
	method := fs.String("method", string(models.MethodWalletA), "payment method (walletA|gatewayB|cardC)")
	fs.Parse(args) //nolint:errcheck

	member, err := a.requireMember(ctx)
	if err != nil {
		return err
	}

	outcome, err := a.workflow.Pay(ctx, workflow.PayRequest{
		EnrollmentID: *enrollmentID,
		MemberID:     member.ID,
		Amount:       *amount,
		Method:       models.PaymentMethod(*method),
	})
	if err != nil {
		return err
	}

	if outcome.ConfirmationPending {
		fmt.Printf("payment %s completed; enrollment confirmation is pending and will be retried\n", outcome.Payment.TransactionID)
	} else {
		fmt.Printf("payment %s completed; enrollment %d approved\n", outcome.Payment.TransactionID, outcome.Enrollment.ID)
	}

	a.writeReceipt(ctx, member, outcome, *enrollmentID)
	return nil
}

func (a *app) cancel(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("cancel", flag.ExitOnError)
	enrollmentID := fs.Int64("enrollment", 0, "enrollment id")
	fs.Parse(args) //nolint:errcheck

	if _, err := a.requireMember(ctx); err != nil {
		return err
	}

	if err := a.workflow.Cancel(ctx, *enrollmentID); err != nil {
		return err
	}
	fmt.Printf("enrollment %d cancelled\n", *enrollmentID)
	return nil
}

func (a *app) enrollments(ctx context.Context) error {
	member, err := a.requireMember(ctx)
	if err != nil {
		return err
	}

	details, err := a.workflow.ListEnrollments(ctx, member.ID)
	if err != nil {
		return err
	}

	for _, d := range details {
		name := fmt.Sprintf("class #%d", d.Enrollment.ClassID)
		if d.Class != nil {
			name = d.Class.Name
		}
		fmt.Printf("#%-5d %-30s %s\n", d.Enrollment.ID, name, d.Enrollment.Status)
	}
	return nil
}

func (a *app) requireMember(ctx context.Context) (*models.Identity, error) {
	identity, err := a.sessions.Restore(ctx)
	if err != nil {
		return nil, err
	}
	if identity == nil {
		return nil, fmt.Errorf("not signed in; run `sportcenterctl login` first")
	}
	return identity, nil
}

func (a *app) writeReceipt(ctx context.Context, member *models.Identity, outcome *workflow.PayOutcome, enrollmentID int64) {
	receipt := export.Receipt{Payment: *outcome.Payment, Member: *member}
	if outcome.Enrollment != nil {
		receipt.Enrollment = *outcome.Enrollment
		if class, err := a.workflow.GetClass(ctx, outcome.Enrollment.ClassID); err == nil {
			receipt.Class = class
		}
	} else {
		receipt.Enrollment = models.Enrollment{ID: enrollmentID, Status: models.EnrollmentStatusPending}
	}

	data, err := a.receipts.Render(receipt)
	if err != nil {
		a.logger.Warn("failed to render receipt", zap.Error(err))
		return
	}

	if err := os.MkdirAll(a.cfg.Receipts.OutputDir, 0o755); err != nil {
		a.logger.Warn("failed to prepare receipts directory", zap.Error(err))
		return
	}
	path := filepath.Join(a.cfg.Receipts.OutputDir, fmt.Sprintf("receipt-%s.pdf", outcome.Payment.TransactionID))
	if err := os.WriteFile(path, data, 0o644); err != nil {
		a.logger.Warn("failed to write receipt", zap.Error(err))
		return
	}
	fmt.Printf("receipt written to %s\n", path)
}
