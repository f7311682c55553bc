// Command till is the admin/point-of-sale front end for the timetill core.
package main

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/and161185/timetill/internal/config"
	"github.com/and161185/timetill/internal/crypto"
	"github.com/and161185/timetill/internal/ids"
	"github.com/and161185/timetill/internal/limiter"
	"github.com/and161185/timetill/internal/manifest"
	"github.com/and161185/timetill/internal/model"
	"github.com/and161185/timetill/internal/payment"
	"github.com/and161185/timetill/internal/service"
	"github.com/and161185/timetill/internal/session"
	"github.com/and161185/timetill/internal/store"
)

var (
	version   = "dev"
	buildDate = "unknown"
)

// ---- config/token store ----

type tokenFile struct {
	Token     string    `json:"token"`
	ExpiresAt time.Time `json:"expires_at"`
}

func cfgDir() string {
	if v := os.Getenv("XDG_CONFIG_HOME"); v != "" {
		return filepath.Join(v, "timetill")
	}
	home, _ := os.UserHomeDir()
	return filepath.Join(home, ".config", "timetill")
}

func tokenPath() string { return filepath.Join(cfgDir(), "token.json") }

func saveToken(tok string, exp time.Time) error {
	_ = os.MkdirAll(cfgDir(), 0o700)
	f, err := os.Create(tokenPath())
	if err != nil {
		return err
	}
	defer f.Close()
	enc := json.NewEncoder(f)
	enc.SetIndent("", "  ")
	return enc.Encode(tokenFile{Token: tok, ExpiresAt: exp})
}

func loadToken() (string, error) {
	b, err := os.ReadFile(tokenPath())
	if err != nil {
		return "", err
	}
	var tf tokenFile
	if err := json.Unmarshal(b, &tf); err != nil {
		return "", err
	}
	if tf.Token == "" || time.Now().After(tf.ExpiresAt) {
		return "", errors.New("no valid session (login required)")
	}
	return tf.Token, nil
}

// ---- app assembly ----

type app struct {
	cfg      config.Config
	log      *zap.Logger
	store    *store.Store
	blobs    store.BlobStore
	sessions *session.Manager
	users    *service.Users
	plans    *service.Plans
	catalog  *service.Catalog
	orders   *service.Orders
	sites    *service.Sites
	cart     *service.Cart
}

func newApp(log *zap.Logger) (*app, error) {
	cfg, err := config.Parse()
	if err != nil {
		return nil, err
	}
	if cfg.SessionKey == "" {
		return nil, errors.New("TIMETILL_SESSION_KEY is required")
	}

	st := store.Open(filepath.Join(cfg.DataDir, "document.json"), log)
	blobs := store.OpenBlobStore(filepath.Join(cfg.DataDir, "sites.db"), log)

	gen, err := ids.NewGenerator(0)
	if err != nil {
		return nil, err
	}
	verifier := crypto.Argon2Verifier{}
	lim := limiter.NewMemory(cfg.LoginWindow, cfg.LoginMaxFails, cfg.LoginBlockFor)
	gw := payment.NewSimulated(cfg.ApprovalRate, cfg.GatewayDelay)

	a := &app{
		cfg:      cfg,
		log:      log,
		store:    st,
		blobs:    blobs,
		sessions: session.NewManager(st, verifier, lim, []byte(cfg.SessionKey), cfg.SessionTTL, log),
		users:    service.NewUsers(st, verifier, gen, log),
		plans:    service.NewPlans(st, gen, log),
		catalog:  service.NewCatalog(st, gen, log),
		orders:   service.NewOrders(st, log),
		sites:    service.NewSites(blobs, gen, log),
		cart:     service.NewCart(st, gw, gen, log),
	}
	if err := a.users.EnsureAdmin(cfg.AdminUser, cfg.AdminPassword); err != nil {
		return nil, err
	}
	return a, nil
}

func (a *app) close() { _ = a.blobs.Close() }

// principal reconstructs the session from the saved token, or nil when
// nobody is logged in.
func (a *app) principal() *model.Session {
	tok, err := loadToken()
	if err != nil {
		return nil
	}
	s, err := a.sessions.Verify(tok)
	if err != nil {
		return nil
	}
	return &s
}

// ---- utils ----

func fail(err error) {
	fmt.Fprintln(os.Stderr, "error:", err)
	os.Exit(1)
}

func printJSON(v any) {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	_ = enc.Encode(v)
}

func confirmTwice(prompt string) bool {
	r := bufio.NewReader(os.Stdin)
	for i := 0; i < 2; i++ {
		fmt.Printf("%s Type 'yes' to continue: ", prompt)
		line, err := r.ReadString('\n')
		if err != nil || strings.TrimSpace(line) != "yes" {
			return false
		}
		prompt = "This cannot be undone."
	}
	return true
}

func readSiteFiles(dir string) ([]model.SiteFile, error) {
	files := []model.SiteFile{}
	err := filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil || d.IsDir() {
			return err
		}
		rel, err := filepath.Rel(dir, path)
		if err != nil {
			return err
		}
		b, err := os.ReadFile(path)
		if err != nil {
			return err
		}
		files = append(files, model.SiteFile{Path: filepath.ToSlash(rel), Content: b})
		return nil
	})
	return files, err
}

func usage() {
	fmt.Fprintf(os.Stderr, `till CLI
Usage:
  till <cmd> [flags]

Commands:
  version
  register      -u <username> -p <password> [-plan <id> | -minutes <n>]
  login         -u <username> -p <password>        (saves session token)
  logout
  whoami
  users | export
  user-del      -u <username>
  user-allow    -u <username> -minutes <n>
  user-passwd   -u <username> -p <new password>
  plans | plan-add -name -value -unit | plan-set -id -name -value -unit | plan-del -id
  producer-add  -name [-email] | producer-del -id
  item-add      -owner <producer id> -name [-desc] -price | item-del -id | items
  cart | cart-add -id | cart-del -id
  checkout      -name -email -address -city -card -exp -cvv
  orders | order-status -id -status
  site-import   -name -dir | sites | site-del -id
  tools
  reset                                            (double-confirmed wipe)
`)
	os.Exit(2)
}

// ---- main ----

// main dispatches subcommands against the locally persisted state.
func main() {
	_ = godotenv.Load()

	flag.Usage = usage
	flag.Parse()
	if flag.NArg() < 1 {
		usage()
	}
	cmd := flag.Arg(0)
	args := flag.Args()[1:]

	if cmd == "version" {
		fmt.Printf("till %s (%s)\n", version, buildDate)
		return
	}

	logger, _ := zap.NewProduction()
	defer func() { _ = logger.Sync() }()

	a, err := newApp(logger)
	if err != nil {
		fail(err)
	}
	defer a.close()

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	switch cmd {

	case "register":
		fs := flag.NewFlagSet("register", flag.ExitOnError)
		u := fs.String("u", "", "username")
		p := fs.String("p", "", "password")
		planID := fs.Int64("plan", 0, "plan id")
		minutes := fs.String("minutes", "", "custom allowance minutes")
		_ = fs.Parse(args)
		user, err := a.users.Create(*u, *p, service.Selection{PlanID: *planID, Custom: *minutes})
		if err != nil {
			fail(err)
		}
		fmt.Printf("user %d created, allowance %d min\n", user.ID, user.AllowanceMinutes)

	case "login":
		fs := flag.NewFlagSet("login", flag.ExitOnError)
		u := fs.String("u", "", "username")
		p := fs.String("p", "", "password")
		_ = fs.Parse(args)
		host, _ := os.Hostname()
		tok, sess, err := a.sessions.Login(ctx, *u, *p, host)
		if err != nil {
			fail(err)
		}
		if err := saveToken(tok, sess.ExpiresAt); err != nil {
			fail(err)
		}
		fmt.Println("ok")

	case "logout":
		_ = os.Remove(tokenPath())
		fmt.Println("ok")

	case "whoami":
		s := a.principal()
		if s == nil {
			fail(errors.New("not logged in"))
		}
		printJSON(s)

	case "users":
		printJSON(a.users.List())

	case "user-del":
		fs := flag.NewFlagSet("user-del", flag.ExitOnError)
		u := fs.String("u", "", "username")
		_ = fs.Parse(args)
		if err := a.users.Delete(a.principal(), *u); err != nil {
			fail(err)
		}
		fmt.Println("ok")

	case "user-allow":
		fs := flag.NewFlagSet("user-allow", flag.ExitOnError)
		u := fs.String("u", "", "username")
		minutes := fs.Int64("minutes", 0, "allowance minutes")
		_ = fs.Parse(args)
		if err := a.users.SetAllowance(a.principal(), *u, *minutes); err != nil {
			fail(err)
		}
		fmt.Println("ok")

	case "user-passwd":
		fs := flag.NewFlagSet("user-passwd", flag.ExitOnError)
		u := fs.String("u", "", "username")
		p := fs.String("p", "", "new password")
		_ = fs.Parse(args)
		if err := a.users.SetPassword(a.principal(), *u, *p); err != nil {
			fail(err)
		}
		fmt.Println("ok")

	case "plans":
		printJSON(a.plans.List())

	case "plan-add":
		fs := flag.NewFlagSet("plan-add", flag.ExitOnError)
		name := fs.String("name", "", "plan name")
		value := fs.Float64("value", 0, "plan value")
		unit := fs.String("unit", "minutes", "minutes|hours|days|weeks|months")
		_ = fs.Parse(args)
		plan, err := a.plans.Create(a.principal(), *name, *value, model.PlanUnit(*unit))
		if err != nil {
			fail(err)
		}
		printJSON(plan)

	case "plan-set":
		fs := flag.NewFlagSet("plan-set", flag.ExitOnError)
		id := fs.Int64("id", 0, "plan id")
		name := fs.String("name", "", "plan name")
		value := fs.Float64("value", 0, "plan value")
		unit := fs.String("unit", "minutes", "minutes|hours|days|weeks|months")
		_ = fs.Parse(args)
		err := a.plans.Update(a.principal(), model.Plan{ID: *id, Name: *name, Value: *value, Unit: model.PlanUnit(*unit)})
		if err != nil {
			fail(err)
		}
		fmt.Println("ok")

	case "plan-del":
		fs := flag.NewFlagSet("plan-del", flag.ExitOnError)
		id := fs.Int64("id", 0, "plan id")
		_ = fs.Parse(args)
		if err := a.plans.Delete(a.principal(), *id); err != nil {
			fail(err)
		}
		fmt.Println("ok")

	case "producer-add":
		fs := flag.NewFlagSet("producer-add", flag.ExitOnError)
		name := fs.String("name", "", "producer name")
		email := fs.String("email", "", "producer email")
		_ = fs.Parse(args)
		p, err := a.catalog.CreateProducer(a.principal(), *name, *email)
		if err != nil {
			fail(err)
		}
		printJSON(p)

	case "producer-del":
		fs := flag.NewFlagSet("producer-del", flag.ExitOnError)
		id := fs.Int64("id", 0, "producer id")
		_ = fs.Parse(args)
		if err := a.catalog.DeleteProducer(a.principal(), *id); err != nil {
			fail(err)
		}
		fmt.Println("ok")

	case "item-add":
		fs := flag.NewFlagSet("item-add", flag.ExitOnError)
		owner := fs.Int64("owner", 0, "producer id")
		name := fs.String("name", "", "item name")
		desc := fs.String("desc", "", "item description")
		price := fs.String("price", "", "item price")
		_ = fs.Parse(args)
		d, err := decimal.NewFromString(*price)
		if err != nil {
			fail(fmt.Errorf("bad price %q", *price))
		}
		item, err := a.catalog.AddItem(a.principal(), *owner, *name, *desc, d)
		if err != nil {
			fail(err)
		}
		printJSON(item)

	case "item-del":
		fs := flag.NewFlagSet("item-del", flag.ExitOnError)
		id := fs.Int64("id", 0, "item id")
		_ = fs.Parse(args)
		if err := a.catalog.RemoveItem(a.principal(), *id); err != nil {
			fail(err)
		}
		fmt.Println("ok")

	case "items":
		printJSON(a.catalog.AvailableItems())

	case "cart":
		lines := a.cart.Lines()
		printJSON(lines)
		fmt.Println("total:", a.cart.Total().StringFixed(2))

	case "cart-add":
		fs := flag.NewFlagSet("cart-add", flag.ExitOnError)
		id := fs.Int64("id", 0, "item id")
		_ = fs.Parse(args)
		if err := a.cart.Add(a.principal(), *id); err != nil {
			fail(err)
		}
		fmt.Println("ok")

	case "cart-del":
		fs := flag.NewFlagSet("cart-del", flag.ExitOnError)
		id := fs.Int64("id", 0, "item id")
		_ = fs.Parse(args)
		if err := a.cart.Remove(*id); err != nil {
			fail(err)
		}
		fmt.Println("ok")

	case "checkout":
		fs := flag.NewFlagSet("checkout", flag.ExitOnError)
		name := fs.String("name", "", "buyer name")
		email := fs.String("email", "", "buyer email")
		address := fs.String("address", "", "shipping address")
		city := fs.String("city", "", "shipping city")
		card := fs.String("card", "", "card number (16 digits)")
		exp := fs.String("exp", "", "expiry MM/YY")
		cvv := fs.String("cvv", "", "CVV (3 digits)")
		_ = fs.Parse(args)
		order, err := a.cart.Checkout(ctx, a.principal(), model.CheckoutPayload{
			Name: *name, Email: *email, Address: *address, City: *city,
			CardNumber: *card, CardExpiry: *exp, CardCVV: *cvv,
		})
		if err != nil {
			fail(err)
		}
		printJSON(order)

	case "orders":
		printJSON(a.orders.List())

	case "order-status":
		fs := flag.NewFlagSet("order-status", flag.ExitOnError)
		id := fs.Int64("id", 0, "order id")
		status := fs.String("status", "", "paid|shipped|delivered|cancelled")
		_ = fs.Parse(args)
		if err := a.orders.SetStatus(a.principal(), *id, model.OrderStatus(*status)); err != nil {
			fail(err)
		}
		fmt.Println("ok")

	case "site-import":
		fs := flag.NewFlagSet("site-import", flag.ExitOnError)
		name := fs.String("name", "", "site name")
		dir := fs.String("dir", "", "directory to import")
		_ = fs.Parse(args)
		files, err := readSiteFiles(*dir)
		if err != nil {
			fail(err)
		}
		site, err := a.sites.Import(ctx, a.principal(), *name, files)
		if err != nil {
			fail(err)
		}
		fmt.Printf("site %d imported (%d files)\n", site.ID, len(site.Files))

	case "sites":
		sites, err := a.sites.List(ctx)
		if err != nil {
			fail(err)
		}
		type row struct {
			ID        int64     `json:"id"`
			Name      string    `json:"name"`
			Files     int       `json:"files"`
			CreatedAt time.Time `json:"createdAt"`
		}
		rows := []row{}
		for _, s := range sites {
			rows = append(rows, row{ID: s.ID, Name: s.Name, Files: len(s.Files), CreatedAt: s.CreatedAt})
		}
		printJSON(rows)

	case "site-del":
		fs := flag.NewFlagSet("site-del", flag.ExitOnError)
		id := fs.Int64("id", 0, "site id")
		_ = fs.Parse(args)
		if err := a.sites.Delete(ctx, a.principal(), *id); err != nil {
			fail(err)
		}
		fmt.Println("ok")

	case "tools":
		tools, err := manifest.Load(a.cfg.ManifestPath)
		if err != nil {
			fail(err)
		}
		if len(tools) == 0 {
			fmt.Println("no tools configured")
			return
		}
		printJSON(tools)

	case "export":
		path, err := a.users.Export(a.principal(), a.cfg.DataDir)
		if err != nil {
			fail(err)
		}
		fmt.Println(path)

	case "reset":
		if session.RequireAdmin(a.principal()) != nil {
			fail(errors.New("admin login required"))
		}
		if !confirmTwice("This wipes ALL data and restores defaults.") {
			fmt.Println("aborted")
			return
		}
		if err := a.store.Reset(); err != nil {
			fail(err)
		}
		if err := a.blobs.Wipe(ctx); err != nil {
			fail(err)
		}
		_ = os.Remove(tokenPath())
		if err := a.users.EnsureAdmin(a.cfg.AdminUser, a.cfg.AdminPassword); err != nil {
			fail(err)
		}
		fmt.Println("ok")

	default:
		usage()
	}
}
