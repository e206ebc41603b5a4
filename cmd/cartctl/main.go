// Command cartctl drives a running cart API from the terminal using the same
// client the storefront pages use.
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"net/http"
	"net/http/cookiejar"
	"net/url"
	"os"
	"strconv"
	"text/tabwriter"
	"time"

	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"go.uber.org/zap"

	"github.com/sasusavage/perfumeshop/internal/badge"
	"github.com/sasusavage/perfumeshop/internal/cartclient"
	"github.com/sasusavage/perfumeshop/internal/config"
	"github.com/sasusavage/perfumeshop/internal/domain"
	"github.com/sasusavage/perfumeshop/internal/format"
	"github.com/sasusavage/perfumeshop/internal/notify"
	"github.com/sasusavage/perfumeshop/pkg/circuitbreaker"
	"github.com/sasusavage/perfumeshop/pkg/logger"
)

const usage = `usage: cartctl [flags] <command> [args]

commands:
  count                       refresh and print the badge
  show                        print the cart lines
  totals                      print subtotal, shipping and total
  add <id> <name> <price> [image]
  set <id> <quantity>
  remove <id>
  clear
`

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	fs := flag.NewFlagSet("cartctl", flag.ExitOnError)
	baseURL := fs.String("url", cfg.Client.BaseURL, "cart API base URL")
	session := fs.String("session", cfg.Client.Session, "session cookie value to reuse")
	timeout := fs.Duration("timeout", 10*time.Second, "overall command timeout")
	fs.Usage = func() {
		fmt.Fprint(fs.Output(), usage)
		fs.PrintDefaults()
	}
	_ = fs.Parse(os.Args[1:])
	if fs.NArg() == 0 {
		fs.Usage()
		os.Exit(2)
	}

	zl, err := logger.New(cfg.Environment, cfg.LogLevel)
	if err != nil {
		log.Fatalf("Failed to build logger: %v", err)
	}
	defer zl.Sync()

	jar, hc, err := newHTTPClient(*baseURL, cfg.Session.CookieName, *session)
	if err != nil {
		zl.Fatal("invalid cart API URL", zap.Error(err))
	}

	var badgeOpts []badge.Option
	badgeOpts = append(badgeOpts, badge.WithLogger(zl))
	if cfg.Client.SequenceResponses {
		badgeOpts = append(badgeOpts, badge.WithSequencing())
	}
	b := badge.New(badge.RendererFunc(func(s badge.State) {
		if s.Visible {
			fmt.Printf("cart: %s\n", s.Text)
		} else {
			fmt.Println("cart: empty")
		}
	}), badgeOpts...)

	toasts := notify.NewMemoryContainer()
	toasts.OnAppend(func(t notify.Toast) {
		fmt.Fprintf(os.Stderr, "[%s] %s\n", t.Kind, t.Message)
	})

	opts := []cartclient.Option{
		cartclient.WithHTTPClient(hc),
		cartclient.WithBadge(b),
		cartclient.WithNotifier(notify.New(toasts, notify.WithLogger(zl))),
		cartclient.WithToastDuration(cfg.Client.ToastDuration),
		cartclient.WithLogger(zl),
	}
	if cfg.Client.BreakerEnabled {
		opts = append(opts, cartclient.WithBreaker(circuitbreaker.Settings{
			Name:        "cart-api",
			MaxFailures: cfg.Client.BreakerMaxFails,
			OpenTimeout: cfg.Client.BreakerOpenFor,
		}))
	}
	client := cartclient.New(*baseURL, opts...)

	ctx, cancel := context.WithTimeout(context.Background(), *timeout)
	defer cancel()

	if err := run(ctx, client, fs.Args()); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		printSession(jar, *baseURL, cfg.Session.CookieName)
		os.Exit(1)
	}
	printSession(jar, *baseURL, cfg.Session.CookieName)
}

func run(ctx context.Context, client *cartclient.Client, args []string) error {
	cmd, args := args[0], args[1:]

	switch cmd {
	case "count":
		return cartclient.NewHost(client).Start(ctx)

	case "show":
		printCart(client.FetchCart(ctx))
		return nil

	case "totals":
		t := domain.ComputeTotals(client.FetchCart(ctx))
		fmt.Printf("subtotal: %s\n", format.Currency(t.Subtotal))
		if t.Shipping == 0 {
			fmt.Println("shipping: free")
		} else {
			fmt.Printf("shipping: %s\n", format.Currency(t.Shipping))
		}
		fmt.Printf("total:    %s\n", format.Currency(t.Total))
		return nil

	case "add":
		if len(args) < 3 {
			return fmt.Errorf("add needs <id> <name> <price>")
		}
		id, err := parseID(args[0])
		if err != nil {
			return err
		}
		price, err := strconv.ParseInt(args[2], 10, 64)
		if err != nil {
			return fmt.Errorf("invalid price %q", args[2])
		}
		p := domain.Product{ID: id, Name: args[1], Price: domain.Money(price)}
		if len(args) > 3 {
			p.ImageURL = args[3]
		}
		_, err = client.AddItem(ctx, p)
		return err

	case "set":
		if len(args) != 2 {
			return fmt.Errorf("set needs <id> <quantity>")
		}
		id, err := parseID(args[0])
		if err != nil {
			return err
		}
		qty, err := strconv.Atoi(args[1])
		if err != nil {
			return fmt.Errorf("invalid quantity %q", args[1])
		}
		_, err = client.SetItemQuantity(ctx, id, qty)
		return err

	case "remove":
		if len(args) != 1 {
			return fmt.Errorf("remove needs <id>")
		}
		id, err := parseID(args[0])
		if err != nil {
			return err
		}
		_, err = client.RemoveItem(ctx, id)
		return err

	case "clear":
		_, err := client.ClearCart(ctx)
		return err
	}

	return fmt.Errorf("unknown command %q", cmd)
}

func newHTTPClient(baseURL, cookieName, session string) (*cookiejar.Jar, *http.Client, error) {
	u, err := url.Parse(baseURL)
	if err != nil {
		return nil, nil, err
	}
	jar, err := cookiejar.New(nil)
	if err != nil {
		return nil, nil, err
	}
	if session != "" {
		jar.SetCookies(u, []*http.Cookie{{Name: cookieName, Value: session, Path: "/"}})
	}
	return jar, &http.Client{
		Jar:       jar,
		Timeout:   30 * time.Second,
		Transport: otelhttp.NewTransport(http.DefaultTransport),
	}, nil
}

func printCart(cart domain.Cart) {
	if len(cart) == 0 {
		fmt.Println("Your cart is empty")
		return
	}
	tw := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tNAME\tQTY\tPRICE\tLINE")
	for _, item := range cart {
		fmt.Fprintf(tw, "%d\t%s\t%d\t%s\t%s\n",
			item.ID, item.Name, item.Quantity,
			format.Currency(item.Price),
			format.Currency(item.Price*domain.Money(item.Quantity)),
		)
	}
	tw.Flush()
}

func printSession(jar *cookiejar.Jar, baseURL, cookieName string) {
	u, err := url.Parse(baseURL)
	if err != nil {
		return
	}
	for _, c := range jar.Cookies(u) {
		if c.Name == cookieName {
			fmt.Fprintf(os.Stderr, "session: %s\n", c.Value)
		}
	}
}

func parseID(s string) (int64, error) {
	id, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid id %q", s)
	}
	return id, nil
}
